// Package assistant turns a question into one read against the document
// store: a fixed join template, the deterministic compiler, or the language
// model with recovery and a compiler fallback.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kailas-cloud/docquery/internal/domain"
	dommeta "github.com/kailas-cloud/docquery/internal/domain/metadata"
	"github.com/kailas-cloud/docquery/internal/domain/query"
	"github.com/kailas-cloud/docquery/internal/logger"
	"github.com/kailas-cloud/docquery/internal/usecase/recovery"
)

// Config tunes the question pipeline.
type Config struct {
	Mode Mode
	// Templates enables the customer join template.
	Templates   bool
	Temperature float32
	// StrictModelErrors returns model path failures instead of falling back to the compiler.
	StrictModelErrors bool
}

// Service answers questions.
type Service struct {
	gate      QuestionGate
	compiler  Compiler
	dispatch  Dispatcher
	catalog   Catalog
	ranker    Ranker
	generator domain.Generator
	observer  Observer
	cfg       Config
	logger    *zap.Logger
}

// New creates the pipeline. ranker and generator may be nil, which limits
// the service to the rules path. observer may be nil.
func New(
	gate QuestionGate,
	compiler Compiler,
	dispatch Dispatcher,
	catalog Catalog,
	ranker Ranker,
	generator domain.Generator,
	observer Observer,
	cfg Config,
	log *zap.Logger,
) *Service {
	if cfg.Mode == "" {
		cfg.Mode = ModeAuto
	}
	return &Service{
		gate:      gate,
		compiler:  compiler,
		dispatch:  dispatch,
		catalog:   catalog,
		ranker:    ranker,
		generator: generator,
		observer:  observer,
		cfg:       cfg,
		logger:    log,
	}
}

// Ask answers one question. A decline is an answer, not an error. Errors are
// domain.ErrInvalidRequest, a *domain.ProhibitedError, or model path failures
// when StrictModelErrors is set.
func (s *Service) Ask(ctx context.Context, question string) (*Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, fmt.Errorf("question is empty: %w", domain.ErrInvalidRequest)
	}

	start := time.Now()
	ans := &Answer{TraceID: uuid.NewString(), Question: question}
	log := logger.FromContextOr(ctx, s.logger).With(zap.String("trace_id", ans.TraceID))
	ctx = logger.ContextWithLogger(ctx, log)

	err := s.ask(ctx, question, ans)
	ans.Elapsed = time.Since(start)
	if err != nil {
		if errors.Is(err, domain.ErrProhibitedOperation) {
			s.observeAnswer(ans.Source, "rejected")
		} else {
			s.observeAnswer(ans.Source, "error")
		}
		log.Warn("Question failed", zap.Duration("elapsed", ans.Elapsed), zap.Error(err))
		return nil, err
	}

	s.observeAnswer(ans.Source, ans.outcome())
	log.Info("Question answered",
		zap.String("source", string(ans.Source)),
		zap.Bool("declined", ans.Declined),
		zap.String("fallback", ans.Fallback),
		zap.Duration("elapsed", ans.Elapsed),
	)
	return ans, nil
}

func (s *Service) ask(ctx context.Context, question string, ans *Answer) error {
	if err := s.gate.CheckQuestion(question); err != nil {
		return err
	}

	if s.cfg.Templates {
		done, err := s.tryTemplate(ctx, question, ans)
		if done || err != nil {
			return err
		}
	}

	snap := s.catalog.Snapshot()

	if s.useModel() {
		done, err := s.askModel(ctx, question, snap, ans)
		if done || err != nil {
			return err
		}
	}

	return s.askCompiler(ctx, question, snap, ans)
}

func (s *Service) useModel() bool {
	switch s.cfg.Mode {
	case ModeRules:
		return false
	case ModeModel:
		return s.generator != nil && s.ranker != nil
	default:
		return s.generator != nil && s.ranker != nil && s.ranker.Ready()
	}
}

// tryTemplate runs the join template. A failed template execution falls
// through to the next branch.
func (s *Service) tryTemplate(ctx context.Context, question string, ans *Answer) (bool, error) {
	compiled, ok := s.compiler.CustomerJoin(question)
	if !ok {
		return false, nil
	}
	cmd := compiled.Command()
	res, err := s.dispatch.Execute(ctx, cmd)
	if err != nil {
		return false, err
	}
	if res.Failed() {
		logger.FromContext(ctx).Warn("Join template failed, falling through",
			zap.String("error", res.Error.Message))
		return false, nil
	}
	ans.Source = SourceTemplate
	ans.Command = &cmd
	ans.Result = &res
	return true, nil
}

// askModel returns done=false when the compiler should take over.
func (s *Service) askModel(ctx context.Context, question string, snap *dommeta.Snapshot, ans *Answer) (bool, error) {
	log := logger.FromContext(ctx)

	if !s.ranker.Ready() {
		return s.fallback(ctx, ans, FallbackNoIndex, fmt.Errorf("embedding index not built: %w", domain.ErrNoRelevantCollection))
	}

	selected, err := s.ranker.SelectContext(ctx, question)
	if errors.Is(err, domain.ErrNoRelevantCollection) {
		ans.Source = SourceModel
		ans.Declined = true
		ans.Message = DeclineUnrelated
		return true, nil
	}
	if err != nil {
		return s.fallback(ctx, ans, FallbackRanking, err)
	}
	ans.Context = selected

	text, err := s.generator.Generate(ctx, domain.GenerateRequest{
		SystemPrompt: systemPrompt,
		UserPrompt:   userPrompt(schemaContext(ctx, s.catalog, snap, selected), question),
		Temperature:  s.cfg.Temperature,
	})
	if err != nil {
		return s.fallback(ctx, ans, FallbackLLM, err)
	}
	ans.ModelOutput = text
	log.Debug("Model output", zap.String("text", text))

	switch recovery.DetectSentinel(text) {
	case recovery.SentinelOutOfScope:
		ans.Source = SourceModel
		ans.Declined = true
		ans.Message = DeclineOutOfScope
		return true, nil
	case recovery.SentinelModification:
		return false, domain.NewProhibited(string(recovery.SentinelModification))
	case recovery.SentinelUnable:
		return s.fallback(ctx, ans, FallbackUnable, fmt.Errorf("%w: %s", domain.ErrModelDeclined, text))
	case recovery.SentinelError:
		return s.fallback(ctx, ans, FallbackModelError, fmt.Errorf("%w: %s", domain.ErrModelDeclined, text))
	}

	rec, err := recovery.Recover(text)
	if err != nil {
		return s.fallback(ctx, ans, FallbackUnparseable, err)
	}
	s.observeDecode(rec.Stage)

	res, err := s.dispatch.Execute(ctx, rec.Command)
	if err != nil {
		return false, err
	}
	ans.Source = SourceModel
	ans.DecodeStage = rec.Stage
	ans.Command = &rec.Command
	ans.Result = &res
	return true, nil
}

// fallback records why the model path was abandoned. With StrictModelErrors
// the cause is returned instead.
func (s *Service) fallback(ctx context.Context, ans *Answer, reason string, cause error) (bool, error) {
	if s.cfg.StrictModelErrors {
		return false, cause
	}
	ans.Fallback = reason
	logger.FromContext(ctx).Warn("Model path failed, using compiler",
		zap.String("reason", reason), zap.Error(cause))
	return false, nil
}

func (s *Service) askCompiler(ctx context.Context, question string, snap *dommeta.Snapshot, ans *Answer) error {
	compiled := s.compiler.Compile(question, snap)
	s.observeIntent(compiled.Analysis.Intent)

	cmd := compiled.Command()
	res, err := s.dispatch.Execute(ctx, cmd)
	if err != nil {
		return err
	}
	ans.Source = SourceCompiler
	ans.Intent = compiled.Analysis.Intent
	ans.Command = &cmd
	ans.Result = &res
	return nil
}

// Compile runs the rule engine only, without touching the store.
func (s *Service) Compile(question string) (query.Compiled, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return query.Compiled{}, fmt.Errorf("question is empty: %w", domain.ErrInvalidRequest)
	}
	if err := s.gate.CheckQuestion(question); err != nil {
		return query.Compiled{}, err
	}
	if s.cfg.Templates {
		if c, ok := s.compiler.CustomerJoin(question); ok {
			return c, nil
		}
	}
	return s.compiler.Compile(question, s.catalog.Snapshot()), nil
}

// Recover parses model output without executing it.
func (s *Service) Recover(text string) (Recovered, error) {
	if strings.TrimSpace(text) == "" {
		return Recovered{}, fmt.Errorf("text is empty: %w", domain.ErrInvalidRequest)
	}
	if sentinel := recovery.DetectSentinel(text); sentinel != recovery.SentinelNone {
		return Recovered{Sentinel: sentinel}, nil
	}
	res, err := recovery.Recover(text)
	if err != nil {
		return Recovered{}, err
	}
	return Recovered{Command: &res.Command, Stage: res.Stage, Span: res.Span}, nil
}

// Collections returns the current snapshot.
func (s *Service) Collections() *dommeta.Snapshot {
	return s.catalog.Snapshot()
}

// Refresh rebuilds the metadata snapshot and then the embedding index. An
// index failure is reported, not returned; the previous index stays in use.
func (s *Service) Refresh(ctx context.Context) (RefreshReport, error) {
	snap, err := s.catalog.Refresh(ctx)
	if err != nil {
		return RefreshReport{}, fmt.Errorf("refresh metadata: %w", err)
	}
	report := RefreshReport{Collections: snap.Names(), BuiltAt: snap.BuiltAt()}
	if s.ranker == nil {
		return report, nil
	}
	if _, err := s.ranker.Build(ctx, snap); err != nil {
		s.logger.Warn("Embedding index rebuild failed", zap.Error(err))
		report.IndexError = err.Error()
		return report, nil
	}
	report.Indexed = true
	return report, nil
}

func (s *Service) observeAnswer(source Source, outcome string) {
	if s.observer != nil {
		if source == "" {
			source = "none"
		}
		s.observer.ObserveAnswer(string(source), outcome)
	}
}

func (s *Service) observeDecode(stage recovery.DecodeStage) {
	if s.observer != nil {
		s.observer.ObserveDecode(string(stage))
	}
}

func (s *Service) observeIntent(intent query.Intent) {
	if s.observer != nil {
		s.observer.ObserveIntent(string(intent))
	}
}
