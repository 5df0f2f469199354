package assistant

import (
	"fmt"
	"strings"
	"time"

	"github.com/kailas-cloud/docquery/internal/domain/query"
	"github.com/kailas-cloud/docquery/internal/usecase/ranker"
	"github.com/kailas-cloud/docquery/internal/usecase/recovery"
)

// Mode selects how questions are turned into commands.
type Mode string

// Modes.
const (
	// ModeAuto uses the model when a generator and an embedding index are available.
	ModeAuto  Mode = "auto"
	ModeModel Mode = "model"
	ModeRules Mode = "rules"
)

// ParseMode validates a configured mode. Empty means auto.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case "":
		return ModeAuto, nil
	case ModeAuto, ModeModel, ModeRules:
		return m, nil
	default:
		return "", fmt.Errorf("unknown assistant mode %q (want auto, model or rules)", s)
	}
}

// Source names the pipeline branch that produced the command.
type Source string

// Sources.
const (
	SourceTemplate Source = "template"
	SourceCompiler Source = "compiler"
	SourceModel    Source = "model"
)

// Fallback reasons, set when the model path handed over to the compiler.
const (
	FallbackNoIndex     = "embedding_index_unavailable"
	FallbackRanking     = "ranking_failed"
	FallbackLLM         = "llm_unavailable"
	FallbackUnable      = "model_unable_to_query"
	FallbackModelError  = "model_reported_error"
	FallbackUnparseable = "model_output_unparseable"
)

// Decline messages.
const (
	DeclineUnrelated = "This question doesn't seem related to the database. " +
		"Please ask something about the data in the collections."
	DeclineOutOfScope = "This question is not related to the database."
)

// Answer is the outcome of one question.
type Answer struct {
	TraceID  string `json:"trace_id"`
	Question string `json:"question"`
	Source   Source `json:"source,omitempty"`
	Declined bool   `json:"declined"`
	Message  string `json:"message,omitempty"`
	// Fallback is why the model path was abandoned, empty otherwise.
	Fallback    string                 `json:"fallback,omitempty"`
	Intent      query.Intent           `json:"intent,omitempty"`
	DecodeStage recovery.DecodeStage   `json:"decode_stage,omitempty"`
	Context     []ranker.Scored        `json:"context,omitempty"`
	ModelOutput string                 `json:"model_output,omitempty"`
	Command     *query.Command         `json:"command,omitempty"`
	Result      *query.ExecutionResult `json:"result,omitempty"`
	Elapsed     time.Duration          `json:"-"`
}

func (a *Answer) outcome() string {
	switch {
	case a.Declined:
		return "declined"
	case a.Result != nil && a.Result.Failed():
		return "error"
	default:
		return "ok"
	}
}

// RefreshReport summarizes a metadata refresh.
type RefreshReport struct {
	Collections []string  `json:"collections"`
	BuiltAt     time.Time `json:"built_at"`
	Indexed     bool      `json:"indexed"`
	IndexError  string    `json:"index_error,omitempty"`
}

// Recovered is the parse-only view of a model answer.
type Recovered struct {
	Sentinel recovery.Sentinel    `json:"sentinel,omitempty"`
	Command  *query.Command       `json:"command,omitempty"`
	Stage    recovery.DecodeStage `json:"decode_stage,omitempty"`
	Span     string               `json:"span,omitempty"`
}
