// Package recovery extracts one read command from free-form model output.
//
// The accepted shape is <collection>.<find|aggregate|countDocuments|count>(<arg>)
// with an optional "db." prefix. Everything after locating the invocation
// degrades: a span that cannot be decoded yields an empty argument rather
// than an error.
package recovery

import (
	"fmt"
	"regexp"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/kailas-cloud/docquery/internal/domain"
	"github.com/kailas-cloud/docquery/internal/domain/query"
)

// DecodeStage names the decode strategy that produced the argument.
type DecodeStage string

// Decode stages in decreasing strictness.
const (
	StageRaw      DecodeStage = "raw"
	StageRepaired DecodeStage = "repaired"
	StageLiteral  DecodeStage = "literal"
	StageEmpty    DecodeStage = "empty"
)

// Result is a recovered command and how its argument was obtained.
type Result struct {
	Command query.Command
	Stage   DecodeStage
	// Span is the bracketed argument text, empty when none was found.
	Span string
}

var invocationRe = regexp.MustCompile(`(?:db\.)?([a-zA-Z0-9_]+)\.(find|aggregate|countDocuments|count)\(`)

// Recover locates the first supported invocation in text and decodes its argument.
// The only error is domain.ErrUnparseable when no invocation is present.
func Recover(text string) (Result, error) {
	loc := invocationRe.FindStringSubmatchIndex(text)
	if loc == nil {
		return Result{}, fmt.Errorf(
			"%w: expected <collection>.find({...}), .aggregate([...]), .countDocuments({...}) or .count({...})",
			domain.ErrUnparseable)
	}
	collection := text[loc[2]:loc[3]]
	op, err := query.ParseOperation(text[loc[4]:loc[5]])
	if err != nil {
		return Result{}, fmt.Errorf("%w: %w", domain.ErrUnparseable, err)
	}

	open, closing := byte('{'), byte('}')
	if op.TakesPipeline() {
		open, closing = '[', ']'
	}

	rest := text[loc[1]:]
	res := Result{Command: query.Command{Collection: collection, Operation: op}}
	span, ok := extractSpan(rest, open, closing)
	if !ok {
		setEmpty(&res)
		return res, nil
	}
	res.Span = span

	for _, step := range decodeChain {
		v, err := step.decode(span)
		if err != nil {
			continue
		}
		if err := assign(&res.Command, v); err != nil {
			continue
		}
		res.Stage = step.stage
		return res, nil
	}
	setEmpty(&res)
	return res, nil
}

type decodeStep struct {
	stage  DecodeStage
	decode func(string) (any, error)
}

var decodeChain = []decodeStep{
	{StageRaw, decodeStrict},
	{StageRepaired, func(s string) (any, error) { return decodeStrict(repairKeys(s)) }},
	{StageLiteral, parseLiteral},
}

func setEmpty(r *Result) {
	r.Stage = StageEmpty
	if r.Command.Operation.TakesPipeline() {
		r.Command.Pipeline = query.Pipeline{}
		return
	}
	r.Command.Filter = query.Document{}
}

// assign type-checks v against the operation. A lone object is accepted as a
// one-stage pipeline.
func assign(cmd *query.Command, v any) error {
	if !cmd.Operation.TakesPipeline() {
		doc, ok := v.(bson.D)
		if !ok {
			return fmt.Errorf("%s argument must be an object, got %T", cmd.Operation, v)
		}
		cmd.Filter = toMap(doc)
		return nil
	}

	switch t := v.(type) {
	case bson.D:
		cmd.Pipeline = query.Pipeline{toMap(t)}
		return nil
	case []any:
		p := make(query.Pipeline, 0, len(t))
		for i, el := range t {
			st, ok := el.(bson.D)
			if !ok {
				return fmt.Errorf("stage %d must be an object, got %T", i, el)
			}
			p = append(p, toMap(st))
		}
		cmd.Pipeline = p
		return nil
	default:
		return fmt.Errorf("aggregate argument must be a list, got %T", v)
	}
}
