package docquery

import (
	"time"

	"github.com/kailas-cloud/docquery/internal/domain/query"
	"github.com/kailas-cloud/docquery/internal/usecase/assistant"
)

// Command is one read command against a collection. Nested objects in a
// recovered command are bson.D so their key order is kept.
type Command struct {
	Collection string
	Operation  string // find, aggregate, countDocuments, count
	Filter     map[string]any
	Pipeline   []map[string]any
}

// Answer is the outcome of one question.
//
// A declined answer carries Message and no Command. A failed execution
// carries ExecutionError; store failures are not Go errors.
type Answer struct {
	TraceID        string
	Source         string // template, compiler, model
	Declined       bool
	Message        string
	Fallback       string // why the model path was skipped, if it was
	Intent         string
	Collections    []string // ranked context shown to the model
	Command        *Command
	Documents      []map[string]any
	ExecutionError string
	Elapsed        time.Duration
}

// Compiled is a question compiled by the rule engine.
type Compiled struct {
	Collection string
	Intent     string
	Pipeline   []map[string]any
}

// RefreshReport summarizes a metadata refresh.
type RefreshReport struct {
	Collections []string
	BuiltAt     time.Time
	Indexed     bool
	IndexError  string
}

// Collection describes one sampled collection.
type Collection struct {
	Name          string
	DocumentCount int64
	Fields        map[string]string // field → type tag
	Indexes       []string
}

func toCommand(c *query.Command) *Command {
	if c == nil {
		return nil
	}
	return &Command{
		Collection: c.Collection,
		Operation:  string(c.Operation),
		Filter:     c.Filter,
		Pipeline:   c.Pipeline,
	}
}

func toAnswer(a *assistant.Answer) *Answer {
	out := &Answer{
		TraceID:  a.TraceID,
		Source:   string(a.Source),
		Declined: a.Declined,
		Message:  a.Message,
		Fallback: a.Fallback,
		Intent:   string(a.Intent),
		Command:  toCommand(a.Command),
		Elapsed:  a.Elapsed,
	}
	for _, s := range a.Context {
		out.Collections = append(out.Collections, s.Name)
	}
	if a.Result != nil {
		out.Documents = a.Result.Documents
		if a.Result.Failed() {
			out.ExecutionError = a.Result.Error.Message
		}
	}
	return out
}

func toCompiled(c query.Compiled) Compiled {
	return Compiled{
		Collection: c.Collection,
		Intent:     string(c.Analysis.Intent),
		Pipeline:   c.Pipeline,
	}
}
