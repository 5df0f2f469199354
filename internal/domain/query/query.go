// Package query holds the value types that flow between the compiler, the
// recovery parser and the dispatcher.
package query

import "fmt"

// Document is a field-to-value mapping as exchanged with the document store.
type Document = map[string]any

// Stage is one aggregation pipeline stage, e.g. {"$match": {...}}.
type Stage = map[string]any

// Pipeline is an ordered list of aggregation stages.
type Pipeline []Stage

// Operation is a supported read command.
type Operation string

// Supported operations.
const (
	OpFind           Operation = "find"
	OpAggregate      Operation = "aggregate"
	OpCountDocuments Operation = "countDocuments"
	OpCount          Operation = "count"
)

// ParseOperation maps a command name to an Operation.
func ParseOperation(s string) (Operation, error) {
	switch op := Operation(s); op {
	case OpFind, OpAggregate, OpCountDocuments, OpCount:
		return op, nil
	default:
		return "", fmt.Errorf("unsupported operation %q", s)
	}
}

// TakesPipeline reports whether the operation's argument is a stage list.
func (o Operation) TakesPipeline() bool { return o == OpAggregate }

// IsCount reports whether the operation counts documents.
func (o Operation) IsCount() bool { return o == OpCount || o == OpCountDocuments }

// Command is one executable read against a single collection.
// Filter is used by find and count, Pipeline by aggregate.
type Command struct {
	Collection string    `json:"collection"`
	Operation  Operation `json:"operation"`
	Filter     Document  `json:"filter,omitempty"`
	Pipeline   Pipeline  `json:"pipeline,omitempty"`
}

// Argument returns the operation's argument in its natural shape.
func (c Command) Argument() any {
	if c.Operation.TakesPipeline() {
		if c.Pipeline == nil {
			return Pipeline{}
		}
		return c.Pipeline
	}
	if c.Filter == nil {
		return Document{}
	}
	return c.Filter
}

// Aggregate builds an aggregate command.
func Aggregate(collection string, p Pipeline) Command {
	return Command{Collection: collection, Operation: OpAggregate, Pipeline: p}
}
