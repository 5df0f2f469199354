// Package safety rejects questions and query arguments that could mutate data.
package safety

import (
	"fmt"
	"strings"

	"github.com/kailas-cloud/docquery/internal/domain"
	"github.com/kailas-cloud/docquery/internal/domain/query"
)

// ArgumentKeywords are matched case-insensitively against serialized arguments.
var ArgumentKeywords = []string{
	"$set", "$unset", "$push", "$pull", "$rename",
	"$out", "$merge", "$where", "$function", "$accumulator",
	"insert", "deleteOne", "deleteMany", "updateOne", "updateMany",
	"replaceOne", "findAndModify", "drop",
}

// QuestionKeywords are matched case-insensitively against question text.
var QuestionKeywords = []string{
	"drop", "delete", "update", "insert", "modify", "remove", "truncate", "alter",
}

// Rejection counts gate rejections by origin ("question", "argument").
type Rejection interface {
	Rejected(origin, keyword string)
}

// Gate checks untrusted text against the prohibited vocabularies.
type Gate struct {
	argument []string
	question []string
	observer Rejection
}

// New builds a gate with the default vocabularies. observer can be nil.
func New(observer Rejection) *Gate {
	return &Gate{
		argument: lowerAll(ArgumentKeywords),
		question: lowerAll(QuestionKeywords),
		observer: observer,
	}
}

// CheckQuestion rejects question text naming a mutating operation.
func (g *Gate) CheckQuestion(question string) error {
	return g.scan("question", strings.ToLower(question), g.question, QuestionKeywords)
}

// CheckArgument rejects an argument whose JSON form contains a prohibited keyword.
// Arguments that cannot be serialized are rejected as invalid.
func (g *Gate) CheckArgument(arg any) error {
	raw, err := query.EncodeJSON(arg)
	if err != nil {
		return fmt.Errorf("serialize argument: %w: %w", domain.ErrInvalidRequest, err)
	}
	return g.CheckText(string(raw))
}

// CheckText applies the argument vocabulary to raw text.
func (g *Gate) CheckText(text string) error {
	return g.scan("argument", strings.ToLower(text), g.argument, ArgumentKeywords)
}

func (g *Gate) scan(origin, lowered string, vocabulary, display []string) error {
	for i, kw := range vocabulary {
		if strings.Contains(lowered, kw) {
			if g.observer != nil {
				g.observer.Rejected(origin, display[i])
			}
			return domain.NewProhibited(display[i])
		}
	}
	return nil
}

func lowerAll(in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = strings.ToLower(s)
	}
	return out
}
