package safety

import (
	"errors"
	"testing"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/kailas-cloud/docquery/internal/domain"
)

// --- Mocks ---

type recordingObserver struct {
	origins  []string
	keywords []string
}

func (r *recordingObserver) Rejected(origin, keyword string) {
	r.origins = append(r.origins, origin)
	r.keywords = append(r.keywords, keyword)
}

// --- Tests ---

func TestCheckArgument_RejectsMutatingOperators(t *testing.T) {
	g := New(nil)
	tests := []struct {
		name string
		arg  any
		want string
	}{
		{"set", map[string]any{"$set": map[string]any{"a": 1}}, "$set"},
		{"unset", map[string]any{"$UNSET": map[string]any{"a": ""}}, "$unset"},
		{"deleteOne", map[string]any{"op": "deleteOne"}, "deleteOne"},
		{"deleteMany upper", map[string]any{"op": "DELETEMANY"}, "deleteMany"},
		{"updateOne", map[string]any{"note": "please updateOne"}, "updateOne"},
		{"updateMany", []any{map[string]any{"$match": map[string]any{"x": "updatemany"}}}, "updateMany"},
		{"drop", map[string]any{"cmd": "Drop"}, "drop"},
		{"out stage", []any{map[string]any{"$out": "copy"}}, "$out"},
		{"merge stage", []any{map[string]any{"$merge": map[string]any{"into": "x"}}}, "$merge"},
		{"ordered nested set", map[string]any{"amount": bson.D{{Key: "$gt", Value: 1}, {Key: "$set", Value: 2}}}, "$set"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := g.CheckArgument(tc.arg)
			if !errors.Is(err, domain.ErrProhibitedOperation) {
				t.Fatalf("expected ErrProhibitedOperation, got %v", err)
			}
			var pe *domain.ProhibitedError
			if !errors.As(err, &pe) {
				t.Fatalf("expected ProhibitedError, got %T", err)
			}
			if pe.Keyword != tc.want {
				t.Errorf("keyword = %q, want %q", pe.Keyword, tc.want)
			}
		})
	}
}

func TestCheckArgument_AllowsReads(t *testing.T) {
	g := New(nil)
	args := []any{
		map[string]any{"status": "completed"},
		[]any{
			map[string]any{"$match": map[string]any{"status": "completed"}},
			map[string]any{"$group": map[string]any{"_id": nil, "total": map[string]any{"$sum": "$amount"}}},
		},
		map[string]any{},
	}
	for _, a := range args {
		if err := g.CheckArgument(a); err != nil {
			t.Errorf("CheckArgument(%v) = %v", a, err)
		}
	}
}

func TestCheckArgument_Unserializable(t *testing.T) {
	g := New(nil)
	err := g.CheckArgument(map[string]any{"ch": make(chan int)})
	if !errors.Is(err, domain.ErrInvalidRequest) {
		t.Errorf("expected ErrInvalidRequest, got %v", err)
	}
}

func TestCheckQuestion(t *testing.T) {
	g := New(nil)
	rejected := []string{
		"please DROP the orders table",
		"delete all cancelled orders",
		"update the price of item 4",
		"can you insert a customer",
		"modify order 12",
		"remove duplicates",
		"truncate logs",
		"alter the schema",
	}
	for _, q := range rejected {
		if err := g.CheckQuestion(q); !errors.Is(err, domain.ErrProhibitedOperation) {
			t.Errorf("CheckQuestion(%q) = %v, want prohibited", q, err)
		}
	}
	if err := g.CheckQuestion("total sales in 2024"); err != nil {
		t.Errorf("unexpected rejection: %v", err)
	}
}

func TestGate_ObserverRecordsRejection(t *testing.T) {
	obs := &recordingObserver{}
	g := New(obs)

	_ = g.CheckQuestion("drop everything")
	_ = g.CheckText(`{"$set": {"a": 1}}`)
	_ = g.CheckText(`{"status": "ok"}`)

	if len(obs.origins) != 2 {
		t.Fatalf("expected 2 rejections, got %d", len(obs.origins))
	}
	if obs.origins[0] != "question" || obs.keywords[0] != "drop" {
		t.Errorf("first rejection = %s/%s", obs.origins[0], obs.keywords[0])
	}
	if obs.origins[1] != "argument" || obs.keywords[1] != "$set" {
		t.Errorf("second rejection = %s/%s", obs.origins[1], obs.keywords[1])
	}
}
