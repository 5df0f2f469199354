package query

import (
	"encoding/json"
	"testing"

	"go.mongodb.org/mongo-driver/bson"
)

func TestParseOperation(t *testing.T) {
	for _, s := range []string{"find", "aggregate", "countDocuments", "count"} {
		op, err := ParseOperation(s)
		if err != nil {
			t.Errorf("ParseOperation(%q): %v", s, err)
		}
		if string(op) != s {
			t.Errorf("ParseOperation(%q) = %q", s, op)
		}
	}
	if _, err := ParseOperation("deleteMany"); err == nil {
		t.Error("expected error for deleteMany")
	}
}

func TestOperation_Shape(t *testing.T) {
	if !OpAggregate.TakesPipeline() || OpFind.TakesPipeline() {
		t.Error("only aggregate takes a pipeline")
	}
	if !OpCount.IsCount() || !OpCountDocuments.IsCount() || OpFind.IsCount() {
		t.Error("unexpected IsCount result")
	}
}

func TestCommand_ArgumentDefaults(t *testing.T) {
	find := Command{Operation: OpFind}
	if doc, ok := find.Argument().(Document); !ok || doc == nil || len(doc) != 0 {
		t.Errorf("expected empty document, got %#v", find.Argument())
	}
	agg := Command{Operation: OpAggregate}
	if p, ok := agg.Argument().(Pipeline); !ok || p == nil || len(p) != 0 {
		t.Errorf("expected empty pipeline, got %#v", agg.Argument())
	}
}

func TestIntent_IsValid(t *testing.T) {
	if !IntentAggregateSum.IsValid() {
		t.Error("aggregate_sum should be valid")
	}
	if Intent("drop").IsValid() {
		t.Error("unknown intent should be invalid")
	}
}

func TestAnalysis_Primary(t *testing.T) {
	if (Analysis{}).Primary() != "" {
		t.Error("expected empty primary")
	}
	a := Analysis{Collections: []string{"orders", "customers"}}
	if a.Primary() != "orders" {
		t.Errorf("expected orders, got %q", a.Primary())
	}
}

func TestFailure(t *testing.T) {
	r := Failure("boom")
	if !r.Failed() || r.Error.Message != "boom" {
		t.Errorf("unexpected failure result: %#v", r)
	}
	if r.Documents == nil {
		t.Error("documents should be an empty slice, not nil")
	}
}

func TestEncodeJSON_OrderedDocuments(t *testing.T) {
	p := Pipeline{
		{"$match": map[string]any{"status": "completed", "amount": bson.D{{Key: "$gt", Value: 100}}}},
		{"$sort": bson.D{{Key: "total", Value: -1}, {Key: "name", Value: 1}}},
	}
	raw, err := EncodeJSON(p)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := `[{"$match":{"amount":{"$gt":100},"status":"completed"}},{"$sort":{"total":-1,"name":1}}]`
	if string(raw) != want {
		t.Errorf("EncodeJSON = %s, want %s", raw, want)
	}
}

func TestCommand_MarshalJSON(t *testing.T) {
	cmd := Command{
		Collection: "orders",
		Operation:  OpFind,
		Filter:     Document{"when": bson.D{{Key: "$lt", Value: 2}, {Key: "$gte", Value: 1}}},
	}
	raw, err := json.Marshal(cmd)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := `{"collection":"orders","operation":"find","filter":{"when":{"$lt":2,"$gte":1}}}`
	if string(raw) != want {
		t.Errorf("json = %s, want %s", raw, want)
	}
}
