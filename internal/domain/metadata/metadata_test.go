package metadata

import (
	"strings"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func ordersMeta() CollectionMetadata {
	return CollectionMetadata{
		Name: "orders",
		Fields: []Field{
			{Name: "_id", Type: TypeObjectID},
			{Name: "customerId", Type: TypeObjectID},
			{Name: "totalPrice", Type: TypeDouble},
			{Name: "amount", Type: TypeDouble},
			{Name: "status", Type: TypeString},
			{Name: "createdAt", Type: TypeDate},
			{Name: "updateTime", Type: TypeString},
		},
		DocumentCount: 42,
	}
}

func TestCollectionMetadata_Description(t *testing.T) {
	got := ordersMeta().Description()
	want := "Collection with 7 fields and 42 documents"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestCollectionMetadata_DateFields(t *testing.T) {
	got := ordersMeta().DateFields()
	if len(got) != 2 {
		t.Fatalf("expected 2 date-like fields, got %d", len(got))
	}
	if got[0].Name != "createdAt" || got[1].Name != "updateTime" {
		t.Errorf("unexpected order: %v", got)
	}
}

func TestCollectionMetadata_DateFieldsByTagOnly(t *testing.T) {
	c := CollectionMetadata{Fields: []Field{{Name: "placed", Type: TypeDate}}}
	if got := c.DateFields(); len(got) != 1 || got[0].Name != "placed" {
		t.Errorf("expected tag-only date field, got %v", got)
	}
}

func TestCollectionMetadata_FirstFieldContaining_CandidatePriority(t *testing.T) {
	// "amount" outranks "total" even though totalPrice comes first in the sample.
	f, ok := ordersMeta().FirstFieldContaining("amount", "total", "price")
	if !ok || f.Name != "amount" {
		t.Errorf("expected amount, got %v (ok=%v)", f, ok)
	}

	f, ok = ordersMeta().FirstFieldContaining("total", "amount")
	if !ok || f.Name != "totalPrice" {
		t.Errorf("expected totalPrice, got %v (ok=%v)", f, ok)
	}

	if _, ok := ordersMeta().FirstFieldContaining("revenue"); ok {
		t.Error("expected no match for revenue")
	}
}

func TestCollectionMetadata_HasField(t *testing.T) {
	c := ordersMeta()
	if !c.HasField("status") {
		t.Error("expected status field")
	}
	if c.HasField("Status") {
		t.Error("field lookup must be exact")
	}
}

func TestInferType(t *testing.T) {
	oid := primitive.NewObjectID()
	tests := []struct {
		name string
		v    any
		want TypeTag
	}{
		{"nil", nil, TypeNull},
		{"string", "x", TypeString},
		{"int32", int32(1), TypeInt},
		{"int64", int64(1), TypeLong},
		{"double", 1.5, TypeDouble},
		{"bool", true, TypeBool},
		{"datetime", primitive.NewDateTimeFromTime(time.Now()), TypeDate},
		{"time", time.Now(), TypeDate},
		{"objectId", oid, TypeObjectID},
		{"bson.D", bson.D{{Key: "a", Value: 1}}, TypeObject},
		{"bson.M", bson.M{"a": 1}, TypeObject},
		{"bson.A", bson.A{1, 2}, TypeArray},
		{"binary", primitive.Binary{Data: []byte{1}}, TypeBinary},
		{"other", struct{}{}, TypeUnknown},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := InferType(tc.v); got != tc.want {
				t.Errorf("InferType(%T) = %q, want %q", tc.v, got, tc.want)
			}
		})
	}
}

func TestSampleString(t *testing.T) {
	oid, _ := primitive.ObjectIDFromHex("65a1b2c3d4e5f60718293a4b")
	if got := SampleString(oid); got != "65a1b2c3d4e5f60718293a4b" {
		t.Errorf("ObjectID sample = %q", got)
	}

	ts := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	if got := SampleString(primitive.NewDateTimeFromTime(ts)); got != "2024-03-01T12:00:00Z" {
		t.Errorf("DateTime sample = %q", got)
	}

	long := strings.Repeat("é", 80)
	if got := SampleString(long); len([]rune(got)) != SampleMaxLen {
		t.Errorf("expected %d runes, got %d", SampleMaxLen, len([]rune(got)))
	}

	if got := SampleString(nil); got != "null" {
		t.Errorf("nil sample = %q", got)
	}
}

func TestSnapshot_OrderAndLookup(t *testing.T) {
	built := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	s := NewSnapshot([]CollectionMetadata{
		{Name: "products"},
		ordersMeta(),
		{Name: "products", DocumentCount: 99},
	}, built)

	if s.Len() != 2 {
		t.Fatalf("expected duplicates dropped, got %d", s.Len())
	}
	names := s.Names()
	if names[0] != "products" || names[1] != "orders" {
		t.Errorf("unexpected order: %v", names)
	}
	if p, _ := s.Get("products"); p.DocumentCount != 0 {
		t.Error("first occurrence should win")
	}
	if !s.Has("orders") || s.Has("customers") {
		t.Error("unexpected Has result")
	}
	if !s.BuiltAt().Equal(built) {
		t.Errorf("unexpected BuiltAt: %v", s.BuiltAt())
	}

	names[0] = "mutated"
	if s.Names()[0] != "products" {
		t.Error("Names must return a copy")
	}
}

func TestSnapshot_NilIsEmpty(t *testing.T) {
	var s *Snapshot
	if s.Len() != 0 || s.Names() != nil || s.Collections() != nil || s.Has("orders") {
		t.Error("nil snapshot must behave as empty")
	}
}

func TestEmbeddingIndex_Collection(t *testing.T) {
	ix := &EmbeddingIndex{Collections: []CollectionVector{{Name: "orders", Vector: []float32{1}}}}
	if _, ok := ix.Collection("orders"); !ok {
		t.Error("expected orders")
	}
	if _, ok := ix.Collection("missing"); ok {
		t.Error("unexpected hit")
	}
	var nilIx *EmbeddingIndex
	if nilIx.Len() != 0 {
		t.Error("nil index must be empty")
	}
}
