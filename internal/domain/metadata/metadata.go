// Package metadata describes the inferred shape of the document store:
// per-collection field inventories, live samples, counts and index names.
package metadata

import (
	"fmt"
	"strings"
)

// SampleMaxLen is the maximum length, in runes, of a field sample value.
const SampleMaxLen = 50

// Field is one top-level field observed in a sample document.
type Field struct {
	Name   string  `json:"name"`
	Type   TypeTag `json:"type"`
	Sample string  `json:"sample,omitempty"`
}

// IsDateLike reports whether the field holds a date, judged by tag or by name.
func (f Field) IsDateLike() bool {
	if f.Type == TypeDate {
		return true
	}
	lower := strings.ToLower(f.Name)
	return strings.Contains(lower, "date") || strings.Contains(lower, "time")
}

// CollectionMetadata is the immutable description of one collection at refresh time.
type CollectionMetadata struct {
	Name          string   `json:"name"`
	Fields        []Field  `json:"fields"`
	DocumentCount int64    `json:"document_count"`
	Indexes       []string `json:"indexes"`
}

// Description is the sentence embedded for collection-level ranking.
func (c CollectionMetadata) Description() string {
	return fmt.Sprintf("Collection with %d fields and %d documents", len(c.Fields), c.DocumentCount)
}

// Field looks up a field by exact name.
func (c CollectionMetadata) Field(name string) (Field, bool) {
	for _, f := range c.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// HasField reports whether the collection's sample carried a field with this exact name.
func (c CollectionMetadata) HasField(name string) bool {
	_, ok := c.Field(name)
	return ok
}

// DateFields returns date-like fields in sample order.
func (c CollectionMetadata) DateFields() []Field {
	var out []Field
	for _, f := range c.Fields {
		if f.IsDateLike() {
			out = append(out, f)
		}
	}
	return out
}

// FirstFieldContaining returns the first field whose lowercased name contains
// one of candidates. Candidates are tried in order; for each, fields are
// scanned in sample order.
func (c CollectionMetadata) FirstFieldContaining(candidates ...string) (Field, bool) {
	for _, cand := range candidates {
		for _, f := range c.Fields {
			if strings.Contains(strings.ToLower(f.Name), cand) {
				return f, true
			}
		}
	}
	return Field{}, false
}
