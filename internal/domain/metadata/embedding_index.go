package metadata

// FieldVector is the embedding of "<field>: <type>".
type FieldVector struct {
	Name   string
	Vector []float32
}

// CollectionVector is the embedding of a collection description plus its fields.
type CollectionVector struct {
	Name   string
	Vector []float32
	Fields []FieldVector
}

// EmbeddingIndex holds precomputed vectors for ranking. Immutable once built.
type EmbeddingIndex struct {
	Model       string
	Collections []CollectionVector
}

// Collection looks up one collection's vectors.
func (ix *EmbeddingIndex) Collection(name string) (CollectionVector, bool) {
	if ix == nil {
		return CollectionVector{}, false
	}
	for _, c := range ix.Collections {
		if c.Name == name {
			return c, true
		}
	}
	return CollectionVector{}, false
}

// Len returns the number of indexed collections.
func (ix *EmbeddingIndex) Len() int {
	if ix == nil {
		return 0
	}
	return len(ix.Collections)
}
