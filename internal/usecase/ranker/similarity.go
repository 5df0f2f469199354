package ranker

import (
	"math"
	"sort"

	"github.com/kailas-cloud/docquery/internal/domain/metadata"
)

// Scored is a name with its similarity to the question.
type Scored struct {
	Name  string  `json:"name"`
	Score float64 `json:"score"`
	// Fields are the collection's most relevant fields, set by SelectContext.
	Fields []Scored `json:"fields,omitempty"`
}

// Cosine returns the cosine similarity of a and b, or 0 when either norm is
// zero or the dimensions differ.
func Cosine(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	s := dot / (math.Sqrt(na) * math.Sqrt(nb))
	if math.IsNaN(s) {
		return 0
	}
	return s
}

// RankCollections scores every collection vector against q, descending,
// ties in index order. topK <= 0 returns all.
func RankCollections(ix *metadata.EmbeddingIndex, q []float32, topK int) []Scored {
	if ix == nil {
		return nil
	}
	out := make([]Scored, 0, len(ix.Collections))
	for _, c := range ix.Collections {
		out = append(out, Scored{Name: c.Name, Score: Cosine(q, c.Vector)})
	}
	return top(out, topK)
}

// RankFields scores one collection's field vectors against q.
func RankFields(ix *metadata.EmbeddingIndex, collection string, q []float32, topK int) []Scored {
	c, ok := ix.Collection(collection)
	if !ok {
		return nil
	}
	out := make([]Scored, 0, len(c.Fields))
	for _, f := range c.Fields {
		out = append(out, Scored{Name: f.Name, Score: Cosine(q, f.Vector)})
	}
	return top(out, topK)
}

func top(s []Scored, k int) []Scored {
	sort.SliceStable(s, func(i, j int) bool { return s[i].Score > s[j].Score })
	if k > 0 && len(s) > k {
		s = s[:k]
	}
	return s
}
