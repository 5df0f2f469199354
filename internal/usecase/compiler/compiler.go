// Package compiler turns a question into an aggregation pipeline using
// keyword rules over the metadata snapshot. It performs no I/O.
package compiler

import (
	"strings"
	"time"

	"github.com/kailas-cloud/docquery/internal/domain/metadata"
	"github.com/kailas-cloud/docquery/internal/domain/query"
)

// DefaultLimit caps list and join pipelines.
const DefaultLimit = 10

// Amount-like field name candidates, in priority order.
var amountCandidates = []string{"amount", "total", "price", "cost", "value", "revenue", "sales"}

var productWords = []string{"product", "item"}

// Policy holds the business assumptions baked into the rules.
type Policy struct {
	// DefaultSalesStatus is matched on aggregate_sum when the question names
	// no status. Empty disables the implicit filter.
	DefaultSalesStatus string
	Limit              int
}

// DefaultPolicy matches completed orders for sales totals.
func DefaultPolicy() Policy {
	return Policy{DefaultSalesStatus: "completed", Limit: DefaultLimit}
}

// Compiler applies a Policy to questions.
type Compiler struct {
	policy Policy
}

// New creates a Compiler. A limit outside 1..DefaultLimit falls back to
// DefaultLimit.
func New(policy Policy) *Compiler {
	if policy.Limit <= 0 || policy.Limit > DefaultLimit {
		policy.Limit = DefaultLimit
	}
	return &Compiler{policy: policy}
}

// Analyze exposes the rule engine's reading of a question.
func (c *Compiler) Analyze(question string, snap *metadata.Snapshot) query.Analysis {
	return Analyze(question, snap)
}

// Compile builds the pipeline for question. The result is never empty.
func (c *Compiler) Compile(question string, snap *metadata.Snapshot) query.Compiled {
	a := Analyze(question, snap)
	collection := a.Primary()
	meta, _ := snap.Get(collection)
	lower := strings.ToLower(question)

	var p query.Pipeline
	if match := c.matchStage(a, meta); len(match) > 0 {
		p = append(p, query.Stage{"$match": match})
	}

	switch a.Intent {
	case query.IntentCount:
		p = append(p, countStage())
	case query.IntentAggregateSum:
		p = append(p, c.groupOrCount(meta, "total", "$sum"))
	case query.IntentAverage:
		p = append(p, c.groupOrCount(meta, "average", "$avg"))
	case query.IntentMinAnalysis, query.IntentMaxAnalysis:
		if containsAny(lower, productWords) {
			order := -1
			if a.Intent == query.IntentMinAnalysis {
				order = 1
			}
			p = append(p, c.productSales(order)...)
		} else if a.Intent == query.IntentMinAnalysis {
			p = append(p, c.groupOrCount(meta, "min", "$min"))
		} else {
			p = append(p, c.groupOrCount(meta, "max", "$max"))
		}
	default:
		// list, max and min
		p = append(p, c.listStages(meta)...)
	}

	if len(p) == 0 {
		p = query.Pipeline{{"$limit": c.policy.Limit}}
	}
	return query.Compiled{Collection: collection, Pipeline: p, Analysis: a}
}

func (c *Compiler) matchStage(a query.Analysis, meta metadata.CollectionMetadata) map[string]any {
	match := map[string]any{}

	if a.Filters.Year != 0 {
		if dates := meta.DateFields(); len(dates) > 0 {
			match[dates[0].Name] = map[string]any{
				"$gte": time.Date(a.Filters.Year, time.January, 1, 0, 0, 0, 0, time.UTC),
				"$lt":  time.Date(a.Filters.Year+1, time.January, 1, 0, 0, 0, 0, time.UTC),
			}
		}
	}

	if meta.HasField("status") {
		switch {
		case a.Filters.Status != "":
			match["status"] = a.Filters.Status
		case a.Intent == query.IntentAggregateSum && c.policy.DefaultSalesStatus != "":
			match["status"] = c.policy.DefaultSalesStatus
		}
	}
	return match
}

// groupOrCount groups everything into one accumulator over the first
// amount-like field, or counts when the collection has none.
func (c *Compiler) groupOrCount(meta metadata.CollectionMetadata, key, op string) query.Stage {
	f, ok := meta.FirstFieldContaining(amountCandidates...)
	if !ok {
		return countStage()
	}
	return query.Stage{"$group": map[string]any{
		"_id": nil,
		key:   map[string]any{op: "$" + f.Name},
	}}
}

func (c *Compiler) productSales(order int) query.Pipeline {
	return query.Pipeline{
		{"$group": map[string]any{
			"_id":          "$productId",
			"totalSales":   map[string]any{"$sum": "$amount"},
			"quantitySold": map[string]any{"$sum": "$quantity"},
		}},
		{"$lookup": map[string]any{
			"from":         "products",
			"localField":   "_id",
			"foreignField": "_id",
			"as":           "product",
		}},
		{"$unwind": "$product"},
		{"$project": map[string]any{
			"productName":  "$product.name",
			"totalSales":   1,
			"quantitySold": 1,
		}},
		{"$sort": map[string]any{"totalSales": order}},
		{"$limit": c.policy.Limit},
	}
}

func (c *Compiler) listStages(meta metadata.CollectionMetadata) query.Pipeline {
	sortField := "_id"
	if dates := meta.DateFields(); len(dates) > 0 {
		sortField = dates[0].Name
	}
	return query.Pipeline{
		{"$sort": map[string]any{sortField: -1}},
		{"$limit": c.policy.Limit},
	}
}

func countStage() query.Stage {
	return query.Stage{"$count": "total"}
}
