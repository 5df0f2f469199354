package compiler

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/kailas-cloud/docquery/internal/domain/metadata"
	"github.com/kailas-cloud/docquery/internal/domain/query"
)

// Collection targeting by vocabulary. Only the first rule whose words match
// is consulted, and it contributes only when its target is known.
var targetRules = []struct {
	words  []string
	target string
}{
	{[]string{"product", "products", "item", "items"}, "orders"},
	{[]string{"sales", "revenue", "total sales", "income"}, "orders"},
	{[]string{"customer", "customers", "client", "clients"}, "customers"},
}

var salesAdjacent = []string{"sales", "revenue", "total", "amount", "product", "sold", "least", "most"}

const defaultCollection = "orders"

// Intent ladder. First match wins; later rungs are unreachable once an
// earlier one fires.
var intentLadder = []struct {
	words  []string
	intent query.Intent
}{
	{[]string{"least", "worst", "lowest", "bottom"}, query.IntentMinAnalysis},
	{[]string{"most", "best", "highest", "top"}, query.IntentMaxAnalysis},
	{[]string{"total sales", "total revenue", "sales total"}, query.IntentAggregateSum},
	{[]string{"total", "sum", "sales", "revenue"}, query.IntentAggregateSum},
	{[]string{"count", "how many", "number of"}, query.IntentCount},
	{[]string{"average", "avg", "mean"}, query.IntentAverage},
	{[]string{"show", "list", "display", "get"}, query.IntentList},
	{[]string{"max", "maximum", "highest"}, query.IntentMax},
	{[]string{"min", "minimum", "lowest"}, query.IntentMin},
}

var statusWords = []string{"completed", "pending", "cancelled"}

var yearRe = regexp.MustCompile(`20\d{2}`)

// Analyze infers target collections, intent and filters from question text.
func Analyze(question string, snap *metadata.Snapshot) query.Analysis {
	lower := strings.ToLower(question)
	return query.Analysis{
		Collections: resolveCollections(lower, snap),
		Intent:      classifyIntent(lower),
		Filters:     extractFilters(question),
	}
}

func resolveCollections(lower string, snap *metadata.Snapshot) []string {
	var out []string
	seen := map[string]bool{}
	add := func(name string) {
		if !seen[name] {
			seen[name] = true
			out = append(out, name)
		}
	}

	for _, r := range targetRules {
		if containsAny(lower, r.words) {
			if snap.Has(r.target) {
				add(r.target)
			}
			break
		}
	}

	for _, name := range snap.Names() {
		if strings.Contains(lower, strings.ToLower(name)) {
			add(name)
		}
	}

	for _, col := range snap.Collections() {
		for _, f := range col.Fields {
			if strings.Contains(lower, strings.ToLower(f.Name)) {
				add(col.Name)
				break
			}
		}
	}

	if len(out) > 0 {
		return out
	}
	if containsAny(lower, salesAdjacent) {
		return []string{defaultCollection}
	}
	if names := snap.Names(); len(names) > 0 {
		return names[:1]
	}
	return []string{defaultCollection}
}

func classifyIntent(lower string) query.Intent {
	for _, rung := range intentLadder {
		if containsAny(lower, rung.words) {
			return rung.intent
		}
	}
	return query.IntentList
}

func extractFilters(question string) query.Filters {
	var f query.Filters
	if m := yearRe.FindString(question); m != "" {
		f.Year, _ = strconv.Atoi(m)
	}
	lower := strings.ToLower(question)
	for _, s := range statusWords {
		if strings.Contains(lower, s) {
			f.Status = s
			break
		}
	}
	return f
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}
