package compiler

import (
	"strings"

	"github.com/kailas-cloud/docquery/internal/domain/query"
)

var (
	customerWords = []string{"customer", "user", "client"}
	detailWords   = []string{"name", "email", "detail", "info"}
)

// CustomerJoin recognizes questions about orders together with customer
// details and returns a fixed orders->customers join. ok is false when the
// question does not fit the template.
func (c *Compiler) CustomerJoin(question string) (query.Compiled, bool) {
	lower := strings.ToLower(question)
	if !strings.Contains(lower, "order") || !containsAny(lower, customerWords) || !containsAny(lower, detailWords) {
		return query.Compiled{}, false
	}

	f := extractFilters(question)
	match := map[string]any{}
	if f.Status != "" {
		match["status"] = f.Status
	}

	p := query.Pipeline{
		{"$match": match},
		{"$lookup": map[string]any{
			"from":         "customers",
			"localField":   "customerId",
			"foreignField": "_id",
			"as":           "customer_info",
		}},
		{"$unwind": map[string]any{"path": "$customer_info", "preserveNullAndEmptyArrays": true}},
		{"$project": map[string]any{
			"_id":            0,
			"status":         1,
			"amount":         1,
			"quantity":       1,
			"customer_name":  "$customer_info.name",
			"customer_email": "$customer_info.email",
		}},
		{"$limit": c.policy.Limit},
	}

	return query.Compiled{
		Collection: "orders",
		Pipeline:   p,
		Analysis: query.Analysis{
			Collections: []string{"orders", "customers"},
			Intent:      query.IntentList,
			Filters:     f,
		},
	}, true
}
