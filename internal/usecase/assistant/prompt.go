package assistant

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	dommeta "github.com/kailas-cloud/docquery/internal/domain/metadata"
	"github.com/kailas-cloud/docquery/internal/logger"
	"github.com/kailas-cloud/docquery/internal/usecase/ranker"
)

// fallbackFieldCount is how many cached fields are listed when the live sample fails.
const fallbackFieldCount = 5

const systemPrompt = `You are a MongoDB query expert. Your ONLY job is to:
1. Generate MongoDB queries based on user questions
2. Use ONLY the collections and fields provided
3. Return ONLY valid MongoDB query syntax
4. Do NOT make up field names or collections
5. Do NOT attempt data modifications (no $set, $unset, deleteOne, deleteMany, drop, etc.)
6. Do NOT hallucinate - if you can't construct a valid query, say "UNABLE_TO_QUERY"
7. For simple key-value lookups use: db.collection.find({...})
8. For SORTING, LIMITING (top N), GROUPING: Use db.collection.aggregate([...])
9. For counting: Use db.collection.countDocuments({...})
10. For JOINING data (e.g. Orders + Customers), you MUST use this pattern:
    [
      {$match: ...},
      {$lookup: {from: "customers", localField: "customerId", foreignField: "_id", as: "customer_docs"}},
      {$unwind: "$customer_docs"},
      {$project: {
         _id: 0,
         order_status: "$status",
         amount: 1,
         customer_name: "$customer_docs.name",
         customer_email: "$customer_docs.email"
      }}
    ]
11. IF user asks for a field (e.g. 'customerName') that is NOT in the collection's schema, you MUST use $lookup -> $unwind -> $project to fetch it.

CRITICAL RULES:
- NEVER suggest DROP, DELETE, UPDATE, or MODIFY operations
- NEVER create new collections or fields
- If the user asks for "Top N", "Bottom N", or "Sort By", you MUST use aggregate with $sort and $limit
- If user asks for data modification, respond: "MODIFICATION_NOT_ALLOWED: Cannot modify database"
- If user asks something unrelated to database, respond: "OUT_OF_SCOPE: This question is not related to the database"

Return ONLY the MongoDB query code, nothing else.`

func userPrompt(schema, question string) string {
	var b strings.Builder
	b.WriteString("Available Database Schema:\n")
	b.WriteString(schema)
	fmt.Fprintf(&b, "\n\nUser Question: %q\n\n", question)
	b.WriteString("Generate the MongoDB query to answer this question. Use ONLY the collections and fields shown above.\n")
	b.WriteString("Return ONLY the query code, no explanation.")
	return b.String()
}

// schemaContext renders the selected collections with live field samples.
// Collections missing from the snapshot are skipped.
func schemaContext(ctx context.Context, catalog Catalog, snap *dommeta.Snapshot, selected []ranker.Scored) string {
	var b strings.Builder
	b.WriteString("## Available MongoDB Collections\n\n")
	b.WriteString("IMPORTANT: Use ONLY the field names shown below. Do NOT invent field names.\n\n")

	for _, s := range selected {
		meta, ok := snap.Get(s.Name)
		if !ok {
			continue
		}
		fmt.Fprintf(&b, "### Collection: `%s`\n", meta.Name)
		fmt.Fprintf(&b, "Document Count: %d\n", meta.DocumentCount)
		b.WriteString("\n**ACTUAL Fields (verified from sample document):**\n")

		live, err := catalog.SampleFields(ctx, meta.Name)
		if err != nil {
			logger.FromContext(ctx).Warn("Live sample failed, using cached fields",
				zap.String("collection", meta.Name), zap.Error(err))
		}
		if len(live) > 0 {
			for _, f := range byRelevance(live, s.Fields) {
				fmt.Fprintf(&b, "  - `%s`: %s (e.g., %s)\n", f.Name, f.Type, f.Sample)
			}
		} else {
			fields := byRelevance(meta.Fields, s.Fields)
			if len(fields) > fallbackFieldCount {
				fields = fields[:fallbackFieldCount]
			}
			for _, f := range fields {
				fmt.Fprintf(&b, "  - `%s`: %s\n", f.Name, f.Type)
			}
		}
		b.WriteString("\n")
	}
	return b.String()
}

// byRelevance moves the ranked fields to the front in rank order. The rest
// keep their sampled order.
func byRelevance(fields []dommeta.Field, ranked []ranker.Scored) []dommeta.Field {
	if len(ranked) == 0 {
		return fields
	}
	out := make([]dommeta.Field, 0, len(fields))
	used := make(map[string]bool, len(ranked))
	for _, r := range ranked {
		for _, f := range fields {
			if f.Name == r.Name && !used[f.Name] {
				out = append(out, f)
				used[f.Name] = true
				break
			}
		}
	}
	for _, f := range fields {
		if !used[f.Name] {
			out = append(out, f)
		}
	}
	return out
}
