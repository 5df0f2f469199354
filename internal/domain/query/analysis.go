package query

// Intent is what the question asks the data to do.
type Intent string

// Intents recognized by the rule engine.
const (
	IntentMinAnalysis  Intent = "min_analysis"
	IntentMaxAnalysis  Intent = "max_analysis"
	IntentAggregateSum Intent = "aggregate_sum"
	IntentAverage      Intent = "average"
	IntentCount        Intent = "count"
	IntentList         Intent = "list"
	IntentMax          Intent = "max"
	IntentMin          Intent = "min"
)

// AllIntents lists every intent in ladder order.
var AllIntents = []Intent{
	IntentMinAnalysis, IntentMaxAnalysis, IntentAggregateSum, IntentCount,
	IntentAverage, IntentList, IntentMax, IntentMin,
}

// IsValid reports whether i is a known intent.
func (i Intent) IsValid() bool {
	for _, known := range AllIntents {
		if i == known {
			return true
		}
	}
	return false
}

// Filters are the constraints extracted from question text.
type Filters struct {
	Year   int    `json:"year,omitempty"`
	Status string `json:"status,omitempty"`
}

// Analysis is what the rule engine infers from a question.
type Analysis struct {
	Collections []string `json:"collections"`
	Intent      Intent   `json:"intent"`
	Filters     Filters  `json:"filters"`
}

// Primary returns the first target collection.
func (a Analysis) Primary() string {
	if len(a.Collections) == 0 {
		return ""
	}
	return a.Collections[0]
}

// Compiled is a rule-engine pipeline ready for the dispatcher.
type Compiled struct {
	Collection string   `json:"collection"`
	Pipeline   Pipeline `json:"pipeline"`
	Analysis   Analysis `json:"analysis"`
}

// Command wraps the compiled pipeline as an aggregate command.
func (c Compiled) Command() Command {
	return Aggregate(c.Collection, c.Pipeline)
}
