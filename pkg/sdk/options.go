package docquery

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type clientConfig struct {
	uri      string
	database string

	embedder    Embedder
	embedModel  string
	instruction string
	indexPath   string
	generator   Generator

	mode        string
	noTemplates bool
	temperature float32
	strict      bool
	salesStatus *string
	limit       int

	logger     *slog.Logger
	metricsReg prometheus.Registerer
}

// WithMongo sets the MongoDB connection string and database name.
func WithMongo(uri, database string) Option {
	return optionFunc(func(c *clientConfig) {
		c.uri = uri
		c.database = database
	})
}

// WithEmbedder sets the text embedding provider. model tags the embedding
// index so that an index built by another model is never reused.
func WithEmbedder(e Embedder, model string) Option {
	return optionFunc(func(c *clientConfig) {
		c.embedder = e
		c.embedModel = model
	})
}

// WithQueryInstruction prepends instruction to questions before they are
// embedded, for models trained with asymmetric query prompts.
func WithQueryInstruction(instruction string) Option {
	return optionFunc(func(c *clientConfig) {
		c.instruction = instruction
	})
}

// WithIndexFile persists the embedding index at path between runs.
func WithIndexFile(path string) Option {
	return optionFunc(func(c *clientConfig) {
		c.indexPath = path
	})
}

// WithGenerator sets the language model. Ignored without an Embedder.
func WithGenerator(g Generator) Option {
	return optionFunc(func(c *clientConfig) {
		c.generator = g
	})
}

// WithMode selects "auto" (default), "model" or "rules".
func WithMode(mode string) Option {
	return optionFunc(func(c *clientConfig) {
		c.mode = mode
	})
}

// WithoutTemplates disables the canned join templates.
func WithoutTemplates() Option {
	return optionFunc(func(c *clientConfig) {
		c.noTemplates = true
	})
}

// WithTemperature sets the sampling temperature sent to the Generator.
func WithTemperature(t float32) Option {
	return optionFunc(func(c *clientConfig) {
		c.temperature = t
	})
}

// WithStrictModelErrors returns model path failures instead of falling back
// to the rule compiler.
func WithStrictModelErrors() Option {
	return optionFunc(func(c *clientConfig) {
		c.strict = true
	})
}

// WithDefaultSalesStatus sets the status matched by sales totals when the
// question names none. Default: "completed". Empty disables the filter.
func WithDefaultSalesStatus(status string) Option {
	return optionFunc(func(c *clientConfig) {
		c.salesStatus = &status
	})
}

// WithLimit caps the documents returned per question. Default: 10.
func WithLimit(n int) Option {
	return optionFunc(func(c *clientConfig) {
		c.limit = n
	})
}

// WithLogger enables structured logging for SDK operations.
// Pass nil to disable (default). Uses standard library slog.
func WithLogger(l *slog.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}

// WithPrometheus registers SDK metrics (operation counts and durations)
// on the given registerer. Pass nil to disable (default).
func WithPrometheus(reg prometheus.Registerer) Option {
	return optionFunc(func(c *clientConfig) {
		c.metricsReg = reg
	})
}
