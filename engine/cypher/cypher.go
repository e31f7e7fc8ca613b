// Package cypher turns a user question into a read-only Cypher query.
// It first asks the language model for a query and validates the reply
// against the graph schema; when that fails for any reason it falls back to
// one of three fixed templates chosen by intent, with the keyword bound as
// a parameter.
package cypher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/medgraph/medgraph/engine/domain"
	"github.com/medgraph/medgraph/engine/graph"
	"github.com/medgraph/medgraph/pkg/llm"
	"github.com/medgraph/medgraph/pkg/mednlp"
	"github.com/medgraph/medgraph/pkg/metrics"
)

// Source records which stage produced a query.
type Source string

const (
	SourceModel    Source = "model"
	SourceFallback Source = "fallback"
)

// Query is a synthesized Cypher statement and its parameters.
type Query struct {
	Cypher  string
	Params  map[string]any
	Source  Source
	Intent  mednlp.Intent
	Keyword string
}

// Options configures the Synthesizer.
type Options struct {
	Schema       string
	Rules        domain.SchemaRules
	SystemPrompt string
}

// DefaultOptions returns the knowledge-base schema and prompt.
func DefaultOptions() Options {
	return Options{
		Schema: graph.Schema,
		Rules: domain.SchemaRules{
			Labels:        graph.Labels,
			Relationships: []string{graph.RelHasSymptom, graph.RelHasPrecaution},
		},
		SystemPrompt: defaultSystemPrompt,
	}
}

const defaultSystemPrompt = `You are a Cypher expert. Always use toLower() and CONTAINS for flexible matching. Never use exact {name: '...'} unless 100% sure.
Only write read queries: MATCH, OPTIONAL MATCH, WHERE, RETURN, ORDER BY, LIMIT. Never create, update or delete data.`

const userPromptTmpl = `Schema:
%s

User query: %q

Generate a Cypher query that finds relevant diseases, symptoms or precautions using case-insensitive partial matching.
Example: use toLower(d.name) CONTAINS 'fungal' instead of an exact match.
Return ONLY the Cypher query.`

// Synthesizer produces a Query for every question.
type Synthesizer struct {
	model   llm.Chatter
	nlp     *mednlp.Extractor
	opts    Options
	metrics *metrics.Pipeline
	logger  *slog.Logger
}

// New creates a Synthesizer. model may be nil, in which case every question
// takes the fallback path.
func New(model llm.Chatter, nlp *mednlp.Extractor, opts Options, m *metrics.Pipeline, logger *slog.Logger) *Synthesizer {
	if logger == nil {
		logger = slog.Default()
	}
	if nlp == nil {
		nlp = mednlp.NewExtractor(mednlp.Vocabulary{})
	}
	return &Synthesizer{model: model, nlp: nlp, opts: opts, metrics: m, logger: logger}
}

// Synthesize never fails: a model error or rejected reply yields the
// deterministic fallback.
func (s *Synthesizer) Synthesize(ctx context.Context, question string) Query {
	q, err := s.generate(ctx, question)
	if err == nil {
		return q
	}
	fb := s.Fallback(question)
	s.logger.Info("cypher: using fallback",
		"reason", err,
		"intent", fb.Intent,
		"keyword", fb.Keyword,
		"symptoms", s.nlp.ExtractSymptoms(question),
	)
	return fb
}

// Messages builds the chat sent to the model for question.
func (s *Synthesizer) Messages(question string) []llm.Message {
	return []llm.Message{
		llm.System(s.opts.SystemPrompt),
		llm.User(fmt.Sprintf(userPromptTmpl, s.opts.Schema, question)),
	}
}

func (s *Synthesizer) generate(ctx context.Context, question string) (Query, error) {
	if s.model == nil {
		return Query{}, errors.New("no model configured")
	}

	start := time.Now()
	reply, err := s.model.Chat(ctx, s.Messages(question))
	s.metrics.ObserveStage("model_cypher", start)
	s.metrics.ModelCall("cypher", err == nil)
	if err != nil {
		return Query{}, fmt.Errorf("model: %w", err)
	}

	cypher := domain.CleanGeneratedCypher(reply)
	if err := domain.ValidateGeneratedCypher(cypher, s.opts.Rules); err != nil {
		s.metrics.Rejected(rejectReason(err))
		s.logger.Warn("cypher: generated query rejected", "err", err, "cypher", cypher)
		return Query{}, err
	}

	return Query{
		Cypher: cypher,
		Params: map[string]any{},
		Source: SourceModel,
		Intent: s.nlp.DetectIntent(question),
	}, nil
}

func rejectReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrWriteClause):
		return "write_clause"
	case errors.Is(err, domain.ErrUnknownSchema):
		return "unknown_schema"
	default:
		return "not_cypher"
	}
}
