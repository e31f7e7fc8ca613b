// Package rag orchestrates the question-answering pipeline: validate the
// question, synthesize a Cypher query, run it against the knowledge graph
// and have the language model summarise the rows. Every request ends in
// exactly one Response; failures become warnings, never errors.
package rag

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/medgraph/medgraph/engine/cypher"
	"github.com/medgraph/medgraph/engine/domain"
	"github.com/medgraph/medgraph/pkg/fn"
	"github.com/medgraph/medgraph/pkg/metrics"
	"github.com/medgraph/medgraph/pkg/repo"
)

const tracerName = "github.com/medgraph/medgraph/engine/rag"

// Outcome classifies how a request ended.
type Outcome string

const (
	OutcomeAnswered     Outcome = "answered"
	OutcomeEmptyInput   Outcome = "empty_input"
	OutcomeStoreFailure Outcome = "store_failure"
	OutcomeNoData       Outcome = "no_data"
	OutcomeNotReady     Outcome = "not_ready"
)

// Warning texts.
const (
	WarnEmptyQuery   = "Empty query"
	WarnNotReady     = "System not ready"
	WarnStoreFailure = "Failed to query the database, try again."
)

// Response is the pipeline result. Exactly one of Response or Warning is set.
type Response struct {
	Response string        `json:"response,omitempty"`
	Data     []repo.Record `json:"data,omitempty"`
	Warning  string        `json:"warning,omitempty"`
	Outcome  Outcome       `json:"-"`
}

// QuerySynthesizer produces the query to run for a question.
type QuerySynthesizer interface {
	Synthesize(ctx context.Context, question string) cypher.Query
}

// AnswerComposer turns rows into a reply.
type AnswerComposer interface {
	Compose(ctx context.Context, records []repo.Record, question string) string
}

// DiseaseLister supplies suggestions when a query finds nothing.
type DiseaseLister interface {
	ListDiseases(ctx context.Context, limit int) fn.Result[[]string]
}

// EventPublisher receives one QueryEvent per processed request.
type EventPublisher interface {
	Publish(ctx context.Context, ev QueryEvent) error
}

// Deps are the collaborators of a Service. Events and Metrics are optional.
type Deps struct {
	Store    repo.Querier
	Diseases DiseaseLister
	Synth    QuerySynthesizer
	Composer AnswerComposer
	Events   EventPublisher
	Metrics  *metrics.Pipeline
}

// Options configures the pipeline behaviour.
type Options struct {
	// SuggestionLimit caps the disease names offered when nothing matched.
	SuggestionLimit int
}

// DefaultOptions returns the standard settings.
func DefaultOptions() Options {
	return Options{SuggestionLimit: 10}
}

// Service is the pipeline. A nil *Service answers every request with the
// not-ready warning.
type Service struct {
	deps   Deps
	opts   Options
	logger *slog.Logger
}

// New creates a Service.
func New(deps Deps, opts Options, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.SuggestionLimit <= 0 {
		opts.SuggestionLimit = DefaultOptions().SuggestionLimit
	}
	return &Service{deps: deps, opts: opts, logger: logger}
}

// runInfo collects what happened during one request for logging and events.
type runInfo struct {
	query cypher.Query
	rows  int
}

// Process runs the pipeline for one question.
func (s *Service) Process(ctx context.Context, question string) Response {
	if s == nil {
		return Response{Warning: WarnNotReady, Outcome: OutcomeNotReady}
	}

	start := time.Now()
	ctx, span := otel.Tracer(tracerName).Start(ctx, "rag.Process")
	defer span.End()

	var tr runInfo
	resp := s.process(ctx, question, &tr)
	elapsed := time.Since(start)

	span.SetAttributes(
		attribute.String("rag.outcome", string(resp.Outcome)),
		attribute.String("rag.source", string(tr.query.Source)),
		attribute.Int("rag.rows", tr.rows),
	)
	if resp.Outcome == OutcomeStoreFailure {
		span.SetStatus(codes.Error, resp.Warning)
	}
	s.deps.Metrics.Outcome(string(resp.Outcome))
	s.deps.Metrics.ObserveStage("total", start)

	s.logger.Info("rag query done",
		"outcome", resp.Outcome,
		"source", tr.query.Source,
		"intent", tr.query.Intent,
		"rows", tr.rows,
		"elapsed", elapsed,
	)
	s.publish(ctx, question, resp, tr, start, elapsed)
	return resp
}

func (s *Service) process(ctx context.Context, question string, tr *runInfo) Response {
	if err := domain.ValidateQuestion(question); err != nil {
		s.logger.Warn("rag: rejected question", "err", err)
		return Response{Warning: WarnEmptyQuery, Outcome: OutcomeEmptyInput}
	}

	tr.query = s.synthesize(ctx, question)
	s.logger.Info("rag: cypher", "cypher", tr.query.Cypher, "source", tr.query.Source, "keyword", tr.query.Keyword)

	result := s.execute(ctx, tr.query)
	if result.IsErr() {
		return Response{Warning: WarnStoreFailure, Outcome: OutcomeStoreFailure}
	}
	rows := result.UnwrapOr(nil)
	tr.rows = len(rows)
	s.deps.Metrics.Rows(len(rows))

	if len(rows) == 0 {
		return Response{Warning: s.noDataWarning(ctx, question), Outcome: OutcomeNoData}
	}

	return Response{
		Response: s.compose(ctx, rows, question),
		Data:     rows,
		Outcome:  OutcomeAnswered,
	}
}

func (s *Service) synthesize(ctx context.Context, question string) cypher.Query {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "rag.synthesize")
	defer span.End()
	defer s.deps.Metrics.ObserveStage("synthesize", time.Now())

	q := s.deps.Synth.Synthesize(ctx, question)
	s.deps.Metrics.Source(string(q.Source))
	span.SetAttributes(attribute.String("cypher.source", string(q.Source)), attribute.String("cypher.intent", string(q.Intent)))
	return q
}

func (s *Service) execute(ctx context.Context, q cypher.Query) fn.Result[[]repo.Record] {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "rag.execute")
	defer span.End()
	defer s.deps.Metrics.ObserveStage("execute", time.Now())

	result := s.deps.Store.RunRead(ctx, q.Cypher, q.Params)
	if _, err := result.Unwrap(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return result
}

func (s *Service) noDataWarning(ctx context.Context, question string) string {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "rag.suggest")
	defer span.End()

	names := s.deps.Diseases.ListDiseases(ctx, s.opts.SuggestionLimit).UnwrapOr(nil)
	if len(names) == 0 {
		return fmt.Sprintf("No info found for '%s'. Try rephrasing your question.", question)
	}
	return fmt.Sprintf("No info found for '%s'. Try: %s", question, strings.Join(names, ", "))
}

func (s *Service) compose(ctx context.Context, rows []repo.Record, question string) string {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "rag.compose")
	defer span.End()
	defer s.deps.Metrics.ObserveStage("compose", time.Now())

	return s.deps.Composer.Compose(ctx, rows, question)
}

// EventSubject is the NATS subject QueryEvents are published on.
const EventSubject = "medgraph.query.processed"

// QueryEvent summarises one processed request.
type QueryEvent struct {
	ID         string    `json:"id"`
	Question   string    `json:"question"`
	Outcome    Outcome   `json:"outcome"`
	Source     string    `json:"source,omitempty"`
	Intent     string    `json:"intent,omitempty"`
	Cypher     string    `json:"cypher,omitempty"`
	Rows       int       `json:"rows"`
	Warning    string    `json:"warning,omitempty"`
	DurationMS int64     `json:"duration_ms"`
	At         time.Time `json:"at"`
}

func (s *Service) publish(ctx context.Context, question string, resp Response, tr runInfo, start time.Time, elapsed time.Duration) {
	if s.deps.Events == nil {
		return
	}
	ev := QueryEvent{
		ID:         uuid.NewString(),
		Question:   question,
		Outcome:    resp.Outcome,
		Source:     string(tr.query.Source),
		Intent:     string(tr.query.Intent),
		Cypher:     tr.query.Cypher,
		Rows:       tr.rows,
		Warning:    resp.Warning,
		DurationMS: elapsed.Milliseconds(),
		At:         start.UTC(),
	}
	if err := s.deps.Events.Publish(ctx, ev); err != nil {
		s.logger.Warn("rag: publish event failed", "err", err, "subject", EventSubject)
	}
}
