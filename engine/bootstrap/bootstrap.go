// Package bootstrap wires the query pipeline from configuration. It is
// shared by the API server and the CLI.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"

	"github.com/medgraph/medgraph/engine/answer"
	"github.com/medgraph/medgraph/engine/cypher"
	"github.com/medgraph/medgraph/engine/domain"
	"github.com/medgraph/medgraph/engine/graph"
	"github.com/medgraph/medgraph/engine/rag"
	"github.com/medgraph/medgraph/pkg/config"
	"github.com/medgraph/medgraph/pkg/fn"
	"github.com/medgraph/medgraph/pkg/llm"
	"github.com/medgraph/medgraph/pkg/mednlp"
	"github.com/medgraph/medgraph/pkg/metrics"
	"github.com/medgraph/medgraph/pkg/natsutil"
	"github.com/medgraph/medgraph/pkg/ollama"
	"github.com/medgraph/medgraph/pkg/repo"
	"github.com/medgraph/medgraph/pkg/resilience"
)

// App is a fully wired pipeline and the resources it owns.
type App struct {
	Exec      *repo.Executor
	Graph     *graph.GraphStore
	Extractor *mednlp.Extractor
	Model     *llm.Guard
	Service   *rag.Service
	Metrics   *metrics.Pipeline

	nc     *nats.Conn
	logger *slog.Logger
}

// Build connects to Neo4j (and NATS when configured), loads the
// vocabulary and assembles the pipeline. A Neo4j failure is returned
// wrapping domain.ErrNotReady; a NATS failure only disables events.
func Build(ctx context.Context, cfg *config.Config, m *metrics.Pipeline, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	exec, err := repo.Connect(ctx, cfg.Neo4jURI, cfg.Neo4jUser, cfg.Neo4jPassword, fn.DefaultRetry, logger)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: %w: %w", domain.ErrNotReady, err)
	}

	var nc *nats.Conn
	if cfg.NATSURL != "" {
		nc, err = natsutil.Connect(cfg.NATSURL, "medgraph", logger)
		if err != nil {
			logger.Warn("query events disabled", "err", err)
			nc = nil
		}
	}

	app := Assemble(ctx, exec, cfg, m, logger, eventsFor(nc))
	app.Exec = exec
	app.nc = nc
	return app, nil
}

func eventsFor(nc *nats.Conn) rag.EventPublisher {
	if nc == nil {
		return nil
	}
	return natsutil.NewPublisher[rag.QueryEvent](nc, rag.EventSubject)
}

// Assemble builds the pipeline on an existing querier. events may be nil.
func Assemble(ctx context.Context, q repo.Querier, cfg *config.Config, m *metrics.Pipeline, logger *slog.Logger, events rag.EventPublisher) *App {
	if logger == nil {
		logger = slog.Default()
	}
	store := graph.New(q, logger)
	vocab := store.LoadVocabulary(ctx)
	m.Vocabulary("disease", len(vocab.Diseases))
	m.Vocabulary("symptom", len(vocab.Symptoms))
	extractor := mednlp.NewExtractor(vocab)

	app := &App{
		Graph:     store,
		Extractor: extractor,
		Metrics:   m,
		logger:    logger,
	}

	var model llm.Chatter
	if chatter := NewChatter(cfg, logger); chatter != nil {
		app.Model = llm.NewGuard(chatter, guardOpts(cfg, m, logger))
		model = app.Model
	}

	app.Service = rag.New(rag.Deps{
		Store:    q,
		Diseases: store,
		Synth:    cypher.New(model, extractor, cypher.DefaultOptions(), m, logger),
		Composer: answer.New(model, m, logger),
		Events:   events,
		Metrics:  m,
	}, rag.DefaultOptions(), logger)
	return app
}

// modelCallsPerQuery is the number of model calls an answered question
// makes: one to generate Cypher and one to compose the answer.
const modelCallsPerQuery = 2

func guardOpts(cfg *config.Config, m *metrics.Pipeline, logger *slog.Logger) llm.GuardOpts {
	return llm.GuardOpts{
		Timeout: cfg.LLMTimeout,
		Rate:    cfg.LLMRate,
		Burst:   modelCallsPerQuery,
		Breaker: resilience.BreakerOpts{
			OnStateChange: func(s resilience.State) { m.BreakerState(int(s)) },
		},
		Logger: logger,
	}
}

// NewChatter returns the configured model client, or nil when the
// OpenRouter provider has no API key. Without a model every question uses
// the fallback query and answers become the apology text.
func NewChatter(cfg *config.Config, logger *slog.Logger) llm.Chatter {
	switch cfg.LLMProvider {
	case config.ProviderOllama:
		return ollama.NewChatClient(cfg.OllamaURL, cfg.LLMModel)
	default:
		if cfg.OpenRouterAPIKey == "" {
			logger.Warn("OPENROUTER_API_KEY not set; model calls disabled")
			return nil
		}
		return llm.NewOpenAI(cfg.OpenRouterURL, cfg.OpenRouterAPIKey, cfg.LLMModel)
	}
}

// Close releases NATS and the Neo4j driver.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	if a.nc != nil {
		if err := a.nc.Drain(); err != nil {
			errs = append(errs, fmt.Errorf("nats drain: %w", err))
		}
	}
	if a.Exec != nil {
		if err := a.Exec.Close(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
