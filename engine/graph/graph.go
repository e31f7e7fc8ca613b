package graph

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/medgraph/medgraph/pkg/fn"
	"github.com/medgraph/medgraph/pkg/mednlp"
	"github.com/medgraph/medgraph/pkg/repo"
	"golang.org/x/sync/errgroup"
)

// GraphStore runs the fixed queries the pipeline needs on top of a Querier.
type GraphStore struct {
	q      repo.Querier
	logger *slog.Logger
}

// New creates a new GraphStore.
func New(q repo.Querier, logger *slog.Logger) *GraphStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &GraphStore{q: q, logger: logger}
}

// DiseaseNames returns every Disease name.
func (g *GraphStore) DiseaseNames(ctx context.Context) fn.Result[[]string] {
	return g.names(ctx, "name", `MATCH (d:Disease) RETURN d.name AS name`, nil)
}

// SymptomNames returns every Symptom name.
func (g *GraphStore) SymptomNames(ctx context.Context) fn.Result[[]string] {
	return g.names(ctx, "name", `MATCH (s:Symptom) RETURN s.name AS name`, nil)
}

// ListDiseases returns up to limit Disease names, used as suggestions when a
// question matched nothing.
func (g *GraphStore) ListDiseases(ctx context.Context, limit int) fn.Result[[]string] {
	if limit <= 0 {
		limit = 10
	}
	return g.names(ctx, "Disease",
		`MATCH (d:Disease) RETURN d.name AS Disease LIMIT $limit`,
		map[string]any{"limit": limit})
}

func (g *GraphStore) names(ctx context.Context, key, cypher string, params map[string]any) fn.Result[[]string] {
	return fn.MapResult(g.q.RunRead(ctx, cypher, params), func(rows []repo.Record) []string {
		return fn.FilterMap(rows, func(r repo.Record) (string, bool) {
			name := r.Text(key)
			return name, name != ""
		})
	})
}

// LoadVocabulary fetches disease and symptom names concurrently. A failed
// fetch is logged and leaves that half of the vocabulary empty; the
// extractor still works, it just falls back to raw text more often.
func (g *GraphStore) LoadVocabulary(ctx context.Context) mednlp.Vocabulary {
	var diseases, symptoms []string

	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		names, err := g.DiseaseNames(egCtx).Unwrap()
		if err != nil {
			g.logger.Warn("vocabulary: disease names unavailable", "err", err)
			return nil
		}
		diseases = names
		return nil
	})
	eg.Go(func() error {
		names, err := g.SymptomNames(egCtx).Unwrap()
		if err != nil {
			g.logger.Warn("vocabulary: symptom names unavailable", "err", err)
			return nil
		}
		symptoms = names
		return nil
	})
	_ = eg.Wait()

	vocab := mednlp.NewVocabulary(diseases, symptoms)
	g.logger.Info("vocabulary loaded", "diseases", len(vocab.Diseases), "symptoms", len(vocab.Symptoms))
	return vocab
}

// NodeCounts returns node counts grouped by label.
func (g *GraphStore) NodeCounts(ctx context.Context) (map[string]int64, error) {
	return g.counts(ctx, `MATCH (n) RETURN labels(n)[0] AS type, count(*) AS count`)
}

// RelationshipCounts returns relationship counts grouped by type.
func (g *GraphStore) RelationshipCounts(ctx context.Context) (map[string]int64, error) {
	return g.counts(ctx, `MATCH ()-[r]->() RETURN type(r) AS type, count(*) AS count`)
}

// Stats returns node and relationship counts.
func (g *GraphStore) Stats(ctx context.Context) (Stats, error) {
	nodes, err := g.NodeCounts(ctx)
	if err != nil {
		return Stats{}, err
	}
	rels, err := g.RelationshipCounts(ctx)
	if err != nil {
		return Stats{}, err
	}
	return Stats{Nodes: nodes, Relationships: rels}, nil
}

func (g *GraphStore) counts(ctx context.Context, cypher string) (map[string]int64, error) {
	rows, err := g.q.RunRead(ctx, cypher, nil).Unwrap()
	if err != nil {
		return nil, fmt.Errorf("graph: counts: %w", err)
	}
	counts := make(map[string]int64, len(rows))
	for _, r := range rows {
		typ := r.Text("type")
		cnt, _ := r.Get("count")
		if c, ok := cnt.(int64); ok && typ != "" {
			counts[typ] = c
		}
	}
	return counts, nil
}
