package graph

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/medgraph/medgraph/pkg/fn"
	"github.com/medgraph/medgraph/pkg/repo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeQuerier answers queries by the first registered substring that occurs
// in the Cypher text.
type fakeQuerier struct {
	mu      sync.Mutex
	answers map[string]fn.Result[[]repo.Record]
	calls   []string
	params  []map[string]any
}

func (f *fakeQuerier) RunRead(_ context.Context, cypher string, params map[string]any) fn.Result[[]repo.Record] {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, cypher)
	f.params = append(f.params, params)
	for frag, res := range f.answers {
		if strings.Contains(cypher, frag) {
			return res
		}
	}
	return fn.Ok([]repo.Record{})
}

func names(key string, vals ...string) fn.Result[[]repo.Record] {
	rows := make([]repo.Record, len(vals))
	for i, v := range vals {
		rows[i] = repo.NewRecord(key, v)
	}
	return fn.Ok(rows)
}

func TestDiseaseAndSymptomNames(t *testing.T) {
	q := &fakeQuerier{answers: map[string]fn.Result[[]repo.Record]{
		"(d:Disease) RETURN d.name AS name": names("name", "Malaria", "", "Allergy"),
		"(s:Symptom)":                       names("name", "itching"),
	}}
	g := New(q, nil)

	diseases, err := g.DiseaseNames(context.Background()).Unwrap()
	require.NoError(t, err)
	assert.Equal(t, []string{"Malaria", "Allergy"}, diseases)

	symptoms, err := g.SymptomNames(context.Background()).Unwrap()
	require.NoError(t, err)
	assert.Equal(t, []string{"itching"}, symptoms)
}

func TestListDiseases_BindsLimit(t *testing.T) {
	q := &fakeQuerier{answers: map[string]fn.Result[[]repo.Record]{
		"LIMIT $limit": names("Disease", "Fungal infection", "Allergy"),
	}}
	g := New(q, nil)

	got, err := g.ListDiseases(context.Background(), 0).Unwrap()
	require.NoError(t, err)
	assert.Equal(t, []string{"Fungal infection", "Allergy"}, got)
	assert.Equal(t, 10, q.params[0]["limit"])
}

func TestListDiseases_StoreFailure(t *testing.T) {
	q := &fakeQuerier{answers: map[string]fn.Result[[]repo.Record]{
		"LIMIT": fn.Err[[]repo.Record](errors.New("down")),
	}}
	assert.True(t, New(q, nil).ListDiseases(context.Background(), 5).IsErr())
}

func TestLoadVocabulary(t *testing.T) {
	q := &fakeQuerier{answers: map[string]fn.Result[[]repo.Record]{
		"(d:Disease)": names("name", "Malaria", "Malaria", "Acne"),
		"(s:Symptom)": names("name", "chills"),
	}}
	vocab := New(q, nil).LoadVocabulary(context.Background())
	assert.Equal(t, []string{"Malaria", "Acne"}, vocab.Diseases)
	assert.Equal(t, []string{"chills"}, vocab.Symptoms)
	assert.Len(t, q.calls, 2)
}

func TestLoadVocabulary_PartialFailureLeavesHalfEmpty(t *testing.T) {
	q := &fakeQuerier{answers: map[string]fn.Result[[]repo.Record]{
		"(d:Disease)": fn.Err[[]repo.Record](errors.New("timeout")),
		"(s:Symptom)": names("name", "chills"),
	}}
	vocab := New(q, nil).LoadVocabulary(context.Background())
	assert.Empty(t, vocab.Diseases)
	assert.Equal(t, []string{"chills"}, vocab.Symptoms)
}

func TestLoadVocabulary_TotalFailureIsEmpty(t *testing.T) {
	q := &fakeQuerier{answers: map[string]fn.Result[[]repo.Record]{
		"MATCH": fn.Err[[]repo.Record](errors.New("down")),
	}}
	assert.True(t, New(q, nil).LoadVocabulary(context.Background()).Empty())
}

func TestStats(t *testing.T) {
	q := &fakeQuerier{answers: map[string]fn.Result[[]repo.Record]{
		"labels(n)": fn.Ok([]repo.Record{
			repo.NewRecord("type", "Disease", "count", int64(41)),
			repo.NewRecord("type", "Symptom", "count", int64(131)),
		}),
		"type(r)": fn.Ok([]repo.Record{
			repo.NewRecord("type", "HAS_SYMPTOM", "count", int64(300)),
		}),
	}}
	stats, err := New(q, nil).Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"Disease": 41, "Symptom": 131}, stats.Nodes)
	assert.Equal(t, map[string]int64{"HAS_SYMPTOM": 300}, stats.Relationships)
}

func TestStats_Error(t *testing.T) {
	q := &fakeQuerier{answers: map[string]fn.Result[[]repo.Record]{
		"labels(n)": fn.Err[[]repo.Record](errors.New("down")),
	}}
	_, err := New(q, nil).Stats(context.Background())
	assert.ErrorContains(t, err, "graph: counts")
}

func TestSchemaMentionsEveryLabel(t *testing.T) {
	for _, l := range Labels {
		assert.Contains(t, Schema, l)
	}
	assert.Contains(t, Schema, RelHasSymptom)
	assert.Contains(t, Schema, RelHasPrecaution)
}
