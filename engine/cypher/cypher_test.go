package cypher

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medgraph/medgraph/pkg/llm"
	"github.com/medgraph/medgraph/pkg/mednlp"
	"github.com/medgraph/medgraph/pkg/metrics"
)

type fakeModel struct {
	reply string
	err   error
	calls int
	last  []llm.Message
}

func (f *fakeModel) Chat(_ context.Context, msgs []llm.Message) (string, error) {
	f.calls++
	f.last = msgs
	return f.reply, f.err
}

func newTestSynth(model llm.Chatter) *Synthesizer {
	vocab := mednlp.NewVocabulary(
		[]string{"Fungal infection", "Allergy", "Malaria", "Common Cold"},
		[]string{"itching", "skin rash", "high fever"},
	)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(model, mednlp.NewExtractor(vocab), DefaultOptions(), metrics.New(), logger)
}

func TestSynthesize_ModelQueryAccepted(t *testing.T) {
	model := &fakeModel{reply: "```cypher\nMATCH (s:Symptom)-[:HAS_SYMPTOM]->(d:Disease) WHERE toLower(d.name) CONTAINS 'malaria' RETURN d.name, collect(s.name)\n```"}
	s := newTestSynth(model)

	q := s.Synthesize(context.Background(), "What are the symptoms of malaria?")
	assert.Equal(t, SourceModel, q.Source)
	assert.True(t, strings.HasPrefix(q.Cypher, "MATCH (s:Symptom)"))
	assert.NotContains(t, q.Cypher, "```")
	assert.Empty(t, q.Params)
	assert.Equal(t, mednlp.IntentSymptoms, q.Intent)
	assert.Equal(t, 1, model.calls)
}

func TestSynthesize_ModelErrorFallsBack(t *testing.T) {
	model := &fakeModel{err: errors.New("timeout")}
	s := newTestSynth(model)

	q := s.Synthesize(context.Background(), "What are the symptoms of fungal infections")
	assert.Equal(t, SourceFallback, q.Source)
	assert.Equal(t, symptomsQuery, q.Cypher)
	assert.Equal(t, map[string]any{"keyword": "fungal infection"}, q.Params)
	assert.Equal(t, 1, model.calls)
}

func TestSynthesize_RejectedRepliesFallBack(t *testing.T) {
	replies := []string{
		"",
		"Sorry, I can't help with that.",
		"MATCH (d:Disease) DETACH DELETE d",
		"MATCH (p:Patient) RETURN p.name",
		"CREATE (d:Disease {name: 'x'})",
	}
	for _, reply := range replies {
		t.Run(reply, func(t *testing.T) {
			s := newTestSynth(&fakeModel{reply: reply})
			q := s.Synthesize(context.Background(), "how to prevent malaria")
			assert.Equal(t, SourceFallback, q.Source)
			assert.Equal(t, precautionsQuery, q.Cypher)
			assert.Equal(t, "malaria", q.Keyword)
		})
	}
}

func TestSynthesize_NoModel(t *testing.T) {
	s := newTestSynth(nil)
	q := s.Synthesize(context.Background(), "tell me about allergy")
	assert.Equal(t, SourceFallback, q.Source)
	assert.Equal(t, combinedQuery, q.Cypher)
	assert.Equal(t, "allergy", q.Keyword)
}

func TestSynthesize_PunctuationTokenNeverBindsEmptyKeyword(t *testing.T) {
	s := newTestSynth(nil)
	for _, question := range []string{"what is gout ?", "???", "symptoms of flu ."} {
		t.Run(question, func(t *testing.T) {
			q := s.Synthesize(context.Background(), question)
			assert.Equal(t, SourceFallback, q.Source)
			assert.NotEmpty(t, q.Keyword)
			assert.Equal(t, q.Keyword, q.Params[KeywordParam])
		})
	}
}

func TestFallbackKeyword(t *testing.T) {
	assert.Equal(t, "malaria", fallbackKeyword("about malaria", "Malaria"))
	assert.Equal(t, "gout", fallbackKeyword("what is gout ?", "?"))
	assert.Equal(t, "infection", fallbackKeyword("any infections -- ?", "?"))
	assert.Equal(t, "?!", fallbackKeyword("?!", "?!"))
}

func TestMessages(t *testing.T) {
	model := &fakeModel{err: errors.New("down")}
	s := newTestSynth(model)
	s.Synthesize(context.Background(), "signs of common cold")

	require.Len(t, model.last, 2)
	assert.Equal(t, llm.RoleSystem, model.last[0].Role)
	assert.Contains(t, model.last[0].Content, "toLower()")
	assert.Equal(t, llm.RoleUser, model.last[1].Role)
	assert.Contains(t, model.last[1].Content, "HAS_PRECAUTION")
	assert.Contains(t, model.last[1].Content, `"signs of common cold"`)
}

func TestFallback_TemplateByIntent(t *testing.T) {
	s := newTestSynth(nil)
	tests := []struct {
		question string
		intent   mednlp.Intent
		cypher   string
		keyword  string
	}{
		{"symptoms of malaria", mednlp.IntentSymptoms, symptomsQuery, "malaria"},
		{"how to avoid allergy", mednlp.IntentPrecautions, precautionsQuery, "allergy"},
		{"what disease is common cold", mednlp.IntentDiseases, combinedQuery, "common cold"},
		{"dengue", mednlp.IntentGeneral, combinedQuery, "dengue"},
		{"what is typhoid?", mednlp.IntentGeneral, combinedQuery, "typhoid"},
		{"what is gout ?", mednlp.IntentGeneral, combinedQuery, "gout"},
		{"(dengue) !!", mednlp.IntentGeneral, combinedQuery, "dengue"},
		{"???", mednlp.IntentGeneral, combinedQuery, "???"},
		// symptom outranks disease
		{"which disease has these symptoms: jaundice", mednlp.IntentSymptoms, symptomsQuery, "jaundice"},
	}
	for _, tt := range tests {
		t.Run(tt.question, func(t *testing.T) {
			q := s.Fallback(tt.question)
			assert.Equal(t, tt.intent, q.Intent)
			assert.Equal(t, tt.cypher, q.Cypher)
			assert.Equal(t, tt.keyword, q.Keyword)
			assert.Equal(t, tt.keyword, q.Params[KeywordParam])
		})
	}
}

func TestFallback_KeywordIsBoundNotInterpolated(t *testing.T) {
	s := newTestSynth(nil)
	evil := "x' OR 1=1 WITH 1 AS a MATCH (n) DETACH DELETE n //"
	q := s.Fallback(evil)

	assert.NotContains(t, q.Cypher, "DETACH DELETE")
	assert.NotContains(t, q.Cypher, q.Keyword)
	assert.Contains(t, q.Cypher, "CONTAINS $keyword")
}

func TestFallback_AlwaysFiltersAndLimits(t *testing.T) {
	s := newTestSynth(nil)
	for _, in := range []string{"a", "symptoms", "prevent it", "illness", "Fungal infection", "?"} {
		q := s.Fallback(in)
		assert.Contains(t, strings.ToUpper(q.Cypher), "CONTAINS", in)
		assert.Contains(t, q.Cypher, "LIMIT 5", in)
		assert.Contains(t, q.Params, KeywordParam, in)
	}
}

func TestNew_NilExtractor(t *testing.T) {
	s := New(nil, nil, DefaultOptions(), nil, nil)
	q := s.Synthesize(context.Background(), "what is malaria")
	assert.Equal(t, "malaria", q.Keyword)
}

func TestRejectReason(t *testing.T) {
	s := newTestSynth(&fakeModel{reply: "MATCH (d:Disease) SET d.x = 1"})
	_, err := s.generate(context.Background(), "q")
	require.Error(t, err)
	assert.Equal(t, "write_clause", rejectReason(err))

	s = newTestSynth(&fakeModel{reply: "MATCH (x:Foo) RETURN x"})
	_, err = s.generate(context.Background(), "q")
	assert.Equal(t, "unknown_schema", rejectReason(err))

	s = newTestSynth(&fakeModel{reply: "nope"})
	_, err = s.generate(context.Background(), "q")
	assert.Equal(t, "not_cypher", rejectReason(err))
}
