package cypher

import (
	"strings"
	"unicode"

	"github.com/medgraph/medgraph/pkg/mednlp"
)

// KeywordParam is the parameter every fallback template filters on.
const KeywordParam = "keyword"

const (
	precautionsQuery = `MATCH (d:Disease)-[:HAS_PRECAUTION]->(p:Precaution)
WHERE toLower(d.name) CONTAINS $keyword
RETURN d.name AS Disease, collect(DISTINCT p.name) AS Precautions
LIMIT 5`

	symptomsQuery = `MATCH (s:Symptom)-[:HAS_SYMPTOM]->(d:Disease)
WHERE toLower(d.name) CONTAINS $keyword
RETURN d.name AS Disease, collect(DISTINCT s.name) AS Symptoms
LIMIT 5`

	combinedQuery = `MATCH (d:Disease)
WHERE toLower(d.name) CONTAINS $keyword
OPTIONAL MATCH (d)-[:HAS_PRECAUTION]->(p:Precaution)
OPTIONAL MATCH (s:Symptom)-[:HAS_SYMPTOM]->(d)
RETURN d.name AS Disease, collect(DISTINCT p.name) AS Precautions, collect(DISTINCT s.name) AS Symptoms
LIMIT 5`
)

// Fallback picks a template by intent and binds the first extracted
// keyword, normalised, as $keyword.
func (s *Synthesizer) Fallback(question string) Query {
	intent := s.nlp.DetectIntent(question)
	keyword := fallbackKeyword(question, s.nlp.ExtractKeywords(question)[0])

	return Query{
		Cypher:  template(intent),
		Params:  map[string]any{KeywordParam: keyword},
		Source:  SourceFallback,
		Intent:  intent,
		Keyword: keyword,
	}
}

func template(intent mednlp.Intent) string {
	switch intent {
	case mednlp.IntentPrecautions:
		return precautionsQuery
	case mednlp.IntentSymptoms:
		return symptomsQuery
	default:
		return combinedQuery
	}
}

// fallbackKeyword normalises raw. An empty keyword would match every name,
// so when normalising leaves nothing it uses the last word of question that
// has a letter or digit, and failing that raw itself.
func fallbackKeyword(question, raw string) string {
	if kw := mednlp.NormalizeKeyword(raw); kw != "" {
		return kw
	}
	words := strings.Fields(question)
	for i := len(words) - 1; i >= 0; i-- {
		if strings.IndexFunc(words[i], isWordRune) >= 0 {
			return mednlp.NormalizeKeyword(words[i])
		}
	}
	return strings.ToLower(raw)
}

func isWordRune(r rune) bool { return unicode.IsLetter(r) || unicode.IsDigit(r) }
