package mednlp

import (
	"strings"

	"github.com/medgraph/medgraph/pkg/fn"
)

// Vocabulary holds the known disease and symptom names. It is built once at
// startup and never mutated, so it can be shared without locking.
type Vocabulary struct {
	Diseases []string
	Symptoms []string
}

// NewVocabulary drops blank names and duplicates, keeping first occurrences.
func NewVocabulary(diseases, symptoms []string) Vocabulary {
	return Vocabulary{
		Diseases: cleanNames(diseases),
		Symptoms: cleanNames(symptoms),
	}
}

func cleanNames(names []string) []string {
	trimmed := fn.FilterMap(names, func(n string) (string, bool) {
		n = strings.TrimSpace(n)
		return n, n != ""
	})
	return fn.UniqueBy(trimmed, func(n string) string { return n })
}

// Empty reports whether nothing was loaded.
func (v Vocabulary) Empty() bool {
	return len(v.Diseases) == 0 && len(v.Symptoms) == 0
}

// entry keeps the stored name next to its lowercase form.
type entry struct {
	name, lower string
}

// Extractor matches free text against a Vocabulary.
type Extractor struct {
	diseases []entry
	symptoms []entry
}

// NewExtractor builds an extractor over vocab. An empty vocabulary is valid:
// every question then falls back to its last word.
func NewExtractor(vocab Vocabulary) *Extractor {
	toEntries := func(names []string) []entry {
		return fn.Map(names, func(n string) entry { return entry{name: n, lower: strings.ToLower(n)} })
	}
	return &Extractor{
		diseases: toEntries(vocab.Diseases),
		symptoms: toEntries(vocab.Symptoms),
	}
}

// DetectIntent classifies text; see the package-level DetectIntent.
func (e *Extractor) DetectIntent(text string) Intent {
	return DetectIntent(text)
}

// ExtractKeywords returns the disease names that contain the text or are
// contained in it, compared case-insensitively. When nothing matches it
// returns the last whitespace-separated word, so the result is never empty.
func (e *Extractor) ExtractKeywords(text string) []string {
	t := strings.ToLower(strings.TrimSpace(text))
	if t == "" {
		return []string{""}
	}

	matched := fn.FilterMap(e.diseases, func(d entry) (string, bool) {
		return d.name, strings.Contains(t, d.lower) || strings.Contains(d.lower, t)
	})
	if len(matched) > 0 {
		return matched
	}

	words := strings.Fields(text)
	return []string{words[len(words)-1]}
}

// ExtractSymptoms returns the symptom names mentioned in text.
func (e *Extractor) ExtractSymptoms(text string) []string {
	t := strings.ToLower(text)
	return fn.FilterMap(e.symptoms, func(s entry) (string, bool) {
		return s.name, strings.Contains(t, s.lower)
	})
}

// DiseaseCount reports how many disease names are cached.
func (e *Extractor) DiseaseCount() int { return len(e.diseases) }

// SymptomCount reports how many symptom names are cached.
func (e *Extractor) SymptomCount() int { return len(e.symptoms) }
