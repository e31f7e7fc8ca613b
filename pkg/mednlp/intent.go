// Package mednlp classifies medical questions into a small set of intents
// and pulls disease and symptom names out of free text by matching against
// a vocabulary loaded from the knowledge graph. No external dependencies.
package mednlp

import "strings"

// Intent is what the user is asking about.
type Intent string

const (
	IntentSymptoms    Intent = "symptoms"
	IntentPrecautions Intent = "precautions"
	IntentDiseases    Intent = "diseases"
	IntentGeneral     Intent = "general"
)

// intentRule pairs an intent with its trigger phrases.
type intentRule struct {
	intent   Intent
	keywords []string
}

// intentRules is checked in order; the first rule with a matching phrase wins.
var intentRules = []intentRule{
	{IntentSymptoms, []string{"symptom", "symptoms", "signs", "indications"}},
	{IntentPrecautions, []string{"prevent", "precaution", "precautions", "avoid", "protection", "how to avoid"}},
	{IntentDiseases, []string{"disease", "diseases", "condition", "illness", "what causes"}},
}

// DetectIntent classifies text by substring presence of the trigger phrases,
// with priority symptoms > precautions > diseases > general.
func DetectIntent(text string) Intent {
	t := strings.ToLower(text)
	for _, rule := range intentRules {
		for _, kw := range rule.keywords {
			if strings.Contains(t, kw) {
				return rule.intent
			}
		}
	}
	return IntentGeneral
}

// NormalizeKeyword lowercases kw, drops surrounding punctuation and folds
// the plural "infections" so it still matches names such as
// "Fungal infection".
func NormalizeKeyword(kw string) string {
	kw = strings.ToLower(strings.Trim(kw, " \t\n?!.,;:\"'()"))
	return strings.ReplaceAll(kw, "infections", "infection")
}
