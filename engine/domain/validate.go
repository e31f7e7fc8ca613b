package domain

import (
	"regexp"
	"slices"
	"strings"
)

// SchemaRules lists the labels and relationship types a generated query may
// use.
type SchemaRules struct {
	Labels        []string
	Relationships []string
}

// Write and admin clauses that must never reach the store from the model.
var writePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(CREATE|MERGE|DELETE|DETACH|SET|REMOVE|DROP|FOREACH)\b`),
	regexp.MustCompile(`(?i)\bLOAD\s+CSV\b`),
	regexp.MustCompile(`(?i)\bCALL\s+(dbms|apoc|db)\.`),
}

var (
	matchRe    = regexp.MustCompile(`(?i)\bMATCH\b`)
	nodeLabel  = regexp.MustCompile(`\(\s*\w*\s*:\s*` + "`?" + `(\w+)`)
	relType    = regexp.MustCompile(`\[\s*\w*\s*:\s*` + "`?" + `(\w+)`)
	stringLit  = regexp.MustCompile(`'(?:[^'\\]|\\.)*'|"(?:[^"\\]|\\.)*"`)
	fenceLangs = []string{"cypher", "sql", "neo4j"}
)

// ValidateQuestion rejects blank user input.
func ValidateQuestion(text string) error {
	if strings.TrimSpace(text) == "" {
		return NewValidationError("query", text, ErrEmptyQuery)
	}
	return nil
}

// CleanGeneratedCypher extracts the query from a model reply: the body of
// the first fenced block if there is one, without a language tag, trimmed
// of backticks and whitespace.
func CleanGeneratedCypher(reply string) string {
	s := reply
	if start := strings.Index(s, "```"); start != -1 {
		rest := s[start+3:]
		if end := strings.Index(rest, "```"); end != -1 {
			s = rest[:end]
			for _, lang := range fenceLangs {
				if len(s) >= len(lang) && strings.EqualFold(s[:len(lang)], lang) {
					s = s[len(lang):]
					break
				}
			}
		}
	}
	return strings.Trim(s, "` \t\r\n")
}

// ValidateGeneratedCypher accepts a read-only query that contains MATCH and
// only mentions labels and relationship types from rules. String literals
// are ignored when looking for write clauses.
func ValidateGeneratedCypher(cypher string, rules SchemaRules) error {
	if strings.TrimSpace(cypher) == "" || !matchRe.MatchString(cypher) {
		return NewValidationError("cypher", cypher, ErrNotCypher)
	}

	code := stringLit.ReplaceAllString(cypher, "''")
	for _, pat := range writePatterns {
		if m := pat.FindString(code); m != "" {
			return NewValidationError("cypher", m, ErrWriteClause)
		}
	}

	labels := nodeLabel.FindAllStringSubmatch(code, -1)
	if len(labels) == 0 {
		return NewValidationError("cypher", cypher, ErrUnknownSchema)
	}
	for _, m := range labels {
		if !slices.Contains(rules.Labels, m[1]) {
			return NewValidationError("label", m[1], ErrUnknownSchema)
		}
	}
	for _, m := range relType.FindAllStringSubmatch(code, -1) {
		if !slices.Contains(rules.Relationships, m[1]) {
			return NewValidationError("relationship", m[1], ErrUnknownSchema)
		}
	}
	return nil
}
