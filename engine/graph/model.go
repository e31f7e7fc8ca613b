// Package graph provides Neo4j knowledge graph operations for the medical
// knowledge base: diseases, their symptoms and their precautions.
package graph

// Node labels used by the knowledge base.
const (
	LabelDisease    = "Disease"
	LabelSymptom    = "Symptom"
	LabelPrecaution = "Precaution"
)

// Relationship types used by the knowledge base.
const (
	RelHasSymptom    = "HAS_SYMPTOM"
	RelHasPrecaution = "HAS_PRECAUTION"
)

// Labels lists every node label a query may legitimately reference.
var Labels = []string{LabelDisease, LabelSymptom, LabelPrecaution}

// Schema is the plain-text schema description handed to the language model.
const Schema = `Node labels: Disease, Symptom, Precaution
Relationships:
  (Symptom)-[:HAS_SYMPTOM]->(Disease)
  (Disease)-[:HAS_PRECAUTION]->(Precaution)
Properties: name (string) on every node`

// Stats summarises the size of the knowledge base.
type Stats struct {
	Nodes         map[string]int64 `json:"nodes"`
	Relationships map[string]int64 `json:"relationships"`
}
