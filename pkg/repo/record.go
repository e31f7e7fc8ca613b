package repo

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j/dbtype"
)

// Record is one result row. Keys keep the column order of the RETURN clause.
type Record struct {
	Keys   []string
	Values []any
}

// NewRecord builds a record from alternating key/value pairs.
func NewRecord(kv ...any) Record {
	var r Record
	for i := 0; i+1 < len(kv); i += 2 {
		k, _ := kv[i].(string)
		r.Keys = append(r.Keys, k)
		r.Values = append(r.Values, kv[i+1])
	}
	return r
}

// Get returns the value stored under key.
func (r Record) Get(key string) (any, bool) {
	for i, k := range r.Keys {
		if k == key {
			return r.Values[i], true
		}
	}
	return nil, false
}

// Text returns the value under key when it is a string.
func (r Record) Text(key string) string {
	v, _ := r.Get(key)
	s, _ := v.(string)
	return s
}

// Line renders the record on a single line, e.g.
// "Disease: Allergy; Symptoms: sneezing, itching".
func (r Record) Line() string {
	parts := make([]string, 0, len(r.Keys))
	for i, k := range r.Keys {
		parts = append(parts, k+": "+formatValue(r.Values[i]))
	}
	return strings.Join(parts, "; ")
}

func formatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return "none"
	case string:
		return x
	case []string:
		if len(x) == 0 {
			return "none"
		}
		return strings.Join(x, ", ")
	case []any:
		if len(x) == 0 {
			return "none"
		}
		items := make([]string, len(x))
		for i, item := range x {
			items[i] = formatValue(item)
		}
		return strings.Join(items, ", ")
	default:
		return fmt.Sprint(x)
	}
}

// MarshalJSON encodes the record as a JSON object in column order.
func (r Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range r.Keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(r.Values[i])
		if err != nil {
			return nil, fmt.Errorf("repo: encode %q: %w", k, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// fromNeo4j copies a driver record, flattening driver types to plain Go
// values: string lists become []string and nodes become their properties.
func fromNeo4j(rec *neo4j.Record) Record {
	out := Record{
		Keys:   append([]string(nil), rec.Keys...),
		Values: make([]any, len(rec.Values)),
	}
	for i, v := range rec.Values {
		out.Values[i] = plainValue(v)
	}
	return out
}

func plainValue(v any) any {
	switch x := v.(type) {
	case []any:
		strs := make([]string, 0, len(x))
		for _, item := range x {
			s, ok := item.(string)
			if !ok {
				vals := make([]any, len(x))
				for i, item := range x {
					vals[i] = plainValue(item)
				}
				return vals
			}
			strs = append(strs, s)
		}
		return strs
	case dbtype.Node:
		return x.Props
	case dbtype.Relationship:
		return x.Props
	default:
		return v
	}
}
