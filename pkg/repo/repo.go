// Package repo runs Cypher against Neo4j and materialises the rows as
// ordered records.
package repo

import (
	"context"
	"errors"

	"github.com/medgraph/medgraph/pkg/fn"
)

// ErrClosed is returned by an executor whose driver has been closed or was
// never initialised.
var ErrClosed = errors.New("repo: executor closed")

// Querier runs a parametrised read query. An Err result means the store
// failed; an Ok result with no records means the query matched nothing.
type Querier interface {
	RunRead(ctx context.Context, cypher string, params map[string]any) fn.Result[[]Record]
}
