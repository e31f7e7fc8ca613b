package repo

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/medgraph/medgraph/pkg/fn"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// result is the minimal interface needed from a neo4j result.
type result interface {
	Next(ctx context.Context) bool
	Record() *neo4j.Record
	Err() error
}

// runner is the minimal interface needed from a neo4j session.
type runner interface {
	Run(ctx context.Context, cypher string, params map[string]any) (result, error)
	Close(ctx context.Context) error
}

// Executor runs Cypher through short-lived sessions on a shared driver.
// Sessions are scoped to one call, so concurrent callers only share the
// driver's connection pool.
type Executor struct {
	driver      neo4j.DriverWithContext
	initialized atomic.Bool
	logger      *slog.Logger
	newSession  func(ctx context.Context, mode neo4j.AccessMode) runner // for testing
}

// Compile-time interface check.
var _ Querier = (*Executor)(nil)

// NewExecutor wraps an already constructed driver.
func NewExecutor(driver neo4j.DriverWithContext, logger *slog.Logger) *Executor {
	if logger == nil {
		logger = slog.Default()
	}
	e := &Executor{driver: driver, logger: logger}
	e.initialized.Store(driver != nil)
	return e
}

// Connect creates a driver for uri and verifies connectivity, retrying with
// opts. Nothing works without the store, so callers treat an error here as
// "not ready".
func Connect(ctx context.Context, uri, user, password string, opts fn.RetryOpts, logger *slog.Logger) (*Executor, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("connecting to neo4j", "uri", uri, "user", user)

	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(user, password, ""))
	if err != nil {
		return nil, fmt.Errorf("repo: neo4j driver: %w", err)
	}

	verified := fn.Retry(ctx, opts, func(ctx context.Context) fn.Result[struct{}] {
		if err := driver.VerifyConnectivity(ctx); err != nil {
			logger.Warn("neo4j connectivity check failed", "err", err)
			return fn.Err[struct{}](err)
		}
		return fn.Ok(struct{}{})
	})
	if _, err := verified.Unwrap(); err != nil {
		driver.Close(ctx)
		return nil, fmt.Errorf("repo: neo4j connect: %w", err)
	}
	return NewExecutor(driver, logger), nil
}

// neo4jSessionAdapter adapts neo4j.SessionWithContext to the runner interface.
type neo4jSessionAdapter struct {
	sess neo4j.SessionWithContext
}

func (a *neo4jSessionAdapter) Run(ctx context.Context, cypher string, params map[string]any) (result, error) {
	return a.sess.Run(ctx, cypher, params)
}

func (a *neo4jSessionAdapter) Close(ctx context.Context) error {
	return a.sess.Close(ctx)
}

func (e *Executor) session(ctx context.Context, mode neo4j.AccessMode) runner {
	if e.newSession != nil {
		return e.newSession(ctx, mode)
	}
	return &neo4jSessionAdapter{sess: e.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: mode})}
}

// Run executes cypher in a write-capable session.
func (e *Executor) Run(ctx context.Context, cypher string, params map[string]any) fn.Result[[]Record] {
	return e.run(ctx, neo4j.AccessModeWrite, cypher, params)
}

// RunRead executes cypher in a read-only session; the server rejects any
// write clause.
func (e *Executor) RunRead(ctx context.Context, cypher string, params map[string]any) fn.Result[[]Record] {
	return e.run(ctx, neo4j.AccessModeRead, cypher, params)
}

func (e *Executor) run(ctx context.Context, mode neo4j.AccessMode, cypher string, params map[string]any) fn.Result[[]Record] {
	if !e.initialized.Load() {
		return fn.Err[[]Record](ErrClosed)
	}
	if params == nil {
		params = map[string]any{}
	}

	sess := e.session(ctx, mode)
	defer sess.Close(ctx)

	res, err := sess.Run(ctx, cypher, params)
	if err != nil {
		e.logger.Error("neo4j query failed", "err", err, "cypher", cypher)
		return fn.Errf[[]Record]("repo: run: %w", err)
	}

	records := []Record{}
	for res.Next(ctx) {
		records = append(records, fromNeo4j(res.Record()))
	}
	if err := res.Err(); err != nil {
		e.logger.Error("neo4j result stream failed", "err", err, "cypher", cypher)
		return fn.Errf[[]Record]("repo: read rows: %w", err)
	}
	return fn.Ok(records)
}

// Close releases the driver. It is safe to call more than once and on an
// executor that never connected.
func (e *Executor) Close(ctx context.Context) error {
	if !e.initialized.CompareAndSwap(true, false) {
		return nil
	}
	return e.driver.Close(ctx)
}

// Ping verifies the driver can still reach the server.
func (e *Executor) Ping(ctx context.Context) error {
	if !e.initialized.Load() {
		return ErrClosed
	}
	return e.driver.VerifyConnectivity(ctx)
}
