// Package cluster defines the narrow surface the step engine depends on
// to exercise a live deployment, plus an HTTP-backed implementation.
//
// The engine never reaches around this interface: how a write, query,
// metrics scrape, or catalog count is physically transported is the
// implementation's concern. Tests substitute in-memory fakes.
package cluster

import (
	"context"
	"sort"

	"github.com/justapithecus/assay/types"
)

// Connection selects which component a token status check is asked of.
type Connection int

const (
	// QuerierConnection checks token status through the general query path.
	QuerierConnection Connection = iota
	// IngesterConnection checks token status against the ingester directly,
	// for deployments where the querier does not know about the ingester.
	IngesterConnection
)

// String returns the connection name for diagnostics.
func (c Connection) String() string {
	switch c {
	case QuerierConnection:
		return "querier"
	case IngesterConnection:
		return "ingester"
	default:
		return "unknown"
	}
}

// Dialect selects the query language for Query.
type Dialect int

const (
	// DialectSQL runs the query as SQL.
	DialectSQL Dialect = iota
	// DialectInfluxQL runs the query as InfluxQL.
	DialectInfluxQL
)

// String returns the dialect name for diagnostics.
func (d Dialect) String() string {
	switch d {
	case DialectSQL:
		return "sql"
	case DialectInfluxQL:
		return "influxql"
	default:
		return "unknown"
	}
}

// Rows is a query result: one rendered string per row. Result row order
// is not guaranteed by the cluster; callers comparing row sets must use
// an order-independent comparison (see Sorted).
type Rows []string

// Sorted returns a sorted copy, leaving the receiver untouched.
func (r Rows) Sorted() Rows {
	out := make(Rows, len(r))
	copy(out, r)
	sort.Strings(out)
	return out
}

// Cluster is the collaborator surface the step engine drives. All
// methods may block on network round trips and honor ctx cancellation.
//
// TokenReadable and TokenPersisted are polled an unbounded number of
// times by the engine's wait steps; implementations must keep them
// idempotent and side-effect-free beyond observation.
type Cluster interface {
	// WriteLineProtocol writes raw line protocol and returns the opaque
	// token identifying the write.
	WriteLineProtocol(ctx context.Context, lineProtocol string) (types.WriteToken, error)

	// TokenReadable reports whether the write identified by token is
	// visible to queries yet, according to conn.
	TokenReadable(ctx context.Context, token types.WriteToken, conn Connection) (bool, error)

	// TokenPersisted reports whether the write identified by token has
	// been persisted to durable storage yet, according to conn.
	TokenPersisted(ctx context.Context, token types.WriteToken, conn Connection) (bool, error)

	// ParquetFileCount returns how many Parquet files the catalog knows
	// about for the namespace.
	ParquetFileCount(ctx context.Context, namespace string) (int, error)

	// Compact runs one compaction pass and blocks until it completes.
	Compact(ctx context.Context) error

	// Query runs text against the namespace in the given dialect and
	// returns the result rows. Query-level failures are *QueryError.
	Query(ctx context.Context, dialect Dialect, text, namespace string) (Rows, error)

	// MetricsText fetches the exported metrics endpoint as raw text.
	MetricsText(ctx context.Context) (string, error)

	// Namespace returns the namespace this handle operates on.
	Namespace() string
}
