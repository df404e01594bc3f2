// Package steps implements the sequential step-orchestration engine.
//
// A test is an ordered list of Steps executed one at a time against a
// live cluster, threading accumulated state (write tokens, the last
// observed Parquet file count) between steps and failing the whole run
// on the first violated expectation. Eventual consistency is tolerated
// only inside the explicit "wait" steps, which poll with a bounded
// budget; nothing else is ever retried.
package steps

import (
	"context"

	"github.com/justapithecus/assay/cluster"
)

// Step is one action in a test sequence, tagged with its expected
// outcome. Steps are pure data consumed exactly once, in order, except
// for the three callback-carrying variants (VerifiedQuery,
// VerifiedMetrics, Custom).
type Step interface {
	// stepName is the variant tag used in logs and failure diagnostics.
	// It also closes the variant set to this package.
	stepName() string
}

// CustomFunc is the callback for a Custom step. It receives the mutable
// run state and may perform arbitrary reads, writes and cluster calls.
// A non-nil error fails the step and aborts the run.
type CustomFunc func(ctx context.Context, state *StepTestState) error

// VerifyFunc is the callback for a VerifiedQuery step. It receives the
// raw result rows; a non-nil error fails the step.
type VerifyFunc func(rows cluster.Rows) error

// MetricsVerifyFunc is the callback for a VerifiedMetrics step. It
// receives the run state and the raw metrics text; a non-nil error
// fails the step.
type MetricsVerifyFunc func(state *StepTestState, metrics string) error

// WriteLineProtocol writes the given line protocol to the cluster and
// records the returned write token. Fails if the write is rejected.
type WriteLineProtocol struct {
	LineProtocol string
}

// WaitForReadable waits for all previously recorded write tokens to
// become readable, in write order, within the poll budget.
type WaitForReadable struct{}

// WaitForPersisted waits for all previously recorded write tokens to be
// persisted, checked through the general query path.
type WaitForPersisted struct{}

// WaitForPersistedAccordingToIngester waits for all previously recorded
// write tokens to be persisted, checked against the ingester directly.
// For deployments where the querier does not know about the ingester.
type WaitForPersistedAccordingToIngester struct{}

// RecordNumParquetFiles snapshots the catalog's current Parquet file
// count for the namespace into the run state. Do this before a write of
// interest; afterwards WaitForPersisted2 observes the change. An
// unreachable catalog records zero rather than failing; it is not
// distinguishable here from "no files yet".
type RecordNumParquetFiles struct{}

// WaitForPersisted2 waits for the catalog's Parquet file count to
// strictly exceed the last recorded snapshot. Equal counts do not
// satisfy the wait. On success the new count replaces the snapshot.
type WaitForPersisted2 struct{}

// AssertNotPersisted checks immediately, without polling, that none of
// the recorded write tokens are persisted yet.
type AssertNotPersisted struct{}

// AssertLastNotPersisted checks immediately that the most recently
// recorded write token is not persisted yet. Fails if no write has been
// recorded: there is nothing to assert about.
type AssertLastNotPersisted struct{}

// Compact runs one compaction pass and waits for it to finish.
type Compact struct{}

// Query runs a SQL query and requires the result rows to equal Expected
// as a set; row order is ignored on both sides.
type Query struct {
	SQL      string
	Expected []string
}

// InfluxQLQuery runs an InfluxQL query and requires the result rows to
// equal Expected as a set; row order is ignored on both sides.
type InfluxQLQuery struct {
	Query    string
	Expected []string
}

// QueryExpectingError runs a SQL query that must fail with exactly
// ExpectedCode and a message containing ExpectedMessage. A query that
// succeeds, or fails differently, fails the step; this is never polled.
type QueryExpectingError struct {
	SQL             string
	ExpectedCode    cluster.Code
	ExpectedMessage string
}

// InfluxQLExpectingError runs an InfluxQL query that must fail with
// exactly ExpectedCode and a message containing ExpectedMessage.
type InfluxQLExpectingError struct {
	Query           string
	ExpectedCode    cluster.Code
	ExpectedMessage string
}

// VerifiedQuery runs a SQL query and hands the raw rows to Verify for
// arbitrary assertions.
type VerifiedQuery struct {
	SQL    string
	Verify VerifyFunc
}

// VerifiedMetrics fetches the cluster's exported metrics text and hands
// it, with the run state, to Verify.
type VerifiedMetrics struct {
	Verify MetricsVerifyFunc
}

// Custom hands the mutable run state to a one-shot callback for special
// cases that are only used once.
type Custom struct {
	Run CustomFunc
}

func (WriteLineProtocol) stepName() string                   { return "WriteLineProtocol" }
func (WaitForReadable) stepName() string                     { return "WaitForReadable" }
func (WaitForPersisted) stepName() string                    { return "WaitForPersisted" }
func (WaitForPersistedAccordingToIngester) stepName() string { return "WaitForPersistedAccordingToIngester" }
func (RecordNumParquetFiles) stepName() string               { return "RecordNumParquetFiles" }
func (WaitForPersisted2) stepName() string                   { return "WaitForPersisted2" }
func (AssertNotPersisted) stepName() string                  { return "AssertNotPersisted" }
func (AssertLastNotPersisted) stepName() string              { return "AssertLastNotPersisted" }
func (Compact) stepName() string                             { return "Compact" }
func (Query) stepName() string                               { return "Query" }
func (InfluxQLQuery) stepName() string                       { return "InfluxQLQuery" }
func (QueryExpectingError) stepName() string                 { return "QueryExpectingError" }
func (InfluxQLExpectingError) stepName() string              { return "InfluxQLExpectingError" }
func (VerifiedQuery) stepName() string                       { return "VerifiedQuery" }
func (VerifiedMetrics) stepName() string                     { return "VerifiedMetrics" }
func (Custom) stepName() string                              { return "Custom" }
