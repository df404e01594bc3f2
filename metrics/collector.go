// Package metrics provides per-run metrics collection for the harness.
//
// The Collector accumulates counters during a single step run. It is a
// leaf package with no internal dependencies. Counters feed the run
// report; they are never exported live.
package metrics

import "sync"

// Snapshot is an immutable point-in-time view of the run counters.
// Returned by Collector.Snapshot(). Safe to read concurrently after
// creation.
type Snapshot struct {
	// Step lifecycle
	StepsStarted   int64 `json:"steps_started_total"`
	StepsCompleted int64 `json:"steps_completed_total"`
	StepsFailed    int64 `json:"steps_failed_total"`

	// Cluster interactions
	WritesIssued         int64 `json:"writes_issued_total"`
	QueriesRun           int64 `json:"queries_run_total"`
	QueryFailures        int64 `json:"query_failures_total"`
	CompactionsTriggered int64 `json:"compactions_triggered_total"`

	// Polling
	WaitsStarted int64 `json:"waits_started_total"`
	WaitTimeouts int64 `json:"wait_timeouts_total"`

	// Dimensions (informational, set at construction)
	RunID     string `json:"run_id,omitempty"`
	Namespace string `json:"namespace,omitempty"`
}

// Collector accumulates metrics during a single run.
// Thread-safe via sync.Mutex. All increment methods are nil-receiver safe.
type Collector struct {
	mu sync.Mutex

	stepsStarted   int64
	stepsCompleted int64
	stepsFailed    int64

	writesIssued         int64
	queriesRun           int64
	queryFailures        int64
	compactionsTriggered int64

	waitsStarted int64
	waitTimeouts int64

	runID     string
	namespace string
}

// NewCollector creates a Collector with dimension labels.
// runID and namespace are informational and may be empty.
func NewCollector(runID, namespace string) *Collector {
	return &Collector{runID: runID, namespace: namespace}
}

// --- Step lifecycle ---

// IncStepStarted records a step beginning execution.
func (c *Collector) IncStepStarted() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.stepsStarted++
	c.mu.Unlock()
}

// IncStepCompleted records a step completing without failure.
func (c *Collector) IncStepCompleted() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.stepsCompleted++
	c.mu.Unlock()
}

// IncStepFailed records a fatal step failure.
func (c *Collector) IncStepFailed() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.stepsFailed++
	c.mu.Unlock()
}

// --- Cluster interactions ---

// IncWriteIssued records a successful line protocol write.
func (c *Collector) IncWriteIssued() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.writesIssued++
	c.mu.Unlock()
}

// IncQueryRun records a query execution, successful or not.
func (c *Collector) IncQueryRun() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.queriesRun++
	c.mu.Unlock()
}

// IncQueryFailure records a query that returned an error.
func (c *Collector) IncQueryFailure() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.queryFailures++
	c.mu.Unlock()
}

// IncCompactionTriggered records a compaction pass.
func (c *Collector) IncCompactionTriggered() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.compactionsTriggered++
	c.mu.Unlock()
}

// --- Polling ---

// IncWaitStarted records a poller wait beginning.
func (c *Collector) IncWaitStarted() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.waitsStarted++
	c.mu.Unlock()
}

// IncWaitTimeout records a poller wait that exhausted its budget.
func (c *Collector) IncWaitTimeout() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.waitTimeouts++
	c.mu.Unlock()
}

// Snapshot returns an immutable copy of all counters.
// Nil-receiver safe: returns a zero Snapshot.
func (c *Collector) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return Snapshot{
		StepsStarted:         c.stepsStarted,
		StepsCompleted:       c.stepsCompleted,
		StepsFailed:          c.stepsFailed,
		WritesIssued:         c.writesIssued,
		QueriesRun:           c.queriesRun,
		QueryFailures:        c.queryFailures,
		CompactionsTriggered: c.compactionsTriggered,
		WaitsStarted:         c.waitsStarted,
		WaitTimeouts:         c.waitTimeouts,
		RunID:                c.runID,
		Namespace:            c.namespace,
	}
}
