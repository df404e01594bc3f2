package steps

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/justapithecus/assay/cluster"
	"github.com/justapithecus/assay/log"
	"github.com/justapithecus/assay/metrics"
	"github.com/justapithecus/assay/poll"
	"github.com/justapithecus/assay/types"
)

// ErrNoWrites is the precondition failure for AssertLastNotPersisted
// when no write has been recorded yet. It indicates a test-authoring
// bug, not a cluster problem.
var ErrNoWrites = errors.New("no data written yet")

// StepError is the run's terminal failure: the index and variant of the
// first step whose expectation was violated, wrapping the underlying
// assertion, timeout, transport or precondition error. Remaining steps
// never run.
type StepError struct {
	// Index is the zero-based position of the failed step.
	Index int
	// Name is the step's variant tag.
	Name string
	// Err is the underlying failure.
	Err error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %d (%s) failed: %v", e.Index, e.Name, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As chain traversal.
func (e *StepError) Unwrap() error {
	return e.Err
}

// StepTest runs an ordered list of steps against a cluster, failing on
// the first step whose expectation is violated.
type StepTest struct {
	cluster   cluster.Cluster
	steps     []Step
	logger    *log.Logger
	collector *metrics.Collector
	pollCfg   poll.Config
}

// Option customizes a StepTest.
type Option func(*StepTest)

// WithPollConfig overrides the wait cadence for every polling step.
func WithPollConfig(cfg poll.Config) Option {
	return func(t *StepTest) { t.pollCfg = cfg }
}

// WithLogger routes engine logging through logger.
func WithLogger(logger *log.Logger) Option {
	return func(t *StepTest) { t.logger = logger }
}

// WithCollector records run counters into collector.
func WithCollector(collector *metrics.Collector) Option {
	return func(t *StepTest) { t.collector = collector }
}

// NewStepTest creates a test that runs each step, in sequence, against
// c. The cluster handle is exclusively owned by the run for its entire
// duration.
func NewStepTest(c cluster.Cluster, steps []Step, opts ...Option) *StepTest {
	t := &StepTest{
		cluster: c,
		steps:   steps,
		logger:  log.NewNop(),
		pollCfg: poll.DefaultConfig(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Run executes the steps strictly one at a time, in order. The first
// failure aborts the run and is returned as a *StepError; remaining
// steps never execute. A nil return means every expectation held.
func (t *StepTest) Run(ctx context.Context) error {
	state := &StepTestState{
		cluster:   t.cluster,
		log:       t.logger,
		collector: t.collector,
		pollCfg:   t.pollCfg,
	}

	for i, step := range t.steps {
		t.logger.Info("begin step", map[string]any{"step": i, "kind": step.stepName()})
		t.collector.IncStepStarted()

		if err := t.dispatch(ctx, state, step); err != nil {
			t.collector.IncStepFailed()
			return &StepError{Index: i, Name: step.stepName(), Err: err}
		}

		t.collector.IncStepCompleted()
		t.logger.Info("done step", map[string]any{"step": i, "kind": step.stepName()})
	}
	return nil
}

// dispatch executes one step against the run state.
func (t *StepTest) dispatch(ctx context.Context, state *StepTestState, step Step) error {
	switch s := step.(type) {
	case WriteLineProtocol:
		token, err := state.cluster.WriteLineProtocol(ctx, s.LineProtocol)
		if err != nil {
			return fmt.Errorf("write line protocol: %w", err)
		}
		state.writeTokens = append(state.writeTokens, token)
		t.collector.IncWriteIssued()
		t.logger.Info("wrote line protocol", map[string]any{"token": string(token)})
		return nil

	case WaitForReadable:
		return t.waitForTokens(ctx, state, cluster.QuerierConnection, "readable", state.cluster.TokenReadable)

	case WaitForPersisted:
		return t.waitForTokens(ctx, state, cluster.QuerierConnection, "persisted", state.cluster.TokenPersisted)

	case WaitForPersistedAccordingToIngester:
		return t.waitForTokens(ctx, state, cluster.IngesterConnection, "persisted", state.cluster.TokenPersisted)

	case RecordNumParquetFiles:
		state.RecordNumParquetFiles(ctx)
		return nil

	case WaitForPersisted2:
		return state.WaitForParquetFileChange(ctx)

	case AssertNotPersisted:
		for _, token := range state.writeTokens {
			persisted, err := state.cluster.TokenPersisted(ctx, token, cluster.QuerierConnection)
			if err != nil {
				return fmt.Errorf("check token %s: %w", token, err)
			}
			if persisted {
				return fmt.Errorf("write token %s is unexpectedly persisted", token)
			}
		}
		return nil

	case AssertLastNotPersisted:
		if len(state.writeTokens) == 0 {
			return ErrNoWrites
		}
		token := state.writeTokens[len(state.writeTokens)-1]
		persisted, err := state.cluster.TokenPersisted(ctx, token, cluster.QuerierConnection)
		if err != nil {
			return fmt.Errorf("check token %s: %w", token, err)
		}
		if persisted {
			return fmt.Errorf("write token %s is unexpectedly persisted", token)
		}
		return nil

	case Compact:
		t.collector.IncCompactionTriggered()
		if err := state.cluster.Compact(ctx); err != nil {
			return err
		}
		return nil

	case Query:
		rows, err := t.runQuery(ctx, state, cluster.DialectSQL, s.SQL)
		if err != nil {
			return err
		}
		return compareRows(s.Expected, rows)

	case InfluxQLQuery:
		rows, err := t.runQuery(ctx, state, cluster.DialectInfluxQL, s.Query)
		if err != nil {
			return err
		}
		return compareRows(s.Expected, rows)

	case QueryExpectingError:
		_, err := t.runQuery(ctx, state, cluster.DialectSQL, s.SQL)
		return cluster.MatchQueryError(err, s.ExpectedCode, s.ExpectedMessage)

	case InfluxQLExpectingError:
		_, err := t.runQuery(ctx, state, cluster.DialectInfluxQL, s.Query)
		return cluster.MatchQueryError(err, s.ExpectedCode, s.ExpectedMessage)

	case VerifiedQuery:
		rows, err := t.runQuery(ctx, state, cluster.DialectSQL, s.SQL)
		if err != nil {
			return err
		}
		if err := s.Verify(rows); err != nil {
			return fmt.Errorf("query verification: %w", err)
		}
		return nil

	case VerifiedMetrics:
		text, err := state.cluster.MetricsText(ctx)
		if err != nil {
			return fmt.Errorf("fetch metrics: %w", err)
		}
		if err := s.Verify(state, text); err != nil {
			return fmt.Errorf("metrics verification: %w", err)
		}
		return nil

	case Custom:
		return s.Run(ctx, state)

	default:
		return fmt.Errorf("unhandled step variant %T", step)
	}
}

// tokenCheck is the shape of TokenReadable/TokenPersisted.
type tokenCheck func(ctx context.Context, token types.WriteToken, conn cluster.Connection) (bool, error)

// waitForTokens polls each recorded token, in write order, until check
// reports true or the budget elapses. A timeout identifies the token it
// was stuck on. Transient collaborator errors during a poll are
// absorbed into the observation: a backend that never recovers still
// surfaces as a timeout naming the last error.
func (t *StepTest) waitForTokens(ctx context.Context, state *StepTestState, conn cluster.Connection, want string, check tokenCheck) error {
	for _, token := range state.writeTokens {
		t.collector.IncWaitStarted()

		what := fmt.Sprintf("write token %s to be %s via %s", token, want, conn)
		err := poll.Wait(ctx, state.pollCfg, what, func(ctx context.Context) (bool, string, error) {
			ok, err := check(ctx, token, conn)
			if err != nil {
				return false, fmt.Sprintf("check failed: %v", err), nil
			}
			if ok {
				return true, "", nil
			}
			return false, fmt.Sprintf("not yet %s", want), nil
		})
		if err != nil {
			t.collector.IncWaitTimeout()
			return err
		}
		t.logger.Debug("token "+want, map[string]any{"token": string(token)})
	}
	return nil
}

// runQuery executes a query, recording counters.
func (t *StepTest) runQuery(ctx context.Context, state *StepTestState, dialect cluster.Dialect, text string) (cluster.Rows, error) {
	t.collector.IncQueryRun()
	t.logger.Info("running query", map[string]any{"dialect": dialect.String(), "query": text})

	rows, err := state.cluster.Query(ctx, dialect, text, state.cluster.Namespace())
	if err != nil {
		t.collector.IncQueryFailure()
	}
	return rows, err
}

// compareRows requires actual to equal expected as a multiset. Both
// sides are sorted into a canonical order before comparison since query
// result row order is not guaranteed.
func compareRows(expected []string, actual cluster.Rows) error {
	want := cluster.Rows(expected).Sorted()
	got := actual.Sorted()

	equal := len(want) == len(got)
	if equal {
		for i := range want {
			if want[i] != got[i] {
				equal = false
				break
			}
		}
	}
	if !equal {
		return fmt.Errorf("query result mismatch\nexpected (sorted):\n  %s\nactual (sorted):\n  %s",
			strings.Join(want, "\n  "), strings.Join(got, "\n  "))
	}
	return nil
}
