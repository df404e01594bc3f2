// Package report builds and writes the structured run report for a
// harness run, optionally archiving it to S3-compatible storage.
package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/justapithecus/assay/metrics"
	"github.com/justapithecus/assay/steps"
	"github.com/justapithecus/assay/types"
)

// Outcome is the terminal state of a run.
type Outcome string

const (
	// OutcomePassed means every step's expectation held.
	OutcomePassed Outcome = "passed"
	// OutcomeFailed means a step's expectation was violated.
	OutcomeFailed Outcome = "failed"
)

// RunReport is the structured JSON report written by --report.
type RunReport struct {
	RunID      string  `json:"run_id"`
	Namespace  string  `json:"namespace"`
	Outcome    Outcome `json:"outcome"`
	Message    string  `json:"message,omitempty"`
	StepsTotal int     `json:"steps_total"`
	// FailedStep is the zero-based index of the failing step, or -1.
	FailedStep int    `json:"failed_step"`
	FailedKind string `json:"failed_kind,omitempty"`
	DurationMs int64  `json:"duration_ms"`

	Metrics *metrics.Snapshot `json:"metrics,omitempty"`
}

// BuildRunReport composes a RunReport from a run's terminal error (nil
// on success), its metrics snapshot and duration.
func BuildRunReport(runMeta *types.RunMeta, stepsTotal int, runErr error, snap metrics.Snapshot, duration time.Duration) *RunReport {
	r := &RunReport{
		RunID:      runMeta.RunID,
		Namespace:  runMeta.Namespace,
		Outcome:    OutcomePassed,
		StepsTotal: stepsTotal,
		FailedStep: -1,
		DurationMs: duration.Milliseconds(),
		Metrics:    &snap,
	}

	if runErr != nil {
		r.Outcome = OutcomeFailed
		r.Message = runErr.Error()

		var stepErr *steps.StepError
		if errors.As(runErr, &stepErr) {
			r.FailedStep = stepErr.Index
			r.FailedKind = stepErr.Name
		}
	}
	return r
}

// WriteRunReport writes the report as JSON to the specified path.
// If path is "-", writes to stderr.
func WriteRunReport(report *RunReport, path string) error {
	if path == "" {
		return errors.New("report path must not be empty")
	}

	data, err := marshalReport(report)
	if err != nil {
		return err
	}

	if path == "-" {
		if _, err := os.Stderr.Write(data); err != nil {
			return fmt.Errorf("failed to write report to stderr: %w", err)
		}
		return nil
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write report to %s: %w", path, err)
	}
	return nil
}

// writeRunReportTo writes report JSON to any writer (for testing).
func writeRunReportTo(report *RunReport, w io.Writer) error {
	data, err := marshalReport(report)
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

func marshalReport(report *RunReport) ([]byte, error) {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal report: %w", err)
	}
	return append(data, '\n'), nil
}
