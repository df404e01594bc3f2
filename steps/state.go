package steps

import (
	"context"
	"fmt"

	"github.com/justapithecus/assay/cluster"
	"github.com/justapithecus/assay/log"
	"github.com/justapithecus/assay/metrics"
	"github.com/justapithecus/assay/poll"
	"github.com/justapithecus/assay/types"
)

// StepTestState is the mutable state threaded through a step sequence.
// It is constructed when a run begins, owned exclusively by that run,
// and discarded when the run ends; it is never persisted or reused.
type StepTestState struct {
	cluster   cluster.Cluster
	log       *log.Logger
	collector *metrics.Collector
	pollCfg   poll.Config

	// writeTokens accumulates one token per successful write step, in
	// write order. Append-only: it never shrinks or reorders.
	writeTokens []types.WriteToken

	// numParquetFiles is the catalog's Parquet file count the last time
	// it was recorded. Meaningless until parquetFilesRecorded is set.
	numParquetFiles      int
	parquetFilesRecorded bool
}

// Cluster returns the run's cluster handle, for Custom and
// VerifiedMetrics callbacks that need to drive it directly.
func (s *StepTestState) Cluster() cluster.Cluster {
	return s.cluster
}

// WriteTokens returns the tokens recorded so far, in write order. The
// returned slice is a copy; callers cannot disturb the run's state.
func (s *StepTestState) WriteTokens() []types.WriteToken {
	out := make([]types.WriteToken, len(s.writeTokens))
	copy(out, s.writeTokens)
	return out
}

// RecordNumParquetFiles stores the catalog's current Parquet file count
// for the namespace. Call this before a write of interest to be able to
// tell when it has been persisted by watching for the count to change.
func (s *StepTestState) RecordNumParquetFiles(ctx context.Context) {
	n := s.parquetFileCount(ctx)
	s.log.Info("recorded parquet file count", map[string]any{
		"namespace": s.cluster.Namespace(),
		"count":     n,
	})
	s.numParquetFiles = n
	s.parquetFilesRecorded = true
}

// WaitForParquetFileChange waits, up to the poll budget, for the
// catalog's Parquet file count to strictly exceed the last recorded
// value, which indicates persistence has taken place. On success the
// new count becomes the recorded value. A count that was never
// recorded is treated as below any observation, so the first check
// succeeds immediately.
func (s *StepTestState) WaitForParquetFileChange(ctx context.Context) error {
	s.collector.IncWaitStarted()

	what := fmt.Sprintf("parquet file count for namespace %q to increase", s.cluster.Namespace())
	err := poll.Wait(ctx, s.pollCfg, what, func(ctx context.Context) (bool, string, error) {
		current := s.parquetFileCount(ctx)
		if !s.parquetFilesRecorded || current > s.numParquetFiles {
			s.log.Info("parquet file count increased", map[string]any{"count": current})
			s.numParquetFiles = current
			s.parquetFilesRecorded = true
			return true, "", nil
		}
		s.log.Debug("parquet file count unchanged", map[string]any{"count": current})
		return false, fmt.Sprintf("count still %d (recorded %d)", current, s.numParquetFiles), nil
	})
	if err != nil {
		s.collector.IncWaitTimeout()
	}
	return err
}

// parquetFileCount asks the catalog for the namespace's Parquet file
// count. An unreachable catalog degrades to zero rather than failing;
// the degradation is logged at warn so test authors can tell a silent
// zero from a real one.
func (s *StepTestState) parquetFileCount(ctx context.Context) int {
	n, err := s.cluster.ParquetFileCount(ctx, s.cluster.Namespace())
	if err != nil {
		s.log.Warn("parquet file count unavailable, treating as zero", map[string]any{
			"namespace": s.cluster.Namespace(),
			"error":     err.Error(),
		})
		return 0
	}
	return n
}
