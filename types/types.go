// Package types defines core domain types for the assay harness.
//
//nolint:revive // types is a common Go package naming convention
package types

// WriteToken is the opaque identifier returned by a successful write.
// The harness never inspects token contents; it only accumulates tokens
// in write order and hands them back to the cluster when asking whether
// a specific write is readable or persisted yet.
type WriteToken string

// RunMeta carries run identity for log context and reporting.
type RunMeta struct {
	// RunID uniquely identifies one harness run.
	RunID string
	// Namespace is the cluster namespace the run executes against.
	Namespace string
}
