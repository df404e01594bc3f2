package config

import (
	"errors"
	"fmt"
	"time"
)

// Config represents an assay.yaml configuration file. All values act as
// defaults for assay run flags; CLI flags always override config values.
type Config struct {
	Cluster ClusterConfig `yaml:"cluster"`
	Poll    PollConfig    `yaml:"poll"`
	Report  ReportConfig  `yaml:"report"`
}

// ClusterConfig holds the endpoints and identity of the cluster under
// test. Router is the only required endpoint; querier, ingester and
// compactor default to it when unset.
type ClusterConfig struct {
	Router    string `yaml:"router"`
	Querier   string `yaml:"querier"`
	Ingester  string `yaml:"ingester"`
	Compactor string `yaml:"compactor"`
	Namespace string `yaml:"namespace"`
	AuthToken string `yaml:"auth_token"`
}

// Validate checks that required cluster configuration is present.
func (c *ClusterConfig) Validate() error {
	if c.Router == "" {
		return errors.New("cluster.router is required")
	}
	if c.Namespace == "" {
		return errors.New("cluster.namespace is required")
	}
	return nil
}

// PollConfig holds the wait cadence for polling steps. Zero values fall
// back to the test-environment defaults (1s tick, 20s timeout).
type PollConfig struct {
	Tick    Duration `yaml:"tick"`
	Timeout Duration `yaml:"timeout"`
}

// ReportConfig holds run report destinations.
type ReportConfig struct {
	// Path is the report file path; "-" writes to stderr.
	Path string          `yaml:"path"`
	S3   *ReportS3Config `yaml:"s3,omitempty"`
}

// ReportS3Config holds the optional S3 archive destination.
type ReportS3Config struct {
	Bucket       string `yaml:"bucket"`
	Prefix       string `yaml:"prefix"`
	Region       string `yaml:"region"`
	Endpoint     string `yaml:"endpoint"`
	UsePathStyle bool   `yaml:"s3_path_style"`
}

// Duration wraps time.Duration for YAML string parsing (e.g. "10s", "5m").
type Duration struct {
	time.Duration
}

// UnmarshalYAML parses a duration string like "10s" or "5m30s".
func (d *Duration) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	if s == "" {
		return nil
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	d.Duration = parsed
	return nil
}
