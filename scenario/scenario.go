// Package scenario parses declarative YAML test scenarios into step
// sequences for the CLI.
//
// Every data-only step variant is expressible in YAML. The three
// callback-carrying variants (VerifiedQuery, VerifiedMetrics, Custom)
// are API-only: arbitrary Go callbacks have no declarative form.
package scenario

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/justapithecus/assay/cluster"
	"github.com/justapithecus/assay/steps"
)

// Scenario is a named, ordered step sequence.
type Scenario struct {
	Name  string
	Steps []steps.Step
}

// scenarioFile is the on-disk YAML shape. Each list entry is a single
// key (the step kind) mapping to that kind's payload.
type scenarioFile struct {
	Name  string                `yaml:"name"`
	Steps []map[string]yaml.Node `yaml:"steps"`
}

// querySpec is the payload for query and influxql steps.
type querySpec struct {
	SQL      string   `yaml:"sql"`
	Query    string   `yaml:"query"`
	Expected []string `yaml:"expected"`
}

// queryErrorSpec is the payload for query_error and influxql_error steps.
type queryErrorSpec struct {
	SQL     string `yaml:"sql"`
	Query   string `yaml:"query"`
	Code    string `yaml:"code"`
	Message string `yaml:"message"`
}

// Load reads and parses a scenario file. Relative write_file paths are
// resolved against the scenario file's directory.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read scenario file %q: %w", path, err)
	}
	return Parse(data, filepath.Dir(path))
}

// Parse parses scenario YAML. baseDir anchors relative write_file paths.
func Parse(data []byte, baseDir string) (*Scenario, error) {
	var file scenarioFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("invalid scenario YAML: %w", err)
	}
	if len(file.Steps) == 0 {
		return nil, fmt.Errorf("scenario has no steps")
	}

	sc := &Scenario{Name: file.Name}
	for i, entry := range file.Steps {
		if len(entry) != 1 {
			return nil, fmt.Errorf("step %d: expected exactly one step kind, got %d keys", i, len(entry))
		}
		for kind, node := range entry {
			step, err := parseStep(kind, node, baseDir)
			if err != nil {
				return nil, fmt.Errorf("step %d (%s): %w", i, kind, err)
			}
			sc.Steps = append(sc.Steps, step)
		}
	}
	return sc, nil
}

// parseStep converts one YAML entry into its step variant.
func parseStep(kind string, node yaml.Node, baseDir string) (steps.Step, error) {
	switch kind {
	case "write":
		var lp string
		if err := node.Decode(&lp); err != nil {
			return nil, err
		}
		return steps.WriteLineProtocol{LineProtocol: lp}, nil

	case "write_file":
		var path string
		if err := node.Decode(&path); err != nil {
			return nil, err
		}
		if !filepath.IsAbs(path) {
			path = filepath.Join(baseDir, path)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("cannot read line protocol file: %w", err)
		}
		return steps.WriteLineProtocol{LineProtocol: string(data)}, nil

	case "wait_readable":
		return steps.WaitForReadable{}, nil

	case "wait_persisted":
		return steps.WaitForPersisted{}, nil

	case "wait_persisted_ingester":
		return steps.WaitForPersistedAccordingToIngester{}, nil

	case "record_parquet_files":
		return steps.RecordNumParquetFiles{}, nil

	case "wait_parquet_increase":
		return steps.WaitForPersisted2{}, nil

	case "assert_not_persisted":
		return steps.AssertNotPersisted{}, nil

	case "assert_last_not_persisted":
		return steps.AssertLastNotPersisted{}, nil

	case "compact":
		return steps.Compact{}, nil

	case "query":
		var spec querySpec
		if err := node.Decode(&spec); err != nil {
			return nil, err
		}
		if spec.SQL == "" {
			return nil, fmt.Errorf("query step requires sql")
		}
		return steps.Query{SQL: spec.SQL, Expected: spec.Expected}, nil

	case "influxql":
		var spec querySpec
		if err := node.Decode(&spec); err != nil {
			return nil, err
		}
		if spec.Query == "" {
			return nil, fmt.Errorf("influxql step requires query")
		}
		return steps.InfluxQLQuery{Query: spec.Query, Expected: spec.Expected}, nil

	case "query_error":
		var spec queryErrorSpec
		if err := node.Decode(&spec); err != nil {
			return nil, err
		}
		code, err := parseCodeStrict(spec.Code)
		if err != nil {
			return nil, err
		}
		if spec.SQL == "" {
			return nil, fmt.Errorf("query_error step requires sql")
		}
		return steps.QueryExpectingError{SQL: spec.SQL, ExpectedCode: code, ExpectedMessage: spec.Message}, nil

	case "influxql_error":
		var spec queryErrorSpec
		if err := node.Decode(&spec); err != nil {
			return nil, err
		}
		code, err := parseCodeStrict(spec.Code)
		if err != nil {
			return nil, err
		}
		if spec.Query == "" {
			return nil, fmt.Errorf("influxql_error step requires query")
		}
		return steps.InfluxQLExpectingError{Query: spec.Query, ExpectedCode: code, ExpectedMessage: spec.Message}, nil

	default:
		return nil, fmt.Errorf("unknown step kind %q", kind)
	}
}

// parseCodeStrict rejects codes the harness does not know about. An
// unknown code in a scenario is an authoring bug, not a mismatch to
// diagnose at run time.
func parseCodeStrict(s string) (cluster.Code, error) {
	if s == "" {
		return "", fmt.Errorf("expected error code is required")
	}
	code := cluster.ParseCode(s)
	if code == cluster.CodeUnknown && s != string(cluster.CodeUnknown) {
		return "", fmt.Errorf("unknown error code %q", s)
	}
	return code, nil
}
