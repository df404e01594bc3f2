package scenario

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/justapithecus/assay/cluster"
	"github.com/justapithecus/assay/steps"
)

func TestParseAllStepKinds(t *testing.T) {
	doc := `
name: full coverage
steps:
  - write: "m,tag=a value=1 100"
  - wait_readable:
  - wait_persisted:
  - wait_persisted_ingester:
  - record_parquet_files:
  - wait_parquet_increase:
  - assert_not_persisted:
  - assert_last_not_persisted:
  - compact:
  - query:
      sql: "select * from m"
      expected:
        - "tag=a value=1 time=100"
  - influxql:
      query: "SHOW MEASUREMENTS"
      expected: []
  - query_error:
      sql: "select * from nope"
      code: invalid_argument
      message: "table not found"
  - influxql_error:
      query: "SHOW NONSENSE"
      code: invalid_argument
      message: "error parsing query"
`
	sc, err := Parse([]byte(doc), ".")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if sc.Name != "full coverage" {
		t.Errorf("name = %q", sc.Name)
	}
	if len(sc.Steps) != 13 {
		t.Fatalf("steps = %d, want 13", len(sc.Steps))
	}

	w, ok := sc.Steps[0].(steps.WriteLineProtocol)
	if !ok || w.LineProtocol != "m,tag=a value=1 100" {
		t.Errorf("step 0 = %#v", sc.Steps[0])
	}
	if _, ok := sc.Steps[1].(steps.WaitForReadable); !ok {
		t.Errorf("step 1 = %#v", sc.Steps[1])
	}
	if _, ok := sc.Steps[3].(steps.WaitForPersistedAccordingToIngester); !ok {
		t.Errorf("step 3 = %#v", sc.Steps[3])
	}
	if _, ok := sc.Steps[5].(steps.WaitForPersisted2); !ok {
		t.Errorf("step 5 = %#v", sc.Steps[5])
	}

	q, ok := sc.Steps[9].(steps.Query)
	if !ok || q.SQL != "select * from m" || len(q.Expected) != 1 {
		t.Errorf("step 9 = %#v", sc.Steps[9])
	}

	qe, ok := sc.Steps[11].(steps.QueryExpectingError)
	if !ok {
		t.Fatalf("step 11 = %#v", sc.Steps[11])
	}
	if qe.ExpectedCode != cluster.CodeInvalidArgument || qe.ExpectedMessage != "table not found" {
		t.Errorf("query_error = %#v", qe)
	}
}

func TestParseUnknownKind(t *testing.T) {
	_, err := Parse([]byte("steps:\n  - frobnicate:\n"), ".")
	if err == nil || !strings.Contains(err.Error(), "unknown step kind") {
		t.Fatalf("err = %v", err)
	}
}

func TestParseRejectsUnknownErrorCode(t *testing.T) {
	doc := `
steps:
  - query_error:
      sql: "select 1"
      code: made_up_code
      message: "whatever"
`
	_, err := Parse([]byte(doc), ".")
	if err == nil || !strings.Contains(err.Error(), "unknown error code") {
		t.Fatalf("err = %v", err)
	}
}

func TestParseAcceptsExplicitUnknownCode(t *testing.T) {
	doc := `
steps:
  - query_error:
      sql: "select 1"
      code: unknown
      message: "opaque failure"
`
	sc, err := Parse([]byte(doc), ".")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	qe := sc.Steps[0].(steps.QueryExpectingError)
	if qe.ExpectedCode != cluster.CodeUnknown {
		t.Errorf("code = %v", qe.ExpectedCode)
	}
}

func TestParseRequiresErrorCode(t *testing.T) {
	doc := `
steps:
  - query_error:
      sql: "select 1"
      message: "whatever"
`
	_, err := Parse([]byte(doc), ".")
	if err == nil || !strings.Contains(err.Error(), "error code is required") {
		t.Fatalf("err = %v", err)
	}
}

func TestParseEmptyScenario(t *testing.T) {
	for _, doc := range []string{"", "name: empty\nsteps: []\n"} {
		if _, err := Parse([]byte(doc), "."); err == nil {
			t.Errorf("empty scenario %q should fail", doc)
		}
	}
}

func TestParseRejectsMultiKeyEntry(t *testing.T) {
	doc := `
steps:
  - write: "m value=1"
    compact:
`
	_, err := Parse([]byte(doc), ".")
	if err == nil || !strings.Contains(err.Error(), "exactly one step kind") {
		t.Fatalf("err = %v", err)
	}
}

func TestParseRequiresQueryText(t *testing.T) {
	cases := []struct {
		name string
		doc  string
	}{
		{"query without sql", "steps:\n  - query:\n      expected: []\n"},
		{"influxql without query", "steps:\n  - influxql:\n      expected: []\n"},
	}
	for _, tc := range cases {
		if _, err := Parse([]byte(tc.doc), "."); err == nil {
			t.Errorf("%s should fail", tc.name)
		}
	}
}

func TestWriteFileResolvesAgainstScenarioDir(t *testing.T) {
	dir := t.TempDir()
	lp := "m,tag=a value=1 100\nm,tag=b value=2 200\n"
	if err := os.WriteFile(filepath.Join(dir, "data.lp"), []byte(lp), 0o644); err != nil {
		t.Fatal(err)
	}

	doc := "name: from file\nsteps:\n  - write_file: data.lp\n"
	scenarioPath := filepath.Join(dir, "scenario.yaml")
	if err := os.WriteFile(scenarioPath, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}

	sc, err := Load(scenarioPath)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	w := sc.Steps[0].(steps.WriteLineProtocol)
	if w.LineProtocol != lp {
		t.Errorf("line protocol = %q", w.LineProtocol)
	}
}

func TestWriteFileMissing(t *testing.T) {
	doc := "steps:\n  - write_file: does-not-exist.lp\n"
	_, err := Parse([]byte(doc), t.TempDir())
	if err == nil || !strings.Contains(err.Error(), "cannot read line protocol file") {
		t.Fatalf("err = %v", err)
	}
}

func TestLoadMissingScenarioFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil || !strings.Contains(err.Error(), "cannot read scenario file") {
		t.Fatalf("err = %v", err)
	}
}
