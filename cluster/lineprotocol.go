package cluster

import (
	"fmt"
	"strings"

	lp "github.com/influxdata/line-protocol"
)

// ValidateLineProtocol parses payload and reports the first syntax
// error, if any. The HTTP collaborator runs this before sending a write
// so malformed test data fails locally with a parse diagnostic instead
// of an opaque cluster rejection.
func ValidateLineProtocol(payload string) error {
	if strings.TrimSpace(payload) == "" {
		return fmt.Errorf("%w: empty line protocol payload", ErrWriteRejected)
	}

	handler := lp.NewMetricHandler()
	parser := lp.NewParser(handler)
	metrics, err := parser.Parse([]byte(payload))
	if err != nil {
		return fmt.Errorf("%w: invalid line protocol: %v", ErrWriteRejected, err)
	}
	if len(metrics) == 0 {
		return fmt.Errorf("%w: payload contains no points", ErrWriteRejected)
	}
	return nil
}
