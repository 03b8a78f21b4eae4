package testing

import (
	"fmt"
	"strings"
	"testing"

	"github.com/weiyilai/kafkaflow/types"
)

// NewTestLogger creates a logger that forwards every message to t.Logf, so
// balancer and flow-controller output shows up interleaved with the test's own
// output and is only printed for failing or verbose runs.
//
// Returns:
//   - types.Logger: Logger writing through the test's log
func NewTestLogger(t *testing.T) types.Logger {
	return &testLogger{t: t}
}

type testLogger struct {
	t *testing.T
}

var _ types.Logger = (*testLogger)(nil)

func (l *testLogger) Debug(msg string, keysAndValues ...any) {
	l.logf("DEBUG", msg, keysAndValues...)
}

func (l *testLogger) Info(msg string, keysAndValues ...any) {
	l.logf("INFO", msg, keysAndValues...)
}

func (l *testLogger) Warn(msg string, keysAndValues ...any) {
	l.logf("WARN", msg, keysAndValues...)
}

func (l *testLogger) Error(msg string, keysAndValues ...any) {
	l.logf("ERROR", msg, keysAndValues...)
}

// Fatal fails the test immediately; the components under test should never hit
// a fatal path.
func (l *testLogger) Fatal(msg string, keysAndValues ...any) {
	l.t.Helper()
	l.t.Fatalf("FATAL: %s%s", msg, formatFields(keysAndValues))
}

func (l *testLogger) logf(level, msg string, keysAndValues ...any) {
	l.t.Helper()
	l.t.Logf("%s: %s%s", level, msg, formatFields(keysAndValues))
}

// formatFields renders key-value pairs as " k=v k=v"; a trailing key without a
// value is printed bare.
func formatFields(keysAndValues []any) string {
	if len(keysAndValues) == 0 {
		return ""
	}

	var b strings.Builder
	for i := 0; i < len(keysAndValues); i += 2 {
		if i+1 < len(keysAndValues) {
			fmt.Fprintf(&b, " %v=%v", keysAndValues[i], keysAndValues[i+1])
		} else {
			fmt.Fprintf(&b, " %v", keysAndValues[i])
		}
	}

	return b.String()
}
