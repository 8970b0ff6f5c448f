// Package audit emits structured records for registration attempts and
// other sensitive operations. The current sink is a logrus JSON stream;
// the interface keeps it swappable for a durable audit table without
// touching callers.
package audit

import (
	"os"

	"github.com/sirupsen/logrus"
)

// Logger records audit events
type Logger interface {
	Record(operation string, details map[string]interface{})
}

// LogSink writes audit records as structured log lines
type LogSink struct {
	logger *logrus.Logger
}

// NewLogSink creates a JSON-formatted audit sink at the given level
func NewLogSink(level string) *LogSink {
	logger := logrus.New()

	logLevel, err := logrus.ParseLevel(level)
	if err != nil {
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)

	return &LogSink{logger: logger}
}

// Record emits one audit event
func (s *LogSink) Record(operation string, details map[string]interface{}) {
	fields := logrus.Fields{"operation": operation}
	for k, v := range details {
		fields[k] = v
	}
	s.logger.WithFields(fields).Info("audit")
}

// Nop is an audit logger that discards everything, for tests
type Nop struct{}

// Record implements Logger
func (Nop) Record(string, map[string]interface{}) {}
