// Package status is the single inline feedback surface each feature module
// writes to. One reporter per module, latest message wins, no history.
package status

import (
	"fmt"
	"log"
	"sync"
)

// Severity marks how a message should be presented.
type Severity string

const (
	Info    Severity = "info"
	Success Severity = "success"
	Error   Severity = "error"
)

// Reporter receives module status messages. Implementations must not panic;
// reporting is always best-effort.
type Reporter interface {
	Report(msg string, sev Severity)
}

// Reportf formats and reports. A nil reporter is a no-op so call sites never
// need to guard.
func Reportf(r Reporter, sev Severity, format string, args ...any) {
	if r == nil {
		return
	}
	r.Report(fmt.Sprintf(format, args...), sev)
}

// Memory keeps only the latest message. Used by tests and as the model
// behind rendered status lines.
type Memory struct {
	mu  sync.Mutex
	msg string
	sev Severity
}

func (m *Memory) Report(msg string, sev Severity) {
	m.mu.Lock()
	m.msg, m.sev = msg, sev
	m.mu.Unlock()
}

// Last returns the most recent message and severity.
func (m *Memory) Last() (string, Severity) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.msg, m.sev
}

// Log writes messages to the standard logger, prefixed with the module name.
type Log struct {
	Module string
}

func (l *Log) Report(msg string, sev Severity) {
	log.Printf("[%s] %s: %s", l.Module, sev, msg)
}
