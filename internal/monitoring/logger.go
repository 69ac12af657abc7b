// Package monitoring carries the diagnostic stream. Diagnostics never share a
// writer with feature output: the default sink is the standard logger, which
// writes to stderr.
package monitoring

import (
	"fmt"
	"log"
	"sync"
)

// LogFunc has the signature of log.Printf.
type LogFunc func(format string, v ...interface{})

// Logf is the package-level diagnostic logger. It defaults to log.Printf but may
// be replaced by SetLogger. Tests or production code can redirect or mute it.
var Logf LogFunc = log.Printf

// SetLogger replaces the package logger. Passing nil will set a no-op logger.
func SetLogger(f LogFunc) {
	Logf = orNop(f)
}

// Discard drops every message.
func Discard(string, ...interface{}) {}

func orNop(f LogFunc) LogFunc {
	if f == nil {
		return Discard
	}
	return f
}

// Recorder keeps formatted diagnostics in memory so tests can inspect what a
// run logged. It is safe for concurrent use.
type Recorder struct {
	mu    sync.Mutex
	lines []string
}

// Logf records one formatted message.
func (r *Recorder) Logf(format string, v ...interface{}) {
	msg := fmt.Sprintf(format, v...)
	r.mu.Lock()
	r.lines = append(r.lines, msg)
	r.mu.Unlock()
}

// Lines returns a copy of the recorded messages in arrival order.
func (r *Recorder) Lines() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.lines))
	copy(out, r.lines)
	return out
}

// Len returns the number of recorded messages.
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.lines)
}
