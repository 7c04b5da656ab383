// Package notify is the global transient notification channel: short
// messages shown to the user for cross-cutting outcomes such as session
// expiry, permission errors or a failed upload.
package notify

import (
	"sync"

	"github.com/rs/zerolog/log"
)

// Level is the severity of a notice.
type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Notice is one transient notification.
type Notice struct {
	Level   Level  `json:"level"`
	Message string `json:"message"`
}

// Notifier delivers notices. Implementations must be safe for concurrent use.
type Notifier interface {
	Notify(Notice)
}

// Func adapts a function to Notifier.
type Func func(Notice)

// Notify calls f(n).
func (f Func) Notify(n Notice) { f(n) }

// Discard drops every notice.
var Discard Notifier = Func(func(Notice) {})

// Log writes notices to the global zerolog logger.
type Log struct{}

// Notify logs n at a level matching its severity.
func (Log) Notify(n Notice) {
	ev := log.Info()
	switch n.Level {
	case LevelWarning:
		ev = log.Warn()
	case LevelError:
		ev = log.Error()
	}
	ev.Str("level_hint", string(n.Level)).Str("notice", n.Message).Msg("notify")
}

// Recorder keeps every notice in order.
type Recorder struct {
	mu      sync.Mutex
	notices []Notice
}

// Notify appends n.
func (r *Recorder) Notify(n Notice) {
	r.mu.Lock()
	r.notices = append(r.notices, n)
	r.mu.Unlock()
}

// Notices returns a copy of the recorded notices.
func (r *Recorder) Notices() []Notice {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Notice, len(r.notices))
	copy(out, r.notices)
	return out
}

// Count returns how many recorded notices carry msg.
func (r *Recorder) Count(msg string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, x := range r.notices {
		if x.Message == msg {
			n++
		}
	}
	return n
}

// Drain returns the recorded notices and clears the recorder.
func (r *Recorder) Drain() []Notice {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.notices
	r.notices = nil
	return out
}

// Multi fans a notice out to every member.
type Multi []Notifier

// Notify delivers n to each non-nil member in order.
func (m Multi) Notify(n Notice) {
	for _, x := range m {
		if x != nil {
			x.Notify(n)
		}
	}
}

// Or returns n, or Discard when n is nil.
func Or(n Notifier) Notifier {
	if n == nil {
		return Discard
	}
	return n
}

// Helpers for the common severities.

func Error(n Notifier, msg string)   { Or(n).Notify(Notice{Level: LevelError, Message: msg}) }
func Warning(n Notifier, msg string) { Or(n).Notify(Notice{Level: LevelWarning, Message: msg}) }
func Success(n Notifier, msg string) { Or(n).Notify(Notice{Level: LevelSuccess, Message: msg}) }
