package client

import (
	"sync"

	"github.com/rs/zerolog"
)

// Notifier shows transient user-facing notices
type Notifier interface {
	Success(msg string)
	Error(msg string)
}

// LogNotifier writes notices to a zerolog logger
type LogNotifier struct {
	Log zerolog.Logger
}

func (n LogNotifier) Success(msg string) { n.Log.Info().Msg(msg) }

func (n LogNotifier) Error(msg string) { n.Log.Error().Msg(msg) }

// Notice is one recorded notification
type Notice struct {
	Level   string
	Message string
}

// Recorder keeps notices in memory
type Recorder struct {
	mu      sync.Mutex
	notices []Notice
}

func (r *Recorder) Success(msg string) { r.add("success", msg) }

func (r *Recorder) Error(msg string) { r.add("error", msg) }

func (r *Recorder) add(level, msg string) {
	r.mu.Lock()
	r.notices = append(r.notices, Notice{Level: level, Message: msg})
	r.mu.Unlock()
}

// Notices returns a copy of everything recorded
func (r *Recorder) Notices() []Notice {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Notice(nil), r.notices...)
}

// Messages returns only the message texts
func (r *Recorder) Messages() []string {
	var out []string
	for _, n := range r.Notices() {
		out = append(out, n.Message)
	}
	return out
}

type nopNotifier struct{}

func (nopNotifier) Success(string) {}
func (nopNotifier) Error(string)   {}
