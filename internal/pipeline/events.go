package pipeline

import (
	"time"

	"github.com/ayusman/mudra/internal/sign"
	"github.com/ayusman/mudra/internal/text"
)

// DetectionEvent describes the most recent frame. Present is false when no
// hand was in view or the frame could not be classified.
type DetectionEvent struct {
	Present  bool        `json:"present"`
	Symbol   sign.Symbol `json:"symbol"`
	Accepted bool        `json:"accepted"`
}

// Update is delivered to the subscriber after every frame and every manual
// control operation.
type Update struct {
	Event DetectionEvent `json:"event"`
	State text.Snapshot  `json:"state"`
	Seq   uint64         `json:"seq"`
	At    time.Time      `json:"at"`
}

// Subscriber receives updates. It runs on a helper goroutine with a bounded
// wait; errors and panics are logged and otherwise ignored. A subscriber
// must not assume it can call back into the Controller synchronously.
type Subscriber func(Update) error

// Commit describes one word finalized into the sentence. State is the
// text right after the commit.
type Commit struct {
	Word  string
	State text.Snapshot
	At    time.Time
}

// CommitHook receives each committed word, in commit order, on a single
// worker goroutine.
type CommitHook func(Commit) error

// Chain combines subscribers into one. Every subscriber is called even if
// an earlier one fails; the first error is returned.
func Chain(subs ...Subscriber) Subscriber {
	return func(u Update) error {
		var first error
		for _, s := range subs {
			if s == nil {
				continue
			}
			if err := s(u); err != nil && first == nil {
				first = err
			}
		}
		return first
	}
}
