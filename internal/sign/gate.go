package sign

import "time"

// DefaultCooldown is how long a held letter is suppressed before it is
// accepted again.
const DefaultCooldown = 1500 * time.Millisecond

// Gate suppresses repeats of the same letter inside a cool-down window.
// A letter passes if it differs from the last accepted one, or if the
// cool-down has elapsed since the last acceptance. Gate is not safe for
// concurrent use.
type Gate struct {
	cooldown       time.Duration
	last           Symbol
	lastAcceptedAt time.Time
}

// NewGate creates a Gate. A non-positive cooldown uses DefaultCooldown.
func NewGate(cooldown time.Duration) *Gate {
	if cooldown <= 0 {
		cooldown = DefaultCooldown
	}
	return &Gate{cooldown: cooldown}
}

// Cooldown returns the suppression window.
func (g *Gate) Cooldown() time.Duration {
	return g.cooldown
}

// Accept reports whether s observed at now should be forwarded. On
// acceptance the last symbol and acceptance time are updated together.
// A now earlier than the previous acceptance counts as zero elapsed time
// and never moves the acceptance time backwards.
func (g *Gate) Accept(s Symbol, now time.Time) bool {
	if !s.Valid() {
		return false
	}
	if s == g.last {
		elapsed := now.Sub(g.lastAcceptedAt)
		if elapsed < g.cooldown {
			return false
		}
	}
	g.last = s
	if now.After(g.lastAcceptedAt) {
		g.lastAcceptedAt = now
	}
	return true
}

// Absent records that no hand is in frame. The same letter may then be
// signed again immediately; the acceptance time is left alone.
func (g *Gate) Absent() {
	g.last = None
}

// Forget clears the last symbol after the word it belonged to is
// committed or discarded.
func (g *Gate) Forget() {
	g.last = None
}

// LastSymbol returns the most recently accepted symbol, or None after an
// absence or Forget.
func (g *Gate) LastSymbol() Symbol {
	return g.last
}

// LastAcceptedAt returns when the last symbol was accepted.
func (g *Gate) LastAcceptedAt() time.Time {
	return g.lastAcceptedAt
}
