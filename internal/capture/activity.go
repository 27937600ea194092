package capture

import "time"

// Mode is the capture rate the loop runs at.
type Mode int

const (
	// ModeIdle samples slowly while nothing moves.
	ModeIdle Mode = iota
	// ModeActive samples at the full rate and runs hand detection.
	ModeActive
)

func (m Mode) String() string {
	if m == ModeActive {
		return "active"
	}
	return "idle"
}

// ActivityConfig sets the two capture rates and how long the scene must be
// still before dropping back to idle.
type ActivityConfig struct {
	IdleFPS     int
	ActiveFPS   int
	IdleTimeout time.Duration
}

// Activity switches between idle and active mode from motion observations.
// It is not safe for concurrent use; the capture loop owns it.
type Activity struct {
	config     ActivityConfig
	mode       Mode
	lastMotion time.Time
}

// NewActivity returns a tracker starting in idle mode.
func NewActivity(config ActivityConfig) *Activity {
	if config.IdleFPS <= 0 {
		config.IdleFPS = DefaultFPS
	}
	if config.ActiveFPS <= 0 {
		config.ActiveFPS = 15
	}
	if config.IdleTimeout <= 0 {
		config.IdleTimeout = 2 * time.Second
	}
	return &Activity{config: config}
}

// Observe records whether motion was seen at now. It returns the current
// mode and whether this observation changed it.
func (a *Activity) Observe(motion bool, now time.Time) (Mode, bool) {
	if motion {
		a.lastMotion = now
		if a.mode != ModeActive {
			a.mode = ModeActive
			return a.mode, true
		}
		return a.mode, false
	}

	if a.mode == ModeActive && now.Sub(a.lastMotion) > a.config.IdleTimeout {
		a.mode = ModeIdle
		return a.mode, true
	}
	return a.mode, false
}

// Mode returns the current mode.
func (a *Activity) Mode() Mode {
	return a.mode
}

// FPS returns the frame rate for the current mode.
func (a *Activity) FPS() int {
	if a.mode == ModeActive {
		return a.config.ActiveFPS
	}
	return a.config.IdleFPS
}

// Interval returns the tick interval for the current mode.
func (a *Activity) Interval() time.Duration {
	return time.Second / time.Duration(a.FPS())
}
