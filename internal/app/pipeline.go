package app

import (
	"errors"
	"time"

	"github.com/ayusman/mudra/internal/capture"
)

// runPipeline is the capture loop. It samples the camera at the idle rate
// until motion is seen, then at the active rate, running hand detection on
// every active frame. After the idle timeout without motion it drops back
// to idle and reports the hand as gone.
func (a *App) runPipeline(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(a.activity.Interval())
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			a.tick(ticker.Reset)
		}
	}
}

// tick processes one camera frame. reset changes the loop's tick interval.
func (a *App) tick(reset func(time.Duration)) {
	if !a.IsEnabled() {
		return
	}

	frame, err := a.camera.ReadFrame()
	if err != nil {
		if !errors.Is(err, capture.ErrNoMoreFrames) {
			a.log.Warn().Err(err).Msg("reading frame failed")
		}
		return
	}
	defer frame.Close()

	if err := a.preview.Publish(frame); err != nil {
		a.log.Debug().Err(err).Msg("preview encode failed")
	}

	motion := a.motion.Detect(frame)
	mode, switched := a.activity.Observe(motion.Moved, a.clock.Now())
	if switched {
		a.camera.SetFPS(a.activity.FPS())
		reset(a.activity.Interval())
		a.log.Debug().
			Str("mode", mode.String()).
			Float64("changed_pct", motion.Changed).
			Msg("capture mode switched")

		if mode == capture.ModeIdle {
			a.submitAbsent()
		}
	}

	if mode != capture.ModeActive {
		return
	}
	if err := a.ctrl.ProcessImage(frame); err != nil {
		a.log.Debug().Err(err).Msg("frame skipped")
	}
}

// submitAbsent tells the pipeline the hand is gone, and writes the same
// frame to the recording so a replay sees what the pipeline saw.
func (a *App) submitAbsent() {
	now := a.clock.Now()
	if a.recorder != nil {
		if err := a.recorder.WriteFrame(nil, now); err != nil {
			a.log.Warn().Err(err).Msg("recording frame failed")
		}
	}
	a.ctrl.SubmitFrameAt(nil, now)
}
