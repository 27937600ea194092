package sign

import (
	"math"

	"github.com/ayusman/mudra/internal/detector"
)

// Default geometric thresholds, in normalized image units.
const (
	DefaultExtensionMargin = 0.05
	DefaultSpreadThreshold = 0.05
)

// ClassifierConfig holds the thresholds used by Classifier. Zero values
// fall back to the defaults.
type ClassifierConfig struct {
	// ExtensionMargin is how far a fingertip must sit above its knuckle for
	// the finger to count as extended.
	ExtensionMargin float64
	// SpreadThreshold separates V (fingertips apart) from U (together).
	SpreadThreshold float64
}

// Classifier maps a single frame to a letter using fixed geometric rules.
// It keeps no history, so the same frame always yields the same symbol.
type Classifier struct {
	margin float64
	spread float64
}

// NewClassifier creates a Classifier with the given thresholds.
func NewClassifier(cfg ClassifierConfig) *Classifier {
	if cfg.ExtensionMargin <= 0 {
		cfg.ExtensionMargin = DefaultExtensionMargin
	}
	if cfg.SpreadThreshold <= 0 {
		cfg.SpreadThreshold = DefaultSpreadThreshold
	}
	return &Classifier{
		margin: cfg.ExtensionMargin,
		spread: cfg.SpreadThreshold,
	}
}

// Config returns the effective thresholds.
func (c *Classifier) Config() ClassifierConfig {
	return ClassifierConfig{ExtensionMargin: c.margin, SpreadThreshold: c.spread}
}

// Fingers reports which of index, middle, ring and pinky are extended.
func (c *Classifier) Fingers(hand detector.HandLandmarks) [4]bool {
	var out [4]bool
	for _, f := range detector.Fingers {
		out[f] = hand.Extension(f) > c.margin
	}
	return out
}

// Pose returns which of index, middle, ring and pinky are extended when s
// is signed. ok is false for letters the classifier does not produce.
func Pose(s Symbol) (extended [4]bool, ok bool) {
	switch s {
	case 'A':
		return [4]bool{}, true
	case 'D':
		return [4]bool{true, false, false, false}, true
	case 'I':
		return [4]bool{false, false, false, true}, true
	case 'U', 'V':
		return [4]bool{true, true, false, false}, true
	case 'W':
		return [4]bool{true, true, true, false}, true
	case 'B':
		return [4]bool{true, true, true, true}, true
	}
	return [4]bool{}, false
}

// Classify returns the letter signed by hand, or None.
//
//	extended                 letter
//	none                     A
//	index                    D
//	pinky                    I
//	index, middle            V if fingertips spread, else U
//	index, middle, ring      W
//	all four                 B
func (c *Classifier) Classify(hand detector.HandLandmarks) Symbol {
	if !hand.Finite() {
		return None
	}
	ext := c.Fingers(hand)
	index, middle, ring, pinky := ext[detector.Index], ext[detector.Middle], ext[detector.Ring], ext[detector.Pinky]

	count := 0
	for _, e := range ext {
		if e {
			count++
		}
	}

	switch count {
	case 0:
		return 'A'
	case 1:
		if index {
			return 'D'
		}
		if pinky {
			return 'I'
		}
	case 2:
		if index && middle {
			gap := math.Abs(hand.Points[detector.IndexTip].X - hand.Points[detector.MiddleTip].X)
			if gap > c.spread {
				return 'V'
			}
			return 'U'
		}
	case 3:
		if index && middle && ring {
			return 'W'
		}
	case 4:
		return 'B'
	}
	return None
}
