package detector

import "gocv.io/x/gocv"

// Detector defines the interface for hand detection implementations.
type Detector interface {
	// Start acquires and configures the underlying engine. It is safe to
	// call Detect without Start; implementations then start lazily.
	Start() error

	// Detect analyzes a video frame and returns detected hand landmarks.
	// Returns an empty slice if no hands are detected.
	Detect(frame *gocv.Mat) ([]HandLandmarks, error)

	// Close releases any resources held by the detector.
	Close() error
}

// Config holds configuration options for hand detection.
type Config struct {
	// MaxHands is the maximum number of hands to detect. Only the first hand
	// drives transcription, so the default is 1.
	MaxHands int `mapstructure:"max_hands" yaml:"max_hands"`

	// MinConfidence is the minimum detection confidence threshold (0.0-1.0).
	MinConfidence float64 `mapstructure:"min_confidence" yaml:"min_confidence"`

	// MinTrackingConf is the minimum tracking confidence threshold (0.0-1.0).
	MinTrackingConf float64 `mapstructure:"min_tracking_confidence" yaml:"min_tracking_confidence"`

	// Script overrides the location of mediapipe_service.py.
	Script string `mapstructure:"script" yaml:"script"`

	// Python overrides the interpreter used to run the script.
	Python string `mapstructure:"python" yaml:"python"`
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() Config {
	return Config{
		MaxHands:        1,
		MinConfidence:   0.5,
		MinTrackingConf: 0.5,
	}
}
