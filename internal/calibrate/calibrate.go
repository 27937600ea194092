// Package calibrate summarizes labelled landmark samples so the extension
// margin can be tuned to a particular camera and signer.
package calibrate

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/sign"
)

// ErrNoSamples is returned when no sample carries a usable label.
var ErrNoSamples = errors.New("no labelled samples")

// Sample is one labelled hand.
type Sample struct {
	Label sign.Symbol
	Hand  detector.HandLandmarks
}

// Population summarizes extension values.
type Population struct {
	N      int     `json:"n"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"stddev"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
}

// FingerStats splits one finger's extensions by whether the label expects
// it extended or curled.
type FingerStats struct {
	Finger   detector.Finger `json:"-"`
	Name     string          `json:"finger"`
	Extended Population      `json:"extended"`
	Curled   Population      `json:"curled"`
}

// Report is the result of Analyze.
type Report struct {
	Samples int           `json:"samples"`
	Skipped int           `json:"skipped"`
	Fingers []FingerStats `json:"fingers"`
	// SuggestedMargin sits midway between the highest curled and the lowest
	// extended value. When the populations overlap it falls back to the
	// midpoint of their means and Separable is false.
	SuggestedMargin float64 `json:"suggested_margin"`
	Separable       bool    `json:"separable"`
}

// Analyze computes per-finger extension statistics over samples. Samples
// whose label the classifier cannot produce are counted as skipped.
func Analyze(samples []Sample) (Report, error) {
	var (
		report                 Report
		extended, curled       [4][]float64
		allExtended, allCurled []float64
	)

	for _, s := range samples {
		pose, ok := sign.Pose(s.Label)
		if !ok {
			report.Skipped++
			continue
		}
		report.Samples++
		for i, f := range detector.Fingers {
			v := s.Hand.Extension(f)
			if pose[i] {
				extended[i] = append(extended[i], v)
				allExtended = append(allExtended, v)
			} else {
				curled[i] = append(curled[i], v)
				allCurled = append(allCurled, v)
			}
		}
	}
	if report.Samples == 0 {
		return report, ErrNoSamples
	}

	for i, f := range detector.Fingers {
		report.Fingers = append(report.Fingers, FingerStats{
			Finger:   f,
			Name:     f.String(),
			Extended: summarize(extended[i]),
			Curled:   summarize(curled[i]),
		})
	}

	report.SuggestedMargin, report.Separable = suggestMargin(allExtended, allCurled)
	return report, nil
}

func summarize(xs []float64) Population {
	if len(xs) == 0 {
		return Population{}
	}
	mean, std := stat.MeanStdDev(xs, nil)
	if math.IsNaN(std) {
		std = 0
	}
	return Population{
		N:      len(xs),
		Mean:   mean,
		StdDev: std,
		Min:    floats.Min(xs),
		Max:    floats.Max(xs),
	}
}

// suggestMargin picks a threshold between the curled and extended
// populations. With only one population present it keeps the default.
func suggestMargin(extended, curled []float64) (float64, bool) {
	if len(extended) == 0 || len(curled) == 0 {
		return sign.DefaultExtensionMargin, false
	}
	lo, hi := floats.Max(curled), floats.Min(extended)
	if lo < hi {
		return (lo + hi) / 2, true
	}
	return (stat.Mean(curled, nil) + stat.Mean(extended, nil)) / 2, false
}
