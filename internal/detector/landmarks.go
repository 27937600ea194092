// Package detector provides hand landmark types and the interface to the
// external hand-pose detector that produces them.
package detector

import (
	"errors"
	"fmt"
	"math"
)

// Hand landmark indices following MediaPipe convention.
// See: https://developers.google.com/mediapipe/solutions/vision/hand_landmarker
const (
	Wrist        = 0
	ThumbCMC     = 1
	ThumbMCP     = 2
	ThumbIP      = 3
	ThumbTip     = 4
	IndexMCP     = 5
	IndexPIP     = 6
	IndexDIP     = 7
	IndexTip     = 8
	MiddleMCP    = 9
	MiddlePIP    = 10
	MiddleDIP    = 11
	MiddleTip    = 12
	RingMCP      = 13
	RingPIP      = 14
	RingDIP      = 15
	RingTip      = 16
	PinkyMCP     = 17
	PinkyPIP     = 18
	PinkyDIP     = 19
	PinkyTip     = 20
	NumLandmarks = 21
)

// ErrLandmarkCount is returned when a point list does not hold exactly
// NumLandmarks points.
var ErrLandmarkCount = errors.New("wrong number of landmarks")

// ErrNonFinite is returned when a point list holds NaN or infinite
// coordinates.
var ErrNonFinite = errors.New("non-finite landmark coordinate")

// Point3D is one landmark in normalized image coordinates. Y grows downward,
// so a smaller Y is higher on screen.
type Point3D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// HandLandmarks represents the 21 hand landmarks detected by MediaPipe.
type HandLandmarks struct {
	Points     [NumLandmarks]Point3D `json:"points"`
	Handedness string                `json:"handedness"` // "Left" or "Right"
	Score      float64               `json:"score"`
}

// FromPoints builds a HandLandmarks from an ordered point list.
func FromPoints(points []Point3D) (HandLandmarks, error) {
	var h HandLandmarks
	if len(points) != NumLandmarks {
		return h, fmt.Errorf("%w: got %d, want %d", ErrLandmarkCount, len(points), NumLandmarks)
	}
	copy(h.Points[:], points)
	if i := h.firstNonFinite(); i >= 0 {
		return HandLandmarks{}, fmt.Errorf("%w: point %d is %+v", ErrNonFinite, i, points[i])
	}
	return h, nil
}

// Finite reports whether every coordinate is a finite number.
func (h HandLandmarks) Finite() bool {
	return h.firstNonFinite() < 0
}

func (h HandLandmarks) firstNonFinite() int {
	for i, p := range h.Points {
		for _, v := range [3]float64{p.X, p.Y, p.Z} {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return i
			}
		}
	}
	return -1
}

// Finger identifies one of the four non-thumb fingers.
type Finger int

const (
	Index Finger = iota
	Middle
	Ring
	Pinky
)

// Fingers lists the non-thumb fingers from index to pinky.
var Fingers = [4]Finger{Index, Middle, Ring, Pinky}

var fingerJoints = [4]struct {
	name      string
	tip, base int
}{
	{"index", IndexTip, IndexMCP},
	{"middle", MiddleTip, MiddleMCP},
	{"ring", RingTip, RingMCP},
	{"pinky", PinkyTip, PinkyMCP},
}

// Tip returns the landmark index of the fingertip.
func (f Finger) Tip() int { return fingerJoints[f].tip }

// Base returns the landmark index of the finger's MCP knuckle.
func (f Finger) Base() int { return fingerJoints[f].base }

func (f Finger) String() string {
	if f < Index || f > Pinky {
		return fmt.Sprintf("Finger(%d)", int(f))
	}
	return fingerJoints[f].name
}

// Extension returns how far the fingertip sits above its base knuckle in
// normalized units. Positive values mean the tip is higher on screen.
func (h *HandLandmarks) Extension(f Finger) float64 {
	return h.Points[f.Base()].Y - h.Points[f.Tip()].Y
}
