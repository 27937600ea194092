package detector

import (
	"sync"

	"gocv.io/x/gocv"
)

// MockDetector is a test implementation of the Detector interface.
// It allows tests to control the detection results.
type MockDetector struct {
	mu       sync.Mutex
	hands    []HandLandmarks
	err      error
	startErr error
	starts   int
	closes   int
	detects  int
}

// NewMockDetector creates a new MockDetector instance.
func NewMockDetector() *MockDetector {
	return &MockDetector{}
}

// SetHands sets the hands that will be returned by Detect.
func (m *MockDetector) SetHands(hands []HandLandmarks) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hands = hands
}

// SetError sets the error that will be returned by Detect.
func (m *MockDetector) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// SetStartError sets the error that will be returned by Start.
func (m *MockDetector) SetStartError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.startErr = err
}

// Start records the call and returns the configured start error.
func (m *MockDetector) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.starts++
	return m.startErr
}

// Detect returns the pre-configured hands or error.
func (m *MockDetector) Detect(frame *gocv.Mat) ([]HandLandmarks, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.detects++
	if m.err != nil {
		return nil, m.err
	}
	return m.hands, nil
}

// Close records the call.
func (m *MockDetector) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closes++
	return nil
}

// Calls reports how many times Start, Detect and Close have been called.
func (m *MockDetector) Calls() (starts, detects, closes int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.starts, m.detects, m.closes
}

// Finger layout for the preset poses, in normalized image coordinates.
const (
	poseWristY    = 0.85
	poseBaseY     = 0.65
	poseExtendedY = 0.35
	poseCurledY   = 0.70
)

var poseBaseX = [4]float64{0.56, 0.52, 0.48, 0.44}

// PoseLandmarks builds a right hand, palm facing the camera, with the given
// fingers pointing straight up and the rest curled into the palm. When
// spread is true the index and middle fingertips are pushed apart.
func PoseLandmarks(spread bool, extended ...Finger) HandLandmarks {
	hand := HandLandmarks{
		Handedness: "Right",
		Score:      0.95,
	}

	hand.Points[Wrist] = Point3D{X: 0.47, Y: poseWristY}

	// Thumb tucked across the palm.
	hand.Points[ThumbCMC] = Point3D{X: 0.55, Y: 0.80, Z: 0.01}
	hand.Points[ThumbMCP] = Point3D{X: 0.58, Y: 0.74, Z: 0.01}
	hand.Points[ThumbIP] = Point3D{X: 0.55, Y: 0.70, Z: 0.01}
	hand.Points[ThumbTip] = Point3D{X: 0.51, Y: 0.69, Z: 0.01}

	up := make(map[Finger]bool, len(extended))
	for _, f := range extended {
		up[f] = true
	}

	for _, f := range Fingers {
		baseX := poseBaseX[f]
		tipX := baseX
		tipY := poseCurledY
		z := -0.03
		if up[f] {
			tipY = poseExtendedY
			z = 0
			if spread {
				switch f {
				case Index:
					tipX = baseX + 0.04
				case Middle:
					tipX = baseX - 0.04
				}
			}
		}

		base := Point3D{X: baseX, Y: poseBaseY}
		tip := Point3D{X: tipX, Y: tipY, Z: z}
		hand.Points[f.Base()] = base
		// PIP and DIP sit evenly between the knuckle and the tip.
		hand.Points[f.Base()+1] = lerp(base, tip, 1.0/3)
		hand.Points[f.Base()+2] = lerp(base, tip, 2.0/3)
		hand.Points[f.Tip()] = tip
	}

	return hand
}

func lerp(a, b Point3D, t float64) Point3D {
	return Point3D{
		X: a.X + (b.X-a.X)*t,
		Y: a.Y + (b.Y-a.Y)*t,
		Z: a.Z + (b.Z-a.Z)*t,
	}
}

// FistLandmarks returns a closed fist with every finger curled.
func FistLandmarks() HandLandmarks { return PoseLandmarks(false) }

// PointLandmarks returns a hand with only the index finger raised.
func PointLandmarks() HandLandmarks { return PoseLandmarks(false, Index) }

// PinkyLandmarks returns a hand with only the pinky raised.
func PinkyLandmarks() HandLandmarks { return PoseLandmarks(false, Pinky) }

// TwoFingersLandmarks returns index and middle raised and held together.
func TwoFingersLandmarks() HandLandmarks { return PoseLandmarks(false, Index, Middle) }

// PeaceLandmarks returns index and middle raised and spread apart.
func PeaceLandmarks() HandLandmarks { return PoseLandmarks(true, Index, Middle) }

// ThreeFingersLandmarks returns index, middle and ring raised.
func ThreeFingersLandmarks() HandLandmarks { return PoseLandmarks(false, Index, Middle, Ring) }

// OpenPalmLandmarks returns all four fingers raised.
func OpenPalmLandmarks() HandLandmarks { return PoseLandmarks(false, Index, Middle, Ring, Pinky) }
