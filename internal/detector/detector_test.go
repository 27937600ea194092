package detector

import (
	"errors"
	"math"
	"testing"
)

func TestFromPoints(t *testing.T) {
	t.Run("copies 21 points in order", func(t *testing.T) {
		points := make([]Point3D, NumLandmarks)
		for i := range points {
			points[i] = Point3D{X: float64(i) / 100, Y: float64(i) / 50}
		}

		hand, err := FromPoints(points)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		for i := range points {
			if hand.Points[i] != points[i] {
				t.Errorf("point %d = %+v, want %+v", i, hand.Points[i], points[i])
			}
		}
	})

	t.Run("rejects wrong length", func(t *testing.T) {
		for _, n := range []int{0, 20, 22} {
			_, err := FromPoints(make([]Point3D, n))
			if !errors.Is(err, ErrLandmarkCount) {
				t.Errorf("len %d: expected ErrLandmarkCount, got %v", n, err)
			}
		}
	})
}

func TestFromPoints_RejectsNonFinite(t *testing.T) {
	for _, v := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		points := make([]Point3D, NumLandmarks)
		points[IndexTip].Y = v

		_, err := FromPoints(points)
		if !errors.Is(err, ErrNonFinite) {
			t.Errorf("%v: expected ErrNonFinite, got %v", v, err)
		}
	}
}

func TestHandLandmarks_Finite(t *testing.T) {
	hand := PointLandmarks()
	if !hand.Finite() {
		t.Fatal("preset pose should be finite")
	}
	hand.Points[Wrist].Z = math.NaN()
	if hand.Finite() {
		t.Error("NaN coordinate reported as finite")
	}
}

func TestFinger_Joints(t *testing.T) {
	tests := []struct {
		finger    Finger
		tip, base int
		name      string
	}{
		{Index, IndexTip, IndexMCP, "index"},
		{Middle, MiddleTip, MiddleMCP, "middle"},
		{Ring, RingTip, RingMCP, "ring"},
		{Pinky, PinkyTip, PinkyMCP, "pinky"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.finger.Tip(); got != tt.tip {
				t.Errorf("Tip() = %d, want %d", got, tt.tip)
			}
			if got := tt.finger.Base(); got != tt.base {
				t.Errorf("Base() = %d, want %d", got, tt.base)
			}
			if got := tt.finger.String(); got != tt.name {
				t.Errorf("String() = %q, want %q", got, tt.name)
			}
		})
	}

	if got := Finger(9).String(); got != "Finger(9)" {
		t.Errorf("out of range String() = %q", got)
	}
}

func TestHandLandmarks_Extension(t *testing.T) {
	hand := HandLandmarks{}
	hand.Points[IndexMCP] = Point3D{Y: 0.6}
	hand.Points[IndexTip] = Point3D{Y: 0.3}

	if got := hand.Extension(Index); got < 0.299 || got > 0.301 {
		t.Errorf("expected extension 0.3, got %f", got)
	}

	hand.Points[IndexTip] = Point3D{Y: 0.7}
	if got := hand.Extension(Index); got >= 0 {
		t.Errorf("expected negative extension for curled finger, got %f", got)
	}
}

func TestMockDetector(t *testing.T) {
	t.Run("returns empty hands by default", func(t *testing.T) {
		mock := NewMockDetector()

		hands, err := mock.Detect(nil)

		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		if hands != nil {
			t.Errorf("expected nil hands, got %v", hands)
		}
	})

	t.Run("returns configured hands", func(t *testing.T) {
		mock := NewMockDetector()
		mock.SetHands([]HandLandmarks{FistLandmarks(), OpenPalmLandmarks()})

		hands, err := mock.Detect(nil)

		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		if len(hands) != 2 {
			t.Errorf("expected 2 hands, got %d", len(hands))
		}
	})

	t.Run("returns configured error", func(t *testing.T) {
		mock := NewMockDetector()

		expectedErr := errors.New("detection failed")
		mock.SetError(expectedErr)

		hands, err := mock.Detect(nil)

		if err != expectedErr {
			t.Errorf("expected error %v, got %v", expectedErr, err)
		}
		if hands != nil {
			t.Errorf("expected nil hands when error is set, got %v", hands)
		}
	})

	t.Run("start error and call counts", func(t *testing.T) {
		mock := NewMockDetector()
		startErr := errors.New("no camera permission")
		mock.SetStartError(startErr)

		if err := mock.Start(); err != startErr {
			t.Errorf("expected start error %v, got %v", startErr, err)
		}
		mock.Detect(nil)
		if err := mock.Close(); err != nil {
			t.Errorf("expected Close to return nil, got %v", err)
		}

		starts, detects, closes := mock.Calls()
		if starts != 1 || detects != 1 || closes != 1 {
			t.Errorf("calls = (%d, %d, %d), want (1, 1, 1)", starts, detects, closes)
		}
	})

	t.Run("implements Detector interface", func(t *testing.T) {
		var _ Detector = (*MockDetector)(nil)
		var _ Detector = (*MediaPipeDetector)(nil)
	})
}

func TestPoseLandmarks(t *testing.T) {
	const margin = 0.05

	extendedSet := func(hand HandLandmarks) map[Finger]bool {
		out := map[Finger]bool{}
		for _, f := range Fingers {
			if hand.Extension(f) > margin {
				out[f] = true
			}
		}
		return out
	}

	tests := []struct {
		name string
		hand HandLandmarks
		want []Finger
	}{
		{"fist", FistLandmarks(), nil},
		{"point", PointLandmarks(), []Finger{Index}},
		{"pinky", PinkyLandmarks(), []Finger{Pinky}},
		{"two fingers", TwoFingersLandmarks(), []Finger{Index, Middle}},
		{"peace", PeaceLandmarks(), []Finger{Index, Middle}},
		{"three fingers", ThreeFingersLandmarks(), []Finger{Index, Middle, Ring}},
		{"open palm", OpenPalmLandmarks(), []Finger{Index, Middle, Ring, Pinky}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := extendedSet(tt.hand)
			if len(got) != len(tt.want) {
				t.Fatalf("extended = %v, want %v", got, tt.want)
			}
			for _, f := range tt.want {
				if !got[f] {
					t.Errorf("expected %s extended", f)
				}
			}
		})
	}

	t.Run("peace spreads fingertips, two fingers keeps them together", func(t *testing.T) {
		peace := PeaceLandmarks()
		together := TwoFingersLandmarks()

		spread := peace.Points[IndexTip].X - peace.Points[MiddleTip].X
		if spread <= margin {
			t.Errorf("expected peace fingertip spread > %f, got %f", margin, spread)
		}
		closeGap := together.Points[IndexTip].X - together.Points[MiddleTip].X
		if closeGap > margin {
			t.Errorf("expected together fingertip gap <= %f, got %f", margin, closeGap)
		}
	})
}
