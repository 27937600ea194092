package capture

import (
	"image"
	"sync"

	"gocv.io/x/gocv"
)

// Motion gate defaults.
const (
	DefaultMotionThreshold = 1.0
	DefaultMotionWidth     = 160
	defaultBlurSize        = 21
	defaultPixelDelta      = 25
)

// MotionConfig tunes the motion gate. Zero values select the defaults.
type MotionConfig struct {
	// Threshold is the percentage of changed pixels that counts as motion.
	Threshold  float64
	// Width is the frame width compared. Wider frames are scaled down.
	Width      int
	// BlurSize is the Gaussian kernel size and must be odd.
	BlurSize   int
	// PixelDelta is the grey-level change that marks a pixel as changed.
	PixelDelta float32
}

// Motion is the result of comparing one frame with the previous one.
type Motion struct {
	Moved    bool
	// Changed is the percentage of pixels that changed.
	Changed  float64
	// Baseline is set when the frame only seeded the comparison.
	Baseline bool
}

// MotionDetector decides whether the scene changed enough between frames
// to wake the capture loop. It is safe for concurrent use.
type MotionDetector struct {
	mu       sync.Mutex
	config   MotionConfig
	previous gocv.Mat
	seeded   bool
}

// NewMotionDetector creates a MotionDetector.
func NewMotionDetector(cfg MotionConfig) *MotionDetector {
	if cfg.Threshold <= 0 {
		cfg.Threshold = DefaultMotionThreshold
	}
	if cfg.Width <= 0 {
		cfg.Width = DefaultMotionWidth
	}
	if cfg.BlurSize <= 0 {
		cfg.BlurSize = defaultBlurSize
	}
	if cfg.BlurSize%2 == 0 {
		cfg.BlurSize++
	}
	if cfg.PixelDelta <= 0 {
		cfg.PixelDelta = defaultPixelDelta
	}
	return &MotionDetector{config: cfg, previous: gocv.NewMat()}
}

// Config returns the effective settings.
func (m *MotionDetector) Config() MotionConfig {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.config
}

// Detect compares frame with the previous frame. The first frame after
// construction or Reset only seeds the comparison. A frame whose size
// differs from the previous one also reseeds.
func (m *MotionDetector) Detect(frame *gocv.Mat) Motion {
	m.mu.Lock()
	defer m.mu.Unlock()

	if frame == nil || frame.Empty() {
		return Motion{}
	}

	current := m.prepare(*frame)
	if !m.seeded || current.Rows() != m.previous.Rows() || current.Cols() != m.previous.Cols() {
		m.previous.Close()
		m.previous = current
		m.seeded = true
		return Motion{Baseline: true}
	}

	diff := gocv.NewMat()
	defer diff.Close()
	gocv.AbsDiff(current, m.previous, &diff)
	gocv.Threshold(diff, &diff, m.config.PixelDelta, 255, gocv.ThresholdBinary)
	changed := float64(gocv.CountNonZero(diff)) / float64(diff.Rows()*diff.Cols()) * 100

	m.previous.Close()
	m.previous = current
	return Motion{Moved: changed > m.config.Threshold, Changed: changed}
}

// prepare returns a blurred, scaled-down grey copy of frame.
func (m *MotionDetector) prepare(frame gocv.Mat) gocv.Mat {
	grey := gocv.NewMat()
	if frame.Channels() > 1 {
		gocv.CvtColor(frame, &grey, gocv.ColorBGRToGray)
	} else {
		frame.CopyTo(&grey)
	}

	if grey.Cols() > m.config.Width {
		height := grey.Rows() * m.config.Width / grey.Cols()
		small := gocv.NewMat()
		gocv.Resize(grey, &small, image.Point{X: m.config.Width, Y: height}, 0, 0, gocv.InterpolationArea)
		grey.Close()
		grey = small
	}

	size := m.config.BlurSize
	gocv.GaussianBlur(grey, &grey, image.Point{X: size, Y: size}, 0, 0, gocv.BorderDefault)
	return grey
}

// Reset drops the previous frame so the next one seeds a new comparison.
func (m *MotionDetector) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.previous.Close()
	m.previous = gocv.NewMat()
	m.seeded = false
}

// Close releases the stored frame. The detector can still be used and
// behaves as if freshly Reset.
func (m *MotionDetector) Close() {
	m.Reset()
}
