package capture

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"gocv.io/x/gocv"
)

// Preview holds the most recent camera frame as JPEG for the MJPEG stream.
// Frames are only encoded while at least one viewer is watching.
type Preview struct {
	mu      sync.Mutex
	frame   []byte
	seq     uint64
	changed chan struct{}

	watchers atomic.Int32
}

// NewPreview returns an empty Preview.
func NewPreview() *Preview {
	return &Preview{changed: make(chan struct{})}
}

// Watch registers a viewer. Call the returned function when done.
func (p *Preview) Watch() (stop func()) {
	p.watchers.Add(1)
	var once sync.Once
	return func() {
		once.Do(func() { p.watchers.Add(-1) })
	}
}

// Watching reports whether any viewer is registered.
func (p *Preview) Watching() bool {
	return p.watchers.Load() > 0
}

// Publish encodes frame as JPEG and stores it if anyone is watching.
func (p *Preview) Publish(frame *gocv.Mat) error {
	if !p.Watching() || frame == nil || frame.Empty() {
		return nil
	}

	buf, err := gocv.IMEncode(".jpg", *frame)
	if err != nil {
		return fmt.Errorf("encode preview frame: %w", err)
	}
	defer buf.Close()

	data := append([]byte(nil), buf.GetBytes()...)
	p.PublishJPEG(data)
	return nil
}

// PublishJPEG stores an already encoded frame and wakes waiting viewers.
func (p *Preview) PublishJPEG(data []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.frame = data
	p.seq++
	close(p.changed)
	p.changed = make(chan struct{})
}

// Next blocks until a frame newer than after is available and returns it
// with its sequence number.
func (p *Preview) Next(ctx context.Context, after uint64) ([]byte, uint64, error) {
	for {
		p.mu.Lock()
		if p.seq > after {
			frame, seq := p.frame, p.seq
			p.mu.Unlock()
			return frame, seq, nil
		}
		changed := p.changed
		p.mu.Unlock()

		select {
		case <-ctx.Done():
			return nil, after, ctx.Err()
		case <-changed:
		}
	}
}
