// Package recording stores landmark frames as JSON lines and replays them
// through the pipeline deterministically.
package recording

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"gocv.io/x/gocv"

	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/timeutil"
)

// Record is one frame: when it was seen relative to the first frame, and
// the first hand's landmarks if any.
type Record struct {
	TMs     int64              `json:"t_ms"`
	Present bool               `json:"present"`
	Points  []detector.Point3D `json:"points,omitempty"`
}

// Writer appends records to an underlying writer. It is safe for
// concurrent use.
type Writer struct {
	mu    sync.Mutex
	buf   *bufio.Writer
	enc   *json.Encoder
	start time.Time
	count int
}

// NewWriter returns a Writer that encodes records to w.
func NewWriter(w io.Writer) *Writer {
	buf := bufio.NewWriter(w)
	return &Writer{
		buf: buf,
		enc: json.NewEncoder(buf),
	}
}

// WriteFrame records hand (nil when absent) observed at at. The first frame
// defines t_ms = 0.
func (w *Writer) WriteFrame(hand *detector.HandLandmarks, at time.Time) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.count == 0 {
		w.start = at
	}
	rec := Record{TMs: at.Sub(w.start).Milliseconds()}
	if hand != nil {
		rec.Present = true
		rec.Points = hand.Points[:]
	}
	return w.writeLocked(rec)
}

// Write appends rec as-is.
func (w *Writer) Write(rec Record) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.writeLocked(rec)
}

func (w *Writer) writeLocked(rec Record) error {
	if err := w.enc.Encode(rec); err != nil {
		return fmt.Errorf("encode record: %w", err)
	}
	w.count++
	return nil
}

// Count returns the number of records written.
func (w *Writer) Count() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.count
}

// Flush writes buffered records to the underlying writer.
func (w *Writer) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.buf.Flush()
}

// Reader streams records from JSON lines. Blank lines are skipped.
type Reader struct {
	scanner *bufio.Scanner
	line    int
}

// NewReader returns a Reader over r.
func NewReader(r io.Reader) *Reader {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return &Reader{scanner: scanner}
}

// Next returns the next record, or io.EOF when the input is exhausted.
func (r *Reader) Next() (Record, error) {
	for r.scanner.Scan() {
		r.line++
		data := r.scanner.Bytes()
		if len(data) == 0 {
			continue
		}
		var rec Record
		if err := json.Unmarshal(data, &rec); err != nil {
			return Record{}, fmt.Errorf("line %d: %w", r.line, err)
		}
		return rec, nil
	}
	if err := r.scanner.Err(); err != nil {
		return Record{}, err
	}
	return Record{}, io.EOF
}

// ReadAll returns every remaining record.
func (r *Reader) ReadAll() ([]Record, error) {
	var records []Record
	for {
		rec, err := r.Next()
		if errors.Is(err, io.EOF) {
			return records, nil
		}
		if err != nil {
			return records, err
		}
		records = append(records, rec)
	}
}

// Sink receives replayed frames. pipeline.Controller satisfies it.
type Sink interface {
	SubmitPoints(points []detector.Point3D)
}

// Replay feeds every record from r into sink. Before each record, clock is
// set to its start time plus t_ms, so sink must read time from the same
// clock. It returns the number of records replayed.
func Replay(ctx context.Context, r *Reader, sink Sink, clock *timeutil.MockClock) (int, error) {
	base := clock.Now()
	n := 0
	for {
		if err := ctx.Err(); err != nil {
			return n, err
		}

		rec, err := r.Next()
		if errors.Is(err, io.EOF) {
			return n, nil
		}
		if err != nil {
			return n, err
		}

		clock.Set(base.Add(time.Duration(rec.TMs) * time.Millisecond))
		if rec.Present {
			sink.SubmitPoints(rec.Points)
		} else {
			sink.SubmitPoints(nil)
		}
		n++
	}
}

// Detector wraps another detector and records the first hand of every
// detection. A failed detection is recorded as an absent frame, which is
// how the pipeline treats it.
type Detector struct {
	inner  detector.Detector
	writer *Writer
	clock  timeutil.Clock
	onErr  func(error)
}

// NewDetector returns a recording wrapper around inner. Write failures are
// passed to onErr, which may be nil.
func NewDetector(inner detector.Detector, w *Writer, clock timeutil.Clock, onErr func(error)) *Detector {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	return &Detector{inner: inner, writer: w, clock: clock, onErr: onErr}
}

// Start starts the wrapped detector.
func (d *Detector) Start() error {
	return d.inner.Start()
}

// Detect runs the wrapped detector and records its result.
func (d *Detector) Detect(frame *gocv.Mat) ([]detector.HandLandmarks, error) {
	hands, err := d.inner.Detect(frame)

	var hand *detector.HandLandmarks
	if err == nil && len(hands) > 0 {
		hand = &hands[0]
	}
	if werr := d.writer.WriteFrame(hand, d.clock.Now()); werr != nil && d.onErr != nil {
		d.onErr(werr)
	}
	return hands, err
}

// Close flushes the recording and closes the wrapped detector.
func (d *Detector) Close() error {
	ferr := d.writer.Flush()
	if err := d.inner.Close(); err != nil {
		return err
	}
	return ferr
}
