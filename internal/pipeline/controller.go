// Package pipeline turns a stream of hand landmark frames into text. It
// owns the classifier, the debounce gate and the text buffers, serializes
// every operation on them, and publishes state to a single subscriber.
package pipeline

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"gocv.io/x/gocv"

	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/sign"
	"github.com/ayusman/mudra/internal/text"
	"github.com/ayusman/mudra/internal/timeutil"
)

// DefaultNotifyTimeout bounds how long a frame waits on the subscriber or
// the commit hook.
const DefaultNotifyTimeout = 100 * time.Millisecond

// DefaultCommitQueueSize is how many committed words may wait for a slow
// commit hook before new ones are dropped.
const DefaultCommitQueueSize = 64

// commitDrainTimeout bounds how long Shutdown waits for queued commits.
const commitDrainTimeout = 2 * time.Second

var (
	// ErrInitialization wraps any failure to acquire the detector.
	ErrInitialization = errors.New("pipeline initialization failed")
	// ErrNotInitialized is returned by ProcessImage before Initialize.
	ErrNotInitialized = errors.New("pipeline not initialized")
	// ErrShutdown is returned by ProcessImage after Shutdown.
	ErrShutdown = errors.New("pipeline shut down")
)

// Classifier maps one hand to a symbol. sign.Classifier is the production
// implementation.
type Classifier interface {
	Classify(hand detector.HandLandmarks) sign.Symbol
}

// Config holds the Controller's collaborators and tunables. Zero values
// select the defaults.
type Config struct {
	Classifier    Classifier
	Cooldown      time.Duration
	Clock         timeutil.Clock
	Logger        zerolog.Logger
	NotifyTimeout time.Duration

	// CommitQueueSize bounds the commits waiting on the hook.
	CommitQueueSize int

	// OpenDetector creates the detector used by ProcessImage. It is called
	// by Initialize; a nil OpenDetector makes Initialize fail.
	OpenDetector func() (detector.Detector, error)
}

type lifecycle int

const (
	stateIdle lifecycle = iota
	stateReady
	stateClosed
)

// Controller is the single owner of transcription state. All methods are
// safe for concurrent use and execute one at a time.
type Controller struct {
	classifier    Classifier
	clock         timeutil.Clock
	log           zerolog.Logger
	open          func() (detector.Detector, error)
	notifyTimeout time.Duration
	queueSize     int

	mu         sync.Mutex
	acc        *text.Accumulator
	state      lifecycle
	last       DetectionEvent
	seq        uint64
	subscriber Subscriber
	subCall    *latestCall
	commits    *commitQueue

	// detMu serializes detector use so Detect can run without holding mu.
	detMu sync.Mutex
	det   detector.Detector

	inflight sync.WaitGroup
}

// New creates a Controller in the idle state. Frames passed to SubmitFrame
// are processed immediately; ProcessImage requires Initialize.
func New(cfg Config) *Controller {
	if cfg.Classifier == nil {
		cfg.Classifier = sign.NewClassifier(sign.ClassifierConfig{})
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = sign.DefaultCooldown
	}
	if cfg.Clock == nil {
		cfg.Clock = timeutil.RealClock{}
	}
	if cfg.NotifyTimeout <= 0 {
		cfg.NotifyTimeout = DefaultNotifyTimeout
	}
	if cfg.CommitQueueSize <= 0 {
		cfg.CommitQueueSize = DefaultCommitQueueSize
	}

	log := cfg.Logger.With().Str("component", "pipeline").Logger()

	return &Controller{
		classifier:    cfg.Classifier,
		clock:         cfg.Clock,
		log:           log,
		open:          cfg.OpenDetector,
		notifyTimeout: cfg.NotifyTimeout,
		queueSize:     cfg.CommitQueueSize,
		acc:           text.NewAccumulator(cfg.Cooldown),
	}
}

// Initialize acquires and starts the detector. Calling it on a ready
// Controller is a no-op; calling it after Shutdown re-opens the pipeline.
func (c *Controller) Initialize() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == stateReady {
		return nil
	}
	if c.open == nil {
		return fmt.Errorf("%w: no detector configured", ErrInitialization)
	}

	det, err := c.open()
	if err != nil {
		return fmt.Errorf("%w: open detector: %w", ErrInitialization, err)
	}
	if err := det.Start(); err != nil {
		if cerr := det.Close(); cerr != nil {
			c.log.Warn().Err(cerr).Msg("close detector after failed start")
		}
		return fmt.Errorf("%w: start detector: %w", ErrInitialization, err)
	}

	c.detMu.Lock()
	c.det = det
	c.detMu.Unlock()

	c.state = stateReady
	c.log.Info().Msg("pipeline initialized")
	return nil
}

// Shutdown detaches the subscriber and commit hook, releases the detector
// and makes later frame submissions no-ops. Words already committed are
// still delivered to the hook; Shutdown waits a bounded time for them and
// for subscriber calls in flight. Shutdown is idempotent.
func (c *Controller) Shutdown() {
	c.mu.Lock()
	if c.state == stateClosed {
		c.mu.Unlock()
		return
	}
	c.state = stateClosed
	c.subscriber = nil
	if c.subCall != nil {
		c.subCall.close()
		c.subCall = nil
	}
	commits := c.commits
	c.commits = nil
	if commits != nil {
		commits.close()
	}
	c.mu.Unlock()

	c.detMu.Lock()
	if c.det != nil {
		if err := c.det.Close(); err != nil {
			c.log.Warn().Err(err).Msg("close detector")
		}
		c.det = nil
	}
	c.detMu.Unlock()

	if commits != nil && !commits.wait(commitDrainTimeout) {
		c.log.Warn().Msg("commit hook still running at shutdown")
	}
	if !waitTimeout(&c.inflight, c.notifyTimeout) {
		c.log.Warn().Msg("callbacks still running at shutdown")
	}
	c.log.Info().Msg("pipeline shut down")
}

// SetSubscriber replaces the subscriber. A nil subscriber detaches it.
func (c *Controller) SetSubscriber(s Subscriber) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subscriber = s
	if c.subCall != nil {
		c.subCall.close()
		c.subCall = nil
	}
	if s != nil {
		c.subCall = newLatestCall("subscriber", c.notifyTimeout, c.log, &c.inflight)
	}
}

// SetCommitHook replaces the commit hook. A nil hook detaches it. Commits
// queued for the previous hook are still delivered to it.
func (c *Controller) SetCommitHook(h CommitHook) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.commits != nil {
		c.commits.close()
		c.commits = nil
	}
	if h != nil {
		c.commits = newCommitQueue(h, c.queueSize, c.notifyTimeout, c.log)
	}
}

// SubmitFrame processes one detection result stamped with the Controller's
// clock. A nil hand means no hand was in view.
func (c *Controller) SubmitFrame(hand *detector.HandLandmarks) {
	c.SubmitFrameAt(hand, c.clock.Now())
}

// SubmitFrameAt processes one detection result observed at now.
func (c *Controller) SubmitFrameAt(hand *detector.HandLandmarks, now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == stateClosed {
		return
	}
	c.notifyLocked(c.processLocked(hand, now), now)
}

// SubmitPoints processes a raw landmark list. An empty list means no hand;
// a list of the wrong length is treated as a failed frame.
func (c *Controller) SubmitPoints(points []detector.Point3D) {
	now := c.clock.Now()
	if len(points) == 0 {
		c.SubmitFrameAt(nil, now)
		return
	}

	hand, err := detector.FromPoints(points)
	if err != nil {
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.state == stateClosed {
			return
		}
		c.notifyLocked(c.failLocked(err), now)
		return
	}
	c.SubmitFrameAt(&hand, now)
}

// ProcessImage runs the detector on a camera frame and submits the first
// hand found. Detector failures are contained and reported as an absent
// frame; the only errors returned concern the Controller's lifecycle.
func (c *Controller) ProcessImage(frame *gocv.Mat) error {
	c.mu.Lock()
	switch c.state {
	case stateIdle:
		c.mu.Unlock()
		return ErrNotInitialized
	case stateClosed:
		c.mu.Unlock()
		return ErrShutdown
	}
	c.mu.Unlock()

	now := c.clock.Now()
	hands, err := c.detect(frame)

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == stateClosed {
		return ErrShutdown
	}
	if err != nil {
		c.notifyLocked(c.failLocked(err), now)
		return nil
	}

	var hand *detector.HandLandmarks
	if len(hands) > 0 {
		hand = &hands[0]
	}
	c.notifyLocked(c.processLocked(hand, now), now)
	return nil
}

func (c *Controller) detect(frame *gocv.Mat) (hands []detector.HandLandmarks, err error) {
	c.detMu.Lock()
	defer c.detMu.Unlock()

	if c.det == nil {
		return nil, ErrShutdown
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("detector panic: %v", r)
		}
	}()
	return c.det.Detect(frame)
}

// FinishWord commits the current word to the sentence and fires the commit
// hook when the word was non-empty.
func (c *Controller) FinishWord() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == stateClosed {
		return
	}

	if word, ok := c.acc.CommitWord(); ok {
		wordsCommitted.Inc()
		c.log.Info().Str("word", word).Msg("word committed")
		now := c.clock.Now()
		if c.commits != nil {
			c.commits.submit(Commit{Word: word, State: c.acc.Snapshot(), At: now})
		}
		c.notifyLocked(c.last, now)
		return
	}
	c.notifyLocked(c.last, c.clock.Now())
}

// ClearWord discards the current word.
func (c *Controller) ClearWord() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == stateClosed {
		return
	}
	c.acc.ClearWord()
	c.notifyLocked(c.last, c.clock.Now())
}

// ClearSentence discards the sentence and the current word.
func (c *Controller) ClearSentence() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == stateClosed {
		return
	}
	c.acc.ClearSentence()
	c.notifyLocked(c.last, c.clock.Now())
}

// InjectSymbol appends s to the current word without classification or
// debouncing. Invalid symbols are ignored but still produce an update.
func (c *Controller) InjectSymbol(s sign.Symbol) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == stateClosed {
		return
	}
	if s.Valid() {
		c.acc.AppendSymbol(s)
	} else {
		c.log.Debug().Int32("symbol", int32(s)).Msg("ignoring invalid injected symbol")
	}
	c.notifyLocked(c.last, c.clock.Now())
}

// State returns the current word and sentence.
func (c *Controller) State() text.Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.acc.Snapshot()
}

// Current returns the most recent update, as the subscriber last saw it or
// would have seen it.
func (c *Controller) Current() Update {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Update{
		Event: c.last,
		State: c.acc.Snapshot(),
		Seq:   c.seq,
		At:    c.clock.Now(),
	}
}

// Ready reports whether Initialize has succeeded and Shutdown has not been
// called since.
func (c *Controller) Ready() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state == stateReady
}

func (c *Controller) processLocked(hand *detector.HandLandmarks, now time.Time) DetectionEvent {
	if hand == nil {
		framesTotal.WithLabelValues("absent").Inc()
		c.acc.Absent()
		return DetectionEvent{}
	}

	s, err := c.classify(*hand)
	if err != nil {
		return c.failLocked(err)
	}
	framesTotal.WithLabelValues("present").Inc()

	ev := DetectionEvent{Present: true, Symbol: s}
	if c.acc.Offer(s, now) {
		ev.Accepted = true
		symbolsAccepted.WithLabelValues(s.String()).Inc()
		c.log.Debug().Str("symbol", s.String()).Msg("symbol accepted")
	} else if s.Valid() {
		symbolsSuppressed.Inc()
	}
	return ev
}

// failLocked handles a frame that could not be turned into a symbol. It
// counts as an absent frame.
func (c *Controller) failLocked(err error) DetectionEvent {
	framesTotal.WithLabelValues("failed").Inc()
	c.log.Warn().Err(err).Msg("frame failed, treating as absent")
	c.acc.Absent()
	return DetectionEvent{}
}

func (c *Controller) classify(hand detector.HandLandmarks) (s sign.Symbol, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("classifier panic: %v", r)
		}
	}()
	return c.classifier.Classify(hand), nil
}

func (c *Controller) notifyLocked(ev DetectionEvent, now time.Time) {
	c.last = ev
	c.seq++
	if c.subscriber == nil {
		return
	}
	u := Update{
		Event: ev,
		State: c.acc.Snapshot(),
		Seq:   c.seq,
		At:    now,
	}
	sub := c.subscriber
	c.subCall.run(func() error { return sub(u) })
}
