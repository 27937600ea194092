package pipeline

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// latestCall delivers updates to one subscriber on a helper goroutine and
// waits at most timeout for each. At most one call is in flight. Updates
// that arrive while it runs replace each other, and the newest one is
// delivered when the running call returns.
type latestCall struct {
	target   string
	timeout  time.Duration
	log      zerolog.Logger
	inflight *sync.WaitGroup

	mu      sync.Mutex
	busy    bool
	closed  bool
	pending func() error
}

func newLatestCall(target string, timeout time.Duration, log zerolog.Logger, inflight *sync.WaitGroup) *latestCall {
	return &latestCall{
		target:   target,
		timeout:  timeout,
		log:      log,
		inflight: inflight,
	}
}

// run invokes fn and reports whether it finished within the timeout. When
// a previous call is still running, fn is parked as the pending update and
// run returns false at once.
func (c *latestCall) run(fn func() error) bool {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return false
	}
	if c.busy {
		if c.pending != nil {
			notifyDropped.WithLabelValues(c.target).Inc()
		}
		c.pending = fn
		c.mu.Unlock()
		return false
	}
	c.busy = true
	c.mu.Unlock()

	done := make(chan struct{})
	c.inflight.Add(1)
	go func() {
		defer c.inflight.Done()
		first := true
		for fn != nil {
			invoke(c.target, c.log, fn)
			if first {
				close(done)
				first = false
			}
			c.mu.Lock()
			fn, c.pending = c.pending, nil
			if fn == nil {
				c.busy = false
			}
			c.mu.Unlock()
		}
	}()

	return waitDone(done, c.timeout, c.target, c.log)
}

// close discards any pending update; later calls are ignored.
func (c *latestCall) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	c.pending = nil
}

// commitQueue delivers commits to the hook in order on a single worker.
// The caller waits at most timeout for its own commit. Commits are only
// discarded when the queue is full.
type commitQueue struct {
	hook    CommitHook
	timeout time.Duration
	log     zerolog.Logger
	items   chan commitItem
	done    chan struct{}
}

type commitItem struct {
	commit Commit
	done   chan struct{}
}

func newCommitQueue(hook CommitHook, size int, timeout time.Duration, log zerolog.Logger) *commitQueue {
	q := &commitQueue{
		hook:    hook,
		timeout: timeout,
		log:     log,
		items:   make(chan commitItem, size),
		done:    make(chan struct{}),
	}
	go q.work()
	return q
}

func (q *commitQueue) work() {
	defer close(q.done)
	for item := range q.items {
		start := time.Now()
		invoke("commit_hook", q.log, func() error { return q.hook(item.commit) })
		if elapsed := time.Since(start); elapsed > q.timeout {
			q.log.Warn().Str("word", item.commit.Word).Dur("elapsed", elapsed).Msg("commit hook is slow")
		}
		close(item.done)
	}
}

// submit queues c and reports whether the hook finished with it within
// the timeout. Must not be called after close.
func (q *commitQueue) submit(c Commit) bool {
	item := commitItem{commit: c, done: make(chan struct{})}
	select {
	case q.items <- item:
	default:
		notifyDropped.WithLabelValues("commit_hook").Inc()
		q.log.Error().Str("word", c.Word).Int("queue", cap(q.items)).Msg("commit hook queue full, dropping word")
		return false
	}
	return waitDone(item.done, q.timeout, "commit_hook", q.log)
}

// close stops accepting commits. The worker delivers what is queued and
// then exits; wait reports when it has.
func (q *commitQueue) close() {
	close(q.items)
}

func (q *commitQueue) wait(d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-q.done:
		return true
	case <-timer.C:
		return false
	}
}

// invoke runs fn, recovering panics. Errors and panics are logged and
// counted against target.
func invoke(target string, log zerolog.Logger, fn func() error) {
	defer func() {
		if r := recover(); r != nil {
			notifyFailures.WithLabelValues(target).Inc()
			log.Error().Str("target", target).Str("panic", fmt.Sprint(r)).Msg("callback panicked")
		}
	}()
	if err := fn(); err != nil {
		notifyFailures.WithLabelValues(target).Inc()
		log.Warn().Err(err).Str("target", target).Msg("callback failed")
	}
}

func waitDone(done <-chan struct{}, timeout time.Duration, target string, log zerolog.Logger) bool {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-done:
		return true
	case <-timer.C:
		log.Warn().Str("target", target).Dur("timeout", timeout).Msg("callback is slow, continuing without it")
		return false
	}
}

// waitTimeout waits for wg or gives up after d.
func waitTimeout(wg *sync.WaitGroup, d time.Duration) bool {
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-done:
		return true
	case <-timer.C:
		return false
	}
}
