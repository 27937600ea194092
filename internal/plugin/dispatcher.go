package plugin

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

var (
	pluginCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mudra_plugin_calls_total",
			Help: "Plugin invocations, by plugin and result (ok, failed, error)",
		},
		[]string{"plugin", "result"},
	)

	pluginDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mudra_plugin_dropped_total",
			Help: "Committed words dropped because the plugin queue was full",
		},
	)
)

// Runner executes one plugin request. *Executor is the production Runner.
type Runner interface {
	Execute(ctx context.Context, plugin *Plugin, req *Request) (*Response, error)
}

// DispatcherConfig configures a Dispatcher.
type DispatcherConfig struct {
	// Enabled names the plugins to run, in order, for every word.
	Enabled []string
	// QueueSize bounds the number of words waiting for the worker.
	QueueSize int
	// Configs holds the per-plugin config object sent with each request.
	Configs map[string]json.RawMessage
	Logger  zerolog.Logger
}

// Dispatcher hands committed words to plugins on a single worker goroutine so
// slow plugins never hold up recognition.
type Dispatcher struct {
	mgr     *Manager
	runner  Runner
	enabled []string
	configs map[string]json.RawMessage
	log     zerolog.Logger

	queue chan Request

	mu        sync.RWMutex
	closed    bool
	startOnce sync.Once
	wg        sync.WaitGroup
}

// NewDispatcher creates a Dispatcher. Call Start to begin processing.
func NewDispatcher(mgr *Manager, runner Runner, cfg DispatcherConfig) *Dispatcher {
	size := cfg.QueueSize
	if size <= 0 {
		size = 16
	}
	return &Dispatcher{
		mgr:     mgr,
		runner:  runner,
		enabled: append([]string(nil), cfg.Enabled...),
		configs: cfg.Configs,
		log:     cfg.Logger.With().Str("component", "dispatcher").Logger(),
		queue:   make(chan Request, size),
	}
}

// Start launches the worker. It runs until Close; ctx bounds each plugin
// call.
func (d *Dispatcher) Start(ctx context.Context) {
	d.startOnce.Do(func() {
		d.wg.Add(1)
		go d.run(ctx)
	})
}

// Submit queues a word without blocking. It returns false when the queue is
// full or the dispatcher is closed.
func (d *Dispatcher) Submit(word, sentence string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed || len(d.enabled) == 0 {
		return false
	}

	select {
	case d.queue <- Request{Action: ActionWord, Word: word, Sentence: sentence}:
		return true
	default:
		pluginDropped.Inc()
		d.log.Warn().Str("word", word).Int("queue_size", cap(d.queue)).Msg("plugin queue full, dropping word")
		return false
	}
}

// Close stops accepting words, lets the worker drain the queue and waits for
// it to exit.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()

	d.wg.Wait()
}

func (d *Dispatcher) run(ctx context.Context) {
	defer d.wg.Done()

	for req := range d.queue {
		for _, name := range d.enabled {
			d.dispatch(ctx, name, req)
		}
	}
}

func (d *Dispatcher) dispatch(ctx context.Context, name string, req Request) {
	log := d.log.With().Str("plugin", name).Str("word", req.Word).Logger()

	plugin, err := d.mgr.Get(name)
	if err != nil {
		if errors.Is(err, ErrPluginNotFound) {
			log.Warn().Msg("enabled plugin not found")
		} else {
			log.Error().Err(err).Msg("look up plugin")
		}
		return
	}
	if !plugin.Manifest.Supports(req.Action) {
		log.Debug().Str("action", req.Action).Msg("plugin does not handle action")
		return
	}

	req.Config = d.configs[name]

	resp, err := d.runner.Execute(ctx, plugin, &req)
	switch {
	case err != nil:
		pluginCalls.WithLabelValues(name, "error").Inc()
		log.Error().Err(err).Msg("plugin execution failed")
	case !resp.Success:
		pluginCalls.WithLabelValues(name, "failed").Inc()
		log.Warn().Str("error", resp.Error).Msg("plugin reported failure")
	default:
		pluginCalls.WithLabelValues(name, "ok").Inc()
		log.Debug().Msg("plugin handled word")
	}
}
