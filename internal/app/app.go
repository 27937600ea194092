// Package app wires the camera, the recognition pipeline, the transcript
// store and the output plugins into the running mudra service.
package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/ayusman/mudra/internal/capture"
	"github.com/ayusman/mudra/internal/config"
	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/pipeline"
	"github.com/ayusman/mudra/internal/plugin"
	"github.com/ayusman/mudra/internal/recording"
	"github.com/ayusman/mudra/internal/sign"
	"github.com/ayusman/mudra/internal/store"
	"github.com/ayusman/mudra/internal/timeutil"
)

// Config holds the application's settings and optional collaborators.
// Nil collaborators are built from Settings.
type Config struct {
	Settings *config.Config
	Store    *store.Store
	Camera   capture.Camera
	Clock    timeutil.Clock
	Logger   zerolog.Logger

	// OpenDetector overrides the default detector, MediaPipe with a mock
	// fallback.
	OpenDetector func() (detector.Detector, error)
	// Recorder, when set, receives every detection result.
	Recorder *recording.Writer
	// PluginRunner overrides the plugin executor.
	PluginRunner plugin.Runner
}

// App is the main application that runs the capture loop and routes its
// output.
type App struct {
	settings *config.Config
	store    *store.Store
	camera   capture.Camera
	clock    timeutil.Clock
	log      zerolog.Logger
	open     func() (detector.Detector, error)
	recorder *recording.Writer

	motion    *capture.MotionDetector
	activity  *capture.Activity
	preview   *capture.Preview
	ctrl      *pipeline.Controller
	pluginMgr *plugin.Manager
	runner    plugin.Runner

	mu         sync.RWMutex
	enabled    bool
	subscriber pipeline.Subscriber
	dispatcher *plugin.Dispatcher
	session    *store.Session
	cancel     context.CancelFunc
	stopCh     chan struct{}
	done       chan struct{}
}

// New creates an App. Nothing is opened until Start.
func New(cfg Config) (*App, error) {
	settings := cfg.Settings
	if settings == nil {
		settings = config.DefaultConfig()
	}
	if err := settings.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if cfg.Clock == nil {
		cfg.Clock = timeutil.RealClock{}
	}

	a := &App{
		settings:  settings,
		store:     cfg.Store,
		camera:    cfg.Camera,
		clock:     cfg.Clock,
		log:       cfg.Logger.With().Str("component", "app").Logger(),
		open:      cfg.OpenDetector,
		recorder:  cfg.Recorder,
		motion:    capture.NewMotionDetector(capture.MotionConfig{Threshold: settings.Camera.MotionThreshold}),
		activity:  newActivity(settings.Camera),
		preview:   capture.NewPreview(),
		pluginMgr: plugin.NewManager(settings.Plugins.Dir, cfg.Logger),
		runner:    cfg.PluginRunner,
		enabled:   true,
	}

	if a.camera == nil {
		a.camera = capture.NewCamera(capture.Config{
			DeviceID: settings.Camera.DeviceID,
			FPS:      settings.Camera.IdleFPS,
		})
	}
	if a.open == nil {
		a.open = a.defaultDetector
	}
	if a.runner == nil {
		a.runner = plugin.NewExecutor(settings.Plugins.Timeout)
	}

	a.ctrl = pipeline.New(pipeline.Config{
		Classifier: sign.NewClassifier(sign.ClassifierConfig{
			ExtensionMargin: settings.Recognition.ExtensionMargin,
			SpreadThreshold: settings.Recognition.SpreadThreshold,
		}),
		Cooldown:      settings.Recognition.Cooldown,
		Clock:         cfg.Clock,
		Logger:        cfg.Logger,
		NotifyTimeout: settings.Notify.Timeout,
		OpenDetector:  a.openDetector,
	})

	return a, nil
}

// defaultDetector tries MediaPipe first and falls back to a mock detector
// that never sees a hand.
func (a *App) defaultDetector() (detector.Detector, error) {
	mp, err := detector.NewMediaPipeDetector(a.settings.Detector)
	if err == nil {
		a.log.Info().Msg("using MediaPipe hand detection")
		return mp, nil
	}
	a.log.Warn().Err(err).Msg("MediaPipe not available, using mock detector")
	return detector.NewMockDetector(), nil
}

func (a *App) openDetector() (detector.Detector, error) {
	d, err := a.open()
	if err != nil {
		return nil, err
	}
	if a.recorder != nil {
		d = recording.NewDetector(d, a.recorder, a.clock, func(err error) {
			a.log.Warn().Err(err).Msg("recording frame failed")
		})
	}
	return d, nil
}

// Controller returns the pipeline controller. It exists before Start so the
// API and tray can be wired first.
func (a *App) Controller() *pipeline.Controller {
	return a.ctrl
}

// Preview returns the camera preview fed by the capture loop.
func (a *App) Preview() *capture.Preview {
	return a.preview
}

// Camera returns the camera instance.
func (a *App) Camera() capture.Camera {
	return a.camera
}

// PluginManager returns the plugin manager.
func (a *App) PluginManager() *plugin.Manager {
	return a.pluginMgr
}

// Session returns the store session of the current run, or nil.
func (a *App) Session() *store.Session {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.session
}

// SetSubscriber sets the subscribers that receive every pipeline update. It
// survives Stop and Start.
func (a *App) SetSubscriber(subs ...pipeline.Subscriber) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.subscriber = pipeline.Chain(subs...)
	a.ctrl.SetSubscriber(a.subscriber)
}

// SetEnabled pauses or resumes frame processing.
func (a *App) SetEnabled(enabled bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.enabled != enabled {
		a.log.Info().Bool("enabled", enabled).Msg("recognition toggled")
	}
	a.enabled = enabled
}

// IsEnabled returns whether frame processing is enabled.
func (a *App) IsEnabled() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.enabled
}

// Running reports whether the capture loop is running.
func (a *App) Running() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.stopCh != nil
}

// Start opens the camera, initializes the pipeline, begins a store session
// and launches the capture loop. Starting a running App is a no-op.
func (a *App) Start(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.stopCh != nil {
		return nil
	}
	if err := a.openLocked(ctx); err != nil {
		return err
	}

	a.stopCh = make(chan struct{})
	a.done = make(chan struct{})
	go a.runPipeline(a.stopCh, a.done)

	a.log.Info().Int("fps", a.activity.FPS()).Msg("capture loop started")
	return nil
}

func (a *App) openLocked(ctx context.Context) error {
	if err := a.camera.Open(); err != nil {
		return fmt.Errorf("open camera: %w", err)
	}
	a.activity = newActivity(a.settings.Camera)
	a.camera.SetFPS(a.activity.FPS())

	if err := a.ctrl.Initialize(); err != nil {
		a.camera.Close()
		return err
	}

	a.session = nil
	if a.store != nil {
		sess, err := a.store.Sessions().Start()
		if err != nil {
			a.ctrl.Shutdown()
			a.camera.Close()
			return fmt.Errorf("start session: %w", err)
		}
		a.session = sess
		a.log.Info().Str("session", sess.ID).Msg("transcript session started")
	}

	if err := a.pluginMgr.Discover(); err != nil {
		a.log.Warn().Err(err).Str("dir", a.pluginMgr.PluginDir()).Msg("plugin discovery failed")
	}

	runCtx, cancel := context.WithCancel(ctx)
	a.cancel = cancel
	a.dispatcher = plugin.NewDispatcher(a.pluginMgr, a.runner, plugin.DispatcherConfig{
		Enabled:   a.settings.Plugins.Enabled,
		QueueSize: a.settings.Plugins.QueueSize,
		Configs:   pluginConfigs(a.settings.Plugins.Settings, a.log),
		Logger:    a.log,
	})
	a.dispatcher.Start(runCtx)

	// Shutdown detaches both callbacks, so they are attached on every start.
	a.ctrl.SetSubscriber(a.subscriber)
	a.ctrl.SetCommitHook(a.commitHook(a.session, a.dispatcher))
	return nil
}

// Stop halts the capture loop, shuts the pipeline down, drains the plugin
// queue, ends the store session and closes the camera.
func (a *App) Stop() {
	a.mu.Lock()
	if a.stopCh == nil {
		a.mu.Unlock()
		return
	}
	close(a.stopCh)
	done := a.done
	a.stopCh = nil
	a.mu.Unlock()

	<-done

	a.ctrl.Shutdown()

	a.mu.Lock()
	defer a.mu.Unlock()

	a.dispatcher.Close()
	a.cancel()

	if a.session != nil {
		if err := a.store.Sessions().End(a.session.ID); err != nil && !errors.Is(err, store.ErrNotFound) {
			a.log.Error().Err(err).Msg("ending session failed")
		}
	}

	if err := a.camera.Close(); err != nil {
		a.log.Error().Err(err).Msg("closing camera failed")
	}
	a.motion.Close()

	a.log.Info().Msg("capture loop stopped")
}

// commitHook hands each committed word to the plugins together with the
// sentence it completed, and persists it to the session.
func (a *App) commitHook(sess *store.Session, d *plugin.Dispatcher) pipeline.CommitHook {
	return func(c pipeline.Commit) error {
		d.Submit(c.Word, c.State.Sentence)
		if sess == nil {
			return nil
		}
		if _, err := a.store.Words().Append(sess.ID, c.Word); err != nil {
			return fmt.Errorf("store word: %w", err)
		}
		return nil
	}
}

func newActivity(cfg config.CameraConfig) *capture.Activity {
	return capture.NewActivity(capture.ActivityConfig{
		IdleFPS:     cfg.IdleFPS,
		ActiveFPS:   cfg.ActiveFPS,
		IdleTimeout: cfg.IdleTimeout,
	})
}

func pluginConfigs(settings map[string]map[string]any, log zerolog.Logger) map[string]json.RawMessage {
	if len(settings) == 0 {
		return nil
	}
	out := make(map[string]json.RawMessage, len(settings))
	for name, values := range settings {
		data, err := json.Marshal(values)
		if err != nil {
			log.Warn().Err(err).Str("plugin", name).Msg("ignoring unencodable plugin settings")
			continue
		}
		out[name] = data
	}
	return out
}
