package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ayusman/mudra/internal/app"
	"github.com/ayusman/mudra/internal/pipeline"
	"github.com/ayusman/mudra/internal/recording"
	"github.com/ayusman/mudra/internal/server"
	"github.com/ayusman/mudra/internal/tray"
)

func serveCmd(opts *rootOptions) *cobra.Command {
	var (
		recordPath string
		noTray     bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the capture loop, web UI and tray",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), opts, recordPath, noTray)
		},
	}
	cmd.Flags().StringVar(&recordPath, "record", "", "write detected landmarks to this JSON lines file")
	cmd.Flags().BoolVar(&noTray, "no-tray", false, "run without the menu bar icon")
	return cmd
}

func runServe(ctx context.Context, opts *rootOptions, recordPath string, noTray bool) error {
	cfg, log, err := opts.load()
	if err != nil {
		return err
	}

	st, err := openStore(cfg, log)
	if err != nil {
		return err
	}
	defer st.Close()

	stored, err := st.Settings().All()
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}
	if err := cfg.ApplySettings(stored); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	logThresholds(log, cfg.Recognition.ExtensionMargin, cfg.Recognition.SpreadThreshold, cfg.Recognition.Cooldown)

	var recorder *recording.Writer
	if recordPath != "" {
		f, err := os.Create(recordPath)
		if err != nil {
			return fmt.Errorf("create recording: %w", err)
		}
		defer f.Close()
		recorder = recording.NewWriter(f)
		defer func() {
			if err := recorder.Flush(); err != nil {
				log.Error().Err(err).Msg("flushing recording failed")
			}
			log.Info().Int("frames", recorder.Count()).Str("file", recordPath).Msg("recording saved")
		}()
	}

	application, err := app.New(app.Config{
		Settings: cfg,
		Store:    st,
		Logger:   log,
		Recorder: recorder,
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	ctrl := application.Controller()
	hub := server.NewHub(log, ctrl.Current)
	subs := []pipeline.Subscriber{hub.Publish}

	url := "http://" + cfg.Server.Addr
	var tr *tray.Tray
	if cfg.Tray.Enabled && !noTray {
		tr = tray.New()
		tr.OnToggle(application.SetEnabled)
		tr.OnFinishWord(ctrl.FinishWord)
		tr.OnClearSentence(ctrl.ClearSentence)
		tr.OnOpenUI(func() {
			if err := openBrowser(url); err != nil {
				log.Warn().Err(err).Msg("opening browser failed")
			}
		})
		tr.OnQuit(stop)
		subs = append(subs, tr.Subscriber)
	}
	application.SetSubscriber(subs...)

	if err := application.Start(ctx); err != nil {
		return err
	}
	defer application.Stop()

	srv := server.New(server.Config{
		StaticDir: findWebDir(cfg.Server.StaticDir),
		Pipeline:  ctrl,
		Hub:       hub,
		Store:     st,
		Preview:   application.Preview(),
		Logger:    log,
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe(ctx, cfg.Server.Addr)
		stop()
	}()
	log.Info().Str("url", url).Msg("mudra is running")

	if tr != nil {
		go func() {
			<-ctx.Done()
			tr.Stop()
		}()
		// The tray owns the main goroutine until Quit or a signal.
		tr.Run()
		stop()
	}

	if err := <-errCh; err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// findWebDir returns dir if it exists, else the first of a few common
// locations that does, or "" to serve the API only.
func findWebDir(dir string) string {
	candidates := []string{dir, "web", "../web", "../../web"}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".mudra", "web"))
	}

	for _, p := range candidates {
		if p == "" {
			continue
		}
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			if abs, err := filepath.Abs(p); err == nil {
				return abs
			}
			return p
		}
	}
	return ""
}

func openBrowser(url string) error {
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		return fmt.Errorf("refusing to open %q", url)
	}
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	return cmd.Start()
}

// logThresholds reports the effective recognition thresholds.
func logThresholds(log zerolog.Logger, margin, spread float64, cooldown fmt.Stringer) {
	log.Info().
		Float64("extension_margin", margin).
		Float64("spread_threshold", spread).
		Stringer("cooldown", cooldown).
		Msg("recognition thresholds")
}
