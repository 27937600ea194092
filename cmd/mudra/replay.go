package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/pipeline"
	"github.com/ayusman/mudra/internal/recording"
	"github.com/ayusman/mudra/internal/sign"
	"github.com/ayusman/mudra/internal/timeutil"
)

func replayCmd(opts *rootOptions) *cobra.Command {
	var (
		cooldown time.Duration
		margin   float64
		spread   float64
	)

	cmd := &cobra.Command{
		Use:   "replay <file.jsonl>",
		Short: "Replay recorded landmarks through the recognizer",
		Long: `Replay feeds a recording made with 'mudra serve --record' through the
classifier and debounce gate on a simulated clock, printing every accepted
letter and the final sentence. Use "-" to read from stdin.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := opts.load()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("cooldown") {
				cfg.Recognition.Cooldown = cooldown
			}
			if cmd.Flags().Changed("margin") {
				cfg.Recognition.ExtensionMargin = margin
			}
			if cmd.Flags().Changed("spread") {
				cfg.Recognition.SpreadThreshold = spread
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			logThresholds(log, cfg.Recognition.ExtensionMargin, cfg.Recognition.SpreadThreshold, cfg.Recognition.Cooldown)

			in, closeIn, err := openInput(args[0])
			if err != nil {
				return err
			}
			defer closeIn()

			clock := timeutil.NewMockClock(time.Unix(0, 0).UTC())
			ctrl := pipeline.New(pipeline.Config{
				Classifier: sign.NewClassifier(sign.ClassifierConfig{
					ExtensionMargin: cfg.Recognition.ExtensionMargin,
					SpreadThreshold: cfg.Recognition.SpreadThreshold,
				}),
				Cooldown: cfg.Recognition.Cooldown,
				Clock:    clock,
				Logger:   log,
			})
			defer ctrl.Shutdown()

			out := cmd.OutOrStdout()
			printer := &acceptPrinter{ctrl: ctrl, clock: clock, start: clock.Now(), out: out}
			n, err := recording.Replay(cmd.Context(), recording.NewReader(in), printer, clock)
			if err != nil {
				return fmt.Errorf("replay stopped after %d frames: %w", n, err)
			}

			ctrl.FinishWord()
			fmt.Fprintf(out, "frames:   %d\n", n)
			fmt.Fprintf(out, "accepted: %d\n", printer.accepted)
			fmt.Fprintf(out, "sentence: %s\n", ctrl.State().Sentence)
			return nil
		},
	}

	cmd.Flags().DurationVar(&cooldown, "cooldown", 0, "override recognition.cooldown")
	cmd.Flags().Float64Var(&margin, "margin", 0, "override recognition.extension_margin")
	cmd.Flags().Float64Var(&spread, "spread", 0, "override recognition.spread_threshold")
	return cmd
}

// acceptPrinter forwards frames to the controller and prints each accepted
// letter with its offset into the recording.
type acceptPrinter struct {
	ctrl     *pipeline.Controller
	clock    timeutil.Clock
	start    time.Time
	out      io.Writer
	accepted int
}

func (p *acceptPrinter) SubmitPoints(points []detector.Point3D) {
	p.ctrl.SubmitPoints(points)
	if ev := p.ctrl.Current().Event; ev.Accepted {
		p.accepted++
		fmt.Fprintf(p.out, "%8s  %s\n", p.clock.Now().Sub(p.start), ev.Symbol)
	}
}

func openInput(path string) (io.Reader, func(), error) {
	if path == "-" {
		return os.Stdin, func() {}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open recording: %w", err)
	}
	return f, func() { f.Close() }, nil
}
