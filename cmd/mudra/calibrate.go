package main

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ayusman/mudra/internal/calibrate"
	"github.com/ayusman/mudra/internal/config"
	"github.com/ayusman/mudra/internal/sign"
	"github.com/ayusman/mudra/internal/store"
)

func calibrateCmd(opts *rootOptions) *cobra.Command {
	var (
		label  string
		apply  bool
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "calibrate",
		Short: "Summarize stored samples and suggest an extension margin",
		Long: `Calibrate reads the labelled hand samples saved through the web UI and
reports, per finger, how far the fingertip sat above its knuckle when the
letter expects it extended and when it expects it curled. The suggested
margin separates the two. --apply stores it in the settings table, where
'mudra serve' picks it up on the next start.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := opts.load()
			if err != nil {
				return err
			}
			st, err := openStore(cfg, log)
			if err != nil {
				return err
			}
			defer st.Close()

			var stored []*store.Sample
			if label != "" {
				stored, err = st.Samples().ListByLabel(strings.ToUpper(label))
			} else {
				stored, err = st.Samples().List()
			}
			if err != nil {
				return fmt.Errorf("list samples: %w", err)
			}

			samples := make([]calibrate.Sample, 0, len(stored))
			for _, s := range stored {
				sym, err := sign.ParseSymbol(s.Label)
				if err != nil {
					log.Warn().Str("sample", s.ID).Str("label", s.Label).Msg("skipping sample with invalid label")
					continue
				}
				hand, err := s.Hand()
				if err != nil {
					log.Warn().Err(err).Str("sample", s.ID).Msg("skipping malformed sample")
					continue
				}
				samples = append(samples, calibrate.Sample{Label: sym, Hand: hand})
			}

			report, err := calibrate.Analyze(samples)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				if err := enc.Encode(report); err != nil {
					return err
				}
			} else {
				printReport(cmd, report, cfg.Recognition.ExtensionMargin)
			}

			if apply {
				value := strconv.FormatFloat(report.SuggestedMargin, 'f', 4, 64)
				if err := st.Settings().Set(config.KeyExtensionMargin, value); err != nil {
					return fmt.Errorf("save setting: %w", err)
				}
				log.Info().Str("key", config.KeyExtensionMargin).Str("value", value).Msg("setting saved")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&label, "label", "", "only use samples with this letter")
	cmd.Flags().BoolVar(&apply, "apply", false, "store the suggested margin in the settings table")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the report as JSON")
	return cmd
}

func printReport(cmd *cobra.Command, r calibrate.Report, current float64) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "samples: %d (skipped %d)\n\n", r.Samples, r.Skipped)

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "finger\tpopulation\tn\tmean\tstddev\tmin\tmax")
	for _, f := range r.Fingers {
		for _, row := range []struct {
			name string
			pop  calibrate.Population
		}{{"extended", f.Extended}, {"curled", f.Curled}} {
			if row.pop.N == 0 {
				continue
			}
			fmt.Fprintf(w, "%s\t%s\t%d\t%.4f\t%.4f\t%.4f\t%.4f\n",
				f.Name, row.name, row.pop.N, row.pop.Mean, row.pop.StdDev, row.pop.Min, row.pop.Max)
		}
	}
	w.Flush()

	fmt.Fprintf(out, "\ncurrent margin:   %.4f\n", current)
	fmt.Fprintf(out, "suggested margin: %.4f\n", r.SuggestedMargin)
	if !r.Separable {
		fmt.Fprintln(out, "warning: extended and curled fingers overlap; collect cleaner samples")
	}
}
