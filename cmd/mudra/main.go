// Command mudra turns fingerspelled letters seen by a webcam into text.
package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ayusman/mudra/internal/config"
	"github.com/ayusman/mudra/internal/logging"
	"github.com/ayusman/mudra/internal/store"
)

// version is set at build time.
var version = "dev"

type rootOptions struct {
	configPath string
	logLevel   string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "mudra",
		Short: "Mudra - fingerspelling to text",
		Long: `Mudra watches a webcam for fingerspelled letters and builds words and
sentences from them.

Start the service:       mudra serve
Replay a recording:      mudra replay session.jsonl
Tune the classifier:     mudra calibrate
Read past transcripts:   mudra transcripts`,
		Version:      version,
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "config file path (default ~/.mudra/config.yaml)")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "override log.level (debug, info, warn, error)")

	root.AddCommand(serveCmd(opts))
	root.AddCommand(replayCmd(opts))
	root.AddCommand(calibrateCmd(opts))
	root.AddCommand(transcriptsCmd(opts))
	root.AddCommand(configCmd(opts))

	return root
}

// load reads the configuration and builds the root logger from it.
func (o *rootOptions) load() (*config.Config, zerolog.Logger, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, zerolog.Nop(), err
	}
	if o.logLevel != "" {
		cfg.Log.Level = o.logLevel
	}

	log, err := logging.New(cfg.Log.Level, cfg.Log.Pretty, os.Stderr)
	if err != nil {
		return nil, zerolog.Nop(), err
	}
	return cfg, log, nil
}

func openStore(cfg *config.Config, log zerolog.Logger) (*store.Store, error) {
	st, err := store.New(cfg.Store.Path, store.WithLogger(log))
	if err != nil {
		return nil, fmt.Errorf("open store %s: %w", cfg.Store.Path, err)
	}
	return st, nil
}
