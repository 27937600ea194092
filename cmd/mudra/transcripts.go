package main

import (
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/ayusman/mudra/internal/store"
)

func transcriptsCmd(opts *rootOptions) *cobra.Command {
	var sessionID string

	cmd := &cobra.Command{
		Use:   "transcripts",
		Short: "List transcript sessions or print one",
		Args:  cobra.NoArgs,
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

			out := cmd.OutOrStdout()

			if sessionID != "" {
				if _, err := st.Sessions().GetByID(sessionID); err != nil {
					if errors.Is(err, store.ErrNotFound) {
						return fmt.Errorf("session not found: %s", sessionID)
					}
					return err
				}
				sentence, err := st.Words().Sentence(sessionID)
				if err != nil {
					return err
				}
				fmt.Fprintln(out, sentence)
				return nil
			}

			sessions, err := st.Sessions().List()
			if err != nil {
				return fmt.Errorf("list sessions: %w", err)
			}
			if len(sessions) == 0 {
				fmt.Fprintln(out, "No sessions yet. Start one with 'mudra serve'.")
				return nil
			}

			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "id\tstarted\tended\tsentence")
			for _, s := range sessions {
				sentence, err := st.Words().Sentence(s.ID)
				if err != nil {
					return err
				}
				ended := "-"
				if s.EndedAt != nil {
					ended = s.EndedAt.Local().Format(time.DateTime)
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", s.ID, s.StartedAt.Local().Format(time.DateTime), ended, sentence)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&sessionID, "session", "", "print the sentence of this session")
	return cmd
}
