package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/msgpulse/internal/ir"
	"github.com/roach88/msgpulse/internal/store"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	Database string
	Event    string
	Player   string
	Firing   string
	Limit    int
	Verify   bool
}

// HistoryResult is the output of the history command.
type HistoryResult struct {
	Deliveries []ir.Delivery  `json:"deliveries"`
	Verify     *VerifySummary `json:"verify,omitempty"`
}

// VerifySummary reports a journal integrity check.
type VerifySummary struct {
	OK              bool             `json:"ok"`
	Firings         int              `json:"firings"`
	Deliveries      int              `json:"deliveries"`
	Mismatches      []store.Mismatch `json:"mismatches,omitempty"`
	MissingRulesets []string         `json:"missing_rulesets,omitempty"`
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show journaled deliveries",
		Long: `Show the chat lines recorded in a delivery journal, oldest first.

Filters narrow the listing by event, recipient or firing. --limit keeps
the deliveries of the most recent N firings. --verify recomputes every
firing's transcript hash and checks that its ruleset was stored.

Exit codes:
  0 - success (and a consistent journal with --verify)
  1 - --verify found mismatches
  2 - command error (journal missing or unreadable)

Examples:
  msgpulse history --db journal.db
  msgpulse history --db journal.db --event EventPlayerDeath --player 76561198000000001
  msgpulse history --db journal.db --limit 10 --verify --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "delivery journal (default $MSGPULSE_JOURNAL)")
	cmd.Flags().StringVar(&opts.Event, "event", "", "only this event (case-insensitive)")
	cmd.Flags().StringVar(&opts.Player, "player", "", "only this recipient id")
	cmd.Flags().StringVar(&opts.Firing, "firing", "", "only this firing id")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "only the most recent N firings")
	cmd.Flags().BoolVar(&opts.Verify, "verify", false, "check transcript hashes")

	return cmd
}

func runHistory(opts *HistoryOptions, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	path := opts.Database
	if path == "" {
		path = opts.Settings.Journal
	}
	if path == "" {
		return formatter.Fail(ExitCommandError, ErrCodeBadInput, "no journal: pass --db or set MSGPULSE_JOURNAL")
	}
	// Opening creates a database; a typo should not.
	if _, err := os.Stat(path); err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeNotFound, fmt.Sprintf("journal not found: %s", path))
	}
	if opts.Limit < 0 {
		return formatter.Fail(ExitCommandError, ErrCodeBadInput, "--limit must be non-negative")
	}

	st, err := store.Open(path)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeJournal, err.Error())
	}
	defer st.Close()

	ctx := cmd.Context()
	deliveries, err := st.ReadDeliveries(ctx, store.DeliveryFilter{
		FiringID:    opts.Firing,
		Event:       opts.Event,
		RecipientID: opts.Player,
		Limit:       opts.Limit,
	})
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeJournal, err.Error())
	}

	result := HistoryResult{Deliveries: deliveries}
	if opts.Verify {
		v, err := st.Verify(ctx)
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeJournal, err.Error())
		}
		result.Verify = &VerifySummary{
			OK:              v.OK(),
			Firings:         v.Firings,
			Deliveries:      v.Deliveries,
			Mismatches:      v.Mismatches,
			MissingRulesets: v.MissingRulesets,
		}
	}

	failed := result.Verify != nil && !result.Verify.OK
	if formatter.JSON() {
		if failed {
			if err := formatter.Failure("E_JOURNAL_MISMATCH", "journal verification failed", result); err != nil {
				return err
			}
		} else if err := formatter.Success(result); err != nil {
			return err
		}
	} else {
		printHistory(formatter, result)
	}

	if failed {
		return NewExitError(ExitFailure, "journal verification failed")
	}
	return nil
}

func printHistory(f *OutputFormatter, result HistoryResult) {
	w := f.Writer
	if len(result.Deliveries) == 0 {
		fmt.Fprintln(w, "No deliveries.")
	}
	firing := ""
	for _, d := range result.Deliveries {
		if d.FiringID != firing {
			firing = d.FiringID
			fmt.Fprintf(w, "%s %s\n", d.FiringID, d.Event)
		}
		marker := ""
		if d.Translated {
			marker = " (translated)"
		}
		fmt.Fprintf(w, "  #%d rule %d %s -> %s: %s%s\n", d.Seq, d.RuleIndex, d.Target, d.RecipientID, d.Text, marker)
	}

	if v := result.Verify; v != nil {
		fmt.Fprintln(w)
		if v.OK {
			fmt.Fprintf(w, "✓ Journal consistent (%d firings, %d deliveries)\n", v.Firings, v.Deliveries)
			return
		}
		fmt.Fprintln(w, "✗ Journal verification failed")
		for _, m := range v.Mismatches {
			fmt.Fprintf(w, "  %s: stored %s, computed %s\n", m.FiringID, m.Stored, m.Computed)
		}
		for _, h := range v.MissingRulesets {
			fmt.Fprintf(w, "  missing ruleset %s\n", h)
		}
	}
}
