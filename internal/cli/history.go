package cli

import (
	"context"
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/dshills/algoreplay/replay/store"
)

func (a *app) newHistoryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "history [SESSION]",
		Short: "List recorded sessions, or the passes of one session",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStore(a.cfg)
			if err != nil {
				return err
			}
			defer st.Close()
			if len(args) == 1 {
				return a.listPasses(cmd.Context(), st, args[0])
			}
			return a.listSessions(cmd.Context(), st)
		},
	}
}

func (a *app) listSessions(ctx context.Context, st store.Store) error {
	ids, err := st.Sessions(ctx)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "SESSION\tPASSES\tLOG\tLAST OUTCOME\tUPDATED")
	for _, id := range ids {
		last, err := st.LatestTranscript(ctx, id)
		if errors.Is(err, store.ErrNotFound) {
			continue
		}
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%s\t%d\t%d\t%s\t%s\n", id, last.Pass, len(last.Entries), last.Outcome, last.CreatedAt.Format(time.RFC3339))
	}
	return w.Flush()
}

func (a *app) listPasses(ctx context.Context, st store.Store, sessionID string) error {
	ts, err := st.ListTranscripts(ctx, sessionID)
	if err != nil {
		return err
	}
	if len(ts) == 0 {
		return fmt.Errorf("session %s: %w", sessionID, store.ErrNotFound)
	}
	w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "PASS\tOUTCOME\tTRIGGER\tSTEPS\tLOG\tFINGERPRINT")
	for _, t := range ts {
		trigger := t.Trigger
		if trigger == "" {
			trigger = "-"
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%d\t%d\t%s\n", t.Pass, t.Outcome, trigger, t.Steps, len(t.Entries), shortFingerprint(t.Fingerprint))
	}
	return w.Flush()
}

func shortFingerprint(fp string) string {
	const n = len("sha256:") + 12
	if len(fp) > n {
		return fp[:n]
	}
	return fp
}
