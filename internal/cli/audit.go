package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	audit "regulus/pkg/platform/audit"
)

// errVerifyFailed is returned after a failed verification was reported.
var errVerifyFailed = errors.New("verification failed")

func newVerifyCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "Verify the hash chain of the whole audit trail",
		Long:  "Walks the persisted audit trail from genesis, recomputing every hash and\nchecking every link. Exits 0 if intact, 1 otherwise.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			store, closeDB, err := opts.openAuditStore(ctx)
			if err != nil {
				return err
			}
			defer closeDB()

			checked, err := audit.VerifyStore(ctx, store)
			if err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "FAILED after %d entries: %v\n", checked, err)
				return errVerifyFailed
			}
			fmt.Fprintf(cmd.OutOrStdout(), "OK: %d entries verified\n", checked)
			return nil
		},
	}
}

type exportFlags struct {
	from, to string
	actor    string
	action   string
	resource string
	operator string
	reason   string
}

func newExportCmd(opts *options) *cobra.Command {
	var f exportFlags
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export a verified range of the audit trail as JSON lines",
		Long: "Reads entries with timestamps in [from, to], verifies the covering chain\n" +
			"segment and its link to the preceding entry, then prints matching entries.\n" +
			"The export itself is recorded in the trail as a data disclosure.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			start, end, err := parseRange(f.from, f.to)
			if err != nil {
				return err
			}
			if strings.TrimSpace(f.operator) == "" {
				return errors.New("--operator is required")
			}
			if strings.TrimSpace(f.reason) == "" {
				return errors.New("--reason is required")
			}

			ctx := cmd.Context()
			store, closeDB, err := opts.openAuditStore(ctx)
			if err != nil {
				return err
			}
			defer closeDB()

			trail, err := audit.New(ctx, store)
			if err != nil {
				return err
			}
			defer func() { _ = trail.Close(ctx) }()

			entries, err := trail.ExportVerified(ctx, start, end, audit.Filter{
				ActorID:    f.actor,
				Action:     audit.Action(f.action),
				ResourceID: f.resource,
			})
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			for _, e := range entries {
				if err := enc.Encode(e); err != nil {
					return err
				}
			}

			// Recorded after the read so the disclosure is not part of its own export.
			_, err = trail.Append(ctx, audit.Entry{
				ActorID:    f.operator,
				ActorRole:  "operator",
				Action:     audit.ActionDataDisclosed,
				Resource:   "audit_log",
				ResourceID: start.Format(time.RFC3339) + "/" + formatEnd(end),
				Success:    true,
				Reason:     f.reason,
				Metadata: map[string]string{
					"channel": "auditctl",
					"entries": fmt.Sprint(len(entries)),
				},
			})
			return err
		},
	}
	cmd.Flags().StringVar(&f.from, "from", "", "Range start (RFC3339)")
	cmd.Flags().StringVar(&f.to, "to", "", "Range end (RFC3339); open when empty")
	cmd.Flags().StringVar(&f.actor, "actor", "", "Only entries by this actor")
	cmd.Flags().StringVar(&f.action, "action", "", "Only entries with this action")
	cmd.Flags().StringVar(&f.resource, "resource-id", "", "Only entries for this resource id")
	cmd.Flags().StringVar(&f.operator, "operator", "", "Operator performing the export")
	cmd.Flags().StringVar(&f.reason, "reason", "", "Justification recorded with the export")
	_ = cmd.MarkFlagRequired("from")
	return cmd
}

func parseRange(from, to string) (time.Time, time.Time, error) {
	start, err := time.Parse(time.RFC3339, from)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid --from: %w", err)
	}
	var end time.Time
	if to != "" {
		if end, err = time.Parse(time.RFC3339, to); err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid --to: %w", err)
		}
		if end.Before(start) {
			return time.Time{}, time.Time{}, errors.New("--to precedes --from")
		}
	}
	return start, end, nil
}

func formatEnd(end time.Time) string {
	if end.IsZero() {
		return ""
	}
	return end.Format(time.RFC3339)
}

func newTailCmd(opts *options) *cobra.Command {
	var lines int
	cmd := &cobra.Command{
		Use:   "tail",
		Short: "Show the most recent audit entries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if lines <= 0 {
				return errors.New("--lines must be positive")
			}
			ctx := cmd.Context()
			store, closeDB, err := opts.openAuditStore(ctx)
			if err != nil {
				return err
			}
			defer closeDB()

			head, err := store.Head(ctx)
			if err != nil || head == nil {
				return err
			}
			from := uint64(1)
			if head.Sequence > uint64(lines) {
				from = head.Sequence - uint64(lines) + 1
			}
			entries, err := store.Range(ctx, audit.Query{FromSequence: from, ToSequence: head.Sequence})
			if err != nil {
				return err
			}
			for _, e := range entries {
				out, _ := json.MarshalIndent(e, "", "  ")
				fmt.Fprintln(cmd.OutOrStdout(), string(out))
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&lines, "lines", "n", 10, "Number of recent entries to show")
	return cmd
}
