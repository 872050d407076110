package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Ning0612/sympack/internal/progress"
	"github.com/Ning0612/sympack/internal/state"
)

func newHistoryCmd(a *app) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history [target]",
		Short: "Show recent operations",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			target := ""
			if len(args) == 1 {
				target = args[0]
			}
			records, err := a.svc.History(target, limit)
			if err != nil {
				return &ExitError{Code: ExitConfig, Err: err}
			}
			if len(records) == 0 {
				a.printf(cmd.OutOrStdout(), "%s\n", SubtitleStyle.Render("no operations recorded"))
				return nil
			}

			rows := [][]string{{"STARTED", "OP", "STATUS", "ENTRIES", "BYTES", "DURATION", "TARGET"}}
			for _, r := range records {
				rows = append(rows, historyRow(r))
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(rows))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of records to show")
	return cmd
}

func historyRow(r state.OperationRecord) []string {
	return []string{
		r.StartTime.Local().Format("2006-01-02 15:04:05"),
		string(r.Kind),
		statusStyle(string(r.Status)).Render(string(r.Status)),
		fmt.Sprint(r.Entries),
		progress.FormatBytes(r.Bytes),
		r.Duration().Round(time.Millisecond).String(),
		r.Target,
	}
}

func newStatusCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status <target>",
		Short: "Show whether a target is locked and when it last succeeded",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := a.svc.Status(args[0])
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			fmt.Fprintln(w, TitleStyle.Render(st.Target))
			if st.Locked && st.Holder != nil {
				fmt.Fprintf(w, "  %s %s by PID %d on %s since %s\n",
					WarningStyle.Render("locked:"), st.Holder.Operation, st.Holder.PID,
					st.Holder.Hostname, st.Holder.StartTime.Local().Format(time.RFC3339))
			} else if st.Locked {
				fmt.Fprintf(w, "  %s\n", WarningStyle.Render("locked"))
			} else {
				fmt.Fprintf(w, "  %s\n", SuccessStyle.Render("unlocked"))
			}
			if st.LastSuccess != nil {
				fmt.Fprintf(w, "  last success: %s %s (%d entries)\n",
					st.LastSuccess.Kind, st.LastSuccess.EndTime.Local().Format(time.RFC3339), st.LastSuccess.Entries)
			} else {
				fmt.Fprintf(w, "  %s\n", SubtitleStyle.Render("no successful operation recorded"))
			}
			return nil
		},
	}
}

func newUnlockCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "unlock <target>",
		Short: "Remove the lock of a target, even if held by another process",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.svc.ForceUnlock(args[0]); err != nil {
				return err
			}
			a.printf(cmd.OutOrStdout(), "%s %s unlocked\n", SuccessStyle.Render("✓"), PathStyle.Render(args[0]))
			return nil
		},
	}
}
