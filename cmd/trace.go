package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/cwbudde/spheredist/internal/trace"
	"github.com/spf13/cobra"
)

var (
	traceSession string
	traceOutcome string
	traceLast    int
)

var traceCmd = &cobra.Command{
	Use:   "trace",
	Short: "Inspect solve traces",
	Long: `Inspect JSONL traces written with --trace. Each line records the
outcome of one optimization request.`,
}

var traceSummaryCmd = &cobra.Command{
	Use:   "summary <file>",
	Short: "Summarize each session in a trace",
	Args:  cobra.ExactArgs(1),
	RunE:  runTraceSummary,
}

var traceListCmd = &cobra.Command{
	Use:   "list <file>",
	Short: "List trace entries",
	Args:  cobra.ExactArgs(1),
	RunE:  runTraceList,
}

func init() {
	rootCmd.AddCommand(traceCmd)
	traceCmd.AddCommand(traceSummaryCmd)
	traceCmd.AddCommand(traceListCmd)

	traceListCmd.Flags().StringVar(&traceSession, "session", "", "Only entries of this session (prefix match)")
	traceListCmd.Flags().StringVar(&traceOutcome, "outcome", "", "Only entries with this outcome (completed, superseded, ...)")
	traceListCmd.Flags().IntVar(&traceLast, "last", 0, "Only the last N matching entries (0 = all)")
}

func readTrace(path string) ([]trace.Entry, error) {
	r, err := trace.NewReader(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return r.ReadAll()
}

func runTraceSummary(cmd *cobra.Command, args []string) error {
	entries, err := readTrace(args[0])
	if err != nil {
		return err
	}
	return writeSummary(cmd.OutOrStdout(), trace.Summarize(entries))
}

func writeSummary(out io.Writer, sums []trace.SessionSummary) error {
	if len(sums) == 0 {
		fmt.Fprintln(out, "No trace entries found.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SESSION\tSTART\tDURATION\tREQUESTS\tCOMPLETED\tSUPERSEDED\tFAILED\tMAX POINTS\tLAST ENERGY")
	fmt.Fprintln(w, "-------\t-----\t--------\t--------\t---------\t----------\t------\t----------\t-----------")
	for _, s := range sums {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%d\t%d\t%d\t%.6f\n",
			shortID(s.Session),
			s.Start.Format("2006-01-02 15:04:05"),
			s.End.Sub(s.Start).Round(time.Millisecond),
			s.Requests,
			s.Completed,
			s.Superseded,
			s.Failed,
			s.MaxPoints,
			s.LastEnergy,
		)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(out, "\nTotal sessions: %d\n", len(sums))
	return nil
}

func runTraceList(cmd *cobra.Command, args []string) error {
	entries, err := readTrace(args[0])
	if err != nil {
		return err
	}
	return writeEntries(cmd.OutOrStdout(), selectEntries(entries, traceSession, traceOutcome, traceLast))
}

// selectEntries filters entries by session prefix and outcome, then keeps
// the last n of them when n > 0
func selectEntries(entries []trace.Entry, session, outcome string, n int) []trace.Entry {
	var out []trace.Entry
	for _, e := range entries {
		if !strings.HasPrefix(e.Session, session) {
			continue
		}
		if outcome != "" && e.Outcome != outcome {
			continue
		}
		out = append(out, e)
	}
	if n > 0 && len(out) > n {
		out = out[len(out)-n:]
	}
	return out
}

func writeEntries(out io.Writer, entries []trace.Entry) error {
	if len(entries) == 0 {
		fmt.Fprintln(out, "No matching entries.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SESSION\tREQUEST\tPOINTS\tOUTCOME\tSTATUS\tENERGY\tITERATIONS\tELAPSED")
	for _, e := range entries {
		energy := "-"
		if e.Outcome == "completed" {
			energy = fmt.Sprintf("%.6f", e.Energy)
		}
		status := e.Status
		if e.Error != "" {
			status = e.Error
		}
		if status == "" {
			status = "-"
		}
		fmt.Fprintf(w, "%s\t%d\t%d\t%s\t%s\t%s\t%d\t%.1fms\n",
			shortID(e.Session), e.RequestID, e.Points, e.Outcome, status, energy, e.Iterations, e.ElapsedMs)
	}
	return w.Flush()
}

// shortID truncates a session ID for display
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
