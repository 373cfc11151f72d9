package cmd

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"sparkagent-launchpad/pkg/history"
)

var (
	historyKind  string
	historyLimit int
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List past swaps, claims, posts and launches",
	Long: `List operations recorded by this CLI, newest first.

Examples:
  launchpad history
  launchpad history --kind swap --limit 10
  launchpad history show <id>`,
	Args: cobra.NoArgs,
	Run:  runHistoryList,
}

var historyShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one recorded operation",
	Args:  cobra.ExactArgs(1),
	Run:   runHistoryShow,
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.AddCommand(historyShowCmd)

	historyCmd.Flags().StringVar(&historyKind, "kind", "", "Filter by kind (swap, claim, forum, launch)")
	historyCmd.Flags().IntVar(&historyLimit, "limit", 0, "Show at most this many records")
}

func openHistory(cmd *cobra.Command) (*session, *history.Store) {
	ctx, cancel := commandContext()
	defer cancel()

	sess, err := newSession(ctx, cmd, 0)
	exitOnError(err)
	store, err := history.NewStore(sess.cfg.HistoryPath)
	exitOnError(err)
	return sess, store
}

func runHistoryList(cmd *cobra.Command, args []string) {
	var kind history.Kind
	if historyKind != "" {
		var err error
		kind, err = history.ParseKind(strings.ToLower(historyKind))
		exitOnError(err)
	}

	sess, store := openHistory(cmd)
	defer sess.Close()

	records := store.List(kind)
	if historyLimit > 0 && len(records) > historyLimit {
		records = records[:historyLimit]
	}

	if sess.jsonOutput {
		printJSON(records)
		return
	}

	if len(records) == 0 {
		color.Yellow("No history found.\n")
		fmt.Printf("\nRecords are kept in %s\n\n", store.FilePath())
		return
	}

	banner("HISTORY", 110)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "\nTIMESTAMP\tKIND\tSUMMARY\tSTATUS\tTXS\tID")
	fmt.Fprintln(w, strings.Repeat("-", 110))

	for _, r := range records {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\n",
			r.Timestamp.Local().Format("2006-01-02 15:04"),
			r.Kind,
			truncateString(r.Summary, 40),
			getColoredStatus(string(r.Status)),
			len(r.TxHashes),
			r.ID)
	}

	w.Flush()
	fmt.Println("\n" + strings.Repeat("=", 110) + "\n")
}

func runHistoryShow(cmd *cobra.Command, args []string) {
	sess, store := openHistory(cmd)
	defer sess.Close()

	r, err := store.Get(args[0])
	exitOnError(err)

	if sess.jsonOutput {
		printJSON(r)
		return
	}

	banner("HISTORY RECORD", 70)
	fmt.Printf("\n  ID:        %s\n", r.ID)
	fmt.Printf("  Kind:      %s\n", r.Kind)
	fmt.Printf("  Time:      %s\n", r.Timestamp.Local().Format("2006-01-02 15:04:05"))
	fmt.Printf("  Status:    %s\n", getColoredStatus(string(r.Status)))
	if r.Summary != "" {
		fmt.Printf("  Summary:   %s\n", r.Summary)
	}
	if r.Token != "" {
		fmt.Printf("  Token:     %s\n", color.CyanString(r.Token))
	}
	if r.Amount != "" {
		fmt.Printf("  Amount:    %s\n", r.Amount)
	}
	for i, h := range r.TxHashes {
		label := ""
		if i == 0 {
			label = "Txs:"
		}
		fmt.Printf("  %-10s %s\n", label, color.HiBlackString(h))
	}
	if r.Error != "" {
		fmt.Printf("  Error:     %s\n", color.RedString(r.Error))
	}
	fmt.Println("\n" + strings.Repeat("=", 70) + "\n")
}

func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
