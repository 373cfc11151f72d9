package cmd

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"sparkagent-launchpad/pkg/backend"
	"sparkagent-launchpad/pkg/forum"
	"sparkagent-launchpad/pkg/history"
	"sparkagent-launchpad/pkg/log"
)

var (
	forumStart     int
	forumPageSize  int
	forumDirection string
)

var forumCmd = &cobra.Command{
	Use:   "forum",
	Short: "Read and post agent forum messages",
}

var forumListCmd = &cobra.Command{
	Use:   "list <token-address>",
	Short: "List forum messages of an agent token",
	Long: `List forum messages of an agent token, newest first by default.

Examples:
  launchpad forum list 0x5FbDB2315678afecb367f032d93F642f64180aa3
  launchpad forum list 0x5FbDB2315678afecb367f032d93F642f64180aa3 --start 20 --page-size 10 --direction asc`,
	Args: cobra.ExactArgs(1),
	Run:  runForumList,
}

var forumPostCmd = &cobra.Command{
	Use:   "post <token-address> <message>",
	Short: "Post a message on an agent forum",
	Long: `Post a message on an agent forum. Posting burns the forum's default amount
of the agent token; the burn is approved first when needed.

Examples:
  launchpad forum post 0x5FbDB2315678afecb367f032d93F642f64180aa3 "gm"`,
	Args: cobra.MinimumNArgs(2),
	Run:  runForumPost,
}

func init() {
	rootCmd.AddCommand(forumCmd)
	forumCmd.AddCommand(forumListCmd, forumPostCmd)

	forumListCmd.Flags().IntVar(&forumStart, "start", 0, "Index of the first message")
	forumListCmd.Flags().IntVar(&forumPageSize, "page-size", 20, "Messages per page")
	forumListCmd.Flags().StringVar(&forumDirection, "direction", string(backend.Newest), "Sort direction: desc or asc")
	forumPostCmd.Flags().BoolVarP(&noConfirm, "yes", "y", false, "Skip confirmation prompt")
}

func runForumList(cmd *cobra.Command, args []string) {
	token, err := parseAddress(args[0])
	exitOnError(err)

	dir := backend.Direction(strings.ToLower(forumDirection))
	if dir != backend.Newest && dir != backend.Oldest {
		exitOnError(fmt.Errorf("unknown direction %q, expected desc or asc", forumDirection))
	}

	ctx, cancel := commandContext()
	defer cancel()

	sess, err := newSession(ctx, cmd, 0)
	exitOnError(err)
	defer sess.Close()

	client := sess.backend()
	s := newSpinner("Fetching messages...", sess.jsonOutput)
	count, err := client.ForumCount(ctx, token.Hex())
	var msgs []backend.ForumMessage
	if err == nil {
		msgs, err = client.ForumMessages(ctx, token.Hex(), forumStart, forumPageSize, dir)
	}
	s.Stop()
	exitOnError(err)

	if sess.jsonOutput {
		printJSON(map[string]interface{}{"count": count, "messages": msgs})
		return
	}
	displayForum(token.Hex(), count, msgs)
}

func displayForum(token string, count int, msgs []backend.ForumMessage) {
	banner("AGENT FORUM", 70)
	fmt.Printf("\n  Token:    %s\n", color.CyanString(token))
	fmt.Printf("  Messages: %d\n\n", count)

	if len(msgs) == 0 {
		fmt.Println("  No messages on this page.")
	}
	for _, m := range msgs {
		fmt.Printf("  %s  %s\n", color.HiBlackString(m.CreatedAt.Format("2006-01-02 15:04")), color.YellowString(shortHash(m.Sender)))
		fmt.Printf("    %s\n", m.Message)
	}

	fmt.Println("\n" + strings.Repeat("=", 70) + "\n")
}

func runForumPost(cmd *cobra.Command, args []string) {
	token, err := parseAddress(args[0])
	exitOnError(err)
	message := strings.Join(args[1:], " ")

	ctx, cancel := commandContext()
	defer cancel()

	sess, err := newSession(ctx, cmd, needSigner)
	exitOnError(err)
	defer sess.Close()
	exitOnError(sess.cfg.RequireForum())

	if !noConfirm && !sess.jsonOutput {
		fmt.Printf("\n  Token:   %s\n  Message: %s\n", color.CyanString(token.Hex()), message)
		if !confirm("Post message? This burns agent tokens.") {
			fmt.Println("\nPost cancelled.")
			return
		}
	}

	poster := forum.NewPoster(sess.client, sess.account, sess.cfg.Contracts.Forum, log.Named("forum"))
	s := newSpinner("Posting message...", sess.jsonOutput)
	result, err := poster.Post(ctx, token, message)
	s.Stop()

	rec := &history.Record{Kind: history.KindForum, Token: token.Hex(), Summary: message}
	if err != nil {
		rec.Status, rec.Error = history.StatusFailed, err.Error()
		sess.record(rec)
		exitOnError(err)
	}
	rec.Status = history.StatusConfirmed
	rec.Amount = result.BurnAmount.String()
	if result.Approval != (common.Hash{}) {
		rec.TxHashes = append(rec.TxHashes, result.Approval.Hex())
	}
	rec.TxHashes = append(rec.TxHashes, result.TxHash.Hex())
	sess.record(rec)

	if sess.jsonOutput {
		printJSON(map[string]interface{}{
			"token":       token.Hex(),
			"tx_hash":     result.TxHash.Hex(),
			"burn_amount": result.BurnAmount.String(),
			"status":      "confirmed",
		})
		return
	}
	color.Green("\n✓ Message posted!")
	fmt.Printf("  Transaction: %s\n\n", color.CyanString(result.TxHash.Hex()))
}
