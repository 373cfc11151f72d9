package cmd

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"sparkagent-launchpad/pkg/history"
	"sparkagent-launchpad/pkg/log"
	"sparkagent-launchpad/pkg/market"
	"sparkagent-launchpad/pkg/parser"
	"sparkagent-launchpad/pkg/swap"
	"sparkagent-launchpad/pkg/types"
)

var (
	swapMode  string
	noConfirm bool
)

var swapCmd = &cobra.Command{
	Use:   "swap <buy|sell> <amount> <token-address>",
	Short: "Buy or sell an agent token",
	Long: `Buy or sell an agent token. Before graduation the trade goes through the
bonding curve, afterwards through the external DEX router. Missing allowances
are approved for exactly the traded amount.

Examples:
  # Buy agent tokens for 100 asset tokens
  launchpad swap buy 100 0x5FbDB2315678afecb367f032d93F642f64180aa3

  # Sell 50 agent tokens, forcing the DEX route
  launchpad swap sell 50 0x5FbDB2315678afecb367f032d93F642f64180aa3 --mode dex

  # Skip the confirmation prompt
  launchpad swap buy 1.5 0x5FbDB2315678afecb367f032d93F642f64180aa3 --yes`,
	Args: cobra.ExactArgs(3),
	Run:  runSwap,
}

func init() {
	rootCmd.AddCommand(swapCmd)

	swapCmd.Flags().StringVar(&swapMode, "mode", "auto", "Trading route: auto, curve or dex")
	swapCmd.Flags().BoolVarP(&noConfirm, "yes", "y", false, "Skip confirmation prompt")
}

func runSwap(cmd *cobra.Command, args []string) {
	// Parse the command
	swapReq, err := parser.ParseSwapCommand(strings.Join(args, " "))
	exitOnError(err)

	ctx, cancel := commandContext()
	defer cancel()

	sess, err := newSession(ctx, cmd, needSigner)
	exitOnError(err)
	defer sess.Close()

	intent := &types.SwapIntent{Direction: swapReq.Direction, Token: swapReq.Token}

	// Resolve the trading route
	s := newSpinner("Reading market...", sess.jsonOutput)
	snap, err := sess.market().Snapshot(ctx, swapReq.Token)
	s.Stop()
	exitOnError(err)

	intent.TradingMode, err = resolveMode(swapMode, snap)
	exitOnError(err)

	// Convert the display amount with the input token's decimals
	inputToken := intent.InputToken(sess.cfg.Contracts)
	decimals, err := sess.client.Decimals(ctx, inputToken)
	exitOnError(err)
	intent.InputAmount, err = parser.ToMinorUnits(swapReq.Amount, decimals)
	exitOnError(err)

	if !sess.jsonOutput {
		displaySwap(swapReq, intent, snap)
	}

	// Ask for confirmation
	if !noConfirm && !sess.jsonOutput {
		if !confirm("Proceed with swap?") {
			fmt.Println("\nSwap cancelled.")
			return
		}
	}

	progress := newSpinner("Starting swap...", sess.jsonOutput)
	orch := swap.New(sess.client, sess.account, sess.cfg.Contracts,
		swap.WithLogger(log.Named("swap")),
		swap.WithProgressFunc(func(p swap.Progress) {
			progress.Lock()
			progress.Suffix = fmt.Sprintf(" [%d/%d] %s", p.Cursor(), p.Steps+3, p)
			progress.Unlock()
		}))

	result, err := orch.Run(ctx, intent)
	progress.Stop()

	rec := &history.Record{
		Kind:    history.KindSwap,
		Token:   swapReq.Token.Hex(),
		Amount:  swapReq.Amount,
		Summary: fmt.Sprintf("%s %s via %s", intent.Direction, swapReq.Amount, intent.TradingMode),
	}
	if err != nil {
		rec.Status, rec.Error = history.StatusFailed, err.Error()
		sess.record(rec)
		exitOnError(err)
	}

	rec.Status = history.StatusConfirmed
	for _, h := range result.Approvals {
		rec.TxHashes = append(rec.TxHashes, h.Hex())
	}
	rec.TxHashes = append(rec.TxHashes, result.TxHash.Hex())
	sess.record(rec)
	orch.Dismiss()

	if sess.jsonOutput {
		printJSON(map[string]interface{}{
			"direction": intent.Direction,
			"token":     swapReq.Token.Hex(),
			"amount":    swapReq.Amount,
			"mode":      intent.TradingMode,
			"approvals": rec.TxHashes[:len(rec.TxHashes)-1],
			"tx_hash":   result.TxHash.Hex(),
			"status":    "confirmed",
		})
		return
	}

	color.Green("\n✓ Swap confirmed!")
	fmt.Printf("  Transaction: %s\n", color.CyanString(result.TxHash.Hex()))
	if n := len(result.Approvals); n > 0 {
		fmt.Printf("  Approvals:   %d\n", n)
	}
	fmt.Println("\nYou can check the transaction using:")
	color.Cyan("  launchpad status %s\n", result.TxHash.Hex())
}

func resolveMode(flag string, snap *market.Snapshot) (types.TradingMode, error) {
	switch strings.ToLower(flag) {
	case "", "auto":
		return snap.Mode, nil
	case string(types.BondingCurve):
		return types.BondingCurve, nil
	case string(types.ExternalDex):
		return types.ExternalDex, nil
	default:
		return "", fmt.Errorf("unknown mode %q, expected auto, curve or dex", flag)
	}
}

func displaySwap(req *parser.SwapCommand, intent *types.SwapIntent, snap *market.Snapshot) {
	banner("SWAP", 60)

	route := "bonding curve"
	if intent.TradingMode == types.ExternalDex {
		route = "external DEX"
	}
	spend, receive := "asset token", "agent token"
	if intent.Direction == types.Sell {
		spend, receive = receive, spend
	}

	fmt.Printf("\n  Direction:   %s\n", color.YellowString(strings.ToUpper(string(intent.Direction))))
	fmt.Printf("  Spend:       %s %s\n", req.Amount, spend)
	fmt.Printf("  Receive:     %s %s\n", receive, color.CyanString(shortAddress(req.Token)))
	fmt.Printf("  Route:       %s\n", route)
	fmt.Printf("  Price:       %s asset per token\n", snap.Price.String())
	if !snap.Graduated {
		fmt.Printf("  Graduation:  %s%%\n", snap.Progress.StringFixed(2))
	}

	fmt.Println("\n" + strings.Repeat("=", 60) + "\n")
}

func shortAddress(a common.Address) string {
	return shortHash(a.Hex())
}
