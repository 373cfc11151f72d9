package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"sparkagent-launchpad/pkg/chain"
	"sparkagent-launchpad/pkg/history"
	"sparkagent-launchpad/pkg/log"
	"sparkagent-launchpad/pkg/parser"
	"sparkagent-launchpad/pkg/swap"
)

var (
	launchName        string
	launchTicker      string
	launchDescription string
	launchImage       string
	launchURLs        []string
	launchPurchase    string
)

var launchCmd = &cobra.Command{
	Use:   "launch",
	Short: "Launch a new agent token on the bonding curve",
	Long: `Launch a new agent token on the bonding curve. The purchase amount of the
asset token is approved for the bonding curve first when needed.

Up to four URLs may be given (website, twitter, telegram, youtube).

Examples:
  launchpad launch --name "Spark Agent" --ticker SPARK --purchase 100
  launchpad launch --name "Spark Agent" --ticker SPARK --purchase 100 \
    --description "An agent" --image https://example.com/a.png --url https://example.com`,
	Args: cobra.NoArgs,
	Run:  runLaunch,
}

func init() {
	rootCmd.AddCommand(launchCmd)

	launchCmd.Flags().StringVar(&launchName, "name", "", "Token name (required)")
	launchCmd.Flags().StringVar(&launchTicker, "ticker", "", "Token ticker (required)")
	launchCmd.Flags().StringVar(&launchDescription, "description", "", "Agent description")
	launchCmd.Flags().StringVar(&launchImage, "image", "", "Image URL")
	launchCmd.Flags().StringArrayVar(&launchURLs, "url", nil, "Project URL, repeat up to four times")
	launchCmd.Flags().StringVar(&launchPurchase, "purchase", "", "Initial purchase in asset tokens (required)")
	launchCmd.Flags().BoolVarP(&noConfirm, "yes", "y", false, "Skip confirmation prompt")

	_ = launchCmd.MarkFlagRequired("name")
	_ = launchCmd.MarkFlagRequired("ticker")
	_ = launchCmd.MarkFlagRequired("purchase")
}

func launchParams() (chain.LaunchParams, error) {
	p := chain.LaunchParams{
		Name:        strings.TrimSpace(launchName),
		Ticker:      strings.ToUpper(strings.TrimSpace(launchTicker)),
		Description: launchDescription,
		Image:       launchImage,
	}
	if p.Name == "" || p.Ticker == "" {
		return p, errors.New("name and ticker must not be empty")
	}
	if len(launchURLs) > len(p.URLs) {
		return p, fmt.Errorf("at most %d URLs are allowed, got %d", len(p.URLs), len(launchURLs))
	}
	copy(p.URLs[:], launchURLs)
	return p, nil
}

func runLaunch(cmd *cobra.Command, args []string) {
	params, err := launchParams()
	exitOnError(err)

	ctx, cancel := commandContext()
	defer cancel()

	sess, err := newSession(ctx, cmd, needSigner)
	exitOnError(err)
	defer sess.Close()

	contracts := sess.cfg.Contracts
	decimals, err := sess.client.Decimals(ctx, contracts.AssetToken)
	exitOnError(err)
	params.PurchaseAmount, err = parser.ToMinorUnits(launchPurchase, decimals)
	exitOnError(err)
	if params.PurchaseAmount.Sign() <= 0 {
		exitOnError(swap.ErrInvalidAmount)
	}

	if !noConfirm && !sess.jsonOutput {
		banner("LAUNCH", 70)
		fmt.Printf("\n  Name:      %s (%s)\n", color.YellowString(params.Name), params.Ticker)
		if params.Description != "" {
			fmt.Printf("  About:     %s\n", params.Description)
		}
		fmt.Printf("  Purchase:  %s asset\n", launchPurchase)
		fmt.Printf("  Curve:     %s\n", contracts.BondingCurve.Hex())
		fmt.Println("\n" + strings.Repeat("=", 70))
		if !confirm("Launch token?") {
			fmt.Println("\nLaunch cancelled.")
			return
		}
	}

	rec := &history.Record{
		Kind:    history.KindLaunch,
		Summary: fmt.Sprintf("launch %s (%s)", params.Name, params.Ticker),
		Amount:  params.PurchaseAmount.String(),
	}
	fail := func(err error) {
		rec.Status, rec.Error = history.StatusFailed, err.Error()
		sess.record(rec)
		exitOnError(err)
	}

	s := newSpinner("Approving purchase...", sess.jsonOutput)
	approval, err := swap.EnsureAllowance(ctx, sess.client, contracts.AssetToken, sess.account.Address(),
		contracts.BondingCurve, params.PurchaseAmount, log.Named("launch"))
	if err != nil {
		s.Stop()
		fail(err)
	}
	if approval != (common.Hash{}) {
		rec.TxHashes = append(rec.TxHashes, approval.Hex())
	}

	s.Suffix = " Launching token..."
	pending, err := sess.client.Launch(ctx, contracts.BondingCurve, params)
	if err != nil {
		s.Stop()
		fail(err)
	}
	rec.TxHashes = append(rec.TxHashes, pending.Hash().Hex())
	receipt, err := pending.Wait(ctx)
	s.Stop()
	if err != nil {
		fail(err)
	}

	rec.Status = history.StatusConfirmed
	sess.record(rec)

	if sess.jsonOutput {
		printJSON(map[string]interface{}{
			"name":         params.Name,
			"ticker":       params.Ticker,
			"tx_hash":      pending.Hash().Hex(),
			"block_number": receipt.BlockNumber.Uint64(),
			"status":       "confirmed",
		})
		return
	}
	color.Green("\n✓ Token launched!")
	fmt.Printf("  Transaction: %s\n", color.CyanString(pending.Hash().Hex()))
	fmt.Printf("  Block:       %d\n\n", receipt.BlockNumber.Uint64())
}
