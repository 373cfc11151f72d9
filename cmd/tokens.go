package cmd

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"sparkagent-launchpad/pkg/backend"
	"sparkagent-launchpad/pkg/market"
	"sparkagent-launchpad/pkg/parser"
)

var refreshConversion bool

var tokenCmd = &cobra.Command{
	Use:     "token",
	Aliases: []string{"tokens"},
	Short:   "Inspect agent tokens",
}

var tokenInfoCmd = &cobra.Command{
	Use:   "info <token-address>",
	Short: "Show agent metadata and market state of a token",
	Long: `Show backend metadata and on-chain market state of an agent token.

Agents flagged by the backend are hidden.

Examples:
  launchpad token info 0x5FbDB2315678afecb367f032d93F642f64180aa3
  launchpad token info 0x5FbDB2315678afecb367f032d93F642f64180aa3 --refresh`,
	Args: cobra.ExactArgs(1),
	Run:  runTokenInfo,
}

func init() {
	rootCmd.AddCommand(tokenCmd)
	tokenCmd.AddCommand(tokenInfoCmd)

	tokenInfoCmd.Flags().BoolVar(&refreshConversion, "refresh", false, "Update the stored price conversion when it is stale")
}

func parseAddress(s string) (common.Address, error) {
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("invalid address: %s", s)
	}
	return common.HexToAddress(s), nil
}

func runTokenInfo(cmd *cobra.Command, args []string) {
	token, err := parseAddress(args[0])
	exitOnError(err)

	ctx, cancel := commandContext()
	defer cancel()

	sess, err := newSession(ctx, cmd, needContracts)
	exitOnError(err)
	defer sess.Close()

	s := newSpinner("Fetching token...", sess.jsonOutput)

	agent, err := sess.backend().Agent(ctx, token.Hex())
	if err != nil {
		// metadata is optional, the market state still shows
		sess.logger.Warn("agent metadata unavailable", zap.Error(err))
		agent = nil
	}
	if agent != nil && !agent.Active() {
		s.Stop()
		exitOnError(fmt.Errorf("agent %s is not available", token.Hex()))
	}

	m := sess.market()
	snap, err := m.Snapshot(ctx, token)
	if err != nil {
		s.Stop()
		exitOnError(err)
	}

	var conv *backend.Conversion
	if refreshConversion {
		var updated bool
		conv, updated, err = m.RefreshConversion(ctx, token)
		if err != nil {
			sess.logger.Warn("conversion refresh failed", zap.Error(err))
		} else if updated {
			sess.logger.Info("conversion refreshed", zap.String("token", token.Hex()))
		}
	}
	s.Stop()

	if sess.jsonOutput {
		out := map[string]interface{}{
			"token":        token.Hex(),
			"pair":         snap.Info.Pair.Hex(),
			"creator":      snap.Info.Creator.Hex(),
			"mode":         snap.Mode,
			"graduated":    snap.Graduated,
			"price":        snap.Price.String(),
			"market_cap":   snap.MarketCap.String(),
			"progress":     snap.Progress.String(),
			"total_supply": parser.FromMinorUnits(snap.TotalSupply, snap.Decimals),
			"fee":          snap.Fee.String(),
			"description":  snap.Info.Description,
			"image":        snap.Info.Image,
		}
		if agent != nil {
			out["agent"] = agent
		}
		if conv != nil {
			out["conversion"] = conv
		}
		printJSON(out)
		return
	}

	displayToken(agent, snap, conv)
}

func displayToken(agent *backend.Agent, snap *market.Snapshot, conv *backend.Conversion) {
	banner("AGENT TOKEN", 70)

	if agent != nil {
		fmt.Printf("\n  Name:          %s (%s)\n", color.YellowString(agent.Name), agent.Ticker)
		if agent.Description != "" {
			fmt.Printf("  About:         %s\n", agent.Description)
		}
	} else if snap.Info.Description != "" {
		fmt.Printf("\n  About:         %s\n", snap.Info.Description)
	}

	fmt.Printf("\n  Token:         %s\n", color.CyanString(snap.Token.Hex()))
	fmt.Printf("  Creator:       %s\n", snap.Info.Creator.Hex())
	fmt.Printf("  Pair:          %s\n", snap.Info.Pair.Hex())
	fmt.Printf("  Total Supply:  %s\n", parser.FromMinorUnits(snap.TotalSupply, snap.Decimals))
	fmt.Printf("  Price:         %s asset per token\n", snap.Price.String())
	fmt.Printf("  Market Cap:    %s asset\n", snap.MarketCap.StringFixed(2))

	if snap.Graduated {
		fmt.Printf("  Trading:       %s\n", color.GreenString("external DEX (graduated)"))
	} else {
		fmt.Printf("  Trading:       %s\n", color.YellowString("bonding curve"))
		fmt.Printf("  Graduation:    %s%%\n", snap.Progress.StringFixed(2))
	}

	if conv != nil {
		currency := conv.Currency
		if currency == "" {
			currency = "asset"
		}
		fmt.Printf("  Fiat Price:    %s %s\n", conv.Price, currency)
		fmt.Printf("  Fiat Cap:      %s %s\n", conv.MarketCap, currency)
	}

	fmt.Println("\n" + strings.Repeat("=", 70) + "\n")
}
