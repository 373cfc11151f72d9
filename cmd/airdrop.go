package cmd

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"sparkagent-launchpad/pkg/airdrop"
	"sparkagent-launchpad/pkg/history"
	"sparkagent-launchpad/pkg/log"
)

var (
	continueOnError bool
	checkAddress    string
)

var airdropCmd = &cobra.Command{
	Use:   "airdrop",
	Short: "Check and claim airdrop distributions",
	Long: `Check eligibility for and claim the OWN, sFUEL and NFT airdrop distributions.

Distribution datasets are read from the files or URLs configured under
distributions.own, distributions.sfuel and distributions.nft. A distribution
without a dataset counts as zero claims.

Examples:
  launchpad airdrop check
  launchpad airdrop check --address 0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266
  launchpad airdrop claim
  launchpad airdrop claim --continue-on-error`,
}

var airdropCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Show airdrop eligibility for the configured wallet",
	Args:  cobra.NoArgs,
	Run:   runAirdropCheck,
}

var airdropClaimCmd = &cobra.Command{
	Use:   "claim",
	Short: "Claim every unclaimed airdrop entry of the configured wallet",
	Args:  cobra.NoArgs,
	Run:   runAirdropClaim,
}

func init() {
	rootCmd.AddCommand(airdropCmd)
	airdropCmd.AddCommand(airdropCheckCmd, airdropClaimCmd)

	airdropCheckCmd.Flags().StringVar(&checkAddress, "address", "", "Check this address instead of the configured wallet (no private key needed)")
	airdropClaimCmd.Flags().BoolVar(&continueOnError, "continue-on-error", false, "Keep claiming remaining entries after a failure")
	airdropClaimCmd.Flags().BoolVarP(&noConfirm, "yes", "y", false, "Skip confirmation prompt")
}

// watchAddress is a read-only account for eligibility checks
type watchAddress common.Address

func (w watchAddress) Address() common.Address { return common.Address(w) }

// checkTarget resolves who `airdrop check` looks at. An explicit address
// needs only an RPC connection; otherwise the configured wallet is used.
func checkTarget(address string) (needs, airdrop.Account, error) {
	if address == "" {
		return needSigner, nil, nil
	}
	addr, err := parseAddress(address)
	if err != nil {
		return 0, nil, err
	}
	return needRPC, watchAddress(addr), nil
}

func newAirdropOrchestrator(ctx context.Context, sess *session, account airdrop.Account, opts ...airdrop.Option) (*airdrop.Orchestrator, error) {
	if err := sess.cfg.RequireClaimRegistry(); err != nil {
		return nil, err
	}

	httpClient := &http.Client{Timeout: 30 * time.Second}
	known := []struct {
		id   airdrop.DistributionID
		name string
	}{
		{airdrop.OWN, "OWN"},
		{airdrop.SFUEL, "sFUEL"},
		{airdrop.NFT, "NFT"},
	}

	distributions := make([]airdrop.Distribution, 0, len(known))
	for _, k := range known {
		ds, err := airdrop.Load(ctx, sess.cfg.Distributions[string(k.id)], httpClient)
		if err != nil {
			return nil, err
		}
		if bad := ds.Malformed(); len(bad) > 0 {
			sess.logger.Warn("skipping dataset entries with malformed addresses",
				zap.String("distribution", k.name),
				zap.Int("entries", len(bad)))
		}
		distributions = append(distributions, airdrop.Distribution{ID: k.id, Name: k.name, Dataset: ds})
	}

	opts = append([]airdrop.Option{airdrop.WithLogger(log.Named("airdrop"))}, opts...)
	return airdrop.New(sess.client, sess.cfg.Contracts.ClaimRegistry, account, distributions, opts...), nil
}

func runAirdropCheck(cmd *cobra.Command, args []string) {
	n, account, err := checkTarget(checkAddress)
	exitOnError(err)

	ctx, cancel := commandContext()
	defer cancel()

	sess, err := newSession(ctx, cmd, n)
	exitOnError(err)
	defer sess.Close()
	if account == nil {
		account = sess.account
	}

	orch, err := newAirdropOrchestrator(ctx, sess, account)
	exitOnError(err)

	s := newSpinner("Checking eligibility...", sess.jsonOutput)
	elig, err := orch.CheckEligibility(ctx)
	s.Stop()
	exitOnError(err)

	if sess.jsonOutput {
		printJSON(eligibilityJSON(elig))
		return
	}
	displayEligibility(elig)
}

func runAirdropClaim(cmd *cobra.Command, args []string) {
	ctx, cancel := commandContext()
	defer cancel()

	sess, err := newSession(ctx, cmd, needSigner)
	exitOnError(err)
	defer sess.Close()

	progress := newSpinner("Claiming...", sess.jsonOutput)
	orch, err := newAirdropOrchestrator(ctx, sess, sess.account,
		airdrop.WithContinueOnError(continueOnError),
		airdrop.WithOnClaimed(func(r airdrop.ClaimResult, _ airdrop.Eligibility) {
			progress.Lock()
			progress.Suffix = fmt.Sprintf(" Claimed %s #%s", r.Distribution, r.Entry.Index)
			progress.Unlock()
		}))
	if err != nil {
		progress.Stop()
		exitOnError(err)
	}

	if !noConfirm && !sess.jsonOutput {
		progress.Stop()
		elig, err := orch.CheckEligibility(ctx)
		exitOnError(err)
		displayEligibility(elig)
		if !confirm("Claim all unclaimed entries?") {
			fmt.Println("\nClaim cancelled.")
			return
		}
		progress.Start()
	}

	report, err := orch.HandleClaim(ctx)
	progress.Stop()

	if report != nil {
		recordClaims(sess, report, err)
	}

	if sess.jsonOutput && report != nil {
		out := map[string]interface{}{
			"claimed":     claimResultsJSON(report.Claimed),
			"skipped":     claimResultsJSON(report.Skipped),
			"failed":      claimResultsJSON(report.Failed),
			"eligibility": eligibilityJSON(report.Eligibility),
		}
		if err != nil {
			out["error"] = err.Error()
		}
		printJSON(out)
		if err != nil {
			exitOnError(err)
		}
		return
	}

	if report != nil {
		for _, r := range report.Claimed {
			color.Green("✓ Claimed %s #%s: %s (%s)", r.Distribution, r.Entry.Index, r.Entry.Amount, color.CyanString(r.TxHash.Hex()))
		}
		for _, r := range report.Skipped {
			color.Yellow("- Skipped %s #%s: already claimed", r.Distribution, r.Entry.Index)
		}
		for _, r := range report.Failed {
			color.Red("✗ Failed %s #%s: %v", r.Distribution, r.Entry.Index, r.Err)
		}
	}
	exitOnError(err)

	if len(report.Claimed) == 0 {
		printSuccess("Nothing to claim.")
		return
	}
	printSuccess(fmt.Sprintf("Claimed %d entries.", len(report.Claimed)))
	displayEligibility(report.Eligibility)
}

func recordClaims(sess *session, report *airdrop.ClaimReport, err error) {
	if len(report.Claimed) == 0 && len(report.Failed) == 0 {
		return
	}

	rec := &history.Record{
		Kind:    history.KindClaim,
		Summary: fmt.Sprintf("%d claimed, %d skipped, %d failed", len(report.Claimed), len(report.Skipped), len(report.Failed)),
		Status:  history.StatusConfirmed,
	}
	for _, r := range report.Claimed {
		rec.TxHashes = append(rec.TxHashes, r.TxHash.Hex())
	}
	if err != nil {
		rec.Error = err.Error()
		rec.Status = history.StatusFailed
		if len(report.Claimed) > 0 {
			rec.Status = history.StatusPartial
		}
	}
	sess.record(rec)
}

func displayEligibility(elig airdrop.Eligibility) {
	banner("AIRDROP ELIGIBILITY", 60)
	fmt.Printf("\n  Wallet: %s\n\n", color.CyanString(elig.Account.Hex()))

	for _, d := range elig.Distributions {
		state := color.HiBlackString("not eligible")
		switch {
		case d.IsEligible && d.IsClaimed:
			state = color.YellowString("claimed")
		case d.IsEligible:
			state = color.GreenString("eligible")
		}
		fmt.Printf("  %-8s %-14s amount %s (%d entries)\n", d.Name, state, d.ClaimAmount, len(d.Claims))
	}

	fmt.Println("\n" + strings.Repeat("=", 60) + "\n")
}

func eligibilityJSON(elig airdrop.Eligibility) map[string]interface{} {
	dists := make([]map[string]interface{}, 0, len(elig.Distributions))
	for _, d := range elig.Distributions {
		dists = append(dists, map[string]interface{}{
			"id":           d.ID,
			"claim_amount": d.ClaimAmount.String(),
			"entries":      len(d.Claims),
			"is_claimed":   d.IsClaimed,
			"is_eligible":  d.IsEligible,
		})
	}
	return map[string]interface{}{
		"account":       elig.Account.Hex(),
		"distributions": dists,
	}
}

func claimResultsJSON(results []airdrop.ClaimResult) []map[string]interface{} {
	out := make([]map[string]interface{}, 0, len(results))
	for _, r := range results {
		m := map[string]interface{}{
			"distribution": r.Distribution,
			"index":        r.Entry.Index.String(),
			"amount":       r.Entry.Amount.String(),
		}
		if r.TxHash != (common.Hash{}) {
			m["tx_hash"] = r.TxHash.Hex()
		}
		if r.Err != nil {
			m["error"] = r.Err.Error()
		}
		out = append(out, m)
	}
	return out
}
