package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"sparkagent-launchpad/pkg/chain"
)

var (
	watchStatus   bool
	watchInterval int
)

var statusCmd = &cobra.Command{
	Use:   "status <tx-hash>",
	Short: "Check the status of a transaction",
	Long: `Check whether a launchpad transaction is pending, confirmed or reverted.

Examples:
  launchpad status 0x88df0160...
  launchpad status 0x88df0160... --watch
  launchpad status 0x88df0160... --watch --interval 10`,
	Args: cobra.ExactArgs(1),
	Run:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)

	statusCmd.Flags().BoolVarP(&watchStatus, "watch", "w", false, "Poll until the transaction is mined")
	statusCmd.Flags().IntVar(&watchInterval, "interval", 5, "Polling interval in seconds (when watching)")
}

// txStatus is what a receipt lookup says about a transaction
type txStatus struct {
	Hash        string `json:"tx_hash"`
	Status      string `json:"status"`
	BlockNumber uint64 `json:"block_number,omitempty"`
	GasUsed     uint64 `json:"gas_used,omitempty"`
}

func runStatus(cmd *cobra.Command, args []string) {
	if !strings.HasPrefix(args[0], "0x") || len(args[0]) != 66 {
		exitOnError(fmt.Errorf("invalid transaction hash: %s", args[0]))
	}
	hash := common.HexToHash(args[0])

	ctx, cancel := commandContext()
	defer cancel()

	sess, err := newSession(ctx, cmd, needRPC)
	exitOnError(err)
	defer sess.Close()

	if watchStatus {
		if sess.jsonOutput {
			exitOnError(errors.New("watch mode not supported with JSON output"))
		}
		watchTxStatus(ctx, sess.client, hash)
		return
	}

	s := newSpinner("Checking transaction status...", sess.jsonOutput)
	st, err := lookupStatus(ctx, sess.client, hash)
	s.Stop()
	exitOnError(err)

	if sess.jsonOutput {
		printJSON(st)
		return
	}
	displayStatus(st)
}

func lookupStatus(ctx context.Context, client *chain.Client, hash common.Hash) (txStatus, error) {
	st := txStatus{Hash: hash.Hex(), Status: "PENDING"}
	receipt, err := client.Receipt(ctx, hash)
	if errors.Is(err, ethereum.NotFound) {
		return st, nil
	}
	if err != nil {
		return st, err
	}

	st.Status = "CONFIRMED"
	if receipt.Status == ethtypes.ReceiptStatusFailed {
		st.Status = "REVERTED"
	}
	st.BlockNumber = receipt.BlockNumber.Uint64()
	st.GasUsed = receipt.GasUsed
	return st, nil
}

func watchTxStatus(ctx context.Context, client *chain.Client, hash common.Hash) {
	fmt.Printf("\nWatching transaction %s\n", color.CyanString(hash.Hex()))
	fmt.Printf("Checking every %d seconds. Press Ctrl+C to stop.\n\n", watchInterval)

	ticker := time.NewTicker(time.Duration(watchInterval) * time.Second)
	defer ticker.Stop()

	start := time.Now()
	for {
		st, err := lookupStatus(ctx, client, hash)
		switch {
		case err != nil:
			color.Red("Error: %v", err)
		case st.Status == "PENDING":
			fmt.Printf("  %s pending for %s\n", color.YellowString("…"), since(start))
		default:
			displayStatus(st)
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func displayStatus(st txStatus) {
	banner("TRANSACTION STATUS", 70)

	fmt.Printf("\n  Transaction: %s\n", color.CyanString(st.Hash))
	fmt.Printf("  Status:      %s\n", getColoredStatus(st.Status))
	if st.BlockNumber > 0 {
		fmt.Printf("  Block:       %d\n", st.BlockNumber)
		fmt.Printf("  Gas Used:    %d\n", st.GasUsed)
	}

	fmt.Println("\n" + strings.Repeat("=", 70) + "\n")
}

func getColoredStatus(status string) string {
	status = strings.ToUpper(status)

	switch status {
	case "CONFIRMED":
		return color.GreenString(status)
	case "PENDING", "PARTIAL":
		return color.YellowString(status)
	case "REVERTED", "FAILED":
		return color.RedString(status)
	default:
		return status
	}
}
