package cmd

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "launchpad",
	Short: "A CLI for trading, claiming and posting on the SparkAgent launchpad",
	Long: `launchpad is a command-line tool for the SparkAgent launchpad. It buys and
sells agent tokens on the bonding curve or, after graduation, on the external
DEX, claims airdrop distributions and posts on agent forums.

Examples:
  launchpad swap buy 100 0x5FbDB2315678afecb367f032d93F642f64180aa3
  launchpad airdrop check
  launchpad token info 0x5FbDB2315678afecb367f032d93F642f64180aa3
  launchpad status <tx-hash>`,
	Version: "0.1.0",
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Add global flags
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "Output in JSON format")
	rootCmd.PersistentFlags().String("config", "", "Config file (default is $HOME/.launchpad.yaml)")
}

func printError(err error) {
	fmt.Printf("\nError: %v\n\n", err)
}

func printSuccess(message string) {
	fmt.Printf("\n%s\n\n", message)
}

func printJSON(v interface{}) {
	jsonData, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(jsonData))
}

func newSpinner(suffix string, quiet bool) *spinner.Spinner {
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	s.Suffix = " " + suffix
	if !quiet {
		s.Start()
	}
	return s
}

func confirm(prompt string) bool {
	reader := bufio.NewReader(os.Stdin)
	fmt.Printf("\n%s (y/N): ", prompt)

	response, err := reader.ReadString('\n')
	if err != nil {
		return false
	}

	response = strings.TrimSpace(strings.ToLower(response))
	return response == "y" || response == "yes"
}

func banner(title string, width int) {
	fmt.Println("\n" + strings.Repeat("=", width))
	pad := (width - len(title)) / 2
	if pad < 0 {
		pad = 0
	}
	color.Green("%s", strings.Repeat(" ", pad)+title)
	fmt.Println(strings.Repeat("=", width))
}
