package parser

import (
	"fmt"
	"math/big"
	"regexp"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"sparkagent-launchpad/pkg/types"
)

// SwapCommand is the parsed form of a swap command line
type SwapCommand struct {
	Direction types.Direction
	Amount    string // display units, as typed
	Token     common.Address
}

var swapPattern = regexp.MustCompile(`^(BUY|SELL)\s+(\d+\.?\d*)\s+(0X[0-9A-F]{40})$`)

// ParseSwapCommand parses a swap command
// Examples:
//   - "buy 100 0x5FbDB2315678afecb367f032d93F642f64180aa3"
//   - "sell 0.5 0x5FbDB2315678afecb367f032d93F642f64180aa3"
func ParseSwapCommand(command string) (*SwapCommand, error) {
	normalized := strings.Join(strings.Fields(strings.ToUpper(command)), " ")
	normalized = strings.TrimPrefix(normalized, "SWAP ")

	matches := swapPattern.FindStringSubmatch(normalized)
	if matches == nil {
		return nil, fmt.Errorf("invalid swap command format. Expected: 'swap <buy|sell> <amount> <token-address>'")
	}

	direction, err := types.ParseDirection(matches[1])
	if err != nil {
		return nil, err
	}

	return &SwapCommand{
		Direction: direction,
		Amount:    matches[2],
		Token:     common.HexToAddress(matches[3]),
	}, nil
}

// ToMinorUnits converts a display amount into the token's smallest unit.
// Fractional digits beyond the token's precision are rejected rather than rounded.
func ToMinorUnits(amount string, decimals uint8) (*big.Int, error) {
	amount = strings.TrimSpace(amount)
	if amount == "" {
		return nil, fmt.Errorf("amount is required")
	}

	d, err := decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("invalid amount format: %s", amount)
	}
	if d.Sign() < 0 {
		return nil, fmt.Errorf("amount must not be negative")
	}

	scaled := d.Shift(int32(decimals))
	if !scaled.Equal(scaled.Truncate(0)) {
		return nil, fmt.Errorf("amount %s has more than %d decimal places", amount, decimals)
	}

	return scaled.BigInt(), nil
}

// FromMinorUnits formats a minor-unit amount for display
func FromMinorUnits(amount *big.Int, decimals uint8) string {
	if amount == nil {
		return "0"
	}
	return decimal.NewFromBigInt(amount, -int32(decimals)).String()
}
