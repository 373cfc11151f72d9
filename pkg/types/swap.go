package types

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// Direction is the side of a trade from the user's point of view
type Direction string

const (
	Buy  Direction = "buy"  // spend the asset token, receive the agent token
	Sell Direction = "sell" // spend the agent token, receive the asset token
)

// ParseDirection accepts "buy" or "sell" in any case
func ParseDirection(s string) (Direction, error) {
	switch Direction(strings.ToLower(strings.TrimSpace(s))) {
	case Buy:
		return Buy, nil
	case Sell:
		return Sell, nil
	default:
		return "", fmt.Errorf("unknown direction %q, expected buy or sell", s)
	}
}

// TradingMode tells where an agent token currently trades
type TradingMode string

const (
	BondingCurve TradingMode = "curve" // before graduation
	ExternalDex  TradingMode = "dex"   // after graduation
)

// Contracts is the address book of the launchpad deployment
type Contracts struct {
	AssetToken    common.Address // token agent tokens are priced in
	BondingCurve  common.Address
	Factory       common.Address
	Router        common.Address // launchpad router used by the bonding curve
	DexRouter     common.Address // external DEX router used after graduation
	Forum         common.Address
	ClaimRegistry common.Address
}

// SwapIntent is a single swap request submitted by the user
type SwapIntent struct {
	Direction    Direction
	InputAmount  *big.Int // minor units of the input token
	Token        common.Address
	Counterparty common.Address // bonding curve or DEX router; filled from Contracts when zero
	TradingMode  TradingMode
}

// InputToken returns the token spent by the intent
func (s *SwapIntent) InputToken(c Contracts) common.Address {
	if s.Direction == Sell {
		return s.Token
	}
	return c.AssetToken
}

// OutputToken returns the token received by the intent
func (s *SwapIntent) OutputToken(c Contracts) common.Address {
	if s.Direction == Sell {
		return c.AssetToken
	}
	return s.Token
}

// HasAmount reports whether the intent carries a positive amount
func (s *SwapIntent) HasAmount() bool {
	return s != nil && s.InputAmount != nil && s.InputAmount.Sign() > 0
}
