package swap

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"sparkagent-launchpad/pkg/chain"
	"sparkagent-launchpad/pkg/types"
)

// ApprovalStep is one spender that must be allowed to move the input token
type ApprovalStep struct {
	Name           string
	Spender        common.Address
	RequiredAmount *big.Int
	Satisfied      bool
}

// Pipeline returns the ordered approval steps for a trading mode
func Pipeline(mode types.TradingMode, contracts types.Contracts, amount *big.Int) ([]ApprovalStep, error) {
	switch mode {
	case types.BondingCurve:
		return []ApprovalStep{
			{Name: "bonding curve", Spender: contracts.BondingCurve, RequiredAmount: amount},
			{Name: "factory", Spender: contracts.Factory, RequiredAmount: amount},
			{Name: "router", Spender: contracts.Router, RequiredAmount: amount},
		}, nil
	case types.ExternalDex:
		return []ApprovalStep{
			{Name: "dex router", Spender: contracts.DexRouter, RequiredAmount: amount},
		}, nil
	default:
		return nil, fmt.Errorf("unknown trading mode %q", mode)
	}
}

// AllowanceGateway reads and grants ERC-20 allowances
type AllowanceGateway interface {
	Allowance(ctx context.Context, token, owner, spender common.Address) (*big.Int, error)
	Approve(ctx context.Context, token, spender common.Address, amount *big.Int) (chain.Pending, error)
}

// EnsureAllowance makes sure spender may move amount of token on behalf of owner.
// It returns the approval hash, or the zero hash when the allowance already sufficed.
func EnsureAllowance(ctx context.Context, gw AllowanceGateway, token, owner, spender common.Address, amount *big.Int, logger *zap.Logger) (common.Hash, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	return ensureAllowance(ctx, gw, token, owner, spender, amount, logger, nil)
}

// ensureAllowance reads the allowance right before deciding. A failed read
// counts as insufficient so an approval is attempted rather than skipped.
// beforeApprove runs only when a transaction is about to be requested.
func ensureAllowance(ctx context.Context, gw AllowanceGateway, token, owner, spender common.Address, amount *big.Int, logger *zap.Logger, beforeApprove func()) (common.Hash, error) {
	allowance, err := gw.Allowance(ctx, token, owner, spender)
	switch {
	case err != nil:
		logger.Warn("allowance read failed, requesting approval",
			zap.String("token", token.Hex()),
			zap.String("spender", spender.Hex()),
			zap.Error(err))
	case allowance.Cmp(amount) >= 0:
		logger.Debug("allowance sufficient",
			zap.String("spender", spender.Hex()),
			zap.String("allowance", allowance.String()))
		return common.Hash{}, nil
	}

	if beforeApprove != nil {
		beforeApprove()
	}

	pending, err := gw.Approve(ctx, token, spender, amount)
	if err != nil {
		return common.Hash{}, fmt.Errorf("approve %s: %w", spender.Hex(), err)
	}
	logger.Info("approval submitted",
		zap.String("spender", spender.Hex()),
		zap.String("amount", amount.String()),
		zap.String("hash", pending.Hash().Hex()))

	if _, err := pending.Wait(ctx); err != nil {
		return pending.Hash(), fmt.Errorf("approval %s: %w", pending.Hash().Hex(), err)
	}
	return pending.Hash(), nil
}
