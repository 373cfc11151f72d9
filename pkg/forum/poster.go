package forum

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"sparkagent-launchpad/pkg/chain"
	"sparkagent-launchpad/pkg/swap"
)

// ErrMessageLength rejects a message outside the forum's length bounds
var ErrMessageLength = errors.New("message length out of bounds")

// Gateway is the chain surface used to post on a forum
type Gateway interface {
	swap.AllowanceGateway
	SendForumMessage(ctx context.Context, forum, token common.Address, message string) (chain.Pending, error)
	DefaultBurnAmount(ctx context.Context, forum common.Address) (*big.Int, error)
	MaxMessageLength(ctx context.Context, forum common.Address) (*big.Int, error)
	MinMessageLength(ctx context.Context, forum common.Address) (*big.Int, error)
}

// Account is the wallet posting
type Account interface {
	Address() common.Address
}

// Result describes a posted message
type Result struct {
	TxHash     common.Hash
	Approval   common.Hash
	BurnAmount *big.Int
	Receipt    *types.Receipt
}

// Poster sends forum messages. Every message burns the forum's default
// amount of the agent token it is posted under.
type Poster struct {
	gateway Gateway
	account Account
	forum   common.Address
	logger  *zap.Logger
}

// NewPoster creates a Poster for the forum contract
func NewPoster(gateway Gateway, account Account, forum common.Address, logger *zap.Logger) *Poster {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Poster{gateway: gateway, account: account, forum: forum, logger: logger}
}

// Post validates message against the on-chain bounds, approves the burn
// amount when needed and sends the message
func (p *Poster) Post(ctx context.Context, token common.Address, message string) (*Result, error) {
	if err := p.validate(ctx, message); err != nil {
		return nil, err
	}

	burn, err := p.gateway.DefaultBurnAmount(ctx, p.forum)
	if err != nil {
		return nil, fmt.Errorf("failed to read burn amount: %w", err)
	}

	result := &Result{BurnAmount: burn}
	if burn.Sign() > 0 {
		result.Approval, err = swap.EnsureAllowance(ctx, p.gateway, token, p.account.Address(), p.forum, burn, p.logger)
		if err != nil {
			return nil, err
		}
	}

	pending, err := p.gateway.SendForumMessage(ctx, p.forum, token, message)
	if err != nil {
		return nil, fmt.Errorf("failed to send message: %w", err)
	}
	p.logger.Info("forum message submitted",
		zap.String("token", token.Hex()),
		zap.String("hash", pending.Hash().Hex()))

	receipt, err := pending.Wait(ctx)
	if err != nil {
		return nil, fmt.Errorf("forum message %s: %w", pending.Hash().Hex(), err)
	}

	result.TxHash = pending.Hash()
	result.Receipt = receipt
	return result, nil
}

func (p *Poster) validate(ctx context.Context, message string) error {
	lo, err := p.gateway.MinMessageLength(ctx, p.forum)
	if err != nil {
		return fmt.Errorf("failed to read min message length: %w", err)
	}
	hi, err := p.gateway.MaxMessageLength(ctx, p.forum)
	if err != nil {
		return fmt.Errorf("failed to read max message length: %w", err)
	}

	// the contract measures bytes, not runes
	n := big.NewInt(int64(len(message)))
	if n.Cmp(lo) < 0 || (hi.Sign() > 0 && n.Cmp(hi) > 0) {
		return fmt.Errorf("%w: %d bytes, allowed %s..%s", ErrMessageLength, len(message), lo, hi)
	}
	return nil
}
