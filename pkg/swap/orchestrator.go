package swap

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"sparkagent-launchpad/pkg/chain"
	launchpad "sparkagent-launchpad/pkg/types"
)

var (
	// ErrInvalidAmount rejects a swap without a positive input amount
	ErrInvalidAmount = errors.New("swap amount must be greater than zero")
	// ErrBusy rejects a swap while another one is in flight or awaiting dismissal
	ErrBusy = errors.New("a swap is already in progress")
)

// Gateway is the contract surface a swap needs
type Gateway interface {
	AllowanceGateway
	Buy(ctx context.Context, curve common.Address, amountIn *big.Int, token common.Address) (chain.Pending, error)
	Sell(ctx context.Context, curve common.Address, amountIn *big.Int, token common.Address) (chain.Pending, error)
	SwapExactTokensForTokensSupportingFeeOnTransferTokens(ctx context.Context, router common.Address, amountIn, amountOutMin *big.Int, path []common.Address, to, referrer common.Address, deadline *big.Int) (chain.Pending, error)
}

// Account is the wallet the swap is made for
type Account interface {
	Address() common.Address
}

// Result describes a confirmed swap
type Result struct {
	TxHash    common.Hash
	Approvals []common.Hash
	Receipt   *types.Receipt
}

// Orchestrator runs allowance checks, approvals and the final swap in order
type Orchestrator struct {
	gateway    Gateway
	account    Account
	contracts  launchpad.Contracts
	logger     *zap.Logger
	onProgress func(Progress)

	mu       sync.Mutex
	progress Progress
}

// Option configures an Orchestrator
type Option func(*Orchestrator)

// WithLogger sets the orchestrator logger
func WithLogger(l *zap.Logger) Option {
	return func(o *Orchestrator) { o.logger = l }
}

// WithProgressFunc registers a callback for every progress change
func WithProgressFunc(fn func(Progress)) Option {
	return func(o *Orchestrator) { o.onProgress = fn }
}

// New creates an orchestrator for one account
func New(gateway Gateway, account Account, contracts launchpad.Contracts, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		gateway:   gateway,
		account:   account,
		contracts: contracts,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Progress returns the current progress
func (o *Orchestrator) Progress() Progress {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.progress
}

// Dismiss closes a confirmed swap and makes the orchestrator available again.
// A swap still in flight is left untouched; the result reports whether
// progress was reset.
func (o *Orchestrator) Dismiss() bool {
	o.mu.Lock()
	if o.progress.Stage != Confirmed {
		o.mu.Unlock()
		return false
	}
	o.progress = Progress{}
	o.mu.Unlock()

	if o.onProgress != nil {
		o.onProgress(Progress{})
	}
	return true
}

func (o *Orchestrator) setProgress(p Progress) {
	o.mu.Lock()
	o.progress = p
	o.mu.Unlock()

	if o.onProgress != nil {
		o.onProgress(p)
	}
}

func (o *Orchestrator) begin(mode launchpad.TradingMode, steps int) error {
	o.mu.Lock()
	if o.progress.Busy() {
		o.mu.Unlock()
		return ErrBusy
	}
	o.progress = Progress{Mode: mode, Stage: CheckingAllowances, Steps: steps}
	p := o.progress
	o.mu.Unlock()

	if o.onProgress != nil {
		o.onProgress(p)
	}
	return nil
}

// Run executes the swap described by intent. On success the intent's amount
// is cleared and progress stays Confirmed until Dismiss. On any failure
// progress returns to Idle and the intent is left untouched.
func (o *Orchestrator) Run(ctx context.Context, intent *launchpad.SwapIntent) (*Result, error) {
	if !intent.HasAmount() {
		o.logger.Error("swap rejected", zap.Error(ErrInvalidAmount))
		return nil, ErrInvalidAmount
	}

	steps, err := Pipeline(intent.TradingMode, o.contracts, intent.InputAmount)
	if err != nil {
		return nil, err
	}

	if err := o.begin(intent.TradingMode, len(steps)); err != nil {
		return nil, err
	}

	result, err := o.execute(ctx, intent, steps)
	if err != nil {
		o.logger.Warn("swap aborted", zap.Error(err))
		o.setProgress(Progress{})
		return nil, err
	}

	intent.InputAmount = nil
	o.setProgress(Progress{Mode: intent.TradingMode, Stage: Confirmed, Steps: len(steps)})
	return result, nil
}

func (o *Orchestrator) execute(ctx context.Context, intent *launchpad.SwapIntent, steps []ApprovalStep) (*Result, error) {
	owner := o.account.Address()
	token := intent.InputToken(o.contracts)
	amount := new(big.Int).Set(intent.InputAmount)
	logger := o.logger.With(
		zap.String("direction", string(intent.Direction)),
		zap.String("mode", string(intent.TradingMode)),
		zap.String("amount", amount.String()))

	result := &Result{}
	for i := range steps {
		step := &steps[i]
		beforeApprove := func() {
			o.setProgress(Progress{Mode: intent.TradingMode, Stage: Approving, Step: i, Steps: len(steps)})
		}

		hash, err := ensureAllowance(ctx, o.gateway, token, owner, step.Spender, step.RequiredAmount, logger, beforeApprove)
		if err != nil {
			return nil, fmt.Errorf("%s approval: %w", step.Name, err)
		}
		if hash != (common.Hash{}) {
			result.Approvals = append(result.Approvals, hash)
		}
		step.Satisfied = true
	}

	o.setProgress(Progress{Mode: intent.TradingMode, Stage: AwaitingSwap, Steps: len(steps)})

	pending, err := o.submit(ctx, intent, owner, amount)
	if err != nil {
		return nil, err
	}
	logger.Info("swap submitted", zap.String("hash", pending.Hash().Hex()))

	receipt, err := pending.Wait(ctx)
	if err != nil {
		return nil, fmt.Errorf("swap %s: %w", pending.Hash().Hex(), err)
	}

	result.TxHash = pending.Hash()
	result.Receipt = receipt
	logger.Info("swap confirmed", zap.String("hash", result.TxHash.Hex()))
	return result, nil
}

func (o *Orchestrator) submit(ctx context.Context, intent *launchpad.SwapIntent, owner common.Address, amount *big.Int) (chain.Pending, error) {
	var (
		pending chain.Pending
		err     error
	)

	switch intent.TradingMode {
	case launchpad.BondingCurve:
		curve := intent.Counterparty
		if curve == (common.Address{}) {
			curve = o.contracts.BondingCurve
		}
		if intent.Direction == launchpad.Sell {
			pending, err = o.gateway.Sell(ctx, curve, amount, intent.Token)
		} else {
			pending, err = o.gateway.Buy(ctx, curve, amount, intent.Token)
		}
	case launchpad.ExternalDex:
		router := intent.Counterparty
		if router == (common.Address{}) {
			router = o.contracts.DexRouter
		}
		path := []common.Address{intent.InputToken(o.contracts), intent.OutputToken(o.contracts)}
		pending, err = o.gateway.SwapExactTokensForTokensSupportingFeeOnTransferTokens(
			ctx, router, amount, big.NewInt(0), path, owner, common.Address{}, new(big.Int).Set(math.MaxBig256))
	default:
		return nil, fmt.Errorf("unknown trading mode %q", intent.TradingMode)
	}

	if err != nil {
		return nil, fmt.Errorf("submit %s: %w", intent.Direction, err)
	}
	return pending, nil
}
