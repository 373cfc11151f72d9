package swap

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sparkagent-launchpad/pkg/chain"
	launchpad "sparkagent-launchpad/pkg/types"
)

var (
	owner      = common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266")
	agentToken = common.HexToAddress("0xA9e0000000000000000000000000000000000001")
	contracts  = launchpad.Contracts{
		AssetToken:   common.HexToAddress("0xA55e700000000000000000000000000000000001"),
		BondingCurve: common.HexToAddress("0xB0000000000000000000000000000000000000C1"),
		Factory:      common.HexToAddress("0xFAC7000000000000000000000000000000000001"),
		Router:       common.HexToAddress("0x7007E00000000000000000000000000000000001"),
		DexRouter:    common.HexToAddress("0xDE70000000000000000000000000000000000001"),
	}
)

type fakeAccount common.Address

func (a fakeAccount) Address() common.Address { return common.Address(a) }

type fakePending struct {
	hash common.Hash
	err  error
}

func (p *fakePending) Hash() common.Hash { return p.hash }

func (p *fakePending) Wait(ctx context.Context) (*types.Receipt, error) {
	if p.err != nil {
		return nil, p.err
	}
	return &types.Receipt{Status: types.ReceiptStatusSuccessful, TxHash: p.hash}, nil
}

type approval struct {
	token   common.Address
	spender common.Address
	amount  *big.Int
}

type routerSwap struct {
	router   common.Address
	amountIn *big.Int
	minOut   *big.Int
	path     []common.Address
	to       common.Address
	referrer common.Address
	deadline *big.Int
}

// fakeGateway keeps allowances per spender and logs every call in order
type fakeGateway struct {
	mu         sync.Mutex
	allowances map[common.Address]*big.Int
	readErr    map[common.Address]error
	approveErr map[common.Address]error
	waitErr    map[common.Address]error
	swapErr    error
	swapWait   error

	// swapEntered is signalled and swapGate awaited before a router swap
	swapEntered chan struct{}
	swapGate    chan struct{}

	calls     []string
	approvals []approval
	swaps     []routerSwap
	curveTxs  []string
	nonce     int
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		allowances: map[common.Address]*big.Int{},
		readErr:    map[common.Address]error{},
		approveErr: map[common.Address]error{},
		waitErr:    map[common.Address]error{},
	}
}

func (g *fakeGateway) next(err error) *fakePending {
	g.nonce++
	return &fakePending{hash: common.BigToHash(big.NewInt(int64(g.nonce))), err: err}
}

func (g *fakeGateway) Allowance(ctx context.Context, token, own, spender common.Address) (*big.Int, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = append(g.calls, "allowance:"+spender.Hex())
	if err := g.readErr[spender]; err != nil {
		return nil, err
	}
	if a, ok := g.allowances[spender]; ok {
		return new(big.Int).Set(a), nil
	}
	return big.NewInt(0), nil
}

func (g *fakeGateway) Approve(ctx context.Context, token, spender common.Address, amount *big.Int) (chain.Pending, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = append(g.calls, "approve:"+spender.Hex())
	if err := g.approveErr[spender]; err != nil {
		return nil, err
	}
	g.approvals = append(g.approvals, approval{token: token, spender: spender, amount: new(big.Int).Set(amount)})
	if g.waitErr[spender] == nil {
		g.allowances[spender] = new(big.Int).Set(amount)
	}
	return g.next(g.waitErr[spender]), nil
}

func (g *fakeGateway) Buy(ctx context.Context, curve common.Address, amountIn *big.Int, token common.Address) (chain.Pending, error) {
	return g.curve("buy", curve, amountIn, token)
}

func (g *fakeGateway) Sell(ctx context.Context, curve common.Address, amountIn *big.Int, token common.Address) (chain.Pending, error) {
	return g.curve("sell", curve, amountIn, token)
}

func (g *fakeGateway) curve(method string, curve common.Address, amountIn *big.Int, token common.Address) (chain.Pending, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = append(g.calls, method)
	if g.swapErr != nil {
		return nil, g.swapErr
	}
	g.curveTxs = append(g.curveTxs, fmt.Sprintf("%s:%s:%s:%s", method, curve.Hex(), amountIn, token.Hex()))
	return g.next(g.swapWait), nil
}

func (g *fakeGateway) SwapExactTokensForTokensSupportingFeeOnTransferTokens(ctx context.Context, router common.Address, amountIn, amountOutMin *big.Int, path []common.Address, to, referrer common.Address, deadline *big.Int) (chain.Pending, error) {
	if g.swapEntered != nil {
		g.swapEntered <- struct{}{}
	}
	if g.swapGate != nil {
		<-g.swapGate
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = append(g.calls, "routerSwap")
	if g.swapErr != nil {
		return nil, g.swapErr
	}
	g.swaps = append(g.swaps, routerSwap{router, amountIn, amountOutMin, path, to, referrer, deadline})
	return g.next(g.swapWait), nil
}

// transactions counts wallet interactions: approvals plus swaps
func (g *fakeGateway) transactions() int {
	return len(g.approvals) + len(g.swaps) + len(g.curveTxs)
}

type recorder struct {
	cursors []int
}

func (r *recorder) record(p Progress) {
	r.cursors = append(r.cursors, p.Cursor())
}

func newOrchestrator(gw *fakeGateway) (*Orchestrator, *recorder) {
	rec := &recorder{cursors: []int{0}}
	return New(gw, fakeAccount(owner), contracts, WithProgressFunc(rec.record)), rec
}

func intent(dir launchpad.Direction, mode launchpad.TradingMode, amount int64) *launchpad.SwapIntent {
	return &launchpad.SwapIntent{
		Direction:   dir,
		InputAmount: big.NewInt(amount),
		Token:       agentToken,
		TradingMode: mode,
	}
}

func TestPipelineShape(t *testing.T) {
	steps, err := Pipeline(launchpad.BondingCurve, contracts, big.NewInt(1))
	require.NoError(t, err)
	require.Len(t, steps, 3)
	assert.Equal(t, contracts.BondingCurve, steps[0].Spender)
	assert.Equal(t, contracts.Factory, steps[1].Spender)
	assert.Equal(t, contracts.Router, steps[2].Spender)

	steps, err = Pipeline(launchpad.ExternalDex, contracts, big.NewInt(1))
	require.NoError(t, err)
	require.Len(t, steps, 1)
	assert.Equal(t, contracts.DexRouter, steps[0].Spender)

	_, err = Pipeline("", contracts, big.NewInt(1))
	assert.Error(t, err)
}

func TestBuyAllAllowancesSatisfied(t *testing.T) {
	gw := newFakeGateway()
	for _, spender := range []common.Address{contracts.BondingCurve, contracts.Factory, contracts.Router} {
		gw.allowances[spender] = big.NewInt(100)
	}
	o, rec := newOrchestrator(gw)
	in := intent(launchpad.Buy, launchpad.BondingCurve, 100)

	result, err := o.Run(context.Background(), in)
	require.NoError(t, err)

	assert.Equal(t, 1, gw.transactions())
	assert.Empty(t, gw.approvals)
	require.Len(t, gw.curveTxs, 1)
	assert.Equal(t, fmt.Sprintf("buy:%s:100:%s", contracts.BondingCurve.Hex(), agentToken.Hex()), gw.curveTxs[0])
	assert.Equal(t, []int{0, 1, 5, 6}, rec.cursors)
	assert.NotEqual(t, common.Hash{}, result.TxHash)
	assert.Nil(t, in.InputAmount)
	assert.Equal(t, Confirmed, o.Progress().Stage)
}

func TestSellOnDexWithoutAllowance(t *testing.T) {
	gw := newFakeGateway()
	o, rec := newOrchestrator(gw)
	in := intent(launchpad.Sell, launchpad.ExternalDex, 50)

	result, err := o.Run(context.Background(), in)
	require.NoError(t, err)

	assert.Equal(t, 2, gw.transactions())
	assert.Equal(t, []string{"allowance:" + contracts.DexRouter.Hex(), "approve:" + contracts.DexRouter.Hex(), "routerSwap"}, gw.calls)

	require.Len(t, gw.approvals, 1)
	assert.Equal(t, agentToken, gw.approvals[0].token)
	assert.Equal(t, int64(50), gw.approvals[0].amount.Int64())

	require.Len(t, gw.swaps, 1)
	s := gw.swaps[0]
	assert.Equal(t, contracts.DexRouter, s.router)
	assert.Equal(t, int64(50), s.amountIn.Int64())
	assert.Equal(t, 0, s.minOut.Sign())
	assert.Equal(t, []common.Address{agentToken, contracts.AssetToken}, s.path)
	assert.Equal(t, owner, s.to)
	assert.Equal(t, common.Address{}, s.referrer)
	assert.Equal(t, 0, s.deadline.Cmp(math.MaxBig256))

	assert.Equal(t, []int{0, 1, 2, 3, 4}, rec.cursors)
	assert.Len(t, result.Approvals, 1)
}

func TestBondingCurveStepsRunInOrder(t *testing.T) {
	gw := newFakeGateway()
	o, rec := newOrchestrator(gw)

	_, err := o.Run(context.Background(), intent(launchpad.Buy, launchpad.BondingCurve, 10))
	require.NoError(t, err)

	assert.Equal(t, []string{
		"allowance:" + contracts.BondingCurve.Hex(), "approve:" + contracts.BondingCurve.Hex(),
		"allowance:" + contracts.Factory.Hex(), "approve:" + contracts.Factory.Hex(),
		"allowance:" + contracts.Router.Hex(), "approve:" + contracts.Router.Hex(),
		"buy",
	}, gw.calls)
	for _, a := range gw.approvals {
		assert.Equal(t, contracts.AssetToken, a.token, "buy approves the asset token")
		assert.Equal(t, int64(10), a.amount.Int64(), "approval is for the exact amount")
	}
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5, 6}, rec.cursors)
}

func TestSatisfiedStepSkipsApproval(t *testing.T) {
	baseline := newFakeGateway()
	o, _ := newOrchestrator(baseline)
	_, err := o.Run(context.Background(), intent(launchpad.Buy, launchpad.BondingCurve, 100))
	require.NoError(t, err)

	gw := newFakeGateway()
	gw.allowances[contracts.Factory] = big.NewInt(100)
	o, rec := newOrchestrator(gw)
	_, err = o.Run(context.Background(), intent(launchpad.Buy, launchpad.BondingCurve, 100))
	require.NoError(t, err)

	for _, a := range gw.approvals {
		assert.NotEqual(t, contracts.Factory, a.spender)
	}
	assert.Equal(t, baseline.transactions()-1, gw.transactions())
	assert.Equal(t, []int{0, 1, 2, 4, 5, 6}, rec.cursors)
}

func TestAllowanceReadFailureStillApproves(t *testing.T) {
	gw := newFakeGateway()
	gw.allowances[contracts.DexRouter] = big.NewInt(1000)
	gw.readErr[contracts.DexRouter] = errors.New("rpc timeout")
	o, _ := newOrchestrator(gw)

	_, err := o.Run(context.Background(), intent(launchpad.Buy, launchpad.ExternalDex, 5))
	require.NoError(t, err)
	assert.Len(t, gw.approvals, 1)
}

func TestRejectedApprovalResetsProgress(t *testing.T) {
	gw := newFakeGateway()
	gw.approveErr[contracts.Factory] = errors.New("user rejected request")
	o, rec := newOrchestrator(gw)
	in := intent(launchpad.Buy, launchpad.BondingCurve, 100)

	_, err := o.Run(context.Background(), in)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "user rejected request")

	assert.Equal(t, []int{0, 1, 2, 3, 0}, rec.cursors)
	assert.Equal(t, Idle, o.Progress().Stage)
	assert.Equal(t, int64(100), in.InputAmount.Int64(), "amount kept for retry")
	assert.Empty(t, gw.curveTxs)
	assert.NotContains(t, gw.calls, "allowance:"+contracts.Router.Hex())
}

func TestRevertedApprovalResetsProgress(t *testing.T) {
	gw := newFakeGateway()
	gw.waitErr[contracts.BondingCurve] = chain.ErrReverted
	o, rec := newOrchestrator(gw)

	_, err := o.Run(context.Background(), intent(launchpad.Sell, launchpad.BondingCurve, 3))
	assert.ErrorIs(t, err, chain.ErrReverted)
	assert.Equal(t, []int{0, 1, 2, 0}, rec.cursors)
}

func TestFailedSwapResetsProgress(t *testing.T) {
	for name, setup := range map[string]func(*fakeGateway){
		"send":    func(g *fakeGateway) { g.swapErr = errors.New("user rejected request") },
		"reverts": func(g *fakeGateway) { g.swapWait = chain.ErrReverted },
	} {
		t.Run(name, func(t *testing.T) {
			gw := newFakeGateway()
			gw.allowances[contracts.DexRouter] = big.NewInt(7)
			setup(gw)
			o, rec := newOrchestrator(gw)
			in := intent(launchpad.Buy, launchpad.ExternalDex, 7)

			_, err := o.Run(context.Background(), in)
			require.Error(t, err)
			assert.Equal(t, []int{0, 1, 3, 0}, rec.cursors)
			assert.Equal(t, int64(7), in.InputAmount.Int64())
			assert.False(t, o.Progress().Busy())
		})
	}
}

func TestRejectsMissingAmount(t *testing.T) {
	gw := newFakeGateway()
	o, rec := newOrchestrator(gw)

	_, err := o.Run(context.Background(), intent(launchpad.Buy, launchpad.BondingCurve, 0))
	assert.ErrorIs(t, err, ErrInvalidAmount)

	in := intent(launchpad.Buy, launchpad.BondingCurve, 1)
	in.InputAmount = nil
	_, err = o.Run(context.Background(), in)
	assert.ErrorIs(t, err, ErrInvalidAmount)

	assert.Empty(t, gw.calls)
	assert.Equal(t, []int{0}, rec.cursors)
}

func TestConfirmedSwapBlocksUntilDismissed(t *testing.T) {
	gw := newFakeGateway()
	o, _ := newOrchestrator(gw)

	_, err := o.Run(context.Background(), intent(launchpad.Buy, launchpad.ExternalDex, 1))
	require.NoError(t, err)
	assert.True(t, o.Progress().Dismissible())

	_, err = o.Run(context.Background(), intent(launchpad.Buy, launchpad.ExternalDex, 1))
	assert.ErrorIs(t, err, ErrBusy)

	assert.True(t, o.Dismiss())
	assert.Equal(t, 0, o.Progress().Cursor())
	assert.False(t, o.Dismiss(), "idle dismissal is a no-op")
	_, err = o.Run(context.Background(), intent(launchpad.Buy, launchpad.ExternalDex, 1))
	assert.NoError(t, err)
}

func TestDismissDuringSwapKeepsBusyGuard(t *testing.T) {
	gw := newFakeGateway()
	gw.swapEntered = make(chan struct{})
	gw.swapGate = make(chan struct{})
	o := New(gw, fakeAccount(owner), contracts)

	done := make(chan error, 1)
	go func() {
		_, err := o.Run(context.Background(), intent(launchpad.Buy, launchpad.ExternalDex, 1))
		done <- err
	}()

	<-gw.swapEntered
	assert.Equal(t, AwaitingSwap, o.Progress().Stage)

	assert.False(t, o.Dismiss())
	assert.Equal(t, AwaitingSwap, o.Progress().Stage)

	_, err := o.Run(context.Background(), intent(launchpad.Buy, launchpad.ExternalDex, 1))
	assert.ErrorIs(t, err, ErrBusy)

	close(gw.swapGate)
	require.NoError(t, <-done)
	assert.Len(t, gw.swaps, 1)
	assert.Equal(t, Confirmed, o.Progress().Stage)
	assert.True(t, o.Dismiss())
	assert.False(t, o.Progress().Busy())
}

func TestProgressCursor(t *testing.T) {
	curve := Progress{Mode: launchpad.BondingCurve, Steps: 3}
	dex := Progress{Mode: launchpad.ExternalDex, Steps: 1}

	curve.Stage = AwaitingSwap
	assert.Equal(t, 5, curve.Cursor())
	curve.Stage = Confirmed
	assert.Equal(t, 6, curve.Cursor())
	curve.Stage, curve.Step = Approving, 2
	assert.Equal(t, 4, curve.Cursor())
	assert.False(t, curve.Dismissible())

	dex.Stage = AwaitingSwap
	assert.Equal(t, 3, dex.Cursor())
	dex.Stage = Confirmed
	assert.Equal(t, 4, dex.Cursor())
	assert.True(t, dex.Dismissible())
}

func TestEnsureAllowance(t *testing.T) {
	gw := newFakeGateway()
	spender := common.HexToAddress("0x0F0F000000000000000000000000000000000001")

	hash, err := EnsureAllowance(context.Background(), gw, agentToken, owner, spender, big.NewInt(9), nil)
	require.NoError(t, err)
	assert.NotEqual(t, common.Hash{}, hash)

	hash, err = EnsureAllowance(context.Background(), gw, agentToken, owner, spender, big.NewInt(9), nil)
	require.NoError(t, err)
	assert.Equal(t, common.Hash{}, hash)
	assert.Len(t, gw.approvals, 1)
}
