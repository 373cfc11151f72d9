package forum

import (
	"context"
	"errors"
	"math/big"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sparkagent-launchpad/pkg/chain"
)

var (
	owner      = common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266")
	forumAddr  = common.HexToAddress("0xF0000000000000000000000000000000000000F1")
	agentToken = common.HexToAddress("0xA9e0000000000000000000000000000000000001")
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

type fakeGateway struct {
	allowance *big.Int
	burn      *big.Int
	min, max  *big.Int
	sendErr   error
	calls     []string
	approved  *big.Int
	message   string
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		allowance: big.NewInt(0),
		burn:      big.NewInt(10),
		min:       big.NewInt(1),
		max:       big.NewInt(16),
	}
}

func (g *fakeGateway) Allowance(ctx context.Context, token, own, spender common.Address) (*big.Int, error) {
	g.calls = append(g.calls, "allowance")
	return g.allowance, nil
}

func (g *fakeGateway) Approve(ctx context.Context, token, spender common.Address, amount *big.Int) (chain.Pending, error) {
	g.calls = append(g.calls, "approve")
	g.approved = amount
	return &fakePending{hash: common.HexToHash("0xa1")}, nil
}

func (g *fakeGateway) SendForumMessage(ctx context.Context, forum, token common.Address, message string) (chain.Pending, error) {
	g.calls = append(g.calls, "send")
	if g.sendErr != nil {
		return nil, g.sendErr
	}
	g.message = message
	return &fakePending{hash: common.HexToHash("0xb2")}, nil
}

func (g *fakeGateway) DefaultBurnAmount(ctx context.Context, forum common.Address) (*big.Int, error) {
	return g.burn, nil
}

func (g *fakeGateway) MaxMessageLength(ctx context.Context, forum common.Address) (*big.Int, error) {
	return g.max, nil
}

func (g *fakeGateway) MinMessageLength(ctx context.Context, forum common.Address) (*big.Int, error) {
	return g.min, nil
}

func TestPostApprovesBurnAndSends(t *testing.T) {
	gw := newFakeGateway()
	p := NewPoster(gw, fakeAccount(owner), forumAddr, nil)

	res, err := p.Post(context.Background(), agentToken, "gm agents")
	require.NoError(t, err)

	assert.Equal(t, []string{"allowance", "approve", "send"}, gw.calls)
	assert.Equal(t, int64(10), gw.approved.Int64())
	assert.Equal(t, "gm agents", gw.message)
	assert.Equal(t, common.HexToHash("0xa1"), res.Approval)
	assert.Equal(t, common.HexToHash("0xb2"), res.TxHash)
}

func TestPostSkipsApprovalWhenAllowed(t *testing.T) {
	gw := newFakeGateway()
	gw.allowance = big.NewInt(10)
	p := NewPoster(gw, fakeAccount(owner), forumAddr, nil)

	res, err := p.Post(context.Background(), agentToken, "gm")
	require.NoError(t, err)
	assert.Equal(t, []string{"allowance", "send"}, gw.calls)
	assert.Equal(t, common.Hash{}, res.Approval)
}

func TestPostRejectsLength(t *testing.T) {
	gw := newFakeGateway()
	p := NewPoster(gw, fakeAccount(owner), forumAddr, nil)

	_, err := p.Post(context.Background(), agentToken, "")
	assert.ErrorIs(t, err, ErrMessageLength)

	_, err = p.Post(context.Background(), agentToken, strings.Repeat("x", 17))
	assert.ErrorIs(t, err, ErrMessageLength)
	assert.Empty(t, gw.calls)
}

func TestPostSendFailure(t *testing.T) {
	gw := newFakeGateway()
	gw.burn = big.NewInt(0)
	gw.sendErr = errors.New("user rejected")
	p := NewPoster(gw, fakeAccount(owner), forumAddr, nil)

	_, err := p.Post(context.Background(), agentToken, "gm")
	assert.ErrorContains(t, err, "user rejected")
	assert.Equal(t, []string{"send"}, gw.calls)
}
