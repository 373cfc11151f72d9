package chain

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"go.uber.org/zap"
)

var (
	// ErrNoSigner is returned by write calls on a read-only client
	ErrNoSigner = errors.New("no signing account configured")
	// ErrReverted is returned by Wait when the transaction was mined but failed
	ErrReverted = errors.New("transaction reverted")
)

// Backend is everything the client needs from an RPC connection.
// *ethclient.Client satisfies it.
type Backend interface {
	bind.ContractBackend
	bind.DeployBackend
}

// Signer supplies the sending account and its signing options
type Signer interface {
	Address() common.Address
	TransactOpts(ctx context.Context) (*bind.TransactOpts, error)
}

// Pending is a submitted transaction that can be awaited
type Pending interface {
	Hash() common.Hash
	Wait(ctx context.Context) (*types.Receipt, error)
}

// Tx is a submitted transaction bound to the backend it was sent through
type Tx struct {
	tx      *types.Transaction
	backend bind.DeployBackend
}

// Hash returns the transaction hash
func (t *Tx) Hash() common.Hash {
	return t.tx.Hash()
}

// Wait blocks until the transaction is mined or ctx is done.
// A mined transaction with a failed status yields ErrReverted.
func (t *Tx) Wait(ctx context.Context) (*types.Receipt, error) {
	receipt, err := bind.WaitMined(ctx, t.backend, t.tx)
	if err != nil {
		return nil, fmt.Errorf("wait for %s: %w", t.tx.Hash().Hex(), err)
	}
	if receipt.Status == types.ReceiptStatusFailed {
		return receipt, fmt.Errorf("%w: %s", ErrReverted, t.tx.Hash().Hex())
	}
	return receipt, nil
}

// Client reads and writes launchpad contracts on an EVM chain
type Client struct {
	backend Backend
	signer  Signer
	closer  func()
	logger  *zap.Logger
}

// Option configures a Client
type Option func(*Client)

// WithSigner enables write calls
func WithSigner(s Signer) Option {
	return func(c *Client) { c.signer = s }
}

// WithLogger sets the client logger
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// Dial connects to an RPC endpoint
func Dial(ctx context.Context, rpcURL string, opts ...Option) (*Client, error) {
	rpcURL = strings.TrimSpace(rpcURL)
	if rpcURL == "" {
		return nil, errors.New("RPC URL not configured")
	}

	eth, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RPC endpoint: %w", err)
	}

	c := NewClient(eth, opts...)
	c.closer = eth.Close
	return c, nil
}

// NewClient wraps an existing backend
func NewClient(backend Backend, opts ...Option) *Client {
	c := &Client{backend: backend, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Close releases the RPC connection when the client owns it
func (c *Client) Close() {
	if c.closer != nil {
		c.closer()
		c.closer = nil
	}
}

// Receipt fetches the receipt of a mined transaction
func (c *Client) Receipt(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	receipt, err := c.backend.TransactionReceipt(ctx, hash)
	if err != nil {
		if errors.Is(err, ethereum.NotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get transaction receipt: %w", err)
	}
	return receipt, nil
}

func (c *Client) bound(address common.Address, parsed abi.ABI) *bind.BoundContract {
	return bind.NewBoundContract(address, parsed, c.backend, c.backend, c.backend)
}

func (c *Client) call(ctx context.Context, address common.Address, parsed abi.ABI, method string, args ...interface{}) ([]interface{}, error) {
	var out []interface{}
	if err := c.bound(address, parsed).Call(&bind.CallOpts{Context: ctx}, &out, method, args...); err != nil {
		return nil, fmt.Errorf("call %s on %s: %w", method, address.Hex(), err)
	}
	return out, nil
}

func (c *Client) transact(ctx context.Context, address common.Address, parsed abi.ABI, method string, args ...interface{}) (Pending, error) {
	if c.signer == nil {
		return nil, ErrNoSigner
	}

	opts, err := c.signer.TransactOpts(ctx)
	if err != nil {
		return nil, err
	}

	tx, err := c.bound(address, parsed).Transact(opts, method, args...)
	if err != nil {
		return nil, fmt.Errorf("send %s to %s: %w", method, address.Hex(), err)
	}

	c.logger.Debug("transaction sent",
		zap.String("method", method),
		zap.String("to", address.Hex()),
		zap.String("hash", tx.Hash().Hex()),
		zap.Uint64("nonce", tx.Nonce()))

	return &Tx{tx: tx, backend: c.backend}, nil
}

func bigOut(out []interface{}, i int) (*big.Int, error) {
	if len(out) <= i {
		return nil, fmt.Errorf("missing output %d", i)
	}
	v, ok := out[i].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("output %d is %T, not uint256", i, out[i])
	}
	return v, nil
}

func (c *Client) callBig(ctx context.Context, address common.Address, parsed abi.ABI, method string, args ...interface{}) (*big.Int, error) {
	out, err := c.call(ctx, address, parsed, method, args...)
	if err != nil {
		return nil, err
	}
	return bigOut(out, 0)
}
