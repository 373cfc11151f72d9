package wallet

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Account is the active wallet: an address plus the ability to sign for it
type Account struct {
	address    common.Address
	privateKey *ecdsa.PrivateKey
	chainID    *big.Int

	// GasLimit overrides estimation when non-zero
	GasLimit uint64
}

// NewAccount parses a hex private key for the given chain
func NewAccount(privateKeyHex string, chainID int64) (*Account, error) {
	if strings.TrimSpace(privateKeyHex) == "" {
		return nil, fmt.Errorf("private key not configured")
	}
	if chainID <= 0 {
		return nil, fmt.Errorf("chain id must be positive, got %d", chainID)
	}

	privateKey, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(privateKeyHex), "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}

	publicKeyECDSA, ok := privateKey.Public().(*ecdsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("failed to get public key")
	}

	return &Account{
		address:    crypto.PubkeyToAddress(*publicKeyECDSA),
		privateKey: privateKey,
		chainID:    big.NewInt(chainID),
	}, nil
}

// Address returns the account address
func (a *Account) Address() common.Address {
	return a.address
}

// ChainID returns the chain the account signs for
func (a *Account) ChainID() *big.Int {
	return new(big.Int).Set(a.chainID)
}

// TransactOpts returns fresh signing options bound to ctx.
// A new value per submission keeps nonce and gas estimation per transaction.
func (a *Account) TransactOpts(ctx context.Context) (*bind.TransactOpts, error) {
	opts, err := bind.NewKeyedTransactorWithChainID(a.privateKey, a.chainID)
	if err != nil {
		return nil, fmt.Errorf("create transactor: %w", err)
	}
	opts.Context = ctx
	opts.GasLimit = a.GasLimit
	return opts, nil
}
