package market

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"sparkagent-launchpad/pkg/backend"
	"sparkagent-launchpad/pkg/chain"
	"sparkagent-launchpad/pkg/types"
)

// Reader is the read-only chain surface used to price a token
type Reader interface {
	TokenInfo(ctx context.Context, curve, token common.Address) (chain.TokenInfo, error)
	TotalSupply(ctx context.Context, token common.Address) (*big.Int, error)
	Decimals(ctx context.Context, token common.Address) (uint8, error)
	Reserves(ctx context.Context, pair common.Address) (*big.Int, *big.Int, error)
	GradThreshold(ctx context.Context, curve common.Address) (*big.Int, error)
	InitialLiquidity(ctx context.Context, curve common.Address) (*big.Int, error)
	Fee(ctx context.Context, curve common.Address) (*big.Int, error)
}

// ConversionStore persists price conversions in the backend
type ConversionStore interface {
	LookupConversion(ctx context.Context, address string) (*backend.ConversionLookup, error)
	UpdateConversion(ctx context.Context, address string, conv backend.Conversion) error
	FiatConversion(ctx context.Context, symbol, currency string) (float64, error)
}

// Snapshot is the market state of an agent token
type Snapshot struct {
	Token         common.Address
	Info          chain.TokenInfo
	Decimals      uint8
	TotalSupply   *big.Int
	TokenReserve  *big.Int
	AssetReserve  *big.Int
	GradThreshold *big.Int
	Fee           *big.Int

	// Price is asset units per whole token
	Price     decimal.Decimal
	MarketCap decimal.Decimal
	// Progress is the bonding curve graduation progress in percent
	Progress  decimal.Decimal
	Graduated bool
	Mode      types.TradingMode
}

// Market reads token state and keeps the backend conversion fresh
type Market struct {
	reader    Reader
	contracts types.Contracts
	store     ConversionStore
	fiatAsset string
	currency  string
	logger    *zap.Logger
}

// Option configures a Market
type Option func(*Market)

// WithConversionStore enables RefreshConversion
func WithConversionStore(s ConversionStore) Option {
	return func(m *Market) { m.store = s }
}

// WithFiat quotes conversions in currency, pricing the asset token as symbol
func WithFiat(symbol, currency string) Option {
	return func(m *Market) {
		m.fiatAsset = symbol
		m.currency = currency
	}
}

// WithLogger sets the market logger
func WithLogger(l *zap.Logger) Option {
	return func(m *Market) { m.logger = l }
}

// New creates a Market
func New(reader Reader, contracts types.Contracts, opts ...Option) *Market {
	m := &Market{
		reader:    reader,
		contracts: contracts,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Snapshot reads the curve and pair state of token
func (m *Market) Snapshot(ctx context.Context, token common.Address) (*Snapshot, error) {
	curve := m.contracts.BondingCurve

	info, err := m.reader.TokenInfo(ctx, curve, token)
	if err != nil {
		return nil, fmt.Errorf("failed to read token info: %w", err)
	}
	if info.Token == (common.Address{}) {
		return nil, fmt.Errorf("token %s is not listed on the bonding curve", token.Hex())
	}

	s := &Snapshot{Token: token, Info: info}

	if s.Decimals, err = m.reader.Decimals(ctx, token); err != nil {
		return nil, fmt.Errorf("failed to read decimals: %w", err)
	}
	if s.TotalSupply, err = m.reader.TotalSupply(ctx, token); err != nil {
		return nil, fmt.Errorf("failed to read total supply: %w", err)
	}
	if s.GradThreshold, err = m.reader.GradThreshold(ctx, curve); err != nil {
		return nil, fmt.Errorf("failed to read graduation threshold: %w", err)
	}
	if s.Fee, err = m.reader.Fee(ctx, curve); err != nil {
		return nil, fmt.Errorf("failed to read fee: %w", err)
	}
	liquidity, err := m.reader.InitialLiquidity(ctx, curve)
	if err != nil {
		return nil, fmt.Errorf("failed to read initial liquidity: %w", err)
	}

	s.TokenReserve, s.AssetReserve = new(big.Int), new(big.Int)
	if info.Pair != (common.Address{}) {
		if s.TokenReserve, s.AssetReserve, err = m.reader.Reserves(ctx, info.Pair); err != nil {
			return nil, fmt.Errorf("failed to read reserves: %w", err)
		}
	}

	s.Graduated = info.TradingOnUniswap || !info.Trading ||
		(s.TokenReserve.Sign() > 0 && s.TokenReserve.Cmp(s.GradThreshold) <= 0)
	s.Mode = types.BondingCurve
	if s.Graduated {
		s.Mode = types.ExternalDex
	}

	s.Price = price(s.TokenReserve, s.AssetReserve)
	s.MarketCap = s.Price.Mul(decimal.NewFromBigInt(s.TotalSupply, -int32(s.Decimals)))
	s.Progress = progress(liquidity, s.GradThreshold, s.TokenReserve, s.Graduated)

	m.logger.Debug("market snapshot",
		zap.String("token", token.Hex()),
		zap.String("price", s.Price.String()),
		zap.String("mode", string(s.Mode)))
	return s, nil
}

// price assumes both pair tokens use the same number of decimals
func price(tokenReserve, assetReserve *big.Int) decimal.Decimal {
	if tokenReserve.Sign() == 0 {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(assetReserve, 0).DivRound(decimal.NewFromBigInt(tokenReserve, 0), 18)
}

// progress is how far the token reserve has moved from the initial
// liquidity toward the graduation threshold
func progress(liquidity, threshold, reserve *big.Int, graduated bool) decimal.Decimal {
	hundred := decimal.NewFromInt(100)
	if graduated {
		return hundred
	}
	span := new(big.Int).Sub(liquidity, threshold)
	if span.Sign() <= 0 {
		return decimal.Zero
	}
	sold := new(big.Int).Sub(liquidity, reserve)
	if sold.Sign() <= 0 {
		return decimal.Zero
	}

	p := decimal.NewFromBigInt(sold, 0).Mul(hundred).DivRound(decimal.NewFromBigInt(span, 0), 2)
	if p.GreaterThan(hundred) {
		return hundred
	}
	return p
}
