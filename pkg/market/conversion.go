package market

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"sparkagent-launchpad/pkg/backend"
)

// ErrNoConversionStore is returned when RefreshConversion has no backend
var ErrNoConversionStore = errors.New("no conversion store configured")

// RefreshConversion returns the stored conversion for token, computing and
// storing a new one when the backend reports it stale. The boolean reports
// whether an update was written.
func (m *Market) RefreshConversion(ctx context.Context, token common.Address) (*backend.Conversion, bool, error) {
	if m.store == nil {
		return nil, false, ErrNoConversionStore
	}

	address := token.Hex()
	lookup, err := m.store.LookupConversion(ctx, address)
	if err != nil {
		return nil, false, err
	}
	if !lookup.NeedsUpdating && lookup.Data.Conversion != nil {
		return lookup.Data.Conversion, false, nil
	}

	snap, err := m.Snapshot(ctx, token)
	if err != nil {
		return nil, false, err
	}

	conv, err := m.conversion(ctx, snap)
	if err != nil {
		return nil, false, err
	}
	if err := m.store.UpdateConversion(ctx, address, *conv); err != nil {
		return nil, false, err
	}

	m.logger.Info("conversion updated",
		zap.String("token", address),
		zap.String("price", conv.Price),
		zap.String("marketCap", conv.MarketCap))
	return conv, true, nil
}

func (m *Market) conversion(ctx context.Context, snap *Snapshot) (*backend.Conversion, error) {
	p, mc := snap.Price, snap.MarketCap
	currency := ""

	if m.fiatAsset != "" && m.currency != "" {
		rate, err := m.store.FiatConversion(ctx, m.fiatAsset, m.currency)
		if err != nil {
			return nil, fmt.Errorf("failed to price %s in %s: %w", m.fiatAsset, m.currency, err)
		}
		r := decimal.NewFromFloat(rate)
		p, mc = p.Mul(r), mc.Mul(r)
		currency = m.currency
	}

	return &backend.Conversion{
		Price:     p.String(),
		MarketCap: mc.Round(2).String(),
		Currency:  currency,
		UpdatedAt: time.Now().UTC(),
	}, nil
}
