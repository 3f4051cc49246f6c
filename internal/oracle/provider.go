// Package oracle supplies decimals-aware USD prices for ledger assets.
package oracle

import (
	"fmt"
	"sync"

	"github.com/shopspring/decimal"

	"launchpad/internal/domain"
)

// PriceProvider returns the decimals-aware USD price for an asset, i.e. USD
// base units per asset base unit. Operations that cannot price an asset fail
// with ErrPriceNotFound.
type PriceProvider interface {
	Price(asset domain.AssetID) (decimal.Decimal, error)
}

// Static is a fixed in-memory price table, used by tests and the simulator.
type Static struct {
	mu     sync.RWMutex
	prices map[domain.AssetID]decimal.Decimal
}

// NewStatic creates a static provider from whole-unit USD prices, normalized
// with each asset's decimals.
func NewStatic(prices map[domain.AssetID]decimal.Decimal) *Static {
	s := &Static{prices: make(map[domain.AssetID]decimal.Decimal, len(prices))}
	for asset, p := range prices {
		s.prices[asset] = p
	}
	return s
}

// DefaultPrices returns the reference deployment's price table, already
// decimals-aware. Stablecoins and DOT use 6 decimals, PLMC 10, WETH 18.
func DefaultPrices() map[domain.AssetID]decimal.Decimal {
	aware := func(price string, assetDecimals int32) decimal.Decimal {
		return decimal.RequireFromString(price).Shift(domain.USDDecimals - assetDecimals)
	}
	return map[domain.AssetID]decimal.Decimal{
		domain.AssetDOT:  aware("69", 6),
		domain.AssetUSDC: aware("0.97", 6),
		domain.AssetUSDT: aware("0.95", 6),
		domain.AssetPLMC: aware("8.4", domain.PLMCDecimals),
		domain.AssetWETH: aware("3619.45", 18),
	}
}

// Price implements PriceProvider.
func (s *Static) Price(asset domain.AssetID) (decimal.Decimal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.prices[asset]
	if !ok {
		return decimal.Zero, fmt.Errorf("asset %d: %w", asset, domain.ErrPriceNotFound)
	}
	return p, nil
}

// Set updates one asset's price.
func (s *Static) Set(asset domain.AssetID, price decimal.Decimal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prices[asset] = price
}

var _ PriceProvider = (*Static)(nil)
