package ledger

import (
	"fmt"
	"sync"

	"github.com/shopspring/decimal"

	"launchpad/internal/domain"
)

type balanceKey struct {
	asset   domain.AssetID
	account domain.AccountID
}

type holdKey struct {
	account domain.AccountID
	reason  domain.HoldReason
}

// Memory is an in-memory AssetLedger for tests and the simulator.
type Memory struct {
	mu   sync.RWMutex
	free map[balanceKey]decimal.Decimal
	held map[holdKey]decimal.Decimal
}

// NewMemory creates an empty in-memory ledger.
func NewMemory() *Memory {
	return &Memory{
		free: make(map[balanceKey]decimal.Decimal),
		held: make(map[holdKey]decimal.Decimal),
	}
}

// Hold implements AssetLedger.
func (m *Memory) Hold(account domain.AccountID, reason domain.HoldReason, amount decimal.Decimal) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	bk := balanceKey{domain.AssetPLMC, account}
	if m.free[bk].LessThan(amount) {
		return fmt.Errorf("hold %s for %s: %w", amount, account, domain.ErrInsufficientBalance)
	}
	hk := holdKey{account, reason}
	m.free[bk] = m.free[bk].Sub(amount)
	m.held[hk] = m.held[hk].Add(amount)
	return nil
}

// Release implements AssetLedger.
func (m *Memory) Release(account domain.AccountID, reason domain.HoldReason, amount decimal.Decimal) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	hk := holdKey{account, reason}
	if m.held[hk].LessThan(amount) {
		return fmt.Errorf("release %s for %s: %w", amount, account, domain.ErrInsufficientBalance)
	}
	bk := balanceKey{domain.AssetPLMC, account}
	m.held[hk] = m.held[hk].Sub(amount)
	m.free[bk] = m.free[bk].Add(amount)
	return nil
}

// SlashHeld implements AssetLedger.
func (m *Memory) SlashHeld(account domain.AccountID, reason domain.HoldReason, amount decimal.Decimal, to domain.AccountID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	hk := holdKey{account, reason}
	if m.held[hk].LessThan(amount) {
		return fmt.Errorf("slash %s of %s: %w", amount, account, domain.ErrInsufficientBalance)
	}
	bk := balanceKey{domain.AssetPLMC, to}
	m.held[hk] = m.held[hk].Sub(amount)
	m.free[bk] = m.free[bk].Add(amount)
	return nil
}

// ConvertHold implements AssetLedger.
func (m *Memory) ConvertHold(account domain.AccountID, from, to domain.HoldReason, amount decimal.Decimal) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	fk := holdKey{account, from}
	if m.held[fk].LessThan(amount) {
		return fmt.Errorf("convert hold %s of %s: %w", amount, account, domain.ErrInsufficientBalance)
	}
	tk := holdKey{account, to}
	m.held[fk] = m.held[fk].Sub(amount)
	m.held[tk] = m.held[tk].Add(amount)
	return nil
}

// Transfer implements AssetLedger.
func (m *Memory) Transfer(asset domain.AssetID, from, to domain.AccountID, amount decimal.Decimal) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	fk := balanceKey{asset, from}
	if m.free[fk].LessThan(amount) {
		return fmt.Errorf("transfer %s of asset %d from %s: %w", amount, asset, from, domain.ErrInsufficientBalance)
	}
	tk := balanceKey{asset, to}
	m.free[fk] = m.free[fk].Sub(amount)
	m.free[tk] = m.free[tk].Add(amount)
	return nil
}

// Mint implements AssetLedger.
func (m *Memory) Mint(asset domain.AssetID, to domain.AccountID, amount decimal.Decimal) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	bk := balanceKey{asset, to}
	m.free[bk] = m.free[bk].Add(amount)
	return nil
}

// Balance implements AssetLedger.
func (m *Memory) Balance(asset domain.AssetID, account domain.AccountID) decimal.Decimal {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.free[balanceKey{asset, account}]
}

// HeldBalance implements AssetLedger.
func (m *Memory) HeldBalance(account domain.AccountID, reason domain.HoldReason) decimal.Decimal {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.held[holdKey{account, reason}]
}

var _ AssetLedger = (*Memory)(nil)
