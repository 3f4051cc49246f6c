// Package ledger defines the external asset ledger collaborator: balances,
// holds on the native collateral asset, transfers and mints. Implementations
// fail closed; insufficient funds surface as ErrInsufficientBalance.
package ledger

import (
	"github.com/shopspring/decimal"

	"launchpad/internal/domain"
)

// AssetLedger is the engine's view of the host ledger. Holds apply to the
// native collateral asset only and are keyed by (account, reason).
type AssetLedger interface {
	// Hold moves amount from the account's free native balance under a hold.
	Hold(account domain.AccountID, reason domain.HoldReason, amount decimal.Decimal) error

	// Release returns held amount to the account's free native balance.
	Release(account domain.AccountID, reason domain.HoldReason, amount decimal.Decimal) error

	// SlashHeld moves held amount to another account's free native balance.
	SlashHeld(account domain.AccountID, reason domain.HoldReason, amount decimal.Decimal, to domain.AccountID) error

	// ConvertHold re-keys held amount from one reason to another.
	ConvertHold(account domain.AccountID, from, to domain.HoldReason, amount decimal.Decimal) error

	// Transfer moves free balance of any asset between accounts.
	Transfer(asset domain.AssetID, from, to domain.AccountID, amount decimal.Decimal) error

	// Mint credits free balance of any asset out of thin air.
	Mint(asset domain.AssetID, to domain.AccountID, amount decimal.Decimal) error

	// Balance returns the free balance of an asset.
	Balance(asset domain.AssetID, account domain.AccountID) decimal.Decimal

	// HeldBalance returns the native amount held under (account, reason).
	HeldBalance(account domain.AccountID, reason domain.HoldReason) decimal.Decimal
}
