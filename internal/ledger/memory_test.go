package ledger

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"launchpad/internal/domain"
)

func TestHoldReleaseRoundTrip(t *testing.T) {
	m := NewMemory()
	acct := domain.AccountID("alice")

	if err := m.Mint(domain.AssetPLMC, acct, decimal.New(1_000, 0)); err != nil {
		t.Fatalf("mint: %v", err)
	}

	if err := m.Hold(acct, domain.HoldEvaluation, decimal.New(400, 0)); err != nil {
		t.Fatalf("hold: %v", err)
	}
	if got := m.Balance(domain.AssetPLMC, acct); !got.Equal(decimal.New(600, 0)) {
		t.Errorf("free = %s, want 600", got)
	}
	if got := m.HeldBalance(acct, domain.HoldEvaluation); !got.Equal(decimal.New(400, 0)) {
		t.Errorf("held = %s, want 400", got)
	}

	if err := m.Release(acct, domain.HoldEvaluation, decimal.New(400, 0)); err != nil {
		t.Fatalf("release: %v", err)
	}
	if got := m.Balance(domain.AssetPLMC, acct); !got.Equal(decimal.New(1_000, 0)) {
		t.Errorf("free after release = %s, want 1000", got)
	}
}

func TestHoldFailsClosed(t *testing.T) {
	m := NewMemory()
	acct := domain.AccountID("bob")
	m.Mint(domain.AssetPLMC, acct, decimal.New(100, 0))

	err := m.Hold(acct, domain.HoldParticipation, decimal.New(101, 0))
	if !errors.Is(err, domain.ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}
	// Nothing moved.
	if got := m.Balance(domain.AssetPLMC, acct); !got.Equal(decimal.New(100, 0)) {
		t.Errorf("free = %s, want 100", got)
	}
	if got := m.HeldBalance(acct, domain.HoldParticipation); !got.IsZero() {
		t.Errorf("held = %s, want 0", got)
	}
}

func TestSlashHeld(t *testing.T) {
	m := NewMemory()
	acct := domain.AccountID("carol")
	m.Mint(domain.AssetPLMC, acct, decimal.New(500, 0))
	m.Hold(acct, domain.HoldEvaluation, decimal.New(500, 0))

	if err := m.SlashHeld(acct, domain.HoldEvaluation, decimal.New(100, 0), domain.TreasuryAccount); err != nil {
		t.Fatalf("slash: %v", err)
	}
	if got := m.HeldBalance(acct, domain.HoldEvaluation); !got.Equal(decimal.New(400, 0)) {
		t.Errorf("held = %s, want 400", got)
	}
	if got := m.Balance(domain.AssetPLMC, domain.TreasuryAccount); !got.Equal(decimal.New(100, 0)) {
		t.Errorf("treasury = %s, want 100", got)
	}
}

func TestConvertHold(t *testing.T) {
	m := NewMemory()
	acct := domain.AccountID("dave")
	m.Mint(domain.AssetPLMC, acct, decimal.New(300, 0))
	m.Hold(acct, domain.HoldEvaluation, decimal.New(300, 0))

	if err := m.ConvertHold(acct, domain.HoldEvaluation, domain.HoldParticipation, decimal.New(200, 0)); err != nil {
		t.Fatalf("convert: %v", err)
	}
	if got := m.HeldBalance(acct, domain.HoldEvaluation); !got.Equal(decimal.New(100, 0)) {
		t.Errorf("evaluation hold = %s, want 100", got)
	}
	if got := m.HeldBalance(acct, domain.HoldParticipation); !got.Equal(decimal.New(200, 0)) {
		t.Errorf("participation hold = %s, want 200", got)
	}

	err := m.ConvertHold(acct, domain.HoldEvaluation, domain.HoldParticipation, decimal.New(200, 0))
	if !errors.Is(err, domain.ErrInsufficientBalance) {
		t.Errorf("expected ErrInsufficientBalance, got %v", err)
	}
}

func TestTransfer(t *testing.T) {
	m := NewMemory()
	from := domain.AccountID("erin")
	to := domain.EscrowAccount(7)
	m.Mint(domain.AssetUSDT, from, decimal.New(50, 6))

	if err := m.Transfer(domain.AssetUSDT, from, to, decimal.New(30, 6)); err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if got := m.Balance(domain.AssetUSDT, to); !got.Equal(decimal.New(30, 6)) {
		t.Errorf("escrow = %s, want 30e6", got)
	}

	err := m.Transfer(domain.AssetUSDT, from, to, decimal.New(30, 6))
	if !errors.Is(err, domain.ErrInsufficientBalance) {
		t.Errorf("expected ErrInsufficientBalance, got %v", err)
	}
}
