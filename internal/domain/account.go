package domain

import (
	"crypto/sha256"
	"fmt"

	"github.com/mr-tron/base58"
)

// EscrowAccount derives the deterministic per-project escrow address that
// holds funding assets until settlement.
// Formula: base58(SHA256("escrow|<project_id>")).
func EscrowAccount(project ProjectID) AccountID {
	return deriveAccount("escrow", uint32(project))
}

// TreasuryAccount is the protocol treasury receiving slashes and fee pots.
var TreasuryAccount = deriveAccount("treasury", 0)

// LiquidityPoolsAccount receives the liquidity-pools share of the fee.
var LiquidityPoolsAccount = deriveAccount("liquidity-pools", 0)

// LongTermHolderAccount receives the long-term-holder share of the fee.
var LongTermHolderAccount = deriveAccount("long-term-holders", 0)

func deriveAccount(kind string, n uint32) AccountID {
	data := fmt.Sprintf("%s|%d", kind, n)
	hash := sha256.Sum256([]byte(data))
	return AccountID(base58.Encode(hash[:]))
}
