package escrow

import (
	"fmt"
	"math/big"
)

// Holding captures the custody record for one bounty's escrowed funds. The
// amount is fixed at creation and never changes; the two flags trace the
// lifecycle: locked funds are held by the vault, released funds have left it.
// Holdings are retained after release as an audit record.
type Holding struct {
	BountyID uint64
	Amount   *big.Int
	Locked   bool
	Released bool
}

// Clone returns a deep copy of the holding so callers can safely mutate the
// copy without affecting the stored instance.
func (h *Holding) Clone() *Holding {
	if h == nil {
		return nil
	}
	clone := *h
	if h.Amount != nil {
		clone.Amount = new(big.Int).Set(h.Amount)
	} else {
		clone.Amount = big.NewInt(0)
	}
	return &clone
}

// SanitizeHolding validates the supplied holding and returns a cloned instance
// with a non-nil amount. Exactly one of "locked" and "released" must be set
// once the holding exists. The function does not mutate the original value.
func SanitizeHolding(h *Holding) (*Holding, error) {
	if h == nil {
		return nil, fmt.Errorf("escrow: nil holding")
	}
	clone := h.Clone()
	if clone.Amount == nil {
		clone.Amount = big.NewInt(0)
	}
	if clone.Amount.Sign() <= 0 {
		return nil, fmt.Errorf("escrow: amount must be positive")
	}
	if clone.Locked == clone.Released {
		return nil, fmt.Errorf("escrow: holding must be exactly one of locked or released")
	}
	return clone, nil
}

// Payout names a recipient for a share of a released holding.
type Payout struct {
	To     [20]byte
	Amount *big.Int
}
