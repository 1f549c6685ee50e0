package escrow

import (
	"errors"
	"fmt"
	"math/big"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"bountychain/core/types"
)

var (
	ErrNilState            = errors.New("escrow: state not configured")
	ErrHoldingNotFound     = errors.New("escrow: holding not found")
	ErrHoldingExists       = errors.New("escrow: holding already exists")
	ErrAlreadyReleased     = errors.New("escrow: holding already released")
	ErrInsufficientBalance = errors.New("escrow: insufficient balance")
	ErrSplitMismatch       = errors.New("escrow: payout sum does not match held amount")
)

// ledgerState abstracts the subset of state manager functionality required by
// the escrow ledger.
type ledgerState interface {
	EscrowPut(*Holding) error
	EscrowGet(bountyID uint64) (*Holding, bool, error)
	GetAccount(addr []byte) (*types.Account, error)
	PutAccount(addr []byte, account *types.Account) error
}

var vaultAddress = func() [20]byte {
	digest := ethcrypto.Keccak256([]byte("bountychain/escrow/vault"))
	var addr [20]byte
	copy(addr[:], digest[12:])
	return addr
}()

// VaultAddress returns the module account that custodies all locked funds.
// The address is derived deterministically and has no known private key.
func VaultAddress() [20]byte { return vaultAddress }

// Ledger performs pure custody bookkeeping: it locks a bounty's funds into the
// vault at creation and pays them out exactly once at settlement, refund or
// emergency release. Only the bounty engine drives it; a holding can never be
// released twice and the sum of all outbound transfers always equals the
// originally locked amount.
type Ledger struct {
	state ledgerState
}

// NewLedger constructs a ledger bound to the provided state backend.
func NewLedger(state ledgerState) *Ledger {
	return &Ledger{state: state}
}

func (l *Ledger) withState() (ledgerState, error) {
	if l == nil || l.state == nil {
		return nil, ErrNilState
	}
	return l.state, nil
}

// Holding returns the custody record for the given bounty.
func (l *Ledger) Holding(bountyID uint64) (*Holding, bool, error) {
	state, err := l.withState()
	if err != nil {
		return nil, false, err
	}
	return state.EscrowGet(bountyID)
}

// Lock debits the amount from the payer and credits the vault, creating the
// holding record. The transfer and the record write belong to the same serial
// operation: if the payer's balance is insufficient nothing is written.
func (l *Ledger) Lock(bountyID uint64, from [20]byte, amount *big.Int) error {
	state, err := l.withState()
	if err != nil {
		return err
	}
	if amount == nil || amount.Sign() <= 0 {
		return fmt.Errorf("escrow: amount must be positive")
	}
	if _, ok, err := state.EscrowGet(bountyID); err != nil {
		return err
	} else if ok {
		return ErrHoldingExists
	}
	if err := l.transfer(from, vaultAddress, amount); err != nil {
		return err
	}
	holding := &Holding{
		BountyID: bountyID,
		Amount:   new(big.Int).Set(amount),
		Locked:   true,
	}
	return state.EscrowPut(holding)
}

// Release drains the holding into the supplied payouts. The payout amounts
// must sum exactly to the held amount; zero-amount payouts are permitted and
// skipped. A holding releases at most once.
func (l *Ledger) Release(bountyID uint64, payouts ...Payout) error {
	state, err := l.withState()
	if err != nil {
		return err
	}
	holding, ok, err := state.EscrowGet(bountyID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrHoldingNotFound
	}
	if holding.Released {
		return ErrAlreadyReleased
	}
	total := big.NewInt(0)
	for _, p := range payouts {
		if p.Amount == nil || p.Amount.Sign() < 0 {
			return fmt.Errorf("escrow: negative payout amount")
		}
		total.Add(total, p.Amount)
	}
	if total.Cmp(holding.Amount) != 0 {
		return ErrSplitMismatch
	}
	for _, p := range payouts {
		if p.Amount.Sign() == 0 {
			continue
		}
		if err := l.transfer(vaultAddress, p.To, p.Amount); err != nil {
			return err
		}
	}
	holding.Locked = false
	holding.Released = true
	return state.EscrowPut(holding)
}

func ensureAccount(acc *types.Account) *types.Account {
	if acc == nil {
		return &types.Account{Balance: big.NewInt(0)}
	}
	if acc.Balance == nil {
		acc.Balance = big.NewInt(0)
	}
	return acc
}

func (l *Ledger) transfer(from, to [20]byte, amount *big.Int) error {
	state, err := l.withState()
	if err != nil {
		return err
	}
	if amount.Sign() == 0 {
		return nil
	}
	fromAcc, err := state.GetAccount(from[:])
	if err != nil {
		return err
	}
	toAcc, err := state.GetAccount(to[:])
	if err != nil {
		return err
	}
	fromAcc = ensureAccount(fromAcc)
	toAcc = ensureAccount(toAcc)
	if fromAcc.Balance.Cmp(amount) < 0 {
		return ErrInsufficientBalance
	}
	fromAcc.Balance = new(big.Int).Sub(fromAcc.Balance, amount)
	toAcc.Balance = new(big.Int).Add(toAcc.Balance, amount)
	if err := state.PutAccount(from[:], fromAcc); err != nil {
		return err
	}
	return state.PutAccount(to[:], toAcc)
}
