package params

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/big"
)

// MaxFeeBps caps the platform fee rate at 10%.
const MaxFeeBps = 1000

// Platform is the owner-gated configuration record read by every bounty
// operation. Changes take effect immediately for subsequent operations; they
// are never retroactive to amounts already locked in escrow.
type Platform struct {
	Owner               [20]byte `json:"owner"`
	Treasury            [20]byte `json:"treasury"`
	FeeBps              uint32   `json:"feeBps"`
	DisputePeriodBlocks uint64   `json:"disputePeriodBlocks"`
	VerificationTimeout uint64   `json:"verificationTimeoutBlocks"`
	MinBountyAmount     *big.Int `json:"minBountyAmount"`
}

// DefaultPlatform returns the initialization defaults: 2.5% fee, a one-week
// dispute period and verification timeout at 144 blocks per day.
func DefaultPlatform(owner, treasury [20]byte) Platform {
	return Platform{
		Owner:               owner,
		Treasury:            treasury,
		FeeBps:              250,
		DisputePeriodBlocks: 1008,
		VerificationTimeout: 1008,
		MinBountyAmount:     big.NewInt(1_000_000),
	}
}

// Clone returns a deep copy of the platform record.
func (p Platform) Clone() Platform {
	clone := p
	if p.MinBountyAmount != nil {
		clone.MinBountyAmount = new(big.Int).Set(p.MinBountyAmount)
	} else {
		clone.MinBountyAmount = big.NewInt(0)
	}
	return clone
}

// Validate checks the configuration invariants.
func (p Platform) Validate() error {
	if p.FeeBps > MaxFeeBps {
		return fmt.Errorf("params: fee bps %d exceeds maximum %d", p.FeeBps, MaxFeeBps)
	}
	if p.DisputePeriodBlocks == 0 {
		return fmt.Errorf("params: dispute period must be positive")
	}
	if p.VerificationTimeout == 0 {
		return fmt.Errorf("params: verification timeout must be positive")
	}
	if p.MinBountyAmount == nil || p.MinBountyAmount.Sign() <= 0 {
		return fmt.Errorf("params: minimum bounty amount must be positive")
	}
	if p.Treasury == ([20]byte{}) {
		return fmt.Errorf("params: treasury not configured")
	}
	return nil
}

// Pauses controls which mutating surfaces are halted.
type Pauses struct {
	Bounty bool `json:"bounty"`
}

// IsPaused implements the common.PauseView interface.
func (p Pauses) IsPaused(module string) bool {
	switch module {
	case "bounty":
		return p.Bounty
	default:
		return false
	}
}

// StoreState captures the subset of state manager capabilities required by the
// parameter helpers.
type StoreState interface {
	ParamStoreSet(name string, value []byte) error
	ParamStoreGet(name string) ([]byte, bool, error)
}

// Store provides typed accessors for the governed platform parameters. Values
// are marshalled as JSON to keep them inspectable by external tooling.
type Store struct {
	state StoreState
}

// NewStore constructs a parameter store wrapper using the supplied state
// backend.
func NewStore(state StoreState) *Store {
	return &Store{state: state}
}

func (s *Store) withState() (StoreState, error) {
	if s == nil || s.state == nil {
		return nil, fmt.Errorf("params: state not configured")
	}
	return s.state, nil
}

// SetPlatform persists the platform configuration after validation.
func (s *Store) SetPlatform(platform Platform) error {
	state, err := s.withState()
	if err != nil {
		return err
	}
	if err := platform.Validate(); err != nil {
		return err
	}
	encoded, err := json.Marshal(platform)
	if err != nil {
		return fmt.Errorf("params: encode platform: %w", err)
	}
	return state.ParamStoreSet(KeyPlatform, encoded)
}

// Platform loads the persisted platform configuration.
func (s *Store) Platform() (Platform, bool, error) {
	state, err := s.withState()
	if err != nil {
		return Platform{}, false, err
	}
	raw, ok, err := state.ParamStoreGet(KeyPlatform)
	if err != nil {
		return Platform{}, false, err
	}
	if !ok || len(bytes.TrimSpace(raw)) == 0 {
		return Platform{}, false, nil
	}
	var platform Platform
	if err := json.Unmarshal(raw, &platform); err != nil {
		return Platform{}, false, fmt.Errorf("params: decode platform: %w", err)
	}
	return platform, true, nil
}

// SetPauses persists the pause configuration.
func (s *Store) SetPauses(pauses Pauses) error {
	state, err := s.withState()
	if err != nil {
		return err
	}
	encoded, err := json.Marshal(pauses)
	if err != nil {
		return fmt.Errorf("params: encode pauses: %w", err)
	}
	return state.ParamStoreSet(KeyPauses, encoded)
}

// Pauses loads the persisted pause configuration. When unset, a zero-value
// configuration is returned.
func (s *Store) Pauses() (Pauses, error) {
	state, err := s.withState()
	if err != nil {
		return Pauses{}, err
	}
	raw, ok, err := state.ParamStoreGet(KeyPauses)
	if err != nil {
		return Pauses{}, err
	}
	if !ok || len(bytes.TrimSpace(raw)) == 0 {
		return Pauses{}, nil
	}
	var pauses Pauses
	if err := json.Unmarshal(raw, &pauses); err != nil {
		return Pauses{}, fmt.Errorf("params: decode pauses: %w", err)
	}
	return pauses, nil
}
