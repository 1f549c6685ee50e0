package profile

import (
	"errors"
	"fmt"
	"math/big"
	"strings"
)

var (
	ErrNilState = errors.New("profile: state not configured")
	ErrExists   = errors.New("profile: already registered")
)

// Profile aggregates a developer's reputation and earnings. Counters only ever
// increase: successful settlement is the single mutation path besides the
// initial self-registration.
type Profile struct {
	Address           [20]byte
	Reputation        uint64
	CompletedBounties uint64
	TotalEarned       *big.Int
	Specialties       []string
	GithubHandle      string
	Contact           string
	JoinedAt          uint64
	Verified          bool
}

// Clone returns a deep copy of the profile record.
func (p *Profile) Clone() *Profile {
	if p == nil {
		return nil
	}
	clone := *p
	clone.Specialties = append([]string(nil), p.Specialties...)
	if p.TotalEarned != nil {
		clone.TotalEarned = new(big.Int).Set(p.TotalEarned)
	} else {
		clone.TotalEarned = big.NewInt(0)
	}
	return &clone
}

// storage abstracts the subset of state manager functionality required by the
// profile store.
type storage interface {
	ProfilePut(*Profile) error
	ProfileGet(addr [20]byte) (*Profile, bool, error)
}

// Store persists developer profiles.
type Store struct {
	state storage
}

// NewStore constructs a store bound to the provided state backend.
func NewStore(state storage) *Store {
	return &Store{state: state}
}

func (s *Store) withState() (storage, error) {
	if s == nil || s.state == nil {
		return nil, ErrNilState
	}
	return s.state, nil
}

// Get returns the profile for the given address.
func (s *Store) Get(addr [20]byte) (*Profile, bool, error) {
	state, err := s.withState()
	if err != nil {
		return nil, false, err
	}
	return state.ProfileGet(addr)
}

// Create registers a self-service profile with zeroed counters. Registering an
// address twice fails.
func (s *Store) Create(addr [20]byte, specialties []string, githubHandle, contact string, height uint64) (*Profile, error) {
	state, err := s.withState()
	if err != nil {
		return nil, err
	}
	cleaned := make([]string, 0, len(specialties))
	for _, sp := range specialties {
		trimmed := strings.TrimSpace(sp)
		if trimmed == "" {
			return nil, fmt.Errorf("profile: empty specialty")
		}
		cleaned = append(cleaned, trimmed)
	}
	if _, ok, err := state.ProfileGet(addr); err != nil {
		return nil, err
	} else if ok {
		return nil, ErrExists
	}
	record := &Profile{
		Address:      addr,
		TotalEarned:  big.NewInt(0),
		Specialties:  cleaned,
		GithubHandle: strings.TrimSpace(githubHandle),
		Contact:      strings.TrimSpace(contact),
		JoinedAt:     height,
	}
	if err := state.ProfilePut(record); err != nil {
		return nil, err
	}
	return record.Clone(), nil
}

// RecordSettlement applies the additive updates of one successful payment:
// reputation +10, completed bounties +1, total earned += payout. The profile
// is created with zero defaults when the developer never registered.
func (s *Store) RecordSettlement(addr [20]byte, payout *big.Int, height uint64) (*Profile, error) {
	state, err := s.withState()
	if err != nil {
		return nil, err
	}
	if payout == nil || payout.Sign() < 0 {
		return nil, fmt.Errorf("profile: payout must be non-negative")
	}
	record, ok, err := state.ProfileGet(addr)
	if err != nil {
		return nil, err
	}
	if !ok {
		record = &Profile{
			Address:     addr,
			TotalEarned: big.NewInt(0),
			JoinedAt:    height,
		}
	}
	if record.TotalEarned == nil {
		record.TotalEarned = big.NewInt(0)
	}
	record.Reputation += 10
	record.CompletedBounties++
	record.TotalEarned = new(big.Int).Add(record.TotalEarned, payout)
	if err := state.ProfilePut(record); err != nil {
		return nil, err
	}
	return record.Clone(), nil
}
