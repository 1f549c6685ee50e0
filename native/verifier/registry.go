package verifier

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNilState = errors.New("verifier: state not configured")
	ErrExists   = errors.New("verifier: already registered")
	ErrNotFound = errors.New("verifier: not found")
)

// Verifier is an owner-vetted account trusted to approve or reject submissions
// on bounties that name it.
type Verifier struct {
	Address       [20]byte
	Domains       []string
	Reputation    uint64
	VerifiedCount uint64
	AddedBy       [20]byte
	AddedAt       uint64
	Active        bool
}

// Clone returns a deep copy of the verifier record.
func (v *Verifier) Clone() *Verifier {
	if v == nil {
		return nil
	}
	clone := *v
	clone.Domains = append([]string(nil), v.Domains...)
	return &clone
}

func sanitizeDomains(domains []string) ([]string, error) {
	cleaned := make([]string, 0, len(domains))
	for _, d := range domains {
		trimmed := strings.TrimSpace(d)
		if trimmed == "" {
			return nil, fmt.Errorf("verifier: empty domain tag")
		}
		cleaned = append(cleaned, trimmed)
	}
	return cleaned, nil
}

// storage abstracts the subset of state manager functionality required by the
// verifier registry.
type storage interface {
	VerifierPut(*Verifier) error
	VerifierGet(addr [20]byte) (*Verifier, bool, error)
}

// Registry persists the allowlist of trusted reviewers. Owner gating happens
// at the engine layer; the registry only enforces record-level invariants.
type Registry struct {
	state storage
}

// NewRegistry constructs a registry bound to the provided state backend.
func NewRegistry(state storage) *Registry {
	return &Registry{state: state}
}

func (r *Registry) withState() (storage, error) {
	if r == nil || r.state == nil {
		return nil, ErrNilState
	}
	return r.state, nil
}

// Add registers a new active verifier with zeroed counters. Re-registering an
// existing address fails.
func (r *Registry) Add(addr, addedBy [20]byte, domains []string, height uint64) (*Verifier, error) {
	state, err := r.withState()
	if err != nil {
		return nil, err
	}
	cleaned, err := sanitizeDomains(domains)
	if err != nil {
		return nil, err
	}
	if _, ok, err := state.VerifierGet(addr); err != nil {
		return nil, err
	} else if ok {
		return nil, ErrExists
	}
	record := &Verifier{
		Address: addr,
		Domains: cleaned,
		AddedBy: addedBy,
		AddedAt: height,
		Active:  true,
	}
	if err := state.VerifierPut(record); err != nil {
		return nil, err
	}
	return record.Clone(), nil
}

// Get returns the verifier record for the given address.
func (r *Registry) Get(addr [20]byte) (*Verifier, bool, error) {
	state, err := r.withState()
	if err != nil {
		return nil, false, err
	}
	return state.VerifierGet(addr)
}

// IsActive reports whether the address is a registered, active verifier.
func (r *Registry) IsActive(addr [20]byte) (bool, error) {
	record, ok, err := r.Get(addr)
	if err != nil || !ok {
		return false, err
	}
	return record.Active, nil
}

// RecordVerification bumps the verified counter after a designated verifier
// processes a submission.
func (r *Registry) RecordVerification(addr [20]byte) error {
	state, err := r.withState()
	if err != nil {
		return err
	}
	record, ok, err := state.VerifierGet(addr)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	record.VerifiedCount++
	return state.VerifierPut(record)
}
