package bounty

import (
	"errors"
	"math/big"

	"bountychain/native/params"
	"bountychain/native/profile"
	"bountychain/native/verifier"
)

func (e *Engine) requireOwner(caller [20]byte) (params.Platform, error) {
	platform, err := e.platform()
	if err != nil {
		return params.Platform{}, err
	}
	if caller != platform.Owner {
		return params.Platform{}, ErrOwnerOnly
	}
	return platform, nil
}

// AddVerifier registers a trusted reviewer. Owner-only; re-registering an
// address fails.
func (e *Engine) AddVerifier(caller, addr [20]byte, domains []string) (*verifier.Verifier, error) {
	if _, err := e.withState(); err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, err := e.requireOwner(caller); err != nil {
		return nil, err
	}
	record, err := e.verifiers.Add(addr, caller, domains, e.height())
	if err != nil {
		if errors.Is(err, verifier.ErrExists) {
			return nil, ErrAlreadyProcessed
		}
		return nil, ErrInvalidInput
	}
	e.emit(NewVerifierAddedEvent(record))
	return record, nil
}

// CreateDeveloperProfile self-registers the caller with zeroed counters.
func (e *Engine) CreateDeveloperProfile(caller [20]byte, specialties []string, githubHandle, contact string) (*profile.Profile, error) {
	if _, err := e.withState(); err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.guard(); err != nil {
		return nil, err
	}
	record, err := e.profiles.Create(caller, specialties, githubHandle, contact, e.height())
	if err != nil {
		if errors.Is(err, profile.ErrExists) {
			return nil, ErrAlreadyProcessed
		}
		return nil, ErrInvalidInput
	}
	e.emit(NewProfileCreatedEvent(record))
	return record, nil
}

func (e *Engine) updatePlatform(caller [20]byte, mutate func(*params.Platform) error) error {
	if _, err := e.withState(); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	platform, err := e.requireOwner(caller)
	if err != nil {
		return err
	}
	if err := mutate(&platform); err != nil {
		return err
	}
	if err := e.params.SetPlatform(platform); err != nil {
		return err
	}
	e.emit(NewPlatformUpdatedEvent(platform))
	return nil
}

// SetPlatformFeeRate updates the settlement fee rate, capped at 1000 basis
// points. The change applies to subsequent settlements only.
func (e *Engine) SetPlatformFeeRate(caller [20]byte, feeBps uint32) error {
	return e.updatePlatform(caller, func(p *params.Platform) error {
		if feeBps > params.MaxFeeBps {
			return ErrInvalidInput
		}
		p.FeeBps = feeBps
		return nil
	})
}

// SetDisputePeriod updates the mandatory wait between approval and release.
func (e *Engine) SetDisputePeriod(caller [20]byte, blocks uint64) error {
	return e.updatePlatform(caller, func(p *params.Platform) error {
		if blocks == 0 {
			return ErrInvalidInput
		}
		p.DisputePeriodBlocks = blocks
		return nil
	})
}

// SetVerificationTimeout updates the window allowed between submission and
// verification before emergency recovery becomes eligible.
func (e *Engine) SetVerificationTimeout(caller [20]byte, blocks uint64) error {
	return e.updatePlatform(caller, func(p *params.Platform) error {
		if blocks == 0 {
			return ErrInvalidInput
		}
		p.VerificationTimeout = blocks
		return nil
	})
}

// SetMinBountyAmount updates the minimum amount accepted at creation.
func (e *Engine) SetMinBountyAmount(caller [20]byte, amount *big.Int) error {
	return e.updatePlatform(caller, func(p *params.Platform) error {
		if amount == nil || amount.Sign() <= 0 {
			return ErrInvalidInput
		}
		p.MinBountyAmount = new(big.Int).Set(amount)
		return nil
	})
}

// SetPlatformTreasury updates the account receiving platform fees.
func (e *Engine) SetPlatformTreasury(caller, treasury [20]byte) error {
	return e.updatePlatform(caller, func(p *params.Platform) error {
		if treasury == ([20]byte{}) {
			return ErrInvalidInput
		}
		p.Treasury = treasury
		return nil
	})
}

// SetPaused halts or resumes every mutating bounty operation. Queries stay
// available while paused.
func (e *Engine) SetPaused(caller [20]byte, paused bool) error {
	if _, err := e.withState(); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, err := e.requireOwner(caller); err != nil {
		return err
	}
	return e.params.SetPauses(params.Pauses{Bounty: paused})
}
