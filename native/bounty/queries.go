package bounty

import (
	"bountychain/native/escrow"
	"bountychain/native/params"
	"bountychain/native/profile"
	"bountychain/native/verifier"
)

// GetBounty returns the bounty record for the given id.
func (e *Engine) GetBounty(id uint64) (*Bounty, bool, error) {
	state, err := e.withState()
	if err != nil {
		return nil, false, err
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	return state.BountyGet(id)
}

// GetSubmission returns the submission record for the given id.
func (e *Engine) GetSubmission(id uint64) (*Submission, bool, error) {
	state, err := e.withState()
	if err != nil {
		return nil, false, err
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	return state.SubmissionGet(id)
}

// GetBountySubmission resolves the submission a developer made against a
// bounty through the composite index.
func (e *Engine) GetBountySubmission(bountyID uint64, developer [20]byte) (*Submission, bool, error) {
	state, err := e.withState()
	if err != nil {
		return nil, false, err
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	id, ok, err := state.SubmissionIDByDeveloper(bountyID, developer)
	if err != nil || !ok {
		return nil, false, err
	}
	return state.SubmissionGet(id)
}

// GetEscrowInfo returns the custody record for the given bounty.
func (e *Engine) GetEscrowInfo(bountyID uint64) (*escrow.Holding, bool, error) {
	if _, err := e.withState(); err != nil {
		return nil, false, err
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.escrow.Holding(bountyID)
}

// GetDeveloperProfile returns the profile for the given developer.
func (e *Engine) GetDeveloperProfile(addr [20]byte) (*profile.Profile, bool, error) {
	if _, err := e.withState(); err != nil {
		return nil, false, err
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.profiles.Get(addr)
}

// GetDispute returns the dispute record for the given bounty.
func (e *Engine) GetDispute(bountyID uint64) (*Dispute, bool, error) {
	state, err := e.withState()
	if err != nil {
		return nil, false, err
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	return state.DisputeGet(bountyID)
}

// GetVerifier returns the verifier record for the given address.
func (e *Engine) GetVerifier(addr [20]byte) (*verifier.Verifier, bool, error) {
	if _, err := e.withState(); err != nil {
		return nil, false, err
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.verifiers.Get(addr)
}

// IsBountyActive reports whether the bounty exists, is in the active state and
// has not yet reached its deadline.
func (e *Engine) IsBountyActive(id uint64) (bool, error) {
	state, err := e.withState()
	if err != nil {
		return false, err
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	record, ok, err := state.BountyGet(id)
	if err != nil || !ok {
		return false, err
	}
	return record.Status == StatusActive && e.height() < record.Deadline, nil
}

// BountiesByCreator returns the ids of all bounties a creator ever opened.
func (e *Engine) BountiesByCreator(creator [20]byte) ([]uint64, error) {
	state, err := e.withState()
	if err != nil {
		return nil, err
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	return state.BountyIDsByCreator(creator)
}

// Stats is the get-contract-stats snapshot.
type Stats struct {
	TotalBounties    uint64
	TotalSubmissions uint64
	Height           uint64
	Platform         params.Platform
}

// GetStats returns lifetime totals and the current platform configuration.
func (e *Engine) GetStats() (Stats, error) {
	state, err := e.withState()
	if err != nil {
		return Stats{}, err
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	platform, err := e.platform()
	if err != nil {
		return Stats{}, err
	}
	bounties, err := state.BountyCount()
	if err != nil {
		return Stats{}, err
	}
	submissions, err := state.SubmissionCount()
	if err != nil {
		return Stats{}, err
	}
	return Stats{
		TotalBounties:    bounties,
		TotalSubmissions: submissions,
		Height:           e.height(),
		Platform:         platform.Clone(),
	}, nil
}
