package bounty

import (
	"errors"
	"math/big"

	"bountychain/native/escrow"
)

const feeDenominator = 10_000

// FeeSplit computes the platform fee and developer payment for the given
// escrow amount and fee rate. The fee is floored, so the developer share
// absorbs the rounding remainder and the two always sum to the full amount.
func FeeSplit(amount *big.Int, feeBps uint32) (developerPayment, platformFee *big.Int) {
	total := new(big.Int)
	if amount != nil {
		total.Set(amount)
	}
	platformFee = new(big.Int).Mul(total, new(big.Int).SetUint64(uint64(feeBps)))
	platformFee.Div(platformFee, big.NewInt(feeDenominator))
	developerPayment = new(big.Int).Sub(total, platformFee)
	return developerPayment, platformFee
}

// ReleasePayment settles a verified bounty once the dispute period has fully
// elapsed. The escrowed amount is split between the developer and the
// platform treasury at the current fee rate, the bounty completes, and the
// developer's profile records the payout. Release at exactly
// verifiedAt + disputePeriod is still blocked; one more block must pass.
func (e *Engine) ReleasePayment(bountyID uint64, developer [20]byte) (*big.Int, error) {
	state, err := e.withState()
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.guard(); err != nil {
		return nil, err
	}
	platform, err := e.platform()
	if err != nil {
		return nil, err
	}
	record, err := e.loadBounty(bountyID)
	if err != nil {
		return nil, err
	}
	if record.Status != StatusVerified {
		return nil, ErrInvalidStatus
	}
	holding, ok, err := e.escrow.Holding(bountyID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotFound
	}
	if holding.Released {
		return nil, ErrAlreadyProcessed
	}
	submissionID, ok, err := state.SubmissionIDByDeveloper(bountyID, developer)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotSubmitted
	}
	submission, ok, err := state.SubmissionGet(submissionID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotSubmitted
	}
	if !submission.Reviewed || !submission.Verified || submission.VerifiedAt == nil {
		return nil, ErrVerificationPending
	}
	if e.height() <= *submission.VerifiedAt+platform.DisputePeriodBlocks {
		return nil, ErrDisputePeriodActive
	}
	developerPayment, platformFee := FeeSplit(holding.Amount, platform.FeeBps)
	err = e.escrow.Release(bountyID,
		escrow.Payout{To: developer, Amount: developerPayment},
		escrow.Payout{To: platform.Treasury, Amount: platformFee},
	)
	if err != nil {
		if errors.Is(err, escrow.ErrAlreadyReleased) {
			return nil, ErrAlreadyProcessed
		}
		return nil, err
	}
	record.Status = StatusCompleted
	if err := state.BountyPut(record); err != nil {
		return nil, err
	}
	if _, err := e.profiles.RecordSettlement(developer, developerPayment, e.height()); err != nil {
		return nil, err
	}
	e.emit(NewPaymentReleasedEvent(record, developer, developerPayment, platformFee))
	return developerPayment, nil
}

// EmergencyReleaseFunds is the owner-only fallback for bounties whose
// verification window lapsed without an outcome. It always refunds the full
// escrowed amount to the creator, never the developer, and cancels the
// bounty. The gate is the literal stored verification deadline; it is not a
// general stuck-funds recovery.
func (e *Engine) EmergencyReleaseFunds(caller [20]byte, bountyID uint64) error {
	state, err := e.withState()
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.guard(); err != nil {
		return err
	}
	platform, err := e.platform()
	if err != nil {
		return err
	}
	if caller != platform.Owner {
		return ErrOwnerOnly
	}
	record, err := e.loadBounty(bountyID)
	if err != nil {
		return err
	}
	switch record.Status {
	case StatusActive, StatusSubmitted, StatusVerified:
	default:
		return ErrInvalidStatus
	}
	holding, ok, err := e.escrow.Holding(bountyID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	if holding.Released {
		return ErrAlreadyProcessed
	}
	if record.VerificationDeadline == nil {
		return ErrVerificationPending
	}
	if e.height() <= *record.VerificationDeadline {
		return ErrVerificationPending
	}
	if err := e.escrow.Release(bountyID, escrow.Payout{To: record.Creator, Amount: holding.Amount}); err != nil {
		if errors.Is(err, escrow.ErrAlreadyReleased) {
			return ErrAlreadyProcessed
		}
		return err
	}
	record.Status = StatusCancelled
	if err := state.BountyPut(record); err != nil {
		return err
	}
	e.emit(NewEmergencyReleasedEvent(record, holding.Amount))
	return nil
}
