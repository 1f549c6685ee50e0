package bounty

import (
	"errors"
	"strings"

	"bountychain/native/escrow"
)

// VerifySubmission records the verification outcome for the developer's
// submission. The caller must be the bounty's creator or, when one was named
// at creation, its designated verifier; both stay authorized in parallel.
// Approval moves the bounty to verified and starts the dispute clock; a
// rejection re-opens the bounty for new submissions while the rejected record
// stays permanently excluded from re-verification.
func (e *Engine) VerifySubmission(caller [20]byte, bountyID uint64, developer [20]byte, approved bool, notes string) (bool, error) {
	state, err := e.withState()
	if err != nil {
		return false, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.guard(); err != nil {
		return false, err
	}
	record, err := e.loadBounty(bountyID)
	if err != nil {
		return false, err
	}
	if record.Status != StatusSubmitted {
		return false, ErrInvalidStatus
	}
	isCreator := caller == record.Creator
	isDesignated := record.Verifier != nil && caller == *record.Verifier
	if !isCreator && !isDesignated {
		return false, ErrUnauthorized
	}
	if !validText(notes, maxTextLen) {
		return false, ErrInvalidInput
	}
	submissionID, ok, err := state.SubmissionIDByDeveloper(bountyID, developer)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, ErrNotSubmitted
	}
	submission, ok, err := state.SubmissionGet(submissionID)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, ErrNotSubmitted
	}
	if submission.Reviewed {
		return false, ErrAlreadyProcessed
	}
	height := e.height()
	submission.Reviewed = true
	submission.Verified = approved
	submission.Notes = strings.TrimSpace(notes)
	verifiedAt := height
	submission.VerifiedAt = &verifiedAt
	reviewer := caller
	submission.VerifiedBy = &reviewer
	if err := state.SubmissionPut(submission); err != nil {
		return false, err
	}
	if approved {
		record.Status = StatusVerified
	} else {
		record.Status = StatusActive
	}
	if err := state.BountyPut(record); err != nil {
		return false, err
	}
	if isDesignated {
		if err := e.verifiers.RecordVerification(caller); err != nil {
			return false, err
		}
	}
	if approved {
		e.emit(NewSubmissionVerifiedEvent(record, submission))
	} else {
		e.emit(NewSubmissionRejectedEvent(record, submission))
	}
	return approved, nil
}

// CreateDispute challenges a verified bounty before settlement. Only the
// creator or the assigned developer may raise it; the bounty parks in the
// disputed state until the owner resolves.
func (e *Engine) CreateDispute(caller [20]byte, bountyID uint64, reason string) error {
	state, err := e.withState()
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.guard(); err != nil {
		return err
	}
	record, err := e.loadBounty(bountyID)
	if err != nil {
		return err
	}
	if record.Status != StatusVerified {
		return ErrInvalidStatus
	}
	isCreator := caller == record.Creator
	isAssignee := record.AssignedTo != nil && caller == *record.AssignedTo
	if !isCreator && !isAssignee {
		return ErrUnauthorized
	}
	trimmedReason := strings.TrimSpace(reason)
	if trimmedReason == "" || !validText(trimmedReason, maxTextLen) {
		return ErrInvalidInput
	}
	if existing, ok, err := state.DisputeGet(bountyID); err != nil {
		return err
	} else if ok && !existing.Resolved {
		return ErrAlreadyProcessed
	}
	dispute := &Dispute{
		BountyID:  bountyID,
		Raiser:    caller,
		Reason:    trimmedReason,
		CreatedAt: e.height(),
	}
	if err := state.DisputePut(dispute); err != nil {
		return err
	}
	record.Status = StatusDisputed
	if err := state.BountyPut(record); err != nil {
		return err
	}
	e.emit(NewDisputeCreatedEvent(record, dispute))
	return nil
}

// ResolveDispute settles an open dispute. Awarding the developer returns the
// bounty to verified so that a subsequent release-payment call, still gated by
// the original dispute clock, pays out. Refunding the creator drains escrow
// back to the creator and terminates the bounty.
func (e *Engine) ResolveDispute(caller [20]byte, bountyID uint64, resolution Resolution, resolutionText string) error {
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
	if !resolution.Valid() {
		return ErrInvalidInput
	}
	trimmedText := strings.TrimSpace(resolutionText)
	if !validText(trimmedText, maxTextLen) {
		return ErrInvalidInput
	}
	record, err := e.loadBounty(bountyID)
	if err != nil {
		return err
	}
	if record.Status != StatusDisputed {
		return ErrInvalidStatus
	}
	dispute, ok, err := state.DisputeGet(bountyID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	if dispute.Resolved {
		return ErrAlreadyProcessed
	}
	// The refund transfer runs before any record write so a failed release
	// leaves the dispute open.
	switch resolution {
	case ResolutionAwardDeveloper:
		record.Status = StatusVerified
	case ResolutionRefundCreator:
		if err := e.escrow.Release(bountyID, escrow.Payout{To: record.Creator, Amount: record.Amount}); err != nil {
			if errors.Is(err, escrow.ErrAlreadyReleased) {
				return ErrAlreadyProcessed
			}
			return err
		}
		record.Status = StatusCancelled
	}
	height := e.height()
	dispute.Resolved = true
	dispute.Resolution = trimmedText
	resolver := caller
	dispute.ResolvedBy = &resolver
	resolvedAt := height
	dispute.ResolvedAt = &resolvedAt
	if err := state.DisputePut(dispute); err != nil {
		return err
	}
	if err := state.BountyPut(record); err != nil {
		return err
	}
	e.emit(NewDisputeResolvedEvent(record, dispute, resolution))
	return nil
}
