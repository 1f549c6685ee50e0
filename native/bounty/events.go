package bounty

import (
	"encoding/hex"
	"math/big"
	"strconv"

	"bountychain/core/types"
	"bountychain/native/params"
	"bountychain/native/profile"
	"bountychain/native/verifier"
)

const (
	EventTypeBountyCreated      = "bounty.created"
	EventTypeBountyUpdated      = "bounty.updated"
	EventTypeBountyAssigned     = "bounty.assigned"
	EventTypeBountyCancelled    = "bounty.cancelled"
	EventTypeWorkSubmitted      = "bounty.submitted"
	EventTypeSubmissionVerified = "bounty.verified"
	EventTypeSubmissionRejected = "bounty.rejected"
	EventTypeDisputeCreated     = "bounty.disputed"
	EventTypeDisputeResolved    = "bounty.disputeResolved"
	EventTypePaymentReleased    = "bounty.paymentReleased"
	EventTypeEmergencyReleased  = "bounty.emergencyReleased"
	EventTypeProfileCreated     = "profile.created"
	EventTypeVerifierAdded      = "verifier.added"
	EventTypePlatformUpdated    = "platform.configUpdated"
)

func addr(a [20]byte) string { return hex.EncodeToString(a[:]) }

func amount(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

func bountyAttrs(b *Bounty) map[string]string {
	attrs := make(map[string]string)
	if b == nil {
		return attrs
	}
	attrs["bountyId"] = strconv.FormatUint(b.ID, 10)
	attrs["creator"] = addr(b.Creator)
	attrs["amount"] = amount(b.Amount)
	attrs["status"] = b.Status.String()
	return attrs
}

// NewBountyCreatedEvent returns the canonical event payload for a newly
// created bounty.
func NewBountyCreatedEvent(b *Bounty) *types.Event {
	attrs := bountyAttrs(b)
	if b != nil {
		attrs["deadline"] = strconv.FormatUint(b.Deadline, 10)
		attrs["priority"] = b.Priority.String()
		attrs["difficulty"] = b.Difficulty.String()
	}
	return &types.Event{Type: EventTypeBountyCreated, Attributes: attrs}
}

// NewBountyUpdatedEvent is emitted when the creator replaces the descriptive
// fields of an active bounty.
func NewBountyUpdatedEvent(b *Bounty) *types.Event {
	return &types.Event{Type: EventTypeBountyUpdated, Attributes: bountyAttrs(b)}
}

// NewBountyAssignedEvent is emitted when the creator names an assignee.
func NewBountyAssignedEvent(b *Bounty, developer [20]byte) *types.Event {
	attrs := bountyAttrs(b)
	attrs["developer"] = addr(developer)
	return &types.Event{Type: EventTypeBountyAssigned, Attributes: attrs}
}

// NewBountyCancelledEvent is emitted when an active bounty is cancelled and
// refunded to its creator.
func NewBountyCancelledEvent(b *Bounty) *types.Event {
	return &types.Event{Type: EventTypeBountyCancelled, Attributes: bountyAttrs(b)}
}

// NewWorkSubmittedEvent is emitted for each accepted submission.
func NewWorkSubmittedEvent(b *Bounty, s *Submission) *types.Event {
	attrs := bountyAttrs(b)
	if s != nil {
		attrs["submissionId"] = strconv.FormatUint(s.ID, 10)
		attrs["developer"] = addr(s.Developer)
	}
	if b != nil && b.VerificationDeadline != nil {
		attrs["verificationDeadline"] = strconv.FormatUint(*b.VerificationDeadline, 10)
	}
	return &types.Event{Type: EventTypeWorkSubmitted, Attributes: attrs}
}

func verificationAttrs(b *Bounty, s *Submission) map[string]string {
	attrs := bountyAttrs(b)
	if s != nil {
		attrs["submissionId"] = strconv.FormatUint(s.ID, 10)
		attrs["developer"] = addr(s.Developer)
		if s.VerifiedBy != nil {
			attrs["verifiedBy"] = addr(*s.VerifiedBy)
		}
		if s.VerifiedAt != nil {
			attrs["verifiedAt"] = strconv.FormatUint(*s.VerifiedAt, 10)
		}
	}
	return attrs
}

// NewSubmissionVerifiedEvent is emitted on approval.
func NewSubmissionVerifiedEvent(b *Bounty, s *Submission) *types.Event {
	return &types.Event{Type: EventTypeSubmissionVerified, Attributes: verificationAttrs(b, s)}
}

// NewSubmissionRejectedEvent is emitted when a submission is rejected and the
// bounty re-opens.
func NewSubmissionRejectedEvent(b *Bounty, s *Submission) *types.Event {
	return &types.Event{Type: EventTypeSubmissionRejected, Attributes: verificationAttrs(b, s)}
}

// NewDisputeCreatedEvent is emitted when a verified bounty is challenged.
func NewDisputeCreatedEvent(b *Bounty, d *Dispute) *types.Event {
	attrs := bountyAttrs(b)
	if d != nil {
		attrs["raiser"] = addr(d.Raiser)
	}
	return &types.Event{Type: EventTypeDisputeCreated, Attributes: attrs}
}

// NewDisputeResolvedEvent is emitted when the owner settles a dispute.
func NewDisputeResolvedEvent(b *Bounty, d *Dispute, outcome Resolution) *types.Event {
	attrs := bountyAttrs(b)
	attrs["outcome"] = outcome.String()
	if d != nil && d.ResolvedBy != nil {
		attrs["resolvedBy"] = addr(*d.ResolvedBy)
	}
	return &types.Event{Type: EventTypeDisputeResolved, Attributes: attrs}
}

// NewPaymentReleasedEvent is emitted when escrow drains into the developer
// payment and the platform fee.
func NewPaymentReleasedEvent(b *Bounty, developer [20]byte, developerPayment, platformFee *big.Int) *types.Event {
	attrs := bountyAttrs(b)
	attrs["developer"] = addr(developer)
	attrs["amount"] = amount(developerPayment)
	attrs["platformFee"] = amount(platformFee)
	return &types.Event{Type: EventTypePaymentReleased, Attributes: attrs}
}

// NewEmergencyReleasedEvent is emitted when the owner recovers a stalled
// bounty's escrow back to its creator.
func NewEmergencyReleasedEvent(b *Bounty, refunded *big.Int) *types.Event {
	attrs := bountyAttrs(b)
	attrs["refunded"] = amount(refunded)
	return &types.Event{Type: EventTypeEmergencyReleased, Attributes: attrs}
}

// NewProfileCreatedEvent is emitted on developer self-registration.
func NewProfileCreatedEvent(p *profile.Profile) *types.Event {
	attrs := make(map[string]string)
	if p != nil {
		attrs["developer"] = addr(p.Address)
		attrs["joinedAt"] = strconv.FormatUint(p.JoinedAt, 10)
	}
	return &types.Event{Type: EventTypeProfileCreated, Attributes: attrs}
}

// NewVerifierAddedEvent is emitted when the owner registers a trusted
// reviewer.
func NewVerifierAddedEvent(v *verifier.Verifier) *types.Event {
	attrs := make(map[string]string)
	if v != nil {
		attrs["verifier"] = addr(v.Address)
		attrs["addedBy"] = addr(v.AddedBy)
		attrs["addedAt"] = strconv.FormatUint(v.AddedAt, 10)
	}
	return &types.Event{Type: EventTypeVerifierAdded, Attributes: attrs}
}

// NewPlatformUpdatedEvent is emitted whenever an owner-gated setter commits.
func NewPlatformUpdatedEvent(p params.Platform) *types.Event {
	attrs := map[string]string{
		"feeBps":              strconv.FormatUint(uint64(p.FeeBps), 10),
		"disputePeriod":       strconv.FormatUint(p.DisputePeriodBlocks, 10),
		"verificationTimeout": strconv.FormatUint(p.VerificationTimeout, 10),
		"minBountyAmount":     amount(p.MinBountyAmount),
		"treasury":            addr(p.Treasury),
	}
	return &types.Event{Type: EventTypePlatformUpdated, Attributes: attrs}
}
