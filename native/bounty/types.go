package bounty

import (
	"fmt"
	"math/big"
	"strings"
)

// Status represents the lifecycle states of a bounty. Transitions only follow
// the edges enforced by the engine; Completed and Cancelled are terminal.
type Status uint8

const (
	StatusActive Status = iota
	StatusSubmitted
	StatusVerified
	StatusDisputed
	StatusCompleted
	StatusCancelled
)

// Valid reports whether the status value is within the supported range.
func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusSubmitted, StatusVerified, StatusDisputed, StatusCompleted, StatusCancelled:
		return true
	default:
		return false
	}
}

func (s Status) String() string {
	switch s {
	case StatusActive:
		return "active"
	case StatusSubmitted:
		return "submitted"
	case StatusVerified:
		return "verified"
	case StatusDisputed:
		return "disputed"
	case StatusCompleted:
		return "completed"
	case StatusCancelled:
		return "cancelled"
	default:
		return fmt.Sprintf("status(%d)", uint8(s))
	}
}

// Terminal reports whether the status admits no further transitions.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// Priority grades how urgent a bounty is.
type Priority uint8

const (
	PriorityLow Priority = iota + 1
	PriorityMedium
	PriorityHigh
	PriorityCritical
)

// Valid reports whether the priority value is within the supported range.
func (p Priority) Valid() bool {
	return p >= PriorityLow && p <= PriorityCritical
}

func (p Priority) String() string {
	switch p {
	case PriorityLow:
		return "low"
	case PriorityMedium:
		return "medium"
	case PriorityHigh:
		return "high"
	case PriorityCritical:
		return "critical"
	default:
		return fmt.Sprintf("priority(%d)", uint8(p))
	}
}

// ParsePriority maps the canonical lowercase name to its Priority value.
func ParsePriority(s string) (Priority, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "low":
		return PriorityLow, nil
	case "medium":
		return PriorityMedium, nil
	case "high":
		return PriorityHigh, nil
	case "critical":
		return PriorityCritical, nil
	default:
		return 0, fmt.Errorf("bounty: unknown priority %q", s)
	}
}

// Difficulty grades how hard a bounty is expected to be.
type Difficulty uint8

const (
	DifficultyBeginner Difficulty = iota + 1
	DifficultyIntermediate
	DifficultyAdvanced
	DifficultyExpert
)

// Valid reports whether the difficulty value is within the supported range.
func (d Difficulty) Valid() bool {
	return d >= DifficultyBeginner && d <= DifficultyExpert
}

func (d Difficulty) String() string {
	switch d {
	case DifficultyBeginner:
		return "beginner"
	case DifficultyIntermediate:
		return "intermediate"
	case DifficultyAdvanced:
		return "advanced"
	case DifficultyExpert:
		return "expert"
	default:
		return fmt.Sprintf("difficulty(%d)", uint8(d))
	}
}

// ParseDifficulty maps the canonical lowercase name to its Difficulty value.
func ParseDifficulty(s string) (Difficulty, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "beginner":
		return DifficultyBeginner, nil
	case "intermediate":
		return DifficultyIntermediate, nil
	case "advanced":
		return DifficultyAdvanced, nil
	case "expert":
		return DifficultyExpert, nil
	default:
		return 0, fmt.Errorf("bounty: unknown difficulty %q", s)
	}
}

// Resolution is the tagged outcome of a dispute. The two branches have
// materially different side effects: awarding the developer re-enters the
// settlement path while refunding the creator moves funds and terminates the
// bounty.
type Resolution uint8

const (
	ResolutionAwardDeveloper Resolution = iota + 1
	ResolutionRefundCreator
)

// Valid reports whether the resolution value is within the supported range.
func (r Resolution) Valid() bool {
	return r == ResolutionAwardDeveloper || r == ResolutionRefundCreator
}

func (r Resolution) String() string {
	switch r {
	case ResolutionAwardDeveloper:
		return "award-developer"
	case ResolutionRefundCreator:
		return "refund-creator"
	default:
		return fmt.Sprintf("resolution(%d)", uint8(r))
	}
}

// Bounty is a funded task record. Amount is immutable after creation and
// Status only moves along the enforced transition graph. Bounties are never
// deleted; terminal states stay on the ledger as audit records.
type Bounty struct {
	ID           uint64
	Creator      [20]byte
	Title        string
	Description  string
	Requirements string
	RepoURL      string
	Amount       *big.Int
	Deadline     uint64
	Priority     Priority
	Difficulty   Difficulty
	Tags         []string
	Status       Status
	CreatedAt    uint64

	VerificationDeadline *uint64
	AssignedTo           *[20]byte
	Verifier             *[20]byte
}

// Clone returns a deep copy of the bounty so callers can safely mutate the
// copy without affecting the stored instance.
func (b *Bounty) Clone() *Bounty {
	if b == nil {
		return nil
	}
	clone := *b
	if b.Amount != nil {
		clone.Amount = new(big.Int).Set(b.Amount)
	} else {
		clone.Amount = big.NewInt(0)
	}
	clone.Tags = append([]string(nil), b.Tags...)
	if b.VerificationDeadline != nil {
		deadline := *b.VerificationDeadline
		clone.VerificationDeadline = &deadline
	}
	if b.AssignedTo != nil {
		assignee := *b.AssignedTo
		clone.AssignedTo = &assignee
	}
	if b.Verifier != nil {
		reviewer := *b.Verifier
		clone.Verifier = &reviewer
	}
	return &clone
}

// Submission records one developer's answer to a bounty. At most one
// submission ever exists per (bounty, developer) pair; Reviewed flips exactly
// once when the verification outcome lands.
type Submission struct {
	ID          uint64
	BountyID    uint64
	Developer   [20]byte
	URL         string
	Description string
	SubmittedAt uint64

	Reviewed bool
	Verified bool
	Notes    string

	VerifiedAt *uint64
	VerifiedBy *[20]byte
}

// Clone returns a deep copy of the submission.
func (s *Submission) Clone() *Submission {
	if s == nil {
		return nil
	}
	clone := *s
	if s.VerifiedAt != nil {
		at := *s.VerifiedAt
		clone.VerifiedAt = &at
	}
	if s.VerifiedBy != nil {
		by := *s.VerifiedBy
		clone.VerifiedBy = &by
	}
	return &clone
}

// Dispute is the challenge record keyed by bounty id. At most one open
// dispute exists per bounty at a time; a resolved dispute may be superseded if
// the bounty re-enters the verified state and is disputed again.
type Dispute struct {
	BountyID  uint64
	Raiser    [20]byte
	Reason    string
	CreatedAt uint64

	Resolved   bool
	Resolution string

	ResolvedBy *[20]byte
	ResolvedAt *uint64
}

// Clone returns a deep copy of the dispute.
func (d *Dispute) Clone() *Dispute {
	if d == nil {
		return nil
	}
	clone := *d
	if d.ResolvedBy != nil {
		by := *d.ResolvedBy
		clone.ResolvedBy = &by
	}
	if d.ResolvedAt != nil {
		at := *d.ResolvedAt
		clone.ResolvedAt = &at
	}
	return &clone
}
