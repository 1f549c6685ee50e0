package bounty

import "fmt"

// Error is a ledger failure with a stable numeric code. Codes are part of the
// public surface: RPC clients branch on them, so values never change once
// assigned.
type Error struct {
	Code uint32
	Text string
}

func (e *Error) Error() string {
	return fmt.Sprintf("bounty: %s (u%d)", e.Text, e.Code)
}

var (
	// Authorization errors: the caller lacks the required role.
	ErrOwnerOnly    = &Error{Code: 100, Text: "owner only"}
	ErrUnauthorized = &Error{Code: 102, Text: "unauthorized"}

	// Validation errors: caller-supplied values fail range or shape checks.
	ErrInvalidInput      = &Error{Code: 103, Text: "invalid input"}
	ErrInsufficientFunds = &Error{Code: 104, Text: "insufficient funds"}

	// State errors: the entity is not in the state the operation requires.
	ErrNotFound         = &Error{Code: 101, Text: "not found"}
	ErrBountyNotActive  = &Error{Code: 105, Text: "bounty not active"}
	ErrAlreadySubmitted = &Error{Code: 107, Text: "already submitted"}
	ErrNotSubmitted     = &Error{Code: 108, Text: "not submitted"}
	ErrAlreadyProcessed = &Error{Code: 110, Text: "already processed"}
	ErrInvalidStatus    = &Error{Code: 111, Text: "invalid status"}

	// Temporal errors: a height-based gate has not opened or already closed.
	ErrBountyExpired       = &Error{Code: 106, Text: "bounty expired"}
	ErrVerificationPending = &Error{Code: 109, Text: "verification pending"}
	ErrDisputePeriodActive = &Error{Code: 112, Text: "dispute period active"}
)
