package bounty

import "strings"

// SubmitWork records the caller's submission against an active bounty and
// moves the bounty into the submitted state, starting the verification clock.
// The new submission id is returned. A developer gets exactly one submission
// per bounty, for all time.
func (e *Engine) SubmitWork(caller [20]byte, bountyID uint64, url, description string) (uint64, error) {
	state, err := e.withState()
	if err != nil {
		return 0, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.guard(); err != nil {
		return 0, err
	}
	platform, err := e.platform()
	if err != nil {
		return 0, err
	}
	record, err := e.loadBounty(bountyID)
	if err != nil {
		return 0, err
	}
	// A developer's second attempt is always already-submitted, even when
	// the bounty has since left the active state.
	if _, ok, err := state.SubmissionIDByDeveloper(bountyID, caller); err != nil {
		return 0, err
	} else if ok {
		return 0, ErrAlreadySubmitted
	}
	if record.Status != StatusActive {
		return 0, ErrBountyNotActive
	}
	height := e.height()
	if height >= record.Deadline {
		return 0, ErrBountyExpired
	}
	trimmedURL := strings.TrimSpace(url)
	if trimmedURL == "" || !validText(trimmedURL, maxURLLen) {
		return 0, ErrInvalidInput
	}
	if !validText(description, maxTextLen) {
		return 0, ErrInvalidInput
	}
	if record.AssignedTo != nil && *record.AssignedTo != caller {
		return 0, ErrUnauthorized
	}
	id, err := state.NextSubmissionID()
	if err != nil {
		return 0, err
	}
	submission := &Submission{
		ID:          id,
		BountyID:    bountyID,
		Developer:   caller,
		URL:         trimmedURL,
		Description: description,
		SubmittedAt: height,
	}
	if err := state.SubmissionPut(submission); err != nil {
		return 0, err
	}
	if err := state.SubmissionIndexPut(bountyID, caller, id); err != nil {
		return 0, err
	}
	record.Status = StatusSubmitted
	verificationDeadline := height + platform.VerificationTimeout
	record.VerificationDeadline = &verificationDeadline
	if err := state.BountyPut(record); err != nil {
		return 0, err
	}
	e.emit(NewWorkSubmittedEvent(record, submission))
	return id, nil
}

// CanSubmitWork reports whether the developer would currently be allowed to
// submit against the bounty. It evaluates the same predicates as SubmitWork
// without mutating anything.
func (e *Engine) CanSubmitWork(bountyID uint64, developer [20]byte) (bool, error) {
	state, err := e.withState()
	if err != nil {
		return false, err
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	record, ok, err := state.BountyGet(bountyID)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}
	if record.Status != StatusActive {
		return false, nil
	}
	if e.height() >= record.Deadline {
		return false, nil
	}
	if record.AssignedTo != nil && *record.AssignedTo != developer {
		return false, nil
	}
	if _, submitted, err := state.SubmissionIDByDeveloper(bountyID, developer); err != nil {
		return false, err
	} else if submitted {
		return false, nil
	}
	return true, nil
}
