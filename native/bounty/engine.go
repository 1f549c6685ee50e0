package bounty

import (
	"errors"
	"math/big"
	"strings"
	"sync"

	"bountychain/core/events"
	"bountychain/core/types"
	"bountychain/native/common"
	"bountychain/native/escrow"
	"bountychain/native/params"
	"bountychain/native/profile"
	"bountychain/native/verifier"
)

var errNilState = errors.New("bounty engine: state not configured")

// Bounded text limits applied to caller-supplied fields.
const (
	maxTitleLen = 128
	maxTextLen  = 2048
	maxURLLen   = 256
	maxTagLen   = 32
	maxTags     = 10
)

// State is the full ledger surface the bounty engine operates on. The state
// manager implements it; tests supply an in-memory mock.
type State interface {
	BountyPut(*Bounty) error
	BountyGet(id uint64) (*Bounty, bool, error)
	BountyCount() (uint64, error)
	NextBountyID() (uint64, error)
	BountyIndexAppend(creator [20]byte, id uint64) error
	BountyIDsByCreator(creator [20]byte) ([]uint64, error)

	SubmissionPut(*Submission) error
	SubmissionGet(id uint64) (*Submission, bool, error)
	SubmissionCount() (uint64, error)
	NextSubmissionID() (uint64, error)
	SubmissionIndexPut(bountyID uint64, developer [20]byte, submissionID uint64) error
	SubmissionIDByDeveloper(bountyID uint64, developer [20]byte) (uint64, bool, error)

	DisputePut(*Dispute) error
	DisputeGet(bountyID uint64) (*Dispute, bool, error)

	EscrowPut(*escrow.Holding) error
	EscrowGet(bountyID uint64) (*escrow.Holding, bool, error)
	GetAccount(addr []byte) (*types.Account, error)
	PutAccount(addr []byte, account *types.Account) error

	ProfilePut(*profile.Profile) error
	ProfileGet(addr [20]byte) (*profile.Profile, bool, error)

	VerifierPut(*verifier.Verifier) error
	VerifierGet(addr [20]byte) (*verifier.Verifier, bool, error)

	ParamStoreSet(name string, value []byte) error
	ParamStoreGet(name string) ([]byte, bool, error)
}

type bountyEvent struct {
	evt *types.Event
}

func (e bountyEvent) EventType() string {
	if e.evt == nil {
		return ""
	}
	return e.evt.Type
}

func (e bountyEvent) Event() *types.Event { return e.evt }

// Engine wires the bounty lifecycle state machine with the escrow ledger, the
// developer profile store, the verifier registry and the platform parameter
// store. Execution is serial: mu is held for the full span of every mutating
// operation, so no two operations on the same state interleave, and each
// operation evaluates all of its preconditions before the first write, so a
// failed call leaves no partial state behind.
type Engine struct {
	mu        sync.RWMutex
	state     State
	escrow    *escrow.Ledger
	profiles  *profile.Store
	verifiers *verifier.Registry
	params    *params.Store
	emitter   events.Emitter
	heightFn  func() uint64
}

// NewEngine creates a bounty engine with a no-op emitter. Callers configure
// the state backend via SetState and the height source via SetHeightFunc.
func NewEngine() *Engine {
	return &Engine{
		emitter:  events.NoopEmitter{},
		heightFn: func() uint64 { return 0 },
	}
}

// SetState configures the state backend and rebinds the subordinate ledgers.
func (e *Engine) SetState(state State) {
	e.state = state
	e.escrow = escrow.NewLedger(state)
	e.profiles = profile.NewStore(state)
	e.verifiers = verifier.NewRegistry(state)
	e.params = params.NewStore(state)
}

// SetHeightFunc overrides the block-height source used by the engine.
func (e *Engine) SetHeightFunc(height func() uint64) {
	if height == nil {
		e.heightFn = func() uint64 { return 0 }
		return
	}
	e.heightFn = height
}

// SetEmitter configures the event emitter used by the engine. Passing nil
// resets the emitter to a no-op implementation.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

func (e *Engine) emit(event *types.Event) {
	if e == nil || e.emitter == nil || event == nil {
		return
	}
	e.emitter.Emit(bountyEvent{evt: event})
}

func (e *Engine) height() uint64 {
	if e == nil || e.heightFn == nil {
		return 0
	}
	return e.heightFn()
}

func (e *Engine) withState() (State, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	return e.state, nil
}

// Initialize persists the platform configuration when none exists yet. It is
// invoked once at genesis; subsequent calls are no-ops so restarts are safe.
func (e *Engine) Initialize(platform params.Platform) error {
	if _, err := e.withState(); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok, err := e.params.Platform(); err != nil {
		return err
	} else if ok {
		return nil
	}
	return e.params.SetPlatform(platform)
}

func (e *Engine) platform() (params.Platform, error) {
	platform, ok, err := e.params.Platform()
	if err != nil {
		return params.Platform{}, err
	}
	if !ok {
		return params.Platform{}, errors.New("bounty engine: platform not initialised")
	}
	return platform, nil
}

func (e *Engine) guard() error {
	pauses, err := e.params.Pauses()
	if err != nil {
		return err
	}
	return common.Guard(pauses, common.ModuleBounty)
}

func (e *Engine) loadBounty(id uint64) (*Bounty, error) {
	state, err := e.withState()
	if err != nil {
		return nil, err
	}
	record, ok, err := state.BountyGet(id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotFound
	}
	return record, nil
}

func validText(s string, max int) bool {
	return len(s) <= max
}

func sanitizeTags(tags []string) ([]string, error) {
	if len(tags) > maxTags {
		return nil, ErrInvalidInput
	}
	cleaned := make([]string, 0, len(tags))
	for _, t := range tags {
		trimmed := strings.TrimSpace(t)
		if trimmed == "" || len(trimmed) > maxTagLen {
			return nil, ErrInvalidInput
		}
		cleaned = append(cleaned, trimmed)
	}
	return cleaned, nil
}

// CreateBountySpec carries the caller-supplied fields of create-bounty.
type CreateBountySpec struct {
	Title          string
	Description    string
	Requirements   string
	RepoURL        string
	Amount         *big.Int
	DeadlineBlocks uint64
	Priority       Priority
	Difficulty     Difficulty
	Tags           []string
	Verifier       *[20]byte
}

// CreateBounty locks the caller's funds in escrow and opens a new bounty in
// the active state. The new bounty id is returned.
func (e *Engine) CreateBounty(caller [20]byte, spec CreateBountySpec) (uint64, error) {
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
	title := strings.TrimSpace(spec.Title)
	if title == "" || !validText(title, maxTitleLen) {
		return 0, ErrInvalidInput
	}
	if !validText(spec.Description, maxTextLen) || !validText(spec.Requirements, maxTextLen) {
		return 0, ErrInvalidInput
	}
	repoURL := strings.TrimSpace(spec.RepoURL)
	if !validText(repoURL, maxURLLen) {
		return 0, ErrInvalidInput
	}
	if spec.Amount == nil || spec.Amount.Cmp(platform.MinBountyAmount) < 0 {
		return 0, ErrInvalidInput
	}
	if spec.DeadlineBlocks == 0 {
		return 0, ErrInvalidInput
	}
	if !spec.Priority.Valid() || !spec.Difficulty.Valid() {
		return 0, ErrInvalidInput
	}
	tags, err := sanitizeTags(spec.Tags)
	if err != nil {
		return 0, err
	}
	if spec.Verifier != nil {
		active, err := e.verifiers.IsActive(*spec.Verifier)
		if err != nil {
			return 0, err
		}
		if !active {
			return 0, ErrInvalidInput
		}
	}
	creatorAcc, err := state.GetAccount(caller[:])
	if err != nil {
		return 0, err
	}
	if creatorAcc == nil || creatorAcc.Balance == nil || creatorAcc.Balance.Cmp(spec.Amount) < 0 {
		return 0, ErrInsufficientFunds
	}
	height := e.height()
	id, err := state.NextBountyID()
	if err != nil {
		return 0, err
	}
	if err := e.escrow.Lock(id, caller, spec.Amount); err != nil {
		if errors.Is(err, escrow.ErrInsufficientBalance) {
			return 0, ErrInsufficientFunds
		}
		return 0, err
	}
	record := &Bounty{
		ID:           id,
		Creator:      caller,
		Title:        title,
		Description:  spec.Description,
		Requirements: spec.Requirements,
		RepoURL:      repoURL,
		Amount:       new(big.Int).Set(spec.Amount),
		Deadline:     height + spec.DeadlineBlocks,
		Priority:     spec.Priority,
		Difficulty:   spec.Difficulty,
		Tags:         tags,
		Status:       StatusActive,
		CreatedAt:    height,
	}
	if spec.Verifier != nil {
		reviewer := *spec.Verifier
		record.Verifier = &reviewer
	}
	if err := state.BountyPut(record); err != nil {
		return 0, err
	}
	if err := state.BountyIndexAppend(caller, id); err != nil {
		return 0, err
	}
	e.emit(NewBountyCreatedEvent(record))
	return id, nil
}

// UpdateBountyDetails replaces the mutable descriptive fields of an active
// bounty. Amount, deadline and status never change through this path.
func (e *Engine) UpdateBountyDetails(caller [20]byte, id uint64, title, description, requirements, repoURL string, tags []string) error {
	state, err := e.withState()
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.guard(); err != nil {
		return err
	}
	record, err := e.loadBounty(id)
	if err != nil {
		return err
	}
	if record.Creator != caller {
		return ErrUnauthorized
	}
	if record.Status != StatusActive {
		return ErrBountyNotActive
	}
	trimmedTitle := strings.TrimSpace(title)
	if trimmedTitle == "" || !validText(trimmedTitle, maxTitleLen) {
		return ErrInvalidInput
	}
	if !validText(description, maxTextLen) || !validText(requirements, maxTextLen) {
		return ErrInvalidInput
	}
	trimmedRepo := strings.TrimSpace(repoURL)
	if !validText(trimmedRepo, maxURLLen) {
		return ErrInvalidInput
	}
	cleaned, err := sanitizeTags(tags)
	if err != nil {
		return err
	}
	record.Title = trimmedTitle
	record.Description = description
	record.Requirements = requirements
	record.RepoURL = trimmedRepo
	record.Tags = cleaned
	if err := state.BountyPut(record); err != nil {
		return err
	}
	e.emit(NewBountyUpdatedEvent(record))
	return nil
}

// AssignBounty names the developer expected to work the bounty. The
// submission path enforces the assignment.
func (e *Engine) AssignBounty(caller [20]byte, id uint64, developer [20]byte) error {
	state, err := e.withState()
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.guard(); err != nil {
		return err
	}
	record, err := e.loadBounty(id)
	if err != nil {
		return err
	}
	if record.Creator != caller {
		return ErrUnauthorized
	}
	if record.Status != StatusActive {
		return ErrBountyNotActive
	}
	assignee := developer
	record.AssignedTo = &assignee
	if err := state.BountyPut(record); err != nil {
		return err
	}
	e.emit(NewBountyAssignedEvent(record, developer))
	return nil
}

// CancelBounty refunds the full escrowed amount to the creator and terminates
// the bounty. Only an active bounty can be cancelled by its creator.
func (e *Engine) CancelBounty(caller [20]byte, id uint64) error {
	state, err := e.withState()
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.guard(); err != nil {
		return err
	}
	record, err := e.loadBounty(id)
	if err != nil {
		return err
	}
	if record.Creator != caller {
		return ErrUnauthorized
	}
	if record.Status != StatusActive {
		return ErrBountyNotActive
	}
	if err := e.escrow.Release(id, escrow.Payout{To: record.Creator, Amount: record.Amount}); err != nil {
		if errors.Is(err, escrow.ErrAlreadyReleased) {
			return ErrAlreadyProcessed
		}
		return err
	}
	record.Status = StatusCancelled
	if err := state.BountyPut(record); err != nil {
		return err
	}
	e.emit(NewBountyCancelledEvent(record))
	return nil
}
