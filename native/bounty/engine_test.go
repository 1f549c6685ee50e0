package bounty

import (
	"bytes"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"sync/atomic"
	"testing"

	"bountychain/core/events"
	"bountychain/core/types"
	"bountychain/native/common"
	"bountychain/native/escrow"
	"bountychain/native/params"
	"bountychain/native/profile"
	"bountychain/native/verifier"
)

type submissionIndexKey struct {
	bountyID  uint64
	developer [20]byte
}

type mockState struct {
	bounties      map[uint64]*Bounty
	bountyCounter uint64
	creatorIndex  map[[20]byte][]uint64

	submissions       map[uint64]*Submission
	submissionCounter uint64
	submissionIndex   map[submissionIndexKey]uint64

	disputes  map[uint64]*Dispute
	holdings  map[uint64]*escrow.Holding
	accounts  map[string]*types.Account
	profiles  map[[20]byte]*profile.Profile
	verifiers map[[20]byte]*verifier.Verifier
	params    map[string][]byte
}

func newMockState() *mockState {
	return &mockState{
		bounties:        make(map[uint64]*Bounty),
		creatorIndex:    make(map[[20]byte][]uint64),
		submissions:     make(map[uint64]*Submission),
		submissionIndex: make(map[submissionIndexKey]uint64),
		disputes:        make(map[uint64]*Dispute),
		holdings:        make(map[uint64]*escrow.Holding),
		accounts:        make(map[string]*types.Account),
		profiles:        make(map[[20]byte]*profile.Profile),
		verifiers:       make(map[[20]byte]*verifier.Verifier),
		params:          make(map[string][]byte),
	}
}

func (m *mockState) BountyPut(b *Bounty) error {
	if b == nil {
		return fmt.Errorf("nil bounty")
	}
	m.bounties[b.ID] = b.Clone()
	return nil
}

func (m *mockState) BountyGet(id uint64) (*Bounty, bool, error) {
	record, ok := m.bounties[id]
	if !ok {
		return nil, false, nil
	}
	return record.Clone(), true, nil
}

func (m *mockState) BountyCount() (uint64, error) { return m.bountyCounter, nil }

func (m *mockState) NextBountyID() (uint64, error) {
	m.bountyCounter++
	return m.bountyCounter, nil
}

func (m *mockState) BountyIndexAppend(creator [20]byte, id uint64) error {
	m.creatorIndex[creator] = append(m.creatorIndex[creator], id)
	return nil
}

func (m *mockState) BountyIDsByCreator(creator [20]byte) ([]uint64, error) {
	return append([]uint64(nil), m.creatorIndex[creator]...), nil
}

func (m *mockState) SubmissionPut(s *Submission) error {
	if s == nil {
		return fmt.Errorf("nil submission")
	}
	m.submissions[s.ID] = s.Clone()
	return nil
}

func (m *mockState) SubmissionGet(id uint64) (*Submission, bool, error) {
	record, ok := m.submissions[id]
	if !ok {
		return nil, false, nil
	}
	return record.Clone(), true, nil
}

func (m *mockState) SubmissionCount() (uint64, error) { return m.submissionCounter, nil }

func (m *mockState) NextSubmissionID() (uint64, error) {
	m.submissionCounter++
	return m.submissionCounter, nil
}

func (m *mockState) SubmissionIndexPut(bountyID uint64, developer [20]byte, submissionID uint64) error {
	m.submissionIndex[submissionIndexKey{bountyID, developer}] = submissionID
	return nil
}

func (m *mockState) SubmissionIDByDeveloper(bountyID uint64, developer [20]byte) (uint64, bool, error) {
	id, ok := m.submissionIndex[submissionIndexKey{bountyID, developer}]
	return id, ok, nil
}

func (m *mockState) DisputePut(d *Dispute) error {
	if d == nil {
		return fmt.Errorf("nil dispute")
	}
	m.disputes[d.BountyID] = d.Clone()
	return nil
}

func (m *mockState) DisputeGet(bountyID uint64) (*Dispute, bool, error) {
	record, ok := m.disputes[bountyID]
	if !ok {
		return nil, false, nil
	}
	return record.Clone(), true, nil
}

func (m *mockState) EscrowPut(h *escrow.Holding) error {
	sanitized, err := escrow.SanitizeHolding(h)
	if err != nil {
		return err
	}
	m.holdings[sanitized.BountyID] = sanitized.Clone()
	return nil
}

func (m *mockState) EscrowGet(bountyID uint64) (*escrow.Holding, bool, error) {
	record, ok := m.holdings[bountyID]
	if !ok {
		return nil, false, nil
	}
	return record.Clone(), true, nil
}

func (m *mockState) GetAccount(addr []byte) (*types.Account, error) {
	acc, ok := m.accounts[string(addr)]
	if !ok {
		return nil, nil
	}
	return acc.Clone(), nil
}

func (m *mockState) PutAccount(addr []byte, account *types.Account) error {
	if account == nil {
		return fmt.Errorf("nil account")
	}
	m.accounts[string(addr)] = account.Clone()
	return nil
}

func (m *mockState) ProfilePut(p *profile.Profile) error {
	if p == nil {
		return fmt.Errorf("nil profile")
	}
	m.profiles[p.Address] = p.Clone()
	return nil
}

func (m *mockState) ProfileGet(addr [20]byte) (*profile.Profile, bool, error) {
	record, ok := m.profiles[addr]
	if !ok {
		return nil, false, nil
	}
	return record.Clone(), true, nil
}

func (m *mockState) VerifierPut(v *verifier.Verifier) error {
	if v == nil {
		return fmt.Errorf("nil verifier")
	}
	m.verifiers[v.Address] = v.Clone()
	return nil
}

func (m *mockState) VerifierGet(addr [20]byte) (*verifier.Verifier, bool, error) {
	record, ok := m.verifiers[addr]
	if !ok {
		return nil, false, nil
	}
	return record.Clone(), true, nil
}

func (m *mockState) ParamStoreSet(name string, value []byte) error {
	m.params[name] = append([]byte(nil), value...)
	return nil
}

func (m *mockState) ParamStoreGet(name string) ([]byte, bool, error) {
	value, ok := m.params[name]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), value...), true, nil
}

func (m *mockState) balance(addr [20]byte) *big.Int {
	acc, ok := m.accounts[string(addr[:])]
	if !ok || acc.Balance == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(acc.Balance)
}

func (m *mockState) fund(addr [20]byte, amount int64) {
	m.accounts[string(addr[:])] = &types.Account{Balance: big.NewInt(amount)}
}

func newTestAddress(fill byte) [20]byte {
	var addr [20]byte
	copy(addr[:], bytes.Repeat([]byte{fill}, 20))
	return addr
}

var (
	testOwner    = newTestAddress(0x01)
	testTreasury = newTestAddress(0x02)
	testCreator  = newTestAddress(0x10)
	testDev      = newTestAddress(0x20)
	testDev2     = newTestAddress(0x21)
	testReviewer = newTestAddress(0x30)
)

type testEnv struct {
	engine   *Engine
	state    *mockState
	recorder *events.Recorder
	height   uint64
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{state: newMockState(), recorder: &events.Recorder{}, height: 100}
	env.engine = NewEngine()
	env.engine.SetState(env.state)
	env.engine.SetEmitter(env.recorder)
	env.engine.SetHeightFunc(func() uint64 { return env.height })
	if err := env.engine.Initialize(params.DefaultPlatform(testOwner, testTreasury)); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	env.state.fund(testCreator, 10_000_000)
	return env
}

func (env *testEnv) createBounty(t *testing.T, amount int64) uint64 {
	t.Helper()
	id, err := env.engine.CreateBounty(testCreator, CreateBountySpec{
		Title:          "Fix flaky scheduler test",
		Description:    "The scheduler test fails intermittently under race.",
		Requirements:   "Root cause and a repeatable regression test.",
		RepoURL:        "https://github.com/example/scheduler",
		Amount:         big.NewInt(amount),
		DeadlineBlocks: 1000,
		Priority:       PriorityHigh,
		Difficulty:     DifficultyAdvanced,
		Tags:           []string{"go", "testing"},
	})
	if err != nil {
		t.Fatalf("create bounty: %v", err)
	}
	return id
}

func (env *testEnv) lastEventType(t *testing.T) string {
	t.Helper()
	if len(env.recorder.Events) == 0 {
		t.Fatalf("no events recorded")
	}
	return env.recorder.Events[len(env.recorder.Events)-1].EventType()
}

func TestCreateBountyLocksEscrow(t *testing.T) {
	env := newTestEnv(t)

	id := env.createBounty(t, 5_000_000)
	if id != 1 {
		t.Fatalf("expected first bounty id 1, got %d", id)
	}

	record, ok, err := env.engine.GetBounty(id)
	if err != nil || !ok {
		t.Fatalf("get bounty: ok=%v err=%v", ok, err)
	}
	if record.Status != StatusActive {
		t.Fatalf("expected active status, got %s", record.Status)
	}
	if record.Deadline != env.height+1000 {
		t.Fatalf("unexpected deadline %d", record.Deadline)
	}

	holding, ok, err := env.engine.GetEscrowInfo(id)
	if err != nil || !ok {
		t.Fatalf("get escrow: ok=%v err=%v", ok, err)
	}
	if !holding.Locked || holding.Released {
		t.Fatalf("unexpected holding flags: %+v", holding)
	}
	if holding.Amount.Cmp(big.NewInt(5_000_000)) != 0 {
		t.Fatalf("unexpected held amount %s", holding.Amount)
	}

	if got := env.state.balance(testCreator); got.Cmp(big.NewInt(5_000_000)) != 0 {
		t.Fatalf("creator balance not debited, got %s", got)
	}
	if got := env.state.balance(escrow.VaultAddress()); got.Cmp(big.NewInt(5_000_000)) != 0 {
		t.Fatalf("vault balance %s", got)
	}

	ids, err := env.engine.BountiesByCreator(testCreator)
	if err != nil || len(ids) != 1 || ids[0] != id {
		t.Fatalf("creator index: ids=%v err=%v", ids, err)
	}
	if env.lastEventType(t) != EventTypeBountyCreated {
		t.Fatalf("unexpected event %s", env.lastEventType(t))
	}
}

func TestCreateBountyInsufficientFunds(t *testing.T) {
	env := newTestEnv(t)
	env.state.fund(testCreator, 1_000)

	_, err := env.engine.CreateBounty(testCreator, CreateBountySpec{
		Title:          "Underfunded",
		Amount:         big.NewInt(5_000_000),
		DeadlineBlocks: 100,
		Priority:       PriorityLow,
		Difficulty:     DifficultyBeginner,
	})
	if !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}

	// The precondition fails before the counter advances, so the next
	// successful create still gets id 1.
	env.state.fund(testCreator, 10_000_000)
	if id := env.createBounty(t, 5_000_000); id != 1 {
		t.Fatalf("expected id 1 after failed create, got %d", id)
	}
}

func TestCreateBountyValidation(t *testing.T) {
	env := newTestEnv(t)

	cases := []struct {
		name string
		spec CreateBountySpec
	}{
		{"empty title", CreateBountySpec{Amount: big.NewInt(5_000_000), DeadlineBlocks: 10, Priority: PriorityLow, Difficulty: DifficultyBeginner}},
		{"below minimum", CreateBountySpec{Title: "t", Amount: big.NewInt(1), DeadlineBlocks: 10, Priority: PriorityLow, Difficulty: DifficultyBeginner}},
		{"zero deadline", CreateBountySpec{Title: "t", Amount: big.NewInt(5_000_000), Priority: PriorityLow, Difficulty: DifficultyBeginner}},
		{"bad priority", CreateBountySpec{Title: "t", Amount: big.NewInt(5_000_000), DeadlineBlocks: 10, Difficulty: DifficultyBeginner}},
		{"too many tags", CreateBountySpec{Title: "t", Amount: big.NewInt(5_000_000), DeadlineBlocks: 10, Priority: PriorityLow, Difficulty: DifficultyBeginner,
			Tags: []string{"a", "b", "c", "d", "e", "f", "g", "h", "i", "j", "k"}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := env.engine.CreateBounty(testCreator, tc.spec); !errors.Is(err, ErrInvalidInput) {
				t.Fatalf("expected ErrInvalidInput, got %v", err)
			}
		})
	}
}

func TestCreateBountyRejectsUnknownVerifier(t *testing.T) {
	env := newTestEnv(t)
	reviewer := testReviewer
	_, err := env.engine.CreateBounty(testCreator, CreateBountySpec{
		Title:          "needs reviewer",
		Amount:         big.NewInt(5_000_000),
		DeadlineBlocks: 10,
		Priority:       PriorityLow,
		Difficulty:     DifficultyBeginner,
		Verifier:       &reviewer,
	})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for unregistered verifier, got %v", err)
	}
}

func TestSubmitWorkFlow(t *testing.T) {
	env := newTestEnv(t)
	id := env.createBounty(t, 5_000_000)

	subID, err := env.engine.SubmitWork(testDev, id, "https://github.com/example/pr/1", "fixes the race")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if subID != 1 {
		t.Fatalf("expected submission id 1, got %d", subID)
	}

	record, ok, err := env.engine.GetBounty(id)
	if err != nil || !ok {
		t.Fatalf("get bounty: %v", err)
	}
	if record.Status != StatusSubmitted {
		t.Fatalf("expected submitted, got %s", record.Status)
	}
	if record.VerificationDeadline == nil || *record.VerificationDeadline != env.height+1008 {
		t.Fatalf("unexpected verification deadline %v", record.VerificationDeadline)
	}

	// The repeat developer hears already-submitted even though the bounty
	// has left the active state; a fresh developer hears bounty-not-active.
	if _, err := env.engine.SubmitWork(testDev, id, "https://x", "again"); !errors.Is(err, ErrAlreadySubmitted) {
		t.Fatalf("expected ErrAlreadySubmitted on repeat submit, got %v", err)
	}
	if _, err := env.engine.SubmitWork(testDev2, id, "https://y", ""); !errors.Is(err, ErrBountyNotActive) {
		t.Fatalf("expected ErrBountyNotActive for new developer, got %v", err)
	}
}

func TestSubmitWorkOncePerDeveloper(t *testing.T) {
	env := newTestEnv(t)
	id := env.createBounty(t, 5_000_000)

	if _, err := env.engine.SubmitWork(testDev, id, "https://pr/1", ""); err != nil {
		t.Fatalf("submit: %v", err)
	}
	// Rejection re-opens the bounty but the developer stays excluded.
	if _, err := env.engine.VerifySubmission(testCreator, id, testDev, false, "not it"); err != nil {
		t.Fatalf("reject: %v", err)
	}
	if _, err := env.engine.SubmitWork(testDev, id, "https://pr/2", ""); !errors.Is(err, ErrAlreadySubmitted) {
		t.Fatalf("expected ErrAlreadySubmitted, got %v", err)
	}
	// A different developer can still submit.
	if _, err := env.engine.SubmitWork(testDev2, id, "https://pr/3", ""); err != nil {
		t.Fatalf("second developer submit: %v", err)
	}
}

func TestSubmitWorkDeadline(t *testing.T) {
	env := newTestEnv(t)
	id := env.createBounty(t, 5_000_000)

	env.height += 1000
	if _, err := env.engine.SubmitWork(testDev, id, "https://pr/1", ""); !errors.Is(err, ErrBountyExpired) {
		t.Fatalf("expected ErrBountyExpired at deadline, got %v", err)
	}

	ok, err := env.engine.CanSubmitWork(id, testDev)
	if err != nil || ok {
		t.Fatalf("can-submit after deadline: ok=%v err=%v", ok, err)
	}
}

func TestSubmitWorkAssigneeOnly(t *testing.T) {
	env := newTestEnv(t)
	id := env.createBounty(t, 5_000_000)

	if err := env.engine.AssignBounty(testCreator, id, testDev); err != nil {
		t.Fatalf("assign: %v", err)
	}
	if _, err := env.engine.SubmitWork(testDev2, id, "https://pr/1", ""); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for non-assignee, got %v", err)
	}
	if ok, err := env.engine.CanSubmitWork(id, testDev2); err != nil || ok {
		t.Fatalf("non-assignee can-submit: ok=%v err=%v", ok, err)
	}
	if _, err := env.engine.SubmitWork(testDev, id, "https://pr/1", ""); err != nil {
		t.Fatalf("assignee submit: %v", err)
	}
}

func TestVerifyAndReleasePayment(t *testing.T) {
	env := newTestEnv(t)
	id := env.createBounty(t, 5_000_000)

	if _, err := env.engine.SubmitWork(testDev, id, "https://pr/1", ""); err != nil {
		t.Fatalf("submit: %v", err)
	}
	verifiedHeight := env.height
	approved, err := env.engine.VerifySubmission(testCreator, id, testDev, true, "looks good")
	if err != nil || !approved {
		t.Fatalf("verify: approved=%v err=%v", approved, err)
	}
	if env.lastEventType(t) != EventTypeSubmissionVerified {
		t.Fatalf("unexpected event %s", env.lastEventType(t))
	}

	// Release at exactly verifiedAt + dispute period is still inside the window.
	env.height = verifiedHeight + 1008
	if _, err := env.engine.ReleasePayment(id, testDev); !errors.Is(err, ErrDisputePeriodActive) {
		t.Fatalf("expected ErrDisputePeriodActive at boundary, got %v", err)
	}

	env.height = verifiedHeight + 1009
	payment, err := env.engine.ReleasePayment(id, testDev)
	if err != nil {
		t.Fatalf("release: %v", err)
	}
	if payment.Cmp(big.NewInt(4_875_000)) != 0 {
		t.Fatalf("developer payment %s, want 4875000", payment)
	}
	if got := env.state.balance(testDev); got.Cmp(big.NewInt(4_875_000)) != 0 {
		t.Fatalf("developer balance %s", got)
	}
	if got := env.state.balance(testTreasury); got.Cmp(big.NewInt(125_000)) != 0 {
		t.Fatalf("treasury balance %s", got)
	}
	if got := env.state.balance(escrow.VaultAddress()); got.Sign() != 0 {
		t.Fatalf("vault not drained: %s", got)
	}

	record, _, _ := env.engine.GetBounty(id)
	if record.Status != StatusCompleted {
		t.Fatalf("expected completed, got %s", record.Status)
	}
	prof, ok, err := env.engine.GetDeveloperProfile(testDev)
	if err != nil || !ok {
		t.Fatalf("profile: ok=%v err=%v", ok, err)
	}
	if prof.CompletedBounties != 1 || prof.Reputation != 10 {
		t.Fatalf("profile counters: %+v", prof)
	}
	if prof.TotalEarned.Cmp(big.NewInt(4_875_000)) != 0 {
		t.Fatalf("total earned %s", prof.TotalEarned)
	}

	// Settlement is final.
	if _, err := env.engine.ReleasePayment(id, testDev); !errors.Is(err, ErrInvalidStatus) {
		t.Fatalf("expected ErrInvalidStatus after completion, got %v", err)
	}
}

func TestReleasePaymentConcurrentCallsSettleOnce(t *testing.T) {
	env := newTestEnv(t)
	id := env.createBounty(t, 5_000_000)

	if _, err := env.engine.SubmitWork(testDev, id, "https://pr/1", ""); err != nil {
		t.Fatalf("submit: %v", err)
	}
	verifiedHeight := env.height
	if _, err := env.engine.VerifySubmission(testCreator, id, testDev, true, ""); err != nil {
		t.Fatalf("verify: %v", err)
	}
	env.height = verifiedHeight + 1009

	const callers = 8
	var (
		wg        sync.WaitGroup
		succeeded atomic.Int64
	)
	errs := make(chan error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := env.engine.ReleasePayment(id, testDev); err != nil {
				errs <- err
				return
			}
			succeeded.Add(1)
		}()
	}
	wg.Wait()
	close(errs)

	if got := succeeded.Load(); got != 1 {
		t.Fatalf("release succeeded %d times, want exactly 1", got)
	}
	for err := range errs {
		if !errors.Is(err, ErrInvalidStatus) && !errors.Is(err, ErrAlreadyProcessed) {
			t.Fatalf("unexpected loser error: %v", err)
		}
	}
	// A single settlement's worth of funds moved, no more.
	if got := env.state.balance(testDev); got.Cmp(big.NewInt(4_875_000)) != 0 {
		t.Fatalf("developer balance %s, want 4875000", got)
	}
	if got := env.state.balance(testTreasury); got.Cmp(big.NewInt(125_000)) != 0 {
		t.Fatalf("treasury balance %s, want 125000", got)
	}
	if got := env.state.balance(escrow.VaultAddress()); got.Sign() != 0 {
		t.Fatalf("vault not drained: %s", got)
	}
	prof, ok, err := env.engine.GetDeveloperProfile(testDev)
	if err != nil || !ok {
		t.Fatalf("profile: ok=%v err=%v", ok, err)
	}
	if prof.CompletedBounties != 1 {
		t.Fatalf("completed bounties %d, want 1", prof.CompletedBounties)
	}
}

func TestVerifyRejectReopens(t *testing.T) {
	env := newTestEnv(t)
	id := env.createBounty(t, 5_000_000)

	if _, err := env.engine.SubmitWork(testDev, id, "https://pr/1", ""); err != nil {
		t.Fatalf("submit: %v", err)
	}
	approved, err := env.engine.VerifySubmission(testCreator, id, testDev, false, "incomplete")
	if err != nil || approved {
		t.Fatalf("reject: approved=%v err=%v", approved, err)
	}
	record, _, _ := env.engine.GetBounty(id)
	if record.Status != StatusActive {
		t.Fatalf("expected active after rejection, got %s", record.Status)
	}
	// A processed submission can never be re-verified.
	if _, err := env.engine.VerifySubmission(testCreator, id, testDev, true, ""); !errors.Is(err, ErrInvalidStatus) {
		t.Fatalf("expected ErrInvalidStatus on active bounty, got %v", err)
	}
}

func TestVerifySubmissionAuthorization(t *testing.T) {
	env := newTestEnv(t)

	if _, err := env.engine.AddVerifier(testOwner, testReviewer, []string{"go"}); err != nil {
		t.Fatalf("add verifier: %v", err)
	}
	reviewer := testReviewer
	id, err := env.engine.CreateBounty(testCreator, CreateBountySpec{
		Title:          "reviewed bounty",
		Amount:         big.NewInt(5_000_000),
		DeadlineBlocks: 1000,
		Priority:       PriorityMedium,
		Difficulty:     DifficultyIntermediate,
		Verifier:       &reviewer,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := env.engine.SubmitWork(testDev, id, "https://pr/1", ""); err != nil {
		t.Fatalf("submit: %v", err)
	}

	if _, err := env.engine.VerifySubmission(testDev2, id, testDev, true, ""); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for bystander, got %v", err)
	}

	// The designated verifier is authorized and earns a verification credit.
	if _, err := env.engine.VerifySubmission(testReviewer, id, testDev, true, "verified"); err != nil {
		t.Fatalf("designated verify: %v", err)
	}
	record, ok, err := env.engine.GetVerifier(testReviewer)
	if err != nil || !ok {
		t.Fatalf("get verifier: ok=%v err=%v", ok, err)
	}
	if record.VerifiedCount != 1 {
		t.Fatalf("verified count %d", record.VerifiedCount)
	}
}

func TestDisputeRefundCreator(t *testing.T) {
	env := newTestEnv(t)
	id := env.createBounty(t, 5_000_000)

	if _, err := env.engine.SubmitWork(testDev, id, "https://pr/1", ""); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if _, err := env.engine.VerifySubmission(testCreator, id, testDev, true, ""); err != nil {
		t.Fatalf("verify: %v", err)
	}
	if err := env.engine.CreateDispute(testCreator, id, "work does not meet the requirements"); err != nil {
		t.Fatalf("dispute: %v", err)
	}

	// Settlement is blocked while the bounty is parked in dispute.
	env.height += 2000
	if _, err := env.engine.ReleasePayment(id, testDev); !errors.Is(err, ErrInvalidStatus) {
		t.Fatalf("expected ErrInvalidStatus while disputed, got %v", err)
	}

	// Only the raiser-eligible parties may open, only the owner may resolve.
	if err := env.engine.ResolveDispute(testDev, id, ResolutionRefundCreator, "refund"); !errors.Is(err, ErrOwnerOnly) {
		t.Fatalf("expected ErrOwnerOnly, got %v", err)
	}
	if err := env.engine.ResolveDispute(testOwner, id, ResolutionRefundCreator, "refund"); err != nil {
		t.Fatalf("resolve: %v", err)
	}

	if got := env.state.balance(testCreator); got.Cmp(big.NewInt(10_000_000)) != 0 {
		t.Fatalf("creator not made whole: %s", got)
	}
	record, _, _ := env.engine.GetBounty(id)
	if record.Status != StatusCancelled {
		t.Fatalf("expected cancelled, got %s", record.Status)
	}
	dispute, ok, err := env.engine.GetDispute(id)
	if err != nil || !ok || !dispute.Resolved {
		t.Fatalf("dispute record: ok=%v resolved=%v err=%v", ok, dispute != nil && dispute.Resolved, err)
	}
	if err := env.engine.ResolveDispute(testOwner, id, ResolutionRefundCreator, "again"); !errors.Is(err, ErrInvalidStatus) {
		t.Fatalf("expected ErrInvalidStatus on re-resolve, got %v", err)
	}
}

func TestDisputeAwardDeveloper(t *testing.T) {
	env := newTestEnv(t)
	id := env.createBounty(t, 5_000_000)

	if _, err := env.engine.SubmitWork(testDev, id, "https://pr/1", ""); err != nil {
		t.Fatalf("submit: %v", err)
	}
	verifiedHeight := env.height
	if _, err := env.engine.VerifySubmission(testCreator, id, testDev, true, ""); err != nil {
		t.Fatalf("verify: %v", err)
	}
	if err := env.engine.CreateDispute(testDev, id, "payment challenge"); err != nil {
		t.Fatalf("dispute: %v", err)
	}
	if err := env.engine.ResolveDispute(testOwner, id, ResolutionAwardDeveloper, "work stands"); err != nil {
		t.Fatalf("resolve: %v", err)
	}

	record, _, _ := env.engine.GetBounty(id)
	if record.Status != StatusVerified {
		t.Fatalf("expected verified after award, got %s", record.Status)
	}

	// The release clock still runs from the original verification height.
	env.height = verifiedHeight + 1009
	if _, err := env.engine.ReleasePayment(id, testDev); err != nil {
		t.Fatalf("release after award: %v", err)
	}
}

func TestDisputeOnlyPartiesMayRaise(t *testing.T) {
	env := newTestEnv(t)
	id := env.createBounty(t, 5_000_000)

	if _, err := env.engine.SubmitWork(testDev, id, "https://pr/1", ""); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if _, err := env.engine.VerifySubmission(testCreator, id, testDev, true, ""); err != nil {
		t.Fatalf("verify: %v", err)
	}
	if err := env.engine.CreateDispute(testDev2, id, "not my bounty"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestCancelBounty(t *testing.T) {
	env := newTestEnv(t)
	id := env.createBounty(t, 5_000_000)

	if err := env.engine.CancelBounty(testDev, id); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if err := env.engine.CancelBounty(testCreator, id); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if got := env.state.balance(testCreator); got.Cmp(big.NewInt(10_000_000)) != 0 {
		t.Fatalf("refund missing: %s", got)
	}
	record, _, _ := env.engine.GetBounty(id)
	if record.Status != StatusCancelled {
		t.Fatalf("expected cancelled, got %s", record.Status)
	}
	if err := env.engine.CancelBounty(testCreator, id); !errors.Is(err, ErrBountyNotActive) {
		t.Fatalf("expected ErrBountyNotActive, got %v", err)
	}
}

func TestEmergencyReleaseFunds(t *testing.T) {
	env := newTestEnv(t)
	id := env.createBounty(t, 5_000_000)

	// No verification clock has started yet on an active bounty.
	if err := env.engine.EmergencyReleaseFunds(testOwner, id); !errors.Is(err, ErrVerificationPending) {
		t.Fatalf("expected ErrVerificationPending without deadline, got %v", err)
	}

	if _, err := env.engine.SubmitWork(testDev, id, "https://pr/1", ""); err != nil {
		t.Fatalf("submit: %v", err)
	}
	record, _, _ := env.engine.GetBounty(id)
	deadline := *record.VerificationDeadline

	if err := env.engine.EmergencyReleaseFunds(testDev, id); !errors.Is(err, ErrOwnerOnly) {
		t.Fatalf("expected ErrOwnerOnly, got %v", err)
	}
	env.height = deadline
	if err := env.engine.EmergencyReleaseFunds(testOwner, id); !errors.Is(err, ErrVerificationPending) {
		t.Fatalf("expected ErrVerificationPending at deadline, got %v", err)
	}
	env.height = deadline + 1
	if err := env.engine.EmergencyReleaseFunds(testOwner, id); err != nil {
		t.Fatalf("emergency release: %v", err)
	}

	if got := env.state.balance(testCreator); got.Cmp(big.NewInt(10_000_000)) != 0 {
		t.Fatalf("creator refund missing: %s", got)
	}
	record, _, _ = env.engine.GetBounty(id)
	if record.Status != StatusCancelled {
		t.Fatalf("expected cancelled, got %s", record.Status)
	}
	if err := env.engine.EmergencyReleaseFunds(testOwner, id); !errors.Is(err, ErrInvalidStatus) {
		t.Fatalf("expected ErrInvalidStatus on cancelled bounty, got %v", err)
	}
}

func TestPauseGuardBlocksMutations(t *testing.T) {
	env := newTestEnv(t)

	if err := env.engine.SetPaused(testOwner, true); err != nil {
		t.Fatalf("set paused: %v", err)
	}
	_, err := env.engine.CreateBounty(testCreator, CreateBountySpec{
		Title:          "paused",
		Amount:         big.NewInt(5_000_000),
		DeadlineBlocks: 10,
		Priority:       PriorityLow,
		Difficulty:     DifficultyBeginner,
	})
	if !errors.Is(err, common.ErrModulePaused) {
		t.Fatalf("expected ErrModulePaused, got %v", err)
	}

	if err := env.engine.SetPaused(testOwner, false); err != nil {
		t.Fatalf("unpause: %v", err)
	}
	env.createBounty(t, 5_000_000)
}

func TestAdminSetters(t *testing.T) {
	env := newTestEnv(t)

	if err := env.engine.SetPlatformFeeRate(testDev, 100); !errors.Is(err, ErrOwnerOnly) {
		t.Fatalf("expected ErrOwnerOnly, got %v", err)
	}
	if err := env.engine.SetPlatformFeeRate(testOwner, params.MaxFeeBps+1); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput above cap, got %v", err)
	}
	if err := env.engine.SetPlatformFeeRate(testOwner, 500); err != nil {
		t.Fatalf("set fee: %v", err)
	}
	if err := env.engine.SetDisputePeriod(testOwner, 100); err != nil {
		t.Fatalf("set dispute period: %v", err)
	}
	if err := env.engine.SetMinBountyAmount(testOwner, big.NewInt(42)); err != nil {
		t.Fatalf("set min amount: %v", err)
	}

	stats, err := env.engine.GetStats()
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.Platform.FeeBps != 500 || stats.Platform.DisputePeriodBlocks != 100 {
		t.Fatalf("platform not updated: %+v", stats.Platform)
	}
	if stats.Platform.MinBountyAmount.Cmp(big.NewInt(42)) != 0 {
		t.Fatalf("min amount %s", stats.Platform.MinBountyAmount)
	}
}

func TestFeeSplitSumsToAmount(t *testing.T) {
	cases := []struct {
		amount  int64
		feeBps  uint32
		fee     int64
		payment int64
	}{
		{5_000_000, 250, 125_000, 4_875_000},
		{1_000_000, 250, 25_000, 975_000},
		{999, 250, 24, 975},
		{1, 250, 0, 1},
		{5_000_000, 0, 0, 5_000_000},
		{5_000_000, 1000, 500_000, 4_500_000},
	}
	for _, tc := range cases {
		payment, fee := FeeSplit(big.NewInt(tc.amount), tc.feeBps)
		if fee.Cmp(big.NewInt(tc.fee)) != 0 || payment.Cmp(big.NewInt(tc.payment)) != 0 {
			t.Fatalf("split(%d, %d) = %s/%s, want %d/%d", tc.amount, tc.feeBps, payment, fee, tc.payment, tc.fee)
		}
		sum := new(big.Int).Add(payment, fee)
		if sum.Cmp(big.NewInt(tc.amount)) != 0 {
			t.Fatalf("split(%d, %d) does not sum: %s", tc.amount, tc.feeBps, sum)
		}
	}
}

func TestCreateDeveloperProfile(t *testing.T) {
	env := newTestEnv(t)

	prof, err := env.engine.CreateDeveloperProfile(testDev, []string{"go", "distributed-systems"}, "dev20", "dev@example.org")
	if err != nil {
		t.Fatalf("create profile: %v", err)
	}
	if prof.Reputation != 0 || prof.CompletedBounties != 0 || prof.TotalEarned.Sign() != 0 {
		t.Fatalf("fresh profile has non-zero counters: %+v", prof)
	}
	if _, err := env.engine.CreateDeveloperProfile(testDev, nil, "", ""); !errors.Is(err, ErrAlreadyProcessed) {
		t.Fatalf("expected ErrAlreadyProcessed, got %v", err)
	}
}
