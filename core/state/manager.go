package state

import (
	"encoding/binary"
	"fmt"
	"math/big"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"

	"bountychain/core/types"
	"bountychain/native/bounty"
	"bountychain/native/escrow"
	"bountychain/native/profile"
	"bountychain/native/verifier"
	"bountychain/storage"
)

// Manager persists every ledger record behind the narrow state interfaces the
// native engines consume. Keys are keccak hashes of a readable prefix plus
// the record key; values are RLP encoded. The backing Database decides
// durability (in-memory, leveldb or bbolt).
type Manager struct {
	db storage.Database
}

// NewManager creates a state manager operating on the provided database.
func NewManager(db storage.Database) *Manager {
	return &Manager{db: db}
}

var (
	bountyPrefix        = []byte("bounty/record/")
	bountyCounterKey    = []byte("bounty/counter")
	bountyCreatorPrefix = []byte("bounty/creator/")
	submissionPrefix    = []byte("submission/record/")
	submissionCounter   = []byte("submission/counter")
	submissionIdxPrefix = []byte("submission/index/")
	disputePrefix       = []byte("dispute/record/")
	holdingPrefix       = []byte("escrow/holding/")
	profilePrefix       = []byte("profile/record/")
	verifierPrefix      = []byte("verifier/record/")
	accountPrefix       = []byte("account/")
	paramPrefix         = []byte("params/")
	heightKey           = []byte("chain/height")
)

func u64Key(prefix []byte, id uint64) []byte {
	buf := make([]byte, len(prefix)+8)
	copy(buf, prefix)
	binary.BigEndian.PutUint64(buf[len(prefix):], id)
	return ethcrypto.Keccak256(buf)
}

func addrKey(prefix []byte, addr []byte) []byte {
	buf := make([]byte, len(prefix)+len(addr))
	copy(buf, prefix)
	copy(buf[len(prefix):], addr)
	return ethcrypto.Keccak256(buf)
}

func submissionIndexKey(bountyID uint64, developer [20]byte) []byte {
	buf := make([]byte, len(submissionIdxPrefix)+8+20)
	copy(buf, submissionIdxPrefix)
	binary.BigEndian.PutUint64(buf[len(submissionIdxPrefix):], bountyID)
	copy(buf[len(submissionIdxPrefix)+8:], developer[:])
	return ethcrypto.Keccak256(buf)
}

func paramKey(name string) []byte {
	buf := make([]byte, len(paramPrefix)+len(name))
	copy(buf, paramPrefix)
	copy(buf[len(paramPrefix):], name)
	return ethcrypto.Keccak256(buf)
}

func (m *Manager) write(key []byte, value interface{}) error {
	encoded, err := rlp.EncodeToBytes(value)
	if err != nil {
		return fmt.Errorf("state: encode: %w", err)
	}
	return m.db.Put(key, encoded)
}

func (m *Manager) read(key []byte, out interface{}) (bool, error) {
	raw, ok, err := m.db.Get(key)
	if err != nil || !ok {
		return false, err
	}
	if err := rlp.DecodeBytes(raw, out); err != nil {
		return false, fmt.Errorf("state: decode: %w", err)
	}
	return true, nil
}

func (m *Manager) counter(key []byte) (uint64, error) {
	var value uint64
	ok, err := m.read(key, &value)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, nil
	}
	return value, nil
}

func (m *Manager) bump(key []byte) (uint64, error) {
	current, err := m.counter(key)
	if err != nil {
		return 0, err
	}
	next := current + 1
	if err := m.write(key, next); err != nil {
		return 0, err
	}
	return next, nil
}

// --- chain height ---

// ChainHeight returns the persisted block height.
func (m *Manager) ChainHeight() (uint64, error) {
	return m.counter(ethcrypto.Keccak256(heightKey))
}

// SetChainHeight persists the block height the daemon's clock advanced to.
func (m *Manager) SetChainHeight(height uint64) error {
	return m.write(ethcrypto.Keccak256(heightKey), height)
}

// --- accounts ---

type storedAccount struct {
	Nonce   uint64
	Balance *big.Int
}

// GetAccount returns the account record, or nil when the address has never
// held a balance.
func (m *Manager) GetAccount(addr []byte) (*types.Account, error) {
	var stored storedAccount
	ok, err := m.read(addrKey(accountPrefix, addr), &stored)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	balance := big.NewInt(0)
	if stored.Balance != nil {
		balance = new(big.Int).Set(stored.Balance)
	}
	return &types.Account{Nonce: stored.Nonce, Balance: balance}, nil
}

// PutAccount persists the account record.
func (m *Manager) PutAccount(addr []byte, account *types.Account) error {
	if account == nil {
		return fmt.Errorf("state: nil account")
	}
	balance := big.NewInt(0)
	if account.Balance != nil {
		balance = account.Balance
	}
	return m.write(addrKey(accountPrefix, addr), &storedAccount{Nonce: account.Nonce, Balance: balance})
}

// --- bounties ---

type storedBounty struct {
	ID           uint64
	Creator      [20]byte
	Title        string
	Description  string
	Requirements string
	RepoURL      string
	Amount       *big.Int
	Deadline     uint64
	Priority     uint8
	Difficulty   uint8
	Tags         []string
	Status       uint8
	CreatedAt    uint64

	HasVerificationDeadline bool
	VerificationDeadline    uint64
	HasAssignee             bool
	Assignee                [20]byte
	HasVerifier             bool
	Verifier                [20]byte
}

// BountyPut persists the bounty record.
func (m *Manager) BountyPut(b *bounty.Bounty) error {
	if b == nil {
		return fmt.Errorf("state: nil bounty")
	}
	stored := &storedBounty{
		ID:           b.ID,
		Creator:      b.Creator,
		Title:        b.Title,
		Description:  b.Description,
		Requirements: b.Requirements,
		RepoURL:      b.RepoURL,
		Amount:       b.Amount,
		Deadline:     b.Deadline,
		Priority:     uint8(b.Priority),
		Difficulty:   uint8(b.Difficulty),
		Tags:         b.Tags,
		Status:       uint8(b.Status),
		CreatedAt:    b.CreatedAt,
	}
	if stored.Amount == nil {
		stored.Amount = big.NewInt(0)
	}
	if b.VerificationDeadline != nil {
		stored.HasVerificationDeadline = true
		stored.VerificationDeadline = *b.VerificationDeadline
	}
	if b.AssignedTo != nil {
		stored.HasAssignee = true
		stored.Assignee = *b.AssignedTo
	}
	if b.Verifier != nil {
		stored.HasVerifier = true
		stored.Verifier = *b.Verifier
	}
	return m.write(u64Key(bountyPrefix, b.ID), stored)
}

// BountyGet returns the bounty record for the given id.
func (m *Manager) BountyGet(id uint64) (*bounty.Bounty, bool, error) {
	var stored storedBounty
	ok, err := m.read(u64Key(bountyPrefix, id), &stored)
	if err != nil || !ok {
		return nil, false, err
	}
	record := &bounty.Bounty{
		ID:           stored.ID,
		Creator:      stored.Creator,
		Title:        stored.Title,
		Description:  stored.Description,
		Requirements: stored.Requirements,
		RepoURL:      stored.RepoURL,
		Amount:       stored.Amount,
		Deadline:     stored.Deadline,
		Priority:     bounty.Priority(stored.Priority),
		Difficulty:   bounty.Difficulty(stored.Difficulty),
		Tags:         stored.Tags,
		Status:       bounty.Status(stored.Status),
		CreatedAt:    stored.CreatedAt,
	}
	if stored.HasVerificationDeadline {
		deadline := stored.VerificationDeadline
		record.VerificationDeadline = &deadline
	}
	if stored.HasAssignee {
		assignee := stored.Assignee
		record.AssignedTo = &assignee
	}
	if stored.HasVerifier {
		reviewer := stored.Verifier
		record.Verifier = &reviewer
	}
	return record, true, nil
}

// BountyCount returns the number of bounties ever created.
func (m *Manager) BountyCount() (uint64, error) {
	return m.counter(ethcrypto.Keccak256(bountyCounterKey))
}

// NextBountyID advances the bounty id counter. Ids are sequential, start at 1
// and are never reused.
func (m *Manager) NextBountyID() (uint64, error) {
	return m.bump(ethcrypto.Keccak256(bountyCounterKey))
}

// BountyIndexAppend records the bounty under its creator's index.
func (m *Manager) BountyIndexAppend(creator [20]byte, id uint64) error {
	key := addrKey(bountyCreatorPrefix, creator[:])
	var ids []uint64
	if _, err := m.read(key, &ids); err != nil {
		return err
	}
	ids = append(ids, id)
	return m.write(key, ids)
}

// BountyIDsByCreator returns the ids of every bounty the creator opened.
func (m *Manager) BountyIDsByCreator(creator [20]byte) ([]uint64, error) {
	var ids []uint64
	if _, err := m.read(addrKey(bountyCreatorPrefix, creator[:]), &ids); err != nil {
		return nil, err
	}
	return ids, nil
}

// --- submissions ---

type storedSubmission struct {
	ID          uint64
	BountyID    uint64
	Developer   [20]byte
	URL         string
	Description string
	SubmittedAt uint64
	Reviewed    bool
	Verified    bool
	Notes       string

	HasVerifiedAt bool
	VerifiedAt    uint64
	HasVerifiedBy bool
	VerifiedBy    [20]byte
}

// SubmissionPut persists the submission record.
func (m *Manager) SubmissionPut(s *bounty.Submission) error {
	if s == nil {
		return fmt.Errorf("state: nil submission")
	}
	stored := &storedSubmission{
		ID:          s.ID,
		BountyID:    s.BountyID,
		Developer:   s.Developer,
		URL:         s.URL,
		Description: s.Description,
		SubmittedAt: s.SubmittedAt,
		Reviewed:    s.Reviewed,
		Verified:    s.Verified,
		Notes:       s.Notes,
	}
	if s.VerifiedAt != nil {
		stored.HasVerifiedAt = true
		stored.VerifiedAt = *s.VerifiedAt
	}
	if s.VerifiedBy != nil {
		stored.HasVerifiedBy = true
		stored.VerifiedBy = *s.VerifiedBy
	}
	return m.write(u64Key(submissionPrefix, s.ID), stored)
}

// SubmissionGet returns the submission record for the given id.
func (m *Manager) SubmissionGet(id uint64) (*bounty.Submission, bool, error) {
	var stored storedSubmission
	ok, err := m.read(u64Key(submissionPrefix, id), &stored)
	if err != nil || !ok {
		return nil, false, err
	}
	record := &bounty.Submission{
		ID:          stored.ID,
		BountyID:    stored.BountyID,
		Developer:   stored.Developer,
		URL:         stored.URL,
		Description: stored.Description,
		SubmittedAt: stored.SubmittedAt,
		Reviewed:    stored.Reviewed,
		Verified:    stored.Verified,
		Notes:       stored.Notes,
	}
	if stored.HasVerifiedAt {
		at := stored.VerifiedAt
		record.VerifiedAt = &at
	}
	if stored.HasVerifiedBy {
		by := stored.VerifiedBy
		record.VerifiedBy = &by
	}
	return record, true, nil
}

// SubmissionCount returns the number of submissions ever recorded.
func (m *Manager) SubmissionCount() (uint64, error) {
	return m.counter(ethcrypto.Keccak256(submissionCounter))
}

// NextSubmissionID advances the submission id counter.
func (m *Manager) NextSubmissionID() (uint64, error) {
	return m.bump(ethcrypto.Keccak256(submissionCounter))
}

// SubmissionIndexPut records the (bounty, developer) -> submission mapping
// that enforces one submission per pair.
func (m *Manager) SubmissionIndexPut(bountyID uint64, developer [20]byte, submissionID uint64) error {
	return m.write(submissionIndexKey(bountyID, developer), submissionID)
}

// SubmissionIDByDeveloper resolves the composite index.
func (m *Manager) SubmissionIDByDeveloper(bountyID uint64, developer [20]byte) (uint64, bool, error) {
	var id uint64
	ok, err := m.read(submissionIndexKey(bountyID, developer), &id)
	if err != nil || !ok {
		return 0, false, err
	}
	return id, true, nil
}

// --- disputes ---

type storedDispute struct {
	BountyID   uint64
	Raiser     [20]byte
	Reason     string
	CreatedAt  uint64
	Resolved   bool
	Resolution string

	HasResolvedBy bool
	ResolvedBy    [20]byte
	HasResolvedAt bool
	ResolvedAt    uint64
}

// DisputePut persists the dispute record keyed by bounty id.
func (m *Manager) DisputePut(d *bounty.Dispute) error {
	if d == nil {
		return fmt.Errorf("state: nil dispute")
	}
	stored := &storedDispute{
		BountyID:   d.BountyID,
		Raiser:     d.Raiser,
		Reason:     d.Reason,
		CreatedAt:  d.CreatedAt,
		Resolved:   d.Resolved,
		Resolution: d.Resolution,
	}
	if d.ResolvedBy != nil {
		stored.HasResolvedBy = true
		stored.ResolvedBy = *d.ResolvedBy
	}
	if d.ResolvedAt != nil {
		stored.HasResolvedAt = true
		stored.ResolvedAt = *d.ResolvedAt
	}
	return m.write(u64Key(disputePrefix, d.BountyID), stored)
}

// DisputeGet returns the dispute record for the given bounty.
func (m *Manager) DisputeGet(bountyID uint64) (*bounty.Dispute, bool, error) {
	var stored storedDispute
	ok, err := m.read(u64Key(disputePrefix, bountyID), &stored)
	if err != nil || !ok {
		return nil, false, err
	}
	record := &bounty.Dispute{
		BountyID:   stored.BountyID,
		Raiser:     stored.Raiser,
		Reason:     stored.Reason,
		CreatedAt:  stored.CreatedAt,
		Resolved:   stored.Resolved,
		Resolution: stored.Resolution,
	}
	if stored.HasResolvedBy {
		by := stored.ResolvedBy
		record.ResolvedBy = &by
	}
	if stored.HasResolvedAt {
		at := stored.ResolvedAt
		record.ResolvedAt = &at
	}
	return record, true, nil
}

// --- escrow holdings ---

type storedHolding struct {
	BountyID uint64
	Amount   *big.Int
	Locked   bool
	Released bool
}

// EscrowPut persists the custody record.
func (m *Manager) EscrowPut(h *escrow.Holding) error {
	sanitized, err := escrow.SanitizeHolding(h)
	if err != nil {
		return err
	}
	stored := &storedHolding{
		BountyID: sanitized.BountyID,
		Amount:   sanitized.Amount,
		Locked:   sanitized.Locked,
		Released: sanitized.Released,
	}
	return m.write(u64Key(holdingPrefix, sanitized.BountyID), stored)
}

// EscrowGet returns the custody record for the given bounty.
func (m *Manager) EscrowGet(bountyID uint64) (*escrow.Holding, bool, error) {
	var stored storedHolding
	ok, err := m.read(u64Key(holdingPrefix, bountyID), &stored)
	if err != nil || !ok {
		return nil, false, err
	}
	return &escrow.Holding{
		BountyID: stored.BountyID,
		Amount:   stored.Amount,
		Locked:   stored.Locked,
		Released: stored.Released,
	}, true, nil
}

// --- developer profiles ---

type storedProfile struct {
	Address           [20]byte
	Reputation        uint64
	CompletedBounties uint64
	TotalEarned       *big.Int
	Specialties       []string
	GithubHandle      string
	Contact           string
	JoinedAt          uint64
	Verified          bool
}

// ProfilePut persists the developer profile.
func (m *Manager) ProfilePut(p *profile.Profile) error {
	if p == nil {
		return fmt.Errorf("state: nil profile")
	}
	stored := &storedProfile{
		Address:           p.Address,
		Reputation:        p.Reputation,
		CompletedBounties: p.CompletedBounties,
		TotalEarned:       p.TotalEarned,
		Specialties:       p.Specialties,
		GithubHandle:      p.GithubHandle,
		Contact:           p.Contact,
		JoinedAt:          p.JoinedAt,
		Verified:          p.Verified,
	}
	if stored.TotalEarned == nil {
		stored.TotalEarned = big.NewInt(0)
	}
	return m.write(addrKey(profilePrefix, p.Address[:]), stored)
}

// ProfileGet returns the developer profile for the given address.
func (m *Manager) ProfileGet(addr [20]byte) (*profile.Profile, bool, error) {
	var stored storedProfile
	ok, err := m.read(addrKey(profilePrefix, addr[:]), &stored)
	if err != nil || !ok {
		return nil, false, err
	}
	return &profile.Profile{
		Address:           stored.Address,
		Reputation:        stored.Reputation,
		CompletedBounties: stored.CompletedBounties,
		TotalEarned:       stored.TotalEarned,
		Specialties:       stored.Specialties,
		GithubHandle:      stored.GithubHandle,
		Contact:           stored.Contact,
		JoinedAt:          stored.JoinedAt,
		Verified:          stored.Verified,
	}, true, nil
}

// --- verifiers ---

type storedVerifier struct {
	Address       [20]byte
	Domains       []string
	Reputation    uint64
	VerifiedCount uint64
	AddedBy       [20]byte
	AddedAt       uint64
	Active        bool
}

// VerifierPut persists the verifier record.
func (m *Manager) VerifierPut(v *verifier.Verifier) error {
	if v == nil {
		return fmt.Errorf("state: nil verifier")
	}
	stored := &storedVerifier{
		Address:       v.Address,
		Domains:       v.Domains,
		Reputation:    v.Reputation,
		VerifiedCount: v.VerifiedCount,
		AddedBy:       v.AddedBy,
		AddedAt:       v.AddedAt,
		Active:        v.Active,
	}
	return m.write(addrKey(verifierPrefix, v.Address[:]), stored)
}

// VerifierGet returns the verifier record for the given address.
func (m *Manager) VerifierGet(addr [20]byte) (*verifier.Verifier, bool, error) {
	var stored storedVerifier
	ok, err := m.read(addrKey(verifierPrefix, addr[:]), &stored)
	if err != nil || !ok {
		return nil, false, err
	}
	return &verifier.Verifier{
		Address:       stored.Address,
		Domains:       stored.Domains,
		Reputation:    stored.Reputation,
		VerifiedCount: stored.VerifiedCount,
		AddedBy:       stored.AddedBy,
		AddedAt:       stored.AddedAt,
		Active:        stored.Active,
	}, true, nil
}

// --- parameter store ---

// ParamStoreSet persists a raw parameter payload under its canonical name.
func (m *Manager) ParamStoreSet(name string, value []byte) error {
	if name == "" {
		return fmt.Errorf("state: params key must not be empty")
	}
	return m.db.Put(paramKey(name), value)
}

// ParamStoreGet loads a raw parameter payload.
func (m *Manager) ParamStoreGet(name string) ([]byte, bool, error) {
	if name == "" {
		return nil, false, fmt.Errorf("state: params key must not be empty")
	}
	return m.db.Get(paramKey(name))
}
