package rpc

import (
	"net/http"

	"bountychain/native/bounty"
	"bountychain/native/escrow"
	"bountychain/native/profile"
	"bountychain/native/verifier"
)

const codeNotFound = -32004

type bountyJSON struct {
	ID                   uint64   `json:"bountyId"`
	Creator              string   `json:"creator"`
	Title                string   `json:"title"`
	Description          string   `json:"description,omitempty"`
	Requirements         string   `json:"requirements,omitempty"`
	RepoURL              string   `json:"repoUrl,omitempty"`
	Amount               string   `json:"amount"`
	Deadline             uint64   `json:"deadline"`
	Priority             string   `json:"priority"`
	Difficulty           string   `json:"difficulty"`
	Tags                 []string `json:"tags,omitempty"`
	Status               string   `json:"status"`
	CreatedAt            uint64   `json:"createdAt"`
	VerificationDeadline *uint64  `json:"verificationDeadline,omitempty"`
	AssignedTo           *string  `json:"assignedTo,omitempty"`
	Verifier             *string  `json:"verifier,omitempty"`
}

func bountyToJSON(b *bounty.Bounty) *bountyJSON {
	if b == nil {
		return nil
	}
	out := &bountyJSON{
		ID:           b.ID,
		Creator:      formatAddress(b.Creator),
		Title:        b.Title,
		Description:  b.Description,
		Requirements: b.Requirements,
		RepoURL:      b.RepoURL,
		Amount:       b.Amount.String(),
		Deadline:     b.Deadline,
		Priority:     b.Priority.String(),
		Difficulty:   b.Difficulty.String(),
		Tags:         b.Tags,
		Status:       b.Status.String(),
		CreatedAt:    b.CreatedAt,
	}
	if b.VerificationDeadline != nil {
		deadline := *b.VerificationDeadline
		out.VerificationDeadline = &deadline
	}
	if b.AssignedTo != nil {
		assignee := formatAddress(*b.AssignedTo)
		out.AssignedTo = &assignee
	}
	if b.Verifier != nil {
		reviewer := formatAddress(*b.Verifier)
		out.Verifier = &reviewer
	}
	return out
}

type submissionJSON struct {
	ID          uint64  `json:"submissionId"`
	BountyID    uint64  `json:"bountyId"`
	Developer   string  `json:"developer"`
	URL         string  `json:"url"`
	Description string  `json:"description,omitempty"`
	SubmittedAt uint64  `json:"submittedAt"`
	Reviewed    bool    `json:"reviewed"`
	Verified    bool    `json:"verified"`
	Notes       string  `json:"notes,omitempty"`
	VerifiedAt  *uint64 `json:"verifiedAt,omitempty"`
	VerifiedBy  *string `json:"verifiedBy,omitempty"`
}

func submissionToJSON(s *bounty.Submission) *submissionJSON {
	if s == nil {
		return nil
	}
	out := &submissionJSON{
		ID:          s.ID,
		BountyID:    s.BountyID,
		Developer:   formatAddress(s.Developer),
		URL:         s.URL,
		Description: s.Description,
		SubmittedAt: s.SubmittedAt,
		Reviewed:    s.Reviewed,
		Verified:    s.Verified,
		Notes:       s.Notes,
	}
	if s.VerifiedAt != nil {
		at := *s.VerifiedAt
		out.VerifiedAt = &at
	}
	if s.VerifiedBy != nil {
		by := formatAddress(*s.VerifiedBy)
		out.VerifiedBy = &by
	}
	return out
}

type holdingJSON struct {
	BountyID uint64 `json:"bountyId"`
	Amount   string `json:"amount"`
	Locked   bool   `json:"locked"`
	Released bool   `json:"released"`
}

func holdingToJSON(h *escrow.Holding) *holdingJSON {
	if h == nil {
		return nil
	}
	return &holdingJSON{
		BountyID: h.BountyID,
		Amount:   h.Amount.String(),
		Locked:   h.Locked,
		Released: h.Released,
	}
}

type profileJSON struct {
	Developer         string   `json:"developer"`
	Reputation        uint64   `json:"reputation"`
	CompletedBounties uint64   `json:"completedBounties"`
	TotalEarned       string   `json:"totalEarned"`
	Specialties       []string `json:"specialties,omitempty"`
	GithubHandle      string   `json:"githubHandle,omitempty"`
	Contact           string   `json:"contact,omitempty"`
	JoinedAt          uint64   `json:"joinedAt"`
	Verified          bool     `json:"verified"`
}

func profileToJSON(p *profile.Profile) *profileJSON {
	if p == nil {
		return nil
	}
	return &profileJSON{
		Developer:         formatAddress(p.Address),
		Reputation:        p.Reputation,
		CompletedBounties: p.CompletedBounties,
		TotalEarned:       p.TotalEarned.String(),
		Specialties:       p.Specialties,
		GithubHandle:      p.GithubHandle,
		Contact:           p.Contact,
		JoinedAt:          p.JoinedAt,
		Verified:          p.Verified,
	}
}

type disputeJSON struct {
	BountyID   uint64  `json:"bountyId"`
	Raiser     string  `json:"raiser"`
	Reason     string  `json:"reason"`
	CreatedAt  uint64  `json:"createdAt"`
	Resolved   bool    `json:"resolved"`
	Resolution string  `json:"resolution,omitempty"`
	ResolvedBy *string `json:"resolvedBy,omitempty"`
	ResolvedAt *uint64 `json:"resolvedAt,omitempty"`
}

func disputeToJSON(d *bounty.Dispute) *disputeJSON {
	if d == nil {
		return nil
	}
	out := &disputeJSON{
		BountyID:   d.BountyID,
		Raiser:     formatAddress(d.Raiser),
		Reason:     d.Reason,
		CreatedAt:  d.CreatedAt,
		Resolved:   d.Resolved,
		Resolution: d.Resolution,
	}
	if d.ResolvedBy != nil {
		by := formatAddress(*d.ResolvedBy)
		out.ResolvedBy = &by
	}
	if d.ResolvedAt != nil {
		at := *d.ResolvedAt
		out.ResolvedAt = &at
	}
	return out
}

type verifierJSON struct {
	Address       string   `json:"address"`
	Domains       []string `json:"domains,omitempty"`
	Reputation    uint64   `json:"reputation"`
	VerifiedCount uint64   `json:"verifiedCount"`
	AddedBy       string   `json:"addedBy"`
	AddedAt       uint64   `json:"addedAt"`
	Active        bool     `json:"active"`
}

func verifierToJSON(v *verifier.Verifier) *verifierJSON {
	if v == nil {
		return nil
	}
	return &verifierJSON{
		Address:       formatAddress(v.Address),
		Domains:       v.Domains,
		Reputation:    v.Reputation,
		VerifiedCount: v.VerifiedCount,
		AddedBy:       formatAddress(v.AddedBy),
		AddedAt:       v.AddedAt,
		Active:        v.Active,
	}
}

type bountyIDParams struct {
	BountyID uint64 `json:"bountyId"`
}

type submissionIDParams struct {
	SubmissionID uint64 `json:"submissionId"`
}

type addressParams struct {
	Address string `json:"address"`
}

type bountyDeveloperParams struct {
	BountyID  uint64 `json:"bountyId"`
	Developer string `json:"developer"`
}

func (s *Server) handleGetBounty(w http.ResponseWriter, req *RPCRequest) {
	var params bountyIDParams
	if err := decodeSingleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	record, ok, err := s.engine.GetBounty(params.BountyID)
	if err != nil {
		writeLedgerError(w, req.ID, err)
		return
	}
	if !ok {
		writeError(w, http.StatusOK, req.ID, codeNotFound, "bounty not found", nil)
		return
	}
	writeResult(w, req.ID, bountyToJSON(record))
}

func (s *Server) handleGetSubmission(w http.ResponseWriter, req *RPCRequest) {
	var params submissionIDParams
	if err := decodeSingleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	record, ok, err := s.engine.GetSubmission(params.SubmissionID)
	if err != nil {
		writeLedgerError(w, req.ID, err)
		return
	}
	if !ok {
		writeError(w, http.StatusOK, req.ID, codeNotFound, "submission not found", nil)
		return
	}
	writeResult(w, req.ID, submissionToJSON(record))
}

func (s *Server) handleGetBountySubmission(w http.ResponseWriter, req *RPCRequest) {
	var params bountyDeveloperParams
	if err := decodeSingleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	developer, err := parseAddress(params.Developer)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	record, ok, err := s.engine.GetBountySubmission(params.BountyID, developer)
	if err != nil {
		writeLedgerError(w, req.ID, err)
		return
	}
	if !ok {
		writeError(w, http.StatusOK, req.ID, codeNotFound, "submission not found", nil)
		return
	}
	writeResult(w, req.ID, submissionToJSON(record))
}

func (s *Server) handleGetEscrowInfo(w http.ResponseWriter, req *RPCRequest) {
	var params bountyIDParams
	if err := decodeSingleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	record, ok, err := s.engine.GetEscrowInfo(params.BountyID)
	if err != nil {
		writeLedgerError(w, req.ID, err)
		return
	}
	if !ok {
		writeError(w, http.StatusOK, req.ID, codeNotFound, "escrow holding not found", nil)
		return
	}
	writeResult(w, req.ID, holdingToJSON(record))
}

func (s *Server) handleGetProfile(w http.ResponseWriter, req *RPCRequest) {
	var params addressParams
	if err := decodeSingleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	addr, err := parseAddress(params.Address)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	record, ok, err := s.engine.GetDeveloperProfile(addr)
	if err != nil {
		writeLedgerError(w, req.ID, err)
		return
	}
	if !ok {
		writeError(w, http.StatusOK, req.ID, codeNotFound, "profile not found", nil)
		return
	}
	writeResult(w, req.ID, profileToJSON(record))
}

func (s *Server) handleGetDispute(w http.ResponseWriter, req *RPCRequest) {
	var params bountyIDParams
	if err := decodeSingleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	record, ok, err := s.engine.GetDispute(params.BountyID)
	if err != nil {
		writeLedgerError(w, req.ID, err)
		return
	}
	if !ok {
		writeError(w, http.StatusOK, req.ID, codeNotFound, "dispute not found", nil)
		return
	}
	writeResult(w, req.ID, disputeToJSON(record))
}

func (s *Server) handleGetVerifier(w http.ResponseWriter, req *RPCRequest) {
	var params addressParams
	if err := decodeSingleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	addr, err := parseAddress(params.Address)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	record, ok, err := s.engine.GetVerifier(addr)
	if err != nil {
		writeLedgerError(w, req.ID, err)
		return
	}
	if !ok {
		writeError(w, http.StatusOK, req.ID, codeNotFound, "verifier not found", nil)
		return
	}
	writeResult(w, req.ID, verifierToJSON(record))
}

func (s *Server) handleIsBountyActive(w http.ResponseWriter, req *RPCRequest) {
	var params bountyIDParams
	if err := decodeSingleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	active, err := s.engine.IsBountyActive(params.BountyID)
	if err != nil {
		writeLedgerError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string]bool{"active": active})
}

func (s *Server) handleCanSubmitWork(w http.ResponseWriter, req *RPCRequest) {
	var params bountyDeveloperParams
	if err := decodeSingleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	developer, err := parseAddress(params.Developer)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	allowed, err := s.engine.CanSubmitWork(params.BountyID, developer)
	if err != nil {
		writeLedgerError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string]bool{"canSubmit": allowed})
}

func (s *Server) handleBountiesByCreator(w http.ResponseWriter, req *RPCRequest) {
	var params addressParams
	if err := decodeSingleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	creator, err := parseAddress(params.Address)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	ids, err := s.engine.BountiesByCreator(creator)
	if err != nil {
		writeLedgerError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string][]uint64{"bountyIds": ids})
}

type statsJSON struct {
	TotalBounties       uint64 `json:"totalBounties"`
	TotalSubmissions    uint64 `json:"totalSubmissions"`
	Height              uint64 `json:"height"`
	Owner               string `json:"owner"`
	Treasury            string `json:"treasury"`
	FeeBps              uint32 `json:"feeBps"`
	DisputePeriodBlocks uint64 `json:"disputePeriodBlocks"`
	VerificationTimeout uint64 `json:"verificationTimeoutBlocks"`
	MinBountyAmount     string `json:"minBountyAmount"`
}

func (s *Server) handleGetStats(w http.ResponseWriter, req *RPCRequest) {
	stats, err := s.engine.GetStats()
	if err != nil {
		writeLedgerError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, statsJSON{
		TotalBounties:       stats.TotalBounties,
		TotalSubmissions:    stats.TotalSubmissions,
		Height:              stats.Height,
		Owner:               formatAddress(stats.Platform.Owner),
		Treasury:            formatAddress(stats.Platform.Treasury),
		FeeBps:              stats.Platform.FeeBps,
		DisputePeriodBlocks: stats.Platform.DisputePeriodBlocks,
		VerificationTimeout: stats.Platform.VerificationTimeout,
		MinBountyAmount:     stats.Platform.MinBountyAmount.String(),
	})
}
