package rpc

import (
	"net/http"

	"bountychain/native/bounty"
	"bountychain/observability"
)

type createBountyParams struct {
	Caller         string   `json:"caller"`
	Title          string   `json:"title"`
	Description    string   `json:"description,omitempty"`
	Requirements   string   `json:"requirements,omitempty"`
	RepoURL        string   `json:"repoUrl,omitempty"`
	Amount         string   `json:"amount"`
	DeadlineBlocks uint64   `json:"deadlineBlocks"`
	Priority       string   `json:"priority"`
	Difficulty     string   `json:"difficulty"`
	Tags           []string `json:"tags,omitempty"`
	Verifier       string   `json:"verifier,omitempty"`
}

type createBountyResult struct {
	BountyID uint64 `json:"bountyId"`
}

func (s *Server) mutationPrologue(w http.ResponseWriter, r *http.Request, req *RPCRequest, params interface{}) bool {
	if authErr := s.requireAuth(r); authErr != nil {
		writeError(w, http.StatusUnauthorized, req.ID, authErr.Code, authErr.Message, nil)
		return false
	}
	if err := decodeSingleParam(req, params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return false
	}
	return true
}

func (s *Server) finishMutation(w http.ResponseWriter, req *RPCRequest, result interface{}, err error) {
	if err != nil {
		observability.Bounty().RecordFailure(req.Method, err)
		writeLedgerError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, result)
}

func (s *Server) handleCreateBounty(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params createBountyParams
	if !s.mutationPrologue(w, r, req, &params) {
		return
	}
	caller, err := parseAddress(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	amount, err := parsePositiveBigInt(params.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	priority, err := bounty.ParsePriority(params.Priority)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	difficulty, err := bounty.ParseDifficulty(params.Difficulty)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	spec := bounty.CreateBountySpec{
		Title:          params.Title,
		Description:    params.Description,
		Requirements:   params.Requirements,
		RepoURL:        params.RepoURL,
		Amount:         amount,
		DeadlineBlocks: params.DeadlineBlocks,
		Priority:       priority,
		Difficulty:     difficulty,
		Tags:           params.Tags,
	}
	if params.Verifier != "" {
		reviewer, parseErr := parseAddress(params.Verifier)
		if parseErr != nil {
			writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", parseErr.Error())
			return
		}
		spec.Verifier = &reviewer
	}
	id, err := s.engine.CreateBounty(caller, spec)
	s.finishMutation(w, req, createBountyResult{BountyID: id}, err)
}

type updateBountyParams struct {
	Caller       string   `json:"caller"`
	BountyID     uint64   `json:"bountyId"`
	Title        string   `json:"title"`
	Description  string   `json:"description,omitempty"`
	Requirements string   `json:"requirements,omitempty"`
	RepoURL      string   `json:"repoUrl,omitempty"`
	Tags         []string `json:"tags,omitempty"`
}

func (s *Server) handleUpdateBountyDetails(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params updateBountyParams
	if !s.mutationPrologue(w, r, req, &params) {
		return
	}
	caller, err := parseAddress(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	err = s.engine.UpdateBountyDetails(caller, params.BountyID, params.Title, params.Description, params.Requirements, params.RepoURL, params.Tags)
	s.finishMutation(w, req, map[string]bool{"updated": err == nil}, err)
}

type assignBountyParams struct {
	Caller    string `json:"caller"`
	BountyID  uint64 `json:"bountyId"`
	Developer string `json:"developer"`
}

func (s *Server) handleAssignBounty(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params assignBountyParams
	if !s.mutationPrologue(w, r, req, &params) {
		return
	}
	caller, err := parseAddress(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	developer, err := parseAddress(params.Developer)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	err = s.engine.AssignBounty(caller, params.BountyID, developer)
	s.finishMutation(w, req, map[string]bool{"assigned": err == nil}, err)
}

type bountyActorParams struct {
	Caller   string `json:"caller"`
	BountyID uint64 `json:"bountyId"`
}

func (s *Server) handleCancelBounty(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params bountyActorParams
	if !s.mutationPrologue(w, r, req, &params) {
		return
	}
	caller, err := parseAddress(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	err = s.engine.CancelBounty(caller, params.BountyID)
	s.finishMutation(w, req, map[string]bool{"cancelled": err == nil}, err)
}

type submitWorkParams struct {
	Caller      string `json:"caller"`
	BountyID    uint64 `json:"bountyId"`
	URL         string `json:"url"`
	Description string `json:"description,omitempty"`
}

type submitWorkResult struct {
	SubmissionID uint64 `json:"submissionId"`
}

func (s *Server) handleSubmitWork(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params submitWorkParams
	if !s.mutationPrologue(w, r, req, &params) {
		return
	}
	caller, err := parseAddress(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	id, err := s.engine.SubmitWork(caller, params.BountyID, params.URL, params.Description)
	s.finishMutation(w, req, submitWorkResult{SubmissionID: id}, err)
}

type verifySubmissionParams struct {
	Caller    string `json:"caller"`
	BountyID  uint64 `json:"bountyId"`
	Developer string `json:"developer"`
	Approved  bool   `json:"approved"`
	Notes     string `json:"notes,omitempty"`
}

func (s *Server) handleVerifySubmission(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params verifySubmissionParams
	if !s.mutationPrologue(w, r, req, &params) {
		return
	}
	caller, err := parseAddress(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	developer, err := parseAddress(params.Developer)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	approved, err := s.engine.VerifySubmission(caller, params.BountyID, developer, params.Approved, params.Notes)
	s.finishMutation(w, req, map[string]bool{"approved": approved}, err)
}

type createDisputeParams struct {
	Caller   string `json:"caller"`
	BountyID uint64 `json:"bountyId"`
	Reason   string `json:"reason"`
}

func (s *Server) handleCreateDispute(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params createDisputeParams
	if !s.mutationPrologue(w, r, req, &params) {
		return
	}
	caller, err := parseAddress(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	err = s.engine.CreateDispute(caller, params.BountyID, params.Reason)
	s.finishMutation(w, req, map[string]bool{"disputed": err == nil}, err)
}

type resolveDisputeParams struct {
	Caller     string `json:"caller"`
	BountyID   uint64 `json:"bountyId"`
	Outcome    string `json:"outcome"`
	Resolution string `json:"resolution,omitempty"`
}

func (s *Server) handleResolveDispute(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params resolveDisputeParams
	if !s.mutationPrologue(w, r, req, &params) {
		return
	}
	caller, err := parseAddress(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	var outcome bounty.Resolution
	switch params.Outcome {
	case "award-developer":
		outcome = bounty.ResolutionAwardDeveloper
	case "refund-creator":
		outcome = bounty.ResolutionRefundCreator
	default:
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", "outcome must be award-developer or refund-creator")
		return
	}
	err = s.engine.ResolveDispute(caller, params.BountyID, outcome, params.Resolution)
	s.finishMutation(w, req, map[string]bool{"resolved": err == nil}, err)
}

type releasePaymentParams struct {
	BountyID  uint64 `json:"bountyId"`
	Developer string `json:"developer"`
}

type releasePaymentResult struct {
	DeveloperPayment string `json:"developerPayment"`
}

func (s *Server) handleReleasePayment(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params releasePaymentParams
	if !s.mutationPrologue(w, r, req, &params) {
		return
	}
	developer, err := parseAddress(params.Developer)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	payment, err := s.engine.ReleasePayment(params.BountyID, developer)
	if err != nil {
		s.finishMutation(w, req, nil, err)
		return
	}
	s.finishMutation(w, req, releasePaymentResult{DeveloperPayment: payment.String()}, nil)
}

func (s *Server) handleEmergencyRelease(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params bountyActorParams
	if !s.mutationPrologue(w, r, req, &params) {
		return
	}
	caller, err := parseAddress(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	err = s.engine.EmergencyReleaseFunds(caller, params.BountyID)
	s.finishMutation(w, req, map[string]bool{"released": err == nil}, err)
}

type addVerifierParams struct {
	Caller   string   `json:"caller"`
	Verifier string   `json:"verifier"`
	Domains  []string `json:"domains"`
}

func (s *Server) handleAddVerifier(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params addVerifierParams
	if !s.mutationPrologue(w, r, req, &params) {
		return
	}
	caller, err := parseAddress(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	addr, err := parseAddress(params.Verifier)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	record, err := s.engine.AddVerifier(caller, addr, params.Domains)
	if err != nil {
		s.finishMutation(w, req, nil, err)
		return
	}
	s.finishMutation(w, req, verifierToJSON(record), nil)
}

type createProfileParams struct {
	Caller       string   `json:"caller"`
	Specialties  []string `json:"specialties,omitempty"`
	GithubHandle string   `json:"githubHandle,omitempty"`
	Contact      string   `json:"contact,omitempty"`
}

func (s *Server) handleCreateProfile(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params createProfileParams
	if !s.mutationPrologue(w, r, req, &params) {
		return
	}
	caller, err := parseAddress(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	record, err := s.engine.CreateDeveloperProfile(caller, params.Specialties, params.GithubHandle, params.Contact)
	if err != nil {
		s.finishMutation(w, req, nil, err)
		return
	}
	s.finishMutation(w, req, profileToJSON(record), nil)
}
