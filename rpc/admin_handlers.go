package rpc

import "net/http"

type setFeeRateParams struct {
	Caller string `json:"caller"`
	FeeBps uint32 `json:"feeBps"`
}

func (s *Server) handleSetFeeRate(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params setFeeRateParams
	if !s.mutationPrologue(w, r, req, &params) {
		return
	}
	caller, err := parseAddress(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	err = s.engine.SetPlatformFeeRate(caller, params.FeeBps)
	s.finishMutation(w, req, map[string]bool{"updated": err == nil}, err)
}

type setBlocksParams struct {
	Caller string `json:"caller"`
	Blocks uint64 `json:"blocks"`
}

func (s *Server) handleSetDisputePeriod(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params setBlocksParams
	if !s.mutationPrologue(w, r, req, &params) {
		return
	}
	caller, err := parseAddress(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	err = s.engine.SetDisputePeriod(caller, params.Blocks)
	s.finishMutation(w, req, map[string]bool{"updated": err == nil}, err)
}

func (s *Server) handleSetVerificationTimeout(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params setBlocksParams
	if !s.mutationPrologue(w, r, req, &params) {
		return
	}
	caller, err := parseAddress(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	err = s.engine.SetVerificationTimeout(caller, params.Blocks)
	s.finishMutation(w, req, map[string]bool{"updated": err == nil}, err)
}

type setMinAmountParams struct {
	Caller string `json:"caller"`
	Amount string `json:"amount"`
}

func (s *Server) handleSetMinAmount(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params setMinAmountParams
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
	err = s.engine.SetMinBountyAmount(caller, amount)
	s.finishMutation(w, req, map[string]bool{"updated": err == nil}, err)
}

type setTreasuryParams struct {
	Caller   string `json:"caller"`
	Treasury string `json:"treasury"`
}

func (s *Server) handleSetTreasury(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params setTreasuryParams
	if !s.mutationPrologue(w, r, req, &params) {
		return
	}
	caller, err := parseAddress(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	treasury, err := parseAddress(params.Treasury)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	err = s.engine.SetPlatformTreasury(caller, treasury)
	s.finishMutation(w, req, map[string]bool{"updated": err == nil}, err)
}

type setPausedParams struct {
	Caller string `json:"caller"`
	Paused bool   `json:"paused"`
}

func (s *Server) handleSetPaused(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params setPausedParams
	if !s.mutationPrologue(w, r, req, &params) {
		return
	}
	caller, err := parseAddress(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	err = s.engine.SetPaused(caller, params.Paused)
	s.finishMutation(w, req, map[string]bool{"updated": err == nil}, err)
}
