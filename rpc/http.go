package rpc

import (
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"strings"

	"bountychain/native/bounty"
	"bountychain/observability"
)

const (
	jsonRPCVersion  = "2.0"
	maxRequestBytes = 1 << 20 // 1 MiB
)

const (
	codeParseError     = -32700
	codeInvalidRequest = -32600
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeUnauthorized   = -32001
	codeServerError    = -32000
)

// Server exposes the bounty engine over JSON-RPC 2.0. Mutating methods
// require the configured bearer token; queries are open.
type Server struct {
	engine    *bounty.Engine
	authToken string
}

// NewServer constructs an RPC server for the given engine. An empty token
// disables the mutation gate, which is only sensible for tests.
func NewServer(engine *bounty.Engine, authToken string) *Server {
	return &Server{engine: engine, authToken: strings.TrimSpace(authToken)}
}

type RPCRequest struct {
	JSONRPC string            `json:"jsonrpc"`
	Method  string            `json:"method"`
	Params  []json.RawMessage `json:"params"`
	ID      int               `json:"id"`
}

type RPCResponse struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id"`
	Result  interface{} `json:"result,omitempty"`
	Error   *RPCError   `json:"error,omitempty"`
}

type RPCError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func writeError(w http.ResponseWriter, status int, id interface{}, code int, message string, data interface{}) {
	if status <= 0 {
		status = http.StatusBadRequest
	}
	if status != http.StatusOK {
		w.WriteHeader(status)
	}
	errObj := &RPCError{Code: code, Message: message}
	if data != nil {
		errObj.Data = data
	}
	resp := RPCResponse{JSONRPC: jsonRPCVersion, ID: id, Error: errObj}
	_ = json.NewEncoder(w).Encode(resp)
}

func writeResult(w http.ResponseWriter, id interface{}, result interface{}) {
	resp := RPCResponse{JSONRPC: jsonRPCVersion, ID: id, Result: result}
	_ = json.NewEncoder(w).Encode(resp)
}

// writeLedgerError surfaces the engine's stable numeric codes verbatim so
// clients can branch on them deterministically.
func writeLedgerError(w http.ResponseWriter, id interface{}, err error) {
	var ledgerErr *bounty.Error
	if errors.As(err, &ledgerErr) {
		writeError(w, http.StatusOK, id, int(ledgerErr.Code), ledgerErr.Text, nil)
		return
	}
	writeError(w, http.StatusInternalServerError, id, codeServerError, "internal error", err.Error())
}

func (s *Server) requireAuth(r *http.Request) *RPCError {
	if s.authToken == "" {
		return nil
	}
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return &RPCError{Code: codeUnauthorized, Message: "missing bearer token"}
	}
	supplied := strings.TrimSpace(strings.TrimPrefix(header, prefix))
	if subtle.ConstantTimeCompare([]byte(supplied), []byte(s.authToken)) != 1 {
		return &RPCError{Code: codeUnauthorized, Message: "invalid bearer token"}
	}
	return nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, nil, codeParseError, "unable to read request body", nil)
		return
	}
	var req RPCRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, http.StatusBadRequest, nil, codeParseError, "invalid JSON payload", nil)
		return
	}
	if req.JSONRPC != jsonRPCVersion || strings.TrimSpace(req.Method) == "" {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidRequest, "invalid request envelope", nil)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	s.dispatch(w, r, &req)
}

func (s *Server) dispatch(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	observability.Bounty().RecordRequest(req.Method)
	switch req.Method {
	case "bounty_create":
		s.handleCreateBounty(w, r, req)
	case "bounty_updateDetails":
		s.handleUpdateBountyDetails(w, r, req)
	case "bounty_assign":
		s.handleAssignBounty(w, r, req)
	case "bounty_cancel":
		s.handleCancelBounty(w, r, req)
	case "bounty_submitWork":
		s.handleSubmitWork(w, r, req)
	case "bounty_verifySubmission":
		s.handleVerifySubmission(w, r, req)
	case "bounty_createDispute":
		s.handleCreateDispute(w, r, req)
	case "bounty_resolveDispute":
		s.handleResolveDispute(w, r, req)
	case "bounty_releasePayment":
		s.handleReleasePayment(w, r, req)
	case "bounty_emergencyRelease":
		s.handleEmergencyRelease(w, r, req)
	case "bounty_addVerifier":
		s.handleAddVerifier(w, r, req)
	case "bounty_createProfile":
		s.handleCreateProfile(w, r, req)
	case "bounty_setFeeRate":
		s.handleSetFeeRate(w, r, req)
	case "bounty_setDisputePeriod":
		s.handleSetDisputePeriod(w, r, req)
	case "bounty_setVerificationTimeout":
		s.handleSetVerificationTimeout(w, r, req)
	case "bounty_setMinAmount":
		s.handleSetMinAmount(w, r, req)
	case "bounty_setTreasury":
		s.handleSetTreasury(w, r, req)
	case "bounty_setPaused":
		s.handleSetPaused(w, r, req)
	case "bounty_get":
		s.handleGetBounty(w, req)
	case "bounty_getSubmission":
		s.handleGetSubmission(w, req)
	case "bounty_getBountySubmission":
		s.handleGetBountySubmission(w, req)
	case "bounty_getEscrowInfo":
		s.handleGetEscrowInfo(w, req)
	case "bounty_getProfile":
		s.handleGetProfile(w, req)
	case "bounty_getDispute":
		s.handleGetDispute(w, req)
	case "bounty_getVerifier":
		s.handleGetVerifier(w, req)
	case "bounty_isActive":
		s.handleIsBountyActive(w, req)
	case "bounty_canSubmit":
		s.handleCanSubmitWork(w, req)
	case "bounty_byCreator":
		s.handleBountiesByCreator(w, req)
	case "bounty_getStats":
		s.handleGetStats(w, req)
	default:
		writeError(w, http.StatusNotFound, req.ID, codeMethodNotFound, fmt.Sprintf("unknown method %s", req.Method), nil)
	}
}

func decodeSingleParam(req *RPCRequest, out interface{}) error {
	if len(req.Params) != 1 {
		return fmt.Errorf("exactly one parameter object expected")
	}
	return json.Unmarshal(req.Params[0], out)
}

func parseAddress(s string) ([20]byte, error) {
	var addr [20]byte
	trimmed := strings.TrimPrefix(strings.TrimSpace(s), "0x")
	raw, err := hex.DecodeString(trimmed)
	if err != nil {
		return addr, fmt.Errorf("invalid address %q", s)
	}
	if len(raw) != 20 {
		return addr, fmt.Errorf("address must be 20 bytes")
	}
	copy(addr[:], raw)
	return addr, nil
}

func formatAddress(addr [20]byte) string {
	return "0x" + hex.EncodeToString(addr[:])
}

func parsePositiveBigInt(s string) (*big.Int, error) {
	value, ok := new(big.Int).SetString(strings.TrimSpace(s), 10)
	if !ok {
		return nil, fmt.Errorf("invalid amount %q", s)
	}
	if value.Sign() <= 0 {
		return nil, fmt.Errorf("amount must be positive")
	}
	return value, nil
}
