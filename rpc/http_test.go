package rpc

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"bountychain/core/state"
	"bountychain/core/types"
	"bountychain/native/bounty"
	"bountychain/native/params"
	"bountychain/storage"
)

const testToken = "test-token"

var (
	ownerAddr    = "0x0101010101010101010101010101010101010101"
	treasuryAddr = "0x0202020202020202020202020202020202020202"
	creatorAddr  = "0x1010101010101010101010101010101010101010"
	devAddr      = "0x2020202020202020202020202020202020202020"
)

type testRPC struct {
	server *httptest.Server
	height *uint64
	t      *testing.T
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	Result  json.RawMessage `json:"result"`
	Error   *RPCError       `json:"error"`
}

func newTestRPC(t *testing.T) *testRPC {
	t.Helper()
	manager := state.NewManager(storage.NewMemDB())

	height := uint64(100)
	engine := bounty.NewEngine()
	engine.SetState(manager)
	engine.SetHeightFunc(func() uint64 { return height })

	owner, err := parseAddress(ownerAddr)
	require.NoError(t, err)
	treasury, err := parseAddress(treasuryAddr)
	require.NoError(t, err)
	require.NoError(t, engine.Initialize(params.DefaultPlatform(owner, treasury)))

	creator, err := parseAddress(creatorAddr)
	require.NoError(t, err)
	require.NoError(t, manager.PutAccount(creator[:], &types.Account{Balance: big.NewInt(10_000_000)}))

	srv := httptest.NewServer(NewServer(engine, testToken))
	t.Cleanup(srv.Close)
	return &testRPC{server: srv, height: &height, t: t}
}

func (rig *testRPC) call(method string, params interface{}, authed bool) (*rpcResponse, int) {
	rig.t.Helper()
	payload := map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  method,
		"params":  []interface{}{params},
	}
	body, err := json.Marshal(payload)
	require.NoError(rig.t, err)

	req, err := http.NewRequest(http.MethodPost, rig.server.URL, bytes.NewReader(body))
	require.NoError(rig.t, err)
	if authed {
		req.Header.Set("Authorization", "Bearer "+testToken)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(rig.t, err)
	defer resp.Body.Close()

	var decoded rpcResponse
	require.NoError(rig.t, json.NewDecoder(resp.Body).Decode(&decoded))
	return &decoded, resp.StatusCode
}

func (rig *testRPC) createBounty() uint64 {
	rig.t.Helper()
	resp, status := rig.call("bounty_create", map[string]interface{}{
		"caller":         creatorAddr,
		"title":          "Fix flaky scheduler test",
		"amount":         "5000000",
		"deadlineBlocks": 1000,
		"priority":       "high",
		"difficulty":     "advanced",
	}, true)
	require.Equal(rig.t, http.StatusOK, status)
	require.Nil(rig.t, resp.Error)

	var result struct {
		BountyID uint64 `json:"bountyId"`
	}
	require.NoError(rig.t, json.Unmarshal(resp.Result, &result))
	return result.BountyID
}

func TestCreateAndGetBounty(t *testing.T) {
	rig := newTestRPC(t)

	id := rig.createBounty()
	require.Equal(t, uint64(1), id)

	resp, status := rig.call("bounty_get", map[string]interface{}{"bountyId": id}, false)
	require.Equal(t, http.StatusOK, status)
	require.Nil(t, resp.Error)

	var record struct {
		Creator  string `json:"creator"`
		Title    string `json:"title"`
		Amount   string `json:"amount"`
		Status   string `json:"status"`
		Deadline uint64 `json:"deadline"`
	}
	require.NoError(t, json.Unmarshal(resp.Result, &record))
	require.Equal(t, creatorAddr, record.Creator)
	require.Equal(t, "Fix flaky scheduler test", record.Title)
	require.Equal(t, "5000000", record.Amount)
	require.Equal(t, "active", record.Status)
	require.Equal(t, uint64(1100), record.Deadline)
}

func TestMutationRequiresAuth(t *testing.T) {
	rig := newTestRPC(t)

	resp, status := rig.call("bounty_create", map[string]interface{}{
		"caller":         creatorAddr,
		"title":          "unauthorized",
		"amount":         "5000000",
		"deadlineBlocks": 10,
		"priority":       "low",
		"difficulty":     "beginner",
	}, false)
	require.Equal(t, http.StatusUnauthorized, status)
	require.NotNil(t, resp.Error)
	require.Equal(t, codeUnauthorized, resp.Error.Code)
}

func TestQueriesAreOpen(t *testing.T) {
	rig := newTestRPC(t)

	resp, status := rig.call("bounty_getStats", map[string]interface{}{}, false)
	require.Equal(t, http.StatusOK, status)
	require.Nil(t, resp.Error)

	var stats struct {
		TotalBounties uint64 `json:"totalBounties"`
		Owner         string `json:"owner"`
		FeeBps        uint32 `json:"feeBps"`
	}
	require.NoError(t, json.Unmarshal(resp.Result, &stats))
	require.Zero(t, stats.TotalBounties)
	require.Equal(t, ownerAddr, stats.Owner)
	require.Equal(t, uint32(250), stats.FeeBps)
}

func TestLedgerErrorCodesSurfaceVerbatim(t *testing.T) {
	rig := newTestRPC(t)

	resp, status := rig.call("bounty_cancel", map[string]interface{}{
		"caller":   creatorAddr,
		"bountyId": 99,
	}, true)
	require.Equal(t, http.StatusOK, status)
	require.NotNil(t, resp.Error)
	require.Equal(t, int(bounty.ErrNotFound.Code), resp.Error.Code)

	// Wrong caller on a real bounty maps to the unauthorized ledger code,
	// not an HTTP failure.
	id := rig.createBounty()
	resp, status = rig.call("bounty_cancel", map[string]interface{}{
		"caller":   devAddr,
		"bountyId": id,
	}, true)
	require.Equal(t, http.StatusOK, status)
	require.NotNil(t, resp.Error)
	require.Equal(t, int(bounty.ErrUnauthorized.Code), resp.Error.Code)
}

func TestNotFoundQueries(t *testing.T) {
	rig := newTestRPC(t)

	resp, _ := rig.call("bounty_get", map[string]interface{}{"bountyId": 42}, false)
	require.NotNil(t, resp.Error)
	require.Equal(t, codeNotFound, resp.Error.Code)

	resp, _ = rig.call("bounty_getProfile", map[string]interface{}{"address": devAddr}, false)
	require.NotNil(t, resp.Error)
	require.Equal(t, codeNotFound, resp.Error.Code)
}

func TestUnknownMethod(t *testing.T) {
	rig := newTestRPC(t)

	resp, status := rig.call("bounty_unknown", map[string]interface{}{}, false)
	require.Equal(t, http.StatusNotFound, status)
	require.NotNil(t, resp.Error)
	require.Equal(t, codeMethodNotFound, resp.Error.Code)
}

func TestMalformedPayload(t *testing.T) {
	rig := newTestRPC(t)

	resp, err := http.Post(rig.server.URL, "application/json", bytes.NewBufferString("{not json"))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var decoded rpcResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	require.NotNil(t, decoded.Error)
	require.Equal(t, codeParseError, decoded.Error.Code)
}

func TestSubmitVerifyReleaseOverRPC(t *testing.T) {
	rig := newTestRPC(t)
	id := rig.createBounty()

	resp, _ := rig.call("bounty_submitWork", map[string]interface{}{
		"caller":   devAddr,
		"bountyId": id,
		"url":      "https://github.com/example/pr/1",
	}, true)
	require.Nil(t, resp.Error)

	resp, _ = rig.call("bounty_verifySubmission", map[string]interface{}{
		"caller":    creatorAddr,
		"bountyId":  id,
		"developer": devAddr,
		"approved":  true,
	}, true)
	require.Nil(t, resp.Error)

	// Inside the dispute window settlement is refused with the stable code.
	resp, _ = rig.call("bounty_releasePayment", map[string]interface{}{
		"bountyId":  id,
		"developer": devAddr,
	}, true)
	require.NotNil(t, resp.Error)
	require.Equal(t, int(bounty.ErrDisputePeriodActive.Code), resp.Error.Code)

	*rig.height += 1009
	resp, _ = rig.call("bounty_releasePayment", map[string]interface{}{
		"bountyId":  id,
		"developer": devAddr,
	}, true)
	require.Nil(t, resp.Error)

	var result struct {
		DeveloperPayment string `json:"developerPayment"`
	}
	require.NoError(t, json.Unmarshal(resp.Result, &result))
	require.Equal(t, fmt.Sprintf("%d", 4_875_000), result.DeveloperPayment)

	resp, _ = rig.call("bounty_getEscrowInfo", map[string]interface{}{"bountyId": id}, false)
	require.Nil(t, resp.Error)
	var holding struct {
		Released bool `json:"released"`
	}
	require.NoError(t, json.Unmarshal(resp.Result, &holding))
	require.True(t, holding.Released)
}
