package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/daddysai/tradeledger/config"
	"github.com/daddysai/tradeledger/docstore"
	"github.com/daddysai/tradeledger/health"
	"github.com/daddysai/tradeledger/jwt"
	"github.com/daddysai/tradeledger/trade"
	"github.com/gin-gonic/gin"
)

const testSecret = "test-secret"

// faultLedger 可开关的账本故障注入。
type faultLedger struct {
	docstore.Collection
	fail bool
}

func (f *faultLedger) InsertOne(ctx context.Context, doc any) (string, error) {
	if f.fail {
		return "", errors.New("ledger collection unavailable")
	}
	return f.Collection.InsertOne(ctx, doc)
}

type testEnv struct {
	engine *gin.Engine
	trades *docstore.MemoryCollection
	ledger *faultLedger
}

func setupAPI(t *testing.T, jwtEnabled bool) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	tradesCol := docstore.NewMemoryCollection()
	ledgerCol := &faultLedger{Collection: docstore.NewMemoryCollection()}

	ledger := trade.NewLedger(ledgerCol, logger)
	store := trade.NewStore(tradesCol, ledger, nil, logger)
	handler := NewTradeHandler(store, ledger)

	cfg := &config.Config{}
	cfg.JWT.Enabled = jwtEnabled
	cfg.JWT.Secret = testSecret

	engine := gin.New()
	RegisterRoutes(engine, handler, cfg, map[string]health.Checker{})

	return &testEnv{engine: engine, trades: tradesCol, ledger: ledgerCol}
}

func tradeBody(t *testing.T, id, userID string) []byte {
	t.Helper()
	body, err := json.Marshal(map[string]any{
		"id":        id,
		"userId":    userID,
		"symbol":    "NIFTY",
		"side":      "BUY",
		"quantity":  50,
		"price":     100,
		"timestamp": "2025-01-01T10:00:00Z",
	})
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	return body
}

func doRequest(env *testEnv, method, path string, body []byte, headers map[string]string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	env.engine.ServeHTTP(w, req)
	return w
}

func TestCreateTradeReturns201(t *testing.T) {
	env := setupAPI(t, false)

	w := doRequest(env, http.MethodPost, "/api/trades", tradeBody(t, "t1", "u1"), nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201; body: %s", w.Code, w.Body.String())
	}

	var resp struct {
		Data struct {
			TradeID string `json:"tradeId"`
		} `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Data.TradeID != "t1" {
		t.Errorf("tradeId = %s, want t1", resp.Data.TradeID)
	}
}

func TestCreateTradeValidationFailure400(t *testing.T) {
	env := setupAPI(t, false)

	body, _ := json.Marshal(map[string]any{"userId": "u1", "symbol": "NIFTY"})
	w := doRequest(env, http.MethodPost, "/api/trades", body, nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestCreateTradeLedgerFailure500(t *testing.T) {
	env := setupAPI(t, false)
	env.ledger.fail = true

	w := doRequest(env, http.MethodPost, "/api/trades", tradeBody(t, "t1", "u1"), nil)
	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", w.Code)
	}
}

func TestListTradesMissingUserID400(t *testing.T) {
	env := setupAPI(t, false)

	w := doRequest(env, http.MethodGet, "/api/trades", nil, nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestGetTradeNotFound404(t *testing.T) {
	env := setupAPI(t, false)

	w := doRequest(env, http.MethodGet, "/api/trades/missing?userId=u1", nil, nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestUpdateTradePartialSuccess207(t *testing.T) {
	env := setupAPI(t, false)

	w := doRequest(env, http.MethodPost, "/api/trades", tradeBody(t, "t1", "u1"), nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("create failed: %d", w.Code)
	}

	env.ledger.fail = true

	w = doRequest(env, http.MethodPut, "/api/trades/t1", tradeBody(t, "t1", "u1"), nil)
	if w.Code != http.StatusMultiStatus {
		t.Fatalf("status = %d, want 207; body: %s", w.Code, w.Body.String())
	}

	var resp struct {
		Warning string `json:"warning"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Warning == "" {
		t.Error("partial success response must carry a warning")
	}
}

func TestUpdateTradeVersionConflict409(t *testing.T) {
	env := setupAPI(t, false)

	w := doRequest(env, http.MethodPost, "/api/trades", tradeBody(t, "t1", "u1"), nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("create failed: %d", w.Code)
	}

	body, _ := json.Marshal(map[string]any{
		"userId":    "u1",
		"symbol":    "NIFTY",
		"side":      "SELL",
		"quantity":  10,
		"price":     110,
		"timestamp": "2025-01-02T10:00:00Z",
		"version":   42,
	})
	w = doRequest(env, http.MethodPut, "/api/trades/t1", body, nil)
	if w.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409", w.Code)
	}
}

func TestDeleteTradeReturnsDeletedCount(t *testing.T) {
	env := setupAPI(t, false)

	w := doRequest(env, http.MethodPost, "/api/trades", tradeBody(t, "t1", "u1"), nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("create failed: %d", w.Code)
	}

	w = doRequest(env, http.MethodDelete, "/api/trades/t1?userId=u1", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body: %s", w.Code, w.Body.String())
	}

	var resp struct {
		Data struct {
			DeletedCount int64 `json:"deletedCount"`
		} `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Data.DeletedCount != 1 {
		t.Errorf("deletedCount = %d, want 1", resp.Data.DeletedCount)
	}

	w = doRequest(env, http.MethodDelete, "/api/trades/t1?userId=u1", nil, nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("second delete status = %d, want 404", w.Code)
	}
}

func TestLedgerEndpointsReturnEntriesAndSummary(t *testing.T) {
	env := setupAPI(t, false)

	for _, id := range []string{"t1", "t2"} {
		w := doRequest(env, http.MethodPost, "/api/trades", tradeBody(t, id, "u1"), nil)
		if w.Code != http.StatusCreated {
			t.Fatalf("create %s failed: %d", id, w.Code)
		}
	}

	w := doRequest(env, http.MethodGet, "/api/ledger?userId=u1&page=1&size=10", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("ledger list status = %d; body: %s", w.Code, w.Body.String())
	}
	var listResp struct {
		Total int64 `json:"total"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &listResp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if listResp.Total != 2 {
		t.Errorf("ledger total = %d, want 2", listResp.Total)
	}

	w = doRequest(env, http.MethodGet, "/api/ledger/summary?userId=u1", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("summary status = %d; body: %s", w.Code, w.Body.String())
	}
}

func TestAuthRequiredWhenEnabled(t *testing.T) {
	env := setupAPI(t, true)

	w := doRequest(env, http.MethodGet, "/api/trades", nil, nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestSessionUserOverridesAndGuardsUserID(t *testing.T) {
	env := setupAPI(t, true)

	token, err := jwt.GenerateToken("u1", "alice", testSecret, "tradeledger", time.Hour, nil)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}
	auth := map[string]string{"Authorization": "Bearer " + token}

	// 会话用户与载荷一致：放行。
	w := doRequest(env, http.MethodPost, "/api/trades", tradeBody(t, "t1", "u1"), auth)
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201; body: %s", w.Code, w.Body.String())
	}

	// 载荷指向他人：拒绝。
	w = doRequest(env, http.MethodPost, "/api/trades", tradeBody(t, "t2", "u2"), auth)
	if w.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", w.Code)
	}

	// 未携带 userId 查询参数：回落到会话身份。
	w = doRequest(env, http.MethodGet, "/api/trades", nil, auth)
	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200; body: %s", w.Code, w.Body.String())
	}
}
