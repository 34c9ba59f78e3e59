package handlers

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/omaguva-store/payments-service/internal/config"
	apperrors "github.com/omaguva-store/payments-service/internal/errors"
	"github.com/omaguva-store/payments-service/internal/logging"
	"github.com/omaguva-store/payments-service/internal/models"
	"github.com/omaguva-store/payments-service/internal/repository"
	"github.com/omaguva-store/payments-service/internal/service"
	"github.com/omaguva-store/payments-service/internal/session"
)

func testHandlers() *Handlers {
	return testHandlersWithRepo(nil)
}

func testHandlersWithRepo(repo repository.OrderRepository) *Handlers {
	cfg := &config.Config{}
	cfg.Verification.Countdown = time.Hour
	cfg.Verification.SnapshotTTL = time.Hour

	logger := logging.New("test")
	recon := service.NewReconciliationService(
		repo, nil, session.NewMemoryStore(), nil, nil, nil,
		service.NewInvoiceService(logger), cfg, logger,
	)

	return NewHandlers(recon, nil, cfg)
}

type recordingRepo struct {
	orders  map[string]*models.Order
	updates []string
}

func (r *recordingRepo) GetByOrderID(ctx context.Context, orderID string) (*models.Order, error) {
	order, ok := r.orders[orderID]
	if !ok {
		return nil, apperrors.ErrOrderNotFound
	}
	return order, nil
}

func (r *recordingRepo) UpdatePaymentStatus(ctx context.Context, orderID string, status models.PaymentStatus, transactionID string, gatewayResponse json.RawMessage) error {
	if _, ok := r.orders[orderID]; !ok {
		return apperrors.ErrOrderNotFound
	}
	r.updates = append(r.updates, orderID+":"+string(status))
	return nil
}

func TestHealth(t *testing.T) {
	gin.SetMode(gin.TestMode)

	h := &Handlers{}

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	h.Health(c)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}

	var resp map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}

	if resp["status"] != "healthy" {
		t.Errorf("Expected status 'healthy', got %v", resp["status"])
	}

	if resp["service"] != "payments-service" {
		t.Errorf("Expected service 'payments-service', got %v", resp["service"])
	}
}

func TestReady(t *testing.T) {
	gin.SetMode(gin.TestMode)

	h := &Handlers{}

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	h.Ready(c)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}
}

func TestLive(t *testing.T) {
	gin.SetMode(gin.TestMode)

	h := &Handlers{}

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	h.Live(c)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}
}

func TestCreateIntentBadBody(t *testing.T) {
	gin.SetMode(gin.TestMode)

	h := testHandlers()

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/api/v1/payments/intents", bytes.NewBufferString("not-json"))

	h.CreateIntent(c)

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", w.Code)
	}
}

func TestCreateIntentValidationError(t *testing.T) {
	gin.SetMode(gin.TestMode)

	h := testHandlers()

	body, _ := json.Marshal(map[string]interface{}{
		"gateway":  "stripe",
		"order_id": "ORD1",
		"amount":   100,
	})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/api/v1/payments/intents", bytes.NewBuffer(body))

	h.CreateIntent(c)

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", w.Code)
	}

	var resp map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if resp["field"] != "gateway" {
		t.Errorf("Expected field 'gateway', got %v", resp["field"])
	}
}

func TestCreateIntentSuccess(t *testing.T) {
	gin.SetMode(gin.TestMode)

	h := testHandlers()

	body, _ := json.Marshal(map[string]interface{}{
		"gateway":  "easebuzz",
		"order_id": "ORD42",
		"amount":   2999,
	})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/api/v1/payments/intents", bytes.NewBuffer(body))

	h.CreateIntent(c)

	if w.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d: %s", w.Code, w.Body.String())
	}

	var resp struct {
		AttemptID string `json:"attempt_id"`
		TxnID     string `json:"txnid"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if resp.AttemptID == "" {
		t.Error("Expected non-empty attempt id")
	}
	if resp.TxnID == "" {
		t.Error("Expected non-empty txnid")
	}
}

func TestGetVerificationNotFound(t *testing.T) {
	gin.SetMode(gin.TestMode)

	h := testHandlers()

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Params = gin.Params{{Key: "id", Value: "nope"}}

	h.GetVerification(c)

	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", w.Code)
	}
}

func TestVerifyAccepted(t *testing.T) {
	gin.SetMode(gin.TestMode)

	h := testHandlers()

	body, _ := json.Marshal(map[string]interface{}{
		"params": map[string]string{},
	})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/api/v1/payments/verify", bytes.NewBuffer(body))

	h.Verify(c)

	if w.Code != http.StatusAccepted {
		t.Fatalf("Expected status 202, got %d: %s", w.Code, w.Body.String())
	}

	var resp struct {
		ID    string `json:"id"`
		State string `json:"state"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if resp.State != "countdown" {
		t.Errorf("Expected state 'countdown', got %q", resp.State)
	}
}

func TestPhonePeAuditRequiresDates(t *testing.T) {
	gin.SetMode(gin.TestMode)

	h := testHandlers()

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/api/v1/payments/audit", nil)

	h.PhonePeAudit(c)

	// No audit client configured in tests.
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected status 503, got %d", w.Code)
	}
}

func TestWebhookRejectsBadSignature(t *testing.T) {
	gin.SetMode(gin.TestMode)

	h := testHandlers()
	h.config.WebhookSecret = "topsecret"

	body, _ := json.Marshal(map[string]interface{}{
		"order_id": "ORD1",
		"status":   "success",
	})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/payment", bytes.NewBuffer(body))
	c.Request.Header.Set("X-Webhook-Signature", "bogus")

	h.PaymentWebhook(c)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401, got %d", w.Code)
	}
}

func TestWebhookAppliesSignedPayload(t *testing.T) {
	gin.SetMode(gin.TestMode)

	repo := &recordingRepo{orders: map[string]*models.Order{"ORD1": {OrderID: "ORD1"}}}
	h := testHandlersWithRepo(repo)
	h.config.WebhookSecret = "topsecret"

	body, _ := json.Marshal(map[string]interface{}{
		"order_id": "ORD1",
		"status":   "success",
		"gateway":  "easebuzz",
	})

	mac := hmac.New(sha256.New, []byte("topsecret"))
	mac.Write(body)
	signature := hex.EncodeToString(mac.Sum(nil))

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/payment", bytes.NewBuffer(body))
	c.Request.Header.Set("X-Webhook-Signature", signature)

	h.PaymentWebhook(c)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	if len(repo.updates) != 1 || repo.updates[0] != "ORD1:paid" {
		t.Errorf("Expected ledger update ORD1:paid, got %v", repo.updates)
	}
}
