package clients

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omaguva-store/payments-service/internal/config"
	"github.com/omaguva-store/payments-service/internal/logging"
)

func TestOrderStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/status", r.URL.Path)

		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "ORD123_1699999999999", body["merchantOrderId"])
		assert.Equal(t, true, body["details"])

		json.NewEncoder(w).Encode(PhonePeStatus{
			State:       "COMPLETED",
			TotalAmount: 499900,
			PaymentDetails: []PhonePePaymentDetail{
				{TransactionID: "T001", Amount: 499900, PaymentMode: "UPI"},
			},
		})
	}))
	defer srv.Close()

	client := NewHTTPPhonePeClient(config.ServiceConfig{
		BaseURL: srv.URL,
		Timeout: 2 * time.Second,
	}, logging.New("test"))

	status, err := client.OrderStatus(context.Background(), "ORD123_1699999999999")
	require.NoError(t, err)

	assert.Equal(t, "COMPLETED", status.State)
	assert.Equal(t, "T001", status.LatestTransactionID())
	assert.Equal(t, int64(499900), status.AmountPaise())
}

func TestOrderStatusServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	client := NewHTTPPhonePeClient(config.ServiceConfig{
		BaseURL: srv.URL,
		Timeout: 2 * time.Second,
	}, logging.New("test"))

	_, err := client.OrderStatus(context.Background(), "ORD123")
	assert.Error(t, err)
}

func TestAuditStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/audit", r.URL.Path)

		var req AuditRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "2026-08-01", req.FromDate)

		json.NewEncoder(w).Encode(AuditResult{
			TotalTransactions: 2,
			Transactions: []AuditTransaction{
				{MerchantOrderID: "ORD1_1", State: "COMPLETED"},
				{MerchantOrderID: "ORD2_1", State: "FAILED"},
			},
		})
	}))
	defer srv.Close()

	client := NewHTTPPhonePeClient(config.ServiceConfig{
		BaseURL: srv.URL,
		Timeout: 2 * time.Second,
	}, logging.New("test"))

	result, err := client.AuditStatus(context.Background(), AuditRequest{
		FromDate: "2026-08-01",
		ToDate:   "2026-08-31",
	})
	require.NoError(t, err)
	assert.Equal(t, 2, result.TotalTransactions)
	assert.Len(t, result.Transactions, 2)
}

func TestLatestTransactionIDFallback(t *testing.T) {
	s := &PhonePeStatus{State: "COMPLETED", TransactionID: "TOP"}
	assert.Equal(t, "TOP", s.LatestTransactionID())
}
