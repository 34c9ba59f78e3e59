package service

import (
	"context"
	"encoding/json"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omaguva-store/payments-service/internal/clients"
	"github.com/omaguva-store/payments-service/internal/config"
	apperrors "github.com/omaguva-store/payments-service/internal/errors"
	"github.com/omaguva-store/payments-service/internal/events"
	"github.com/omaguva-store/payments-service/internal/logging"
	"github.com/omaguva-store/payments-service/internal/models"
	"github.com/omaguva-store/payments-service/internal/session"
)

type fakeRepo struct {
	mu      sync.Mutex
	orders  map[string]*models.Order
	updates []string
}

func newFakeRepo(orders ...*models.Order) *fakeRepo {
	r := &fakeRepo{orders: make(map[string]*models.Order)}
	for _, o := range orders {
		r.orders[o.OrderID] = o
	}
	return r
}

func (r *fakeRepo) GetByOrderID(ctx context.Context, orderID string) (*models.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	order, ok := r.orders[orderID]
	if !ok {
		return nil, apperrors.ErrOrderNotFound
	}
	return order, nil
}

func (r *fakeRepo) UpdatePaymentStatus(ctx context.Context, orderID string, status models.PaymentStatus, transactionID string, gatewayResponse json.RawMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	order, ok := r.orders[orderID]
	if !ok {
		return apperrors.ErrOrderNotFound
	}
	order.PaymentStatus = status
	if transactionID != "" {
		order.TransactionID = transactionID
	}
	r.updates = append(r.updates, orderID+":"+string(status))
	return nil
}

func (r *fakeRepo) updateLog() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.updates))
	copy(out, r.updates)
	return out
}

type fakePhonePe struct {
	mu     sync.Mutex
	calls  int
	status *clients.PhonePeStatus
	err    error
}

func (p *fakePhonePe) OrderStatus(ctx context.Context, merchantOrderID string) (*clients.PhonePeStatus, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	if p.err != nil {
		return nil, p.err
	}
	return p.status, nil
}

func (p *fakePhonePe) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []string
	err  error
}

func (n *fakeNotifier) SendPaymentNotification(ctx context.Context, req *clients.PaymentNotification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.sent = append(n.sent, req.OrderID)
	return nil
}

func (n *fakeNotifier) SendInvoiceEmail(ctx context.Context, to string, invoice *models.InvoiceData) error {
	return nil
}

type fixture struct {
	svc       *ReconciliationService
	repo      *fakeRepo
	store     *session.MemoryStore
	phonePe   *fakePhonePe
	notifier  *fakeNotifier
	publisher *events.MockPublisher
}

func newFixture(t *testing.T, orders ...*models.Order) *fixture {
	t.Helper()

	cfg := &config.Config{}
	// Long countdown so the scheduled pass never races the direct
	// Verify calls the tests make.
	cfg.Verification.Countdown = time.Hour
	cfg.Verification.SnapshotTTL = 30 * time.Minute

	logger := logging.New("test")
	f := &fixture{
		repo:      newFakeRepo(orders...),
		store:     session.NewMemoryStore(),
		phonePe:   &fakePhonePe{},
		notifier:  &fakeNotifier{},
		publisher: &events.MockPublisher{},
	}
	f.svc = NewReconciliationService(
		f.repo, nil, f.store, f.phonePe, f.notifier, f.publisher,
		NewInvoiceService(logger), cfg, logger,
	)
	return f
}

func paidOrder(orderID string) *models.Order {
	return &models.Order{
		OrderID:       orderID,
		CustomerName:  "Meena Iyer",
		CustomerEmail: "meena@example.com",
		ProductName:   "Banarasi Silk Saree",
		Amount:        5499,
		Currency:      "INR",
		Status:        models.OrderStatusPending,
		PaymentStatus: models.PaymentStatusPending,
		CreatedAt:     time.Now(),
	}
}

func startAndVerify(f *fixture, params url.Values) Attempt {
	attempt := f.svc.StartVerification(context.Background(), "", params)
	return f.svc.Verify(context.Background(), attempt.ID)
}

func TestVerifyEasebuzzSuccess(t *testing.T) {
	f := newFixture(t, paidOrder("ORD555"))

	params := url.Values{}
	params.Set("udf2", "ORD555")
	params.Set("status", "success")
	params.Set("mihpayid", "TXN1")

	attempt := startAndVerify(f, params)

	assert.Equal(t, StateSuccess, attempt.State)
	require.NotNil(t, attempt.Result)
	assert.True(t, attempt.Result.Success)
	assert.Equal(t, "ORD555", attempt.Result.OrderID)
	assert.Equal(t, "TXN1", attempt.Result.TransactionID)
	assert.Equal(t, []string{"ORD555:paid"}, f.repo.updateLog())
	assert.Zero(t, f.phonePe.callCount())
}

func TestVerifyPhonePeFailedRedirect(t *testing.T) {
	f := newFixture(t, paidOrder("ORD777"))
	f.phonePe.status = &clients.PhonePeStatus{State: "FAILED"}

	params := url.Values{}
	params.Set("merchantOrderId", "ORD777_1699999999999")
	params.Set("state", "FAILED")

	attempt := startAndVerify(f, params)

	assert.Equal(t, StateFailed, attempt.State)
	assert.Equal(t, "/payment-failure?orderId=ORD777&reason=gateway_failed", attempt.RedirectURL)
	assert.Empty(t, f.repo.updateLog())
}

func TestVerifyMissingOrderID(t *testing.T) {
	f := newFixture(t)

	attempt := startAndVerify(f, url.Values{})

	assert.Equal(t, StateFailed, attempt.State)
	assert.Equal(t, "/payment-failure?reason=missing_order_id", attempt.RedirectURL)
	// No status call and no ledger write happens for an unidentifiable
	// callback.
	assert.Zero(t, f.phonePe.callCount())
	assert.Empty(t, f.repo.updateLog())
}

func TestPhonePeStateMapping(t *testing.T) {
	cases := []struct {
		state string
		want  VerificationState
	}{
		{"COMPLETED", StateSuccess},
		{"SUCCESS", StateSuccess},
		{"FAILED", StateFailed},
		{"DECLINED", StateFailed},
		{"CANCELLED", StateFailed},
		{"PENDING", StatePending},
		{"PROCESSING", StatePending},
	}

	for _, tc := range cases {
		t.Run(tc.state, func(t *testing.T) {
			f := newFixture(t, paidOrder("ORD900"))
			f.phonePe.status = &clients.PhonePeStatus{State: tc.state, TransactionID: "T1"}

			params := url.Values{}
			params.Set("merchantOrderId", "ORD900_1699999999999")
			params.Set("state", tc.state)

			attempt := startAndVerify(f, params)
			assert.Equal(t, tc.want, attempt.State)
			assert.Equal(t, 1, f.phonePe.callCount())
		})
	}
}

func TestVerifyAtMostOncePerAttempt(t *testing.T) {
	f := newFixture(t, paidOrder("ORD900"))
	f.phonePe.status = &clients.PhonePeStatus{State: "COMPLETED", TransactionID: "T1"}

	params := url.Values{}
	params.Set("merchantOrderId", "ORD900_1699999999999")

	attempt := f.svc.StartVerification(context.Background(), "", params)
	first := f.svc.Verify(context.Background(), attempt.ID)
	second := f.svc.Verify(context.Background(), attempt.ID)

	assert.Equal(t, StateSuccess, first.State)
	assert.Equal(t, StateSuccess, second.State)
	assert.Equal(t, 1, f.phonePe.callCount())
	assert.Equal(t, []string{"ORD900:paid"}, f.repo.updateLog())
}

func TestGetAttemptDuringScheduledVerification(t *testing.T) {
	f := newFixture(t, paidOrder("ORD910"))
	f.phonePe.status = &clients.PhonePeStatus{State: "COMPLETED", TransactionID: "T1"}
	f.svc.cfg.Verification.Countdown = time.Millisecond

	params := url.Values{}
	params.Set("merchantOrderId", "ORD910_1699999999999")

	attempt := f.svc.StartVerification(context.Background(), "", params)

	// GetAttempt hands out snapshots, so reading and marshalling them
	// stays safe while the scheduled pass mutates the stored attempt.
	deadline := time.Now().Add(2 * time.Second)
	for {
		got, err := f.svc.GetAttempt(attempt.ID)
		require.NoError(t, err)
		if _, err := json.Marshal(got); err != nil {
			t.Fatalf("marshal attempt: %v", err)
		}
		if got.State.Terminal() {
			assert.Equal(t, StateSuccess, got.State)
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("attempt never reached a terminal state, last state %s", got.State)
		}
	}
}

func TestVerifyPhonePeStatusErrorFallsBackToLedger(t *testing.T) {
	order := paidOrder("ORD901")
	order.PaymentStatus = models.PaymentStatusPaid
	f := newFixture(t, order)
	f.phonePe.err = context.DeadlineExceeded

	params := url.Values{}
	params.Set("merchantOrderId", "ORD901_1699999999999")

	attempt := startAndVerify(f, params)
	assert.Equal(t, StateSuccess, attempt.State)
}

func TestVerifyPhonePeStatusErrorNoLedgerGoesPending(t *testing.T) {
	f := newFixture(t)
	f.phonePe.err = context.DeadlineExceeded

	params := url.Values{}
	params.Set("merchantOrderId", "ORD902_1699999999999")

	attempt := startAndVerify(f, params)
	assert.Equal(t, StatePending, attempt.State)
	require.NotNil(t, attempt.Result)
	assert.True(t, attempt.Result.Pending)
	assert.NotEmpty(t, attempt.Result.Message)
}

func TestVerifyZohoOutcomes(t *testing.T) {
	cases := []struct {
		status string
		want   VerificationState
	}{
		{"success", StateSuccess},
		{"paid", StateSuccess},
		{"completed", StateSuccess},
		{"failed", StateFailed},
		{"error", StateFailed},
		{"created", StatePending},
	}

	for _, tc := range cases {
		t.Run(tc.status, func(t *testing.T) {
			f := newFixture(t, paidOrder("ORD903"))

			// A status query param would classify as Easebuzz (priority
			// order), so Zoho's status rides on the session snapshot.
			attemptID := "attempt-903-" + tc.status
			intent := &models.PaymentIntent{
				Gateway:   models.GatewayZohoPay,
				OrderID:   "ORD903",
				Status:    tc.status,
				ExpiresAt: time.Now().Add(time.Hour),
			}
			require.NoError(t, f.store.Put(context.Background(), session.KeyZohoLastOrder, attemptID, intent))

			params := url.Values{}
			params.Set("payment_id", "zp_1")
			params.Set("reference_id", "ORD903")

			attempt := f.svc.StartVerification(context.Background(), attemptID, params)
			attempt = f.svc.Verify(context.Background(), attempt.ID)
			assert.Equal(t, tc.want, attempt.State)
			assert.Equal(t, models.GatewayZohoPay, attempt.Gateway)
		})
	}
}

func TestVerifyEasebuzzNoStatusLedgerFallback(t *testing.T) {
	order := paidOrder("ORD904")
	order.Status = models.OrderStatusConfirmed
	f := newFixture(t, order)

	// Session snapshot without a status; the order row decides.
	intent := &models.PaymentIntent{
		Gateway:   models.GatewayEasebuzz,
		OrderID:   "ORD904",
		TxnID:     "ORD904_1699999999999",
		ExpiresAt: time.Now().Add(time.Hour),
	}
	attemptID := "attempt-904"
	require.NoError(t, f.store.Put(context.Background(), session.KeyEasebuzzLastPayment, attemptID, intent))

	attempt := f.svc.StartVerification(context.Background(), attemptID, url.Values{})
	attempt = f.svc.Verify(context.Background(), attempt.ID)

	assert.Equal(t, StateSuccess, attempt.State)
	assert.Equal(t, "ORD904", attempt.Result.OrderID)
}

func TestVerifySuccessWithWarnings(t *testing.T) {
	// No order row: the ledger write fails but the outcome stays
	// success with warnings attached.
	f := newFixture(t)

	params := url.Values{}
	params.Set("udf2", "ORD905")
	params.Set("status", "success")
	params.Set("mihpayid", "TXN9")

	attempt := startAndVerify(f, params)

	assert.Equal(t, StateSuccess, attempt.State)
	require.NotNil(t, attempt.Result)
	assert.True(t, attempt.Result.Success)
	assert.Contains(t, attempt.Result.Warnings, "order update delayed")
}

func TestVerifyClearsConsumedSnapshots(t *testing.T) {
	f := newFixture(t, paidOrder("ORD906"))

	attemptID := "attempt-906"
	intent := &models.PaymentIntent{
		Gateway:   models.GatewayEasebuzz,
		OrderID:   "ORD906",
		Status:    "success",
		ExpiresAt: time.Now().Add(time.Hour),
	}
	require.NoError(t, f.store.Put(context.Background(), session.KeyEasebuzzLastPayment, attemptID, intent))
	require.Equal(t, 1, f.store.Len())

	attempt := f.svc.StartVerification(context.Background(), attemptID, url.Values{})
	attempt = f.svc.Verify(context.Background(), attempt.ID)

	assert.Equal(t, StateSuccess, attempt.State)
	assert.Zero(t, f.store.Len())
}

func TestVerifyPublishesLedgerEvents(t *testing.T) {
	f := newFixture(t, paidOrder("ORD907"))

	params := url.Values{}
	params.Set("udf2", "ORD907")
	params.Set("status", "success")
	params.Set("mihpayid", "TXN7")

	startAndVerify(f, params)

	published := f.publisher.Published()
	require.Len(t, published, 1)
	assert.Equal(t, events.EventTypePaymentVerified, published[0].Type)
	assert.Equal(t, "ORD907", published[0].OrderID)
}

func TestCreateIntentStoresSnapshot(t *testing.T) {
	f := newFixture(t)

	resp, err := f.svc.CreateIntent(context.Background(), &IntentRequest{
		Gateway:       models.GatewayEasebuzz,
		OrderID:       "ORD908",
		Amount:        2999,
		CustomerEmail: "meena@example.com",
		Cart:          []models.CartItem{{Name: "Kota Doria Saree", Price: 2999, Quantity: 1}},
	})
	require.NoError(t, err)

	assert.NotEmpty(t, resp.AttemptID)
	assert.Regexp(t, `^ORD908_\d+$`, resp.TxnID)

	var intent models.PaymentIntent
	ok, err := f.store.Get(context.Background(), session.KeyEasebuzzLastPayment, resp.AttemptID, &intent)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "ORD908", intent.OrderID)
	assert.Equal(t, "ORD908", intent.UDF2)

	var cart []models.CartItem
	ok, err = f.store.Get(context.Background(), session.KeyCartItems, resp.AttemptID, &cart)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Len(t, cart, 1)
}

func TestCreateIntentValidation(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.CreateIntent(context.Background(), &IntentRequest{
		Gateway: models.Gateway("stripe"),
		OrderID: "ORD1",
		Amount:  100,
	})
	assert.True(t, apperrors.IsValidation(err))

	_, err = f.svc.CreateIntent(context.Background(), &IntentRequest{
		Gateway: models.GatewayEasebuzz,
		Amount:  100,
	})
	assert.True(t, apperrors.IsValidation(err))

	_, err = f.svc.CreateIntent(context.Background(), &IntentRequest{
		Gateway: models.GatewayEasebuzz,
		OrderID: "ORD1",
	})
	assert.True(t, apperrors.IsValidation(err))
}

func TestCreateIntentZohoStoresOrderIDKey(t *testing.T) {
	f := newFixture(t)

	resp, err := f.svc.CreateIntent(context.Background(), &IntentRequest{
		Gateway: models.GatewayZohoPay,
		OrderID: "ORD909",
		Amount:  1999,
	})
	require.NoError(t, err)

	var orderID string
	ok, err := f.store.Get(context.Background(), session.KeyZohoOrderID, resp.AttemptID, &orderID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "ORD909", orderID)
}

func TestGetAttemptNotFound(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.GetAttempt("nope")
	assert.ErrorIs(t, err, apperrors.ErrAttemptNotFound)
}

func TestApplyWebhook(t *testing.T) {
	f := newFixture(t, paidOrder("ORD910"))

	err := f.svc.ApplyWebhook(context.Background(), &models.WebhookPayload{
		OrderID:       "ORD910_1699999999999",
		TransactionID: "T10",
		Gateway:       models.GatewayPhonePe,
		Status:        "success",
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"ORD910:paid"}, f.repo.updateLog())

	published := f.publisher.Published()
	require.Len(t, published, 1)
	assert.Equal(t, events.EventTypePaymentWebhook, published[0].Type)
}

func TestApplyWebhookFailure(t *testing.T) {
	f := newFixture(t, paidOrder("ORD911"))

	err := f.svc.ApplyWebhook(context.Background(), &models.WebhookPayload{
		OrderID: "ORD911",
		Gateway: models.GatewayEasebuzz,
		Status:  "failed",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"ORD911:failed"}, f.repo.updateLog())
}

func TestSkipLedgerSync(t *testing.T) {
	f := newFixture(t, paidOrder("ORD912"))
	f.svc.cfg.Features.SkipLedgerSync = true

	params := url.Values{}
	params.Set("udf2", "ORD912")
	params.Set("status", "success")
	params.Set("mihpayid", "TXN12")

	attempt := startAndVerify(f, params)

	assert.Equal(t, StateSuccess, attempt.State)
	assert.Empty(t, f.repo.updateLog())
}
