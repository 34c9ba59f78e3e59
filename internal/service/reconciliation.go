package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/omaguva-store/payments-service/internal/clients"
	"github.com/omaguva-store/payments-service/internal/config"
	apperrors "github.com/omaguva-store/payments-service/internal/errors"
	"github.com/omaguva-store/payments-service/internal/events"
	"github.com/omaguva-store/payments-service/internal/gateway"
	"github.com/omaguva-store/payments-service/internal/logging"
	"github.com/omaguva-store/payments-service/internal/metrics"
	"github.com/omaguva-store/payments-service/internal/models"
	"github.com/omaguva-store/payments-service/internal/repository"
	"github.com/omaguva-store/payments-service/internal/session"
)

// VerificationState is the lifecycle state of one verification attempt.
type VerificationState string

const (
	StateCountdown VerificationState = "countdown"
	StateVerifying VerificationState = "verifying"
	StateSuccess   VerificationState = "success"
	StatePending   VerificationState = "pending"
	StateFailed    VerificationState = "failed"
)

// Terminal reports whether the state is final for the attempt.
func (s VerificationState) Terminal() bool {
	return s == StateSuccess || s == StatePending || s == StateFailed
}

// Attempt is one post-redirect verification attempt. Attempts live in
// memory per service instance; the ledger itself is only advanced by
// the webhook path.
type Attempt struct {
	ID          string                 `json:"id"`
	State       VerificationState      `json:"state"`
	OrderID     string                 `json:"order_id,omitempty"`
	Gateway     models.Gateway         `json:"gateway,omitempty"`
	Result      *models.PaymentDetails `json:"result,omitempty"`
	RedirectURL string                 `json:"redirect_url,omitempty"`
	CreatedAt   time.Time              `json:"created_at"`
	UpdatedAt   time.Time              `json:"updated_at"`

	params url.Values
	// checked guards the status call: at most one verification pass per
	// attempt, a second invocation is a no-op.
	checked bool
}

// snapshot copies the exported state of the attempt. The caller must
// hold the service mutex; the copy can then be read or marshalled
// without a lock while the scheduled verification pass keeps mutating
// the original.
func (a *Attempt) snapshot() Attempt {
	c := *a
	c.params = nil
	c.checked = false
	return c
}

// ReconciliationService resolves gateway return callbacks to a payment
// outcome and drives the post-success side effects.
type ReconciliationService struct {
	repo      repository.OrderRepository
	cache     repository.OrderCache
	store     session.Store
	phonePe   clients.PhonePeStatusClient
	notifier  clients.NotificationSender
	publisher events.LedgerEventPublisher
	invoices  *InvoiceService
	cfg       *config.Config
	logger    *logging.Logger

	mu       sync.RWMutex
	attempts map[string]*Attempt

	now func() time.Time
}

// NewReconciliationService creates the reconciliation service.
func NewReconciliationService(
	repo repository.OrderRepository,
	cache repository.OrderCache,
	store session.Store,
	phonePe clients.PhonePeStatusClient,
	notifier clients.NotificationSender,
	publisher events.LedgerEventPublisher,
	invoices *InvoiceService,
	cfg *config.Config,
	logger *logging.Logger,
) *ReconciliationService {
	return &ReconciliationService{
		repo:      repo,
		cache:     cache,
		store:     store,
		phonePe:   phonePe,
		notifier:  notifier,
		publisher: publisher,
		invoices:  invoices,
		cfg:       cfg,
		logger:    logger,
		attempts:  make(map[string]*Attempt),
		now:       time.Now,
	}
}

// IntentRequest is the pre-redirect half of a checkout: the storefront
// declares which gateway it is about to redirect to.
type IntentRequest struct {
	Gateway       models.Gateway    `json:"gateway"`
	OrderID       string            `json:"order_id"`
	Amount        float64           `json:"amount"`
	CustomerName  string            `json:"customer_name,omitempty"`
	CustomerEmail string            `json:"customer_email,omitempty"`
	CustomerPhone string            `json:"customer_phone,omitempty"`
	ProductInfo   string            `json:"product_info,omitempty"`
	Cart          []models.CartItem `json:"cart,omitempty"`
}

// IntentResponse carries the attempt id the storefront must round-trip
// through the gateway redirect, plus the transaction id to hand to the
// gateway.
type IntentResponse struct {
	AttemptID string    `json:"attempt_id"`
	TxnID     string    `json:"txnid"`
	ExpiresAt time.Time `json:"expires_at"`
}

// CreateIntent persists a pending-payment snapshot before the gateway
// redirect. The transaction id gets a `_<unix-millis>` suffix so gateway
// ids stay unique across retries of the same order.
func (s *ReconciliationService) CreateIntent(ctx context.Context, req *IntentRequest) (*IntentResponse, error) {
	if err := ValidateIntentRequest(req); err != nil {
		return nil, err
	}

	now := s.now()
	attemptID := uuid.New().String()
	txnid := fmt.Sprintf("%s_%d", req.OrderID, now.UnixMilli())
	expiresAt := now.Add(s.cfg.Verification.SnapshotTTL)

	intent := &models.PaymentIntent{
		AttemptID:     attemptID,
		Gateway:       req.Gateway,
		OrderID:       req.OrderID,
		TxnID:         txnid,
		UDF2:          req.OrderID,
		Amount:        strconv.FormatFloat(req.Amount, 'f', 2, 64),
		CustomerName:  req.CustomerName,
		CustomerEmail: req.CustomerEmail,
		CustomerPhone: req.CustomerPhone,
		ProductInfo:   req.ProductInfo,
		CreatedAt:     now,
		ExpiresAt:     expiresAt,
	}

	key := intentKey(req.Gateway)
	if err := s.store.Put(ctx, key, attemptID, intent); err != nil {
		return nil, err
	}

	if req.Gateway == models.GatewayZohoPay {
		// Last-resort order-id key, read when the Zoho callback carries
		// no reference at all.
		if err := s.store.Put(ctx, session.KeyZohoOrderID, attemptID, req.OrderID); err != nil {
			s.logger.Warn("Failed to store zoho order id", logging.Fields{
				"attempt": attemptID,
				"error":   err.Error(),
			})
		}
	}

	if len(req.Cart) > 0 {
		if err := s.store.Put(ctx, session.KeyCartItems, attemptID, req.Cart); err != nil {
			s.logger.Warn("Failed to store cart snapshot", logging.Fields{
				"attempt": attemptID,
				"error":   err.Error(),
			})
		}
	}

	s.logger.Info("Payment intent created", logging.Fields{
		"attempt":  attemptID,
		"gateway":  req.Gateway,
		"order_id": req.OrderID,
		"txnid":    txnid,
	})

	return &IntentResponse{
		AttemptID: attemptID,
		TxnID:     txnid,
		ExpiresAt: expiresAt,
	}, nil
}

func intentKey(g models.Gateway) string {
	switch g {
	case models.GatewayEasebuzz:
		return session.KeyEasebuzzLastPayment
	case models.GatewayZohoPay:
		return session.KeyZohoLastOrder
	default:
		return session.KeyPhonePeLastOrder
	}
}

// StartVerification registers an attempt for the given callback
// parameters and schedules the single verification pass after the
// countdown. The countdown is not cancellable.
func (s *ReconciliationService) StartVerification(ctx context.Context, attemptID string, params url.Values) Attempt {
	if attemptID == "" {
		attemptID = uuid.New().String()
	}

	now := s.now()
	attempt := &Attempt{
		ID:        attemptID,
		State:     StateCountdown,
		CreatedAt: now,
		UpdatedAt: now,
		params:    params,
	}

	s.mu.Lock()
	s.attempts[attemptID] = attempt
	snap := attempt.snapshot()
	s.mu.Unlock()

	s.logger.Info("Verification scheduled", logging.Fields{
		"attempt":   attemptID,
		"countdown": s.cfg.Verification.Countdown.String(),
	})

	time.AfterFunc(s.cfg.Verification.Countdown, func() {
		s.Verify(context.Background(), attemptID)
	})

	return snap
}

// GetAttempt returns a snapshot of the current state of an attempt.
func (s *ReconciliationService) GetAttempt(attemptID string) (Attempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	attempt, ok := s.attempts[attemptID]
	if !ok {
		return Attempt{}, apperrors.ErrAttemptNotFound
	}
	return attempt.snapshot(), nil
}

// Verify runs the single verification pass for an attempt. A second
// call for the same attempt is a no-op and returns the recorded state.
func (s *ReconciliationService) Verify(ctx context.Context, attemptID string) Attempt {
	s.mu.Lock()
	attempt, ok := s.attempts[attemptID]
	if !ok {
		s.mu.Unlock()
		return Attempt{}
	}
	if attempt.checked {
		snap := attempt.snapshot()
		s.mu.Unlock()
		return snap
	}
	attempt.checked = true
	attempt.State = StateVerifying
	attempt.UpdatedAt = s.now()
	params := attempt.params
	s.mu.Unlock()

	details, state, redirect := s.resolve(ctx, attemptID, params)

	s.mu.Lock()
	attempt.State = state
	attempt.Result = details
	attempt.RedirectURL = redirect
	if details != nil {
		attempt.OrderID = details.OrderID
		attempt.Gateway = details.Gateway
	}
	attempt.UpdatedAt = s.now()
	snap := attempt.snapshot()
	s.mu.Unlock()

	var g models.Gateway
	if details != nil {
		g = details.Gateway
	}
	metrics.ObserveVerification(string(g), string(state))

	s.logger.Info("Verification finished", logging.Fields{
		"attempt": attemptID,
		"state":   state,
	})

	return snap
}

// resolve classifies the callback, recovers the order id and resolves
// the tri-state outcome. Nothing escapes this function as an error;
// every failure maps to a state.
func (s *ReconciliationService) resolve(ctx context.Context, attemptID string, params url.Values) (*models.PaymentDetails, VerificationState, string) {
	snaps := session.LoadSnapshots(ctx, s.store, attemptID, s.now())
	cb := gateway.Classify(params, snaps)
	norm := gateway.ParseParams(params)

	if s.cfg.Features.GatewayDebug {
		s.logger.Debug("Callback classified", logging.Fields{
			"attempt": attemptID,
			"gateway": cb.Gateway,
			"params":  params.Encode(),
		})
	}

	orderID := gateway.ResolveOrderID(cb, norm, snaps)
	if orderID == "" {
		s.logger.Warn("Order id unrecoverable", logging.Fields{"attempt": attemptID})
		s.publishFailed(ctx, "", cb.Gateway, models.ReasonMissingOrderID)
		return &models.PaymentDetails{
			Gateway: cb.Gateway,
			Message: "We could not identify your order. Please contact support with your payment reference.",
		}, StateFailed, "/payment-failure?reason=" + models.ReasonMissingOrderID
	}

	details := &models.PaymentDetails{
		Gateway:    cb.Gateway,
		OrderID:    orderID,
		Amount:     norm.Amount,
		Mode:       firstNonEmptyStr(params.Get("mode"), norm.PGType),
		BankRefNum: norm.BankRefNum,
	}

	outcome := s.resolveOutcome(ctx, cb, norm, details)

	switch outcome {
	case models.OutcomeSuccess:
		details.Success = true
		details.Message = "Payment confirmed."
		s.applySuccess(ctx, attemptID, details, params, snaps)
		session.ClearConsumed(ctx, s.store, attemptID)
		return details, StateSuccess, ""

	case models.OutcomeFailure:
		s.publishFailed(ctx, orderID, cb.Gateway, models.ReasonGatewayFailed)
		session.ClearConsumed(ctx, s.store, attemptID)
		if details.Message == "" {
			details.Message = "Payment failed or was cancelled."
		}
		redirect := fmt.Sprintf("/payment-failure?orderId=%s&reason=%s", url.QueryEscape(orderID), models.ReasonGatewayFailed)
		return details, StateFailed, redirect

	default:
		details.Pending = true
		if details.Message == "" {
			details.Message = "Payment is being processed. If the amount was debited it will be confirmed shortly; contact support if this persists."
		}
		return details, StatePending, ""
	}
}

// resolveOutcome implements the per-gateway tri-state status resolution.
func (s *ReconciliationService) resolveOutcome(ctx context.Context, cb *gateway.Callback, norm *gateway.NormalizedParams, details *models.PaymentDetails) models.Outcome {
	switch cb.Gateway {
	case models.GatewayEasebuzz:
		return s.resolveEasebuzz(ctx, cb, details)
	case models.GatewayPhonePe:
		return s.resolvePhonePe(ctx, cb, details)
	case models.GatewayZohoPay:
		return s.resolveZoho(cb, details)
	default:
		return s.ledgerFallback(ctx, details.OrderID)
	}
}

func (s *ReconciliationService) resolveEasebuzz(ctx context.Context, cb *gateway.Callback, details *models.PaymentDetails) models.Outcome {
	details.TransactionID = gateway.EasebuzzTransactionID(cb)

	status := gateway.EasebuzzStatus(cb)
	if status == "" {
		return s.ledgerFallback(ctx, details.OrderID)
	}

	lower := strings.ToLower(status)
	if lower == "usercancelled" || strings.Contains(lower, "fail") {
		return models.OutcomeFailure
	}
	if gateway.StatusSuccess(status) {
		return models.OutcomeSuccess
	}
	return models.OutcomePending
}

func (s *ReconciliationService) resolvePhonePe(ctx context.Context, cb *gateway.Callback, details *models.PaymentDetails) models.Outcome {
	// The status API takes the composite merchant order id, so the
	// canonical id gets the same `_<unix-millis>` suffix checkout used.
	merchantOrderID := details.OrderID
	if !strings.Contains(merchantOrderID, "_") {
		if cb.Intent != nil && cb.Intent.TxnID != "" {
			merchantOrderID = cb.Intent.TxnID
		} else {
			merchantOrderID = fmt.Sprintf("%s_%d", details.OrderID, s.now().UnixMilli())
		}
	}

	status, err := s.phonePe.OrderStatus(ctx, merchantOrderID)
	if err != nil {
		metrics.ObserveStatusCall(string(models.GatewayPhonePe), "error")
		s.logger.Warn("PhonePe status check failed", logging.Fields{
			"order_id": details.OrderID,
			"error":    err.Error(),
		})
		if outcome := s.ledgerFallback(ctx, details.OrderID); outcome == models.OutcomeSuccess {
			return outcome
		}
		details.Message = "We could not confirm your payment yet. If the amount was debited it will be confirmed shortly."
		return models.OutcomePending
	}

	metrics.ObserveStatusCall(string(models.GatewayPhonePe), "ok")

	details.TransactionID = status.LatestTransactionID()
	if paise := status.AmountPaise(); paise > 0 {
		details.Amount = strconv.FormatFloat(float64(paise)/100, 'f', 2, 64)
	}

	switch strings.ToUpper(status.State) {
	case "COMPLETED", "SUCCESS":
		return models.OutcomeSuccess
	case "FAILED", "DECLINED", "CANCELLED":
		return models.OutcomeFailure
	default:
		return models.OutcomePending
	}
}

func (s *ReconciliationService) resolveZoho(cb *gateway.Callback, details *models.PaymentDetails) models.Outcome {
	details.TransactionID = firstNonEmptyStr(gateway.ZohoPaymentID(cb), gateway.ZohoSessionID(cb))

	switch strings.ToLower(gateway.ZohoStatus(cb)) {
	case "success", "paid", "completed":
		return models.OutcomeSuccess
	case "failed", "failure", "error":
		return models.OutcomeFailure
	default:
		return models.OutcomePending
	}
}

// ledgerFallback infers the outcome from the orders table when the
// callback itself is inconclusive. Any error reads as pending.
func (s *ReconciliationService) ledgerFallback(ctx context.Context, orderID string) models.Outcome {
	if s.cfg.Features.SkipLedgerSync || orderID == "" {
		return models.OutcomePending
	}

	order, err := s.getOrder(ctx, orderID)
	if err != nil {
		s.logger.Warn("Ledger fallback failed", logging.Fields{
			"order_id": orderID,
			"error":    err.Error(),
		})
		return models.OutcomePending
	}

	if order.PaidLike() {
		return models.OutcomeSuccess
	}
	return models.OutcomePending
}

// applySuccess runs the best-effort post-success side effects. None of
// them can revert the success outcome; failures surface as warnings.
func (s *ReconciliationService) applySuccess(ctx context.Context, attemptID string, details *models.PaymentDetails, params url.Values, snaps gateway.Snapshots) {
	var order *models.Order

	if s.cfg.Features.SkipLedgerSync {
		s.logger.Info("Ledger sync skipped", logging.Fields{"order_id": details.OrderID})
	} else {
		response := rawCallbackJSON(params)
		if err := s.repo.UpdatePaymentStatus(ctx, details.OrderID, models.PaymentStatusPaid, details.TransactionID, response); err != nil {
			s.logger.Error("Failed to mark order paid", logging.Fields{
				"order_id": details.OrderID,
				"error":    err.Error(),
			})
			details.Warnings = append(details.Warnings, "order update delayed")
		} else if s.cache != nil {
			_ = s.cache.Delete(ctx, details.OrderID)
		}

		var err error
		order, err = s.getOrder(ctx, details.OrderID)
		if err != nil {
			s.logger.Warn("Failed to load order for invoice", logging.Fields{
				"order_id": details.OrderID,
				"error":    err.Error(),
			})
		}
	}

	invoice, err := s.buildInvoice(order, details, snaps)
	if err != nil {
		s.logger.Warn("Invoice generation failed", logging.Fields{
			"order_id": details.OrderID,
			"error":    err.Error(),
		})
		details.Warnings = append(details.Warnings, "invoice unavailable")
	}

	if email := notifyEmail(order, snaps); email != "" && s.notifier != nil {
		notification := &clients.PaymentNotification{
			OrderID:       details.OrderID,
			Status:        string(models.OutcomeSuccess),
			Gateway:       details.Gateway,
			CustomerEmail: email,
			Amount:        details.Amount,
			TransactionID: details.TransactionID,
		}
		if err := s.notifier.SendPaymentNotification(ctx, notification); err != nil {
			details.Warnings = append(details.Warnings, "notification delayed")
		} else if invoice != nil {
			if err := s.notifier.SendInvoiceEmail(ctx, email, invoice); err != nil {
				s.logger.Warn("Invoice email failed", logging.Fields{
					"order_id": details.OrderID,
					"error":    err.Error(),
				})
			}
		}
	}

	if s.publisher != nil {
		if err := s.publisher.PublishVerified(ctx, details); err != nil {
			s.logger.Error("Failed to publish verified event", logging.Fields{
				"order_id": details.OrderID,
				"error":    err.Error(),
			})
		}
	}

	if len(details.Warnings) > 0 {
		details.Message = "Payment confirmed; order update may be delayed."
	}
}

func (s *ReconciliationService) buildInvoice(order *models.Order, details *models.PaymentDetails, snaps gateway.Snapshots) (*models.InvoiceData, error) {
	if order != nil {
		return s.invoices.GenerateFromOrder(order)
	}
	if len(snaps.Cart) > 0 {
		return s.invoices.GenerateFromCart(details.OrderID, snaps.Cart, s.now()), nil
	}
	return nil, fmt.Errorf("no order row or cart snapshot for %s", details.OrderID)
}

// GetOrderPaymentStatus is the ledger read-through: cache first, then
// the orders table.
func (s *ReconciliationService) GetOrderPaymentStatus(ctx context.Context, orderID string) (*models.Order, error) {
	if orderID == "" {
		return nil, apperrors.NewValidationError("order_id", "order id is required")
	}
	return s.getOrder(ctx, gateway.NormalizeOrderID(orderID))
}

func (s *ReconciliationService) getOrder(ctx context.Context, orderID string) (*models.Order, error) {
	if s.cache != nil {
		if order, err := s.cache.Get(ctx, orderID); err == nil && order != nil {
			return order, nil
		}
	}

	order, err := s.repo.GetByOrderID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		_ = s.cache.Set(ctx, order)
	}
	return order, nil
}

// ApplyWebhook applies a server-verified gateway webhook to the ledger.
// This is the only path that owns ledger truth; verification results
// are display state.
func (s *ReconciliationService) ApplyWebhook(ctx context.Context, payload *models.WebhookPayload) error {
	if payload.OrderID == "" {
		return apperrors.NewValidationError("order_id", "order id is required")
	}

	orderID := gateway.NormalizeOrderID(payload.OrderID)

	status := models.PaymentStatusFailed
	if gateway.StatusSuccess(payload.Status) {
		status = models.PaymentStatusPaid
	}

	response, _ := json.Marshal(payload)
	if err := s.repo.UpdatePaymentStatus(ctx, orderID, status, payload.TransactionID, response); err != nil {
		return err
	}

	if s.cache != nil {
		_ = s.cache.Delete(ctx, orderID)
	}

	if s.publisher != nil {
		if err := s.publisher.PublishWebhook(ctx, payload); err != nil {
			s.logger.Error("Failed to publish webhook event", logging.Fields{
				"order_id": orderID,
				"error":    err.Error(),
			})
		}
	}

	metrics.ObserveWebhook(string(payload.Gateway), string(status))

	s.logger.Info("Webhook applied", logging.Fields{
		"order_id": orderID,
		"status":   status,
		"gateway":  payload.Gateway,
	})

	return nil
}

func (s *ReconciliationService) publishFailed(ctx context.Context, orderID string, g models.Gateway, reason string) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishFailed(ctx, orderID, g, reason); err != nil {
		s.logger.Error("Failed to publish failed event", logging.Fields{
			"order_id": orderID,
			"error":    err.Error(),
		})
	}
}

func rawCallbackJSON(params url.Values) json.RawMessage {
	flat := make(map[string]string, len(params))
	for k := range params {
		flat[k] = params.Get(k)
	}
	data, err := json.Marshal(flat)
	if err != nil {
		return nil
	}
	return data
}

func notifyEmail(order *models.Order, snaps gateway.Snapshots) string {
	if order != nil && order.CustomerEmail != "" {
		return order.CustomerEmail
	}
	for _, intent := range []*models.PaymentIntent{snaps.Easebuzz, snaps.PhonePe, snaps.Zoho} {
		if intent != nil && intent.CustomerEmail != "" {
			return intent.CustomerEmail
		}
	}
	return ""
}

func firstNonEmptyStr(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
