package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/omaguva-store/payments-service/internal/logging"
)

// AuditRequest is a date-ranged batch status query against PhonePe's
// audit API. Dates are YYYY-MM-DD. MerchantOrderID narrows the query to
// a single order when set.
type AuditRequest struct {
	FromDate        string `json:"fromDate"`
	ToDate          string `json:"toDate"`
	MerchantOrderID string `json:"merchantOrderId,omitempty"`
}

// AuditTransaction is one transaction row in an audit response.
type AuditTransaction struct {
	MerchantOrderID string `json:"merchantOrderId"`
	TransactionID   string `json:"transactionId"`
	State           string `json:"state"`
	Amount          int64  `json:"amount"`
}

// AuditResult is the audit API response used for reconciliation sweeps.
type AuditResult struct {
	TotalTransactions int                `json:"totalTransactions"`
	Transactions      []AuditTransaction `json:"transactions"`
}

// AuditStatus runs a batch status check over a date range.
func (c *HTTPPhonePeClient) AuditStatus(ctx context.Context, req AuditRequest) (*AuditResult, error) {
	c.logger.Debug("Running PhonePe audit check", logging.Fields{
		"from_date":         req.FromDate,
		"to_date":           req.ToDate,
		"merchant_order_id": req.MerchantOrderID,
	})

	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/audit", c.baseURL)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	c.setHeaders(ctx, httpReq)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.logger.Error("PhonePe audit call failed", logging.Fields{
			"from_date": req.FromDate,
			"to_date":   req.ToDate,
			"error":     err.Error(),
		})
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("phonepe audit returned status %d", resp.StatusCode)
	}

	var result AuditResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, err
	}

	c.logger.Info("PhonePe audit completed", logging.Fields{
		"total_transactions": result.TotalTransactions,
	})

	return &result, nil
}
