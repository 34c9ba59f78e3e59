package gateway

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"
)

// NormalizedParams is a gateway-agnostic view of the callback query
// parameters, probing the common key names used across providers.
type NormalizedParams struct {
	Status        string
	OrderID       string
	TxnID         string
	Amount        string
	ProductInfo   string
	Firstname     string
	Email         string
	Phone         string
	BankRefNum    string
	BankCode      string
	CardType      string
	PaymentSource string
	PGType        string
	UPIVA         string
	EasepayID     string
	AddedOn       string
	Raw           url.Values
}

// ParseParams normalizes callback parameters across gateways.
func ParseParams(params url.Values) *NormalizedParams {
	get := params.Get

	return &NormalizedParams{
		Status:        firstNonEmpty(get("status"), get("code"), get("result")),
		OrderID:       firstNonEmpty(get("merchantOrderId"), get("merchantTransactionId"), get("orderId"), get("order_id"), get("txnid")),
		TxnID:         firstNonEmpty(get("transactionId"), get("txnId"), get("txnid"), get("paymentId")),
		Amount:        NormalizePaise(firstNonEmpty(get("amount"), get("total"))),
		ProductInfo:   firstNonEmpty(get("productinfo"), get("product")),
		Firstname:     firstNonEmpty(get("firstname"), get("name")),
		Email:         get("email"),
		Phone:         firstNonEmpty(get("phone"), get("mobile")),
		BankRefNum:    firstNonEmpty(get("bank_ref_num"), get("bankReference")),
		BankCode:      get("bankcode"),
		CardType:      get("card_type"),
		PaymentSource: get("payment_source"),
		PGType:        firstNonEmpty(get("PG_TYPE"), get("paymentMethod")),
		UPIVA:         firstNonEmpty(get("upi_va"), get("vpa")),
		EasepayID:     firstNonEmpty(get("easepayid"), get("gatewayPaymentId")),
		AddedOn:       firstNonEmpty(get("addedon"), get("createdAt")),
		Raw:           params,
	}
}

var digitsOnly = regexp.MustCompile(`^[0-9]+$`)

// NormalizePaise converts an integer paise amount to rupees for display.
// Heuristic: all-digit values above 100 are assumed to be paise.
func NormalizePaise(amount string) string {
	if amount == "" || !digitsOnly.MatchString(amount) || len(amount) < 3 {
		return amount
	}
	n, err := strconv.ParseFloat(amount, 64)
	if err != nil || n <= 100 {
		return amount
	}
	return strconv.FormatFloat(n/100, 'f', -1, 64)
}

var successIndicators = []string{"success", "captured", "completed", "ok", "payment_success"}

// StatusSuccess reports whether a free-form gateway status string looks
// like a settled payment.
func StatusSuccess(status string) bool {
	s := strings.ToLower(status)
	for _, ind := range successIndicators {
		if strings.Contains(s, ind) {
			return true
		}
	}
	return false
}
