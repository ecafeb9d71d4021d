package gateway

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"
)

// PayFast posts a signed form to the GoPayFast transaction page. Every
// outgoing form and incoming callback carries a SECURED_HASH: an
// HMAC-SHA256 over the sorted key=value pairs keyed by the merchant
// secret.
type PayFast struct {
	MerchantID     string
	SecuredKey     string
	TransactionURL string
	BaseURL        string
}

// NewPayFast builds the adapter from PAYFAST_* environment variables.
func NewPayFast(baseURL string) *PayFast {
	txnURL := os.Getenv("PAYFAST_TRANSACTION_URL")
	if txnURL == "" {
		txnURL = "https://ipguat.apps.net.pk/Ecommerce/api/Transaction/PostTransaction"
	}
	return &PayFast{
		MerchantID:     os.Getenv("PAYFAST_MERCHANT_ID"),
		SecuredKey:     os.Getenv("PAYFAST_SECURED_KEY"),
		TransactionURL: txnURL,
		BaseURL:        baseURL,
	}
}

func (p *PayFast) Name() string { return "payfast" }

// securedHash computes the HMAC over the sorted key=value pairs, skipping
// the hash field itself.
func (p *PayFast) securedHash(fields map[string]string) string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		if k == "SECURED_HASH" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+fields[k])
	}

	mac := hmac.New(sha256.New, []byte(p.SecuredKey))
	mac.Write([]byte(strings.Join(pairs, "&")))
	return hex.EncodeToString(mac.Sum(nil))
}

// basketID encodes the order and installment so the callback can find them.
func basketID(orderID string, seq int) string {
	return fmt.Sprintf("%s-%d", orderID, seq)
}

func parseBasketID(basket string) (orderID string, seq int) {
	idx := strings.LastIndex(basket, "-")
	if idx < 0 {
		return basket, 0
	}
	seq, _ = strconv.Atoi(basket[idx+1:])
	return basket[:idx], seq
}

// CreatePayment builds the signed form payload for the hosted transaction
// page.
func (p *PayFast) CreatePayment(req PaymentRequest) (*PaymentSession, error) {
	if p.MerchantID == "" || p.SecuredKey == "" {
		return nil, fmt.Errorf("payfast credentials not configured")
	}

	basket := basketID(req.OrderID, req.InstallmentSeq)
	fields := map[string]string{
		"MERCHANT_ID":            p.MerchantID,
		"BASKET_ID":              basket,
		"TXNAMT":                 fmt.Sprintf("%.2f", req.Amount),
		"CURRENCY_CODE":          "PKR",
		"ORDER_DATE":             time.Now().Format("2006-01-02"),
		"TXNDESC":                req.Description,
		"CUSTOMER_EMAIL_ADDRESS": req.CustomerEmail,
		"CUSTOMER_MOBILE_NO":     req.CustomerPhone,
		"SUCCESS_URL":            fmt.Sprintf("%s/api/payment/payfast/callback", p.BaseURL),
		"FAILURE_URL":            fmt.Sprintf("%s/api/payment/payfast/callback", p.BaseURL),
	}
	fields["SECURED_HASH"] = p.securedHash(fields)

	return &PaymentSession{
		PaymentURL:     p.TransactionURL,
		FormData:       fields,
		TransactionRef: basket,
	}, nil
}

// VerifyCallback recomputes the secured hash over the posted fields and
// rejects the callback on any mismatch. err_code "000" means the payment
// succeeded.
func (p *PayFast) VerifyCallback(params url.Values) CallbackResult {
	orderID, seq := parseBasketID(params.Get("basket_id"))
	amount, _ := strconv.ParseFloat(params.Get("transaction_amount"), 64)
	res := CallbackResult{
		OrderID:        orderID,
		InstallmentSeq: seq,
		Amount:         amount,
		TransactionID:  params.Get("transaction_id"),
	}

	fields := make(map[string]string, len(params))
	for k := range params {
		if k == "validation_hash" {
			continue
		}
		fields[k] = params.Get(k)
	}
	expected := p.securedHash(fields)
	if !hmac.Equal([]byte(expected), []byte(params.Get("validation_hash"))) {
		return res
	}

	res.Verified = true
	res.Success = params.Get("err_code") == "000"
	return res
}
