package gateway

import (
	"fmt"
	"net/url"
	"strconv"

	"github.com/google/uuid"
)

// Mock is the no-op gateway for local development and tests. CreatePayment
// skips the off-site hop entirely: the "payment URL" is our own callback
// pre-filled with a successful result.
type Mock struct {
	BaseURL string
}

func NewMock(baseURL string) *Mock {
	return &Mock{BaseURL: baseURL}
}

func (m *Mock) Name() string { return "mock" }

func (m *Mock) CreatePayment(req PaymentRequest) (*PaymentSession, error) {
	txn := "MOCK-" + uuid.NewString()
	q := url.Values{}
	q.Set("order_id", req.OrderID)
	q.Set("installment", strconv.Itoa(req.InstallmentSeq))
	q.Set("amount", fmt.Sprintf("%.2f", req.Amount))
	q.Set("transaction_id", txn)
	q.Set("status", "paid")

	return &PaymentSession{
		PaymentURL:     fmt.Sprintf("%s/api/payment/mock/callback?%s", m.BaseURL, q.Encode()),
		TransactionRef: txn,
	}, nil
}

func (m *Mock) VerifyCallback(params url.Values) CallbackResult {
	seq, _ := strconv.Atoi(params.Get("installment"))
	amount, _ := strconv.ParseFloat(params.Get("amount"), 64)
	return CallbackResult{
		Verified:       true,
		Success:        params.Get("status") == "paid",
		TransactionID:  params.Get("transaction_id"),
		Amount:         amount,
		OrderID:        params.Get("order_id"),
		InstallmentSeq: seq,
	}
}
