package gateway

import (
	"errors"
	"net/url"

	"installmart/models"
)

var (
	// ErrManualMethod is returned for payment methods settled by manual
	// bank transfer rather than a hosted gateway.
	ErrManualMethod  = errors.New("payment method is settled manually")
	ErrUnknownMethod = errors.New("unknown payment method")
)

// PaymentRequest describes one installment to collect.
type PaymentRequest struct {
	OrderID        string
	InstallmentSeq int
	Amount         float64
	Description    string
	CustomerEmail  string
	CustomerPhone  string
}

// PaymentSession is what the client needs to hand the user off to the
// gateway: a redirect URL, optional form fields for POST-based gateways,
// and our reference for the transaction.
type PaymentSession struct {
	PaymentURL     string            `json:"payment_url"`
	FormData       map[string]string `json:"form_data,omitempty"`
	TransactionRef string            `json:"transaction_ref"`
}

// CallbackResult is the normalized outcome of a gateway callback. Verified
// reports whether the callback is authentic; Success whether the payment
// went through. Nothing may be mutated off an unverified callback.
type CallbackResult struct {
	Verified       bool
	Success        bool
	TransactionID  string
	Amount         float64
	OrderID        string
	InstallmentSeq int
}

// Gateway is the single contract all payment adapters implement.
type Gateway interface {
	Name() string
	CreatePayment(req PaymentRequest) (*PaymentSession, error)
	VerifyCallback(params url.Values) CallbackResult
}

// Registry resolves the order's payment method to its adapter. The mapping
// is the one authoritative place method strings are interpreted.
type Registry struct {
	safepay *SafePay
	payfast *PayFast
	mock    *Mock
}

// NewRegistry builds all adapters from the environment. baseURL is this
// server's externally reachable address, used for callback URLs.
func NewRegistry(baseURL string) *Registry {
	return &Registry{
		safepay: NewSafePay(baseURL),
		payfast: NewPayFast(baseURL),
		mock:    NewMock(baseURL),
	}
}

// ForMethod maps a checkout payment method to its gateway. JazzCash and
// EasyPaisa both ride the SafePay hosted checkout; bank transfers have no
// gateway and are reviewed by an admin.
func (r *Registry) ForMethod(method string) (Gateway, error) {
	switch method {
	case models.MethodJazzCash, models.MethodEasyPaisa:
		return r.safepay, nil
	case models.MethodPayFast:
		return r.payfast, nil
	case models.MethodMock:
		return r.mock, nil
	case models.MethodBank:
		return nil, ErrManualMethod
	default:
		return nil, ErrUnknownMethod
	}
}

// ByName returns the adapter registered under name, for callback routing.
func (r *Registry) ByName(name string) (Gateway, error) {
	switch name {
	case r.safepay.Name():
		return r.safepay, nil
	case r.payfast.Name():
		return r.payfast, nil
	case r.mock.Name():
		return r.mock, nil
	default:
		return nil, ErrUnknownMethod
	}
}
