package gateway

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// trackerPaid is the tracker state the SafePay API reports once the
// payment has actually been captured.
const trackerPaid = "TRACKER_ENDED"

// SafePay drives the hosted checkout used for JazzCash and EasyPaisa
// payments. The redirect URL we register with the checkout carries an HMAC
// signature over the payment parameters, so the GET callback can be
// authenticated without trusting the status query parameter on its own.
// Because the payer holds that signed URL before paying, a paid outcome is
// additionally confirmed against the SafePay API before it is honored.
type SafePay struct {
	APIKey      string
	Secret      string
	CheckoutURL string
	APIURL      string
	BaseURL     string
	HTTPClient  *http.Client
}

// NewSafePay builds the adapter from SAFEPAY_* environment variables.
func NewSafePay(baseURL string) *SafePay {
	checkout := os.Getenv("SAFEPAY_CHECKOUT_URL")
	if checkout == "" {
		checkout = "https://sandbox.api.getsafepay.com/checkout/pay"
	}
	apiURL := os.Getenv("SAFEPAY_API_URL")
	if apiURL == "" {
		apiURL = "https://sandbox.api.getsafepay.com"
	}
	return &SafePay{
		APIKey:      os.Getenv("SAFEPAY_API_KEY"),
		Secret:      os.Getenv("SAFEPAY_SECRET"),
		CheckoutURL: checkout,
		APIURL:      apiURL,
		BaseURL:     baseURL,
		HTTPClient:  &http.Client{Timeout: 15 * time.Second},
	}
}

func (s *SafePay) Name() string { return "safepay" }

func (s *SafePay) sign(orderID string, seq int, amount float64, tracker string) string {
	mac := hmac.New(sha256.New, []byte(s.Secret))
	fmt.Fprintf(mac, "%s:%d:%.2f:%s", orderID, seq, amount, tracker)
	return hex.EncodeToString(mac.Sum(nil))
}

// CreatePayment mints a tracker token and builds the hosted checkout URL
// with all payment methods enabled and a signed redirect back to us.
func (s *SafePay) CreatePayment(req PaymentRequest) (*PaymentSession, error) {
	if s.APIKey == "" || s.Secret == "" {
		return nil, fmt.Errorf("safepay credentials not configured")
	}

	tracker := uuid.NewString()

	cb := url.Values{}
	cb.Set("order_id", req.OrderID)
	cb.Set("installment", strconv.Itoa(req.InstallmentSeq))
	cb.Set("amount", fmt.Sprintf("%.2f", req.Amount))
	cb.Set("tracker", tracker)
	cb.Set("sig", s.sign(req.OrderID, req.InstallmentSeq, req.Amount, tracker))
	redirect := fmt.Sprintf("%s/api/payment/safepay/callback?%s", s.BaseURL, cb.Encode())

	q := url.Values{}
	q.Set("env", "sandbox")
	q.Set("beacon", tracker)
	q.Set("client", s.APIKey)
	q.Set("amount", fmt.Sprintf("%.2f", req.Amount))
	q.Set("currency", "PKR")
	q.Set("order_id", req.OrderID)
	q.Set("source", "hosted")
	q.Set("redirect_url", redirect)
	q.Set("cancel_url", fmt.Sprintf("%s/api/payment/safepay/cancel", s.BaseURL))

	return &PaymentSession{
		PaymentURL:     fmt.Sprintf("%s?%s", s.CheckoutURL, q.Encode()),
		TransactionRef: tracker,
	}, nil
}

// trackerState fetches the checkout tracker's current state from the
// SafePay API.
func (s *SafePay) trackerState(tracker string) (string, error) {
	req, err := http.NewRequest(http.MethodGet, fmt.Sprintf("%s/order/v1/%s", s.APIURL, url.PathEscape(tracker)), nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("X-SFPY-MERCHANT-SECRET", s.Secret)

	client := s.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("safepay tracker lookup returned status %d", resp.StatusCode)
	}

	var body struct {
		Data struct {
			State string `json:"state"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", err
	}
	return body.Data.State, nil
}

// VerifyCallback authenticates the GET redirect by recomputing the
// signature embedded in the redirect URL at session-creation time. The
// signature only proves the parameters are the ones we minted; the payer
// held the signed URL before paying, so a paid status is honored only
// after the SafePay API confirms the tracker was actually captured.
func (s *SafePay) VerifyCallback(params url.Values) CallbackResult {
	seq, _ := strconv.Atoi(params.Get("installment"))
	amount, _ := strconv.ParseFloat(params.Get("amount"), 64)
	res := CallbackResult{
		OrderID:        params.Get("order_id"),
		InstallmentSeq: seq,
		Amount:         amount,
		TransactionID:  params.Get("tracker"),
	}

	expected := s.sign(res.OrderID, seq, amount, params.Get("tracker"))
	if !hmac.Equal([]byte(expected), []byte(params.Get("sig"))) {
		return res
	}

	res.Verified = true
	if params.Get("status") != "paid" {
		return res
	}

	state, err := s.trackerState(params.Get("tracker"))
	if err != nil {
		// Treated as unpaid; the order stays pending and the gateway's
		// retry or the next initialize attempt settles it.
		log.Printf("safepay tracker %s lookup failed: %v", params.Get("tracker"), err)
		return res
	}
	res.Success = state == trackerPaid
	return res
}
