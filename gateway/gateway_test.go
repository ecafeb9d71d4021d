package gateway

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"installmart/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSafePay() *SafePay {
	return &SafePay{
		APIKey:      "sec_test_key",
		Secret:      "test_secret",
		CheckoutURL: "https://sandbox.api.getsafepay.com/checkout/pay",
		APIURL:      "https://sandbox.api.getsafepay.com",
		BaseURL:     "http://localhost:8000",
	}
}

// safepayAPIStub stands in for the SafePay tracker API, reporting the
// given state for every tracker lookup.
func safepayAPIStub(t *testing.T, state string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test_secret", r.Header.Get("X-SFPY-MERCHANT-SECRET"))
		fmt.Fprintf(w, `{"data":{"state":%q}}`, state)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testPayFast() *PayFast {
	return &PayFast{
		MerchantID:     "12345",
		SecuredKey:     "test_secured_key",
		TransactionURL: "https://ipguat.apps.net.pk/Ecommerce/api/Transaction/PostTransaction",
		BaseURL:        "http://localhost:8000",
	}
}

// callbackParams extracts the signed callback query SafePay would redirect
// the browser to after checkout.
func safepayCallbackParams(t *testing.T, session *PaymentSession) url.Values {
	t.Helper()
	checkout, err := url.Parse(session.PaymentURL)
	require.NoError(t, err)
	redirect, err := url.Parse(checkout.Query().Get("redirect_url"))
	require.NoError(t, err)
	return redirect.Query()
}

func TestSafePayRoundTrip(t *testing.T) {
	sp := testSafePay()
	sp.APIURL = safepayAPIStub(t, "TRACKER_ENDED").URL

	session, err := sp.CreatePayment(PaymentRequest{
		OrderID:        "652f8a7e9d1c2b0001a3f001",
		InstallmentSeq: 2,
		Amount:         2000,
	})
	require.NoError(t, err)
	require.NotEmpty(t, session.PaymentURL)
	require.NotEmpty(t, session.TransactionRef)

	params := safepayCallbackParams(t, session)
	params.Set("status", "paid")

	result := sp.VerifyCallback(params)
	assert.True(t, result.Verified)
	assert.True(t, result.Success)
	assert.Equal(t, "652f8a7e9d1c2b0001a3f001", result.OrderID)
	assert.Equal(t, 2, result.InstallmentSeq)
	assert.Equal(t, 2000.0, result.Amount)
	assert.Equal(t, session.TransactionRef, result.TransactionID)
}

func TestSafePayUnpaidTrackerNotHonored(t *testing.T) {
	sp := testSafePay()
	sp.APIURL = safepayAPIStub(t, "TRACKER_STARTED").URL

	session, err := sp.CreatePayment(PaymentRequest{OrderID: "abc", InstallmentSeq: 1, Amount: 500})
	require.NoError(t, err)

	// The payer holds the signed redirect URL before paying, so a
	// self-submitted paid status with a valid signature must still fail
	// against the tracker's real state.
	params := safepayCallbackParams(t, session)
	params.Set("status", "paid")

	result := sp.VerifyCallback(params)
	assert.True(t, result.Verified)
	assert.False(t, result.Success)
}

func TestSafePayTrackerLookupUnavailable(t *testing.T) {
	sp := testSafePay()
	srv := safepayAPIStub(t, "TRACKER_ENDED")
	sp.APIURL = srv.URL
	srv.Close()

	session, err := sp.CreatePayment(PaymentRequest{OrderID: "abc", InstallmentSeq: 1, Amount: 500})
	require.NoError(t, err)

	params := safepayCallbackParams(t, session)
	params.Set("status", "paid")

	// Without confirmation the payment stays unsettled.
	result := sp.VerifyCallback(params)
	assert.True(t, result.Verified)
	assert.False(t, result.Success)
}

func TestSafePayFailedPayment(t *testing.T) {
	sp := testSafePay()

	session, err := sp.CreatePayment(PaymentRequest{OrderID: "abc", InstallmentSeq: 1, Amount: 500})
	require.NoError(t, err)

	params := safepayCallbackParams(t, session)
	params.Set("status", "cancelled")

	result := sp.VerifyCallback(params)
	assert.True(t, result.Verified)
	assert.False(t, result.Success)
}

func TestSafePayTamperedCallback(t *testing.T) {
	sp := testSafePay()

	session, err := sp.CreatePayment(PaymentRequest{OrderID: "abc", InstallmentSeq: 1, Amount: 500})
	require.NoError(t, err)

	// A paid status alone must not be trusted: tampering with the amount
	// breaks the signature.
	params := safepayCallbackParams(t, session)
	params.Set("status", "paid")
	params.Set("amount", "1.00")

	result := sp.VerifyCallback(params)
	assert.False(t, result.Verified)
	assert.False(t, result.Success)
}

func TestSafePayMissingCredentials(t *testing.T) {
	sp := &SafePay{BaseURL: "http://localhost:8000"}
	_, err := sp.CreatePayment(PaymentRequest{OrderID: "abc", InstallmentSeq: 1, Amount: 500})
	assert.Error(t, err)
}

func TestPayFastRoundTrip(t *testing.T) {
	pf := testPayFast()

	session, err := pf.CreatePayment(PaymentRequest{
		OrderID:        "652f8a7e9d1c2b0001a3f002",
		InstallmentSeq: 3,
		Amount:         1666.67,
		CustomerEmail:  "buyer@example.com",
		CustomerPhone:  "03001234567",
	})
	require.NoError(t, err)
	require.NotEmpty(t, session.FormData["SECURED_HASH"])
	assert.Equal(t, "652f8a7e9d1c2b0001a3f002-3", session.FormData["BASKET_ID"])

	// Simulate the gateway's signed callback post.
	callback := map[string]string{
		"basket_id":          session.FormData["BASKET_ID"],
		"transaction_id":     "PF-98765",
		"transaction_amount": "1666.67",
		"err_code":           "000",
	}
	params := url.Values{}
	for k, v := range callback {
		params.Set(k, v)
	}
	params.Set("validation_hash", pf.securedHash(callback))

	result := pf.VerifyCallback(params)
	assert.True(t, result.Verified)
	assert.True(t, result.Success)
	assert.Equal(t, "652f8a7e9d1c2b0001a3f002", result.OrderID)
	assert.Equal(t, 3, result.InstallmentSeq)
	assert.Equal(t, "PF-98765", result.TransactionID)
	assert.InDelta(t, 1666.67, result.Amount, 0.001)
}

func TestPayFastTamperedHash(t *testing.T) {
	pf := testPayFast()

	callback := map[string]string{
		"basket_id":          "abc-1",
		"transaction_id":     "PF-1",
		"transaction_amount": "500.00",
		"err_code":           "000",
	}
	params := url.Values{}
	for k, v := range callback {
		params.Set(k, v)
	}
	params.Set("validation_hash", pf.securedHash(callback))

	// Raising the amount after signing must fail verification.
	params.Set("transaction_amount", "1.00")

	result := pf.VerifyCallback(params)
	assert.False(t, result.Verified)
	assert.False(t, result.Success)
}

func TestPayFastDeclined(t *testing.T) {
	pf := testPayFast()

	callback := map[string]string{
		"basket_id":          "abc-1",
		"transaction_id":     "PF-2",
		"transaction_amount": "500.00",
		"err_code":           "014",
	}
	params := url.Values{}
	for k, v := range callback {
		params.Set(k, v)
	}
	params.Set("validation_hash", pf.securedHash(callback))

	result := pf.VerifyCallback(params)
	assert.True(t, result.Verified)
	assert.False(t, result.Success)
}

func TestMockRoundTrip(t *testing.T) {
	m := NewMock("http://localhost:8000")

	session, err := m.CreatePayment(PaymentRequest{OrderID: "abc", InstallmentSeq: 1, Amount: 250})
	require.NoError(t, err)

	u, err := url.Parse(session.PaymentURL)
	require.NoError(t, err)

	result := m.VerifyCallback(u.Query())
	assert.True(t, result.Verified)
	assert.True(t, result.Success)
	assert.Equal(t, "abc", result.OrderID)
	assert.Equal(t, 1, result.InstallmentSeq)
	assert.Equal(t, 250.0, result.Amount)
	assert.Equal(t, session.TransactionRef, result.TransactionID)
}

func TestRegistryMapping(t *testing.T) {
	r := NewRegistry("http://localhost:8000")

	gw, err := r.ForMethod(models.MethodJazzCash)
	require.NoError(t, err)
	assert.Equal(t, "safepay", gw.Name())

	gw, err = r.ForMethod(models.MethodEasyPaisa)
	require.NoError(t, err)
	assert.Equal(t, "safepay", gw.Name())

	gw, err = r.ForMethod(models.MethodPayFast)
	require.NoError(t, err)
	assert.Equal(t, "payfast", gw.Name())

	gw, err = r.ForMethod(models.MethodMock)
	require.NoError(t, err)
	assert.Equal(t, "mock", gw.Name())

	_, err = r.ForMethod(models.MethodBank)
	assert.ErrorIs(t, err, ErrManualMethod)

	_, err = r.ForMethod("paypal")
	assert.ErrorIs(t, err, ErrUnknownMethod)
}

func TestRegistryByName(t *testing.T) {
	r := NewRegistry("http://localhost:8000")

	for _, name := range []string{"safepay", "payfast", "mock"} {
		gw, err := r.ByName(name)
		require.NoError(t, err)
		assert.Equal(t, name, gw.Name())
	}

	_, err := r.ByName("jazzcash")
	assert.ErrorIs(t, err, ErrUnknownMethod)
}
