package payments

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"agency_portal/internal/usecase/interfaces"

	"github.com/mercadopago/sdk-go/pkg/payment"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubCreator struct {
	got  payment.Request
	resp *payment.Response
	err  error
}

func (s *stubCreator) Create(_ context.Context, req payment.Request) (*payment.Response, error) {
	s.got = req
	return s.resp, s.err
}

func TestNewMercadoPagoGateway(t *testing.T) {
	t.Run("mock mode needs no token", func(t *testing.T) {
		g, err := NewMercadoPagoGateway("", true)
		require.NoError(t, err)
		assert.True(t, g.mockMode)
	})

	t.Run("missing token", func(t *testing.T) {
		_, err := NewMercadoPagoGateway("", false)
		assert.ErrorIs(t, err, ErrMissingMercadoPagoAccessToken)
	})
}

func TestCreatePayment_Mock(t *testing.T) {
	fixed := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	g := &MercadoPagoGateway{mockMode: true, now: func() time.Time { return fixed }}

	id, status, raw, err := g.CreatePayment(context.Background(), json.RawMessage(`{"transaction_amount":120.5,"description":"Invoice for proposal: Site"}`))
	require.NoError(t, err)
	assert.Equal(t, "approved", status)
	assert.NotEmpty(t, id)

	var body map[string]any
	require.NoError(t, json.Unmarshal(raw, &body))
	assert.Equal(t, 120.5, body["transaction_amount"])
	assert.Equal(t, "accredited", body["status_detail"])
}

func TestCreatePayment_Client(t *testing.T) {
	stub := &stubCreator{resp: &payment.Response{ID: 42, Status: "pending"}}
	g := &MercadoPagoGateway{client: stub, now: time.Now}

	id, status, _, err := g.CreatePayment(context.Background(), json.RawMessage(`{"transaction_amount":10,"payment_method_id":"pix"}`))
	require.NoError(t, err)
	assert.Equal(t, "42", id)
	assert.Equal(t, "pending", status)
	assert.Equal(t, 10.0, stub.got.TransactionAmount)
	assert.Equal(t, "pix", stub.got.PaymentMethodID)
}

func TestCreatePayment_Errors(t *testing.T) {
	var nilGateway *MercadoPagoGateway
	_, _, _, err := nilGateway.CreatePayment(context.Background(), nil)
	assert.ErrorIs(t, err, ErrMercadoPagoGatewayNotConfigured)

	g := &MercadoPagoGateway{client: &stubCreator{err: errors.New("unauthorized")}, now: time.Now}
	_, _, _, err = g.CreatePayment(context.Background(), json.RawMessage(`{}`))
	assert.Error(t, err)

	_, _, _, err = g.CreatePayment(context.Background(), json.RawMessage(`not-json`))
	assert.Error(t, err)
}

type recordingDoer struct {
	got *http.Request
}

func (d *recordingDoer) Do(req *http.Request) (*http.Response, error) {
	d.got = req
	return &http.Response{StatusCode: http.StatusOK}, nil
}

func TestIdempotentRequester(t *testing.T) {
	t.Run("context key replaces the sdk key", func(t *testing.T) {
		doer := &recordingDoer{}
		r := &idempotentRequester{next: doer}
		ctx := interfaces.WithIdempotencyKey(context.Background(), "invoice-i-1-v3")
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, "https://api.mercadopago.com/v1/payments", nil)
		require.NoError(t, err)
		req.Header.Set("X-Idempotency-Key", "random-from-sdk")

		_, err = r.Do(req)
		require.NoError(t, err)
		assert.Equal(t, "invoice-i-1-v3", doer.got.Header.Get("X-Idempotency-Key"))
	})

	t.Run("without a key the sdk header is kept", func(t *testing.T) {
		doer := &recordingDoer{}
		r := &idempotentRequester{next: doer}
		req, err := http.NewRequest(http.MethodPost, "https://api.mercadopago.com/v1/payments", nil)
		require.NoError(t, err)
		req.Header.Set("X-Idempotency-Key", "random-from-sdk")

		_, err = r.Do(req)
		require.NoError(t, err)
		assert.Equal(t, "random-from-sdk", doer.got.Header.Get("X-Idempotency-Key"))
	})
}
