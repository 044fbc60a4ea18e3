package payments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"agency_portal/internal/usecase/interfaces"

	"github.com/mercadopago/sdk-go/pkg/config"
	"github.com/mercadopago/sdk-go/pkg/payment"
)

var (
	ErrMissingMercadoPagoAccessToken   = errors.New("missing MERCADOPAGO_ACCESS_TOKEN")
	ErrMercadoPagoGatewayNotConfigured = errors.New("mercado pago gateway not configured")
)

// paymentCreator is the part of payment.Client the gateway calls.
type paymentCreator interface {
	Create(ctx context.Context, request payment.Request) (*payment.Response, error)
}

// MercadoPagoGateway charges activated invoices through Mercado Pago. In
// mock mode every payment is approved locally without calling the API.
type MercadoPagoGateway struct {
	client   paymentCreator
	mockMode bool
	now      func() time.Time
}

var _ interfaces.IPaymentGateway = (*MercadoPagoGateway)(nil)

func NewMercadoPagoGateway(accessToken string, mockMode bool) (*MercadoPagoGateway, error) {
	if mockMode {
		log.Printf("[invoice][gateway] mock mode enabled")
		return &MercadoPagoGateway{mockMode: true, now: time.Now}, nil
	}

	if accessToken == "" {
		log.Printf("[invoice][gateway] missing MERCADOPAGO_ACCESS_TOKEN")
		return nil, ErrMissingMercadoPagoAccessToken
	}

	cfg, err := config.New(accessToken, config.WithHTTPClient(&idempotentRequester{next: http.DefaultClient}))
	if err != nil {
		log.Printf("[invoice][gateway] failed creating sdk config err=%v", err)
		return nil, err
	}
	log.Printf("[invoice][gateway] Mercado Pago client initialized")

	return &MercadoPagoGateway{client: payment.NewClient(cfg), now: time.Now}, nil
}

func (g *MercadoPagoGateway) CreatePayment(ctx context.Context, requestPayload json.RawMessage) (string, string, json.RawMessage, error) {
	if g != nil && g.mockMode {
		return g.mockPayment(requestPayload)
	}
	if g == nil || g.client == nil {
		log.Printf("[invoice][gateway] gateway not configured")
		return "", "", nil, ErrMercadoPagoGatewayNotConfigured
	}
	log.Printf("[invoice][gateway] create start payload_len=%d", len(requestPayload))

	var req payment.Request
	if err := json.Unmarshal(requestPayload, &req); err != nil {
		log.Printf("[invoice][gateway] payload unmarshal failed err=%v", err)
		return "", "", nil, err
	}

	resp, err := g.client.Create(ctx, req)
	if err != nil {
		log.Printf("[invoice][gateway] sdk create failed err=%v", err)
		return "", "", nil, err
	}

	b, err := json.Marshal(resp)
	if err != nil {
		return "", "", nil, err
	}
	log.Printf("[invoice][gateway] create success provider_payment_id=%d provider_status=%s", resp.ID, resp.Status)
	return fmt.Sprintf("%d", resp.ID), resp.Status, b, nil
}

// idempotentRequester replaces the SDK's random X-Idempotency-Key with the
// key carried by the request context, so Mercado Pago deduplicates a retried
// charge for the same invoice version.
type idempotentRequester struct {
	next interface {
		Do(req *http.Request) (*http.Response, error)
	}
}

func (r *idempotentRequester) Do(req *http.Request) (*http.Response, error) {
	if key, ok := interfaces.IdempotencyKey(req.Context()); ok && req.Method != http.MethodGet {
		req.Header.Set("X-Idempotency-Key", key)
	}
	return r.next.Do(req)
}

// mockPayment echoes the request back as an approved payment.
func (g *MercadoPagoGateway) mockPayment(requestPayload json.RawMessage) (string, string, json.RawMessage, error) {
	resp := map[string]any{}
	if len(requestPayload) > 0 && json.Valid(requestPayload) {
		if err := json.Unmarshal(requestPayload, &resp); err != nil {
			resp = map[string]any{"request_payload_raw": string(requestPayload)}
		}
	}

	now := g.now().UTC()
	id := strconv.FormatInt(now.UnixNano(), 10)
	resp["id"] = id
	resp["status"] = "approved"
	resp["status_detail"] = "accredited"
	if _, ok := resp["date_created"]; !ok {
		resp["date_created"] = now.Format(time.RFC3339Nano)
	}
	resp["date_approved"] = now.Format(time.RFC3339Nano)

	b, err := json.Marshal(resp)
	if err != nil {
		return "", "", nil, fmt.Errorf("mock response: %w", err)
	}
	log.Printf("[invoice][gateway] mock payment approved provider_payment_id=%s", id)
	return id, "approved", b, nil
}
