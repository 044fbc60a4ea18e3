package interfaces

import (
	"context"
	"encoding/json"
)

//go:generate mockgen -source=payment_gateway_interface.go -destination=mocks/mock_payment_gateway.go -package=mock_interfaces

// IPaymentGateway charges an activated invoice with an external provider
// (Mercado Pago) and hands back the provider's id, status and raw response
// so the invoice use case can persist them.
//
// Implementations honor the idempotency key carried by ctx, if any, so a
// retried charge for the same invoice version is not billed twice.
type IPaymentGateway interface {
	CreatePayment(ctx context.Context, requestPayload json.RawMessage) (providerPaymentID string, providerStatus string, providerResponse json.RawMessage, err error)
}

type idempotencyKeyCtx struct{}

// WithIdempotencyKey attaches the key a payment gateway sends with the charge.
func WithIdempotencyKey(ctx context.Context, key string) context.Context {
	return context.WithValue(ctx, idempotencyKeyCtx{}, key)
}

// IdempotencyKey returns the key set by WithIdempotencyKey.
func IdempotencyKey(ctx context.Context) (string, bool) {
	key, ok := ctx.Value(idempotencyKeyCtx{}).(string)
	return key, ok && key != ""
}
