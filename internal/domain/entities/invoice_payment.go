package entities

import (
	"encoding/json"
	"time"
)

// PaymentStatus represents the payment processing outcome.
type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "pending"
	PaymentStatusApproved PaymentStatus = "approved"
	PaymentStatusDenied   PaymentStatus = "denied"
)

// PaymentStatusFromProvider maps a Mercado Pago status to ours.
func PaymentStatusFromProvider(providerStatus string) PaymentStatus {
	switch providerStatus {
	case "approved", "authorized":
		return PaymentStatusApproved
	case "rejected", "cancelled", "refunded", "charged_back":
		return PaymentStatusDenied
	}
	return PaymentStatusPending
}

// InvoicePayment is a payment attempt against an activated invoice.
//
// Storage model (DynamoDB):
//   - PK: id
//   - GSI1 (invoice_id-index): invoice_id
//
// ProviderPayloadRaw keeps the provider response body for audit;
// ProviderPayload is the parsed form, useful for querying/debugging.
type InvoicePayment struct {
	ID          string        `json:"id"`
	InvoiceID   string        `json:"invoice_id"`
	Date        time.Time     `json:"date"`
	Status      PaymentStatus `json:"status"`
	AmountCents int64         `json:"amount_cents"`

	ProviderPayloadRaw json.RawMessage        `json:"provider_payload_raw,omitempty"`
	ProviderPayload    map[string]interface{} `json:"provider_payload,omitempty"`
}
