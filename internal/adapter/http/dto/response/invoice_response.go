package response

import (
	"time"

	"agency_portal/internal/domain/entities"
)

type InvoiceLineItemResponse struct {
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	Quantity    int64   `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
	LineTotal   float64 `json:"line_total"`
}

type InvoiceResponse struct {
	ID               string                    `json:"id"`
	ClientID         string                    `json:"client_id"`
	ProposalID       string                    `json:"proposal_id,omitempty"`
	Amount           float64                   `json:"amount"`
	AmountCents      int64                     `json:"amount_cents"`
	Currency         string                    `json:"currency"`
	Description      string                    `json:"description"`
	Status           string                    `json:"status"`
	DueDate          *time.Time                `json:"due_date,omitempty"`
	LockedFromSend   bool                      `json:"locked_from_send"`
	ActivationSource string                    `json:"activation_source,omitempty"`
	Items            []InvoiceLineItemResponse `json:"items,omitempty"`
	PaidAt           *time.Time                `json:"paid_at,omitempty"`
	Version          int64                     `json:"version"`
	CreatedAt        time.Time                 `json:"created_at"`
	UpdatedAt        time.Time                 `json:"updated_at"`
}

func FromInvoice(inv entities.Invoice) InvoiceResponse {
	out := InvoiceResponse{
		ID:               inv.ID,
		ClientID:         inv.ClientID,
		ProposalID:       inv.ProposalID,
		Amount:           entities.MajorUnits(inv.AmountCents),
		AmountCents:      inv.AmountCents,
		Currency:         inv.Currency,
		Description:      inv.Description,
		Status:           string(inv.Status),
		DueDate:          inv.DueDate,
		LockedFromSend:   inv.LockedFromSend,
		ActivationSource: inv.ActivationSource,
		PaidAt:           inv.PaidAt,
		Version:          inv.Version,
		CreatedAt:        inv.CreatedAt,
		UpdatedAt:        inv.UpdatedAt,
	}
	for _, it := range inv.Items {
		out.Items = append(out.Items, InvoiceLineItemResponse{
			Name:        it.Name,
			Description: it.Description,
			Quantity:    it.Quantity,
			UnitPrice:   entities.MajorUnits(it.UnitPrice),
			LineTotal:   entities.MajorUnits(it.LineTotal),
		})
	}
	return out
}

type InvoicePaymentResponse struct {
	PaymentID   string    `json:"payment_id"`
	InvoiceID   string    `json:"invoice_id"`
	PaymentDate time.Time `json:"payment_date"`
	Status      string    `json:"status"`
	Amount      float64   `json:"amount"`
	AmountCents int64     `json:"amount_cents"`

	ProviderPayloadRaw string                 `json:"provider_payload_raw,omitempty"`
	ProviderPayload    map[string]interface{} `json:"provider_payload,omitempty"`
}

func FromInvoicePayment(p entities.InvoicePayment) InvoicePaymentResponse {
	return InvoicePaymentResponse{
		PaymentID:          p.ID,
		InvoiceID:          p.InvoiceID,
		PaymentDate:        p.Date,
		Status:             string(p.Status),
		Amount:             entities.MajorUnits(p.AmountCents),
		AmountCents:        p.AmountCents,
		ProviderPayloadRaw: string(p.ProviderPayloadRaw),
		ProviderPayload:    p.ProviderPayload,
	}
}

func FromInvoicePayments(ps []entities.InvoicePayment) []InvoicePaymentResponse {
	out := make([]InvoicePaymentResponse, 0, len(ps))
	for _, p := range ps {
		out = append(out, FromInvoicePayment(p))
	}
	return out
}

// PayInvoiceResponse is returned by the pay endpoint: the payment row and
// the invoice as it stands after the charge.
type PayInvoiceResponse struct {
	Payment InvoicePaymentResponse `json:"payment"`
	Invoice InvoiceResponse        `json:"invoice"`
}
