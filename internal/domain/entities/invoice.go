package entities

import "time"

type InvoiceStatus string

const (
	InvoiceStatusDraft   InvoiceStatus = "draft"
	InvoiceStatusReady   InvoiceStatus = "ready"
	InvoiceStatusPending InvoiceStatus = "pending"
	InvoiceStatusUnpaid  InvoiceStatus = "unpaid"
	InvoiceStatusPaid    InvoiceStatus = "paid"
	InvoiceStatusOverdue InvoiceStatus = "overdue"
	InvoiceStatusVoid    InvoiceStatus = "void"
)

// Final reports whether the invoice can no longer change status.
func (s InvoiceStatus) Final() bool {
	return s == InvoiceStatusPaid || s == InvoiceStatusVoid
}

const ActivationSourceProposalApproval = "proposal_approval"

// Invoice is the billing record linked to a proposal.
//
// AmountCents is the canonical amount in minor units, the same unit as
// Proposal.Value. Decimal amounts only exist in API responses.
//
// While LockedFromSend is true only the proposal lifecycle may change
// the invoice status.
type Invoice struct {
	ID               string            `json:"id"`
	ClientID         string            `json:"client_id"`
	ProposalID       string            `json:"proposal_id,omitempty"`
	AmountCents      int64             `json:"amount_cents"`
	Currency         string            `json:"currency"`
	Description      string            `json:"description"`
	Status           InvoiceStatus     `json:"status"`
	DueDate          *time.Time        `json:"due_date,omitempty"`
	LockedFromSend   bool              `json:"locked_from_send"`
	ActivationSource string            `json:"activation_source,omitempty"`
	Items            []InvoiceLineItem `json:"items,omitempty"`
	PaidAt           *time.Time        `json:"paid_at,omitempty"`
	Version          int64             `json:"version"`
	CreatedAt        time.Time         `json:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at"`
}

// InvoiceLineItem mirrors a proposal line item for display.
type InvoiceLineItem struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Quantity    int64  `json:"quantity"`
	UnitPrice   int64  `json:"unit_price"`
	LineTotal   int64  `json:"line_total"`
}

// MirrorLineItems copies proposal items into invoice display rows.
func MirrorLineItems(items []LineItem) []InvoiceLineItem {
	out := make([]InvoiceLineItem, 0, len(items))
	for _, it := range items {
		out = append(out, InvoiceLineItem{
			Name:        it.Name,
			Description: it.Description,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
			LineTotal:   it.LineTotal,
		})
	}
	return out
}
