package request

import (
	"strings"
	"time"

	"agency_portal/internal/domain/entities"
	"agency_portal/internal/usecase"
)

type CreateProposalRequest struct {
	ClientID    string `json:"client_id" binding:"required"`
	ClientEmail string `json:"client_email" binding:"omitempty,email"`
	Title       string `json:"title" binding:"required"`
	Description string `json:"description"`
	Currency    string `json:"currency"`
}

func (r CreateProposalRequest) ToInput(actorID string) usecase.CreateProposalInput {
	return usecase.CreateProposalInput{
		ClientID:    strings.TrimSpace(r.ClientID),
		ClientEmail: strings.TrimSpace(r.ClientEmail),
		Title:       strings.TrimSpace(r.Title),
		Description: r.Description,
		Currency:    r.Currency,
		ActorID:     actorID,
	}
}

// LineItemRequest prices are in minor units (cents).
type LineItemRequest struct {
	ServiceType string `json:"service_type" binding:"required"`
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
	Quantity    int64  `json:"quantity" binding:"required,gt=0"`
	UnitPrice   int64  `json:"unit_price" binding:"gte=0"`
}

type LineItemsRequest struct {
	Items []LineItemRequest `json:"items" binding:"required,min=1,dive"`
}

func (r LineItemsRequest) ToInput() []usecase.LineItemInput {
	out := make([]usecase.LineItemInput, 0, len(r.Items))
	for _, it := range r.Items {
		out = append(out, usecase.LineItemInput{
			ServiceType: it.ServiceType,
			Name:        it.Name,
			Description: it.Description,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
		})
	}
	return out
}

type BillingPlanRequest struct {
	Type             string     `json:"type" binding:"required"`
	DepositPercent   int        `json:"deposit_percent" binding:"gte=0,lte=100"`
	PaymentTermsDays int        `json:"payment_terms_days" binding:"gte=0"`
	StartDate        *time.Time `json:"start_date"`
}

func (r BillingPlanRequest) ToInput() usecase.BillingPlanInput {
	return usecase.BillingPlanInput{
		Type:             entities.BillingPlanType(strings.ToLower(strings.TrimSpace(r.Type))),
		DepositPercent:   r.DepositPercent,
		PaymentTermsDays: r.PaymentTermsDays,
		StartDate:        r.StartDate,
	}
}

type ApproveProposalRequest struct {
	Signature string `json:"signature" binding:"required"`
}

type DeclineProposalRequest struct {
	Reason string `json:"reason"`
}
