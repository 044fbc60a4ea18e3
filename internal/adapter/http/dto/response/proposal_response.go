package response

import (
	"time"

	"agency_portal/internal/domain/entities"
	"agency_portal/internal/usecase"
)

type LineItemResponse struct {
	ID          string  `json:"id"`
	ServiceType string  `json:"service_type"`
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	Quantity    int64   `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
	LineTotal   float64 `json:"line_total"`
	SortOrder   int     `json:"sort_order"`
}

type BillingPlanResponse struct {
	Type             string     `json:"type"`
	Currency         string     `json:"currency"`
	Total            float64    `json:"total"`
	DepositPercent   int        `json:"deposit_percent"`
	Deposit          float64    `json:"deposit"`
	PaymentTermsDays int        `json:"payment_terms_days"`
	StartDate        *time.Time `json:"start_date,omitempty"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

type ClauseSnapshotItemResponse struct {
	ClauseCode string `json:"clause_code"`
	Section    string `json:"section"`
	Title      string `json:"title"`
	Body       string `json:"body"`
	SortOrder  int    `json:"sort_order"`
}

type ClauseSnapshotResponse struct {
	Version     int                          `json:"version"`
	Status      string                       `json:"status"`
	ContentHash string                       `json:"content_hash"`
	Items       []ClauseSnapshotItemResponse `json:"items"`
	CreatedAt   time.Time                    `json:"created_at"`
}

// ProposalResponse carries money as decimals (value) and minor units
// (value_cents).
type ProposalResponse struct {
	ID              string     `json:"id"`
	ClientID        string     `json:"client_id"`
	ClientEmail     string     `json:"client_email,omitempty"`
	Title           string     `json:"title"`
	Description     string     `json:"description,omitempty"`
	Status          string     `json:"status"`
	Currency        string     `json:"currency"`
	Value           float64    `json:"value"`
	ValueCents      int64      `json:"value_cents"`
	InvoiceID       string     `json:"invoice_id"`
	CreatedBy       string     `json:"created_by"`
	ApprovedBy      string     `json:"approved_by,omitempty"`
	DeclineReason   string     `json:"decline_reason,omitempty"`
	ExpiresAt       *time.Time `json:"expires_at,omitempty"`
	SentAt          *time.Time `json:"sent_at,omitempty"`
	ApprovedAt      *time.Time `json:"approved_at,omitempty"`
	DeclinedAt      *time.Time `json:"declined_at,omitempty"`
	ArchivedAt      *time.Time `json:"archived_at,omitempty"`
	SnapshotVersion int        `json:"snapshot_version"`
	Version         int64      `json:"version"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`

	Items       []LineItemResponse       `json:"items"`
	BillingPlan *BillingPlanResponse     `json:"billing_plan,omitempty"`
	Invoice     *InvoiceResponse         `json:"invoice,omitempty"`
	Snapshots   []ClauseSnapshotResponse `json:"clause_snapshots,omitempty"`
}

func FromProposalDetails(d usecase.ProposalDetails) ProposalResponse {
	p := d.Proposal
	out := ProposalResponse{
		ID:              p.ID,
		ClientID:        p.ClientID,
		ClientEmail:     p.ClientEmail,
		Title:           p.Title,
		Description:     p.Description,
		Status:          string(p.Status),
		Currency:        p.Currency,
		Value:           entities.MajorUnits(p.Value),
		ValueCents:      p.Value,
		InvoiceID:       p.InvoiceID,
		CreatedBy:       p.CreatedBy,
		ApprovedBy:      p.ApprovedBy,
		DeclineReason:   p.DeclineReason,
		ExpiresAt:       p.ExpiresAt,
		SentAt:          p.SentAt,
		ApprovedAt:      p.ApprovedAt,
		DeclinedAt:      p.DeclinedAt,
		ArchivedAt:      p.ArchivedAt,
		SnapshotVersion: p.SnapshotVersion,
		Version:         p.Version,
		CreatedAt:       p.CreatedAt,
		UpdatedAt:       p.UpdatedAt,
		Items:           make([]LineItemResponse, 0, len(d.Items)),
	}
	for _, it := range d.Items {
		out.Items = append(out.Items, LineItemResponse{
			ID:          it.ID,
			ServiceType: string(it.ServiceType),
			Name:        it.Name,
			Description: it.Description,
			Quantity:    it.Quantity,
			UnitPrice:   entities.MajorUnits(it.UnitPrice),
			LineTotal:   entities.MajorUnits(it.LineTotal),
			SortOrder:   it.SortOrder,
		})
	}
	if d.BillingPlan != nil {
		bp := d.BillingPlan
		out.BillingPlan = &BillingPlanResponse{
			Type:             string(bp.Type),
			Currency:         bp.Currency,
			Total:            entities.MajorUnits(bp.Total),
			DepositPercent:   bp.DepositPercent,
			Deposit:          entities.MajorUnits(bp.Deposit),
			PaymentTermsDays: bp.PaymentTermsDays,
			StartDate:        bp.StartDate,
			UpdatedAt:        bp.UpdatedAt,
		}
	}
	if d.Invoice != nil {
		inv := FromInvoice(*d.Invoice)
		out.Invoice = &inv
	}
	for _, s := range d.Snapshots {
		snap := ClauseSnapshotResponse{
			Version:     s.Version,
			Status:      string(s.Status),
			ContentHash: s.ContentHash,
			CreatedAt:   s.CreatedAt,
			Items:       make([]ClauseSnapshotItemResponse, 0, len(s.Items)),
		}
		for _, it := range s.Items {
			snap.Items = append(snap.Items, ClauseSnapshotItemResponse(it))
		}
		out.Snapshots = append(out.Snapshots, snap)
	}
	return out
}

type EventResponse struct {
	Key       string         `json:"key"`
	Type      string         `json:"type"`
	ActorID   string         `json:"actor_id"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

func FromProposalEvents(evs []entities.ProposalEvent) []EventResponse {
	out := make([]EventResponse, 0, len(evs))
	for _, e := range evs {
		out = append(out, EventResponse{Key: e.Key, Type: string(e.Type), ActorID: e.ActorID, Metadata: e.Metadata, CreatedAt: e.CreatedAt})
	}
	return out
}

func FromInvoiceEvents(evs []entities.InvoiceEvent) []EventResponse {
	out := make([]EventResponse, 0, len(evs))
	for _, e := range evs {
		out = append(out, EventResponse{Key: e.Key, Type: string(e.Type), ActorID: e.ActorID, Metadata: e.Metadata, CreatedAt: e.CreatedAt})
	}
	return out
}
