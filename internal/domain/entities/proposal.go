package entities

import "time"

// ProposalStatus represents the lifecycle of a proposal.
//
// Allowed transitions:
//   - draft -> sent (send)
//   - sent -> viewed (client opened it)
//   - sent|viewed -> approved | declined | expired
//   - sent|viewed|approved|declined|expired -> draft (revise)
//   - any non-draft -> archived
type ProposalStatus string

const (
	ProposalStatusDraft    ProposalStatus = "draft"
	ProposalStatusSent     ProposalStatus = "sent"
	ProposalStatusViewed   ProposalStatus = "viewed"
	ProposalStatusApproved ProposalStatus = "approved"
	ProposalStatusDeclined ProposalStatus = "declined"
	ProposalStatusExpired  ProposalStatus = "expired"
	ProposalStatusArchived ProposalStatus = "archived"
)

func (s ProposalStatus) Valid() bool {
	switch s {
	case ProposalStatusDraft, ProposalStatusSent, ProposalStatusViewed, ProposalStatusApproved,
		ProposalStatusDeclined, ProposalStatusExpired, ProposalStatusArchived:
		return true
	}
	return false
}

// AwaitingResponse reports whether the client can still approve or decline.
func (s ProposalStatus) AwaitingResponse() bool {
	return s == ProposalStatusSent || s == ProposalStatusViewed
}

// Proposal is a priced offer of services sent to a client.
//
// Storage model (DynamoDB):
//   - PK: id
//   - GSI (status-expires_at-index): status, expires_at
//
// Monetary representation:
//   - Value is in minor units and always equals the sum of the line totals
//     at the last recomputation.
//
// Version is incremented on every committed write and guards every
// transition against concurrent edits.
type Proposal struct {
	ID            string         `json:"id"`
	ClientID      string         `json:"client_id"`
	ClientEmail   string         `json:"client_email"`
	Title         string         `json:"title"`
	Description   string         `json:"description"`
	Status        ProposalStatus `json:"status"`
	Currency      string         `json:"currency"`
	Value         int64          `json:"value"`
	InvoiceID     string         `json:"invoice_id"`
	CreatedBy     string         `json:"created_by"`
	ApprovedBy    string         `json:"approved_by,omitempty"`
	Signature     string         `json:"signature,omitempty"`
	DeclineReason string         `json:"decline_reason,omitempty"`

	ExpiresAt  *time.Time `json:"expires_at,omitempty"`
	SentAt     *time.Time `json:"sent_at,omitempty"`
	ApprovedAt *time.Time `json:"approved_at,omitempty"`
	DeclinedAt *time.Time `json:"declined_at,omitempty"`
	ArchivedAt *time.Time `json:"archived_at,omitempty"`

	SnapshotVersion int   `json:"snapshot_version"`
	Version         int64 `json:"version"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Expired reports whether the proposal is awaiting a response past its expiry.
func (p Proposal) Expired(now time.Time) bool {
	return p.Status.AwaitingResponse() && p.ExpiresAt != nil && !p.ExpiresAt.After(now)
}
