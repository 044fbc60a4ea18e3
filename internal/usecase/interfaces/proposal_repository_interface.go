package interfaces

import (
	"context"
	"errors"
	"time"

	"agency_portal/internal/domain/entities"
)

//go:generate mockgen -source=proposal_repository_interface.go -destination=mocks/mock_proposal_repository.go -package=mock_interfaces

// ErrVersionConflict is returned by a repository when a commit's expected
// version no longer matches the stored row, or when a snapshot for the
// same proposal and version already exists.
var ErrVersionConflict = errors.New("version conflict")

// ProposalCommit is the unit of work of one lifecycle transition. A
// repository applies all of it or none of it.
//
// Proposal is written only if the stored version equals ExpectedVersion
// (0 means the row must not exist). Items, when non-nil, replace every
// stored line item of the proposal. Invoice is written only if its stored
// version equals ExpectedInvoiceVersion (0: must not exist). Snapshot is
// inserted and fails if the same proposal+version exists. Events are
// keyed by their natural dedup key.
type ProposalCommit struct {
	Proposal        entities.Proposal
	ExpectedVersion int64
	DeleteProposal  bool

	Items       *[]entities.LineItem
	BillingPlan *entities.BillingPlan

	Invoice                *entities.Invoice
	ExpectedInvoiceVersion int64

	Snapshot *entities.ClauseSnapshot

	ProposalEvents []entities.ProposalEvent
	InvoiceEvents  []entities.InvoiceEvent
}

// IProposalRepository is the persistence gateway for proposals and the
// rows that hang off them.
//
// Reads return the zero value (empty ID) when nothing is found.
type IProposalRepository interface {
	GetByID(ctx context.Context, id string) (entities.Proposal, error)
	ListItems(ctx context.Context, proposalID string) ([]entities.LineItem, error)
	GetBillingPlan(ctx context.Context, proposalID string) (entities.BillingPlan, error)
	ListSnapshots(ctx context.Context, proposalID string) ([]entities.ClauseSnapshot, error)
	ListEvents(ctx context.Context, proposalID string) ([]entities.ProposalEvent, error)
	ListAwaitingResponseExpiringBefore(ctx context.Context, before time.Time) ([]entities.Proposal, error)
	Commit(ctx context.Context, c ProposalCommit) error
}
