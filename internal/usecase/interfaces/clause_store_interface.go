package interfaces

import (
	"context"

	"agency_portal/internal/domain/entities"
)

//go:generate mockgen -source=clause_store_interface.go -destination=mocks/mock_clause_store.go -package=mock_interfaces

// IClauseStore returns the active clauses for a set of codes, ordered by
// sort order then code. Unknown or inactive codes are skipped.
type IClauseStore interface {
	SelectActiveClausesByCode(ctx context.Context, codes []string) ([]entities.Clause, error)
}

// IClauseResolver maps service types to the clause codes a proposal carries.
type IClauseResolver interface {
	Resolve(services []entities.ServiceType) []string
}
