package clauses

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"

	"agency_portal/internal/domain/entities"
)

// Resolver computes the clause codes a proposal must carry.
type Resolver struct {
	catalog *Catalog
}

func NewResolver(catalog *Catalog) *Resolver {
	return &Resolver{catalog: catalog}
}

// Resolve returns the global codes followed by each service's codes in
// the given order, keeping the first occurrence of every code. Unknown
// services contribute nothing.
func (r *Resolver) Resolve(services []entities.ServiceType) []string {
	seen := make(map[string]struct{})
	var out []string
	add := func(codes []string) {
		for _, code := range codes {
			if _, ok := seen[code]; ok {
				continue
			}
			seen[code] = struct{}{}
			out = append(out, code)
		}
	}

	add(r.catalog.GlobalCodes())
	for _, svc := range services {
		add(r.catalog.ServiceCodes(svc))
	}
	return out
}

// ServiceTypes returns the distinct service types of items in sort order.
func ServiceTypes(items []entities.LineItem) []entities.ServiceType {
	ordered := append([]entities.LineItem(nil), items...)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].SortOrder < ordered[j].SortOrder })

	seen := make(map[entities.ServiceType]struct{})
	var out []entities.ServiceType
	for _, it := range ordered {
		if _, ok := seen[it.ServiceType]; ok {
			continue
		}
		seen[it.ServiceType] = struct{}{}
		out = append(out, it.ServiceType)
	}
	return out
}

// ContentHash is the SHA-256 of the sorted codes joined by commas.
func ContentHash(codes []string) string {
	sorted := append([]string(nil), codes...)
	sort.Strings(sorted)
	sum := sha256.Sum256([]byte(strings.Join(sorted, ",")))
	return hex.EncodeToString(sum[:])
}

// CatalogStore serves clause bodies straight from the catalog.
type CatalogStore struct {
	catalog *Catalog
}

func NewCatalogStore(catalog *Catalog) *CatalogStore {
	return &CatalogStore{catalog: catalog}
}

func (s *CatalogStore) SelectActiveClausesByCode(_ context.Context, codes []string) ([]entities.Clause, error) {
	out := make([]entities.Clause, 0, len(codes))
	seen := make(map[string]struct{}, len(codes))
	for _, code := range codes {
		if _, dup := seen[code]; dup {
			continue
		}
		seen[code] = struct{}{}
		if cl, ok := s.catalog.Clause(code); ok && cl.Active {
			out = append(out, cl)
		}
	}
	SortClauses(out)
	return out, nil
}
