// Package clauses holds the legal clause catalog and resolves which
// clauses apply to a proposal.
package clauses

import (
	_ "embed"
	"fmt"
	"os"
	"sort"
	"strings"

	"agency_portal/internal/domain/entities"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalogYAML []byte

type catalogFile struct {
	Global   []string            `yaml:"global"`
	Services map[string][]string `yaml:"services"`
	Clauses  []entities.Clause   `yaml:"clauses"`
}

// Catalog is the immutable clause configuration. It is loaded once at
// start and shared by every request; accessors return copies.
type Catalog struct {
	global   []string
	services map[entities.ServiceType][]string
	clauses  map[string]entities.Clause
}

// DefaultCatalog parses the catalog embedded in the binary.
func DefaultCatalog() (*Catalog, error) {
	return ParseCatalog(defaultCatalogYAML)
}

// LoadCatalog reads a YAML catalog from path, or the embedded default
// when path is empty.
func LoadCatalog(path string) (*Catalog, error) {
	if strings.TrimSpace(path) == "" {
		return DefaultCatalog()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read clause catalog: %w", err)
	}
	return ParseCatalog(data)
}

func ParseCatalog(data []byte) (*Catalog, error) {
	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse clause catalog: %w", err)
	}

	c := &Catalog{
		services: make(map[entities.ServiceType][]string, len(f.Services)),
		clauses:  make(map[string]entities.Clause, len(f.Clauses)),
	}
	for _, cl := range f.Clauses {
		cl.Code = strings.TrimSpace(cl.Code)
		if cl.Code == "" {
			return nil, fmt.Errorf("clause catalog: clause without code")
		}
		if _, dup := c.clauses[cl.Code]; dup {
			return nil, fmt.Errorf("clause catalog: duplicate clause %s", cl.Code)
		}
		cl.Active = true
		c.clauses[cl.Code] = cl
	}

	global, err := c.checkCodes("global", f.Global)
	if err != nil {
		return nil, err
	}
	c.global = global
	for svc, codes := range f.Services {
		checked, err := c.checkCodes("services."+svc, codes)
		if err != nil {
			return nil, err
		}
		c.services[entities.NormalizeServiceType(svc)] = checked
	}
	return c, nil
}

func (c *Catalog) checkCodes(where string, codes []string) ([]string, error) {
	out := make([]string, 0, len(codes))
	for _, code := range codes {
		code = strings.TrimSpace(code)
		if _, ok := c.clauses[code]; !ok {
			return nil, fmt.Errorf("clause catalog: %s references undefined clause %q", where, code)
		}
		out = append(out, code)
	}
	return out, nil
}

func (c *Catalog) GlobalCodes() []string {
	return append([]string(nil), c.global...)
}

// ServiceCodes returns the clause codes of a service type; nil for
// unknown or custom services.
func (c *Catalog) ServiceCodes(svc entities.ServiceType) []string {
	codes, ok := c.services[svc]
	if !ok {
		return nil
	}
	return append([]string(nil), codes...)
}

func (c *Catalog) Clause(code string) (entities.Clause, bool) {
	cl, ok := c.clauses[code]
	return cl, ok
}

// Clauses returns every clause ordered by sort order, then code.
func (c *Catalog) Clauses() []entities.Clause {
	out := make([]entities.Clause, 0, len(c.clauses))
	for _, cl := range c.clauses {
		out = append(out, cl)
	}
	SortClauses(out)
	return out
}

// SortClauses orders clauses by sort order, then code.
func SortClauses(cs []entities.Clause) {
	sort.SliceStable(cs, func(i, j int) bool {
		if cs[i].SortOrder != cs[j].SortOrder {
			return cs[i].SortOrder < cs[j].SortOrder
		}
		return cs[i].Code < cs[j].Code
	})
}
