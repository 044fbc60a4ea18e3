package clauses

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"agency_portal/internal/domain/entities"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func codeRange(prefix string, n int) []string {
	out := make([]string, 0, n)
	for i := 1; i <= n; i++ {
		out = append(out, fmt.Sprintf("%s%02d", prefix, i))
	}
	return out
}

func defaultResolver(t *testing.T) *Resolver {
	t.Helper()
	c, err := DefaultCatalog()
	require.NoError(t, err)
	return NewResolver(c)
}

func TestResolve_WebsiteAndSEO(t *testing.T) {
	r := defaultResolver(t)

	got := r.Resolve([]entities.ServiceType{entities.ServiceTypeWebsite, entities.ServiceTypeSEO})

	want := append(codeRange("G", 15), codeRange("W", 9)...)
	want = append(want, codeRange("S", 7)...)
	assert.Equal(t, want, got)
}

func TestResolve_Deterministic(t *testing.T) {
	r := defaultResolver(t)
	services := []entities.ServiceType{entities.ServiceTypeSEO, entities.ServiceTypeBranding, entities.ServiceTypeSEO}

	first := r.Resolve(services)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, r.Resolve(services))
	}
	assert.Equal(t, "G01", first[0])
	assert.Equal(t, "S01", first[15])
}

func TestResolve_Dedupes(t *testing.T) {
	r := defaultResolver(t)

	got := r.Resolve([]entities.ServiceType{entities.ServiceTypeMaintenance})

	seen := map[string]int{}
	for _, c := range got {
		seen[c]++
	}
	assert.Equal(t, 1, seen["G12"])
	assert.Len(t, got, 15+4)
}

func TestResolve_UnknownServiceYieldsGlobalOnly(t *testing.T) {
	r := defaultResolver(t)

	got := r.Resolve([]entities.ServiceType{"drone_footage"})

	assert.Equal(t, codeRange("G", 15), got)
}

func TestResolve_CustomCatalog(t *testing.T) {
	c, err := ParseCatalog([]byte(`
global: [A]
services:
  website: [B, A]
clauses:
  - {code: A, section: s, title: a, body: a, sort_order: 2}
  - {code: B, section: s, title: b, body: b, sort_order: 1}
`))
	require.NoError(t, err)

	assert.Equal(t, []string{"A", "B"}, NewResolver(c).Resolve([]entities.ServiceType{entities.ServiceTypeWebsite}))
}

func TestParseCatalog_Errors(t *testing.T) {
	_, err := ParseCatalog([]byte(`global: [X]`))
	assert.ErrorContains(t, err, "undefined clause")

	_, err = ParseCatalog([]byte(`
clauses:
  - {code: A}
  - {code: A}
`))
	assert.ErrorContains(t, err, "duplicate clause")

	_, err = ParseCatalog([]byte(`global: [`))
	assert.Error(t, err)
}

func TestLoadCatalog(t *testing.T) {
	c, err := LoadCatalog("")
	require.NoError(t, err)
	assert.Len(t, c.GlobalCodes(), 15)

	path := filepath.Join(t.TempDir(), "clauses.yaml")
	require.NoError(t, os.WriteFile(path, []byte("global: [A]\nclauses:\n  - {code: A, title: a}\n"), 0o600))
	c, err = LoadCatalog(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"A"}, c.GlobalCodes())

	_, err = LoadCatalog(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestCatalog_AccessorsReturnCopies(t *testing.T) {
	c, err := DefaultCatalog()
	require.NoError(t, err)

	g := c.GlobalCodes()
	g[0] = "tampered"
	assert.Equal(t, "G01", c.GlobalCodes()[0])

	w := c.ServiceCodes(entities.ServiceTypeWebsite)
	w[0] = "tampered"
	assert.Equal(t, "W01", c.ServiceCodes(entities.ServiceTypeWebsite)[0])
	assert.Nil(t, c.ServiceCodes("unknown"))
}

func TestServiceTypes(t *testing.T) {
	items := []entities.LineItem{
		{ServiceType: entities.ServiceTypeSEO, SortOrder: 2},
		{ServiceType: entities.ServiceTypeWebsite, SortOrder: 1},
		{ServiceType: entities.ServiceTypeSEO, SortOrder: 3},
	}
	assert.Equal(t, []entities.ServiceType{entities.ServiceTypeWebsite, entities.ServiceTypeSEO}, ServiceTypes(items))
}

func TestContentHash(t *testing.T) {
	a := ContentHash([]string{"W01", "G01", "S01"})
	b := ContentHash([]string{"S01", "W01", "G01"})
	assert.Equal(t, a, b)
	assert.Len(t, a, 64)
	assert.NotEqual(t, a, ContentHash([]string{"G01"}))
}

func TestCatalogStore_SelectActiveClausesByCode(t *testing.T) {
	c, err := DefaultCatalog()
	require.NoError(t, err)
	store := NewCatalogStore(c)

	got, err := store.SelectActiveClausesByCode(context.Background(), []string{"S01", "G02", "ZZZ", "G01", "G02"})
	require.NoError(t, err)

	codes := make([]string, 0, len(got))
	for _, cl := range got {
		codes = append(codes, cl.Code)
		assert.NotEmpty(t, cl.Body)
	}
	assert.Equal(t, []string{"G01", "G02", "S01"}, codes)
}
