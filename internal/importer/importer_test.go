package importer

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/ethansammiq/deal-desk-sub004/internal/model"
	"github.com/ethansammiq/deal-desk-sub004/internal/store"
)

func newTestStore(t *testing.T) store.Store {
	t.Helper()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "deals.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	require.NoError(t, st.Migrate(t.Context()))
	return st
}

func createTestXLSX(t *testing.T, rows [][]string) string {
	t.Helper()
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("Deals")
	require.NoError(t, err)
	for _, rowData := range rows {
		row := sheet.AddRow()
		for _, cellData := range rowData {
			row.AddCell().SetString(cellData)
		}
	}
	path := filepath.Join(t.TempDir(), "deals.xlsx")
	require.NoError(t, f.Save(path))
	return path
}

var importHeader = []string{
	"name", "client_name", "deal_type", "sales_channel",
	"annual_revenue", "contract_term_months", "discount_percent", "has_non_standard_terms",
}

func TestImport_Basic(t *testing.T) {
	st := newTestStore(t)
	path := createTestXLSX(t, [][]string{
		importHeader,
		{"Acme renewal", "Acme Corp", "grow", "client_direct", "$1,500,000", "12", "5", "no"},
		{"Globex upsell", "Globex", "protect", "partner", "300000", "24", "10", "yes"},
	})

	im := New(st, "importer-user", 2)
	result, err := im.Import(t.Context(), path)
	require.NoError(t, err)

	assert.Equal(t, 2, result.Total)
	assert.Equal(t, 2, result.Imported)
	assert.Equal(t, 0, result.Skipped)
	assert.Empty(t, result.Errors)

	deals, err := st.ListDeals(t.Context(), store.DealFilter{})
	require.NoError(t, err)
	require.Len(t, deals, 2)

	byName := make(map[string]model.Deal)
	for _, d := range deals {
		byName[d.Name] = d
	}
	acme := byName["Acme renewal"]
	assert.Equal(t, "importer-user", acme.OwnerID)
	assert.Equal(t, model.DealStatusDraft, acme.Status)
	assert.Equal(t, 1_500_000.0, acme.AnnualRevenue)
	assert.False(t, acme.HasNonStandardTerms)

	globex := byName["Globex upsell"]
	assert.Equal(t, model.DealTypeProtect, globex.DealType)
	assert.True(t, globex.HasNonStandardTerms)
}

func TestImport_SkipsBadRows(t *testing.T) {
	st := newTestStore(t)
	path := createTestXLSX(t, [][]string{
		importHeader,
		{"Good deal", "Client", "grow", "client_direct", "100000", "12", "5", ""},
		{"", "Client", "grow", "client_direct", "100000", "12", "5", ""},
		{"Bad type", "Client", "merger", "client_direct", "100000", "12", "5", ""},
		{"Bad revenue", "Client", "grow", "client_direct", "lots", "12", "5", ""},
		{"Bad discount", "Client", "grow", "client_direct", "100000", "12", "150", ""},
	})

	im := New(st, "importer-user", 4)
	result, err := im.Import(t.Context(), path)
	require.NoError(t, err)

	assert.Equal(t, 5, result.Total)
	assert.Equal(t, 1, result.Imported)
	assert.Equal(t, 4, result.Skipped)
	require.Len(t, result.Errors, 4)

	deals, err := st.ListDeals(t.Context(), store.DealFilter{})
	require.NoError(t, err)
	require.Len(t, deals, 1)
	assert.Equal(t, "Good deal", deals[0].Name)
}

func TestImport_SkipsBlankRows(t *testing.T) {
	st := newTestStore(t)
	path := createTestXLSX(t, [][]string{
		importHeader,
		{"Only deal", "Client", "grow", "", "50000", "", "", ""},
		{"", "", "", "", "", "", "", ""},
	})

	im := New(st, "importer-user", 1)
	result, err := im.Import(t.Context(), path)
	require.NoError(t, err)

	assert.Equal(t, 1, result.Total)
	assert.Equal(t, 1, result.Imported)

	deals, err := st.ListDeals(t.Context(), store.DealFilter{})
	require.NoError(t, err)
	require.Len(t, deals, 1)
	// Missing channel defaults to client_direct.
	assert.Equal(t, model.ChannelClientDirect, deals[0].SalesChannel)
}

func TestImport_HeaderValidation(t *testing.T) {
	st := newTestStore(t)
	path := createTestXLSX(t, [][]string{
		{"title", "client_name"},
		{"Acme", "Acme Corp"},
	})

	im := New(st, "importer-user", 1)
	_, err := im.Import(t.Context(), path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `missing required column "name"`)
}

func TestImport_MissingFile(t *testing.T) {
	im := New(newTestStore(t), "importer-user", 1)
	_, err := im.Import(t.Context(), filepath.Join(t.TempDir(), "nope.xlsx"))
	assert.Error(t, err)
}
