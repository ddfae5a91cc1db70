// Package importer loads deals in bulk from XLSX workbooks. Rows are
// parsed by header name, validated, and written concurrently; a bad row
// is reported and skipped, never aborting the rest of the file.
package importer

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ethansammiq/deal-desk-sub004/internal/model"
	"github.com/ethansammiq/deal-desk-sub004/internal/store"
)

// Recognized column headers. Matching is case-insensitive and ignores
// surrounding whitespace.
const (
	colName            = "name"
	colClientName      = "client_name"
	colDealType        = "deal_type"
	colSalesChannel    = "sales_channel"
	colAnnualRevenue   = "annual_revenue"
	colContractTerm    = "contract_term_months"
	colDiscountPercent = "discount_percent"
	colNonStandard     = "has_non_standard_terms"
)

// RowError records why a single spreadsheet row was skipped.
type RowError struct {
	Row int    `json:"row"` // 1-based, including the header row
	Err string `json:"err"`
}

// Result summarizes one import run.
type Result struct {
	Total    int        `json:"total"`
	Imported int        `json:"imported"`
	Skipped  int        `json:"skipped"`
	Errors   []RowError `json:"errors,omitempty"`
}

// Importer bulk-loads deals from XLSX files into the store.
type Importer struct {
	store         store.Store
	ownerID       string
	maxConcurrent int
}

// New creates an Importer. Imported deals are owned by ownerID.
func New(st store.Store, ownerID string, maxConcurrent int) *Importer {
	if maxConcurrent <= 0 {
		maxConcurrent = 4
	}
	return &Importer{store: st, ownerID: ownerID, maxConcurrent: maxConcurrent}
}

// Import reads the first sheet of the workbook at path and creates one
// deal per data row. Row-level failures are collected in the Result;
// only file-level problems return an error.
func (im *Importer) Import(ctx context.Context, path string) (*Result, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "importer: open file")
	}
	if len(f.Sheets) == 0 {
		return nil, eris.New("importer: workbook has no sheets")
	}
	sheet := f.Sheets[0]
	if len(sheet.Rows) == 0 {
		return nil, eris.New("importer: sheet is empty")
	}

	columns, err := mapHeader(rowToStrings(sheet.Rows[0]))
	if err != nil {
		return nil, err
	}

	result := &Result{}
	var mu sync.Mutex

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(im.maxConcurrent)

	for i, row := range sheet.Rows[1:] {
		rowNum := i + 2 // 1-based with header
		cells := rowToStrings(row)
		if blankRow(cells) {
			continue
		}

		mu.Lock()
		result.Total++
		mu.Unlock()

		g.Go(func() error {
			if ctx.Err() != nil {
				return ctx.Err()
			}

			deal, err := parseRow(cells, columns)
			if err == nil {
				deal.OwnerID = im.ownerID
				_, err = im.store.CreateDeal(ctx, *deal)
				if err != nil {
					err = eris.Wrap(err, "importer: create deal")
				}
			}

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				result.Skipped++
				result.Errors = append(result.Errors, RowError{Row: rowNum, Err: err.Error()})
				zap.L().Warn("importer: row skipped",
					zap.Int("row", rowNum),
					zap.Error(err),
				)
				return nil
			}
			result.Imported++
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, eris.Wrap(err, "importer: import aborted")
	}
	return result, nil
}

// mapHeader resolves header names to column indexes. name and deal_type
// are required; everything else is optional.
func mapHeader(header []string) (map[string]int, error) {
	columns := make(map[string]int, len(header))
	for i, h := range header {
		columns[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, required := range []string{colName, colDealType} {
		if _, ok := columns[required]; !ok {
			return nil, eris.Errorf("importer: missing required column %q", required)
		}
	}
	return columns, nil
}

// parseRow converts one data row into a draft deal.
func parseRow(cells []string, columns map[string]int) (*model.Deal, error) {
	cell := func(name string) string {
		idx, ok := columns[name]
		if !ok || idx >= len(cells) {
			return ""
		}
		return strings.TrimSpace(cells[idx])
	}

	deal := &model.Deal{
		Name:         cell(colName),
		ClientName:   cell(colClientName),
		DealType:     model.DealType(strings.ToLower(cell(colDealType))),
		SalesChannel: model.SalesChannel(strings.ToLower(cell(colSalesChannel))),
		Status:       model.DealStatusDraft,
	}
	if deal.Name == "" {
		return nil, eris.New("importer: name is empty")
	}
	if !deal.DealType.Valid() {
		return nil, eris.Errorf("importer: invalid deal_type %q", cell(colDealType))
	}
	if deal.SalesChannel == "" {
		deal.SalesChannel = model.ChannelClientDirect
	}
	if !deal.SalesChannel.Valid() {
		return nil, eris.Errorf("importer: invalid sales_channel %q", cell(colSalesChannel))
	}

	var err error
	if deal.AnnualRevenue, err = parseFloat(cell(colAnnualRevenue)); err != nil {
		return nil, eris.Wrap(err, "importer: annual_revenue")
	}
	if deal.DiscountPercent, err = parseFloat(cell(colDiscountPercent)); err != nil {
		return nil, eris.Wrap(err, "importer: discount_percent")
	}
	if deal.DiscountPercent < 0 || deal.DiscountPercent > 100 {
		return nil, eris.Errorf("importer: discount_percent %.1f out of range", deal.DiscountPercent)
	}
	if term := cell(colContractTerm); term != "" {
		deal.ContractTermMonths, err = strconv.Atoi(term)
		if err != nil {
			return nil, eris.Wrap(err, "importer: contract_term_months")
		}
	}
	deal.HasNonStandardTerms = parseBool(cell(colNonStandard))

	return deal, nil
}

// parseFloat parses a numeric cell, tolerating currency formatting.
// Empty cells parse to zero.
func parseFloat(s string) (float64, error) {
	if s == "" {
		return 0, nil
	}
	s = strings.NewReplacer("$", "", ",", "").Replace(s)
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("parse %q: %w", s, err)
	}
	return v, nil
}

func parseBool(s string) bool {
	switch strings.ToLower(s) {
	case "true", "yes", "y", "1":
		return true
	}
	return false
}

func rowToStrings(row *xlsx.Row) []string {
	cells := make([]string, len(row.Cells))
	for j, c := range row.Cells {
		cells[j] = c.String()
	}
	return cells
}

func blankRow(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
