package export

import (
	"fmt"
	"io"
	"strconv"

	"github.com/xuri/excelize/v2"

	"docanalyser/internal/domain"
)

const (
	resultsSheet  = "Results"
	categorySheet = "Categories"
)

// WriteXLSX writes a workbook with one row per outcome on the Results sheet
// and per-category counts on the Categories sheet.
func WriteXLSX(out io.Writer, outcomes []domain.DocumentOutcome) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName(f.GetSheetName(0), resultsSheet); err != nil {
		return fmt.Errorf("renaming sheet: %w", err)
	}

	sw, err := f.NewStreamWriter(resultsSheet)
	if err != nil {
		return fmt.Errorf("creating stream writer: %w", err)
	}
	if err := sw.SetRow("A1", toCells(Columns)); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for i := range outcomes {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := sw.SetRow(cell, outcomeCells(&outcomes[i])); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}
	if err := sw.Flush(); err != nil {
		return fmt.Errorf("flushing rows: %w", err)
	}

	if err := writeCategorySheet(f, outcomes); err != nil {
		return err
	}

	if err := f.Write(out); err != nil {
		return fmt.Errorf("writing workbook: %w", err)
	}
	return nil
}

// outcomeCells keeps numeric columns numeric in the sheet.
func outcomeCells(o *domain.DocumentOutcome) []interface{} {
	row := OutcomeRow(o)
	cells := toCells(row)
	if o.Document != nil {
		cells[3] = o.Document.SizeBytes
	}
	if o.Result != nil {
		cells[7] = o.Result.Confidence
	}
	return cells
}

func writeCategorySheet(f *excelize.File, outcomes []domain.DocumentOutcome) error {
	if _, err := f.NewSheet(categorySheet); err != nil {
		return fmt.Errorf("creating category sheet: %w", err)
	}
	counts := map[domain.DocCategory]int{}
	failed := 0
	for i := range outcomes {
		if outcomes[i].Result == nil {
			failed++
			continue
		}
		counts[outcomes[i].Result.Category]++
	}

	rows := [][]interface{}{{"Category", "Documents"}}
	for _, c := range domain.AllCategories {
		rows = append(rows, []interface{}{string(c), counts[c]})
	}
	rows = append(rows, []interface{}{string(domain.DocumentStatusFailed), failed})

	for i, r := range rows {
		if err := f.SetSheetRow(categorySheet, "A"+strconv.Itoa(i+1), &r); err != nil {
			return fmt.Errorf("writing category row: %w", err)
		}
	}
	return nil
}

func toCells(values []string) []interface{} {
	cells := make([]interface{}, len(values))
	for i, v := range values {
		cells[i] = v
	}
	return cells
}
