package ingest

import (
	"fmt"

	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"
)

// readXLSX reads the first worksheet of a modern workbook; its first row is the header.
func readXLSX(path string) (*Table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, reject("unreadable xlsx workbook", err)
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, reject("workbook has no sheets", nil)
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, reject("unreadable sheet "+sheets[0], err)
	}
	return sheetTable(rows)
}

// readXLS reads the first worksheet of a legacy BIFF workbook.
func readXLS(path string) (tbl *Table, err error) {
	// The BIFF decoder panics on some truncated records.
	defer func() {
		if r := recover(); r != nil {
			tbl, err = nil, reject("unreadable xls workbook", fmt.Errorf("%v", r))
		}
	}()

	wb, err := xls.Open(path, "utf-8")
	if err != nil {
		return nil, reject("unreadable xls workbook", err)
	}
	if wb.NumSheets() == 0 {
		return nil, reject("workbook has no sheets", nil)
	}
	sheet := wb.GetSheet(0)
	if sheet == nil {
		return nil, reject("workbook has no sheets", nil)
	}

	var rows [][]string
	for i := 0; i <= int(sheet.MaxRow); i++ {
		row := xlsRow(sheet, i)
		if row == nil {
			rows = append(rows, nil)
			continue
		}
		cells := make([]string, 0, row.LastCol())
		for c := 0; c < row.LastCol(); c++ {
			cells = append(cells, row.Col(c))
		}
		rows = append(rows, cells)
	}
	return sheetTable(trimTrailingEmpty(rows))
}

// xlsRow returns row i of sheet, or nil when the sheet holds no record for it.
// The decoder dereferences missing rows, so blank rows surface as a panic.
func xlsRow(sheet *xls.WorkSheet, i int) (row *xls.Row) {
	defer func() {
		if recover() != nil {
			row = nil
		}
	}()
	return sheet.Row(i)
}

// sheetTable treats the first row as the header. Cells beyond the header get
// "Unnamed" columns, matching how blank header cells are named.
func sheetTable(rows [][]string) (*Table, error) {
	if len(rows) == 0 {
		return nil, reject("no columns to parse from file", nil)
	}

	header := rows[0]
	width := len(header)
	for _, r := range rows[1:] {
		if len(r) > width {
			width = len(r)
		}
	}
	if width == 0 {
		return nil, reject("no columns to parse from file", nil)
	}
	for len(header) < width {
		header = append(header, "")
	}

	return buildTable(header, rows[1:]), nil
}

func trimTrailingEmpty(rows [][]string) [][]string {
	for len(rows) > 0 && isBlankRow(rows[len(rows)-1]) {
		rows = rows[:len(rows)-1]
	}
	return rows
}

func isBlankRow(row []string) bool {
	for _, c := range row {
		if c != "" {
			return false
		}
	}
	return true
}
