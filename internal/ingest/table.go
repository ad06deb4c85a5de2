package ingest

import (
	"strconv"
	"strings"
)

// Column types written for parsed artifacts.
const (
	TypeInteger = "INTEGER"
	TypeReal    = "REAL"
	TypeText    = "TEXT"
)

// Column is a parsed column name and its inferred storage type.
type Column struct {
	Name string
	Type string
}

// Table is a parsed artifact ready to be written. Row values are nil,
// int64, float64 or string.
type Table struct {
	Columns []Column
	Rows    [][]any
}

// ColumnNames returns the column names in order.
func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// missingValues are cells read as NULL.
var missingValues = map[string]struct{}{
	"": {}, "#N/A": {}, "#N/A N/A": {}, "#NA": {}, "-1.#IND": {}, "-1.#QNAN": {},
	"-NaN": {}, "-nan": {}, "1.#IND": {}, "1.#QNAN": {}, "<NA>": {}, "N/A": {},
	"NA": {}, "NULL": {}, "NaN": {}, "None": {}, "n/a": {}, "nan": {}, "null": {},
}

func isMissing(v string) bool {
	_, ok := missingValues[strings.TrimSpace(v)]
	return ok
}

// buildTable names the columns and converts every cell according to the type
// inferred for its column. Short rows are padded with NULL.
func buildTable(header []string, records [][]string) *Table {
	names := columnNames(header)
	types := inferTypes(len(names), records)

	tbl := &Table{
		Columns: make([]Column, len(names)),
		Rows:    make([][]any, 0, len(records)),
	}
	for i, name := range names {
		tbl.Columns[i] = Column{Name: name, Type: types[i]}
	}

	for _, rec := range records {
		row := make([]any, len(names))
		for col := range names {
			if col >= len(rec) || isMissing(rec[col]) {
				continue
			}
			row[col] = convert(rec[col], types[col])
		}
		tbl.Rows = append(tbl.Rows, row)
	}
	return tbl
}

// columnNames fills blank headers with "Unnamed: <i>" and suffixes repeated
// names with ".1", ".2", ...
func columnNames(header []string) []string {
	names := make([]string, len(header))
	used := make(map[string]struct{}, len(header))
	counts := make(map[string]int)
	for i, h := range header {
		name := h
		if strings.TrimSpace(name) == "" {
			name = "Unnamed: " + strconv.Itoa(i)
		}
		if _, dup := used[name]; dup {
			base := name
			for k := counts[base] + 1; ; k++ {
				candidate := base + "." + strconv.Itoa(k)
				if _, taken := used[candidate]; !taken {
					counts[base] = k
					name = candidate
					break
				}
			}
		}
		used[name] = struct{}{}
		names[i] = name
	}
	return names
}

// inferTypes picks INTEGER when every present cell is an integer or boolean
// literal of one kind, REAL when every cell is numeric, and TEXT otherwise.
func inferTypes(width int, records [][]string) []string {
	out := make([]string, width)
	for col := 0; col < width; col++ {
		seen := false
		allInt := true
		allFloat := true
		allBool := true

		for _, rec := range records {
			if col >= len(rec) || isMissing(rec[col]) {
				continue
			}
			v := strings.TrimSpace(rec[col])
			seen = true

			if allInt {
				if _, err := strconv.ParseInt(v, 10, 64); err != nil {
					allInt = false
				}
			}
			if allFloat {
				if _, err := strconv.ParseFloat(v, 64); err != nil {
					allFloat = false
				}
			}
			if allBool {
				if _, ok := parseBool(v); !ok {
					allBool = false
				}
			}
			if !allInt && !allFloat && !allBool {
				break
			}
		}

		switch {
		case !seen:
			out[col] = TypeText
		case allInt, allBool:
			out[col] = TypeInteger
		case allFloat:
			out[col] = TypeReal
		default:
			out[col] = TypeText
		}
	}
	return out
}

func convert(v, typ string) any {
	s := strings.TrimSpace(v)
	switch typ {
	case TypeInteger:
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return n
		}
		if b, ok := parseBool(s); ok {
			if b {
				return int64(1)
			}
			return int64(0)
		}
	case TypeReal:
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f
		}
	}
	return v
}

func parseBool(v string) (bool, bool) {
	switch v {
	case "True", "TRUE", "true":
		return true, true
	case "False", "FALSE", "false":
		return false, true
	}
	return false, false
}
