package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// readCSV parses comma separated text with a header row. A UTF-8 or UTF-16
// byte order mark selects the decoding; otherwise the input is read as UTF-8.
// Rows longer than the header are rejected, shorter ones are NULL padded.
func readCSV(r io.Reader) (*Table, error) {
	decoded := transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder()))

	cr := csv.NewReader(decoded)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, reject("no columns to parse from file", nil)
		}
		return nil, reject("malformed csv header", err)
	}

	var records [][]string
	for {
		rec, err := cr.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, reject("malformed csv", err)
		}
		if len(rec) > len(header) {
			line, _ := cr.FieldPos(0)
			return nil, reject(fmt.Sprintf("error tokenizing data: expected %d fields in line %d, saw %d", len(header), line, len(rec)), nil)
		}
		records = append(records, rec)
	}

	return buildTable(header, records), nil
}
