package importer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"

	"github.com/dgallion1/insurtree/internal/engine"
)

// CSVParser handles CSV files with an optional header row.
type CSVParser struct{}

func (p *CSVParser) Parse(r io.Reader, filename string) ([]engine.Record, error) {
	reader := csv.NewReader(r)
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1
	reader.Comment = '#'

	var rows []row
	for {
		cells, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse csv: %w", err)
		}
		line, _ := reader.FieldPos(0)
		rows = append(rows, row{line: line, cells: cells})
	}
	return rowsToRecords(rows)
}
