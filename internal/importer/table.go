package importer

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/dgallion1/insurtree/internal/engine"
)

// RowError reports a bad cell. Line is 1-based within the source.
type RowError struct {
	Line  int
	Field string
	Err   error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("line %d: %s: %v", e.Line, e.Field, e.Err)
}

func (e *RowError) Unwrap() error { return e.Err }

var errMissing = errors.New("missing")

// row is one line of tabular input.
type row struct {
	line  int
	cells []string
}

const (
	colID = iota
	colParent
	colValue
	colName
	numColumns
)

var columnNames = [numColumns]string{"id", "parent_id", "value", "name"}

var headerAliases = map[string]int{
	"id":           colID,
	"insuranceid":  colID,
	"insurance_id": colID,
	"parent":       colParent,
	"parentid":     colParent,
	"parent_id":    colParent,
	"value":        colValue,
	"amount":       colValue,
	"name":         colName,
}

// layout maps each column to a cell index, or -1 when absent.
type layout [numColumns]int

// positional is used when the first row is data: id, parent, value, name.
var positional = layout{0, 1, 2, 3}

func detectHeader(cells []string) (layout, bool, error) {
	if len(cells) == 0 {
		return positional, false, nil
	}
	if _, err := strconv.ParseInt(strings.TrimSpace(cells[0]), 10, 64); err == nil {
		return positional, false, nil
	}

	l := layout{-1, -1, -1, -1}
	for i, c := range cells {
		key := strings.ToLower(strings.Join(strings.Fields(c), ""))
		if col, ok := headerAliases[key]; ok && l[col] == -1 {
			l[col] = i
		}
	}
	if l[colID] == -1 || l[colValue] == -1 {
		return l, true, fmt.Errorf("header %q must name id and value columns", strings.Join(cells, ","))
	}
	return l, true, nil
}

// rowsToRecords converts tabular rows, detecting an optional header row.
func rowsToRecords(rows []row) ([]engine.Record, error) {
	rows = dropBlank(rows)
	out := make([]engine.Record, 0, len(rows))
	if len(rows) == 0 {
		return out, nil
	}

	l, header, err := detectHeader(rows[0].cells)
	if err != nil {
		return nil, &RowError{Line: rows[0].line, Field: "header", Err: err}
	}
	if header {
		rows = rows[1:]
	}

	for _, r := range rows {
		rec, err := parseRow(r, l)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

func parseRow(r row, l layout) (engine.Record, error) {
	cell := func(col int) string {
		i := l[col]
		if i < 0 || i >= len(r.cells) {
			return ""
		}
		return strings.TrimSpace(r.cells[i])
	}
	fail := func(col int, err error) error {
		return &RowError{Line: r.line, Field: columnNames[col], Err: err}
	}

	var rec engine.Record
	id, err := parseInt(cell(colID))
	if err != nil {
		return rec, fail(colID, err)
	}
	rec.ID = id

	value, err := parseInt(cell(colValue))
	if err != nil {
		return rec, fail(colValue, err)
	}
	rec.Value = value

	if p := cell(colParent); !isNoParent(p) {
		parent, err := parseInt(p)
		if err != nil {
			return rec, fail(colParent, err)
		}
		rec.ParentID = &parent
	}
	rec.Name = cell(colName)
	return rec, nil
}

func parseInt(s string) (int64, error) {
	if s == "" {
		return 0, errMissing
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("not an integer: %q", s)
	}
	return n, nil
}

func isNoParent(s string) bool {
	switch strings.ToLower(s) {
	case "", "-", "null", "none":
		return true
	}
	return false
}

func dropBlank(rows []row) []row {
	out := rows[:0:0]
	for _, r := range rows {
		for _, c := range r.cells {
			if strings.TrimSpace(c) != "" {
				out = append(out, r)
				break
			}
		}
	}
	return out
}
