package importer

import (
	"bufio"
	"io"
	"strings"

	"github.com/dgallion1/insurtree/internal/engine"
)

// TextParser handles plain text with one record per line. Fields are
// separated by commas, semicolons, pipes or tabs, or else by whitespace;
// anything after the fourth field is part of the name. Lines starting with #
// are skipped.
type TextParser struct{}

func (p *TextParser) Parse(r io.Reader, filename string) ([]engine.Record, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var rows []row
	line := 0
	for scanner.Scan() {
		line++
		if cells := splitLine(scanner.Text()); cells != nil {
			rows = append(rows, row{line: line, cells: cells})
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return rowsToRecords(rows)
}

// textRows splits already-extracted text, as produced from PDF or DOCX.
func textRows(text string) []row {
	var rows []row
	for i, l := range strings.Split(text, "\n") {
		if cells := splitLine(l); cells != nil {
			rows = append(rows, row{line: i + 1, cells: cells})
		}
	}
	return rows
}

// splitLine breaks a line into cells. A line containing a comma, semicolon, pipe
// or tab is delimited, and empty cells are kept so "2,,20000" has no parent.
// Otherwise cells are separated by runs of whitespace.
func splitLine(line string) []string {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return nil
	}

	var fields []string
	if strings.ContainsAny(line, ",;|\t") {
		line = strings.TrimSpace(strings.TrimSuffix(strings.TrimPrefix(line, "|"), "|"))
		fields = splitDelimited(line)
	} else {
		fields = strings.Fields(line)
	}
	if len(fields) > numColumns {
		fields = append(fields[:numColumns-1], strings.Join(fields[numColumns-1:], " "))
	}
	return fields
}

func splitDelimited(line string) []string {
	var fields []string
	start := 0
	for i, r := range line {
		switch r {
		case ',', ';', '|', '\t':
			fields = append(fields, strings.TrimSpace(line[start:i]))
			start = i + 1
		}
	}
	return append(fields, strings.TrimSpace(line[start:]))
}
