package importer

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/fumiama/go-docx"

	"github.com/dgallion1/insurtree/internal/engine"
)

// DOCXParser reads records from the first table of a .docx file, or from
// its paragraphs as text lines when there is no table.
type DOCXParser struct{}

func (p *DOCXParser) Parse(r io.Reader, filename string) ([]engine.Record, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read docx: %w", err)
	}
	doc, err := docx.Parse(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("parse docx: %w", err)
	}

	var lines []string
	for _, item := range doc.Document.Body.Items {
		switch it := item.(type) {
		case *docx.Table:
			return rowsToRecords(docxTableRows(it))
		case *docx.Paragraph:
			lines = append(lines, docxParagraphText(it))
		}
	}
	return rowsToRecords(textRows(strings.Join(lines, "\n")))
}

func docxTableRows(t *docx.Table) []row {
	rows := make([]row, 0, len(t.TableRows))
	for i, tr := range t.TableRows {
		cells := make([]string, 0, len(tr.TableCells))
		for _, tc := range tr.TableCells {
			var parts []string
			for _, para := range tc.Paragraphs {
				if s := docxParagraphText(para); s != "" {
					parts = append(parts, s)
				}
			}
			cells = append(cells, strings.Join(parts, " "))
		}
		rows = append(rows, row{line: i + 1, cells: cells})
	}
	return rows
}

func docxParagraphText(para *docx.Paragraph) string {
	var buf strings.Builder
	for _, child := range para.Children {
		run, ok := child.(*docx.Run)
		if !ok {
			continue
		}
		for _, rc := range run.Children {
			if t, ok := rc.(*docx.Text); ok {
				buf.WriteString(t.Text)
			}
		}
	}
	return strings.TrimSpace(buf.String())
}
