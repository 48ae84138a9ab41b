package importer

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fumiama/go-docx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dgallion1/insurtree/internal/engine"
)

func parent(id int64) *int64 { return &id }

var want = []engine.Record{
	{ID: 1, Name: "insurance 1", Value: 10000},
	{ID: 2, ParentID: parent(1), Name: "insurance 2", Value: 20000},
	{ID: 3, ParentID: parent(2), Value: 30000},
}

func parse(t *testing.T, filename, input string) ([]engine.Record, error) {
	t.Helper()
	p, err := ForFile(filename, Options{})
	require.NoError(t, err)
	return p.Parse(strings.NewReader(input), filename)
}

func TestCSVParser_Header(t *testing.T) {
	got, err := parse(t, "insurances.csv", `id,parentId,name,value
1,,insurance 1,10000
2,1,insurance 2,20000

# comment
3,1-,,30000
`)
	// "1-" is not an integer; the error names the line and field.
	var rowErr *RowError
	require.ErrorAs(t, err, &rowErr)
	assert.Equal(t, 6, rowErr.Line)
	assert.Equal(t, "parent_id", rowErr.Field)
	assert.Nil(t, got)

	got, err = parse(t, "insurances.csv", `Value, Name, Parent Id, ID
10000,insurance 1,null,1
20000,insurance 2,1,2
30000,,2,3
`)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestCSVParser_Positional(t *testing.T) {
	got, err := parse(t, "x.csv", "1,-,10000,insurance 1\n2,1,20000,insurance 2\n3,2,30000\n")
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestCSVParser_Errors(t *testing.T) {
	_, err := parse(t, "x.csv", "id,name\n1,a\n")
	assert.ErrorContains(t, err, "must name id and value")

	_, err = parse(t, "x.csv", "1,,\n")
	var rowErr *RowError
	require.ErrorAs(t, err, &rowErr)
	assert.Equal(t, "value", rowErr.Field)
	assert.ErrorIs(t, err, errMissing)
}

func TestCSVParser_Empty(t *testing.T) {
	got, err := parse(t, "x.csv", "")
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.NotNil(t, got)
}

func TestJSONParser(t *testing.T) {
	got, err := parse(t, "x.json", `[
		{"id": 1, "name": "insurance 1", "value": 10000},
		{"id": 2, "parentId": 1, "name": "insurance 2", "value": 20000},
		{"id": 3, "parentId": 2, "value": 30000}
	]`)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	got, err = parse(t, "x.json", `{"insurances": [{"id": 0, "value": 0}]}`)
	require.NoError(t, err)
	assert.Equal(t, []engine.Record{{ID: 0, Value: 0}}, got)
}

func TestJSONParser_Validation(t *testing.T) {
	_, err := DecodeJSON(strings.NewReader(`[{"id": 1, "value": 1}, {"id": 2}]`))
	var rowErr *RowError
	require.ErrorAs(t, err, &rowErr)
	assert.Equal(t, 2, rowErr.Line)
	assert.Equal(t, "value", rowErr.Field)

	_, err = DecodeJSON(strings.NewReader(`[{"id": 1, "value": 1, "name": "` + strings.Repeat("x", 300) + `"}]`))
	require.ErrorAs(t, err, &rowErr)
	assert.Equal(t, "name", rowErr.Field)

	_, err = DecodeJSON(strings.NewReader(`{"insurances": "nope"}`))
	assert.ErrorContains(t, err, "parse json")
}

func TestTextParser(t *testing.T) {
	got, err := parse(t, "x.txt", `# id parent value name
1  -  10000  insurance 1
2 | 1 | 20000 | insurance 2

3	2	30000
`)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestTextParser_EmptyDelimitedCells(t *testing.T) {
	got, err := parse(t, "x.txt", "1,,10000,insurance 1\n2;1;20000\n3|  |30000|insurance 3\n4\t\t40000\n")
	require.NoError(t, err)
	assert.Equal(t, []engine.Record{
		{ID: 1, Name: "insurance 1", Value: 10000},
		{ID: 2, ParentID: parent(1), Value: 20000},
		{ID: 3, Name: "insurance 3", Value: 30000},
		{ID: 4, Value: 40000},
	}, got)
}

func TestTextParser_HeaderLine(t *testing.T) {
	got, err := parse(t, "x.txt", "id value\n7 70\n")
	require.NoError(t, err)
	assert.Equal(t, []engine.Record{{ID: 7, Value: 70}}, got)
}

func TestMarkdownParser_Table(t *testing.T) {
	got, err := parse(t, "x.md", `# Insurances

Some prose first.

| id | parent | name | value |
|----|--------|------|-------|
| 1 | | insurance 1 | 10000 |
| 2 | 1 | **insurance 2** | 20000 |
| 3 | 2 | | 30000 |
`)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestMarkdownParser_NoTable(t *testing.T) {
	got, err := parse(t, "x.markdown", "# Insurances\n\n1 - 10000 insurance 1\n\n2 1 20000 insurance 2\n\n3 2 30000\n")
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestHTMLParser(t *testing.T) {
	got, err := parse(t, "x.html", `<html><body>
<table>
  <tr><th>ID</th><th>Parent</th><th>Name</th><th>Value</th></tr>
  <tr><td>1</td><td></td><td>insurance 1</td><td>10000</td></tr>
  <tr><td>2</td><td>1</td><td><b>insurance 2</b></td><td>20000</td></tr>
  <tr><td>3</td><td>2</td><td></td><td>30000</td></tr>
</table>
<script>var x = "<tr><td>9</td></tr>";</script>
</body></html>`)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	_, err = parse(t, "x.htm", "<p>nothing here</p>")
	assert.ErrorIs(t, err, errNoTable)
}

func TestDOCXParser_Table(t *testing.T) {
	doc := docx.New().WithDefaultTheme()
	doc.AddParagraph().AddText("Insurances")
	cells := [][]string{
		{"id", "parent", "name", "value"},
		{"1", "", "insurance 1", "10000"},
		{"2", "1", "insurance 2", "20000"},
		{"3", "2", "", "30000"},
	}
	tbl := doc.AddTable(len(cells), 4, 0, nil)
	for i, r := range cells {
		for j, c := range r {
			p := tbl.TableRows[i].TableCells[j].AddParagraph()
			if c != "" {
				p.AddText(c)
			}
		}
	}

	got, err := parseDOCX(t, doc)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestDOCXParser_Paragraphs(t *testing.T) {
	doc := docx.New().WithDefaultTheme()
	doc.AddParagraph().AddText("1 - 10000 insurance 1")
	doc.AddParagraph().AddText("2 1 20000 insurance 2")
	doc.AddParagraph().AddText("3 2 30000")

	got, err := parseDOCX(t, doc)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func parseDOCX(t *testing.T, doc *docx.Docx) ([]engine.Record, error) {
	t.Helper()
	var buf bytes.Buffer
	_, err := doc.WriteTo(&buf)
	require.NoError(t, err)
	return (&DOCXParser{}).Parse(&buf, "x.docx")
}

func TestPDFParser(t *testing.T) {
	f, err := os.Open(filepath.Join("testdata", "insurances.pdf"))
	require.NoError(t, err)
	defer f.Close()

	got, err := (&PDFParser{}).Parse(f, "insurances.pdf")
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestPDFParser_Garbage(t *testing.T) {
	_, err := (&PDFParser{}).Parse(strings.NewReader("not a pdf"), "x.pdf")
	assert.ErrorContains(t, err, "extract pdf text")
}

func TestForFile(t *testing.T) {
	for _, name := range []string{"a.csv", "a.JSON", "a.txt", "a.md", "a.html", "a.pdf", "a.docx"} {
		assert.True(t, IsSupportedExtension(name), name)
		_, err := ForFile(name, Options{})
		assert.NoError(t, err, name)
	}
	assert.False(t, IsSupportedExtension("a.xlsx"))
	_, err := ForFile("a.xlsx", Options{})
	assert.Error(t, err)

	p, err := ForFile("a.pdf", Options{FallbackPdftotext: true})
	require.NoError(t, err)
	assert.True(t, p.(*PDFParser).FallbackPdftotext)
}
