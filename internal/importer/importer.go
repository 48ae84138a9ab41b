// Package importer turns uploaded files into insurance records.
package importer

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/dgallion1/insurtree/internal/engine"
)

// Parser converts raw file bytes into records.
type Parser interface {
	Parse(r io.Reader, filename string) ([]engine.Record, error)
}

// Options tune individual parsers.
type Options struct {
	FallbackPdftotext bool
}

// SupportedExtensions lists file extensions this service can import.
var SupportedExtensions = map[string]bool{
	".csv":      true,
	".json":     true,
	".txt":      true,
	".md":       true,
	".markdown": true,
	".html":     true,
	".htm":      true,
	".pdf":      true,
	".docx":     true,
}

// ForFile returns the appropriate parser for a filename.
func ForFile(filename string, opts Options) (Parser, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".csv":
		return &CSVParser{}, nil
	case ".json":
		return &JSONParser{}, nil
	case ".txt":
		return &TextParser{}, nil
	case ".md", ".markdown":
		return &MarkdownParser{}, nil
	case ".html", ".htm":
		return &HTMLParser{}, nil
	case ".pdf":
		return &PDFParser{FallbackPdftotext: opts.FallbackPdftotext}, nil
	case ".docx":
		return &DOCXParser{}, nil
	default:
		return nil, fmt.Errorf("unsupported file extension: %q", ext)
	}
}

// IsSupportedExtension checks if a file extension is supported.
func IsSupportedExtension(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	return SupportedExtensions[ext]
}
