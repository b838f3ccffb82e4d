// internal/processor/pdf.go
package processor

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"pdf-qa-assistant/internal/models"

	"github.com/ledongthuc/pdf"
)

const (
	// DefaultChunkSize is the window length in characters
	DefaultChunkSize = 500
	// DefaultChunkOverlap is the number of characters shared by consecutive chunks
	DefaultChunkOverlap = 50
)

var spaceRe = regexp.MustCompile(`\s+`)

// ExtractFunc returns the pages of one PDF file
type ExtractFunc func(filePath string) ([]models.Page, error)

// PDFProcessor handles PDF loading and chunking
type PDFProcessor struct {
	ChunkSize    int
	ChunkOverlap int

	extract ExtractFunc
}

// NewPDFProcessor creates a new PDF processor.
// Non-positive sizes fall back to the defaults and an overlap that would stall the
// window is reduced to a quarter of the chunk size.
func NewPDFProcessor(chunkSize, chunkOverlap int) *PDFProcessor {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if chunkOverlap < 0 {
		chunkOverlap = DefaultChunkOverlap
	}
	if chunkOverlap >= chunkSize {
		chunkOverlap = chunkSize / 4
	}

	return &PDFProcessor{
		ChunkSize:    chunkSize,
		ChunkOverlap: chunkOverlap,
		extract:      ExtractPages,
	}
}

// WithExtractor replaces the PDF text extractor
func (p *PDFProcessor) WithExtractor(fn ExtractFunc) *PDFProcessor {
	p.extract = fn
	return p
}

// ExtractPages extracts the text of every page of a PDF file
func ExtractPages(filePath string) (pages []models.Page, err error) {
	// the pdf package panics on some malformed files
	defer func() {
		if r := recover(); r != nil {
			pages = nil
			err = fmt.Errorf("failed to parse PDF %s: %v", filePath, r)
		}
	}()

	f, r, err := pdf.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}
	defer f.Close()

	source := filepath.Base(filePath)
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("failed to extract text from page %d: %w", i, err)
		}

		text = normalizeWhitespace(text)
		if text == "" {
			continue
		}

		pages = append(pages, models.Page{
			Source:     source,
			PageNumber: i,
			Text:       text,
		})
	}

	return pages, nil
}

// ListPDFs returns the PDF files directly inside dir, sorted by name
func ListPDFs(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	// os.ReadDir returns entries sorted by filename
	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if strings.EqualFold(filepath.Ext(entry.Name()), ".pdf") {
			files = append(files, filepath.Join(dir, entry.Name()))
		}
	}

	return files, nil
}

// CountPDFs returns the number of PDF files in dir, or 0 if it cannot be read
func CountPDFs(dir string) int {
	files, err := ListPDFs(dir)
	if err != nil {
		return 0
	}
	return len(files)
}

// LoadDirectory extracts the pages of every PDF in dir.
// Unreadable files are skipped; a *models.LoadError is returned when nothing
// usable remains.
func (p *PDFProcessor) LoadDirectory(ctx context.Context, dir string) ([]models.Page, error) {
	files, err := ListPDFs(dir)
	if err != nil {
		return nil, &models.LoadError{Dir: dir, Err: err}
	}
	if len(files) == 0 {
		return nil, &models.LoadError{Dir: dir, Err: models.ErrEmptyDirectory}
	}

	var pages []models.Page
	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return nil, &models.LoadError{Dir: dir, Err: err}
		}

		filePages, err := p.extract(file)
		if err != nil {
			slog.Warn("skipping unreadable PDF", "file", file, "error", err)
			continue
		}
		if len(filePages) == 0 {
			slog.Warn("no extractable text in PDF", "file", file)
			continue
		}

		slog.Debug("loaded PDF", "file", file, "pages", len(filePages))
		pages = append(pages, filePages...)
	}

	if len(pages) == 0 {
		return nil, &models.LoadError{Dir: dir, Err: models.ErrNoDocuments}
	}

	return pages, nil
}

// normalizeWhitespace collapses whitespace runs into single spaces
func normalizeWhitespace(text string) string {
	return strings.TrimSpace(spaceRe.ReplaceAllString(text, " "))
}
