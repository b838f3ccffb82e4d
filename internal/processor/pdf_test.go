package processor

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pdf-qa-assistant/internal/models"
)

func writeFiles(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, name := range names {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("%PDF-1.4"), 0o644))
	}
}

// fakeExtract returns one page named after the file, or fails for names in bad.
func fakeExtract(bad map[string]bool) ExtractFunc {
	return func(path string) ([]models.Page, error) {
		name := filepath.Base(path)
		if bad[name] {
			return nil, errors.New("corrupt")
		}
		return []models.Page{{Source: name, PageNumber: 1, Text: "text of " + name}}, nil
	}
}

func TestListPDFs(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "b.pdf", "a.PDF", "notes.txt", "c.pdf")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested.pdf"), 0o755))

	files, err := ListPDFs(dir)
	require.NoError(t, err)

	var names []string
	for _, f := range files {
		names = append(names, filepath.Base(f))
	}
	assert.Equal(t, []string{"a.PDF", "b.pdf", "c.pdf"}, names)
	assert.Equal(t, 3, CountPDFs(dir))
}

func TestCountPDFs_MissingDir(t *testing.T) {
	assert.Equal(t, 0, CountPDFs(filepath.Join(t.TempDir(), "missing")))
}

func TestLoadDirectory_SortedAcrossFiles(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "zeta.pdf", "alpha.pdf", "mid.pdf")

	p := NewPDFProcessor(100, 10).WithExtractor(fakeExtract(nil))
	pages, err := p.LoadDirectory(context.Background(), dir)
	require.NoError(t, err)

	require.Len(t, pages, 3)
	assert.Equal(t, "alpha.pdf", pages[0].Source)
	assert.Equal(t, "mid.pdf", pages[1].Source)
	assert.Equal(t, "zeta.pdf", pages[2].Source)
}

func TestLoadDirectory_SkipsUnreadable(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "good.pdf", "broken.pdf")

	p := NewPDFProcessor(100, 10).WithExtractor(fakeExtract(map[string]bool{"broken.pdf": true}))
	pages, err := p.LoadDirectory(context.Background(), dir)
	require.NoError(t, err)
	require.Len(t, pages, 1)
	assert.Equal(t, "good.pdf", pages[0].Source)
}

func TestLoadDirectory_Errors(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(t *testing.T) string
		bad     map[string]bool
		wantErr error
	}{
		{
			name: "missing directory",
			setup: func(t *testing.T) string {
				return filepath.Join(t.TempDir(), "does-not-exist")
			},
			wantErr: os.ErrNotExist,
		},
		{
			name: "no pdf files",
			setup: func(t *testing.T) string {
				dir := t.TempDir()
				writeFiles(t, dir, "readme.md")
				return dir
			},
			wantErr: models.ErrEmptyDirectory,
		},
		{
			name: "only unreadable files",
			setup: func(t *testing.T) string {
				dir := t.TempDir()
				writeFiles(t, dir, "x.pdf")
				return dir
			},
			bad:     map[string]bool{"x.pdf": true},
			wantErr: models.ErrNoDocuments,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			dir := tc.setup(t)
			p := NewPDFProcessor(100, 10).WithExtractor(fakeExtract(tc.bad))

			pages, err := p.LoadDirectory(context.Background(), dir)
			assert.Nil(t, pages)

			var loadErr *models.LoadError
			require.ErrorAs(t, err, &loadErr)
			assert.Equal(t, dir, loadErr.Dir)
			assert.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func TestExtractPages_NotAPDF(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "fake.pdf")
	require.NoError(t, os.WriteFile(path, []byte("this is not a pdf"), 0o644))

	pages, err := ExtractPages(path)
	assert.Error(t, err)
	assert.Empty(t, pages)
}

func TestNormalizeWhitespace(t *testing.T) {
	assert.Equal(t, "a b c", normalizeWhitespace("  a\n\tb   c \n"))
	assert.Equal(t, "", normalizeWhitespace(" \n "))
}
