package processor

import (
	"fmt"

	"pdf-qa-assistant/internal/models"

	"github.com/google/uuid"
)

// chunkNamespace scopes the name-based chunk ids
var chunkNamespace = uuid.MustParse("6f1c7b52-3d0e-4c55-9b7a-2d8e4f1a9c30")

// ChunkID returns the deterministic id of the chunk starting at offset on a page
func ChunkID(source string, page, offset int) string {
	name := fmt.Sprintf("%s#%d:%d", source, page, offset)
	return uuid.NewSHA1(chunkNamespace, []byte(name)).String()
}

// ChunkPages splits each page into fixed-size overlapping windows.
// Windows never cross page boundaries; the last window of a page may be short.
func (p *PDFProcessor) ChunkPages(pages []models.Page) []models.TextChunk {
	var chunks []models.TextChunk
	step := p.ChunkSize - p.ChunkOverlap
	if p.ChunkSize <= 0 || step <= 0 {
		return nil
	}

	for _, page := range pages {
		runes := []rune(page.Text)
		n := len(runes)

		for start := 0; start < n; start += step {
			end := start + p.ChunkSize
			if end > n {
				end = n
			}

			chunks = append(chunks, models.TextChunk{
				ID:      ChunkID(page.Source, page.PageNumber, start),
				Content: string(runes[start:end]),
				Metadata: models.Metadata{
					Source:     page.Source,
					PageNumber: page.PageNumber,
					Position:   len(chunks),
					Offset:     start,
				},
			})

			if end == n {
				break
			}
		}
	}

	return chunks
}
