package main

import (
	"fmt"
	"strings"

	"pdf-qa-assistant/internal/models"
)

// maxPreview bounds how much of a source chunk is echoed back
const maxPreview = 200

func formatAnswer(ans *models.Answer, showChunks bool) string {
	var sb strings.Builder

	sb.WriteString(ans.Type.Label())
	sb.WriteString("\n")
	sb.WriteString(ans.Text)
	sb.WriteString("\n")

	if len(ans.Sources) > 0 {
		sb.WriteString("\nRetrieved Source(s):\n")
		for i, source := range ans.Sources {
			fmt.Fprintf(&sb, "  %d. [%s, Page: %d]\n", i+1, source.Metadata.Source, source.Metadata.PageNumber)
			if showChunks {
				fmt.Fprintf(&sb, "     %s\n", preview(source.Content, maxPreview))
			}
		}
	}

	fmt.Fprintf(&sb, "\n(%.2fs)", ans.Elapsed.Seconds())
	return sb.String()
}

func formatRecord(rec models.AnswerRecord) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "[%s] %s (%.2fs)\n", rec.Timestamp, rec.ResponseType, rec.ResponseTimeSec)
	fmt.Fprintf(&sb, "  Q: %s\n", rec.Question)
	fmt.Fprintf(&sb, "  A: %s\n", preview(rec.Response, maxPreview))
	for _, c := range rec.Sources {
		fmt.Fprintf(&sb, "     - %s, page %d\n", c.Source, c.PageNumber)
	}
	return sb.String()
}

// preview collapses text to a single line of at most n runes
func preview(text string, n int) string {
	text = strings.Join(strings.Fields(text), " ")
	runes := []rune(text)
	if len(runes) <= n {
		return text
	}
	return string(runes[:n]) + "..."
}
