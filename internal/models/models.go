package models

import "time"

// Page is the extracted text of one page of one PDF
type Page struct {
	Source     string `json:"source"`
	PageNumber int    `json:"page_number"`
	Text       string `json:"text"`
}

// Metadata ties a chunk back to the page it was cut from
type Metadata struct {
	Source     string `json:"source"`
	PageNumber int    `json:"page_number"`
	// Position is the chunk's global order in the index, used to break score ties.
	Position int `json:"position"`
	// Offset is the rune offset of the chunk within its page.
	Offset int `json:"offset"`
}

// TextChunk represents a chunk of text from a PDF page
type TextChunk struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	Metadata  Metadata  `json:"metadata"`
	Embedding []float64 `json:"embedding,omitempty"`
}

// ScoredChunk is one entry of a retrieval result
type ScoredChunk struct {
	Chunk TextChunk `json:"chunk"`
	Score float64   `json:"score"`
}

// ResponseType records how an answer was produced
type ResponseType string

const (
	FromContext ResponseType = "from-context"
	FromModel   ResponseType = "from-model"
	FromError   ResponseType = "error"
)

// Label returns the heading shown above an answer
func (t ResponseType) Label() string {
	switch t {
	case FromContext:
		return "Answer (From PDF):"
	case FromModel:
		return "Answer (From model):"
	default:
		return "Answer (Error):"
	}
}

// Valid reports whether t is one of the known routing outcomes
func (t ResponseType) Valid() bool {
	return t == FromContext || t == FromModel || t == FromError
}

// Citation is the persisted reference to a chunk used as grounding
type Citation struct {
	Source     string `json:"source"`
	PageNumber int    `json:"page_number"`
	ChunkID    string `json:"chunk_id"`
}

// AnswerRecord is one entry of the interaction log
type AnswerRecord struct {
	Timestamp       string       `json:"timestamp"`
	Question        string       `json:"question"`
	Response        string       `json:"response"`
	ResponseType    ResponseType `json:"response_type"`
	ResponseTimeSec float64      `json:"response_time_sec"`
	Sources         []Citation   `json:"sources,omitempty"`
}

// Answer is the outcome of one question as returned to the caller
type Answer struct {
	Question  string
	Type      ResponseType
	Text      string
	Sources   []TextChunk
	Timestamp time.Time
	Elapsed   time.Duration
	// MaxScore is the best question/chunk similarity seen by the relevance gate.
	MaxScore float64
	Trace    []State
	// Err holds the failure that was converted into Text, if any.
	Err error
}

// Record converts the answer into its log entry
func (a *Answer) Record() AnswerRecord {
	rec := AnswerRecord{
		Timestamp:       FormatTimestamp(a.Timestamp),
		Question:        a.Question,
		Response:        a.Text,
		ResponseType:    a.Type,
		ResponseTimeSec: a.Elapsed.Seconds(),
	}
	for _, c := range a.Sources {
		rec.Sources = append(rec.Sources, Citation{
			Source:     c.Metadata.Source,
			PageNumber: c.Metadata.PageNumber,
			ChunkID:    c.ID,
		})
	}
	return rec
}

// FormatTimestamp renders t as the ISO-8601 string used to identify log entries
func FormatTimestamp(t time.Time) string {
	return t.Format(time.RFC3339Nano)
}
