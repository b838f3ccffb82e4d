// Package history persists question/answer exchanges as a JSON Lines file.
package history

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"pdf-qa-assistant/internal/models"
)

// DefaultPath is the log file used when none is configured
const DefaultPath = "chat_history.jsonl"

// maxLineSize bounds a single record; longer lines are rejected on append and skipped on read.
const maxLineSize = 4 * 1024 * 1024

// Log is an append-oriented interaction log, one AnswerRecord per line.
// All operations on one Log are serialized.
type Log struct {
	path string
	mu   sync.Mutex
}

// New returns a log stored at path. The file is created on first append.
func New(path string) *Log {
	if path == "" {
		path = DefaultPath
	}
	return &Log{path: path}
}

// Path returns the backing file
func (l *Log) Path() string { return l.path }

// Append writes rec as a new line at the end of the log
func (l *Log) Append(rec models.AnswerRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return &models.LogIOError{Path: l.path, Op: "encode", Err: err}
	}
	data = append(data, '\n')
	if len(data) > maxLineSize {
		return &models.LogIOError{Path: l.path, Op: "append",
			Err: fmt.Errorf("record %s is %d bytes, limit is %d", rec.Timestamp, len(data), maxLineSize)}
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if dir := filepath.Dir(l.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return &models.LogIOError{Path: l.path, Op: "append", Err: err}
		}
	}

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return &models.LogIOError{Path: l.path, Op: "append", Err: err}
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return &models.LogIOError{Path: l.path, Op: "append", Err: err}
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return &models.LogIOError{Path: l.path, Op: "append", Err: err}
	}
	if err := f.Close(); err != nil {
		return &models.LogIOError{Path: l.path, Op: "append", Err: err}
	}
	return nil
}

// List returns the most recent limit records, oldest first unless newestFirst
// is set. A limit of zero or less returns every record. A missing file is an
// empty log.
func (l *Log) List(limit int, newestFirst bool) ([]models.AnswerRecord, error) {
	l.mu.Lock()
	lines, err := l.read()
	l.mu.Unlock()
	if err != nil {
		return nil, err
	}

	records := parsed(lines)
	if limit > 0 && len(records) > limit {
		records = records[len(records)-limit:]
	}
	if newestFirst {
		for i, j := 0, len(records)-1; i < j; i, j = i+1, j-1 {
			records[i], records[j] = records[j], records[i]
		}
	}
	return records, nil
}

// Delete removes every record with the given timestamp and returns how many
// were removed. The file is rewritten only when something matched; lines that
// cannot be parsed are kept as they are.
func (l *Log) Delete(timestamp string) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	lines, err := l.read()
	if err != nil {
		return 0, err
	}

	kept := lines[:0]
	removed := 0
	for _, ln := range lines {
		if ln.rec != nil && ln.rec.Timestamp == timestamp {
			removed++
			continue
		}
		kept = append(kept, ln)
	}
	if removed == 0 {
		return 0, nil
	}

	if err := l.rewrite(kept); err != nil {
		return 0, err
	}
	slog.Debug("history entries deleted", "timestamp", timestamp, "removed", removed)
	return removed, nil
}

// Compact rewrites the log without malformed lines and returns how many were dropped
func (l *Log) Compact() (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	lines, err := l.read()
	if err != nil {
		return 0, err
	}

	kept := lines[:0]
	dropped := 0
	for _, ln := range lines {
		if ln.rec == nil {
			dropped++
			continue
		}
		kept = append(kept, ln)
	}
	if dropped == 0 {
		return 0, nil
	}
	if err := l.rewrite(kept); err != nil {
		return 0, err
	}
	return dropped, nil
}

// line is one non-blank line of the file; rec is nil when it could not be parsed.
type line struct {
	raw []byte
	rec *models.AnswerRecord
}

func parsed(lines []line) []models.AnswerRecord {
	var records []models.AnswerRecord
	for _, ln := range lines {
		if ln.rec != nil {
			records = append(records, *ln.rec)
		}
	}
	return records
}

// read loads every line of the log. Malformed or oversized lines are kept
// unparsed and reported with a warning.
func (l *Log) read() ([]line, error) {
	f, err := os.Open(l.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, &models.LogIOError{Path: l.path, Op: "read", Err: err}
	}
	defer f.Close()

	var lines []line
	lineNo := 0

	r := bufio.NewReader(f)
	for {
		raw, err := r.ReadBytes('\n')
		if err != nil && err != io.EOF {
			return nil, &models.LogIOError{Path: l.path, Op: "read", Err: err}
		}
		if len(raw) > 0 {
			lineNo++
			if ln, ok := l.parseLine(raw, lineNo); ok {
				lines = append(lines, ln)
			}
		}
		if err == io.EOF {
			break
		}
	}

	return lines, nil
}

func (l *Log) parseLine(raw []byte, lineNo int) (line, bool) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return line{}, false
	}
	ln := line{raw: trimmed}

	if len(trimmed) >= maxLineSize {
		slog.Warn("skipping oversized history entry", "path", l.path, "line", lineNo, "bytes", len(trimmed))
		return ln, true
	}

	var rec models.AnswerRecord
	if err := json.Unmarshal(trimmed, &rec); err != nil || rec.Timestamp == "" {
		slog.Warn("skipping malformed history entry", "path", l.path, "line", lineNo, "error", err)
		return ln, true
	}
	ln.rec = &rec
	return ln, true
}

// rewrite replaces the log atomically through a temp file in the same directory
func (l *Log) rewrite(lines []line) error {
	tmp, err := os.CreateTemp(filepath.Dir(l.path), filepath.Base(l.path)+".*.tmp")
	if err != nil {
		return &models.LogIOError{Path: l.path, Op: "rewrite", Err: err}
	}
	defer os.Remove(tmp.Name())

	w := bufio.NewWriter(tmp)
	for _, ln := range lines {
		if _, err := w.Write(ln.raw); err != nil {
			tmp.Close()
			return &models.LogIOError{Path: l.path, Op: "rewrite", Err: err}
		}
		if err := w.WriteByte('\n'); err != nil {
			tmp.Close()
			return &models.LogIOError{Path: l.path, Op: "rewrite", Err: err}
		}
	}
	if err := w.Flush(); err != nil {
		tmp.Close()
		return &models.LogIOError{Path: l.path, Op: "rewrite", Err: err}
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return &models.LogIOError{Path: l.path, Op: "rewrite", Err: err}
	}
	if err := tmp.Close(); err != nil {
		return &models.LogIOError{Path: l.path, Op: "rewrite", Err: err}
	}

	if err := os.Rename(tmp.Name(), l.path); err != nil {
		return &models.LogIOError{Path: l.path, Op: "rewrite", Err: err}
	}
	return nil
}
