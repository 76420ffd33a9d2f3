package sink

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
)

// JSONL writes records as JSON lines, either appending to a file or to a writer.
type JSONL struct {
	path string
	w    io.Writer
	mu   sync.Mutex
}

// NewJSONL appends to the file at path. A path of "-" writes to stdout.
func NewJSONL(path string) *JSONL {
	if path == "-" {
		return &JSONL{w: os.Stdout}
	}
	return &JSONL{path: path}
}

// NewJSONLWriter writes to w.
func NewJSONLWriter(w io.Writer) *JSONL {
	return &JSONL{w: w}
}

func (s *JSONL) Name() string { return "jsonl" }

// Publish appends one record as a JSON line.
func (s *JSONL) Publish(_ context.Context, rec Record) error {
	line, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.w != nil {
		_, err := s.w.Write(append(line, '\n'))
		return err
	}

	dir := filepath.Dir(s.path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}

	file, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open output file: %w", err)
	}
	defer file.Close()

	writer := bufio.NewWriter(file)
	if _, err := writer.Write(line); err != nil {
		return fmt.Errorf("write record: %w", err)
	}
	if err := writer.WriteByte('\n'); err != nil {
		return fmt.Errorf("write newline: %w", err)
	}
	if err := writer.Flush(); err != nil {
		return fmt.Errorf("flush output: %w", err)
	}
	return nil
}

func (s *JSONL) Close() error { return nil }
