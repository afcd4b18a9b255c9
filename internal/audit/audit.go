// Package audit records card catalog mutations to a durable append-only log.
package audit

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Card audit actions.
const (
	ActionCreate = "create"
	ActionUpdate = "update"
	ActionDelete = "delete"
	ActionError  = "error"
)

// Entry is one audit line.
type Entry struct {
	Time   time.Time
	Action string
	CardID int64
	Name   string
	Rarity string
	// Op and Err are set for ActionError entries.
	Op  string
	Err error
}

// Sink persists audit entries.
type Sink interface {
	Record(ctx context.Context, e Entry) error
}

// FileSink appends one JSON object per entry to a file.
type FileSink struct {
	mu      sync.Mutex
	file    *os.File
	handler slog.Handler
}

// OpenFileSink opens path for appending, creating it and its directory.
func OpenFileSink(path string) (*FileSink, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create audit dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open audit log: %w", err)
	}
	return &FileSink{file: f, handler: slog.NewJSONHandler(f, nil)}, nil
}

// Record writes e as a JSON line.
func (s *FileSink) Record(ctx context.Context, e Entry) error {
	if e.Time.IsZero() {
		e.Time = time.Now()
	}
	level := slog.LevelInfo
	if e.Action == ActionError {
		level = slog.LevelError
	}

	rec := slog.NewRecord(e.Time.UTC(), level, "card."+e.Action, 0)
	rec.AddAttrs(slog.String("action", e.Action))
	if e.CardID != 0 {
		rec.AddAttrs(slog.Int64("card_id", e.CardID))
	}
	if e.Name != "" {
		rec.AddAttrs(slog.String("name", e.Name))
	}
	if e.Rarity != "" {
		rec.AddAttrs(slog.String("rarity", e.Rarity))
	}
	if e.Op != "" {
		rec.AddAttrs(slog.String("op", e.Op))
	}
	if e.Err != nil {
		rec.AddAttrs(slog.String("error", e.Err.Error()))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.handler.Handle(ctx, rec); err != nil {
		return fmt.Errorf("write audit entry: %w", err)
	}
	return nil
}

// Close closes the underlying file.
func (s *FileSink) Close() error {
	return s.file.Close()
}

// MemorySink keeps entries in memory.
type MemorySink struct {
	mu      sync.Mutex
	entries []Entry
	// Err, when set, is returned by Record after the entry is dropped.
	Err error
}

func (m *MemorySink) Record(_ context.Context, e Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.entries = append(m.entries, e)
	return nil
}

// Entries returns a copy of the recorded entries.
func (m *MemorySink) Entries() []Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Entry(nil), m.entries...)
}
