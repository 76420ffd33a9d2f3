package postgres

import (
	"context"
	"testing"

	"tradeScope/internal/model"
)

func TestCursorWithoutStore(t *testing.T) {
	var c *Cursor
	if _, ok, err := c.Load(context.Background()); ok || err != nil {
		t.Fatalf("nil cursor should load nothing, got ok=%v err=%v", ok, err)
	}
	if err := (&Cursor{Name: "transfers"}).Save(context.Background(), 10); err != nil {
		t.Fatalf("save without store: %v", err)
	}
}

func TestNewStoreRequiresDSN(t *testing.T) {
	if _, err := NewStore(context.Background(), "", 1); err == nil {
		t.Fatalf("expected error for empty dsn")
	}
}

func TestEmptyBatchesSkipDatabase(t *testing.T) {
	s := &Store{}
	if err := s.UpsertTrades(context.Background(), nil); err != nil {
		t.Fatalf("upsert trades: %v", err)
	}
	if err := s.UpsertTransfers(context.Background(), []model.TransferRecord{}); err != nil {
		t.Fatalf("upsert transfers: %v", err)
	}
	if err := s.Publish(context.Background(), unknownRecord{}); err == nil {
		t.Fatalf("expected unsupported record error")
	}
}

type unknownRecord struct{}

func (unknownRecord) RecordKey() string { return "x" }
