package sink

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"tradeScope/internal/model"
)

type recordingSink struct {
	name   string
	err    error
	got    []string
	closed bool
}

func (s *recordingSink) Name() string { return s.name }

func (s *recordingSink) Publish(_ context.Context, rec Record) error {
	s.got = append(s.got, rec.RecordKey())
	return s.err
}

func (s *recordingSink) Close() error {
	s.closed = true
	return nil
}

func sampleTrade() model.TradeRecord {
	return model.TradeRecord{
		TxHash:      "0xabc",
		BlockNumber: 42,
		From:        "0x01",
		Value:       "1000",
		Direction:   "buy",
		Protocols:   []string{"uniswap-v2"},
		Pools:       []string{"0x02"},
		Spent:       map[string]string{"0x03": "1000"},
		Received:    map[string]string{"0x04": "5"},
	}
}

func TestJSONLWriter(t *testing.T) {
	var buf bytes.Buffer
	s := NewJSONLWriter(&buf)
	if err := s.Publish(context.Background(), sampleTrade()); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if err := s.Publish(context.Background(), model.TransferRecord{TxHash: "0xdef", LogIndex: 3, Value: "7"}); err != nil {
		t.Fatalf("publish: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	var got model.TradeRecord
	if err := json.Unmarshal([]byte(lines[0]), &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.TxHash != "0xabc" || got.Direction != "buy" || got.Spent["0x03"] != "1000" {
		t.Fatalf("unexpected record: %+v", got)
	}
}

func TestJSONLFileAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "trades.jsonl")
	s := NewJSONL(path)
	for i := 0; i < 3; i++ {
		if err := s.Publish(context.Background(), sampleTrade()); err != nil {
			t.Fatalf("publish: %v", err)
		}
	}

	file, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer file.Close()
	count := 0
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		count++
	}
	if count != 3 {
		t.Fatalf("expected 3 lines, got %d", count)
	}
}

func TestFanoutContinuesPastFailure(t *testing.T) {
	bad := &recordingSink{name: "bad", err: errors.New("down")}
	good := &recordingSink{name: "good"}
	f := NewFanout([]Sink{bad, good}, nil, nil)

	err := f.Publish(context.Background(), sampleTrade())
	if err == nil || !strings.Contains(err.Error(), "bad: down") {
		t.Fatalf("expected joined sink error, got %v", err)
	}
	if len(good.got) != 1 || good.got[0] != "0xabc" {
		t.Fatalf("good sink not reached: %v", good.got)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if !bad.closed || !good.closed {
		t.Fatalf("expected all sinks closed")
	}
}

func TestHubBroadcast(t *testing.T) {
	hub := NewHub(nil)
	server := httptest.NewServer(hub)
	defer server.Close()
	defer hub.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for hub.Clients() != 1 {
		if time.Now().After(deadline) {
			t.Fatalf("client not registered")
		}
		time.Sleep(5 * time.Millisecond)
	}

	if err := hub.Publish(context.Background(), sampleTrade()); err != nil {
		t.Fatalf("publish: %v", err)
	}
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var got model.TradeRecord
	if err := conn.ReadJSON(&got); err != nil {
		t.Fatalf("read: %v", err)
	}
	if got.TxHash != "0xabc" {
		t.Fatalf("unexpected record: %+v", got)
	}
}
