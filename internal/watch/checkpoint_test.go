package watch

import (
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

func TestCheckpointRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "transfers.json")
	tokens := []common.Address{common.HexToAddress("0x02"), common.HexToAddress("0x01")}

	store := NewCheckpointStore(path, tokens)
	if _, ok, err := store.Load(); err != nil || ok {
		t.Fatalf("expected empty checkpoint, got ok=%v err=%v", ok, err)
	}
	if err := store.Save(1234); err != nil {
		t.Fatalf("save: %v", err)
	}

	reordered := NewCheckpointStore(path, []common.Address{tokens[1], tokens[0]})
	cp, ok, err := reordered.Load()
	if err != nil || !ok {
		t.Fatalf("load: ok=%v err=%v", ok, err)
	}
	if cp.LastProcessedBlock != 1234 {
		t.Fatalf("last processed mismatch: %d", cp.LastProcessedBlock)
	}

	other := NewCheckpointStore(path, []common.Address{common.HexToAddress("0x03")})
	if _, _, err := other.Load(); err == nil {
		t.Fatalf("expected error for different token set")
	}
}

func TestCheckpointDisabled(t *testing.T) {
	store := NewCheckpointStore("", nil)
	if err := store.Save(1); err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, ok, err := store.Load(); ok || err != nil {
		t.Fatalf("disabled store should load nothing")
	}
}
