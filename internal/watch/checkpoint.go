package watch

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Checkpoint tracks the last block scanned for a set of tokens.
type Checkpoint struct {
	LastProcessedBlock uint64   `json:"last_processed_block"`
	Tokens             []string `json:"tokens"`
	UpdatedAt          string   `json:"updated_at"`
}

// CheckpointStore persists transfer watch progress to disk. An empty path
// disables it.
type CheckpointStore struct {
	path   string
	tokens []string
}

func NewCheckpointStore(path string, tokens []common.Address) *CheckpointStore {
	keys := make([]string, 0, len(tokens))
	for _, token := range tokens {
		keys = append(keys, strings.ToLower(token.Hex()))
	}
	sort.Strings(keys)
	return &CheckpointStore{path: path, tokens: keys}
}

func (c *CheckpointStore) enabled() bool {
	return c != nil && c.path != ""
}

// Load returns the saved checkpoint. A checkpoint written for a different
// token set is an error rather than a silent restart.
func (c *CheckpointStore) Load() (Checkpoint, bool, error) {
	if !c.enabled() {
		return Checkpoint{}, false, nil
	}

	stat, err := os.Stat(c.path)
	if err != nil {
		if os.IsNotExist(err) {
			return Checkpoint{}, false, nil
		}
		return Checkpoint{}, false, fmt.Errorf("stat checkpoint: %w", err)
	}
	if stat.IsDir() {
		return Checkpoint{}, false, fmt.Errorf("checkpoint path is a directory")
	}

	data, err := os.ReadFile(c.path)
	if err != nil {
		return Checkpoint{}, false, fmt.Errorf("read checkpoint: %w", err)
	}

	var cp Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return Checkpoint{}, false, fmt.Errorf("parse checkpoint: %w", err)
	}
	if strings.Join(cp.Tokens, ",") != strings.Join(c.tokens, ",") {
		return Checkpoint{}, false, fmt.Errorf("checkpoint %s was written for tokens %v", c.path, cp.Tokens)
	}

	return cp, true, nil
}

func (c *CheckpointStore) Save(lastProcessed uint64) error {
	if !c.enabled() {
		return nil
	}

	dir := filepath.Dir(c.path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create checkpoint dir: %w", err)
		}
	}

	cp := Checkpoint{
		LastProcessedBlock: lastProcessed,
		Tokens:             c.tokens,
		UpdatedAt:          time.Now().UTC().Format(time.RFC3339Nano),
	}
	data, err := json.Marshal(cp)
	if err != nil {
		return fmt.Errorf("marshal checkpoint: %w", err)
	}

	tmpPath := c.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("write checkpoint tmp: %w", err)
	}
	if err := os.Rename(tmpPath, c.path); err != nil {
		return fmt.Errorf("rename checkpoint: %w", err)
	}

	return nil
}

// Cursor persists the last block a transfer watch fully scanned.
type Cursor interface {
	Load(ctx context.Context) (uint64, bool, error)
	Save(ctx context.Context, lastProcessed uint64) error
}

type fileCursor struct {
	store *CheckpointStore
}

// FileCursor adapts a CheckpointStore to Cursor.
func FileCursor(store *CheckpointStore) Cursor {
	return fileCursor{store: store}
}

func (c fileCursor) Load(context.Context) (uint64, bool, error) {
	cp, ok, err := c.store.Load()
	return cp.LastProcessedBlock, ok, err
}

func (c fileCursor) Save(_ context.Context, lastProcessed uint64) error {
	return c.store.Save(lastProcessed)
}
