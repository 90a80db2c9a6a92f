package store

import (
	"encoding/json"
	"time"

	"github.com/stride-dev/stride/internal/errors"
)

// MaxIndexEntries caps the per-project workflow index. Older entries are
// dropped on insert, not archived.
const MaxIndexEntries = 50

// indexKey is the store key for the workflow index file.
const indexKey = "index.json"

// IndexEntry is a denormalized summary of one SessionExecution, kept for
// fast history listing without opening per-session metadata files.
type IndexEntry struct {
	ExecutionID string    `json:"execution_id"`
	SessionID   string    `json:"session_id,omitempty"`
	Skill       string    `json:"skill"`
	Status      string    `json:"status"`
	Started     time.Time `json:"started"`
	Updated     time.Time `json:"updated"`
	CostUSD     float64   `json:"cost_usd,omitempty"`
}

// WorkflowIndex is the ordered history of executions for one project,
// most recent first.
type WorkflowIndex struct {
	Entries []IndexEntry `json:"entries"`
}

// LoadIndex reads the workflow index from the store. A missing index file
// yields an empty index, not an error.
func LoadIndex(fs *FileStore) (*WorkflowIndex, error) {
	data, err := fs.Load(indexKey)
	if err != nil {
		if errors.Is(err, errors.ErrNotFound) {
			return &WorkflowIndex{}, nil
		}
		return nil, err
	}

	var index WorkflowIndex
	if err := json.Unmarshal(data, &index); err != nil {
		return nil, errors.NewParseError("workflow index is not valid JSON", err)
	}
	return &index, nil
}

// SaveIndex persists the workflow index via atomic replace.
func SaveIndex(fs *FileStore, index *WorkflowIndex) error {
	data, err := json.MarshalIndent(index, "", "  ")
	if err != nil {
		return err
	}
	return fs.Save(indexKey, append(data, '\n'))
}

// Upsert inserts or updates the entry for an execution, keeping the index
// ordered most-recent-first and bounded at MaxIndexEntries. When the cap is
// exceeded, exactly the oldest entry is dropped.
func (idx *WorkflowIndex) Upsert(entry IndexEntry) {
	// Replace in place if the execution is already indexed.
	for i := range idx.Entries {
		if idx.Entries[i].ExecutionID == entry.ExecutionID {
			idx.Entries[i] = entry
			return
		}
	}

	idx.Entries = append([]IndexEntry{entry}, idx.Entries...)
	if len(idx.Entries) > MaxIndexEntries {
		idx.Entries = idx.Entries[:MaxIndexEntries]
	}
}

// Find returns the entry for the given execution id, or nil.
func (idx *WorkflowIndex) Find(executionID string) *IndexEntry {
	for i := range idx.Entries {
		if idx.Entries[i].ExecutionID == executionID {
			return &idx.Entries[i]
		}
	}
	return nil
}
