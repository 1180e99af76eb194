package engine

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// ErrResultNotFound is returned when no stored result matches a run id.
var ErrResultNotFound = errors.New("engine: result not found")

// ResultStore keeps finished runs.
type ResultStore interface {
	Load(runID string) (Result, error)
	Save(Result) error
}

// Repository stores results as JSON files, one per run, under a directory.
type Repository struct {
	dir string
}

// NewRepository creates a repository rooted at dir.
func NewRepository(dir string) *Repository {
	return &Repository{dir: dir}
}

// Path returns the file a run is stored in.
func (r *Repository) Path(runID string) string {
	return filepath.Join(r.dir, runID+".json")
}

// Load reads a stored result.
func (r *Repository) Load(runID string) (Result, error) {
	if !validRunID(runID) {
		return Result{}, ErrResultNotFound
	}
	data, err := os.ReadFile(r.Path(runID))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Result{}, ErrResultNotFound
		}
		return Result{}, err
	}
	var result Result
	if err := json.Unmarshal(data, &result); err != nil {
		return Result{}, fmt.Errorf("engine: decode %s: %w", runID, err)
	}
	return result, nil
}

// Save writes the result to disk.
func (r *Repository) Save(result Result) error {
	if !validRunID(result.RunID) {
		return fmt.Errorf("engine: invalid run id %q", result.RunID)
	}
	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return err
	}
	encoded, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(r.Path(result.RunID), append(encoded, '\n'), 0o644)
}

// MemoryStore keeps the most recent results in memory. It is safe for
// concurrent use.
type MemoryStore struct {
	mu      sync.Mutex
	limit   int
	order   []string
	results map[string]Result
}

// NewMemoryStore keeps up to limit results; limit < 1 means 100.
func NewMemoryStore(limit int) *MemoryStore {
	if limit < 1 {
		limit = 100
	}
	return &MemoryStore{limit: limit, results: make(map[string]Result)}
}

// Load returns a stored result.
func (m *MemoryStore) Load(runID string) (Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	result, ok := m.results[runID]
	if !ok {
		return Result{}, ErrResultNotFound
	}
	return result, nil
}

// Save stores the result, evicting the oldest one past the limit.
func (m *MemoryStore) Save(result Result) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.results[result.RunID]; !exists {
		m.order = append(m.order, result.RunID)
	}
	m.results[result.RunID] = result
	for len(m.order) > m.limit {
		delete(m.results, m.order[0])
		m.order = m.order[1:]
	}
	return nil
}

func validRunID(id string) bool {
	return id != "" && !strings.ContainsAny(id, `/\.`)
}
