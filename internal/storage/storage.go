// Package storage persists saved strategies to a JSON file. Writes go
// through a temp file and an atomic rename so a crash mid-save never
// leaves a truncated store behind.
package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/halpert/bigtuna/internal/models"
)

// JSONStorage keeps the full store in memory and flushes it to disk on
// every mutation.
type JSONStorage struct {
	mu       sync.RWMutex
	filepath string
	data     *storeData
}

type storeData struct {
	Strategies  map[string]models.Strategy `json:"strategies"`
	LastUpdated time.Time                  `json:"last_updated"`
}

// NewJSONStorage opens or creates a store backed by the given file.
func NewJSONStorage(path string) (*JSONStorage, error) {
	s := &JSONStorage{
		filepath: path,
		data: &storeData{
			Strategies: make(map[string]models.Strategy),
		},
	}

	if _, err := os.Stat(path); err == nil {
		if err := s.Load(); err != nil {
			return nil, fmt.Errorf("loading storage: %w", err)
		}
	}

	return s, nil
}

// Load replaces the in-memory store with the file's contents.
func (s *JSONStorage) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.filepath)
	if err != nil {
		return err
	}

	loaded := &storeData{}
	if err := json.Unmarshal(data, loaded); err != nil {
		return fmt.Errorf("parsing storage file: %w", err)
	}
	if loaded.Strategies == nil {
		loaded.Strategies = make(map[string]models.Strategy)
	}
	s.data = loaded

	return nil
}

// Save flushes the in-memory store to disk.
func (s *JSONStorage) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveLocked()
}

func (s *JSONStorage) saveLocked() error {
	s.data.LastUpdated = time.Now().UTC()

	data, err := json.MarshalIndent(s.data, "", "  ")
	if err != nil {
		return err
	}

	if dir := filepath.Dir(s.filepath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}

	// Write to temp file first, then rename into place.
	tmpFile := s.filepath + ".tmp"
	if err := os.WriteFile(tmpFile, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmpFile, s.filepath)
}

// SaveStrategy stores a validated strategy and returns its ID, assigning
// a fresh UUID when the strategy has none.
func (s *JSONStorage) SaveStrategy(strategy *models.Strategy) (string, error) {
	if strategy == nil {
		return "", fmt.Errorf("cannot save nil strategy")
	}
	if err := strategy.Validate(); err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if strategy.ID == "" {
		strategy.ID = uuid.New().String()
	}
	s.data.Strategies[strategy.ID] = *strategy

	if err := s.saveLocked(); err != nil {
		return "", err
	}
	return strategy.ID, nil
}

// GetStrategyByID returns a copy of the saved strategy, or ErrNotFound.
func (s *JSONStorage) GetStrategyByID(id string) (*models.Strategy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	strategy, ok := s.data.Strategies[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &strategy, nil
}

// ListStrategies returns all saved strategies ordered by ID.
func (s *JSONStorage) ListStrategies() []models.Strategy {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Strategy, 0, len(s.data.Strategies))
	for _, strategy := range s.data.Strategies {
		out = append(out, strategy)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// DeleteStrategy removes a saved strategy, returning ErrNotFound when the
// ID is unknown.
func (s *JSONStorage) DeleteStrategy(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.data.Strategies[id]; !ok {
		return ErrNotFound
	}
	delete(s.data.Strategies, id)
	return s.saveLocked()
}
