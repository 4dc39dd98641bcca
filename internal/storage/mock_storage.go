package storage

import (
	"fmt"
	"sort"

	"github.com/halpert/bigtuna/internal/models"
)

// MockStorage implements Interface for testing
type MockStorage struct {
	saveError     error
	loadError     error
	strategies    map[string]models.Strategy
	saveCallCount int
	loadCallCount int
	nextID        int
}

// NewMockStorage creates a new mock storage for testing
func NewMockStorage() *MockStorage {
	return &MockStorage{
		strategies: make(map[string]models.Strategy),
	}
}

// Strategy management methods
func (m *MockStorage) SaveStrategy(s *models.Strategy) (string, error) {
	if s == nil {
		return "", fmt.Errorf("cannot save nil strategy")
	}
	if err := s.Validate(); err != nil {
		return "", err
	}
	if m.saveError != nil {
		return "", m.saveError
	}
	if s.ID == "" {
		m.nextID++
		s.ID = fmt.Sprintf("mock-%d", m.nextID)
	}
	m.strategies[s.ID] = *s
	return s.ID, nil
}

func (m *MockStorage) GetStrategyByID(id string) (*models.Strategy, error) {
	s, ok := m.strategies[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &s, nil
}

func (m *MockStorage) ListStrategies() []models.Strategy {
	out := make([]models.Strategy, 0, len(m.strategies))
	for _, s := range m.strategies {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (m *MockStorage) DeleteStrategy(id string) error {
	if _, ok := m.strategies[id]; !ok {
		return ErrNotFound
	}
	delete(m.strategies, id)
	return nil
}

// Data persistence methods (mocked)
func (m *MockStorage) Save() error {
	m.saveCallCount++
	return m.saveError
}

func (m *MockStorage) Load() error {
	m.loadCallCount++
	return m.loadError
}

// Mock control methods for testing
func (m *MockStorage) SetSaveError(err error) {
	m.saveError = err
}

func (m *MockStorage) SetLoadError(err error) {
	m.loadError = err
}

func (m *MockStorage) GetSaveCallCount() int {
	return m.saveCallCount
}

func (m *MockStorage) GetLoadCallCount() int {
	return m.loadCallCount
}

// Ensure MockStorage implements Interface
var _ Interface = (*MockStorage)(nil)
