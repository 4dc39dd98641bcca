package storage

import (
	"github.com/halpert/bigtuna/internal/models"
)

// Interface defines the contract for saved-strategy persistence.
//
// Implementations must be safe for concurrent use - callers can assume all
// methods are goroutine-safe and can safely call these methods from multiple
// goroutines.
//
// The provided JSONStorage implementation uses sync.RWMutex to serialize
// access, ensuring all Interface methods are protected for concurrent
// readers and writers.
type Interface interface {
	// Strategy management
	SaveStrategy(s *models.Strategy) (string, error)
	GetStrategyByID(id string) (*models.Strategy, error)
	ListStrategies() []models.Strategy
	DeleteStrategy(id string) error

	// Data persistence
	Save() error
	Load() error
}

// NewStorage creates a new storage implementation (currently JSON-based)
// In the future, this can be extended to support different storage backends
func NewStorage(filepath string) (Interface, error) {
	return NewJSONStorage(filepath)
}

// Ensure JSONStorage implements Interface
var _ Interface = (*JSONStorage)(nil)
