package storage

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/halpert/bigtuna/internal/models"
)

func validStrategy(name string) *models.Strategy {
	return &models.Strategy{
		Name: name,
		Legs: []models.Leg{{
			Kind:         models.KindCall,
			Side:         models.SideLong,
			Quantity:     1,
			Strike:       100,
			Expiration:   time.Now().UTC().AddDate(0, 0, 30),
			EntryPremium: 3,
			ImpliedVol:   0.25,
		}},
		SpotPrice: 100,
		AsOf:      time.Now().UTC(),
	}
}

func TestJSONStorage_SaveAndGet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "strategies.json")
	s, err := NewJSONStorage(path)
	if err != nil {
		t.Fatalf("NewJSONStorage failed: %v", err)
	}

	id, err := s.SaveStrategy(validStrategy("long call"))
	if err != nil {
		t.Fatalf("SaveStrategy failed: %v", err)
	}
	if id == "" {
		t.Fatal("expected a generated ID")
	}

	got, err := s.GetStrategyByID(id)
	if err != nil {
		t.Fatalf("GetStrategyByID failed: %v", err)
	}
	if got.Name != "long call" || len(got.Legs) != 1 {
		t.Errorf("loaded strategy = %+v", got)
	}
}

func TestJSONStorage_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "strategies.json")
	s, err := NewJSONStorage(path)
	if err != nil {
		t.Fatalf("NewJSONStorage failed: %v", err)
	}

	id, err := s.SaveStrategy(validStrategy("persisted"))
	if err != nil {
		t.Fatalf("SaveStrategy failed: %v", err)
	}

	// A fresh store against the same file sees the saved strategy.
	reopened, err := NewJSONStorage(path)
	if err != nil {
		t.Fatalf("reopening storage failed: %v", err)
	}
	got, err := reopened.GetStrategyByID(id)
	if err != nil {
		t.Fatalf("GetStrategyByID after reopen failed: %v", err)
	}
	if got.Name != "persisted" {
		t.Errorf("name = %q after reopen", got.Name)
	}
	if got.Legs[0].Strike != 100 {
		t.Errorf("leg strike = %v after reopen", got.Legs[0].Strike)
	}
}

func TestJSONStorage_ListAndDelete(t *testing.T) {
	path := filepath.Join(t.TempDir(), "strategies.json")
	s, err := NewJSONStorage(path)
	if err != nil {
		t.Fatalf("NewJSONStorage failed: %v", err)
	}

	idA, _ := s.SaveStrategy(validStrategy("a"))
	idB, _ := s.SaveStrategy(validStrategy("b"))

	if got := s.ListStrategies(); len(got) != 2 {
		t.Fatalf("ListStrategies returned %d, expected 2", len(got))
	}

	if err := s.DeleteStrategy(idA); err != nil {
		t.Fatalf("DeleteStrategy failed: %v", err)
	}
	if _, err := s.GetStrategyByID(idA); !errors.Is(err, ErrNotFound) {
		t.Errorf("deleted strategy still readable: %v", err)
	}
	if _, err := s.GetStrategyByID(idB); err != nil {
		t.Errorf("surviving strategy unreadable: %v", err)
	}

	if err := s.DeleteStrategy("nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("deleting unknown ID = %v, expected ErrNotFound", err)
	}
}

func TestJSONStorage_RejectsInvalidStrategy(t *testing.T) {
	path := filepath.Join(t.TempDir(), "strategies.json")
	s, err := NewJSONStorage(path)
	if err != nil {
		t.Fatalf("NewJSONStorage failed: %v", err)
	}

	if _, err := s.SaveStrategy(&models.Strategy{SpotPrice: 100}); err == nil {
		t.Error("expected validation error for legless strategy")
	}
	if _, err := s.SaveStrategy(nil); err == nil {
		t.Error("expected error for nil strategy")
	}
}

func TestJSONStorage_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "strategies.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := NewJSONStorage(path); err == nil {
		t.Error("expected error opening a corrupt store")
	}
}

func TestJSONStorage_CreatesParentDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "strategies.json")
	s, err := NewJSONStorage(path)
	if err != nil {
		t.Fatalf("NewJSONStorage failed: %v", err)
	}
	if _, err := s.SaveStrategy(validStrategy("nested")); err != nil {
		t.Fatalf("SaveStrategy failed: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("store file not created: %v", err)
	}
}

func TestMockStorage(t *testing.T) {
	m := NewMockStorage()

	id, err := m.SaveStrategy(validStrategy("mock"))
	if err != nil {
		t.Fatalf("SaveStrategy failed: %v", err)
	}
	if _, err := m.GetStrategyByID(id); err != nil {
		t.Errorf("GetStrategyByID failed: %v", err)
	}

	m.SetSaveError(errors.New("disk full"))
	if _, err := m.SaveStrategy(validStrategy("boom")); err == nil {
		t.Error("expected injected save error")
	}
	if err := m.Save(); err == nil {
		t.Error("expected injected save error from Save")
	}
	if m.GetSaveCallCount() != 1 {
		t.Errorf("save call count = %d, expected 1", m.GetSaveCallCount())
	}
}
