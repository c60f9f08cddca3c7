package service

import (
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/randolphmevaa/ecologyb-sub009/config"
	"github.com/randolphmevaa/ecologyb-sub009/model"
)

// DossierStore is the in-memory cache of dossier records fetched from the
// upstream CRM. Each dossier has up to two copies: the last server-
// acknowledged record (confirmed) and an optimistic local copy awaiting
// acknowledgement (pending). Reads see pending first so the UI reflects a
// mutation immediately; a failed mutation rolls back to confirmed.
type DossierStore struct {
	confirmed   map[string]*model.Dossier
	pending     map[string]*model.Dossier
	mu          sync.RWMutex
	maxDossiers int // Maximum dossiers to keep, 0 = unlimited
}

var (
	globalStore *DossierStore
	storeOnce   sync.Once
)

// InitDossierStore initializes the global dossier store with configuration
func InitDossierStore(cfg *config.StoreConfig) {
	storeOnce.Do(func() {
		maxDossiers := cfg.MaxDossiers
		if maxDossiers < 0 {
			maxDossiers = 0
		}
		globalStore = &DossierStore{
			confirmed:   make(map[string]*model.Dossier),
			pending:     make(map[string]*model.Dossier),
			maxDossiers: maxDossiers,
		}
		slog.Info("dossier store initialized", "max_dossiers", maxDossiers)
	})
}

// GetDossierStore returns the global dossier store
func GetDossierStore() *DossierStore {
	if globalStore == nil {
		// Fallback initialization with default settings
		globalStore = &DossierStore{
			confirmed:   make(map[string]*model.Dossier),
			pending:     make(map[string]*model.Dossier),
			maxDossiers: 500,
		}
	}
	return globalStore
}

// Confirm stores a server-acknowledged record and drops any pending copy
func (s *DossierStore) Confirm(d *model.Dossier) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d.UpdatedAt = time.Now()
	s.confirmed[d.ID] = d
	delete(s.pending, d.ID)

	s.cleanupIfNeeded()
}

// SetPending stores an optimistic local copy ahead of the network round trip
func (s *DossierStore) SetPending(d *model.Dossier) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending[d.ID] = d
}

// Rollback discards the pending copy, restoring the last confirmed state
func (s *DossierStore) Rollback(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.pending, id)
}

// Get returns the pending copy if one exists, else the confirmed record
func (s *DossierStore) Get(id string) *model.Dossier {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if d, ok := s.pending[id]; ok {
		return d
	}
	return s.confirmed[id]
}

// GetConfirmed returns the last server-acknowledged record
func (s *DossierStore) GetConfirmed(id string) *model.Dossier {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.confirmed[id]
}

// All returns every dossier, with pending copies overlaying confirmed ones
func (s *DossierStore) All() []*model.Dossier {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*model.Dossier, 0, len(s.confirmed))
	for id, d := range s.confirmed {
		if p, ok := s.pending[id]; ok {
			result = append(result, p)
			continue
		}
		result = append(result, d)
	}
	return result
}

// KnownProjectTypes collects the distinct project-type labels present in the
// confirmed records, sorted. Used to populate the line-item type dropdown
// from live data.
func (s *DossierStore) KnownProjectTypes() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]struct{})
	for _, d := range s.confirmed {
		for _, t := range d.Projet {
			if t != "" {
				seen[t] = struct{}{}
			}
		}
	}

	types := make([]string, 0, len(seen))
	for t := range seen {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// cleanupIfNeeded removes the oldest confirmed dossiers if the store exceeds
// maxDossiers. Must be called with lock held.
func (s *DossierStore) cleanupIfNeeded() {
	if s.maxDossiers <= 0 {
		return // Unlimited
	}

	if len(s.confirmed) <= s.maxDossiers {
		return
	}

	dossiers := make([]*model.Dossier, 0, len(s.confirmed))
	for _, d := range s.confirmed {
		dossiers = append(dossiers, d)
	}
	sort.Slice(dossiers, func(i, j int) bool {
		return dossiers[i].UpdatedAt.Before(dossiers[j].UpdatedAt)
	})

	removeCount := len(dossiers) - s.maxDossiers
	for i := 0; i < removeCount; i++ {
		slog.Info("evicting old dossier from cache",
			"dossier_id", dossiers[i].ID,
			"updated_at", dossiers[i].UpdatedAt,
		)
		delete(s.confirmed, dossiers[i].ID)
		delete(s.pending, dossiers[i].ID)
	}
}

// Delete removes a dossier and any pending copy
func (s *DossierStore) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.confirmed, id)
	delete(s.pending, id)
}

// Count returns the number of confirmed dossiers in the store
func (s *DossierStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.confirmed)
}
