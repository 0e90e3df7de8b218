package session

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/bumaview/bumaview-go/kv"
)

const snapshotKey = "bumaview.auth_snapshot"

// User is the last-known identity carried in the auth snapshot.
type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

// Snapshot is the persisted auth state used for warm starts: the identity
// shown while the session is being re-established and the refresh
// credential that re-establishes it.
type Snapshot struct {
	User         User      `json:"user"`
	RefreshToken string    `json:"refreshToken"`
	SavedAt      time.Time `json:"savedAt"`
}

// SnapshotStore persists the auth snapshot to a longer-lived kv.Store.
//
// Consumers must not trust authentication state before hydration
// completes: Current reports nothing until Hydrate or Save has run.
type SnapshotStore struct {
	mu       sync.RWMutex
	store    kv.Store
	current  *Snapshot
	hydrated bool
}

func NewSnapshotStore(store kv.Store) (*SnapshotStore, error) {
	if store == nil {
		return nil, errors.New("[NewSnapshotStore] store is required")
	}
	return &SnapshotStore{store: store}, nil
}

// Hydrate loads the persisted snapshot and marks hydration complete.
// Returns ErrNoSnapshot when nothing was persisted; hydration is still
// complete in that case (the answer is "not authenticated").
func (s *SnapshotStore) Hydrate() (*Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.hydrated = true
	raw, ok := s.store.Get(snapshotKey)
	if !ok {
		s.current = nil
		return nil, ErrNoSnapshot
	}

	var snap Snapshot
	if err := json.Unmarshal([]byte(raw), &snap); err != nil {
		// Unreadable snapshot: drop it rather than block startup.
		_ = s.store.Remove(snapshotKey)
		s.current = nil
		return nil, ErrNoSnapshot
	}
	s.current = &snap
	return &snap, nil
}

// Hydrated reports whether the persisted state has been read. Callers
// must not trust Current (and by extension any is-authenticated answer
// derived from it) before this is true.
func (s *SnapshotStore) Hydrated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.hydrated
}

// Current returns the in-memory snapshot. ok is false until hydration
// completes or a snapshot is saved.
func (s *SnapshotStore) Current() (*Snapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.hydrated || s.current == nil {
		return nil, false
	}
	return s.current, true
}

// Save persists a new snapshot and marks hydration complete (fresh state
// is as authoritative as anything loaded from disk).
func (s *SnapshotStore) Save(snap Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.Marshal(snap)
	if err != nil {
		return errors.Wrap(err, "[SnapshotStore.Save] marshal")
	}
	if err := s.store.Set(snapshotKey, string(data)); err != nil {
		return errors.Wrap(err, "[SnapshotStore.Save] persist")
	}
	s.current = &snap
	s.hydrated = true
	return nil
}

// Clear removes the persisted snapshot. Idempotent.
func (s *SnapshotStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.current = nil
	if err := s.store.Remove(snapshotKey); err != nil {
		return errors.Wrap(err, "[SnapshotStore.Clear] remove")
	}
	return nil
}
