package graph

import (
	"context"
	"errors"
	"sort"
	"sync"

	scmerrors "github.com/matzehuels/scmenrich/pkg/errors"
	"github.com/matzehuels/scmenrich/pkg/extension"
)

// ErrNotFound is returned when no record has the requested id.
var ErrNotFound = errors.New("record not found")

// Store is the content graph.
type Store interface {
	// Emit upserts rec by its id.
	Emit(ctx context.Context, rec *extension.SourceControlInfo) error

	// SetProjectImage replaces the ProjectImage of an emitted record.
	SetProjectImage(ctx context.Context, id, name string) error

	Get(ctx context.Context, id string) (*extension.SourceControlInfo, error)

	// List returns all records sorted by id.
	List(ctx context.Context) ([]*extension.SourceControlInfo, error)

	Close() error
}

// MemoryStore is an in-memory [Store]. It is safe for concurrent use.
type MemoryStore struct {
	mu   sync.RWMutex
	recs map[string]*extension.SourceControlInfo
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{recs: make(map[string]*extension.SourceControlInfo)}
}

// NewMemoryStoreFrom creates a store holding recs, as loaded from an export.
func NewMemoryStoreFrom(recs []*extension.SourceControlInfo) *MemoryStore {
	s := NewMemoryStore()
	for _, r := range recs {
		s.recs[r.ID] = r.Clone()
	}
	return s
}

func (s *MemoryStore) Emit(ctx context.Context, rec *extension.SourceControlInfo) error {
	if rec == nil || rec.ID == "" {
		return scmerrors.New(scmerrors.ErrCodeStore, "record without id")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recs[rec.ID] = rec.Clone()
	return nil
}

func (s *MemoryStore) SetProjectImage(ctx context.Context, id, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.recs[id]
	if !ok {
		return notFound(id)
	}
	rec.ProjectImage = name
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, id string) (*extension.SourceControlInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.recs[id]
	if !ok {
		return nil, notFound(id)
	}
	return rec.Clone(), nil
}

func (s *MemoryStore) List(ctx context.Context) ([]*extension.SourceControlInfo, error) {
	s.mu.RLock()
	out := make([]*extension.SourceControlInfo, 0, len(s.recs))
	for _, rec := range s.recs {
		out = append(out, rec.Clone())
	}
	s.mu.RUnlock()
	sortByID(out)
	return out, nil
}

// Len returns the number of records.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.recs)
}

func (s *MemoryStore) Close() error { return nil }

func notFound(id string) error {
	return scmerrors.Wrap(scmerrors.ErrCodeNotFound, ErrNotFound, "record %s", id)
}

func sortByID(recs []*extension.SourceControlInfo) {
	sort.Slice(recs, func(i, j int) bool { return recs[i].ID < recs[j].ID })
}
