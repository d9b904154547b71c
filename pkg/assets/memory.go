package assets

import (
	"context"
	"sync"
	"time"

	scmerrors "github.com/matzehuels/scmenrich/pkg/errors"
)

// MemoryStore is a [Store] that keeps everything in memory. Used by tests
// and dry runs.
type MemoryStore struct {
	index
	feed feed

	dataMu sync.RWMutex
	data   map[string][]byte
	now    func() time.Time
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string][]byte), now: time.Now}
}

func (s *MemoryStore) Put(ctx context.Context, data []byte, opts PutOptions) (*Asset, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	a, err := describe(data, opts, s.now())
	if err != nil {
		return nil, err
	}
	a.Path = "memory/" + a.Path

	s.dataMu.Lock()
	if _, ok := s.data[a.ID]; !ok {
		s.data[a.ID] = append([]byte(nil), data...)
	}
	s.dataMu.Unlock()

	stored, existing := s.add(a)
	s.feed.publish(stored, existing)
	return stored, nil
}

func (s *MemoryStore) Get(ctx context.Context, id string) (*Asset, error) {
	return s.get(id)
}

func (s *MemoryStore) FindByName(ctx context.Context, name string) (*Asset, error) {
	return s.findByName(name)
}

func (s *MemoryStore) FindByURL(ctx context.Context, url string) (*Asset, error) {
	return s.findByURL(url)
}

func (s *MemoryStore) List(ctx context.Context) ([]*Asset, error) {
	return s.list(), nil
}

func (s *MemoryStore) Read(ctx context.Context, a *Asset) ([]byte, error) {
	s.dataMu.RLock()
	data, ok := s.data[a.ID]
	s.dataMu.RUnlock()
	if !ok {
		return nil, scmerrors.Wrap(scmerrors.ErrCodeNotFound, ErrNotFound, "asset %s", a.ID)
	}
	return append([]byte(nil), data...), nil
}

func (s *MemoryStore) Subscribe() *Subscription {
	return s.feed.subscribe()
}

func (s *MemoryStore) Close() error {
	s.feed.close()
	return nil
}

var _ Store = (*MemoryStore)(nil)
