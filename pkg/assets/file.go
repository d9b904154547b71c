package assets

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	scmerrors "github.com/matzehuels/scmenrich/pkg/errors"
)

const indexFile = "index.json"

// FileStore keeps assets on disk under dir with a JSON index at
// <dir>/index.json. The index is rewritten after every new asset, so a
// later run sees everything an interrupted one stored.
type FileStore struct {
	dir string
	index
	feed feed

	writeMu sync.Mutex
	now     func() time.Time
}

// NewFileStore opens or creates a store rooted at dir.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, scmerrors.Wrap(scmerrors.ErrCodeStore, err, "create asset dir")
	}
	s := &FileStore{dir: dir, now: time.Now}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

// Dir returns the store root.
func (s *FileStore) Dir() string { return s.dir }

func (s *FileStore) load() error {
	raw, err := os.ReadFile(filepath.Join(s.dir, indexFile))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return scmerrors.Wrap(scmerrors.ErrCodeStore, err, "read asset index")
	}
	var stored []*Asset
	if err := json.Unmarshal(raw, &stored); err != nil {
		return scmerrors.Wrap(scmerrors.ErrCodeStore, err, "decode asset index")
	}
	for _, a := range stored {
		a.Path = filepath.Join(s.dir, filepath.FromSlash(a.Path))
		s.add(a)
	}
	return nil
}

func (s *FileStore) Put(ctx context.Context, data []byte, opts PutOptions) (*Asset, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	a, err := describe(data, opts, s.now())
	if err != nil {
		return nil, err
	}
	rel := a.Path
	a.Path = filepath.Join(s.dir, filepath.FromSlash(rel))

	if prev, ok := s.lookup(a.ID); ok {
		s.feed.publish(prev, true)
		return prev, nil
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := writeAtomic(a.Path, data); err != nil {
		return nil, scmerrors.Wrap(scmerrors.ErrCodeStore, err, "write asset %s", a.Name)
	}
	stored, existing := s.add(a)
	if !existing {
		if err := s.saveIndex(); err != nil {
			return nil, err
		}
	}
	s.feed.publish(stored, existing)
	return stored, nil
}

func (s *FileStore) saveIndex() error {
	all := s.list()
	for _, a := range all {
		rel, err := filepath.Rel(s.dir, a.Path)
		if err != nil {
			return scmerrors.Wrap(scmerrors.ErrCodeStore, err, "relativize %s", a.Path)
		}
		a.Path = filepath.ToSlash(rel)
	}
	raw, err := json.MarshalIndent(all, "", "  ")
	if err != nil {
		return scmerrors.Wrap(scmerrors.ErrCodeStore, err, "encode asset index")
	}
	if err := writeAtomic(filepath.Join(s.dir, indexFile), raw); err != nil {
		return scmerrors.Wrap(scmerrors.ErrCodeStore, err, "write asset index")
	}
	return nil
}

func (s *FileStore) Get(ctx context.Context, id string) (*Asset, error) {
	return s.get(id)
}

func (s *FileStore) FindByName(ctx context.Context, name string) (*Asset, error) {
	return s.findByName(name)
}

func (s *FileStore) FindByURL(ctx context.Context, url string) (*Asset, error) {
	return s.findByURL(url)
}

func (s *FileStore) List(ctx context.Context) ([]*Asset, error) {
	return s.list(), nil
}

// Read returns the asset's bytes after checking them against its digest.
func (s *FileStore) Read(ctx context.Context, a *Asset) ([]byte, error) {
	data, err := os.ReadFile(a.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, scmerrors.Wrap(scmerrors.ErrCodeNotFound, ErrNotFound, "asset file %s", a.Path)
	}
	if err != nil {
		return nil, scmerrors.Wrap(scmerrors.ErrCodeStore, err, "read asset %s", a.Name)
	}
	if err := verify(a, data); err != nil {
		return nil, err
	}
	return data, nil
}

func (s *FileStore) Subscribe() *Subscription {
	return s.feed.subscribe()
}

// Close ends every subscription. Queued events are still delivered.
func (s *FileStore) Close() error {
	s.feed.close()
	return nil
}

func writeAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}

var _ Store = (*FileStore)(nil)
