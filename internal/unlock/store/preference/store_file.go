package preference

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"sync"
)

// FileStore keeps one JSON document per owner under dir. Writes go to a
// temp file that is fsynced and renamed over the original.
type FileStore struct {
	dir string
	mu  sync.RWMutex
}

type fileDocument struct {
	Owner string              `json:"owner"`
	Sets  map[string][]string `json:"sets"`
}

// NewFileStore creates dir if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create preference dir: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) path(owner string) string {
	return filepath.Join(s.dir, url.PathEscape(owner)+".json")
}

func (s *FileStore) Members(_ context.Context, owner, key string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, err := s.load(owner)
	if err != nil {
		return nil, err
	}
	return slices.Clone(doc.Sets[key]), nil
}

// MembersByKeys reads the owner document once for all keys.
func (s *FileStore) MembersByKeys(_ context.Context, owner string, keys []string) (map[string][]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, err := s.load(owner)
	if err != nil {
		return nil, err
	}
	out := make(map[string][]string, len(keys))
	for _, k := range keys {
		out[k] = slices.Clone(doc.Sets[k])
	}
	return out, nil
}

func (s *FileStore) Add(_ context.Context, owner, key, member string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.load(owner)
	if err != nil {
		return false, err
	}
	members := doc.Sets[key]
	idx, found := slices.BinarySearch(members, member)
	if found {
		return false, nil
	}
	doc.Sets[key] = slices.Insert(members, idx, member)
	if err := s.write(owner, doc); err != nil {
		return false, err
	}
	return true, nil
}

func (s *FileStore) load(owner string) (*fileDocument, error) {
	doc := &fileDocument{Owner: owner, Sets: map[string][]string{}}
	raw, err := os.ReadFile(s.path(owner))
	if errors.Is(err, fs.ErrNotExist) {
		return doc, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read preferences: %w", err)
	}
	if err := json.Unmarshal(raw, doc); err != nil {
		return nil, fmt.Errorf("decode preferences for %s: %w", owner, err)
	}
	if doc.Sets == nil {
		doc.Sets = map[string][]string{}
	}
	for k := range doc.Sets {
		slices.Sort(doc.Sets[k])
		doc.Sets[k] = slices.Compact(doc.Sets[k])
	}
	return doc, nil
}

func (s *FileStore) write(owner string, doc *fileDocument) error {
	raw, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode preferences: %w", err)
	}
	tmp, err := os.CreateTemp(s.dir, ".prefs-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp preferences: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		_ = os.Remove(tmpName)
	}()

	if _, err := tmp.Write(raw); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write preferences: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync preferences: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close preferences: %w", err)
	}
	if err := os.Rename(tmpName, s.path(owner)); err != nil {
		return fmt.Errorf("replace preferences: %w", err)
	}
	return nil
}
