// Package localstore is a small file-backed key/value store used for
// state that must survive connectivity loss: pending child
// registrations and onboarding drafts. Keys live under namespaces so a
// logout can clear everything belonging to one session.
package localstore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Store persists JSON values under <dir>/<namespace>/<key>.json
type Store struct {
	dir string
	mu  sync.Mutex
}

// New creates a store rooted at dir, creating it if needed
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create local store directory: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Put writes a value under namespace/key, replacing any previous value
func (s *Store) Put(namespace, key string, value interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode value: %w", err)
	}

	dir := filepath.Join(s.dir, sanitize(namespace))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create namespace: %w", err)
	}

	if err := os.WriteFile(filepath.Join(dir, sanitize(key)+".json"), data, 0o644); err != nil {
		return fmt.Errorf("failed to write value: %w", err)
	}
	return nil
}

// Get reads the value stored under namespace/key into out. It returns
// false with no error when the key does not exist.
func (s *Store) Get(namespace, key string, out interface{}) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(filepath.Join(s.dir, sanitize(namespace), sanitize(key)+".json"))
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read value: %w", err)
	}

	if err := json.Unmarshal(data, out); err != nil {
		return false, fmt.Errorf("failed to decode value: %w", err)
	}
	return true, nil
}

// Delete removes the value under namespace/key; missing keys are not an error
func (s *Store) Delete(namespace, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(filepath.Join(s.dir, sanitize(namespace), sanitize(key)+".json"))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete value: %w", err)
	}
	return nil
}

// List returns all key/value pairs in a namespace. An absent namespace
// yields an empty map.
func (s *Store) List(namespace string) (map[string]json.RawMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := make(map[string]json.RawMessage)

	dir := filepath.Join(s.dir, sanitize(namespace))
	files, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return entries, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list namespace: %w", err)
	}

	for _, file := range files {
		name := file.Name()
		if file.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", name, err)
		}
		entries[strings.TrimSuffix(name, ".json")] = json.RawMessage(data)
	}

	return entries, nil
}

// Clear removes a whole namespace, e.g. on logout
func (s *Store) Clear(namespace string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.RemoveAll(filepath.Join(s.dir, sanitize(namespace))); err != nil {
		return fmt.Errorf("failed to clear namespace: %w", err)
	}
	return nil
}

// sanitize keeps namespace and key names filesystem-safe
func sanitize(name string) string {
	replacer := strings.NewReplacer("/", "_", "\\", "_", "..", "_", ":", "_")
	return replacer.Replace(name)
}
