// Package history persists previously used device addresses.
package history

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/renameio/v2"
)

// DefaultMaxEntries bounds the history when no explicit limit is configured.
const DefaultMaxEntries = 10

type fileFormat struct {
	Addresses []string `json:"addresses"`
}

// Store is an ordered, deduplicated address list, most recent last.
type Store struct {
	path       string
	maxEntries int

	mu        sync.Mutex
	addresses []string
}

// Open loads the history file at path. A missing file is an empty history.
func Open(path string, maxEntries int) (*Store, error) {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	s := &Store{path: path, maxEntries: maxEntries}

	content, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return s, nil
		}
		return nil, fmt.Errorf("read history %q: %w", path, err)
	}
	if strings.TrimSpace(string(content)) == "" {
		return s, nil
	}

	var payload fileFormat
	if err := json.Unmarshal(content, &payload); err != nil {
		return nil, fmt.Errorf("decode history %q: %w", path, err)
	}
	for _, address := range payload.Addresses {
		s.addresses = appendUnique(s.addresses, address)
	}
	s.addresses = trimOldest(s.addresses, maxEntries)
	return s, nil
}

// Path returns the backing file path.
func (s *Store) Path() string {
	return s.path
}

// List returns a copy of the known addresses, most recent last.
func (s *Store) List() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.addresses...)
}

// MostRecent returns the last recorded address.
func (s *Store) MostRecent() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.addresses) == 0 {
		return "", false
	}
	return s.addresses[len(s.addresses)-1], true
}

// Record moves address to the most-recent position and persists the list.
func (s *Store) Record(address string) error {
	address = strings.TrimSpace(address)
	if address == "" {
		return errors.New("history address is empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next := appendUnique(append([]string(nil), s.addresses...), address)
	next = trimOldest(next, s.maxEntries)
	if err := s.write(next); err != nil {
		return err
	}
	s.addresses = next
	return nil
}

// write persists addresses atomically. Callers hold s.mu.
func (s *Store) write(addresses []string) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("create history dir: %w", err)
	}

	data, err := json.MarshalIndent(fileFormat{Addresses: addresses}, "", "  ")
	if err != nil {
		return fmt.Errorf("encode history: %w", err)
	}

	if err := renameio.WriteFile(s.path, append(data, '\n'), 0o600); err != nil {
		return fmt.Errorf("write history %q: %w", s.path, err)
	}
	return nil
}

// appendUnique appends address, removing any earlier occurrence.
func appendUnique(addresses []string, address string) []string {
	address = strings.TrimSpace(address)
	if address == "" {
		return addresses
	}
	out := addresses[:0]
	for _, existing := range addresses {
		if existing != address {
			out = append(out, existing)
		}
	}
	return append(out, address)
}

func trimOldest(addresses []string, maxEntries int) []string {
	if len(addresses) <= maxEntries {
		return addresses
	}
	return append([]string(nil), addresses[len(addresses)-maxEntries:]...)
}
