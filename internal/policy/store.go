package policy

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Store persists the policy document as a single JSON file. Load returns
// an empty document when the file does not exist yet.
type Store struct {
	path string
	mu   sync.Mutex
}

// NewStore creates a store backed by the given file path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Load reads the full policy document.
func (s *Store) Load() (*RouterPolicy, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return Empty(), nil
		}
		return nil, fmt.Errorf("failed to read policy %s: %w", s.path, err)
	}

	p := Empty()
	if err := json.Unmarshal(data, p); err != nil {
		return nil, fmt.Errorf("failed to parse policy %s: %w", s.path, err)
	}
	if p.Devices == nil {
		p.Devices = []Device{}
	}
	if p.DomainBypasses == nil {
		p.DomainBypasses = []DomainBypass{}
	}
	return p, nil
}

// Save writes the full policy document, creating parent directories as
// needed. The write goes through a temp file and rename so a crash never
// leaves a truncated document.
func (s *Store) Save(p *RouterPolicy) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("failed to create policy dir: %w", err)
	}

	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode policy: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write policy: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("failed to replace policy: %w", err)
	}
	return nil
}
