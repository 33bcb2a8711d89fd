package credential

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// FileStore serves credentials from a JSON file holding a flat array of
// records. The file is read once at construction.
type FileStore struct {
	path    string
	records map[string]BranchCredential
}

func NewFileStore(path string) (*FileStore, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read credential file %s: %w", path, err)
	}

	creds, err := ParseFile(data)
	if err != nil {
		return nil, fmt.Errorf("credential file %s: %w", path, err)
	}

	return NewMemoryStore(path, creds)
}

// NewMemoryStore builds a store from already-decoded records, rejecting
// duplicate usernames.
func NewMemoryStore(name string, creds []BranchCredential) (*FileStore, error) {
	records := make(map[string]BranchCredential, len(creds))
	for i, c := range creds {
		if strings.TrimSpace(c.Username) == "" {
			return nil, fmt.Errorf("record %d: username is required", i)
		}
		if c.PasswordHash == "" {
			return nil, fmt.Errorf("record %d (%s): password hash is required", i, c.Username)
		}
		if _, exists := records[c.Username]; exists {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateUsername, c.Username)
		}
		records[c.Username] = c
	}
	return &FileStore{path: name, records: records}, nil
}

// ParseFile decodes the credential file format.
func ParseFile(data []byte) ([]BranchCredential, error) {
	var creds []BranchCredential
	if err := json.Unmarshal(data, &creds); err != nil {
		return nil, fmt.Errorf("decode credentials: %w", err)
	}
	return creds, nil
}

func (s *FileStore) FindByUsername(_ context.Context, username string) (*BranchCredential, error) {
	c, ok := s.records[username]
	if !ok {
		return nil, ErrNotFound
	}
	return &c, nil
}

func (s *FileStore) Ping(_ context.Context) error {
	if len(s.records) == 0 {
		return fmt.Errorf("credential file %s has no records", s.path)
	}
	return nil
}

// Len reports the number of loaded records.
func (s *FileStore) Len() int {
	return len(s.records)
}
