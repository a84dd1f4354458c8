package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrNoBlob is returned when a slot has no stored session.
var ErrNoBlob = errors.New("no stored session")

// Store reads and writes session blobs under a directory.
// Each blob is a JSON object of cookie names to values, stored at
// <dir>/session-<username>.
type Store struct {
	dir string
}

// NewStore returns a Store rooted at dir.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// Path returns the blob location for username.
func (s *Store) Path(username string) string {
	return filepath.Join(s.dir, "session-"+username)
}

// Load reads the cookies stored for username.
func (s *Store) Load(username string) (map[string]string, error) {
	data, err := os.ReadFile(s.Path(username))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", username, ErrNoBlob)
	}
	if err != nil {
		return nil, fmt.Errorf("read session: %w", err)
	}

	var cookies map[string]string
	if err := json.Unmarshal(data, &cookies); err != nil {
		return nil, fmt.Errorf("parse session %s: %w", s.Path(username), err)
	}
	if strings.TrimSpace(cookies["sessionid"]) == "" {
		return nil, fmt.Errorf("session %s has no sessionid", s.Path(username))
	}
	return cookies, nil
}

// Save writes cookies for username, replacing any existing blob.
func (s *Store) Save(username string, cookies map[string]string) error {
	if username == "" {
		return errors.New("empty username")
	}
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return fmt.Errorf("create session directory: %w", err)
	}
	data, err := json.MarshalIndent(cookies, "", "  ")
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}

	tmp := s.Path(username) + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	if err := os.Rename(tmp, s.Path(username)); err != nil {
		return fmt.Errorf("install session: %w", err)
	}
	return nil
}
