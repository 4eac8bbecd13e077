// Package credstore persists the client's session credentials (bearer token
// plus a cached user snapshot) across process restarts.
package credstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ridelinkhq/ridelink/internal/models"
)

// Store is the durable representation of "is logged in". Both entries are
// written on every successful login and verification refresh, and cleared
// together on logout or an authoritative rejection.
type Store interface {
	// Token returns the stored session token, or "" when absent.
	Token() (string, error)

	// SetToken stores the session token.
	SetToken(token string) error

	// User returns the stored user snapshot, or nil when absent.
	User() (*models.User, error)

	// SetUser stores the user snapshot.
	SetUser(user *models.User) error

	// Clear removes both entries.
	Clear() error
}

const credentialsFile = "credentials.json"

// payload is the on-disk shape: the two opaque entries named by the wire
// contract, token and user.
type payload struct {
	Token string          `json:"token,omitempty"`
	User  json.RawMessage `json:"user,omitempty"`
}

// FileStore keeps credentials in a single 0600 JSON file inside a
// per-installation directory.
type FileStore struct {
	path string
}

// NewFileStore creates a FileStore rooted at dir. An empty dir falls back to
// <user config dir>/ridelink.
func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		base, err := os.UserConfigDir()
		if err != nil {
			return nil, fmt.Errorf("resolve config dir: %w", err)
		}
		dir = filepath.Join(base, "ridelink")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create credentials dir: %w", err)
	}
	return &FileStore{path: filepath.Join(dir, credentialsFile)}, nil
}

func (s *FileStore) read() (payload, error) {
	var p payload
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return p, nil
		}
		return p, fmt.Errorf("read credentials: %w", err)
	}
	if err := json.Unmarshal(data, &p); err != nil {
		return payload{}, fmt.Errorf("decode credentials: %w", err)
	}
	return p, nil
}

func (s *FileStore) write(p payload) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode credentials: %w", err)
	}
	// Write-then-rename so a crash mid-write never corrupts the store.
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write credentials: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace credentials: %w", err)
	}
	return nil
}

func (s *FileStore) Token() (string, error) {
	p, err := s.read()
	if err != nil {
		return "", err
	}
	return p.Token, nil
}

func (s *FileStore) SetToken(token string) error {
	p, err := s.read()
	if err != nil {
		// Start from an empty payload; losing a stale user snapshot is
		// preferable to failing the login write.
		p = payload{}
	}
	p.Token = token
	return s.write(p)
}

func (s *FileStore) User() (*models.User, error) {
	p, err := s.read()
	if err != nil {
		return nil, err
	}
	if len(p.User) == 0 {
		return nil, nil
	}
	var u models.User
	if err := json.Unmarshal(p.User, &u); err != nil {
		return nil, fmt.Errorf("decode user snapshot: %w", err)
	}
	return &u, nil
}

func (s *FileStore) SetUser(user *models.User) error {
	raw, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("encode user snapshot: %w", err)
	}
	p, readErr := s.read()
	if readErr != nil {
		p = payload{}
	}
	p.User = raw
	return s.write(p)
}

func (s *FileStore) Clear() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("clear credentials: %w", err)
	}
	return nil
}
