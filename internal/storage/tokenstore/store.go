// Package tokenstore persists the single credential token the client keeps locally.
package tokenstore

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/pkg/errors"
)

const defaultFileName = "token.json"

// Store keeps the bearer token in a JSON file.
type Store struct {
	path string

	mu     sync.Mutex
	cached *State
}

// State is the persisted credential.
type State struct {
	Token   string    `json:"token"`
	SavedAt time.Time `json:"saved_at"`
}

// New creates a store at path. A directory path gets the default file name.
func New(path string) (*Store, error) {
	if path == "" {
		return nil, errors.New("token path is empty")
	}
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		path = filepath.Join(path, defaultFileName)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, errors.Wrap(err, "create token dir")
	}
	return &Store{path: path}, nil
}

// Path returns the token file location.
func (s *Store) Path() string {
	return s.path
}

// Load reads the token state; a missing file yields nil.
func (s *Store) Load() (*State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

func (s *Store) load() (*State, error) {
	if s.cached != nil {
		st := *s.cached
		return &st, nil
	}

	payload, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "read token")
	}
	if len(payload) == 0 {
		return nil, nil
	}

	var st State
	if err := json.Unmarshal(payload, &st); err != nil {
		return nil, errors.Wrap(err, "decode token")
	}
	s.cached = &st
	out := st
	return &out, nil
}

// Save writes the token atomically via a temp file.
func (s *Store) Save(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := State{Token: token, SavedAt: time.Now().UTC()}
	payload, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encode token")
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, payload, 0o600); err != nil {
		return errors.Wrap(err, "write token temp file")
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return errors.Wrap(err, "persist token")
	}
	s.cached = &st
	return nil
}

// Clear removes the token.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cached = nil
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return errors.Wrap(err, "remove token")
	}
	return nil
}

// Token implements clients.TokenSource. No token is not an error.
func (s *Store) Token() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.load()
	if err != nil || st == nil {
		return "", err
	}
	return st.Token, nil
}
