package sdk

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// storeFileName is the well-known key under which the access credential is
// persisted. Absence of the file is the canonical "logged out" state; no
// separate flag is kept.
const storeFileName = "access_token"

// CredentialStore holds the current access credential between runs.
//
// Implementations carry no validation logic and no side effects beyond the
// storage medium. All methods are safe for concurrent use.
type CredentialStore interface {
	// Get returns the stored credential, or ok=false when none is stored.
	Get() (token string, ok bool)

	// Set replaces the stored credential.
	Set(token string) error

	// Clear removes the stored credential. Clearing an empty store is not
	// an error.
	Clear() error
}

// MemoryStore is an ephemeral CredentialStore for tests and short-lived
// processes.
type MemoryStore struct {
	mu    sync.Mutex
	token string
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Get() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token, s.token != ""
}

func (s *MemoryStore) Set(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	return nil
}

func (s *MemoryStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
	return nil
}

// FileStore persists the credential as a single file under the user config
// directory. Writes go through a temp file and rename so a crashed process
// never leaves a torn credential behind.
type FileStore struct {
	mu   sync.Mutex
	path string
}

// NewFileStore opens a file-backed store. An empty path selects the default
// location under os.UserConfigDir.
func NewFileStore(path string) (*FileStore, error) {
	if path == "" {
		dir, err := os.UserConfigDir()
		if err != nil {
			return nil, err
		}
		path = filepath.Join(dir, "cadenafria", storeFileName)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, err
	}
	return &FileStore{path: path}, nil
}

// Path returns the location of the credential file.
func (s *FileStore) Path() string {
	return s.path
}

func (s *FileStore) Get() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, err := os.ReadFile(s.path)
	if err != nil {
		return "", false
	}
	token := strings.TrimSpace(string(data))
	return token, token != ""
}

func (s *FileStore) Set(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, []byte(token), 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}

func (s *FileStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := os.Remove(s.path)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
