package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

const credentialFile = "credential.json"

type storedCredential struct {
	AccessToken string    `json:"access_token"`
	SavedAt     time.Time `json:"saved_at"`
}

// FileStore persists the credential as a JSON file so every process ("tab")
// pointed at the same directory shares one session. External writes and
// removals are observed through fsnotify and pushed to subscribers, the
// filesystem analogue of a browser storage event.
//
// When the directory cannot be created or written, the store degrades to
// in-memory for the lifetime of the process instead of failing.
type FileStore struct {
	notifier
	mu       sync.Mutex
	path     string
	last     string
	degraded bool
	mem      string
	memSet   bool
	watcher  *fsnotify.Watcher
	closed   chan struct{}
}

// NewFileStore creates a store rooted at dir. An empty dir defaults to
// ~/.sevasetu.
func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolve home directory: %w", err)
		}
		dir = filepath.Join(home, ".sevasetu")
	}

	s := &FileStore{closed: make(chan struct{})}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		// Durable storage unavailable: degraded mode, not an error.
		s.degraded = true
		return s, nil
	}
	s.path = filepath.Join(dir, credentialFile)
	if token, err := s.readFile(); err == nil {
		s.last = token
	}

	watcher, err := fsnotify.NewWatcher()
	if err == nil {
		if err := watcher.Add(dir); err == nil {
			s.watcher = watcher
			go s.watch()
		} else {
			_ = watcher.Close()
		}
	}

	return s, nil
}

// Save writes the credential to disk and notifies subscribers.
func (s *FileStore) Save(token string) error {
	s.mu.Lock()
	if !s.degraded {
		if err := s.writeFile(token); err != nil {
			s.degraded = true
		}
	}
	if s.degraded {
		s.mem = token
		s.memSet = true
	}
	s.last = token
	s.mu.Unlock()

	s.notify(token)
	return nil
}

// Load returns the persisted credential or ErrNoCredential.
func (s *FileStore) Load() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.degraded {
		if !s.memSet || s.mem == "" {
			return "", ErrNoCredential
		}
		return s.mem, nil
	}
	return s.readFile()
}

// Clear removes the credential and notifies subscribers with an empty token.
func (s *FileStore) Clear() error {
	s.mu.Lock()
	s.mem = ""
	s.memSet = false
	s.last = ""
	var err error
	if !s.degraded && s.path != "" {
		if removeErr := os.Remove(s.path); removeErr != nil && !errors.Is(removeErr, os.ErrNotExist) {
			err = fmt.Errorf("remove credential file: %w", removeErr)
		}
	}
	s.mu.Unlock()

	s.notify("")
	return err
}

// Close stops the change watcher. The store stays usable without it.
func (s *FileStore) Close() error {
	select {
	case <-s.closed:
		return nil
	default:
	}
	close(s.closed)
	if s.watcher != nil {
		return s.watcher.Close()
	}
	return nil
}

func (s *FileStore) watch() {
	for {
		select {
		case <-s.closed:
			return
		case ev, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(ev.Name) != credentialFile {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) &&
				!ev.Has(fsnotify.Remove) && !ev.Has(fsnotify.Rename) {
				continue
			}
			token, err := s.readFileLocked()
			if err != nil {
				token = ""
			}
			s.mu.Lock()
			changed := token != s.last
			if changed {
				s.last = token
			}
			s.mu.Unlock()
			if changed {
				s.notify(token)
			}
		case _, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
		}
	}
}

// readFile expects s.mu held.
func (s *FileStore) readFile() (string, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", ErrNoCredential
		}
		return "", fmt.Errorf("read credential file: %w", err)
	}
	var cred storedCredential
	if err := json.Unmarshal(data, &cred); err != nil {
		return "", fmt.Errorf("decode credential file: %w", err)
	}
	if cred.AccessToken == "" {
		return "", ErrNoCredential
	}
	return cred.AccessToken, nil
}

// readFileLocked takes the lock itself; used from the watcher goroutine.
func (s *FileStore) readFileLocked() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readFile()
}

// writeFile expects s.mu held.
func (s *FileStore) writeFile(token string) error {
	data, err := json.MarshalIndent(storedCredential{AccessToken: token, SavedAt: time.Now()}, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal credential: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write credential file: %w", err)
	}
	return os.Rename(tmp, s.path)
}
