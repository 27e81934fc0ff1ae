package session

import "sync"

// CredentialStore is the durable home of the bearer credential. Durable
// storage is the source of truth; every cache layered above it is an
// optimization that must drop on change.
//
// Subscribe registers a callback fired whenever the stored credential
// changes, including external changes observed by file-backed stores. The
// callback receives the new token, or "" when the credential was cleared.
// Notification is fire-and-forget; there is no acknowledgment.
type CredentialStore interface {
	Save(token string) error
	Load() (string, error)
	Clear() error
	Subscribe(fn func(token string)) (cancel func())
}

// notifier implements the subscribe/notify half of a CredentialStore.
type notifier struct {
	mu   sync.Mutex
	next int
	subs map[int]func(string)
}

func (n *notifier) Subscribe(fn func(token string)) (cancel func()) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.subs == nil {
		n.subs = make(map[int]func(string))
	}
	id := n.next
	n.next++
	n.subs[id] = fn
	return func() {
		n.mu.Lock()
		defer n.mu.Unlock()
		delete(n.subs, id)
	}
}

func (n *notifier) notify(token string) {
	n.mu.Lock()
	subs := make([]func(string), 0, len(n.subs))
	for _, fn := range n.subs {
		subs = append(subs, fn)
	}
	n.mu.Unlock()
	for _, fn := range subs {
		fn(token)
	}
}

// MemStore keeps the credential in process memory. It backs the degraded mode
// used when durable storage is unavailable, and doubles as the test store.
type MemStore struct {
	notifier
	mu    sync.RWMutex
	token string
	set   bool
}

// NewMemStore creates an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{}
}

// Save stores the token and notifies subscribers.
func (s *MemStore) Save(token string) error {
	s.mu.Lock()
	s.token = token
	s.set = true
	s.mu.Unlock()
	s.notify(token)
	return nil
}

// Load returns the stored token or ErrNoCredential.
func (s *MemStore) Load() (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.set {
		return "", ErrNoCredential
	}
	return s.token, nil
}

// Clear removes the token and notifies subscribers with an empty token.
func (s *MemStore) Clear() error {
	s.mu.Lock()
	s.token = ""
	s.set = false
	s.mu.Unlock()
	s.notify("")
	return nil
}
