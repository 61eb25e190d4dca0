package credential

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Store holds the bearer token in one of two scopes.
// The long-lived scope survives restarts, the session scope lives in memory.
type Store interface {
	// Token returns the stored token, preferring the long-lived scope
	Token() (string, bool)

	// Scoped returns the token of one scope
	Scoped(remember bool) (string, bool)

	// Save stores the token in the long-lived scope if remember is true, otherwise in the session scope
	Save(token string, remember bool) error

	// Forget removes the token of one scope
	Forget(remember bool) error

	// Clear removes the token from both scopes
	Clear() error
}

// scopes lists the scopes in order of preference
var scopes = []bool{true, false}

// Discard forgets tok in every scope holding it. Other scopes are left alone.
func Discard(store Store, tok string) error {
	for _, remember := range scopes {
		if stored, ok := store.Scoped(remember); ok && stored == tok {
			if err := store.Forget(remember); err != nil {
				return err
			}
		}
	}

	return nil
}

// FileStore is a Store that keeps the long-lived token in a file
type FileStore struct {
	path    string
	lock    sync.RWMutex
	session string
}

// NewFileStore returns a store using path for remembered tokens
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Token returns the remembered token, falling back to the session token
func (f *FileStore) Token() (string, bool) {
	if tok, ok := f.Scoped(true); ok {
		return tok, true
	}

	return f.Scoped(false)
}

// Scoped returns the remembered token from the file, or the session token
func (f *FileStore) Scoped(remember bool) (string, bool) {
	if remember {
		b, err := os.ReadFile(f.path)
		if err != nil {
			return "", false
		}

		tok := strings.TrimSpace(string(b))
		return tok, tok != ""
	}

	f.lock.RLock()
	defer f.lock.RUnlock()

	return f.session, f.session != ""
}

// Save stores the token
func (f *FileStore) Save(token string, remember bool) error {
	if !remember {
		f.lock.Lock()
		f.session = token
		f.lock.Unlock()
		return nil
	}

	if dir := filepath.Dir(f.path); dir != "" {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return err
		}
	}

	return os.WriteFile(f.path, []byte(token+"\n"), 0600)
}

// Clear removes the token from both scopes
func (f *FileStore) Clear() error {
	if err := f.Forget(false); err != nil {
		return err
	}

	return f.Forget(true)
}

// Forget removes the token of one scope. Forgetting the remembered token removes the file.
func (f *FileStore) Forget(remember bool) error {
	if !remember {
		f.lock.Lock()
		f.session = ""
		f.lock.Unlock()
		return nil
	}

	if err := os.Remove(f.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}

	return nil
}

// MemoryStore is a Store without persistence, used by tests and embedded clients
type MemoryStore struct {
	lock       sync.RWMutex
	remembered string
	session    string
}

// Token returns the stored token
func (m *MemoryStore) Token() (string, bool) {
	m.lock.RLock()
	defer m.lock.RUnlock()

	if m.remembered != "" {
		return m.remembered, true
	}

	return m.session, m.session != ""
}

// Save stores the token
func (m *MemoryStore) Save(token string, remember bool) error {
	m.lock.Lock()
	defer m.lock.Unlock()

	if remember {
		m.remembered = token
	} else {
		m.session = token
	}

	return nil
}

// Scoped returns the token of one scope
func (m *MemoryStore) Scoped(remember bool) (string, bool) {
	m.lock.RLock()
	defer m.lock.RUnlock()

	if remember {
		return m.remembered, m.remembered != ""
	}

	return m.session, m.session != ""
}

// Forget removes the token of one scope
func (m *MemoryStore) Forget(remember bool) error {
	m.lock.Lock()
	defer m.lock.Unlock()

	if remember {
		m.remembered = ""
	} else {
		m.session = ""
	}

	return nil
}

// Clear removes the token from both scopes
func (m *MemoryStore) Clear() error {
	m.lock.Lock()
	defer m.lock.Unlock()

	m.remembered = ""
	m.session = ""
	return nil
}
