package realtime

import (
	"context"
	"sync"
)

// Manager shares one Client among independent consumers.
// The connection is opened by the first Acquire and closed by the last Release.
type Manager struct {
	lock    sync.Mutex
	factory func() *Client
	client  *Client
	refs    int
}

// NewManager returns a manager that creates clients with factory
func NewManager(factory func() *Client) *Manager {
	return &Manager{factory: factory}
}

// Handle is one consumer's reference to the shared client
type Handle struct {
	manager *Manager
	client  *Client
	detach  func()
	once    sync.Once
}

// Acquire returns a handle on the shared client, connecting it if this is the first reference.
// A shared client that gave up reconnecting is connected again.
func (m *Manager) Acquire(ctx context.Context, h Handlers) (*Handle, error) {
	m.lock.Lock()
	defer m.lock.Unlock()

	if m.client == nil {
		client := m.factory()
		if err := client.Connect(ctx); err != nil {
			client.Close()
			return nil, err
		}

		m.client = client
	} else if err := m.client.Connect(ctx); err != nil {
		// Connect is a no-op while the client is running
		return nil, err
	}

	m.refs++
	return &Handle{
		manager: m,
		client:  m.client,
		detach:  m.client.AddHandlers(h),
	}, nil
}

// Refs returns the number of live handles
func (m *Manager) Refs() int {
	m.lock.Lock()
	defer m.lock.Unlock()

	return m.refs
}

// Client returns the shared client
func (h *Handle) Client() *Client {
	return h.client
}

// Release detaches the handle's handlers. Releasing the last handle closes the client.
// Releasing twice is a no-op.
func (h *Handle) Release() {
	h.once.Do(func() {
		h.detach()
		h.manager.release(h.client)
	})
}

func (m *Manager) release(client *Client) {
	m.lock.Lock()
	if m.client != client {
		m.lock.Unlock()
		return
	}

	m.refs--
	if m.refs > 0 {
		m.lock.Unlock()
		return
	}

	m.client = nil
	m.refs = 0
	m.lock.Unlock()

	client.Close()
}
