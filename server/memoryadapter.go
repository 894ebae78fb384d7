package server

import (
	"sync"

	"github.com/juju/errors"
	"github.com/peer-calls/relay/server/identifiers"
	"github.com/peer-calls/relay/server/message"
)

// MemoryAdapter is an Adapter for a single node.
type MemoryAdapter struct {
	mu      sync.RWMutex
	clients map[identifiers.ClientID]ClientWriter
}

var _ Adapter = &MemoryAdapter{}

func NewMemoryAdapter() *MemoryAdapter {
	return &MemoryAdapter{
		clients: map[identifiers.ClientID]ClientWriter{},
	}
}

func (m *MemoryAdapter) Add(client ClientWriter) error {
	m.mu.Lock()
	m.clients[client.ID()] = client
	m.mu.Unlock()

	return nil
}

func (m *MemoryAdapter) Remove(clientID identifiers.ClientID) error {
	m.mu.Lock()
	delete(m.clients, clientID)
	m.mu.Unlock()

	return nil
}

func (m *MemoryAdapter) Emit(clientID identifiers.ClientID, msg message.Message) error {
	m.mu.RLock()
	client, ok := m.clients[clientID]
	m.mu.RUnlock()

	if !ok {
		return errors.Annotatef(ErrClientNotFound, "emit %s", clientID)
	}

	return errors.Annotatef(client.Write(msg), "emit %s", clientID)
}

func (m *MemoryAdapter) Close() error {
	m.mu.Lock()
	m.clients = map[identifiers.ClientID]ClientWriter{}
	m.mu.Unlock()

	return nil
}
