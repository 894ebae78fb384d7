package server

import (
	"github.com/juju/errors"
	"github.com/peer-calls/relay/server/identifiers"
	"github.com/peer-calls/relay/server/message"
)

// ErrClientNotFound is returned by Adapter.Emit when the target connection
// is not connected to any node.
var ErrClientNotFound = errors.New("client not found")

// ClientWriter is a live connection that messages can be written to. Write
// must not block.
type ClientWriter interface {
	ID() identifiers.ClientID
	Write(msg message.Message) error
}

// Adapter is the connection registry. It maps a connection ID to the
// connection, wherever it is connected.
type Adapter interface {
	Add(client ClientWriter) error
	Remove(clientID identifiers.ClientID) error
	Emit(clientID identifiers.ClientID, msg message.Message) error
	Close() error
}
