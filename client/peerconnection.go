// Package client is a headless peer for the relay. It joins a room, and
// negotiates a peer connection with every other member using the relay for
// signaling.
package client

import (
	"encoding/json"

	"github.com/peer-calls/relay/server/identifiers"
)

// PeerConnection is the negotiation capability driven by a Session.
// Descriptions and candidates are opaque JSON values which are passed
// through the relay unchanged.
type PeerConnection interface {
	AddTrack(track *Track) error
	// OnICECandidate registers the handler for local candidates. The handler
	// can be called from any goroutine and before the local description is
	// set.
	OnICECandidate(handler func(candidate json.RawMessage))
	CreateOffer() (json.RawMessage, error)
	CreateAnswer() (json.RawMessage, error)
	SetLocalDescription(description json.RawMessage) error
	SetRemoteDescription(description json.RawMessage) error
	AddICECandidate(candidate json.RawMessage) error
	Close() error
}

type PeerConnectionFactory interface {
	NewPeerConnection(remoteID identifiers.ClientID) (PeerConnection, error)
}
