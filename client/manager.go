package client

import (
	"sync"

	"github.com/juju/errors"
	"github.com/peer-calls/relay/server/identifiers"
	"github.com/peer-calls/relay/server/logger"
	"github.com/peer-calls/relay/server/message"
	"github.com/peer-calls/relay/server/multierr"
)

// Manager keeps a Session per remote peer and feeds it the signaling events
// received from the relay. It expects events to be handled from a single
// goroutine, in the order they were received.
type Manager struct {
	log        logger.Logger
	factory    PeerConnectionFactory
	sender     Sender
	media      *LocalMedia
	onPeerLeft func(identifiers.ClientID)

	mu       sync.Mutex
	roomID   identifiers.RoomID
	sessions map[identifiers.ClientID]*Session
}

type ManagerParams struct {
	Log     logger.Logger
	Factory PeerConnectionFactory
	Sender  Sender
	// Media is optional. Without it no local tracks are attached.
	Media *LocalMedia
	// OnPeerLeft is optional.
	OnPeerLeft func(identifiers.ClientID)
}

func NewManager(params ManagerParams) *Manager {
	return &Manager{
		log:        params.Log.WithNamespaceAppended("manager"),
		factory:    params.Factory,
		sender:     params.Sender,
		media:      params.Media,
		onPeerLeft: params.OnPeerLeft,
		sessions:   map[identifiers.ClientID]*Session{},
	}
}

// SetRoom sets the room ID attached to outgoing offers and candidates.
func (m *Manager) SetRoom(roomID identifiers.RoomID) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.roomID = roomID
}

func (m *Manager) Session(remoteID identifiers.ClientID) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[remoteID]

	return s, ok
}

func (m *Manager) RemoteIDs() []identifiers.ClientID {
	m.mu.Lock()
	defer m.mu.Unlock()

	ret := make(identifiers.ClientIDs, 0, len(m.sessions))

	for id := range m.sessions {
		ret = append(ret, id)
	}

	return ret.Sorted()
}

// Handle dispatches a message emitted by the relay. Events not related to
// negotiation are ignored.
func (m *Manager) Handle(msg message.Message) {
	switch msg.Event {
	case message.EventUserJoined:
		m.HandleUserJoined(msg.Payload.UserJoined)
	case message.EventOfferReceived:
		if p := msg.Payload.OfferReceived; p != nil {
			m.HandleOffer(*p)
		}
	case message.EventAnswerReceived:
		if p := msg.Payload.AnswerReceived; p != nil {
			m.HandleAnswer(*p)
		}
	case message.EventICECandidateReceived:
		if p := msg.Payload.ICECandidateReceived; p != nil {
			m.HandleCandidate(*p)
		}
	case message.EventUserLeft:
		m.HandleUserLeft(msg.Payload.UserLeft)
	default:
	}
}

func (m *Manager) newSession(remoteID identifiers.ClientID) (*Session, error) {
	pc, err := m.factory.NewPeerConnection(remoteID)
	if err != nil {
		return nil, errors.Annotatef(err, "new peer connection: %s", remoteID)
	}

	if m.media != nil {
		for _, track := range m.media.Tracks() {
			if err := pc.AddTrack(track); err != nil {
				errs := multierr.New()
				errs.Add(errors.Annotatef(err, "add %s track", track.Kind()))
				errs.Add(pc.Close())

				return nil, errs.Err()
			}
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	s := NewSession(SessionParams{
		Log:            m.log,
		RemoteID:       remoteID,
		RoomID:         m.roomID,
		PeerConnection: pc,
		Sender:         m.sender,
	})

	m.sessions[remoteID] = s

	return s, nil
}

// HandleUserJoined starts the negotiation as the discovering peer.
func (m *Manager) HandleUserJoined(remoteID identifiers.ClientID) {
	if _, ok := m.Session(remoteID); ok {
		m.log.Warn("Session already exists", logger.Ctx{
			"remote_id": remoteID,
		})

		return
	}

	s, err := m.newSession(remoteID)
	if err != nil {
		m.log.Error("Create session", errors.Trace(err), logger.Ctx{
			"remote_id": remoteID,
		})

		return
	}

	s.Offer()
}

// HandleOffer creates the session when it does not exist yet and answers.
func (m *Manager) HandleOffer(p message.OfferReceived) {
	s, ok := m.Session(p.CallerID)
	if !ok {
		var err error

		s, err = m.newSession(p.CallerID)
		if err != nil {
			m.log.Error("Create session", errors.Trace(err), logger.Ctx{
				"remote_id": p.CallerID,
			})

			return
		}
	}

	s.HandleOffer(p.Signal)
}

func (m *Manager) HandleAnswer(p message.AnswerReceived) {
	s, ok := m.Session(p.ResponderID)
	if !ok {
		m.log.Warn("Answer for unknown session", logger.Ctx{
			"remote_id": p.ResponderID,
		})

		return
	}

	s.HandleAnswer(p.Signal)
}

func (m *Manager) HandleCandidate(p message.ICECandidateReceived) {
	s, ok := m.Session(p.SenderID)
	if !ok {
		m.log.Warn("ICE candidate for unknown session", logger.Ctx{
			"remote_id": p.SenderID,
		})

		return
	}

	s.HandleCandidate(p.Candidate)
}

// HandleUserLeft closes the session and notifies OnPeerLeft.
func (m *Manager) HandleUserLeft(remoteID identifiers.ClientID) {
	m.mu.Lock()
	s, ok := m.sessions[remoteID]
	delete(m.sessions, remoteID)
	m.mu.Unlock()

	if !ok {
		m.log.Debug("User left without a session", logger.Ctx{
			"remote_id": remoteID,
		})

		return
	}

	if err := s.Close(); err != nil {
		m.log.Warn("Close session", logger.Ctx{
			"remote_id": remoteID,
			"error":     err.Error(),
		})
	}

	if m.onPeerLeft != nil {
		m.onPeerLeft(remoteID)
	}
}

// Close closes and removes all sessions.
func (m *Manager) Close() error {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = map[identifiers.ClientID]*Session{}
	m.mu.Unlock()

	errs := multierr.New()

	for _, s := range sessions {
		errs.Add(s.Close())
	}

	return errors.Trace(errs.Err())
}
