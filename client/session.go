package client

import (
	"encoding/json"
	"sync"

	"github.com/juju/errors"
	"github.com/peer-calls/relay/server/atomic"
	"github.com/peer-calls/relay/server/identifiers"
	"github.com/peer-calls/relay/server/logger"
	"github.com/peer-calls/relay/server/message"
	"github.com/peer-calls/relay/server/promise"
)

var ErrSessionClosed = errors.New("session closed")

type State int32

const (
	StateCreated State = iota
	StateOfferSent
	StateAnswerPending
	StateEstablished
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateOfferSent:
		return "offer-sent"
	case StateAnswerPending:
		return "answer-pending"
	case StateEstablished:
		return "established"
	default:
		return "unknown"
	}
}

// Sender delivers a message to the relay.
type Sender interface {
	Send(msg message.Message) error
}

// Session is the negotiation with a single remote peer. All steps run in
// order on the session's own goroutine.
type Session struct {
	log      logger.Logger
	remoteID identifiers.ClientID
	roomID   identifiers.RoomID
	pc       PeerConnection
	sender   Sender
	result   promise.Promise

	queueMu sync.Mutex
	queue   []func()
	wakeCh  chan struct{}

	mu        sync.Mutex
	state     State
	remoteSet bool
	pending   []json.RawMessage
	err       error

	descriptionSentCh   chan struct{}
	descriptionSentOnce sync.Once

	closed atomic.Bool
	doneCh chan struct{}
	wg     sync.WaitGroup
}

type SessionParams struct {
	Log            logger.Logger
	RemoteID       identifiers.ClientID
	RoomID         identifiers.RoomID
	PeerConnection PeerConnection
	Sender         Sender
}

func NewSession(params SessionParams) *Session {
	s := &Session{
		log: params.Log.WithNamespaceAppended("session").WithCtx(logger.Ctx{
			"remote_id": params.RemoteID,
		}),
		remoteID:          params.RemoteID,
		roomID:            params.RoomID,
		pc:                params.PeerConnection,
		sender:            params.Sender,
		result:            promise.New(),
		wakeCh:            make(chan struct{}, 1),
		descriptionSentCh: make(chan struct{}),
		doneCh:            make(chan struct{}),
	}

	s.pc.OnICECandidate(s.sendCandidate)

	s.wg.Add(1)

	go s.run()

	return s
}

func (s *Session) RemoteID() identifiers.ClientID {
	return s.remoteID
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.state
}

// Err returns the error of the first failed step.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.err
}

// Result is resolved when the session becomes established and rejected when
// a step fails or the session is closed first.
func (s *Session) Result() promise.Waitable {
	return s.result
}

func (s *Session) run() {
	defer s.wg.Done()

	for {
		select {
		case <-s.wakeCh:
		case <-s.doneCh:
			return
		}

		for {
			task, ok := s.next()
			if !ok {
				break
			}

			if s.closed.Get() {
				return
			}

			task()
		}
	}
}

func (s *Session) next() (func(), bool) {
	s.queueMu.Lock()
	defer s.queueMu.Unlock()

	if len(s.queue) == 0 {
		return nil, false
	}

	task := s.queue[0]
	s.queue[0] = nil
	s.queue = s.queue[1:]

	return task, true
}

func (s *Session) enqueue(task func()) {
	if s.closed.Get() {
		return
	}

	s.queueMu.Lock()
	s.queue = append(s.queue, task)
	s.queueMu.Unlock()

	select {
	case s.wakeCh <- struct{}{}:
	default:
	}
}

// step runs fn and returns false when it failed or the session was closed
// in the meantime.
func (s *Session) step(name string, fn func() error) bool {
	if s.closed.Get() {
		return false
	}

	if err := fn(); err != nil {
		s.fail(errors.Annotate(err, name))

		return false
	}

	return !s.closed.Get()
}

func (s *Session) fail(err error) {
	if s.closed.Get() {
		return
	}

	s.log.Error("Negotiation failed", errors.Trace(err), logger.Ctx{
		"state": s.State(),
	})

	s.mu.Lock()
	if s.err == nil {
		s.err = err
	}
	s.mu.Unlock()

	s.result.Reject(err)
}

func (s *Session) setState(state State) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()

	s.log.Debug("State changed", logger.Ctx{
		"state": state,
	})
}

func (s *Session) establish() {
	s.setState(StateEstablished)
	s.result.Resolve()
}

func (s *Session) releaseCandidates() {
	s.descriptionSentOnce.Do(func() {
		close(s.descriptionSentCh)
	})
}

// sendCandidate blocks until the local description has been sent.
func (s *Session) sendCandidate(candidate json.RawMessage) {
	select {
	case <-s.descriptionSentCh:
	case <-s.doneCh:
		return
	}

	if s.closed.Get() {
		return
	}

	err := s.sender.Send(message.NewICECandidate(message.ICECandidate{
		TargetUserID: s.remoteID,
		Candidate:    candidate,
		RoomID:       s.roomID,
	}))
	if err != nil {
		s.log.Warn("Send ICE candidate", logger.Ctx{
			"error": err.Error(),
		})
	}
}

// Offer starts the negotiation as the discovering peer.
func (s *Session) Offer() {
	s.enqueue(func() {
		var offer json.RawMessage

		if !s.step("create offer", func() (err error) {
			offer, err = s.pc.CreateOffer()

			return err
		}) {
			return
		}

		if !s.step("set local description", func() error {
			return s.pc.SetLocalDescription(offer)
		}) {
			return
		}

		if !s.step("send offer", func() error {
			return s.sender.Send(message.NewOffer(message.Offer{
				TargetUserID: s.remoteID,
				Signal:       offer,
				RoomID:       s.roomID,
			}))
		}) {
			return
		}

		s.setState(StateOfferSent)
		s.releaseCandidates()
	})
}

// HandleOffer answers a remote offer.
func (s *Session) HandleOffer(signal json.RawMessage) {
	s.enqueue(func() {
		if !s.applyRemoteDescription(signal) {
			return
		}

		s.setState(StateAnswerPending)

		var answer json.RawMessage

		if !s.step("create answer", func() (err error) {
			answer, err = s.pc.CreateAnswer()

			return err
		}) {
			return
		}

		if !s.step("set local description", func() error {
			return s.pc.SetLocalDescription(answer)
		}) {
			return
		}

		if !s.step("send answer", func() error {
			return s.sender.Send(message.NewAnswer(message.Answer{
				TargetUserID: s.remoteID,
				Signal:       answer,
			}))
		}) {
			return
		}

		s.releaseCandidates()
		s.establish()
	})
}

func (s *Session) HandleAnswer(signal json.RawMessage) {
	s.enqueue(func() {
		if !s.applyRemoteDescription(signal) {
			return
		}

		s.establish()
	})
}

// HandleCandidate adds a remote candidate. Candidates received before the
// remote description are buffered until it is set.
func (s *Session) HandleCandidate(candidate json.RawMessage) {
	s.enqueue(func() {
		s.mu.Lock()
		remoteSet := s.remoteSet

		if !remoteSet {
			s.pending = append(s.pending, candidate)
		}
		s.mu.Unlock()

		if !remoteSet {
			s.log.Debug("Buffering remote ICE candidate", nil)

			return
		}

		s.addCandidate(candidate)
	})
}

func (s *Session) applyRemoteDescription(signal json.RawMessage) bool {
	if !s.step("set remote description", func() error {
		return s.pc.SetRemoteDescription(signal)
	}) {
		return false
	}

	s.mu.Lock()
	s.remoteSet = true
	pending := s.pending
	s.pending = nil
	s.mu.Unlock()

	for _, candidate := range pending {
		s.addCandidate(candidate)
	}

	return true
}

func (s *Session) addCandidate(candidate json.RawMessage) {
	if s.closed.Get() {
		return
	}

	if err := s.pc.AddICECandidate(candidate); err != nil {
		s.log.Warn("Add ICE candidate", logger.Ctx{
			"error": err.Error(),
		})
	}
}

// Close discards queued steps and closes the peer connection. Results of a
// step still in flight are ignored.
func (s *Session) Close() error {
	if !s.closed.CompareAndSwap(true) {
		return nil
	}

	close(s.doneCh)

	s.result.Reject(errors.Trace(ErrSessionClosed))

	err := s.pc.Close()

	s.wg.Wait()

	s.queueMu.Lock()
	s.queue = nil
	s.queueMu.Unlock()

	return errors.Annotate(err, "close peer connection")
}
