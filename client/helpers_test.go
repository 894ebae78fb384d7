package client_test

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/juju/errors"
	"github.com/peer-calls/relay/client"
	"github.com/peer-calls/relay/server/identifiers"
	"github.com/peer-calls/relay/server/message"
	"github.com/pion/webrtc/v3"
	"github.com/stretchr/testify/require"
)

const timeout = 5 * time.Second

type fakePeerConnection struct {
	id string

	failCreateOffer error

	mu          sync.Mutex
	calls       []string
	tracks      []*client.Track
	local       json.RawMessage
	remote      json.RawMessage
	candidates  []json.RawMessage
	onCandidate func(json.RawMessage)
	closed      bool
}

var _ client.PeerConnection = &fakePeerConnection{}

func (f *fakePeerConnection) record(call string) {
	f.calls = append(f.calls, call)
}

func (f *fakePeerConnection) AddTrack(track *client.Track) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.record("add_track")
	f.tracks = append(f.tracks, track)

	return nil
}

// OnICECandidate emits a candidate right away, before any local description
// exists.
func (f *fakePeerConnection) OnICECandidate(handler func(json.RawMessage)) {
	f.mu.Lock()
	f.onCandidate = handler
	f.mu.Unlock()

	go handler(json.RawMessage(fmt.Sprintf(`{"candidate":"early-%s"}`, f.id)))
}

func (f *fakePeerConnection) CreateOffer() (json.RawMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.record("create_offer")

	if f.failCreateOffer != nil {
		return nil, f.failCreateOffer
	}

	return json.RawMessage(fmt.Sprintf(`{"type":"offer","sdp":"offer-%s"}`, f.id)), nil
}

func (f *fakePeerConnection) CreateAnswer() (json.RawMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.record("create_answer")

	if f.remote == nil {
		return nil, errors.New("no remote description")
	}

	return json.RawMessage(fmt.Sprintf(`{"type":"answer","sdp":"answer-%s"}`, f.id)), nil
}

func (f *fakePeerConnection) SetLocalDescription(description json.RawMessage) error {
	f.mu.Lock()
	f.record("set_local")
	f.local = description
	handler := f.onCandidate
	f.mu.Unlock()

	if handler != nil {
		go handler(json.RawMessage(fmt.Sprintf(`{"candidate":"late-%s"}`, f.id)))
	}

	return nil
}

func (f *fakePeerConnection) SetRemoteDescription(description json.RawMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.record("set_remote")
	f.remote = description

	return nil
}

func (f *fakePeerConnection) AddICECandidate(candidate json.RawMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.remote == nil {
		return errors.New("remote description not set")
	}

	f.record("add_candidate")
	f.candidates = append(f.candidates, candidate)

	return nil
}

func (f *fakePeerConnection) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.record("close")
	f.closed = true

	return nil
}

func (f *fakePeerConnection) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]string{}, f.calls...)
}

func (f *fakePeerConnection) Candidates() []json.RawMessage {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]json.RawMessage{}, f.candidates...)
}

func (f *fakePeerConnection) Remote() json.RawMessage {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.remote
}

func (f *fakePeerConnection) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.closed
}

func (f *fakePeerConnection) Tracks() []*client.Track {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]*client.Track{}, f.tracks...)
}

type fakeFactory struct {
	localID string

	mu    sync.Mutex
	pcs   map[identifiers.ClientID]*fakePeerConnection
	fails map[identifiers.ClientID]error
}

func newFakeFactory(localID string) *fakeFactory {
	return &fakeFactory{
		localID: localID,
		pcs:     map[identifiers.ClientID]*fakePeerConnection{},
		fails:   map[identifiers.ClientID]error{},
	}
}

func (f *fakeFactory) failOffer(remoteID identifiers.ClientID, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.fails[remoteID] = err
}

func (f *fakeFactory) NewPeerConnection(remoteID identifiers.ClientID) (client.PeerConnection, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	pc := &fakePeerConnection{
		id:              f.localID + "-" + string(remoteID),
		failCreateOffer: f.fails[remoteID],
	}

	f.pcs[remoteID] = pc

	return pc, nil
}

func (f *fakeFactory) PeerConnection(remoteID identifiers.ClientID) *fakePeerConnection {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.pcs[remoteID]
}

type recordingSender struct {
	mu       sync.Mutex
	messages []message.Message
	ch       chan message.Message
}

func newRecordingSender() *recordingSender {
	return &recordingSender{
		ch: make(chan message.Message, 256),
	}
}

func (s *recordingSender) Send(msg message.Message) error {
	s.mu.Lock()
	s.messages = append(s.messages, msg)
	s.mu.Unlock()

	s.ch <- msg

	return nil
}

func (s *recordingSender) Messages() []message.Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]message.Message{}, s.messages...)
}

// Recv waits for the next message sent with the given event.
func (s *recordingSender) Recv(t *testing.T, event message.Event) message.Message {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	for {
		select {
		case msg := <-s.ch:
			if msg.Event == event {
				return msg
			}
		case <-ctx.Done():
			require.FailNow(t, "timed out waiting for message", "event: %s", event)
		}
	}
}

type fakeCapturer struct {
	err   error
	calls int
}

func (c *fakeCapturer) Capture(ctx context.Context) ([]*client.Track, error) {
	c.calls++

	if c.err != nil {
		return nil, c.err
	}

	audio, err := webrtc.NewTrackLocalStaticRTP(
		webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeOpus}, "audio", "fake",
	)
	if err != nil {
		return nil, err
	}

	video, err := webrtc.NewTrackLocalStaticRTP(
		webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeVP8}, "video", "fake",
	)
	if err != nil {
		return nil, err
	}

	return []*client.Track{
		client.NewTrack(client.MediaKindAudio, audio),
		client.NewTrack(client.MediaKindVideo, video),
	}, nil
}

func waitResult(t *testing.T, s *client.Session) error {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	select {
	case <-s.Result().Done():
		return s.Result().Err()
	case <-ctx.Done():
		require.FailNow(t, "timed out waiting for session result")

		return nil
	}
}
