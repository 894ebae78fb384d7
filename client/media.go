package client

import (
	"context"
	"sync"

	"github.com/juju/errors"
	"github.com/peer-calls/relay/server/atomic"
	"github.com/pion/webrtc/v3"
)

type MediaKind string

const (
	MediaKindAudio MediaKind = "audio"
	MediaKindVideo MediaKind = "video"
)

// Track is a local media track. Disabling a track keeps the source running.
type Track struct {
	kind    MediaKind
	local   webrtc.TrackLocal
	enabled atomic.Bool
}

// NewTrack returns an enabled track.
func NewTrack(kind MediaKind, local webrtc.TrackLocal) *Track {
	t := &Track{
		kind:  kind,
		local: local,
	}

	t.enabled.Set(true)

	return t
}

func (t *Track) Kind() MediaKind {
	return t.kind
}

func (t *Track) Local() webrtc.TrackLocal {
	return t.local
}

func (t *Track) Enabled() bool {
	return t.enabled.Get()
}

// Capturer provides the local audio and video tracks.
type Capturer interface {
	Capture(ctx context.Context) ([]*Track, error)
}

// LocalMedia acquires the local tracks once and toggles them.
type LocalMedia struct {
	capturer Capturer

	mu     sync.Mutex
	tracks []*Track
}

func NewLocalMedia(capturer Capturer) *LocalMedia {
	return &LocalMedia{
		capturer: capturer,
	}
}

// Acquire captures the tracks on the first successful call and returns the
// same tracks afterwards. On failure nothing is stored and the next call
// tries again.
func (m *LocalMedia) Acquire(ctx context.Context) ([]*Track, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.tracks != nil {
		return m.copyTracks(), nil
	}

	tracks, err := m.capturer.Capture(ctx)
	if err != nil {
		return nil, errors.Annotate(err, "acquire media")
	}

	m.tracks = append([]*Track{}, tracks...)

	return m.copyTracks(), nil
}

// Acquired returns true after a successful Acquire.
func (m *LocalMedia) Acquired() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.tracks != nil
}

// Tracks returns nil before Acquire succeeds.
func (m *LocalMedia) Tracks() []*Track {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.copyTracks()
}

func (m *LocalMedia) copyTracks() []*Track {
	if m.tracks == nil {
		return nil
	}

	return append([]*Track{}, m.tracks...)
}

// ToggleAudio flips every audio track and returns false when there are no
// audio tracks.
func (m *LocalMedia) ToggleAudio() bool {
	return m.toggle(MediaKindAudio)
}

// ToggleVideo flips every video track and returns false when there are no
// video tracks.
func (m *LocalMedia) ToggleVideo() bool {
	return m.toggle(MediaKindVideo)
}

func (m *LocalMedia) toggle(kind MediaKind) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	toggled := false

	for _, t := range m.tracks {
		if t.kind == kind {
			t.enabled.Toggle()

			toggled = true
		}
	}

	return toggled
}
