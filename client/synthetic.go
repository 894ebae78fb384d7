package client

import (
	"context"
	"sync"
	"time"

	"github.com/juju/errors"
	"github.com/peer-calls/relay/server/logger"
	"github.com/pion/rtp"
	"github.com/pion/webrtc/v3"
)

const (
	opusFrameDuration = 20 * time.Millisecond
	opusClockRate     = 48000
)

// opusSilence is a single 20ms opus frame of silence.
var opusSilence = []byte{0xf8, 0xff, 0xfe}

// SyntheticCapturer provides an opus audio track and a vp8 video track
// without a capture device. While the audio track is enabled it carries
// silence. The video track only negotiates the vp8 codec and never carries
// packets, so toggling it changes nothing but its enabled flag.
type SyntheticCapturer struct {
	log      logger.Logger
	streamID string
	wg       sync.WaitGroup
}

func NewSyntheticCapturer(log logger.Logger, streamID string) *SyntheticCapturer {
	return &SyntheticCapturer{
		log:      log.WithNamespaceAppended("synthetic_capturer"),
		streamID: streamID,
	}
}

// Capture creates the tracks. Packets are written until ctx is done.
func (c *SyntheticCapturer) Capture(ctx context.Context) ([]*Track, error) {
	audio, err := webrtc.NewTrackLocalStaticRTP(
		webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeOpus, ClockRate: opusClockRate, Channels: 2},
		"audio", c.streamID,
	)
	if err != nil {
		return nil, errors.Annotate(err, "new audio track")
	}

	video, err := webrtc.NewTrackLocalStaticRTP(
		webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeVP8, ClockRate: 90000},
		"video", c.streamID,
	)
	if err != nil {
		return nil, errors.Annotate(err, "new video track")
	}

	audioTrack := NewTrack(MediaKindAudio, audio)

	c.wg.Add(1)

	go func() {
		defer c.wg.Done()
		c.pumpSilence(ctx, audioTrack, audio)
	}()

	return []*Track{audioTrack, NewTrack(MediaKindVideo, video)}, nil
}

// Wait blocks until all packet writers started by Capture have stopped.
func (c *SyntheticCapturer) Wait() {
	c.wg.Wait()
}

func (c *SyntheticCapturer) pumpSilence(ctx context.Context, track *Track, local *webrtc.TrackLocalStaticRTP) {
	ticker := time.NewTicker(opusFrameDuration)
	defer ticker.Stop()

	samples := uint32(opusClockRate * opusFrameDuration / time.Second)

	packet := &rtp.Packet{
		Header: rtp.Header{
			Version: 2,
		},
		Payload: opusSilence,
	}

	for {
		select {
		case <-ticker.C:
		case <-ctx.Done():
			return
		}

		packet.SequenceNumber++
		packet.Timestamp += samples

		if !track.Enabled() {
			continue
		}

		if err := local.WriteRTP(packet); err != nil {
			c.log.Debug("Write RTP", logger.Ctx{
				"error": err.Error(),
			})
		}
	}
}
