package client

import (
	"encoding/json"
	"io"

	"github.com/juju/errors"
	"github.com/peer-calls/relay/server"
	"github.com/peer-calls/relay/server/identifiers"
	"github.com/peer-calls/relay/server/logger"
	"github.com/peer-calls/relay/server/multierr"
	"github.com/peer-calls/relay/server/pionlogger"
	"github.com/pion/interceptor"
	"github.com/pion/rtcp"
	"github.com/pion/webrtc/v3"
)

// PionFactory creates peer connections backed by pion/webrtc.
type PionFactory struct {
	log    logger.Logger
	api    *webrtc.API
	config webrtc.Configuration
}

var _ PeerConnectionFactory = &PionFactory{}

func NewPionFactory(log logger.Logger, iceServers []server.ICEServer) (*PionFactory, error) {
	log = log.WithNamespaceAppended("pion_factory")

	mediaEngine := &webrtc.MediaEngine{}

	if err := mediaEngine.RegisterDefaultCodecs(); err != nil {
		return nil, errors.Annotate(err, "register default codecs")
	}

	registry := &interceptor.Registry{}

	if err := webrtc.RegisterDefaultInterceptors(mediaEngine, registry); err != nil {
		return nil, errors.Annotate(err, "register default interceptors")
	}

	settingEngine := webrtc.SettingEngine{
		LoggerFactory: pionlogger.NewFactory(log),
	}

	api := webrtc.NewAPI(
		webrtc.WithMediaEngine(mediaEngine),
		webrtc.WithSettingEngine(settingEngine),
		webrtc.WithInterceptorRegistry(registry),
	)

	return &PionFactory{
		log: log,
		api: api,
		config: webrtc.Configuration{
			ICEServers: toWebRTCICEServers(iceServers),
		},
	}, nil
}

func toWebRTCICEServers(iceServers []server.ICEServer) []webrtc.ICEServer {
	ret := make([]webrtc.ICEServer, 0, len(iceServers))

	for _, s := range iceServers {
		var credential interface{}

		if s.Credential != "" {
			credential = s.Credential
		}

		ret = append(ret, webrtc.ICEServer{
			URLs:       s.URLs,
			Username:   s.Username,
			Credential: credential,
		})
	}

	return ret
}

func (f *PionFactory) NewPeerConnection(remoteID identifiers.ClientID) (PeerConnection, error) {
	pc, err := f.api.NewPeerConnection(f.config)
	if err != nil {
		return nil, errors.Annotate(err, "new peer connection")
	}

	p := &pionPeerConnection{
		log: f.log.WithCtx(logger.Ctx{
			"remote_id": remoteID,
		}),
		pc: pc,
	}

	pc.OnConnectionStateChange(func(state webrtc.PeerConnectionState) {
		p.log.Info("Connection state change", logger.Ctx{
			"state": state.String(),
		})
	})

	pc.OnTrack(p.handleTrack)

	return p, nil
}

type pionPeerConnection struct {
	log logger.Logger
	pc  *webrtc.PeerConnection
}

var _ PeerConnection = &pionPeerConnection{}

func (p *pionPeerConnection) AddTrack(track *Track) error {
	sender, err := p.pc.AddTrack(track.Local())
	if err != nil {
		return errors.Annotate(err, "add track")
	}

	go p.readRTCP(sender)

	return nil
}

// readRTCP consumes feedback from the remote peer so that interceptors keep
// working. It stops when the sender is closed.
func (p *pionPeerConnection) readRTCP(sender *webrtc.RTPSender) {
	for {
		packets, _, err := sender.ReadRTCP()
		if err != nil {
			if !multierr.Is(err, io.EOF) {
				p.log.Debug("Read RTCP", logger.Ctx{
					"error": err.Error(),
				})
			}

			return
		}

		for _, packet := range packets {
			switch pkt := packet.(type) {
			case *rtcp.PictureLossIndication:
				p.log.Debug("Picture loss indication", logger.Ctx{
					"ssrc": pkt.MediaSSRC,
				})
			case *rtcp.ReceiverEstimatedMaximumBitrate:
				p.log.Trace("Estimated maximum bitrate", logger.Ctx{
					"bitrate": pkt.Bitrate,
				})
			}
		}
	}
}

// handleTrack drains a remote track. Rendering is left to the caller.
func (p *pionPeerConnection) handleTrack(track *webrtc.TrackRemote, _ *webrtc.RTPReceiver) {
	log := p.log.WithCtx(logger.Ctx{
		"track_id":  track.ID(),
		"stream_id": track.StreamID(),
		"kind":      track.Kind().String(),
	})

	log.Info("Remote track", nil)

	go func() {
		var packets int

		for {
			if _, _, err := track.ReadRTP(); err != nil {
				log.Info("Remote track done", logger.Ctx{
					"packets": packets,
				})

				return
			}

			packets++
		}
	}()
}

func (p *pionPeerConnection) OnICECandidate(handler func(candidate json.RawMessage)) {
	p.pc.OnICECandidate(func(c *webrtc.ICECandidate) {
		// nil candidate marks the end of gathering.
		if c == nil {
			return
		}

		b, err := json.Marshal(c.ToJSON())
		if err != nil {
			p.log.Error("Marshal ICE candidate", errors.Trace(err), nil)

			return
		}

		handler(b)
	})
}

func (p *pionPeerConnection) CreateOffer() (json.RawMessage, error) {
	offer, err := p.pc.CreateOffer(nil)
	if err != nil {
		return nil, errors.Annotate(err, "create offer")
	}

	b, err := json.Marshal(offer)

	return b, errors.Annotate(err, "marshal offer")
}

func (p *pionPeerConnection) CreateAnswer() (json.RawMessage, error) {
	answer, err := p.pc.CreateAnswer(nil)
	if err != nil {
		return nil, errors.Annotate(err, "create answer")
	}

	b, err := json.Marshal(answer)

	return b, errors.Annotate(err, "marshal answer")
}

func unmarshalDescription(description json.RawMessage) (webrtc.SessionDescription, error) {
	var sd webrtc.SessionDescription

	err := json.Unmarshal(description, &sd)

	return sd, errors.Annotate(err, "unmarshal session description")
}

func (p *pionPeerConnection) SetLocalDescription(description json.RawMessage) error {
	sd, err := unmarshalDescription(description)
	if err != nil {
		return errors.Trace(err)
	}

	return errors.Annotate(p.pc.SetLocalDescription(sd), "set local description")
}

func (p *pionPeerConnection) SetRemoteDescription(description json.RawMessage) error {
	sd, err := unmarshalDescription(description)
	if err != nil {
		return errors.Trace(err)
	}

	return errors.Annotate(p.pc.SetRemoteDescription(sd), "set remote description")
}

func (p *pionPeerConnection) AddICECandidate(candidate json.RawMessage) error {
	var init webrtc.ICECandidateInit

	if err := json.Unmarshal(candidate, &init); err != nil {
		return errors.Annotate(err, "unmarshal ICE candidate")
	}

	return errors.Annotate(p.pc.AddICECandidate(init), "add ICE candidate")
}

func (p *pionPeerConnection) Close() error {
	return errors.Annotate(p.pc.Close(), "close peer connection")
}
