package server

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/juju/errors"
	"github.com/peer-calls/relay/server/logger"
	"github.com/peer-calls/relay/server/message"
)

type RelayParams struct {
	Log          logger.Logger
	WSS          *WSS
	Rooms        *RoomTable
	Router       *Router
	PingInterval time.Duration
	// PongTimeout closes connections that have not answered a ping for this
	// long. Zero keeps them open.
	PongTimeout time.Duration
}

// NewRelayHandler serves the signaling websocket. Every connection is
// handled by its own event loop; disconnecting leaves the room exactly once.
func NewRelayHandler(params RelayParams) http.Handler {
	log := params.Log.WithNamespaceAppended("relay")
	rooms := params.Rooms
	router := params.Router

	pingInterval := params.PingInterval
	if pingInterval <= 0 {
		pingInterval = 5 * time.Second
	}

	fn := func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		sub, err := params.WSS.Subscribe(ctx, w, r)
		if err != nil {
			log.Error("Subscribe", errors.Trace(err), nil)

			return
		}

		clientID := sub.ClientID

		log := log.WithCtx(logger.Ctx{
			"client_id": clientID,
		})

		defer func() {
			if err := sub.Close(); err != nil {
				log.Error("Close subscription", errors.Trace(err), nil)
			}
		}()

		defer func() {
			if err := rooms.Leave(clientID); err != nil {
				log.Error("Leave", errors.Trace(err), nil)
			}
		}()

		pinger := NewPinger(pingInterval, params.PongTimeout, func() {
			if err := sub.Client.Write(message.NewPing()); err != nil {
				log.Debug("Ping", logger.Ctx{
					"error": err.Error(),
				})
			}
		})

		var wg sync.WaitGroup

		wg.Add(1)

		go func() {
			defer wg.Done()

			if err := pinger.Run(ctx); err != nil {
				log.Warn("Closing unresponsive connection", logger.Ctx{
					"error": err.Error(),
				})

				cancel()
			}
		}()

		defer wg.Wait()
		defer cancel()

		for msg := range sub.Messages {
			var err error

			switch msg.Event {
			case message.EventJoinRoom:
				err = errors.Annotate(rooms.Join(clientID, msg.Payload.JoinRoom), "join")
			case message.EventOffer:
				offer := msg.Payload.Offer
				if offer == nil {
					log.Warn("Offer without payload", nil)

					break
				}

				router.Route(msg.Event, clientID, offer.TargetUserID, offer.Signal)
			case message.EventAnswer:
				answer := msg.Payload.Answer
				if answer == nil {
					log.Warn("Answer without payload", nil)

					break
				}

				router.Route(msg.Event, clientID, answer.TargetUserID, answer.Signal)
			case message.EventICECandidate:
				candidate := msg.Payload.ICECandidate
				if candidate == nil {
					log.Warn("Candidate without payload", nil)

					break
				}

				router.Route(msg.Event, clientID, candidate.TargetUserID, candidate.Candidate)
			case message.EventPong:
				pinger.ReceivePong()
			default:
				log.Warn("Unexpected event", logger.Ctx{
					"event": msg.Event,
				})
			}

			if err != nil {
				log.Error("Handle event", errors.Trace(err), logger.Ctx{
					"event": msg.Event,
				})
			}
		}
	}

	return http.HandlerFunc(fn)
}
