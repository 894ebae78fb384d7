package server

import (
	"encoding/json"

	"github.com/juju/errors"
	"github.com/peer-calls/relay/server/identifiers"
	"github.com/peer-calls/relay/server/logger"
	"github.com/peer-calls/relay/server/message"
	"github.com/peer-calls/relay/server/multierr"
)

var ErrUnroutableEvent = errors.New("event cannot be routed")

// Router forwards offer, answer and ice_candidate events to a single target
// connection. The sender is always the ID of the connection the event came
// in on. Nothing is reported back to the sender: undeliverable messages are
// dropped.
type Router struct {
	log    logger.Logger
	emit   func(identifiers.ClientID, message.Message) error
	rooms  *RoomTable
	strict bool
}

type RouterParams struct {
	Log     logger.Logger
	Adapter Adapter
	Rooms   *RoomTable
	// StrictRouting drops messages between connections that are not in the
	// same room.
	StrictRouting bool
}

func NewRouter(params RouterParams) *Router {
	return &Router{
		log:    params.Log.WithNamespaceAppended("router"),
		emit:   params.Adapter.Emit,
		rooms:  params.Rooms,
		strict: params.StrictRouting,
	}
}

func received(kind message.Event, senderID identifiers.ClientID, payload json.RawMessage) (message.Message, error) {
	switch kind {
	case message.EventOffer:
		return message.NewOfferReceived(message.OfferReceived{
			Signal:   payload,
			CallerID: senderID,
		}), nil
	case message.EventAnswer:
		return message.NewAnswerReceived(message.AnswerReceived{
			Signal:      payload,
			ResponderID: senderID,
		}), nil
	case message.EventICECandidate:
		return message.NewICECandidateReceived(message.ICECandidateReceived{
			Candidate: payload,
			SenderID:  senderID,
		}), nil
	}

	return message.Message{}, errors.Annotatef(ErrUnroutableEvent, "event: %s", kind)
}

// Route delivers exactly one event to targetID when it is connected and
// reports whether it did.
func (r *Router) Route(
	kind message.Event,
	senderID identifiers.ClientID,
	targetID identifiers.ClientID,
	payload json.RawMessage,
) bool {
	log := r.log.WithCtx(logger.Ctx{
		"client_id": senderID,
		"kind":      kind,
		"target":    targetID,
	})

	drop := func(reason string, err error) bool {
		prometheusMessagesDroppedTotal.WithLabelValues(string(kind), reason).Inc()

		if err != nil {
			log.Error("Drop "+reason, errors.Trace(err), nil)
		} else {
			log.Debug("Drop "+reason, nil)
		}

		return false
	}

	msg, err := received(kind, senderID, payload)
	if err != nil {
		return drop("invalid_event", err)
	}

	if targetID == "" {
		return drop("no_target", nil)
	}

	if r.strict {
		same, err := r.rooms.SameRoom(senderID, targetID)
		if err != nil {
			return drop("room_lookup", err)
		}

		if !same {
			return drop("not_in_room", nil)
		}
	}

	err = r.emit(targetID, msg)

	switch {
	case multierr.Is(err, ErrClientNotFound):
		return drop("not_connected", nil)
	case multierr.Is(err, ErrWriteQueueFull):
		return drop("queue_full", nil)
	case err != nil:
		return drop("emit", err)
	}

	prometheusMessagesRoutedTotal.WithLabelValues(string(kind)).Inc()

	log.Debug("Route", nil)

	return true
}
