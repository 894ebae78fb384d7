// Package message defines the events exchanged between the relay and its
// clients.
package message

import (
	"encoding/json"

	"github.com/peer-calls/relay/server/identifiers"
)

type Event string

// Events received by the relay.
const (
	EventJoinRoom     Event = "join_room"
	EventOffer        Event = "offer"
	EventAnswer       Event = "answer"
	EventICECandidate Event = "ice_candidate"
	EventPong         Event = "pong"
)

// Events emitted by the relay.
const (
	EventUserJoined           Event = "user_joined"
	EventExistingUsers        Event = "existing_users"
	EventOfferReceived        Event = "offer_received"
	EventAnswerReceived       Event = "answer_received"
	EventICECandidateReceived Event = "ice_candidate_received"
	EventUserLeft             Event = "user_left"
	EventPing                 Event = "ping"
)

type Message struct {
	Event   Event
	Payload Payload
}

// Payload should only have the field set that matches the Event of the
// message.
type Payload struct {
	JoinRoom      identifiers.RoomID
	UserJoined    identifiers.ClientID
	UserLeft      identifiers.ClientID
	ExistingUsers []identifiers.ClientID

	Offer        *Offer
	Answer       *Answer
	ICECandidate *ICECandidate

	OfferReceived        *OfferReceived
	AnswerReceived       *AnswerReceived
	ICECandidateReceived *ICECandidateReceived
}

// Offer is sent by the discovering peer. RoomID is informational only and is
// never used for routing.
type Offer struct {
	TargetUserID identifiers.ClientID `json:"targetUserId"`
	Signal       json.RawMessage      `json:"signal"`
	RoomID       identifiers.RoomID   `json:"roomId,omitempty"`
}

type Answer struct {
	TargetUserID identifiers.ClientID `json:"targetUserId"`
	Signal       json.RawMessage      `json:"signal"`
}

type ICECandidate struct {
	TargetUserID identifiers.ClientID `json:"targetUserId"`
	Candidate    json.RawMessage      `json:"candidate"`
	RoomID       identifiers.RoomID   `json:"roomId,omitempty"`
}

type OfferReceived struct {
	Signal   json.RawMessage      `json:"signal"`
	CallerID identifiers.ClientID `json:"callerId"`
}

type AnswerReceived struct {
	Signal      json.RawMessage      `json:"signal"`
	ResponderID identifiers.ClientID `json:"responderId"`
}

type ICECandidateReceived struct {
	Candidate json.RawMessage      `json:"candidate"`
	SenderID  identifiers.ClientID `json:"senderId"`
}

func NewJoinRoom(roomID identifiers.RoomID) Message {
	return Message{
		Event:   EventJoinRoom,
		Payload: Payload{JoinRoom: roomID},
	}
}

func NewOffer(payload Offer) Message {
	return Message{
		Event:   EventOffer,
		Payload: Payload{Offer: &payload},
	}
}

func NewAnswer(payload Answer) Message {
	return Message{
		Event:   EventAnswer,
		Payload: Payload{Answer: &payload},
	}
}

func NewICECandidate(payload ICECandidate) Message {
	return Message{
		Event:   EventICECandidate,
		Payload: Payload{ICECandidate: &payload},
	}
}

func NewUserJoined(clientID identifiers.ClientID) Message {
	return Message{
		Event:   EventUserJoined,
		Payload: Payload{UserJoined: clientID},
	}
}

func NewUserLeft(clientID identifiers.ClientID) Message {
	return Message{
		Event:   EventUserLeft,
		Payload: Payload{UserLeft: clientID},
	}
}

// NewExistingUsers never serializes to null, even for an empty room.
func NewExistingUsers(clientIDs []identifiers.ClientID) Message {
	users := make([]identifiers.ClientID, len(clientIDs))
	copy(users, clientIDs)

	return Message{
		Event:   EventExistingUsers,
		Payload: Payload{ExistingUsers: users},
	}
}

func NewOfferReceived(payload OfferReceived) Message {
	return Message{
		Event:   EventOfferReceived,
		Payload: Payload{OfferReceived: &payload},
	}
}

func NewAnswerReceived(payload AnswerReceived) Message {
	return Message{
		Event:   EventAnswerReceived,
		Payload: Payload{AnswerReceived: &payload},
	}
}

func NewICECandidateReceived(payload ICECandidateReceived) Message {
	return Message{
		Event:   EventICECandidateReceived,
		Payload: Payload{ICECandidateReceived: &payload},
	}
}

func NewPing() Message {
	return Message{Event: EventPing}
}

func NewPong() Message {
	return Message{Event: EventPong}
}
