package message

import (
	"encoding/json"

	"github.com/juju/errors"
	"github.com/peer-calls/relay/server/identifiers"
)

var ErrUnknownEvent = errors.New("unknown event")

// JSON is the wire envelope of a Message.
type JSON struct {
	Event Event           `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

func (m Message) data() (interface{}, error) {
	p := m.Payload

	switch m.Event {
	case EventJoinRoom:
		return p.JoinRoom, nil
	case EventUserJoined:
		return p.UserJoined, nil
	case EventUserLeft:
		return p.UserLeft, nil
	case EventExistingUsers:
		if p.ExistingUsers == nil {
			return []identifiers.ClientID{}, nil
		}

		return p.ExistingUsers, nil
	case EventOffer:
		return p.Offer, nil
	case EventAnswer:
		return p.Answer, nil
	case EventICECandidate:
		return p.ICECandidate, nil
	case EventOfferReceived:
		return p.OfferReceived, nil
	case EventAnswerReceived:
		return p.AnswerReceived, nil
	case EventICECandidateReceived:
		return p.ICECandidateReceived, nil
	case EventPing, EventPong:
		return nil, nil
	}

	return nil, errors.Annotatef(ErrUnknownEvent, "event: %q", m.Event)
}

func (m Message) MarshalJSON() ([]byte, error) {
	data, err := m.data()
	if err != nil {
		return nil, errors.Trace(err)
	}

	j := JSON{Event: m.Event}

	if data != nil {
		if j.Data, err = json.Marshal(data); err != nil {
			return nil, errors.Annotatef(err, "marshal data: %s", m.Event)
		}
	}

	b, err := json.Marshal(j)

	return b, errors.Annotatef(err, "marshal message: %s", m.Event)
}

func (m *Message) UnmarshalJSON(b []byte) error {
	var j JSON

	if err := json.Unmarshal(b, &j); err != nil {
		return errors.Trace(err)
	}

	*m = Message{Event: j.Event}

	var target interface{}

	p := &m.Payload

	switch j.Event {
	case EventJoinRoom:
		target = &p.JoinRoom
	case EventUserJoined:
		target = &p.UserJoined
	case EventUserLeft:
		target = &p.UserLeft
	case EventExistingUsers:
		target = &p.ExistingUsers
	case EventOffer:
		p.Offer = &Offer{}
		target = p.Offer
	case EventAnswer:
		p.Answer = &Answer{}
		target = p.Answer
	case EventICECandidate:
		p.ICECandidate = &ICECandidate{}
		target = p.ICECandidate
	case EventOfferReceived:
		p.OfferReceived = &OfferReceived{}
		target = p.OfferReceived
	case EventAnswerReceived:
		p.AnswerReceived = &AnswerReceived{}
		target = p.AnswerReceived
	case EventICECandidateReceived:
		p.ICECandidateReceived = &ICECandidateReceived{}
		target = p.ICECandidateReceived
	case EventPing, EventPong:
		return nil
	default:
		return errors.Annotatef(ErrUnknownEvent, "event: %q", j.Event)
	}

	if len(j.Data) == 0 || string(j.Data) == "null" {
		return nil
	}

	return errors.Annotatef(json.Unmarshal(j.Data, target), "data: %s", j.Data)
}
