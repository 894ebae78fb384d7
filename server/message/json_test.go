package message_test

import (
	"encoding/json"
	"testing"

	"github.com/juju/errors"
	"github.com/peer-calls/relay/server/identifiers"
	"github.com/peer-calls/relay/server/message"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessage_MarshalJSON(t *testing.T) {
	t.Parallel()

	type testCase struct {
		msg  message.Message
		want string
	}

	signal := json.RawMessage(`{"type":"offer","sdp":"v=0"}`)

	testCases := []testCase{
		{message.NewJoinRoom("r1"), `{"event":"join_room","data":"r1"}`},
		{message.NewUserJoined("b"), `{"event":"user_joined","data":"b"}`},
		{message.NewUserLeft("b"), `{"event":"user_left","data":"b"}`},
		{message.NewExistingUsers(nil), `{"event":"existing_users","data":[]}`},
		{message.NewExistingUsers([]identifiers.ClientID{"a"}), `{"event":"existing_users","data":["a"]}`},
		{
			message.NewOfferReceived(message.OfferReceived{Signal: signal, CallerID: "a"}),
			`{"event":"offer_received","data":{"signal":{"type":"offer","sdp":"v=0"},"callerId":"a"}}`,
		},
		{
			message.NewAnswerReceived(message.AnswerReceived{Signal: signal, ResponderID: "b"}),
			`{"event":"answer_received","data":{"signal":{"type":"offer","sdp":"v=0"},"responderId":"b"}}`,
		},
		{
			message.NewICECandidateReceived(message.ICECandidateReceived{Candidate: json.RawMessage(`{"candidate":"c"}`), SenderID: "a"}),
			`{"event":"ice_candidate_received","data":{"candidate":{"candidate":"c"},"senderId":"a"}}`,
		},
		{message.NewPing(), `{"event":"ping"}`},
	}

	for _, tc := range testCases {
		b, err := json.Marshal(tc.msg)
		require.NoError(t, err, tc.want)
		assert.JSONEq(t, tc.want, string(b))
	}
}

func TestMessage_UnmarshalJSON(t *testing.T) {
	t.Parallel()

	var msg message.Message

	err := json.Unmarshal([]byte(`{"event":"offer","data":{"targetUserId":"b","signal":{"sdp":"x"},"roomId":"r1","callerId":"spoofed"}}`), &msg)
	require.NoError(t, err)

	assert.Equal(t, message.EventOffer, msg.Event)
	require.NotNil(t, msg.Payload.Offer)
	assert.Equal(t, identifiers.ClientID("b"), msg.Payload.Offer.TargetUserID)
	assert.Equal(t, identifiers.RoomID("r1"), msg.Payload.Offer.RoomID)
	assert.JSONEq(t, `{"sdp":"x"}`, string(msg.Payload.Offer.Signal))

	err = json.Unmarshal([]byte(`{"event":"join_room","data":"r2"}`), &msg)
	require.NoError(t, err)
	assert.Equal(t, identifiers.RoomID("r2"), msg.Payload.JoinRoom)
	assert.Nil(t, msg.Payload.Offer, "payload is reset between messages")

	err = json.Unmarshal([]byte(`{"event":"join_room"}`), &msg)
	require.NoError(t, err)
	assert.Equal(t, identifiers.RoomID(""), msg.Payload.JoinRoom)

	err = json.Unmarshal([]byte(`{"event":"pong"}`), &msg)
	require.NoError(t, err)
	assert.Equal(t, message.EventPong, msg.Event)
}

func TestMessage_UnmarshalJSON_errors(t *testing.T) {
	t.Parallel()

	var msg message.Message

	err := json.Unmarshal([]byte(`{"event":"nope"}`), &msg)
	assert.Equal(t, message.ErrUnknownEvent, errors.Cause(err))

	err = json.Unmarshal([]byte(`{"event":"join_room","data":{"room":1}}`), &msg)
	assert.Error(t, err)

	err = json.Unmarshal([]byte(`not json`), &msg)
	assert.Error(t, err)
}
