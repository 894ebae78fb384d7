package server_test

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v7"
	"github.com/peer-calls/relay/server/identifiers"
	"github.com/peer-calls/relay/server/message"
	"github.com/stretchr/testify/require"
)

const timeout = 5 * time.Second

type mockWriter struct {
	id       identifiers.ClientID
	messages chan message.Message
}

func newMockWriter(id identifiers.ClientID) *mockWriter {
	return &mockWriter{
		id:       id,
		messages: make(chan message.Message, 100),
	}
}

func (m *mockWriter) ID() identifiers.ClientID {
	return m.id
}

func (m *mockWriter) Write(msg message.Message) error {
	m.messages <- msg

	return nil
}

func (m *mockWriter) recv(t *testing.T) message.Message {
	t.Helper()

	select {
	case msg := <-m.messages:
		return msg
	case <-time.After(timeout):
		t.Fatalf("timed out waiting for message to %s", m.id)
	}

	return message.Message{}
}

func (m *mockWriter) assertNoMessage(t *testing.T) {
	t.Helper()

	select {
	case msg := <-m.messages:
		t.Fatalf("unexpected message to %s: %+v", m.id, msg)
	case <-time.After(20 * time.Millisecond):
	}
}

func newMiniredis(t *testing.T) (*miniredis.Miniredis, func() *redis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)

	t.Cleanup(mr.Close)

	newClient := func() *redis.Client {
		c := redis.NewClient(&redis.Options{
			Addr: mr.Addr(),
		})

		t.Cleanup(func() {
			c.Close()
		})

		return c
	}

	return mr, newClient
}
