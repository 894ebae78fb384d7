package server_test

import (
	"math/rand"
	"testing"

	"github.com/peer-calls/relay/server"
	"github.com/peer-calls/relay/server/identifiers"
	"github.com/peer-calls/relay/server/message"
	"github.com/peer-calls/relay/server/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type roomTableFixture struct {
	adapter *server.MemoryAdapter
	store   server.RoomStore
	table   *server.RoomTable
	writers map[identifiers.ClientID]*mockWriter
}

func newRoomTableFixture(t *testing.T, store server.RoomStore, ids ...identifiers.ClientID) *roomTableFixture {
	adapter := server.NewMemoryAdapter()

	f := &roomTableFixture{
		adapter: adapter,
		store:   store,
		table:   server.NewRoomTable(test.NewLogger(), adapter, store),
		writers: map[identifiers.ClientID]*mockWriter{},
	}

	for _, id := range ids {
		w := newMockWriter(id)
		f.writers[id] = w
		require.NoError(t, adapter.Add(w))
	}

	return f
}

func (f *roomTableFixture) assertNoMessages(t *testing.T) {
	t.Helper()

	for _, w := range f.writers {
		w.assertNoMessage(t)
	}
}

func roomStores(t *testing.T) map[string]func() server.RoomStore {
	return map[string]func() server.RoomStore{
		"memory": func() server.RoomStore {
			return server.NewMemoryRoomStore()
		},
		"redis": func() server.RoomStore {
			_, newClient := newMiniredis(t)

			return server.NewRedisRoomStore(newClient(), "peercalls")
		},
	}
}

func TestRoomTable_Join_existingUsers(t *testing.T) {
	for name, newStore := range roomStores(t) {
		t.Run(name, func(t *testing.T) {
			f := newRoomTableFixture(t, newStore(), "a", "b", "c")

			require.NoError(t, f.table.Join("a", "r1"))
			assert.Equal(t, message.NewExistingUsers(nil), f.writers["a"].recv(t))

			require.NoError(t, f.table.Join("b", "r1"))
			assert.Equal(t, message.NewUserJoined("b"), f.writers["a"].recv(t))
			assert.Equal(t, message.NewExistingUsers([]identifiers.ClientID{"a"}), f.writers["b"].recv(t))

			require.NoError(t, f.table.Leave("a"))
			assert.Equal(t, message.NewUserLeft("a"), f.writers["b"].recv(t))

			require.NoError(t, f.table.Join("c", "r1"))
			assert.Equal(t, message.NewUserJoined("c"), f.writers["b"].recv(t))
			assert.Equal(t, message.NewExistingUsers([]identifiers.ClientID{"b"}), f.writers["c"].recv(t))

			f.assertNoMessages(t)
		})
	}
}

func TestRoomTable_Join_rejoinAndSwitch(t *testing.T) {
	t.Parallel()

	f := newRoomTableFixture(t, server.NewMemoryRoomStore(), "a", "b")

	require.NoError(t, f.table.Join("a", "r1"))
	f.writers["a"].recv(t)
	require.NoError(t, f.table.Join("b", "r1"))
	f.writers["a"].recv(t)
	f.writers["b"].recv(t)

	require.NoError(t, f.table.Join("b", "r1"))
	assert.Equal(t, message.NewExistingUsers([]identifiers.ClientID{"a"}), f.writers["b"].recv(t))

	require.NoError(t, f.table.Join("b", "r2"))

	roomID, ok := f.table.RoomOf("b")
	assert.True(t, ok)
	assert.Equal(t, identifiers.RoomID("r1"), roomID)

	require.NoError(t, f.table.Join("a", ""))
	require.NoError(t, f.table.Join("a", "  "))

	f.assertNoMessages(t)
}

func TestRoomTable_Leave_noLeak(t *testing.T) {
	t.Parallel()

	ids := []identifiers.ClientID{"a", "b", "c", "d", "e"}
	store := server.NewMemoryRoomStore()
	f := newRoomTableFixture(t, store, ids...)

	for _, id := range ids {
		require.NoError(t, f.table.Join(id, "r1"))
	}

	order := rand.Perm(len(ids))

	for i, idx := range order {
		id := ids[idx]

		require.NoError(t, f.table.Leave(id))
		require.NoError(t, f.table.Leave(id), "second leave is a no-op")

		members, err := store.Members("r1")
		require.NoError(t, err)
		assert.Equal(t, len(ids)-i-1, len(members))
	}

	assert.Empty(t, store.Rooms())
}

func TestRoomTable_Leave_exactlyOnce(t *testing.T) {
	t.Parallel()

	f := newRoomTableFixture(t, server.NewMemoryRoomStore(), "a", "b", "c", "x")

	require.NoError(t, f.table.Join("a", "r1"))
	require.NoError(t, f.table.Join("b", "r1"))
	require.NoError(t, f.table.Join("c", "r1"))
	require.NoError(t, f.table.Join("x", "r2"))

	for _, w := range f.writers {
		for len(w.messages) > 0 {
			<-w.messages
		}
	}

	require.NoError(t, f.table.Leave("c"))
	require.NoError(t, f.table.Leave("c"))

	assert.Equal(t, message.NewUserLeft("c"), f.writers["a"].recv(t))
	assert.Equal(t, message.NewUserLeft("c"), f.writers["b"].recv(t))

	_, ok := f.table.RoomOf("c")
	assert.False(t, ok)

	f.assertNoMessages(t)
}

func TestRoomTable_Join_missingMember(t *testing.T) {
	t.Parallel()

	f := newRoomTableFixture(t, server.NewMemoryRoomStore(), "a", "b")

	require.NoError(t, f.table.Join("a", "r1"))
	f.writers["a"].recv(t)

	// a disconnected from the registry without leaving yet.
	require.NoError(t, f.adapter.Remove("a"))

	require.NoError(t, f.table.Join("b", "r1"))
	assert.Equal(t, message.NewExistingUsers([]identifiers.ClientID{"a"}), f.writers["b"].recv(t))
}
