package server

import (
	"strings"
	"sync"

	"github.com/juju/errors"
	"github.com/peer-calls/relay/server/identifiers"
	"github.com/peer-calls/relay/server/logger"
	"github.com/peer-calls/relay/server/message"
	"github.com/peer-calls/relay/server/multierr"
)

// RoomTable tracks room membership of the connections on this node and
// broadcasts join and leave events. All mutations are serialized. Emits
// happen while the lock is held so every member sees events in table order.
type RoomTable struct {
	log     logger.Logger
	adapter Adapter
	store   RoomStore

	mu          sync.Mutex
	memberships map[identifiers.ClientID]identifiers.RoomID
}

func NewRoomTable(log logger.Logger, adapter Adapter, store RoomStore) *RoomTable {
	return &RoomTable{
		log:         log.WithNamespaceAppended("room_table"),
		adapter:     adapter,
		store:       store,
		memberships: map[identifiers.ClientID]identifiers.RoomID{},
	}
}

// Join adds clientID to roomID, notifies the other members with user_joined
// and replies to clientID with existing_users.
//
// Joining the room the client is already in only repeats existing_users.
// Joining a second room is ignored.
func (t *RoomTable) Join(clientID identifiers.ClientID, roomID identifiers.RoomID) error {
	log := t.log.WithCtx(logger.Ctx{
		"client_id": clientID,
		"room_id":   roomID,
	})

	if strings.TrimSpace(string(roomID)) == "" {
		log.Warn("Ignoring join without room", nil)

		return nil
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if current, ok := t.memberships[clientID]; ok {
		if current != roomID {
			log.Warn("Ignoring join, already in another room", logger.Ctx{
				"current_room_id": current,
			})

			return nil
		}

		members, err := t.store.Members(roomID)
		if err != nil {
			return errors.Trace(err)
		}

		log.Info("Rejoin", nil)

		return t.emit(clientID, message.NewExistingUsers(identifiers.ClientIDs(members).Without(clientID)))
	}

	others, err := t.store.Add(roomID, clientID)
	if err != nil {
		return errors.Trace(err)
	}

	t.memberships[clientID] = roomID

	prometheusRoomJoinTotal.Inc()

	log.Info("Join", logger.Ctx{
		"existing": len(others),
	})

	errs := multierr.New()

	for _, other := range others {
		errs.Add(t.emit(other, message.NewUserJoined(clientID)))
	}

	errs.Add(t.emit(clientID, message.NewExistingUsers(others)))

	return errors.Trace(errs.Err())
}

// Leave removes clientID from its room and notifies the remaining members
// with user_left. It does nothing when clientID is not in a room, so it is
// safe to call more than once.
func (t *RoomTable) Leave(clientID identifiers.ClientID) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	roomID, ok := t.memberships[clientID]
	if !ok {
		return nil
	}

	delete(t.memberships, clientID)

	remaining, err := t.store.Remove(roomID, clientID)
	if err != nil {
		return errors.Trace(err)
	}

	prometheusRoomLeaveTotal.Inc()

	t.log.Info("Leave", logger.Ctx{
		"client_id": clientID,
		"room_id":   roomID,
		"remaining": len(remaining),
	})

	errs := multierr.New()

	for _, other := range remaining {
		errs.Add(t.emit(other, message.NewUserLeft(clientID)))
	}

	return errors.Trace(errs.Err())
}

// RoomOf returns the room clientID has joined on this node.
func (t *RoomTable) RoomOf(clientID identifiers.ClientID) (identifiers.RoomID, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	roomID, ok := t.memberships[clientID]

	return roomID, ok
}

// SameRoom returns true when both connections are members of the room
// senderID has joined. The target may be connected to another node.
func (t *RoomTable) SameRoom(senderID, targetID identifiers.ClientID) (bool, error) {
	roomID, ok := t.RoomOf(senderID)
	if !ok {
		return false, nil
	}

	ok, err := t.store.IsMember(roomID, targetID)

	return ok, errors.Trace(err)
}

// emit ignores connections that went away in the meantime.
func (t *RoomTable) emit(clientID identifiers.ClientID, msg message.Message) error {
	err := t.adapter.Emit(clientID, msg)
	if multierr.Is(err, ErrClientNotFound) {
		t.log.Debug("Emit to missing client", logger.Ctx{
			"client_id": clientID,
			"event":     msg.Event,
		})

		return nil
	}

	return errors.Trace(err)
}
