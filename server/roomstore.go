package server

import (
	"sync"

	"github.com/go-redis/redis/v7"
	"github.com/juju/errors"
	"github.com/peer-calls/relay/server/identifiers"
)

// RoomStore keeps the member sets of rooms. A room without members does not
// exist.
type RoomStore interface {
	// Add adds clientID to the room and returns the members that were in the
	// room before, excluding clientID.
	Add(roomID identifiers.RoomID, clientID identifiers.ClientID) ([]identifiers.ClientID, error)
	// Remove removes clientID from the room and returns the remaining
	// members.
	Remove(roomID identifiers.RoomID, clientID identifiers.ClientID) ([]identifiers.ClientID, error)
	Members(roomID identifiers.RoomID) ([]identifiers.ClientID, error)
	IsMember(roomID identifiers.RoomID, clientID identifiers.ClientID) (bool, error)
	Close() error
}

type MemoryRoomStore struct {
	mu    sync.RWMutex
	rooms map[identifiers.RoomID]map[identifiers.ClientID]struct{}
}

var _ RoomStore = &MemoryRoomStore{}

func NewMemoryRoomStore() *MemoryRoomStore {
	return &MemoryRoomStore{
		rooms: map[identifiers.RoomID]map[identifiers.ClientID]struct{}{},
	}
}

func (s *MemoryRoomStore) Add(roomID identifiers.RoomID, clientID identifiers.ClientID) ([]identifiers.ClientID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	members, ok := s.rooms[roomID]
	if !ok {
		members = map[identifiers.ClientID]struct{}{}
		s.rooms[roomID] = members
	}

	others := membersWithout(members, clientID)

	members[clientID] = struct{}{}

	return others, nil
}

func (s *MemoryRoomStore) Remove(roomID identifiers.RoomID, clientID identifiers.ClientID) ([]identifiers.ClientID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	members, ok := s.rooms[roomID]
	if !ok {
		return nil, nil
	}

	delete(members, clientID)

	if len(members) == 0 {
		delete(s.rooms, roomID)
	}

	return membersWithout(members, ""), nil
}

func (s *MemoryRoomStore) Members(roomID identifiers.RoomID) ([]identifiers.ClientID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return membersWithout(s.rooms[roomID], ""), nil
}

func (s *MemoryRoomStore) IsMember(roomID identifiers.RoomID, clientID identifiers.ClientID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.rooms[roomID][clientID]

	return ok, nil
}

// Rooms returns the IDs of all rooms that currently have members.
func (s *MemoryRoomStore) Rooms() []identifiers.RoomID {
	s.mu.RLock()
	defer s.mu.RUnlock()

	roomIDs := make([]identifiers.RoomID, 0, len(s.rooms))

	for roomID := range s.rooms {
		roomIDs = append(roomIDs, roomID)
	}

	return roomIDs
}

func (s *MemoryRoomStore) Close() error {
	return nil
}

func membersWithout(members map[identifiers.ClientID]struct{}, clientID identifiers.ClientID) []identifiers.ClientID {
	ret := make(identifiers.ClientIDs, 0, len(members))

	for member := range members {
		if member != clientID {
			ret = append(ret, member)
		}
	}

	return ret.Sorted()
}

// RedisRoomStore keeps one set per room. Redis deletes empty sets so rooms
// without members disappear on their own.
type RedisRoomStore struct {
	client *redis.Client
	prefix string
}

var _ RoomStore = &RedisRoomStore{}

func NewRedisRoomStore(client *redis.Client, prefix string) *RedisRoomStore {
	return &RedisRoomStore{
		client: client,
		prefix: prefix,
	}
}

func (s *RedisRoomStore) key(roomID identifiers.RoomID) string {
	return s.prefix + ":room:" + string(roomID) + ":clients"
}

func (s *RedisRoomStore) Add(roomID identifiers.RoomID, clientID identifiers.ClientID) ([]identifiers.ClientID, error) {
	key := s.key(roomID)

	var members *redis.StringSliceCmd

	_, err := s.client.TxPipelined(func(pipe redis.Pipeliner) error {
		members = pipe.SMembers(key)
		pipe.SAdd(key, string(clientID))

		return nil
	})
	if err != nil {
		return nil, errors.Annotatef(err, "add %s to %s", clientID, key)
	}

	return toClientIDs(members.Val()).Without(clientID).Sorted(), nil
}

func (s *RedisRoomStore) Remove(roomID identifiers.RoomID, clientID identifiers.ClientID) ([]identifiers.ClientID, error) {
	key := s.key(roomID)

	var members *redis.StringSliceCmd

	_, err := s.client.TxPipelined(func(pipe redis.Pipeliner) error {
		pipe.SRem(key, string(clientID))
		members = pipe.SMembers(key)

		return nil
	})
	if err != nil {
		return nil, errors.Annotatef(err, "remove %s from %s", clientID, key)
	}

	return toClientIDs(members.Val()).Sorted(), nil
}

func (s *RedisRoomStore) Members(roomID identifiers.RoomID) ([]identifiers.ClientID, error) {
	key := s.key(roomID)

	members, err := s.client.SMembers(key).Result()
	if err != nil {
		return nil, errors.Annotatef(err, "smembers %s", key)
	}

	return toClientIDs(members).Sorted(), nil
}

func (s *RedisRoomStore) IsMember(roomID identifiers.RoomID, clientID identifiers.ClientID) (bool, error) {
	key := s.key(roomID)

	ok, err := s.client.SIsMember(key, string(clientID)).Result()

	return ok, errors.Annotatef(err, "sismember %s %s", key, clientID)
}

// Close does not close the redis client.
func (s *RedisRoomStore) Close() error {
	return nil
}

func toClientIDs(values []string) identifiers.ClientIDs {
	ret := make(identifiers.ClientIDs, len(values))

	for i, v := range values {
		ret[i] = identifiers.ClientID(v)
	}

	return ret
}
