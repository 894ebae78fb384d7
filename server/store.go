package server

import (
	"net"
	"strconv"

	"github.com/go-redis/redis/v7"
	"github.com/juju/errors"
	"github.com/peer-calls/relay/server/logger"
	"github.com/peer-calls/relay/server/multierr"
)

// Store holds the connection registry and the room store selected by the
// configuration.
type Store struct {
	Adapter Adapter
	Rooms   RoomStore

	pubClient *redis.Client
	subClient *redis.Client
}

func NewStore(log logger.Logger, c StoreConfig) (*Store, error) {
	log = log.WithNamespaceAppended("store")

	if c.Type != StoreTypeRedis {
		log.Info("Using memory store", nil)

		return &Store{
			Adapter: NewMemoryAdapter(),
			Rooms:   NewMemoryRoomStore(),
		}, nil
	}

	addr := net.JoinHostPort(c.Redis.Host, strconv.Itoa(c.Redis.Port))

	log.Info("Using redis store", logger.Ctx{
		"addr":   addr,
		"prefix": c.Redis.Prefix,
	})

	return NewRedisStore(
		log,
		redis.NewClient(&redis.Options{Addr: addr}),
		redis.NewClient(&redis.Options{Addr: addr}),
		c.Redis.Prefix,
	)
}

// NewRedisStore takes ownership of both clients: they are closed by Close,
// or right away when the subscription cannot be established.
func NewRedisStore(log logger.Logger, pubClient, subClient *redis.Client, prefix string) (*Store, error) {
	adapter, err := NewRedisAdapter(log, pubClient, subClient, prefix)
	if err != nil {
		errs := multierr.New()
		errs.Add(errors.Trace(err))
		errs.Add(pubClient.Close())
		errs.Add(subClient.Close())

		return nil, errors.Trace(errs.Err())
	}

	return &Store{
		Adapter:   adapter,
		Rooms:     NewRedisRoomStore(pubClient, prefix),
		pubClient: pubClient,
		subClient: subClient,
	}, nil
}

func (s *Store) Close() error {
	errs := multierr.New()

	errs.Add(s.Adapter.Close())
	errs.Add(s.Rooms.Close())

	if s.pubClient != nil {
		errs.Add(s.pubClient.Close())
	}

	if s.subClient != nil {
		errs.Add(s.subClient.Close())
	}

	return errors.Trace(errs.Err())
}
