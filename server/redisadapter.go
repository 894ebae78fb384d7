package server

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/go-redis/redis/v7"
	"github.com/juju/errors"
	"github.com/peer-calls/relay/server/identifiers"
	"github.com/peer-calls/relay/server/logger"
	"github.com/peer-calls/relay/server/message"
	"github.com/peer-calls/relay/server/multierr"
)

const (
	defaultSubscriptionTimeout     = 10 * time.Second
	defaultSubscriptionChannelSize = 100
)

var ErrSubscriptionTimeout = errors.New("redis subscription timed out")

// RedisAdapter is an Adapter shared by multiple nodes. Connections are
// registered in a set so that every node can tell whether a target exists.
// Messages for connections on other nodes are published to a channel per
// connection and every node pattern-subscribes to all of them.
type RedisAdapter struct {
	log      logger.Logger
	pubRedis *redis.Client
	subRedis *redis.Client

	keys struct {
		clients       string
		clientPrefix  string
		clientPattern string
	}

	mu      sync.RWMutex
	clients map[identifiers.ClientID]ClientWriter

	cancel context.CancelFunc
	done   chan struct{}
}

var _ Adapter = &RedisAdapter{}

// NewRedisAdapter subscribes to the client channels and returns once the
// subscription is confirmed. The redis clients are not closed by Close.
func NewRedisAdapter(
	log logger.Logger,
	pubRedis *redis.Client,
	subRedis *redis.Client,
	prefix string,
) (*RedisAdapter, error) {
	a := &RedisAdapter{
		log:      log.WithNamespaceAppended("redis_adapter"),
		pubRedis: pubRedis,
		subRedis: subRedis,
		clients:  map[identifiers.ClientID]ClientWriter{},
		done:     make(chan struct{}),
	}

	a.keys.clients = prefix + ":clients"
	a.keys.clientPrefix = prefix + ":client:"
	a.keys.clientPattern = a.keys.clientPrefix + "*"

	if err := a.subscribeUntilReady(defaultSubscriptionTimeout); err != nil {
		return nil, errors.Trace(err)
	}

	return a, nil
}

func (a *RedisAdapter) Add(client ClientWriter) error {
	clientID := client.ID()

	a.mu.Lock()
	a.clients[clientID] = client
	a.mu.Unlock()

	err := a.pubRedis.SAdd(a.keys.clients, string(clientID)).Err()

	return errors.Annotatef(err, "sadd %s %s", a.keys.clients, clientID)
}

func (a *RedisAdapter) Remove(clientID identifiers.ClientID) error {
	a.mu.Lock()
	_, ok := a.clients[clientID]
	delete(a.clients, clientID)
	a.mu.Unlock()

	// Only connections of this node are removed from the set.
	if !ok {
		return nil
	}

	err := a.pubRedis.SRem(a.keys.clients, string(clientID)).Err()

	return errors.Annotatef(err, "srem %s %s", a.keys.clients, clientID)
}

// Emit writes directly to connections of this node and publishes to the
// connection's channel otherwise.
func (a *RedisAdapter) Emit(clientID identifiers.ClientID, msg message.Message) error {
	a.mu.RLock()
	client, ok := a.clients[clientID]
	a.mu.RUnlock()

	if ok {
		return errors.Annotatef(client.Write(msg), "emit %s", clientID)
	}

	exists, err := a.pubRedis.SIsMember(a.keys.clients, string(clientID)).Result()
	if err != nil {
		return errors.Annotatef(err, "sismember %s %s", a.keys.clients, clientID)
	}

	if !exists {
		return errors.Annotatef(ErrClientNotFound, "emit %s", clientID)
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return errors.Annotatef(err, "serialize %s", msg.Event)
	}

	channel := a.keys.clientPrefix + string(clientID)

	a.log.Trace("Publish", logger.Ctx{
		"channel": channel,
		"event":   msg.Event,
	})

	err = a.pubRedis.Publish(channel, string(data)).Err()

	return errors.Annotatef(err, "publish %s", channel)
}

func (a *RedisAdapter) handleMessage(channel string, payload string) error {
	clientID := identifiers.ClientID(strings.TrimPrefix(channel, a.keys.clientPrefix))

	a.mu.RLock()
	client, ok := a.clients[clientID]
	a.mu.RUnlock()

	if !ok {
		// Connected to another node.
		return nil
	}

	var msg message.Message

	if err := json.Unmarshal([]byte(payload), &msg); err != nil {
		return errors.Annotatef(err, "deserialize message from %s", channel)
	}

	return errors.Annotatef(client.Write(msg), "write %s", clientID)
}

// subscribe reads from the client channels and dispatches messages to local
// connections. It blocks until ctx is done.
func (a *RedisAdapter) subscribe(ctx context.Context, ready chan<- struct{}) error {
	a.log.Info("Subscribe", logger.Ctx{
		"pattern": a.keys.clientPattern,
	})

	pubsub := a.subRedis.PSubscribe(a.keys.clientPattern)
	defer pubsub.Close()

	ch := pubsub.ChannelWithSubscriptions(defaultSubscriptionChannelSize)

	isReady := false

	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return errors.Errorf("subscription closed")
			}

			switch msg := msg.(type) {
			case *redis.Subscription:
				if !isReady {
					isReady = true

					close(ready)
				}
			case *redis.Message:
				if err := a.handleMessage(msg.Channel, msg.Payload); err != nil {
					a.log.Error("Handle message", errors.Trace(err), nil)
				}
			}
		case <-ctx.Done():
			return errors.Trace(ctx.Err())
		}
	}
}

func (a *RedisAdapter) subscribeUntilReady(timeout time.Duration) error {
	ctx, cancel := context.WithCancel(context.Background())
	ready := make(chan struct{})

	a.cancel = cancel

	go func() {
		defer close(a.done)

		err := a.subscribe(ctx, ready)
		if err != nil && !multierr.Is(err, context.Canceled) {
			a.log.Error("Subscription stopped", errors.Trace(err), nil)
		}
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-ready:
		return nil
	case <-timer.C:
		cancel()
		<-a.done

		return errors.Trace(ErrSubscriptionTimeout)
	}
}

// Close stops the subscription and unregisters the connections of this node.
func (a *RedisAdapter) Close() error {
	a.cancel()
	<-a.done

	a.mu.Lock()
	clientIDs := make([]identifiers.ClientID, 0, len(a.clients))

	for clientID := range a.clients {
		clientIDs = append(clientIDs, clientID)
	}

	a.clients = map[identifiers.ClientID]ClientWriter{}
	a.mu.Unlock()

	errs := multierr.New()

	for _, clientID := range clientIDs {
		err := a.pubRedis.SRem(a.keys.clients, string(clientID)).Err()
		errs.Add(errors.Annotatef(err, "srem %s %s", a.keys.clients, clientID))
	}

	return errors.Trace(errs.Err())
}
