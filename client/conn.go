package client

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/juju/errors"
	"github.com/peer-calls/relay/server"
	"github.com/peer-calls/relay/server/atomic"
	"github.com/peer-calls/relay/server/identifiers"
	"github.com/peer-calls/relay/server/logger"
	"github.com/peer-calls/relay/server/message"
	"nhooyr.io/websocket"
)

var (
	ErrEmptyRoom     = errors.New("room id is empty")
	ErrAlreadyJoined = errors.New("already joined a room")
)

const writeTimeout = 5 * time.Second

// Conn is a websocket connection to the relay.
type Conn struct {
	log     logger.Logger
	conn    *websocket.Conn
	media   *LocalMedia
	manager *Manager

	joined atomic.Bool

	mu            sync.Mutex
	existingUsers []identifiers.ClientID
	joinedCh      chan struct{}
	joinedOnce    sync.Once
}

var _ Sender = &Conn{}

type DialParams struct {
	Log     logger.Logger
	URL     string
	Media   *LocalMedia
	Factory PeerConnectionFactory
	// OnPeerLeft is optional.
	OnPeerLeft func(identifiers.ClientID)
	// ReadLimit defaults to server.DefaultMaxMessageSize.
	ReadLimit int64
}

func Dial(ctx context.Context, params DialParams) (*Conn, error) {
	log := params.Log.WithNamespaceAppended("conn").WithCtx(logger.Ctx{
		"url": params.URL,
	})

	wsConn, _, err := websocket.Dial(ctx, params.URL, nil)
	if err != nil {
		return nil, errors.Annotatef(err, "dial: %s", params.URL)
	}

	readLimit := params.ReadLimit
	if readLimit <= 0 {
		readLimit = server.DefaultMaxMessageSize
	}

	wsConn.SetReadLimit(readLimit)

	c := &Conn{
		log:      log,
		conn:     wsConn,
		media:    params.Media,
		joinedCh: make(chan struct{}),
	}

	c.manager = NewManager(ManagerParams{
		Log:        params.Log,
		Factory:    params.Factory,
		Sender:     c,
		Media:      params.Media,
		OnPeerLeft: params.OnPeerLeft,
	})

	log.Info("Connected", nil)

	return c, nil
}

func (c *Conn) Manager() *Manager {
	return c.manager
}

// ExistingUsers returns the members reported by the relay after joining.
func (c *Conn) ExistingUsers() []identifiers.ClientID {
	c.mu.Lock()
	defer c.mu.Unlock()

	return append([]identifiers.ClientID{}, c.existingUsers...)
}

// Joined is closed once the relay has confirmed the join with
// existing_users.
func (c *Conn) Joined() <-chan struct{} {
	return c.joinedCh
}

// Send writes a message to the relay. It is safe for concurrent use.
func (c *Conn) Send(msg message.Message) error {
	b, err := json.Marshal(msg)
	if err != nil {
		return errors.Annotatef(err, "marshal: %s", msg.Event)
	}

	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	err = c.conn.Write(ctx, websocket.MessageText, b)

	return errors.Annotatef(err, "write: %s", msg.Event)
}

// Join acquires local media and asks the relay to join roomID. Only the
// first successful call sends join_room.
func (c *Conn) Join(ctx context.Context, roomID string) error {
	room := identifiers.RoomID(strings.TrimSpace(roomID))
	if room == "" {
		return errors.Trace(ErrEmptyRoom)
	}

	if c.media != nil {
		if _, err := c.media.Acquire(ctx); err != nil {
			return errors.Trace(err)
		}
	}

	if !c.joined.CompareAndSwap(true) {
		return errors.Trace(ErrAlreadyJoined)
	}

	c.manager.SetRoom(room)

	if err := c.Send(message.NewJoinRoom(room)); err != nil {
		c.joined.Set(false)

		return errors.Trace(err)
	}

	c.log.Info("Join room", logger.Ctx{
		"room_id": room,
	})

	return nil
}

// Run reads messages from the relay until ctx is done or the connection
// breaks. All sessions are closed before it returns.
func (c *Conn) Run(ctx context.Context) error {
	defer func() {
		if err := c.manager.Close(); err != nil {
			c.log.Warn("Close sessions", logger.Ctx{
				"error": err.Error(),
			})
		}
	}()

	for {
		typ, b, err := c.conn.Read(ctx)
		if err != nil {
			return errors.Annotate(err, "read")
		}

		if typ != websocket.MessageText {
			c.log.Warn("Unexpected message type", logger.Ctx{
				"type": typ.String(),
			})

			continue
		}

		var msg message.Message

		if err := json.Unmarshal(b, &msg); err != nil {
			c.log.Warn("Unmarshal message", logger.Ctx{
				"error": err.Error(),
			})

			continue
		}

		c.handle(msg)
	}
}

func (c *Conn) handle(msg message.Message) {
	switch msg.Event {
	case message.EventPing:
		if err := c.Send(message.NewPong()); err != nil {
			c.log.Warn("Send pong", logger.Ctx{
				"error": err.Error(),
			})
		}
	case message.EventExistingUsers:
		c.mu.Lock()
		c.existingUsers = append([]identifiers.ClientID{}, msg.Payload.ExistingUsers...)
		c.mu.Unlock()

		c.joinedOnce.Do(func() {
			close(c.joinedCh)
		})

		c.log.Info("Existing users", logger.Ctx{
			"client_ids": msg.Payload.ExistingUsers,
		})
	default:
		c.manager.Handle(msg)
	}
}

func (c *Conn) Close() error {
	err := c.conn.Close(websocket.StatusNormalClosure, "")

	return errors.Annotate(err, "close")
}
