package server

import (
	"bytes"
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/juju/errors"
	"github.com/oxtoacart/bpool"
	"github.com/peer-calls/relay/server/identifiers"
	"github.com/peer-calls/relay/server/logger"
	"github.com/peer-calls/relay/server/message"
	"nhooyr.io/websocket"
)

var ErrWriteQueueFull = errors.New("write queue full")

const (
	defaultWriteQueueSize = 32
	defaultWriteTimeout   = 5 * time.Second
)

var bufferPool = bpool.NewBufferPool(64)

type WSWriter interface {
	Write(ctx context.Context, typ websocket.MessageType, msg []byte) error
}

type WSReader interface {
	Read(ctx context.Context) (websocket.MessageType, []byte, error)
}

type WSReadWriter interface {
	WSReader
	WSWriter
}

// Client is one websocket connection. Outbound messages are queued and
// written by Run so that Write never blocks the caller.
type Client struct {
	id    identifiers.ClientID
	log   logger.Logger
	conn  WSReadWriter
	queue chan message.Message

	closeOnce sync.Once
	closed    chan struct{}
}

var _ ClientWriter = &Client{}

type ClientParams struct {
	ID        identifiers.ClientID
	Log       logger.Logger
	Conn      WSReadWriter
	QueueSize int
}

func NewClient(params ClientParams) *Client {
	if params.QueueSize <= 0 {
		params.QueueSize = defaultWriteQueueSize
	}

	return &Client{
		id: params.ID,
		log: params.Log.WithCtx(logger.Ctx{
			"client_id": params.ID,
		}),
		conn:   params.Conn,
		queue:  make(chan message.Message, params.QueueSize),
		closed: make(chan struct{}),
	}
}

func (c *Client) ID() identifiers.ClientID {
	return c.id
}

// Write enqueues msg. It returns ErrWriteQueueFull instead of blocking.
func (c *Client) Write(msg message.Message) error {
	select {
	case <-c.closed:
		return errors.Annotatef(ErrClientNotFound, "client closed: %s", c.id)
	default:
	}

	select {
	case c.queue <- msg:
		return nil
	default:
		prometheusWriteQueueFullTotal.Inc()

		return errors.Annotatef(ErrWriteQueueFull, "event: %s", msg.Event)
	}
}

// Run writes queued messages until ctx is done or a write fails.
func (c *Client) Run(ctx context.Context) error {
	defer c.closeOnce.Do(func() {
		close(c.closed)
	})

	for {
		select {
		case msg := <-c.queue:
			if err := c.write(ctx, msg); err != nil {
				return errors.Trace(err)
			}
		case <-ctx.Done():
			return errors.Trace(ctx.Err())
		}
	}
}

func (c *Client) write(ctx context.Context, msg message.Message) error {
	buf := bufferPool.Get()
	defer bufferPool.Put(buf)

	if err := json.NewEncoder(buf).Encode(msg); err != nil {
		return errors.Annotatef(err, "serialize %s", msg.Event)
	}

	ctx, cancel := context.WithTimeout(ctx, defaultWriteTimeout)
	defer cancel()

	data := bytes.TrimRight(buf.Bytes(), "\n")

	err := c.conn.Write(ctx, websocket.MessageText, data)

	return errors.Annotatef(err, "write %s", msg.Event)
}

// Read returns the next message. Frames that cannot be decoded are logged
// and skipped, so any returned error comes from the connection itself.
func (c *Client) Read(ctx context.Context) (message.Message, error) {
	for {
		typ, data, err := c.conn.Read(ctx)
		if err != nil {
			return message.Message{}, errors.Trace(err)
		}

		if typ != websocket.MessageText {
			c.log.Warn("Skipping non-text frame", nil)

			continue
		}

		var msg message.Message

		if err := json.Unmarshal(data, &msg); err != nil {
			c.log.Warn("Skipping invalid frame", logger.Ctx{
				"error": err.Error(),
				"size":  len(data),
			})

			continue
		}

		return msg, nil
	}
}
