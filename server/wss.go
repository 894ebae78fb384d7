package server

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/juju/errors"
	"github.com/peer-calls/relay/server/identifiers"
	"github.com/peer-calls/relay/server/logger"
	"github.com/peer-calls/relay/server/message"
	"github.com/peer-calls/relay/server/multierr"
	"github.com/peer-calls/relay/server/uuid"
	"nhooyr.io/websocket"
)

// WSS accepts websocket connections and registers them with the Adapter.
type WSS struct {
	log       logger.Logger
	adapter   Adapter
	queueSize int
	readLimit int64
}

// NewWSS uses DefaultMaxMessageSize when readLimit is not positive.
func NewWSS(log logger.Logger, adapter Adapter, queueSize int, readLimit int64) *WSS {
	if readLimit <= 0 {
		readLimit = DefaultMaxMessageSize
	}

	return &WSS{
		log:       log.WithNamespaceAppended("wss"),
		adapter:   adapter,
		queueSize: queueSize,
		readLimit: readLimit,
	}
}

// Subscription is an accepted connection. Messages is closed when the
// connection is lost or ctx is done.
type Subscription struct {
	ClientID identifiers.ClientID
	Client   *Client
	Messages <-chan message.Message

	log     logger.Logger
	adapter Adapter
	conn    *websocket.Conn
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	start   time.Time
	once    sync.Once
}

func (wss *WSS) Subscribe(ctx context.Context, w http.ResponseWriter, r *http.Request) (*Subscription, error) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		CompressionMode: websocket.CompressionDisabled,
	})
	if err != nil {
		prometheusWSConnErrTotal.Inc()

		return nil, errors.Annotate(err, "accept websocket connection")
	}

	conn.SetReadLimit(wss.readLimit)

	clientID := identifiers.ClientID(uuid.New())
	log := wss.log.WithCtx(logger.Ctx{
		"client_id": clientID,
	})

	client := NewClient(ClientParams{
		ID:        clientID,
		Log:       log,
		Conn:      conn,
		QueueSize: wss.queueSize,
	})

	if err := wss.adapter.Add(client); err != nil {
		prometheusWSConnErrTotal.Inc()

		_ = conn.Close(websocket.StatusInternalError, "")

		return nil, errors.Annotatef(err, "add client: %s", clientID)
	}

	prometheusWSConnTotal.Inc()
	prometheusWSConnActive.Inc()

	log.Info("New websocket connection", nil)

	ctx, cancel := context.WithCancel(ctx)
	ch := make(chan message.Message)

	sub := &Subscription{
		ClientID: clientID,
		Client:   client,
		Messages: ch,
		log:      log,
		adapter:  wss.adapter,
		conn:     conn,
		cancel:   cancel,
		start:    time.Now(),
	}

	sub.wg.Add(2)

	go func() {
		defer sub.wg.Done()
		// A failed write means the connection is unusable.
		defer cancel()

		err := client.Run(ctx)
		if err != nil && !multierr.Is(err, context.Canceled) {
			log.Error("Write loop", errors.Trace(err), nil)
		}
	}()

	go func() {
		defer sub.wg.Done()
		defer close(ch)

		for {
			msg, err := client.Read(ctx)
			if err != nil {
				sub.logReadError(err)

				return
			}

			select {
			case ch <- msg:
			case <-ctx.Done():
				return
			}
		}
	}()

	return sub, nil
}

func (s *Subscription) logReadError(err error) {
	cause := errors.Cause(err)

	switch {
	case multierr.Is(cause, context.Canceled):
	case websocket.CloseStatus(cause) == websocket.StatusNormalClosure,
		websocket.CloseStatus(cause) == websocket.StatusGoingAway:
		s.log.Info("Websocket closed", nil)
	default:
		s.log.Warn("Read loop", logger.Ctx{
			"error": err.Error(),
		})
	}
}

// Close unregisters the connection, stops both loops and closes the
// websocket. It is safe to call more than once.
func (s *Subscription) Close() error {
	var err error

	s.once.Do(func() {
		errs := multierr.New()

		errs.Add(s.adapter.Remove(s.ClientID))

		s.cancel()
		s.wg.Wait()

		prometheusWSConnActive.Dec()
		prometheusWSConnDuration.Observe(time.Since(s.start).Seconds())

		if closeErr := s.conn.Close(websocket.StatusNormalClosure, ""); closeErr != nil {
			s.log.Debug("Close websocket", logger.Ctx{
				"error": closeErr.Error(),
			})
		}

		s.log.Info("Websocket connection closed", nil)

		err = errors.Trace(errs.Err())
	})

	return err
}
