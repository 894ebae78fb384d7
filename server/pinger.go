package server

import (
	"context"
	"sync"
	"time"

	"github.com/juju/errors"
)

var ErrPongTimeout = errors.New("pong timeout")

// Pinger calls ping on a regular interval and records the pongs received in
// response.
type Pinger struct {
	interval time.Duration
	timeout  time.Duration
	ping     func()
	pongCh   chan struct{}

	mu       sync.Mutex
	lastPong time.Time
}

// NewPinger creates a Pinger. A zero timeout never gives up on the peer.
func NewPinger(interval time.Duration, timeout time.Duration, ping func()) *Pinger {
	return &Pinger{
		interval: interval,
		timeout:  timeout,
		ping:     ping,
		pongCh:   make(chan struct{}, 1),
	}
}

// Run blocks until ctx is done, or returns ErrPongTimeout when no pong was
// received for longer than the timeout. The time Run starts counts as the
// first pong.
func (p *Pinger) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	since := time.Now()

	for {
		select {
		case <-ticker.C:
			if p.timeout > 0 {
				last := p.LastPong()
				if last.IsZero() {
					last = since
				}

				if time.Since(last) > p.timeout {
					return errors.Trace(ErrPongTimeout)
				}
			}

			p.ping()
		case <-p.pongCh:
			p.mu.Lock()
			p.lastPong = time.Now()
			p.mu.Unlock()
		case <-ctx.Done():
			return nil
		}
	}
}

// ReceivePong does not block when a pong is already waiting to be
// processed.
func (p *Pinger) ReceivePong() {
	select {
	case p.pongCh <- struct{}{}:
	default:
	}
}

// LastPong returns the zero time until the first pong is processed.
func (p *Pinger) LastPong() time.Time {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.lastPong
}
