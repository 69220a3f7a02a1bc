// Package bus publishes finished cycles to a websocket hub.
package bus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	log "log/slog"
	"net/url"
	"sync"
	"time"

	ws "github.com/gorilla/websocket"

	"pluto/internal/pipeline"
)

var ErrDropped = errors.New("bus: publish queue full, event dropped")

const KindCycle = "cycle"

type Message struct {
	From    string          `json:"from"`
	To      string          `json:"to"`
	Kind    string          `json:"kind"`
	Content string          `json:"content"`
	Cycle   *pipeline.Cycle `json:"cycle,omitempty"`
}

type Config struct {
	URL          string
	Shard        string
	Reconnect    time.Duration
	QueueSize    int
	DrainTimeout time.Duration // how long Run keeps flushing after ctx is done
}

// Publisher owns one websocket connection and redials it when it drops.
// Observe never blocks the pipeline: events are queued and written by Run.
type Publisher struct {
	cfg   Config
	queue chan Message

	mu   sync.Mutex
	conn *ws.Conn
}

func NewPublisher(cfg Config) (*Publisher, error) {
	u, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("bus url: %w", err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return nil, fmt.Errorf("bus url: unsupported scheme %q", u.Scheme)
	}

	if cfg.Shard == "" {
		cfg.Shard = "PLUTO"
	}
	if cfg.Reconnect <= 0 {
		cfg.Reconnect = 5 * time.Second
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 64
	}
	if cfg.DrainTimeout <= 0 {
		cfg.DrainTimeout = 2 * time.Second
	}

	return &Publisher{
		cfg:   cfg,
		queue: make(chan Message, cfg.QueueSize),
	}, nil
}

func (p *Publisher) Observe(_ context.Context, c pipeline.Cycle) error {
	msg := Message{
		From:    p.cfg.Shard,
		To:      "ALL",
		Kind:    KindCycle,
		Content: c.Response,
		Cycle:   &c,
	}

	select {
	case p.queue <- msg:
		return nil
	default:
		return ErrDropped
	}
}

// Run writes queued events until ctx is done, reconnecting as needed. Events
// still queued when ctx ends are flushed for at most DrainTimeout.
func (p *Publisher) Run(ctx context.Context) {
	defer p.closeConn()

	for {
		if ctx.Err() != nil {
			p.drain(nil)
			return
		}

		select {
		case <-ctx.Done():
		case msg := <-p.queue:
			if !p.deliver(ctx, msg) && ctx.Err() != nil {
				p.drain(&msg)
				return
			}
		}
	}
}

func (p *Publisher) drain(pending *Message) {
	ctx, cancel := context.WithTimeout(context.Background(), p.cfg.DrainTimeout)
	defer cancel()

	if pending != nil && !p.deliver(ctx, *pending) {
		return
	}

	for {
		select {
		case msg := <-p.queue:
			if !p.deliver(ctx, msg) {
				log.Warn("Bus flush abandoned", "left", len(p.queue)+1)
				return
			}
		default:
			return
		}
	}
}

// deliver reports whether msg was written or deliberately dropped.
func (p *Publisher) deliver(ctx context.Context, msg Message) bool {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Error("Failed to encode bus message", "err", err)
		return true
	}

	for ctx.Err() == nil {
		conn, err := p.connect(ctx)
		if err == nil {
			log.Debug("Write ws", "msg", string(data))
			if err = conn.WriteMessage(ws.TextMessage, data); err == nil {
				return true
			}
			p.closeConn()
		}

		log.Warn("Bus unavailable, retrying", "url", p.cfg.URL, "err", err, "in", p.cfg.Reconnect)
		select {
		case <-ctx.Done():
		case <-time.After(p.cfg.Reconnect):
		}
	}
	return false
}

func (p *Publisher) connect(ctx context.Context) (*ws.Conn, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.conn != nil {
		return p.conn, nil
	}

	conn, _, err := ws.DefaultDialer.DialContext(ctx, p.cfg.URL, nil)
	if err != nil {
		return nil, err
	}

	log.Info("Connected to bus", "url", p.cfg.URL)
	p.conn = conn
	return conn, nil
}

func (p *Publisher) closeConn() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.conn != nil {
		_ = p.conn.WriteMessage(ws.CloseMessage, ws.FormatCloseMessage(ws.CloseNormalClosure, ""))
		p.conn.Close()
		p.conn = nil
	}
}
