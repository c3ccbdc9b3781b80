package natsx

import (
	"strings"
	"sync"
	"time"

	"github.com/nats-io/nats.go"

	"LPChat/logger"
	"LPChat/tools/errs"
)

const roomSubjectPrefix = "lp.rooms."

// Config for the fan-out client.
type Config struct {
	URL           string
	Name          string
	ReconnectWait time.Duration
	Timeout       time.Duration
}

// Fanout relays room frames between gateway nodes. Every node publishes
// persisted messages to lp.rooms.<roomID> and subscribes to the wildcard,
// delivering to its own local member connections. A single-node deploy
// still goes through the loop, so the delivery path is identical either
// way.
type Fanout struct {
	cfg Config
	nc  *nats.Conn

	mu  sync.Mutex
	sub *nats.Subscription
}

func NewFanout(cfg Config) (*Fanout, error) {
	if cfg.URL == "" {
		return nil, errs.New("nats url missing")
	}
	if cfg.ReconnectWait == 0 {
		cfg.ReconnectWait = 500 * time.Millisecond
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 3 * time.Second
	}
	nc, err := nats.Connect(cfg.URL,
		nats.Name(cfg.Name),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.Timeout(cfg.Timeout),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, errs.WrapMsg(err, "connect nats", "url", cfg.URL)
	}
	return &Fanout{cfg: cfg, nc: nc}, nil
}

// PublishRoom sends an encoded frame to every node interested in roomID.
func (f *Fanout) PublishRoom(roomID string, data []byte) error {
	if f.nc == nil {
		return errs.New("nats not connected")
	}
	return f.nc.Publish(roomSubjectPrefix+roomID, data)
}

// SubscribeRooms installs the wildcard subscription. The handler gets the
// room id parsed back out of the subject plus the raw frame bytes.
func (f *Fanout) SubscribeRooms(handler func(roomID string, data []byte)) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sub != nil {
		return errs.New("rooms subscription already installed")
	}
	sub, err := f.nc.Subscribe(roomSubjectPrefix+">", func(msg *nats.Msg) {
		roomID := strings.TrimPrefix(msg.Subject, roomSubjectPrefix)
		handler(roomID, msg.Data)
	})
	if err != nil {
		return errs.WrapMsg(err, "subscribe rooms")
	}
	f.sub = sub
	return nil
}

func (f *Fanout) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sub != nil {
		if err := f.sub.Unsubscribe(); err != nil {
			logger.Warnf("[natsx] unsubscribe: %v", err)
		}
		f.sub = nil
	}
	if f.nc != nil {
		f.nc.Close()
		f.nc = nil
	}
}
