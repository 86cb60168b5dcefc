package message

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"
)

// Scope selects which messages a listener receives.
type Scope struct {
	// TabID zero means the extension-wide runtime scope.
	TabID int
}

// Runtime is the extension-wide scope used by the background and side panel.
var Runtime = Scope{}

// TabScope is the scope of the content script running in tab id.
func TabScope(id int) Scope { return Scope{TabID: id} }

// Transport is one context's view of the message system. Sends never wait
// for, or report, delivery.
type Transport interface {
	// Broadcast delivers msg to every runtime-scope listener of other contexts.
	Broadcast(ctx context.Context, msg Message) error

	// SendToTab delivers msg to the listeners of one tab.
	SendToTab(ctx context.Context, tabID int, msg Message) error

	// Listen registers a listener. The returned func unregisters it and
	// closes the channel.
	Listen(scope Scope) (<-chan Envelope, func())
}

// ErrClosed is returned when sending through a closed hub.
var ErrClosed = errors.New("message hub closed")

// DefaultBuffer is the per-listener queue length.
const DefaultBuffer = 16

type listener struct {
	port  *Port
	scope Scope
	ch    chan Envelope
}

// Hub connects contexts running in one process. Each message is serialised
// on send and decoded per listener, so contexts never share values.
type Hub struct {
	mu        sync.Mutex
	listeners map[*listener]struct{}
	buffer    int
	closed    bool
	log       zerolog.Logger
}

// HubOption configures a Hub.
type HubOption func(*Hub)

// WithBuffer sets the per-listener queue length.
func WithBuffer(n int) HubOption {
	return func(h *Hub) {
		if n > 0 {
			h.buffer = n
		}
	}
}

// WithLogger sets the hub logger.
func WithLogger(log zerolog.Logger) HubOption {
	return func(h *Hub) { h.log = log }
}

// NewHub creates an empty hub.
func NewHub(opts ...HubOption) *Hub {
	h := &Hub{
		listeners: make(map[*listener]struct{}),
		buffer:    DefaultBuffer,
		log:       zerolog.Nop(),
	}
	for _, o := range opts {
		o(h)
	}
	return h
}

// Connect returns the transport for one context.
func (h *Hub) Connect(sender Sender) *Port {
	return &Port{hub: h, sender: sender}
}

// Close unregisters every listener and rejects further sends.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for l := range h.listeners {
		close(l.ch)
		delete(h.listeners, l)
	}
}

func (h *Hub) deliver(from *Port, match func(*listener) bool, msg Message) error {
	data, err := Marshal(msg)
	if err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return ErrClosed
	}

	delivered := 0
	for l := range h.listeners {
		if l.port == from || !match(l) {
			continue
		}
		decoded, err := Unmarshal(data)
		if err != nil {
			return err
		}
		select {
		case l.ch <- Envelope{Message: decoded, Sender: from.sender}:
			delivered++
		default:
			h.log.Debug().Str("type", string(msg.Type())).Int("scopeTab", l.scope.TabID).Msg("listener queue full, message dropped")
		}
	}
	if delivered == 0 {
		h.log.Debug().Str("type", string(msg.Type())).Msg("no listener, message dropped")
	}
	return nil
}

func (h *Hub) listen(p *Port, scope Scope) (<-chan Envelope, func()) {
	l := &listener{port: p, scope: scope, ch: make(chan Envelope, h.buffer)}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		close(l.ch)
		return l.ch, func() {}
	}
	h.listeners[l] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return l.ch, func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			if _, ok := h.listeners[l]; ok {
				delete(h.listeners, l)
				close(l.ch)
			}
		})
	}
}

// Port is a context's connection to a Hub. It implements Transport.
type Port struct {
	hub    *Hub
	sender Sender
}

var _ Transport = (*Port)(nil)

// Broadcast implements Transport.
func (p *Port) Broadcast(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return p.hub.deliver(p, func(l *listener) bool { return l.scope == Runtime }, msg)
}

// SendToTab implements Transport.
func (p *Port) SendToTab(ctx context.Context, tabID int, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if tabID == 0 {
		return errors.New("send to tab: tab id required")
	}
	return p.hub.deliver(p, func(l *listener) bool { return l.scope.TabID == tabID }, msg)
}

// Listen implements Transport.
func (p *Port) Listen(scope Scope) (<-chan Envelope, func()) {
	return p.hub.listen(p, scope)
}
