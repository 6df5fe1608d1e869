package wirebus

import (
	"context"
	"errors"
	"net"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/randalmurphal/wirebus/pkg/wirebus/observability"
)

// PublisherConfig configures a Publisher.
type PublisherConfig struct {
	// BindAddr is the TCP address to listen on. Port 0 requests an
	// OS-assigned ephemeral port, retrievable via BoundAddr.
	BindAddr string

	// ChannelCapacity is the outbound queue depth per subscriber connection.
	ChannelCapacity int

	// MaxConnections limits simultaneous subscriber connections. Excess
	// connections are closed immediately rather than queued.
	MaxConnections int
}

// DefaultPublisherConfig provides reasonable defaults.
func DefaultPublisherConfig() PublisherConfig {
	return PublisherConfig{
		BindAddr:        "127.0.0.1:0",
		ChannelCapacity: 1024,
		MaxConnections:  100,
	}
}

// Publisher is the server side of the bus. It accepts subscriber connections
// and fans every published event out to all of them.
//
// Each connection owns a bounded outbound queue drained by a dedicated writer
// goroutine. Publish performs non-blocking enqueues only: a connection whose
// queue is full at publish time is evicted, so one slow subscriber can never
// stall the publisher or starve the others.
type Publisher struct {
	cfg  PublisherConfig
	opts options

	mu      sync.Mutex
	running bool
	ln      net.Listener
	conns   map[string]*pubConn
	done    chan struct{}

	wg              sync.WaitGroup
	eventsPublished atomic.Uint64
}

// pubConn is one registered subscriber connection.
type pubConn struct {
	id   string
	nc   net.Conn
	out  chan []byte
	done chan struct{}
	once sync.Once
}

// shutdown closes the socket and wakes the writer goroutine. Idempotent.
func (c *pubConn) shutdown() {
	c.once.Do(func() {
		close(c.done)
		c.nc.Close()
	})
}

// NewPublisher creates a publisher. Call Start to begin accepting connections.
func NewPublisher(cfg PublisherConfig, opts ...Option) *Publisher {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if cfg.ChannelCapacity <= 0 {
		cfg.ChannelCapacity = DefaultPublisherConfig().ChannelCapacity
	}
	if cfg.MaxConnections <= 0 {
		cfg.MaxConnections = DefaultPublisherConfig().MaxConnections
	}
	return &Publisher{cfg: cfg, opts: o}
}

// Start binds the listening socket and launches the accept loop.
//
// It fails with KindAlreadyRunning if the publisher is running, with
// KindInvalidAddress if the bind address does not parse, and with KindIo if
// the bind itself fails. A bind failure is fatal to this instance; construct
// a new Publisher rather than retrying.
func (p *Publisher) Start() error {
	if _, err := net.ResolveTCPAddr("tcp", p.cfg.BindAddr); err != nil {
		return wrapError(KindInvalidAddress, err, "resolve %q", p.cfg.BindAddr)
	}

	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return newError(KindAlreadyRunning, "publisher already running")
	}

	ln, err := net.Listen("tcp", p.cfg.BindAddr)
	if err != nil {
		p.mu.Unlock()
		return wrapError(KindIo, err, "bind %q", p.cfg.BindAddr)
	}

	p.running = true
	p.ln = ln
	p.conns = make(map[string]*pubConn)
	p.done = make(chan struct{})
	p.mu.Unlock()

	observability.LogPublisherStart(p.opts.logger, ln.Addr().String())

	p.wg.Add(1)
	go p.acceptLoop(ln)
	return nil
}

// acceptLoop accepts connections until the listener closes.
func (p *Publisher) acceptLoop(ln net.Listener) {
	defer p.wg.Done()
	for {
		nc, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			select {
			case <-p.done:
				return
			default:
			}
			continue
		}
		p.register(nc)
	}
}

// register adds an accepted connection to the registry, enforcing the
// connection limit, and starts its writer goroutine.
func (p *Publisher) register(nc net.Conn) {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		nc.Close()
		return
	}
	if len(p.conns) >= p.cfg.MaxConnections {
		p.mu.Unlock()
		observability.LogConnectionRejected(p.opts.logger, nc.RemoteAddr().String(), p.cfg.MaxConnections)
		nc.Close()
		return
	}

	c := &pubConn{
		id:   uuid.NewString(),
		nc:   nc,
		out:  make(chan []byte, p.cfg.ChannelCapacity),
		done: make(chan struct{}),
	}
	p.conns[c.id] = c
	total := len(p.conns)
	p.mu.Unlock()

	observability.LogConnectionAccepted(p.opts.logger, c.id, nc.RemoteAddr().String(), total)
	p.opts.metrics.RecordConnectionOpened(context.Background())

	p.wg.Add(1)
	go p.writeLoop(c)
}

// writeLoop drains one connection's outbound queue onto its socket.
// A write error prunes only this connection.
func (p *Publisher) writeLoop(c *pubConn) {
	defer p.wg.Done()
	for {
		select {
		case frame := <-c.out:
			if _, err := c.nc.Write(frame); err != nil {
				p.unregister(c, err)
				return
			}
		case <-c.done:
			p.unregister(c, nil)
			return
		case <-p.done:
			p.unregister(c, nil)
			return
		}
	}
}

// unregister removes a connection from the registry if still present and
// closes it. Safe to call from multiple paths; only the first removal logs.
func (p *Publisher) unregister(c *pubConn, cause error) {
	p.mu.Lock()
	_, present := p.conns[c.id]
	delete(p.conns, c.id)
	p.mu.Unlock()

	c.shutdown()
	if present {
		observability.LogConnectionClosed(p.opts.logger, c.id, c.nc.RemoteAddr().String(), cause)
		p.opts.metrics.RecordConnectionClosed(context.Background())
	}
}

// Publish fans the event out to every registered connection.
//
// The call never blocks on a slow consumer: the frame is enqueued with a
// non-blocking send, and any connection whose queue is full is evicted from
// the registry and closed. Subscribers connected after this call see nothing;
// there is no history replay.
//
// Fails with KindNotRunning once the publisher is stopped.
func (p *Publisher) Publish(evt *Event) error {
	ctx, span := p.opts.spans.StartPublishSpan(context.Background(), evt.Topic, evt.ID)

	frame, err := EncodeFrame(evt)
	if err != nil {
		p.opts.spans.EndSpanWithError(span, err)
		return err
	}

	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		err := newError(KindNotRunning, "publisher not running")
		p.opts.spans.EndSpanWithError(span, err)
		return err
	}

	// Registry bookkeeping only inside the lock. Sends to buffered channels
	// with a default case cannot block, so the critical section stays short.
	var evicted []*pubConn
	enqueued := 0
	for id, c := range p.conns {
		select {
		case c.out <- frame:
			enqueued++
		default:
			delete(p.conns, id)
			evicted = append(evicted, c)
		}
	}
	p.mu.Unlock()

	p.eventsPublished.Add(1)

	for _, c := range evicted {
		c.shutdown()
		observability.LogEviction(p.opts.logger, c.id, c.nc.RemoteAddr().String(), p.cfg.ChannelCapacity)
		p.opts.metrics.RecordConnectionClosed(ctx)
	}
	p.opts.metrics.RecordPublish(ctx, evt.Topic, enqueued, len(evicted))
	p.opts.spans.EndSpanWithError(span, nil)
	return nil
}

// Stop closes the listener and all live connections. Idempotent, and safe to
// call while reads or writes are in flight. Publish fails with
// KindNotRunning afterwards.
func (p *Publisher) Stop() error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	p.running = false
	ln := p.ln
	p.ln = nil
	close(p.done)
	conns := make([]*pubConn, 0, len(p.conns))
	for _, c := range p.conns {
		conns = append(conns, c)
	}
	p.conns = nil
	p.mu.Unlock()

	ln.Close()
	for _, c := range conns {
		c.shutdown()
		p.opts.metrics.RecordConnectionClosed(context.Background())
	}
	p.wg.Wait()

	observability.LogPublisherStop(p.opts.logger, ln.Addr().String(), len(conns))
	return nil
}

// BoundAddr returns the listener's address. Useful with a ":0" bind address
// to discover the OS-assigned port. Fails with KindNotRunning before Start.
func (p *Publisher) BoundAddr() (net.Addr, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ln == nil {
		return nil, newError(KindNotRunning, "publisher not running")
	}
	return p.ln.Addr(), nil
}

// ConnectionCount returns the number of live subscriber connections.
// Safe to call concurrently with Publish.
func (p *Publisher) ConnectionCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.conns)
}

// EventsPublished returns the total number of events published.
func (p *Publisher) EventsPublished() uint64 {
	return p.eventsPublished.Load()
}
