package wirebus

import (
	"bufio"
	"context"
	"errors"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/randalmurphal/wirebus/pkg/wirebus/observability"
)

// SubscriberConfig configures a Subscriber.
type SubscriberConfig struct {
	// PublisherAddr is the publisher's TCP address.
	PublisherAddr string

	// Topics holds the patterns to accept. Empty means accept all events.
	// Filtering happens client-side; the wire carries every event.
	Topics []string

	// ReconnectDelay is the wait between reconnect attempts.
	ReconnectDelay time.Duration

	// AutoReconnect re-dials after a lost connection. When false, the
	// subscriber stays Disconnected until Start is called again.
	AutoReconnect bool

	// BufferCapacity bounds the receive buffer. When full, the oldest
	// buffered event is dropped to admit the new one.
	BufferCapacity int
}

// DefaultSubscriberConfig provides reasonable defaults.
func DefaultSubscriberConfig() SubscriberConfig {
	return SubscriberConfig{
		PublisherAddr:  "127.0.0.1:9999",
		ReconnectDelay: time.Second,
		AutoReconnect:  true,
		BufferCapacity: 256,
	}
}

// SubscriberState is the connection lifecycle state.
type SubscriberState int32

const (
	// StateDisconnected means no connection and no dial in progress.
	StateDisconnected SubscriberState = iota

	// StateConnecting means a dial is in progress.
	StateConnecting

	// StateConnected means the frame read loop is running.
	StateConnected

	// StateStopped means Stop was called; the subscriber is finished.
	StateStopped
)

// String returns the state name.
func (s SubscriberState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Subscriber is the client side of the bus. It connects to a publisher,
// decodes frames from the wire, filters by topic, and buffers matching events
// for Recv.
//
// The lifecycle is an explicit state machine: Disconnected -> Connecting ->
// Connected, back to Disconnected on any read error. With AutoReconnect
// enabled a supervising goroutine re-dials after ReconnectDelay; otherwise
// the subscriber stays Disconnected, observable via State.
type Subscriber struct {
	cfg  SubscriberConfig
	opts options

	mu       sync.Mutex
	running  bool
	stopping bool
	stop     chan struct{}
	conn     net.Conn

	wg             sync.WaitGroup
	state          atomic.Int32
	events         chan *Event
	eventsReceived atomic.Uint64
}

// NewSubscriber creates a subscriber. Call Start to connect.
func NewSubscriber(cfg SubscriberConfig, opts ...Option) *Subscriber {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if cfg.BufferCapacity <= 0 {
		cfg.BufferCapacity = DefaultSubscriberConfig().BufferCapacity
	}
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = DefaultSubscriberConfig().ReconnectDelay
	}
	return &Subscriber{
		cfg:    cfg,
		opts:   o,
		events: make(chan *Event, cfg.BufferCapacity),
	}
}

// ConnectTo creates a subscriber for the given publisher address with
// default settings.
func ConnectTo(addr string) *Subscriber {
	cfg := DefaultSubscriberConfig()
	cfg.PublisherAddr = addr
	return NewSubscriber(cfg)
}

// Start dials the publisher and launches the read loop.
//
// The initial dial happens synchronously: on success the subscriber is
// Connected when Start returns. If the dial fails and AutoReconnect is off,
// Start fails with KindConnectionFailed and the subscriber stays
// Disconnected; with AutoReconnect on, the supervisor keeps retrying in the
// background and Start returns nil.
func (s *Subscriber) Start() error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return newError(KindAlreadyRunning, "subscriber already running")
	}
	s.running = true
	s.stopping = false
	s.stop = make(chan struct{})
	s.mu.Unlock()

	s.setState(StateConnecting)
	observability.LogConnectAttempt(s.opts.logger, s.cfg.PublisherAddr)

	conn, err := net.Dial("tcp", s.cfg.PublisherAddr)
	if err != nil {
		s.setState(StateDisconnected)
		if !s.cfg.AutoReconnect {
			s.mu.Lock()
			s.running = false
			s.mu.Unlock()
			return wrapError(KindConnectionFailed, err, "dial %q", s.cfg.PublisherAddr)
		}
		observability.LogConnectionLost(s.opts.logger, s.cfg.PublisherAddr, err)
		s.wg.Add(1)
		go s.run(nil)
		return nil
	}

	s.setCurrentConn(conn)
	s.setState(StateConnected)
	observability.LogConnected(s.opts.logger, s.cfg.PublisherAddr)

	s.wg.Add(1)
	go s.run(conn)
	return nil
}

// run supervises the read loop and drives the reconnect state machine.
// conn may be nil when the initial dial failed and reconnection is on.
func (s *Subscriber) run(conn net.Conn) {
	defer s.wg.Done()

	for {
		if conn == nil {
			observability.LogReconnectWait(s.opts.logger, s.cfg.PublisherAddr, s.cfg.ReconnectDelay)
			if !s.waitReconnect() {
				break
			}

			s.setState(StateConnecting)
			observability.LogConnectAttempt(s.opts.logger, s.cfg.PublisherAddr)
			c, err := net.Dial("tcp", s.cfg.PublisherAddr)
			if err != nil {
				s.setState(StateDisconnected)
				s.opts.metrics.RecordReconnect(context.Background(), false)
				observability.LogConnectionLost(s.opts.logger, s.cfg.PublisherAddr, err)
				if !s.cfg.AutoReconnect {
					break
				}
				continue
			}

			conn = c
			s.setCurrentConn(conn)
			s.setState(StateConnected)
			s.opts.metrics.RecordReconnect(context.Background(), true)
			observability.LogConnected(s.opts.logger, s.cfg.PublisherAddr)
		}

		err := s.readLoop(conn)
		conn.Close()
		s.setCurrentConn(nil)
		conn = nil

		if s.stopRequested() {
			break
		}

		s.setState(StateDisconnected)
		if err != nil {
			observability.LogConnectionLost(s.opts.logger, s.cfg.PublisherAddr, err)
		}
		if !s.cfg.AutoReconnect {
			break
		}
	}

	s.mu.Lock()
	s.running = false
	stopped := s.stopping
	s.mu.Unlock()
	if stopped {
		s.setState(StateStopped)
	}
}

// waitReconnect sleeps for the reconnect delay. Returns false if Stop was
// requested while waiting.
func (s *Subscriber) waitReconnect() bool {
	s.mu.Lock()
	stop := s.stop
	s.mu.Unlock()

	timer := time.NewTimer(s.cfg.ReconnectDelay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-stop:
		return false
	}
}

// readLoop decodes frames until the connection breaks or Stop closes it.
// A frame that fails to decode is a protocol violation and terminates the
// connection; the error is returned so the supervisor can reconnect.
func (s *Subscriber) readLoop(conn net.Conn) error {
	r := bufio.NewReader(conn)
	for {
		body, err := ReadFrame(r)
		if err != nil {
			if s.stopRequested() {
				return nil
			}
			if errors.Is(err, io.EOF) {
				return newError(KindIo, "publisher closed the connection")
			}
			return err
		}

		evt, err := EventFromBytes(body)
		if err != nil {
			observability.LogFrameError(s.opts.logger, conn.RemoteAddr().String(), err)
			return err
		}

		// Client-side filter: non-matching events are dropped silently.
		if !MatchAnyTopic(evt.Topic, s.cfg.Topics) {
			continue
		}

		s.deliver(evt)
	}
}

// deliver admits an event into the bounded receive buffer, discarding the
// oldest buffered event when full. The read loop is the only sender, so
// after one discard the retry succeeds.
func (s *Subscriber) deliver(evt *Event) {
	ctx, span := s.opts.spans.StartReceiveSpan(context.Background(), evt.Topic, evt.ID)
	dropped := false
	for {
		select {
		case s.events <- evt:
			s.eventsReceived.Add(1)
			s.opts.metrics.RecordReceive(ctx, evt.Topic, dropped)
			s.opts.spans.EndSpanWithError(span, nil)
			return
		default:
			select {
			case old := <-s.events:
				dropped = true
				observability.LogBufferDrop(s.opts.logger, evt.Topic, old.ID)
			default:
			}
		}
	}
}

// Recv returns the next buffered event, blocking until one arrives, the
// subscriber is stopped, or ctx is done.
//
// Buffered events drain before the stop signal wins, so events received
// prior to Stop are not lost. After the buffer is empty and the subscriber
// is stopped, Recv fails with KindChannelClosed. The subscriber imposes no
// deadline of its own; bound the wait with ctx.
func (s *Subscriber) Recv(ctx context.Context) (*Event, error) {
	s.mu.Lock()
	stop := s.stop
	s.mu.Unlock()

	// Fast path: drain buffered events first.
	select {
	case evt := <-s.events:
		return evt, nil
	default:
	}

	select {
	case evt := <-s.events:
		return evt, nil
	case <-stop:
		// An event may have raced in just before the stop signal.
		select {
		case evt := <-s.events:
			return evt, nil
		default:
		}
		return nil, newError(KindChannelClosed, "subscriber stopped")
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, wrapError(KindTimeout, ctx.Err(), "recv")
		}
		return nil, ctx.Err()
	}
}

// TryRecv returns the next buffered event without blocking.
func (s *Subscriber) TryRecv() (*Event, bool) {
	select {
	case evt := <-s.events:
		return evt, true
	default:
		return nil, false
	}
}

// Stop disconnects and releases any blocked Recv callers. Idempotent, and
// safe to call while a read is in flight.
func (s *Subscriber) Stop() error {
	s.mu.Lock()
	if s.stop == nil || s.stopping {
		alreadyStopped := s.stop != nil
		s.mu.Unlock()
		if alreadyStopped {
			s.wg.Wait()
		}
		return nil
	}
	s.stopping = true
	stop := s.stop
	conn := s.conn
	s.mu.Unlock()

	close(stop)
	if conn != nil {
		conn.Close()
	}
	s.wg.Wait()
	s.setState(StateStopped)
	return nil
}

// State returns the current lifecycle state.
func (s *Subscriber) State() SubscriberState {
	return SubscriberState(s.state.Load())
}

// EventsReceived returns the number of events admitted to the receive
// buffer (after topic filtering) since construction.
func (s *Subscriber) EventsReceived() uint64 {
	return s.eventsReceived.Load()
}

func (s *Subscriber) setState(state SubscriberState) {
	s.state.Store(int32(state))
}

func (s *Subscriber) setCurrentConn(conn net.Conn) {
	s.mu.Lock()
	s.conn = conn
	s.mu.Unlock()
}

func (s *Subscriber) stopRequested() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopping
}
