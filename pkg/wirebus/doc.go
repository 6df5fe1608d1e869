// Package wirebus implements a lightweight cross-process event bus over TCP.
//
// # Overview
//
// A single Publisher accepts many Subscriber connections and fans published
// Events out to every live connection. Each event is framed on the wire as a
// 4-byte big-endian length header followed by the MessagePack encoding of the
// event. There is no persistence and no replay: subscribers receive only
// events published after their connection is accepted.
//
//   - Event: immutable message envelope (topic, id, timestamp, source, payload)
//   - Publisher: accept loop, connection registry, per-connection bounded queues
//   - Subscriber: connect/reconnect state machine, frame read loop, bounded
//     receive buffer
//   - Topic patterns: exact, "*", or a single trailing "prefix.*" wildcard
//
// # Backpressure
//
// Publish never blocks. Every connection owns a bounded outbound queue; a
// subscriber that cannot keep up has its connection evicted when the queue
// fills. On the receiving side, a full receive buffer drops the oldest
// buffered event to admit the new one. Both policies bound memory at the cost
// of delivery guarantees, which is the intended trade-off for a best-effort
// notification bus.
//
// # Ordering
//
// Events delivered to a single subscriber connection preserve publish order
// (one writer goroutine, one FIFO queue per connection). No ordering holds
// across subscribers or across publishers.
//
// # Example
//
//	pub := wirebus.NewPublisher(wirebus.DefaultPublisherConfig())
//	if err := pub.Start(); err != nil {
//	    log.Fatal(err)
//	}
//	defer pub.Stop()
//
//	addr, _ := pub.BoundAddr()
//	sub := wirebus.ConnectTo(addr.String())
//	if err := sub.Start(); err != nil {
//	    log.Fatal(err)
//	}
//	defer sub.Stop()
//
//	factory := wirebus.NewEventFactory()
//	evt, _ := factory.New("orders.created", "order-service", []byte(`{"id":1}`))
//	pub.Publish(evt)
//
//	received, _ := sub.Recv(context.Background())
package wirebus
