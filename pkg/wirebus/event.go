package wirebus

import (
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

// MaxPayloadSize is the maximum allowed event payload in bytes (1 MiB).
const MaxPayloadSize = 1 << 20

// Event is the message envelope carried by the bus.
//
// An Event is immutable once constructed: every field is validated by
// EventFactory.New, so no Event in the system violates the topic or payload
// constraints. Events are independent of each other; the only ordering
// guarantee is per-connection delivery order.
//
// The wire encoding is MessagePack in array form, so the five fields travel
// in declaration order and the encoding stays compact and cross-language.
type Event struct {
	_msgpack struct{} `msgpack:",as_array"`

	// Topic is the dot-separated routing key (e.g. "maidos.config.changed").
	Topic string `msgpack:"topic" json:"topic"`

	// ID is unique within the minting process. See IDGenerator for the layout.
	ID uint64 `msgpack:"id" json:"id"`

	// Timestamp is milliseconds since the Unix epoch, captured at construction.
	Timestamp uint64 `msgpack:"timestamp" json:"timestamp"`

	// Source is a free-form sender identifier.
	Source string `msgpack:"source" json:"source"`

	// Payload is opaque application data, at most MaxPayloadSize bytes.
	Payload []byte `msgpack:"payload" json:"payload"`
}

// EventFactory constructs validated events. It owns the ID generator, so ID
// state is explicit and scoped instead of hidden package state. One factory
// per process is the intended usage; factories are safe for concurrent use.
type EventFactory struct {
	gen *IDGenerator
}

// NewEventFactory creates a factory with a wall-clock ID generator.
func NewEventFactory() *EventFactory {
	return &EventFactory{gen: NewIDGenerator()}
}

// NewEventFactoryWithGenerator creates a factory around an existing generator.
func NewEventFactoryWithGenerator(gen *IDGenerator) *EventFactory {
	return &EventFactory{gen: gen}
}

// New constructs an event, assigning its ID and timestamp.
//
// It fails with KindInvalidTopic if the topic is empty, too long, or contains
// disallowed characters, and with KindSerialization if the payload exceeds
// MaxPayloadSize.
func (f *EventFactory) New(topic, source string, payload []byte) (*Event, error) {
	if err := ValidateTopic(topic); err != nil {
		return nil, err
	}
	if len(payload) > MaxPayloadSize {
		return nil, newError(KindSerialization, "payload exceeds %d bytes", MaxPayloadSize)
	}
	return &Event{
		Topic:     topic,
		ID:        f.gen.Next(),
		Timestamp: f.gen.Timestamp(),
		Source:    source,
		Payload:   payload,
	}, nil
}

// WithData constructs an event whose payload is the MessagePack encoding of
// data. Use Event.Data to decode on the receiving side.
func (f *EventFactory) WithData(topic, source string, data any) (*Event, error) {
	payload, err := msgpack.Marshal(data)
	if err != nil {
		return nil, wrapError(KindSerialization, err, "encode payload")
	}
	return f.New(topic, source, payload)
}

// Data decodes the payload into out, which must be a pointer.
func (e *Event) Data(out any) error {
	if err := msgpack.Unmarshal(e.Payload, out); err != nil {
		return wrapError(KindDeserialization, err, "decode payload")
	}
	return nil
}

// ToBytes serializes the whole event to its wire encoding.
func (e *Event) ToBytes() ([]byte, error) {
	b, err := msgpack.Marshal(e)
	if err != nil {
		return nil, wrapError(KindSerialization, err, "encode event")
	}
	return b, nil
}

// EventFromBytes deserializes an event from its wire encoding.
func EventFromBytes(b []byte) (*Event, error) {
	var e Event
	if err := msgpack.Unmarshal(b, &e); err != nil {
		return nil, wrapError(KindDeserialization, err, "decode event")
	}
	return &e, nil
}

// MatchesTopic reports whether the event's topic matches pattern.
// See MatchTopic for the supported pattern forms.
func (e *Event) MatchesTopic(pattern string) bool {
	return MatchTopic(e.Topic, pattern)
}

// Time returns the event timestamp as a time.Time.
func (e *Event) Time() time.Time {
	return time.UnixMilli(int64(e.Timestamp))
}
