package wirebus_test

import (
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/randalmurphal/wirebus/pkg/wirebus"
)

func TestBusErrorMessage(t *testing.T) {
	e := &wirebus.BusError{Kind: wirebus.KindInvalidTopic, Msg: "topic cannot be empty"}
	assert.Equal(t, "invalid_topic: topic cannot be empty", e.Error())

	wrapped := &wirebus.BusError{Kind: wirebus.KindIo, Msg: "read frame body", Err: io.ErrUnexpectedEOF}
	assert.Equal(t, "io: read frame body: unexpected EOF", wrapped.Error())
}

func TestBusErrorUnwrap(t *testing.T) {
	e := &wirebus.BusError{Kind: wirebus.KindIo, Msg: "dial", Err: io.EOF}
	assert.ErrorIs(t, e, io.EOF)

	// Kind is still reachable through further wrapping.
	outer := fmt.Errorf("start subscriber: %w", e)
	k, ok := wirebus.KindOf(outer)
	assert.True(t, ok)
	assert.Equal(t, wirebus.KindIo, k)
}

func TestKindOf(t *testing.T) {
	_, ok := wirebus.KindOf(errors.New("plain"))
	assert.False(t, ok)

	k, ok := wirebus.KindOf(&wirebus.BusError{Kind: wirebus.KindTimeout, Msg: "recv"})
	assert.True(t, ok)
	assert.Equal(t, wirebus.KindTimeout, k)
}

func TestIsKind(t *testing.T) {
	err := &wirebus.BusError{Kind: wirebus.KindNotRunning, Msg: "publish"}
	assert.True(t, wirebus.IsKind(err, wirebus.KindNotRunning))
	assert.False(t, wirebus.IsKind(err, wirebus.KindAlreadyRunning))
	assert.False(t, wirebus.IsKind(nil, wirebus.KindNotRunning))
	assert.False(t, wirebus.IsKind(errors.New("plain"), wirebus.KindNotRunning))
}

func TestKindString(t *testing.T) {
	tests := []struct {
		kind wirebus.Kind
		want string
	}{
		{wirebus.KindIo, "io"},
		{wirebus.KindSerialization, "serialization"},
		{wirebus.KindDeserialization, "deserialization"},
		{wirebus.KindConnectionFailed, "connection_failed"},
		{wirebus.KindChannelClosed, "channel_closed"},
		{wirebus.KindInvalidAddress, "invalid_address"},
		{wirebus.KindTimeout, "timeout"},
		{wirebus.KindAlreadyRunning, "already_running"},
		{wirebus.KindNotRunning, "not_running"},
		{wirebus.KindInvalidTopic, "invalid_topic"},
		{wirebus.KindAuthFailed, "auth_failed"},
		{wirebus.Kind(99), "unknown"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.kind.String())
	}
}
