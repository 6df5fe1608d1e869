package wirebus_test

import (
	"bytes"
	"encoding/binary"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/wirebus/pkg/wirebus"
)

func TestFrameRoundTrip(t *testing.T) {
	body := []byte("hello frame")

	var buf bytes.Buffer
	require.NoError(t, wirebus.WriteFrame(&buf, body))

	assert.Equal(t, wirebus.FrameHeaderSize+len(body), buf.Len())

	got, err := wirebus.ReadFrame(&buf)
	require.NoError(t, err)
	assert.Equal(t, body, got)
}

func TestFrameMultipleOnStream(t *testing.T) {
	var buf bytes.Buffer
	bodies := [][]byte{[]byte("one"), []byte("two"), {}, []byte("four")}
	for _, b := range bodies {
		require.NoError(t, wirebus.WriteFrame(&buf, b))
	}

	for i, want := range bodies {
		got, err := wirebus.ReadFrame(&buf)
		require.NoError(t, err, "frame %d", i)
		assert.Equal(t, len(want), len(got), "frame %d", i)
	}

	_, err := wirebus.ReadFrame(&buf)
	assert.ErrorIs(t, err, io.EOF, "clean EOF after last frame")
}

func TestFrameEncodeEvent(t *testing.T) {
	factory := wirebus.NewEventFactory()
	evt, err := factory.New("test.frame", "src", []byte{9, 8, 7})
	require.NoError(t, err)

	frame, err := wirebus.EncodeFrame(evt)
	require.NoError(t, err)

	length := binary.BigEndian.Uint32(frame[:wirebus.FrameHeaderSize])
	assert.Equal(t, int(length), len(frame)-wirebus.FrameHeaderSize)

	decoded, err := wirebus.EventFromBytes(frame[wirebus.FrameHeaderSize:])
	require.NoError(t, err)
	assert.Equal(t, evt.ID, decoded.ID)
	assert.Equal(t, evt.Topic, decoded.Topic)
}

func TestFrameReadTruncatedHeader(t *testing.T) {
	_, err := wirebus.ReadFrame(bytes.NewReader([]byte{0x00, 0x01}))
	require.Error(t, err)
	assert.True(t, wirebus.IsKind(err, wirebus.KindIo))
}

func TestFrameReadTruncatedBody(t *testing.T) {
	var buf bytes.Buffer
	var header [wirebus.FrameHeaderSize]byte
	binary.BigEndian.PutUint32(header[:], 100)
	buf.Write(header[:])
	buf.Write([]byte("short"))

	_, err := wirebus.ReadFrame(&buf)
	require.Error(t, err)
	assert.True(t, wirebus.IsKind(err, wirebus.KindIo))
}

func TestFrameReadOversizedLength(t *testing.T) {
	var header [wirebus.FrameHeaderSize]byte
	binary.BigEndian.PutUint32(header[:], wirebus.MaxFrameSize+1)

	_, err := wirebus.ReadFrame(bytes.NewReader(header[:]))
	require.Error(t, err)
	assert.True(t, wirebus.IsKind(err, wirebus.KindDeserialization),
		"oversized length is a protocol violation, not an allocation")
}
