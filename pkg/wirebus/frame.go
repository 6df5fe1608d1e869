package wirebus

import (
	"encoding/binary"
	"errors"
	"io"
)

// FrameHeaderSize is the length prefix size in bytes.
const FrameHeaderSize = 4

// MaxFrameSize caps a single frame's body. It is the payload limit plus slack
// for the envelope fields and encoding overhead. Frames above this size are
// treated as protocol violations, not allocated.
const MaxFrameSize = MaxPayloadSize + 64*1024

// EncodeFrame returns the full wire frame for an event: a 4-byte big-endian
// length header followed by the event's MessagePack encoding. The codec only
// delimits messages on the byte stream; it knows nothing about topics.
func EncodeFrame(e *Event) ([]byte, error) {
	body, err := e.ToBytes()
	if err != nil {
		return nil, err
	}
	frame := make([]byte, FrameHeaderSize+len(body))
	binary.BigEndian.PutUint32(frame, uint32(len(body)))
	copy(frame[FrameHeaderSize:], body)
	return frame, nil
}

// WriteFrame writes one length-prefixed frame containing body to w.
func WriteFrame(w io.Writer, body []byte) error {
	var header [FrameHeaderSize]byte
	binary.BigEndian.PutUint32(header[:], uint32(len(body)))
	if _, err := w.Write(header[:]); err != nil {
		return wrapError(KindIo, err, "write frame header")
	}
	if _, err := w.Write(body); err != nil {
		return wrapError(KindIo, err, "write frame body")
	}
	return nil
}

// ReadFrame reads one length-prefixed frame body from r.
//
// A clean EOF on the header boundary is returned as io.EOF so callers can
// distinguish orderly shutdown from a truncated frame. An oversized length
// header is a protocol violation and yields a KindDeserialization error.
func ReadFrame(r io.Reader) ([]byte, error) {
	var header [FrameHeaderSize]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, wrapError(KindIo, err, "read frame header")
	}

	length := binary.BigEndian.Uint32(header[:])
	if length > MaxFrameSize {
		return nil, newError(KindDeserialization, "frame length %d exceeds limit %d", length, MaxFrameSize)
	}

	body := make([]byte, length)
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, wrapError(KindIo, err, "read frame body")
	}
	return body, nil
}
