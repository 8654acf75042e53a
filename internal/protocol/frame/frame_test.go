package frame

import (
	"bytes"
	"errors"
	"testing"

	"github.com/danmuck/pacman/internal/protocol"
	"github.com/danmuck/pacman/internal/testutil/testlog"
)

var inner = protocol.NewSchema("inner").
	Length("length", protocol.UBInt16()).
	Payload("payload", "length").
	MustBuild()

func TestReadWriteFrameRoundTrip(t *testing.T) {
	testlog.Start(t)
	payload, err := inner.New().MustSet("payload", "intent-1").Pack()
	if err != nil {
		t.Fatalf("pack inner: %v", err)
	}
	in := Frame{
		Header:  Header{MessageID: 42, MessageType: 3},
		Payload: payload,
	}
	var buf bytes.Buffer
	if err := WriteFrame(&buf, in, DefaultLimits()); err != nil {
		t.Fatalf("write frame: %v", err)
	}
	if !bytes.HasPrefix(buf.Bytes(), Magic) {
		t.Fatalf("missing magic: %x", buf.Bytes())
	}
	// A second frame on the same stream must not be consumed by the first read.
	if err := WriteFrame(&buf, Frame{Header: Header{MessageID: 43}}, DefaultLimits()); err != nil {
		t.Fatalf("write second frame: %v", err)
	}

	out, err := ReadFrame(&buf, DefaultLimits())
	if err != nil {
		t.Fatalf("read frame: %v", err)
	}
	if out.Header.Version != Version || out.Header.MessageType != 3 || out.Header.MessageID != 42 {
		t.Fatalf("header mismatch: got=%+v", out.Header)
	}
	if out.Header.PayloadLen != uint32(len(payload)) {
		t.Fatalf("unexpected payload len: %d", out.Header.PayloadLen)
	}
	if !bytes.Equal(out.Payload, payload) {
		t.Fatalf("payload mismatch")
	}

	msg := inner.New()
	if err := msg.Unpack(out.Payload); err != nil {
		t.Fatalf("unpack inner: %v", err)
	}
	if s, _ := msg.String("payload"); s != "intent-1" {
		t.Fatalf("unexpected inner payload: %q", s)
	}

	next, err := ReadFrame(&buf, DefaultLimits())
	if err != nil {
		t.Fatalf("read second frame: %v", err)
	}
	if next.Header.MessageID != 43 || len(next.Payload) != 0 {
		t.Fatalf("unexpected second frame: %+v", next)
	}
}

func TestReadFrameMalformedHeaderIsDeterministic(t *testing.T) {
	testlog.Start(t)
	_, err := ReadFrame(bytes.NewReader([]byte{1, 2, 3}), DefaultLimits())
	if !errors.Is(err, ErrShortHeader) {
		t.Fatalf("expected ErrShortHeader, got %v", err)
	}
}

func TestReadFrameBadMagic(t *testing.T) {
	testlog.Start(t)
	b, err := Encode(Frame{Header: Header{MessageID: 1}}, DefaultLimits())
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	b[0] = 'X'
	_, err = ReadFrame(bytes.NewReader(b), DefaultLimits())
	if !errors.Is(err, protocol.ErrMagicMismatch) {
		t.Fatalf("expected ErrMagicMismatch, got %v", err)
	}
}

func TestReadFrameUnsupportedVersion(t *testing.T) {
	testlog.Start(t)
	b, err := Encode(Frame{Header: Header{Version: 9}}, DefaultLimits())
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	_, err = ReadFrame(bytes.NewReader(b), DefaultLimits())
	if !errors.Is(err, ErrUnsupportedVersion) {
		t.Fatalf("expected ErrUnsupportedVersion, got %v", err)
	}
}

func TestReadFramePayloadLimit(t *testing.T) {
	testlog.Start(t)
	b, err := Encode(Frame{Payload: make([]byte, 32)}, DefaultLimits())
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	_, err = ReadFrame(bytes.NewReader(b), Limits{MaxPayloadBytes: 16})
	if !errors.Is(err, ErrPayloadTooLarge) {
		t.Fatalf("expected ErrPayloadTooLarge, got %v", err)
	}
	if _, err := Encode(Frame{Payload: make([]byte, 32)}, Limits{MaxPayloadBytes: 16}); !errors.Is(err, ErrPayloadTooLarge) {
		t.Fatalf("expected ErrPayloadTooLarge on encode, got %v", err)
	}
}

func TestReadFrameTruncatedPayload(t *testing.T) {
	testlog.Start(t)
	b, err := Encode(Frame{Payload: []byte("abcdef")}, DefaultLimits())
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	_, err = ReadFrame(bytes.NewReader(b[:len(b)-2]), DefaultLimits())
	if !errors.Is(err, protocol.ErrTruncated) {
		t.Fatalf("expected ErrTruncated, got %v", err)
	}
}

func TestDecodeRejectsTrailingBytes(t *testing.T) {
	testlog.Start(t)
	b, err := Encode(Frame{Payload: []byte("x")}, DefaultLimits())
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if _, err := Decode(b, DefaultLimits()); err != nil {
		t.Fatalf("decode: %v", err)
	}
	_, err = Decode(append(b, 0), DefaultLimits())
	if !errors.Is(err, protocol.ErrTrailingBytes) {
		t.Fatalf("expected ErrTrailingBytes, got %v", err)
	}
	if _, err := Decode(b[:4], DefaultLimits()); !errors.Is(err, ErrShortHeader) {
		t.Fatalf("expected ErrShortHeader, got %v", err)
	}
}
