package frame

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/danmuck/pacman/internal/protocol"
)

const (
	Version uint8 = 1

	// HeaderLen covers magic, version, type, message_id and the u32 length.
	HeaderLen = 2 + 1 + 1 + 4 + 4
)

// Magic opens every frame.
var Magic = []byte{'P', 'M'}

var (
	ErrShortHeader        = errors.New("frame: short fixed header")
	ErrPayloadTooLarge    = errors.New("frame: payload too large")
	ErrUnsupportedVersion = errors.New("frame: unsupported version")
)

var envelope = protocol.NewSchema("frame").
	Add("magic", protocol.Magic(Magic)).
	Add("version", protocol.UBInt8()).
	Add("type", protocol.UBInt8()).
	Add("message_id", protocol.UBInt32()).
	Length("length", protocol.UBInt32()).
	Payload("payload", "length").
	MustBuild()

// Schema returns the envelope layout.
func Schema() *protocol.Schema { return envelope }

// Header is the fixed part of a frame.
type Header struct {
	Version     uint8
	MessageType uint8
	MessageID   uint32
	PayloadLen  uint32
}

// Frame is one complete wire message.
type Frame struct {
	Header  Header
	Payload []byte
}

// Limits constrains frame decode/encode memory use.
type Limits struct {
	MaxPayloadBytes uint64
}

func DefaultLimits() Limits {
	return Limits{MaxPayloadBytes: 8 * 1024 * 1024}
}

// Encode packs f. A zero Version is sent as the current Version.
func Encode(f Frame, limits Limits) ([]byte, error) {
	if uint64(len(f.Payload)) > limits.MaxPayloadBytes {
		return nil, ErrPayloadTooLarge
	}
	version := f.Header.Version
	if version == 0 {
		version = Version
	}
	msg := envelope.New()
	if err := msg.Set("version", version); err != nil {
		return nil, err
	}
	if err := msg.Set("type", f.Header.MessageType); err != nil {
		return nil, err
	}
	if err := msg.Set("message_id", f.Header.MessageID); err != nil {
		return nil, err
	}
	if err := msg.Set("payload", f.Payload); err != nil {
		return nil, err
	}
	return msg.Pack()
}

// Decode unpacks exactly one frame from b; trailing bytes are rejected.
func Decode(b []byte, limits Limits) (Frame, error) {
	if len(b) < HeaderLen {
		return Frame{}, ErrShortHeader
	}
	msg := envelope.New(protocol.StrictTrailing(true))
	if err := msg.Unpack(b); err != nil {
		return Frame{}, err
	}
	return fromMessage(msg, limits)
}

func WriteFrame(w io.Writer, f Frame, limits Limits) error {
	b, err := Encode(f, limits)
	if err != nil {
		return err
	}
	_, err = w.Write(b)
	return err
}

func ReadFrame(r io.Reader, limits Limits) (Frame, error) {
	var fixed [HeaderLen]byte
	if _, err := io.ReadFull(r, fixed[:]); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
			return Frame{}, ErrShortHeader
		}
		return Frame{}, err
	}

	msg := envelope.New()
	limit := HeaderLen + int(min(limits.MaxPayloadBytes, uint64(maxInt-HeaderLen)))
	if _, err := protocol.ReadMessage(io.MultiReader(bytes.NewReader(fixed[:]), r), msg, limit); err != nil {
		if errors.Is(err, protocol.ErrMessageTooLarge) {
			return Frame{}, fmt.Errorf("%w: %w", ErrPayloadTooLarge, err)
		}
		return Frame{}, err
	}
	return fromMessage(msg, limits)
}

const maxInt = int(^uint(0) >> 1)

func fromMessage(msg *protocol.Message, limits Limits) (Frame, error) {
	version, err := msg.Uint("version")
	if err != nil {
		return Frame{}, err
	}
	if uint8(version) != Version {
		return Frame{}, fmt.Errorf("%w: %d", ErrUnsupportedVersion, version)
	}
	messageType, err := msg.Uint("type")
	if err != nil {
		return Frame{}, err
	}
	messageID, err := msg.Uint("message_id")
	if err != nil {
		return Frame{}, err
	}
	payload, err := msg.Bytes("payload")
	if err != nil {
		return Frame{}, err
	}
	if uint64(len(payload)) > limits.MaxPayloadBytes {
		return Frame{}, ErrPayloadTooLarge
	}
	return Frame{
		Header: Header{
			Version:     uint8(version),
			MessageType: uint8(messageType),
			MessageID:   uint32(messageID),
			PayloadLen:  uint32(len(payload)),
		},
		Payload: payload,
	}, nil
}
