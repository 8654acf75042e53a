// Package tlv packs repeated id/type/length/value records, each described by
// a protocol schema and laid end to end in one buffer.
package tlv

import (
	"errors"
	"fmt"

	"github.com/danmuck/pacman/internal/protocol"
)

const HeaderLen = 7

var (
	ErrShortFieldHeader = errors.New("tlv: short field header")
	ErrShortFieldValue  = errors.New("tlv: short field value")
)

// Type IDs carried in the record header.
const (
	TypeU8     uint8 = 1
	TypeU16    uint8 = 2
	TypeU32    uint8 = 3
	TypeU64    uint8 = 4
	TypeBool   uint8 = 5
	TypeString uint8 = 6
	TypeBytes  uint8 = 7
)

var record = protocol.NewSchema("tlv").
	Add("id", protocol.UBInt16()).
	Add("type", protocol.UBInt8()).
	Length("length", protocol.UBInt32()).
	Payload("value", "length").
	MustBuild()

// Field is one decoded TLV record.
type Field struct {
	ID    uint16
	Type  uint8
	Value []byte
}

func EncodeField(f Field) ([]byte, error) {
	msg := record.New()
	if err := msg.Set("id", f.ID); err != nil {
		return nil, err
	}
	if err := msg.Set("type", f.Type); err != nil {
		return nil, err
	}
	if err := msg.Set("value", f.Value); err != nil {
		return nil, err
	}
	return msg.Pack()
}

func EncodeFields(fields []Field) ([]byte, error) {
	out := make([]byte, 0)
	for _, f := range fields {
		b, err := EncodeField(f)
		if err != nil {
			return nil, fmt.Errorf("tlv: field %d: %w", f.ID, err)
		}
		out = append(out, b...)
	}
	return out, nil
}

// DecodeFields splits payload into records. Each record is unpacked as a
// prefix of the remaining bytes.
func DecodeFields(payload []byte) ([]Field, error) {
	fields := make([]Field, 0)
	msg := record.New()
	for i := 0; i < len(payload); {
		n, err := msg.UnpackPrefix(payload[i:])
		if err != nil {
			var under *protocol.BufferUnderrunError
			if errors.As(err, &under) {
				if under.Field == "value" {
					return nil, fmt.Errorf("%w: %w", ErrShortFieldValue, err)
				}
				return nil, fmt.Errorf("%w: %w", ErrShortFieldHeader, err)
			}
			return nil, err
		}
		f, err := fromMessage(msg)
		if err != nil {
			return nil, err
		}
		fields = append(fields, f)
		i += n
	}
	return fields, nil
}

func fromMessage(msg *protocol.Message) (Field, error) {
	id, err := msg.Uint("id")
	if err != nil {
		return Field{}, err
	}
	typeID, err := msg.Uint("type")
	if err != nil {
		return Field{}, err
	}
	value, err := msg.Bytes("value")
	if err != nil {
		return Field{}, err
	}
	return Field{ID: uint16(id), Type: uint8(typeID), Value: value}, nil
}

func GetField(fields []Field, id uint16) (Field, bool) {
	for _, f := range fields {
		if f.ID == id {
			return f, true
		}
	}
	return Field{}, false
}

func MustType(f Field, expected uint8) error {
	if f.Type != expected {
		return fmt.Errorf("tlv: field %d type mismatch: got %d want %d", f.ID, f.Type, expected)
	}
	return nil
}
