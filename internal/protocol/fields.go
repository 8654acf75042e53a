package protocol

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
)

// Variable is the Size of a field whose width depends on runtime content.
const Variable = -1

// Field describes how one slot of a message layout is encoded. Descriptors
// are stateless and may be shared by any number of schemas and messages.
//
// Stored values use one representation per kind: uint64 for integers,
// []uint64 for integer sequences and []byte for raw bytes.
type Field interface {
	// Size returns the wire width in bytes, or Variable.
	Size() int
	// Zero returns the value held by a freshly created message.
	Zero() any
	// Coerce converts an assigned Go value into the stored representation.
	Coerce(v any) (any, error)
	// Encode appends the wire form of v to dst.
	Encode(dst []byte, v any) ([]byte, error)
	// Decode reads one value from the start of buf and reports the bytes consumed.
	Decode(buf []byte) (any, int, error)
}

type byteOrder interface {
	binary.ByteOrder
	binary.AppendByteOrder
}

type uintField struct {
	width int
	order byteOrder
	label string
}

// UBInt8 declares an unsigned 8-bit integer.
func UBInt8() Field { return uintField{width: 1, order: binary.BigEndian, label: "UBInt8"} }

// UBInt16 declares a big-endian unsigned 16-bit integer.
func UBInt16() Field { return uintField{width: 2, order: binary.BigEndian, label: "UBInt16"} }

// UBInt32 declares a big-endian unsigned 32-bit integer.
func UBInt32() Field { return uintField{width: 4, order: binary.BigEndian, label: "UBInt32"} }

// UBInt64 declares a big-endian unsigned 64-bit integer.
func UBInt64() Field { return uintField{width: 8, order: binary.BigEndian, label: "UBInt64"} }

// ULInt16 declares a little-endian unsigned 16-bit integer.
func ULInt16() Field { return uintField{width: 2, order: binary.LittleEndian, label: "ULInt16"} }

// ULInt32 declares a little-endian unsigned 32-bit integer.
func ULInt32() Field { return uintField{width: 4, order: binary.LittleEndian, label: "ULInt32"} }

// ULInt64 declares a little-endian unsigned 64-bit integer.
func ULInt64() Field { return uintField{width: 8, order: binary.LittleEndian, label: "ULInt64"} }

func (f uintField) Size() int { return f.width }

func (f uintField) Zero() any { return uint64(0) }

func (f uintField) String() string { return f.label }

func (f uintField) max() uint64 {
	if f.width >= 8 {
		return math.MaxUint64
	}
	return 1<<(8*uint(f.width)) - 1
}

func (f uintField) Coerce(v any) (any, error) {
	return toUint64(v)
}

func (f uintField) Encode(dst []byte, v any) ([]byte, error) {
	u, ok := v.(uint64)
	if !ok {
		return nil, fmt.Errorf("%w: %s got %T", ErrFieldTypeMismatch, f.label, v)
	}
	if u > f.max() {
		return nil, &RangeError{Value: u, Width: f.width}
	}
	switch f.width {
	case 1:
		return append(dst, byte(u)), nil
	case 2:
		return f.order.AppendUint16(dst, uint16(u)), nil
	case 4:
		return f.order.AppendUint32(dst, uint32(u)), nil
	default:
		return f.order.AppendUint64(dst, u), nil
	}
}

func (f uintField) Decode(buf []byte) (any, int, error) {
	if len(buf) < f.width {
		return nil, 0, &BufferUnderrunError{Need: f.width, Have: len(buf)}
	}
	switch f.width {
	case 1:
		return uint64(buf[0]), 1, nil
	case 2:
		return uint64(f.order.Uint16(buf)), 2, nil
	case 4:
		return uint64(f.order.Uint32(buf)), 4, nil
	default:
		return f.order.Uint64(buf), 8, nil
	}
}

type seqField struct {
	count int
}

// UBInt8Sequence declares count consecutive unsigned 8-bit integers.
func UBInt8Sequence(count int) Field { return seqField{count: count} }

func (f seqField) Size() int { return f.count }

func (f seqField) Zero() any { return make([]uint64, f.count) }

func (f seqField) String() string { return fmt.Sprintf("UBInt8Sequence(%d)", f.count) }

func (f seqField) Coerce(v any) (any, error) {
	switch s := v.(type) {
	case []uint64:
		return append([]uint64(nil), s...), nil
	case []uint8:
		return widen(s)
	case []uint16:
		return widen(s)
	case []uint32:
		return widen(s)
	case []uint:
		return widen(s)
	case []int:
		return widen(s)
	case []int64:
		return widen(s)
	case []int32:
		return widen(s)
	default:
		return nil, fmt.Errorf("%w: %s got %T", ErrFieldTypeMismatch, f, v)
	}
}

func (f seqField) Encode(dst []byte, v any) ([]byte, error) {
	seq, ok := v.([]uint64)
	if !ok {
		return nil, fmt.Errorf("%w: %s got %T", ErrFieldTypeMismatch, f, v)
	}
	if len(seq) != f.count {
		return nil, &RangeError{
			Value:  seq,
			Width:  f.count,
			Reason: fmt.Sprintf("has %d elements, want %d", len(seq), f.count),
		}
	}
	for i, x := range seq {
		if x > math.MaxUint8 {
			return nil, &RangeError{
				Value:  x,
				Width:  1,
				Reason: fmt.Sprintf("at index %d does not fit in 1 byte(s)", i),
			}
		}
		dst = append(dst, byte(x))
	}
	return dst, nil
}

func (f seqField) Decode(buf []byte) (any, int, error) {
	if len(buf) < f.count {
		return nil, 0, &BufferUnderrunError{Need: f.count, Have: len(buf)}
	}
	seq := make([]uint64, f.count)
	for i := range seq {
		seq[i] = uint64(buf[i])
	}
	return seq, f.count, nil
}

type fixedBytesField struct {
	n int
}

// FixedBytes declares a raw byte string of exactly n bytes.
func FixedBytes(n int) Field { return fixedBytesField{n: n} }

func (f fixedBytesField) Size() int { return f.n }

func (f fixedBytesField) Zero() any { return make([]byte, f.n) }

func (f fixedBytesField) String() string { return fmt.Sprintf("FixedBytes(%d)", f.n) }

func (f fixedBytesField) Coerce(v any) (any, error) {
	return toBytes(v)
}

func (f fixedBytesField) Encode(dst []byte, v any) ([]byte, error) {
	b, ok := v.([]byte)
	if !ok {
		return nil, fmt.Errorf("%w: %s got %T", ErrFieldTypeMismatch, f, v)
	}
	if len(b) != f.n {
		return nil, &RangeError{
			Value:  len(b),
			Width:  f.n,
			Reason: fmt.Sprintf("bytes, want exactly %d", f.n),
		}
	}
	return append(dst, b...), nil
}

func (f fixedBytesField) Decode(buf []byte) (any, int, error) {
	if len(buf) < f.n {
		return nil, 0, &BufferUnderrunError{Need: f.n, Have: len(buf)}
	}
	return bytes.Clone(buf[:f.n]), f.n, nil
}

type magicField struct {
	want []byte
}

// Magic declares a constant byte string. It always packs as b and unpack
// fails with ErrMagicMismatch when the wire carries anything else.
func Magic(b []byte) Field { return magicField{want: bytes.Clone(b)} }

func (f magicField) Size() int { return len(f.want) }

func (f magicField) Zero() any { return bytes.Clone(f.want) }

func (f magicField) String() string { return fmt.Sprintf("Magic(%x)", f.want) }

func (f magicField) Coerce(v any) (any, error) {
	return nil, ErrDerivedField
}

func (f magicField) Encode(dst []byte, _ any) ([]byte, error) {
	return append(dst, f.want...), nil
}

func (f magicField) Decode(buf []byte) (any, int, error) {
	if len(buf) < len(f.want) {
		return nil, 0, &BufferUnderrunError{Need: len(f.want), Have: len(buf)}
	}
	got := buf[:len(f.want)]
	if !bytes.Equal(got, f.want) {
		return nil, 0, fmt.Errorf("%w: got %x want %x", ErrMagicMismatch, got, f.want)
	}
	return bytes.Clone(got), len(f.want), nil
}

// rawPayload is the descriptor behind Builder.Payload. Its width comes from
// the paired length field, so Decode consumes the whole slice it is given.
type rawPayload struct{}

func (rawPayload) Size() int { return Variable }

func (rawPayload) Zero() any { return []byte{} }

func (rawPayload) String() string { return "VariableRawPayload" }

func (rawPayload) Coerce(v any) (any, error) {
	return toBytes(v)
}

func (rawPayload) Encode(dst []byte, v any) ([]byte, error) {
	b, ok := v.([]byte)
	if !ok {
		return nil, fmt.Errorf("%w: VariableRawPayload got %T", ErrFieldTypeMismatch, v)
	}
	return append(dst, b...), nil
}

func (rawPayload) Decode(buf []byte) (any, int, error) {
	return bytes.Clone(buf), len(buf), nil
}

type integer interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 | ~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64
}

func widen[T integer](in []T) ([]uint64, error) {
	out := make([]uint64, len(in))
	for i, x := range in {
		if x < 0 {
			return nil, &RangeError{
				Value:  x,
				Reason: fmt.Sprintf("at index %d is negative", i),
			}
		}
		out[i] = uint64(x)
	}
	return out, nil
}

func toUint64(v any) (uint64, error) {
	switch x := v.(type) {
	case uint64:
		return x, nil
	case uint8:
		return uint64(x), nil
	case uint16:
		return uint64(x), nil
	case uint32:
		return uint64(x), nil
	case uint:
		return uint64(x), nil
	case int, int8, int16, int32, int64:
		n := toInt64(x)
		if n < 0 {
			return 0, &RangeError{Value: n, Reason: "is negative"}
		}
		return uint64(n), nil
	default:
		return 0, fmt.Errorf("%w: integer field got %T", ErrFieldTypeMismatch, v)
	}
}

func toInt64(v any) int64 {
	switch x := v.(type) {
	case int:
		return int64(x)
	case int8:
		return int64(x)
	case int16:
		return int64(x)
	case int32:
		return int64(x)
	default:
		return v.(int64)
	}
}

func toBytes(v any) ([]byte, error) {
	switch b := v.(type) {
	case []byte:
		return bytes.Clone(b), nil
	case string:
		return []byte(b), nil
	default:
		return nil, fmt.Errorf("%w: byte field got %T", ErrFieldTypeMismatch, v)
	}
}
