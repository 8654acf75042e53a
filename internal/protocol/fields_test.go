package protocol

import (
	"bytes"
	"errors"
	"testing"
)

func TestUintFieldEncodeBigEndian(t *testing.T) {
	cases := []struct {
		field Field
		value uint64
		want  []byte
	}{
		{UBInt8(), 0xAB, []byte{0xAB}},
		{UBInt16(), 0x0102, []byte{0x01, 0x02}},
		{UBInt32(), 0x01020304, []byte{0x01, 0x02, 0x03, 0x04}},
		{UBInt64(), 0x0102030405060708, []byte{1, 2, 3, 4, 5, 6, 7, 8}},
		{ULInt16(), 0x0102, []byte{0x02, 0x01}},
		{ULInt64(), 0x0102030405060708, []byte{8, 7, 6, 5, 4, 3, 2, 1}},
	}
	for _, tc := range cases {
		got, err := tc.field.Encode(nil, tc.value)
		if err != nil {
			t.Fatalf("%v encode: %v", tc.field, err)
		}
		if !bytes.Equal(got, tc.want) {
			t.Fatalf("%v encode: got %x want %x", tc.field, got, tc.want)
		}
		v, n, err := tc.field.Decode(append(got, 0xFF))
		if err != nil {
			t.Fatalf("%v decode: %v", tc.field, err)
		}
		if n != tc.field.Size() || v != tc.value {
			t.Fatalf("%v decode: got %v/%d want %v/%d", tc.field, v, n, tc.value, tc.field.Size())
		}
	}
}

func TestUintFieldRange(t *testing.T) {
	_, err := UBInt8().Encode(nil, uint64(256))
	if !errors.Is(err, ErrRange) {
		t.Fatalf("expected ErrRange, got %v", err)
	}
	_, err = UBInt16().Encode(nil, uint64(0x10000))
	var rangeErr *RangeError
	if !errors.As(err, &rangeErr) || rangeErr.Width != 2 {
		t.Fatalf("expected 2 byte RangeError, got %v", err)
	}
	if _, err := UBInt16().Encode(nil, uint64(0xFFFF)); err != nil {
		t.Fatalf("max value must fit: %v", err)
	}
	if _, err := UBInt8().Coerce(-1); !errors.Is(err, ErrRange) {
		t.Fatalf("expected negative value to be out of range, got %v", err)
	}
	if _, err := UBInt8().Coerce("1"); !errors.Is(err, ErrFieldTypeMismatch) {
		t.Fatalf("expected ErrFieldTypeMismatch, got %v", err)
	}
}

func TestUintFieldShortBuffer(t *testing.T) {
	_, _, err := UBInt16().Decode([]byte{0x01})
	var under *BufferUnderrunError
	if !errors.As(err, &under) {
		t.Fatalf("expected BufferUnderrunError, got %v", err)
	}
	if under.Need != 2 || under.Have != 1 {
		t.Fatalf("unexpected underrun: %+v", under)
	}
}

func TestSequenceFieldRange(t *testing.T) {
	f := UBInt8Sequence(3)
	if _, err := f.Encode(nil, []uint64{1, 2}); !errors.Is(err, ErrRange) {
		t.Fatalf("expected ErrRange for short sequence, got %v", err)
	}
	if _, err := f.Encode(nil, []uint64{1, 256, 3}); !errors.Is(err, ErrRange) {
		t.Fatalf("expected ErrRange for wide element, got %v", err)
	}
	if _, err := f.Coerce([]int{1, -2, 3}); !errors.Is(err, ErrRange) {
		t.Fatalf("expected ErrRange for negative element, got %v", err)
	}
	if _, err := f.Coerce("abc"); !errors.Is(err, ErrFieldTypeMismatch) {
		t.Fatalf("expected ErrFieldTypeMismatch, got %v", err)
	}
	v, err := f.Coerce([]uint16{7, 8, 9})
	if err != nil {
		t.Fatalf("coerce: %v", err)
	}
	out, err := f.Encode(nil, v)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if !bytes.Equal(out, []byte{7, 8, 9}) {
		t.Fatalf("unexpected encoding: %x", out)
	}
}

func TestFixedBytesField(t *testing.T) {
	f := FixedBytes(4)
	if _, err := f.Encode(nil, []byte("abc")); !errors.Is(err, ErrRange) {
		t.Fatalf("expected ErrRange, got %v", err)
	}
	v, n, err := f.Decode([]byte("abcdef"))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if n != 4 || string(v.([]byte)) != "abcd" {
		t.Fatalf("unexpected decode: %q/%d", v, n)
	}
}

func TestMagicField(t *testing.T) {
	f := Magic([]byte{0xCA, 0xFE})
	out, err := f.Encode(nil, nil)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if !bytes.Equal(out, []byte{0xCA, 0xFE}) {
		t.Fatalf("unexpected magic: %x", out)
	}
	if _, _, err := f.Decode([]byte{0xCA, 0xFF}); !errors.Is(err, ErrMagicMismatch) {
		t.Fatalf("expected ErrMagicMismatch, got %v", err)
	}
	if _, err := f.Coerce([]byte{0}); !errors.Is(err, ErrDerivedField) {
		t.Fatalf("expected ErrDerivedField, got %v", err)
	}
}
