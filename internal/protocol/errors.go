package protocol

import (
	"errors"
	"fmt"
)

var (
	ErrRange             = errors.New("protocol: value out of range")
	ErrBadModulus        = errors.New("protocol: bad modulus/multiplier")
	ErrTruncated         = errors.New("protocol: truncated data")
	ErrSchema            = errors.New("protocol: invalid schema")
	ErrTrailingBytes     = errors.New("protocol: trailing bytes")
	ErrUnknownField      = errors.New("protocol: unknown field")
	ErrFieldTypeMismatch = errors.New("protocol: field type mismatch")
	ErrDerivedField      = errors.New("protocol: derived field is read-only")
	ErrMagicMismatch     = errors.New("protocol: magic mismatch")
	ErrMessageTooLarge   = errors.New("protocol: message too large")
)

// RangeError reports a value that cannot be represented in its field's width.
type RangeError struct {
	Field  string
	Value  any
	Width  int
	Reason string
}

func (e *RangeError) Error() string {
	reason := e.Reason
	if reason == "" {
		reason = fmt.Sprintf("does not fit in %d byte(s)", e.Width)
	}
	if e.Field == "" {
		return fmt.Sprintf("protocol: value %v %s", e.Value, reason)
	}
	return fmt.Sprintf("protocol: field=%s value %v %s", e.Field, e.Value, reason)
}

func (e *RangeError) Unwrap() error { return ErrRange }

// ModulusError reports a payload whose length is not a multiple of its
// length field's multiplier.
type ModulusError struct {
	Field      string
	Length     int
	Multiplier int
}

func (e *ModulusError) Error() string {
	return fmt.Sprintf(
		"protocol: field=%s bad modulus/multiplier: payload length %d is not a multiple of %d",
		e.Field,
		e.Length,
		e.Multiplier,
	)
}

func (e *ModulusError) Unwrap() error { return ErrBadModulus }

// BufferUnderrunError reports a field that needed more bytes than remained.
// Offset is the cursor position where the field starts; Need and Have are
// counted from Offset.
type BufferUnderrunError struct {
	Field  string
	Offset int
	Need   int
	Have   int
}

func (e *BufferUnderrunError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("protocol: truncated data: need %d bytes, have %d", e.Need, e.Have)
	}
	return fmt.Sprintf(
		"protocol: truncated data: field=%s offset=%d need %d bytes, have %d",
		e.Field,
		e.Offset,
		e.Need,
		e.Have,
	)
}

func (e *BufferUnderrunError) Unwrap() error { return ErrTruncated }

// Required returns the total buffer length that would satisfy the field.
func (e *BufferUnderrunError) Required() int { return e.Offset + e.Need }

// SchemaError reports an invalid message type declaration.
type SchemaError struct {
	Schema string
	Field  string
	Reason string
}

func (e *SchemaError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("protocol: schema=%s: %s", e.Schema, e.Reason)
	}
	return fmt.Sprintf("protocol: schema=%s field=%s: %s", e.Schema, e.Field, e.Reason)
}

func (e *SchemaError) Unwrap() error { return ErrSchema }

// TrailingBytesError reports unconsumed input after the last field of a
// strict decode.
type TrailingBytesError struct {
	Consumed int
	Extra    int
}

func (e *TrailingBytesError) Error() string {
	return fmt.Sprintf("protocol: trailing bytes: %d unconsumed after offset %d", e.Extra, e.Consumed)
}

func (e *TrailingBytesError) Unwrap() error { return ErrTrailingBytes }

// annotate stamps field context onto errors returned by field descriptors,
// which do not know their own names.
func annotate(err error, name string, offset int) error {
	var rangeErr *RangeError
	if errors.As(err, &rangeErr) && rangeErr.Field == "" {
		rangeErr.Field = name
		return rangeErr
	}
	var underrun *BufferUnderrunError
	if errors.As(err, &underrun) && underrun.Field == "" {
		underrun.Field = name
		underrun.Offset = offset
		return underrun
	}
	if errors.Is(err, ErrMagicMismatch) || errors.Is(err, ErrFieldTypeMismatch) {
		return fmt.Errorf("field=%s: %w", name, err)
	}
	return err
}
