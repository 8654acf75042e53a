package protocol

import (
	"bytes"
	"fmt"

	"github.com/rs/zerolog/log"
)

// Option configures a Message.
type Option func(*options)

type options struct {
	strictTrailing bool
}

// StrictTrailing makes Unpack reject input that continues past the last
// field. The default accepts and ignores trailing bytes.
func StrictTrailing(strict bool) Option {
	return func(o *options) { o.strictTrailing = strict }
}

// Message is one instance of a Schema: an ordered set of raw field values.
// A Message is not safe for concurrent use.
type Message struct {
	schema *Schema
	values []any
	opts   options
}

// NewMessage creates a message holding the zero value of every field.
func NewMessage(schema *Schema, opts ...Option) *Message {
	m := &Message{schema: schema}
	for _, opt := range opts {
		opt(&m.opts)
	}
	m.Reset()
	return m
}

// Schema returns the message's layout.
func (m *Message) Schema() *Schema { return m.schema }

// Reset restores every field to its zero value.
func (m *Message) Reset() {
	m.values = make([]any, len(m.schema.slots))
	for i := range m.schema.slots {
		s := &m.schema.slots[i]
		if s.kind != kindLength {
			m.values[i] = s.field.Zero()
		}
	}
}

// Clone returns an independent copy of m.
func (m *Message) Clone() *Message {
	c := &Message{schema: m.schema, opts: m.opts, values: make([]any, len(m.values))}
	for i, v := range m.values {
		c.values[i] = copyValue(v)
	}
	return c
}

// Get returns the current value of a field or property. Length fields report
// the value derived from their payload.
func (m *Message) Get(name string) (any, error) {
	e, ok := m.schema.index[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s.%s", ErrUnknownField, m.schema.name, name)
	}
	if e.kind == kindProperty {
		p := m.schema.props[e.idx]
		raw, err := m.raw(p.target)
		if err != nil {
			return nil, err
		}
		return p.onGet(raw)
	}
	return m.raw(e.idx)
}

func (m *Message) raw(idx int) (any, error) {
	s := &m.schema.slots[idx]
	if s.kind == kindLength {
		return s.lengthValue(m.values[s.peer].([]byte))
	}
	return copyValue(m.values[idx]), nil
}

// Set assigns a field or property. Values are converted to the field's stored
// representation; width and modulus checks happen when the message is packed.
func (m *Message) Set(name string, v any) error {
	e, ok := m.schema.index[name]
	if !ok {
		return fmt.Errorf("%w: %s.%s", ErrUnknownField, m.schema.name, name)
	}
	idx := e.idx
	if e.kind == kindProperty {
		p := m.schema.props[e.idx]
		if p.onSet == nil {
			return fmt.Errorf("%w: property %s has no setter", ErrDerivedField, name)
		}
		raw, err := p.onSet(v)
		if err != nil {
			return fmt.Errorf("property %s: %w", name, err)
		}
		idx, v = p.target, raw
	}
	s := &m.schema.slots[idx]
	if s.kind == kindLength {
		return fmt.Errorf("%w: %s is computed from %s", ErrDerivedField, s.name, m.schema.slots[s.peer].name)
	}
	stored, err := s.field.Coerce(v)
	if err != nil {
		return annotate(err, s.name, 0)
	}
	m.values[idx] = stored
	return nil
}

// MustSet is Set for values known to be valid; it panics on error.
func (m *Message) MustSet(name string, v any) *Message {
	if err := m.Set(name, v); err != nil {
		panic(err)
	}
	return m
}

// Uint returns an integer field or property value.
func (m *Message) Uint(name string) (uint64, error) {
	v, err := m.Get(name)
	if err != nil {
		return 0, err
	}
	u, ok := v.(uint64)
	if !ok {
		return 0, fmt.Errorf("%w: %s is %T, not an integer", ErrFieldTypeMismatch, name, v)
	}
	return u, nil
}

// Sequence returns an integer sequence field or property value.
func (m *Message) Sequence(name string) ([]uint64, error) {
	v, err := m.Get(name)
	if err != nil {
		return nil, err
	}
	seq, ok := v.([]uint64)
	if !ok {
		return nil, fmt.Errorf("%w: %s is %T, not a sequence", ErrFieldTypeMismatch, name, v)
	}
	return seq, nil
}

// Bytes returns a raw byte field or property value.
func (m *Message) Bytes(name string) ([]byte, error) {
	v, err := m.Get(name)
	if err != nil {
		return nil, err
	}
	b, ok := v.([]byte)
	if !ok {
		return nil, fmt.Errorf("%w: %s is %T, not bytes", ErrFieldTypeMismatch, name, v)
	}
	return b, nil
}

// String returns a string property, or a raw byte field as a string.
func (m *Message) String(name string) (string, error) {
	v, err := m.Get(name)
	if err != nil {
		return "", err
	}
	switch s := v.(type) {
	case string:
		return s, nil
	case []byte:
		return string(s), nil
	default:
		return "", fmt.Errorf("%w: %s is %T, not a string", ErrFieldTypeMismatch, name, v)
	}
}

// Pack serializes every field in declaration order. On error nothing is
// returned.
func (m *Message) Pack() ([]byte, error) {
	out := make([]byte, 0, m.sizeHint())
	for i := range m.schema.slots {
		s := &m.schema.slots[i]
		var err error
		if s.kind == kindLength {
			var n uint64
			n, err = s.lengthValue(m.values[s.peer].([]byte))
			if err == nil {
				out, err = s.field.Encode(out, n)
			}
		} else {
			out, err = s.field.Encode(out, m.values[i])
		}
		if err != nil {
			err = annotate(err, s.name, len(out))
			log.Debug().Err(err).Str("schema", m.schema.name).Str("field", s.name).Msg("protocol.Pack failed")
			return nil, err
		}
	}
	log.Trace().Str("schema", m.schema.name).Int("bytes", len(out)).Msg("protocol.Pack")
	return out, nil
}

func (m *Message) sizeHint() int {
	if n, ok := m.schema.FixedSize(); ok {
		return n
	}
	n := 0
	for i := range m.schema.slots {
		s := &m.schema.slots[i]
		if s.kind == kindPayload {
			n += len(m.values[i].([]byte))
			continue
		}
		n += s.field.Size()
	}
	return n
}

// Unpack replaces every field value with one decoded from buf. On error the
// message keeps its previous values.
func (m *Message) Unpack(buf []byte) error {
	values, n, err := m.decode(buf)
	if err != nil {
		return err
	}
	if m.opts.strictTrailing && n < len(buf) {
		err := &TrailingBytesError{Consumed: n, Extra: len(buf) - n}
		log.Debug().Err(err).Str("schema", m.schema.name).Msg("protocol.Unpack failed")
		return err
	}
	m.values = values
	return nil
}

// UnpackPrefix decodes the message from the start of buf and returns the
// number of bytes consumed. Trailing bytes are always allowed, which lets a
// message be embedded in a larger frame.
func (m *Message) UnpackPrefix(buf []byte) (int, error) {
	values, n, err := m.decode(buf)
	if err != nil {
		return 0, err
	}
	m.values = values
	return n, nil
}

func (m *Message) decode(buf []byte) ([]any, int, error) {
	values := make([]any, len(m.schema.slots))
	lengths := make(map[int]uint64)
	cursor := 0
	for i := range m.schema.slots {
		s := &m.schema.slots[i]
		rest := buf[cursor:]
		var (
			v   any
			n   int
			err error
		)
		if s.kind == kindPayload {
			length := &m.schema.slots[s.peer]
			var size int
			size, err = length.payloadSize(lengths[s.peer])
			if err == nil && len(rest) < size {
				err = &BufferUnderrunError{Field: s.name, Offset: cursor, Need: size, Have: len(rest)}
			}
			if err == nil {
				v, n, err = s.field.Decode(rest[:size])
			}
		} else {
			v, n, err = s.field.Decode(rest)
		}
		if err != nil {
			err = annotate(err, s.name, cursor)
			log.Debug().Err(err).Str("schema", m.schema.name).Str("field", s.name).Msg("protocol.Unpack failed")
			return nil, 0, err
		}
		if s.kind == kindLength {
			lengths[i] = v.(uint64)
		} else {
			values[i] = v
		}
		cursor += n
	}
	log.Trace().Str("schema", m.schema.name).Int("bytes", cursor).Int("input", len(buf)).Msg("protocol.Unpack")
	return values, cursor, nil
}

func copyValue(v any) any {
	switch x := v.(type) {
	case []byte:
		return bytes.Clone(x)
	case []uint64:
		return append([]uint64(nil), x...)
	default:
		return x
	}
}
