package protocol

import (
	"fmt"

	"github.com/rs/zerolog/log"
)

type slotKind uint8

const (
	kindField slotKind = iota
	kindLength
	kindPayload
	kindProperty
)

func (k slotKind) String() string {
	switch k {
	case kindLength:
		return "length"
	case kindPayload:
		return "payload"
	case kindProperty:
		return "property"
	default:
		return "field"
	}
}

// slot is one wire-occupying entry of a schema. Length and payload slots
// point at each other through peer; both indexes are fixed at Build.
type slot struct {
	name       string
	kind       slotKind
	field      Field
	multiplier int
	peer       int
}

// lengthValue is the length slot's wire value for the given payload.
func (s *slot) lengthValue(payload []byte) (uint64, error) {
	if len(payload)%s.multiplier != 0 {
		return 0, &ModulusError{Field: s.name, Length: len(payload), Multiplier: s.multiplier}
	}
	return uint64(len(payload) / s.multiplier), nil
}

// payloadSize is the payload byte count announced by a decoded length value.
// A count no buffer could hold is reported as truncated data.
func (s *slot) payloadSize(v uint64) (int, error) {
	if v > uint64(maxInt/s.multiplier) {
		return 0, fmt.Errorf("%w: %w: field=%s length %d x %d", ErrTruncated, ErrMessageTooLarge, s.name, v, s.multiplier)
	}
	return int(v) * s.multiplier, nil
}

const maxInt = int(^uint(0) >> 1)

// countedField reports whether f takes its width from a constructor count.
func countedField(f Field) bool {
	switch f.(type) {
	case seqField, fixedBytesField:
		return true
	}
	return false
}

// Getter presents a raw stored value.
type Getter func(raw any) (any, error)

// Setter converts a presented value into the raw stored value.
type Setter func(v any) (any, error)

type property struct {
	name   string
	target int
	onGet  Getter
	onSet  Setter
}

type entry struct {
	kind slotKind
	idx  int
}

// Schema is an immutable, ordered message layout. It is safe for concurrent
// use; every Message created from it owns its own value storage.
type Schema struct {
	name      string
	slots     []slot
	props     []property
	names     []string
	index     map[string]entry
	fixedSize int
}

// Name returns the message type name given to NewSchema.
func (s *Schema) Name() string { return s.name }

// Fields returns the wire field names in declaration order.
func (s *Schema) Fields() []string {
	out := make([]string, len(s.slots))
	for i := range s.slots {
		out[i] = s.slots[i].name
	}
	return out
}

// Names returns every declared name, properties included, in declaration order.
func (s *Schema) Names() []string {
	return append([]string(nil), s.names...)
}

// Has reports whether name is a declared field or property.
func (s *Schema) Has(name string) bool {
	_, ok := s.index[name]
	return ok
}

// FixedSize returns the packed size when no field has a variable width.
func (s *Schema) FixedSize() (int, bool) {
	return s.fixedSize, s.fixedSize >= 0
}

// New creates an empty message of this type.
func (s *Schema) New(opts ...Option) *Message {
	return NewMessage(s, opts...)
}

// LengthOption configures a length field.
type LengthOption func(*slot)

// Multiplier scales the stored length: the payload holds value*m bytes.
func Multiplier(m int) LengthOption {
	return func(s *slot) { s.multiplier = m }
}

type decl struct {
	slot
	ref   string
	onGet Getter
	onSet Setter
}

// Builder registers fields in declaration order. Errors are reported by Build.
type Builder struct {
	name  string
	decls []decl
}

// NewSchema starts a message type declaration.
func NewSchema(name string) *Builder {
	return &Builder{name: name}
}

// Add declares a fixed-width field.
func (b *Builder) Add(name string, f Field) *Builder {
	b.decls = append(b.decls, decl{slot: slot{name: name, kind: kindField, field: f}})
	return b
}

// Length declares a length field wrapping the integer field base. Its value
// is derived from the payload that names it.
func (b *Builder) Length(name string, base Field, opts ...LengthOption) *Builder {
	s := slot{name: name, kind: kindLength, field: base, multiplier: 1, peer: -1}
	for _, opt := range opts {
		opt(&s)
	}
	b.decls = append(b.decls, decl{slot: s})
	return b
}

// Payload declares a raw byte field sized by the length field lengthName,
// which must be declared earlier.
func (b *Builder) Payload(name, lengthName string) *Builder {
	b.decls = append(b.decls, decl{
		slot: slot{name: name, kind: kindPayload, field: rawPayload{}, peer: -1},
		ref:  lengthName,
	})
	return b
}

// Property declares name as a transformed view over the earlier field
// fieldName. A nil onSet makes the property read-only.
func (b *Builder) Property(name, fieldName string, onGet Getter, onSet Setter) *Builder {
	b.decls = append(b.decls, decl{
		slot:  slot{name: name, kind: kindProperty, peer: -1},
		ref:   fieldName,
		onGet: onGet,
		onSet: onSet,
	})
	return b
}

// MustBuild is Build for package-level schemas; it panics on error.
func (b *Builder) MustBuild() *Schema {
	s, err := b.Build()
	if err != nil {
		panic(err)
	}
	return s
}

// Build validates the declarations and freezes them into a Schema.
func (b *Builder) Build() (*Schema, error) {
	s, err := b.build()
	if err != nil {
		log.Error().Err(err).Str("schema", b.name).Msg("protocol.Build failed")
		return nil, err
	}
	log.Debug().
		Str("schema", s.name).
		Int("fields", len(s.slots)).
		Int("properties", len(s.props)).
		Int("fixed_size", s.fixedSize).
		Msg("protocol.Build ok")
	return s, nil
}

func (b *Builder) build() (*Schema, error) {
	s := &Schema{
		name:  b.name,
		index: make(map[string]entry, len(b.decls)),
	}
	fail := func(field, format string, args ...any) error {
		return &SchemaError{Schema: b.name, Field: field, Reason: fmt.Sprintf(format, args...)}
	}

	// Declaration position of every name, used to reject forward references.
	declared := make(map[string]int, len(b.decls))
	for i, d := range b.decls {
		if d.name == "" {
			return nil, fail("", "declaration %d has an empty name", i)
		}
		if _, dup := declared[d.name]; dup {
			return nil, fail(d.name, "duplicate name")
		}
		declared[d.name] = i
	}

	for i, d := range b.decls {
		switch d.kind {
		case kindField:
			if d.field == nil {
				return nil, fail(d.name, "nil field descriptor")
			}
			if size := d.field.Size(); size < 0 && (size != Variable || countedField(d.field)) {
				return nil, fail(d.name, "negative width %d", size)
			}
			if d.field.Size() == Variable {
				return nil, fail(d.name, "variable width field must be declared with Payload")
			}
		case kindLength:
			if _, ok := d.field.(uintField); !ok {
				return nil, fail(d.name, "length base must be an integer field, got %v", d.field)
			}
			if d.multiplier < 1 {
				return nil, fail(d.name, "multiplier %d must be at least 1", d.multiplier)
			}
		case kindPayload, kindProperty:
			pos, ok := declared[d.ref]
			if !ok {
				return nil, fail(d.name, "references unknown field %q", d.ref)
			}
			if pos > i {
				return nil, fail(d.name, "references %q which is declared after it", d.ref)
			}
		}

		if d.kind == kindProperty {
			target := b.decls[declared[d.ref]]
			if target.kind == kindProperty {
				return nil, fail(d.name, "cannot wrap property %q", d.ref)
			}
			if d.onGet == nil {
				return nil, fail(d.name, "property requires a getter")
			}
			s.index[d.name] = entry{kind: kindProperty, idx: len(s.props)}
			s.props = append(s.props, property{
				name:   d.name,
				target: s.index[d.ref].idx,
				onGet:  d.onGet,
				onSet:  d.onSet,
			})
			s.names = append(s.names, d.name)
			continue
		}

		cur := d.slot
		if d.kind == kindPayload {
			lengthEntry := s.index[d.ref]
			if lengthEntry.kind != kindLength {
				return nil, fail(d.name, "%q is a %s, not a length field", d.ref, lengthEntry.kind)
			}
			length := &s.slots[lengthEntry.idx]
			if length.peer >= 0 {
				return nil, fail(d.name, "length field %q already sizes %q", d.ref, s.slots[length.peer].name)
			}
			length.peer = len(s.slots)
			cur.peer = lengthEntry.idx
		}
		s.index[d.name] = entry{kind: d.kind, idx: len(s.slots)}
		s.slots = append(s.slots, cur)
		s.names = append(s.names, d.name)
	}

	for _, sl := range s.slots {
		if sl.kind == kindLength && sl.peer < 0 {
			return nil, fail(sl.name, "length field has no payload")
		}
	}

	s.fixedSize = 0
	for _, sl := range s.slots {
		if sl.kind == kindPayload {
			s.fixedSize = -1
			break
		}
		s.fixedSize += sl.field.Size()
	}
	return s, nil
}
