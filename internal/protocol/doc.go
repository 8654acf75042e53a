// Package protocol is a declarative binary message engine.
//
// A message type is declared once as an ordered Schema of field
// descriptors:
//
//	var lengthy = protocol.NewSchema("lengthy").
//		Length("length", protocol.UBInt16()).
//		Payload("payload", "length").
//		MustBuild()
//
// and instances created from it are filled by name and packed to bytes, or
// populated from bytes with Unpack. Layout order is declaration order; no
// padding or framing is added between fields.
//
// Ownership boundary:
// - field descriptors (fixed width integers, sequences, raw bytes)
// - length/payload coupling and multiplier checks
// - property transforms over raw field values
// - pack/unpack orchestration and stream reads
package protocol
