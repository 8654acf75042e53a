package protocol

import (
	"errors"
	"fmt"
	"io"
)

// ReadMessage decodes m from r, reading only as many bytes as the layout
// requires. limit bounds the total message size; zero means unbounded. It
// returns the number of bytes read from r, and io.EOF if r ends before the
// first byte of the message.
func ReadMessage(r io.Reader, m *Message, limit int) (int, error) {
	var buf []byte
	if n, ok := m.schema.FixedSize(); ok {
		buf = make([]byte, 0, n)
	}
	for {
		n, err := m.UnpackPrefix(buf)
		if err == nil {
			return n, nil
		}
		var under *BufferUnderrunError
		if !errors.As(err, &under) {
			return len(buf), err
		}
		required := under.Required()
		if limit > 0 && required > limit {
			return len(buf), fmt.Errorf("%w: %s needs %d bytes, limit %d", ErrMessageTooLarge, m.schema.name, required, limit)
		}
		chunk := make([]byte, required-len(buf))
		read, rerr := io.ReadFull(r, chunk)
		buf = append(buf, chunk[:read]...)
		if rerr != nil {
			if len(buf) == 0 && errors.Is(rerr, io.EOF) {
				return 0, io.EOF
			}
			if errors.Is(rerr, io.EOF) || errors.Is(rerr, io.ErrUnexpectedEOF) {
				under.Have = len(buf) - under.Offset
				return len(buf), under
			}
			return len(buf), rerr
		}
	}
}
