package protocol

import (
	"fmt"
	"strconv"
	"strings"
)

// VersionProperty presents a two element sequence as a "major.minor" string
// with a zero padded minor ("16.03"). Setting accepts "major.minor"; the
// minor part is parsed as a plain integer, so "22.7" stores (22, 7).
func VersionProperty() (Getter, Setter) {
	get := func(raw any) (any, error) {
		v, ok := raw.([]uint64)
		if !ok || len(v) < 2 {
			return nil, fmt.Errorf("%w: version wants a 2 element sequence, got %v", ErrFieldTypeMismatch, raw)
		}
		return fmt.Sprintf("%d.%02d", v[0], v[1]), nil
	}
	set := func(v any) (any, error) {
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("%w: version wants a string, got %T", ErrFieldTypeMismatch, v)
		}
		parts := strings.SplitN(s, ".", 2)
		out := make([]uint64, 0, len(parts))
		for _, part := range parts {
			n, err := strconv.ParseUint(strings.TrimSpace(part), 10, 64)
			if err != nil {
				return nil, fmt.Errorf("parse version %q: %w", s, err)
			}
			out = append(out, n)
		}
		return out, nil
	}
	return get, set
}
