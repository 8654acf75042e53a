package config

import (
	"fmt"

	"github.com/BurntSushi/toml"
)

// Values is a flat TOML document of field assignments, kept in file order.
type Values struct {
	Keys    []string
	Entries map[string]any
}

// LoadValues reads top level key/value pairs from path. Integers decode as
// int64, integer arrays as []int64 and strings stay strings, all of which
// protocol.Message.Set accepts.
func LoadValues(path string) (Values, error) {
	raw := map[string]any{}
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return Values{}, fmt.Errorf("values load failed (%s): %w", path, err)
	}
	out := Values{Entries: make(map[string]any, len(raw))}
	for _, key := range meta.Keys() {
		if len(key) != 1 {
			return Values{}, fmt.Errorf("values parse failed (%s): nested key %q", path, key.String())
		}
		name := key[0]
		v, err := normalizeValue(raw[name])
		if err != nil {
			return Values{}, fmt.Errorf("values parse failed (%s): %s: %w", path, name, err)
		}
		out.Keys = append(out.Keys, name)
		out.Entries[name] = v
	}
	return out, nil
}

func normalizeValue(v any) (any, error) {
	switch x := v.(type) {
	case int64, string:
		return x, nil
	case []any:
		ints := make([]int64, len(x))
		for i, elem := range x {
			n, ok := elem.(int64)
			if !ok {
				return nil, fmt.Errorf("array element %d is %T, want integer", i, elem)
			}
			ints[i] = n
		}
		return ints, nil
	default:
		return nil, fmt.Errorf("unsupported value type %T", v)
	}
}
