package main

import (
	"fmt"
	"sort"

	"github.com/danmuck/pacman/internal/protocol"
	"github.com/danmuck/pacman/internal/protocol/frame"
)

func buildShapes() map[string]*protocol.Schema {
	getVersion, setVersion := protocol.VersionProperty()
	return map[string]*protocol.Schema{
		"version": protocol.NewSchema("version").
			Add("_version", protocol.UBInt8Sequence(2)).
			Property("version", "_version", getVersion, setVersion).
			MustBuild(),
		"lengthy": protocol.NewSchema("lengthy").
			Length("length", protocol.UBInt16()).
			Payload("payload", "length").
			MustBuild(),
		"multiplied": protocol.NewSchema("multiplied").
			Length("length", protocol.UBInt8(), protocol.Multiplier(8)).
			Payload("payload", "length").
			MustBuild(),
		"sequence": protocol.NewSchema("sequence").
			Add("type", protocol.UBInt8()).
			Add("byte_values", protocol.UBInt8Sequence(16)).
			MustBuild(),
		"frame": frame.Schema(),
	}
}

var shapes = buildShapes()

func lookupShape(name string) (*protocol.Schema, error) {
	s, ok := shapes[name]
	if !ok {
		return nil, fmt.Errorf("unknown shape %q (known: %v)", name, shapeNames())
	}
	return s, nil
}

func shapeNames() []string {
	names := make([]string, 0, len(shapes))
	for name := range shapes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
