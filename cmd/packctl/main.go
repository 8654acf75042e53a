package main

import (
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/danmuck/pacman/internal/config"
	"github.com/danmuck/pacman/internal/logging"
	"github.com/danmuck/pacman/internal/protocol"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	logging.ConfigureRuntime()
	if err := run(os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		log.Fatal().Err(err).Msg("packctl failed")
	}
}

func run(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("packctl", flag.ContinueOnError)
	shape := fs.String("shape", "lengthy", "message shape: "+strings.Join(shapeNames(), "|"))
	valuesPath := fs.String("values", "", "TOML file of field values to pack")
	unpackHex := fs.String("unpack", "", "hex encoded message to unpack")
	configPath := fs.String("config", "", "codec config TOML file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg := config.DefaultCodecConfig()
	if *configPath != "" {
		loaded, err := config.LoadCodecConfig(*configPath)
		if err != nil {
			return err
		}
		cfg = loaded
		if lvl, ok := logging.ParseLevel(cfg.LogLevel); ok {
			zerolog.SetGlobalLevel(lvl)
		}
	}

	schema, err := lookupShape(*shape)
	if err != nil {
		return err
	}
	msg := protocol.NewMessage(schema, cfg.MessageOptions()...)

	switch {
	case *unpackHex != "" && *valuesPath != "":
		return fmt.Errorf("-values and -unpack are mutually exclusive")
	case *unpackHex != "":
		return unpack(msg, *unpackHex, stdout)
	default:
		return pack(msg, *valuesPath, stdout)
	}
}

func pack(msg *protocol.Message, valuesPath string, stdout io.Writer) error {
	if valuesPath != "" {
		vals, err := config.LoadValues(valuesPath)
		if err != nil {
			return err
		}
		for _, name := range vals.Keys {
			if err := msg.Set(name, vals.Entries[name]); err != nil {
				return fmt.Errorf("set %s: %w", name, err)
			}
		}
	}
	out, err := msg.Pack()
	if err != nil {
		return err
	}
	log.Debug().Str("shape", msg.Schema().Name()).Int("bytes", len(out)).Msg("packctl.pack")
	_, err = fmt.Fprintln(stdout, hex.EncodeToString(out))
	return err
}

func unpack(msg *protocol.Message, raw string, stdout io.Writer) error {
	buf, err := hex.DecodeString(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("decode hex: %w", err)
	}
	if err := msg.Unpack(buf); err != nil {
		return err
	}
	for _, name := range msg.Schema().Names() {
		v, err := msg.Get(name)
		if err != nil {
			return fmt.Errorf("get %s: %w", name, err)
		}
		if _, err := fmt.Fprintf(stdout, "%s=%s\n", name, formatValue(v)); err != nil {
			return err
		}
	}
	return nil
}

func formatValue(v any) string {
	switch x := v.(type) {
	case []byte:
		return fmt.Sprintf("%q", x)
	case []uint64:
		parts := make([]string, len(x))
		for i, n := range x {
			parts[i] = fmt.Sprint(n)
		}
		return "[" + strings.Join(parts, ",") + "]"
	default:
		return fmt.Sprint(x)
	}
}
