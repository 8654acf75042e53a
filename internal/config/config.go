package config

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/danmuck/pacman/internal/logging"
	"github.com/danmuck/pacman/internal/protocol"
	"github.com/danmuck/pacman/internal/protocol/frame"
)

// CodecConfig holds decoder policy shared by tools built on the engine.
type CodecConfig struct {
	StrictTrailing  bool
	MaxPayloadBytes uint64
	LogLevel        string
}

type codecFile struct {
	StrictTrailing  bool   `toml:"strict_trailing"`
	MaxPayloadBytes int64  `toml:"max_payload_bytes"`
	LogLevel        string `toml:"log_level"`
}

func DefaultCodecConfig() CodecConfig {
	return CodecConfig{
		StrictTrailing:  false,
		MaxPayloadBytes: frame.DefaultLimits().MaxPayloadBytes,
		LogLevel:        "info",
	}
}

// LoadCodecConfig reads path and overrides only the keys it defines.
func LoadCodecConfig(path string) (CodecConfig, error) {
	cfg := DefaultCodecConfig()

	var raw codecFile
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return CodecConfig{}, fmt.Errorf("config load failed (%s): %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return CodecConfig{}, fmt.Errorf("config parse failed (%s): unknown key %q", path, undecoded[0].String())
	}

	if meta.IsDefined("strict_trailing") {
		cfg.StrictTrailing = raw.StrictTrailing
	}
	if meta.IsDefined("max_payload_bytes") {
		if raw.MaxPayloadBytes <= 0 {
			return CodecConfig{}, fmt.Errorf("config parse failed (%s): max_payload_bytes must be positive", path)
		}
		cfg.MaxPayloadBytes = uint64(raw.MaxPayloadBytes)
	}
	if meta.IsDefined("log_level") {
		cfg.LogLevel = strings.TrimSpace(raw.LogLevel)
	}

	if err := ValidateCodecConfig(cfg); err != nil {
		return CodecConfig{}, err
	}
	return cfg, nil
}

func ValidateCodecConfig(cfg CodecConfig) error {
	if cfg.MaxPayloadBytes == 0 {
		return fmt.Errorf("codec config max_payload_bytes must be positive")
	}
	if _, ok := logging.ParseLevel(cfg.LogLevel); !ok {
		return fmt.Errorf("codec config unknown log_level %q", cfg.LogLevel)
	}
	return nil
}

// MessageOptions converts the config into options for protocol.NewMessage.
func (c CodecConfig) MessageOptions() []protocol.Option {
	return []protocol.Option{protocol.StrictTrailing(c.StrictTrailing)}
}

func (c CodecConfig) Limits() frame.Limits {
	return frame.Limits{MaxPayloadBytes: c.MaxPayloadBytes}
}
