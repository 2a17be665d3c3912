// Package config loads interpreter configuration from CUE files.
//
// The embedded schema supplies defaults and constraints; a user file is
// unified with it, so partial files work and invalid values are rejected
// with CUE's own diagnostics.
package config

import (
	_ "embed"
	"fmt"
	"log/slog"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"

	"github.com/chronostack-lang/chronostack/internal/engine"
)

//go:embed schema.cue
var schemaCUE string

// Config is the fully-resolved interpreter configuration.
type Config struct {
	Resolver Resolver `json:"resolver"`
	REPL     REPL     `json:"repl"`
	Store    Store    `json:"store"`
	Log      Log      `json:"log"`
}

// Resolver tunes the paradox resolver.
type Resolver struct {
	Epsilon       float64 `json:"epsilon"`
	MaxIterations int     `json:"maxIterations"`
}

// REPL configures the interactive session.
type REPL struct {
	Prompt      string `json:"prompt"`
	HistoryFile string `json:"historyFile"`
}

// Store configures session persistence.
type Store struct {
	Path string `json:"path"`
}

// Log configures structured logging.
type Log struct {
	Level string `json:"level"`
}

// Default returns the configuration with every schema default applied.
func Default() Config {
	cfg, err := decode("")
	if err != nil {
		// The embedded schema is fully defaulted; this cannot fail.
		panic(fmt.Sprintf("config: embedded schema does not decode: %v", err))
	}
	return cfg
}

// Load reads a CUE configuration file and unifies it with the schema. An
// empty path yields the defaults.
func Load(path string) (Config, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	cfg, err := decodeUser(string(data), path)
	if err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Parse unifies CUE source text with the schema; used by tests and by
// callers that carry configuration inline.
func Parse(src string) (Config, error) {
	return decodeUser(src, "config.cue")
}

func decodeUser(src, filename string) (Config, error) {
	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return Config{}, fmt.Errorf("compile schema: %w", err)
	}
	user := ctx.CompileString(src, cue.Filename(filename))
	if err := user.Err(); err != nil {
		return Config{}, fmt.Errorf("compile config: %w", err)
	}
	merged := schema.Unify(user)
	if err := merged.Validate(cue.Concrete(true)); err != nil {
		return Config{}, fmt.Errorf("validate config: %w", err)
	}
	var cfg Config
	if err := merged.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	return cfg, nil
}

func decode(src string) (Config, error) {
	return decodeUser(src, "defaults.cue")
}

// ResolverConfig converts to the engine's resolver settings.
func (c Config) ResolverConfig() engine.ResolverConfig {
	return engine.ResolverConfig{
		Epsilon:       c.Resolver.Epsilon,
		MaxIterations: c.Resolver.MaxIterations,
	}
}

// LogLevel maps the configured level name onto slog.
func (c Config) LogLevel() slog.Level {
	switch c.Log.Level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
