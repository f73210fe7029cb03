package main

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/BurntSushi/toml"
)

// config holds the defaults of the command line flags.
type config struct {
	Schema   string
	Type     string
	From     string
	To       string
	Hex      bool
	Count    int
	Workers  int
	Seed     uint64
	MaxDepth int
	Rules    []string
}

type fileConfig struct {
	Schema   string   `toml:"schema"`
	Type     string   `toml:"type"`
	From     string   `toml:"from"`
	To       string   `toml:"to"`
	Hex      bool     `toml:"hex"`
	Count    int      `toml:"count"`
	Workers  int      `toml:"workers"`
	Seed     int64    `toml:"seed"`
	MaxDepth int      `toml:"max_depth"`
	Rules    []string `toml:"rules"`
}

func defaultConfig() config {
	return config{
		From:    "ber",
		To:      "xer",
		Count:   1000,
		Workers: runtime.GOMAXPROCS(0),
		Seed:    1,
	}
}

// loadConfig reads the TOML file at path. Keys that are not defined in the
// file keep their default values.
func loadConfig(path string) (config, error) {
	cfg := defaultConfig()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return config{}, fmt.Errorf("load config: %w", err)
	}
	if keys := meta.Undecoded(); len(keys) > 0 {
		return config{}, fmt.Errorf("load config: unknown key %s", keys[0])
	}

	if meta.IsDefined("schema") {
		cfg.Schema = strings.TrimSpace(raw.Schema)
	}
	if meta.IsDefined("type") {
		cfg.Type = strings.TrimSpace(raw.Type)
	}
	if meta.IsDefined("from") {
		cfg.From = strings.TrimSpace(raw.From)
	}
	if meta.IsDefined("to") {
		cfg.To = strings.TrimSpace(raw.To)
	}
	if meta.IsDefined("hex") {
		cfg.Hex = raw.Hex
	}
	if meta.IsDefined("count") {
		if raw.Count < 0 {
			return config{}, fmt.Errorf("load config: negative count %d", raw.Count)
		}
		cfg.Count = raw.Count
	}
	if meta.IsDefined("workers") {
		if raw.Workers <= 0 {
			return config{}, fmt.Errorf("load config: invalid workers %d", raw.Workers)
		}
		cfg.Workers = raw.Workers
	}
	if meta.IsDefined("seed") {
		cfg.Seed = uint64(raw.Seed)
	}
	if meta.IsDefined("max_depth") {
		cfg.MaxDepth = raw.MaxDepth
	}
	if meta.IsDefined("rules") {
		cfg.Rules = normalizeRules(raw.Rules)
	}
	return cfg, nil
}

func normalizeRules(in []string) []string {
	out := make([]string, 0, len(in))
	for _, r := range in {
		v := strings.ToLower(strings.TrimSpace(r))
		if v == "" {
			continue
		}
		out = append(out, v)
	}
	return out
}
