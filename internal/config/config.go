package config

import (
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"hashpipe/internal/digest"
)

// ErrInvalidKey is returned when a key is not valid hex.
var ErrInvalidKey = errors.New("invalid key")

// Config holds the hashpipe settings that can come from a file or the
// environment. Command-line flags are applied on top by the caller.
type Config struct {
	Algorithm string
	Key       []byte
	Prefix    string
	Workers   int

	// Path is the file the settings were read from, empty if none.
	Path string
}

type configFile struct {
	Algorithm string `yaml:"algorithm,omitempty"`
	Key       string `yaml:"key,omitempty"`
	Prefix    string `yaml:"prefix,omitempty"`
	Workers   *int   `yaml:"workers,omitempty"`
}

// Default returns the settings used when nothing is configured.
func Default() Config {
	return Config{
		Algorithm: digest.DefaultAlgorithm,
		Workers:   1,
	}
}

// DefaultPath returns $HOME/.config/hashpipe/config.yaml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "hashpipe", "config.yaml"), nil
}

// LoadConfig reads the config file at path, or HASHPIPE_CONFIG, or the
// default path, and then applies HASHPIPE_* environment overrides.
//
// A missing default file is fine. A missing file that was asked for
// explicitly, or one that does not parse, is an error.
func LoadConfig(path string) (Config, error) {
	return load(path, true)
}

// LoadConfigForSave is LoadConfig for a file that is about to be written:
// an explicitly named file does not have to exist yet.
func LoadConfigForSave(path string) (Config, error) {
	return load(path, false)
}

func load(path string, mustExist bool) (Config, error) {
	cfg := Default()

	explicit := true
	if path == "" {
		path = os.Getenv("HASHPIPE_CONFIG")
	}
	if path == "" {
		explicit = false
		p, err := DefaultPath()
		if err == nil {
			path = p
		}
	}

	if path != "" {
		if err := loadFile(&cfg, path); err != nil {
			if (explicit && mustExist) || !errors.Is(err, os.ErrNotExist) {
				return cfg, err
			}
		} else {
			cfg.Path = path
		}
	}

	// Environment takes precedence over the file
	if err := applyEnv(&cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func loadFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}

	var fileCfg configFile
	if err := yaml.Unmarshal(data, &fileCfg); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	if fileCfg.Algorithm != "" {
		cfg.Algorithm = fileCfg.Algorithm
	}
	if fileCfg.Key != "" {
		key, err := ParseKey(fileCfg.Key)
		if err != nil {
			return fmt.Errorf("config %s: %w", path, err)
		}
		cfg.Key = key
	}
	if fileCfg.Prefix != "" {
		cfg.Prefix = fileCfg.Prefix
	}
	if fileCfg.Workers != nil {
		if *fileCfg.Workers < 1 {
			return fmt.Errorf("config %s: workers must be at least 1, got %d", path, *fileCfg.Workers)
		}
		cfg.Workers = *fileCfg.Workers
	}
	return nil
}

func applyEnv(cfg *Config) error {
	if algorithm := os.Getenv("HASHPIPE_ALGORITHM"); algorithm != "" {
		cfg.Algorithm = algorithm
	}
	if s, ok := os.LookupEnv("HASHPIPE_KEY"); ok {
		key, err := ParseKey(s)
		if err != nil {
			return fmt.Errorf("HASHPIPE_KEY: %w", err)
		}
		cfg.Key = key
	}
	if prefix, ok := os.LookupEnv("HASHPIPE_PREFIX"); ok {
		cfg.Prefix = prefix
	}
	if s := os.Getenv("HASHPIPE_WORKERS"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			return fmt.Errorf("HASHPIPE_WORKERS: invalid worker count %q", s)
		}
		cfg.Workers = n
	}
	return nil
}

// ParseKey decodes a hex encoded key. Whitespace between digits is ignored.
func ParseKey(s string) ([]byte, error) {
	key, err := hex.DecodeString(strings.Join(strings.Fields(s), ""))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	return key, nil
}

// SaveConfig writes cfg to path as YAML, creating parent directories.
func SaveConfig(cfg Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	fileCfg := configFile{
		Algorithm: cfg.Algorithm,
		Key:       hex.EncodeToString(cfg.Key),
		Prefix:    cfg.Prefix,
	}
	if cfg.Workers > 0 {
		fileCfg.Workers = &cfg.Workers
	}

	data, err := yaml.Marshal(fileCfg)
	if err != nil {
		return err
	}

	// The key is a secret
	return os.WriteFile(path, data, 0600)
}
