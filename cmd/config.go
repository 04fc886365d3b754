package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"hashpipe/internal/config"
	"hashpipe/internal/digest"
)

type shownConfig struct {
	File      string `yaml:"file"`
	Algorithm string `yaml:"algorithm"`
	Key       string `yaml:"key"`
	Prefix    string `yaml:"prefix"`
	Workers   int    `yaml:"workers"`
}

// printConfig shows the effective settings. The key itself is never
// printed, only its length.
func printConfig(w io.Writer, cfg config.Config) error {
	shown := shownConfig{
		File:      cfg.Path,
		Algorithm: cfg.Algorithm,
		Key:       "(not set)",
		Prefix:    cfg.Prefix,
		Workers:   cfg.Workers,
	}
	if shown.File == "" {
		shown.File = "(none)"
	}
	if len(cfg.Key) > 0 {
		shown.Key = fmt.Sprintf("(set, %d bytes)", len(cfg.Key))
	}

	enc := yaml.NewEncoder(w)
	if err := enc.Encode(shown); err != nil {
		return err
	}
	return enc.Close()
}

// storeConfig writes cfg to the --config path, HASHPIPE_CONFIG or the
// default location.
func storeConfig(cmd *cobra.Command, cfg config.Config, algorithms *digest.Registry) error {
	if _, err := digest.NewHMAC(algorithms, cfg.Algorithm, nil); err != nil {
		return usageError{err}
	}

	path := cfgPath
	if path == "" {
		path = os.Getenv("HASHPIPE_CONFIG")
	}
	if path == "" {
		p, err := config.DefaultPath()
		if err != nil {
			return err
		}
		path = p
	}

	if err := config.SaveConfig(cfg, path); err != nil {
		return fmt.Errorf("save config: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Configuration saved to %s\n", path)
	return nil
}
