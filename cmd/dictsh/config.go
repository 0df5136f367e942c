package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/tailscale/hujson"
)

var (
	errConfigFileNotFound = errors.New("config file not found")
	errConfigInvalid      = errors.New("invalid config")
)

// Config holds the dictsh settings. Every field is optional in the file;
// missing fields keep their defaults.
type Config struct {
	Prompt      string `json:"prompt,omitempty"`
	HistoryFile string `json:"history_file,omitempty"`
	Seed        uint64 `json:"seed,omitempty"`
	FoldCase    bool   `json:"fold_case,omitempty"`
	ReportDir   string `json:"report_dir,omitempty"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		Prompt:    "dict> ",
		ReportDir: ".",
	}
}

// ConfigFileName is the config file picked up from the working directory when
// no explicit --config path is given.
const ConfigFileName = ".dictsh.json"

// loadConfig resolves the effective configuration: defaults, overlaid with the
// config file. An explicit path must exist; the default file is optional.
// Returns the config and the path of the file actually loaded, if any.
func loadConfig(path string) (Config, string, error) {
	cfg := DefaultConfig()

	mustExist := path != ""
	if path == "" {
		path = ConfigFileName
	}

	fileCfg, loaded, err := loadConfigFile(path, mustExist)
	if err != nil {
		return Config{}, "", err
	}

	if !loaded {
		return cfg, "", nil
	}

	cfg = mergeConfig(cfg, fileCfg)

	err = validateConfig(cfg)
	if err != nil {
		return Config{}, "", fmt.Errorf("%w %s: %w", errConfigInvalid, path, err)
	}

	return cfg, path, nil
}

// loadConfigFile loads a config file. If mustExist is false, a missing file
// returns a zero config with loaded=false.
func loadConfigFile(path string, mustExist bool) (Config, bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if mustExist {
			return Config{}, false, fmt.Errorf("%w: %s", errConfigFileNotFound, path)
		}

		return Config{}, false, nil
	}

	cfg, err := parseConfig(data)
	if err != nil {
		return Config{}, false, fmt.Errorf("%w %s: %w", errConfigInvalid, path, err)
	}

	return cfg, true, nil
}

func parseConfig(data []byte) (Config, error) {
	// Standardize JSONC to JSON
	standardized, err := hujson.Standardize(data)
	if err != nil {
		return Config{}, fmt.Errorf("invalid JSONC: %w", err)
	}

	var cfg Config

	unmarshalErr := json.Unmarshal(standardized, &cfg)
	if unmarshalErr != nil {
		return Config{}, fmt.Errorf("invalid JSON: %w", unmarshalErr)
	}

	return cfg, nil
}

func mergeConfig(base, overlay Config) Config {
	if overlay.Prompt != "" {
		base.Prompt = overlay.Prompt
	}

	if overlay.HistoryFile != "" {
		base.HistoryFile = overlay.HistoryFile
	}

	if overlay.Seed != 0 {
		base.Seed = overlay.Seed
	}

	if overlay.FoldCase {
		base.FoldCase = true
	}

	if overlay.ReportDir != "" {
		base.ReportDir = overlay.ReportDir
	}

	return base
}

func validateConfig(cfg Config) error {
	if cfg.Prompt == "" {
		return errors.New("prompt must not be empty")
	}

	if cfg.ReportDir == "" {
		return errors.New("report_dir must not be empty")
	}

	return nil
}
