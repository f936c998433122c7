package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/knadh/koanf/maps"
	"gopkg.in/yaml.v3"

	"github.com/yndnr/wazuh-cli-go/internal/core/domain"
	"github.com/yndnr/wazuh-cli-go/internal/infra/confloader"
)

const (
	// DirName is the per-user state directory under $HOME.
	DirName = ".wazuh-cli"
	// FileName is the configuration file inside DirName.
	FileName = "config.yaml"
	// HistoryFileName is the interactive history file inside DirName.
	HistoryFileName = "history"
)

// ErrExists is returned by Init when the file is already present.
var ErrExists = errors.New("configuration file already exists")

// Dir returns the per-user state directory.
func Dir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return DirName
	}
	return filepath.Join(homeDir, DirName)
}

// DefaultConfigPath returns the default CLI config file path.
func DefaultConfigPath() string {
	return filepath.Join(Dir(), FileName)
}

// DefaultHistoryPath returns the default interactive history path.
func DefaultHistoryPath() string {
	return filepath.Join(Dir(), HistoryFileName)
}

// Load builds the configuration from defaults, the YAML file at path (or
// the default path), WAZUH_* environment variables and flags, in increasing
// priority. flags holds dotted keys for flags the user actually set. A
// missing file is not an error.
func Load(path string, flags map[string]any) (*CLIConfig, error) {
	if path == "" {
		path = DefaultConfigPath()
	}

	l := confloader.NewLoader(confloader.WithConfigFile(path), confloader.WithOptionalFile())
	if err := l.LoadMap(Default().Flatten()); err != nil {
		return nil, err
	}

	cfg := &CLIConfig{}
	if err := l.Load(cfg); err != nil {
		return nil, domain.Validationf("%v", err)
	}
	if len(flags) > 0 {
		if err := l.LoadMap(flags); err != nil {
			return nil, err
		}
		if err := l.Unmarshal(cfg); err != nil {
			return nil, domain.Validationf("apply flags: %v", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile reads only the file at path over the defaults, ignoring the
// environment. It is the view config set edits.
func LoadFile(path string) (*CLIConfig, error) {
	l := confloader.NewLoader()
	if err := l.LoadMap(Default().Flatten()); err != nil {
		return nil, err
	}
	if err := l.LoadFile(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, domain.Validationf("%v", err)
	}
	cfg := &CLIConfig{}
	if err := l.Unmarshal(cfg); err != nil {
		return nil, domain.Validationf("%v", err)
	}
	return cfg, nil
}

// SetValue changes one key in the file at path, validates the result and
// saves it.
func SetValue(path, key, value string) (*CLIConfig, error) {
	if !IsKey(key) {
		return nil, domain.Validationf("unknown configuration key %q", key)
	}

	cfg, err := LoadFile(path)
	if err != nil {
		return nil, err
	}

	l := confloader.NewLoader()
	if err := l.LoadMap(cfg.Flatten()); err != nil {
		return nil, err
	}
	if err := l.Set(key, value); err != nil {
		return nil, err
	}
	updated := &CLIConfig{}
	if err := l.Unmarshal(updated); err != nil {
		return nil, domain.Validationf("invalid value %q for %s", value, key)
	}
	if err := updated.Validate(); err != nil {
		return nil, err
	}
	if err := Save(updated, path); err != nil {
		return nil, err
	}
	return updated, nil
}

// Init writes the default configuration to path. An existing file is kept
// unless force is set.
func Init(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s: %w", path, ErrExists)
		}
	}
	return Save(Default(), path)
}

// Save writes cfg as YAML with owner-only permissions.
func Save(cfg *CLIConfig, path string) error {
	if path == "" {
		path = DefaultConfigPath()
	}

	data, err := Marshal(cfg)
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+FileName+".*")
	if err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := tmp.Chmod(0600); err != nil {
		tmp.Close()
		return fmt.Errorf("write config: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write config: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Marshal renders cfg as nested YAML.
func Marshal(cfg *CLIConfig) ([]byte, error) {
	data, err := yaml.Marshal(maps.Unflatten(cfg.Flatten(), "."))
	if err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	return data, nil
}
