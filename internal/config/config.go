package config

import (
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/melih-ucgun/xal/internal/core"
	"github.com/melih-ucgun/xal/internal/crypto"
)

// DefaultFile is looked up in the working directory when no --config is given.
const DefaultFile = "xal.yaml"

// DefaultConcurrency bounds fleet operations when the config leaves it unset.
const DefaultConcurrency = 5

// Config represents the root structure of xal.yaml.
type Config struct {
	LogLevel    string            `yaml:"log_level"`
	Inventory   string            `yaml:"inventory"`    // hosts file, relative to the config
	DefaultHost string            `yaml:"default_host"` // host used when --host is not given
	Use         map[string]string `yaml:"use"`          // interface -> provider name
	Concurrency int               `yaml:"concurrency"`
	Shell       *bool             `yaml:"shell"` // sh -c for local commands, on when unset
	Vars        map[string]string `yaml:"vars"`
	Includes    []string          `yaml:"includes"`
	Tasks       []Task            `yaml:"tasks"`
}

// Task is a named command line, run on every selected host once its
// dependencies have finished.
type Task struct {
	ID        string   `yaml:"id"`
	Run       string   `yaml:"run"`  // text/template over vars and facts
	When      string   `yaml:"when"` // condition on host facts
	DependsOn []string `yaml:"depends_on"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

// ShellEnabled reports whether local commands go through sh -c.
func (c *Config) ShellEnabled() bool {
	return c.Shell == nil || *c.Shell
}

// Level maps log_level to a slog level. Unknown values fall back to info.
func (c *Config) Level() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return level
}

// Load reads the config at path together with its includes. A .env next to
// the file, or else in the working directory, is loaded first so its values
// take part in expansion. Encrypted vars are opened with the key from
// keySource, crypto.MasterKey when nil.
func Load(path string, keySource func() string) (*Config, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	envPath := filepath.Join(filepath.Dir(absPath), ".env")
	if _, err := os.Stat(envPath); err == nil {
		if err := godotenv.Load(envPath); err != nil {
			return nil, fmt.Errorf("load %s: %w", envPath, err)
		}
	} else {
		_ = godotenv.Load()
	}

	cfg, err := loadRecursive(absPath, make(map[string]bool))
	if err != nil {
		return nil, err
	}

	expandConfig(cfg)
	if err := decryptConfig(cfg, keySource); err != nil {
		return nil, err
	}

	if cfg.Inventory != "" && !filepath.IsAbs(cfg.Inventory) {
		cfg.Inventory = filepath.Join(filepath.Dir(absPath), cfg.Inventory)
	}
	applyDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultConcurrency
	}
	if cfg.Vars == nil {
		cfg.Vars = make(map[string]string)
	}
}

// Validate checks provider pins and tasks.
func (c *Config) Validate() error {
	var errs []error
	known := []string{core.IfaceClient, core.IfaceSys, core.IfacePath, core.IfaceSh}
	for _, iface := range slices.Sorted(maps.Keys(c.Use)) {
		if !slices.Contains(known, iface) {
			errs = append(errs, fmt.Errorf("use: unknown interface %q", iface))
		}
	}
	seen := make(map[string]bool)
	for i, t := range c.Tasks {
		switch {
		case t.ID == "":
			errs = append(errs, fmt.Errorf("task #%d: missing id", i+1))
		case seen[t.ID]:
			errs = append(errs, fmt.Errorf("duplicate task id %q", t.ID))
		}
		seen[t.ID] = true
		if strings.TrimSpace(t.Run) == "" {
			errs = append(errs, fmt.Errorf("task %q: missing run", t.ID))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

func loadRecursive(path string, visited map[string]bool) (*Config, error) {
	if visited[path] {
		return &Config{}, nil
	}
	visited[path] = true

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if len(data) == 0 {
		return &Config{}, nil
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	baseDir := filepath.Dir(path)
	var tasks []Task
	for _, inc := range cfg.Includes {
		incPath := os.ExpandEnv(inc)
		if !filepath.IsAbs(incPath) {
			incPath = filepath.Join(baseDir, incPath)
		}
		if info, err := os.Stat(incPath); err == nil && info.IsDir() {
			incPath = filepath.Join(incPath, DefaultFile)
		}

		sub, err := loadRecursive(incPath, visited)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, sub.Tasks...)

		// The including file wins.
		if cfg.Vars == nil {
			cfg.Vars = make(map[string]string)
		}
		for k, v := range sub.Vars {
			if _, ok := cfg.Vars[k]; !ok {
				cfg.Vars[k] = v
			}
		}
		if cfg.Use == nil && len(sub.Use) > 0 {
			cfg.Use = make(map[string]string)
		}
		for k, v := range sub.Use {
			if _, ok := cfg.Use[k]; !ok {
				cfg.Use[k] = v
			}
		}
	}
	cfg.Tasks = append(tasks, cfg.Tasks...)
	return &cfg, nil
}

// expandConfig substitutes environment variables in every string value.
// Vars are exported first so later values can refer to them.
func expandConfig(cfg *Config) {
	for _, k := range slices.Sorted(maps.Keys(cfg.Vars)) {
		v := os.ExpandEnv(cfg.Vars[k])
		cfg.Vars[k] = v
		if !crypto.IsEncrypted(v) {
			os.Setenv(k, v)
		}
	}

	cfg.LogLevel = os.ExpandEnv(cfg.LogLevel)
	cfg.Inventory = os.ExpandEnv(cfg.Inventory)
	cfg.DefaultHost = os.ExpandEnv(cfg.DefaultHost)
	for k, v := range cfg.Use {
		cfg.Use[k] = os.ExpandEnv(v)
	}
	for i := range cfg.Tasks {
		cfg.Tasks[i].When = os.ExpandEnv(cfg.Tasks[i].When)
	}
}

func decryptConfig(cfg *Config, keySource func() string) error {
	var encrypted []string
	for k, v := range cfg.Vars {
		if crypto.IsEncrypted(v) {
			encrypted = append(encrypted, k)
		}
	}
	if len(encrypted) == 0 {
		return nil
	}
	slices.Sort(encrypted)

	if keySource == nil {
		keySource = crypto.MasterKey
	}
	key := keySource()
	if key == "" {
		return fmt.Errorf("config has encrypted vars: %w", crypto.ErrNoKey)
	}
	for _, k := range encrypted {
		plain, err := crypto.Decrypt(cfg.Vars[k], key)
		if err != nil {
			return fmt.Errorf("var %s: %w", k, err)
		}
		cfg.Vars[k] = plain
		os.Setenv(k, plain)
	}
	return nil
}
