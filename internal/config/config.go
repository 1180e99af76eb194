// internal/config/config.go
//
// This package loads coursenobi.yaml: the default catalog, scheduling
// limits, the department remap table, logging and the HTTP listen address.

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kingrea/coursenobi/internal/catalog"
)

const (
	// FileName is the config file looked up in the working directory.
	FileName = "coursenobi.yaml"

	// EnvConfigPath overrides the config file location.
	EnvConfigPath = "COURSENOBI_CONFIG"

	defaultMaxCoursesPerQuarter = 4
	defaultMaxCombinations      = 100000
	defaultLogLevel             = "info"
	defaultLogFormat            = "console"
	defaultAddr                 = ":8080"
)

const defaultConfigYAML = `# coursenobi configuration
version: 1

# Catalog used when a request carries none.
# catalog: catalog.json

scheduling:
  # Used when a request leaves max_courses_per_quarter unset.
  max_courses_per_quarter: 4
  # Upper bound on OR-branch combinations evaluated per request.
  max_combinations: 100000

# Department codes that appear in requirement text under another name.
departments:
  remap:
    ICS: I&C SCI
    CS: COMPSCI
  # Codes accepted in requirements even though no catalog record uses them.
  retired: []

logging:
  level: info
  # console or json
  format: console
  # file: logs/coursenobi.log

server:
  addr: ":8080"
`

// SchedulingConfig holds the defaults applied to requests.
type SchedulingConfig struct {
	MaxCoursesPerQuarter int `yaml:"max_courses_per_quarter" env:"COURSENOBI_MAX_COURSES_PER_QUARTER"`
	MaxCombinations      int `yaml:"max_combinations" env:"COURSENOBI_MAX_COMBINATIONS"`
}

// DepartmentConfig feeds catalog.NewDepartments.
type DepartmentConfig struct {
	Remap   map[string]string `yaml:"remap,omitempty"`
	Retired []string          `yaml:"retired,omitempty"`
	Known   []string          `yaml:"known,omitempty"`
}

// LoggingConfig selects the log level, output format and optional file.
type LoggingConfig struct {
	Level  string `yaml:"level" env:"COURSENOBI_LOG_LEVEL"`
	Format string `yaml:"format" env:"COURSENOBI_LOG_FORMAT"`
	File   string `yaml:"file,omitempty" env:"COURSENOBI_LOG_FILE"`
}

// ServerConfig configures coursenobi-server.
type ServerConfig struct {
	Addr string `yaml:"addr" env:"COURSENOBI_ADDR"`
}

// Config is the parsed coursenobi.yaml.
type Config struct {
	Version     int              `yaml:"version"`
	Catalog     string           `yaml:"catalog,omitempty" env:"COURSENOBI_CATALOG"`
	Scheduling  SchedulingConfig `yaml:"scheduling"`
	Departments DepartmentConfig `yaml:"departments"`
	Logging     LoggingConfig    `yaml:"logging"`
	Server      ServerConfig     `yaml:"server"`

	// Path is where the config was read from; empty when defaults are used.
	Path string `yaml:"-"`
}

// Default returns the built-in configuration.
func Default() Config {
	cfg := Config{
		Departments: DepartmentConfig{Remap: map[string]string{}},
	}
	for from, to := range catalog.DefaultRemap {
		cfg.Departments.Remap[from] = to
	}
	cfg.applyDefaults()
	return cfg
}

// Resolve picks the config path: an explicit path wins, then
// $COURSENOBI_CONFIG, then coursenobi.yaml in the working directory.
func Resolve(explicit string) string {
	if p := strings.TrimSpace(explicit); p != "" {
		return p
	}
	if p := strings.TrimSpace(os.Getenv(EnvConfigPath)); p != "" {
		return p
	}
	return FileName
}

// Load reads path. A missing file yields the defaults; environment overrides
// apply in both cases.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		parsed, perr := Parse(data)
		if perr != nil {
			return Config{}, fmt.Errorf("config: %s: %w", path, perr)
		}
		cfg = parsed
		cfg.Path = path
	case errors.Is(err, fs.ErrNotExist):
	default:
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	cfg.normalize(filepath.Dir(path))
	if err := cfg.validate(); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// Parse decodes YAML config data without consulting the environment.
func Parse(data []byte) (Config, error) {
	var parsed Config
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return Config{}, fmt.Errorf("parse: %w", err)
	}
	parsed.applyDefaults()
	parsed.normalize("")
	if err := parsed.validate(); err != nil {
		return Config{}, err
	}
	return parsed, nil
}

// WriteDefault scaffolds a config file. An existing file is left alone unless
// overwrite is set.
func WriteDefault(path string, overwrite bool) error {
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config: %s already exists", path)
		} else if !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("config: stat %s: %w", path, err)
		}
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("config: ensure dir: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(defaultConfigYAML), 0o644); err != nil {
		return fmt.Errorf("config: write %s: %w", path, err)
	}
	return nil
}

// Save writes cfg back to path.
func (c *Config) Save(path string) error {
	if c == nil {
		return fmt.Errorf("config: nil receiver")
	}
	c.applyDefaults()
	c.normalize("")
	if err := c.validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("config: encode config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("config: write %s: %w", path, err)
	}
	return nil
}

// DepartmentTable builds the department table described by the config.
func (c Config) DepartmentTable() *catalog.Departments {
	return catalog.NewDepartments(c.Departments.Remap, c.Departments.Known, c.Departments.Retired)
}

// AddRemap records a remap entry given as KEY=VALUE.
func (c *Config) AddRemap(entry string) error {
	key, value, ok := strings.Cut(entry, "=")
	key, value = strings.TrimSpace(key), strings.TrimSpace(value)
	if !ok || key == "" || value == "" {
		return fmt.Errorf("config: remap %q must be KEY=VALUE", entry)
	}
	if c.Departments.Remap == nil {
		c.Departments.Remap = map[string]string{}
	}
	c.Departments.Remap[key] = value
	return nil
}

func (c *Config) applyDefaults() {
	if c.Version == 0 {
		c.Version = 1
	}
	if c.Scheduling.MaxCoursesPerQuarter == 0 {
		c.Scheduling.MaxCoursesPerQuarter = defaultMaxCoursesPerQuarter
	}
	if c.Scheduling.MaxCombinations == 0 {
		c.Scheduling.MaxCombinations = defaultMaxCombinations
	}
	if c.Departments.Remap == nil {
		c.Departments.Remap = map[string]string{}
	}
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	if c.Server.Addr == "" {
		c.Server.Addr = defaultAddr
	}
}

func (c *Config) normalize(base string) {
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	c.Logging.File = resolvePath(base, c.Logging.File)
	c.Server.Addr = strings.TrimSpace(c.Server.Addr)
	c.Catalog = resolvePath(base, c.Catalog)
	c.Departments.Retired = trimAll(c.Departments.Retired)
	c.Departments.Known = trimAll(c.Departments.Known)
}

func (c *Config) validate() error {
	if c.Version < 1 {
		return fmt.Errorf("config version must be >= 1")
	}
	if c.Scheduling.MaxCoursesPerQuarter < 1 {
		return fmt.Errorf("scheduling.max_courses_per_quarter must be >= 1")
	}
	if c.Scheduling.MaxCombinations < 1 {
		return fmt.Errorf("scheduling.max_combinations must be >= 1")
	}
	switch c.Logging.Level {
	case "trace", "debug", "info", "warn", "error", "disabled":
	default:
		return fmt.Errorf("logging.level %q is not a known level", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be 'console' or 'json'")
	}
	for from, to := range c.Departments.Remap {
		if strings.TrimSpace(from) == "" || strings.TrimSpace(to) == "" {
			return fmt.Errorf("departments.remap entries need both a key and a value")
		}
	}
	return nil
}

func trimAll(values []string) []string {
	out := values[:0]
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func resolvePath(base, candidate string) string {
	trimmed := strings.TrimSpace(candidate)
	if trimmed == "" {
		return ""
	}
	if filepath.IsAbs(trimmed) || base == "" {
		return filepath.Clean(trimmed)
	}
	return filepath.Clean(filepath.Join(base, trimmed))
}
