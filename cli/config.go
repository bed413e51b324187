package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	defaults "github.com/creasty/defaults"
	ini "gopkg.in/ini.v1"

	"github.com/e-commerce/testrunner/core"
	"github.com/e-commerce/testrunner/report"
)

// DefaultConfigFile is read when present; its absence is not an error.
const DefaultConfigFile = "./testrunner.ini"

const (
	sectionGlobal = "global"
	sectionRun    = "run"
	sectionDocker = "docker"
)

// Config contains the configuration
type Config struct {
	Global GlobalConfig `json:"global"`
	Run    RunConfig    `json:"run"`
	Docker DockerConfig `json:"docker"`

	configPath string
	// setKeys holds the normalized [run] keys the config file set.
	setKeys  map[string]bool
	warnings []UnknownKeyWarning
	logger   core.Logger
}

// GlobalConfig holds the [global] section.
type GlobalConfig struct {
	LogLevel          string `mapstructure:"log-level" json:"log-level,omitempty" validate:"omitempty,loglevel"`
	report.SaveConfig `mapstructure:",squash"`
}

// RunConfig holds the [run] section: everything that shapes the test container.
type RunConfig struct {
	Image   string `mapstructure:"image" json:"image" default:"python:3.12-slim" validate:"required,dockerimage"`
	Network string `mapstructure:"network" json:"network" default:"e-commerce_default" validate:"required"`
	// Source is mounted at WorkingDir; empty means the current directory.
	Source     string `mapstructure:"source" json:"source,omitempty"`
	WorkingDir string `mapstructure:"workdir" json:"workdir" default:"/app" validate:"required,startswith=/"`

	DatabaseURL     string   `mapstructure:"database-url" json:"database-url" default:"postgresql://postgres:pass123@db:5432/ecommerce_test" validate:"omitempty,dburl"`
	NormalizeDriver string   `mapstructure:"normalize-driver" json:"normalize-driver,omitempty" validate:"omitempty,alphanum"`
	Environment     []string `mapstructure:"environment" json:"environment,omitempty" validate:"dive,envvar"`
	// EnvFile is a dotenv file TEST_DATABASE_URL is read from when nothing
	// else sets it.
	EnvFile string `mapstructure:"env-file" json:"env-file,omitempty"`

	Shell          string `mapstructure:"shell" json:"shell" default:"sh -c" validate:"required"`
	InstallCommand string `mapstructure:"install-command" json:"install-command" default:"pip install -r requirements.txt"`
	TestCommand    string `mapstructure:"test-command" json:"test-command" default:"pytest -q" validate:"required"`

	Pull          string   `mapstructure:"pull" json:"pull" default:"missing" validate:"oneof=missing always never"`
	Delete        bool     `mapstructure:"delete" json:"delete" default:"true"`
	User          string   `mapstructure:"user" json:"user,omitempty"`
	ContainerName string   `mapstructure:"container-name" json:"container-name,omitempty" validate:"omitempty,containername"`
	Platform      string   `mapstructure:"platform" json:"platform,omitempty" validate:"omitempty,platform"`
	TTY           bool     `mapstructure:"tty" json:"tty,omitempty"`
	Labels        []string `mapstructure:"label" json:"label,omitempty" validate:"dive,label"`

	MaxRuntime  time.Duration `mapstructure:"max-runtime" json:"max-runtime,omitempty" validate:"duration_gte=0s"`
	StopTimeout time.Duration `mapstructure:"stop-timeout" json:"stop-timeout" default:"10s" validate:"duration_gte=1s"`
	PullRetries int           `mapstructure:"pull-retries" json:"pull-retries" default:"2" validate:"gte=0,lte=10"`
}

// DockerConfig holds the [docker] section.
type DockerConfig struct {
	// Host overrides DOCKER_HOST.
	Host string `mapstructure:"host" json:"host,omitempty"`
}

func NewConfig(logger core.Logger) *Config {
	c := &Config{
		setKeys: make(map[string]bool),
		logger:  logger,
	}

	_ = defaults.Set(c)
	return c
}

// BuildFromFile builds a configuration from an INI file
func BuildFromFile(filename string, logger core.Logger) (*Config, error) {
	c := NewConfig(logger)
	cfg, err := ini.LoadSources(ini.LoadOptions{AllowShadows: true, InsensitiveKeys: true}, filename)
	if err != nil {
		return nil, fmt.Errorf("loading config %s: %w", filename, err)
	}
	if err := parseIni(cfg, c); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", filename, err)
	}
	c.configPath = filename
	c.logWarnings()
	logger.Debugf("loaded config file %s", filename)
	return c, nil
}

// BuildFromString builds a configuration from INI text
func BuildFromString(config string, logger core.Logger) (*Config, error) {
	c := NewConfig(logger)
	cfg, err := ini.LoadSources(ini.LoadOptions{AllowShadows: true, InsensitiveKeys: true}, []byte(config))
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if err := parseIni(cfg, c); err != nil {
		return nil, err
	}
	c.logWarnings()
	return c, nil
}

// LoadConfig reads filename. A missing default config file yields the
// built-in defaults; any other missing file is an error.
func LoadConfig(filename string, logger core.Logger) (*Config, error) {
	if filename == "" {
		return NewConfig(logger), nil
	}

	if _, err := os.Stat(filename); errors.Is(err, fs.ErrNotExist) &&
		filepath.Clean(filename) == filepath.Clean(DefaultConfigFile) {
		logger.Debugf("No config file at %s, using defaults", filename)
		return NewConfig(logger), nil
	}

	return BuildFromFile(filename, logger)
}

// Path returns the file the configuration was read from, "" for defaults.
func (c *Config) Path() string {
	return c.configPath
}

// Warnings returns the unknown keys found while parsing.
func (c *Config) Warnings() []UnknownKeyWarning {
	return c.warnings
}

// IsSet reports whether the config file set the [run] key.
func (c *Config) IsSet(key string) bool {
	return c.setKeys[normalizeKey(key)]
}

// ResolveEnvFile fills DatabaseURL from the configured env file when the
// config file left it unset. override is the value given on the command line
// or in the environment; it always wins.
func (c *Config) ResolveEnvFile(override string) error {
	if override != "" {
		c.Run.DatabaseURL = override
		return nil
	}
	if c.Run.EnvFile == "" || c.IsSet("database-url") {
		return nil
	}

	env, err := LoadDotEnv(c.Run.EnvFile)
	if err != nil {
		return err
	}
	if v, ok := env[core.DatabaseURLEnv]; ok && v != "" {
		c.Run.DatabaseURL = v
		c.logger.Debugf("Using %s from %s", core.DatabaseURLEnv, c.Run.EnvFile)
	}
	return nil
}

// Validate checks the configuration struct tags.
func (c *Config) Validate() error {
	return ValidateConfig(c)
}

// Redacted returns a copy safe to print: the database password is masked.
func (c *Config) Redacted() *Config {
	r := *c
	r.Run.DatabaseURL = core.RedactDatabaseURL(c.Run.DatabaseURL)
	r.Run.Environment = redactEnvironment(c.Run.Environment)
	return &r
}

// NewTestRun builds the test run described by the [run] section. source must
// be absolute; extra is appended to the test command.
func (c *Config) NewTestRun(provider *core.DockerProvider, source string, extra []string) (*core.TestRun, error) {
	pull, err := core.ParsePullPolicy(c.Run.Pull)
	if err != nil {
		return nil, err
	}

	labels, err := parseLabels(c.Run.Labels)
	if err != nil {
		return nil, err
	}

	r := core.NewTestRun(provider, c.logger)
	r.Image = c.Run.Image
	r.Network = c.Run.Network
	r.Source = source
	r.WorkingDir = c.Run.WorkingDir
	r.DatabaseURL = c.Run.DatabaseURL
	r.NormalizeDriver = c.Run.NormalizeDriver
	r.Environment = c.Run.Environment
	r.Shell = c.Run.Shell
	r.InstallCommand = c.Run.InstallCommand
	r.TestCommand = c.Run.TestCommand
	r.ExtraArgs = extra
	r.Pull = pull
	r.Delete = c.Run.Delete
	r.User = c.Run.User
	r.ContainerName = c.Run.ContainerName
	r.Platform = c.Run.Platform
	r.TTY = c.Run.TTY
	r.Labels = labels
	r.MaxRuntime = c.Run.MaxRuntime
	r.StopTimeout = c.Run.StopTimeout
	return r, nil
}

// PullRetryConfig returns the retry policy for image pulls.
func (c *Config) PullRetryConfig() core.RetryConfig {
	cfg := core.DefaultPullRetryConfig()
	cfg.MaxRetries = c.Run.PullRetries
	return cfg
}

// ResolveSource returns the absolute mount source, defaulting to the
// current directory.
func (c *Config) ResolveSource() (string, error) {
	src := c.Run.Source
	if src == "" {
		src = "."
	}
	abs, err := filepath.Abs(src)
	if err != nil {
		return "", fmt.Errorf("resolving source %q: %w", src, err)
	}
	return abs, nil
}

func (c *Config) logWarnings() {
	for _, w := range c.warnings {
		switch {
		case w.Key == "":
			c.logger.Warningf("Unknown section [%s] in config, ignored", w.Section)
		case w.Suggestion != "":
			c.logger.Warningf("Unknown key %q in [%s] (did you mean %q?)", w.Key, w.Section, w.Suggestion)
		default:
			c.logger.Warningf("Unknown key %q in [%s]", w.Key, w.Section)
		}
	}
}

func parseIni(cfg *ini.File, c *Config) error {
	targets := []struct {
		name   string
		target any
	}{
		{sectionGlobal, &c.Global},
		{sectionRun, &c.Run},
		{sectionDocker, &c.Docker},
	}

	for _, t := range targets {
		sec, err := cfg.GetSection(t.name)
		if err != nil {
			continue
		}

		keys, err := decodeSection(sec, t.target)
		if err != nil {
			return fmt.Errorf("section [%s]: %w", t.name, err)
		}
		if t.name == sectionRun {
			c.setKeys = keys.Set
		}
		c.warnings = append(c.warnings,
			GenerateUnknownKeyWarnings(t.name, keys.Unknown, mapstructureKeys(t.target))...)
	}

	for _, section := range cfg.Sections() {
		name := strings.TrimSpace(section.Name())
		switch name {
		case sectionGlobal, sectionRun, sectionDocker:
		case ini.DefaultSection:
			for _, key := range section.Keys() {
				c.warnings = append(c.warnings, UnknownKeyWarning{Section: "top level", Key: key.Name()})
			}
		default:
			c.warnings = append(c.warnings, UnknownKeyWarning{Section: name})
		}
	}
	return nil
}

// mapstructureKeys lists the keys a struct accepts, following squashed
// embedded structs.
func mapstructureKeys(v any) []string {
	t := reflect.TypeOf(v)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	var keys []string
	for i := range t.NumField() {
		f := t.Field(i)
		name, opts, _ := strings.Cut(f.Tag.Get("mapstructure"), ",")
		if opts == "squash" && f.Type.Kind() == reflect.Struct {
			keys = append(keys, mapstructureKeys(reflect.New(f.Type).Interface())...)
			continue
		}
		if name != "" && name != "-" {
			keys = append(keys, name)
		}
	}
	return keys
}

func parseLabels(labels []string) (map[string]string, error) {
	if len(labels) == 0 {
		return nil, nil
	}
	m := make(map[string]string, len(labels))
	for _, l := range labels {
		k, v, ok := strings.Cut(l, "=")
		if !ok || strings.TrimSpace(k) == "" {
			return nil, fmt.Errorf("%w: %q", ErrInvalidLabel, l)
		}
		m[strings.TrimSpace(k)] = v
	}
	return m, nil
}

func redactEnvironment(env []string) []string {
	if len(env) == 0 {
		return nil
	}
	out := make([]string, len(env))
	for i, kv := range env {
		k, v, ok := strings.Cut(kv, "=")
		if ok && k == core.DatabaseURLEnv {
			v = core.RedactDatabaseURL(v)
			kv = k + "=" + v
		}
		out[i] = kv
	}
	return out
}
