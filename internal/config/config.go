package config

import (
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/cordovabuild/internal/foundation/errors"
)

// DefaultConfigFile is the configuration file looked up when -c is not given.
const DefaultConfigFile = "cordovabuild.yaml"

// Config is the top-level tool configuration.
type Config struct {
	Build BuildConfig `yaml:"build"`
	// Manifest is an inline manifest tree; mutually exclusive with ManifestFile.
	Manifest     map[string]any          `yaml:"manifest,omitempty"`
	ManifestFile string                  `yaml:"manifest_file,omitempty"`
	Hooks        map[string]HookCommands `yaml:"hooks,omitempty"`
	Registry     RegistryConfig          `yaml:"registry"`
	VCS          VCSConfig               `yaml:"vcs"`
	Loader       LoaderConfig            `yaml:"loader"`
	Logging      LoggingConfig           `yaml:"logging"`
	Metrics      MetricsConfig           `yaml:"metrics"`
}

// BuildConfig controls the build directory and the external CLI.
type BuildConfig struct {
	Path        string `yaml:"path"`
	Clean       bool   `yaml:"clean"`
	CLI         string `yaml:"cli"`
	Platform    string `yaml:"platform,omitempty"` // restricts prepare/compile/run to one platform
	PackageFile string `yaml:"package_file"`
}

// RegistryConfig configures plugin registry lookups.
type RegistryConfig struct {
	URL               string `yaml:"url"`
	Timeout           string `yaml:"timeout"`
	MaxRetries        int    `yaml:"max_retries"`
	RetryBackoff      string `yaml:"retry_backoff"`
	RetryInitialDelay string `yaml:"retry_initial_delay"`
	RetryMaxDelay     string `yaml:"retry_max_delay"`
}

// VCSConfig configures clones of VCS plugin sources.
type VCSConfig struct {
	Auth         *AuthConfig `yaml:"auth,omitempty"`
	ShallowDepth int         `yaml:"shallow_depth,omitempty"`
}

// LoaderConfig configures the plugin loader queue.
type LoaderConfig struct {
	QueueSize int `yaml:"queue_size"`
}

// LoggingConfig configures log output.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig configures metrics export.
type MetricsConfig struct {
	// Textfile, when set, receives a Prometheus text exposition after each run.
	Textfile string `yaml:"textfile,omitempty"`
}

// Load reads, expands and validates the configuration at configPath.
func Load(configPath string) (*Config, error) {
	loadEnvFiles()

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, errors.ConfigError("failed to read config file").
			WithCause(err).
			WithContext("path", configPath).
			Build()
	}

	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, errors.ConfigError("failed to parse config file").
			WithCause(err).
			WithContext("path", configPath).
			Build()
	}

	if err := finalize(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadOrDefault loads configPath when it exists and otherwise returns the defaults.
func LoadOrDefault(configPath string) (*Config, error) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		slog.Debug("No configuration file, using defaults", slog.String("path", configPath))
		loadEnvFiles()
		cfg := &Config{}
		if err := finalize(cfg); err != nil {
			return nil, err
		}
		return cfg, nil
	}
	return Load(configPath)
}

func finalize(cfg *Config) error {
	if err := ApplyDefaults(cfg); err != nil {
		return err
	}
	applyEnvOverrides(cfg)
	return Validate(cfg)
}

// Init creates a new configuration file with example content
func Init(configPath string, force bool) error {
	if _, err := os.Stat(configPath); err == nil && !force {
		return errors.ConfigError(fmt.Sprintf("configuration file already exists: %s (use --force to overwrite)", configPath)).Build()
	}

	example := Config{
		Build: BuildConfig{
			Path:        "cordova",
			Clean:       false,
			CLI:         "cordova",
			PackageFile: "package.json",
		},
		Manifest: map[string]any{
			"id":      "com.example.app",
			"name":    "Example",
			"version": "0.1.0",
			"content": map[string]any{"src": "index.html"},
			"access":  map[string]any{"origin": "*"},
			"preferences": map[string]any{
				"Fullscreen": "true",
			},
			"platforms": []any{"android", "ios"},
			"plugins": map[string]any{
				"cordova-plugin-device": "2.1.0",
			},
		},
		Hooks: map[string]HookCommands{
			"before_build": {"npm run build"},
		},
		Registry: RegistryConfig{
			URL:               DefaultRegistryURL,
			Timeout:           "30s",
			MaxRetries:        2,
			RetryBackoff:      string(RetryBackoffLinear),
			RetryInitialDelay: "1s",
			RetryMaxDelay:     "30s",
		},
		Loader:  LoaderConfig{QueueSize: DefaultQueueSize},
		Logging: LoggingConfig{Level: string(LogLevelInfo), Format: string(LogFormatText)},
	}

	data, err := yaml.Marshal(&example)
	if err != nil {
		return errors.InternalError("failed to marshal config").WithCause(err).Build()
	}

	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		return errors.FileSystemError("failed to write config file").
			WithCause(err).
			WithContext("path", configPath).
			Build()
	}

	return nil
}
