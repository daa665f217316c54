package config

const (
	DefaultBuildPath   = "cordova"
	DefaultCLI         = "cordova"
	DefaultPackageFile = "package.json"
	DefaultRegistryURL = "http://registry.cordova.io/"
	DefaultQueueSize   = 16
)

// DefaultApplier applies defaults for one configuration domain.
type DefaultApplier interface {
	ApplyDefaults(cfg *Config) error
	Domain() string
}

// ApplyDefaults runs every domain applier against cfg in order.
func ApplyDefaults(cfg *Config) error {
	appliers := []DefaultApplier{
		&BuildDefaultApplier{},
		&RegistryDefaultApplier{},
		&LoaderDefaultApplier{},
		&LoggingDefaultApplier{},
	}
	for _, a := range appliers {
		if err := a.ApplyDefaults(cfg); err != nil {
			return err
		}
	}
	return nil
}

// BuildDefaultApplier handles build configuration defaults.
type BuildDefaultApplier struct{}

func (b *BuildDefaultApplier) Domain() string { return "build" }

func (b *BuildDefaultApplier) ApplyDefaults(cfg *Config) error {
	if cfg.Build.Path == "" {
		cfg.Build.Path = DefaultBuildPath
	}
	if cfg.Build.CLI == "" {
		cfg.Build.CLI = DefaultCLI
	}
	if cfg.Build.PackageFile == "" {
		cfg.Build.PackageFile = DefaultPackageFile
	}
	return nil
}

// RegistryDefaultApplier handles registry and retry defaults.
type RegistryDefaultApplier struct{}

func (r *RegistryDefaultApplier) Domain() string { return "registry" }

func (r *RegistryDefaultApplier) ApplyDefaults(cfg *Config) error {
	if cfg.Registry.URL == "" {
		cfg.Registry.URL = DefaultRegistryURL
	}
	if cfg.Registry.Timeout == "" {
		cfg.Registry.Timeout = "30s"
	}

	if cfg.Registry.MaxRetries < 0 {
		cfg.Registry.MaxRetries = 0
	}
	if cfg.Registry.MaxRetries == 0 { // default 2 retries (3 total attempts) unless explicitly set >0
		cfg.Registry.MaxRetries = 2
	}

	mode := NormalizeRetryBackoff(cfg.Registry.RetryBackoff)
	if mode == "" {
		mode = RetryBackoffLinear
	}
	cfg.Registry.RetryBackoff = string(mode)

	if cfg.Registry.RetryInitialDelay == "" {
		cfg.Registry.RetryInitialDelay = "1s"
	}
	if cfg.Registry.RetryMaxDelay == "" {
		cfg.Registry.RetryMaxDelay = "30s"
	}
	return nil
}

// LoaderDefaultApplier handles loader queue defaults.
type LoaderDefaultApplier struct{}

func (l *LoaderDefaultApplier) Domain() string { return "loader" }

func (l *LoaderDefaultApplier) ApplyDefaults(cfg *Config) error {
	if cfg.Loader.QueueSize <= 0 {
		cfg.Loader.QueueSize = DefaultQueueSize
	}
	return nil
}

// LoggingDefaultApplier handles logging defaults.
type LoggingDefaultApplier struct{}

func (l *LoggingDefaultApplier) Domain() string { return "logging" }

func (l *LoggingDefaultApplier) ApplyDefaults(cfg *Config) error {
	cfg.Logging.Level = string(NormalizeLogLevel(cfg.Logging.Level))
	cfg.Logging.Format = string(NormalizeLogFormat(cfg.Logging.Format))
	return nil
}
