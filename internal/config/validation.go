package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"git.home.luguber.info/inful/cordovabuild/internal/foundation/errors"
)

// Validate checks a defaulted configuration for inconsistencies.
func Validate(cfg *Config) error {
	if len(cfg.Manifest) > 0 && cfg.ManifestFile != "" {
		return errors.ConfigError("manifest and manifest_file are mutually exclusive").Build()
	}

	u, err := url.Parse(cfg.Registry.URL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return errors.ConfigError("registry.url must be an absolute URL").
			WithCause(err).
			WithContext("url", cfg.Registry.URL).
			Build()
	}

	for field, raw := range map[string]string{
		"registry.timeout":             cfg.Registry.Timeout,
		"registry.retry_initial_delay": cfg.Registry.RetryInitialDelay,
		"registry.retry_max_delay":     cfg.Registry.RetryMaxDelay,
	} {
		if d, err := time.ParseDuration(raw); err != nil || d <= 0 {
			return errors.ConfigError(fmt.Sprintf("%s must be a positive duration", field)).
				WithCause(err).
				WithContext("value", raw).
				Build()
		}
	}

	if auth := cfg.VCS.Auth; !auth.IsZero() {
		if !auth.Type.IsValid() {
			normalized := NormalizeAuthType(string(auth.Type))
			if normalized == "" {
				return errors.ConfigError(fmt.Sprintf("unsupported vcs.auth.type: %s", auth.Type)).Build()
			}
			auth.Type = normalized
		}
		if auth.Type == AuthTypeToken && auth.Token == "" {
			return errors.ConfigError("vcs.auth.token is required for token auth").Build()
		}
	}
	if cfg.VCS.ShallowDepth < 0 {
		return errors.ConfigError("vcs.shallow_depth cannot be negative").Build()
	}

	for point := range cfg.Hooks {
		if !strings.HasPrefix(point, "before_") && !strings.HasPrefix(point, "after_") {
			return errors.ConfigError(fmt.Sprintf("invalid hook point %q: must start with before_ or after_", point)).Build()
		}
	}
	return nil
}
