// Package auth turns VCS auth configuration into go-git transport auth methods.
package auth

import (
	"fmt"

	"github.com/go-git/go-git/v5/plumbing/transport"

	"git.home.luguber.info/inful/cordovabuild/internal/config"
	"git.home.luguber.info/inful/cordovabuild/internal/foundation/errors"
)

// Provider creates authentication for one auth type.
type Provider interface {
	Type() config.AuthType
	// CreateAuth returns nil, nil when no authentication is needed.
	CreateAuth(cfg *config.AuthConfig) (transport.AuthMethod, error)
	Validate(cfg *config.AuthConfig) error
}

// Registry maps auth types to providers.
type Registry struct {
	providers map[config.AuthType]Provider
}

// NewRegistry returns a registry with the standard providers.
func NewRegistry() *Registry {
	r := &Registry{providers: map[config.AuthType]Provider{}}
	r.Register(noneProvider{})
	r.Register(sshProvider{})
	r.Register(tokenProvider{})
	r.Register(basicProvider{})
	return r
}

// Register adds or replaces a provider.
func (r *Registry) Register(p Provider) {
	r.providers[p.Type()] = p
}

// CreateAuth validates cfg and builds the auth method. A nil config means no auth.
func (r *Registry) CreateAuth(cfg *config.AuthConfig) (transport.AuthMethod, error) {
	if cfg.IsZero() {
		return nil, nil
	}
	p, ok := r.providers[cfg.Type]
	if !ok {
		return nil, errors.ConfigError(fmt.Sprintf("unsupported authentication type: %s", cfg.Type)).Build()
	}
	if err := p.Validate(cfg); err != nil {
		return nil, errors.ConfigError("invalid authentication configuration").
			WithCause(err).
			WithContext("type", string(cfg.Type)).
			Build()
	}
	method, err := p.CreateAuth(cfg)
	if err != nil {
		return nil, errors.ConfigError("failed to create authentication").
			WithCause(err).
			WithContext("type", string(cfg.Type)).
			Build()
	}
	return method, nil
}

var defaultRegistry = NewRegistry()

// CreateAuth uses the default registry.
func CreateAuth(cfg *config.AuthConfig) (transport.AuthMethod, error) {
	return defaultRegistry.CreateAuth(cfg)
}
