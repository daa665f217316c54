package auth

import (
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/go-git/go-git/v5/plumbing/transport/http"
	"github.com/go-git/go-git/v5/plumbing/transport/ssh"

	"git.home.luguber.info/inful/cordovabuild/internal/config"
)

type noneProvider struct{}

func (noneProvider) Type() config.AuthType { return config.AuthTypeNone }
func (noneProvider) CreateAuth(*config.AuthConfig) (transport.AuthMethod, error) {
	return nil, nil
}
func (noneProvider) Validate(*config.AuthConfig) error { return nil }

type sshProvider struct{}

func (sshProvider) Type() config.AuthType { return config.AuthTypeSSH }

func (sshProvider) CreateAuth(cfg *config.AuthConfig) (transport.AuthMethod, error) {
	keyPath := sshKeyPath(cfg)
	keys, err := ssh.NewPublicKeysFromFile("git", keyPath, cfg.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to load SSH key from %s: %w", keyPath, err)
	}
	return keys, nil
}

func (sshProvider) Validate(cfg *config.AuthConfig) error {
	keyPath := sshKeyPath(cfg)
	if _, err := os.Stat(keyPath); err != nil {
		return fmt.Errorf("SSH key not accessible at %s: %w", keyPath, err)
	}
	return nil
}

func sshKeyPath(cfg *config.AuthConfig) string {
	if cfg.KeyPath != "" {
		return cfg.KeyPath
	}
	return filepath.Join(os.Getenv("HOME"), ".ssh", "id_rsa")
}

type tokenProvider struct{}

func (tokenProvider) Type() config.AuthType { return config.AuthTypeToken }

func (tokenProvider) CreateAuth(cfg *config.AuthConfig) (transport.AuthMethod, error) {
	// Token auth uses "token" as username for forge compatibility.
	return &http.BasicAuth{Username: "token", Password: cfg.Token}, nil
}

func (tokenProvider) Validate(cfg *config.AuthConfig) error {
	if cfg.Token == "" {
		return stderrors.New("token is required")
	}
	return nil
}

type basicProvider struct{}

func (basicProvider) Type() config.AuthType { return config.AuthTypeBasic }

func (basicProvider) CreateAuth(cfg *config.AuthConfig) (transport.AuthMethod, error) {
	return &http.BasicAuth{Username: cfg.Username, Password: cfg.Password}, nil
}

func (basicProvider) Validate(cfg *config.AuthConfig) error {
	if cfg.Username == "" {
		return stderrors.New("username is required")
	}
	if cfg.Password == "" {
		return stderrors.New("password is required")
	}
	return nil
}
