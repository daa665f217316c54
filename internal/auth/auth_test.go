package auth

import (
	"path/filepath"
	"testing"

	"github.com/go-git/go-git/v5/plumbing/transport/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/cordovabuild/internal/config"
	"git.home.luguber.info/inful/cordovabuild/internal/foundation/errors"
)

func TestCreateAuth(t *testing.T) {
	tests := []struct {
		name      string
		cfg       *config.AuthConfig
		expectNil bool
		expectErr bool
	}{
		{"nil config", nil, true, false},
		{"none auth", &config.AuthConfig{Type: config.AuthTypeNone}, true, false},
		{"token valid", &config.AuthConfig{Type: config.AuthTypeToken, Token: "t0k"}, false, false},
		{"token missing", &config.AuthConfig{Type: config.AuthTypeToken}, true, true},
		{"basic valid", &config.AuthConfig{Type: config.AuthTypeBasic, Username: "u", Password: "p"}, false, false},
		{"basic missing username", &config.AuthConfig{Type: config.AuthTypeBasic, Password: "p"}, true, true},
		{"ssh missing key", &config.AuthConfig{Type: config.AuthTypeSSH, KeyPath: filepath.Join(t.TempDir(), "id_none")}, true, true},
		{"unsupported", &config.AuthConfig{Type: "kerberos"}, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			method, err := CreateAuth(tt.cfg)
			if tt.expectErr {
				require.Error(t, err)
				assert.True(t, errors.HasCategory(err, errors.CategoryConfig))
			} else {
				require.NoError(t, err)
			}
			if tt.expectNil {
				assert.Nil(t, method)
			} else {
				assert.NotNil(t, method)
			}
		})
	}
}

func TestTokenAuthUsesTokenUsername(t *testing.T) {
	method, err := CreateAuth(&config.AuthConfig{Type: config.AuthTypeToken, Token: "abc"})
	require.NoError(t, err)
	basic, ok := method.(*http.BasicAuth)
	require.True(t, ok)
	assert.Equal(t, "token", basic.Username)
	assert.Equal(t, "abc", basic.Password)
}
