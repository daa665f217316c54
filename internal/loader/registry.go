package loader

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"git.home.luguber.info/inful/cordovabuild/internal/config"
	"git.home.luguber.info/inful/cordovabuild/internal/foundation/errors"
	"git.home.luguber.info/inful/cordovabuild/internal/logfields"
	"git.home.luguber.info/inful/cordovabuild/internal/metrics"
	"git.home.luguber.info/inful/cordovabuild/internal/retry"
)

// registryDocument is the subset of registry package metadata the loader reads.
type registryDocument struct {
	Error    string            `json:"error"`
	DistTags map[string]string `json:"dist-tags"`
	Versions map[string]struct {
		Dist struct {
			Tarball string `json:"tarball"`
		} `json:"dist"`
	} `json:"versions"`
}

type registryClient struct {
	base     string
	client   *http.Client
	policy   retry.Policy
	recorder metrics.Recorder
}

func newRegistryClient(cfg config.RegistryConfig, client *http.Client, recorder metrics.Recorder) *registryClient {
	if client == nil {
		timeout, err := time.ParseDuration(cfg.Timeout)
		if err != nil || timeout <= 0 {
			timeout = 30 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	base := cfg.URL
	if base == "" {
		base = config.DefaultRegistryURL
	}
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	return &registryClient{
		base:     base,
		client:   client,
		policy:   retry.FromRegistryConfig(cfg),
		recorder: recorder,
	}
}

// packageURL is the metadata endpoint for name. Scoped names keep their @ and
// have the slash escaped.
func (r *registryClient) packageURL(name string) string {
	return r.base + url.PathEscape(name)
}

// lookup resolves version (or dist-tags.latest when empty) to a tarball URL.
func (r *registryClient) lookup(ctx context.Context, name, version string) (string, string, error) {
	endpoint := r.packageURL(name)
	var doc registryDocument
	err := r.withRetry(ctx, "registry lookup", func() error {
		body, err := r.get(ctx, endpoint)
		if err != nil {
			return err
		}
		defer func() { _ = body.Close() }()
		doc = registryDocument{}
		if err := json.NewDecoder(body).Decode(&doc); err != nil {
			return errors.FetchError("registry returned invalid metadata").
				WithCause(err).
				WithContext("url", endpoint).
				Build()
		}
		return nil
	})
	if err != nil {
		return "", "", err
	}
	if doc.Error != "" {
		return "", "", errors.FetchError(fmt.Sprintf("registry error: %s", doc.Error)).
			WithContext("url", endpoint).
			Build()
	}

	resolved := version
	if resolved == "" {
		resolved = doc.DistTags["latest"]
		if resolved == "" {
			return "", "", errors.FetchError("registry metadata has no latest version").
				WithContext("url", endpoint).
				Build()
		}
	}
	entry, ok := doc.Versions[resolved]
	if !ok || entry.Dist.Tarball == "" {
		return "", "", errors.FetchError("registry has no distribution artifact for version").
			WithContext("url", endpoint).
			WithContext("version", resolved).
			Build()
	}
	return resolved, entry.Dist.Tarball, nil
}

// download fetches tarball and extracts it into dest, returning the package root.
func (r *registryClient) download(ctx context.Context, tarball, dest string) (string, error) {
	var root string
	err := r.withRetry(ctx, "registry download", func() error {
		body, err := r.get(ctx, tarball)
		if err != nil {
			return err
		}
		defer func() { _ = body.Close() }()
		root, err = extractTarGz(body, dest)
		if err != nil {
			return errors.FetchError("failed to extract plugin archive").
				WithCause(err).
				WithContext("url", tarball).
				Build()
		}
		return nil
	})
	return root, err
}

func (r *registryClient) withRetry(ctx context.Context, op string, fn func() error) error {
	attempt := 0
	return r.policy.Do(ctx, op, isTransient, func() error {
		if attempt > 0 {
			r.recorder.IncRegistryRetry()
		}
		attempt++
		return fn()
	})
}

// get issues a GET and returns the body of a 2xx response. Network errors and
// 5xx responses are classified as transient network errors, everything else is
// a permanent fetch failure.
func (r *registryClient) get(ctx context.Context, endpoint string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return nil, errors.FetchError("invalid registry URL").
			WithCause(err).
			WithContext("url", endpoint).
			Build()
	}
	req.Header.Set("Accept", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, errors.NetworkError("registry unreachable").
			WithCause(err).
			WithContext("url", endpoint).
			Retryable().
			Build()
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp.Body, nil
	}
	_ = resp.Body.Close()

	slog.Debug("Registry request failed", logfields.URL(endpoint), logfields.Status(resp.StatusCode))
	if resp.StatusCode >= 500 {
		return nil, errors.NetworkError(fmt.Sprintf("registry returned %d", resp.StatusCode)).
			WithContext("url", endpoint).
			WithContext("status", resp.StatusCode).
			Retryable().
			Build()
	}
	return nil, errors.FetchError(fmt.Sprintf("registry returned %d", resp.StatusCode)).
		WithContext("url", endpoint).
		WithContext("status", resp.StatusCode).
		Build()
}

func isTransient(err error) bool {
	return errors.HasCategory(err, errors.CategoryNetwork)
}
