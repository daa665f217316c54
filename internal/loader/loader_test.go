package loader

import (
	"archive/tar"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	ggitcfg "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/cordovabuild/internal/config"
	"git.home.luguber.info/inful/cordovabuild/internal/foundation/errors"
)

const cameraDescriptor = `<?xml version="1.0"?>
<plugin xmlns="http://apache.org/cordova/ns/plugins/1.0" id="org.apache.cordova.camera" version="0.3.0">
    <name>Camera</name>
</plugin>
`

// tarball builds a registry-style package archive.
func tarball(t *testing.T, root string, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)
	for name, body := range files {
		require.NoError(t, tw.WriteHeader(&tar.Header{
			Name:     root + "/" + name,
			Mode:     0o644,
			Size:     int64(len(body)),
			Typeflag: tar.TypeReg,
		}))
		_, err := tw.Write([]byte(body))
		require.NoError(t, err)
	}
	require.NoError(t, tw.Close())
	require.NoError(t, gz.Close())
	return buf.Bytes()
}

type fakeRegistry struct {
	*httptest.Server
	metadataHits atomic.Int32
	tarballHits  atomic.Int32
	failures     atomic.Int32 // 503 responses still to serve
}

func newFakeRegistry(t *testing.T, name string, archive []byte) *fakeRegistry {
	t.Helper()
	reg := &fakeRegistry{}
	mux := http.NewServeMux()
	mux.HandleFunc("/"+name, func(w http.ResponseWriter, r *http.Request) {
		reg.metadataHits.Add(1)
		if reg.failures.Load() > 0 {
			reg.failures.Add(-1)
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		base := "http://" + r.Host
		doc := map[string]any{
			"dist-tags": map[string]string{"latest": "0.3.0"},
			"versions": map[string]any{
				"0.2.0": map[string]any{"dist": map[string]string{"tarball": base + "/tarballs/0.2.0.tgz"}},
				"0.3.0": map[string]any{"dist": map[string]string{"tarball": base + "/tarballs/0.3.0.tgz"}},
				"0.4.0": map[string]any{"dist": map[string]string{}},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(doc)
	})
	mux.HandleFunc("/tarballs/", func(w http.ResponseWriter, _ *http.Request) {
		reg.tarballHits.Add(1)
		_, _ = w.Write(archive)
	})
	mux.HandleFunc("/missing-plugin", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"not_found"}`))
	})
	mux.HandleFunc("/broken-plugin", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"error":"document is broken"}`))
	})
	reg.Server = httptest.NewServer(mux)
	t.Cleanup(reg.Close)
	return reg
}

func newTestLoader(t *testing.T, registryURL string, mutate ...func(*Options)) (*Loader, string) {
	t.Helper()
	buildPath := filepath.Join(t.TempDir(), "cordova")
	opts := Options{
		BuildPath: buildPath,
		Registry: config.RegistryConfig{
			URL:               registryURL,
			Timeout:           "5s",
			MaxRetries:        2,
			RetryBackoff:      string(config.RetryBackoffFixed),
			RetryInitialDelay: "1ms",
			RetryMaxDelay:     "5ms",
		},
	}
	for _, m := range mutate {
		m(&opts)
	}
	l, err := New(opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = l.Close() })
	return l, buildPath
}

func TestResolveRegistryCachesSecondRequest(t *testing.T) {
	archive := tarball(t, "package", map[string]string{"plugin.xml": cameraDescriptor, "www/camera.js": "//"})
	reg := newFakeRegistry(t, "org.apache.cordova.camera", archive)
	l, _ := newTestLoader(t, reg.URL)
	ctx := context.Background()

	first, err := l.Resolve(ctx, "org.apache.cordova.camera", "0.3.0")
	require.NoError(t, err)
	assert.Equal(t, "org.apache.cordova.camera", first.ID)
	assert.Equal(t, "0.3.0", first.Version)
	assert.False(t, first.Cached)
	assert.Equal(t, "cache/plugins/"+Hash("org.apache.cordova.camera")+"/org.apache.cordova.camera/0.3.0", first.Path)

	second, err := l.Resolve(ctx, "org.apache.cordova.camera", "0.3.0")
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, first.Path, second.Path)

	assert.Equal(t, int32(1), reg.metadataHits.Load())
	assert.Equal(t, int32(1), reg.tarballHits.Load())
}

func TestResolveRegistryLatest(t *testing.T) {
	archive := tarball(t, "package", map[string]string{"plugin.xml": cameraDescriptor})
	reg := newFakeRegistry(t, "org.apache.cordova.camera", archive)
	l, buildPath := newTestLoader(t, reg.URL)

	res, err := l.Resolve(context.Background(), "org.apache.cordova.camera", "")
	require.NoError(t, err)
	assert.Equal(t, "0.3.0", res.Version)
	assert.FileExists(t, filepath.Join(buildPath, filepath.FromSlash(res.Path), "plugin.xml"))

	// latest already cached: metadata is consulted, the archive is not downloaded again
	again, err := l.Resolve(context.Background(), "org.apache.cordova.camera", "")
	require.NoError(t, err)
	assert.True(t, again.Cached)
	assert.Equal(t, int32(1), reg.tarballHits.Load())
}

func TestResolveRegistryRetriesTransientFailures(t *testing.T) {
	archive := tarball(t, "package", map[string]string{"plugin.xml": cameraDescriptor})
	reg := newFakeRegistry(t, "org.apache.cordova.camera", archive)
	reg.failures.Store(2)
	l, _ := newTestLoader(t, reg.URL)

	_, err := l.Resolve(context.Background(), "org.apache.cordova.camera", "0.3.0")
	require.NoError(t, err)
	assert.Equal(t, int32(3), reg.metadataHits.Load())
}

func TestResolveRegistryFailures(t *testing.T) {
	archive := tarball(t, "package", map[string]string{"plugin.xml": cameraDescriptor})
	reg := newFakeRegistry(t, "org.apache.cordova.camera", archive)
	l, _ := newTestLoader(t, reg.URL)
	ctx := context.Background()

	_, err := l.Resolve(ctx, "missing-plugin", "1.0.0")
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryFetch))

	_, err = l.Resolve(ctx, "broken-plugin", "1.0.0")
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryFetch))

	_, err = l.Resolve(ctx, "org.apache.cordova.camera", "0.4.0")
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryFetch))

	_, err = l.Resolve(ctx, "org.apache.cordova.camera", "9.9.9")
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryFetch))
}

func TestResolveRegistryUnreachable(t *testing.T) {
	reg := newFakeRegistry(t, "x", nil)
	url := reg.URL
	reg.Close()
	l, _ := newTestLoader(t, url)

	_, err := l.Resolve(context.Background(), "org.apache.cordova.camera", "0.3.0")
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryFetch))
	assert.True(t, errors.HasCategory(err, errors.CategoryNetwork))
}

func TestResolveInvalidPackage(t *testing.T) {
	archive := tarball(t, "package", map[string]string{"plugin.xml": `<plugin name="no id"/>`})
	reg := newFakeRegistry(t, "org.apache.cordova.camera", archive)
	l, _ := newTestLoader(t, reg.URL)

	_, err := l.Resolve(context.Background(), "org.apache.cordova.camera", "0.3.0")
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryInvalidPackage))

	entries, err := l.Cache().List()
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestResolveUnsupportedSource(t *testing.T) {
	l, _ := newTestLoader(t, "http://127.0.0.1:1/")
	_, err := l.Resolve(context.Background(), "https://example.com/plugin.tgz", "1.0.0")
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryUnsupportedSource))
}

func TestInvalidCacheEntryIsRefetched(t *testing.T) {
	archive := tarball(t, "package", map[string]string{"plugin.xml": cameraDescriptor})
	reg := newFakeRegistry(t, "org.apache.cordova.camera", archive)
	l, buildPath := newTestLoader(t, reg.URL)
	ctx := context.Background()

	res, err := l.Resolve(ctx, "org.apache.cordova.camera", "0.3.0")
	require.NoError(t, err)
	require.NoError(t, os.Remove(filepath.Join(buildPath, filepath.FromSlash(res.Path), DescriptorFile)))

	again, err := l.Resolve(ctx, "org.apache.cordova.camera", "0.3.0")
	require.NoError(t, err)
	assert.False(t, again.Cached)
	assert.Equal(t, int32(2), reg.tarballHits.Load())
}

func TestArchiveEntriesMayNotEscape(t *testing.T) {
	archive := tarball(t, "package/../..", map[string]string{"evil.txt": "x"})
	dest := t.TempDir()
	_, err := extractTarGz(bytes.NewReader(archive), filepath.Join(dest, "scratch"))
	require.Error(t, err)
	assert.NoFileExists(t, filepath.Join(dest, "evil.txt"))
}

func TestArchiveSingleTopLevelDirectory(t *testing.T) {
	archive := tarball(t, "camera-0.3.0", map[string]string{"plugin.xml": cameraDescriptor})
	dest := t.TempDir()
	root, err := extractTarGz(bytes.NewReader(archive), dest)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dest, "camera-0.3.0"), root)
}

// pluginRepo creates a bare repository named camera.git seeded with a plugin
// descriptor on master and a v1 tag.
func pluginRepo(t *testing.T) string {
	t.Helper()
	tmp := t.TempDir()
	bare := filepath.Join(tmp, "camera.git")
	_, err := git.PlainInit(bare, true)
	require.NoError(t, err)

	seedPath := filepath.Join(tmp, "seed")
	seed, err := git.PlainInit(seedPath, false)
	require.NoError(t, err)
	_, err = seed.CreateRemote(&ggitcfg.RemoteConfig{Name: "origin", URLs: []string{bare}})
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(seedPath, DescriptorFile), []byte(cameraDescriptor), 0o600))
	wt, err := seed.Worktree()
	require.NoError(t, err)
	_, err = wt.Add(DescriptorFile)
	require.NoError(t, err)
	head, err := wt.Commit("initial", &git.CommitOptions{Author: &object.Signature{Name: "tester", Email: "t@example.com", When: time.Now()}})
	require.NoError(t, err)
	_, err = seed.CreateTag("v1", head, nil)
	require.NoError(t, err)

	require.NoError(t, seed.Push(&git.PushOptions{
		RemoteName: "origin",
		RefSpecs:   []ggitcfg.RefSpec{"refs/heads/*:refs/heads/*", "refs/tags/*:refs/tags/*"},
	}))
	return bare
}

func TestResolveVCS(t *testing.T) {
	bare := pluginRepo(t)
	l, buildPath := newTestLoader(t, "http://127.0.0.1:1/")
	ctx := context.Background()

	res, err := l.Resolve(ctx, bare, "v1")
	require.NoError(t, err)
	assert.Equal(t, "org.apache.cordova.camera", res.ID)
	assert.Equal(t, "v1", res.Version)
	assert.False(t, res.Cached)

	bucket := filepath.Join(buildPath, filepath.FromSlash(res.Path))
	assert.FileExists(t, filepath.Join(bucket, DescriptorFile))
	assert.NoDirExists(t, filepath.Join(bucket, ".git"))

	// another spelling of the same locator converges on the same bucket
	again, err := l.Resolve(ctx, "file://"+bare+"/", "v1")
	require.NoError(t, err)
	assert.True(t, again.Cached)
	assert.Equal(t, res.Path, again.Path)
}

func TestResolveVCSUnpinnedUsesBranchLabel(t *testing.T) {
	bare := pluginRepo(t)
	l, _ := newTestLoader(t, "http://127.0.0.1:1/")

	res, err := l.Resolve(context.Background(), bare, "")
	require.NoError(t, err)
	assert.Equal(t, DefaultVCSLabel, res.Version)
	assert.True(t, strings.HasSuffix(res.Path, "/org.apache.cordova.camera/master"))
}

func TestResolveVCSUnknownVersion(t *testing.T) {
	bare := pluginRepo(t)
	l, _ := newTestLoader(t, "http://127.0.0.1:1/")

	_, err := l.Resolve(context.Background(), bare, "v9")
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryFetch))
}

func TestLoadQueueContinuesAfterFailureAndWipesScratch(t *testing.T) {
	archive := tarball(t, "package", map[string]string{"plugin.xml": cameraDescriptor})
	reg := newFakeRegistry(t, "org.apache.cordova.camera", archive)

	var (
		mu       sync.Mutex
		failed   []string
		resolved []Result
		drained  atomic.Int32
	)
	l, _ := newTestLoader(t, reg.URL, func(o *Options) {
		o.OnError = func(locator, _ string, _ error) {
			mu.Lock()
			defer mu.Unlock()
			failed = append(failed, locator)
		}
		o.OnDrained = func() { drained.Add(1) }
	})
	ctx := context.Background()
	collect := func(r Result) {
		mu.Lock()
		defer mu.Unlock()
		resolved = append(resolved, r)
	}

	require.NoError(t, l.Load(ctx, "https://example.com/unsupported.zip", "1.0", collect))
	require.NoError(t, l.Load(ctx, "missing-plugin", "1.0", collect))
	require.NoError(t, l.Load(ctx, "org.apache.cordova.camera", "0.3.0", collect))
	require.NoError(t, l.Wait(ctx))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"https://example.com/unsupported.zip", "missing-plugin"}, failed)
	require.Len(t, resolved, 1)
	assert.Equal(t, "org.apache.cordova.camera", resolved[0].ID)
	assert.GreaterOrEqual(t, drained.Load(), int32(1))
	assert.NoDirExists(t, l.Cache().Scratch().Path())
}

func TestNewWipesScratch(t *testing.T) {
	buildPath := filepath.Join(t.TempDir(), "cordova")
	stale := filepath.Join(NewCache(buildPath).Scratch().Path(), "stale")
	require.NoError(t, os.MkdirAll(stale, 0o750))

	l, err := New(Options{BuildPath: buildPath})
	require.NoError(t, err)
	defer func() { _ = l.Close() }()
	assert.NoDirExists(t, stale)
}

func TestUnloadAndClose(t *testing.T) {
	archive := tarball(t, "package", map[string]string{"plugin.xml": cameraDescriptor})
	reg := newFakeRegistry(t, "org.apache.cordova.camera", archive)
	l, _ := newTestLoader(t, reg.URL)
	ctx := context.Background()

	_, err := l.Resolve(ctx, "org.apache.cordova.camera", "0.3.0")
	require.NoError(t, err)
	entries, err := l.Cache().List()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.True(t, entries[0].Valid)

	require.NoError(t, l.Unload(ctx, "org.apache.cordova.camera"))
	entries, err = l.Cache().List()
	require.NoError(t, err)
	assert.Empty(t, entries)

	require.NoError(t, l.Close())
	_, err = l.Resolve(ctx, "org.apache.cordova.camera", "0.3.0")
	require.ErrorIs(t, err, ErrClosed)
}

func TestNewRequiresBuildPath(t *testing.T) {
	_, err := New(Options{})
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryConfig))
}

func TestLazyDefersScratchWipeToFirstResolve(t *testing.T) {
	archive := tarball(t, "package", map[string]string{"plugin.xml": cameraDescriptor})
	reg := newFakeRegistry(t, "org.apache.cordova.camera", archive)
	buildPath := filepath.Join(t.TempDir(), "cordova")
	stale := filepath.Join(NewCache(buildPath).Scratch().Path(), "stale")
	require.NoError(t, os.MkdirAll(stale, 0o750))

	opts := Options{
		BuildPath: buildPath,
		Registry: config.RegistryConfig{
			URL:               reg.URL,
			Timeout:           "5s",
			MaxRetries:        2,
			RetryBackoff:      string(config.RetryBackoffFixed),
			RetryInitialDelay: "1ms",
			RetryMaxDelay:     "5ms",
		},
	}

	unused := NewLazy(opts)
	require.NoError(t, unused.Close())
	assert.False(t, unused.Started())
	assert.DirExists(t, stale)

	z := NewLazy(opts)
	t.Cleanup(func() { _ = z.Close() })
	assert.DirExists(t, stale)
	res, err := z.Resolve(context.Background(), "org.apache.cordova.camera", "0.3.0")
	require.NoError(t, err)
	assert.Equal(t, "org.apache.cordova.camera", res.ID)
	assert.True(t, z.Started())
	assert.NoDirExists(t, stale)

	require.NoError(t, z.Close())
	_, err = z.Resolve(context.Background(), "org.apache.cordova.camera", "0.3.0")
	require.ErrorIs(t, err, ErrClosed)
}

func TestLazyReportsConstructionErrorsOnResolve(t *testing.T) {
	z := NewLazy(Options{})
	_, err := z.Resolve(context.Background(), "org.apache.cordova.camera", "0.3.0")
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryConfig))
	require.NoError(t, z.Close())
}
