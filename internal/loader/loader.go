package loader

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"sync"
	"time"

	"git.home.luguber.info/inful/cordovabuild/internal/config"
	"git.home.luguber.info/inful/cordovabuild/internal/foundation/errors"
	"git.home.luguber.info/inful/cordovabuild/internal/logfields"
	"git.home.luguber.info/inful/cordovabuild/internal/metrics"
)

// ErrClosed is returned for requests made after Close.
var ErrClosed = errors.InternalError("plugin loader is closed").Build()

// Options configures a Loader.
type Options struct {
	BuildPath string
	Registry  config.RegistryConfig
	VCS       config.VCSConfig
	// QueueSize bounds the number of requests buffered ahead of the worker.
	QueueSize int
	// OnError fires for every failed Load request. The queue continues.
	OnError func(locator, version string, err error)
	// OnDrained fires each time the queue empties, after the scratch
	// directory has been wiped.
	OnDrained  func()
	Recorder   metrics.Recorder
	HTTPClient *http.Client
}

// Result is a resolved plugin.
type Result struct {
	ID      string
	Version string
	// Path is the cache bucket relative to the build path.
	Path    string
	Locator string
	Cached  bool
}

type request struct {
	ctx  context.Context
	run  func(ctx context.Context) (Result, error)
	done func(Result, error)
}

// Loader resolves plugin locators to cache buckets. Requests are processed
// one at a time, in submission order, by a single worker.
type Loader struct {
	opts     Options
	cache    *Cache
	registry *registryClient
	recorder metrics.Recorder
	queue    chan request

	mu         sync.Mutex
	inflight   int
	closed     bool
	idle       chan struct{}
	idleClosed bool
	stopped    chan struct{}
}

// New wipes the scratch directory and starts the worker.
func New(opts Options) (*Loader, error) {
	if opts.BuildPath == "" {
		return nil, errors.ConfigError("plugin loader requires a build path").Build()
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = config.DefaultQueueSize
	}
	recorder := opts.Recorder
	if recorder == nil {
		recorder = metrics.NoopRecorder{}
	}

	cache := NewCache(opts.BuildPath)
	if err := cache.Scratch().Wipe(); err != nil {
		return nil, errors.FileSystemError("failed to wipe plugin scratch directory").
			WithCause(err).
			WithContext("path", cache.Scratch().Path()).
			Build()
	}

	idle := make(chan struct{})
	close(idle)
	l := &Loader{
		opts:       opts,
		cache:      cache,
		registry:   newRegistryClient(opts.Registry, opts.HTTPClient, recorder),
		recorder:   recorder,
		queue:      make(chan request, opts.QueueSize),
		idle:       idle,
		idleClosed: true,
		stopped:    make(chan struct{}),
	}
	go l.work()
	return l, nil
}

// Cache exposes the loader's cache.
func (l *Loader) Cache() *Cache { return l.cache }

// Load queues a resolution. fn receives the result on success; failures go
// to Options.OnError.
func (l *Loader) Load(ctx context.Context, locator, version string, fn func(Result)) error {
	return l.enqueue(request{
		ctx: ctx,
		run: func(ctx context.Context) (Result, error) { return l.resolve(ctx, locator, version) },
		done: func(res Result, err error) {
			if err != nil {
				if l.opts.OnError != nil {
					l.opts.OnError(locator, version, err)
				}
				return
			}
			if fn != nil {
				fn(res)
			}
		},
	})
}

// Resolve queues a resolution and waits for its result.
func (l *Loader) Resolve(ctx context.Context, locator, version string) (Result, error) {
	type outcome struct {
		res Result
		err error
	}
	ch := make(chan outcome, 1)
	err := l.enqueue(request{
		ctx:  ctx,
		run:  func(ctx context.Context) (Result, error) { return l.resolve(ctx, locator, version) },
		done: func(res Result, err error) { ch <- outcome{res, err} },
	})
	if err != nil {
		return Result{}, err
	}
	out := <-ch
	return out.res, out.err
}

// Unload removes every cached bucket of locator, or the whole cache when
// locator is empty. It is serialized with fetches.
func (l *Loader) Unload(ctx context.Context, locator string) error {
	ch := make(chan error, 1)
	err := l.enqueue(request{
		ctx: ctx,
		run: func(context.Context) (Result, error) {
			if locator == "" {
				return Result{}, l.cache.Clear()
			}
			return Result{}, l.cache.Remove(Hash(locator))
		},
		done: func(_ Result, err error) { ch <- err },
	})
	if err != nil {
		return err
	}
	return <-ch
}

// Wait blocks until the queue is drained or ctx is done.
func (l *Loader) Wait(ctx context.Context) error {
	l.mu.Lock()
	idle := l.idle
	l.mu.Unlock()
	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close rejects new requests, waits for queued ones and stops the worker.
func (l *Loader) Close() error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		<-l.stopped
		return nil
	}
	l.closed = true
	idle := l.idle
	l.mu.Unlock()

	<-idle
	close(l.queue)
	<-l.stopped
	return nil
}

func (l *Loader) enqueue(req request) error {
	if req.ctx == nil {
		req.ctx = context.Background()
	}
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return ErrClosed
	}
	if l.inflight == 0 && l.idleClosed {
		l.idle = make(chan struct{})
		l.idleClosed = false
	}
	l.inflight++
	l.mu.Unlock()

	l.queue <- req
	return nil
}

func (l *Loader) work() {
	defer close(l.stopped)
	for req := range l.queue {
		var (
			res Result
			err error
		)
		if ctxErr := req.ctx.Err(); ctxErr != nil {
			err = ctxErr
		} else {
			res, err = req.run(req.ctx)
		}
		req.done(res, err)
		l.finish()
	}
}

func (l *Loader) finish() {
	l.mu.Lock()
	l.inflight--
	remaining := l.inflight
	l.mu.Unlock()
	if remaining > 0 {
		return
	}

	if err := l.cache.Scratch().Wipe(); err != nil {
		slog.Warn("Failed to wipe plugin scratch directory", logfields.Path(l.cache.Scratch().Path()), logfields.Error(err))
	}
	if l.opts.OnDrained != nil {
		l.opts.OnDrained()
	}

	l.mu.Lock()
	if l.inflight == 0 && !l.idleClosed {
		close(l.idle)
		l.idleClosed = true
	}
	l.mu.Unlock()
}

func (l *Loader) resolve(ctx context.Context, locator, version string) (Result, error) {
	start := time.Now()
	kind := Classify(locator)
	res, err := l.resolveKind(ctx, kind, locator, version)

	outcome := metrics.ResolveFetched
	switch {
	case err != nil:
		outcome = metrics.ResolveFailed
		slog.Error("Plugin resolution failed",
			logfields.Locator(locator),
			logfields.Version(version),
			slog.String("source", string(kind)),
			logfields.Error(err))
	case res.Cached:
		outcome = metrics.ResolveCacheHit
	}
	l.recorder.ObservePluginResolve(string(kind), outcome, time.Since(start))
	return res, err
}

func (l *Loader) resolveKind(ctx context.Context, kind SourceKind, locator, version string) (Result, error) {
	if kind == SourceUnsupported {
		return Result{}, errors.UnsupportedSourceError(fmt.Sprintf("unsupported plugin source: %s", locator)).
			WithContext("locator", locator).
			Build()
	}

	hash := Hash(locator)
	if entry, ok := l.cache.Lookup(hash, version); ok {
		return l.result(locator, entry.ID, entry.Version, entry.Path, true), nil
	}

	scratch, err := l.cache.Scratch().CreateSubdir(hash)
	if err != nil {
		return Result{}, errors.FileSystemError("failed to create scratch directory").WithCause(err).Build()
	}

	var pkgDir, label string
	switch kind {
	case SourceVCS:
		pkgDir = filepath.Join(scratch, "clone")
		label, err = cloneVCS(ctx, locator, version, pkgDir, l.opts.VCS)
	case SourceRegistry:
		pkgDir, label, err = l.fetchRegistry(ctx, hash, locator, version, scratch)
		if err == nil && pkgDir == "" {
			// Latest version already cached.
			entry, _ := l.cache.Lookup(hash, label)
			return l.result(locator, entry.ID, entry.Version, entry.Path, true), nil
		}
	}
	if err != nil {
		if errors.HasCategory(err, errors.CategoryNetwork) {
			err = errors.FetchError("plugin fetch failed").WithCause(err).WithContext("locator", locator).Build()
		}
		return Result{}, err
	}

	id, err := ReadDescriptor(pkgDir)
	if err != nil {
		return Result{}, err
	}
	path, err := l.cache.Store(pkgDir, hash, id, label)
	if err != nil {
		return Result{}, err
	}
	slog.Info("Plugin fetched", logfields.Plugin(id), logfields.Version(label), logfields.Locator(locator), logfields.Path(path))
	return l.result(locator, id, label, path, false), nil
}

// fetchRegistry resolves and downloads a registry package. An empty package
// directory means the resolved version is already cached.
func (l *Loader) fetchRegistry(ctx context.Context, hash, name, version, scratch string) (string, string, error) {
	resolved, tarball, err := l.registry.lookup(ctx, name, version)
	if err != nil {
		return "", "", err
	}
	if version == "" {
		if _, ok := l.cache.Lookup(hash, resolved); ok {
			return "", resolved, nil
		}
	}
	slog.Debug("Downloading plugin archive", logfields.Plugin(name), logfields.Version(resolved), logfields.URL(tarball))
	root, err := l.registry.download(ctx, tarball, scratch)
	if err != nil {
		return "", "", err
	}
	return root, resolved, nil
}

func (l *Loader) result(locator, id, version, path string, cached bool) Result {
	rel, err := filepath.Rel(l.opts.BuildPath, path)
	if err != nil {
		rel = path
	}
	return Result{ID: id, Version: version, Path: filepath.ToSlash(rel), Locator: locator, Cached: cached}
}
