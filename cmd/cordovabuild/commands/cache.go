package commands

import (
	"fmt"
	"log/slog"

	"git.home.luguber.info/inful/cordovabuild/internal/loader"
	"git.home.luguber.info/inful/cordovabuild/internal/logfields"
)

// CacheCmd groups the plugin cache subcommands.
type CacheCmd struct {
	List  CacheListCmd  `cmd:"" help:"List cached plugin buckets"`
	Clear CacheClearCmd `cmd:"" help:"Remove cached buckets of a locator, or all of them"`
}

// CacheListCmd implements 'cache list'.
type CacheListCmd struct {
	Path string `short:"p" name:"path" help:"Override build.path"`
}

func (c *CacheListCmd) Run(g *Global, root *CLI) error {
	cfg, err := loadConfig(root, PipelineFlags{Path: c.Path})
	if err != nil {
		return err
	}
	entries, err := loader.NewCache(cfg.Build.Path).List()
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(g.out(), RenderCacheEntries(entries))
	return err
}

// CacheClearCmd implements 'cache clear [locator]'.
type CacheClearCmd struct {
	Path    string `short:"p" name:"path" help:"Override build.path"`
	Locator string `arg:"" optional:"" help:"Plugin locator; all buckets when omitted"`
}

func (c *CacheClearCmd) Run(g *Global, root *CLI) error {
	cfg, err := loadConfig(root, PipelineFlags{Path: c.Path})
	if err != nil {
		return err
	}
	l, err := loader.New(loader.Options{
		BuildPath: cfg.Build.Path,
		Registry:  cfg.Registry,
		VCS:       cfg.VCS,
		QueueSize: cfg.Loader.QueueSize,
	})
	if err != nil {
		return err
	}
	defer func() { _ = l.Close() }()

	if err := l.Unload(g.context(), c.Locator); err != nil {
		return err
	}
	if c.Locator == "" {
		slog.Info("Plugin cache cleared", logfields.Path(l.Cache().Root()))
		_, err = fmt.Fprintln(g.out(), "cache cleared")
		return err
	}
	slog.Info("Plugin cache entry removed", logfields.Locator(c.Locator), slog.String("hash", loader.Hash(c.Locator)))
	_, err = fmt.Fprintf(g.out(), "removed %s\n", c.Locator)
	return err
}
