package commands

import "git.home.luguber.info/inful/cordovabuild/internal/pipeline/stages"

// CleanCmd implements the 'clean' command. Cleaning is always on.
type CleanCmd struct {
	Path     string `short:"p" name:"path" help:"Override build.path"`
	Manifest string `short:"m" name:"manifest" help:"Manifest source file (JSON or XML)"`
}

func (c *CleanCmd) Run(g *Global, root *CLI) error {
	return runMode(g, root, stages.ModeClean, PipelineFlags{Path: c.Path, Manifest: c.Manifest, Clean: true})
}
