package commands

import "git.home.luguber.info/inful/cordovabuild/internal/pipeline/stages"

// CreateCmd implements the 'create' command.
type CreateCmd struct {
	Path     string `short:"p" name:"path" help:"Override build.path"`
	Manifest string `short:"m" name:"manifest" help:"Manifest source file (JSON or XML)"`
}

func (c *CreateCmd) Run(g *Global, root *CLI) error {
	return runMode(g, root, stages.ModeCreate, PipelineFlags{Path: c.Path, Manifest: c.Manifest})
}
