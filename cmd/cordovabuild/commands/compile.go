package commands

import "git.home.luguber.info/inful/cordovabuild/internal/pipeline/stages"

// CompileCmd implements the 'compile' command. It reads the manifest back
// from the build directory, so no manifest source is taken.
type CompileCmd struct {
	Path     string `short:"p" name:"path" help:"Override build.path"`
	Platform string `name:"platform" help:"Restrict prepare/compile to one platform"`
}

func (c *CompileCmd) Run(g *Global, root *CLI) error {
	return runMode(g, root, stages.ModeCompile, PipelineFlags{Path: c.Path, Platform: c.Platform})
}
