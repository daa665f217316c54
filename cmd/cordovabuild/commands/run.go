package commands

import "git.home.luguber.info/inful/cordovabuild/internal/pipeline/stages"

// RunCmd implements the 'run' command.
type RunCmd struct {
	Path     string `short:"p" name:"path" help:"Override build.path"`
	Platform string `name:"platform" help:"Run on one platform only"`
}

func (r *RunCmd) Run(g *Global, root *CLI) error {
	return runMode(g, root, stages.ModeRun, PipelineFlags{Path: r.Path, Platform: r.Platform})
}
