package commands

import "git.home.luguber.info/inful/cordovabuild/internal/pipeline/stages"

// BuildCmd implements the 'build' command.
type BuildCmd struct {
	PipelineFlags `embed:""`
}

func (b *BuildCmd) Run(g *Global, root *CLI) error {
	return runMode(g, root, stages.ModeBuild, b.PipelineFlags)
}
