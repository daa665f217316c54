package commands

import "git.home.luguber.info/inful/cordovabuild/internal/pipeline/stages"

// ConfigureCmd implements the 'configure' command.
type ConfigureCmd struct {
	PipelineFlags `embed:""`
}

func (c *ConfigureCmd) Run(g *Global, root *CLI) error {
	return runMode(g, root, stages.ModeConfigure, c.PipelineFlags)
}
