package config

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// HookCommands is the list of shell commands attached to one hook point.
// In YAML it may be written as a single string or as a sequence of strings.
type HookCommands []string

// UnmarshalYAML accepts a scalar or a sequence.
func (h *HookCommands) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		var s string
		if err := node.Decode(&s); err != nil {
			return err
		}
		if s == "" {
			*h = nil
			return nil
		}
		*h = HookCommands{s}
		return nil
	case yaml.SequenceNode:
		var list []string
		if err := node.Decode(&list); err != nil {
			return err
		}
		*h = list
		return nil
	default:
		return fmt.Errorf("hook must be a string or a list of strings (line %d)", node.Line)
	}
}
