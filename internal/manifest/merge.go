package manifest

import (
	"dario.cat/mergo"

	"git.home.luguber.info/inful/cordovabuild/internal/foundation/errors"
)

// Merge deep-merges src over dst. Non-empty scalars in src replace dst values,
// mappings are merged key by key and non-empty sequences replace dst sequences.
func Merge(dst *Manifest, src *Manifest) error {
	if src == nil {
		return nil
	}
	if err := mergo.Merge(dst, *src, mergo.WithOverride); err != nil {
		return errors.InternalError("failed to merge manifest").WithCause(err).Build()
	}
	return nil
}
