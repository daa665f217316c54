package manifest

import (
	"strings"

	"git.home.luguber.info/inful/cordovabuild/internal/foundation/errors"
)

// Validate reports a validation error when id, name or version is empty.
// Optional fields never fail validation.
func Validate(m *Manifest) error {
	var missing []string
	if strings.TrimSpace(m.ID) == "" {
		missing = append(missing, "id")
	}
	if strings.TrimSpace(m.Name) == "" {
		missing = append(missing, "name")
	}
	if strings.TrimSpace(m.Version) == "" {
		missing = append(missing, "version")
	}
	if len(missing) == 0 {
		return nil
	}
	return errors.ValidationError("manifest is missing required fields: "+strings.Join(missing, ", ")).
		WithContext("fields", missing).
		Build()
}
