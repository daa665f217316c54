package manifest

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"git.home.luguber.info/inful/cordovabuild/internal/foundation/errors"
)

// Source identifies where manifest content comes from. At most one of Inline
// and File is set; an empty Source contributes nothing.
type Source struct {
	Inline map[string]any
	File   string
}

// IsZero reports whether the source is empty.
func (s Source) IsZero() bool { return len(s.Inline) == 0 && s.File == "" }

// Load reads the partial manifest described by src.
func Load(src Source) (*Manifest, error) {
	switch {
	case src.File != "":
		return ReadFile(src.File)
	case len(src.Inline) > 0:
		return FromTree(src.Inline)
	default:
		return &Manifest{}, nil
	}
}

// FromTree converts a generic configuration tree into a Manifest.
func FromTree(tree map[string]any) (*Manifest, error) {
	data, err := json.Marshal(tree)
	if err != nil {
		return nil, errors.ConfigError("manifest tree is not serializable").WithCause(err).Build()
	}
	return decodeJSON(data, "inline")
}

// ReadFile reads a JSON manifest or, for .xml files, an existing config.xml.
func ReadFile(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.FileSystemError("failed to read manifest source").
			WithCause(err).
			WithContext("path", path).
			Build()
	}
	if strings.EqualFold(filepath.Ext(path), ".xml") {
		return Deserialize(data)
	}
	return decodeJSON(data, path)
}

func decodeJSON(data []byte, origin string) (*Manifest, error) {
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, errors.ConfigError("invalid manifest source").
			WithCause(err).
			WithContext("path", origin).
			Build()
	}
	return &m, nil
}

// Assemble merges src over the package defaults and validates the result.
func Assemble(pkg PackageInfo, src *Manifest) (*Manifest, error) {
	m := Defaults(pkg)
	if err := Merge(&m, src); err != nil {
		return nil, err
	}
	if err := Validate(&m); err != nil {
		return nil, err
	}
	return &m, nil
}
