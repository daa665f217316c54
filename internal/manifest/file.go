package manifest

import (
	"os"
	"path/filepath"

	"git.home.luguber.info/inful/cordovabuild/internal/foundation/errors"
)

// FileName is the manifest file name inside the build directory.
const FileName = "config.xml"

// Path returns the manifest location for a build directory.
func Path(buildPath string) string {
	return filepath.Join(buildPath, FileName)
}

// WriteFile serializes m to <buildPath>/config.xml.
func WriteFile(buildPath string, m *Manifest) error {
	data, err := Serialize(m)
	if err != nil {
		return err
	}
	path := Path(buildPath)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.FileSystemError("failed to write manifest").
			WithCause(err).
			WithContext("path", path).
			Build()
	}
	return nil
}

// ReadBuildFile deserializes <buildPath>/config.xml.
func ReadBuildFile(buildPath string) (*Manifest, error) {
	path := Path(buildPath)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.FileSystemError("failed to read manifest").
			WithCause(err).
			WithContext("path", path).
			Build()
	}
	return Deserialize(data)
}
