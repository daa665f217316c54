package loader

import (
	"encoding/xml"
	"io"
	"os"
	"path/filepath"
	"strings"

	"git.home.luguber.info/inful/cordovabuild/internal/foundation/errors"
)

// DescriptorFile is the package-internal metadata file declaring the plugin id.
const DescriptorFile = "plugin.xml"

// ReadDescriptor returns the plugin id declared by dir/plugin.xml. The root
// element must be <plugin> with a non-empty id attribute.
func ReadDescriptor(dir string) (string, error) {
	path := filepath.Join(dir, DescriptorFile)
	f, err := os.Open(path)
	if err != nil {
		return "", errors.InvalidPackageError("plugin descriptor not readable").
			WithCause(err).
			WithContext("path", path).
			Build()
	}
	defer func() { _ = f.Close() }()

	decoder := xml.NewDecoder(f)
	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", errors.InvalidPackageError("plugin descriptor is not well-formed").
				WithCause(err).
				WithContext("path", path).
				Build()
		}
		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		if start.Name.Local != "plugin" {
			return "", errors.InvalidPackageError("plugin descriptor root is not <plugin>").
				WithContext("path", path).
				WithContext("root", start.Name.Local).
				Build()
		}
		for _, a := range start.Attr {
			if a.Name.Space == "" && a.Name.Local == "id" && strings.TrimSpace(a.Value) != "" {
				return strings.TrimSpace(a.Value), nil
			}
		}
		break
	}
	return "", errors.InvalidPackageError("plugin descriptor declares no id").
		WithContext("path", path).
		Build()
}
