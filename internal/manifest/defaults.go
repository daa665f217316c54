package manifest

import (
	"encoding/json"
	"os"
	"regexp"
	"strings"

	"git.home.luguber.info/inful/cordovabuild/internal/foundation/errors"
)

// Default values for optional fields not derived from package metadata.
const (
	DefaultContentSrc   = "index.html"
	DefaultAccessOrigin = "*"
)

// PackageInfo is the subset of package.json used for defaults.
type PackageInfo struct {
	Name        string
	Version     string
	Description string
	Author      Author
}

type packageJSON struct {
	Name        string          `json:"name"`
	Version     string          `json:"version"`
	Description string          `json:"description"`
	Author      json.RawMessage `json:"author"`
}

// "Name <email> (url)" with the bracketed parts optional.
var authorPattern = regexp.MustCompile(`^\s*([^<(]*?)\s*(?:<([^>]*)>)?\s*(?:\(([^)]*)\))?\s*$`)

// ReadPackageInfo reads package metadata from path. A missing file yields zero
// metadata without error.
func ReadPackageInfo(path string) (PackageInfo, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return PackageInfo{}, nil
		}
		return PackageInfo{}, errors.FileSystemError("failed to read package metadata").
			WithCause(err).
			WithContext("path", path).
			Build()
	}
	return ParsePackageInfo(data)
}

// ParsePackageInfo decodes package.json content.
func ParsePackageInfo(data []byte) (PackageInfo, error) {
	var pkg packageJSON
	if err := json.Unmarshal(data, &pkg); err != nil {
		return PackageInfo{}, errors.ConfigError("invalid package metadata").WithCause(err).Build()
	}
	info := PackageInfo{Name: pkg.Name, Version: pkg.Version, Description: pkg.Description}
	info.Author = parseAuthor(pkg.Author)
	return info, nil
}

func parseAuthor(raw json.RawMessage) Author {
	if len(raw) == 0 {
		return Author{}
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		match := authorPattern.FindStringSubmatch(s)
		if match == nil {
			return Author{Name: strings.TrimSpace(s)}
		}
		return Author{Name: match[1], Email: match[2], URL: match[3]}
	}
	var a Author
	if err := json.Unmarshal(raw, &a); err != nil {
		return Author{}
	}
	return a
}

// Defaults returns the skeleton manifest merged under every source.
// Identity fields are left empty so that a missing id, name or version is
// reported by Validate instead of being silently filled in.
func Defaults(pkg PackageInfo) Manifest {
	m := Manifest{Section: Section{
		Description: pkg.Description,
		Content:     &Content{Src: DefaultContentSrc},
		Access:      &Access{Origin: DefaultAccessOrigin},
	}}
	if pkg.Author != (Author{}) {
		author := pkg.Author
		m.Author = &author
	}
	return m
}
