package loader

import (
	"crypto/md5" //nolint:gosec // cache bucket naming only
	"encoding/hex"
	"net/url"
	"path/filepath"
	"regexp"
	"strings"
)

// SourceKind classifies a plugin locator.
type SourceKind string

const (
	SourceVCS         SourceKind = "vcs"
	SourceRegistry    SourceKind = "registry"
	SourceUnsupported SourceKind = "unsupported"
)

const vcsSuffix = ".git"

// Bare registry names, optionally scoped (@scope/name).
var registryName = regexp.MustCompile(`^(@[A-Za-z0-9][A-Za-z0-9._-]*/)?[A-Za-z0-9][A-Za-z0-9._-]*$`)

// Classify reports which fetch protocol serves locator.
func Classify(locator string) SourceKind {
	c := Canonical(locator)
	switch {
	case len(c) > len(vcsSuffix) && strings.HasSuffix(strings.ToLower(c), vcsSuffix):
		return SourceVCS
	case registryName.MatchString(c):
		return SourceRegistry
	default:
		return SourceUnsupported
	}
}

// Canonical normalizes the spelling of a locator so that equivalent spellings
// share one cache bucket: surrounding whitespace and trailing slashes are
// dropped, file:// URLs and relative paths become clean absolute paths, and
// URL schemes and hosts are lowercased.
func Canonical(locator string) string {
	s := strings.TrimSpace(locator)
	for len(s) > 1 && strings.HasSuffix(s, "/") {
		s = strings.TrimSuffix(s, "/")
	}
	if s == "" {
		return s
	}

	lower := strings.ToLower(s)
	switch {
	case strings.HasPrefix(lower, "file://"):
		if u, err := url.Parse(s); err == nil {
			return absPath(u.Path)
		}
		return s
	case strings.Contains(s, "://"):
		u, err := url.Parse(s)
		if err != nil {
			return s
		}
		u.Scheme = strings.ToLower(u.Scheme)
		u.Host = strings.ToLower(u.Host)
		return u.String()
	case isLocalPath(s):
		return absPath(s)
	default:
		return s
	}
}

func isLocalPath(s string) bool {
	return filepath.IsAbs(s) || s == "." || s == ".." ||
		strings.HasPrefix(s, "./") || strings.HasPrefix(s, "../")
}

func absPath(p string) string {
	abs, err := filepath.Abs(p)
	if err != nil {
		return filepath.Clean(p)
	}
	return abs
}

// Hash returns the source identity hash of a locator: the hex md5 digest of
// its canonical spelling.
func Hash(locator string) string {
	sum := md5.Sum([]byte(Canonical(locator))) //nolint:gosec // not a security boundary
	return hex.EncodeToString(sum[:])
}
