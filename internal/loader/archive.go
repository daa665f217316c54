package loader

import (
	"archive/tar"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
)

// packageRoot is the top-level directory of registry tarballs.
const packageRoot = "package"

// extractTarGz unpacks a gzip-compressed tar stream into dest and returns the
// package root inside it. Entries resolving outside dest are rejected. Links
// and other special entries are skipped.
func extractTarGz(r io.Reader, dest string) (string, error) {
	gz, err := gzip.NewReader(r)
	if err != nil {
		return "", fmt.Errorf("failed to create gzip reader: %w", err)
	}
	defer func() { _ = gz.Close() }()

	base := filepath.Clean(dest) + string(os.PathSeparator)
	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("failed to read tar entry: %w", err)
		}

		target := filepath.Join(dest, filepath.FromSlash(hdr.Name))
		if !strings.HasPrefix(target+string(os.PathSeparator), base) {
			return "", fmt.Errorf("archive entry escapes extraction directory: %s", hdr.Name)
		}

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o750); err != nil {
				return "", err
			}
		case tar.TypeReg:
			if err := writeEntry(tr, target, hdr.FileInfo().Mode().Perm()); err != nil {
				return "", err
			}
		}
	}
	return findPackageRoot(dest)
}

func writeEntry(r io.Reader, target string, perm os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o750); err != nil {
		return err
	}
	if perm == 0 {
		perm = 0o644
	}
	f, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, r); err != nil { //nolint:gosec // size bounded by registry artifact
		_ = f.Close()
		return err
	}
	return f.Close()
}

// findPackageRoot prefers dest/package and otherwise accepts a single
// top-level directory, which some publishers use instead.
func findPackageRoot(dest string) (string, error) {
	root := filepath.Join(dest, packageRoot)
	if info, err := os.Stat(root); err == nil && info.IsDir() {
		return root, nil
	}
	entries, err := os.ReadDir(dest)
	if err != nil {
		return "", err
	}
	var dirs []string
	for _, e := range entries {
		if e.IsDir() {
			dirs = append(dirs, e.Name())
		}
	}
	if len(dirs) == 1 {
		return filepath.Join(dest, dirs[0]), nil
	}
	return "", fmt.Errorf("archive has no %s/ directory", packageRoot)
}
