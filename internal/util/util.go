// Package util provides small string and path helpers shared across the bridge.
package util

import (
	"errors"
	"path"
	"path/filepath"
	"strings"
)

// ErrOutsideBase is returned when an asset path escapes its base directory.
var ErrOutsideBase = errors.New("path escapes base directory")

// TrimQuotes removes leading and trailing double quotes from a string.
func TrimQuotes(s string) string {
	return strings.Trim(s, `"`)
}

// NormalizePath converts a pack-relative path, which may use backslashes, to a
// cleaned forward-slash path.
// Input format: `Data\Karkasymbol.png` -> `Data/Karkasymbol.png`
func NormalizePath(p string) string {
	p = strings.ReplaceAll(strings.TrimSpace(p), `\`, "/")
	if p == "" {
		return ""
	}
	return path.Clean(p)
}

// ResolveAsset joins a pack-relative path onto base and rejects results that
// leave base.
func ResolveAsset(base, rel string) (string, error) {
	rel = NormalizePath(rel)
	if rel == "" || path.IsAbs(rel) || rel == ".." || strings.HasPrefix(rel, "../") {
		return "", ErrOutsideBase
	}
	return filepath.Join(base, filepath.FromSlash(rel)), nil
}
