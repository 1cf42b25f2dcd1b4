package domain

import (
	"net/url"
	"path"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// NormalizeID turns a file identifier into a slash separated, NFC normalized
// path. file:// URIs are decoded; Windows separators become '/'.
func NormalizeID(id string) string {
	p := id
	if strings.HasPrefix(p, "file://") {
		if u, err := url.Parse(p); err == nil && u.Path != "" {
			p = u.Path
		} else {
			p = strings.TrimPrefix(p, "file://")
		}
	}
	p = strings.ReplaceAll(p, "\\", "/")
	p = norm.NFC.String(p)
	if p == "" {
		return p
	}
	cleaned := path.Clean(p)
	if cleaned == "." {
		return ""
	}
	return cleaned
}

// DisplayPath resolves id against root and returns the root-relative path.
// Identifiers that cannot be placed under root fall back to the raw
// identifier, so malformed input is still shown rather than dropped.
func DisplayPath(root, id string) string {
	rel, ok := ResolvePath(root, id)
	if !ok {
		return id
	}
	return rel
}

// ResolvePath returns the root-relative path of id, or false when id does
// not resolve to a location under root
func ResolvePath(root, id string) (string, bool) {
	p := NormalizeID(id)
	if p == "" {
		return "", false
	}
	r := NormalizeID(root)
	if r != "" && r != "/" {
		if rel, ok := strings.CutPrefix(p, r+"/"); ok && rel != "" {
			return rel, true
		}
		if p == r {
			return "", false
		}
	}
	if isAbs(p) {
		if r == "" || r == "/" {
			return strings.TrimPrefix(p, "/"), true
		}
		return "", false
	}
	if p == ".." || strings.HasPrefix(p, "../") {
		return "", false
	}
	return p, true
}

// isAbs also accepts drive-letter paths such as C:/src
func isAbs(p string) bool {
	if path.IsAbs(p) {
		return true
	}
	return len(p) >= 3 && p[1] == ':' && p[2] == '/' &&
		(p[0] >= 'a' && p[0] <= 'z' || p[0] >= 'A' && p[0] <= 'Z')
}

// AbsolutePath returns the normalized absolute location of id under root
func AbsolutePath(root, id string) string {
	p := NormalizeID(id)
	if isAbs(p) || root == "" {
		return p
	}
	return path.Join(NormalizeID(root), p)
}

// SplitPath splits a display path into non-empty segments
func SplitPath(p string) []string {
	parts := strings.Split(p, "/")
	out := parts[:0]
	for _, s := range parts {
		if s != "" && s != "." {
			out = append(out, s)
		}
	}
	return out
}
