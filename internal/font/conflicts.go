package font

import (
	"sort"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// normalizeName prepares a font name for comparison: NFC so composed
// and decomposed forms match, then case-folded.
func normalizeName(s string) string {
	return strings.ToLower(norm.NFC.String(s))
}

// NormalizePath normalizes a path for comparison across platforms:
// forward slashes, lowercase, duplicate separators collapsed.
func NormalizePath(path string) string {
	p := strings.ToLower(strings.ReplaceAll(path, "\\", "/"))
	for strings.Contains(p, "//") {
		p = strings.ReplaceAll(p, "//", "/")
	}
	return p
}

// DetectConflicts returns every installed font that collides with the
// candidate by exact path, PostScript name, or (family, style) tuple.
// All matches are returned, deduplicated by path, in input order.
func DetectConflicts(candidate FaceInfo, installed []FaceInfo) []FaceInfo {
	candPath := NormalizePath(candidate.Path)
	candPost := normalizeName(candidate.PostScriptName)
	candFamily := normalizeName(candidate.FamilyName)
	candStyle := normalizeName(candidate.StyleName)

	seen := make(map[string]bool)
	var matches []FaceInfo

	for _, f := range installed {
		path := NormalizePath(f.Path)

		samePath := path != "" && path == candPath
		samePost := candPost != "" && normalizeName(f.PostScriptName) == candPost
		sameFamilyStyle := candFamily != "" &&
			normalizeName(f.FamilyName) == candFamily &&
			normalizeName(f.StyleName) == candStyle

		if !samePath && !samePost && !sameFamilyStyle {
			continue
		}
		if seen[path] {
			continue
		}
		seen[path] = true
		matches = append(matches, f)
	}

	return matches
}

// IsProtectedPath reports whether path lies under any of the protected
// system font directories.
func IsProtectedPath(path string, protected []string) bool {
	p := NormalizePath(path)
	for _, dir := range protected {
		d := strings.TrimSuffix(NormalizePath(dir), "/")
		if d == "" {
			continue
		}
		if p == d || strings.HasPrefix(p, d+"/") {
			return true
		}
	}
	return false
}

// MatchesQuery reports whether the face's path, PostScript name, or
// full name equals the query under normalization.
func MatchesQuery(f FaceInfo, query string) bool {
	if NormalizePath(f.Path) == NormalizePath(query) {
		return true
	}
	q := normalizeName(query)
	return normalizeName(f.PostScriptName) == q || normalizeName(f.FullName) == q
}

// Dedupe sorts faces deterministically by PostScript name then path and
// removes duplicates, for stable list output.
func Dedupe(faces []FaceInfo) []FaceInfo {
	keyOf := func(f FaceInfo) string {
		return normalizeName(f.PostScriptName) + "\x00" + NormalizePath(f.Path)
	}

	seen := make(map[string]bool, len(faces))
	out := make([]FaceInfo, 0, len(faces))
	for _, f := range faces {
		k := keyOf(f)
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, f)
	}

	sort.Slice(out, func(i, j int) bool {
		return keyOf(out[i]) < keyOf(out[j])
	})
	return out
}
