package font

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Scope is the installation tier a font is registered at. It determines
// the target location and the privilege required to modify it.
type Scope string

const (
	// ScopeUser affects only the current user.
	ScopeUser Scope = "user"
	// ScopeSystem affects all users and requires elevation.
	ScopeSystem Scope = "system"
)

// Valid reports whether s is a known scope.
func (s Scope) Valid() bool {
	return s == ScopeUser || s == ScopeSystem
}

// Description returns a human-readable form for log output.
func (s Scope) Description() string {
	switch s {
	case ScopeSystem:
		return "system-level"
	default:
		return "user-level"
	}
}

// FaceInfo is structural font metadata extracted independent of the
// filename. It is produced by the out-of-process validator for
// candidates, and recorded in the registry for installed fonts.
type FaceInfo struct {
	PostScriptName string `json:"postscript_name"`
	FullName       string `json:"full_name,omitempty"`
	FamilyName     string `json:"family_name"`
	StyleName      string `json:"style_name"`
	Weight         uint16 `json:"weight"`
	Italic         bool   `json:"italic"`
	Format         string `json:"format"`
	FaceIndex      uint32 `json:"face_index"`

	// Path is the font file this metadata belongs to.
	Path string `json:"path,omitempty"`
	// Scope is set for installed fonts only.
	Scope Scope `json:"scope,omitempty"`
}

// String identifies the face for log output.
func (f FaceInfo) String() string {
	return fmt.Sprintf("%s (%s %s)", f.PostScriptName, f.FamilyName, f.StyleName)
}

// FormatForExtension maps a font file extension to its container format
// name. Unknown extensions map to "Unknown".
func FormatForExtension(path string) string {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	switch ext {
	case "ttf":
		return "TrueType"
	case "otf":
		return "OpenType"
	case "ttc", "otc":
		return "Collection"
	case "woff":
		return "WOFF"
	case "woff2":
		return "WOFF2"
	case "dfont":
		return "dfont"
	default:
		return "Unknown"
	}
}

// BasicFaceInfo derives fallback metadata from a file path alone. It is
// used for registry listings where no parsed metadata is available; a
// validated candidate never goes through this path.
func BasicFaceInfo(path string) FaceInfo {
	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))

	family, style := stem, "Regular"
	if i := strings.LastIndex(stem, "-"); i > 0 {
		family = strings.TrimSpace(stem[:i])
		style = strings.TrimSpace(stem[i+1:])
	} else if i := strings.LastIndex(stem, " "); i > 0 {
		family = strings.TrimSpace(stem[:i])
		style = strings.TrimSpace(stem[i+1:])
	}

	return FaceInfo{
		PostScriptName: stem,
		FullName:       stem,
		FamilyName:     family,
		StyleName:      style,
		Weight:         400,
		Format:         FormatForExtension(path),
		Path:           path,
	}
}
