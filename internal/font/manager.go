package font

// Manager is the capability interface over the host's font
// registration stack. The journal and recovery logic call only these
// primitives, never platform APIs directly. An implementation is
// selected once at startup for the current host.
type Manager interface {
	// InstallDir returns the directory fonts are copied into for a scope.
	InstallDir(scope Scope) string

	// CopyIntoScope copies the font file into the scope's install
	// directory and returns the destination path.
	CopyIntoScope(path string, scope Scope) (string, error)

	// Register makes the font at path visible to the host at the scope.
	Register(path string, scope Scope) error

	// Unregister removes the font at path from the host at the scope.
	Unregister(path string, scope Scope) error

	// IsInstalled reports whether a font file path or font name is
	// currently registered at the scope.
	IsInstalled(pathOrName string, scope Scope) bool

	// RecordFace persists validated metadata for a registered font,
	// replacing any filename-derived placeholder. Conflict detection
	// matches against these records, so validated names must land here.
	RecordFace(face FaceInfo) error

	// Installed lists all fonts registered through this manager.
	Installed() ([]FaceInfo, error)

	// Delete removes a font file from disk.
	Delete(path string) error

	// ClearCache flushes the host font caches for the scope.
	ClearCache(scope Scope) error

	// PruneMissing drops registrations whose font file no longer
	// exists, returning the number pruned.
	PruneMissing(scope Scope) (int, error)
}
