package font

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/afero"

	infrafs "github.com/fontkeep/fontkeep/internal/infra/fs"
)

// registryDocument is the on-disk registration state of a DirRegistry.
type registryDocument struct {
	Entries         []FaceInfo       `json:"entries"`
	CacheGeneration map[Scope]uint64 `json:"cache_generation,omitempty"`
}

// DirRegistry is a portable Manager backed by a directory tree and a
// JSON registry document. It serves hosts without native registration
// primitives and every test. Layout under root:
//
//	<root>/user/fonts/      user-scope install directory
//	<root>/system/fonts/    system-scope install directory
//	<root>/registry.json    registration state
//	<root>/registry.lock    advisory lock for the document
type DirRegistry struct {
	fs   afero.Fs
	root string
}

// NewDirRegistry creates a registry rooted at dir.
func NewDirRegistry(fs afero.Fs, dir string) *DirRegistry {
	return &DirRegistry{fs: fs, root: dir}
}

func (r *DirRegistry) documentPath() string {
	return filepath.Join(r.root, "registry.json")
}

func (r *DirRegistry) lockPath() string {
	return filepath.Join(r.root, "registry.lock")
}

// InstallDir returns the directory fonts are copied into for a scope.
func (r *DirRegistry) InstallDir(scope Scope) string {
	return filepath.Join(r.root, string(scope), "fonts")
}

// CopyIntoScope copies the font file into the scope's install directory.
func (r *DirRegistry) CopyIntoScope(path string, scope Scope) (string, error) {
	dst := filepath.Join(r.InstallDir(scope), filepath.Base(path))
	if err := r.copyFile(path, dst); err != nil {
		return "", err
	}
	return dst, nil
}

func (r *DirRegistry) copyFile(src, dst string) error {
	in, err := r.fs.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", filepath.Base(src), err)
	}
	defer in.Close()

	if err := r.fs.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("failed to create install directory: %w", err)
	}

	out, err := r.fs.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", filepath.Base(dst), err)
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("failed to copy %s: %w", filepath.Base(src), err)
	}
	return out.Close()
}

// Register adds the font at path to the registration state.
func (r *DirRegistry) Register(path string, scope Scope) error {
	return r.update(func(doc *registryDocument) error {
		for _, e := range doc.Entries {
			if NormalizePath(e.Path) == NormalizePath(path) && e.Scope == scope {
				return nil // already registered
			}
		}
		face := BasicFaceInfo(path)
		face.Scope = scope
		face.Path = path
		doc.Entries = append(doc.Entries, face)
		return nil
	})
}

// Unregister removes the font at path from the registration state.
func (r *DirRegistry) Unregister(path string, scope Scope) error {
	return r.update(func(doc *registryDocument) error {
		kept := doc.Entries[:0]
		removed := 0
		for _, e := range doc.Entries {
			if e.Scope == scope && r.matchesEntry(e, path) {
				removed++
				continue
			}
			kept = append(kept, e)
		}
		doc.Entries = kept
		if removed == 0 {
			return &RegistrationError{
				Op:   "unregister",
				Path: path,
				Err:  errors.New("font is not registered at this scope"),
			}
		}
		return nil
	})
}

// IsInstalled reports whether a path or font name is registered at scope.
func (r *DirRegistry) IsInstalled(pathOrName string, scope Scope) bool {
	doc, err := r.load()
	if err != nil {
		return false
	}
	for _, e := range doc.Entries {
		if e.Scope == scope && r.matchesEntry(e, pathOrName) {
			return true
		}
	}
	return false
}

func (r *DirRegistry) matchesEntry(e FaceInfo, pathOrName string) bool {
	return MatchesQuery(e, pathOrName)
}

// RecordFace persists validated metadata for the font at face.Path,
// replacing the filename-derived entry Register stored. Missing
// entries are added.
func (r *DirRegistry) RecordFace(face FaceInfo) error {
	return r.update(func(doc *registryDocument) error {
		for i, e := range doc.Entries {
			if e.Scope == face.Scope && NormalizePath(e.Path) == NormalizePath(face.Path) {
				doc.Entries[i] = face
				return nil
			}
		}
		doc.Entries = append(doc.Entries, face)
		return nil
	})
}

// Installed lists all fonts registered through this manager.
func (r *DirRegistry) Installed() ([]FaceInfo, error) {
	doc, err := r.load()
	if err != nil {
		return nil, err
	}
	return doc.Entries, nil
}

// Delete removes a font file from disk. Missing files are not an error.
func (r *DirRegistry) Delete(path string) error {
	err := r.fs.Remove(path)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete %s: %w", filepath.Base(path), err)
	}
	return nil
}

// ClearCache bumps the scope's cache generation. The portable registry
// has no real cache; the generation count makes the call observable.
func (r *DirRegistry) ClearCache(scope Scope) error {
	return r.update(func(doc *registryDocument) error {
		if doc.CacheGeneration == nil {
			doc.CacheGeneration = make(map[Scope]uint64)
		}
		doc.CacheGeneration[scope]++
		return nil
	})
}

// CacheGeneration returns how many times the scope's cache was cleared.
func (r *DirRegistry) CacheGeneration(scope Scope) uint64 {
	doc, err := r.load()
	if err != nil {
		return 0
	}
	return doc.CacheGeneration[scope]
}

// PruneMissing drops registrations whose font file no longer exists.
func (r *DirRegistry) PruneMissing(scope Scope) (int, error) {
	pruned := 0
	err := r.update(func(doc *registryDocument) error {
		kept := doc.Entries[:0]
		for _, e := range doc.Entries {
			if e.Scope == scope {
				if ok, _ := afero.Exists(r.fs, e.Path); !ok {
					pruned++
					continue
				}
			}
			kept = append(kept, e)
		}
		doc.Entries = kept
		return nil
	})
	if err != nil {
		return 0, err
	}
	return pruned, nil
}

func (r *DirRegistry) load() (*registryDocument, error) {
	doc := &registryDocument{}
	data, err := afero.ReadFile(r.fs, r.documentPath())
	if os.IsNotExist(err) {
		return doc, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read registry: %w", err)
	}
	if err := json.Unmarshal(data, doc); err != nil {
		return nil, fmt.Errorf("failed to parse registry: %w", err)
	}
	return doc, nil
}

// update runs a read-modify-write cycle on the registry document under
// the advisory lock. A failed mutation is never persisted.
func (r *DirRegistry) update(mutate func(*registryDocument) error) error {
	if err := r.fs.MkdirAll(r.root, 0o755); err != nil {
		return fmt.Errorf("failed to create registry root: %w", err)
	}

	lock := infrafs.NewLock(r.lockPath())
	lock.Backoff = 50 * time.Millisecond
	if err := lock.Acquire(); err != nil {
		return err
	}
	defer lock.Release()

	doc, err := r.load()
	if err != nil {
		return err
	}

	if err := mutate(doc); err != nil {
		return err
	}

	return infrafs.WriteJSONAtomic(r.fs, r.documentPath(), doc)
}
