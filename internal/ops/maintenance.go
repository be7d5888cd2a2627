package ops

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/flopp/go-findfont"

	"github.com/fontkeep/fontkeep/internal/font"
	"github.com/fontkeep/fontkeep/internal/journal"
)

// UninstallOptions tune one uninstall call.
type UninstallOptions struct {
	// Scope defaults to user. Without elevation an uninstall only ever
	// touches the user scope, even when the font exists at both.
	Scope font.Scope
	// DeleteFile removes the font file after unregistering it.
	DeleteFile bool
	// DryRun computes the plan without journaling or executing it.
	DryRun bool
}

// UninstallResult reports what an uninstall did, or would do.
type UninstallResult struct {
	EntryID string
	Target  font.FaceInfo
	Plan    []journal.Action
	DryRun  bool
}

// Uninstall unregisters the font matching target (a path, PostScript
// name, or full name) at exactly the requested scope.
func (r *Runner) Uninstall(target string, opts UninstallOptions) (*UninstallResult, error) {
	scope := opts.Scope
	if scope == "" {
		scope = font.ScopeUser
	}
	if !scope.Valid() {
		return nil, fmt.Errorf("unknown scope %q", scope)
	}

	face, ok, err := r.findInstalled(target, scope)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, &NotInstalledError{Target: target, Scope: scope}
	}
	if font.IsProtectedPath(face.Path, r.policy.ProtectedPaths) {
		return nil, &font.ProtectionError{Path: face.Path}
	}

	plan := []journal.Action{
		journal.UnregisterFont{Path: face.Path, Scope: scope},
	}
	if opts.DeleteFile {
		plan = append(plan, journal.DeleteFile{Path: face.Path})
	}

	result := &UninstallResult{Target: face, Plan: plan, DryRun: opts.DryRun}
	if opts.DryRun {
		return result, nil
	}

	desc := fmt.Sprintf("uninstall %s from %s scope", face.PostScriptName, scope)
	entry, err := r.store.RecordOperation(plan, desc)
	if err != nil {
		return nil, err
	}
	if err := r.runPlan(entry); err != nil {
		return nil, err
	}
	result.EntryID = entry.ID

	r.logf("INFO: uninstalled %s from %s scope", face.PostScriptName, scope)
	return result, nil
}

// Remove is Uninstall plus deletion of the font file.
func (r *Runner) Remove(target string, opts UninstallOptions) (*UninstallResult, error) {
	opts.DeleteFile = true
	return r.Uninstall(target, opts)
}

func (r *Runner) findInstalled(target string, scope font.Scope) (font.FaceInfo, bool, error) {
	installed, err := r.manager.Installed()
	if err != nil {
		return font.FaceInfo{}, false, fmt.Errorf("failed to list installed fonts: %w", err)
	}
	for _, f := range installed {
		if f.Scope == scope && font.MatchesQuery(f, target) {
			return f, true, nil
		}
	}
	return font.FaceInfo{}, false, nil
}

// CleanupOptions tune one cleanup call.
type CleanupOptions struct {
	// Scope defaults to user.
	Scope font.Scope
	// PruneOnly skips the cache flush.
	PruneOnly bool
	// CacheOnly skips registry and journal pruning.
	CacheOnly bool
}

// CleanupResult reports what housekeeping removed.
type CleanupResult struct {
	PrunedRegistrations  int
	PrunedJournalEntries int
	CacheCleared         bool
}

// Cleanup drops registrations whose files are gone, prunes completed
// journal entries past the retention window, and flushes the scope's
// font cache.
func (r *Runner) Cleanup(opts CleanupOptions) (*CleanupResult, error) {
	scope := opts.Scope
	if scope == "" {
		scope = font.ScopeUser
	}
	if !scope.Valid() {
		return nil, fmt.Errorf("unknown scope %q", scope)
	}

	result := &CleanupResult{}

	if !opts.CacheOnly {
		pruned, err := r.manager.PruneMissing(scope)
		if err != nil {
			return nil, fmt.Errorf("failed to prune registrations: %w", err)
		}
		result.PrunedRegistrations = pruned

		maxAge := time.Duration(r.policy.JournalMaxAgeHours) * time.Hour
		dropped, err := r.store.PruneCompleted(maxAge)
		if err != nil {
			return nil, fmt.Errorf("failed to prune journal: %w", err)
		}
		result.PrunedJournalEntries = dropped
	}

	if !opts.PruneOnly {
		if err := r.manager.ClearCache(scope); err != nil {
			return nil, err
		}
		result.CacheCleared = true
	}

	r.logf("INFO: cleanup pruned %d registration(s), %d journal entr(ies)",
		result.PrunedRegistrations, result.PrunedJournalEntries)
	return result, nil
}

// ListOptions tune one list call.
type ListOptions struct {
	// IncludeSystem folds in font files discovered on the host's
	// standard font paths, outside this manager's registry.
	IncludeSystem bool
}

// List returns installed fonts, deduplicated and deterministically
// sorted by PostScript name then path.
func (r *Runner) List(opts ListOptions) ([]font.FaceInfo, error) {
	faces, err := r.manager.Installed()
	if err != nil {
		return nil, err
	}

	if opts.IncludeSystem {
		for _, path := range findfont.List() {
			if !r.listableExtension(path) {
				continue
			}
			face := font.BasicFaceInfo(path)
			face.Scope = font.ScopeSystem
			faces = append(faces, face)
		}
	}

	return font.Dedupe(faces), nil
}

func (r *Runner) listableExtension(path string) bool {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	for _, allowed := range r.policy.AllowedExtensions {
		if ext == strings.ToLower(allowed) {
			return true
		}
	}
	return false
}
