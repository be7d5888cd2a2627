package ops

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"github.com/fontkeep/fontkeep/internal/font"
	"github.com/fontkeep/fontkeep/internal/infra/config"
	infrafs "github.com/fontkeep/fontkeep/internal/infra/fs"
	"github.com/fontkeep/fontkeep/internal/journal"
	"github.com/fontkeep/fontkeep/internal/validator"
)

// Runner orchestrates multi-step font operations. Every mutation flows
// through the journal: record the plan, execute one action at a time,
// advance the step after each, complete at the end. A failure mid-plan
// leaves the entry for the recovery engine.
type Runner struct {
	fs         afero.Fs
	manager    font.Manager
	store      *journal.Store
	supervisor *validator.Supervisor
	policy     *config.Policy

	Logger *log.Logger
}

// NewRunner wires an operation runner.
func NewRunner(fs afero.Fs, manager font.Manager, store *journal.Store,
	supervisor *validator.Supervisor, policy *config.Policy) *Runner {
	return &Runner{
		fs:         fs,
		manager:    manager,
		store:      store,
		supervisor: supervisor,
		policy:     policy,
		Logger:     log.New(os.Stderr, "[ops] ", log.LstdFlags),
	}
}

// InstallOptions tune one install call.
type InstallOptions struct {
	// Scope defaults to user.
	Scope font.Scope
	// DryRun computes the plan without journaling or executing it.
	DryRun bool
	// NoValidate skips the out-of-process validator. Metadata then
	// falls back to filename heuristics.
	NoValidate bool
	// Strictness overrides the policy's validator limits when set.
	Strictness validator.Strictness
}

// InstallResult reports what an install did, or would do under DryRun.
type InstallResult struct {
	EntryID           string
	Installed         []font.FaceInfo
	ResolvedConflicts []font.FaceInfo
	Plan              []journal.Action
	DryRun            bool
}

// Install validates the given font files, resolves conflicts, and
// installs them into scope under a single journal entry.
//
// Validation and conflict failures abort before any journal entry
// exists. Once the entry is recorded, a failing action surfaces as an
// ExecutionError and the entry stays incomplete for recovery.
func (r *Runner) Install(ctx context.Context, paths []string, opts InstallOptions) (*InstallResult, error) {
	if len(paths) == 0 {
		return nil, errors.New("no font files given")
	}
	scope := opts.Scope
	if scope == "" {
		scope = font.ScopeUser
	}
	if !scope.Valid() {
		return nil, fmt.Errorf("unknown scope %q", scope)
	}

	infos, err := r.validate(ctx, paths, opts)
	if err != nil {
		return nil, err
	}

	resolution, resolved, err := r.resolveConflicts(infos)
	if err != nil {
		return nil, err
	}

	plan := resolution
	for i, p := range paths {
		dst := filepath.Join(r.manager.InstallDir(scope), filepath.Base(p))
		plan = append(plan,
			journal.CopyFile{From: p, To: dst},
			journal.RegisterFont{Path: dst, Scope: scope},
		)
		infos[i].Path = dst
		infos[i].Scope = scope
	}

	result := &InstallResult{
		Installed:         infos,
		ResolvedConflicts: resolved,
		Plan:              plan,
		DryRun:            opts.DryRun,
	}
	if opts.DryRun {
		return result, nil
	}

	desc := fmt.Sprintf("install %d font(s) into %s scope", len(paths), scope)
	entry, err := r.store.RecordOperation(plan, desc)
	if err != nil {
		return nil, err
	}

	if err := r.runPlan(entry); err != nil {
		return nil, err
	}
	result.EntryID = entry.ID

	// Registration stores a filename-derived placeholder; overwrite it
	// with the validator's metadata so later conflict detection matches
	// real names. Skipped validation keeps the placeholder.
	if !opts.NoValidate {
		for _, face := range result.Installed {
			if err := r.manager.RecordFace(face); err != nil {
				r.logf("WARN: could not record metadata for %s: %v", face.PostScriptName, err)
			}
		}
	}

	r.logf("INFO: installed %d font(s) into %s scope", len(paths), scope)
	return result, nil
}

// validate runs the out-of-process validator over paths, or derives
// filename-based metadata when validation is skipped. Any failing file
// fails the whole call; no journal entry exists yet at this point.
func (r *Runner) validate(ctx context.Context, paths []string, opts InstallOptions) ([]font.FaceInfo, error) {
	if opts.NoValidate {
		infos := make([]font.FaceInfo, len(paths))
		for i, p := range paths {
			infos[i] = font.BasicFaceInfo(p)
		}
		return infos, nil
	}

	results, err := r.supervisor.Validate(ctx, paths, r.validatorConfig(opts.Strictness))
	if err != nil {
		return nil, err
	}

	infos := make([]font.FaceInfo, len(results))
	for i, res := range results {
		if !res.OK() {
			return nil, &ValidationFailedError{Results: results}
		}
		infos[i] = *res.Info
	}
	return infos, nil
}

func (r *Runner) validatorConfig(strictness validator.Strictness) validator.Config {
	if strictness != "" {
		return validator.ConfigForStrictness(strictness)
	}
	return validator.Config{
		MaxFileSizeBytes: r.policy.ValidatorMaxFileSizeBytes,
		TimeoutMS:        r.policy.ValidatorTimeoutMS,
		AllowCollections: r.policy.ValidatorAllowCollections,
	}
}

// resolveConflicts builds the auto-resolution prefix of an install
// plan: unregister every colliding font, and delete its file when it
// lives inside a directory this manager owns. A collision under a
// protected path aborts the whole install; partial resolution is never
// permitted.
func (r *Runner) resolveConflicts(candidates []font.FaceInfo) ([]journal.Action, []font.FaceInfo, error) {
	installed, err := r.manager.Installed()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list installed fonts: %w", err)
	}

	var actions []journal.Action
	var resolved []font.FaceInfo
	seen := make(map[string]bool)

	for _, cand := range candidates {
		for _, c := range font.DetectConflicts(cand, installed) {
			if font.IsProtectedPath(c.Path, r.policy.ProtectedPaths) {
				return nil, nil, &font.ProtectionError{Path: c.Path}
			}
			key := font.NormalizePath(c.Path)
			if seen[key] {
				continue
			}
			seen[key] = true

			actions = append(actions, journal.UnregisterFont{Path: c.Path, Scope: c.Scope})
			if r.ownsPath(c.Path, c.Scope) {
				actions = append(actions, journal.DeleteFile{Path: c.Path})
			}
			resolved = append(resolved, c)
		}
	}
	return actions, resolved, nil
}

// ownsPath reports whether path lies inside the install directory for
// scope. Only owned files are ever deleted during conflict resolution.
func (r *Runner) ownsPath(path string, scope font.Scope) bool {
	if !scope.Valid() {
		return false
	}
	dir := strings.TrimSuffix(font.NormalizePath(r.manager.InstallDir(scope)), "/")
	return dir != "" && strings.HasPrefix(font.NormalizePath(path), dir+"/")
}

// runPlan executes an entry's actions strictly in order, advancing the
// journal after every action. At most one side effect happens between
// step marks; that is what makes a crash recoverable.
func (r *Runner) runPlan(entry *journal.Entry) error {
	for i, action := range entry.Actions {
		step := uint(i + 1)

		if err := r.apply(action); err != nil {
			r.logf("ERROR: %s failed, entry %s left for recovery: %v", action.Describe(), entry.ID, err)
			return &ExecutionError{EntryID: entry.ID, Step: step, Action: action.Describe(), Err: err}
		}
		if err := r.store.MarkStep(entry.ID, step); err != nil {
			return &ExecutionError{EntryID: entry.ID, Step: step, Action: action.Describe(), Err: err}
		}
	}
	return r.store.MarkCompleted(entry.ID)
}

// apply performs one action through the manager primitives.
func (r *Runner) apply(action journal.Action) error {
	switch a := action.(type) {
	case journal.CopyFile:
		data, err := afero.ReadFile(r.fs, a.From)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", filepath.Base(a.From), err)
		}
		return infrafs.WriteFileAtomic(r.fs, a.To, data)

	case journal.RegisterFont:
		return r.manager.Register(a.Path, a.Scope)

	case journal.UnregisterFont:
		return r.manager.Unregister(a.Path, a.Scope)

	case journal.DeleteFile:
		return r.manager.Delete(a.Path)

	case journal.ClearCache:
		return r.manager.ClearCache(a.Scope)

	default:
		return fmt.Errorf("unknown action kind %q", action.Kind())
	}
}

func (r *Runner) logf(format string, args ...any) {
	if r.Logger != nil {
		r.Logger.Printf(format, args...)
	}
}
