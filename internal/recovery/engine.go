package recovery

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/fontkeep/fontkeep/internal/font"
	infrafs "github.com/fontkeep/fontkeep/internal/infra/fs"
	"github.com/fontkeep/fontkeep/internal/journal"
)

// StepStatus classifies what reconciliation decided for one action.
type StepStatus string

const (
	// StatusAlreadyDone: the action's effect is already present on disk.
	StatusAlreadyDone StepStatus = "already-done"
	// StatusRetried: the action was re-executed and succeeded.
	StatusRetried StepStatus = "retried"
	// StatusWouldRetry: preview only, the action would be re-executed.
	StatusWouldRetry StepStatus = "would-retry"
	// StatusUnresolved: the single retry failed, manual repair needed.
	StatusUnresolved StepStatus = "unresolved"
	// StatusSkipped: not examined because an earlier step is unresolved.
	StatusSkipped StepStatus = "skipped"
)

// StepResult is the reconciliation verdict for one journaled action.
type StepResult struct {
	Step   uint       `json:"step"`
	Action string     `json:"action"`
	Status StepStatus `json:"status"`
	Detail string     `json:"detail,omitempty"`
}

// Report summarizes recovery of one incomplete journal entry. Exactly
// one of Fixed and NeedsRepair is true after a non-preview run.
type Report struct {
	EntryID     string       `json:"entry_id"`
	Description string       `json:"description,omitempty"`
	Steps       []StepResult `json:"steps"`
	Fixed       bool         `json:"fixed"`
	NeedsRepair bool         `json:"needs_repair"`
}

// Engine replays incomplete journal entries forward. Every action is
// checked against observable state first; only actions whose effect is
// missing are re-executed, and each gets a single retry.
type Engine struct {
	fs      afero.Fs
	store   *journal.Store
	manager font.Manager

	Logger *log.Logger
}

// NewEngine wires a recovery engine over the journal and font manager.
func NewEngine(fs afero.Fs, store *journal.Store, manager font.Manager) *Engine {
	return &Engine{
		fs:      fs,
		store:   store,
		manager: manager,
		Logger:  log.New(os.Stderr, "[recovery] ", log.LstdFlags),
	}
}

// Run reconciles every incomplete entry, oldest first, and returns one
// report per entry. With preview set, nothing is mutated: no files, no
// registrations, no journal writes. Running twice in a row is safe; a
// fully reconciled journal yields no reports.
func (e *Engine) Run(preview bool) ([]Report, error) {
	entries, err := e.store.Incomplete()
	if err != nil {
		return nil, err
	}

	var reports []Report
	for _, entry := range entries {
		report := e.reconcileEntry(entry, preview)
		reports = append(reports, report)

		switch {
		case report.Fixed:
			e.logf("INFO: entry %s recovered (%d step(s))", entry.ID, len(report.Steps))
		case report.NeedsRepair:
			e.logf("WARN: entry %s needs manual repair", entry.ID)
		}
	}
	return reports, nil
}

func (e *Engine) reconcileEntry(entry journal.Entry, preview bool) Report {
	report := Report{
		EntryID:     entry.ID,
		Description: entry.Description,
	}

	stuck := false
	for i := int(entry.CurrentStep); i < len(entry.Actions); i++ {
		action := entry.Actions[i]
		step := uint(i + 1)

		result := StepResult{Step: step, Action: action.Describe()}
		if stuck {
			result.Status = StatusSkipped
			report.Steps = append(report.Steps, result)
			continue
		}

		status, detail := e.reconcileAction(action, preview)
		result.Status = status
		result.Detail = detail
		report.Steps = append(report.Steps, result)

		if status == StatusUnresolved {
			stuck = true
			continue
		}

		if !preview {
			if err := e.store.MarkStep(entry.ID, step); err != nil {
				report.Steps[len(report.Steps)-1].Status = StatusUnresolved
				report.Steps[len(report.Steps)-1].Detail = fmt.Sprintf("journal update failed: %v", err)
				stuck = true
			}
		}
	}

	if preview {
		return report
	}

	if stuck {
		report.NeedsRepair = true
		return report
	}

	if err := e.store.MarkCompleted(entry.ID); err != nil {
		e.logf("WARN: could not mark entry %s completed: %v", entry.ID, err)
		report.NeedsRepair = true
		return report
	}
	report.Fixed = true
	return report
}

// reconcileAction decides one action's fate. Observable state wins: an
// effect already on disk is never re-applied.
func (e *Engine) reconcileAction(action journal.Action, preview bool) (StepStatus, string) {
	switch a := action.(type) {
	case journal.CopyFile:
		return e.reconcileCopy(a, preview)

	case journal.RegisterFont:
		if e.manager.IsInstalled(a.Path, a.Scope) {
			return StatusAlreadyDone, ""
		}
		if preview {
			return StatusWouldRetry, "font is not registered"
		}
		if err := e.manager.Register(a.Path, a.Scope); err != nil {
			return StatusUnresolved, fmt.Sprintf("registration failed: %v", err)
		}
		return StatusRetried, ""

	case journal.UnregisterFont:
		if !e.manager.IsInstalled(a.Path, a.Scope) {
			return StatusAlreadyDone, ""
		}
		if preview {
			return StatusWouldRetry, "font is still registered"
		}
		if err := e.manager.Unregister(a.Path, a.Scope); err != nil {
			return StatusUnresolved, fmt.Sprintf("unregistration failed: %v", err)
		}
		return StatusRetried, ""

	case journal.DeleteFile:
		exists, err := afero.Exists(e.fs, a.Path)
		if err != nil {
			return StatusUnresolved, fmt.Sprintf("cannot inspect %s: %v", filepath.Base(a.Path), err)
		}
		if !exists {
			return StatusAlreadyDone, ""
		}
		if preview {
			return StatusWouldRetry, "file still present"
		}
		if err := e.manager.Delete(a.Path); err != nil {
			return StatusUnresolved, fmt.Sprintf("delete failed: %v", err)
		}
		return StatusRetried, ""

	case journal.ClearCache:
		if preview {
			return StatusWouldRetry, "cache flush would be repeated"
		}
		// Cache flushes are idempotent and best-effort.
		if err := e.manager.ClearCache(a.Scope); err != nil {
			e.logf("WARN: cache flush failed during recovery: %v", err)
		}
		return StatusRetried, ""

	default:
		return StatusUnresolved, fmt.Sprintf("unknown action kind %q", action.Kind())
	}
}

func (e *Engine) reconcileCopy(a journal.CopyFile, preview bool) (StepStatus, string) {
	destInfo, destErr := e.fs.Stat(a.To)
	srcInfo, srcErr := e.fs.Stat(a.From)

	if destErr == nil {
		// Same size as the source means the copy finished before the
		// crash. With the source gone, presence is the best signal left.
		if srcErr != nil || destInfo.Size() == srcInfo.Size() {
			return StatusAlreadyDone, ""
		}
	}

	if srcErr != nil {
		return StatusUnresolved,
			fmt.Sprintf("source %s is gone and destination is incomplete", filepath.Base(a.From))
	}

	if preview {
		return StatusWouldRetry, "destination missing or incomplete"
	}

	data, err := afero.ReadFile(e.fs, a.From)
	if err != nil {
		return StatusUnresolved, fmt.Sprintf("cannot read source %s: %v", filepath.Base(a.From), err)
	}
	if err := infrafs.WriteFileAtomic(e.fs, a.To, data); err != nil {
		return StatusUnresolved, fmt.Sprintf("copy retry failed: %v", err)
	}
	return StatusRetried, ""
}

func (e *Engine) logf(format string, args ...any) {
	if e.Logger != nil {
		e.Logger.Printf(format, args...)
	}
}
