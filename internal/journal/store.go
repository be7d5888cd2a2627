package journal

import (
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"sort"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/spf13/afero"

	infrafs "github.com/fontkeep/fontkeep/internal/infra/fs"
)

var (
	// ErrInvalidPlan is returned when an operation is recorded with no
	// actions.
	ErrInvalidPlan = errors.New("operation plan must contain at least one action")

	// ErrOutOfOrder is returned when a step advance does not follow the
	// entry's current step, or completion is requested before the final
	// step.
	ErrOutOfOrder = errors.New("journal step advance out of order")

	// ErrUnknownEntry is returned when no entry has the given ID.
	ErrUnknownEntry = errors.New("journal entry not found")

	// ErrBusy is surfaced when the journal lock cannot be acquired
	// within the bounded retry window.
	ErrBusy = infrafs.ErrBusy
)

// document is the on-disk journal: a JSON array of entries.
type document struct {
	Entries []Entry `json:"entries"`
}

// Store is an explicit handle to the durable operation journal: the
// journal file plus its advisory lock. It is passed to every call so
// tests can run against isolated roots. Every mutation is a
// lock / load / modify / atomic-write cycle.
type Store struct {
	fs       afero.Fs
	path     string
	lockPath string

	Logger *log.Logger
}

// NewStore creates a journal handle. Nothing is touched on disk until
// the first operation.
func NewStore(fs afero.Fs, journalPath, lockPath string) *Store {
	return &Store{
		fs:       fs,
		path:     journalPath,
		lockPath: lockPath,
		Logger:   log.New(os.Stderr, "[journal] ", log.LstdFlags),
	}
}

// Path returns the journal file location.
func (s *Store) Path() string { return s.path }

// RecordOperation creates a new incomplete entry for the given action
// plan, persists it, and returns it. The entry must exist on disk
// before any side effect of the operation is performed.
func (s *Store) RecordOperation(actions []Action, description string) (*Entry, error) {
	if len(actions) == 0 {
		return nil, ErrInvalidPlan
	}

	entry := Entry{
		ID:          newEntryID(),
		StartedAt:   time.Now().UTC(),
		CurrentStep: 0,
		Actions:     actions,
		Description: description,
	}

	err := s.update(func(doc *document) error {
		doc.Entries = append(doc.Entries, entry)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// MarkStep advances an entry to step. Steps advance one at a time:
// step must equal the entry's current step plus one.
func (s *Store) MarkStep(id string, step uint) error {
	return s.update(func(doc *document) error {
		entry := findEntry(doc, id)
		if entry == nil {
			return fmt.Errorf("%w: %s", ErrUnknownEntry, id)
		}
		if step != entry.CurrentStep+1 || int(step) > len(entry.Actions) {
			return fmt.Errorf("%w: entry %s at step %d, got %d",
				ErrOutOfOrder, id, entry.CurrentStep, step)
		}
		entry.CurrentStep = step
		return nil
	})
}

// MarkCompleted flags an entry as done. Valid only when every action
// has been stepped through.
func (s *Store) MarkCompleted(id string) error {
	return s.update(func(doc *document) error {
		entry := findEntry(doc, id)
		if entry == nil {
			return fmt.Errorf("%w: %s", ErrUnknownEntry, id)
		}
		if int(entry.CurrentStep) != len(entry.Actions) {
			return fmt.Errorf("%w: entry %s at step %d of %d cannot complete",
				ErrOutOfOrder, id, entry.CurrentStep, len(entry.Actions))
		}
		entry.Completed = true
		return nil
	})
}

// Entries returns every entry currently in the journal.
func (s *Store) Entries() ([]Entry, error) {
	lock := infrafs.NewLock(s.lockPath)
	if err := lock.Acquire(); err != nil {
		return nil, err
	}
	defer lock.Release()

	doc, err := s.load()
	if err != nil {
		return nil, err
	}
	return doc.Entries, nil
}

// Incomplete returns entries whose operation never finished, ordered
// oldest-first by start time.
func (s *Store) Incomplete() ([]Entry, error) {
	entries, err := s.Entries()
	if err != nil {
		return nil, err
	}

	var incomplete []Entry
	for _, e := range entries {
		if e.IsIncomplete() {
			incomplete = append(incomplete, e)
		}
	}
	sort.SliceStable(incomplete, func(i, j int) bool {
		return incomplete[i].StartedAt.Before(incomplete[j].StartedAt)
	})
	return incomplete, nil
}

// PruneCompleted removes completed entries older than maxAge and
// returns how many were dropped. Incomplete entries are always kept.
func (s *Store) PruneCompleted(maxAge time.Duration) (int, error) {
	pruned := 0
	err := s.update(func(doc *document) error {
		cutoff := time.Now().Add(-maxAge)
		kept := doc.Entries[:0]
		for _, e := range doc.Entries {
			if e.Completed && e.StartedAt.Before(cutoff) {
				pruned++
				continue
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

// update runs one locked read-modify-write cycle. The lock is released
// unconditionally, including on error paths.
func (s *Store) update(mutate func(*document) error) error {
	lock := infrafs.NewLock(s.lockPath)
	if err := lock.Acquire(); err != nil {
		return err
	}
	defer lock.Release()

	doc, err := s.load()
	if err != nil {
		return err
	}

	if err := mutate(doc); err != nil {
		return err
	}

	if err := infrafs.WriteJSONAtomic(s.fs, s.path, doc); err != nil {
		return fmt.Errorf("failed to persist journal: %w", err)
	}
	return nil
}

// load reads the journal document. A missing file is an empty journal.
// An unparsable file is quarantined (renamed aside, never deleted) and
// treated as empty; the incident is logged, not fatal.
func (s *Store) load() (*document, error) {
	doc := &document{}

	data, err := afero.ReadFile(s.fs, s.path)
	if os.IsNotExist(err) {
		return doc, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read journal: %w", err)
	}

	if err := json.Unmarshal(data, doc); err != nil {
		quarantine := fmt.Sprintf("%s.corrupt-%s", s.path, time.Now().UTC().Format("20060102T150405Z"))
		if renameErr := s.fs.Rename(s.path, quarantine); renameErr != nil {
			return nil, fmt.Errorf("journal is corrupt and could not be quarantined: %w", renameErr)
		}
		s.Logger.Printf("WARN: corrupt journal quarantined to %s: %v", quarantine, err)
		return &document{}, nil
	}

	return doc, nil
}

func findEntry(doc *document, id string) *Entry {
	for i := range doc.Entries {
		if doc.Entries[i].ID == id {
			return &doc.Entries[i]
		}
	}
	return nil
}

// newEntryID generates a ULID. ULIDs sort lexicographically by creation
// time, which keeps journal IDs aligned with recovery's oldest-first
// ordering.
func newEntryID() string {
	entropy := ulid.Monotonic(rand.Reader, 0)
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}
