package recovery

import (
	"io"
	"log"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fontkeep/fontkeep/internal/font"
	"github.com/fontkeep/fontkeep/internal/journal"
)

type fixture struct {
	fs      afero.Fs
	dir     string
	store   *journal.Store
	manager *font.DirRegistry
	engine  *Engine
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()
	fs := afero.NewOsFs()

	store := journal.NewStore(fs,
		filepath.Join(dir, "journal.json"),
		filepath.Join(dir, "journal.lock"))
	store.Logger = log.New(io.Discard, "", 0)

	manager := font.NewDirRegistry(fs, filepath.Join(dir, "registry"))

	engine := NewEngine(fs, store, manager)
	engine.Logger = log.New(io.Discard, "", 0)

	return &fixture{fs: fs, dir: dir, store: store, manager: manager, engine: engine}
}

func (f *fixture) writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(f.dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestRecoverCrashAfterCopy(t *testing.T) {
	f := newFixture(t)

	src := f.writeFile(t, "in/Inter-Bold.ttf", []byte("fontdata"))
	dst := filepath.Join(f.manager.InstallDir(font.ScopeUser), "Inter-Bold.ttf")

	entry, err := f.store.RecordOperation([]journal.Action{
		journal.CopyFile{From: src, To: dst},
		journal.RegisterFont{Path: dst, Scope: font.ScopeUser},
	}, "install Inter-Bold.ttf")
	require.NoError(t, err)

	// Simulate a crash after the copy step was journaled.
	f.writeFile(t, "registry/user/fonts/Inter-Bold.ttf", []byte("fontdata"))
	require.NoError(t, f.store.MarkStep(entry.ID, 1))

	reports, err := f.engine.Run(false)
	require.NoError(t, err)
	require.Len(t, reports, 1)

	assert.True(t, reports[0].Fixed)
	require.Len(t, reports[0].Steps, 1)
	assert.Equal(t, StatusRetried, reports[0].Steps[0].Status)
	assert.True(t, f.manager.IsInstalled(dst, font.ScopeUser))

	incomplete, err := f.store.Incomplete()
	require.NoError(t, err)
	assert.Empty(t, incomplete)
}

func TestRecoverCopyAlreadyDone(t *testing.T) {
	f := newFixture(t)

	src := f.writeFile(t, "in/a.ttf", []byte("samesize"))
	dst := f.writeFile(t, "out/a.ttf", []byte("samesize"))

	_, err := f.store.RecordOperation([]journal.Action{
		journal.CopyFile{From: src, To: dst},
	}, "")
	require.NoError(t, err)

	reports, err := f.engine.Run(false)
	require.NoError(t, err)
	require.Len(t, reports, 1)
	assert.True(t, reports[0].Fixed)
	assert.Equal(t, StatusAlreadyDone, reports[0].Steps[0].Status)
}

func TestRecoverCopyRetriesMissingDestination(t *testing.T) {
	f := newFixture(t)

	src := f.writeFile(t, "in/a.ttf", []byte("fontdata"))
	dst := filepath.Join(f.dir, "out", "a.ttf")

	_, err := f.store.RecordOperation([]journal.Action{
		journal.CopyFile{From: src, To: dst},
	}, "")
	require.NoError(t, err)

	reports, err := f.engine.Run(false)
	require.NoError(t, err)
	require.Len(t, reports, 1)
	assert.True(t, reports[0].Fixed)
	assert.Equal(t, StatusRetried, reports[0].Steps[0].Status)

	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "fontdata", string(data))
}

func TestRecoverUnresolvedCopySkipsRest(t *testing.T) {
	f := newFixture(t)

	src := filepath.Join(f.dir, "gone.ttf")
	dst := filepath.Join(f.dir, "out", "gone.ttf")

	_, err := f.store.RecordOperation([]journal.Action{
		journal.CopyFile{From: src, To: dst},
		journal.RegisterFont{Path: dst, Scope: font.ScopeUser},
	}, "")
	require.NoError(t, err)

	reports, err := f.engine.Run(false)
	require.NoError(t, err)
	require.Len(t, reports, 1)

	assert.True(t, reports[0].NeedsRepair)
	assert.False(t, reports[0].Fixed)
	assert.Equal(t, StatusUnresolved, reports[0].Steps[0].Status)
	assert.Equal(t, StatusSkipped, reports[0].Steps[1].Status)

	// The entry stays in the journal for manual repair.
	incomplete, err := f.store.Incomplete()
	require.NoError(t, err)
	assert.Len(t, incomplete, 1)
}

func TestRecoverDeleteFile(t *testing.T) {
	f := newFixture(t)

	present := f.writeFile(t, "old/present.ttf", []byte("x"))
	missing := filepath.Join(f.dir, "old", "missing.ttf")

	_, err := f.store.RecordOperation([]journal.Action{
		journal.DeleteFile{Path: present},
		journal.DeleteFile{Path: missing},
	}, "")
	require.NoError(t, err)

	reports, err := f.engine.Run(false)
	require.NoError(t, err)
	require.Len(t, reports, 1)

	assert.True(t, reports[0].Fixed)
	assert.Equal(t, StatusRetried, reports[0].Steps[0].Status)
	assert.Equal(t, StatusAlreadyDone, reports[0].Steps[1].Status)
	assert.NoFileExists(t, present)
}

// deleteRecorder observes file deletions passed through the manager.
type deleteRecorder struct {
	font.Manager
	deleted []string
}

func (d *deleteRecorder) Delete(path string) error {
	d.deleted = append(d.deleted, path)
	return d.Manager.Delete(path)
}

func TestRecoverDeletesThroughManager(t *testing.T) {
	f := newFixture(t)
	rec := &deleteRecorder{Manager: f.manager}

	engine := NewEngine(f.fs, f.store, rec)
	engine.Logger = log.New(io.Discard, "", 0)

	present := f.writeFile(t, "old/present.ttf", []byte("x"))
	_, err := f.store.RecordOperation([]journal.Action{
		journal.DeleteFile{Path: present},
	}, "")
	require.NoError(t, err)

	reports, err := engine.Run(false)
	require.NoError(t, err)
	require.Len(t, reports, 1)
	assert.True(t, reports[0].Fixed)

	assert.Equal(t, []string{present}, rec.deleted)
	assert.NoFileExists(t, present)
}

func TestRecoverUnregisterStillInstalled(t *testing.T) {
	f := newFixture(t)

	path := f.writeFile(t, "registry/user/fonts/Old-Regular.ttf", []byte("x"))
	require.NoError(t, f.manager.Register(path, font.ScopeUser))

	_, err := f.store.RecordOperation([]journal.Action{
		journal.UnregisterFont{Path: path, Scope: font.ScopeUser},
	}, "")
	require.NoError(t, err)

	reports, err := f.engine.Run(false)
	require.NoError(t, err)
	require.Len(t, reports, 1)
	assert.True(t, reports[0].Fixed)
	assert.Equal(t, StatusRetried, reports[0].Steps[0].Status)
	assert.False(t, f.manager.IsInstalled(path, font.ScopeUser))
}

func TestRecoverClearCache(t *testing.T) {
	f := newFixture(t)

	_, err := f.store.RecordOperation([]journal.Action{
		journal.ClearCache{Scope: font.ScopeUser},
	}, "")
	require.NoError(t, err)

	before := f.manager.CacheGeneration(font.ScopeUser)

	reports, err := f.engine.Run(false)
	require.NoError(t, err)
	require.Len(t, reports, 1)
	assert.True(t, reports[0].Fixed)
	assert.Equal(t, before+1, f.manager.CacheGeneration(font.ScopeUser))
}

func TestPreviewMutatesNothing(t *testing.T) {
	f := newFixture(t)

	src := f.writeFile(t, "in/a.ttf", []byte("fontdata"))
	dst := filepath.Join(f.dir, "out", "a.ttf")

	_, err := f.store.RecordOperation([]journal.Action{
		journal.CopyFile{From: src, To: dst},
		journal.RegisterFont{Path: dst, Scope: font.ScopeUser},
	}, "")
	require.NoError(t, err)

	reports, err := f.engine.Run(true)
	require.NoError(t, err)
	require.Len(t, reports, 1)

	assert.False(t, reports[0].Fixed)
	assert.False(t, reports[0].NeedsRepair)
	assert.Equal(t, StatusWouldRetry, reports[0].Steps[0].Status)
	assert.Equal(t, StatusWouldRetry, reports[0].Steps[1].Status)

	assert.NoFileExists(t, dst)
	assert.False(t, f.manager.IsInstalled(dst, font.ScopeUser))

	incomplete, err := f.store.Incomplete()
	require.NoError(t, err)
	require.Len(t, incomplete, 1)
	assert.EqualValues(t, 0, incomplete[0].CurrentStep)
}

func TestRecoverTwiceIsIdempotent(t *testing.T) {
	f := newFixture(t)

	src := f.writeFile(t, "in/a.ttf", []byte("fontdata"))
	dst := filepath.Join(f.dir, "out", "a.ttf")

	_, err := f.store.RecordOperation([]journal.Action{
		journal.CopyFile{From: src, To: dst},
	}, "")
	require.NoError(t, err)

	first, err := f.engine.Run(false)
	require.NoError(t, err)
	require.Len(t, first, 1)
	assert.True(t, first[0].Fixed)

	second, err := f.engine.Run(false)
	require.NoError(t, err)
	assert.Empty(t, second)
}

func TestRecoverOldestEntryFirst(t *testing.T) {
	f := newFixture(t)

	older, err := f.store.RecordOperation([]journal.Action{
		journal.DeleteFile{Path: filepath.Join(f.dir, "nope-1.ttf")},
	}, "older")
	require.NoError(t, err)

	newer, err := f.store.RecordOperation([]journal.Action{
		journal.DeleteFile{Path: filepath.Join(f.dir, "nope-2.ttf")},
	}, "newer")
	require.NoError(t, err)

	reports, err := f.engine.Run(false)
	require.NoError(t, err)
	require.Len(t, reports, 2)
	assert.Equal(t, older.ID, reports[0].EntryID)
	assert.Equal(t, newer.ID, reports[1].EntryID)
}
