package ops

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fontkeep/fontkeep/internal/font"
)

// installBoth places the same font at user and system scope.
func installBoth(t *testing.T, f *fixture, name string) (userPath, systemPath string) {
	t.Helper()
	for _, scope := range []font.Scope{font.ScopeUser, font.ScopeSystem} {
		path := filepath.Join(f.manager.InstallDir(scope), name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte("fontdata"), 0o644))
		require.NoError(t, f.manager.Register(path, scope))
	}
	return filepath.Join(f.manager.InstallDir(font.ScopeUser), name),
		filepath.Join(f.manager.InstallDir(font.ScopeSystem), name)
}

func TestUninstallTouchesUserScopeOnly(t *testing.T) {
	f := newFixture(t)
	userPath, systemPath := installBoth(t, f, "Inter-Bold.ttf")

	result, err := f.runner.Uninstall("Inter-Bold", UninstallOptions{})
	require.NoError(t, err)
	assert.NotEmpty(t, result.EntryID)

	assert.False(t, f.manager.IsInstalled(userPath, font.ScopeUser))
	assert.True(t, f.manager.IsInstalled(systemPath, font.ScopeSystem))

	// The file itself stays unless deletion was requested.
	assert.FileExists(t, userPath)
}

func TestUninstallNotInstalled(t *testing.T) {
	f := newFixture(t)

	_, err := f.runner.Uninstall("Nope-Regular", UninstallOptions{})

	var nErr *NotInstalledError
	require.ErrorAs(t, err, &nErr)
	assert.Equal(t, "Nope-Regular", nErr.Target)
	assert.Equal(t, font.ScopeUser, nErr.Scope)
}

func TestUninstallProtectedPath(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.manager.Register("/usr/share/fonts/DejaVuSans.ttf", font.ScopeUser))

	_, err := f.runner.Uninstall("DejaVuSans", UninstallOptions{})

	var pErr *font.ProtectionError
	require.ErrorAs(t, err, &pErr)
}

func TestUninstallDryRun(t *testing.T) {
	f := newFixture(t)
	userPath, _ := installBoth(t, f, "Inter-Bold.ttf")

	result, err := f.runner.Uninstall("Inter-Bold", UninstallOptions{DryRun: true})
	require.NoError(t, err)
	assert.True(t, result.DryRun)
	require.Len(t, result.Plan, 1)

	assert.True(t, f.manager.IsInstalled(userPath, font.ScopeUser))

	entries, err := f.store.Entries()
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestRemoveDeletesFile(t *testing.T) {
	f := newFixture(t)
	userPath, _ := installBoth(t, f, "Inter-Bold.ttf")

	result, err := f.runner.Remove("Inter-Bold", UninstallOptions{})
	require.NoError(t, err)
	require.Len(t, result.Plan, 2)

	assert.False(t, f.manager.IsInstalled(userPath, font.ScopeUser))
	assert.NoFileExists(t, userPath)
}

func TestCleanupPrunesAndFlushes(t *testing.T) {
	f := newFixture(t)
	f.policy.JournalMaxAgeHours = 0

	// A registration whose file is gone.
	require.NoError(t, f.manager.Register(filepath.Join(f.dir, "vanished.ttf"), font.ScopeUser))

	// A completed journal entry eligible for pruning.
	src := f.writeFont(t, "a.ttf", "x")
	_, err := f.runner.Install(context.Background(), []string{src},
		InstallOptions{NoValidate: true})
	require.NoError(t, err)

	before := f.manager.CacheGeneration(font.ScopeUser)

	result, err := f.runner.Cleanup(CleanupOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, result.PrunedRegistrations)
	assert.Equal(t, 1, result.PrunedJournalEntries)
	assert.True(t, result.CacheCleared)
	assert.Equal(t, before+1, f.manager.CacheGeneration(font.ScopeUser))
}

func TestCleanupPruneOnlySkipsCache(t *testing.T) {
	f := newFixture(t)
	before := f.manager.CacheGeneration(font.ScopeUser)

	result, err := f.runner.Cleanup(CleanupOptions{PruneOnly: true})
	require.NoError(t, err)
	assert.False(t, result.CacheCleared)
	assert.Equal(t, before, f.manager.CacheGeneration(font.ScopeUser))
}

func TestCleanupCacheOnlySkipsPruning(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.manager.Register(filepath.Join(f.dir, "vanished.ttf"), font.ScopeUser))

	result, err := f.runner.Cleanup(CleanupOptions{CacheOnly: true})
	require.NoError(t, err)
	assert.Equal(t, 0, result.PrunedRegistrations)
	assert.True(t, result.CacheCleared)

	installed, err := f.manager.Installed()
	require.NoError(t, err)
	assert.Len(t, installed, 1)
}

func TestListDeterministicOrder(t *testing.T) {
	f := newFixture(t)

	for _, name := range []string{"Zilla-Bold.ttf", "Alpha-Regular.ttf"} {
		path := filepath.Join(f.manager.InstallDir(font.ScopeUser), name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
		require.NoError(t, f.manager.Register(path, font.ScopeUser))
	}

	faces, err := f.runner.List(ListOptions{})
	require.NoError(t, err)
	require.Len(t, faces, 2)
	assert.Equal(t, "Alpha-Regular", faces[0].PostScriptName)
	assert.Equal(t, "Zilla-Bold", faces[1].PostScriptName)

	again, err := f.runner.List(ListOptions{})
	require.NoError(t, err)
	assert.Equal(t, faces, again)
}
