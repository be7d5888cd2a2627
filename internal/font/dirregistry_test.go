package font

import (
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRegistry(t *testing.T) (*DirRegistry, afero.Fs) {
	t.Helper()
	fs := afero.NewOsFs()
	return NewDirRegistry(fs, filepath.Join(t.TempDir(), "registry")), fs
}

func writeFont(t *testing.T, fs afero.Fs, path string) {
	t.Helper()
	require.NoError(t, fs.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, afero.WriteFile(fs, path, []byte("fake font bytes"), 0o644))
}

func TestDirRegistryRegisterAndQuery(t *testing.T) {
	reg, fs := newTestRegistry(t)
	src := filepath.Join(t.TempDir(), "Inter-Bold.ttf")
	writeFont(t, fs, src)

	require.NoError(t, reg.Register(src, ScopeUser))

	assert.True(t, reg.IsInstalled(src, ScopeUser))
	assert.True(t, reg.IsInstalled("Inter-Bold", ScopeUser))
	assert.False(t, reg.IsInstalled(src, ScopeSystem))

	installed, err := reg.Installed()
	require.NoError(t, err)
	require.Len(t, installed, 1)
	assert.Equal(t, ScopeUser, installed[0].Scope)
}

func TestDirRegistryRegisterIdempotent(t *testing.T) {
	reg, fs := newTestRegistry(t)
	src := filepath.Join(t.TempDir(), "a.ttf")
	writeFont(t, fs, src)

	require.NoError(t, reg.Register(src, ScopeUser))
	require.NoError(t, reg.Register(src, ScopeUser))

	installed, err := reg.Installed()
	require.NoError(t, err)
	assert.Len(t, installed, 1)
}

func TestDirRegistryUnregister(t *testing.T) {
	reg, fs := newTestRegistry(t)
	src := filepath.Join(t.TempDir(), "a.ttf")
	writeFont(t, fs, src)

	require.NoError(t, reg.Register(src, ScopeUser))
	require.NoError(t, reg.Unregister(src, ScopeUser))
	assert.False(t, reg.IsInstalled(src, ScopeUser))

	// Unregistering again reports a registration error
	err := reg.Unregister(src, ScopeUser)
	var regErr *RegistrationError
	assert.ErrorAs(t, err, &regErr)
}

func TestDirRegistryScopesAreIndependent(t *testing.T) {
	reg, fs := newTestRegistry(t)
	src := filepath.Join(t.TempDir(), "a.ttf")
	writeFont(t, fs, src)

	require.NoError(t, reg.Register(src, ScopeUser))
	require.NoError(t, reg.Register(src, ScopeSystem))

	require.NoError(t, reg.Unregister(src, ScopeUser))

	assert.False(t, reg.IsInstalled(src, ScopeUser))
	assert.True(t, reg.IsInstalled(src, ScopeSystem))
}

func TestDirRegistryRecordFaceReplacesPlaceholder(t *testing.T) {
	reg, fs := newTestRegistry(t)
	src := filepath.Join(t.TempDir(), "odd-filename.ttf")
	writeFont(t, fs, src)

	require.NoError(t, reg.Register(src, ScopeUser))

	require.NoError(t, reg.RecordFace(FaceInfo{
		PostScriptName: "Helvetica-Bold",
		FullName:       "Helvetica Bold",
		FamilyName:     "Helvetica",
		StyleName:      "Bold",
		Weight:         700,
		Format:         "TrueType",
		Path:           src,
		Scope:          ScopeUser,
	}))

	installed, err := reg.Installed()
	require.NoError(t, err)
	require.Len(t, installed, 1)
	assert.Equal(t, "Helvetica-Bold", installed[0].PostScriptName)
	assert.EqualValues(t, 700, installed[0].Weight)

	// Queries now match the recorded name, not the filename stem.
	assert.True(t, reg.IsInstalled("Helvetica-Bold", ScopeUser))
	assert.True(t, reg.IsInstalled(src, ScopeUser))
}

func TestDirRegistryRecordFaceAddsMissingEntry(t *testing.T) {
	reg, fs := newTestRegistry(t)
	src := filepath.Join(t.TempDir(), "a.ttf")
	writeFont(t, fs, src)

	require.NoError(t, reg.RecordFace(FaceInfo{
		PostScriptName: "Alpha-Regular",
		FamilyName:     "Alpha",
		StyleName:      "Regular",
		Path:           src,
		Scope:          ScopeUser,
	}))

	assert.True(t, reg.IsInstalled("Alpha-Regular", ScopeUser))
}

func TestDirRegistryCopyIntoScope(t *testing.T) {
	reg, fs := newTestRegistry(t)
	src := filepath.Join(t.TempDir(), "a.ttf")
	writeFont(t, fs, src)

	dst, err := reg.CopyIntoScope(src, ScopeUser)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(reg.InstallDir(ScopeUser), "a.ttf"), dst)

	data, err := afero.ReadFile(fs, dst)
	require.NoError(t, err)
	assert.Equal(t, "fake font bytes", string(data))
}

func TestDirRegistryDeleteMissingIsNoError(t *testing.T) {
	reg, _ := newTestRegistry(t)
	assert.NoError(t, reg.Delete(filepath.Join(t.TempDir(), "gone.ttf")))
}

func TestDirRegistryClearCacheBumpsGeneration(t *testing.T) {
	reg, _ := newTestRegistry(t)

	require.NoError(t, reg.ClearCache(ScopeUser))
	require.NoError(t, reg.ClearCache(ScopeUser))

	assert.EqualValues(t, 2, reg.CacheGeneration(ScopeUser))
	assert.EqualValues(t, 0, reg.CacheGeneration(ScopeSystem))
}

func TestDirRegistryPruneMissing(t *testing.T) {
	reg, fs := newTestRegistry(t)
	keep := filepath.Join(t.TempDir(), "keep.ttf")
	gone := filepath.Join(t.TempDir(), "gone.ttf")
	writeFont(t, fs, keep)
	writeFont(t, fs, gone)

	require.NoError(t, reg.Register(keep, ScopeUser))
	require.NoError(t, reg.Register(gone, ScopeUser))
	require.NoError(t, fs.Remove(gone))

	pruned, err := reg.PruneMissing(ScopeUser)
	require.NoError(t, err)
	assert.Equal(t, 1, pruned)
	assert.True(t, reg.IsInstalled(keep, ScopeUser))
	assert.False(t, reg.IsInstalled(gone, ScopeUser))
}
