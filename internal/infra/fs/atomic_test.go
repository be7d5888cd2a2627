package fs

import (
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteFileAtomic(t *testing.T) {
	fs := afero.NewMemMapFs()
	path := filepath.Join("state", "journal.json")

	err := WriteFileAtomic(fs, path, []byte(`{"entries":[]}`))
	require.NoError(t, err)

	data, err := afero.ReadFile(fs, path)
	require.NoError(t, err)
	assert.Equal(t, `{"entries":[]}`, string(data))
}

func TestWriteFileAtomicOverwrites(t *testing.T) {
	fs := afero.NewMemMapFs()
	path := "journal.json"

	require.NoError(t, WriteFileAtomic(fs, path, []byte("old")))
	require.NoError(t, WriteFileAtomic(fs, path, []byte("new")))

	data, err := afero.ReadFile(fs, path)
	require.NoError(t, err)
	assert.Equal(t, "new", string(data))
}

func TestWriteFileAtomicLeavesNoTempFiles(t *testing.T) {
	fs := afero.NewMemMapFs()
	dir := "state"
	require.NoError(t, WriteFileAtomic(fs, filepath.Join(dir, "a.json"), []byte("x")))

	infos, err := afero.ReadDir(fs, dir)
	require.NoError(t, err)
	for _, info := range infos {
		assert.NotContains(t, info.Name(), ".tmp-")
	}
}

func TestWriteJSONAtomic(t *testing.T) {
	fs := afero.NewMemMapFs()
	path := "out.json"

	err := WriteJSONAtomic(fs, path, map[string]int{"steps": 3})
	require.NoError(t, err)

	data, err := afero.ReadFile(fs, path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"steps": 3`)
}
