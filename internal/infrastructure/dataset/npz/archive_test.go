package npz

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/MolGraph/pkg/errors"
)

func TestReadBytes(t *testing.T) {
	a, err := ReadBytes(datasetArchive(t))
	require.NoError(t, err)

	assert.Equal(t, []string{"N", "R", "U0", "Z", "foo", "id"}, a.Names())
	assert.True(t, a.Has("R"))
	assert.False(t, a.Has("mu"))

	r, err := a.Array("R")
	require.NoError(t, err)
	assert.Equal(t, []int{2, 3, 3}, r.Shape)
	assert.Equal(t, DType("<f4"), r.DType)
}

func TestArchive_MissingMember(t *testing.T) {
	a, err := ReadBytes(datasetArchive(t))
	require.NoError(t, err)

	_, err = a.Array("Cv")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeArchiveMissingKey))
	assert.True(t, errors.IsNotFound(err))
}

func TestReadBytes_NotAZip(t *testing.T) {
	_, err := ReadBytes([]byte("definitely not a zip"))
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeArchiveFormat))
}

func TestReadBytes_CorruptMember(t *testing.T) {
	data := zipBytes(t, map[string][]byte{"R": []byte("garbage")})
	_, err := ReadBytes(data)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeArchiveFormat))
}

func TestReadBytes_ShapeBeyondMember(t *testing.T) {
	data := zipBytes(t, map[string][]byte{
		"R": npyBytes(t, 1, "<f8", false, []int{2305843009213693952, 2}, make([]byte, 16)),
	})
	a, err := ReadBytes(data)
	require.Error(t, err)
	assert.Nil(t, a)
	assert.True(t, errors.IsCode(err, errors.ErrCodeArchiveFormat), err.Error())
}

func TestOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "qm9.npz")
	require.NoError(t, os.WriteFile(path, datasetArchive(t), 0o600))

	a, err := Open(path)
	require.NoError(t, err)
	assert.Len(t, a.Names(), 6)
}

func TestOpen_MissingFile(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "absent.npz"))
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeArchiveFormat))
}
