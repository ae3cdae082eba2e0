package infrastructure

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkspaceFactory_CreateUnique(t *testing.T) {
	base := t.TempDir()
	factory := NewWorkspaceFactory(base)

	first, err := factory.Create()
	require.NoError(t, err)
	second, err := factory.Create()
	require.NoError(t, err)

	assert.NotEqual(t, first.ID, second.ID)
	assert.NotEqual(t, first.Dir, second.Dir)
	assert.Equal(t, base, filepath.Dir(first.Dir))
	assert.True(t, strings.HasPrefix(filepath.Base(first.Dir), "vdl-"+first.ID))
	assert.DirExists(t, first.Dir)
	assert.DirExists(t, second.Dir)
}

func TestWorkspace_Cleanup(t *testing.T) {
	factory := NewWorkspaceFactory(t.TempDir())

	ws, err := factory.Create()
	require.NoError(t, err)
	writeFile(t, filepath.Join(ws.Dir, "media.webm"), "raw")
	writeFile(t, filepath.Join(ws.Dir, "normalized.mp4"), "out")

	require.NoError(t, ws.Cleanup())
	_, err = os.Stat(ws.Dir)
	assert.True(t, os.IsNotExist(err))

	// second cleanup is a no-op
	assert.NoError(t, ws.Cleanup())
}

func TestWorkspaceFactory_CreatesMissingBase(t *testing.T) {
	base := filepath.Join(t.TempDir(), "nested", "tmp")
	factory := NewWorkspaceFactory(base)

	ws, err := factory.Create()
	require.NoError(t, err)
	assert.DirExists(t, ws.Dir)
	assert.Equal(t, base, factory.BaseDir())
}

func TestWorkspaceFactory_DefaultsToTempDir(t *testing.T) {
	assert.Equal(t, os.TempDir(), NewWorkspaceFactory("").BaseDir())
}
