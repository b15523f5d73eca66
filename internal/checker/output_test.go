package checker

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteOutput_Appends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "github_output")
	require.NoError(t, os.WriteFile(path, []byte("other=1\n"), 0o644))

	require.NoError(t, WriteOutput(path, "status", "PASS"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "other=1\nstatus=PASS\n", string(data))
}

func TestWriteOutput_MultiLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "github_output")

	require.NoError(t, WriteOutput(path, "status", "a\nb"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "status<<SCHEMACHECK_EOF\na\nb\nSCHEMACHECK_EOF\n", string(data))
}

func TestWriteOutput_BadPath(t *testing.T) {
	err := WriteOutput(filepath.Join(t.TempDir(), "missing", "out"), "status", "PASS")
	assert.Error(t, err)
}
