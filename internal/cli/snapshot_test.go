package cli

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loomworks/loom/internal/digest"
)

func TestSnapshot_CapturesFiles(t *testing.T) {
	configDir := setupProject(t, map[string]string{
		"src/a.txt": "alpha",
	}, "")

	out, err := execute(t, "--format", "json", "snapshot", "--config", configDir, "src/a.txt")
	require.NoError(t, err)

	var resp Response
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Equal(t, "ok", resp.Status)

	data, ok := resp.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, float64(1), data["entries"])

	want := digest.MustManifest(map[string]any{"src/a.txt": digest.Blob([]byte("alpha"))})
	assert.Equal(t, want, data["digest"])
}

func TestSnapshot_MissingFileFails(t *testing.T) {
	configDir := setupProject(t, nil, "")

	_, err := execute(t, "snapshot", "--config", configDir, "ghost.txt")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, err.Error(), "failed to capture snapshot")
}

func TestSnapshot_RequiresConfigFlag(t *testing.T) {
	_, err := execute(t, "snapshot", "a.txt")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config")
}
