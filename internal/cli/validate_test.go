package cli

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runValidateCmd(t *testing.T, rootOpts *RootOptions, args ...string) (*bytes.Buffer, error) {
	t.Helper()
	if rootOpts.Getenv == nil {
		rootOpts.Getenv = env(nil)
	}
	out := &bytes.Buffer{}
	cmd := NewValidateCommand(rootOpts)
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	return out, cmd.Execute()
}

const validConfig = `keys:
  hash: pk
  range: sk
exclude:
  origins: ['table endsWith "-archive"']
  keys: ['hash_key startsWith "tmp#"', 'range_key == "draft"']
replica:
  path: ./replica.db
`

func TestValidateValidConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cdcsync.yaml")
	require.NoError(t, writeFile(path, validConfig))

	out, err := runValidateCmd(t, &RootOptions{Format: "text"}, path)
	require.NoError(t, err)

	text := out.String()
	assert.Contains(t, text, "✓ Configuration valid: "+path)
	assert.Contains(t, text, "mapping: passthrough")
	assert.Contains(t, text, "exclude: 1 origin rule(s), 2 key rule(s)")
	assert.Contains(t, text, "downstream: sqlite:./replica.db")
	assert.NotContains(t, text, "warning:")
}

func TestValidateUsesConfigFlag(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cdcsync.yaml")
	require.NoError(t, writeFile(path, validConfig))

	out, err := runValidateCmd(t, &RootOptions{Format: "text", ConfigPath: path})
	require.NoError(t, err)
	assert.Contains(t, out.String(), "✓ Configuration valid: "+path)
}

func TestValidateJSONWarnings(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cdcsync.yaml")
	require.NoError(t, writeFile(path, "index:\n  name: entities\n"))

	out, err := runValidateCmd(t, &RootOptions{Format: "json"}, path)
	require.NoError(t, err)

	var resp struct {
		Status string           `json:"status"`
		Data   ValidationResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &resp))

	assert.Equal(t, "ok", resp.Status)
	assert.True(t, resp.Data.Valid)
	assert.Equal(t, "yaml", resp.Data.Format)
	assert.Equal(t, []string{"index:entities"}, resp.Data.Downstreams)
	require.Len(t, resp.Data.Warnings, 1)
	assert.Contains(t, resp.Data.Warnings[0], "app id, api key")
}

func TestValidateEnvironmentEnablesDownstreams(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cdcsync.yaml")
	require.NoError(t, writeFile(path, "keys:\n  hash: pk\n  range: sk\n"))

	getenv := env(map[string]string{
		"ALGOLIA_APP_ID":     "app",
		"ALGOLIA_API_KEY":    "key",
		"ALGOLIA_INDEX_NAME": "entities",
		"CDCSYNC_REPLICA":    "/tmp/replica.db",
	})
	out, err := runValidateCmd(t, &RootOptions{Format: "text", Getenv: getenv}, path)
	require.NoError(t, err)

	text := out.String()
	assert.Contains(t, text, "downstream: index:entities")
	assert.Contains(t, text, "downstream: sqlite:/tmp/replica.db")
	assert.NotContains(t, text, "warning:")
}

func TestValidateNoDownstreamWarning(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cdcsync.yaml")
	require.NoError(t, writeFile(path, "keys:\n  hash: pk\n  range: sk\n"))

	out, err := runValidateCmd(t, &RootOptions{Format: "text"}, path)
	require.NoError(t, err)
	assert.Contains(t, out.String(), "warning: no downstream configured; batches will fail with MISSING_CONFIG")
}

func TestValidateInvalidConfig(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantMsg string
	}{
		{
			name:    "unknown field",
			content: "keyz:\n  hash: pk\n",
			wantMsg: "keyz",
		},
		{
			name:    "bad exclusion rule",
			content: "exclude:\n  keys: ['hash_key ==']\n",
			wantMsg: "exclude",
		},
		{
			name:    "same key attributes",
			content: "keys:\n  hash: pk\n  range: pk\n",
			wantMsg: "hash and range must differ",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "cdcsync.yaml")
			require.NoError(t, writeFile(path, tt.content))

			out, err := runValidateCmd(t, &RootOptions{Format: "text"}, path)
			require.Error(t, err)
			assert.Equal(t, ExitFailure, GetExitCode(err))
			assert.Contains(t, out.String(), "✗ Validation failed: "+path)
			assert.Contains(t, out.String(), tt.wantMsg)
		})
	}
}

func TestValidateInvalidConfigJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cdcsync.yaml")
	require.NoError(t, writeFile(path, "mapping:\n  mode: magic\n"))

	out, err := runValidateCmd(t, &RootOptions{Format: "json"}, path)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(out.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeConfig, resp.Error.Code)
}

func TestValidateCommandErrors(t *testing.T) {
	t.Run("no file", func(t *testing.T) {
		out, err := runValidateCmd(t, &RootOptions{Format: "text"})
		require.Error(t, err)
		assert.Equal(t, ExitCommandError, GetExitCode(err))
		assert.Contains(t, out.String(), "no configuration file given")
	})

	t.Run("missing file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "missing.yaml")
		out, err := runValidateCmd(t, &RootOptions{Format: "text"}, path)
		require.Error(t, err)
		assert.Equal(t, ExitCommandError, GetExitCode(err))
		assert.Contains(t, out.String(), "configuration file not found")
	})
}
