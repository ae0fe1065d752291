package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HENNGE/lambda-container-example/internal/mapping"
	"github.com/HENNGE/lambda-container-example/internal/reconcile"
	"github.com/HENNGE/lambda-container-example/internal/snapshot"
	"github.com/HENNGE/lambda-container-example/internal/stream"
	"github.com/HENNGE/lambda-container-example/internal/testutil"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const yamlConfig = `
keys:
  hash: PK
  range: SK
mapping:
  mode: fields
  hash_field: owner
  fields:
    - name: title
      type: text
    - name: tags
      source: Tags
      type: string_set
exclude:
  keys:
    - 'range_key == "draft"'
index:
  name: entities
  batch_size: 500
  timeout: 5s
replica:
  path: /tmp/replica.db
`

const cueConfig = `
keys: {
	hash:  "PK"
	range: "SK"
}
mapping: {
	mode:       "fields"
	hash_field: "owner"
	fields: [
		{name: "title", type: "text"},
		{name: "tags", source: "Tags", type: "string_set"},
	]
}
exclude: keys: ["range_key == \"draft\""]
index: {
	name:       "entities"
	batch_size: 500
	timeout:    "5s"
}
replica: path: "/tmp/replica.db"
`

func TestLoadFormatsAgree(t *testing.T) {
	fromYAML, err := Load(writeFile(t, "c.yaml", yamlConfig))
	require.NoError(t, err)
	fromCUE, err := Load(writeFile(t, "c.cue", cueConfig))
	require.NoError(t, err)

	assert.Equal(t, fromYAML, fromCUE)
	assert.Equal(t, Keys{Hash: "PK", Range: "SK"}, fromYAML.Keys)
	assert.Equal(t, []mapping.Field{
		{Name: "title", Type: mapping.TypeText},
		{Name: "tags", Source: "Tags", Type: mapping.TypeStringSet},
	}, fromYAML.Mapping.Fields)
	assert.Equal(t, ":8080", fromYAML.Server.Addr, "defaults survive")
}

func TestLoadJSON(t *testing.T) {
	cfg, err := Load(writeFile(t, "c.json", `{"keys":{"hash":"A","range":"B"},"server":{"addr":":9090"}}`))
	require.NoError(t, err)
	assert.Equal(t, "A", cfg.Keys.Hash)
	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, ModePassthrough, cfg.Mapping.Mode)
}

func TestLoadEmptyYAMLIsDefault(t *testing.T) {
	cfg, err := Load(writeFile(t, "c.yml", ""))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	tests := []struct {
		name, content string
		format        Format
	}{
		{"c.yaml", "keys:\n  hsah: X\n", FormatYAML},
		{"c.json", `{"sever":{}}`, FormatJSON},
		{"c.cue", `index: {nmae: "x"}`, FormatCUE},
	}
	for _, tt := range tests {
		_, err := Load(writeFile(t, tt.name, tt.content))
		var le *LoadError
		require.ErrorAs(t, err, &le, tt.name)
		assert.Equal(t, tt.format, le.Format)
	}
}

func TestLoadCUESchemaConstraints(t *testing.T) {
	_, err := Load(writeFile(t, "c.cue", `index: batch_size: 0`))
	assert.ErrorContains(t, err, "validate cue")

	_, err = Load(writeFile(t, "c.cue", `mapping: {mode: "fields", fields: [{name: "x", type: "date"}]}`))
	assert.ErrorContains(t, err, "validate cue")
}

func TestLoadErrors(t *testing.T) {
	_, err := Load("config.toml")
	assert.ErrorContains(t, err, "unsupported extension")

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{"default", func(*Config) {}, ""},
		{"same keys", func(c *Config) { c.Keys.Range = c.Keys.Hash }, "must differ"},
		{"empty key", func(c *Config) { c.Keys.Hash = "" }, "required"},
		{"bad mode", func(c *Config) { c.Mapping.Mode = "magic" }, "unknown mode"},
		{"fields without mode", func(c *Config) { c.Mapping.Fields = []mapping.Field{{Name: "x"}} }, "require mode"},
		{"fields mode without fields", func(c *Config) { c.Mapping.Mode = ModeFields }, "at least one field"},
		{"bad timeout", func(c *Config) { c.Index.Timeout = "soon" }, "timeout"},
		{"negative batch", func(c *Config) { c.Index.BatchSize = -1 }, "batch_size"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.errMsg == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.errMsg)
		})
	}
}

func TestFromEnv(t *testing.T) {
	env := map[string]string{
		EnvAppID:      "APP",
		EnvAPIKey:     "KEY",
		EnvIndexName:  "override",
		EnvRuntimeAPI: "127.0.0.1:9001",
		EnvReplica:    "/data/r.db",
	}
	cfg := Default()
	cfg.Index.Name = "from-file"
	cfg.FromEnv(func(k string) string { return env[k] })

	assert.Equal(t, "APP", cfg.Index.AppID)
	assert.Equal(t, "KEY", cfg.Index.APIKey)
	assert.Equal(t, "override", cfg.Index.Name)
	assert.Equal(t, "127.0.0.1:9001", cfg.RuntimeAPI)
	assert.Equal(t, "/data/r.db", cfg.Replica.Path)
	assert.True(t, cfg.Index.Enabled())

	ic, err := cfg.IndexConfig()
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, ic.Timeout)
	assert.Equal(t, "override", ic.IndexName)
}

func TestFromEnvKeepsFileIndexName(t *testing.T) {
	cfg := Default()
	cfg.Index.Name = "from-file"
	cfg.FromEnv(func(string) string { return "" })
	assert.Equal(t, "from-file", cfg.Index.Name)
	assert.Empty(t, cfg.Index.APIKey)
}

func TestValidatorFromConfig(t *testing.T) {
	cfg, err := Load(writeFile(t, "c.yaml", yamlConfig))
	require.NoError(t, err)

	v, err := cfg.Validator()
	require.NoError(t, err)

	rec := testutil.NewRecordBuilder().Insert("ignored", "ignored", nil)
	rec.Change.Keys = stream.Image{"PK": stream.Str("user#1"), "SK": stream.Str("profile")}
	rec.Change.NewImage = stream.Image{"title": stream.Str("Café"), "Tags": stream.StringSet("b", "a")}

	raw, err := v.Validate(rec)
	require.NoError(t, err)
	assert.Equal(t, reconcile.EntityKey{Hash: "user#1", Range: "profile"}, raw.Key)
	assert.Equal(t, snapshot.String("user#1"), raw.New["owner"])
	assert.Equal(t, snapshot.String("Café"), raw.New["title"])

	draft := testutil.NewRecordBuilder().Insert("x", "y", nil)
	draft.Change.Keys = stream.Image{"PK": stream.Str("user#1"), "SK": stream.Str("draft")}
	draft.Change.NewImage = testutil.Image("title", "t")
	_, err = v.Validate(draft)
	assert.True(t, reconcile.IsExcluded(err))
}

func TestPassthroughOmitsKeysByDefault(t *testing.T) {
	cfg := Default()
	m, err := cfg.Mapper()
	require.NoError(t, err)
	assert.Equal(t, mapping.Passthrough{Omit: []string{"H", "R"}}, m)

	rules, err := cfg.Rules()
	require.NoError(t, err)
	assert.Nil(t, rules)
}

func TestBadRulesFailBuild(t *testing.T) {
	cfg := Default()
	cfg.Exclude.Keys = []string{"hash_key +"}
	_, err := cfg.Validator()
	assert.ErrorContains(t, err, "exclude")
}
