package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/wasmbridge/internal/bridge"
	"github.com/roach88/wasmbridge/internal/payload"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, float64(60), cfg.TickRate)
	assert.Equal(t, "one", cfg.Drain)
	assert.Equal(t, "json", cfg.Format)
	assert.Equal(t, int64(1<<20), cfg.MaxBytes)
	assert.Equal(t, "*.json", cfg.Pattern)
	assert.Equal(t, bridge.DrainOne, cfg.Policy())
}

func TestLoad_OverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "bridge.yaml", `
tick_rate: 30
drain: all
journal: data/journal.db
watch_dir: /abs/uploads
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, float64(30), cfg.TickRate)
	assert.Equal(t, bridge.DrainAll, cfg.Policy())
	assert.Equal(t, "json", cfg.Format, "unset keys keep defaults")
	assert.Equal(t, filepath.Join(dir, "data/journal.db"), cfg.Journal, "relative paths resolve against the file")
	assert.Equal(t, "/abs/uploads", cfg.WatchDir)
}

func TestLoad_EmptyFile(t *testing.T) {
	path := writeFile(t, t.TempDir(), "empty.yaml", "")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_UnknownKey(t *testing.T) {
	path := writeFile(t, t.TempDir(), "bad.yaml", "tick_rat: 30\n")

	_, err := Load(path)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "tick_rat")
}

func TestLoad_Missing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate_ReportsAllProblems(t *testing.T) {
	cfg := Config{
		TickRate: 0,
		Drain:    "some",
		Format:   "toml",
		Schema:   "schema.cue",
		MaxBytes: -1,
		Pattern:  "[",
	}

	err := cfg.Validate()
	require.Error(t, err)
	for _, want := range []string{"tick_rate", "drain policy", "format", "schema", "max_bytes", "pattern"} {
		assert.Contains(t, err.Error(), want)
	}
}

func TestDecoder_FromConfig(t *testing.T) {
	cfg := Default()
	dec, err := Decoder[payload.Example](cfg)
	require.NoError(t, err)
	assert.Equal(t, payload.FormatJSON, dec.Format())

	cfg.Format = payload.FormatYAML
	dec, err = Decoder[payload.Example](cfg)
	require.NoError(t, err)
	assert.Equal(t, payload.FormatYAML, dec.Format())
}

func TestDecoder_CUESchemaFile(t *testing.T) {
	dir := t.TempDir()
	cfg := Default()
	cfg.Format = payload.FormatCUE
	cfg.Schema = writeFile(t, dir, "schema.cue", "field1: [>=0, >=0, >=0, >=0]\n")

	dec, err := Decoder[payload.Example](cfg)
	require.NoError(t, err)

	_, err = dec.Decode(`{"field1":[1,2,3,4]}`)
	assert.NoError(t, err)
	_, err = dec.Decode(`{"field1":[-1,2,3,4]}`)
	assert.Error(t, err, "schema constraint applies")
}

func TestDecoder_MissingSchemaFile(t *testing.T) {
	cfg := Default()
	cfg.Format = payload.FormatCUE
	cfg.Schema = filepath.Join(t.TempDir(), "missing.cue")

	_, err := Decoder[payload.Example](cfg)
	assert.Error(t, err)
}
