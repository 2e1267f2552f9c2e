package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestString(t *testing.T) {
	cfg := New(map[string]any{"name": "alertflow", "count": 42})

	assert.Equal(t, "alertflow", cfg.String("name", "default"))
	assert.Equal(t, "default", cfg.String("missing", "default"))
	assert.Equal(t, "default", cfg.String("count", "default"))
}

func TestDuration(t *testing.T) {
	cfg := New(map[string]any{
		"str":      "5m",
		"int":      30,
		"int64":    int64(60),
		"float":    1.5,
		"duration": 2 * time.Second,
		"bad":      "not a duration",
	})

	assert.Equal(t, 5*time.Minute, cfg.Duration("str", 0))
	assert.Equal(t, 30*time.Second, cfg.Duration("int", 0))
	assert.Equal(t, time.Minute, cfg.Duration("int64", 0))
	assert.Equal(t, 1500*time.Millisecond, cfg.Duration("float", 0))
	assert.Equal(t, 2*time.Second, cfg.Duration("duration", 0))
	assert.Equal(t, time.Hour, cfg.Duration("bad", time.Hour))
	assert.Equal(t, time.Hour, cfg.Duration("missing", time.Hour))
}

func TestBool(t *testing.T) {
	cfg := New(map[string]any{"enabled": true, "str": "yes"})

	assert.True(t, cfg.Bool("enabled", false))
	assert.False(t, cfg.Bool("missing", false))
	assert.True(t, cfg.Bool("str", true))
}

func TestInt(t *testing.T) {
	cfg := New(map[string]any{
		"int":      7,
		"int64":    int64(8),
		"whole":    9.0,
		"fraction": 9.5,
	})

	assert.Equal(t, 7, cfg.Int("int", 0))
	assert.Equal(t, 8, cfg.Int("int64", 0))
	assert.Equal(t, 9, cfg.Int("whole", 0))
	assert.Equal(t, -1, cfg.Int("fraction", -1))
	assert.Equal(t, -1, cfg.Int("missing", -1))
}

func TestFloat(t *testing.T) {
	cfg := New(map[string]any{"f": 2.5, "i": 3, "i64": int64(4)})

	assert.Equal(t, 2.5, cfg.Float("f", 0))
	assert.Equal(t, 3.0, cfg.Float("i", 0))
	assert.Equal(t, 4.0, cfg.Float("i64", 0))
	assert.Equal(t, 1.0, cfg.Float("missing", 1.0))
}

func TestStringSlice(t *testing.T) {
	cfg := New(map[string]any{
		"strings": []string{"a", "b"},
		"anys":    []any{"c", "d"},
		"mixed":   []any{"e", 1},
	})

	assert.Equal(t, []string{"a", "b"}, cfg.StringSlice("strings", nil))
	assert.Equal(t, []string{"c", "d"}, cfg.StringSlice("anys", nil))
	assert.Nil(t, cfg.StringSlice("mixed", nil))
	assert.Equal(t, []string{"x"}, cfg.StringSlice("missing", []string{"x"}))
}

func TestSub(t *testing.T) {
	cfg := New(map[string]any{
		"webhook": map[string]any{"url": "https://example.com/hook"},
		"scalar":  5,
	})

	assert.Equal(t, "https://example.com/hook", cfg.Sub("webhook").String("url", ""))
	assert.Equal(t, "", cfg.Sub("scalar").String("url", ""))
	assert.Equal(t, "", cfg.Sub("missing").String("url", ""))
}

func TestHasAndAny(t *testing.T) {
	cfg := New(map[string]any{"key": nil})

	assert.True(t, cfg.Has("key"))
	assert.False(t, cfg.Has("other"))
	assert.Nil(t, cfg.Any("key", "default"))
	assert.Equal(t, "default", cfg.Any("other", "default"))
}

func TestNewNil(t *testing.T) {
	cfg := New(nil)
	assert.NotNil(t, cfg.Raw())
	assert.Equal(t, "fallback", cfg.String("anything", "fallback"))
}

func TestFromYAML(t *testing.T) {
	cfg, err := FromYAML([]byte(`
store:
  path: ./events.db
rules:
  - name: burst
    kind: error_rate
`))
	require.NoError(t, err)
	assert.Equal(t, "./events.db", cfg.Sub("store").String("path", ""))
	assert.True(t, cfg.Has("rules"))

	_, err = FromYAML([]byte("{invalid"))
	require.Error(t, err)
}

func TestFromJSON(t *testing.T) {
	cfg, err := FromJSON([]byte(`{"store": {"path": "./events.db"}}`))
	require.NoError(t, err)
	assert.Equal(t, "./events.db", cfg.Sub("store").String("path", ""))

	_, err = FromJSON([]byte("not json"))
	require.Error(t, err)
}

func TestFromFile(t *testing.T) {
	dir := t.TempDir()

	yamlPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(yamlPath, []byte("name: alertflow\n"), 0o644))
	cfg, err := FromFile(yamlPath)
	require.NoError(t, err)
	assert.Equal(t, "alertflow", cfg.String("name", ""))

	jsonPath := filepath.Join(dir, "config.json")
	require.NoError(t, os.WriteFile(jsonPath, []byte(`{"name": "alertflow"}`), 0o644))
	cfg, err = FromFile(jsonPath)
	require.NoError(t, err)
	assert.Equal(t, "alertflow", cfg.String("name", ""))

	_, err = FromFile(filepath.Join(dir, "config.toml"))
	require.Error(t, err)

	_, err = FromFile(filepath.Join(dir, "missing.yaml"))
	require.Error(t, err)
}
