package file

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfigStore_Success(t *testing.T) {
	tmpDir := t.TempDir()

	store, err := NewConfigStore(tmpDir)

	require.NoError(t, err)
	require.NotNil(t, store)
	assert.Equal(t, filepath.Join(tmpDir, "config.toml"), store.Path())
}

func TestNewConfigStore_MkdirAllError(t *testing.T) {
	store, err := NewConfigStore("/dev/null/cannot/create/dirs")

	assert.Error(t, err)
	assert.Nil(t, store)
}

func TestNewConfigStore_LoadCorruptedFile(t *testing.T) {
	tmpDir := t.TempDir()
	err := os.WriteFile(filepath.Join(tmpDir, "config.toml"), []byte("this is not valid TOML {{{[["), 0600)
	require.NoError(t, err)

	store, err := NewConfigStore(tmpDir)

	assert.Error(t, err)
	assert.Nil(t, store)
}

func TestConfigStore_EmptyFile(t *testing.T) {
	tmpDir := t.TempDir()
	err := os.WriteFile(filepath.Join(tmpDir, "config.toml"), []byte{}, 0600)
	require.NoError(t, err)

	store, err := NewConfigStore(tmpDir)
	require.NoError(t, err)

	_, ok := store.Get("any_key")
	assert.False(t, ok)
}

func TestConfigStore_ReadsNestedTables(t *testing.T) {
	tmpDir := t.TempDir()
	content := `
[embedding]
provider = "openai"
max_retries = 5

[retrieval]
threshold = 0.4

[sync]
allowed_types = ["profile", "project"]
`
	err := os.WriteFile(filepath.Join(tmpDir, "config.toml"), []byte(content), 0600)
	require.NoError(t, err)

	store, err := NewConfigStore(tmpDir)
	require.NoError(t, err)

	assert.Equal(t, "openai", store.GetString("embedding.provider"))
	assert.Equal(t, 5, store.GetInt("embedding.max_retries"))
	assert.InDelta(t, 0.4, store.GetFloat("retrieval.threshold"), 1e-9)
	assert.Equal(t, []string{"profile", "project"}, store.GetStringSlice("sync.allowed_types"))
}

func TestConfigStore_TypedGetters(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, store.Set("s", "hello"))
	require.NoError(t, store.Set("i", 42))
	require.NoError(t, store.Set("b", true))
	require.NoError(t, store.Set("f", 0.25))
	require.NoError(t, store.Set("int_text", "17"))
	require.NoError(t, store.Set("float_text", "0.5"))
	require.NoError(t, store.Set("bool_text", "true"))
	require.NoError(t, store.Set("csv", "profile, project,,aiProject"))

	tests := []struct {
		name string
		got  any
		want any
	}{
		{"string", store.GetString("s"), "hello"},
		{"string wrong type", store.GetString("i"), ""},
		{"string missing", store.GetString("missing"), ""},
		{"int", store.GetInt("i"), 42},
		{"int from text", store.GetInt("int_text"), 17},
		{"int wrong type", store.GetInt("s"), 0},
		{"float", store.GetFloat("f"), 0.25},
		{"float from int", store.GetFloat("i"), 42.0},
		{"float from text", store.GetFloat("float_text"), 0.5},
		{"bool", store.GetBool("b"), true},
		{"bool from text", store.GetBool("bool_text"), true},
		{"bool wrong type", store.GetBool("i"), false},
		{"csv slice", store.GetStringSlice("csv"), []string{"profile", "project", "aiProject"}},
		{"slice missing", store.GetStringSlice("missing"), []string(nil)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.got)
		})
	}
}

func TestConfigStore_PersistenceRoundTrip(t *testing.T) {
	tmpDir := t.TempDir()

	store1, err := NewConfigStore(tmpDir)
	require.NoError(t, err)
	require.NoError(t, store1.Set("embedding.provider", "gemini"))
	require.NoError(t, store1.Set("embedding.batch_size", 16))
	require.NoError(t, store1.Set("server.debug", true))
	require.NoError(t, store1.Set("top", "level"))

	store2, err := NewConfigStore(tmpDir)
	require.NoError(t, err)

	assert.Equal(t, "gemini", store2.GetString("embedding.provider"))
	assert.Equal(t, 16, store2.GetInt("embedding.batch_size"))
	assert.True(t, store2.GetBool("server.debug"))
	assert.Equal(t, "level", store2.GetString("top"))
	assert.ElementsMatch(t, []string{"embedding.provider", "embedding.batch_size", "server.debug", "top"}, store2.Keys())

	raw, err := os.ReadFile(store2.Path())
	require.NoError(t, err)
	assert.Contains(t, string(raw), "[embedding]")
}

func TestConfigStore_Delete(t *testing.T) {
	tmpDir := t.TempDir()

	store, err := NewConfigStore(tmpDir)
	require.NoError(t, err)
	require.NoError(t, store.Set("server.webhook_secret", "whsec"))
	require.NoError(t, store.Set("server.addr", ":9090"))

	require.NoError(t, store.Delete("server.webhook_secret"))
	require.NoError(t, store.Delete("never.set"))

	reopened, err := NewConfigStore(tmpDir)
	require.NoError(t, err)
	_, exists := reopened.Get("server.webhook_secret")
	assert.False(t, exists)
	assert.Equal(t, ":9090", reopened.GetString("server.addr"))
}

func TestConfigStore_FilePermissions(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, store.Set("server.webhook_secret", "s3cret"))

	info, err := os.Stat(store.Path())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestConfigStore_Save_WriteFileError(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, store.Set("test", "value"))

	require.NoError(t, os.Remove(store.Path()))
	require.NoError(t, os.Mkdir(store.Path(), 0700))

	assert.Error(t, store.Set("another", "value"))
}

func TestConfigStore_Concurrency(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			key := "key" + string(rune('0'+id))
			_ = store.Set(key, id)
			_ = store.GetInt(key)
			_ = store.GetString(key)
			_, _ = store.Get(key)
		}(i)
	}
	wg.Wait()
}

func TestNestMap(t *testing.T) {
	nested := nestMap(map[string]any{
		"a.b":   1,
		"a.c.d": "x",
		"e":     true,
	})

	assert.Equal(t, map[string]any{
		"a": map[string]any{
			"b": 1,
			"c": map[string]any{"d": "x"},
		},
		"e": true,
	}, nested)
}
