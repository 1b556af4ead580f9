package lang

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeConfigStore records registry persistence calls in memory.
type fakeConfigStore struct {
	rows    map[string]Config
	listErr error
}

func newFakeConfigStore() *fakeConfigStore {
	return &fakeConfigStore{rows: make(map[string]Config)}
}

func (f *fakeConfigStore) ListConfigs(context.Context) ([]Config, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]Config, 0, len(f.rows))
	for _, c := range f.rows {
		out = append(out, c)
	}
	return out, nil
}

func (f *fakeConfigStore) UpsertConfig(_ context.Context, cfg Config) error {
	f.rows[cfg.Code] = cfg
	return nil
}

func (f *fakeConfigStore) DeleteConfig(_ context.Context, code string) error {
	delete(f.rows, code)
	return nil
}

func TestLookupPolicy(t *testing.T) {
	r := NewRegistry(nil)
	ctx := context.Background()

	tests := []struct {
		code string
		want string
	}{
		{"en", "english"},
		{"zh", "jieba"},
		{"zh_cn", "jieba"},
		{"zh_tw", "jieba"},
		{"ja", SimpleConfig},
		{"es", "spanish"},
		{"fr", "french"},
		{"de", "german"},
		{"ru", "russian"},
		// Prefix fallback: en_gb is not seeded, en is.
		{"en_gb", "english"},
		// Unknown code falls back to the default row.
		{"xx", SimpleConfig},
		// Blank resolves to the default row.
		{"", SimpleConfig},
		// Case and whitespace are normalized.
		{"  EN ", "english"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, r.Lookup(ctx, tt.code), "code %q", tt.code)
	}
}

func TestLookupSynthesizesUnknownCode(t *testing.T) {
	store := newFakeConfigStore()
	r := NewRegistry(store)
	ctx := context.Background()

	assert.Equal(t, SimpleConfig, r.Lookup(ctx, "sw"))

	// The synthesized row was persisted and is now an exact hit.
	row, ok := store.rows["sw"]
	require.True(t, ok)
	assert.Equal(t, SimpleConfig, row.ConfigName)
	assert.True(t, row.Installed)
	assert.True(t, r.Known("sw"))
}

func TestWarmOverlaysPersistedRows(t *testing.T) {
	store := newFakeConfigStore()
	store.rows["en"] = Config{Code: "en", ConfigName: "english_custom", Installed: true}
	store.rows["pt"] = Config{Code: "pt", ConfigName: "portuguese", Installed: true}
	store.rows["nl"] = Config{Code: "nl", ConfigName: "dutch", Installed: false}

	r := NewRegistry(store)
	require.NoError(t, r.Warm(context.Background()))

	ctx := context.Background()
	assert.Equal(t, "english_custom", r.Lookup(ctx, "en"))
	assert.Equal(t, "portuguese", r.Lookup(ctx, "pt"))
	// Uninstalled rows are ignored; nl falls to default then synthesizes.
	assert.Equal(t, SimpleConfig, r.Lookup(ctx, "nl"))
}

func TestWarmFailureKeepsSeeds(t *testing.T) {
	store := newFakeConfigStore()
	store.listErr = assert.AnError

	r := NewRegistry(store)
	require.Error(t, r.Warm(context.Background()))

	// Startup degrades to the seed mapping, not to a broken registry.
	assert.Equal(t, "english", r.Lookup(context.Background(), "en"))
}

func TestInstallUninstall(t *testing.T) {
	store := newFakeConfigStore()
	r := NewRegistry(store)
	ctx := context.Background()

	require.NoError(t, r.Install(ctx, "pt", "portuguese"))
	assert.Equal(t, "portuguese", r.Lookup(ctx, "pt"))

	require.NoError(t, r.Uninstall(ctx, "pt"))
	_, ok := store.rows["pt"]
	assert.False(t, ok)

	// The default row is protected.
	assert.Error(t, r.Uninstall(ctx, DefaultCode))

	// Config names are identifiers.
	assert.Error(t, r.Install(ctx, "xx", "bad name; drop table"))
}

func TestValidConfigName(t *testing.T) {
	assert.True(t, ValidConfigName("english"))
	assert.True(t, ValidConfigName("zh_cn_custom"))
	assert.True(t, ValidConfigName(SimpleConfig))
	assert.False(t, ValidConfigName(""))
	assert.False(t, ValidConfigName("English"))
	assert.False(t, ValidConfigName("eng lish"))
	assert.False(t, ValidConfigName("x'); drop"))
}

func TestNormalizeCode(t *testing.T) {
	assert.Equal(t, "zh_cn", NormalizeCode("zh-CN"))
	assert.Equal(t, "en", NormalizeCode("  EN "))
	assert.Equal(t, "pt_br", NormalizeCode("pt_BR"))
	assert.Equal(t, "", NormalizeCode(""))
}

func TestValidCode(t *testing.T) {
	valid := []string{"en", "zh", "zh_cn", "zh_tw", "pt_br", "yue", "ja"}
	for _, c := range valid {
		assert.True(t, ValidCode(c), "code %q", c)
	}
	invalid := []string{"", "e", "english", "zh-CN", "zh_", "_cn", "EN", "x2", "a_b_c"}
	for _, c := range invalid {
		assert.False(t, ValidCode(c), "code %q", c)
	}
}
