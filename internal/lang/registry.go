package lang

import (
	"context"
	"log/slog"
	"regexp"
	"strings"
	"sync"

	verr "github.com/vellumsearch/vellum/internal/errors"
)

// SimpleConfig is the tokenizer configuration used when no language-specific
// pipeline exists.
const SimpleConfig = "simple"

// DefaultCode is the registry key consulted when no code matches.
const DefaultCode = "default"

// Config is one registry row: a language code bound to a named
// lexical-analysis configuration in the store.
type Config struct {
	Code       string
	ConfigName string
	Installed  bool
}

// ConfigStore persists the registry rows.
type ConfigStore interface {
	// ListConfigs returns all persisted language configurations.
	ListConfigs(ctx context.Context) ([]Config, error)

	// UpsertConfig inserts or overwrites one row keyed by code.
	UpsertConfig(ctx context.Context, cfg Config) error

	// DeleteConfig removes the row for code.
	DeleteConfig(ctx context.Context, code string) error
}

// Seed returns the default code -> config mapping shipped with the system.
func Seed() []Config {
	return []Config{
		{Code: "en", ConfigName: "english", Installed: true},
		{Code: "zh", ConfigName: "jieba", Installed: true},
		{Code: "zh_cn", ConfigName: "jieba", Installed: true},
		{Code: "zh_tw", ConfigName: "jieba", Installed: true},
		{Code: "ja", ConfigName: SimpleConfig, Installed: true},
		{Code: "ko", ConfigName: SimpleConfig, Installed: true},
		{Code: "ar", ConfigName: SimpleConfig, Installed: true},
		{Code: "es", ConfigName: "spanish", Installed: true},
		{Code: "fr", ConfigName: "french", Installed: true},
		{Code: "de", ConfigName: "german", Installed: true},
		{Code: "it", ConfigName: "italian", Installed: true},
		{Code: "ru", ConfigName: "russian", Installed: true},
		{Code: DefaultCode, ConfigName: SimpleConfig, Installed: true},
	}
}

// Registry maps language codes to tokenizer configuration names. It is
// read-mostly after warm-up: lookups take the read lock, administrative
// mutations and on-the-fly synthesis take the write lock.
type Registry struct {
	store ConfigStore

	mu     sync.RWMutex
	byCode map[string]string
	warmed bool
}

// NewRegistry creates a registry seeded with the defaults. Pass a nil store
// for a purely in-memory registry (tests, offline tooling).
func NewRegistry(store ConfigStore) *Registry {
	byCode := make(map[string]string)
	for _, c := range Seed() {
		byCode[c.Code] = c.ConfigName
	}
	return &Registry{store: store, byCode: byCode}
}

// Warm loads persisted rows over the seeds. Called once at startup; a store
// failure leaves the seeds in place.
func (r *Registry) Warm(ctx context.Context) error {
	if r.store == nil {
		return nil
	}

	configs, err := r.store.ListConfigs(ctx)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range configs {
		if c.Installed {
			r.byCode[c.Code] = c.ConfigName
		}
	}
	r.warmed = true
	return nil
}

// Lookup resolves a language code to a tokenizer configuration name.
// Policy: exact code, then the prefix before "_", then the default row.
// Unknown codes synthesize a simple row so later lookups are exact hits.
func (r *Registry) Lookup(ctx context.Context, code string) string {
	code = strings.ToLower(strings.TrimSpace(code))
	if code == "" {
		code = DefaultCode
	}

	r.mu.RLock()
	if name, ok := r.byCode[code]; ok {
		r.mu.RUnlock()
		return name
	}
	if i := strings.IndexByte(code, '_'); i > 0 {
		if name, ok := r.byCode[code[:i]]; ok {
			r.mu.RUnlock()
			return name
		}
	}
	fallback, hasDefault := r.byCode[DefaultCode]
	r.mu.RUnlock()

	if hasDefault && code == DefaultCode {
		return fallback
	}

	// Synthesize a simple row for the unknown code.
	r.mu.Lock()
	r.byCode[code] = SimpleConfig
	r.mu.Unlock()

	if r.store != nil {
		// Best-effort persistence; a failure only costs the next lookup.
		if err := r.store.UpsertConfig(ctx, Config{Code: code, ConfigName: SimpleConfig, Installed: true}); err != nil {
			slog.Warn("persist synthesized language config failed",
				slog.String("code", code),
				slog.String("error", err.Error()))
		}
	}

	if hasDefault {
		return fallback
	}
	return SimpleConfig
}

// Install registers or overwrites a language configuration.
func (r *Registry) Install(ctx context.Context, code, configName string) error {
	code = strings.ToLower(strings.TrimSpace(code))
	if code == "" || !ValidConfigName(configName) {
		return errInvalidConfig(code, configName)
	}

	if r.store != nil {
		if err := r.store.UpsertConfig(ctx, Config{Code: code, ConfigName: configName, Installed: true}); err != nil {
			return err
		}
	}

	r.mu.Lock()
	r.byCode[code] = configName
	r.mu.Unlock()
	return nil
}

// Uninstall removes a language configuration. The default row cannot be
// removed.
func (r *Registry) Uninstall(ctx context.Context, code string) error {
	code = strings.ToLower(strings.TrimSpace(code))
	if code == DefaultCode {
		return errInvalidConfig(code, "")
	}

	if r.store != nil {
		if err := r.store.DeleteConfig(ctx, code); err != nil {
			return err
		}
	}

	r.mu.Lock()
	delete(r.byCode, code)
	r.mu.Unlock()
	return nil
}

// Known reports whether a code resolves without synthesis.
func (r *Registry) Known(code string) bool {
	code = strings.ToLower(strings.TrimSpace(code))
	r.mu.RLock()
	defer r.mu.RUnlock()
	if _, ok := r.byCode[code]; ok {
		return true
	}
	if i := strings.IndexByte(code, '_'); i > 0 {
		_, ok := r.byCode[code[:i]]
		return ok
	}
	return false
}

func errInvalidConfig(code, name string) error {
	return verr.Newf(verr.ErrCodeInvalidInput, "invalid language config %q -> %q", code, name)
}

var configNameRe = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// ValidConfigName reports whether name is safe to splice into a store-native
// lexical expression. Configuration names are identifiers, never user text.
func ValidConfigName(name string) bool {
	return len(name) <= 63 && configNameRe.MatchString(name)
}

var codeRe = regexp.MustCompile(`^[a-z]{2,3}(_[a-z]{2,4})?$`)

// NormalizeCode lowercases and trims a language code and maps BCP-47 style
// dashes to the registry's underscore form ("zh-CN" -> "zh_cn").
func NormalizeCode(code string) string {
	code = strings.ToLower(strings.TrimSpace(code))
	return strings.ReplaceAll(code, "-", "_")
}

// ValidCode reports whether a normalized code fits the registry's code
// shape: a 2-3 letter base with an optional region suffix, at most 10
// characters, matching the store's language column width.
func ValidCode(code string) bool {
	return len(code) <= 10 && codeRe.MatchString(code)
}
