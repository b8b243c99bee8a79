// Package i18n provides the translation catalog used for all user-facing text.
//
// Each supported language ships as a flat key -> template JSON file under the
// catalog directory. Languages are loaded lazily, cached for the lifetime of
// the process and never reloaded; changing a language file requires a restart.
package i18n

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/user/ghrelay/pkg/logger"
)

// Translations maps message keys to template strings for one language.
type Translations map[string]string

// T returns the template for key, or an empty string when the key is unknown.
func (t Translations) T(key string) string {
	return t[key]
}

// Catalog caches per-language translation mappings loaded from disk.
type Catalog struct {
	dir         string
	defaultLang string

	mu    sync.RWMutex
	langs map[string]Translations
}

// New creates a catalog reading language files from dir.
func New(dir, defaultLang string) *Catalog {
	return &Catalog{
		dir:         dir,
		defaultLang: defaultLang,
		langs:       make(map[string]Translations),
	}
}

// Preload loads the default language. A failure here is unrecoverable: the
// default language is the last fallback for every render, so callers should
// abort startup on error.
func (c *Catalog) Preload() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	tr, err := c.read(c.defaultLang)
	if err != nil {
		return fmt.Errorf("failed to load default language %q: %w", c.defaultLang, err)
	}
	c.langs[c.defaultLang] = tr
	return nil
}

// Load returns the mapping for lang, reading it from disk on first use. When
// the language file is missing or malformed the default language's mapping is
// returned instead; the failure is logged once and the fallback is cached
// under lang so later calls hit the cache.
func (c *Catalog) Load(lang string) Translations {
	c.mu.RLock()
	tr, ok := c.langs[lang]
	c.mu.RUnlock()
	if ok {
		return tr
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if tr, ok := c.langs[lang]; ok {
		return tr
	}

	tr, err := c.read(lang)
	if err != nil {
		logger.Error().Err(err).Str("language", lang).Msg("Failed to load language file, falling back to default")
		tr = c.langs[c.defaultLang]
		if tr == nil {
			// Preload was skipped; best effort before giving up.
			fallback, ferr := c.read(c.defaultLang)
			if ferr != nil {
				logger.Error().Err(ferr).Str("language", c.defaultLang).Msg("Default language unavailable")
				fallback = Translations{}
			}
			c.langs[c.defaultLang] = fallback
			tr = fallback
		}
	}

	c.langs[lang] = tr
	return tr
}

// DefaultLanguage returns the configured fallback language code.
func (c *Catalog) DefaultLanguage() string {
	return c.defaultLang
}

func (c *Catalog) read(lang string) (Translations, error) {
	data, err := os.ReadFile(filepath.Join(c.dir, lang+".json"))
	if err != nil {
		return nil, err
	}
	var tr Translations
	if err := json.Unmarshal(data, &tr); err != nil {
		return nil, fmt.Errorf("failed to parse language file: %w", err)
	}
	return tr, nil
}

// Substitute replaces every occurrence of each {key} token in params with its
// value. Tokens with no matching param are left verbatim; an empty template
// yields an empty string. Keys are applied in sorted order so the result is
// deterministic for a given (template, params) pair.
func Substitute(template string, params map[string]string) string {
	if template == "" {
		return ""
	}
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		template = strings.ReplaceAll(template, "{"+k+"}", params[k])
	}
	return template
}
