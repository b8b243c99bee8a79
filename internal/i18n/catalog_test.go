package i18n

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/user/ghrelay/pkg/logger"
)

func TestMain(m *testing.M) {
	logger.Init(false, "")
	os.Exit(m.Run())
}

func writeLang(t *testing.T, dir, lang, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, lang+".json"), []byte(content), 0644); err != nil {
		t.Fatalf("write language file: %v", err)
	}
}

func TestLoad_CachesMapping(t *testing.T) {
	dir := t.TempDir()
	writeLang(t, dir, "en", `{"welcome": "hello"}`)

	c := New(dir, "en")
	if err := c.Preload(); err != nil {
		t.Fatalf("preload: %v", err)
	}

	tr := c.Load("en")
	if tr.T("welcome") != "hello" {
		t.Fatalf("expected welcome template, got %q", tr.T("welcome"))
	}

	// A file change after load must not be visible: the cache is write-once.
	writeLang(t, dir, "en", `{"welcome": "changed"}`)
	if c.Load("en").T("welcome") != "hello" {
		t.Fatalf("expected cached mapping to be returned")
	}
}

func TestLoad_FallsBackToDefault(t *testing.T) {
	dir := t.TempDir()
	writeLang(t, dir, "en", `{"welcome": "hello"}`)

	c := New(dir, "en")
	if err := c.Preload(); err != nil {
		t.Fatalf("preload: %v", err)
	}

	tr := c.Load("xx")
	if tr.T("welcome") != "hello" {
		t.Fatalf("expected default-language mapping for missing language")
	}

	// Cached thereafter: a language file appearing later is not picked up.
	writeLang(t, dir, "xx", `{"welcome": "bonjour"}`)
	if c.Load("xx").T("welcome") != "hello" {
		t.Fatalf("expected fallback mapping to stay cached")
	}
}

func TestPreload_MissingDefaultFails(t *testing.T) {
	c := New(t.TempDir(), "en")
	if err := c.Preload(); err == nil {
		t.Fatalf("expected error for missing default language")
	}
}

func TestSubstitute(t *testing.T) {
	tests := []struct {
		name     string
		template string
		params   map[string]string
		want     string
	}{
		{
			name:     "replaces all occurrences",
			template: "{repo} and {repo} again",
			params:   map[string]string{"repo": "acme/widgets"},
			want:     "acme/widgets and acme/widgets again",
		},
		{
			name:     "unknown tokens stay verbatim",
			template: "hello {name}, {unknown}",
			params:   map[string]string{"name": "octocat"},
			want:     "hello octocat, {unknown}",
		},
		{
			name:     "empty template yields empty string",
			template: "",
			params:   map[string]string{"repo": "acme/widgets"},
			want:     "",
		},
		{
			name:     "no params",
			template: "static text",
			params:   nil,
			want:     "static text",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Substitute(tt.template, tt.params); got != tt.want {
				t.Fatalf("Substitute() = %q, want %q", got, tt.want)
			}
		})
	}
}
