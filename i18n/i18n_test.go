package i18n

import (
	"testing"

	"golang.org/x/text/language"
)

func clearLocaleEnv(t *testing.T) {
	t.Helper()
	t.Setenv("LANGUAGE", "")
	t.Setenv("LC_ALL", "")
	t.Setenv("LC_MESSAGES", "")
	t.Setenv("LANG", "")
}

func restoreCatalog(t *testing.T) {
	t.Helper()
	old := po
	t.Cleanup(func() { po = old })
}

func TestDetectLanguage(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{
			name: "LANGUAGE list wins",
			env:  map[string]string{"LANGUAGE": "hu_HU.UTF-8:en_US", "LC_ALL": "de_DE.UTF-8"},
			want: "hu_HU",
		},
		{
			name: "C and POSIX are skipped",
			env:  map[string]string{"LANGUAGE": "C", "LC_ALL": "POSIX", "LC_MESSAGES": "fr_FR.UTF-8"},
			want: "fr_FR",
		},
		{
			name: "LANG as last resort",
			env:  map[string]string{"LANG": "hu_HU.UTF-8"},
			want: "hu_HU",
		},
		{
			name: "nothing set",
			want: "en",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			clearLocaleEnv(t)
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			if got := detectLanguage(); got != tc.want {
				t.Fatalf("detectLanguage() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestCatalogs(t *testing.T) {
	tags := Catalogs()
	if len(tags) < 2 {
		t.Fatalf("Catalogs() = %v, want English and hu", tags)
	}
	if tags[0] != language.English {
		t.Fatalf("Catalogs()[0] = %v, want en", tags[0])
	}
	found := false
	for _, tag := range tags {
		if tag == language.Hungarian {
			found = true
		}
	}
	if !found {
		t.Fatalf("Catalogs() = %v, want hu", tags)
	}
}

func TestInitMatchesCatalog(t *testing.T) {
	restoreCatalog(t)

	tag, ok := Init("hu_HU")
	if !ok || tag != language.Hungarian {
		t.Fatalf("Init(hu_HU) = %v, %v, want hu, true", tag, ok)
	}
	if got := T("Language files generated."); got != "A nyelvi fájlok elkészültek." {
		t.Fatalf("T() = %q, want %q", got, "A nyelvi fájlok elkészültek.")
	}
	if got := T("not in the catalog"); got != "not in the catalog" {
		t.Fatalf("T() passthrough = %q", got)
	}

	// Placeholders survive the lookup for the caller to fill.
	const singular, plural = "%d file written (%s): %d changed, %d unchanged", "%d files written (%s): %d changed, %d unchanged"
	if got := N(singular, plural, 3); got != "%d fájl kiírva (%s): %d módosult, %d változatlan" {
		t.Fatalf("N(3) = %q", got)
	}
	if got := T("Cache directory: %s"); got != "Gyorsítótár könyvtár: %s" {
		t.Fatalf("T() = %q, want placeholder kept", got)
	}
}

func TestInitFromEnvironment(t *testing.T) {
	restoreCatalog(t)
	clearLocaleEnv(t)
	t.Setenv("LANG", "hu_HU.UTF-8")

	if tag, ok := Init(""); !ok || tag != language.Hungarian {
		t.Fatalf("Init() = %v, %v, want hu, true", tag, ok)
	}
}

func TestInitEnglishAndUnmatched(t *testing.T) {
	restoreCatalog(t)

	if tag, ok := Init("en_US"); !ok || tag != language.English {
		t.Fatalf("Init(en_US) = %v, %v, want en, true", tag, ok)
	}
	if got := T("Applets"); got != "Applets" {
		t.Fatalf("T() in English = %q", got)
	}

	for _, lang := range []string{"ja", "not a language"} {
		if _, ok := Init(lang); ok {
			t.Errorf("Init(%q) matched, want no catalog", lang)
		}
		if got := T("Applets"); got != "Applets" {
			t.Errorf("T() after Init(%q) = %q, want passthrough", lang, got)
		}
	}
}

func TestFallbackWhenUninitialized(t *testing.T) {
	restoreCatalog(t)
	po = nil

	if got := T("Hello"); got != "Hello" {
		t.Fatalf("T fallback = %q, want %q", got, "Hello")
	}
	if got := N("file", "files", 1); got != "file" {
		t.Fatalf("N singular fallback = %q, want %q", got, "file")
	}
	if got := N("file", "files", 2); got != "files" {
		t.Fatalf("N plural fallback = %q, want %q", got, "files")
	}
}
