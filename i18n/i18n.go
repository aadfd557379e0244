// Package i18n translates langcache's own progress and status messages.
//
// Catalogs live in locales/<lang>/LC_MESSAGES/langcache.po and are embedded
// in the binary. English is the source language and needs no catalog. The
// requested language (--ui-lang, or the LANGUAGE/LC_ALL/LC_MESSAGES/LANG
// environment) is matched against the embedded catalogs, so "hu_HU.UTF-8"
// selects the "hu" catalog.
package i18n

import (
	"embed"
	"io/fs"
	"os"
	"strings"

	"github.com/leonelquinteros/gotext"
	"golang.org/x/text/language"
)

//go:embed all:locales
var locales embed.FS

const (
	domain     = "langcache"
	localesDir = "locales"
)

// po is the active catalog; nil means messages pass through untranslated.
var po *gotext.Locale

// noArgs is passed to gotext so a msgid is looked up, never formatted.
// Callers use the translated string as their own format.
var noArgs []any

// Catalogs returns the languages with an embedded catalog, English first.
func Catalogs() []language.Tag {
	tags, _ := catalogs()
	return tags
}

// catalogs returns the supported tags and, index for index, the directory
// holding each catalog ("" for English).
func catalogs() ([]language.Tag, []string) {
	tags := []language.Tag{language.English}
	dirs := []string{""}

	entries, err := fs.ReadDir(locales, localesDir)
	if err != nil {
		return tags, dirs
	}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		tag, err := language.Parse(e.Name())
		if err != nil {
			continue
		}
		tags = append(tags, tag)
		dirs = append(dirs, e.Name())
	}
	return tags, dirs
}

// Init selects the catalog that best matches lang, or the environment when
// lang is empty. It returns the selected language and false when nothing
// matched, in which case messages stay in English.
func Init(lang string) (language.Tag, bool) {
	if lang == "" {
		lang = detectLanguage()
	}

	tags, dirs := catalogs()
	requested, err := language.Parse(strings.ReplaceAll(lang, "_", "-"))
	if err != nil {
		po = nil
		return language.English, false
	}

	_, idx, conf := language.NewMatcher(tags).Match(requested)
	if conf == language.No {
		po = nil
		return language.English, false
	}
	if dirs[idx] == "" {
		po = nil
		return tags[idx], true
	}

	po = gotext.NewLocaleFSWithPath(dirs[idx], locales, localesDir)
	po.AddDomain(domain)
	po.SetDomain(domain)
	return tags[idx], true
}

// T returns the translation of msgid, or msgid itself. Placeholders are
// left untouched.
func T(msgid string) string {
	if po == nil {
		return msgid
	}
	return po.Get(msgid, noArgs...)
}

// N is T with plural selection by n.
func N(singular, plural string, n int) string {
	if po == nil {
		if n == 1 {
			return singular
		}
		return plural
	}
	return po.GetN(singular, plural, n, noArgs...)
}

// detectLanguage follows GNU gettext: LANGUAGE > LC_ALL > LC_MESSAGES > LANG.
func detectLanguage() string {
	for _, env := range []string{"LANGUAGE", "LC_ALL", "LC_MESSAGES", "LANG"} {
		val := os.Getenv(env)
		if env == "LANGUAGE" {
			val, _, _ = strings.Cut(val, ":")
		}
		val, _, _ = strings.Cut(val, ".")
		if val == "" || val == "C" || val == "POSIX" {
			continue
		}
		return val
	}
	return "en"
}
