// Package langmeta provides language display metadata (native names and
// emoji flags) for progress lines and the status table.
package langmeta

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// Meta describes language display metadata.
type Meta struct {
	Name string
	Flag string
}

// overrides holds names that read better than the CLDR self-names in a
// cache report. Locale variants fall back to their base via Resolve.
var overrides = map[string]Meta{
	"en":    {Name: "English", Flag: "🇺🇸"},
	"en-GB": {Name: "English (UK)", Flag: "🇬🇧"},
	"pt-BR": {Name: "Português (Brasil)", Flag: "🇧🇷"},
	"zh-CN": {Name: "简体中文", Flag: "🇨🇳"},
	"zh-TW": {Name: "繁體中文", Flag: "🇹🇼"},
}

func canonicalize(lang string) string {
	normalized := strings.ReplaceAll(strings.TrimSpace(lang), "_", "-")
	if normalized == "" {
		return ""
	}
	parts := strings.Split(normalized, "-")
	parts[0] = strings.ToLower(parts[0])
	if len(parts) >= 2 {
		parts[1] = strings.ToUpper(parts[1])
	}
	return strings.Join(parts, "-")
}

// Resolve returns best-effort language metadata for language codes,
// supporting variants like pt_BR, pt-BR, and unknown codes (which are
// returned as their own name).
func Resolve(lang string) Meta {
	if m, ok := overrides[lang]; ok {
		return m
	}
	normalized := canonicalize(lang)
	if m, ok := overrides[normalized]; ok {
		return m
	}

	tag, err := language.Parse(normalized)
	if err != nil {
		return Meta{Name: lang}
	}
	name := display.Self.Name(tag)
	if name == "" {
		return Meta{Name: lang}
	}

	m := Meta{Name: upperFirst(name)}
	if region, conf := tag.Region(); conf != language.No {
		m.Flag = FlagFromRegion(region.String())
	}
	return m
}

// Label renders "hu (Magyar)", or just the code when no name is known.
func Label(lang string) string {
	m := Resolve(lang)
	if m.Name == "" || m.Name == lang {
		return lang
	}
	return lang + " (" + m.Name + ")"
}

// FlagFromRegion converts a two-letter region code into its emoji flag.
func FlagFromRegion(region string) string {
	if len(region) != 2 {
		return ""
	}
	region = strings.ToUpper(region)
	var sb strings.Builder
	for _, r := range region {
		if r < 'A' || r > 'Z' {
			return ""
		}
		sb.WriteRune(0x1F1E6 + (r - 'A'))
	}
	return sb.String()
}

func upperFirst(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
