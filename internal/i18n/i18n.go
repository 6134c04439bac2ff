// Copyright (c) 2026 Keymaster Team
// Keyring - local SSH key manager
// This source code is licensed under the MIT license found in the LICENSE file.

// Package i18n provides localized messages for the CLI and TUI. Message
// files are embedded YAML documents under locales/, one per language.
package i18n

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"strings"
	"sync"

	"github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
	"gopkg.in/yaml.v3"
)

// DefaultLang is used when no language, or an unknown one, is requested.
const DefaultLang = "en"

//go:embed locales/*.yaml
var localeFS embed.FS

var (
	mu        sync.RWMutex
	bundle    *i18n.Bundle
	localizer *i18n.Localizer
	current   string
)

func loadBundle() *i18n.Bundle {
	b := i18n.NewBundle(language.English)
	b.RegisterUnmarshalFunc("yaml", yaml.Unmarshal)

	files, _ := fs.ReadDir(localeFS, "locales")
	for _, f := range files {
		if f.IsDir() {
			continue
		}
		data, err := localeFS.ReadFile(path.Join("locales", f.Name()))
		if err != nil {
			continue
		}
		// A broken message file is a build defect; the remaining locales still load.
		_, _ = b.ParseMessageFileBytes(data, f.Name())
	}
	return b
}

// Init loads the embedded message files and selects lang. Unknown languages
// fall back to English.
func Init(lang string) {
	mu.Lock()
	defer mu.Unlock()
	if bundle == nil {
		bundle = loadBundle()
	}
	lang = normalize(lang)
	localizer = i18n.NewLocalizer(bundle, lang, DefaultLang)
	current = lang
}

// SetLang changes the active language.
func SetLang(lang string) {
	Init(lang)
}

// GetLang returns the active language code.
func GetLang() string {
	mu.RLock()
	defer mu.RUnlock()
	if current == "" {
		return DefaultLang
	}
	return current
}

// GetAvailableLocales maps each embedded language code to its name in that
// language.
func GetAvailableLocales() map[string]string {
	mu.Lock()
	if bundle == nil {
		bundle = loadBundle()
	}
	tags := bundle.LanguageTags()
	mu.Unlock()

	out := make(map[string]string, len(tags))
	for _, tag := range tags {
		name := display.Self.Name(tag)
		if name == "" {
			name = tag.String()
		}
		out[tag.String()] = name
	}
	return out
}

// normalize maps lang to an embedded language code. Callers hold mu.
func normalize(lang string) string {
	lang = strings.TrimSpace(lang)
	if lang == "" {
		return DefaultLang
	}
	tag, err := language.Parse(lang)
	if err != nil {
		return DefaultLang
	}
	base, _ := tag.Base()
	for _, t := range bundle.LanguageTags() {
		if b, _ := t.Base(); b == base {
			return t.String()
		}
	}
	return DefaultLang
}

// T translates messageID. A single map argument is passed as template data;
// any other arguments are applied with fmt.Sprintf to the translated text.
// Unknown IDs are returned unchanged.
func T(messageID string, args ...interface{}) string {
	mu.RLock()
	loc := localizer
	mu.RUnlock()
	if loc == nil {
		Init(DefaultLang)
		mu.RLock()
		loc = localizer
		mu.RUnlock()
	}

	cfg := &i18n.LocalizeConfig{MessageID: messageID}
	if len(args) == 1 {
		if data, ok := args[0].(map[string]interface{}); ok {
			cfg.TemplateData = data
			args = nil
		}
	}
	msg, err := loc.Localize(cfg)
	if err != nil {
		msg = messageID
	}
	if len(args) > 0 {
		return fmt.Sprintf(msg, args...)
	}
	return msg
}
