// Package i18n resolves localized strings for notifications and bot replies.
// Catalogs are YAML files keyed by language, with nested keys flattened to
// dot-separated form ("reminder.header").
package i18n

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const defaultDir = "internal/i18n"

// Translator resolves localized strings using dot-separated keys.
type Translator interface {
	T(key string) string
	Lang() string
}

// Manager stores all available translations.
type Manager struct {
	translations map[string]map[string]string
	defaultLang  string
}

// Load loads translations from the default directory.
func Load(defaultLang string) (*Manager, error) {
	return LoadFromDir(defaultDir, defaultLang)
}

// LoadFromDir loads translations from a directory containing YAML files.
func LoadFromDir(dir, defaultLang string) (*Manager, error) {
	if defaultLang == "" {
		defaultLang = "es"
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("i18n: read dir %s: %w", dir, err)
	}

	catalog := make(map[string]map[string]string)
	for _, entry := range entries {
		if entry.IsDir() || !isYAML(entry) {
			continue
		}

		if err := mergeFile(catalog, filepath.Join(dir, entry.Name())); err != nil {
			return nil, err
		}
	}

	if len(catalog) == 0 {
		return nil, fmt.Errorf("i18n: no catalogs found in %s", dir)
	}

	if _, ok := catalog[defaultLang]; !ok {
		return nil, fmt.Errorf("i18n: default language %q is missing", defaultLang)
	}

	return &Manager{translations: catalog, defaultLang: defaultLang}, nil
}

// Translator returns a translator for the requested language, falling back
// to the default language for unknown languages and missing keys.
func (m *Manager) Translator(lang string) Translator {
	if m == nil {
		return translator{}
	}

	norm := strings.ToLower(strings.TrimSpace(lang))
	if norm == "" || m.translations[norm] == nil {
		norm = m.defaultLang
	}

	return translator{
		lang:         norm,
		fallback:     m.defaultLang,
		translations: m.translations,
	}
}

// Languages returns all loaded languages.
func (m *Manager) Languages() []string {
	if m == nil {
		return nil
	}

	languages := make([]string, 0, len(m.translations))
	for lang := range m.translations {
		languages = append(languages, lang)
	}
	return languages
}

type translator struct {
	lang         string
	fallback     string
	translations map[string]map[string]string
}

func (t translator) Lang() string {
	return t.lang
}

// T returns the localized string for key, or the key itself when no catalog
// has it. Returning the key keeps a missing translation visible instead of
// sending an empty message.
func (t translator) T(key string) string {
	key = strings.TrimSpace(key)
	if key == "" {
		return ""
	}

	for _, lang := range []string{t.lang, t.fallback} {
		if entries := t.translations[lang]; entries != nil {
			if value, ok := entries[key]; ok {
				return value
			}
		}
	}

	return key
}

func isYAML(entry fs.DirEntry) bool {
	name := strings.ToLower(entry.Name())
	return strings.HasSuffix(name, ".yaml") || strings.HasSuffix(name, ".yml")
}

func mergeFile(catalog map[string]map[string]string, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("i18n: read file %s: %w", path, err)
	}

	if strings.TrimSpace(string(data)) == "" {
		return nil
	}

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("i18n: parse file %s: %w", path, err)
	}

	for lang, value := range raw {
		langKey := strings.ToLower(strings.TrimSpace(lang))
		nested, ok := value.(map[string]any)
		if langKey == "" || !ok {
			continue
		}

		if _, exists := catalog[langKey]; !exists {
			catalog[langKey] = make(map[string]string)
		}
		flatten("", nested, catalog[langKey])
	}

	return nil
}

func flatten(prefix string, in map[string]any, out map[string]string) {
	for key, value := range in {
		if key == "" {
			continue
		}

		nextKey := key
		if prefix != "" {
			nextKey = prefix + "." + key
		}

		switch v := value.(type) {
		case string:
			out[nextKey] = v
		case map[string]any:
			flatten(nextKey, v, out)
		}
	}
}
