// Package i18n loads per-locale chat translations and picks the best one
// for each recipient.
//
// A translations directory holds one YAML file per locale, named after the
// BCP 47 tag (en-US.yaml, de.yaml). Nested maps are flattened with dots, so
//
//	chat:
//	  prefix: "[MP]"
//
// defines the key "chat.prefix".
package i18n

import (
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
	"sync"

	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"

	"github.com/roach88/msgpulse/internal/event"
)

// DefaultLocale is used when no default is configured.
const DefaultLocale = "en-US"

// Bundle holds the messages of every loaded locale.
// Safe for concurrent use.
type Bundle struct {
	mu       sync.RWMutex
	fallback language.Tag
	tags     []language.Tag // tags[0] is the fallback
	messages map[language.Tag]map[string]string
	matcher  language.Matcher
}

// NewBundle creates an empty bundle whose fallback locale is defaultLocale.
func NewBundle(defaultLocale string) (*Bundle, error) {
	if strings.TrimSpace(defaultLocale) == "" {
		defaultLocale = DefaultLocale
	}
	tag, err := language.Parse(defaultLocale)
	if err != nil {
		return nil, fmt.Errorf("parse default locale %q: %w", defaultLocale, err)
	}

	b := &Bundle{
		fallback: tag,
		tags:     []language.Tag{tag},
		messages: map[language.Tag]map[string]string{tag: {}},
	}
	b.matcher = language.NewMatcher(b.tags)
	return b, nil
}

// Load reads every *.yaml / *.yml file in the root of fsys.
// An empty or missing directory yields a bundle without translations.
func Load(fsys fs.FS, defaultLocale string) (*Bundle, error) {
	b, err := NewBundle(defaultLocale)
	if err != nil {
		return nil, err
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return b, nil
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		ext := path.Ext(entry.Name())
		if entry.IsDir() || (ext != ".yaml" && ext != ".yml") {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)

	for _, name := range names {
		data, err := fs.ReadFile(fsys, name)
		if err != nil {
			return nil, fmt.Errorf("read translations %s: %w", name, err)
		}
		messages, err := Parse(data)
		if err != nil {
			return nil, fmt.Errorf("parse translations %s: %w", name, err)
		}
		locale := strings.TrimSuffix(name, path.Ext(name))
		if err := b.Add(locale, messages); err != nil {
			return nil, fmt.Errorf("translations %s: %w", name, err)
		}
	}

	return b, nil
}

// Parse decodes one locale file into flat dotted keys.
func Parse(data []byte) (map[string]string, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	out := map[string]string{}
	if err := flatten("", raw, out); err != nil {
		return nil, err
	}
	return out, nil
}

func flatten(prefix string, in map[string]any, out map[string]string) error {
	for k, v := range in {
		key := strings.TrimSpace(k)
		if key == "" {
			return fmt.Errorf("blank key under %q", prefix)
		}
		if prefix != "" {
			key = prefix + "." + key
		}

		switch val := v.(type) {
		case map[string]any:
			if err := flatten(key, val, out); err != nil {
				return err
			}
		case string:
			out[key] = val
		case nil:
			out[key] = ""
		case []any:
			return fmt.Errorf("key %q: lists are not supported", key)
		default:
			out[key] = fmt.Sprint(val)
		}
	}
	return nil
}

// Add merges messages into locale, replacing existing keys.
func (b *Bundle) Add(locale string, messages map[string]string) error {
	tag, err := language.Parse(locale)
	if err != nil {
		return fmt.Errorf("parse locale %q: %w", locale, err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	dst, ok := b.messages[tag]
	if !ok {
		dst = map[string]string{}
		b.messages[tag] = dst
		b.tags = append(b.tags, tag)
		b.matcher = language.NewMatcher(b.tags)
	}
	for k, v := range messages {
		dst[k] = v
	}
	return nil
}

// Locales returns the loaded locale tags, fallback first.
func (b *Bundle) Locales() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]string, len(b.tags))
	for i, t := range b.tags {
		out[i] = t.String()
	}
	return out
}

// Match returns the loaded locale that best serves the requested one.
// Unparseable or unsupported requests get the fallback.
func (b *Bundle) Match(requested string) string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.match(requested).String()
}

func (b *Bundle) match(requested string) language.Tag {
	requested = strings.TrimSpace(requested)
	if requested == "" {
		return b.fallback
	}
	req, err := language.Parse(requested)
	if err != nil {
		return b.fallback
	}
	_, idx, conf := b.matcher.Match(req)
	if conf == language.No {
		return b.fallback
	}
	return b.tags[idx]
}

// Message looks key up in the best match for locale, then in the fallback.
func (b *Bundle) Message(locale, key string) (string, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if msg, ok := b.messages[b.match(locale)][key]; ok {
		return msg, true
	}
	msg, ok := b.messages[b.fallback][key]
	return msg, ok
}

// Localize translates key for p's language. A nil player (the server
// console) gets the fallback locale. Missing keys are returned unchanged.
func (b *Bundle) Localize(p event.Player, key string) string {
	locale := ""
	if p != nil {
		locale = p.Language()
	}
	if msg, ok := b.Message(locale, key); ok {
		return msg
	}
	return key
}
