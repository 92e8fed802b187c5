// Package messages renders pause message keys through golang.org/x/text
// catalogs loaded from embedded YAML locale files.
package messages

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
	"gopkg.in/yaml.v3"

	"github.com/dshills/algoreplay/replay"
)

// BaseLocale is the canonical source locale. Every key must exist in it.
const BaseLocale = "en-US"

//go:embed locales/*/*.yaml
var embedded embed.FS

type catalogFile struct {
	Locale    string            `yaml:"locale"`
	Namespace string            `yaml:"namespace"`
	Messages  map[string]string `yaml:"messages"`
}

// Bundle holds every locale's messages and an x/text catalog built from them.
type Bundle struct {
	builder *catalog.Builder
	locales map[string]map[string]string // locale -> key -> format
}

// Load reads the embedded locale files.
func Load() (*Bundle, error) {
	return LoadFromFS(embedded)
}

// LoadFromFS reads locales/<locale>/<namespace>.yaml files from fsys.
func LoadFromFS(fsys fs.FS) (*Bundle, error) {
	paths, err := fs.Glob(fsys, "locales/*/*.yaml")
	if err != nil {
		return nil, fmt.Errorf("glob locale catalogs: %w", err)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no catalog files found")
	}
	sort.Strings(paths)

	b := &Bundle{
		builder: catalog.NewBuilder(catalog.Fallback(language.MustParse(BaseLocale))),
		locales: map[string]map[string]string{},
	}
	for _, p := range paths {
		data, err := fs.ReadFile(fsys, p)
		if err != nil {
			return nil, fmt.Errorf("read catalog %s: %w", p, err)
		}
		var file catalogFile
		if err := yaml.Unmarshal(data, &file); err != nil {
			return nil, fmt.Errorf("parse catalog %s: %w", p, err)
		}
		if err := b.add(p, file); err != nil {
			return nil, err
		}
	}

	if _, ok := b.locales[BaseLocale]; !ok {
		return nil, fmt.Errorf("base locale %s is not defined in catalogs", BaseLocale)
	}
	for locale, msgs := range b.locales {
		for key := range msgs {
			if _, ok := b.locales[BaseLocale][key]; !ok {
				return nil, fmt.Errorf("locale %s: key %q missing from base locale", locale, key)
			}
		}
	}
	return b, nil
}

func (b *Bundle) add(p string, file catalogFile) error {
	localeFromPath := path.Base(path.Dir(p))
	namespaceFromPath := strings.TrimSuffix(path.Base(p), path.Ext(p))

	locale := strings.TrimSpace(file.Locale)
	if locale != localeFromPath {
		return fmt.Errorf("catalog %s: locale %q must match path locale %q", p, locale, localeFromPath)
	}
	if strings.TrimSpace(file.Namespace) != namespaceFromPath {
		return fmt.Errorf("catalog %s: namespace %q must match filename", p, file.Namespace)
	}
	if len(file.Messages) == 0 {
		return fmt.Errorf("catalog %s: messages map is required", p)
	}

	tag, err := language.Parse(locale)
	if err != nil {
		return fmt.Errorf("catalog %s: parse locale tag: %w", p, err)
	}

	msgs, ok := b.locales[locale]
	if !ok {
		msgs = map[string]string{}
		b.locales[locale] = msgs
	}
	for key, format := range file.Messages {
		key = strings.TrimSpace(key)
		if !strings.HasPrefix(key, namespaceFromPath+".") {
			return fmt.Errorf("catalog %s: key %q must start with %q", p, key, namespaceFromPath+".")
		}
		if _, dup := msgs[key]; dup {
			return fmt.Errorf("catalog %s: duplicate key %q", p, key)
		}
		msgs[key] = format
		if err := b.builder.SetString(tag, key, format); err != nil {
			return fmt.Errorf("catalog %s: set %q: %w", p, key, err)
		}
	}
	return nil
}

// Locales returns the available locale identifiers.
func (b *Bundle) Locales() []string {
	out := make([]string, 0, len(b.locales))
	for locale := range b.locales {
		out = append(out, locale)
	}
	sort.Strings(out)
	return out
}

// Has reports whether key is defined in the base locale.
func (b *Bundle) Has(key string) bool {
	_, ok := b.locales[BaseLocale][key]
	return ok
}

// Formatter returns a replay.Formatter printing in locale, falling back to
// BaseLocale for missing translations. Unknown keys render as the key
// followed by its arguments.
func (b *Bundle) Formatter(locale string) (replay.Formatter, error) {
	tag, err := language.Parse(locale)
	if err != nil {
		return nil, fmt.Errorf("parse locale %q: %w", locale, err)
	}

	// The base locale goes first so that it is the matcher's default.
	supported := []string{BaseLocale}
	for _, l := range b.Locales() {
		if l != BaseLocale {
			supported = append(supported, l)
		}
	}
	tags := make([]language.Tag, len(supported))
	for i, l := range supported {
		tags[i] = language.MustParse(l)
	}
	_, idx, _ := language.NewMatcher(tags).Match(tag)

	chosen := supported[idx]
	printer := message.NewPrinter(tags[idx], message.Catalog(b.builder))
	base := message.NewPrinter(tags[0], message.Catalog(b.builder))

	return func(key string, args ...any) string {
		if !b.Has(key) {
			return strings.TrimSuffix(fmt.Sprintln(append([]any{key}, args...)...), "\n")
		}
		if _, ok := b.locales[chosen][key]; !ok {
			return base.Sprintf(key, args...)
		}
		return printer.Sprintf(key, args...)
	}, nil
}
