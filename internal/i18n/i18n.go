package i18n

import (
	"embed"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
	"gopkg.in/yaml.v3"
)

// BaseLocale is the fallback for unknown locales and missing keys.
const BaseLocale = "en-US"

type catalogFile struct {
	Locale    string            `yaml:"locale"`
	Namespace string            `yaml:"namespace"`
	Messages  map[string]string `yaml:"messages"`
}

//go:embed locales/*/*.yaml
var embeddedFS embed.FS

// Bundle holds every locale's messages in one x/text catalog.
type Bundle struct {
	messages map[string]map[string]string
	tags     []language.Tag
	builder  *catalog.Builder
	matcher  language.Matcher
}

func LoadEmbedded() (*Bundle, error) {
	return LoadFromFS(embeddedFS)
}

func LoadFromFS(fsys fs.FS) (*Bundle, error) {
	paths, err := fs.Glob(fsys, "locales/*/*.yaml")
	if err != nil {
		return nil, fmt.Errorf("glob locales: %w", err)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no locale files found")
	}
	sort.Strings(paths)

	b := &Bundle{messages: map[string]map[string]string{}}
	for _, p := range paths {
		raw, err := fs.ReadFile(fsys, p)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", p, err)
		}
		var f catalogFile
		if err := yaml.Unmarshal(raw, &f); err != nil {
			return nil, fmt.Errorf("parse %s: %w", p, err)
		}
		if err := b.add(p, f); err != nil {
			return nil, err
		}
	}
	if _, ok := b.messages[BaseLocale]; !ok {
		return nil, fmt.Errorf("base locale %s missing", BaseLocale)
	}
	if err := b.build(); err != nil {
		return nil, err
	}
	return b, nil
}

func (b *Bundle) add(path string, f catalogFile) error {
	locale := strings.TrimSpace(f.Locale)
	if want := filepath.Base(filepath.Dir(path)); locale != want {
		return fmt.Errorf("%s: locale %q must match directory %q", path, locale, want)
	}
	msgs := b.messages[locale]
	if msgs == nil {
		msgs = map[string]string{}
		b.messages[locale] = msgs
	}
	for k, v := range f.Messages {
		k = strings.TrimSpace(k)
		if k == "" {
			return fmt.Errorf("%s: blank key", path)
		}
		if _, dup := msgs[k]; dup {
			return fmt.Errorf("%s: duplicate key %q in %s", path, k, locale)
		}
		msgs[k] = v
	}
	return nil
}

func (b *Bundle) build() error {
	b.builder = catalog.NewBuilder(catalog.Fallback(language.MustParse(BaseLocale)))

	// Base locale first so the matcher falls back to it.
	locales := b.Locales()
	sort.SliceStable(locales, func(i, j int) bool { return locales[i] == BaseLocale && locales[j] != BaseLocale })

	for _, locale := range locales {
		tag, err := language.Parse(locale)
		if err != nil {
			return fmt.Errorf("parse locale %q: %w", locale, err)
		}
		b.tags = append(b.tags, tag)
		for k, v := range b.messages[locale] {
			// Messages are printed as formats; they carry no verbs of their own.
			if err := b.builder.SetString(tag, k, escapeVerbs(v)); err != nil {
				return fmt.Errorf("register %s/%s: %w", locale, k, err)
			}
		}
	}
	b.matcher = language.NewMatcher(b.tags)
	return nil
}

func (b *Bundle) Locales() []string {
	out := make([]string, 0, len(b.messages))
	for l := range b.messages {
		out = append(out, l)
	}
	sort.Strings(out)
	return out
}

// Printer returns a translator for the closest supported locale.
func (b *Bundle) Printer(locale string) *Printer {
	_, idx, _ := b.matcher.Match(language.Make(locale))
	tag := b.tags[idx]
	return &Printer{
		locale: tag.String(),
		p:      message.NewPrinter(tag, message.Catalog(b.builder)),
	}
}

type Printer struct {
	locale string
	p      *message.Printer
}

func (p *Printer) Locale() string { return p.locale }

// Translate returns the token unchanged when no locale defines it.
func (p *Printer) Translate(token string) string {
	if token == "" {
		return ""
	}
	return p.p.Sprintf(message.Key(token, escapeVerbs(token)))
}

func escapeVerbs(s string) string { return strings.ReplaceAll(s, "%", "%%") }
