// Package i18n aggregates the translation bundles contributed by pods into one
// resource table and serves it through a single engine shared by every pod.
//
// A bundle maps a language code to messages. Messages are either flat strings
// or grouped one level per namespace, which yields keys of the form
// "pod_dashboard:welcomeMessage". Deeper nesting is joined with dots.
package i18n

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

// Format is the encoding of a bundle file.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

// FormatFromPath picks the format from the file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".toml":
		return FormatTOML, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
}

// Bundle is one pod's contribution to the resource table.
type Bundle struct {
	// Pod names the contributing pod. Informational only.
	Pod string `json:"pod"`

	// Messages maps a canonical language code to key -> localized string.
	Messages map[string]map[string]string `json:"messages"`
}

// NewBundle builds a bundle from already flat messages. Language codes are
// canonicalised.
func NewBundle(pod string, messages map[string]map[string]string) (Bundle, error) {
	b := Bundle{Pod: pod, Messages: make(map[string]map[string]string, len(messages))}
	for lang, entries := range messages {
		code, err := CanonicalLanguage(lang)
		if err != nil {
			return Bundle{}, fmt.Errorf("%w: pod %s: %w", ErrInvalidBundle, pod, err)
		}
		dst := b.Messages[code]
		if dst == nil {
			dst = make(map[string]string, len(entries))
			b.Messages[code] = dst
		}
		for k, v := range entries {
			dst[k] = v
		}
	}
	return b, nil
}

// Languages returns the languages the bundle has messages for, sorted.
func (b Bundle) Languages() []string {
	langs := make([]string, 0, len(b.Messages))
	for lang := range b.Messages {
		langs = append(langs, lang)
	}
	sort.Strings(langs)
	return langs
}

// LoadBundleFile reads a bundle from a JSON, YAML or TOML file.
func LoadBundleFile(pod, path string) (Bundle, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return Bundle{}, err
	}
	f, err := os.Open(path)
	if err != nil {
		return Bundle{}, fmt.Errorf("failed to open bundle %s: %w", path, err)
	}
	defer f.Close()
	return LoadBundle(pod, f, format)
}

// LoadBundle decodes a bundle of the given format from r.
func LoadBundle(pod string, r io.Reader, format Format) (Bundle, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Bundle{}, fmt.Errorf("failed to read bundle: %w", err)
	}
	return ParseBundle(pod, data, format)
}

// ParseBundle decodes a bundle from data.
func ParseBundle(pod string, data []byte, format Format) (Bundle, error) {
	var raw map[string]any
	switch format {
	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.UseNumber()
		if err := dec.Decode(&raw); err != nil {
			return Bundle{}, fmt.Errorf("%w: %w", ErrInvalidBundle, err)
		}
	case FormatYAML:
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return Bundle{}, fmt.Errorf("%w: %w", ErrInvalidBundle, err)
		}
	case FormatTOML:
		if err := toml.Unmarshal(data, &raw); err != nil {
			return Bundle{}, fmt.Errorf("%w: %w", ErrInvalidBundle, err)
		}
	default:
		return Bundle{}, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}

	messages := make(map[string]map[string]string, len(raw))
	for lang, v := range raw {
		tree, ok := v.(map[string]any)
		if !ok {
			return Bundle{}, fmt.Errorf("%w: language %q must map keys to messages", ErrInvalidBundle, lang)
		}
		flat := make(map[string]string)
		for key, value := range tree {
			if err := flatten(key, ":", value, flat); err != nil {
				return Bundle{}, fmt.Errorf("%w: language %q: %w", ErrInvalidBundle, lang, err)
			}
		}
		messages[lang] = flat
	}
	return NewBundle(pod, messages)
}

// flatten writes the leaves under value into out. The first nesting level is
// joined with sep (the namespace separator), deeper levels with a dot.
func flatten(key, sep string, value any, out map[string]string) error {
	switch v := value.(type) {
	case string:
		out[key] = v
	case map[string]any:
		for k, child := range v {
			if err := flatten(key+sep+k, ".", child, out); err != nil {
				return err
			}
		}
	case json.Number, bool, int, int64, uint64, float64:
		out[key] = fmt.Sprint(v)
	case nil:
		out[key] = ""
	default:
		return fmt.Errorf("key %q: unsupported value of type %T", key, value)
	}
	return nil
}

// CanonicalLanguage normalises a BCP 47 language code ("en_us" -> "en-US").
func CanonicalLanguage(code string) (string, error) {
	tag, err := language.Parse(strings.TrimSpace(code))
	if err != nil {
		return "", fmt.Errorf("%w: %q: %w", ErrInvalidLanguage, code, err)
	}
	return tag.String(), nil
}

// canonicalOrRaw is CanonicalLanguage for call sites that degrade instead of
// failing.
func canonicalOrRaw(code string) string {
	if c, err := CanonicalLanguage(code); err == nil {
		return c
	}
	return code
}
