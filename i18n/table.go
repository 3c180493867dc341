package i18n

import "sort"

// ResourceTable maps a language code to its merged key -> message mapping.
type ResourceTable map[string]map[string]string

// BuildResourceTable folds the bundles, in order, into one table with an entry
// for every declared language. A later bundle overwrites the keys it shares
// with an earlier one. Languages a bundle carries but that are not declared
// are ignored.
func BuildResourceTable(bundles []Bundle, languages []string) ResourceTable {
	table := make(ResourceTable, len(languages))
	for _, lang := range languages {
		lang = canonicalOrRaw(lang)
		merged, ok := table[lang]
		if !ok {
			merged = make(map[string]string)
			table[lang] = merged
		}
		for _, b := range bundles {
			for k, v := range b.Messages[lang] {
				merged[k] = v
			}
		}
	}
	return table
}

// Languages returns the table's languages, sorted.
func (t ResourceTable) Languages() []string {
	langs := make([]string, 0, len(t))
	for lang := range t {
		langs = append(langs, lang)
	}
	sort.Strings(langs)
	return langs
}

// Has reports whether lang has an entry.
func (t ResourceTable) Has(lang string) bool {
	_, ok := t[canonicalOrRaw(lang)]
	return ok
}

// Lookup finds key in lang.
func (t ResourceTable) Lookup(lang, key string) (string, bool) {
	msg, ok := t[lang][key]
	return msg, ok
}

// clone deep-copies the table so the engine never shares maps with callers.
func (t ResourceTable) clone() ResourceTable {
	out := make(ResourceTable, len(t))
	for lang, entries := range t {
		cp := make(map[string]string, len(entries))
		for k, v := range entries {
			cp[k] = v
		}
		out[lang] = cp
	}
	return out
}
