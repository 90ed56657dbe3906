// Package normalize maps locale, typo, and script variants of colors and
// cities to canonical tokens. The table is pure data loaded once at process
// start; lookups are case- and diacritic-insensitive and match both
// Latin-transliterated and native-script surface forms.
package normalize

import (
	_ "embed"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"

	"github.com/MotorMindAI/motormind-mvp/engine/domain"
)

// Category selects which table a lookup runs against.
type Category string

const (
	Color Category = "color"
	City  Category = "city"
)

//go:embed synonyms.yaml
var defaultSynonyms []byte

// tableFile is the YAML document shape: canonical value -> surface forms.
type tableFile struct {
	Colors map[string][]string `yaml:"colors"`
	Cities map[string][]string `yaml:"cities"`
}

// Table is the read-only normalization table. Safe for concurrent use.
type Table struct {
	exact map[Category]map[string]string // folded variant -> canonical

	// colorVariants holds folded color variants longest-first for the
	// containment pass ("красный металлик" contains "красный").
	colorVariants []variant
}

type variant struct {
	folded, canonical string
}

// Default returns the table built from the embedded synonyms document.
func Default() *Table {
	t, err := parse(defaultSynonyms)
	if err != nil {
		// The embedded document is validated by tests; failing to parse it
		// is a build defect, not a runtime condition.
		panic(fmt.Sprintf("normalize: embedded synonyms: %v", err))
	}
	return t
}

// Load builds a table from a YAML file on disk.
func Load(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("normalize: read %s: %w", path, err)
	}
	t, err := parse(data)
	if err != nil {
		return nil, fmt.Errorf("normalize: parse %s: %w", path, err)
	}
	return t, nil
}

func parse(data []byte) (*Table, error) {
	var f tableFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, err
	}
	if len(f.Colors) == 0 && len(f.Cities) == 0 {
		return nil, fmt.Errorf("no colors or cities defined")
	}

	t := &Table{exact: map[Category]map[string]string{
		Color: make(map[string]string),
		City:  make(map[string]string),
	}}

	index := func(cat Category, canon string, variants []string) {
		// A canonical value always maps to itself so canonicalization is
		// idempotent even when the document omits it from its own list.
		t.exact[cat][Fold(canon)] = canon
		for _, v := range variants {
			t.exact[cat][Fold(v)] = canon
		}
	}
	for canon, variants := range f.Colors {
		index(Color, canon, variants)
	}
	for canon, variants := range f.Cities {
		index(City, canon, variants)
	}

	for folded, canon := range t.exact[Color] {
		t.colorVariants = append(t.colorVariants, variant{folded, canon})
	}
	sort.Slice(t.colorVariants, func(i, j int) bool {
		a, b := t.colorVariants[i], t.colorVariants[j]
		if len(a.folded) != len(b.folded) {
			return len(a.folded) > len(b.folded)
		}
		return a.folded < b.folded
	})

	return t, nil
}

// Canonicalize resolves a raw surface form to its canonical token. Unknown
// input is returned unchanged, tagged unnormalized, so downstream exact
// matching degrades to literal comparison instead of failing.
func (t *Table) Canonicalize(raw string, cat Category) domain.Token {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return domain.Token{}
	}

	folded := Fold(trimmed)
	if canon, ok := t.exact[cat][folded]; ok {
		return domain.Token{Value: canon, Canonical: true}
	}

	// Separator-free retry covers hyphen/space variants not listed
	// explicitly ("алма-аты" vs "алмааты").
	bare := strings.ReplaceAll(folded, " ", "")
	for v, canon := range t.exact[cat] {
		if strings.ReplaceAll(v, " ", "") == bare {
			return domain.Token{Value: canon, Canonical: true}
		}
	}

	if cat == Color {
		for _, v := range t.colorVariants {
			if strings.Contains(folded, v.folded) {
				return domain.Token{Value: v.canonical, Canonical: true}
			}
			// The reverse direction ("бордов" inside "бордовый") needs a
			// length guard or two-letter words start matching color names.
			if len(folded) >= 5 && strings.Contains(v.folded, folded) {
				return domain.Token{Value: v.canonical, Canonical: true}
			}
		}
	}

	return domain.Token{Value: trimmed, Canonical: false}
}

var separators = regexp.MustCompile(`[-_\s]+`)

var foldTransform = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Fold lowercases, strips diacritics, and collapses separator runs, giving
// one comparable form for Latin and Cyrillic surface variants.
func Fold(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if folded, _, err := transform.String(foldTransform, s); err == nil {
		s = folded
	}
	return separators.ReplaceAllString(s, " ")
}
