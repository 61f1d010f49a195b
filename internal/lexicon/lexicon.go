package lexicon

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// DefaultWeight is the embedding weight of tokens that are not lexicon keywords.
const DefaultWeight = 0.5

// Category groups keywords under a semantic label.
// Importance drives quality scoring, Weight drives the embedding contribution.
type Category struct {
	Name       string   `yaml:"name"`
	Importance float64  `yaml:"importance"`
	Weight     float64  `yaml:"weight"`
	Keywords   []string `yaml:"keywords"`
}

// Lexicon is an immutable keyword → category table. Safe for concurrent use.
type Lexicon struct {
	categories []Category
	index      map[string]int
}

type file struct {
	Categories []Category `yaml:"categories"`
}

// New builds a lexicon. When a keyword appears in several categories the
// first category wins.
func New(categories []Category) (*Lexicon, error) {
	l := &Lexicon{index: make(map[string]int)}
	for _, c := range categories {
		if c.Name == "" {
			return nil, fmt.Errorf("lexicon category without name")
		}
		if c.Importance < 0 || c.Importance > 1 {
			return nil, fmt.Errorf("category %s: importance must be in [0,1], got %f", c.Name, c.Importance)
		}
		if c.Weight <= 0 {
			c.Weight = 1.0
		}
		idx := len(l.categories)
		kws := make([]string, 0, len(c.Keywords))
		for _, kw := range c.Keywords {
			toks := Tokenize(kw)
			if len(toks) != 1 {
				continue
			}
			if _, dup := l.index[toks[0]]; dup {
				continue
			}
			l.index[toks[0]] = idx
			kws = append(kws, toks[0])
		}
		c.Keywords = kws
		l.categories = append(l.categories, c)
	}
	return l, nil
}

// LoadFile reads a YAML lexicon of the form
//
//	categories:
//	  - name: conciencia
//	    importance: 1.0
//	    weight: 1.5
//	    keywords: [alma, mente, consciousness]
func LoadFile(path string) (*Lexicon, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read lexicon: %w", err)
	}
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse lexicon: %w", err)
	}
	if len(f.Categories) == 0 {
		return nil, fmt.Errorf("lexicon %s has no categories", path)
	}
	return New(f.Categories)
}

// Lookup returns the category a token belongs to.
func (l *Lexicon) Lookup(token string) (Category, bool) {
	idx, ok := l.index[token]
	if !ok {
		return Category{}, false
	}
	return l.categories[idx], true
}

// Weight is the embedding weight of a token.
func (l *Lexicon) Weight(token string) float64 {
	if c, ok := l.Lookup(token); ok {
		return c.Weight
	}
	return DefaultWeight
}

// Categories returns the names of all categories in definition order.
func (l *Lexicon) Categories() []string {
	names := make([]string, len(l.categories))
	for i, c := range l.categories {
		names[i] = c.Name
	}
	return names
}

// Matches returns the sorted set of category names hit by the tokens.
func (l *Lexicon) Matches(tokens []string) []string {
	seen := make(map[string]bool)
	for _, t := range tokens {
		if c, ok := l.Lookup(t); ok {
			seen[c.Name] = true
		}
	}
	out := make([]string, 0, len(seen))
	for name := range seen {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
