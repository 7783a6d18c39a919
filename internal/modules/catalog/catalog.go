// Package catalog holds the curated list of ETFs offered to clients, grouped by
// category, with their default expense ratios.
package catalog

import (
	_ "embed"
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalog []byte

// Category is a named group of tickers, kept in file order.
type Category struct {
	Name    string   `yaml:"name" json:"name"`
	Tickers []string `yaml:"tickers" json:"tickers"`
}

type file struct {
	Categories []Category         `yaml:"categories"`
	TERs       map[string]float64 `yaml:"ters"`
}

// Catalog is an immutable ticker catalog.
type Catalog struct {
	categories []Category
	ters       map[string]float64 // percent
	all        []string
}

// Default parses the catalog embedded in the binary.
func Default() (*Catalog, error) {
	return Parse(defaultCatalog)
}

// Parse decodes a YAML catalog. Tickers are upper-cased. Every ticker listed in a
// category must have a TER entry.
func Parse(data []byte) (*Catalog, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}
	if len(f.Categories) == 0 {
		return nil, fmt.Errorf("catalog has no categories")
	}

	ters := make(map[string]float64, len(f.TERs))
	for ticker, ter := range f.TERs {
		if ter < 0 {
			return nil, fmt.Errorf("catalog TER for %s is negative", ticker)
		}
		ters[normalize(ticker)] = ter
	}

	seen := make(map[string]bool)
	var all []string
	categories := make([]Category, 0, len(f.Categories))
	for _, c := range f.Categories {
		if strings.TrimSpace(c.Name) == "" {
			return nil, fmt.Errorf("catalog category without a name")
		}
		tickers := make([]string, 0, len(c.Tickers))
		for _, t := range c.Tickers {
			t = normalize(t)
			if t == "" {
				continue
			}
			if _, ok := ters[t]; !ok {
				return nil, fmt.Errorf("catalog ticker %s in %q has no TER", t, c.Name)
			}
			tickers = append(tickers, t)
			if !seen[t] {
				seen[t] = true
				all = append(all, t)
			}
		}
		categories = append(categories, Category{Name: c.Name, Tickers: tickers})
	}
	sort.Strings(all)

	return &Catalog{categories: categories, ters: ters, all: all}, nil
}

// Categories returns the categories in file order.
func (c *Catalog) Categories() []Category {
	out := make([]Category, len(c.categories))
	for i, cat := range c.categories {
		out[i] = Category{Name: cat.Name, Tickers: append([]string(nil), cat.Tickers...)}
	}
	return out
}

// AllTickers returns every catalog ticker once, sorted.
func (c *Catalog) AllTickers() []string {
	return append([]string(nil), c.all...)
}

// TERs returns a copy of the ticker → TER (percent) table.
func (c *Catalog) TERs() map[string]float64 {
	out := make(map[string]float64, len(c.ters))
	for k, v := range c.ters {
		out[k] = v
	}
	return out
}

// TER returns the default expense ratio of a ticker in percent.
func (c *Catalog) TER(ticker string) (float64, bool) {
	ter, ok := c.ters[normalize(ticker)]
	return ter, ok
}

func normalize(ticker string) string {
	return strings.ToUpper(strings.TrimSpace(ticker))
}
