// Package patterns holds the named pattern taxonomy used by the transcript detectors.
package patterns

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"

	"github.com/goccy/go-yaml"
)

// Category groups patterns that answer the same question about an utterance.
type Category string

const (
	CategoryProfanity            Category = "profanity"
	CategorySensitiveDisclosure  Category = "sensitive_disclosure"
	CategoryVerificationRequest  Category = "verification_request"
	CategoryVerificationResponse Category = "verification_response"
)

// Categories lists every known category in a stable order.
func Categories() []Category {
	return []Category{
		CategoryProfanity,
		CategorySensitiveDisclosure,
		CategoryVerificationRequest,
		CategoryVerificationResponse,
	}
}

func (c Category) valid() bool {
	for _, known := range Categories() {
		if c == known {
			return true
		}
	}
	return false
}

// Definition is the uncompiled form of a pattern.
type Definition struct {
	Name string `yaml:"name"`
	Expr string `yaml:"expr"`
}

// File is the on-disk YAML layout of a taxonomy override.
type File struct {
	Categories map[string][]Definition `yaml:"categories"`
}

// ErrEmptyCategory is returned when a category is defined without patterns.
var ErrEmptyCategory = errors.New("category has no patterns")

var defaultDefinitions = map[Category][]Definition{
	CategoryProfanity: {
		{Name: "hell", Expr: `\bhell\b`},
		{Name: "damn", Expr: `\bdamn\b`},
		{Name: "shit", Expr: `\bshit\b`},
		{Name: "fuck", Expr: `\bfuck\b`},
		{Name: "asshole", Expr: `\basshole\b`},
		{Name: "bitch", Expr: `\bbitch\b`},
		{Name: "crap", Expr: `\bcrap\b`},
	},
	CategorySensitiveDisclosure: {
		{Name: "amount_due", Expr: `\bamount\s+due\b`},
		{Name: "outstanding_balance", Expr: `\boutstanding\s+balance\b`},
		{Name: "balance", Expr: `\bbalance\b`},
		{Name: "you_owe", Expr: `\byou\s+owe\b`},
		{Name: "account_number", Expr: `\baccount\s*(number|no\.?)\b`},
		{Name: "loan_number", Expr: `\bloan\s*number\b`},
		{Name: "last_four", Expr: `\blast\s*four\b`},
		{Name: "card_number", Expr: `\bcard\s*number\b`},
		{Name: "routing", Expr: `\brouting\b`},
		{Name: "currency_amount", Expr: `\$\s*\d+`},
	},
	CategoryVerificationRequest: {
		{Name: "identity_check", Expr: `(verify|confirm).*(address|date of birth|dob|ssn|social security number)`},
	},
	CategoryVerificationResponse: {
		{Name: "date", Expr: `\b\d{1,2}[/-]\d{1,2}[/-]\d{2,4}\b`},
		{Name: "ssn", Expr: `\b\d{3}-\d{2}-\d{4}\b`},
		{Name: "street_address", Expr: `\b\d{1,5}\s+\w+.*(street|st|road|rd|avenue|ave|lane|ln|boulevard|blvd|drive|dr)\b`},
	},
}

// Pattern is a compiled, named expression.
type Pattern struct {
	Name string
	re   *regexp.Regexp
}

// Match describes the first pattern of a category that matched a text.
type Match struct {
	Category Category
	Pattern  string
	Text     string
}

// Set is an immutable, compiled taxonomy. It is safe for concurrent use.
type Set struct {
	categories map[Category][]Pattern
}

// Default returns the built-in taxonomy.
func Default() *Set {
	s, err := Compile(defaultDefinitions)
	if err != nil {
		panic(fmt.Sprintf("patterns: default taxonomy does not compile: %v", err))
	}
	return s
}

// Compile builds a Set from definitions. Every expression is matched case-insensitively.
func Compile(defs map[Category][]Definition) (*Set, error) {
	s := &Set{categories: make(map[Category][]Pattern, len(defs))}
	for category, list := range defs {
		if !category.valid() {
			return nil, fmt.Errorf("unknown category %q", category)
		}
		if len(list) == 0 {
			return nil, fmt.Errorf("category %q: %w", category, ErrEmptyCategory)
		}
		compiled := make([]Pattern, 0, len(list))
		for i, def := range list {
			name := strings.TrimSpace(def.Name)
			if name == "" {
				name = fmt.Sprintf("%s_%d", category, i)
			}
			re, err := regexp.Compile("(?i)" + def.Expr)
			if err != nil {
				return nil, fmt.Errorf("category %q pattern %q: %w", category, name, err)
			}
			compiled = append(compiled, Pattern{Name: name, re: re})
		}
		s.categories[category] = compiled
	}
	return s, nil
}

// Parse reads a YAML taxonomy. Categories in the document replace the
// defaults; categories it leaves out keep the built-in patterns.
func Parse(data []byte) (*Set, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse patterns: %w", err)
	}

	merged := make(map[Category][]Definition, len(defaultDefinitions))
	for category, list := range defaultDefinitions {
		merged[category] = list
	}
	for name, list := range f.Categories {
		merged[Category(strings.TrimSpace(name))] = list
	}
	return Compile(merged)
}

// LoadFile reads a YAML taxonomy from disk. An empty path returns the defaults.
func LoadFile(path string) (*Set, error) {
	if strings.TrimSpace(path) == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read patterns: %w", err)
	}
	return Parse(data)
}

// Match returns the first pattern of the category that matches text.
func (s *Set) Match(category Category, text string) (Match, bool) {
	for _, p := range s.categories[category] {
		if loc := p.re.FindStringIndex(text); loc != nil {
			return Match{Category: category, Pattern: p.Name, Text: text[loc[0]:loc[1]]}, true
		}
	}
	return Match{}, false
}

// Matches reports whether any pattern of the category matches text.
func (s *Set) Matches(category Category, text string) bool {
	_, ok := s.Match(category, text)
	return ok
}

// Names returns the pattern names of a category, sorted.
func (s *Set) Names(category Category) []string {
	list := s.categories[category]
	names := make([]string, 0, len(list))
	for _, p := range list {
		names = append(names, p.Name)
	}
	sort.Strings(names)
	return names
}
