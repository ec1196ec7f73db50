package toolparser

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/gobwas/glob"
)

// Parser names.
const (
	NameHermes = "hermes"
	NameKimiK2 = "kimi_k2"
)

// Factory creates a fresh Parser for one output sequence.
type Factory func() Parser

type rule struct {
	pattern string
	matcher glob.Glob
	parser  string
}

// Registry maps parser names to factories and model names to parsers.
// It is safe for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
	rules     []rule
}

// NewRegistry returns a registry with the built-in parsers and model rules.
func NewRegistry() *Registry {
	r := &Registry{factories: make(map[string]Factory)}
	r.Register(NameHermes, NewHermes)
	r.Register(NameKimiK2, NewKimiK2)

	// Evaluated in order, so the catch-all goes last.
	for _, m := range []struct{ pattern, parser string }{
		{"*kimi*", NameKimiK2},
		{"*", NameHermes},
	} {
		g := glob.MustCompile(m.pattern)
		r.rules = append(r.rules, rule{pattern: m.pattern, matcher: g, parser: m.parser})
	}
	return r
}

// Register adds or replaces a parser factory.
func (r *Registry) Register(name string, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = factory
}

// Map routes models matching the glob pattern to the named parser. Later
// mappings take precedence over earlier ones and over the built-in rules.
// Patterns match lower-cased model names.
func (r *Registry) Map(pattern, parser string) error {
	g, err := glob.Compile(strings.ToLower(pattern))
	if err != nil {
		return fmt.Errorf("invalid model pattern %q: %w", pattern, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.factories[parser]; !ok {
		return fmt.Errorf("unknown tool parser %q", parser)
	}
	r.rules = append([]rule{{pattern: pattern, matcher: g, parser: parser}}, r.rules...)
	return nil
}

// Names returns the registered parser names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Detect returns the parser name for a model, or "" if no rule matches.
func (r *Registry) Detect(model string) string {
	model = strings.ToLower(model)

	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, rl := range r.rules {
		if rl.matcher.Match(model) {
			return rl.parser
		}
	}
	return ""
}

// Factory resolves the parser for a model. A non-empty name overrides model
// detection.
func (r *Registry) Factory(name, model string) (Factory, error) {
	if name == "" {
		name = r.Detect(model)
		if name == "" {
			return nil, fmt.Errorf("no tool parser matches model %q", model)
		}
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	factory, ok := r.factories[name]
	if !ok {
		return nil, fmt.Errorf("unknown tool parser %q", name)
	}
	return factory, nil
}
