// Package ctxengine assembles the message sequence sent to a provider for
// one user turn: the style's system prompt, the dialog's recent history
// and the new user message.
package ctxengine

import (
	"maps"
	"slices"
)

// DefaultStyleKey is the style every table resolves unknown names to
// unless told otherwise.
const DefaultStyleKey = "default"

// DefaultStyles returns the built-in style presets.
func DefaultStyles() map[string]string {
	return map[string]string{
		"default":    "You are a helpful assistant.",
		"translator": "You are a professional translator. Translate accurately.",
		"coder":      "You are a programming assistant. Provide clear code examples.",
		"assistant":  "You are a friendly assistant. Be helpful and concise.",
		"concise":    "You are very brief and to the point.",
	}
}

// StyleTable maps style names to system prompts. It is read-only after
// construction and safe for concurrent use.
type StyleTable struct {
	defaultKey string
	prompts    map[string]string
}

// NewStyleTable builds a table from prompts. If defaultKey is empty,
// DefaultStyleKey is used. If prompts has no entry for the default key,
// the built-in default prompt is inserted so Resolve always succeeds.
func NewStyleTable(defaultKey string, prompts map[string]string) *StyleTable {
	if defaultKey == "" {
		defaultKey = DefaultStyleKey
	}
	p := maps.Clone(prompts)
	if p == nil {
		p = make(map[string]string)
	}
	if _, ok := p[defaultKey]; !ok {
		p[defaultKey] = DefaultStyles()[DefaultStyleKey]
	}
	return &StyleTable{defaultKey: defaultKey, prompts: p}
}

// MergeStyles returns the built-in presets overlaid with extra.
func MergeStyles(extra map[string]string) map[string]string {
	out := DefaultStyles()
	maps.Copy(out, extra)
	return out
}

// DefaultKey returns the style used as fallback.
func (t *StyleTable) DefaultKey() string {
	return t.defaultKey
}

// Resolve returns the system prompt for name, falling back to the
// default style's prompt when name is unknown.
func (t *StyleTable) Resolve(name string) string {
	if p, ok := t.prompts[name]; ok {
		return p
	}
	return t.prompts[t.defaultKey]
}

// Has reports whether name is a known style.
func (t *StyleTable) Has(name string) bool {
	_, ok := t.prompts[name]
	return ok
}

// Names returns the known style names in lexical order.
func (t *StyleTable) Names() []string {
	return slices.Sorted(maps.Keys(t.prompts))
}
