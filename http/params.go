package http

import "strings"

// Params is an ordered multi-map of urlencoded parameters. Insertion
// order is preserved; Get resolves to the most recently inserted value
// for a name, so body parameters shadow query parameters.
type Params struct {
	pairs []ParamPair
}

type ParamPair struct {
	Name  string
	Value string
}

func NewParams() *Params {
	return &Params{}
}

func (p *Params) Add(name, value string) {
	p.pairs = append(p.pairs, ParamPair{Name: name, Value: value})
}

// Get returns the last-inserted value for name.
func (p *Params) Get(name string) (string, bool) {
	for i := len(p.pairs) - 1; i >= 0; i-- {
		if p.pairs[i].Name == name {
			return p.pairs[i].Value, true
		}
	}
	return "", false
}

func (p *Params) Len() int {
	return len(p.pairs)
}

// All returns the pairs in insertion order. The slice aliases the
// internal storage; callers must not mutate it.
func (p *Params) All() []ParamPair {
	return p.pairs
}

// parseInto appends the pairs of one urlencoded string. Names are
// case-folded; a part without "=" gets the empty value.
func (p *Params) parseInto(s string) {
	if s == "" {
		return
	}
	for _, part := range strings.Split(s, "&") {
		if part == "" {
			continue
		}
		name, value, _ := strings.Cut(part, "=")
		p.Add(strings.ToLower(name), value)
	}
}

// ParseParams parses one urlencoded string into a fresh Params.
func ParseParams(s string) *Params {
	p := NewParams()
	p.parseInto(s)
	return p
}

// RenderParams is the inverse of ParseParams for string-valued pairs.
func RenderParams(p *Params) string {
	var b strings.Builder
	for i, pair := range p.pairs {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(pair.Name)
		b.WriteByte('=')
		b.WriteString(pair.Value)
	}
	return b.String()
}
