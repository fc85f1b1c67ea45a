package http

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Type describes one named parameter type: an optional conversion from
// the raw decoded string and an optional assertion over the converted
// value. Priority orders parameter binding; lower numbers bind first
// so higher-priority types may refer to already-bound parameters in
// their predicates.
type Type struct {
	Name     string
	Priority int
	Convert  func(raw string) (any, error)
	Assert   func(value any) bool
}

// Types is the type registry. NewTypes seeds the built-ins; Define
// installs or replaces an entry.
type Types struct {
	byName map[string]Type
}

func NewTypes() *Types {
	t := &Types{byName: make(map[string]Type)}
	for _, builtin := range builtinTypes() {
		t.Define(builtin)
	}
	return t
}

func (t *Types) Define(tp Type) {
	t.byName[tp.Name] = tp
}

func (t *Types) Lookup(name string) (Type, bool) {
	tp, ok := t.byName[name]
	return tp, ok
}

func builtinTypes() []Type {
	return []Type{
		{
			Name: "string",
		},
		{
			Name:    "integer",
			Convert: func(raw string) (any, error) { return parseIntPrefix(raw) },
			Assert:  isNumber,
		},
		{
			Name: "json",
			Convert: func(raw string) (any, error) {
				var v any
				if err := json.Unmarshal([]byte(raw), &v); err != nil {
					return nil, err
				}
				return v, nil
			},
		},
		{
			Name:    "keyword",
			Convert: func(raw string) (any, error) { return strings.ToLower(raw), nil },
		},
		{
			Name: "list-of-keyword",
			Convert: func(raw string) (any, error) {
				var elems []any
				if err := json.Unmarshal([]byte(raw), &elems); err != nil {
					return nil, err
				}
				keywords := make([]string, len(elems))
				for i, elem := range elems {
					s, ok := elem.(string)
					if !ok {
						return nil, fmt.Errorf("element %d is not a string", i)
					}
					keywords[i] = strings.ToLower(s)
				}
				return keywords, nil
			},
		},
		{
			Name: "list-of-integer",
			Convert: func(raw string) (any, error) {
				var elems []any
				if err := json.Unmarshal([]byte(raw), &elems); err != nil {
					return nil, err
				}
				return elems, nil
			},
			Assert: func(value any) bool {
				elems, ok := value.([]any)
				if !ok {
					return false
				}
				for _, elem := range elems {
					if !isNumber(elem) {
						return false
					}
				}
				return true
			},
		},
	}
}

// parseIntPrefix parses a signed decimal prefix, stopping at the first
// non-digit. A value without any leading digits is an error.
func parseIntPrefix(raw string) (int, error) {
	i := 0
	negative := false
	if i < len(raw) && (raw[i] == '-' || raw[i] == '+') {
		negative = raw[i] == '-'
		i++
	}
	n := 0
	digits := 0
	for ; i < len(raw); i++ {
		c := raw[i]
		if c < '0' || c > '9' {
			break
		}
		n = n*10 + int(c-'0')
		digits++
	}
	if digits == 0 {
		return 0, fmt.Errorf("no digits in %q", raw)
	}
	if negative {
		n = -n
	}
	return n, nil
}

func isNumber(value any) bool {
	switch value.(type) {
	case int, int8, int16, int32, int64, float32, float64:
		return true
	}
	return false
}
