package command

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// ParamType is the closed set of parameter types a handler may declare.
type ParamType int

const (
	String ParamType = iota + 1
	Int
	Float
	Bool
)

func (t ParamType) String() string {
	switch t {
	case String:
		return "string"
	case Int:
		return "int"
	case Float:
		return "float"
	case Bool:
		return "bool"
	}
	return "unsupported"
}

// Param is one positional parameter. The last declared parameter absorbs
// whatever text remains after the others are bound.
type Param struct {
	Name     string    `validate:"required"`
	Type     ParamType `validate:"oneof=1 2 3 4"`
	Optional bool
}

// Required declares a mandatory parameter.
func Required(name string, t ParamType) Param { return Param{Name: name, Type: t} }

// Optional declares a parameter that may be omitted.
func Optional(name string, t ParamType) Param { return Param{Name: name, Type: t, Optional: true} }

// Args are the coerced parameters passed to a handler.
type Args struct {
	values map[string]any
}

func (a Args) Has(name string) bool {
	_, ok := a.values[name]
	return ok
}

func (a Args) String(name string) string {
	s, _ := a.values[name].(string)
	return s
}

func (a Args) Int(name string) int {
	n, _ := a.values[name].(int)
	return n
}

func (a Args) Float(name string) float64 {
	f, _ := a.values[name].(float64)
	return f
}

func (a Args) Bool(name string) bool {
	b, _ := a.values[name].(bool)
	return b
}

// Len returns the number of bound parameters.
func (a Args) Len() int { return len(a.values) }

type field struct {
	text  string
	start int
}

// fields splits s on whitespace, remembering where each token starts.
func fields(s string) []field {
	var out []field
	start := -1
	for i, r := range s {
		if unicode.IsSpace(r) {
			if start >= 0 {
				out = append(out, field{text: s[start:i], start: start})
				start = -1
			}
			continue
		}
		if start < 0 {
			start = i
		}
	}
	if start >= 0 {
		out = append(out, field{text: s[start:], start: start})
	}
	return out
}

// firstToken returns the first whitespace delimited token of s and the text
// after it with leading whitespace removed.
func firstToken(s string) (string, string) {
	s = strings.TrimLeftFunc(s, unicode.IsSpace)
	i := strings.IndexFunc(s, unicode.IsSpace)
	if i < 0 {
		return s, ""
	}
	return s[:i], strings.TrimLeftFunc(s[i:], unicode.IsSpace)
}

// bindArgs coerces body into the parameters of d. Tokens beyond the declared
// parameters are kept verbatim in the last one.
func bindArgs(d *Definition, body string) (Args, error) {
	args := Args{values: make(map[string]any, len(d.Params))}
	if len(d.Params) == 0 {
		return args, nil
	}
	toks := fields(body)
	last := len(d.Params) - 1
	for i, p := range d.Params {
		if i >= len(toks) {
			if p.Optional {
				continue
			}
			return Args{}, &ArgumentError{Command: d.Path(), Missing: missingFrom(d.Params[i:])}
		}
		raw := toks[i].text
		if i == last && len(toks) > len(d.Params) {
			raw = strings.TrimRightFunc(body[toks[i].start:], unicode.IsSpace)
		}
		v, err := coerce(p.Type, raw)
		if err != nil {
			return Args{}, &ArgumentError{Command: d.Path(), Param: p, Value: raw, Err: err}
		}
		args.values[p.Name] = v
	}
	return args, nil
}

func missingFrom(params []Param) []string {
	var out []string
	for _, p := range params {
		if !p.Optional {
			out = append(out, p.Name)
		}
	}
	return out
}

func coerce(t ParamType, raw string) (any, error) {
	switch t {
	case String:
		return raw, nil
	case Int:
		n, err := strconv.Atoi(raw)
		return n, err
	case Float:
		f, err := strconv.ParseFloat(raw, 64)
		return f, err
	case Bool:
		switch strings.ToLower(raw) {
		case "yes", "y", "on":
			return true, nil
		case "no", "n", "off":
			return false, nil
		}
		b, err := strconv.ParseBool(raw)
		return b, err
	}
	return nil, fmt.Errorf("unsupported parameter type %d", t)
}
