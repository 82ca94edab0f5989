package irc

import (
	"strconv"
	"strings"
)

// Tags holds the IRCv3 message tags of a line with escapes already decoded.
// Values are kept as strings; numeric views are derived on demand.
type Tags map[string]string

// Get returns the raw value of key and whether the tag was present.
func (t Tags) Get(key string) (string, bool) {
	v, ok := t[key]
	return v, ok
}

// Int returns the integer value of key. The second result is false when the
// tag is absent or its value is not made up entirely of decimal digits.
func (t Tags) Int(key string) (int, bool) {
	v, ok := t[key]
	if !ok || !isDigits(v) {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}

// Flag reports whether key carries a truthy value ("1", or any non-zero number).
func (t Tags) Flag(key string) bool {
	n, ok := t.Int(key)
	return ok && n != 0
}

// Badges parses a comma separated badge list such as "broadcaster/1,subscriber/12"
// into name → version. Versions that are not numeric map to 0.
func (t Tags) Badges(key string) map[string]int {
	out := make(map[string]int)
	raw := t[key]
	if raw == "" {
		return out
	}
	for _, item := range strings.Split(raw, ",") {
		name, version, _ := strings.Cut(item, "/")
		if name == "" {
			continue
		}
		n := 0
		if isDigits(version) {
			n, _ = strconv.Atoi(version)
		}
		out[name] = n
	}
	return out
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
