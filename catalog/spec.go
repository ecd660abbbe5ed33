package catalog

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// Separator joins the components of a catalog spec.
const Separator = "::"

// Args holds the key=value arguments of one spec component.
type Args map[string]string

// Component is one parsed element of a catalog spec.
type Component struct {
	Name string
	Args Args
}

// String formats c back into spec syntax with sorted keys.
func (c Component) String() string {
	if len(c.Args) == 0 {
		return c.Name
	}
	keys := make([]string, 0, len(c.Args))
	for k := range c.Args {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + "=" + c.Args[k]
	}
	return c.Name + ":" + strings.Join(parts, ",")
}

// ParseComponent parses "name[:key=value[,key=value...]]".
func ParseComponent(s string) (Component, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Component{}, ErrEmptySpec
	}

	name, rest, hasArgs := strings.Cut(s, ":")
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return Component{}, fmt.Errorf("%w: missing source name in %q", ErrBadArgument, s)
	}

	c := Component{Name: name, Args: Args{}}
	if !hasArgs {
		return c, nil
	}
	for _, kv := range strings.Split(rest, ",") {
		kv = strings.TrimSpace(kv)
		if kv == "" {
			continue
		}
		k, v, ok := strings.Cut(kv, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return Component{}, fmt.Errorf("%w: %q in %q is not key=value", ErrBadArgument, kv, s)
		}
		if _, dup := c.Args[k]; dup {
			return Component{}, fmt.Errorf("%w: duplicate key %q in %q", ErrBadArgument, k, s)
		}
		c.Args[k] = strings.TrimSpace(v)
	}
	return c, nil
}

// SplitSpec splits a spec into its trimmed, non-validated component strings.
func SplitSpec(spec string) []string {
	parts := strings.Split(spec, Separator)
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

// FromList joins component specs with [Separator].
func FromList(components []string) string {
	return strings.Join(components, Separator)
}

// only reports an error if a contains keys outside allowed.
func (a Args) only(source string, allowed ...string) error {
	for k := range a {
		if !slices.Contains(allowed, k) {
			return fmt.Errorf("%w: %s does not accept %q (accepts %s)",
				ErrBadArgument, source, k, strings.Join(allowed, ", "))
		}
	}
	return nil
}

// Has reports whether key is set.
func (a Args) Has(key string) bool {
	_, ok := a[key]
	return ok
}

// String returns the value for key or def.
func (a Args) String(key, def string) string {
	if v, ok := a[key]; ok {
		return v
	}
	return def
}

// Require returns the non-empty value for key.
func (a Args) Require(key string) (string, error) {
	v := a[key]
	if v == "" {
		return "", fmt.Errorf("%w: %q is required", ErrBadArgument, key)
	}
	return v, nil
}

// Float returns the float value for key or def.
func (a Args) Float(key string, def float64) (float64, error) {
	v, ok := a[key]
	if !ok {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s=%q is not a number", ErrBadArgument, key, v)
	}
	return f, nil
}

// Int returns the integer value for key or def.
func (a Args) Int(key string, def int) (int, error) {
	v, ok := a[key]
	if !ok {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%w: %s=%q is not an integer", ErrBadArgument, key, v)
	}
	return n, nil
}
