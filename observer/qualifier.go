package observer

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Qualifier is an annotation-like marker that narrows which events an observer
// matches. Qualifiers are comparable, so two qualifiers with the same name and
// value are the same qualifier.
type Qualifier struct {
	Name  string
	Value string
}

var (
	// Default is carried by every event fired without explicit qualifiers.
	Default = Of("Default")
	// Any is implicitly carried by every event.
	Any = Of("Any")
)

// Of returns a qualifier without a value.
func Of(name string) Qualifier { return Qualifier{Name: name} }

// Valued returns a qualifier with a single value member.
func Valued(name, value string) Qualifier { return Qualifier{Name: name, Value: value} }

// Named returns the @Named qualifier for value.
func Named(value string) Qualifier { return Valued("Named", value) }

func (q Qualifier) String() string {
	if q.Value == "" {
		return "@" + q.Name
	}
	return fmt.Sprintf("@%s(%s)", q.Name, strconv.Quote(q.Value))
}

// MarshalText renders the qualifier in its @Name("value") form.
func (q Qualifier) MarshalText() ([]byte, error) {
	return []byte(q.String()), nil
}

// UnmarshalText parses the @Name("value") form.
func (q *Qualifier) UnmarshalText(b []byte) error {
	parsed, err := ParseQualifier(string(b))
	if err != nil {
		return err
	}
	*q = parsed
	return nil
}

// ParseQualifier reads a qualifier written as Name, @Name, @Name(value) or
// @Name("value").
func ParseQualifier(s string) (Qualifier, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "@")
	open := strings.IndexByte(s, '(')
	if open < 0 {
		if s == "" {
			return Qualifier{}, fmt.Errorf("qualifier: empty name")
		}
		return Of(s), nil
	}
	if !strings.HasSuffix(s, ")") {
		return Qualifier{}, fmt.Errorf("qualifier %q: missing closing parenthesis", s)
	}
	name := strings.TrimSpace(s[:open])
	if name == "" {
		return Qualifier{}, fmt.Errorf("qualifier %q: empty name", s)
	}
	value := strings.TrimSpace(s[open+1 : len(s)-1])
	if unquoted, err := strconv.Unquote(value); err == nil {
		value = unquoted
	}
	return Valued(name, value), nil
}

// QualifierSet is a set of qualifiers.
type QualifierSet map[Qualifier]struct{}

// NewQualifierSet returns a set holding qs.
func NewQualifierSet(qs ...Qualifier) QualifierSet {
	s := make(QualifierSet, len(qs))
	for _, q := range qs {
		s[q] = struct{}{}
	}
	return s
}

func (s QualifierSet) Add(qs ...Qualifier) {
	for _, q := range qs {
		s[q] = struct{}{}
	}
}

func (s QualifierSet) Contains(q Qualifier) bool {
	_, ok := s[q]
	return ok
}

// ContainsAll reports whether every member of other is in s.
func (s QualifierSet) ContainsAll(other QualifierSet) bool {
	for q := range other {
		if !s.Contains(q) {
			return false
		}
	}
	return true
}

func (s QualifierSet) Equal(other QualifierSet) bool {
	return len(s) == len(other) && s.ContainsAll(other)
}

func (s QualifierSet) Clone() QualifierSet {
	out := make(QualifierSet, len(s))
	for q := range s {
		out[q] = struct{}{}
	}
	return out
}

// Slice returns the members ordered by their string form.
func (s QualifierSet) Slice() []Qualifier {
	out := make([]Qualifier, 0, len(s))
	for q := range s {
		out = append(out, q)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}

// Key is a stable string form of the set, usable as a map or cache key.
func (s QualifierSet) Key() string {
	parts := make([]string, 0, len(s))
	for _, q := range s.Slice() {
		parts = append(parts, q.String())
	}
	return strings.Join(parts, ",")
}
