// Package schema provides type definitions and the registry for Lattice's
// declared associations. An association is declared once per object type and
// is read-only afterwards; the registry is the single source of truth the
// model layer consults when resolving or mutating relationships.
package schema

import (
	"fmt"
	"strings"
	"unicode"
)

// Macro represents the declared shape of an association
type Macro int

const (
	// MacroBelongsTo is a to-one association: the owner stores exactly one
	// outbound edge under the reflection's property.
	MacroBelongsTo Macro = iota

	// MacroHasMany is a one-to-many inverse association: the owner stores no
	// edge; children store a belongs-to edge back to the owner, and reads go
	// through the search index.
	MacroHasMany

	// MacroHasAndBelongsToMany is a many-to-many association: the owner
	// stores forward edges under its own property.
	MacroHasAndBelongsToMany
)

// String returns the string representation of the macro
func (m Macro) String() string {
	switch m {
	case MacroBelongsTo:
		return "belongs_to"
	case MacroHasMany:
		return "has_many"
	case MacroHasAndBelongsToMany:
		return "has_and_belongs_to_many"
	default:
		return "unknown"
	}
}

// ParseMacro converts a string to a Macro
func ParseMacro(s string) (Macro, error) {
	switch s {
	case "belongs_to":
		return MacroBelongsTo, nil
	case "has_many":
		return MacroHasMany, nil
	case "has_and_belongs_to_many":
		return MacroHasAndBelongsToMany, nil
	default:
		return 0, fmt.Errorf("unknown association macro: %s", s)
	}
}

// Collection returns true if the macro resolves to a set of targets rather
// than a single one.
func (m Macro) Collection() bool {
	return m == MacroHasMany || m == MacroHasAndBelongsToMany
}

// Reflection is the static declaration of one association: its shape, the
// predicate used for the edge, the expected target type, and (optionally) the
// name of the reciprocal reflection on the target type.
type Reflection struct {
	// Name is the association name, unique per owning type.
	Name string

	// Macro fixes the association shape at declaration time.
	Macro Macro

	// Property is the predicate name the edge is stored under. For has_many
	// it names the property on the *child* side.
	Property string

	// ClassName is the expected target type. Defaults to Classify(Name).
	ClassName string

	// InverseOf names the reciprocal reflection on the target type. Only
	// meaningful for has_and_belongs_to_many; when empty, no edge is written
	// on the target side.
	InverseOf string
}

// Forward returns true if the owner itself stores the edge for this
// association. has_many is the inverse side: the child stores the edge.
func (r *Reflection) Forward() bool {
	return r.Macro != MacroHasMany
}

// TypeReflections holds all declared associations for one object type
type TypeReflections struct {
	Model       string
	Reflections map[string]*Reflection
}

// NewTypeReflections creates an empty reflection set for a type
func NewTypeReflections(model string) *TypeReflections {
	return &TypeReflections{
		Model:       model,
		Reflections: make(map[string]*Reflection),
	}
}

// Get retrieves a reflection by association name
func (t *TypeReflections) Get(name string) (*Reflection, bool) {
	r, ok := t.Reflections[name]
	return r, ok
}

// Classify derives a type name from an association name:
// "books" -> "Book", "member_of_collections" -> "MemberOfCollection".
func Classify(association string) string {
	singular := Singularize(association)
	parts := strings.Split(singular, "_")
	var b strings.Builder
	for _, p := range parts {
		if p == "" {
			continue
		}
		runes := []rune(p)
		b.WriteRune(unicode.ToUpper(runes[0]))
		b.WriteString(string(runes[1:]))
	}
	return b.String()
}

// Singularize strips simple plural suffixes
func Singularize(s string) string {
	switch {
	case strings.HasSuffix(s, "ies"):
		return s[:len(s)-3] + "y"
	case strings.HasSuffix(s, "ses"), strings.HasSuffix(s, "xes"), strings.HasSuffix(s, "zes"):
		return s[:len(s)-2]
	case strings.HasSuffix(s, "s") && !strings.HasSuffix(s, "ss"):
		return s[:len(s)-1]
	default:
		return s
	}
}

// ToSnakeCase converts CamelCase to snake_case, handling acronyms
// (HTTPRequest -> http_request).
func ToSnakeCase(s string) string {
	var result strings.Builder
	runes := []rune(s)

	for i, r := range runes {
		if unicode.IsUpper(r) {
			if i > 0 {
				prev := runes[i-1]
				if unicode.IsLower(prev) {
					result.WriteRune('_')
				} else if i+1 < len(runes) && unicode.IsLower(runes[i+1]) {
					result.WriteRune('_')
				}
			}
			result.WriteRune(unicode.ToLower(r))
		} else {
			result.WriteRune(r)
		}
	}
	return result.String()
}
