package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryRegisterAndLookup(t *testing.T) {
	r := NewRegistry()

	err := r.Register("Library",
		&Reflection{Name: "books", Macro: MacroHasMany, Property: "rel.structure.hasConstituent"},
	)
	require.NoError(t, err)

	ref, ok := r.Lookup("Library", "books")
	require.True(t, ok)
	assert.Equal(t, MacroHasMany, ref.Macro)
	assert.Equal(t, "Book", ref.ClassName, "class name derives from the association name")

	_, ok = r.Lookup("Library", "shelves")
	assert.False(t, ok)
	_, ok = r.Lookup("Museum", "books")
	assert.False(t, ok)
}

func TestRegistryDuplicateType(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register("Book"))

	err := r.Register("Book")
	assert.ErrorContains(t, err, "already registered")
}

func TestRegistryValidation(t *testing.T) {
	tests := []struct {
		name       string
		reflection *Reflection
		wantErr    string
	}{
		{
			name:       "empty name",
			reflection: &Reflection{Property: "p"},
			wantErr:    "empty name",
		},
		{
			name:       "missing property",
			reflection: &Reflection{Name: "books"},
			wantErr:    "no property",
		},
		{
			name:       "inverse_of on belongs_to",
			reflection: &Reflection{Name: "library", Macro: MacroBelongsTo, Property: "p", InverseOf: "books"},
			wantErr:    "inverse_of is only valid",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRegistry()
			err := r.Register("Book", tt.reflection)
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestRegistryDuplicateReflection(t *testing.T) {
	r := NewRegistry()
	err := r.Register("Book",
		&Reflection{Name: "library", Macro: MacroBelongsTo, Property: "p"},
		&Reflection{Name: "library", Macro: MacroBelongsTo, Property: "q"},
	)
	assert.ErrorContains(t, err, "declared twice")
}

func TestRegistryInverse(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register("Book",
		&Reflection{Name: "topics", Macro: MacroHasAndBelongsToMany, Property: "rel.subject.hasTopic", InverseOf: "books"},
	))
	require.NoError(t, r.Register("Topic",
		&Reflection{Name: "books", Macro: MacroHasAndBelongsToMany, Property: "rel.subject.coversBook"},
	))

	ref, ok := r.Lookup("Book", "topics")
	require.True(t, ok)

	inv, err := r.Inverse(ref)
	require.NoError(t, err)
	require.NotNil(t, inv)
	assert.Equal(t, "rel.subject.coversBook", inv.Property)
}

func TestRegistryInverseAbsent(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register("Book",
		&Reflection{Name: "topics", Macro: MacroHasAndBelongsToMany, Property: "p"},
	))

	ref, _ := r.Lookup("Book", "topics")
	inv, err := r.Inverse(ref)
	require.NoError(t, err)
	assert.Nil(t, inv, "no inverse_of means no reciprocal reflection")
}

func TestRegistryInverseUnresolvable(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register("Book",
		&Reflection{Name: "topics", Macro: MacroHasAndBelongsToMany, Property: "p", InverseOf: "books"},
	))

	// Target type never registered.
	ref, _ := r.Lookup("Book", "topics")
	_, err := r.Inverse(ref)
	assert.ErrorContains(t, err, "not registered")

	// Target type registered without the named reflection.
	require.NoError(t, r.Register("Topic"))
	_, err = r.Inverse(ref)
	assert.ErrorContains(t, err, "no such reflection")
}

func TestRegistryListAndClear(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register("Book"))
	require.NoError(t, r.Register("Library"))

	assert.ElementsMatch(t, []string{"Book", "Library"}, r.List())
	assert.True(t, r.Exists("Book"))

	r.Clear()
	assert.Empty(t, r.List())
	assert.False(t, r.Exists("Book"))
}
