package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestTypeRef_UnmarshalYAML(t *testing.T) {
	var refs []TypeRef
	require.NoError(t, yaml.Unmarshal([]byte(`
- i32
- {id: "alloc::string::String", text: String}
`), &refs))
	assert.Equal(t, []TypeRef{{Text: "i32"}, {ID: "alloc::string::String", Text: "String"}}, refs)
	assert.Equal(t, "i32", refs[0].Identity())
	assert.Equal(t, "alloc::string::String", refs[1].Identity())
	assert.Equal(t, "String", refs[1].FullPath())

	var full TypeRef
	require.NoError(t, yaml.Unmarshal([]byte(`{id: "pets::Cat", text: Kitty, path: "pets::cats::Cat"}`), &full))
	assert.Equal(t, TypeRef{ID: "pets::Cat", Text: "Kitty", Path: "pets::cats::Cat"}, full)
	assert.Equal(t, "pets::cats::Cat", full.FullPath())

	var bad TypeRef
	err := yaml.Unmarshal([]byte(`{txt: i32}`), &bad)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "field txt not found")
}

func TestPositioningRef_UnmarshalYAML(t *testing.T) {
	var refs []PositioningRef
	require.NoError(t, yaml.Unmarshal([]byte(`
- ext::types::Dog
- {name: bootstrap_sql}
- {path: ext::setup}
`), &refs))
	assert.Equal(t, []PositioningRef{RefPath("ext::types::Dog"), RefName("bootstrap_sql"), RefPath("ext::setup")}, refs)
	assert.True(t, refs[1].IsName())

	var bad PositioningRef
	assert.Error(t, yaml.Unmarshal([]byte(`{path: a, name: b}`), &bad))
	assert.Error(t, yaml.Unmarshal([]byte(`{}`), &bad))
}

func TestSQLDeclared_YAML(t *testing.T) {
	var decls []SQLDeclared
	require.NoError(t, yaml.Unmarshal([]byte(`
- {type: ext::Cat}
- {enum: ext::Mood}
- {function: ext::helper}
`), &decls))
	assert.Equal(t, []SQLDeclared{
		{Kind: DeclaredType, Path: "ext::Cat"},
		{Kind: DeclaredEnum, Path: "ext::Mood"},
		{Kind: DeclaredFunction, Path: "ext::helper"},
	}, decls)
	assert.Equal(t, "Function(ext::helper)", decls[2].String())
	assert.False(t, decls[2].IsType())

	out, err := yaml.Marshal(decls[0])
	require.NoError(t, err)
	assert.Equal(t, "type: ext::Cat\n", string(out))

	var bad SQLDeclared
	err = yaml.Unmarshal([]byte(`{table: ext::t}`), &bad)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown creates kind")
}
