package entity

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubContext resolves types from a fixed table.
type stubContext struct {
	prefixes  map[Entity]string
	types     map[string]string
	functions []*Function
	owners    map[*Function]*Type
}

func newStub(functions ...*Function) *stubContext {
	return &stubContext{
		prefixes: map[Entity]string{},
		types: map[string]string{
			"i32":    "integer",
			"String": "text",
			"bool":   "boolean",
			"Dog":    "Dog",
		},
		functions: functions,
		owners:    map[*Function]*Type{},
	}
}

func (c *stubContext) SchemaPrefix(e Entity) string { return c.prefixes[e] }

func (c *stubContext) SQLType(owner Entity, ref TypeRef) (string, error) {
	if sql, ok := c.types[ref.Text]; ok {
		return sql, nil
	}
	return "", fmt.Errorf("`%s`: could not resolve %s", owner.Identifier(), ref.Text)
}

func (c *stubContext) LookupFunction(modulePath, name string) (*Function, bool) {
	for _, f := range c.functions {
		if f.ModulePath == modulePath && f.Named(name) {
			return f, true
		}
	}
	return nil, false
}

func (c *stubContext) ConversionOwner(fn *Function) (*Type, bool) {
	t, ok := c.owners[fn]
	return t, ok
}

func (c *stubContext) ModulePathname() string { return "MODULE_PATHNAME" }

func TestJoinAndSplitPath(t *testing.T) {
	assert.Equal(t, "a::b::c", JoinPath("a", "", "b", "c"))
	assert.Equal(t, "c", JoinPath("", "c"))

	mod, name := SplitPath("a::b::c")
	assert.Equal(t, "a::b", mod)
	assert.Equal(t, "c", name)

	mod, name = SplitPath("plain")
	assert.Equal(t, "", mod)
	assert.Equal(t, "plain", name)
}

func TestSort_IsPermutationIndependent(t *testing.T) {
	base := []Entity{
		&Schema{Name: "s", ModulePath: "ext::s"},
		&Function{Name: "b", ModulePath: "ext"},
		&Function{Name: "a", ModulePath: "ext"},
		&Function{Name: "a", ModulePath: "ext", File: "z.rs"},
		&Type{Name: "Dog", ModulePath: "ext", InFn: "i", OutFn: "o"},
		&CustomSQL{ModulePath: "ext", SQL: "SELECT 1;", File: "lib.rs", Line: 3},
		&CustomSQL{ModulePath: "ext", SQL: "SELECT 2;", File: "lib.rs", Line: 3},
		&Enum{Name: "Color", ModulePath: "ext", Variants: []string{"red"}},
	}

	want := append([]Entity(nil), base...)
	Sort(want)

	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 20; i++ {
		shuffled := append([]Entity(nil), base...)
		rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
		Sort(shuffled)
		require.Equal(t, want, shuffled)
	}

	assert.Equal(t, KindSchema, want[0].Kind())
	assert.Equal(t, KindEnum, want[len(want)-1].Kind())
}

func TestCompare_FallsBackToContent(t *testing.T) {
	a := &CustomSQL{ModulePath: "ext", SQL: "SELECT 1;", File: "lib.rs", Line: 3}
	b := &CustomSQL{ModulePath: "ext", SQL: "SELECT 2;", File: "lib.rs", Line: 3}

	require.Equal(t, a.Identifier(), b.Identifier())
	assert.NotEqual(t, Fingerprint(a), Fingerprint(b))
	assert.NotZero(t, Compare(a, b))
	assert.Equal(t, -Compare(a, b), Compare(b, a))
	assert.Zero(t, Compare(a, &CustomSQL{ModulePath: "ext", SQL: "SELECT 1;", File: "lib.rs", Line: 3}))
}

func TestFunction_ToSQL(t *testing.T) {
	f := &Function{
		Name:       "add_one",
		ModulePath: "ext",
		File:       "src/lib.rs",
		Line:       10,
		Args:       []Argument{{Name: "x", Type: TypeRef{Text: "i32"}}},
		Returns:    Returning{Type: &TypeRef{Text: "i32"}},
		Attrs:      FunctionAttrs{Volatility: Immutable, Parallel: ParallelSafe},
	}

	got, err := f.ToSQL(newStub(f))
	require.NoError(t, err)
	assert.Equal(t, `-- src/lib.rs:10
-- ext::add_one
CREATE FUNCTION "add_one"(
	"x" integer /* i32 */
) RETURNS integer /* i32 */
IMMUTABLE STRICT PARALLEL SAFE
LANGUAGE c
AS 'MODULE_PATHNAME', 'add_one_wrapper';`, got)
}

func TestFunction_ToSQL_Shapes(t *testing.T) {
	tests := []struct {
		name     string
		fn       *Function
		contains []string
	}{
		{
			name: "void with schema and defaults",
			fn: &Function{
				Name: "greet", ModulePath: "ext",
				Args: []Argument{
					{Name: "name", Type: TypeRef{Text: "String"}, Default: "'world'", Optional: true},
					{Name: "loud", Type: TypeRef{Text: "bool"}},
				},
				Attrs:      FunctionAttrs{CreateOrReplace: true},
				SearchPath: []string{"$user", "public"},
			},
			contains: []string{
				`CREATE OR REPLACE FUNCTION "greet"(`,
				"\t\"name\" text DEFAULT 'world', /* String */\n",
				"\t\"loud\" boolean /* bool */\n",
				") RETURNS void\n",
				"SET search_path TO $user, public\n",
			},
		},
		{
			name: "setof",
			fn: &Function{
				Name: "numbers", ModulePath: "ext",
				Returns: Returning{SetOf: &TypeRef{Text: "i32"}},
			},
			contains: []string{`CREATE FUNCTION "numbers"() RETURNS SETOF integer /* i32 */`},
		},
		{
			name: "table",
			fn: &Function{
				Name: "pairs", ModulePath: "ext",
				Returns: Returning{Table: []Column{
					{Name: "k", Type: TypeRef{Text: "String"}},
					{Name: "v", Type: TypeRef{Text: "i32"}},
				}},
			},
			contains: []string{"RETURNS TABLE (\n\t\"k\" text, /* String */\n\t\"v\" integer /* i32 */\n)"},
		},
		{
			name: "trigger with variadic",
			fn: &Function{
				Name: "audit", ModulePath: "ext", UnaliasedName: "audit_impl",
				Args:    []Argument{{Name: "cols", Type: TypeRef{Text: "String"}, Variadic: true}},
				Returns: Returning{Trigger: true},
			},
			contains: []string{
				"\t\"cols\" VARIADIC text /* String */",
				"RETURNS trigger",
				"AS 'MODULE_PATHNAME', 'audit_impl_wrapper';",
			},
		},
		{
			name: "requires comment",
			fn: &Function{
				Name: "after", ModulePath: "ext",
				Attrs: FunctionAttrs{Requires: []PositioningRef{RefPath("ext::Dog"), RefName("setup")}},
			},
			contains: []string{"-- requires:\n--   ext::Dog\n--   \"setup\"\n"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.fn.ToSQL(newStub(tt.fn))
			require.NoError(t, err)
			for _, want := range tt.contains {
				assert.Contains(t, got, want)
			}
		})
	}
}

func TestFunction_Strict(t *testing.T) {
	tests := []struct {
		name string
		fn   Function
		want bool
	}{
		{"no args upgrades", Function{}, true},
		{"required args upgrade", Function{Args: []Argument{{Name: "a"}}}, true},
		{"optional arg blocks upgrade", Function{Args: []Argument{{Name: "a"}, {Name: "b", Optional: true}}}, false},
		{"explicit strict", Function{Args: []Argument{{Name: "a", Optional: true}}, Attrs: FunctionAttrs{Strict: true}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.fn.Strict())
		})
	}
}

func TestFunction_Operator(t *testing.T) {
	f := &Function{
		Name: "dog_eq", ModulePath: "ext",
		Args: []Argument{
			{Name: "l", Type: TypeRef{Text: "Dog"}},
			{Name: "r", Type: TypeRef{Text: "Dog"}},
		},
		Returns:  Returning{Type: &TypeRef{Text: "bool"}},
		Operator: &Operator{Symbol: "=", Negator: "<>", Hashes: true},
	}
	stub := newStub(f)
	stub.prefixes[f] = "pets."

	got, err := f.ToSQL(stub)
	require.NoError(t, err)
	assert.Contains(t, got, `CREATE FUNCTION pets."dog_eq"(`)
	assert.Contains(t, got, "CREATE OPERATOR = (\n"+
		"\tPROCEDURE=pets.\"dog_eq\",\n"+
		"\tLEFTARG=Dog, /* Dog */\n"+
		"\tRIGHTARG=Dog, /* Dog */\n"+
		"\tNEGATOR = <>,\n"+
		"\tHASHES\n"+
		");")

	f.Args = f.Args[:1]
	err = f.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exactly two arguments")
}

func TestFunction_Validate(t *testing.T) {
	tests := []struct {
		name    string
		fn      Function
		wantErr string
	}{
		{"ok", Function{Name: "f", Attrs: FunctionAttrs{Volatility: Stable, Parallel: ParallelRestricted}}, ""},
		{"missing name", Function{}, "name is required"},
		{"bad volatility", Function{Name: "f", Attrs: FunctionAttrs{Volatility: "sometimes"}}, "invalid volatility"},
		{"bad parallel", Function{Name: "f", Attrs: FunctionAttrs{Parallel: "maybe"}}, "invalid parallel"},
		{"two returns", Function{Name: "f", Returns: Returning{Type: &TypeRef{Text: "i32"}, Trigger: true}}, "at most one"},
		{"variadic not last", Function{Name: "f", Args: []Argument{{Name: "a", Variadic: true}, {Name: "b"}}}, "only the last"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.fn.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestFunction_ConversionFunctionRendersEmpty(t *testing.T) {
	in := &Function{Name: "dog_in", ModulePath: "ext"}
	ty := &Type{Name: "Dog", ModulePath: "ext", InFn: "dog_in", OutFn: "dog_out"}
	stub := newStub(in)
	stub.owners[in] = ty

	got, err := in.ToSQL(stub)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestType_ToSQL_Order(t *testing.T) {
	in := &Function{
		Name: "dog_in", ModulePath: "ext",
		Args:    []Argument{{Name: "input", Type: TypeRef{Text: "String"}}},
		Returns: Returning{Type: &TypeRef{Text: "Dog"}},
	}
	out := &Function{
		Name: "dog_out", ModulePath: "ext",
		Args:    []Argument{{Name: "input", Type: TypeRef{Text: "Dog"}}},
		Returns: Returning{Type: &TypeRef{Text: "String"}},
	}
	ty := &Type{Name: "Dog", ModulePath: "ext", File: "dog.rs", Line: 4, InFn: "dog_in", OutFn: "dog_out"}
	stub := newStub(in, out)
	stub.owners[in] = ty
	stub.owners[out] = ty

	got, err := ty.ToSQL(stub)
	require.NoError(t, err)

	shell := indexOf(t, got, "CREATE TYPE Dog;")
	inFn := indexOf(t, got, `CREATE FUNCTION "dog_in"`)
	outFn := indexOf(t, got, `CREATE FUNCTION "dog_out"`)
	full := indexOf(t, got, "CREATE TYPE Dog (")
	assert.Less(t, shell, inFn)
	assert.Less(t, inFn, outFn)
	assert.Less(t, outFn, full)
	assert.Contains(t, got, "\tINPUT = \"dog_in\", /* ext::dog_in */\n")
	assert.Contains(t, got, "\tOUTPUT = \"dog_out\", /* ext::dog_out */\n")

	_, err = (&Type{Name: "Cat", ModulePath: "ext", InFn: "cat_in", OutFn: "cat_out"}).ToSQL(stub)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ext::cat_in")
}

func TestType_Mappings(t *testing.T) {
	ty := &Type{Name: "Dog", ModulePath: "ext"}
	assert.Equal(t, []Mapping{{ID: "ext::Dog", SQL: "Dog"}}, ty.TypeMappings())
	assert.True(t, ty.MatchesID("ext::Dog"))

	ty.Mappings = []Mapping{{ID: "ext::Dog", SQL: "Dog"}, {ID: "Vec<ext::Dog>", SQL: "Dog[]"}}
	assert.True(t, ty.MatchesID("Vec<ext::Dog>"))
	assert.False(t, ty.MatchesID("ext::Cat"))

	ty.InFnModulePath = "ext::io"
	assert.Equal(t, "ext::io", ty.InFnModule())
	assert.Equal(t, "ext", ty.OutFnModule())
}

func TestEnum_ToSQL(t *testing.T) {
	e := &Enum{Name: "Mood", ModulePath: "ext", File: "mood.rs", Line: 1, Variants: []string{"happy", "it's fine"}}
	stub := newStub()
	stub.prefixes[e] = "feelings."

	got, err := e.ToSQL(stub)
	require.NoError(t, err)
	assert.Equal(t, "-- mood.rs:1\n-- ext::Mood\nCREATE TYPE feelings.Mood AS ENUM (\n\t'happy',\n\t'it''s fine'\n);", got)
}

func TestSchema_ToSQL(t *testing.T) {
	s := &Schema{Name: "pets", ModulePath: "ext::pets", File: "pets.rs", Line: 1}
	got, err := s.ToSQL(newStub())
	require.NoError(t, err)
	assert.Equal(t, "-- pets.rs:1\n-- ext::pets\nCREATE SCHEMA IF NOT EXISTS pets;", got)

	for _, name := range []string{"public", "pg_catalog"} {
		got, err := (&Schema{Name: name, ModulePath: "ext"}).ToSQL(newStub())
		require.NoError(t, err)
		assert.Empty(t, got)
	}
}

func TestCustomSQL_ToSQL(t *testing.T) {
	c := &CustomSQL{
		Name:       "setup",
		ModulePath: "ext",
		SQL:        "\nCREATE TABLE t (id int);\n",
		File:       "lib.rs",
		Line:       42,
		Bootstrap:  true,
		Requires:   []PositioningRef{RefName("other")},
		Creates:    []SQLDeclared{{Kind: DeclaredType, Path: "ext::Cat"}},
	}
	got, err := c.ToSQL(newStub())
	require.NoError(t, err)
	assert.Equal(t, `-- lib.rs:42
-- ext::setup
-- bootstrap
-- creates:
--   Type(ext::Cat)
-- requires:
--   "other"
CREATE TABLE t (id int);`, got)

	d, ok := c.Declares("Cat")
	assert.True(t, ok)
	assert.Equal(t, "Cat", d.Name())
	_, ok = c.Declares("Dog")
	assert.False(t, ok)

	c.Finalize = true
	assert.Error(t, c.Validate())
}

func TestOrdAndHash_ToSQL(t *testing.T) {
	cmp := &Function{Name: "dog_cmp", ModulePath: "ext"}
	hash := &Function{Name: "dog_hash", ModulePath: "ext"}
	stub := newStub(cmp, hash)

	ord := &Ord{Name: "Dog", ModulePath: "ext"}
	got, err := ord.ToSQL(stub)
	require.NoError(t, err)
	assert.Contains(t, got, "CREATE OPERATOR FAMILY Dog_btree_ops USING btree;\n")
	assert.Contains(t, got, "CREATE OPERATOR CLASS Dog_btree_ops DEFAULT FOR TYPE Dog USING btree FAMILY Dog_btree_ops AS\n")
	assert.Contains(t, got, "\tFUNCTION 1 \"dog_cmp\"(Dog, Dog);")
	assert.Equal(t, TypeRef{ID: "ext::Dog", Text: "Dog"}, ord.TypeRef())

	h := &Hash{Name: "Dog", ModulePath: "ext"}
	got, err = h.ToSQL(stub)
	require.NoError(t, err)
	assert.Contains(t, got, "\tOPERATOR    1   =  (Dog, Dog),\n\tFUNCTION    1   \"dog_hash\"(Dog);")

	_, err = (&Ord{Name: "Dog", ModulePath: "other"}).ToSQL(stub)
	assert.Error(t, err)
}

func TestSupportName(t *testing.T) {
	assert.Equal(t, "dog_cmp", SupportName("Dog", "cmp"))
	assert.Equal(t, "myhashable_hash", SupportName("MyHashable", "hash"))
}

func TestAggregate_ToSQL(t *testing.T) {
	state := &Function{Name: "sum_state", ModulePath: "ext"}
	final := &Function{Name: "sum_final", ModulePath: "ext"}
	agg := &Aggregate{
		Name:            "my_sum",
		ModulePath:      "ext",
		File:            "agg.rs",
		Line:            9,
		State:           TypeRef{Text: "i32"},
		Args:            []AggregateArg{{Name: "value", Type: TypeRef{Text: "i32"}}},
		SFunc:           "sum_state",
		FinalFunc:       "sum_final",
		FinalFuncModify: ModifyReadOnly,
		InitCond:        "0",
		Parallel:        ParallelSafe,
	}
	require.NoError(t, agg.Validate())

	got, err := agg.ToSQL(newStub(state, final))
	require.NoError(t, err)
	assert.Equal(t, `-- agg.rs:9
-- ext::my_sum
CREATE AGGREGATE my_sum (
	"value" integer /* i32 */
)
(
	SFUNC = "sum_state", /* ext::sum_state */
	STYPE = integer, /* i32 */
	FINALFUNC = "sum_final", /* ext::sum_final */
	FINALFUNC_MODIFY = READ_ONLY,
	INITCOND = '0',
	PARALLEL = SAFE
);`, got)
}

func TestAggregate_OrderedSetAndStar(t *testing.T) {
	state := &Function{Name: "pct_state", ModulePath: "ext"}
	agg := &Aggregate{
		Name: "pct", ModulePath: "ext",
		State:        TypeRef{Text: "i32"},
		DirectArgs:   []AggregateArg{{Type: TypeRef{Text: "i32"}}},
		Args:         []AggregateArg{{Type: TypeRef{Text: "i32"}}},
		SFunc:        "pct_state",
		Hypothetical: true,
	}
	require.NoError(t, agg.Validate())
	got, err := agg.ToSQL(newStub(state))
	require.NoError(t, err)
	assert.Contains(t, got, "CREATE AGGREGATE pct (\n\tinteger /* i32 */\n\tORDER BY\n\tinteger /* i32 */\n)")
	assert.Contains(t, got, "\tHYPOTHETICAL\n);")

	count := &Aggregate{Name: "cnt", ModulePath: "ext", State: TypeRef{Text: "i32"}, SFunc: "pct_state"}
	got, err = count.ToSQL(newStub(state))
	require.NoError(t, err)
	assert.Contains(t, got, "CREATE AGGREGATE cnt (*)")

	count.SFunc = "missing"
	_, err = count.ToSQL(newStub(state))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sfunc function `ext::missing` not found")
}

func TestAggregate_Validate(t *testing.T) {
	ok := func() Aggregate {
		return Aggregate{Name: "a", State: TypeRef{Text: "i32"}, SFunc: "s"}
	}
	tests := []struct {
		name    string
		mutate  func(a *Aggregate)
		wantErr string
	}{
		{"ok", func(*Aggregate) {}, ""},
		{"missing sfunc", func(a *Aggregate) { a.SFunc = "" }, "sfunc is required"},
		{"missing state", func(a *Aggregate) { a.State = TypeRef{} }, "state type is required"},
		{"bad modify", func(a *Aggregate) { a.FinalFuncModify = "sometimes" }, "invalid modify mode"},
		{"partial moving", func(a *Aggregate) { a.MSFunc = "m" }, "moving aggregates"},
		{"hypothetical without direct args", func(a *Aggregate) { a.Hypothetical = true }, "direct_args"},
		{"bad parallel", func(a *Aggregate) { a.Parallel = "never" }, "invalid parallel"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := ok()
			tt.mutate(&a)
			err := a.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestExtensionRoot_ToSQL(t *testing.T) {
	r := &ExtensionRoot{Name: "pets", DefaultVersion: "1.0.0", Comment: "Pet types"}
	got, err := r.ToSQL(newStub())
	require.NoError(t, err)
	assert.Equal(t, "/*\nThis file is generated for extension `pets` version 1.0.0.\nPet types\n\nStatement order is driven by the entity dependency graph.\n*/", got)
	assert.Error(t, (&ExtensionRoot{}).Validate())
}

func indexOf(t *testing.T, s, sub string) int {
	t.Helper()
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			return i
		}
	}
	t.Fatalf("%q not found in output", sub)
	return -1
}
