package entity

import (
	"fmt"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var lower = cases.Lower(language.Und)

// OrdSupportSuffixes are the comparison functions a btree operator class expects,
// named <lower(type)>_<suffix>. The first one is required.
var OrdSupportSuffixes = []string{"cmp", "lt", "le", "eq", "gt", "ge"}

// SupportName returns the support function name for a type name and suffix.
func SupportName(typeName, suffix string) string {
	return lower.String(typeName) + "_" + suffix
}

// Ord declares a btree operator class for a type.
type Ord struct {
	// Name is the SQL name of the type the class is for.
	Name       string `yaml:"name"`
	ModulePath string `yaml:"module_path"`
	FullPath   string `yaml:"full_path,omitempty"`
	File       string `yaml:"file,omitempty"`
	Line       int    `yaml:"line,omitempty"`
	// TypeID is the identity of the type, defaulting to ModulePath::Name.
	TypeID string `yaml:"type_id,omitempty"`
}

func (o *Ord) Kind() Kind { return KindOrd }

func (o *Ord) Identifier() string {
	if o.FullPath != "" {
		return o.FullPath
	}
	return JoinPath(o.ModulePath, o.Name)
}

func (o *Ord) DotIdentifier() string { return "ord " + o.Identifier() }
func (o *Ord) Location() Location    { return Location{File: o.File, Line: o.Line} }
func (o *Ord) Module() string        { return o.ModulePath }

// TypeRef refers to the type the class operates on.
func (o *Ord) TypeRef() TypeRef {
	return TypeRef{ID: defaultString(o.TypeID, JoinPath(o.ModulePath, o.Name)), Text: o.Name}
}

// Validate checks required fields.
func (o *Ord) Validate() error {
	if o.Name == "" {
		return fmt.Errorf("ord at %s: name is required", o.Location())
	}
	return nil
}

func (o *Ord) ToSQL(ctx Context) (string, error) {
	ty, err := ctx.SQLType(o, o.TypeRef())
	if err != nil {
		return "", err
	}
	cmpName := SupportName(o.Name, "cmp")
	cmp, ok := ctx.LookupFunction(o.ModulePath, cmpName)
	if !ok {
		return "", fmt.Errorf("ord `%s` (%s): comparison function `%s` not found", o.Identifier(), o.Location(), JoinPath(o.ModulePath, cmpName))
	}
	family := ctx.SchemaPrefix(o) + o.Name + "_btree_ops"

	return header(o.Location(), o.Identifier()) +
		fmt.Sprintf("-- %s_btree_ops\n", o.Name) +
		fmt.Sprintf("CREATE OPERATOR FAMILY %s USING btree;\n", family) +
		fmt.Sprintf("CREATE OPERATOR CLASS %s DEFAULT FOR TYPE %s USING btree FAMILY %s AS\n", family, ty, family) +
		"\tOPERATOR 1 <,\n" +
		"\tOPERATOR 2 <=,\n" +
		"\tOPERATOR 3 =,\n" +
		"\tOPERATOR 4 >=,\n" +
		"\tOPERATOR 5 >,\n" +
		fmt.Sprintf("\tFUNCTION 1 %s%s(%s, %s);", ctx.SchemaPrefix(cmp), quoteIdent(cmp.Name), ty, ty), nil
}

// Hash declares a hash operator class for a type.
type Hash struct {
	// Name is the SQL name of the type the class is for.
	Name       string `yaml:"name"`
	ModulePath string `yaml:"module_path"`
	FullPath   string `yaml:"full_path,omitempty"`
	File       string `yaml:"file,omitempty"`
	Line       int    `yaml:"line,omitempty"`
	// TypeID is the identity of the type, defaulting to ModulePath::Name.
	TypeID string `yaml:"type_id,omitempty"`
}

func (h *Hash) Kind() Kind { return KindHash }

func (h *Hash) Identifier() string {
	if h.FullPath != "" {
		return h.FullPath
	}
	return JoinPath(h.ModulePath, h.Name)
}

func (h *Hash) DotIdentifier() string { return "hash " + h.Identifier() }
func (h *Hash) Location() Location    { return Location{File: h.File, Line: h.Line} }
func (h *Hash) Module() string        { return h.ModulePath }

// TypeRef refers to the type the class operates on.
func (h *Hash) TypeRef() TypeRef {
	return TypeRef{ID: defaultString(h.TypeID, JoinPath(h.ModulePath, h.Name)), Text: h.Name}
}

// Validate checks required fields.
func (h *Hash) Validate() error {
	if h.Name == "" {
		return fmt.Errorf("hash at %s: name is required", h.Location())
	}
	return nil
}

func (h *Hash) ToSQL(ctx Context) (string, error) {
	ty, err := ctx.SQLType(h, h.TypeRef())
	if err != nil {
		return "", err
	}
	hashName := SupportName(h.Name, "hash")
	fn, ok := ctx.LookupFunction(h.ModulePath, hashName)
	if !ok {
		return "", fmt.Errorf("hash `%s` (%s): hash function `%s` not found", h.Identifier(), h.Location(), JoinPath(h.ModulePath, hashName))
	}
	family := ctx.SchemaPrefix(h) + h.Name + "_hash_ops"

	return header(h.Location(), h.Identifier()) +
		fmt.Sprintf("-- %s_hash_ops\n", h.Name) +
		fmt.Sprintf("CREATE OPERATOR FAMILY %s USING hash;\n", family) +
		fmt.Sprintf("CREATE OPERATOR CLASS %s DEFAULT FOR TYPE %s USING hash FAMILY %s AS\n", family, ty, family) +
		fmt.Sprintf("\tOPERATOR    1   =  (%s, %s),\n", ty, ty) +
		fmt.Sprintf("\tFUNCTION    1   %s%s(%s);", ctx.SchemaPrefix(fn), quoteIdent(fn.Name), ty), nil
}

func defaultString(s, def string) string {
	if s != "" {
		return s
	}
	return def
}
