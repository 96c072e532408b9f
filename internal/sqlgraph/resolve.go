package sqlgraph

import (
	"github.com/leapstack-labs/extsql/pkg/entity"
)

const defaultModulePathname = "MODULE_PATHNAME"

var _ entity.Context = (*SQLGraph)(nil)

// SchemaOf returns the schema e is created in. An explicit function schema
// wins, then a schema declared at the entity's module path, then the
// extension's default schema.
func (g *SQLGraph) SchemaOf(e entity.Entity) string {
	switch v := e.(type) {
	case *entity.ExtensionRoot, *entity.BuiltinType:
		return ""
	case *entity.Schema:
		return v.Name
	case *entity.Function:
		if v.Schema != "" {
			return v.Schema
		}
	}
	if idx, ok := g.index[e]; ok {
		for _, p := range g.graph.Parents(idx) {
			if s, ok := g.Entity(p).(*entity.Schema); ok && s.ModulePath == e.Module() {
				return s.Name
			}
		}
	}
	return g.ext.Schema
}

// SchemaPrefix returns "schema." for entities outside the default schema.
func (g *SQLGraph) SchemaPrefix(e entity.Entity) string {
	if _, ok := e.(*entity.Schema); ok {
		return ""
	}
	if f, ok := e.(*entity.Function); ok && f.Schema != "" {
		return f.Schema + "."
	}
	name := g.SchemaOf(e)
	if name == "" || name == "public" || name == g.ext.Schema {
		return ""
	}
	return name + "."
}

// SQLType resolves ref to SQL text. Declared types and enums are qualified by
// their schema; custom SQL declarations by the schema of the fragment.
func (g *SQLGraph) SQLType(owner entity.Entity, ref entity.TypeRef) (string, error) {
	if sql, ok := g.types.Resolve(ref.Identity(), ref.Text); ok {
		prefix := ""
		if idx, ok := g.typeNode(ref); ok {
			prefix = g.SchemaPrefix(g.Entity(idx))
		}
		return prefix + sql, nil
	}
	for _, c := range g.customs {
		if d, ok := c.e.Declares(ref.FullPath()); ok {
			return g.SchemaPrefix(c.e) + d.Name(), nil
		}
	}
	return "", unresolved(owner, "type", ref.Text)
}

// LookupFunction finds a function by module path and SQL or symbol name.
func (g *SQLGraph) LookupFunction(modulePath, name string) (*entity.Function, bool) {
	idx, ok := g.function(modulePath, name)
	if !ok {
		return nil, false
	}
	return g.Entity(idx).(*entity.Function), true
}

// ConversionOwner returns the type that renders fn as part of its definition.
func (g *SQLGraph) ConversionOwner(fn *entity.Function) (*entity.Type, bool) {
	idx, ok := g.index[fn]
	if !ok {
		return nil, false
	}
	for _, n := range g.graph.Neighbors(idx) {
		if t, ok := g.Entity(n).(*entity.Type); ok && t.Converts(fn) {
			return t, true
		}
	}
	return nil, false
}

// ModulePathname returns the shared library path for AS clauses.
func (g *SQLGraph) ModulePathname() string {
	if g.ext.ModulePathname != "" {
		return g.ext.ModulePathname
	}
	return defaultModulePathname
}
