package sqlgraph

import (
	"errors"
	"fmt"

	"github.com/leapstack-labs/extsql/internal/dag"
	"github.com/leapstack-labs/extsql/internal/typemap"
	"github.com/leapstack-labs/extsql/pkg/entity"
)

func (g *SQLGraph) addNode(e entity.Entity) dag.NodeIndex {
	idx := g.graph.AddNode(e)
	g.index[e] = idx
	return idx
}

// addNodes creates one node per entity. Entities must already be sorted so
// handles are assigned deterministically.
func (g *SQLGraph) addNodes(entities []entity.Entity) error {
	for _, e := range entities {
		if _, dup := g.index[e]; dup {
			continue
		}
		switch v := e.(type) {
		case *entity.Schema:
			g.schemas = append(g.schemas, node[*entity.Schema]{g.addNode(v), v})
		case *entity.CustomSQL:
			idx := g.addNode(v)
			if err := g.claimPositioning(idx, v); err != nil {
				return err
			}
			g.customs = append(g.customs, node[*entity.CustomSQL]{idx, v})
		case *entity.Function:
			g.functions = append(g.functions, node[*entity.Function]{g.addNode(v), v})
		case *entity.Type:
			g.typeNodes = append(g.typeNodes, node[*entity.Type]{g.addNode(v), v})
		case *entity.Enum:
			g.enums = append(g.enums, node[*entity.Enum]{g.addNode(v), v})
		case *entity.Ord:
			g.ords = append(g.ords, node[*entity.Ord]{g.addNode(v), v})
		case *entity.Hash:
			g.hashes = append(g.hashes, node[*entity.Hash]{g.addNode(v), v})
		case *entity.Aggregate:
			g.aggregates = append(g.aggregates, node[*entity.Aggregate]{g.addNode(v), v})
		default:
			return fmt.Errorf("extsql: unexpected %s entity `%s` in input", e.Kind(), e.Identifier())
		}
	}
	return nil
}

func (g *SQLGraph) claimPositioning(idx dag.NodeIndex, c *entity.CustomSQL) error {
	switch {
	case c.Bootstrap:
		if g.bootstrap != noNode {
			return &ConflictError{What: "`bootstrap` positioning", First: describe(g.Entity(g.bootstrap)), Second: describe(c)}
		}
		g.bootstrap = idx
	case c.Finalize:
		if g.finalize != noNode {
			return &ConflictError{What: "`finalize` positioning", First: describe(g.Entity(g.finalize)), Second: describe(c)}
		}
		g.finalize = idx
	}
	return nil
}

// addBuiltins creates one node per distinct type text that functions and
// aggregates use without matching a declared type or enum.
func (g *SQLGraph) addBuiltins() {
	var refs []entity.TypeRef
	for _, f := range g.functions {
		refs = append(refs, f.e.ArgRefs()...)
		refs = append(refs, f.e.Returns.Refs()...)
	}
	for _, a := range g.aggregates {
		refs = append(refs, a.e.ArgRefs()...)
		refs = append(refs, a.e.StateRefs()...)
	}
	for _, ref := range refs {
		if _, ok := g.typeNode(ref); ok {
			continue
		}
		if _, ok := g.builtins[ref.Text]; ok {
			continue
		}
		b := &entity.BuiltinType{Text: ref.Text}
		idx := g.addNode(b)
		g.builtins[ref.Text] = idx
		g.builtinNodes = append(g.builtinNodes, node[*entity.BuiltinType]{idx, b})
	}
}

// registerTypes adds every type and enum mapping to the table.
func (g *SQLGraph) registerTypes() error {
	register := func(owner entity.Entity, mappings []entity.Mapping) error {
		for _, m := range mappings {
			err := g.types.Register(typemap.Mapping{ID: m.ID, SQL: m.SQL, Owner: owner.Identifier()})
			var dup *typemap.DuplicateError
			if errors.As(err, &dup) {
				return &ConflictError{
					What:   fmt.Sprintf("mappings for `%s`", dup.Key),
					First:  previousOwner(dup.First),
					Second: describe(owner),
					Cause:  err,
				}
			}
			if err != nil {
				return err
			}
		}
		return nil
	}
	for _, t := range g.typeNodes {
		if err := register(t.e, t.e.TypeMappings()); err != nil {
			return err
		}
	}
	for _, e := range g.enums {
		if err := register(e.e, e.e.TypeMappings()); err != nil {
			return err
		}
	}
	return nil
}

func previousOwner(owner string) string {
	if owner == "" {
		return "base mappings"
	}
	return "`" + owner + "`"
}
