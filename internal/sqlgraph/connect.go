package sqlgraph

import (
	"errors"
	"strings"

	"github.com/leapstack-labs/extsql/internal/dag"
	"github.com/leapstack-labs/extsql/pkg/entity"
)

func (g *SQLGraph) connect() error {
	passes := []func() error{
		g.connectSchemas,
		g.connectCustomSQL,
		g.connectFunctions,
		g.connectTypes,
		g.connectEnums,
		g.connectOrds,
		g.connectHashes,
		g.connectAggregates,
		g.connectBuiltins,
	}
	for _, pass := range passes {
		if err := pass(); err != nil {
			return err
		}
	}
	return nil
}

// addEdge records from -> to. A self-edge from a requires list is a
// one-element cycle.
func (g *SQLGraph) addEdge(from, to dag.NodeIndex, kind EdgeKind) error {
	if from == to {
		ident := g.Entity(from).Identifier()
		return &CycleError{Entity: ident, Path: []string{ident, ident}}
	}
	added, err := g.graph.AddEdge(from, to, kind)
	if err != nil {
		return err
	}
	if added {
		g.logger.Debug("edge",
			"from", g.Entity(from).Identifier(),
			"to", g.Entity(to).Identifier(),
			"kind", kind.String())
	}
	return nil
}

// connectBase links idx under the root and between the bootstrap and finalize
// fragments when those exist.
func (g *SQLGraph) connectBase(idx dag.NodeIndex) error {
	if err := g.addEdge(g.root, idx, RequiredBy); err != nil {
		return err
	}
	if g.bootstrap != noNode && g.bootstrap != idx {
		if err := g.addEdge(g.bootstrap, idx, RequiredBy); err != nil {
			return err
		}
	}
	if g.finalize != noNode && g.finalize != idx {
		if err := g.addEdge(idx, g.finalize, RequiredBy); err != nil {
			return err
		}
	}
	return nil
}

// connectContainment puts idx after every schema declared at its module path.
func (g *SQLGraph) connectContainment(idx dag.NodeIndex, module string) error {
	for _, s := range g.schemas {
		if s.idx == idx || s.e.ModulePath != module {
			continue
		}
		if err := g.addEdge(s.idx, idx, RequiredBy); err != nil {
			return err
		}
	}
	return nil
}

func (g *SQLGraph) connectRequires(idx dag.NodeIndex, owner entity.Entity, requires []entity.PositioningRef) error {
	for _, ref := range requires {
		target, ok := g.findPositioningTarget(ref)
		if !ok {
			return unresolved(owner, "requires", ref.String())
		}
		if err := g.addEdge(target, idx, RequiredBy); err != nil {
			return err
		}
	}
	return nil
}

// connectTypeUsage links the provider of every type reference to idx. A
// declared type or enum wins over a builtin; custom SQL that creates the type
// is linked in addition.
func (g *SQLGraph) connectTypeUsage(idx dag.NodeIndex, owner entity.Entity, refs []entity.TypeRef, kind EdgeKind, what string) error {
	for _, ref := range refs {
		from, ok := g.typeNode(ref)
		if !ok {
			from, ok = g.builtins[ref.Text]
		}
		if ok {
			if err := g.addEdge(from, idx, kind); err != nil {
				return err
			}
		}
		for _, c := range g.customs {
			if _, declares := c.e.Declares(ref.FullPath()); declares {
				if err := g.addEdge(c.idx, idx, kind); err != nil {
					return err
				}
				ok = true
			}
		}
		if !ok {
			return unresolved(owner, what, ref.Text)
		}
	}
	return nil
}

func (g *SQLGraph) connectSchemas() error {
	for _, s := range g.schemas {
		if err := g.connectBase(s.idx); err != nil {
			return err
		}
	}
	return nil
}

func (g *SQLGraph) connectCustomSQL() error {
	for _, c := range g.customs {
		if err := g.connectContainment(c.idx, c.e.ModulePath); err != nil {
			return err
		}
		if err := g.connectBase(c.idx); err != nil {
			return err
		}
		if err := g.connectRequires(c.idx, c.e, c.e.Requires); err != nil {
			return err
		}
	}
	return nil
}

func (g *SQLGraph) connectFunctions() error {
	for _, f := range g.functions {
		if err := g.connectContainment(f.idx, f.e.ModulePath); err != nil {
			return err
		}
		if err := g.connectBase(f.idx); err != nil {
			return err
		}
		if err := g.connectRequires(f.idx, f.e, f.e.Attrs.Requires); err != nil {
			return err
		}
		if err := g.connectTypeUsage(f.idx, f.e, f.e.ArgRefs(), RequiredByArg, "argument type"); err != nil {
			return err
		}
		if err := g.connectTypeUsage(f.idx, f.e, f.e.Returns.Refs(), RequiredByReturn, "return type"); err != nil {
			return err
		}
	}
	return nil
}

// connectTypes orders each type before its conversion functions. The type
// renders those functions inline, so they must exist.
func (g *SQLGraph) connectTypes() error {
	for _, t := range g.typeNodes {
		if err := g.connectContainment(t.idx, t.e.ModulePath); err != nil {
			return err
		}
		if err := g.connectBase(t.idx); err != nil {
			return err
		}
		conversions := []struct {
			what, module, name string
		}{
			{"input function", t.e.InFnModule(), t.e.InFn},
			{"output function", t.e.OutFnModule(), t.e.OutFn},
		}
		for _, conv := range conversions {
			fn, ok := g.function(conv.module, conv.name)
			if !ok {
				return unresolved(t.e, conv.what, entity.JoinPath(conv.module, conv.name))
			}
			if err := g.addEdge(t.idx, fn, RequiredBy); err != nil {
				return err
			}
		}
	}
	return nil
}

func (g *SQLGraph) connectEnums() error {
	for _, e := range g.enums {
		if err := g.connectContainment(e.idx, e.e.ModulePath); err != nil {
			return err
		}
		if err := g.connectBase(e.idx); err != nil {
			return err
		}
	}
	return nil
}

// connectOperatorClass links the class to its type and support functions.
// Only the first suffix is required.
func (g *SQLGraph) connectOperatorClass(idx dag.NodeIndex, owner entity.Entity, name string, ref entity.TypeRef, suffixes []string) error {
	if err := g.connectContainment(idx, owner.Module()); err != nil {
		return err
	}
	if err := g.connectBase(idx); err != nil {
		return err
	}

	if ty, ok := g.typeNode(ref); ok {
		if err := g.addEdge(ty, idx, RequiredBy); err != nil {
			return err
		}
	} else {
		for _, c := range g.customs {
			if _, declares := c.e.Declares(ref.FullPath()); declares {
				if err := g.addEdge(c.idx, idx, RequiredBy); err != nil {
					return err
				}
			}
		}
	}

	for i, suffix := range suffixes {
		support := entity.SupportName(name, suffix)
		fn, ok := g.function(owner.Module(), support)
		if !ok {
			if i == 0 {
				return unresolved(owner, "support function", entity.JoinPath(owner.Module(), support))
			}
			continue
		}
		if err := g.addEdge(fn, idx, RequiredBy); err != nil {
			return err
		}
	}
	return nil
}

func (g *SQLGraph) connectOrds() error {
	for _, o := range g.ords {
		if err := g.connectOperatorClass(o.idx, o.e, o.e.Name, o.e.TypeRef(), entity.OrdSupportSuffixes); err != nil {
			return err
		}
	}
	return nil
}

func (g *SQLGraph) connectHashes() error {
	for _, h := range g.hashes {
		if err := g.connectOperatorClass(h.idx, h.e, h.e.Name, h.e.TypeRef(), []string{"hash"}); err != nil {
			return err
		}
	}
	return nil
}

func (g *SQLGraph) connectAggregates() error {
	for _, a := range g.aggregates {
		if err := g.connectContainment(a.idx, a.e.ModulePath); err != nil {
			return err
		}
		if err := g.connectBase(a.idx); err != nil {
			return err
		}
		if err := g.connectTypeUsage(a.idx, a.e, a.e.ArgRefs(), RequiredByArg, "argument type"); err != nil {
			return err
		}
		if err := g.connectTypeUsage(a.idx, a.e, a.e.StateRefs(), RequiredByReturn, "state type"); err != nil {
			return err
		}
		for _, cb := range a.e.Callbacks() {
			fn, ok := g.function(a.e.ModulePath, cb.Name)
			if !ok {
				return unresolved(a.e, strings.ToLower(cb.Role), entity.JoinPath(a.e.ModulePath, cb.Name))
			}
			if err := g.addEdge(fn, a.idx, RequiredBy); err != nil {
				return err
			}
		}
		if a.e.SortOp != "" {
			for _, f := range g.functions {
				if f.e.ModulePath == a.e.ModulePath && f.e.Operator != nil && f.e.Operator.Symbol == a.e.SortOp {
					if err := g.addEdge(f.idx, a.idx, RequiredBy); err != nil {
						return err
					}
				}
			}
		}
	}
	return nil
}

func (g *SQLGraph) connectBuiltins() error {
	for _, b := range g.builtinNodes {
		if err := g.connectBase(b.idx); err != nil {
			return err
		}
	}
	return nil
}

// findPositioningTarget resolves a requires entry. Paths match the last
// segment by name and the rest as a module path suffix, trying types, enums,
// functions and finally schemas. Names match custom SQL.
func (g *SQLGraph) findPositioningTarget(ref entity.PositioningRef) (dag.NodeIndex, bool) {
	if ref.IsName() {
		for _, c := range g.customs {
			if c.e.Name == ref.Name {
				return c.idx, true
			}
		}
		return 0, false
	}

	module, name := entity.SplitPath(ref.Path)
	for _, t := range g.typeNodes {
		if t.e.Name == name && strings.HasSuffix(t.e.ModulePath, module) {
			return t.idx, true
		}
	}
	for _, e := range g.enums {
		if e.e.Name == name && strings.HasSuffix(e.e.ModulePath, module) {
			return e.idx, true
		}
	}
	for _, f := range g.functions {
		if f.e.SymbolName() == name && strings.HasSuffix(f.e.ModulePath, module) {
			return f.idx, true
		}
	}
	for _, s := range g.schemas {
		if strings.HasSuffix(s.e.ModulePath, ref.Path) {
			return s.idx, true
		}
	}
	return 0, false
}

// typeNode finds the declared type or enum whose mappings carry ref's identity.
func (g *SQLGraph) typeNode(ref entity.TypeRef) (dag.NodeIndex, bool) {
	id := ref.Identity()
	for _, t := range g.typeNodes {
		if t.e.MatchesID(id) {
			return t.idx, true
		}
	}
	for _, e := range g.enums {
		if e.e.MatchesID(id) {
			return e.idx, true
		}
	}
	return 0, false
}

func (g *SQLGraph) function(module, name string) (dag.NodeIndex, bool) {
	for _, f := range g.functions {
		if f.e.ModulePath == module && f.e.Named(name) {
			return f.idx, true
		}
	}
	return 0, false
}

func (g *SQLGraph) convertCycle(err error) error {
	var cyc *dag.CycleError
	if !errors.As(err, &cyc) {
		return err
	}
	path := make([]string, 0, len(cyc.Path))
	for _, idx := range cyc.Path {
		path = append(path, g.Entity(idx).Identifier())
	}
	ident := ""
	if len(path) > 0 {
		ident = path[0]
	}
	return &CycleError{Entity: ident, Path: path}
}
