// Package sqlgraph builds the dependency graph of extension entities and emits
// the installation script in dependency order.
//
// A build sorts the entities, creates one node per entity under a synthetic
// root, then runs one connect pass per entity kind. The finished graph is
// read-only; rendering walks it in topological order and asks each entity for
// its fragment.
package sqlgraph

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/leapstack-labs/extsql/internal/dag"
	"github.com/leapstack-labs/extsql/internal/typemap"
	"github.com/leapstack-labs/extsql/pkg/entity"
)

// EdgeKind distinguishes why one node must precede another.
type EdgeKind int

// Edge kinds.
const (
	// RequiredBy is a plain ordering dependency.
	RequiredBy EdgeKind = iota
	// RequiredByArg means the parent is an argument type of the child.
	RequiredByArg
	// RequiredByReturn means the parent is a return or state type of the child.
	RequiredByReturn
)

func (k EdgeKind) String() string {
	switch k {
	case RequiredBy:
		return "RequiredBy"
	case RequiredByArg:
		return "RequiredByArg"
	case RequiredByReturn:
		return "RequiredByReturn"
	}
	return fmt.Sprintf("EdgeKind(%d)", int(k))
}

const noNode dag.NodeIndex = -1

// Config holds the inputs of a build.
type Config struct {
	// Extension is the control-file metadata. Required.
	Extension *entity.ExtensionRoot
	// Entities is the complete, deduplicated entity collection in any order.
	Entities []entity.Entity
	// Types holds the base and source-only mappings. It is copied, not modified.
	Types *typemap.Table
	// Logger receives debug output. Nil discards.
	Logger *slog.Logger
}

type node[T entity.Entity] struct {
	idx dag.NodeIndex
	e   T
}

// SQLGraph is a built, immutable dependency graph.
type SQLGraph struct {
	graph  *dag.Graph[entity.Entity, EdgeKind]
	ext    *entity.ExtensionRoot
	types  *typemap.Table
	logger *slog.Logger

	root      dag.NodeIndex
	bootstrap dag.NodeIndex
	finalize  dag.NodeIndex
	index     map[entity.Entity]dag.NodeIndex

	schemas    []node[*entity.Schema]
	customs    []node[*entity.CustomSQL]
	functions  []node[*entity.Function]
	typeNodes  []node[*entity.Type]
	enums      []node[*entity.Enum]
	ords       []node[*entity.Ord]
	hashes     []node[*entity.Hash]
	aggregates []node[*entity.Aggregate]
	builtins   map[string]dag.NodeIndex

	builtinNodes []node[*entity.BuiltinType]
}

// Build constructs the graph. Any conflict or unresolved reference aborts the
// build; there is no partial result.
func Build(cfg Config) (*SQLGraph, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if cfg.Extension == nil {
		return nil, fmt.Errorf("extsql: extension root is required")
	}
	if err := cfg.Extension.Validate(); err != nil {
		return nil, fmt.Errorf("extsql: %w", err)
	}

	types := typemap.New()
	if cfg.Types != nil {
		types = cfg.Types.Clone()
	}

	g := &SQLGraph{
		graph:     dag.New[entity.Entity, EdgeKind](),
		ext:       cfg.Extension,
		types:     types,
		logger:    logger,
		bootstrap: noNode,
		finalize:  noNode,
		index:     make(map[entity.Entity]dag.NodeIndex, len(cfg.Entities)+1),
		builtins:  make(map[string]dag.NodeIndex),
	}

	entities := slices.Clone(cfg.Entities)
	for _, e := range entities {
		if v, ok := e.(entity.Validator); ok {
			if err := v.Validate(); err != nil {
				return nil, fmt.Errorf("extsql: %w", err)
			}
		}
	}
	entity.Sort(entities)

	g.root = g.addNode(cfg.Extension)
	if err := g.addNodes(entities); err != nil {
		return nil, err
	}
	g.addBuiltins()

	if err := g.connect(); err != nil {
		return nil, err
	}
	if err := g.registerTypes(); err != nil {
		return nil, err
	}

	logger.Debug("graph built",
		"extension", g.ext.Name,
		"nodes", g.graph.NodeCount(),
		"edges", g.graph.EdgeCount(),
		"builtins", len(g.builtins))
	return g, nil
}

// Extension returns the extension root.
func (g *SQLGraph) Extension() *entity.ExtensionRoot { return g.ext }

// Types returns the mapping table including every registered type and enum.
func (g *SQLGraph) Types() *typemap.Table { return g.types }

// Root returns the root node.
func (g *SQLGraph) Root() dag.NodeIndex { return g.root }

// Bootstrap returns the bootstrap node, if any.
func (g *SQLGraph) Bootstrap() (dag.NodeIndex, bool) { return g.bootstrap, g.bootstrap != noNode }

// Finalize returns the finalize node, if any.
func (g *SQLGraph) Finalize() (dag.NodeIndex, bool) { return g.finalize, g.finalize != noNode }

// NodeCount returns the number of nodes including root and builtins.
func (g *SQLGraph) NodeCount() int { return g.graph.NodeCount() }

// EdgeCount returns the number of edges.
func (g *SQLGraph) EdgeCount() int { return g.graph.EdgeCount() }

// Entity returns the entity at idx, or nil.
func (g *SQLGraph) Entity(idx dag.NodeIndex) entity.Entity {
	e, _ := g.graph.Node(idx)
	return e
}

// IndexOf returns the node of e.
func (g *SQLGraph) IndexOf(e entity.Entity) (dag.NodeIndex, bool) {
	idx, ok := g.index[e]
	return idx, ok
}

// Builtin returns the builtin type node for literal type text.
func (g *SQLGraph) Builtin(text string) (dag.NodeIndex, bool) {
	idx, ok := g.builtins[text]
	return idx, ok
}

// Dependencies returns the direct dependencies of idx.
func (g *SQLGraph) Dependencies(idx dag.NodeIndex) []dag.NodeIndex { return g.graph.Parents(idx) }

// Dependents returns the direct dependents of idx.
func (g *SQLGraph) Dependents(idx dag.NodeIndex) []dag.NodeIndex { return g.graph.Children(idx) }

// Upstream returns every transitive dependency of idx.
func (g *SQLGraph) Upstream(idx dag.NodeIndex) []dag.NodeIndex { return g.graph.Upstream(idx) }

// EdgesTo returns the incoming edges of idx with their kinds.
func (g *SQLGraph) EdgesTo(idx dag.NodeIndex) []dag.Edge[EdgeKind] { return g.graph.EdgesTo(idx) }

// Levels groups nodes by dependency depth.
func (g *SQLGraph) Levels() ([][]dag.NodeIndex, error) {
	levels, err := g.graph.ExecutionLevels()
	if err != nil {
		return nil, g.convertCycle(err)
	}
	return levels, nil
}
