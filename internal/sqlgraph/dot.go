package sqlgraph

import (
	"fmt"
	"io"
	"strings"

	"github.com/leapstack-labs/extsql/internal/dag"
	"github.com/leapstack-labs/extsql/pkg/entity"
)

type dotStyle struct {
	shape string
	color string
}

var dotStyles = map[entity.Kind]dotStyle{
	entity.KindExtensionRoot: {"cylinder", "#ffc8c8"},
	entity.KindSchema:        {"folder", "#ffffaa"},
	entity.KindCustomSQL:     {"note", "#cccccc"},
	entity.KindFunction:      {"box", "#ADC7C6"},
	entity.KindType:          {"oval", "#AE9BBD"},
	entity.KindEnum:          {"oval", "#C9A3BD"},
	entity.KindOrd:           {"diamond", "#FFCFD3"},
	entity.KindHash:          {"diamond", "#FFE4E0"},
	entity.KindAggregate:     {"box", "#FFE4E0"},
	entity.KindBuiltinType:   {"plain", "#ABABAB"},
}

// DOT renders the graph in Graphviz format. Node ids are node handles.
func (g *SQLGraph) DOT() string {
	var b strings.Builder
	b.WriteString("digraph {\n")
	for i := 0; i < g.graph.NodeCount(); i++ {
		e := g.Entity(dag.NodeIndex(i))
		style := dotStyles[e.Kind()]
		fmt.Fprintf(&b, "    %d [ label = \"%s\", weight = 1, shape = %s, style = filled, fillcolor = \"%s\" ]\n",
			i, escapeDOT(e.DotIdentifier()), style.shape, style.color)
	}
	for _, edge := range g.graph.Edges() {
		fmt.Fprintf(&b, "    %d -> %d [ %s ]\n", edge.From, edge.To, edgeAttrs(edge.Weight))
	}
	b.WriteString("}\n")
	return b.String()
}

// WriteDOT renders the graph to w.
func (g *SQLGraph) WriteDOT(w io.Writer) error {
	_, err := io.WriteString(w, g.DOT())
	return err
}

// ToDOTFile renders the graph to path, creating parent directories.
func (g *SQLGraph) ToDOTFile(path string) error {
	return WriteFile(path, g.DOT())
}

func edgeAttrs(kind EdgeKind) string {
	switch kind {
	case RequiredByArg:
		return "color = black, weight = 10"
	case RequiredByReturn:
		return "dir = back, color = black, weight = 10"
	default:
		return "color = gray, weight = 1"
	}
}

func escapeDOT(s string) string {
	return strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(s)
}
