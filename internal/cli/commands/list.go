package commands

import (
	"fmt"
	"sort"
	"strings"

	"github.com/leapstack-labs/extsql/internal/cli/output"
	"github.com/leapstack-labs/extsql/internal/sqlgraph"
	"github.com/spf13/cobra"
)

// NewListCommand creates the list command.
func NewListCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List entities in emission order",
		Long: `List every entity of the extension in the order its SQL is emitted,
with the entities it directly depends on.

Output adapts to environment:
  - Terminal: Table output
  - Piped/Scripted: Markdown format (agent-friendly)

Use --output to override: auto, text, markdown, json`,
		Example: `  # List entities (auto-detect output format)
  extsql list

  # List entities as JSON
  extsql list --output json

  # Only functions and types
  extsql list --kind Function --kind Type`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			kinds, _ := cmd.Flags().GetStringSlice("kind")
			return runList(cmd, kinds)
		},
	}

	cmd.Flags().StringSlice("kind", nil, "Only list entities of these kinds")

	return cmd
}

func runList(cmd *cobra.Command, kinds []string) error {
	cmdCtx, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	r := cmdCtx.Renderer

	project, err := cmdCtx.LoadProject(cmd.Context())
	if err != nil {
		return err
	}

	list, err := collectEntities(project.Graph, kinds)
	if err != nil {
		return err
	}

	switch r.EffectiveMode() {
	case output.ModeJSON:
		return r.JSON(list)
	case output.ModeMarkdown:
		listMarkdown(r, list)
	default:
		listText(r, list)
	}
	return nil
}

// collectEntities walks the graph in emission order, keeping the given kinds.
func collectEntities(g *sqlgraph.SQLGraph, kinds []string) (*output.ListOutput, error) {
	order, err := g.EmissionOrder()
	if err != nil {
		return nil, err
	}

	keep := make(map[string]bool, len(kinds))
	for _, k := range kinds {
		keep[strings.ToLower(k)] = true
	}

	list := &output.ListOutput{
		Extension: g.Extension().Name,
		Entities:  []output.EntityInfo{},
		Summary:   output.ListSummary{ByKind: map[string]int{}},
	}
	for i, idx := range order {
		e := g.Entity(idx)
		kind := e.Kind().String()
		if len(keep) > 0 && !keep[strings.ToLower(kind)] {
			continue
		}

		var deps []string
		for _, p := range g.Dependencies(idx) {
			deps = append(deps, g.Entity(p).Identifier())
		}
		list.Entities = append(list.Entities, output.EntityInfo{
			Position:     i + 1,
			Kind:         kind,
			Identifier:   e.Identifier(),
			Location:     e.Location().String(),
			Schema:       g.SchemaOf(e),
			Dependencies: deps,
			Upstream:     len(g.Upstream(idx)),
		})
		list.Summary.ByKind[kind]++
		list.Summary.Total++
	}
	return list, nil
}

func listText(r *output.Renderer, list *output.ListOutput) {
	styles := r.Styles()
	r.Header(1, fmt.Sprintf("Entities of %s (%d total)", list.Extension, list.Summary.Total))

	rows := make([][]string, 0, len(list.Entities))
	for _, e := range list.Entities {
		rows = append(rows, []string{
			itoa(e.Position),
			e.Kind,
			e.Identifier,
			e.Location,
			itoa(len(e.Dependencies)),
			itoa(e.Upstream),
		})
	}
	r.Table([]string{"#", "Kind", "Identifier", "Location", "Deps", "Upstream"}, rows)
	r.Println(styles.Muted.Render(kindSummary(list.Summary)))
}

func listMarkdown(r *output.Renderer, list *output.ListOutput) {
	r.Println(output.FormatHeader(1, fmt.Sprintf("Entities of %s (%d total)", list.Extension, list.Summary.Total)))
	r.Println("")

	rows := make([][]string, 0, len(list.Entities))
	for _, e := range list.Entities {
		rows = append(rows, []string{
			itoa(e.Position),
			e.Kind,
			"`" + e.Identifier + "`",
			e.Location,
			strings.Join(e.Dependencies, ", "),
		})
	}
	r.Table([]string{"#", "Kind", "Identifier", "Location", "Depends on"}, rows)
	r.Println("")

	r.Println(output.FormatHeader(2, "Summary"))
	r.Println(output.FormatKeyValue("Total Entities", itoa(list.Summary.Total)))
	for _, kind := range sortedKinds(list.Summary) {
		r.Println(output.FormatKeyValue(kind, itoa(list.Summary.ByKind[kind])))
	}
}

func sortedKinds(s output.ListSummary) []string {
	kinds := make([]string, 0, len(s.ByKind))
	for k := range s.ByKind {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}

func kindSummary(s output.ListSummary) string {
	parts := make([]string, 0, len(s.ByKind))
	for _, k := range sortedKinds(s) {
		parts = append(parts, fmt.Sprintf("%d %s", s.ByKind[k], k))
	}
	return fmt.Sprintf("Total: %d (%s)", s.Total, strings.Join(parts, ", "))
}
