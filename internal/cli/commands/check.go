package commands

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/extsql/internal/cli/output"
	"github.com/spf13/cobra"
)

// NewCheckCommand creates the check command.
func NewCheckCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Validate the manifest without writing anything",
		Long: `Load the manifest, build the dependency graph and render the script
without writing it. Exits non-zero on unresolved references, positioning
conflicts and dependency cycles.

The printed digest changes whenever the generated script would change,
which makes it usable as a CI freshness check.`,
		Example: `  # Validate the manifest
  extsql check

  # Machine-readable result
  extsql check --output json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCheck(cmd)
		},
	}

	return cmd
}

func runCheck(cmd *cobra.Command) error {
	cmdCtx, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	r := cmdCtx.Renderer

	project, err := cmdCtx.LoadProject(cmd.Context())
	if err != nil {
		return err
	}
	g := project.Graph

	script, err := g.ToSQL()
	if err != nil {
		return err
	}
	levels, err := g.Levels()
	if err != nil {
		return err
	}

	res := output.CheckOutput{
		Extension: g.Extension().Name,
		Version:   g.Extension().DefaultVersion,
		Files:     project.Manifest.Files,
		Nodes:     g.NodeCount(),
		Edges:     g.EdgeCount(),
		Bytes:     len(script),
		Depth:     len(levels),
		Digest:    digest(script),
	}

	switch r.EffectiveMode() {
	case output.ModeJSON:
		return r.JSON(res)
	case output.ModeMarkdown:
		r.Println(output.FormatHeader(1, fmt.Sprintf("Check: %s", res.Extension)))
		r.Println("")
		if res.Version != "" {
			r.Println(output.FormatKeyValue("Version", res.Version))
		}
		r.Println(output.FormatKeyValue("Manifest Files", itoa(len(res.Files))))
		r.Println(output.FormatKeyValue("Entities", itoa(res.Nodes)))
		r.Println(output.FormatKeyValue("Dependencies", itoa(res.Edges)))
		r.Println(output.FormatKeyValue("Depth", itoa(res.Depth)))
		r.Println(output.FormatKeyValue("Script Bytes", itoa(res.Bytes)))
		r.Println(output.FormatKeyValue("Digest", "`"+res.Digest+"`"))
	default:
		styles := r.Styles()
		r.Header(1, fmt.Sprintf("Check: %s", res.Extension))
		r.Printf("  %s %s\n", styles.Muted.Render("files:"), strings.Join(res.Files, ", "))
		r.Printf("  %s %d entities, %d dependencies, depth %d\n", styles.Muted.Render("graph:"), res.Nodes, res.Edges, res.Depth)
		r.Printf("  %s %d bytes, xxh3 %s\n", styles.Muted.Render("script:"), res.Bytes, styles.Identifier.Render(res.Digest))
		r.Success("manifest is valid")
	}
	return nil
}
