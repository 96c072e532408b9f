package commands

import (
	"context"
	"fmt"
	"io"

	"github.com/leapstack-labs/extsql/internal/cli/config"
	"github.com/leapstack-labs/extsql/internal/cli/output"
	"github.com/leapstack-labs/extsql/internal/sqlgraph"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// NewGenerateCommand creates the generate command.
func NewGenerateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate the extension SQL script",
		Long: `Build the entity dependency graph from the manifest and write the
installation script with every statement in dependency order.

The script goes to stdout unless --out names a file. With --dot the graph is
also written in Graphviz format. With --watch the script is regenerated every
time a manifest file changes.`,
		Example: `  # Print the script
  extsql generate

  # Write the script and the graph
  extsql generate --out sql/pets--1.0.sql --dot pets.dot

  # Regenerate on every manifest change
  extsql generate --out sql/pets--1.0.sql --watch`,
		Aliases: []string{"gen"},
		RunE: func(cmd *cobra.Command, _ []string) error {
			watch, _ := cmd.Flags().GetBool("watch")
			return runGenerate(cmd, watch)
		},
	}

	cmd.Flags().String("out", "", "Script destination, - for stdout")
	cmd.Flags().String("dot", "", "Also write the graph in DOT format to this file")
	cmd.Flags().Bool("watch", false, "Regenerate when manifest files change")

	return cmd
}

func runGenerate(cmd *cobra.Command, watch bool) error {
	cmdCtx, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if err := generate(ctx, cmdCtx); err != nil {
		if !watch {
			return err
		}
		cmdCtx.Renderer.Error(err.Error())
	}
	if !watch {
		return nil
	}

	if cmdCtx.Cfg.Out == config.Stdout {
		cmdCtx.Renderer.Warning("watching with the script on stdout; every change reprints it")
	}
	cmdCtx.Renderer.Success(fmt.Sprintf("watching %s", cmdCtx.Cfg.Manifest))
	return watchManifest(ctx, cmdCtx.Cfg.Manifest, cmdCtx.Cfg.WatchDebounce, cmdCtx.Logger, func() {
		if err := generate(ctx, cmdCtx); err != nil {
			cmdCtx.Renderer.Error(err.Error())
		}
	})
}

// generate builds the graph once and writes the configured outputs.
func generate(ctx context.Context, c *CommandContext) error {
	project, err := c.LoadProject(ctx)
	if err != nil {
		return err
	}
	g := project.Graph
	r := c.Renderer

	script, err := g.ToSQL()
	if err != nil {
		return err
	}
	var dot string
	if c.Cfg.DOT != "" {
		dot = g.DOT()
	}
	sum := digest(script)

	if r.EffectiveMode() == output.ModeJSON {
		res := output.GenerateOutput{
			Extension: g.Extension().Name,
			Bytes:     len(script),
			Digest:    sum,
		}
		if c.Cfg.Out == config.Stdout {
			res.Script = script
		}
		if c.Cfg.DOT == config.Stdout {
			res.DOT = dot
		}
		if err := writeOutputs(r.Writer(), c.Cfg, "", "", script, dot); err != nil {
			return err
		}
		return r.JSON(res)
	}

	if err := writeOutputs(r.Writer(), c.Cfg, script, dot, script, dot); err != nil {
		return err
	}
	if c.Cfg.Out != config.Stdout {
		r.Success(fmt.Sprintf("wrote %s (%d bytes, xxh3 %s)", c.Cfg.Out, len(script), sum))
	}
	if c.Cfg.DOT != "" && c.Cfg.DOT != config.Stdout {
		r.Success(fmt.Sprintf("wrote %s", c.Cfg.DOT))
	}
	return nil
}

// writeOutputs writes the script and the DOT graph to their destinations
// concurrently. Destinations set to stdout receive stdoutScript and
// stdoutDOT on w, in that order, after the files are written.
func writeOutputs(w io.Writer, cfg *config.Config, stdoutScript, stdoutDOT, script, dot string) error {
	var eg errgroup.Group
	if cfg.Out != config.Stdout {
		eg.Go(func() error { return sqlgraph.WriteFile(cfg.Out, script) })
	}
	if cfg.DOT != "" && cfg.DOT != config.Stdout {
		eg.Go(func() error { return sqlgraph.WriteFile(cfg.DOT, dot) })
	}
	if err := eg.Wait(); err != nil {
		return err
	}

	if cfg.Out == config.Stdout && stdoutScript != "" {
		if _, err := io.WriteString(w, stdoutScript); err != nil {
			return err
		}
	}
	if cfg.DOT == config.Stdout && stdoutDOT != "" {
		if _, err := io.WriteString(w, stdoutDOT); err != nil {
			return err
		}
	}
	return nil
}
