package commands

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/leapstack-labs/extsql/internal/cli/config"
	"github.com/leapstack-labs/extsql/internal/cli/output"
	"github.com/leapstack-labs/extsql/internal/manifest"
	"github.com/leapstack-labs/extsql/internal/sqlgraph"
	"github.com/spf13/cobra"
	"github.com/zeebo/xxh3"
)

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Renderer *output.Renderer
}

// NewCommandContext creates a CommandContext from the command's context.
func NewCommandContext(cmd *cobra.Command) (*CommandContext, error) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := config.GetConfig(ctx)
	if err != nil {
		return nil, err
	}
	mode := output.Mode(cfg.OutputFormat)
	return &CommandContext{
		Cfg:      cfg,
		Logger:   config.GetLogger(ctx),
		Renderer: output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), mode),
	}, nil
}

// Project is a loaded manifest together with the graph built from it.
type Project struct {
	Manifest *manifest.Manifest
	Graph    *sqlgraph.SQLGraph
}

// LoadProject reads the configured manifest and builds the entity graph.
func (c *CommandContext) LoadProject(ctx context.Context) (*Project, error) {
	if err := c.Cfg.ValidateManifest(); err != nil {
		return nil, err
	}
	m, err := manifest.Load(ctx, c.Cfg.Manifest, c.Logger)
	if err != nil {
		return nil, err
	}
	types, err := m.TypeTable()
	if err != nil {
		return nil, err
	}
	g, err := sqlgraph.Build(sqlgraph.Config{
		Extension: m.Extension,
		Entities:  m.Entities,
		Types:     types,
		Logger:    c.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build graph: %w", err)
	}
	return &Project{Manifest: m, Graph: g}, nil
}

// digest returns the hex xxh3 hash of a rendered script.
func digest(script string) string {
	return fmt.Sprintf("%016x", xxh3.HashString(script))
}

func itoa(n int) string { return strconv.Itoa(n) }
