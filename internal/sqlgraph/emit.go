package sqlgraph

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/leapstack-labs/extsql/internal/dag"
	"github.com/leapstack-labs/extsql/pkg/entity"
)

// Order returns every node with dependencies first.
func (g *SQLGraph) Order() ([]dag.NodeIndex, error) {
	order, err := g.graph.TopologicalSort()
	if err != nil {
		return nil, g.convertCycle(err)
	}
	return order, nil
}

// EmissionOrder returns the nodes in the order their statements appear in the
// script. Conversion functions are listed right after the type that renders them.
func (g *SQLGraph) EmissionOrder() ([]dag.NodeIndex, error) {
	order, err := g.Order()
	if err != nil {
		return nil, err
	}
	out := make([]dag.NodeIndex, 0, len(order))
	for _, idx := range order {
		switch e := g.Entity(idx).(type) {
		case *entity.Function:
			if _, inlined := g.ConversionOwner(e); inlined {
				continue
			}
		case *entity.Type:
			out = append(out, idx)
			for _, conv := range []struct{ module, name string }{
				{e.InFnModule(), e.InFn},
				{e.OutFnModule(), e.OutFn},
			} {
				if fn, ok := g.function(conv.module, conv.name); ok && !slices.Contains(out, fn) {
					out = append(out, fn)
				}
			}
			continue
		}
		out = append(out, idx)
	}
	return out, nil
}

// ToSQL renders the installation script. Empty fragments are skipped and the
// rest are separated by a blank line.
func (g *SQLGraph) ToSQL() (string, error) {
	order, err := g.Order()
	if err != nil {
		return "", err
	}

	parts := make([]string, 0, len(order))
	for _, idx := range order {
		e := g.Entity(idx)
		frag, err := e.ToSQL(g)
		if err != nil {
			return "", fmt.Errorf("render %s `%s`: %w", e.Kind(), e.Identifier(), err)
		}
		if frag = strings.TrimSpace(frag); frag != "" {
			parts = append(parts, frag)
		}
	}
	g.logger.Debug("rendered script", "statements", len(parts))
	return strings.Join(parts, "\n\n") + "\n", nil
}

// Write renders the script to w.
func (g *SQLGraph) Write(w io.Writer) error {
	sql, err := g.ToSQL()
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, sql)
	return err
}

// ToFile renders the script to path, creating parent directories.
func (g *SQLGraph) ToFile(path string) error {
	sql, err := g.ToSQL()
	if err != nil {
		return err
	}
	return WriteFile(path, sql)
}

// WriteFile writes content to path, creating parent directories.
func WriteFile(path, content string) error {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
