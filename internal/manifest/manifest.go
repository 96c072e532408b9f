// Package manifest decodes entity manifests.
//
// A manifest is a YAML (or JSON) document with the extension metadata, the base
// and source-only type mappings, and a list of entities. Each entity is a
// single-key mapping whose key names its kind:
//
//	extension:
//	  name: pets
//	  default_version: "1.0"
//	mappings:
//	  - {id: i32, sql: integer}
//	entities:
//	  - schema: {name: animals, module_path: pets::animals}
//	  - function:
//	      name: walk
//	      module_path: pets
//	      args:
//	        - {name: steps, type: i32}
//
// Unknown fields and unknown kinds are errors.
package manifest

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"sort"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/leapstack-labs/extsql/internal/typemap"
	"github.com/leapstack-labs/extsql/pkg/entity"
)

// Manifest is a decoded manifest.
type Manifest struct {
	Extension      *entity.ExtensionRoot
	Mappings       []typemap.Mapping
	SourceMappings []typemap.Mapping
	Entities       []entity.Entity
	// Files lists the files the manifest was read from.
	Files []string
}

// document is the on-disk shape. Entities stay as nodes until their kind is known.
type document struct {
	Extension      *entity.ExtensionRoot `yaml:"extension"`
	Mappings       []typemap.Mapping     `yaml:"mappings"`
	SourceMappings []typemap.Mapping     `yaml:"source_mappings"`
	Entities       []yaml.Node           `yaml:"entities"`
}

var kinds = map[string]func() entity.Entity{
	"schema":     func() entity.Entity { return &entity.Schema{} },
	"custom_sql": func() entity.Entity { return &entity.CustomSQL{} },
	"function":   func() entity.Entity { return &entity.Function{} },
	"type":       func() entity.Entity { return &entity.Type{} },
	"enum":       func() entity.Entity { return &entity.Enum{} },
	"ord":        func() entity.Entity { return &entity.Ord{} },
	"hash":       func() entity.Entity { return &entity.Hash{} },
	"aggregate":  func() entity.Entity { return &entity.Aggregate{} },
}

// KindNames returns the accepted entity keys, sorted.
func KindNames() []string {
	names := make([]string, 0, len(kinds))
	for k := range kinds {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// unknownFieldPattern matches yaml.v3 strict-mode errors.
var unknownFieldPattern = regexp.MustCompile(`line (\d+): field (\S+) not found`)

// Parse decodes a single manifest. file is used in error messages only.
func Parse(file string, data []byte) (*Manifest, error) {
	var doc document
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, &ManifestError{File: file, Message: "empty manifest"}
		}
		return nil, strictError(file, 1, "manifest", err)
	}

	m := &Manifest{
		Extension:      doc.Extension,
		Mappings:       doc.Mappings,
		SourceMappings: doc.SourceMappings,
		Files:          []string{file},
	}
	for i := range doc.Entities {
		e, err := decodeEntity(file, &doc.Entities[i])
		if err != nil {
			return nil, err
		}
		m.Entities = append(m.Entities, e)
	}
	return m, nil
}

func decodeEntity(file string, node *yaml.Node) (entity.Entity, error) {
	if node.Kind != yaml.MappingNode || len(node.Content) != 2 {
		return nil, &ManifestError{
			File:    file,
			Line:    node.Line,
			Message: "entity must be a mapping with exactly one kind key",
		}
	}
	key, value := node.Content[0], node.Content[1]
	newEntity, ok := kinds[key.Value]
	if !ok {
		return nil, &ManifestError{
			File:    file,
			Line:    key.Line,
			Message: fmt.Sprintf("unknown entity kind %q, expected one of: %v", key.Value, KindNames()),
		}
	}

	// yaml.Node.Decode has no strict mode, so round-trip through a decoder.
	raw, err := yaml.Marshal(value)
	if err != nil {
		return nil, &ManifestError{File: file, Line: value.Line, Message: err.Error()}
	}
	e := newEntity()
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(e); err != nil {
		return nil, strictError(file, value.Line, key.Value, err)
	}
	return e, nil
}

// strictError converts a decoder error. Lines inside the error are relative
// to the decoded node, which starts at base.
func strictError(file string, base int, kind string, err error) error {
	if m := unknownFieldPattern.FindStringSubmatch(err.Error()); m != nil {
		line, _ := strconv.Atoi(m[1])
		return &UnknownFieldError{File: file, Line: base + line - 1, Kind: kind, Field: m[2]}
	}
	return &ManifestError{File: file, Line: base, Message: fmt.Sprintf("invalid %s: %v", kind, err)}
}

// Merge combines manifests. Exactly one may declare the extension.
func Merge(manifests ...*Manifest) (*Manifest, error) {
	out := &Manifest{}
	var extFile string
	for _, m := range manifests {
		if m.Extension != nil {
			if out.Extension != nil {
				return nil, &ManifestError{
					File:    m.Files[0],
					Message: fmt.Sprintf("extension already declared in %s", extFile),
				}
			}
			out.Extension = m.Extension
			extFile = m.Files[0]
		}
		out.Mappings = append(out.Mappings, m.Mappings...)
		out.SourceMappings = append(out.SourceMappings, m.SourceMappings...)
		out.Entities = append(out.Entities, m.Entities...)
		out.Files = append(out.Files, m.Files...)
	}
	return out, nil
}

// Dedup sorts the entities and drops exact duplicates, keeping the first.
func (m *Manifest) Dedup(logger *slog.Logger) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	entity.Sort(m.Entities)
	out := m.Entities[:0]
	for _, e := range m.Entities {
		if n := len(out); n > 0 && entity.Compare(out[n-1], e) == 0 {
			logger.Debug("dropping duplicate entity", "kind", e.Kind().String(), "identifier", e.Identifier())
			continue
		}
		out = append(out, e)
	}
	m.Entities = out
}

// TypeTable builds the base mapping table.
func (m *Manifest) TypeTable() (*typemap.Table, error) {
	t := typemap.New()
	for _, mapping := range m.Mappings {
		mapping.Owner = ""
		if err := t.Register(mapping); err != nil {
			return nil, err
		}
	}
	for _, mapping := range m.SourceMappings {
		mapping.Owner = ""
		if err := t.RegisterSource(mapping); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// Validate checks the merged manifest is buildable.
func (m *Manifest) Validate() error {
	if m.Extension == nil {
		return &ManifestError{Message: "no manifest declares the extension"}
	}
	return nil
}
