package entity

import (
	"cmp"
	"fmt"
	"sort"
	"strings"

	"github.com/zeebo/xxh3"
	"gopkg.in/yaml.v3"
)

// PathSeparator separates segments of a module path or fully-qualified name.
const PathSeparator = "::"

// Kind identifies an entity variant. The declaration order is the primary sort key.
type Kind int

// Entity kinds.
const (
	KindExtensionRoot Kind = iota
	KindSchema
	KindCustomSQL
	KindFunction
	KindType
	KindEnum
	KindOrd
	KindHash
	KindAggregate
	KindBuiltinType
)

var kindNames = [...]string{
	KindExtensionRoot: "ExtensionRoot",
	KindSchema:        "Schema",
	KindCustomSQL:     "CustomSql",
	KindFunction:      "Function",
	KindType:          "Type",
	KindEnum:          "Enum",
	KindOrd:           "Ord",
	KindHash:          "Hash",
	KindAggregate:     "Aggregate",
	KindBuiltinType:   "BuiltinType",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	return kindNames[k]
}

// Location is the source position an entity was extracted from.
type Location struct {
	File string
	Line int
}

func (l Location) String() string {
	if l.File == "" {
		return "<generated>"
	}
	return fmt.Sprintf("%s:%d", l.File, l.Line)
}

// Entity is implemented by every variant.
type Entity interface {
	Kind() Kind
	// Identifier is the fully-qualified identity, e.g. my_ext::types::Dog.
	Identifier() string
	// DotIdentifier labels the entity in graph exports.
	DotIdentifier() string
	Location() Location
	// Module is the defining module path, empty for synthetic entities.
	Module() string
	// ToSQL renders the entity's SQL fragment. An empty fragment is allowed.
	ToSQL(ctx Context) (string, error)
}

// Validator is implemented by entities that can check their own fields.
type Validator interface {
	Validate() error
}

// Context exposes a completed graph to entity renderers.
type Context interface {
	// SchemaPrefix returns the "schema." qualifier for e, or "" when unqualified.
	SchemaPrefix(e Entity) string
	// SQLType resolves ref, used by owner, to schema-qualified SQL type text.
	SQLType(owner Entity, ref TypeRef) (string, error)
	// LookupFunction finds a function by module path and name.
	LookupFunction(modulePath, name string) (*Function, bool)
	// ConversionOwner returns the type that inlines fn as its input or output function.
	ConversionOwner(fn *Function) (*Type, bool)
	// ModulePathname is the shared library path used in AS clauses.
	ModulePathname() string
}

// JoinPath joins non-empty segments with PathSeparator.
func JoinPath(parts ...string) string {
	var nonEmpty []string
	for _, p := range parts {
		if p != "" {
			nonEmpty = append(nonEmpty, p)
		}
	}
	return strings.Join(nonEmpty, PathSeparator)
}

// SplitPath splits a path into its module part and last segment.
func SplitPath(path string) (module, name string) {
	i := strings.LastIndex(path, PathSeparator)
	if i < 0 {
		return "", path
	}
	return path[:i], path[i+len(PathSeparator):]
}

// Fingerprint hashes the canonical YAML encoding of e.
func Fingerprint(e Entity) uint64 {
	data, err := yaml.Marshal(e)
	if err != nil {
		return 0
	}
	return xxh3.Hash(append([]byte(e.Kind().String()+"\n"), data...))
}

// Compare orders entities by kind, identifier, location and finally content.
func Compare(a, b Entity) int {
	return compareKeys(keyOf(a), keyOf(b))
}

// Sort sorts entities in place by Compare. Fingerprints are computed once per entity.
func Sort(entities []Entity) {
	keys := make([]sortKey, len(entities))
	for i, e := range entities {
		keys[i] = keyOf(e)
	}
	sort.Sort(byKey{entities: entities, keys: keys})
}

type sortKey struct {
	kind  Kind
	ident string
	file  string
	line  int
	print uint64
}

func keyOf(e Entity) sortKey {
	loc := e.Location()
	return sortKey{
		kind:  e.Kind(),
		ident: e.Identifier(),
		file:  loc.File,
		line:  loc.Line,
		print: Fingerprint(e),
	}
}

func compareKeys(a, b sortKey) int {
	if c := cmp.Compare(a.kind, b.kind); c != 0 {
		return c
	}
	if c := cmp.Compare(a.ident, b.ident); c != 0 {
		return c
	}
	if c := cmp.Compare(a.file, b.file); c != 0 {
		return c
	}
	if c := cmp.Compare(a.line, b.line); c != 0 {
		return c
	}
	return cmp.Compare(a.print, b.print)
}

type byKey struct {
	entities []Entity
	keys     []sortKey
}

func (s byKey) Len() int           { return len(s.entities) }
func (s byKey) Less(i, j int) bool { return compareKeys(s.keys[i], s.keys[j]) < 0 }
func (s byKey) Swap(i, j int) {
	s.entities[i], s.entities[j] = s.entities[j], s.entities[i]
	s.keys[i], s.keys[j] = s.keys[j], s.keys[i]
}

// header renders the traceability comment that precedes every statement.
func header(loc Location, ident string) string {
	return fmt.Sprintf("-- %s\n-- %s\n", loc, ident)
}

func quoteIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

func quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

func listComment(b *strings.Builder, title string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(b, "-- %s:\n", title)
	for _, it := range items {
		fmt.Fprintf(b, "--   %s\n", it)
	}
}
