package entity

import (
	"fmt"
	"strings"
)

// AggregateArg is an aggregate input, optionally named.
type AggregateArg struct {
	Name     string  `yaml:"name,omitempty"`
	Type     TypeRef `yaml:"type"`
	Variadic bool    `yaml:"variadic,omitempty"`
}

// Final function modify modes.
const (
	ModifyReadOnly  = "read_only"
	ModifyShareable = "shareable"
	ModifyReadWrite = "read_write"
)

// Aggregate is a user-defined aggregate.
type Aggregate struct {
	Name       string `yaml:"name"`
	ModulePath string `yaml:"module_path"`
	FullPath   string `yaml:"full_path,omitempty"`
	File       string `yaml:"file,omitempty"`
	Line       int    `yaml:"line,omitempty"`
	// State is the state value type (STYPE).
	State      TypeRef        `yaml:"state"`
	Args       []AggregateArg `yaml:"args,omitempty"`
	DirectArgs []AggregateArg `yaml:"direct_args,omitempty"`
	// MovingState is the moving-aggregate state type (MSTYPE).
	MovingState *TypeRef `yaml:"moving_state,omitempty"`

	SFunc            string `yaml:"sfunc"`
	FinalFunc        string `yaml:"finalfunc,omitempty"`
	FinalFuncModify  string `yaml:"finalfunc_modify,omitempty"`
	CombineFunc      string `yaml:"combinefunc,omitempty"`
	SerialFunc       string `yaml:"serialfunc,omitempty"`
	DeserialFunc     string `yaml:"deserialfunc,omitempty"`
	InitCond         string `yaml:"initcond,omitempty"`
	MSFunc           string `yaml:"msfunc,omitempty"`
	MInvFunc         string `yaml:"minvfunc,omitempty"`
	MFinalFunc       string `yaml:"mfinalfunc,omitempty"`
	MFinalFuncModify string `yaml:"mfinalfunc_modify,omitempty"`
	MInitCond        string `yaml:"minitcond,omitempty"`
	SortOp           string `yaml:"sortop,omitempty"`
	Parallel         string `yaml:"parallel,omitempty"`
	Hypothetical     bool   `yaml:"hypothetical,omitempty"`
}

func (a *Aggregate) Kind() Kind { return KindAggregate }

func (a *Aggregate) Identifier() string {
	if a.FullPath != "" {
		return a.FullPath
	}
	return JoinPath(a.ModulePath, a.Name)
}

func (a *Aggregate) DotIdentifier() string { return "aggregate " + a.Identifier() }
func (a *Aggregate) Location() Location    { return Location{File: a.File, Line: a.Line} }
func (a *Aggregate) Module() string        { return a.ModulePath }

// ArgRefs returns direct argument types followed by aggregated argument types.
func (a *Aggregate) ArgRefs() []TypeRef {
	out := make([]TypeRef, 0, len(a.DirectArgs)+len(a.Args))
	for _, arg := range a.DirectArgs {
		out = append(out, arg.Type)
	}
	for _, arg := range a.Args {
		out = append(out, arg.Type)
	}
	return out
}

// StateRefs returns the state and moving-state types.
func (a *Aggregate) StateRefs() []TypeRef {
	out := []TypeRef{a.State}
	if a.MovingState != nil {
		out = append(out, *a.MovingState)
	}
	return out
}

// Callback names a support function by its role.
type Callback struct {
	Role string
	Name string
}

// Callbacks returns the function-valued options that are set, in render order.
func (a *Aggregate) Callbacks() []Callback {
	all := []Callback{
		{"SFUNC", a.SFunc},
		{"FINALFUNC", a.FinalFunc},
		{"COMBINEFUNC", a.CombineFunc},
		{"SERIALFUNC", a.SerialFunc},
		{"DESERIALFUNC", a.DeserialFunc},
		{"MSFUNC", a.MSFunc},
		{"MINVFUNC", a.MInvFunc},
		{"MFINALFUNC", a.MFinalFunc},
	}
	out := all[:0]
	for _, cb := range all {
		if cb.Name != "" {
			out = append(out, cb)
		}
	}
	return out
}

// Validate checks required options and their combinations.
func (a *Aggregate) Validate() error {
	fail := func(format string, args ...any) error {
		return fmt.Errorf("aggregate `%s` (%s): %s", a.Identifier(), a.Location(), fmt.Sprintf(format, args...))
	}
	if a.Name == "" {
		return fmt.Errorf("aggregate at %s: name is required", a.Location())
	}
	if a.SFunc == "" {
		return fail("sfunc is required")
	}
	if a.State.Text == "" {
		return fail("state type is required")
	}
	for _, m := range []string{a.FinalFuncModify, a.MFinalFuncModify} {
		switch m {
		case "", ModifyReadOnly, ModifyShareable, ModifyReadWrite:
		default:
			return fail("invalid modify mode %q, must be one of: read_only, shareable, read_write", m)
		}
	}
	moving := a.MSFunc != "" || a.MInvFunc != "" || a.MovingState != nil
	if moving && (a.MSFunc == "" || a.MInvFunc == "" || a.MovingState == nil) {
		return fail("moving aggregates need msfunc, minvfunc and moving_state together")
	}
	if a.Hypothetical && len(a.DirectArgs) == 0 {
		return fail("hypothetical aggregates need direct_args")
	}
	if err := validParallel(a.Parallel); err != nil {
		return fail("%v", err)
	}
	return nil
}

func (a *Aggregate) ToSQL(ctx Context) (string, error) {
	var b strings.Builder
	b.WriteString(header(a.Location(), a.Identifier()))
	fmt.Fprintf(&b, "CREATE AGGREGATE %s%s (", ctx.SchemaPrefix(a), a.Name)

	switch {
	case len(a.Args) == 0 && len(a.DirectArgs) == 0:
		b.WriteString("*")
	default:
		if err := a.writeArgs(ctx, &b, a.DirectArgs); err != nil {
			return "", err
		}
		if len(a.DirectArgs) > 0 {
			b.WriteString("\n\tORDER BY")
		}
		if err := a.writeArgs(ctx, &b, a.Args); err != nil {
			return "", err
		}
		b.WriteString("\n")
	}
	b.WriteString(")\n(\n")

	var opts []string
	fn := func(role, name string) error {
		f, ok := ctx.LookupFunction(a.ModulePath, name)
		if !ok {
			return fmt.Errorf("aggregate `%s` (%s): %s function `%s` not found", a.Identifier(), a.Location(), strings.ToLower(role), JoinPath(a.ModulePath, name))
		}
		opts = append(opts, fmt.Sprintf("\t%s = %s%s /* %s */", role, ctx.SchemaPrefix(f), quoteIdent(f.Name), f.Identifier()))
		return nil
	}
	typ := func(key string, ref TypeRef) error {
		sqlType, err := ctx.SQLType(a, ref)
		if err != nil {
			return err
		}
		opts = append(opts, fmt.Sprintf("\t%s = %s /* %s */", key, sqlType, ref.Text))
		return nil
	}
	literal := func(key, value string) {
		if value != "" {
			opts = append(opts, fmt.Sprintf("\t%s = %s", key, value))
		}
	}

	if err := fn("SFUNC", a.SFunc); err != nil {
		return "", err
	}
	if err := typ("STYPE", a.State); err != nil {
		return "", err
	}
	for _, cb := range a.Callbacks() {
		if cb.Role == "SFUNC" {
			continue
		}
		if cb.Role == "MSFUNC" {
			if err := typ("MSTYPE", *a.MovingState); err != nil {
				return "", err
			}
		}
		if err := fn(cb.Role, cb.Name); err != nil {
			return "", err
		}
		switch cb.Role {
		case "FINALFUNC":
			literal("FINALFUNC_MODIFY", strings.ToUpper(a.FinalFuncModify))
		case "MFINALFUNC":
			literal("MFINALFUNC_MODIFY", strings.ToUpper(a.MFinalFuncModify))
		}
	}
	if a.InitCond != "" {
		literal("INITCOND", quoteLiteral(a.InitCond))
	}
	if a.MInitCond != "" {
		literal("MINITCOND", quoteLiteral(a.MInitCond))
	}
	literal("SORTOP", a.SortOp)
	literal("PARALLEL", strings.ToUpper(a.Parallel))
	if a.Hypothetical {
		opts = append(opts, "\tHYPOTHETICAL")
	}

	b.WriteString(strings.Join(commaList(opts), "\n"))
	b.WriteString("\n);")
	return b.String(), nil
}

func (a *Aggregate) writeArgs(ctx Context, b *strings.Builder, args []AggregateArg) error {
	for i, arg := range args {
		sqlType, err := ctx.SQLType(a, arg.Type)
		if err != nil {
			return err
		}
		variadic := ""
		if arg.Variadic {
			variadic = "VARIADIC "
		}
		name := ""
		if arg.Name != "" {
			name = quoteIdent(arg.Name) + " "
		}
		fmt.Fprintf(b, "\n\t%s%s%s%s/* %s */", variadic, name, sqlType, sep(i, len(args)), arg.Type.Text)
	}
	return nil
}

// commaList puts a comma after every option but the last, before any trailing comment.
func commaList(opts []string) []string {
	out := make([]string, len(opts))
	for i, o := range opts {
		if i == len(opts)-1 {
			out[i] = o
			continue
		}
		if j := strings.Index(o, " /* "); j >= 0 {
			out[i] = o[:j] + "," + o[j:]
		} else {
			out[i] = o + ","
		}
	}
	return out
}
