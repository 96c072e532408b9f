package sqlgraph

import (
	"errors"
	"fmt"
	"strings"

	"github.com/leapstack-labs/extsql/pkg/entity"
)

// Sentinel errors for the failure classes of a build.
var (
	// ErrConflict indicates a configuration conflict such as two bootstrap fragments.
	ErrConflict = errors.New("extsql: configuration conflict")
	// ErrUnresolved indicates a reference that matches no known entity.
	ErrUnresolved = errors.New("extsql: unresolved reference")
	// ErrCycle indicates the dependency graph is not acyclic.
	ErrCycle = errors.New("extsql: dependency cycle")
)

// ConflictError reports two entities claiming the same singleton role.
type ConflictError struct {
	What   string // e.g. "`bootstrap` positioning"
	First  string
	Second string
	Cause  error
}

// Error implements the error interface.
func (e *ConflictError) Error() string {
	return fmt.Sprintf("extsql: cannot have multiple %s, found %s, other was %s", e.What, e.Second, e.First)
}

// Unwrap returns the underlying error.
func (e *ConflictError) Unwrap() error {
	return e.Cause
}

// Is reports whether the target matches ErrConflict.
func (e *ConflictError) Is(target error) bool {
	return target == ErrConflict
}

// UnresolvedError reports a reference that could not be matched.
type UnresolvedError struct {
	Entity    string // identifier of the requesting entity
	Location  entity.Location
	What      string // what kind of reference, e.g. "requires"
	Reference string // the literal text that failed to resolve
}

// Error implements the error interface.
func (e *UnresolvedError) Error() string {
	return fmt.Sprintf("extsql: could not find %s target of `%s` (%s): %s", e.What, e.Entity, e.Location, e.Reference)
}

// Is reports whether the target matches ErrUnresolved.
func (e *UnresolvedError) Is(target error) bool {
	return target == ErrUnresolved
}

func unresolved(owner entity.Entity, what, reference string) *UnresolvedError {
	return &UnresolvedError{
		Entity:    owner.Identifier(),
		Location:  owner.Location(),
		What:      what,
		Reference: reference,
	}
}

// CycleError reports a dependency cycle. Entity is one participant.
type CycleError struct {
	Entity string
	Path   []string
}

// Error implements the error interface.
func (e *CycleError) Error() string {
	return fmt.Sprintf("extsql: dependency cycle involving `%s`: %s", e.Entity, strings.Join(e.Path, " -> "))
}

// Is reports whether the target matches ErrCycle.
func (e *CycleError) Is(target error) bool {
	return target == ErrCycle
}

func describe(e entity.Entity) string {
	return fmt.Sprintf("`%s` (%s)", e.Identifier(), e.Location())
}
