// Package entity defines the database-visible objects an extension installs.
//
// This package contains:
//   - The closed set of entity variants (ExtensionRoot, Schema, CustomSQL,
//     Function, Type, Enum, Ord, Hash, Aggregate, BuiltinType)
//   - Cross-references by identity (TypeRef, PositioningRef, SQLDeclared)
//   - A total order over entity content used to make graph builds reproducible
//   - Per-variant SQL rendering against a completed graph (Context)
//
// Entities never point at each other. Everything that needs another entity
// looks it up through the Context at render time.
package entity
