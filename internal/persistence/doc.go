// Package persistence defines the narrow view of the local object-relational
// layer that the mapping engine consumes.
//
// A Manager exposes, per local class, a Schema: a table of field accessors
// keyed by local property name. The mapper reads and writes entity values only
// through these accessors, resolves the concrete class of an entity through
// ResolveConcreteType, and loads entities with Find and FindOneBy.
//
// Two implementations ship with the package:
//   - Memory: reflection-backed, in-process storage over registered struct types
//   - Declared: schema-only view loaded from a YAML file, used for offline validation
package persistence
