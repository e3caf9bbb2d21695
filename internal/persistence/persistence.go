package persistence

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Find and FindOneBy when no entity matches.
var ErrNotFound = errors.New("entity not found")

// Accessor reads and writes a single property of an entity.
type Accessor interface {
	Get(entity any) (any, error)
	Set(entity any, value any) error
}

// Schema is the field accessor table of one local class.
type Schema struct {
	ClassName string
	Fields    map[string]Accessor
}

// Accessor returns the accessor for a local property.
func (s *Schema) Accessor(field string) (Accessor, bool) {
	if s == nil {
		return nil, false
	}
	a, ok := s.Fields[field]
	return a, ok
}

// Manager is the persistence handle consumed by identification strategies and
// the mapper.
type Manager interface {
	// Schema returns the accessor table for a class.
	Schema(className string) (*Schema, error)

	// ResolveConcreteType returns the declared class name of an entity,
	// unwrapping any proxy the persistence layer may hand out.
	ResolveConcreteType(entity any) (string, error)

	// Identifier returns the local identifier of an entity.
	// An entity that has not been persisted yet returns "".
	Identifier(entity any) (string, error)

	// Find loads an entity by local identifier.
	// Returns ErrNotFound if absent.
	Find(ctx context.Context, className, id string) (any, error)

	// FindOneBy loads the first entity whose properties equal criteria.
	// Returns ErrNotFound if absent.
	FindOneBy(ctx context.Context, className string, criteria map[string]any) (any, error)
}
