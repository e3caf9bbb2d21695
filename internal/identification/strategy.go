// Package identification defines how the remote identifier of a local entity
// is determined or stored.
//
// Strategy is a closed sum type with three variants:
//   - MappingTable: identity lives in a side table keyed by (class, local id)
//   - Property: identity lives in a named property of the entity
//   - FullRemote: identity is never stored locally
//
// Variants are produced by a Registry from the string key used in mapping
// definitions.
package identification

import (
	"fmt"

	"github.com/roach88/sfmap/internal/persistence"
)

// Kind names a strategy variant.
type Kind string

const (
	KindMappingTable Kind = "mappingTable"
	KindProperty     Kind = "property"
	KindFullRemote   Kind = "fullRemote"
)

// LocalIdentity describes where a local entity's remote identifier is kept.
// The zero value means identity is not stored locally.
type LocalIdentity struct {
	Kind     Kind   `json:"kind,omitempty"`
	Property string `json:"property,omitempty"`
}

// None is the descriptor for classes whose identity is never stored locally.
var None = LocalIdentity{}

// IsNone reports whether identity is not stored locally.
func (l LocalIdentity) IsNone() bool {
	return l.Kind == ""
}

func (l LocalIdentity) String() string {
	switch {
	case l.IsNone():
		return "none"
	case l.Property != "":
		return fmt.Sprintf("%s(%s)", l.Kind, l.Property)
	default:
		return string(l.Kind)
	}
}

// Strategy is one identification policy declared for a class.
type Strategy interface {
	// Kind returns the variant name.
	Kind() Kind

	// RequiresPersistence reports whether the variant needs a persistence handle.
	RequiresPersistence() bool

	// LocalIdentity returns the descriptor contributed by this strategy.
	// ok is false for strategies that do not keep identity locally.
	LocalIdentity() (identity LocalIdentity, ok bool)

	sealed()
}

// MappingTable keeps identity in the side mapping store.
type MappingTable struct {
	// Persistence is the handle injected by the driver to satisfy
	// RequiresPersistence. The mapper looks entities up through its own
	// manager, not through this field.
	Persistence persistence.Manager
}

func (*MappingTable) Kind() Kind                { return KindMappingTable }
func (*MappingTable) RequiresPersistence() bool { return true }
func (*MappingTable) sealed()                   {}

func (*MappingTable) LocalIdentity() (LocalIdentity, bool) {
	return LocalIdentity{Kind: KindMappingTable}, true
}

// Property keeps identity in a property of the entity itself.
type Property struct {
	// Persistence is the injected capability, as for MappingTable.
	Persistence persistence.Manager

	// Name is the entity property holding the Salesforce id.
	Name string
}

func (*Property) Kind() Kind                { return KindProperty }
func (*Property) RequiresPersistence() bool { return true }
func (*Property) sealed()                   {}

func (p *Property) LocalIdentity() (LocalIdentity, bool) {
	return LocalIdentity{Kind: KindProperty, Property: p.Name}, true
}

// FullRemote never stores identity locally. MatchingField, when set, names the
// field used to correlate records by value.
type FullRemote struct {
	MatchingField string
}

func (*FullRemote) Kind() Kind                { return KindFullRemote }
func (*FullRemote) RequiresPersistence() bool { return false }
func (*FullRemote) sealed()                   {}

func (*FullRemote) LocalIdentity() (LocalIdentity, bool) {
	return None, false
}

// Resolve returns the descriptor of the first strategy, in declaration order,
// that keeps identity locally. Returns None when no strategy does.
func Resolve(strategies []Strategy) LocalIdentity {
	for _, s := range strategies {
		if identity, ok := s.LocalIdentity(); ok {
			return identity
		}
	}
	return None
}
