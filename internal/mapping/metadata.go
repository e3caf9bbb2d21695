package mapping

import (
	"strings"

	"github.com/roach88/sfmap/internal/identification"
)

// FieldMapping pairs a local property with its remote field name.
type FieldMapping struct {
	Field      string `json:"field"`
	RemoteName string `json:"name,omitempty"`
}

// Remote returns the remote field name, defaulting to the local field name.
func (f FieldMapping) Remote() string {
	if f.RemoteName == "" {
		return f.Field
	}
	return f.RemoteName
}

// ClassMetadata is the mapping of one local class to a remote object type.
//
// A driver builds it with the Set/Add methods while parsing one definition;
// callers treat it as read-only afterwards.
type ClassMetadata struct {
	className  string
	remoteType string
	fields     []FieldMapping
	index      map[string]int
	strategies []identification.Strategy
}

// NewClassMetadata creates empty metadata for a class.
func NewClassMetadata(className string) *ClassMetadata {
	return &ClassMetadata{
		className: className,
		index:     make(map[string]int),
	}
}

// ClassName returns the fully qualified local class name.
func (m *ClassMetadata) ClassName() string { return m.className }

// RemoteType returns the remote object type, e.g. "Account".
func (m *ClassMetadata) RemoteType() string { return m.remoteType }

// SetRemoteType sets the remote object type.
func (m *ClassMetadata) SetRemoteType(remoteType string) {
	m.remoteType = remoteType
}

// SetFieldMapping maps a local field to a remote field name.
// Redeclaring a field replaces its mapping in place and keeps its position.
func (m *ClassMetadata) SetFieldMapping(field, remoteName string) {
	fm := FieldMapping{Field: field, RemoteName: remoteName}
	if i, ok := m.index[field]; ok {
		m.fields[i] = fm
		return
	}
	m.index[field] = len(m.fields)
	m.fields = append(m.fields, fm)
}

// FieldNames returns the mapped local fields in declaration order.
func (m *ClassMetadata) FieldNames() []string {
	names := make([]string, len(m.fields))
	for i, f := range m.fields {
		names[i] = f.Field
	}
	return names
}

// FieldMapping returns the mapping of a local field.
func (m *ClassMetadata) FieldMapping(field string) (FieldMapping, bool) {
	i, ok := m.index[field]
	if !ok {
		return FieldMapping{}, false
	}
	return m.fields[i], true
}

// FieldMappings returns a copy of all field mappings in declaration order.
func (m *ClassMetadata) FieldMappings() []FieldMapping {
	out := make([]FieldMapping, len(m.fields))
	copy(out, m.fields)
	return out
}

// AddStrategy appends an identification strategy.
func (m *ClassMetadata) AddStrategy(s identification.Strategy) {
	m.strategies = append(m.strategies, s)
}

// Strategies returns the identification strategies in declaration order.
func (m *ClassMetadata) Strategies() []identification.Strategy {
	out := make([]identification.Strategy, len(m.strategies))
	copy(out, m.strategies)
	return out
}

// LocalIdentity returns the authoritative local identity descriptor.
func (m *ClassMetadata) LocalIdentity() identification.LocalIdentity {
	return identification.Resolve(m.strategies)
}

// ShortName returns the part of a class name after the last namespace
// separator. Backslash, dot and slash are all treated as separators.
func ShortName(className string) string {
	if i := strings.LastIndexAny(className, `\./`); i >= 0 {
		return className[i+1:]
	}
	return className
}
