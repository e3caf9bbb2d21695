package mapper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/roach88/sfmap/internal/event"
	"github.com/roach88/sfmap/internal/identification"
	"github.com/roach88/sfmap/internal/mapping"
	"github.com/roach88/sfmap/internal/persistence"
	"github.com/roach88/sfmap/internal/sobject"
)

// MissingMappingStore names the collaborator reported when a mappingTable
// class is used without a MappingStore.
const MissingMappingStore = "MappingStore"

// MappingStore is the side table linking local entities to Salesforce ids.
type MappingStore interface {
	// FindByLocalKey returns the Salesforce id linked to (className, localID).
	FindByLocalKey(ctx context.Context, className, localID string) (remoteID string, ok bool, err error)

	// FindByRemoteKey returns the local id linked to (remoteID, className).
	FindByRemoteKey(ctx context.Context, remoteID, className string) (localID string, ok bool, err error)
}

// Mapper is the mapping facade.
//
// Thread-safety: a Mapper holds no mutable state. It is safe for concurrent
// use when its collaborators are.
type Mapper struct {
	driver      mapping.Driver
	persistence persistence.Manager
	mappings    MappingStore
	logger      *slog.Logger
}

// Option configures a Mapper.
type Option func(*Mapper)

// WithMappingStore sets the side mapping store used by mappingTable classes.
func WithMappingStore(s MappingStore) Option {
	return func(m *Mapper) { m.mappings = s }
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(m *Mapper) { m.logger = l }
}

// New creates a Mapper.
func New(driver mapping.Driver, pm persistence.Manager, opts ...Option) *Mapper {
	m := &Mapper{
		driver:      driver,
		persistence: pm,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// LoadMetadataForClass returns the metadata of a class.
func (m *Mapper) LoadMetadataForClass(className string) (*mapping.ClassMetadata, error) {
	return m.driver.LoadMetadataForClass(className)
}

// MapToSalesforceObject builds the SyncEvent applying action to entity.
//
// Null and empty string values are left out of the payload. For update and
// delete of a persisted entity they are listed in FieldsToNull instead; a
// create never clears fields. Update and delete require a resolvable
// Salesforce id and fail with InvalidMappingState otherwise.
func (m *Mapper) MapToSalesforceObject(ctx context.Context, entity any, action event.Action) (event.SyncEvent, error) {
	if !action.Valid() {
		return event.SyncEvent{}, fmt.Errorf("map to salesforce: unknown action %q", action)
	}

	className, md, schema, err := m.resolve(entity)
	if err != nil {
		return event.SyncEvent{}, err
	}

	localID, err := m.persistence.Identifier(entity)
	if err != nil {
		return event.SyncEvent{}, fmt.Errorf("map %s: %w", className, err)
	}

	obj := sobject.New()
	for _, fm := range md.FieldMappings() {
		accessor, err := fieldAccessor(className, schema, fm.Field)
		if err != nil {
			return event.SyncEvent{}, err
		}
		value, err := accessor.Get(entity)
		if err != nil {
			return event.SyncEvent{}, fmt.Errorf("map %s.%s: %w", className, fm.Field, err)
		}

		if isEmpty(value) {
			if action != event.Create && localID != "" {
				obj.AddFieldToNull(fm.Remote())
			}
			continue
		}
		obj.Set(fm.Remote(), value)
	}

	if action.RequiresRemoteID() {
		remoteID, ok, err := m.salesforceID(ctx, className, md, schema, entity)
		if err != nil {
			return event.SyncEvent{}, err
		}
		if !ok {
			return event.SyncEvent{}, mapping.NewInvalidState(className,
				fmt.Sprintf("cannot %s entity %q without a Salesforce id", action, localID))
		}
		obj.ID = remoteID
	}

	m.logger.Debug("mapped entity",
		"class", className,
		"id", localID,
		"action", action,
		"fields", obj.Len(),
		"fields_to_null", len(obj.FieldsToNull()),
	)
	return event.New(md.RemoteType(), obj, event.Local{ID: localID, Type: className}, action), nil
}

// GetSalesforceID returns the Salesforce id of entity. ok is false when the
// class keeps no local identity or none is recorded for the entity.
func (m *Mapper) GetSalesforceID(ctx context.Context, entity any) (string, bool, error) {
	className, md, schema, err := m.resolve(entity)
	if err != nil {
		return "", false, err
	}
	return m.salesforceID(ctx, className, md, schema, entity)
}

func (m *Mapper) salesforceID(ctx context.Context, className string, md *mapping.ClassMetadata, schema *persistence.Schema, entity any) (string, bool, error) {
	identity := md.LocalIdentity()

	switch identity.Kind {
	case "":
		return "", false, nil

	case identification.KindMappingTable:
		if m.mappings == nil {
			return "", false, mapping.NewMissingConfiguration(className, MissingMappingStore)
		}
		localID, err := m.persistence.Identifier(entity)
		if err != nil {
			return "", false, fmt.Errorf("salesforce id of %s: %w", className, err)
		}
		if localID == "" {
			return "", false, nil
		}
		remoteID, ok, err := m.mappings.FindByLocalKey(ctx, className, localID)
		if err != nil {
			return "", false, fmt.Errorf("salesforce id of %s(%s): %w", className, localID, err)
		}
		m.logger.Debug("mapping table lookup", "class", className, "id", localID, "found", ok)
		return remoteID, ok, nil

	case identification.KindProperty:
		accessor, err := fieldAccessor(className, schema, identity.Property)
		if err != nil {
			return "", false, err
		}
		value, err := accessor.Get(entity)
		if err != nil {
			return "", false, fmt.Errorf("salesforce id of %s: %w", className, err)
		}
		remoteID := stringValue(value)
		return remoteID, remoteID != "", nil

	default:
		return "", false, invalidIdentity(className, identity)
	}
}

// GetEntity loads the local entity of className linked to remoteID. ok is
// false when the class keeps no local identity or no entity is linked.
func (m *Mapper) GetEntity(ctx context.Context, className, remoteID string) (any, bool, error) {
	md, err := m.driver.LoadMetadataForClass(className)
	if err != nil {
		return nil, false, err
	}
	identity := md.LocalIdentity()

	var entity any
	switch identity.Kind {
	case "":
		return nil, false, nil

	case identification.KindMappingTable:
		if m.mappings == nil {
			return nil, false, mapping.NewMissingConfiguration(className, MissingMappingStore)
		}
		localID, ok, err := m.mappings.FindByRemoteKey(ctx, remoteID, className)
		if err != nil {
			return nil, false, fmt.Errorf("entity of %s(%s): %w", className, remoteID, err)
		}
		if !ok {
			return nil, false, nil
		}
		entity, err = m.persistence.Find(ctx, className, localID)
		if err != nil {
			return absentOnNotFound(err)
		}

	case identification.KindProperty:
		entity, err = m.persistence.FindOneBy(ctx, className, map[string]any{identity.Property: remoteID})
		if err != nil {
			return absentOnNotFound(err)
		}

	default:
		return nil, false, invalidIdentity(className, identity)
	}

	m.logger.Debug("resolved entity", "class", className, "salesforce_id", remoteID, "identity", identity.String())
	return entity, true, nil
}

// MapFromSalesforceObject writes every mapped field of obj into entity and
// returns it. Absent and null remote values assign the zero value.
func (m *Mapper) MapFromSalesforceObject(obj *sobject.Object, entity any) (any, error) {
	if obj == nil {
		return nil, errors.New("map from salesforce: nil object")
	}

	className, md, schema, err := m.resolve(entity)
	if err != nil {
		return nil, err
	}

	for _, fm := range md.FieldMappings() {
		accessor, err := fieldAccessor(className, schema, fm.Field)
		if err != nil {
			return nil, err
		}

		var value any
		if v, ok := obj.Get(fm.Remote()); ok {
			value = v.Interface()
		}
		if err := accessor.Set(entity, value); err != nil {
			return nil, fmt.Errorf("map %s.%s from %s: %w", className, fm.Field, fm.Remote(), err)
		}
	}
	return entity, nil
}

// ValidateMapping checks that every mapped field, and the identity property
// of property-based classes, exists in the local schema.
func (m *Mapper) ValidateMapping(className string) error {
	md, err := m.driver.LoadMetadataForClass(className)
	if err != nil {
		return err
	}
	schema, err := m.persistence.Schema(className)
	if err != nil {
		return fmt.Errorf("validate %s: %w", className, err)
	}

	for _, field := range md.FieldNames() {
		if _, err := fieldAccessor(className, schema, field); err != nil {
			return err
		}
	}
	if identity := md.LocalIdentity(); identity.Kind == identification.KindProperty {
		if _, err := fieldAccessor(className, schema, identity.Property); err != nil {
			return err
		}
	}
	return nil
}

func (m *Mapper) resolve(entity any) (string, *mapping.ClassMetadata, *persistence.Schema, error) {
	className, err := m.persistence.ResolveConcreteType(entity)
	if err != nil {
		return "", nil, nil, fmt.Errorf("resolve class of %T: %w", entity, err)
	}
	md, err := m.driver.LoadMetadataForClass(className)
	if err != nil {
		return "", nil, nil, err
	}
	schema, err := m.persistence.Schema(className)
	if err != nil {
		return "", nil, nil, fmt.Errorf("schema of %s: %w", className, err)
	}
	return className, md, schema, nil
}

func fieldAccessor(className string, schema *persistence.Schema, field string) (persistence.Accessor, error) {
	accessor, ok := schema.Accessor(field)
	if !ok {
		return nil, mapping.NewInvalidDefinition(className, fmt.Sprintf("Field '%s' does not exist", field))
	}
	return accessor, nil
}

func invalidIdentity(className string, identity identification.LocalIdentity) error {
	return mapping.NewInvalidDefinition(className, fmt.Sprintf("Invalid local identity mapping '%s'", identity))
}

func absentOnNotFound(err error) (any, bool, error) {
	if errors.Is(err, persistence.ErrNotFound) {
		return nil, false, nil
	}
	return nil, false, err
}

func isEmpty(value any) bool {
	if value == nil {
		return true
	}
	s, ok := value.(string)
	return ok && s == ""
}

func stringValue(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}
