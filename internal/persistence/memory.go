package persistence

import (
	"context"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
	"sync"
	"unicode"
)

// Memory is an in-process Manager over registered struct types.
//
// Property names come from the `sf` struct tag when present, otherwise from
// the Go field name with its first letter lower-cased. A tag of "-" hides the
// field.
//
// Thread-safety: all methods are safe for concurrent use.
type Memory struct {
	mu      sync.RWMutex
	classes map[string]*memoryClass
	byType  map[reflect.Type]string
}

type memoryClass struct {
	name    string
	typ     reflect.Type
	idField string
	schema  *Schema
	rows    map[string]any
	order   []string
}

// NewMemory creates an empty in-memory manager.
func NewMemory() *Memory {
	return &Memory{
		classes: make(map[string]*memoryClass),
		byType:  make(map[reflect.Type]string),
	}
}

// Register declares a struct type under a class name.
// prototype may be a struct value or a pointer to one; idField is the property
// holding the local identifier.
func (m *Memory) Register(className string, prototype any, idField string) error {
	typ := reflect.TypeOf(prototype)
	if typ != nil && typ.Kind() == reflect.Pointer {
		typ = typ.Elem()
	}
	if typ == nil || typ.Kind() != reflect.Struct {
		return fmt.Errorf("register %s: prototype must be a struct, got %T", className, prototype)
	}

	fields := make(map[string]Accessor)
	for i := 0; i < typ.NumField(); i++ {
		sf := typ.Field(i)
		if !sf.IsExported() || sf.Anonymous {
			continue
		}
		name := propertyName(sf)
		if name == "" {
			continue
		}
		fields[name] = structField{typ: typ, index: sf.Index, name: name}
	}

	if _, ok := fields[idField]; !ok {
		return fmt.Errorf("register %s: identifier property %q not found", className, idField)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.classes[className]; exists {
		return fmt.Errorf("register %s: class already registered", className)
	}
	m.classes[className] = &memoryClass{
		name:    className,
		typ:     typ,
		idField: idField,
		schema:  &Schema{ClassName: className, Fields: fields},
		rows:    make(map[string]any),
	}
	m.byType[typ] = className
	return nil
}

// Persist stores an entity under its current identifier, replacing any
// previous entity with the same identifier.
func (m *Memory) Persist(entity any) error {
	className, err := m.ResolveConcreteType(entity)
	if err != nil {
		return fmt.Errorf("persist: %w", err)
	}
	id, err := m.Identifier(entity)
	if err != nil {
		return fmt.Errorf("persist: %w", err)
	}
	if id == "" {
		return fmt.Errorf("persist %s: entity has no identifier", className)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	class := m.classes[className]
	if _, exists := class.rows[id]; !exists {
		class.order = append(class.order, id)
	}
	class.rows[id] = entity
	return nil
}

// Schema implements Manager.
func (m *Memory) Schema(className string) (*Schema, error) {
	class, err := m.class(className)
	if err != nil {
		return nil, err
	}
	return class.schema, nil
}

// ResolveConcreteType implements Manager.
func (m *Memory) ResolveConcreteType(entity any) (string, error) {
	typ := reflect.TypeOf(entity)
	if typ != nil && typ.Kind() == reflect.Pointer {
		typ = typ.Elem()
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	name, ok := m.byType[typ]
	if !ok {
		return "", fmt.Errorf("unregistered entity type %T", entity)
	}
	return name, nil
}

// Identifier implements Manager.
func (m *Memory) Identifier(entity any) (string, error) {
	className, err := m.ResolveConcreteType(entity)
	if err != nil {
		return "", err
	}
	class, err := m.class(className)
	if err != nil {
		return "", err
	}

	value, err := class.schema.Fields[class.idField].Get(entity)
	if err != nil {
		return "", fmt.Errorf("identifier of %s: %w", className, err)
	}
	return formatIdentifier(value), nil
}

// Find implements Manager.
func (m *Memory) Find(_ context.Context, className, id string) (any, error) {
	class, err := m.class(className)
	if err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	entity, ok := class.rows[id]
	if !ok {
		return nil, fmt.Errorf("find %s(%s): %w", className, id, ErrNotFound)
	}
	return entity, nil
}

// FindOneBy implements Manager.
// Entities are scanned in insertion order.
func (m *Memory) FindOneBy(_ context.Context, className string, criteria map[string]any) (any, error) {
	class, err := m.class(className)
	if err != nil {
		return nil, err
	}

	for field := range criteria {
		if _, ok := class.schema.Fields[field]; !ok {
			return nil, fmt.Errorf("find %s: unknown property %q", className, field)
		}
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, id := range class.order {
		entity := class.rows[id]
		if matches(class.schema, entity, criteria) {
			return entity, nil
		}
	}
	return nil, fmt.Errorf("find %s by %v: %w", className, criteria, ErrNotFound)
}

func (m *Memory) class(className string) (*memoryClass, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	class, ok := m.classes[className]
	if !ok {
		return nil, fmt.Errorf("unknown class %q", className)
	}
	return class, nil
}

func matches(schema *Schema, entity any, criteria map[string]any) bool {
	for field, want := range criteria {
		got, err := schema.Fields[field].Get(entity)
		if err != nil || !equalValues(got, want) {
			return false
		}
	}
	return true
}

func equalValues(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if reflect.DeepEqual(a, b) {
		return true
	}
	return numericEqual(reflect.ValueOf(a), reflect.ValueOf(b))
}

// numericEqual compares two numbers of possibly different kinds by value.
// Non-numeric operands are never equal.
func numericEqual(a, b reflect.Value) bool {
	if !isNumeric(a.Kind()) || !isNumeric(b.Kind()) {
		return false
	}
	if isFloat(a.Kind()) || isFloat(b.Kind()) {
		return toFloat(a) == toFloat(b)
	}
	if isUnsigned(a.Kind()) && isUnsigned(b.Kind()) {
		return a.Uint() == b.Uint()
	}
	if isUnsigned(a.Kind()) {
		a, b = b, a
	}
	// a is signed here
	if isUnsigned(b.Kind()) {
		return a.Int() >= 0 && uint64(a.Int()) == b.Uint()
	}
	return a.Int() == b.Int()
}

func formatIdentifier(value any) string {
	if value == nil {
		return ""
	}
	rv := reflect.ValueOf(value)
	if rv.IsZero() {
		return ""
	}
	switch rv.Kind() {
	case reflect.String:
		return rv.String()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(rv.Int(), 10)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.FormatUint(rv.Uint(), 10)
	default:
		return fmt.Sprint(value)
	}
}

func propertyName(sf reflect.StructField) string {
	if tag, ok := sf.Tag.Lookup("sf"); ok {
		name, _, _ := strings.Cut(tag, ",")
		if name == "-" {
			return ""
		}
		if name != "" {
			return name
		}
	}
	return lowerCamel(sf.Name)
}

// lowerCamel lower-cases a leading initialism: "ID" becomes "id", "SFID"
// becomes "sfid", "URLPath" becomes "urlPath" and "LastName" "lastName".
func lowerCamel(name string) string {
	runes := []rune(name)
	n := 0
	for n < len(runes) && unicode.IsUpper(runes[n]) {
		n++
	}
	if n > 1 && n < len(runes) {
		n--
	}
	for i := 0; i < n; i++ {
		runes[i] = unicode.ToLower(runes[i])
	}
	return string(runes)
}

// structField accesses one field of a registered struct type by index.
type structField struct {
	typ   reflect.Type
	index []int
	name  string
}

func (f structField) target(entity any, settable bool) (reflect.Value, error) {
	rv := reflect.ValueOf(entity)
	if rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return reflect.Value{}, fmt.Errorf("property %s: nil entity", f.name)
		}
		rv = rv.Elem()
	} else if settable {
		return reflect.Value{}, fmt.Errorf("property %s: entity %T is not addressable", f.name, entity)
	}
	if rv.Type() != f.typ {
		return reflect.Value{}, fmt.Errorf("property %s: entity is %s, want %s", f.name, rv.Type(), f.typ)
	}
	return rv.FieldByIndex(f.index), nil
}

// Get returns the field value, dereferencing pointers. A nil pointer yields nil.
func (f structField) Get(entity any) (any, error) {
	fv, err := f.target(entity, false)
	if err != nil {
		return nil, err
	}
	if fv.Kind() == reflect.Pointer {
		if fv.IsNil() {
			return nil, nil
		}
		fv = fv.Elem()
	}
	return fv.Interface(), nil
}

// Set assigns value to the field. A nil value assigns the zero value.
func (f structField) Set(entity any, value any) error {
	fv, err := f.target(entity, true)
	if err != nil {
		return err
	}
	if value == nil {
		fv.Set(reflect.Zero(fv.Type()))
		return nil
	}
	if err := assign(fv, reflect.ValueOf(value)); err != nil {
		return fmt.Errorf("property %s: %w", f.name, err)
	}
	return nil
}

func assign(dst, src reflect.Value) error {
	if dst.Kind() == reflect.Pointer && src.Type() != dst.Type() {
		elem := reflect.New(dst.Type().Elem())
		if err := assign(elem.Elem(), src); err != nil {
			return err
		}
		dst.Set(elem)
		return nil
	}

	switch {
	case src.Type().AssignableTo(dst.Type()):
		dst.Set(src)
	case isNumeric(src.Kind()) && dst.Kind() == reflect.String:
		return fmt.Errorf("cannot assign %s to %s", src.Type(), dst.Type())
	case isNumeric(src.Kind()) && isNumeric(dst.Kind()):
		if err := checkLossless(dst.Type(), src); err != nil {
			return err
		}
		dst.Set(src.Convert(dst.Type()))
	case src.Type().ConvertibleTo(dst.Type()):
		dst.Set(src.Convert(dst.Type()))
	default:
		return fmt.Errorf("cannot assign %s to %s", src.Type(), dst.Type())
	}
	return nil
}

// checkLossless rejects numeric conversions that would truncate or overflow.
func checkLossless(dst reflect.Type, src reflect.Value) error {
	target := reflect.New(dst).Elem()
	switch {
	case isFloat(src.Kind()) && !isFloat(dst.Kind()):
		f := src.Float()
		if math.Trunc(f) != f || math.IsInf(f, 0) {
			return fmt.Errorf("cannot assign non-integral %v to %s", f, dst)
		}
		if isUnsigned(dst.Kind()) {
			if f < 0 || f >= math.Exp2(float64(dst.Bits())) {
				return fmt.Errorf("%v overflows %s", f, dst)
			}
		} else if f < -math.Exp2(float64(dst.Bits()-1)) || f >= math.Exp2(float64(dst.Bits()-1)) {
			return fmt.Errorf("%v overflows %s", f, dst)
		}
	case isFloat(dst.Kind()):
		if dst.Kind() == reflect.Float32 && isFloat(src.Kind()) && target.OverflowFloat(src.Float()) {
			return fmt.Errorf("%v overflows %s", src.Float(), dst)
		}
	case isUnsigned(src.Kind()):
		u := src.Uint()
		if isUnsigned(dst.Kind()) {
			if target.OverflowUint(u) {
				return fmt.Errorf("%d overflows %s", u, dst)
			}
		} else if u > math.MaxInt64 || target.OverflowInt(int64(u)) {
			return fmt.Errorf("%d overflows %s", u, dst)
		}
	default:
		i := src.Int()
		if isUnsigned(dst.Kind()) {
			if i < 0 || target.OverflowUint(uint64(i)) {
				return fmt.Errorf("%d overflows %s", i, dst)
			}
		} else if target.OverflowInt(i) {
			return fmt.Errorf("%d overflows %s", i, dst)
		}
	}
	return nil
}

func isFloat(k reflect.Kind) bool {
	return k == reflect.Float32 || k == reflect.Float64
}

func isUnsigned(k reflect.Kind) bool {
	switch k {
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return true
	}
	return false
}

func toFloat(v reflect.Value) float64 {
	switch {
	case isFloat(v.Kind()):
		return v.Float()
	case isUnsigned(v.Kind()):
		return float64(v.Uint())
	default:
		return float64(v.Int())
	}
}

func isNumeric(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}
