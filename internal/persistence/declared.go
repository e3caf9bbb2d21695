package persistence

import (
	"context"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ErrDeclaredOnly is returned by every data access on a Declared manager.
var ErrDeclaredOnly = errors.New("schema is declared only, no entity access")

// Declared is a schema-only Manager. It knows which properties each class
// exposes but cannot read, write or load entities.
//
// The YAML layout lists the properties of each class:
//
//	classes:
//	  Acme.Entity.Customer: [id, name, email]
type Declared struct {
	schemas map[string]*Schema
}

type declaredFile struct {
	Classes map[string][]string `yaml:"classes"`
}

// NewDeclared returns a manager that declares no classes.
func NewDeclared() *Declared {
	return &Declared{schemas: make(map[string]*Schema)}
}

// LoadDeclared reads a declared schema file.
func LoadDeclared(path string) (*Declared, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read schema file %s: %w", path, err)
	}
	return ParseDeclared(data)
}

// ParseDeclared parses declared schema YAML.
func ParseDeclared(data []byte) (*Declared, error) {
	var f declaredFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse schema YAML: %w", err)
	}

	d := &Declared{schemas: make(map[string]*Schema, len(f.Classes))}
	for className, props := range f.Classes {
		fields := make(map[string]Accessor, len(props))
		for _, p := range props {
			fields[p] = declaredField{className: className, name: p}
		}
		d.schemas[className] = &Schema{ClassName: className, Fields: fields}
	}
	return d, nil
}

// Classes returns the number of declared classes.
func (d *Declared) Classes() int {
	return len(d.schemas)
}

// Schema implements Manager.
func (d *Declared) Schema(className string) (*Schema, error) {
	s, ok := d.schemas[className]
	if !ok {
		return nil, fmt.Errorf("unknown class %q", className)
	}
	return s, nil
}

// ResolveConcreteType implements Manager.
func (d *Declared) ResolveConcreteType(entity any) (string, error) {
	return "", fmt.Errorf("resolve %T: %w", entity, ErrDeclaredOnly)
}

// Identifier implements Manager.
func (d *Declared) Identifier(entity any) (string, error) {
	return "", fmt.Errorf("identifier of %T: %w", entity, ErrDeclaredOnly)
}

// Find implements Manager.
func (d *Declared) Find(_ context.Context, className, id string) (any, error) {
	return nil, fmt.Errorf("find %s(%s): %w", className, id, ErrDeclaredOnly)
}

// FindOneBy implements Manager.
func (d *Declared) FindOneBy(_ context.Context, className string, _ map[string]any) (any, error) {
	return nil, fmt.Errorf("find %s: %w", className, ErrDeclaredOnly)
}

type declaredField struct {
	className string
	name      string
}

func (f declaredField) Get(any) (any, error) {
	return nil, fmt.Errorf("%s.%s: %w", f.className, f.name, ErrDeclaredOnly)
}

func (f declaredField) Set(any, any) error {
	return fmt.Errorf("%s.%s: %w", f.className, f.name, ErrDeclaredOnly)
}
