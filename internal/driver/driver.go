// Package driver loads class metadata from mapping definition files.
//
// A FileDriver is configured with an ordered list of search roots and a
// Format. The definition of class `Acme\Entity\Customer` is read from the first
// root holding `Customer.mapping.xml` (or the suffix of the chosen format).
// A file may declare several classes.
//
// Strategy keys in definitions are resolved through an
// identification.Registry. Strategies that need a persistence handle fail
// with MISSING_DRIVER_CONFIGURATION unless SetPersistence was called first.
package driver

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/roach88/sfmap/internal/identification"
	"github.com/roach88/sfmap/internal/mapping"
	"github.com/roach88/sfmap/internal/persistence"
	"github.com/roach88/sfmap/internal/sobject"
)

// MissingPersistence names the persistence handle in configuration errors.
const MissingPersistence = "Persistence"

// ErrPersistenceAlreadySet is returned when SetPersistence is called twice.
var ErrPersistenceAlreadySet = errors.New("persistence handle already set")

// FileDriver implements mapping.Driver over definition files.
//
// Thread-safety: safe for concurrent use. The roots are fixed at construction
// and the persistence handle can be set once.
type FileDriver struct {
	locator  *Locator
	format   Format
	registry *identification.Registry
	logger   *slog.Logger

	mu          sync.RWMutex
	persistence persistence.Manager
}

// Option configures a FileDriver.
type Option func(*FileDriver)

// WithRegistry overrides the default strategy registry.
func WithRegistry(r *identification.Registry) Option {
	return func(d *FileDriver) { d.registry = r }
}

// WithLogger overrides the default logger.
func WithLogger(l *slog.Logger) Option {
	return func(d *FileDriver) { d.logger = l }
}

// WithPersistence sets the persistence handle at construction.
func WithPersistence(pm persistence.Manager) Option {
	return func(d *FileDriver) { d.persistence = pm }
}

// New creates a driver reading files of the given format from paths.
func New(format Format, paths []string, opts ...Option) *FileDriver {
	d := &FileDriver{
		locator:  NewLocator(paths),
		format:   format,
		registry: identification.DefaultRegistry(),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// NewXMLDriver creates a driver reading <ShortName>.mapping.xml files.
func NewXMLDriver(paths []string, opts ...Option) *FileDriver {
	return New(XML(), paths, opts...)
}

// SetPersistence supplies the persistence handle. It can be set only once.
func (d *FileDriver) SetPersistence(pm persistence.Manager) error {
	if pm == nil {
		return errors.New("set persistence: nil manager")
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.persistence != nil {
		return ErrPersistenceAlreadySet
	}
	d.persistence = pm
	return nil
}

// Paths returns the search roots in order.
func (d *FileDriver) Paths() []string {
	return d.locator.Paths()
}

// Format returns the definition format.
func (d *FileDriver) Format() Format {
	return d.format
}

// LoadMetadataForClass implements mapping.Driver.
func (d *FileDriver) LoadMetadataForClass(className string) (*mapping.ClassMetadata, error) {
	fileName := mapping.ShortName(className) + d.format.Suffix

	path, err := d.locator.Locate(fileName)
	if err != nil {
		return nil, mapping.NewMappingNotFound(className)
	}
	d.logger.Debug("mapping file located", "class", className, "path", path)

	defs, err := d.loadFile(className, path)
	if err != nil {
		return nil, err
	}

	// a later declaration of the same class replaces an earlier one
	var def *EntityDefinition
	for i := range defs {
		if defs[i].Class == className {
			def = &defs[i]
		}
	}
	if def == nil {
		return nil, mapping.NewMappingNotFound(className)
	}

	md, err := d.buildMetadata(def)
	if err != nil {
		return nil, err
	}

	d.logger.Debug("metadata loaded",
		"class", className,
		"remote_type", md.RemoteType(),
		"fields", len(md.FieldNames()),
		"identity", md.LocalIdentity().String(),
	)
	return md, nil
}

// AllClassNames implements mapping.Driver.
// Every root must be a directory.
func (d *FileDriver) AllClassNames() ([]string, error) {
	classes := []string{}

	for _, root := range d.locator.Paths() {
		info, err := os.Stat(root)
		if err != nil || !info.IsDir() {
			return nil, mapping.NewInvalidDefinition("all", "invalid directory "+root)
		}

		files, err := FindFiles(root, d.format.Suffix)
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", root, err)
		}

		for _, file := range files {
			defs, err := d.loadFile("all", file)
			if err != nil {
				return nil, err
			}
			for _, def := range defs {
				classes = append(classes, def.Class)
			}
		}
	}

	return classes, nil
}

func (d *FileDriver) loadFile(className, path string) ([]EntityDefinition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read mapping file %s: %w", path, err)
	}

	defs, err := d.format.Decode(data, path)
	if err != nil {
		return nil, mapping.NewParseFailure(className, d.format.Label, path, err)
	}
	return defs, nil
}

func (d *FileDriver) buildMetadata(def *EntityDefinition) (*mapping.ClassMetadata, error) {
	md := mapping.NewClassMetadata(def.Class)
	md.SetRemoteType(def.Object)

	for _, p := range def.Properties {
		if p.Field == "" {
			return nil, mapping.NewInvalidDefinition(def.Class, fmt.Sprintf("property '%s' has no local field", p.Name))
		}
		md.SetFieldMapping(p.Field, p.Name)
		if remote := (mapping.FieldMapping{Field: p.Field, RemoteName: p.Name}).Remote(); isReserved(remote) {
			return nil, mapping.NewInvalidDefinition(def.Class, fmt.Sprintf("field '%s' maps to reserved remote name '%s'", p.Field, remote))
		}
	}

	d.mu.RLock()
	pm := d.persistence
	d.mu.RUnlock()

	for _, s := range def.Strategies {
		reg, ok := d.registry.Lookup(s.Class)
		if !ok {
			return nil, mapping.NewInvalidDefinition(def.Class, fmt.Sprintf("Invalid identification strategy '%s'", s.Class))
		}

		opts := identification.Options{
			Property:      s.Property,
			MatchingField: s.MatchingField,
		}
		if reg.RequiresPersistence {
			if pm == nil {
				return nil, mapping.NewMissingConfiguration(def.Class, MissingPersistence)
			}
			opts.Persistence = pm
		}

		strategy, err := reg.New(opts)
		if err != nil {
			return nil, mapping.NewInvalidDefinition(def.Class, fmt.Sprintf("strategy '%s': %v", s.Class, err))
		}
		md.AddStrategy(strategy)
	}

	return md, nil
}

// isReserved reports whether a remote field name collides with the keys the
// remote object encodes itself. Salesforce field names are case-insensitive.
func isReserved(remote string) bool {
	return strings.EqualFold(remote, sobject.KeyID) || strings.EqualFold(remote, sobject.KeyFieldsToNull)
}
