package mapping

import (
	"sync"
)

// Driver loads class metadata from declarative definitions.
type Driver interface {
	// LoadMetadataForClass returns the metadata of one class.
	LoadMetadataForClass(className string) (*ClassMetadata, error)

	// AllClassNames returns every class declared across the driver's sources.
	// Duplicates are possible and order is not significant.
	AllClassNames() ([]string, error)
}

// CachedDriver memoizes LoadMetadataForClass by class name.
// Failed loads are not cached.
//
// Thread-safety: all methods are safe for concurrent use.
type CachedDriver struct {
	inner Driver

	mu    sync.RWMutex
	cache map[string]*ClassMetadata
}

// NewCachedDriver wraps inner with a per-class cache.
func NewCachedDriver(inner Driver) *CachedDriver {
	return &CachedDriver{
		inner: inner,
		cache: make(map[string]*ClassMetadata),
	}
}

// LoadMetadataForClass implements Driver.
func (d *CachedDriver) LoadMetadataForClass(className string) (*ClassMetadata, error) {
	d.mu.RLock()
	md, ok := d.cache[className]
	d.mu.RUnlock()
	if ok {
		return md, nil
	}

	md, err := d.inner.LoadMetadataForClass(className)
	if err != nil {
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	// keep the first stored value if another caller raced us
	if existing, ok := d.cache[className]; ok {
		return existing, nil
	}
	d.cache[className] = md
	return md, nil
}

// AllClassNames implements Driver. It is never cached.
func (d *CachedDriver) AllClassNames() ([]string, error) {
	return d.inner.AllClassNames()
}

// Invalidate drops the cached metadata of one class.
func (d *CachedDriver) Invalidate(className string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.cache, className)
}

// Reset drops all cached metadata.
func (d *CachedDriver) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cache = make(map[string]*ClassMetadata)
}
