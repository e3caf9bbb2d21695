package mapping

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/sfmap/internal/identification"
)

func TestShortName(t *testing.T) {
	tests := map[string]string{
		`Acme\Entity\Customer`:   "Customer",
		"acme.entity.Customer":   "Customer",
		"github.com/acme/Order":  "Order",
		"Customer":               "Customer",
		`Acme\Entity.Mixed/Item`: "Item",
	}
	for in, want := range tests {
		assert.Equal(t, want, ShortName(in), in)
	}
}

func TestClassMetadata_FieldOrderAndReplace(t *testing.T) {
	md := NewClassMetadata("Acme.Customer")
	md.SetRemoteType("Account")
	md.SetFieldMapping("name", "Name")
	md.SetFieldMapping("email", "")
	md.SetFieldMapping("phone", "Phone")
	md.SetFieldMapping("name", "AccountName")

	assert.Equal(t, "Acme.Customer", md.ClassName())
	assert.Equal(t, "Account", md.RemoteType())
	assert.Equal(t, []string{"name", "email", "phone"}, md.FieldNames())

	fm, ok := md.FieldMapping("name")
	require.True(t, ok)
	assert.Equal(t, "AccountName", fm.Remote())

	fm, ok = md.FieldMapping("email")
	require.True(t, ok)
	assert.Equal(t, "email", fm.Remote(), "remote name defaults to the local field")

	_, ok = md.FieldMapping("missing")
	assert.False(t, ok)

	mappings := md.FieldMappings()
	mappings[0].RemoteName = "changed"
	fm, _ = md.FieldMapping("name")
	assert.Equal(t, "AccountName", fm.RemoteName, "FieldMappings returns a copy")
}

func TestClassMetadata_LocalIdentity(t *testing.T) {
	md := NewClassMetadata("Acme.Customer")
	assert.True(t, md.LocalIdentity().IsNone())

	md.AddStrategy(&identification.FullRemote{MatchingField: "Email"})
	assert.True(t, md.LocalIdentity().IsNone())

	md.AddStrategy(&identification.Property{Name: "salesforceId"})
	md.AddStrategy(&identification.MappingTable{})

	assert.Equal(t, identification.LocalIdentity{Kind: identification.KindProperty, Property: "salesforceId"}, md.LocalIdentity())
	assert.Len(t, md.Strategies(), 3)
}

func TestMappingError_Messages(t *testing.T) {
	err := NewMappingNotFound(`Acme\Customer`)
	assert.Contains(t, err.Error(), `Could not find a mapping for class 'Acme\Customer'`)
	assert.True(t, IsMappingNotFound(err))
	assert.False(t, IsInvalidDefinition(err))

	err = NewMissingConfiguration("Acme.Customer", "Persistence")
	assert.Contains(t, err.Error(), "The following configurations are missing for class Acme.Customer: Persistence")
	assert.Equal(t, []string{"Persistence"}, err.Missing)
	assert.True(t, IsMissingConfiguration(err))

	err = NewInvalidDefinition("Acme.Customer", "Invalid identification strategy 'x'")
	assert.Contains(t, err.Error(), "Invalid mapping definition for class Acme.Customer: Invalid identification strategy 'x'")
	assert.True(t, IsInvalidDefinition(err))

	err = NewInvalidState("Acme.Customer", "no remote identifier")
	assert.True(t, IsInvalidState(err))
	assert.Contains(t, err.Error(), "Invalid mapping state")
}

func TestMappingError_Wrapping(t *testing.T) {
	cause := errors.New("unexpected EOF")
	err := NewParseFailure("Acme.Customer", "XML", "Customer.mapping.xml", cause)

	wrapped := fmt.Errorf("load: %w", err)
	assert.True(t, IsParseFailure(wrapped))
	assert.ErrorIs(t, wrapped, cause)
	assert.Contains(t, err.Error(), "XML parse failure")
	assert.Contains(t, err.Error(), "unexpected EOF")

	assert.False(t, HasCode(cause, ErrCodeParseFailure))
	assert.False(t, HasCode(nil, ErrCodeParseFailure))
}

type countingDriver struct {
	mu    sync.Mutex
	loads map[string]int
	fail  bool
}

func (d *countingDriver) LoadMetadataForClass(className string) (*ClassMetadata, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.loads[className]++
	if d.fail {
		return nil, NewMappingNotFound(className)
	}
	return NewClassMetadata(className), nil
}

func (d *countingDriver) AllClassNames() ([]string, error) {
	return []string{"A", "B"}, nil
}

func TestCachedDriver(t *testing.T) {
	inner := &countingDriver{loads: map[string]int{}}
	d := NewCachedDriver(inner)

	first, err := d.LoadMetadataForClass("A")
	require.NoError(t, err)
	second, err := d.LoadMetadataForClass("A")
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Equal(t, 1, inner.loads["A"])

	d.Invalidate("A")
	_, err = d.LoadMetadataForClass("A")
	require.NoError(t, err)
	assert.Equal(t, 2, inner.loads["A"])

	d.Reset()
	_, err = d.LoadMetadataForClass("A")
	require.NoError(t, err)
	assert.Equal(t, 3, inner.loads["A"])

	names, err := d.AllClassNames()
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, names)
}

func TestCachedDriver_ErrorsNotCached(t *testing.T) {
	inner := &countingDriver{loads: map[string]int{}, fail: true}
	d := NewCachedDriver(inner)

	_, err := d.LoadMetadataForClass("A")
	require.True(t, IsMappingNotFound(err))
	_, err = d.LoadMetadataForClass("A")
	require.True(t, IsMappingNotFound(err))
	assert.Equal(t, 2, inner.loads["A"])
}

func TestCachedDriver_Concurrent(t *testing.T) {
	inner := &countingDriver{loads: map[string]int{}}
	d := NewCachedDriver(inner)

	var wg sync.WaitGroup
	results := make([]*ClassMetadata, 16)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			md, err := d.LoadMetadataForClass("A")
			if err == nil {
				results[i] = md
			}
		}(i)
	}
	wg.Wait()

	for _, md := range results {
		assert.Same(t, results[0], md)
	}
}
