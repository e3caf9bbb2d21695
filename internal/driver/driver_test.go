package driver

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/sfmap/internal/identification"
	"github.com/roach88/sfmap/internal/mapping"
	"github.com/roach88/sfmap/internal/persistence"
)

const (
	customerClass = `Acme\Entity\Customer`
	contactClass  = `Acme\Entity\Contact`
)

func testdata(parts ...string) string {
	return filepath.Join(append([]string{"testdata"}, parts...)...)
}

func newDriverWithPersistence(t *testing.T, format Format, paths ...string) *FileDriver {
	t.Helper()
	d := New(format, paths)
	require.NoError(t, d.SetPersistence(persistence.NewMemory()))
	return d
}

func TestLoadMetadata_CustomerScenario(t *testing.T) {
	d := newDriverWithPersistence(t, XML(), testdata("mappings"))

	md, err := d.LoadMetadataForClass(customerClass)
	require.NoError(t, err)

	assert.Equal(t, customerClass, md.ClassName())
	assert.Equal(t, "Account", md.RemoteType())
	assert.Equal(t, []string{"name", "email", "phone"}, md.FieldNames())

	fm, ok := md.FieldMapping("name")
	require.True(t, ok)
	assert.Equal(t, "Name", fm.Remote())

	assert.Equal(t, identification.LocalIdentity{Kind: identification.KindMappingTable}, md.LocalIdentity())

	strategies := md.Strategies()
	require.Len(t, strategies, 1)
	table, ok := strategies[0].(*identification.MappingTable)
	require.True(t, ok)
	assert.NotNil(t, table.Persistence, "persistence handle injected")
}

func TestLoadMetadata_MultipleEntitiesPerFile(t *testing.T) {
	d := newDriverWithPersistence(t, XML(), testdata("mappings"))

	md, err := d.LoadMetadataForClass(contactClass)
	require.NoError(t, err)
	assert.Equal(t, "Contact", md.RemoteType())

	fm, ok := md.FieldMapping("email")
	require.True(t, ok)
	assert.Equal(t, "email", fm.Remote(), "remote name defaults to local field")

	strategies := md.Strategies()
	require.Len(t, strategies, 2)
	remote, ok := strategies[0].(*identification.FullRemote)
	require.True(t, ok)
	assert.Equal(t, "Email", remote.MatchingField)
	assert.Equal(t, identification.LocalIdentity{Kind: identification.KindProperty, Property: "salesforceId"}, md.LocalIdentity())

	legacy, err := d.LoadMetadataForClass(`Acme\Legacy\Contact`)
	require.NoError(t, err)
	assert.Equal(t, "Lead", legacy.RemoteType())
	assert.True(t, legacy.LocalIdentity().IsNone())
}

func TestLoadMetadata_FullRemoteNeedsNoPersistence(t *testing.T) {
	d := NewXMLDriver([]string{testdata("mappings")})

	md, err := d.LoadMetadataForClass(`Acme\Entity\Lead`)
	require.NoError(t, err)
	assert.True(t, md.LocalIdentity().IsNone())
}

func TestLoadMetadata_NonExistingDirectory(t *testing.T) {
	d := NewXMLDriver([]string{testdata("does-not-exist")})

	_, err := d.LoadMetadataForClass(customerClass)
	require.Error(t, err)
	assert.True(t, mapping.IsMappingNotFound(err))
	assert.Contains(t, err.Error(), "Could not find a mapping for class '"+customerClass+"'")
}

func TestLoadMetadata_MissingPersistence(t *testing.T) {
	d := NewXMLDriver([]string{testdata("mappings")})

	_, err := d.LoadMetadataForClass(customerClass)
	require.Error(t, err)
	assert.True(t, mapping.IsMissingConfiguration(err))
	assert.Contains(t, err.Error(), "The following configurations are missing for class "+customerClass+": Persistence")

	var me *mapping.MappingError
	require.ErrorAs(t, err, &me)
	assert.Equal(t, []string{MissingPersistence}, me.Missing)
}

func TestLoadMetadata_FileWithoutClass(t *testing.T) {
	d := newDriverWithPersistence(t, XML(), testdata("invalid"))

	_, err := d.LoadMetadataForClass(`Acme\Entity\Order`)
	require.Error(t, err)
	assert.True(t, mapping.IsMappingNotFound(err))
	assert.Contains(t, err.Error(), `Acme\Entity\Order`)

	_, err = d.LoadMetadataForClass(customerClass + "Toto")
	assert.True(t, mapping.IsMappingNotFound(err))
	assert.Contains(t, err.Error(), "Could not find a mapping for class '"+customerClass+"Toto'")
}

func TestLoadMetadata_MalformedXML(t *testing.T) {
	d := NewXMLDriver([]string{testdata("invalid")})

	_, err := d.LoadMetadataForClass(customerClass + "InvalidXml")
	require.Error(t, err)
	assert.True(t, mapping.IsParseFailure(err))
	assert.Contains(t, err.Error(), "XML parse failure")
}

func TestLoadMetadata_TrailingContent(t *testing.T) {
	d := NewXMLDriver([]string{testdata("invalid")})

	_, err := d.LoadMetadataForClass(customerClass + "Trailing")
	require.Error(t, err)
	assert.True(t, mapping.IsParseFailure(err))
	assert.Contains(t, err.Error(), "CustomerTrailing.mapping.xml")
}

func TestLoadMetadata_ReservedRemoteName(t *testing.T) {
	d := NewXMLDriver([]string{testdata("invalid")})

	_, err := d.LoadMetadataForClass(customerClass + "ReservedField")
	require.Error(t, err)
	assert.True(t, mapping.IsInvalidDefinition(err))
	assert.Contains(t, err.Error(), "field 'sfid' maps to reserved remote name 'Id'")
}

func TestLoadMetadata_InvalidStrategy(t *testing.T) {
	d := NewXMLDriver([]string{testdata("invalid")})

	_, err := d.LoadMetadataForClass(customerClass + "InvalidLocalMapping")
	require.Error(t, err)
	assert.True(t, mapping.IsInvalidDefinition(err))
	assert.Contains(t, err.Error(), "Invalid mapping definition for class "+customerClass+"InvalidLocalMapping: Invalid identification strategy")
	assert.Contains(t, err.Error(), `Acme\Identification\NoSuchStrategy`)
}

func TestLoadMetadata_PropertyStrategyWithoutProperty(t *testing.T) {
	d := newDriverWithPersistence(t, XML(), testdata("invalid"))

	_, err := d.LoadMetadataForClass(customerClass + "NoProperty")
	require.Error(t, err)
	assert.True(t, mapping.IsInvalidDefinition(err))
	assert.Contains(t, err.Error(), "property name")
}

func TestLoadMetadata_PropertyWithoutField(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Broken.mapping.xml"), []byte(
		`<mapping><entity class="Broken" object="X"><property name="Name"/></entity></mapping>`), 0o644))

	_, err := NewXMLDriver([]string{dir}).LoadMetadataForClass("Broken")
	assert.True(t, mapping.IsInvalidDefinition(err))
}

func TestLoadMetadata_FirstRootWins(t *testing.T) {
	first := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(first, "Customer.mapping.xml"), []byte(
		`<mapping><entity class="Acme\Entity\Customer" object="Person"/></mapping>`), 0o644))

	d := newDriverWithPersistence(t, XML(), testdata("does-not-exist"), first, testdata("mappings"))

	md, err := d.LoadMetadataForClass(customerClass)
	require.NoError(t, err)
	assert.Equal(t, "Person", md.RemoteType())
}

func TestLoadMetadata_CustomRegistry(t *testing.T) {
	r := identification.NewRegistry()
	require.NoError(t, r.Register(identification.Registration{
		Key: "mappingTable",
		New: func(identification.Options) (identification.Strategy, error) {
			return &identification.FullRemote{}, nil
		},
	}))

	d := NewXMLDriver([]string{testdata("mappings")}, WithRegistry(r))
	md, err := d.LoadMetadataForClass(customerClass)
	require.NoError(t, err, "registration does not require persistence")
	assert.True(t, md.LocalIdentity().IsNone())
}

func TestLoadMetadata_YAML(t *testing.T) {
	d := newDriverWithPersistence(t, YAML(), testdata("yaml"))

	md, err := d.LoadMetadataForClass(customerClass)
	require.NoError(t, err)
	assert.Equal(t, "Account", md.RemoteType())
	assert.Equal(t, []string{"name", "email"}, md.FieldNames())
	assert.Equal(t, identification.LocalIdentity{Kind: identification.KindProperty, Property: "salesforceId"}, md.LocalIdentity())
}

func TestLoadMetadata_CUE(t *testing.T) {
	d := newDriverWithPersistence(t, CUE(), testdata("cue"))

	md, err := d.LoadMetadataForClass(customerClass)
	require.NoError(t, err)
	assert.Equal(t, "Account", md.RemoteType())
	assert.Equal(t, []string{"name", "email"}, md.FieldNames())

	strategies := md.Strategies()
	require.Len(t, strategies, 2)
	assert.Equal(t, "Email__c", strategies[0].(*identification.FullRemote).MatchingField)
	assert.Equal(t, identification.LocalIdentity{Kind: identification.KindMappingTable}, md.LocalIdentity())
}

func TestLoadMetadata_MalformedYAMLAndCUE(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Bad.mapping.yaml"), []byte("entities: [\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Bad.mapping.cue"), []byte("entities: [{\n"), 0o644))

	_, err := New(YAML(), []string{dir}).LoadMetadataForClass("Bad")
	assert.True(t, mapping.IsParseFailure(err))
	assert.Contains(t, err.Error(), "YAML parse failure")

	_, err = New(CUE(), []string{dir}).LoadMetadataForClass("Bad")
	assert.True(t, mapping.IsParseFailure(err))
	assert.Contains(t, err.Error(), "CUE parse failure")
}

func TestAllClassNames_UnionAcrossRoots(t *testing.T) {
	d := NewXMLDriver([]string{testdata("roots", "a"), testdata("roots", "b")})

	names, err := d.AllClassNames()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{customerClass, `Acme\Entity\Order`}, names)
}

func TestAllClassNames_MultipleEntities(t *testing.T) {
	d := NewXMLDriver([]string{testdata("mappings")})

	names, err := d.AllClassNames()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{customerClass, contactClass, `Acme\Legacy\Contact`, `Acme\Entity\Lead`}, names)
}

func TestAllClassNames_InvalidDirectory(t *testing.T) {
	d := NewXMLDriver([]string{testdata("roots", "a"), testdata("does-not-exist")})

	_, err := d.AllClassNames()
	require.Error(t, err)
	assert.True(t, mapping.IsInvalidDefinition(err))
	assert.Contains(t, err.Error(), "invalid directory")

	file := testdata("roots", "b", "README.txt")
	_, err = NewXMLDriver([]string{file}).AllClassNames()
	assert.True(t, mapping.IsInvalidDefinition(err))
}

func TestAllClassNames_MalformedFile(t *testing.T) {
	_, err := NewXMLDriver([]string{testdata("invalid")}).AllClassNames()
	assert.True(t, mapping.IsParseFailure(err))
}

func TestAllClassNames_NoRoots(t *testing.T) {
	names, err := NewXMLDriver(nil).AllClassNames()
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestSetPersistence_Once(t *testing.T) {
	d := NewXMLDriver([]string{testdata("mappings")})

	require.Error(t, d.SetPersistence(nil))
	require.NoError(t, d.SetPersistence(persistence.NewMemory()))
	assert.ErrorIs(t, d.SetPersistence(persistence.NewMemory()), ErrPersistenceAlreadySet)
}

func TestWithPersistence(t *testing.T) {
	pm := persistence.NewMemory()
	d := NewXMLDriver([]string{testdata("mappings")}, WithPersistence(pm))

	md, err := d.LoadMetadataForClass(customerClass)
	require.NoError(t, err)

	strategies := md.Strategies()
	require.Len(t, strategies, 1)
	table, ok := strategies[0].(*identification.MappingTable)
	require.True(t, ok)
	assert.Same(t, pm, table.Persistence, "the handle is injected into strategies that require it")

	assert.ErrorIs(t, d.SetPersistence(persistence.NewMemory()), ErrPersistenceAlreadySet)
}

func TestPaths_Copied(t *testing.T) {
	paths := []string{"a", "b"}
	d := NewXMLDriver(paths)
	paths[0] = "changed"

	got := d.Paths()
	assert.Equal(t, []string{"a", "b"}, got)
	got[1] = "changed"
	assert.Equal(t, []string{"a", "b"}, d.Paths())
}
