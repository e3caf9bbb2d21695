package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateAllClasses(t *testing.T) {
	out, err := execute(t, "-m", testMappings, "validate")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ All mappings valid (3 classes)")
}

func TestValidateWithSchema(t *testing.T) {
	out, err := execute(t, "-m", testMappings, "--schema", testSchema, "validate")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ All mappings valid")
}

func TestValidateSchemaMissingField(t *testing.T) {
	out, err := execute(t, "-m", testMappings, "--schema", "testdata/schema_missing_field.yaml", "validate")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	assert.Contains(t, out, "Customer [E103]")
	assert.Contains(t, out, "Field 'phone' does not exist")
	assert.Contains(t, out, "Contact [E103]")
	assert.Contains(t, out, "Field 'salesforceId' does not exist")
	assert.NotContains(t, out, "Lead [")
	assert.Contains(t, out, "✗ Validation failed")
}

func TestValidateInvalidStrategy(t *testing.T) {
	out, err := execute(t, "--format", "json", "-m", testInvalid, "validate")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	resp := decodeResponse(t, out)
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeInvalidMapping, resp.Error.Code)

	details := resp.Error.Details.(map[string]any)
	assert.Equal(t, false, details["valid"])
	checks := details["checks"].([]any)
	require.Len(t, checks, 1)
	check := checks[0].(map[string]any)
	assert.Equal(t, `Acme\Entity\Broken`, check["class"])
	assert.Contains(t, check["message"], "Invalid identification strategy")
}

func TestValidateNamedClasses(t *testing.T) {
	out, err := execute(t, "-m", testMappings, "validate", `Acme\Entity\Lead`, `Acme\Entity\Missing`)
	require.Error(t, err)
	assert.Contains(t, out, "Missing [E101]")
	assert.NotContains(t, out, "Lead [")
}

func TestValidateEmptyRoot(t *testing.T) {
	_, err := execute(t, "-m", t.TempDir(), "validate")
	require.Error(t, err)
	assert.Contains(t, err.Error(), ErrCodeNoClass)
}
