package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const customer = `Acme\Entity\Customer`

func TestLinkLookupUnlink(t *testing.T) {
	db := tempDB(t)

	out, err := executeWithDB(t, db, "link", customer, "42", "001A")
	require.NoError(t, err)
	assert.Equal(t, "Linked Acme\\Entity\\Customer(42) to 001A\n", out)

	out, err = executeWithDB(t, db, "lookup", customer, "--local", "42")
	require.NoError(t, err)
	assert.Equal(t, "42\t001A\n", out)

	out, err = executeWithDB(t, db, "lookup", customer, "--remote", "001A")
	require.NoError(t, err)
	assert.Equal(t, "42\t001A\n", out)

	out, err = executeWithDB(t, db, "unlink", customer, "42")
	require.NoError(t, err)
	assert.Equal(t, "Unlinked Acme\\Entity\\Customer(42)\n", out)

	out, err = executeWithDB(t, db, "lookup", customer, "--local", "42")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, ErrCodeNotFound)
	assert.Contains(t, out, "is not linked")
}

func TestLinkReplacesRemoteID(t *testing.T) {
	db := tempDB(t)

	_, err := executeWithDB(t, db, "link", customer, "42", "001A")
	require.NoError(t, err)
	_, err = executeWithDB(t, db, "link", customer, "42", "001B")
	require.NoError(t, err)

	out, err := executeWithDB(t, db, "--format", "json", "lookup", customer)
	require.NoError(t, err)

	resp := decodeResponse(t, out)
	require.Equal(t, "ok", resp.Status)
	assert.Equal(t, []any{map[string]any{
		"entity_type":   customer,
		"entity_id":     "42",
		"salesforce_id": "001B",
	}}, resp.Data)
}

func TestLinkConflict(t *testing.T) {
	db := tempDB(t)

	_, err := executeWithDB(t, db, "link", customer, "42", "001A")
	require.NoError(t, err)

	out, err := executeWithDB(t, db, "link", customer, "43", "001A")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, ErrCodeLinkConflict)
}

func TestLinkRequiresMappingTable(t *testing.T) {
	out, err := executeWithDB(t, tempDB(t), "link", `Acme\Entity\Contact`, "7", "003A")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, ErrCodeInvalidState)
	assert.Contains(t, out, "property(salesforceId)")

	out, err = executeWithDB(t, tempDB(t), "link", `Acme\Entity\Unknown`, "7", "003A")
	require.Error(t, err)
	assert.Contains(t, out, ErrCodeMappingNotFound)
}

func TestUnlinkMissing(t *testing.T) {
	out, err := executeWithDB(t, tempDB(t), "unlink", customer, "42")
	require.Error(t, err)
	assert.Contains(t, out, ErrCodeNotFound)
}

func TestLookupEmpty(t *testing.T) {
	out, err := executeWithDB(t, tempDB(t), "lookup", customer)
	require.NoError(t, err)
	assert.Equal(t, "No links for Acme\\Entity\\Customer\n", out)

	out, err = executeWithDB(t, tempDB(t), "lookup", customer, "--remote", "001Z")
	require.Error(t, err)
	assert.Contains(t, out, "no Acme\\Entity\\Customer is linked to 001Z")
}

func TestLookupFlagsExclusive(t *testing.T) {
	_, err := executeWithDB(t, tempDB(t), "lookup", customer, "--local", "1", "--remote", "2")
	require.Error(t, err)
}

func TestStoreOpenFailure(t *testing.T) {
	out, err := executeWithDB(t, "/nonexistent/dir/sfmap.db", "lookup", customer)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, ErrCodeStore)
}
