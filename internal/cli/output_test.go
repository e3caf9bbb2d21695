package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/sfmap/internal/mapping"
	"github.com/roach88/sfmap/internal/store"
)

func TestOutputFormatter_JSONSuccess(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "json", Writer: buf}

	require.NoError(t, formatter.Success(map[string]string{"result": "success"}))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.NotNil(t, resp.Data)
	assert.Nil(t, resp.Error)
}

func TestOutputFormatter_JSONError(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "json", Writer: buf}

	require.NoError(t, formatter.Error(ErrCodeStore, "database is locked", map[string]string{"path": "x.db"}))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "E004", resp.Error.Code)
	assert.Equal(t, "database is locked", resp.Error.Message)
	assert.NotNil(t, resp.Error.Details)
}

func TestOutputFormatter_Text(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "text", Writer: buf}

	require.NoError(t, formatter.Success("linked"))
	require.NoError(t, formatter.Error(ErrCodeGeneric, "boom", "hidden unless verbose"))

	assert.Equal(t, "linked\nError [E001]: boom\n", buf.String())
}

func TestOutputFormatter_TextErrorVerbose(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "text", Writer: buf, Verbose: true}

	require.NoError(t, formatter.Error(ErrCodeGeneric, "boom", "context"))
	assert.Contains(t, buf.String(), "Details: context")
}

func TestOutputFormatter_VerboseLog(t *testing.T) {
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}

	quiet := &OutputFormatter{Format: "json", Writer: out, ErrWriter: errOut}
	quiet.VerboseLog("hidden %d", 1)
	assert.Empty(t, errOut.String())

	loud := &OutputFormatter{Format: "json", Writer: out, ErrWriter: errOut, Verbose: true}
	loud.VerboseLog("shown %d", 2)
	assert.Equal(t, "shown 2\n", errOut.String())
	assert.Empty(t, out.String(), "verbose logs never corrupt JSON output")

	fallback := &OutputFormatter{Writer: out, Verbose: true}
	assert.Same(t, out, fallback.GetErrWriter())
}

func TestExitError(t *testing.T) {
	inner := errors.New("inner")
	err := WrapExitError(ExitCommandError, "E002", inner)

	assert.Equal(t, "E002: inner", err.Error())
	assert.ErrorIs(t, err, inner)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Equal(t, ExitCommandError, GetExitCode(fmt.Errorf("wrapped: %w", err)))
	assert.Equal(t, ExitFailure, GetExitCode(errors.New("plain")))
	assert.Equal(t, "bare", NewExitError(ExitFailure, "bare").Error())
}

func TestCodeFor(t *testing.T) {
	tests := map[string]error{
		ErrCodeMappingNotFound: mapping.NewMappingNotFound("C"),
		ErrCodeParseFailure:    mapping.NewParseFailure("C", "XML", "C.mapping.xml", errors.New("EOF")),
		ErrCodeInvalidMapping:  mapping.NewInvalidDefinition("C", "bad"),
		ErrCodeMissingConfig:   mapping.NewMissingConfiguration("C", "Persistence"),
		ErrCodeInvalidState:    mapping.NewInvalidState("C", "no id"),
		ErrCodeLinkConflict:    fmt.Errorf("link: %w", store.ErrLinkConflict),
		ErrCodeGeneric:         errors.New("other"),
	}
	for want, err := range tests {
		assert.Equal(t, want, codeFor(err), err.Error())
	}
}

func TestFail(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "json", Writer: buf}

	err := fail(formatter, "", mapping.NewMappingNotFound(`Acme\Entity\Customer`))
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.True(t, mapping.IsMappingNotFound(err))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeMappingNotFound, resp.Error.Code)
	assert.Equal(t, `Acme\Entity\Customer`, resp.Error.Class)

	buf.Reset()
	err = fail(formatter, ErrCodeStore, errors.New("disk full"))
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, buf.String(), "E004")
}
