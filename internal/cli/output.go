package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/roach88/sfmap/internal/mapping"
	"github.com/roach88/sfmap/internal/store"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // Validation failure (invalid mappings, missing links)
	ExitCommandError = 2 // Command error (bad config, unreadable database, etc.)
)

// Error code constants, unified across all CLI commands.
const (
	ErrCodeGeneric  = "E001" // Generic/unknown error
	ErrCodeConfig   = "E002" // Configuration error
	ErrCodeNoClass  = "E003" // No mapped classes found
	ErrCodeStore    = "E004" // Database error
	ErrCodeNotFound = "E005" // Link or event not found
	ErrCodeInput    = "E006" // Unreadable command input

	ErrCodeMappingNotFound = "E101" // No definition for the class
	ErrCodeParseFailure    = "E102" // Malformed definition file
	ErrCodeInvalidMapping  = "E103" // Semantically invalid definition
	ErrCodeMissingConfig   = "E104" // Strategy collaborator not configured
	ErrCodeInvalidState    = "E105" // Identity could not be resolved
	ErrCodeLinkConflict    = "E110" // Salesforce id linked to another entity
)

// ExitError represents an error with a specific exit code.
// Use this to return errors with meaningful exit codes from CLI commands.
type ExitError struct {
	Code    int    // Exit code (use ExitFailure or ExitCommandError)
	Message string // Error message
	Err     error  // Underlying error (optional)
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// NewExitError creates a new ExitError with the given code and message.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError wraps an existing error with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error.
// Returns ExitFailure (1) if the error is not an ExitError.
func GetExitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// OutputFormatter handles JSON vs text output for CLI commands.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer // Separate writer for verbose/diagnostic output (defaults to Writer)
	Verbose   bool
}

// CLIResponse is the standard JSON response format for CLI output.
type CLIResponse struct {
	Status string    `json:"status"`          // "ok" or "error"
	Data   any       `json:"data,omitempty"`  // success payload
	Error  *CLIError `json:"error,omitempty"` // error details
}

// CLIError is the error structure for CLI responses.
type CLIError struct {
	Code    string `json:"code"`              // "E001", "E101", etc.
	Message string `json:"message"`           // human-readable message
	Class   string `json:"class,omitempty"`   // offending class, for mapping errors
	Details any    `json:"details,omitempty"` // additional context
}

// Success outputs a successful result in the configured format.
func (f *OutputFormatter) Success(data any) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "ok",
			Data:   data,
		})
	}

	fmt.Fprintln(f.Writer, data)
	return nil
}

// Error outputs an error in the configured format.
func (f *OutputFormatter) Error(code, message string, details any) error {
	return f.writeError(&CLIError{Code: code, Message: message, Details: details})
}

func (f *OutputFormatter) writeError(e *CLIError) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "error",
			Error:  e,
		})
	}

	fmt.Fprintf(f.Writer, "Error [%s]: %s\n", e.Code, e.Message)
	if f.Verbose && e.Details != nil {
		fmt.Fprintf(f.Writer, "Details: %v\n", e.Details)
	}
	return nil
}

// VerboseLog outputs a message only if verbose mode is enabled.
// Uses ErrWriter if set, otherwise falls back to Writer.
func (f *OutputFormatter) VerboseLog(format string, args ...any) {
	if !f.Verbose {
		return
	}
	fmt.Fprintf(f.GetErrWriter(), format+"\n", args...)
}

// GetErrWriter returns the appropriate writer for diagnostic output.
// Returns ErrWriter if set, otherwise Writer.
func (f *OutputFormatter) GetErrWriter() io.Writer {
	if f.ErrWriter != nil {
		return f.ErrWriter
	}
	return f.Writer
}

// codeFor maps an error to its CLI error code.
func codeFor(err error) string {
	var me *mapping.MappingError
	if errors.As(err, &me) {
		switch me.Code {
		case mapping.ErrCodeMappingNotFound:
			return ErrCodeMappingNotFound
		case mapping.ErrCodeParseFailure:
			return ErrCodeParseFailure
		case mapping.ErrCodeInvalidDefinition:
			return ErrCodeInvalidMapping
		case mapping.ErrCodeMissingConfiguration:
			return ErrCodeMissingConfig
		case mapping.ErrCodeInvalidState:
			return ErrCodeInvalidState
		}
	}
	if errors.Is(err, store.ErrLinkConflict) {
		return ErrCodeLinkConflict
	}
	return ErrCodeGeneric
}

// cliError describes err for output, attaching the class of mapping errors.
func cliError(code string, err error) *CLIError {
	e := &CLIError{Code: code, Message: err.Error()}
	var me *mapping.MappingError
	if errors.As(err, &me) {
		e.Class = me.ClassName
	}
	return e
}

// fail reports err and returns it as an ExitError. An empty code is derived
// from the error. Mapping errors exit with ExitFailure, everything else with
// ExitCommandError.
func fail(formatter *OutputFormatter, code string, err error) error {
	if code == "" {
		code = codeFor(err)
	}
	_ = formatter.writeError(cliError(code, err))

	exit := ExitCommandError
	var me *mapping.MappingError
	if errors.As(err, &me) {
		exit = ExitFailure
	}
	return WrapExitError(exit, code, err)
}
