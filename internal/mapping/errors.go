package mapping

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorCode categorizes mapping errors.
type ErrorCode string

const (
	// ErrCodeMappingNotFound indicates no definition resolves for a class.
	ErrCodeMappingNotFound ErrorCode = "MAPPING_NOT_FOUND"

	// ErrCodeParseFailure indicates a definition file could not be decoded.
	ErrCodeParseFailure ErrorCode = "PARSE_FAILURE"

	// ErrCodeInvalidDefinition indicates a semantically invalid definition.
	ErrCodeInvalidDefinition ErrorCode = "INVALID_MAPPING_DEFINITION"

	// ErrCodeMissingConfiguration indicates a strategy needs a collaborator
	// the driver was never given.
	ErrCodeMissingConfiguration ErrorCode = "MISSING_DRIVER_CONFIGURATION"

	// ErrCodeInvalidState indicates a runtime invariant violation, such as an
	// update without a resolvable remote identifier.
	ErrCodeInvalidState ErrorCode = "INVALID_MAPPING_STATE"
)

// MappingError is returned by drivers and the mapper.
// Every error names the offending class and a human-readable cause.
type MappingError struct {
	// Code identifies the error category.
	Code ErrorCode

	// ClassName is the local class the error relates to ("all" for scans).
	ClassName string

	// Message is a human-readable description.
	Message string

	// Missing lists absent collaborators for ErrCodeMissingConfiguration.
	Missing []string

	// Err is the underlying cause, if any.
	Err error
}

// Error implements the error interface.
func (e *MappingError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *MappingError) Unwrap() error {
	return e.Err
}

// NewMappingNotFound reports that no definition resolves for className.
func NewMappingNotFound(className string) *MappingError {
	return &MappingError{
		Code:      ErrCodeMappingNotFound,
		ClassName: className,
		Message:   fmt.Sprintf("Could not find a mapping for class '%s'", className),
	}
}

// NewParseFailure reports a malformed definition file. format labels the
// decoder, e.g. "XML".
func NewParseFailure(className, format, file string, err error) *MappingError {
	return &MappingError{
		Code:      ErrCodeParseFailure,
		ClassName: className,
		Message:   fmt.Sprintf("%s parse failure in %s", format, file),
		Err:       err,
	}
}

// NewInvalidDefinition reports a semantically invalid definition.
func NewInvalidDefinition(className, reason string) *MappingError {
	return &MappingError{
		Code:      ErrCodeInvalidDefinition,
		ClassName: className,
		Message:   fmt.Sprintf("Invalid mapping definition for class %s: %s", className, reason),
	}
}

// NewMissingConfiguration reports collaborators required by className's
// definition that the driver was not configured with.
func NewMissingConfiguration(className string, missing ...string) *MappingError {
	return &MappingError{
		Code:      ErrCodeMissingConfiguration,
		ClassName: className,
		Message:   fmt.Sprintf("The following configurations are missing for class %s: %s", className, strings.Join(missing, ", ")),
		Missing:   missing,
	}
}

// NewInvalidState reports a runtime invariant violation for className.
func NewInvalidState(className, reason string) *MappingError {
	return &MappingError{
		Code:      ErrCodeInvalidState,
		ClassName: className,
		Message:   fmt.Sprintf("Invalid mapping state for class %s: %s", className, reason),
	}
}

// HasCode reports whether err is a MappingError with the given code.
// Uses errors.As to handle wrapped errors.
func HasCode(err error, code ErrorCode) bool {
	var me *MappingError
	if errors.As(err, &me) {
		return me.Code == code
	}
	return false
}

// IsMappingNotFound returns true for ErrCodeMappingNotFound errors.
func IsMappingNotFound(err error) bool { return HasCode(err, ErrCodeMappingNotFound) }

// IsParseFailure returns true for ErrCodeParseFailure errors.
func IsParseFailure(err error) bool { return HasCode(err, ErrCodeParseFailure) }

// IsInvalidDefinition returns true for ErrCodeInvalidDefinition errors.
func IsInvalidDefinition(err error) bool { return HasCode(err, ErrCodeInvalidDefinition) }

// IsMissingConfiguration returns true for ErrCodeMissingConfiguration errors.
func IsMissingConfiguration(err error) bool { return HasCode(err, ErrCodeMissingConfiguration) }

// IsInvalidState returns true for ErrCodeInvalidState errors.
func IsInvalidState(err error) bool { return HasCode(err, ErrCodeInvalidState) }
