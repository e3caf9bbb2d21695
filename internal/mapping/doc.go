// Package mapping holds the in-memory metadata model of a mapped class and
// the error taxonomy shared by drivers and the mapper.
//
// This package contains no I/O. Drivers (internal/driver) build
// ClassMetadata from definition files; the mapper (internal/mapper) consumes
// it through the Driver interface.
//
// Errors are *MappingError values carrying one of five codes:
//   - MAPPING_NOT_FOUND: no definition resolves for the class
//   - PARSE_FAILURE: the definition file is malformed
//   - INVALID_MAPPING_DEFINITION: the definition is semantically invalid
//   - MISSING_DRIVER_CONFIGURATION: a strategy needs an unconfigured collaborator
//   - INVALID_MAPPING_STATE: a runtime invariant does not hold
package mapping
