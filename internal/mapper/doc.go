// Package mapper converts local entities to Salesforce objects and back.
//
// A Mapper combines three collaborators:
//   - a mapping.Driver that supplies per-class metadata
//   - a persistence.Manager that reads and writes entity properties
//   - a MappingStore holding (class, local id) to Salesforce id links
//
// Identity is resolved through the class's local identity descriptor: the
// first declared identification strategy that keeps identity locally. Classes
// mapped with only a fullRemote strategy have no locally resolvable identity.
package mapper
