// Package store provides SQLite-backed storage for the side mapping table and
// the sync event outbox.
//
// salesforce_mappings links (entity type, entity id) to a Salesforce id. It
// implements mapper.MappingStore for classes mapped with the mappingTable
// identification strategy. A local entity has at most one Salesforce id and a
// Salesforce id belongs to at most one entity of a class.
//
// sync_events is an append-only outbox of SyncEvents awaiting dispatch:
//   - seq is the logical append order; reads are ORDER BY seq ASC
//   - id is a UUIDv7 from an injectable generator
//   - event_hash is the content hash of the event; a pending event with the
//     same hash is never recorded twice
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
