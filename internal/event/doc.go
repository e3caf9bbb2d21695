// Package event defines SyncEvent, the unit of work describing one pending
// create, update or delete against Salesforce.
//
// A SyncEvent pairs the remote payload (object type plus an sobject.Object)
// with the local reference it was produced from (class name plus local id).
// Events are content-addressed: Hash covers the canonical JSON encoding of
// the whole event with a versioned domain prefix, so the same logical change
// always hashes the same regardless of field insertion order.
package event
