package event

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/roach88/sfmap/internal/sobject"
)

// DomainSyncEvent is the hash domain for sync events.
// The version suffix allows the encoding to change without colliding with
// hashes of earlier events.
const DomainSyncEvent = "sfmap/sync-event/v1"

// Remote is the Salesforce side of an event.
type Remote struct {
	Type   string          `json:"type"`
	Object *sobject.Object `json:"object"`
}

// Local identifies the entity an event was produced from.
// ID is empty for entities that were never persisted.
type Local struct {
	ID   string `json:"id"`
	Type string `json:"type"`
}

// SyncEvent is one pending change against Salesforce.
type SyncEvent struct {
	Remote Remote `json:"salesforce"`
	Local  Local  `json:"entity"`
	Action Action `json:"action"`
}

// New builds a SyncEvent. The remote object is copied so later changes to
// obj do not leak into the event.
func New(remoteType string, obj *sobject.Object, local Local, action Action) SyncEvent {
	if obj == nil {
		obj = sobject.New()
	}
	return SyncEvent{
		Remote: Remote{Type: remoteType, Object: obj.Clone()},
		Local:  local,
		Action: action,
	}
}

func (e SyncEvent) canonicalMap() map[string]any {
	return map[string]any{
		"action": string(e.Action),
		"entity": map[string]any{
			"id":   e.Local.ID,
			"type": e.Local.Type,
		},
		"salesforce": map[string]any{
			"object": e.Remote.Object,
			"type":   e.Remote.Type,
		},
	}
}

// Canonical returns the canonical JSON encoding of the event.
func (e SyncEvent) Canonical() ([]byte, error) {
	data, err := sobject.MarshalCanonical(e.canonicalMap())
	if err != nil {
		return nil, fmt.Errorf("canonical sync event: %w", err)
	}
	return data, nil
}

// Hash returns the content hash of the event, hex encoded.
func (e SyncEvent) Hash() (string, error) {
	data, err := e.Canonical()
	if err != nil {
		return "", err
	}
	return hashWithDomain(DomainSyncEvent, data), nil
}

// hashWithDomain computes SHA256(domain + 0x00 + data).
// The null separator keeps the domain and data boundary unambiguous.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}
