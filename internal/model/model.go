package model

import "time"

// KeyEntry represents one stored private-key credential. The name is the
// entry's identity: unique within the store, case-sensitive, and used as the
// address of the persisted blob. Data holds the raw key-file content exactly
// as imported.
type KeyEntry struct {
	ID        int       `json:"id"`
	Name      string    `json:"name"`
	Algorithm string    `json:"algorithm"`
	Data      []byte    `json:"data"`
	CreatedAt time.Time `json:"created_at"`
}

// Clone returns a deep copy of the entry so callers can never alias the
// store's internal buffers.
func (e KeyEntry) Clone() KeyEntry {
	c := e
	if e.Data != nil {
		c.Data = make([]byte, len(e.Data))
		copy(c.Data, e.Data)
	}
	return c
}

// AuditLogEntry represents a single record in the audit trail.
type AuditLogEntry struct {
	ID        int       `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Action    string    `json:"action"`
	Details   string    `json:"details"`
}
