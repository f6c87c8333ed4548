package models

import (
	"time"
)

// Tab is one named content unit within a paste. Content is opaque to the
// server: when the parent paste is encrypted it holds ciphertext produced
// client-side, and the server never inspects it either way.
type Tab struct {
	Name    string `json:"name" bson:"name"`
	Lang    string `json:"lang" bson:"lang"`
	Content string `json:"content" bson:"content"`
}

// Paste is a container of one or more tabs sharing a single expiration and
// encryption policy.
type Paste struct {
	ID         string     `json:"id" bson:"_id"`
	CreatedAt  time.Time  `json:"created_at" bson:"created_at"`
	TTLSeconds int64      `json:"ttl_seconds" bson:"ttl_seconds"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty" bson:"expires_at,omitempty"`
	Encrypted  bool       `json:"encrypted" bson:"encrypted"`
	Views      int64      `json:"views" bson:"views"`
	Tabs       []Tab      `json:"tabs" bson:"tabs"`
}

// ExpiryTime returns the absolute instant at which a paste created at
// createdAt with the given TTL dies, or nil when ttlSeconds is 0 (never
// expires). Backends with native TTL store this value alongside the record.
func ExpiryTime(createdAt time.Time, ttlSeconds int64) *time.Time {
	if ttlSeconds == 0 {
		return nil
	}
	t := createdAt.Add(time.Duration(ttlSeconds) * time.Second)
	return &t
}

// IsLive reports whether a paste created at createdAt with the given TTL is
// still alive at now. A TTL of 0 means the paste never expires. Callers must
// pass a single now per logical check so two clock reads cannot disagree.
func IsLive(createdAt time.Time, ttlSeconds int64, now time.Time) bool {
	if ttlSeconds == 0 {
		return true
	}
	return createdAt.Add(time.Duration(ttlSeconds) * time.Second).After(now)
}

// IsLive reports whether the paste is still alive at now.
func (p *Paste) IsLive(now time.Time) bool {
	return IsLive(p.CreatedAt, p.TTLSeconds, now)
}

// Clone returns a deep copy of the paste. Stores hand out clones so callers
// never alias backend-owned state.
func (p *Paste) Clone() *Paste {
	if p == nil {
		return nil
	}
	cp := *p
	if p.ExpiresAt != nil {
		t := *p.ExpiresAt
		cp.ExpiresAt = &t
	}
	cp.Tabs = make([]Tab, len(p.Tabs))
	copy(cp.Tabs, p.Tabs)
	return &cp
}
