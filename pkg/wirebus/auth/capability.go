// Package auth provides capability-token gating for bus access.
//
// The bus core carries no authentication; this package is the collaborator
// that wraps it. Tokens are HMAC-SHA256 signed (JWT HS256) and carry a
// capability bitmask; a Guard checks the relevant capability before letting a
// caller publish or receive. An optional SQLite-backed TokenStore adds
// revocation on top of the stateless signature check.
package auth

import "strings"

// Capability is a single grantable permission, stored as a bit flag.
type Capability uint32

const (
	// CapPublish allows publishing events to the bus.
	CapPublish Capability = 1 << iota

	// CapSubscribe allows receiving events from the bus.
	CapSubscribe

	// CapAdmin allows issuing and revoking tokens.
	CapAdmin
)

// String returns the capability name.
func (c Capability) String() string {
	switch c {
	case CapPublish:
		return "publish"
	case CapSubscribe:
		return "subscribe"
	case CapAdmin:
		return "admin"
	default:
		return "unknown"
	}
}

// CapabilitySet is a bitmask of capabilities.
type CapabilitySet uint32

// NewCapabilitySet combines capabilities into a set.
func NewCapabilitySet(caps ...Capability) CapabilitySet {
	var s CapabilitySet
	for _, c := range caps {
		s |= CapabilitySet(c)
	}
	return s
}

// Has reports whether the set contains c.
func (s CapabilitySet) Has(c Capability) bool {
	return s&CapabilitySet(c) != 0
}

// Add returns the set with c added.
func (s CapabilitySet) Add(c Capability) CapabilitySet {
	return s | CapabilitySet(c)
}

// String returns a comma-separated list of capability names.
func (s CapabilitySet) String() string {
	var names []string
	for _, c := range []Capability{CapPublish, CapSubscribe, CapAdmin} {
		if s.Has(c) {
			names = append(names, c.String())
		}
	}
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, ",")
}
