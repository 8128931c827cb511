package peer

import (
	"time"

	otp "github.com/burgrp-go/otp/pkg"
)

// ConsumerPeer is how a producer remembers a consumer it has exchanged
// advertisement traffic with: which module identifiers that consumer
// currently declares support for (and when each was last refreshed, so
// stale identifiers can be purged after 30s per ANSI E1.59 §4.2), and the
// last time any advertisement was received from it.
type ConsumerPeer struct {
	Record

	ModuleSeenAt     map[otp.ModuleIdentifier]time.Time
	LastAdvertisedAt time.Time
}

// NewConsumerPeer constructs an Offline consumer peer record.
func NewConsumerPeer(cid otp.CID, name string) *ConsumerPeer {
	return &ConsumerPeer{
		Record:       newRecord(cid, name),
		ModuleSeenAt: map[otp.ModuleIdentifier]time.Time{},
	}
}

// RequestedModules returns the set of module identifiers this consumer
// has declared support for within maxAge (ANSI E1.59 §4.2: "refreshed from
// module-advertisement receipts within the last 30 s").
func (c *ConsumerPeer) RequestedModules(now time.Time, maxAge time.Duration) map[otp.ModuleIdentifier]bool {
	out := map[otp.ModuleIdentifier]bool{}
	for id, seenAt := range c.ModuleSeenAt {
		if now.Sub(seenAt) <= maxAge {
			out[id] = true
		}
	}
	return out
}

// PurgeStaleModules drops module identifiers unseen for more than maxAge.
func (c *ConsumerPeer) PurgeStaleModules(now time.Time, maxAge time.Duration) {
	for id, seenAt := range c.ModuleSeenAt {
		if now.Sub(seenAt) > maxAge {
			delete(c.ModuleSeenAt, id)
		}
	}
}
