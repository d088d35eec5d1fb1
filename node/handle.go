/*
Copyright 2022-Present Couchbase, Inc.

Use of this software is governed by the Business Source License included in
the file licenses/BSL-Couchbase.txt.  As of the Change Date specified in that
file, in accordance with the Business Source License, use of this software will
be governed by the Apache License, Version 2.0, included in the file
licenses/APL2.txt.
*/

package node

import "sync"

// Owner is the non-owning back-reference a Handle carries to whatever
// bucket attachment claimed it.  Buckets satisfy this by exposing their
// name; the forward edge (attachment -> nodes) remains the single owning
// edge, per the cyclic-ownership design note.
type Owner interface {
	BucketName() string
}

// Connection is the live resource a ClusterNodeFactory attaches to a
// Handle.  It is opaque to the core beyond being something that must be
// released on dispose.
type Connection interface {
	Close() error
}

// Handle is the in-process representation of one server node.
//
// Invariants: an unassigned handle has Owner() == nil.  A KV-bucket-owning
// node has Owner() returning that bucket.  A handle may be reassigned at
// most once, from unassigned to owned; once owned it is never reassigned
// to a different owner (Memcached-type handles are the one exception,
// since they permit shared ownership by endpoint -- see topology package).
type Handle struct {
	Endpoint     Endpoint
	BucketType   BucketType
	Conn         Connection

	mu           sync.Mutex
	capabilities Capabilities
	adapter      *Adapter
	owner        Owner
	disposed     bool
}

// NewHandle constructs an unassigned, connected handle.
func NewHandle(ep Endpoint, bt BucketType, conn Connection) *Handle {
	return &Handle{
		Endpoint:   ep,
		BucketType: bt,
		Conn:       conn,
	}
}

// Capabilities returns the handle's current capability set.
func (h *Handle) Capabilities() Capabilities {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.capabilities
}

// SetCapabilities replaces the handle's capability set wholesale, as
// happens when a handshake completes or a config refresh occurs.
func (h *Handle) SetCapabilities(c Capabilities) {
	h.mu.Lock()
	h.capabilities = c
	h.mu.Unlock()
}

// Adapter returns the cluster-map slice currently describing this node.
func (h *Handle) Adapter() *Adapter {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.adapter
}

// SetAdapter replaces the cluster-map slice describing this node.
func (h *Handle) SetAdapter(a *Adapter) {
	h.mu.Lock()
	h.adapter = a
	h.mu.Unlock()
}

// Owner returns the bucket attachment that owns this node, or nil if the
// node is unassigned.
func (h *Handle) Owner() Owner {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.owner
}

// Assign sets the owner of an unassigned node.  It returns false if the
// node is already owned by a different owner, enforcing the at-most-once
// reassignment invariant for non-Memcached nodes.  Memcached nodes permit
// re-assignment to a different owner, since they may be aliased across
// buckets by endpoint.
func (h *Handle) Assign(owner Owner) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.owner != nil && h.BucketType != BucketTypeMemcached {
		return h.owner == owner
	}

	h.owner = owner
	return true
}

// Dispose releases the handle's connection exactly once.  It is safe to
// call concurrently and safe to call more than once; only the first call
// does any work and returns true.
func (h *Handle) Dispose() bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.disposed {
		return false
	}
	h.disposed = true

	if h.Conn != nil {
		_ = h.Conn.Close()
	}

	return true
}

// IsDisposed reports whether Dispose has already run for this handle.
func (h *Handle) IsDisposed() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.disposed
}
