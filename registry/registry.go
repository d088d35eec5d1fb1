/*
Copyright 2022-Present Couchbase, Inc.

Use of this software is governed by the Business Source License included in
the file licenses/BSL-Couchbase.txt.  As of the Change Date specified in that
file, in accordance with the Business Source License, use of this software will
be governed by the Apache License, Version 2.0, included in the file
licenses/APL2.txt.
*/

// Package registry implements the thread-safe collection of live node
// handles the rest of the core operates over, keyed by endpoint.
package registry

import (
	"math/rand"
	"sync"

	"go.uber.org/zap"

	"github.com/couchbase/gocbclustercore/node"
)

// Registry is a concurrent-safe mapping from Endpoint to Handle, guarded
// by a single RWMutex covering the whole map (the map is small -- tens of
// nodes at most).  Readers run concurrently with each other but wait while
// a writer holds the lock; a writer excludes readers and every other
// writer, whatever key it touches.
type Registry struct {
	logger *zap.Logger

	mu    sync.RWMutex
	nodes map[node.Endpoint]*node.Handle
}

// New constructs an empty registry.
func New(logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		logger: logger.Named("registry"),
		nodes:  make(map[node.Endpoint]*node.Handle),
	}
}

// Add inserts a handle, keyed by its endpoint.  It returns false without
// modifying the registry if an entry already exists for that endpoint.
func (r *Registry) Add(h *node.Handle) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.nodes[h.Endpoint]; exists {
		return false
	}

	r.nodes[h.Endpoint] = h
	r.logger.Debug("added node", zap.Stringer("endpoint", h.Endpoint))
	return true
}

// Remove deletes the endpoint's entry, if any, and returns it.
func (r *Registry) Remove(ep node.Endpoint) (*node.Handle, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	h, exists := r.nodes[ep]
	if !exists {
		return nil, false
	}

	delete(r.nodes, ep)
	r.logger.Debug("removed node", zap.Stringer("endpoint", ep))
	return h, true
}

// TryGet returns the handle for an endpoint, if present.
func (r *Registry) TryGet(ep node.Endpoint) (*node.Handle, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	h, exists := r.nodes[ep]
	return h, exists
}

// ClearAll removes every node from the registry and returns the removed
// handles.  It does not dispose them; the caller owns disposal.
func (r *Registry) ClearAll() []*node.Handle {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]*node.Handle, 0, len(r.nodes))
	for ep, h := range r.nodes {
		out = append(out, h)
		delete(r.nodes, ep)
	}
	return out
}

// ClearFor removes every node owned by the named bucket and returns the
// removed handles.
func (r *Registry) ClearFor(bucket string) []*node.Handle {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*node.Handle
	for ep, h := range r.nodes {
		owner := h.Owner()
		if owner != nil && owner.BucketName() == bucket {
			out = append(out, h)
			delete(r.nodes, ep)
		}
	}
	return out
}

// Snapshot returns a stable point-in-time slice of every handle currently
// registered.  Subsequent concurrent Add/Remove calls never mutate the
// returned slice.
func (r *Registry) Snapshot() []*node.Handle {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*node.Handle, 0, len(r.nodes))
	for _, h := range r.nodes {
		out = append(out, h)
	}
	return out
}

// FindFirst returns the first handle satisfying pred, in the stable
// iteration order of a single Snapshot.
func (r *Registry) FindFirst(pred func(*node.Handle) bool) (*node.Handle, bool) {
	for _, h := range r.Snapshot() {
		if pred(h) {
			return h, true
		}
	}
	return nil, false
}

// Random returns a uniformly-selected handle among those satisfying pred
// at snapshot time.  Selection runs over a Snapshot without holding the
// registry lock, and Random does not pin the handle it returns: a
// concurrent Remove followed by Dispose can dispose it before or after it
// is returned.
func (r *Registry) Random(pred func(*node.Handle) bool) (*node.Handle, bool) {
	all := r.Snapshot()

	var matches []*node.Handle
	for _, h := range all {
		if pred(h) {
			matches = append(matches, h)
		}
	}

	if len(matches) == 0 {
		return nil, false
	}

	return matches[rand.Intn(len(matches))], true
}

// FirstUnassigned returns an unassigned handle already registered at the
// given endpoint and bucket type, if one exists.
func (r *Registry) FirstUnassigned(ep node.Endpoint, bt node.BucketType) (*node.Handle, bool) {
	h, exists := r.TryGet(ep)
	if !exists {
		return nil, false
	}

	if h.BucketType != bt {
		return nil, false
	}

	if h.Owner() != nil {
		return nil, false
	}

	return h, true
}

// Len returns the number of registered nodes.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.nodes)
}
