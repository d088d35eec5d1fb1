/*
Copyright 2022-Present Couchbase, Inc.

Use of this software is governed by the Business Source License included in
the file licenses/BSL-Couchbase.txt.  As of the Change Date specified in that
file, in accordance with the Business Source License, use of this software will
be governed by the Apache License, Version 2.0, included in the file
licenses/APL2.txt.
*/

// Package bucket implements per-bucket attachment state: the bootstrap
// handshake against a seed node, the hot reconciliation path for
// subsequent cluster-map updates, and detach/dispose.
package bucket

import (
	"sync"

	"go.uber.org/zap"

	"github.com/couchbase/gocbclustercore/node"
	"github.com/couchbase/gocbclustercore/registry"
	"github.com/couchbase/gocbclustercore/topology"
)

// Factory creates a new, unattached Attachment for a bucket name and
// type.  ClusterCore calls this at most once per successful bootstrap for
// a given bucket name.
type Factory interface {
	Create(name string, bt node.BucketType) *Attachment
}

// DefaultFactory is the straightforward Factory: it just calls New.
type DefaultFactory struct {
	Registry   *registry.Registry
	NodeFactory node.ClusterNodeFactory
	Logger     *zap.Logger
}

func (f *DefaultFactory) Create(name string, bt node.BucketType) *Attachment {
	return New(name, bt, f.Registry, f.NodeFactory, f.Logger)
}

// Attachment is the per-bucket attachment state: name, type, the ordered
// view of nodes assigned to it, whether it has successfully bootstrapped,
// and the latest applied config revision.
type Attachment struct {
	name string
	bt   node.BucketType

	logger      *zap.Logger
	reconciler  *topology.Reconciler

	mu          sync.RWMutex
	nodes       []*node.Handle
	byEndpoint  map[node.Endpoint]*node.Handle
	bootstrapped bool
	revEpoch    uint64
	rev         uint64
}

// New constructs an attachment that has not yet bootstrapped.
func New(name string, bt node.BucketType, reg *registry.Registry, factory node.ClusterNodeFactory, logger *zap.Logger) *Attachment {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Attachment{
		name:       name,
		bt:         bt,
		logger:     logger.Named("bucket").With(zap.String("bucket", name)),
		reconciler: topology.NewReconciler(reg, factory, logger),
		byEndpoint: make(map[node.Endpoint]*node.Handle),
	}
}

// Name returns the bucket name.
func (a *Attachment) Name() string { return a.name }

// BucketName satisfies node.Owner and topology.View.
func (a *Attachment) BucketName() string { return a.name }

// BucketType returns the bucket's type.
func (a *Attachment) BucketType() node.BucketType { return a.bt }

// Bootstrapped reports whether the attachment has completed at least one
// successful attach.
func (a *Attachment) Bootstrapped() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.bootstrapped
}

// Nodes returns a stable snapshot of the bucket's current node view.
func (a *Attachment) Nodes() []*node.Handle {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]*node.Handle, len(a.nodes))
	copy(out, a.nodes)
	return out
}

// Contains reports whether the view currently includes a node at ep.
func (a *Attachment) Contains(ep node.Endpoint) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	_, ok := a.byEndpoint[ep]
	return ok
}

// AddNode adds h to the view, replacing any existing entry at the same
// endpoint.
func (a *Attachment) AddNode(h *node.Handle) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if _, exists := a.byEndpoint[h.Endpoint]; exists {
		for i, n := range a.nodes {
			if n.Endpoint == h.Endpoint {
				a.nodes[i] = h
				break
			}
		}
	} else {
		a.nodes = append(a.nodes, h)
	}
	a.byEndpoint[h.Endpoint] = h
}

// RemoveNode drops the node at ep from the view, if present.
func (a *Attachment) RemoveNode(ep node.Endpoint) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if _, exists := a.byEndpoint[ep]; !exists {
		return
	}
	delete(a.byEndpoint, ep)

	for i, h := range a.nodes {
		if h.Endpoint == ep {
			a.nodes = append(a.nodes[:i], a.nodes[i+1:]...)
			break
		}
	}
}

// revision returns the last applied (RevEpoch, Rev) pair.
func (a *Attachment) revision() (uint64, uint64) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.revEpoch, a.rev
}

func (a *Attachment) setRevision(epoch, rev uint64) {
	a.mu.Lock()
	a.revEpoch = epoch
	a.rev = rev
	a.mu.Unlock()
}

func (a *Attachment) markBootstrapped() {
	a.mu.Lock()
	a.bootstrapped = true
	a.mu.Unlock()
}
