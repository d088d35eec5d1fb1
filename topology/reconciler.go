/*
Copyright 2022-Present Couchbase, Inc.

Use of this software is governed by the Business Source License included in
the file licenses/BSL-Couchbase.txt.  As of the Change Date specified in that
file, in accordance with the Business Source License, use of this software will
be governed by the Apache License, Version 2.0, included in the file
licenses/APL2.txt.
*/

package topology

import (
	"context"

	"go.uber.org/zap"

	"github.com/couchbase/gocbclustercore/node"
	"github.com/couchbase/gocbclustercore/registry"
)

// View is the per-bucket node view a Reconciler reshapes.  BucketAttachment
// implements this; the reconciler depends only on this narrow interface
// so that topology never needs to import bucket.
type View interface {
	node.Owner // BucketName() string

	BucketType() node.BucketType
	Contains(ep node.Endpoint) bool
	AddNode(h *node.Handle)
	RemoveNode(ep node.Endpoint)
	Nodes() []*node.Handle
}

// Reconciler computes diffs between the registry's current node set and
// an incoming BucketConfig, and applies additions/removals to both the
// registry and the bucket's view.
type Reconciler struct {
	logger  *zap.Logger
	reg     *registry.Registry
	factory node.ClusterNodeFactory
}

// NewReconciler constructs a Reconciler bound to a registry and node
// factory.
func NewReconciler(reg *registry.Registry, factory node.ClusterNodeFactory, logger *zap.Logger) *Reconciler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reconciler{
		logger:  logger.Named("topology"),
		reg:     reg,
		factory: factory,
	}
}

// Apply reshapes the registry and view to match cfg.  Failures to
// reconcile a single node are logged and do not abort the rest of the
// application; the node is simply absent from the resulting view.
func (r *Reconciler) Apply(ctx context.Context, view View, cfg *BucketConfig) {
	kvKey := kvPortKey(cfg.EnableTLS)
	hostSet := make(map[string]struct{}, len(cfg.Nodes))

	for _, nc := range cfg.Nodes {
		ep := nc.Adapter.ResolveEndpoint(cfg.NetworkType, kvKey, cfg.EnableTLS)
		hostSet[ep.Host] = struct{}{}

		r.applyOne(ctx, view, ep, nc)
	}

	r.prune(view, hostSet)
}

func (r *Reconciler) applyOne(ctx context.Context, view View, ep node.Endpoint, nc *NodeConfig) {
	existing, exists := r.reg.TryGet(ep)

	if !exists {
		r.addFresh(ctx, view, ep, nc)
		return
	}

	owner := existing.Owner()
	isMemcached := view.BucketType() == node.BucketTypeMemcached

	switch {
	case owner == nil && !isMemcached:
		if nc.Capabilities.KV {
			if err := existing.SelectBucket(ctx, view.BucketName()); err != nil {
				r.logger.Warn("select_bucket failed during reconciliation",
					zap.String("bucket", view.BucketName()),
					zap.Stringer("endpoint", ep),
					zap.Error(err))
				return
			}
		}

		existing.SetCapabilities(nc.Capabilities)
		existing.SetAdapter(nc.Adapter)
		if !existing.Assign(view) {
			r.logger.Warn("failed to assign previously-unassigned node",
				zap.Stringer("endpoint", ep))
			return
		}
		view.AddNode(existing)

	case owner == nil && isMemcached:
		// Memcached buckets never SELECT_BUCKET; a seed pre-registered by
		// cluster.acquireSeed before the first Apply reaches here with no
		// owner yet, same as the Couchbase-bucket case above minus that
		// handshake.
		existing.SetCapabilities(nc.Capabilities)
		existing.SetAdapter(nc.Adapter)
		if !existing.Assign(view) {
			r.logger.Warn("failed to assign previously-unassigned memcached node",
				zap.Stringer("endpoint", ep))
			return
		}
		view.AddNode(existing)

	case owner != nil && isMemcached:
		existing.SetAdapter(nc.Adapter)
		view.AddNode(existing)

	case view.Contains(ep):
		existing.SetAdapter(nc.Adapter)

	default:
		r.logger.Debug("node already owned elsewhere, skipping",
			zap.Stringer("endpoint", ep),
			zap.String("bucket", view.BucketName()))
	}
}

func (r *Reconciler) addFresh(ctx context.Context, view View, ep node.Endpoint, nc *NodeConfig) {
	h, err := r.factory.CreateAndConnect(ctx, ep, view.BucketType(), nc.Adapter)
	if err != nil {
		r.logger.Warn("failed to connect to new node during reconciliation",
			zap.Stringer("endpoint", ep),
			zap.Error(err))
		return
	}

	h.SetCapabilities(nc.Capabilities)
	h.SetAdapter(nc.Adapter)

	if nc.Capabilities.KV {
		if err := h.SelectBucket(ctx, view.BucketName()); err != nil {
			r.logger.Warn("select_bucket failed for newly connected node",
				zap.Stringer("endpoint", ep),
				zap.Error(err))
			h.Dispose()
			return
		}
	}

	if !h.Assign(view) {
		r.logger.Warn("newly connected node could not be assigned",
			zap.Stringer("endpoint", ep))
		h.Dispose()
		return
	}

	if !r.reg.Add(h) {
		// lost a race with another reconciliation attempt for this endpoint
		h.Dispose()
		return
	}

	view.AddNode(h)
}

// prune drops every node currently in view whose host is not present in
// the new config's host set.  Pruning intentionally compares on host
// only, not host+port, to avoid churn when only alternate-address ports
// differ across revisions.
//
// It only ever walks view.Nodes(), not the whole registry: the registry
// is shared across every bucket's attachment (and the global bootstrap
// seed), so pruning by registry membership would dispose nodes this
// reconciler's config simply never mentioned because they belong to a
// different bucket, not because they dropped out of this one.
func (r *Reconciler) prune(view View, hostSet map[string]struct{}) {
	for _, h := range view.Nodes() {
		if _, keep := hostSet[h.Endpoint.Host]; keep {
			continue
		}

		view.RemoveNode(h.Endpoint)

		if view.BucketType() == node.BucketTypeMemcached {
			// Memcached nodes may be aliased across buckets by endpoint;
			// only release it from the shared registry if this bucket is
			// still its most recent owner, not some other view that
			// re-claimed it after us.
			if owner := h.Owner(); owner == nil || owner.BucketName() != view.BucketName() {
				continue
			}
		}

		if _, removed := r.reg.Remove(h.Endpoint); removed {
			h.Dispose()
			r.logger.Debug("pruned node not present in new config",
				zap.Stringer("endpoint", h.Endpoint))
		}
	}
}
