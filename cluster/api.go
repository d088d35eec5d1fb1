/*
Copyright 2022-Present Couchbase, Inc.

Use of this software is governed by the Business Source License included in
the file licenses/BSL-Couchbase.txt.  As of the Change Date specified in that
file, in accordance with the Business Source License, use of this software will
be governed by the Apache License, Version 2.0, included in the file
licenses/APL2.txt.
*/

package cluster

import (
	"context"

	"github.com/couchbase/gocbclustercore/bucket"
	"github.com/couchbase/gocbclustercore/node"
	"github.com/couchbase/gocbclustercore/selector"
	"github.com/couchbase/gocbclustercore/topology"
)

// Start begins producing cluster-map updates through the ConfigPump's
// global watch, if config polling is enabled. It is safe to call more than
// once; only the first call has any effect.
func (c *Core) Start(ctx context.Context) error {
	if err := c.checkNotDisposed(); err != nil {
		return err
	}

	c.mu.Lock()
	if c.started {
		c.mu.Unlock()
		return nil
	}
	c.started = true
	c.mu.Unlock()

	return c.pump.Start(ctx, c.opts.EnableConfigPolling)
}

// PublishConfig fans a freshly received config (e.g. a server-pushed
// CONFIG op fed in from the KV protocol layer) out to the global sink or
// the matching bucket, per the ConfigPump contract.
func (c *Core) PublishConfig(cfg *topology.BucketConfig) error {
	if err := c.checkNotDisposed(); err != nil {
		return err
	}
	c.pump.Publish(cfg)
	return nil
}

// RegisterBucket adds an already-attached BucketAttachment to the core's
// tracked set and subscribes it to the ConfigPump. GetOrCreateBucket calls
// this internally; it is also exposed for callers that construct and
// attach a BucketAttachment themselves.
func (c *Core) RegisterBucket(a *bucket.Attachment) error {
	if err := c.checkNotDisposed(); err != nil {
		return err
	}
	c.registerAttachment(a)
	return nil
}

// UnregisterBucket stops tracking the named bucket and unsubscribes it
// from the ConfigPump, without releasing its owned nodes. Used when an
// attach attempt that previously succeeded is superseded by a failed
// rebootstrap.
func (c *Core) UnregisterBucket(name string) {
	c.unregisterAttachment(name)
}

// RemoveBucket fully closes a bucket: it detaches and disposes the
// attachment's owned nodes, then stops tracking it. It is a no-op if the
// bucket was never registered.
func (c *Core) RemoveBucket(name string) {
	a, ok := c.lookupAttachment(name)
	if !ok {
		return
	}
	c.unregisterAttachment(name)
	a.Dispose(c.registry)
}

// GetRandomNodeForService is get_random_node_for_service: a thin wrapper
// over selector.SelectForService bound to this core's registry.
func (c *Core) GetRandomNodeForService(svc selector.Service, bucketName string) (*node.Handle, error) {
	if err := c.checkNotDisposed(); err != nil {
		return nil, err
	}
	return selector.SelectForService(c.registry, svc, bucketName)
}

// GetNodes is get_nodes: with an empty bucketName it returns every node in
// the registry; otherwise it returns the named bucket's current view, or
// nil if the bucket is not registered.
func (c *Core) GetNodes(bucketName string) []*node.Handle {
	if bucketName == "" {
		return c.registry.Snapshot()
	}

	a, ok := c.lookupAttachment(bucketName)
	if !ok {
		return nil
	}
	return a.Nodes()
}
