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
	"fmt"

	"go.uber.org/zap"

	"github.com/couchbase/gocbclustercore/bucket"
	"github.com/couchbase/gocbclustercore/node"
)

// GetOrCreateBucket is get_or_create_bucket: a fast-path map lookup, or a
// single-permit-guarded slow path that tries every (bootstrap endpoint,
// bucket type) combination in order until one completes a successful
// attach.
func (c *Core) GetOrCreateBucket(ctx context.Context, name string) (*bucket.Attachment, error) {
	if err := c.checkNotDisposed(); err != nil {
		return nil, err
	}

	if a, ok := c.lookupAttachment(name); ok {
		return a, nil
	}

	c.attachMu.Lock()
	defer c.attachMu.Unlock()

	// Re-check: another waiter may have completed the attach while we were
	// blocked acquiring the single-permit lock.
	if a, ok := c.lookupAttachment(name); ok {
		return a, nil
	}

	endpoints, err := c.bootstrapEndpointsOrBootstrap(ctx)
	if err != nil {
		return nil, err
	}

	for _, ep := range endpoints {
		for _, bt := range node.AttachOrder {
			a, err := c.tryAttachCombination(ctx, ep, bt, name)
			if err == nil {
				c.registerAttachment(a)
				return a, nil
			}

			if IsRateLimited(err) {
				return nil, err
			}

			c.logger.Warn("bucket attach combination failed",
				zap.String("bucket", name),
				zap.Stringer("endpoint", ep),
				zap.Stringer("bucketType", bt),
				zap.Error(err))
		}
	}

	return nil, &ErrBucketNotFound{Name: name}
}

func (c *Core) lookupAttachment(name string) (*bucket.Attachment, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	a, ok := c.attachments[name]
	return a, ok
}

// bootstrapEndpointsOrBootstrap returns the cached candidate list, running
// global bootstrap first if no candidates have been resolved yet (e.g. the
// caller never called BootstrapGlobal explicitly and went straight to
// opening a bucket).
func (c *Core) bootstrapEndpointsOrBootstrap(ctx context.Context) ([]node.Endpoint, error) {
	c.mu.RLock()
	endpoints := append([]node.Endpoint(nil), c.bootstrapEndpoints...)
	c.mu.RUnlock()

	if len(endpoints) > 0 {
		return endpoints, nil
	}

	if err := c.BootstrapGlobal(ctx); err != nil {
		c.logger.Warn("implicit global bootstrap before bucket attach failed", zap.Error(err))
	}

	c.mu.RLock()
	endpoints = append([]node.Endpoint(nil), c.bootstrapEndpoints...)
	c.mu.RUnlock()

	if len(endpoints) == 0 {
		return nil, ErrInvalidConnectionString
	}
	return endpoints, nil
}

func (c *Core) tryAttachCombination(ctx context.Context, ep node.Endpoint, bt node.BucketType, name string) (*bucket.Attachment, error) {
	seed, err := c.acquireSeed(ctx, ep, bt)
	if err != nil {
		return nil, err
	}

	a := c.svcs.BucketFactory.Create(name, bt)
	if err := a.Attach(ctx, seed, c.svcs.BucketFetcher); err != nil {
		return nil, err
	}
	return a, nil
}

// acquireSeed reuses a previously created, unassigned node at (ep, bt) if
// one is already registered, per spec.md 4.5's "reuse a previously created
// unassigned node ... else create-and-connect".
func (c *Core) acquireSeed(ctx context.Context, ep node.Endpoint, bt node.BucketType) (*node.Handle, error) {
	if h, ok := c.registry.FirstUnassigned(ep, bt); ok {
		return h, nil
	}

	h, err := c.svcs.NodeFactory.CreateAndConnect(ctx, ep, bt, nil)
	if err != nil {
		return nil, err
	}

	if c.registry.Add(h) {
		return h, nil
	}

	// Lost a race with a concurrent attach attempt at the same endpoint.
	if existing, ok := c.registry.FirstUnassigned(ep, bt); ok {
		h.Dispose()
		return existing, nil
	}
	h.Dispose()
	return nil, fmt.Errorf("node at %s is already registered and is not an unassigned %s node", ep, bt)
}

func (c *Core) unregisterAttachment(name string) {
	c.mu.Lock()
	delete(c.attachments, name)
	c.mu.Unlock()
	c.pump.Unsubscribe(name)
}

func (c *Core) registerAttachment(a *bucket.Attachment) {
	c.mu.Lock()
	c.attachments[a.Name()] = a
	c.mu.Unlock()

	if err := c.pump.Subscribe(c.ctx, a, c.opts.EnableConfigPolling); err != nil {
		c.logger.Warn("failed to subscribe bucket to config pump", zap.String("bucket", a.Name()), zap.Error(err))
	}
}
