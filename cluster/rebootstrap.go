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

	"go.uber.org/zap"

	"github.com/couchbase/gocbclustercore/node"
)

// Rebootstrap drives recovery for a bucket that has lost every node it
// owned (e.g. an NMV storm, or every endpoint becoming unreachable). It
// evicts the bucket's current nodes, then tries each bootstrap endpoint in
// turn until one completes a fresh attach.
func (c *Core) Rebootstrap(ctx context.Context, name string) error {
	if err := c.checkNotDisposed(); err != nil {
		return err
	}

	a, ok := c.lookupAttachment(name)
	if !ok {
		return &ErrBucketNotFound{Name: name}
	}

	c.attachMu.Lock()
	defer c.attachMu.Unlock()

	// Detach clears the attachment's own view (a.nodes/a.byEndpoint) as well
	// as the registry -- a bare registry.ClearFor here would leave the
	// just-disposed handles in the view until Attach's reconciler.Apply
	// replaced or pruned them.
	a.Detach(c.registry)

	endpoints, err := c.bootstrapEndpointsOrBootstrap(ctx)
	if err != nil {
		return err
	}

	var lastErr error
	for _, ep := range endpoints {
		seed, err := c.acquireSeed(ctx, ep, node.BucketTypeCouchbase)
		if err != nil {
			c.logger.Warn("rebootstrap could not acquire seed node", zap.String("bucket", name), zap.Stringer("endpoint", ep), zap.Error(err))
			lastErr = err
			continue
		}

		if err := a.Attach(ctx, seed, c.svcs.BucketFetcher); err != nil {
			c.logger.Warn("rebootstrap attach failed, trying next endpoint", zap.String("bucket", name), zap.Stringer("endpoint", ep), zap.Error(err))
			c.unregisterAttachment(name)
			lastErr = err
			continue
		}

		c.registerAttachment(a)
		return nil
	}

	return lastErr
}
