/*
Copyright 2022-Present Couchbase, Inc.

Use of this software is governed by the Business Source License included in
the file licenses/BSL-Couchbase.txt.  As of the Change Date specified in that
file, in accordance with the Business Source License, use of this software will
be governed by the Apache License, Version 2.0, included in the file
licenses/APL2.txt.
*/

package cluster

import "github.com/couchbase/gocbclustercore/bucket"

// Dispose is idempotent. It cancels the root token, stops the ConfigPump,
// disposes every BucketAttachment, and clears and disposes every remaining
// NodeHandle. After Dispose every other public operation fails with
// ErrDisposed.
func (c *Core) Dispose() {
	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return
	}
	c.disposed = true
	attachments := c.attachments
	c.attachments = make(map[string]*bucket.Attachment)
	c.mu.Unlock()

	c.cancel()
	c.pump.Stop()

	for _, a := range attachments {
		a.Dispose(c.registry)
	}

	for _, h := range c.registry.ClearAll() {
		h.Dispose()
	}
}
