/*
Copyright 2022-Present Couchbase, Inc.

Use of this software is governed by the Business Source License included in
the file licenses/BSL-Couchbase.txt.  As of the Change Date specified in that
file, in accordance with the Business Source License, use of this software will
be governed by the Apache License, Version 2.0, included in the file
licenses/APL2.txt.
*/

package bucket

import (
	"go.uber.org/zap"

	"github.com/couchbase/gocbclustercore/node"
	"github.com/couchbase/gocbclustercore/registry"
)

// Detach releases every node currently owned by the bucket from the
// registry and clears the view, but leaves the attachment itself usable
// for a subsequent re-attach (rebootstrap).  It does not dispose nodes
// that remain registered under a different owner (Memcached aliasing).
func (a *Attachment) Detach(reg *registry.Registry) {
	owned := reg.ClearFor(a.name)

	a.mu.Lock()
	a.nodes = nil
	a.byEndpoint = make(map[node.Endpoint]*node.Handle)
	a.mu.Unlock()

	for _, h := range owned {
		h.Dispose()
	}

	a.logger.Info("bucket detached", zap.Int("nodesReleased", len(owned)))
}

// Dispose releases the bucket permanently: it detaches and marks the
// attachment as no longer bootstrapped.  Safe to call more than once.
func (a *Attachment) Dispose(reg *registry.Registry) {
	a.Detach(reg)

	a.mu.Lock()
	a.bootstrapped = false
	a.mu.Unlock()
}
