/*
Copyright 2022-Present Couchbase, Inc.

Use of this software is governed by the Business Source License included in
the file licenses/BSL-Couchbase.txt.  As of the Change Date specified in that
file, in accordance with the Business Source License, use of this software will
be governed by the Apache License, Version 2.0, included in the file
licenses/APL2.txt.
*/

// Package topology computes diffs between the registry's current node set
// and an incoming cluster-map and applies them: the TopologyReconciler
// component.  It also owns the BucketConfig type (the versioned
// cluster-map snapshot) and the wire-format parsing that produces it.
package topology

import "github.com/couchbase/gocbclustercore/node"

// NodeLocator names the dispatch strategy a bucket uses.
type NodeLocator string

const (
	NodeLocatorVBucket NodeLocator = "vbucket"
	NodeLocatorKetama  NodeLocator = "ketama"
)

// BucketConfig is a versioned snapshot of cluster topology, either global
// (GCCCP) or scoped to one bucket.
type BucketConfig struct {
	BucketName  string
	RevEpoch    uint64
	Rev         uint64
	NodeLocator NodeLocator
	NetworkType string
	EnableTLS   bool
	IsGlobal    bool

	Nodes []*NodeConfig
}

// NodeConfig pairs a node's cluster-map adapter with the capability bits
// derived from its advertised services, ahead of being applied to a
// registry/bucket view.
type NodeConfig struct {
	Adapter      *node.Adapter
	Capabilities node.Capabilities
}

// CompareRevision compares two (RevEpoch, Rev) pairs the way gocbcorex's
// wire format does: RevEpoch is the primary ordering key (it increments
// on cluster-rename/failover events that invalidate Rev's history), Rev
// is the tie-breaker within an epoch. It returns -1, 0, or +1 the way
// standard comparisons do.
func CompareRevision(aEpoch, aRev, bEpoch, bRev uint64) int {
	if aEpoch != bEpoch {
		if aEpoch < bEpoch {
			return -1
		}
		return 1
	}

	if aRev == bRev {
		return 0
	}
	if aRev < bRev {
		return -1
	}
	return 1
}

// IsNewerThan reports whether cfg is strictly newer than the given
// (epoch, rev) baseline.
func (c *BucketConfig) IsNewerThan(epoch, rev uint64) bool {
	return CompareRevision(c.RevEpoch, c.Rev, epoch, rev) > 0
}
