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
	"context"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/couchbase/gocbclustercore/node"
	"github.com/couchbase/gocbclustercore/topology"
)

// ConfigFetcher fetches the first per-bucket cluster-map from a seed node
// as part of the attach handshake.  It is supplied by ClusterCore, which
// knows how to talk CCCP/HTTP streaming to the seed.
type ConfigFetcher interface {
	FetchBucketConfig(ctx context.Context, seed *node.Handle, bucketName string) (*topology.BucketConfig, error)
}

// Attach performs the bucket-specific handshake on the seed node --
// SELECT_BUCKET for Couchbase buckets with KV, a no-op for Memcached -- and
// pulls the first per-bucket cluster-map.  On success the attachment is
// marked bootstrapped.
func (a *Attachment) Attach(ctx context.Context, seed *node.Handle, fetcher ConfigFetcher) error {
	if a.bt != node.BucketTypeMemcached {
		if err := seed.SelectBucket(ctx, a.name); err != nil {
			return errors.Wrapf(err, "select_bucket failed for bucket %q", a.name)
		}
	}

	cfg, err := fetcher.FetchBucketConfig(ctx, seed, a.name)
	if err != nil {
		return errors.Wrapf(err, "failed to fetch initial config for bucket %q", a.name)
	}

	a.reconciler.Apply(ctx, a, cfg)
	a.setRevision(cfg.RevEpoch, cfg.Rev)
	a.markBootstrapped()

	a.logger.Info("bucket attached", zap.Stringer("seed", seed.Endpoint), zap.Int("nodes", len(a.Nodes())))

	return nil
}

// ApplyConfig is the hot reconciliation path: it rejects configs that are
// not strictly newer than the last applied revision (idempotent replay of
// the same revision is a no-op) and otherwise delegates to the
// TopologyReconciler.
func (a *Attachment) ApplyConfig(ctx context.Context, cfg *topology.BucketConfig) {
	curEpoch, curRev := a.revision()
	if !cfg.IsNewerThan(curEpoch, curRev) {
		a.logger.Debug("discarding stale or duplicate config",
			zap.Uint64("currentEpoch", curEpoch), zap.Uint64("currentRev", curRev),
			zap.Uint64("incomingEpoch", cfg.RevEpoch), zap.Uint64("incomingRev", cfg.Rev))
		return
	}

	a.reconciler.Apply(ctx, a, cfg)
	a.setRevision(cfg.RevEpoch, cfg.Rev)
}
