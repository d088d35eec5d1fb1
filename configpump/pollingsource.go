/*
Copyright 2022-Present Couchbase, Inc.

Use of this software is governed by the Business Source License included in
the file licenses/BSL-Couchbase.txt.  As of the Change Date specified in that
file, in accordance with the Business Source License, use of this software will
be governed by the Apache License, Version 2.0, included in the file
licenses/APL2.txt.
*/

package configpump

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/couchbase/gocbclustercore/internal/latestonly"
	"github.com/couchbase/gocbclustercore/topology"
)

// PollingSource is a Source backed by repeated Fetcher calls, used for
// both the CCCP (in-band, over the KV connection) and HTTP-streaming
// (long-poll over the management port) carriers: both ultimately reduce
// to "fetch a config, wait, fetch again", just with different
// Fetcher implementations and poll intervals.
//
// On a fetch failure the poll loop backs off using an exponential
// schedule rather than hammering the seed node; a successful fetch resets
// the backoff.
type PollingSource struct {
	logger   *zap.Logger
	fetcher  Fetcher
	interval time.Duration
}

// NewPollingSource constructs a PollingSource.  interval is the steady-state
// delay between successful polls.
func NewPollingSource(fetcher Fetcher, interval time.Duration, logger *zap.Logger) *PollingSource {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PollingSource{
		logger:   logger.Named("configpump"),
		fetcher:  fetcher,
		interval: interval,
	}
}

// NewCCCPSource builds the in-band carrier adapter: a Source that polls
// cluster-map updates over the same memcached connection used for data
// traffic, via a Fetcher backed by the GET_CLUSTER_CONFIG KV opcode. It is
// the default source during normal operation, since it needs no extra
// connection to the node.
func NewCCCPSource(fetcher Fetcher, interval time.Duration, logger *zap.Logger) *PollingSource {
	return NewPollingSource(fetcher, interval, logger)
}

// NewStreamingSource builds the HTTP carrier adapter: a Source whose
// Fetcher reads configs from the cluster manager's management port
// (contrib/httpconfig.Fetcher issues one plain GET of the terse config per
// poll). It is used as the fallback carrier when a
// node has no usable KV connection yet, e.g. during initial bootstrap over
// a management-port-only seed.
func NewStreamingSource(fetcher Fetcher, interval time.Duration, logger *zap.Logger) *PollingSource {
	return NewPollingSource(fetcher, interval, logger)
}

func (s *PollingSource) newBackoff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 100 * time.Millisecond
	b.MaxInterval = 10 * time.Second
	b.MaxElapsedTime = 0 // never return backoff.Stop; keep retrying at MaxInterval
	return b
}

// WatchGlobal polls the global (GCCCP) config on a fixed interval.
func (s *PollingSource) WatchGlobal(ctx context.Context) (<-chan *topology.BucketConfig, error) {
	first, err := s.fetcher.FetchGlobalConfig(ctx)
	if err != nil {
		return nil, err
	}

	inputCh := make(chan *topology.BucketConfig, 1)
	inputCh <- first

	go s.pollLoop(ctx, inputCh, func(ctx context.Context) (*topology.BucketConfig, error) {
		return s.fetcher.FetchGlobalConfig(ctx)
	})

	return latestonly.Wrap(inputCh), nil
}

// WatchBucket polls a single bucket's config on a fixed interval.
func (s *PollingSource) WatchBucket(ctx context.Context, bucketName string) (<-chan *topology.BucketConfig, error) {
	first, err := s.fetcher.FetchBucketConfig(ctx, bucketName)
	if err != nil {
		return nil, err
	}

	inputCh := make(chan *topology.BucketConfig, 1)
	inputCh <- first

	go s.pollLoop(ctx, inputCh, func(ctx context.Context) (*topology.BucketConfig, error) {
		return s.fetcher.FetchBucketConfig(ctx, bucketName)
	})

	return latestonly.Wrap(inputCh), nil
}

func (s *PollingSource) pollLoop(ctx context.Context, inputCh chan *topology.BucketConfig, fetch func(context.Context) (*topology.BucketConfig, error)) {
	defer close(inputCh)

	b := s.newBackoff()
	wait := s.interval

	for {
		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
		}

		cfg, err := fetch(ctx)
		if err != nil {
			s.logger.Warn("config fetch failed, backing off", zap.Error(err))
			wait = b.NextBackOff()
			continue
		}

		b.Reset()
		wait = s.interval

		select {
		case inputCh <- cfg:
		case <-ctx.Done():
			return
		}
	}
}
