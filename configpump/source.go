/*
Copyright 2022-Present Couchbase, Inc.

Use of this software is governed by the Business Source License included in
the file licenses/BSL-Couchbase.txt.  As of the Change Date specified in that
file, in accordance with the Business Source License, use of this software will
be governed by the Apache License, Version 2.0, included in the file
licenses/APL2.txt.
*/

// Package configpump implements the publish/subscribe facade over
// heterogeneous cluster-map sources (HTTP streaming, CCCP polling,
// server-pushed CONFIG ops) described as the ConfigPump component.
package configpump

import (
	"context"

	"github.com/couchbase/gocbclustercore/topology"
)

// Fetcher is the narrow interface a config Source uses to pull one config
// snapshot at a time.  Concrete sources (CCCP, HTTP streaming) implement
// the polling/streaming mechanics on top of it.
type Fetcher interface {
	FetchGlobalConfig(ctx context.Context) (*topology.BucketConfig, error)
	FetchBucketConfig(ctx context.Context, bucketName string) (*topology.BucketConfig, error)
}

// Source abstracts over the mechanism used to obtain updated cluster-maps.
// WatchGlobal and WatchBucket each return a channel of configs in
// non-decreasing revision order; the channel is closed when ctx is done or
// the source gives up.
type Source interface {
	WatchGlobal(ctx context.Context) (<-chan *topology.BucketConfig, error)
	WatchBucket(ctx context.Context, bucketName string) (<-chan *topology.BucketConfig, error)
}
