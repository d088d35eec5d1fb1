/*
Copyright 2022-Present Couchbase, Inc.

Use of this software is governed by the Business Source License included in
the file licenses/BSL-Couchbase.txt.  As of the Change Date specified in that
file, in accordance with the Business Source License, use of this software will
be governed by the Apache License, Version 2.0, included in the file
licenses/APL2.txt.
*/

package kvnode

import (
	"context"
	"strconv"
	"strings"

	"github.com/couchbase/gocbcore/v10"
	"github.com/pkg/errors"

	"github.com/couchbase/gocbclustercore/cluster"
	"github.com/couchbase/gocbclustercore/node"
	"github.com/couchbase/gocbclustercore/topology"
)

// Fetcher pulls cluster-maps from a gocbcore.Agent's own ConfigSnapshot,
// used both for GCCCP bootstrap and for the first per-bucket config fetch
// during attach. It implements
// both cluster.BootstrapFetcher and bucket.ConfigFetcher, since both
// reduce to "read the seed's current snapshot" once a seed is already
// connected.
type Fetcher struct{}

// FetchGlobalConfig implements cluster.BootstrapFetcher.
func (Fetcher) FetchGlobalConfig(ctx context.Context, seed *node.Handle) (*topology.BucketConfig, error) {
	return snapshotToConfig(seed, "", true)
}

// FetchBucketConfig implements bucket.ConfigFetcher.
func (Fetcher) FetchBucketConfig(ctx context.Context, seed *node.Handle, bucketName string) (*topology.BucketConfig, error) {
	return snapshotToConfig(seed, bucketName, false)
}

func snapshotToConfig(seed *node.Handle, bucketName string, isGlobal bool) (*topology.BucketConfig, error) {
	conn, ok := seed.Conn.(*connection)
	if !ok {
		return nil, errors.New("seed handle is not backed by a gocbcore connection")
	}

	snapshot, err := conn.agent.ConfigSnapshot()
	if err != nil {
		if errors.Is(err, gocbcore.ErrBucketNotFound) {
			return nil, cluster.ErrBucketNotConnected
		}
		return nil, errors.Wrap(err, "failed to read config snapshot")
	}

	cfg := &topology.BucketConfig{
		BucketName:  bucketName,
		RevEpoch:    0,
		Rev:         uint64(snapshot.RevID()),
		NodeLocator: topology.NodeLocatorVBucket,
		IsGlobal:    isGlobal,
		EnableTLS:   seed.Endpoint.IsTLS,
	}

	numServers, err := snapshot.NumServers()
	if err != nil {
		return nil, errors.Wrap(err, "failed to read server count from config snapshot")
	}

	for i := 1; i <= numServers; i++ {
		addr, err := snapshot.Address(i)
		if err != nil {
			continue
		}

		host, portStr, found := strings.Cut(addr, ":")
		if !found {
			continue
		}
		port, err := strconv.Atoi(portStr)
		if err != nil {
			continue
		}

		adapter := &node.Adapter{
			Hostname: host,
			Ports:    map[string]uint16{topology.KVPortKey(cfg.EnableTLS): uint16(port)},
		}

		cfg.Nodes = append(cfg.Nodes, &topology.NodeConfig{
			Adapter:      adapter,
			Capabilities: node.Capabilities{KV: true},
		})
	}

	return cfg, nil
}

