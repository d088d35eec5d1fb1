/*
Copyright 2022-Present Couchbase, Inc.

Use of this software is governed by the Business Source License included in
the file licenses/BSL-Couchbase.txt.  As of the Change Date specified in that
file, in accordance with the Business Source License, use of this software will
be governed by the Apache License, Version 2.0, included in the file
licenses/APL2.txt.
*/

// Package kvnode is a reference node.ClusterNodeFactory backed by a real
// memcached connection, using gocbcore/v10's Agent as the transport. It is
// an external collaborator in the same sense DNS-SRV resolution and
// connection-string parsing are: the core never imports it directly, it is
// wired in by whatever composes a cluster.Core (a test harness or a larger
// SDK built on top of this module).
package kvnode

import (
	"context"
	"time"

	"github.com/couchbase/gocbcore/v10"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/couchbase/gocbclustercore/node"
)

// Factory constructs node.Handle values backed by a gocbcore.Agent per
// node, always created bucket-less (see CreateAndConnect).
type Factory struct {
	logger *zap.Logger

	// ConnectTimeout bounds how long WaitUntilReady is given per node.
	ConnectTimeout time.Duration

	// SecurityConfig is copied into every Agent's AgentConfig.SecurityConfig,
	// whether or not Endpoint.IsTLS is set; its Auth field is overwritten
	// with Credentials.
	SecurityConfig gocbcore.SecurityConfig

	// Credentials supplies the SASL identity used for every connection.
	Credentials gocbcore.AuthProvider
}

// New constructs a Factory. logger may be nil.
func New(creds gocbcore.AuthProvider, logger *zap.Logger) *Factory {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Factory{
		logger:         logger.Named("kvnode"),
		ConnectTimeout: 10 * time.Second,
		Credentials:    creds,
	}
}

// CreateAndConnect implements node.ClusterNodeFactory. The resulting
// Agent is always bucket-less: node.ClusterNodeFactory has no bucket-name
// parameter (a node is born before any bucket claims it), while gocbcore
// binds a bucket to an Agent only at creation time. SelectBucket on the
// returned Connection is therefore a genuine no-op rather than a real
// SELECT_BUCKET -- a gocbcore-backed factory cannot satisfy the narrow
// BucketSelector contract mid-connection the way a raw memcached client
// could, so KV operations against a bucket-owning Handle created this way
// need a second, bucket-bound Agent underneath; that reconnect is left to
// a richer factory built for a specific SDK's request path, not this
// reference implementation.
func (f *Factory) CreateAndConnect(ctx context.Context, ep node.Endpoint, bt node.BucketType, adapter *node.Adapter) (*node.Handle, error) {
	cfg := &gocbcore.AgentConfig{
		SeedConfig: gocbcore.SeedConfig{
			MemdAddrs: []string{ep.String()},
		},
		UserAgent:      "gocbclustercore",
		SecurityConfig: f.SecurityConfig,
	}
	cfg.SecurityConfig.Auth = f.Credentials

	agent, err := gocbcore.CreateAgent(cfg)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to create agent for %s", ep)
	}

	deadline := time.Now().Add(f.ConnectTimeout)
	waitErr := waitUntilReady(agent, deadline)
	if waitErr != nil {
		_ = agent.Close()
		return nil, errors.Wrapf(waitErr, "agent for %s never became ready", ep)
	}

	conn := &connection{agent: agent, logger: f.logger}
	return node.NewHandle(ep, bt, conn), nil
}

// waitUntilReady bridges gocbcore's callback-based WaitUntilReady into a
// blocking call bounded by deadline and ctx-independent cancellation (the
// Agent has no context-based API in v10).
func waitUntilReady(agent *gocbcore.Agent, deadline time.Time) error {
	resultCh := make(chan error, 1)

	_, err := agent.WaitUntilReady(deadline, gocbcore.WaitUntilReadyOptions{}, func(res *gocbcore.WaitUntilReadyResult, err error) {
		resultCh <- err
	})
	if err != nil {
		return err
	}

	return <-resultCh
}

// connection adapts a gocbcore.Agent to node.Connection and the optional
// node.BucketSelector interface.
type connection struct {
	agent  *gocbcore.Agent
	logger *zap.Logger
}

func (c *connection) Close() error {
	return c.agent.Close()
}

// SelectBucket is a no-op: gocbcore binds a bucket only at Agent creation,
// and Factory always creates bucket-less Agents, so no bucket is selected
// on this connection.
func (c *connection) SelectBucket(ctx context.Context, bucketName string) error {
	return nil
}
