/*
Copyright 2022-Present Couchbase, Inc.

Use of this software is governed by the Business Source License included in
the file licenses/BSL-Couchbase.txt.  As of the Change Date specified in that
file, in accordance with the Business Source License, use of this software will
be governed by the Apache License, Version 2.0, included in the file
licenses/APL2.txt.
*/

// Package cluster implements ClusterCore: the process-wide singleton-per-
// instance that owns the NodeRegistry, the set of BucketAttachments,
// global bootstrap, bucket attach/rebootstrap, and the exposed request-path
// operations (node selection, config publication, disposal).
package cluster

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/couchbase/gocbclustercore/bucket"
	"github.com/couchbase/gocbclustercore/configpump"
	"github.com/couchbase/gocbclustercore/contrib/connstr"
	"github.com/couchbase/gocbclustercore/node"
	"github.com/couchbase/gocbclustercore/registry"
	"github.com/couchbase/gocbclustercore/topology"
)

// Core is ClusterCore: process-scoped state with lifecycle
// {constructed -> started -> disposed}. It is not a true singleton --
// callers are free to construct more than one, each owning its own
// registry, attachments, and cancellation scope.
type Core struct {
	logger *zap.Logger
	opts   Options
	svcs   Services

	registry *registry.Registry
	pump     *configpump.Pump

	connSpec *connstr.Result

	// attachMu is the single-permit lock serializing bucket attach
	// attempts across all bucket names (spec.md 4.5); it is distinct from
	// mu so the fast path (map lookup) never contends with a slow attach
	// for a different bucket.
	attachMu sync.Mutex

	mu                  sync.RWMutex
	attachments         map[string]*bucket.Attachment
	bootstrapEndpoints  []node.Endpoint
	globalConfig        *topology.BucketConfig
	supportsCollections bool
	supportsPreserveTTL bool
	started             bool
	disposed            bool

	ctx    context.Context
	cancel context.CancelFunc
}

// New constructs an unstarted Core. It parses opts.ConnectionString
// eagerly so that ErrInvalidConnectionString surfaces at construction time
// rather than on the first Start call.
func New(opts Options, svcs Services) (*Core, error) {
	if svcs.Logger == nil {
		svcs.Logger = zap.NewNop()
	}

	spec, err := connstr.Parse(opts.ConnectionString, opts.EnableTLS)
	if err != nil {
		return nil, ErrInvalidConnectionString
	}

	ctx, cancel := context.WithCancel(context.Background())

	c := &Core{
		logger:      svcs.Logger.Named("cluster"),
		opts:        opts,
		svcs:        svcs,
		registry:    registry.New(svcs.Logger),
		connSpec:    spec,
		attachments: make(map[string]*bucket.Attachment),
		ctx:         ctx,
		cancel:      cancel,
	}

	if c.svcs.BucketFactory == nil {
		c.svcs.BucketFactory = &bucket.DefaultFactory{
			Registry:    c.registry,
			NodeFactory: svcs.NodeFactory,
			Logger:      svcs.Logger,
		}
	}

	c.pump = configpump.New(svcs.PumpSource, svcs.Logger)
	c.pump.SetGlobalSink(c.onGlobalConfig)

	return c, nil
}

func (c *Core) newCorrelationID() string {
	return uuid.New().String()
}

// checkNotDisposed is the guard every public operation opens with, per
// spec.md 5's "after dispose all public operations fail with Disposed".
func (c *Core) checkNotDisposed() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.disposed {
		return ErrDisposed
	}
	return nil
}

// Registry exposes the underlying NodeRegistry, mainly for tests and for
// collaborators (e.g. a reference ClusterNodeFactory) that need to see the
// live node set.
func (c *Core) Registry() *registry.Registry {
	return c.registry
}

// SupportsCollections reports the collections feature flag derived from
// the most recently connected node, per spec.md 9's documented
// last-writer-wins-within-a-config-epoch semantics.
func (c *Core) SupportsCollections() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.supportsCollections
}

// SupportsPreserveTTL reports the preserve-TTL feature flag, with the same
// semantics as SupportsCollections.
func (c *Core) SupportsPreserveTTL() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.supportsPreserveTTL
}

func (c *Core) setFeatureFlags(caps node.Capabilities) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.supportsCollections = caps.Collections
	c.supportsPreserveTTL = caps.PreserveTTL
}

// GlobalConfig returns the last observed global (GCCCP) config, or nil if
// the core never completed GCCCP bootstrap (legacy mode).
func (c *Core) GlobalConfig() *topology.BucketConfig {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.globalConfig
}

func (c *Core) setGlobalConfig(cfg *topology.BucketConfig) {
	c.mu.Lock()
	c.globalConfig = cfg
	c.mu.Unlock()
}

func (c *Core) onGlobalConfig(cfg *topology.BucketConfig) {
	c.setGlobalConfig(cfg)
	c.reconcileGlobal(c.ctx, cfg)
}
