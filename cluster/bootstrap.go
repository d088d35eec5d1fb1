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
	"errors"

	"go.uber.org/zap"

	"github.com/couchbase/gocbclustercore/node"
	"github.com/couchbase/gocbclustercore/topology"
)

// BootstrapGlobal performs global (GCCCP) bootstrap: resolve candidate
// endpoints (DNS-SRV with a literal-endpoint fallback), then try each in
// order until one yields a connected node and a global cluster-map, or --
// for pre-6.5 servers -- falls back to legacy mode with just the seed
// registered.
func (c *Core) BootstrapGlobal(ctx context.Context) error {
	if err := c.checkNotDisposed(); err != nil {
		return err
	}

	correlationID := c.newCorrelationID()
	logger := c.logger.With(zap.String("correlationId", correlationID))

	candidates, err := c.resolveCandidates(ctx)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.bootstrapEndpoints = candidates
	c.mu.Unlock()

	var lastErr error
	for _, ep := range candidates {
		if err := c.tryBootstrapEndpoint(ctx, ep, logger); err != nil {
			if IsRateLimited(err) {
				return err
			}
			logger.Warn("global bootstrap candidate failed", zap.Stringer("endpoint", ep), zap.Error(err))
			lastErr = err
			continue
		}
		return nil
	}

	if lastErr == nil {
		lastErr = ErrInvalidConnectionString
	}
	return lastErr
}

// resolveCandidates substitutes a DNS-SRV record for its resolved endpoint
// list, falling back to the connection string's literal endpoints on an
// empty result or resolution error (resolution failure is logged, not
// fatal, per spec.md 4.4).
func (c *Core) resolveCandidates(ctx context.Context) ([]node.Endpoint, error) {
	if c.connSpec.SRVRecord == "" {
		if len(c.connSpec.LiteralEndpoints) == 0 {
			return nil, ErrInvalidConnectionString
		}
		return c.connSpec.LiteralEndpoints, nil
	}

	if c.svcs.DNSResolver != nil {
		eps, err := c.svcs.DNSResolver.ResolveSRV(ctx, c.connSpec.SRVServiceName(), c.connSpec.UseTLS)
		if err != nil {
			c.logger.Warn("DNS-SRV resolution failed, falling back to literal endpoints", zap.Error(err))
		} else if len(eps) > 0 {
			return eps, nil
		}
	}

	if len(c.connSpec.LiteralEndpoints) == 0 {
		return nil, ErrInvalidConnectionString
	}
	return c.connSpec.LiteralEndpoints, nil
}

func (c *Core) tryBootstrapEndpoint(ctx context.Context, ep node.Endpoint, logger *zap.Logger) error {
	seed, err := c.svcs.NodeFactory.CreateAndConnect(ctx, ep, node.BucketTypeCouchbase, nil)
	if err != nil {
		return err
	}

	cfg, err := c.svcs.BootstrapFetcher.FetchGlobalConfig(ctx, seed)
	if errors.Is(err, ErrBucketNotConnected) {
		if !c.registry.Add(seed) {
			seed.Dispose()
		}
		logger.Info("GCCCP unsupported by seed, operating in legacy mode", zap.Stringer("endpoint", ep))
		return nil
	}
	if err != nil {
		seed.Dispose()
		return err
	}

	cfg.IsGlobal = true
	c.applyGlobalBootstrap(ctx, seed, ep, cfg)
	c.setGlobalConfig(cfg)

	logger.Info("global bootstrap succeeded", zap.Stringer("seed", ep), zap.Int("nodes", len(cfg.Nodes)))
	return nil
}

// applyGlobalBootstrap registers the seed (with its adapter/capabilities
// from the map) and every other node the map names, per spec.md 4.4d.
func (c *Core) applyGlobalBootstrap(ctx context.Context, seed *node.Handle, seedEp node.Endpoint, cfg *topology.BucketConfig) {
	kvKey := topology.KVPortKey(cfg.EnableTLS)

	for _, nc := range cfg.Nodes {
		ep := nc.Adapter.ResolveEndpoint(cfg.NetworkType, kvKey, cfg.EnableTLS)

		if ep == seedEp {
			seed.SetAdapter(nc.Adapter)
			seed.SetCapabilities(nc.Capabilities)
			if !c.registry.Add(seed) {
				seed.Dispose()
			} else {
				c.setFeatureFlags(nc.Capabilities)
			}
			continue
		}

		if _, exists := c.registry.TryGet(ep); exists {
			continue
		}

		h, err := c.svcs.NodeFactory.CreateAndConnect(ctx, ep, node.BucketTypeCouchbase, nc.Adapter)
		if err != nil {
			c.logger.Warn("failed to connect to node from global bootstrap map", zap.Stringer("endpoint", ep), zap.Error(err))
			continue
		}
		h.SetCapabilities(nc.Capabilities)

		if !c.registry.Add(h) {
			h.Dispose()
		}
	}
}

// reconcileGlobal re-applies a later global config delivered via
// publish_config/ConfigPump: it refreshes and adds unassigned nodes named
// by the new map and prunes unassigned nodes whose host has dropped out of
// it. Bucket-owned nodes are left untouched -- they are governed by their
// own BucketAttachment's subscription instead.
func (c *Core) reconcileGlobal(ctx context.Context, cfg *topology.BucketConfig) {
	kvKey := topology.KVPortKey(cfg.EnableTLS)
	hostSet := make(map[string]struct{}, len(cfg.Nodes))

	for _, nc := range cfg.Nodes {
		ep := nc.Adapter.ResolveEndpoint(cfg.NetworkType, kvKey, cfg.EnableTLS)
		hostSet[ep.Host] = struct{}{}

		existing, exists := c.registry.TryGet(ep)
		if exists {
			if existing.Owner() == nil {
				existing.SetAdapter(nc.Adapter)
				existing.SetCapabilities(nc.Capabilities)
			}
			continue
		}

		h, err := c.svcs.NodeFactory.CreateAndConnect(ctx, ep, node.BucketTypeCouchbase, nc.Adapter)
		if err != nil {
			c.logger.Warn("failed to connect to node from refreshed global map", zap.Stringer("endpoint", ep), zap.Error(err))
			continue
		}
		h.SetCapabilities(nc.Capabilities)
		if !c.registry.Add(h) {
			h.Dispose()
		}
	}

	for _, h := range c.registry.Snapshot() {
		if h.Owner() != nil {
			continue
		}
		if _, keep := hostSet[h.Endpoint.Host]; keep {
			continue
		}
		if _, removed := c.registry.Remove(h.Endpoint); removed {
			h.Dispose()
		}
	}
}
