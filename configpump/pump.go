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
	"sync"

	"go.uber.org/zap"

	"github.com/couchbase/gocbclustercore/topology"
)

// Sink receives reconciled configs for one bucket.  BucketAttachment
// satisfies this.
type Sink interface {
	BucketName() string
	ApplyConfig(ctx context.Context, cfg *topology.BucketConfig)
}

type bucketState struct {
	sink         Sink
	mu           sync.Mutex // serializes ApplyConfig calls for this bucket
	lastEpoch    uint64
	lastRev      uint64
	cancelWatch  context.CancelFunc
}

// Pump is the publish/subscribe facade over a Source.  It serializes
// deliveries per bucket and discards revisions that are not strictly
// greater than the last one applied for that bucket.
type Pump struct {
	logger *zap.Logger
	source Source

	mu           sync.Mutex
	buckets      map[string]*bucketState
	globalSink   func(*topology.BucketConfig)
	globalEpoch  uint64
	globalRev    uint64

	cancelGlobal context.CancelFunc
}

// New constructs a Pump over the given Source.
func New(source Source, logger *zap.Logger) *Pump {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pump{
		logger:  logger.Named("configpump"),
		source:  source,
		buckets: make(map[string]*bucketState),
	}
}

// SetGlobalSink installs the callback invoked for global config updates.
func (p *Pump) SetGlobalSink(fn func(*topology.BucketConfig)) {
	p.mu.Lock()
	p.globalSink = fn
	p.mu.Unlock()
}

// Start begins producing global config updates.  If enablePolling is
// false, the pump still serves Publish() calls (e.g. server-pushed CONFIG
// ops fed in from the KV protocol) but does not itself poll for updates.
func (p *Pump) Start(ctx context.Context, enablePolling bool) error {
	if !enablePolling || p.source == nil {
		return nil
	}

	watchCtx, cancel := context.WithCancel(ctx)

	ch, err := p.source.WatchGlobal(watchCtx)
	if err != nil {
		cancel()
		return err
	}

	p.mu.Lock()
	p.cancelGlobal = cancel
	p.mu.Unlock()

	go func() {
		for cfg := range ch {
			p.Publish(cfg)
		}
	}()

	return nil
}

// Subscribe registers a per-bucket sink and, if polling is enabled on this
// pump's source, begins watching that bucket's config independently of
// global delivery.
func (p *Pump) Subscribe(ctx context.Context, sink Sink, enablePolling bool) error {
	p.mu.Lock()
	if _, exists := p.buckets[sink.BucketName()]; exists {
		p.mu.Unlock()
		return nil
	}
	state := &bucketState{sink: sink}
	p.buckets[sink.BucketName()] = state
	p.mu.Unlock()

	if !enablePolling || p.source == nil {
		return nil
	}

	watchCtx, cancel := context.WithCancel(ctx)
	ch, err := p.source.WatchBucket(watchCtx, sink.BucketName())
	if err != nil {
		cancel()
		p.Unsubscribe(sink.BucketName())
		return err
	}

	p.mu.Lock()
	state.cancelWatch = cancel
	p.mu.Unlock()

	go func() {
		for cfg := range ch {
			p.Publish(cfg)
		}
	}()

	return nil
}

// Unsubscribe removes a bucket's sink and stops any watch started for it.
func (p *Pump) Unsubscribe(bucketName string) {
	p.mu.Lock()
	state, exists := p.buckets[bucketName]
	var cancel context.CancelFunc
	if exists {
		delete(p.buckets, bucketName)
		cancel = state.cancelWatch
	}
	p.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

// Publish fans out a freshly received config to the global sink (if the
// config is global) or to the bucket sink whose name it matches,
// discarding revisions that are not strictly greater than the last one
// applied.
func (p *Pump) Publish(cfg *topology.BucketConfig) {
	if cfg.IsGlobal {
		p.publishGlobal(cfg)
		return
	}

	p.mu.Lock()
	state, exists := p.buckets[cfg.BucketName]
	p.mu.Unlock()

	if !exists {
		return
	}

	state.mu.Lock()
	defer state.mu.Unlock()

	if topology.CompareRevision(cfg.RevEpoch, cfg.Rev, state.lastEpoch, state.lastRev) <= 0 {
		p.logger.Debug("discarding non-newer config",
			zap.String("bucket", cfg.BucketName),
			zap.Uint64("epoch", cfg.RevEpoch), zap.Uint64("rev", cfg.Rev))
		return
	}

	state.lastEpoch = cfg.RevEpoch
	state.lastRev = cfg.Rev
	state.sink.ApplyConfig(context.Background(), cfg)
}

func (p *Pump) publishGlobal(cfg *topology.BucketConfig) {
	p.mu.Lock()
	sink := p.globalSink
	if topology.CompareRevision(cfg.RevEpoch, cfg.Rev, p.globalEpoch, p.globalRev) <= 0 {
		p.mu.Unlock()
		return
	}
	p.globalEpoch = cfg.RevEpoch
	p.globalRev = cfg.Rev
	p.mu.Unlock()

	if sink != nil {
		sink(cfg)
	}
}

// Stop cancels any active watches started by Start/Subscribe.
func (p *Pump) Stop() {
	p.mu.Lock()
	cancel := p.cancelGlobal
	watches := make([]context.CancelFunc, 0, len(p.buckets))
	for _, s := range p.buckets {
		if s.cancelWatch != nil {
			watches = append(watches, s.cancelWatch)
		}
	}
	p.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	for _, w := range watches {
		w()
	}
}
