package cluster

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/couchbase/gocbclustercore/bucket"
	"github.com/couchbase/gocbclustercore/node"
	"github.com/couchbase/gocbclustercore/selector"
	"github.com/couchbase/gocbclustercore/topology"
)

type fakeConn struct{ closed bool }

func (c *fakeConn) Close() error { c.closed = true; return nil }

type fakeNodeFactory struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (f *fakeNodeFactory) CreateAndConnect(ctx context.Context, ep node.Endpoint, bt node.BucketType, adapter *node.Adapter) (*node.Handle, error) {
	f.mu.Lock()
	f.calls++
	err := f.err
	f.mu.Unlock()

	if err != nil {
		return nil, err
	}
	return node.NewHandle(ep, bt, &fakeConn{}), nil
}

func (f *fakeNodeFactory) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeBootstrapFetcher struct {
	cfg *topology.BucketConfig
	err error
}

func (f *fakeBootstrapFetcher) FetchGlobalConfig(ctx context.Context, seed *node.Handle) (*topology.BucketConfig, error) {
	return f.cfg, f.err
}

type fakeBucketFetcher struct {
	cfg *topology.BucketConfig
	err error
}

func (f *fakeBucketFetcher) FetchBucketConfig(ctx context.Context, seed *node.Handle, bucketName string) (*topology.BucketConfig, error) {
	return f.cfg, f.err
}

func adapterFor(host string, kv uint16) *node.Adapter {
	return &node.Adapter{Hostname: host, Ports: map[string]uint16{"kv": kv}}
}

func newTestCore(t *testing.T, connStr string, factory *fakeNodeFactory, bootstrapFetcher *fakeBootstrapFetcher, bucketFetcher *fakeBucketFetcher) *Core {
	c, err := New(Options{ConnectionString: connStr}, Services{
		NodeFactory:       factory,
		BootstrapFetcher:  bootstrapFetcher,
		BucketFetcher:     bucketFetcher,
	})
	if err != nil {
		t.Fatalf("unexpected error constructing core: %s", err)
	}
	return c
}

func TestBootstrapGlobalThreeNodes(t *testing.T) {
	factory := &fakeNodeFactory{}
	fetcher := &fakeBootstrapFetcher{cfg: &topology.BucketConfig{
		RevEpoch: 1,
		Rev:      1,
		Nodes: []*topology.NodeConfig{
			{Adapter: adapterFor("10.0.0.1", 11210), Capabilities: node.Capabilities{KV: true, Query: true}},
			{Adapter: adapterFor("10.0.0.2", 11210), Capabilities: node.Capabilities{KV: true, Query: true}},
			{Adapter: adapterFor("10.0.0.3", 11210), Capabilities: node.Capabilities{KV: true, Query: true}},
		},
	}}
	c := newTestCore(t, "couchbase://10.0.0.1", factory, fetcher, nil)

	if err := c.BootstrapGlobal(context.Background()); err != nil {
		t.Fatalf("unexpected error: %s", err)
	}

	if c.Registry().Len() != 3 {
		t.Fatalf("expected 3 nodes in registry, got %d", c.Registry().Len())
	}
	if !c.GlobalConfig().IsGlobal {
		t.Fatalf("expected global config to be marked IsGlobal")
	}

	h, err := c.GetRandomNodeForService(selector.ServiceQuery, "")
	if err != nil {
		t.Fatalf("unexpected error selecting node: %s", err)
	}
	if h == nil {
		t.Fatalf("expected a node to be returned")
	}
}

func TestBootstrapGlobalLegacyFallback(t *testing.T) {
	factory := &fakeNodeFactory{}
	fetcher := &fakeBootstrapFetcher{err: ErrBucketNotConnected}
	c := newTestCore(t, "couchbase://10.0.0.1", factory, fetcher, nil)

	if err := c.BootstrapGlobal(context.Background()); err != nil {
		t.Fatalf("unexpected error: %s", err)
	}

	if c.Registry().Len() != 1 {
		t.Fatalf("expected only the seed node in legacy mode, got %d", c.Registry().Len())
	}
	if c.GlobalConfig() != nil {
		t.Fatalf("expected no global config in legacy mode")
	}
}

func TestGetOrCreateBucketConcurrentDedup(t *testing.T) {
	factory := &fakeNodeFactory{}
	bootstrapFetcher := &fakeBootstrapFetcher{err: ErrBucketNotConnected}
	bucketFetcher := &fakeBucketFetcher{cfg: &topology.BucketConfig{
		BucketName: "travel-sample",
		RevEpoch:   1,
		Rev:        1,
		Nodes: []*topology.NodeConfig{
			{Adapter: adapterFor("10.0.0.1", 11210), Capabilities: node.Capabilities{KV: true}},
		},
	}}
	c := newTestCore(t, "couchbase://10.0.0.1", factory, bootstrapFetcher, bucketFetcher)

	var createCalls int32
	c.svcs.BucketFactory = countingFactory{
		inner: c.svcs.BucketFactory,
		count: &createCalls,
	}

	const n = 8
	results := make([]*bucket.Attachment, n)
	errs := make([]error, n)

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = c.GetOrCreateBucket(context.Background(), "travel-sample")
		}(i)
	}
	wg.Wait()

	if atomic.LoadInt32(&createCalls) != 1 {
		t.Fatalf("expected BucketFactory.Create to be invoked exactly once, got %d", createCalls)
	}

	for i, err := range errs {
		if err != nil {
			t.Fatalf("goroutine %d: unexpected error: %s", i, err)
		}
		if results[i] != results[0] {
			t.Fatalf("goroutine %d: expected the same attachment instance as goroutine 0", i)
		}
	}
}

type countingFactory struct {
	inner bucket.Factory
	count *int32
}

func (f countingFactory) Create(name string, bt node.BucketType) *bucket.Attachment {
	atomic.AddInt32(f.count, 1)
	return f.inner.Create(name, bt)
}

func TestGetOrCreateBucketPropagatesRateLimitedImmediately(t *testing.T) {
	factory := &fakeNodeFactory{err: node.ErrRateLimited}
	bootstrapFetcher := &fakeBootstrapFetcher{err: ErrBucketNotConnected}
	c := newTestCore(t, "couchbase://10.0.0.1", factory, bootstrapFetcher, nil)

	_, err := c.GetOrCreateBucket(context.Background(), "travel-sample")
	if !IsRateLimited(err) {
		t.Fatalf("expected a rate-limited error, got %v", err)
	}

	// one call for the implicit global bootstrap's seed, one for the first
	// attach combination's seed -- never more, since RateLimited must not
	// trigger further combinations.
	if factory.callCount() > 2 {
		t.Fatalf("expected attach to stop at the first combination, got %d factory calls", factory.callCount())
	}

	if _, ok := c.lookupAttachment("travel-sample"); ok {
		t.Fatalf("expected no attachment to be registered after a rate-limited attach")
	}
}

func TestRebootstrapDisposesOldNodesAndReattaches(t *testing.T) {
	factory := &fakeNodeFactory{}
	bootstrapFetcher := &fakeBootstrapFetcher{err: ErrBucketNotConnected}
	bucketFetcher := &fakeBucketFetcher{cfg: &topology.BucketConfig{
		BucketName: "travel-sample",
		RevEpoch:   1,
		Rev:        1,
		Nodes: []*topology.NodeConfig{
			{Adapter: adapterFor("10.0.0.1", 11210), Capabilities: node.Capabilities{KV: true}},
			{Adapter: adapterFor("10.0.0.2", 11210), Capabilities: node.Capabilities{KV: true}},
			{Adapter: adapterFor("10.0.0.3", 11210), Capabilities: node.Capabilities{KV: true}},
		},
	}}
	c := newTestCore(t, "couchbase://10.0.0.1", factory, bootstrapFetcher, bucketFetcher)

	a, err := c.GetOrCreateBucket(context.Background(), "travel-sample")
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}

	oldNodes := a.Nodes()
	if len(oldNodes) != 3 {
		t.Fatalf("expected 3 nodes after initial attach, got %d", len(oldNodes))
	}

	if err := c.Rebootstrap(context.Background(), "travel-sample"); err != nil {
		t.Fatalf("unexpected error from Rebootstrap: %s", err)
	}

	for _, h := range oldNodes {
		if !h.IsDisposed() {
			t.Fatalf("expected node %s from the old view to be disposed", h.Endpoint)
		}
	}

	reattached, ok := c.lookupAttachment("travel-sample")
	if !ok {
		t.Fatalf("expected bucket to be re-registered after rebootstrap")
	}
	if reattached != a {
		t.Fatalf("expected rebootstrap to reuse the same attachment instance")
	}
	if len(reattached.Nodes()) != 3 {
		t.Fatalf("expected 3 nodes in the view after rebootstrap, got %d", len(reattached.Nodes()))
	}
}

func TestDisposeIsIdempotentAndDisposesAllNodes(t *testing.T) {
	factory := &fakeNodeFactory{}
	fetcher := &fakeBootstrapFetcher{cfg: &topology.BucketConfig{
		RevEpoch: 1,
		Rev:      1,
		Nodes: []*topology.NodeConfig{
			{Adapter: adapterFor("10.0.0.1", 11210), Capabilities: node.Capabilities{KV: true}},
			{Adapter: adapterFor("10.0.0.2", 11210), Capabilities: node.Capabilities{KV: true}},
		},
	}}
	c := newTestCore(t, "couchbase://10.0.0.1", factory, fetcher, nil)

	if err := c.BootstrapGlobal(context.Background()); err != nil {
		t.Fatalf("unexpected error: %s", err)
	}

	nodes := c.Registry().Snapshot()
	if len(nodes) != 2 {
		t.Fatalf("expected 2 nodes before dispose, got %d", len(nodes))
	}

	c.Dispose()
	c.Dispose() // must not panic or double-dispose

	for _, h := range nodes {
		if !h.IsDisposed() {
			t.Fatalf("expected node %s to be disposed", h.Endpoint)
		}
	}

	if err := c.checkNotDisposed(); err != ErrDisposed {
		t.Fatalf("expected ErrDisposed after dispose, got %v", err)
	}
}
