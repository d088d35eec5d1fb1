package configpump

import (
	"context"
	"sync"
	"testing"

	"github.com/couchbase/gocbclustercore/topology"
)

type fakeSink struct {
	name string

	mu      sync.Mutex
	applied []*topology.BucketConfig
}

func (s *fakeSink) BucketName() string { return s.name }

func (s *fakeSink) ApplyConfig(ctx context.Context, cfg *topology.BucketConfig) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.applied = append(s.applied, cfg)
}

func (s *fakeSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.applied)
}

func (s *fakeSink) last() *topology.BucketConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.applied) == 0 {
		return nil
	}
	return s.applied[len(s.applied)-1]
}

type noopSource struct{}

func (noopSource) WatchGlobal(ctx context.Context) (<-chan *topology.BucketConfig, error) {
	ch := make(chan *topology.BucketConfig)
	return ch, nil
}

func (noopSource) WatchBucket(ctx context.Context, bucketName string) (<-chan *topology.BucketConfig, error) {
	ch := make(chan *topology.BucketConfig)
	return ch, nil
}

func TestPublishDeliversToMatchingBucketSink(t *testing.T) {
	p := New(noopSource{}, nil)
	sink := &fakeSink{name: "travel-sample"}

	if err := p.Subscribe(context.Background(), sink, false); err != nil {
		t.Fatalf("unexpected error: %s", err)
	}

	p.Publish(&topology.BucketConfig{BucketName: "travel-sample", RevEpoch: 1, Rev: 1})

	if sink.count() != 1 {
		t.Fatalf("expected 1 applied config, got %d", sink.count())
	}
}

func TestPublishDiscardsNonNewerRevision(t *testing.T) {
	p := New(noopSource{}, nil)
	sink := &fakeSink{name: "travel-sample"}
	if err := p.Subscribe(context.Background(), sink, false); err != nil {
		t.Fatalf("unexpected error: %s", err)
	}

	p.Publish(&topology.BucketConfig{BucketName: "travel-sample", RevEpoch: 1, Rev: 5})
	p.Publish(&topology.BucketConfig{BucketName: "travel-sample", RevEpoch: 1, Rev: 3})
	p.Publish(&topology.BucketConfig{BucketName: "travel-sample", RevEpoch: 1, Rev: 5})

	if sink.count() != 1 {
		t.Fatalf("expected stale/duplicate revisions to be discarded, got %d applied", sink.count())
	}
	if sink.last().Rev != 5 {
		t.Fatalf("expected last applied rev 5, got %d", sink.last().Rev)
	}
}

func TestPublishRoutesGlobalConfigToGlobalSinkOnly(t *testing.T) {
	p := New(noopSource{}, nil)
	bucketSink := &fakeSink{name: "travel-sample"}
	if err := p.Subscribe(context.Background(), bucketSink, false); err != nil {
		t.Fatalf("unexpected error: %s", err)
	}

	var globalCount int
	var mu sync.Mutex
	p.SetGlobalSink(func(cfg *topology.BucketConfig) {
		mu.Lock()
		globalCount++
		mu.Unlock()
	})

	p.Publish(&topology.BucketConfig{IsGlobal: true, RevEpoch: 1, Rev: 1})

	mu.Lock()
	defer mu.Unlock()
	if globalCount != 1 {
		t.Fatalf("expected global sink to be invoked once, got %d", globalCount)
	}
	if bucketSink.count() != 0 {
		t.Fatalf("expected bucket sink to receive nothing for a global config")
	}
}

func TestUnsubscribeStopsFurtherDelivery(t *testing.T) {
	p := New(noopSource{}, nil)
	sink := &fakeSink{name: "travel-sample"}
	if err := p.Subscribe(context.Background(), sink, false); err != nil {
		t.Fatalf("unexpected error: %s", err)
	}

	p.Publish(&topology.BucketConfig{BucketName: "travel-sample", RevEpoch: 1, Rev: 1})
	p.Unsubscribe("travel-sample")
	p.Publish(&topology.BucketConfig{BucketName: "travel-sample", RevEpoch: 1, Rev: 2})

	if sink.count() != 1 {
		t.Fatalf("expected delivery to stop after unsubscribe, got %d applied", sink.count())
	}
}

func TestSubscribeIsIdempotentForSameBucketName(t *testing.T) {
	p := New(noopSource{}, nil)
	first := &fakeSink{name: "travel-sample"}
	second := &fakeSink{name: "travel-sample"}

	if err := p.Subscribe(context.Background(), first, false); err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if err := p.Subscribe(context.Background(), second, false); err != nil {
		t.Fatalf("unexpected error: %s", err)
	}

	p.Publish(&topology.BucketConfig{BucketName: "travel-sample", RevEpoch: 1, Rev: 1})

	if first.count() != 1 {
		t.Fatalf("expected the first-registered sink to keep receiving deliveries")
	}
	if second.count() != 0 {
		t.Fatalf("expected the second Subscribe call to be a no-op")
	}
}

func TestConcurrentPublishSerializesPerBucket(t *testing.T) {
	p := New(noopSource{}, nil)
	sink := &fakeSink{name: "travel-sample"}
	if err := p.Subscribe(context.Background(), sink, false); err != nil {
		t.Fatalf("unexpected error: %s", err)
	}

	var wg sync.WaitGroup
	for i := uint64(1); i <= 50; i++ {
		wg.Add(1)
		go func(rev uint64) {
			defer wg.Done()
			p.Publish(&topology.BucketConfig{BucketName: "travel-sample", RevEpoch: 1, Rev: rev})
		}(i)
	}
	wg.Wait()

	if sink.last().Rev != 50 {
		t.Fatalf("expected highest revision 50 to have been applied last, got %d", sink.last().Rev)
	}
}
