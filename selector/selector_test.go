package selector

import (
	"errors"
	"testing"

	"github.com/couchbase/gocbclustercore/node"
	"github.com/couchbase/gocbclustercore/registry"
)

type fakeConn struct{}

func (fakeConn) Close() error { return nil }

type fakeOwner string

func (o fakeOwner) BucketName() string { return string(o) }

func TestSelectForServiceClusterScoped(t *testing.T) {
	reg := registry.New(nil)

	h := node.NewHandle(node.Endpoint{Host: "10.0.0.1", Port: 8093}, node.BucketTypeCouchbase, fakeConn{})
	h.SetCapabilities(node.Capabilities{Query: true})
	reg.Add(h)

	got, err := SelectForService(reg, ServiceQuery, "")
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if got != h {
		t.Fatalf("expected to select the only matching node")
	}

	if _, err := SelectForService(reg, ServiceAnalytics, ""); !errors.Is(err, ErrServiceNotAvailable) {
		t.Fatalf("expected ErrServiceNotAvailable, got %v", err)
	}
}

func TestSelectForServiceViewsIsBucketScoped(t *testing.T) {
	reg := registry.New(nil)

	owned := node.NewHandle(node.Endpoint{Host: "10.0.0.1", Port: 8092}, node.BucketTypeCouchbase, fakeConn{})
	owned.SetCapabilities(node.Capabilities{Views: true})
	owned.Assign(fakeOwner("travel-sample"))
	reg.Add(owned)

	unowned := node.NewHandle(node.Endpoint{Host: "10.0.0.2", Port: 8092}, node.BucketTypeCouchbase, fakeConn{})
	unowned.SetCapabilities(node.Capabilities{Views: true})
	reg.Add(unowned)

	got, err := SelectForService(reg, ServiceViews, "travel-sample")
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if got != owned {
		t.Fatalf("expected to select the node owned by the requested bucket")
	}

	_, err = SelectForService(reg, ServiceViews, "other-bucket")
	var missing *ErrServiceMissing
	if !errors.As(err, &missing) || missing.Bucket != "other-bucket" {
		t.Fatalf("expected ErrServiceMissing for other-bucket, got %v", err)
	}
}
