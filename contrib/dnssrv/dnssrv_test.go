package dnssrv

import (
	"context"
	"net"
	"testing"
)

func TestResolveSRVTranslatesAnswers(t *testing.T) {
	r := &Resolver{
		lookupSRV: func(ctx context.Context, service, proto, name string) (string, []*net.SRV, error) {
			if service != "couchbase" || proto != "tcp" || name != "cluster.example.com" {
				t.Fatalf("unexpected lookup args: %s %s %s", service, proto, name)
			}
			return "", []*net.SRV{
				{Target: "node1.example.com.", Port: 11210},
				{Target: "node2.example.com.", Port: 11210},
			}, nil
		},
	}

	eps, err := r.ResolveSRV(context.Background(), "_couchbase._tcp.cluster.example.com", false)
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if len(eps) != 2 {
		t.Fatalf("expected 2 endpoints, got %d", len(eps))
	}
	if eps[0].Host != "node1.example.com" {
		t.Fatalf("expected trailing dot to be trimmed, got %q", eps[0].Host)
	}
}

func TestResolveSRVNotFoundIsNonFatal(t *testing.T) {
	r := &Resolver{
		lookupSRV: func(ctx context.Context, service, proto, name string) (string, []*net.SRV, error) {
			return "", nil, &net.DNSError{Err: "no such host", IsNotFound: true}
		},
	}

	eps, err := r.ResolveSRV(context.Background(), "_couchbase._tcp.cluster.example.com", false)
	if err != nil {
		t.Fatalf("expected NXDOMAIN to be treated as empty, not an error: %s", err)
	}
	if len(eps) != 0 {
		t.Fatalf("expected no endpoints, got %d", len(eps))
	}
}
