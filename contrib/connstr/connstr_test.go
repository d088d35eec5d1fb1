package connstr

import "testing"

func TestParseLiteralEndpointList(t *testing.T) {
	res, err := Parse("couchbase://10.0.0.1,10.0.0.2:12000", false)
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if res.SRVRecord != "" {
		t.Fatalf("expected no SRV candidate for a multi-address connection string")
	}
	if len(res.LiteralEndpoints) != 2 {
		t.Fatalf("expected 2 endpoints, got %d", len(res.LiteralEndpoints))
	}
	if res.LiteralEndpoints[0].Port != 11210 {
		t.Fatalf("expected default KV port to be filled in, got %d", res.LiteralEndpoints[0].Port)
	}
	if res.LiteralEndpoints[1].Port != 12000 {
		t.Fatalf("expected explicit port to be preserved, got %d", res.LiteralEndpoints[1].Port)
	}
}

func TestParseSRVCandidate(t *testing.T) {
	res, err := Parse("couchbases://cluster.example.com", false)
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if res.SRVRecord != "cluster.example.com" {
		t.Fatalf("expected SRV candidate for a single bare host, got %q", res.SRVRecord)
	}
	if !res.UseTLS {
		t.Fatalf("expected couchbases scheme to select TLS")
	}
	if res.SRVServiceName() != "_couchbases._tcp.cluster.example.com" {
		t.Fatalf("unexpected SRV service name: %q", res.SRVServiceName())
	}
}

func TestParseRejectsEmptyAddressList(t *testing.T) {
	if _, err := Parse("", false); err == nil {
		t.Fatalf("expected an error for an empty connection string")
	}
}
