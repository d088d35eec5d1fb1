/*
Copyright 2022-Present Couchbase, Inc.

Use of this software is governed by the Business Source License included in
the file licenses/BSL-Couchbase.txt.  As of the Change Date specified in that
file, in accordance with the Business Source License, use of this software will
be governed by the Apache License, Version 2.0, included in the file
licenses/APL2.txt.
*/

package topology

import (
	"testing"

	"github.com/couchbase/gocbclustercore/topology/cbconfig"
)

func TestParseTerseConfigBuildsNodesFromNodesExt(t *testing.T) {
	raw := &cbconfig.TerseConfigJson{
		Rev:         4,
		RevEpoch:    2,
		NodeLocator: "vbucket",
		VBucketServerMap: &cbconfig.VBucketServerMapJson{
			ServerList: []string{"10.0.0.1:11210", "10.0.0.2:11210"},
		},
		NodesExt: []cbconfig.TerseExtNodeJson{
			{
				Hostname: "10.0.0.1",
				NodeUUID: "node-1",
				Services: &cbconfig.TerseExtNodePortsJson{Kv: 11210, N1ql: 8093},
			},
			{
				Hostname: "10.0.0.2",
				NodeUUID: "node-2",
				Services: &cbconfig.TerseExtNodePortsJson{Kv: 11210},
			},
		},
	}

	cfg := ParseTerseConfig(raw, "travel-sample", false, false)

	if cfg.RevEpoch != 2 || cfg.Rev != 4 {
		t.Fatalf("expected revision (2,4), got (%d,%d)", cfg.RevEpoch, cfg.Rev)
	}
	if cfg.NodeLocator != NodeLocatorVBucket {
		t.Fatalf("expected vbucket node locator, got %v", cfg.NodeLocator)
	}
	if cfg.BucketName != "travel-sample" || cfg.IsGlobal {
		t.Fatalf("expected a non-global bucket config named travel-sample, got %+v", cfg)
	}
	if len(cfg.Nodes) != 2 {
		t.Fatalf("expected 2 nodes, got %d", len(cfg.Nodes))
	}

	first := cfg.Nodes[0]
	if first.Adapter.Hostname != "10.0.0.1" || first.Adapter.NodeUUID != "node-1" {
		t.Fatalf("unexpected first node adapter: %+v", first.Adapter)
	}
	if !first.Capabilities.KV {
		t.Fatalf("expected first node to have KV capability")
	}
	if !first.Capabilities.Query {
		t.Fatalf("expected first node to have query capability from its n1ql port")
	}

	second := cfg.Nodes[1]
	if second.Capabilities.Query {
		t.Fatalf("expected second node to have no query capability, it advertised no n1ql port")
	}
}

func TestParseTerseConfigReadsKetamaLocator(t *testing.T) {
	raw := &cbconfig.TerseConfigJson{NodeLocator: "ketama"}
	cfg := ParseTerseConfig(raw, "beer-sample", false, false)

	if cfg.NodeLocator != NodeLocatorKetama {
		t.Fatalf("expected ketama node locator, got %v", cfg.NodeLocator)
	}
}

func TestParseTerseConfigGlobalHasNoBucketName(t *testing.T) {
	raw := &cbconfig.TerseConfigJson{NodeLocator: "vbucket"}
	cfg := ParseTerseConfig(raw, "", true, false)

	if !cfg.IsGlobal || cfg.BucketName != "" {
		t.Fatalf("expected a global config with no bucket name, got %+v", cfg)
	}
}
