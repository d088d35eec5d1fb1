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
	"slices"

	"github.com/couchbase/gocbclustercore/node"
	"github.com/couchbase/gocbclustercore/topology/cbconfig"
)

// ParseTerseConfig converts a server-provided terse config payload into a
// BucketConfig.  bucketName is empty for a global (GCCCP) config.
// useTLS selects whether the "kv"/"kvSSL"-style port keys are read from
// each node's default or TLS port set.
func ParseTerseConfig(raw *cbconfig.TerseConfigJson, bucketName string, isGlobal bool, useTLS bool) *BucketConfig {
	cfg := &BucketConfig{
		BucketName: bucketName,
		RevEpoch:   uint64(raw.RevEpoch),
		Rev:        uint64(raw.Rev),
		EnableTLS:  useTLS,
		IsGlobal:   isGlobal,
	}

	switch raw.NodeLocator {
	case "ketama":
		cfg.NodeLocator = NodeLocatorKetama
	default:
		cfg.NodeLocator = NodeLocatorVBucket
	}

	kvServers := vbucketServerList(raw.VBucketServerMap)

	for _, n := range raw.NodesExt {
		adapter := &node.Adapter{
			Hostname: n.Hostname,
			NodeUUID: n.NodeUUID,
			Ports:    portsFromServices(n.Services),
		}

		if len(n.AltAddresses) > 0 {
			adapter.AltAddresses = make(map[string]node.AltAddress, len(n.AltAddresses))
			for netType, alt := range n.AltAddresses {
				adapter.AltAddresses[netType] = node.AltAddress{
					Hostname: alt.Hostname,
					Ports:    portsFromServices(alt.Ports),
				}
			}
		}

		caps := node.Capabilities{
			KV:        n.Services != nil && (n.Services.Kv != 0 || n.Services.KvSsl != 0),
			Query:     n.Services != nil && (n.Services.N1ql != 0 || n.Services.N1qlSsl != 0),
			Search:    n.Services != nil && (n.Services.Fts != 0 || n.Services.FtsSsl != 0),
			Analytics: n.Services != nil && (n.Services.Cbas != 0 || n.Services.CbasSsl != 0),
			Eventing:  n.Services != nil && (n.Services.Eventing != 0 || n.Services.EventingSsl != 0),
			Views:     n.Services != nil && (n.Services.Capi != 0 || n.Services.CapiSsl != 0),
		}

		if len(kvServers) > 0 {
			hostPort := adapter.ResolveEndpoint("", kvPortKey(useTLS), useTLS)
			caps.KV = caps.KV && slices.Contains(kvServers, hostPort.String())
		}

		cfg.Nodes = append(cfg.Nodes, &NodeConfig{
			Adapter:      adapter,
			Capabilities: caps,
		})
	}

	return cfg
}

func vbucketServerList(m *cbconfig.VBucketServerMapJson) []string {
	if m == nil {
		return nil
	}
	return m.ServerList
}

// KVPortKey returns the cluster-map port-map key used to look up a node's
// KV port, selecting the TLS or plaintext key.
func KVPortKey(useTLS bool) string {
	return kvPortKey(useTLS)
}

func kvPortKey(useTLS bool) string {
	if useTLS {
		return "kvSSL"
	}
	return "kv"
}

func portsFromServices(svc *cbconfig.TerseExtNodePortsJson) map[string]uint16 {
	out := make(map[string]uint16)
	if svc == nil {
		return out
	}

	out["kv"] = svc.Kv
	out["kvSSL"] = svc.KvSsl
	out["capi"] = svc.Capi
	out["capiSSL"] = svc.CapiSsl
	out["mgmt"] = svc.Mgmt
	out["mgmtSSL"] = svc.MgmtSsl
	out["n1ql"] = svc.N1ql
	out["n1qlSSL"] = svc.N1qlSsl
	out["fts"] = svc.Fts
	out["ftsSSL"] = svc.FtsSsl
	out["cbas"] = svc.Cbas
	out["cbasSSL"] = svc.CbasSsl
	out["eventingAdminPort"] = svc.Eventing
	out["eventingSSL"] = svc.EventingSsl
	out["indexHttp"] = svc.GSI
	out["indexHttps"] = svc.GSISsl

	return out
}
