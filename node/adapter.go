/*
Copyright 2022-Present Couchbase, Inc.

Use of this software is governed by the Business Source License included in
the file licenses/BSL-Couchbase.txt.  As of the Change Date specified in that
file, in accordance with the Business Source License, use of this software will
be governed by the Apache License, Version 2.0, included in the file
licenses/APL2.txt.
*/

package node

// Adapter is the per-node slice of a cluster-map that a NodeHandle is
// built or refreshed from: the node's advertised hostname, its direct and
// TLS port set, and any alternate-address entries the server published
// for it.  It mirrors the shape of gocbcorex's TerseExtNodeJson closely
// enough to be constructed directly from a parsed wire config.
type Adapter struct {
	Hostname     string
	NodeUUID     string
	Ports        map[string]uint16
	AltAddresses map[string]AltAddress
}

// AltAddress is one alternate-address entry for a node, keyed by network
// type name (e.g. "external") in the owning Adapter.AltAddresses map.
type AltAddress struct {
	Hostname string
	Ports    map[string]uint16
}

// ResolveEndpoint picks the Endpoint a node should be reached at, given a
// network-type hint from a BucketConfig.  An empty networkType selects the
// node's default (internal) hostname/ports; any other value looks up the
// matching entry in AltAddresses and falls back to the default if absent.
func (a *Adapter) ResolveEndpoint(networkType string, kvPortKey string, useTLS bool) Endpoint {
	hostname := a.Hostname
	ports := a.Ports

	if networkType != "" {
		if alt, ok := a.AltAddresses[networkType]; ok {
			hostname = alt.Hostname
			if len(alt.Ports) > 0 {
				ports = alt.Ports
			}
		}
	}

	return Endpoint{
		Host:  hostname,
		Port:  ports[kvPortKey],
		IsTLS: useTLS,
	}
}
