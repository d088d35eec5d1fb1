/*
Copyright 2022-Present Couchbase, Inc.

Use of this software is governed by the Business Source License included in
the file licenses/BSL-Couchbase.txt.  As of the Change Date specified in that
file, in accordance with the Business Source License, use of this software will
be governed by the Apache License, Version 2.0, included in the file
licenses/APL2.txt.
*/

// Package cbconfig reproduces the wire JSON shapes the cluster and bucket
// config endpoints (ns_server's terse config, and the GCCCP/CCCP payloads
// carried over the KV connection) actually use, so the rest of the core
// can parse real server responses instead of an invented format.
package cbconfig

// TerseNodePortsJson carries the couch-api direct/proxy ports for a node,
// as published in the legacy "nodes" array.
type TerseNodePortsJson struct {
	Direct uint16 `json:"direct,omitempty"`
	Proxy  uint16 `json:"proxy,omitempty"`
}

// TerseExtNodePortsJson is the full per-service port map published for a
// node, both for its default (internal) address and for each alternate
// address entry.
type TerseExtNodePortsJson struct {
	Kv          uint16 `json:"kv,omitempty"`
	Capi        uint16 `json:"capi,omitempty"`
	Mgmt        uint16 `json:"mgmt,omitempty"`
	N1ql        uint16 `json:"n1ql,omitempty"`
	Fts         uint16 `json:"fts,omitempty"`
	Cbas        uint16 `json:"cbas,omitempty"`
	Eventing    uint16 `json:"eventingAdminPort,omitempty"`
	GSI         uint16 `json:"indexHttp,omitempty"`
	KvSsl       uint16 `json:"kvSSL,omitempty"`
	CapiSsl     uint16 `json:"capiSSL,omitempty"`
	MgmtSsl     uint16 `json:"mgmtSSL,omitempty"`
	N1qlSsl     uint16 `json:"n1qlSSL,omitempty"`
	FtsSsl      uint16 `json:"ftsSSL,omitempty"`
	CbasSsl     uint16 `json:"cbasSSL,omitempty"`
	EventingSsl uint16 `json:"eventingSSL,omitempty"`
	GSISsl      uint16 `json:"indexHttps,omitempty"`
}

// TerseExtNodeAltAddressesJson is one alternate-address entry for a node,
// keyed by network type name in TerseExtNodeJson.AltAddresses.
type TerseExtNodeAltAddressesJson struct {
	Ports    *TerseExtNodePortsJson `json:"ports,omitempty"`
	Hostname string                 `json:"hostname,omitempty"`
}

// TerseExtNodeJson is one entry of the "nodesExt" array: a node's default
// services/ports plus any alternate addresses it was configured with.
type TerseExtNodeJson struct {
	Services     *TerseExtNodePortsJson                  `json:"services,omitempty"`
	ThisNode     bool                                    `json:"thisNode,omitempty"`
	Hostname     string                                  `json:"hostname,omitempty"`
	NodeUUID     string                                  `json:"nodeUUID,omitempty"`
	AltAddresses map[string]TerseExtNodeAltAddressesJson `json:"alternateAddresses,omitempty"`
}

// VBucketServerMapJson is the ketama/vbucket routing table for a bucket.
type VBucketServerMapJson struct {
	HashAlgorithm string   `json:"hashAlgorithm"`
	NumReplicas   int      `json:"numReplicas"`
	ServerList    []string `json:"serverList"`
	VBucketMap    [][]int  `json:"vBucketMap,omitempty"`
}

// TerseConfigJson is the shape common to both the global (GCCCP) and
// per-bucket (CCCP) config payloads delivered over the KV connection or
// the HTTP streaming endpoint.
type TerseConfigJson struct {
	Rev                    int                   `json:"rev,omitempty"`
	RevEpoch               int                   `json:"revEpoch,omitempty"`
	Name                   string                `json:"name,omitempty"`
	NodeLocator            string                `json:"nodeLocator,omitempty"`
	UUID                   string                `json:"uuid,omitempty"`
	BucketCapabilities     []string              `json:"bucketCapabilities,omitempty"`
	VBucketServerMap       *VBucketServerMapJson `json:"vBucketServerMap,omitempty"`
	Nodes                  []TerseNodeJson       `json:"nodes,omitempty"`
	NodesExt               []TerseExtNodeJson    `json:"nodesExt,omitempty"`
	ClusterCapabilitiesVer []int                 `json:"clusterCapabilitiesVer,omitempty"`
	ClusterCapabilities    map[string][]string   `json:"clusterCapabilities,omitempty"`
}

// TerseNodeJson is a legacy-form node entry in the "nodes" array.
type TerseNodeJson struct {
	CouchApiBase string              `json:"couchApiBase,omitempty"`
	Hostname     string              `json:"hostname,omitempty"`
	Ports        *TerseNodePortsJson `json:"ports,omitempty"`
}
