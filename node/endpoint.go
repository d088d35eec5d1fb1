/*
Copyright 2022-Present Couchbase, Inc.

Use of this software is governed by the Business Source License included in
the file licenses/BSL-Couchbase.txt.  As of the Change Date specified in that
file, in accordance with the Business Source License, use of this software will
be governed by the Apache License, Version 2.0, included in the file
licenses/APL2.txt.
*/

// Package node defines the in-process representation of a single server
// node: its address, its advertised capabilities, and the mutable handle
// the rest of the core uses to track ownership of it.
package node

import "fmt"

// Endpoint identifies a single server node by address.  It is a value
// type, comparable by exact equality, and is used directly as a
// registry map key.
type Endpoint struct {
	Host  string
	Port  uint16
	IsTLS bool
}

// String returns the host:port form of the endpoint, ignoring the TLS bit.
func (e Endpoint) String() string {
	return fmt.Sprintf("%s:%d", e.Host, e.Port)
}

// EqualHost reports whether two endpoints share the same host, regardless
// of port or TLS setting.  Pruning during reconciliation intentionally
// compares on host only, to avoid churn when only alternate-address ports
// differ between cluster-map revisions.
func (e Endpoint) EqualHost(other Endpoint) bool {
	return e.Host == other.Host
}
