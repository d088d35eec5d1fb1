/*
Copyright 2022-Present Couchbase, Inc.

Use of this software is governed by the Business Source License included in
the file licenses/BSL-Couchbase.txt.  As of the Change Date specified in that
file, in accordance with the Business Source License, use of this software will
be governed by the Apache License, Version 2.0, included in the file
licenses/APL2.txt.
*/

package node

// Capabilities is the fixed set of booleans a server advertises during the
// connect handshake for a single node.  It is immutable once the node has
// connected; reconciliation replaces it wholesale rather than mutating it
// in place.
type Capabilities struct {
	KV           bool
	Query        bool
	Search       bool
	Analytics    bool
	Views        bool
	Eventing     bool
	Collections  bool
	PreserveTTL  bool
}

// BucketType is the explicit, ordered enumeration of bucket types the core
// attempts bootstrap/attach against.  Keeping this as an explicit list
// (rather than iterating a generic enum) makes the attempt order part of
// the contract, per the design notes.
type BucketType int

const (
	BucketTypeCouchbase BucketType = iota
	BucketTypeMemcached
)

// AttachOrder is the fixed, contractual order in which bucket types are
// attempted during get_or_create_bucket and rebootstrap.
var AttachOrder = []BucketType{BucketTypeCouchbase, BucketTypeMemcached}

func (t BucketType) String() string {
	switch t {
	case BucketTypeCouchbase:
		return "couchbase"
	case BucketTypeMemcached:
		return "memcached"
	default:
		return "unknown"
	}
}
