/*
Copyright 2022-Present Couchbase, Inc.

Use of this software is governed by the Business Source License included in
the file licenses/BSL-Couchbase.txt.  As of the Change Date specified in that
file, in accordance with the Business Source License, use of this software will
be governed by the Apache License, Version 2.0, included in the file
licenses/APL2.txt.
*/

package node

import "context"

// BucketSelector is implemented by connections that support the
// SELECT_BUCKET handshake binding a KV connection to a bucket.
// Memcached-bucket connections never need this; a Connection that does
// not implement it is treated as a no-op by Handle.SelectBucket.
type BucketSelector interface {
	SelectBucket(ctx context.Context, bucketName string) error
}

// SelectBucket performs the SELECT_BUCKET handshake on this node's
// connection, if it has KV capability and the connection supports it.
func (h *Handle) SelectBucket(ctx context.Context, bucketName string) error {
	if !h.Capabilities().KV {
		return nil
	}

	if bs, ok := h.Conn.(BucketSelector); ok {
		return bs.SelectBucket(ctx, bucketName)
	}

	return nil
}
