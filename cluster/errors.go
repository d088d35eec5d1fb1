/*
Copyright 2022-Present Couchbase, Inc.

Use of this software is governed by the Business Source License included in
the file licenses/BSL-Couchbase.txt.  As of the Change Date specified in that
file, in accordance with the Business Source License, use of this software will
be governed by the Apache License, Version 2.0, included in the file
licenses/APL2.txt.
*/

package cluster

import (
	"errors"
	"fmt"

	"github.com/couchbase/gocbclustercore/node"
)

// ErrInvalidConnectionString is returned when no endpoints are derivable
// from ClusterOptions.ConnectionString.
var ErrInvalidConnectionString = errors.New("invalid connection string: no endpoints derivable")

// ErrRateLimited is returned verbatim from the server during bootstrap or
// attach and is never absorbed by the retry-the-next-candidate logic.
var ErrRateLimited = node.ErrRateLimited

// ErrDisposed is returned by any public operation called after Dispose.
var ErrDisposed = errors.New("cluster core has been disposed")

// ErrBucketNotConnected signals that the seed node does not support GCCCP
// (pre-6.5 server); global bootstrap falls back to legacy mode rather than
// treating this as a hard failure.
var ErrBucketNotConnected = errors.New("bucket not connected")

// ErrBucketNotFound is returned by get_or_create_bucket when every
// bootstrap-endpoint/bucket-type combination has been exhausted.
type ErrBucketNotFound struct {
	Name string
}

func (e *ErrBucketNotFound) Error() string {
	return fmt.Sprintf("bucket not found: %q", e.Name)
}

// IsRateLimited reports whether err is, or wraps, ErrRateLimited.
func IsRateLimited(err error) bool {
	return errors.Is(err, node.ErrRateLimited)
}
