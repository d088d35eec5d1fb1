/*
Copyright 2022-Present Couchbase, Inc.

Use of this software is governed by the Business Source License included in
the file licenses/BSL-Couchbase.txt.  As of the Change Date specified in that
file, in accordance with the Business Source License, use of this software will
be governed by the Apache License, Version 2.0, included in the file
licenses/APL2.txt.
*/

package node

import "errors"

// ErrRateLimited is the sentinel a ClusterNodeFactory or fetcher returns
// when the server rejects a connect/handshake/fetch with a rate-limit
// status. It is propagated verbatim by every caller in this module --
// bootstrap and bucket attach never absorb it into a generic failure.
var ErrRateLimited = errors.New("rate limited")
