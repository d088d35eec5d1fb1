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

// ClusterNodeFactory is the sole way nodes are born.  It is an external
// collaborator: the core never dials a socket itself, it asks the factory
// to create-and-connect a node and takes ownership of the result.
type ClusterNodeFactory interface {
	CreateAndConnect(ctx context.Context, ep Endpoint, bt BucketType, adapter *Adapter) (*Handle, error)
}
