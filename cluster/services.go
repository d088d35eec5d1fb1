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
	"context"

	"go.uber.org/zap"

	"github.com/couchbase/gocbclustercore/bucket"
	"github.com/couchbase/gocbclustercore/configpump"
	"github.com/couchbase/gocbclustercore/node"
	"github.com/couchbase/gocbclustercore/topology"
)

// DNSResolver resolves a qualified DNS-SRV service name to an ordered list
// of endpoints. Resolution failure is never fatal to the caller -- see
// contrib/dnssrv for the real implementation.
type DNSResolver interface {
	ResolveSRV(ctx context.Context, serviceName string, isTLS bool) ([]node.Endpoint, error)
}

// RequestTracer is the optional tracing subsystem collaborator. A nil
// Services.Tracer disables tracing entirely; Start/Stop are fire-and-forget
// from the core's perspective, matching the Logger/Redactor contract.
type RequestTracer interface {
	Start() error
	Stop() error
}

// BootstrapFetcher fetches the bucket-less (GCCCP) cluster-map from an
// explicit seed node, used only during global bootstrap before any
// BucketAttachment exists to own an ongoing ConfigPump subscription. It
// returns ErrBucketNotConnected when the seed does not support GCCCP.
type BootstrapFetcher interface {
	FetchGlobalConfig(ctx context.Context, seed *node.Handle) (*topology.BucketConfig, error)
}

// Services is the dependency-injection bundle passed to New. It replaces
// the source's reflection-based container with an explicit set of
// collaborator references, per the design note on avoiding runtime
// reflection for dependency resolution.
type Services struct {
	Logger *zap.Logger
	Tracer RequestTracer // optional, may be nil

	NodeFactory   node.ClusterNodeFactory
	BucketFactory bucket.Factory
	DNSResolver   DNSResolver

	// BootstrapFetcher fetches the GCCCP map from an explicit seed during
	// global bootstrap.
	BootstrapFetcher BootstrapFetcher

	// BucketFetcher fetches a bucket's first cluster-map from an explicit
	// seed during bucket attach; it is also handed to each BucketAttachment
	// for its own Attach call.
	BucketFetcher bucket.ConfigFetcher

	// PumpSource is the ongoing config delivery mechanism (CCCP polling or
	// HTTP streaming) once at least one node/bucket is live. It is optional;
	// a nil PumpSource disables continuous polling and Publish becomes the
	// only way configs are delivered (e.g. server-pushed CONFIG ops fed in
	// externally).
	PumpSource configpump.Source
}
