/*
Copyright 2022-Present Couchbase, Inc.

Use of this software is governed by the Business Source License included in
the file licenses/BSL-Couchbase.txt.  As of the Change Date specified in that
file, in accordance with the Business Source License, use of this software will
be governed by the Apache License, Version 2.0, included in the file
licenses/APL2.txt.
*/

// Package selector implements random-with-predicate node selection over a
// registry for a given service, optionally scoped to a bucket.  Key/value
// routing is not handled here -- it belongs to the bucket's own
// vbucket/ketama dispatch, outside this core.
package selector

import (
	"errors"
	"fmt"

	"github.com/couchbase/gocbclustercore/node"
	"github.com/couchbase/gocbclustercore/registry"
)

// Service names the cluster service being requested.
type Service int

const (
	ServiceQuery Service = iota
	ServiceSearch
	ServiceAnalytics
	ServiceEventing
	ServiceViews
)

func (s Service) String() string {
	switch s {
	case ServiceQuery:
		return "query"
	case ServiceSearch:
		return "search"
	case ServiceAnalytics:
		return "analytics"
	case ServiceEventing:
		return "eventing"
	case ServiceViews:
		return "views"
	default:
		return "unknown"
	}
}

// ErrServiceNotAvailable is returned when no registered node advertises
// the requested capability at all.
var ErrServiceNotAvailable = errors.New("service not available")

// ErrServiceMissing is returned when the requested service is scoped to a
// bucket and no node owned by that bucket advertises it.
type ErrServiceMissing struct {
	Bucket string
}

func (e *ErrServiceMissing) Error() string {
	return fmt.Sprintf("service missing for bucket %q", e.Bucket)
}

func capabilityFor(svc Service, caps node.Capabilities) bool {
	switch svc {
	case ServiceQuery:
		return caps.Query
	case ServiceSearch:
		return caps.Search
	case ServiceAnalytics:
		return caps.Analytics
	case ServiceEventing:
		return caps.Eventing
	case ServiceViews:
		return caps.Views
	default:
		return false
	}
}

// SelectForService picks a random node advertising the given service.
// The service-to-capability mapping is fixed: only ServiceViews is
// bucket-scoped (it additionally requires the node's owner to be the
// named bucket), matching the legacy CAPI behavior where design-document
// views are served per-bucket. Every other service is cluster-scoped and
// ignores bucket.
func SelectForService(reg *registry.Registry, svc Service, bucket string) (*node.Handle, error) {
	bucketScoped := svc == ServiceViews

	pred := func(h *node.Handle) bool {
		if !capabilityFor(svc, h.Capabilities()) {
			return false
		}
		if bucketScoped {
			owner := h.Owner()
			return owner != nil && owner.BucketName() == bucket
		}
		return true
	}

	h, ok := reg.Random(pred)
	if ok {
		return h, nil
	}

	if bucketScoped {
		return nil, &ErrServiceMissing{Bucket: bucket}
	}
	return nil, ErrServiceNotAvailable
}
