/*
Copyright 2022-Present Couchbase, Inc.

Use of this software is governed by the Business Source License included in
the file licenses/BSL-Couchbase.txt.  As of the Change Date specified in that
file, in accordance with the Business Source License, use of this software will
be governed by the Apache License, Version 2.0, included in the file
licenses/APL2.txt.
*/

// Package dnssrv resolves a Couchbase DNS-SRV record into a list of node
// endpoints. It is an external collaborator: resolution failure is never
// fatal to the caller, only logged and treated as an empty result.
package dnssrv

import (
	"context"
	"net"
	"strings"

	"github.com/couchbase/gocbclustercore/node"
)

// Resolver implements cluster.DNSResolver using the standard library's SRV
// lookup.
type Resolver struct {
	// lookupSRV is swappable in tests; defaults to net.DefaultResolver.LookupSRV.
	lookupSRV func(ctx context.Context, service, proto, name string) (string, []*net.SRV, error)
}

// New constructs a Resolver backed by net.DefaultResolver.
func New() *Resolver {
	return &Resolver{lookupSRV: net.DefaultResolver.LookupSRV}
}

// ResolveSRV resolves the given service name (already qualified, e.g.
// "_couchbase._tcp.cluster.example.com") to an ordered list of endpoints.
// It returns an empty, non-error result for NXDOMAIN/no-records responses.
func (r *Resolver) ResolveSRV(ctx context.Context, serviceName string, isTLS bool) ([]node.Endpoint, error) {
	service, proto, name, err := splitServiceName(serviceName)
	if err != nil {
		return nil, err
	}

	_, addrs, err := r.lookupSRV(ctx, service, proto, name)
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, err
	}

	out := make([]node.Endpoint, 0, len(addrs))
	for _, a := range addrs {
		out = append(out, node.Endpoint{
			Host:  strings.TrimSuffix(a.Target, "."),
			Port:  a.Port,
			IsTLS: isTLS,
		})
	}

	return out, nil
}

func splitServiceName(serviceName string) (service, proto, name string, err error) {
	parts := strings.SplitN(serviceName, ".", 3)
	if len(parts) != 3 {
		return "", "", "", errInvalidServiceName(serviceName)
	}
	return strings.TrimPrefix(parts[0], "_"), strings.TrimPrefix(parts[1], "_"), parts[2], nil
}

type errInvalidServiceName string

func (e errInvalidServiceName) Error() string {
	return "invalid DNS-SRV service name: " + string(e)
}

func isNotFound(err error) bool {
	dnsErr, ok := err.(*net.DNSError)
	return ok && dnsErr.IsNotFound
}
