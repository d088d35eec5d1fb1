/*
Copyright 2022-Present Couchbase, Inc.

Use of this software is governed by the Business Source License included in
the file licenses/BSL-Couchbase.txt.  As of the Change Date specified in that
file, in accordance with the Business Source License, use of this software will
be governed by the Apache License, Version 2.0, included in the file
licenses/APL2.txt.
*/

// Package connstr parses a Couchbase connection string into either a list
// of literal node endpoints or a DNS-SRV record name to resolve, using the
// real gocbconnstr syntax rather than a hand-rolled parser. It is a pure,
// non-I/O boundary: resolving a DNS-SRV name is the caller's job (see
// contrib/dnssrv).
package connstr

import (
	"fmt"

	"github.com/couchbaselabs/gocbconnstr"
	"github.com/pkg/errors"

	"github.com/couchbase/gocbclustercore/node"
)

// ErrNoEndpoints is returned when a connection string yields neither a
// literal endpoint nor a DNS-SRV candidate.
var ErrNoEndpoints = errors.New("connection string contains no usable endpoints")

// Result is the outcome of parsing a connection string: either a resolved
// set of literal endpoints, or a single SRV record name the caller must
// resolve (via contrib/dnssrv) before falling back to LiteralEndpoints if
// the lookup comes back empty.
type Result struct {
	// SRVRecord is non-empty when the connection string names a single
	// bare host with no port, making it an SRV lookup candidate.
	SRVRecord string

	// LiteralEndpoints is the endpoint list to use directly, or to fall
	// back to if SRVRecord is set but resolves to nothing.
	LiteralEndpoints []node.Endpoint

	// Bucket is the bucket name embedded in the connection string, if any.
	Bucket string

	// UseTLS reports whether the scheme or an explicit option selected TLS.
	UseTLS bool
}

// Parse parses connStr using gocbconnstr and classifies the result as
// either an SRV candidate or a literal endpoint list, applying defaultTLS
// when the connection string itself does not name a scheme.
func Parse(connStr string, defaultTLS bool) (*Result, error) {
	spec, err := gocbconnstr.Parse(connStr)
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse connection string")
	}

	useTLS := defaultTLS
	switch spec.Scheme {
	case "couchbases", "https":
		useTLS = true
	case "couchbase", "http":
		useTLS = false
	}

	res := &Result{
		Bucket: spec.Bucket,
		UseTLS: useTLS,
	}

	if len(spec.Addresses) == 0 {
		return nil, ErrNoEndpoints
	}

	if len(spec.Addresses) == 1 && spec.Addresses[0].Port == -1 {
		res.SRVRecord = spec.Addresses[0].Host
	}

	for _, addr := range spec.Addresses {
		port := addr.Port
		if port == -1 {
			port = defaultPort(useTLS)
		}
		res.LiteralEndpoints = append(res.LiteralEndpoints, node.Endpoint{
			Host:  addr.Host,
			Port:  uint16(port),
			IsTLS: useTLS,
		})
	}

	return res, nil
}

func defaultPort(useTLS bool) int {
	if useTLS {
		return 11207
	}
	return 11210
}

// SRVServiceName returns the fully qualified DNS-SRV name to look up for
// res.SRVRecord (e.g. "_couchbase._tcp.cluster.example.com"), using the
// "_couchbases" prefix when res.UseTLS is set.
func (r *Result) SRVServiceName() string {
	if r.UseTLS {
		return fmt.Sprintf("_couchbases._tcp.%s", r.SRVRecord)
	}
	return fmt.Sprintf("_couchbase._tcp.%s", r.SRVRecord)
}
