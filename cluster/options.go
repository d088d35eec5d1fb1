/*
Copyright 2022-Present Couchbase, Inc.

Use of this software is governed by the Business Source License included in
the file licenses/BSL-Couchbase.txt.  As of the Change Date specified in that
file, in accordance with the Business Source License, use of this software will
be governed by the Apache License, Version 2.0, included in the file
licenses/APL2.txt.
*/

package cluster

import "time"

// Options mirrors the subset of ClusterOptions this core recognizes.
// Unrecognized fields in a caller's broader configuration are simply not
// represented here -- this is a library, not a CLI, so there is no
// viper/cobra layer; the connection-string sub-language is the one place a
// real parser (contrib/connstr, wrapping gocbconnstr) is used instead of
// plain struct fields.
type Options struct {
	// ConnectionString is required; see contrib/connstr for its grammar.
	ConnectionString string

	EnableTLS           bool
	EnableConfigPolling bool

	ThresholdOptions     TracingOptions
	OrphanTracingOptions TracingOptions

	// ConfigPollInterval is the steady-state delay PumpSource uses between
	// successful polls when EnableConfigPolling is set.
	ConfigPollInterval time.Duration
}

// TracingOptions configures one of the two optional tracing subsystems
// named in spec: threshold logging and orphan response tracing. Both share
// the same shape: an enable bit and an optional listener.
type TracingOptions struct {
	Enabled  bool
	Listener RequestTracer
}

// ResolvedConfigPollInterval returns the configured poll interval, or a
// sensible default if unset. A composition root wires this into the
// PumpSource it builds (e.g. configpump.NewCCCPSource) before passing
// Services to New.
func (o Options) ResolvedConfigPollInterval() time.Duration {
	if o.ConfigPollInterval > 0 {
		return o.ConfigPollInterval
	}
	return 2500 * time.Millisecond
}
