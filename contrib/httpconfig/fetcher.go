/*
Copyright 2022-Present Couchbase, Inc.

Use of this software is governed by the Business Source License included in
the file licenses/BSL-Couchbase.txt.  As of the Change Date specified in that
file, in accordance with the Business Source License, use of this software will
be governed by the Apache License, Version 2.0, included in the file
licenses/APL2.txt.
*/

// Package httpconfig implements the HTTP-streaming carrier's Fetcher: it
// pulls terse cluster-map JSON from the cluster manager's management port
// instead of the in-band KV connection, for use when a node has no usable
// KV connection yet.
package httpconfig

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/pkg/errors"

	"github.com/couchbase/gocbclustercore/topology"
	"github.com/couchbase/gocbclustercore/topology/cbconfig"
)

// FetcherOptions configures a Fetcher.
type FetcherOptions struct {
	HttpClient *http.Client
	Host       string // e.g. "http://10.0.0.1:8091"
	Username   string
	Password   string
	UseTLS     bool
}

// Fetcher implements configpump.Fetcher by polling the cluster manager's
// REST endpoints and parsing the response through
// topology.ParseTerseConfig, the same decoder GCCCP/CCCP payloads use.
type Fetcher struct {
	httpClient *http.Client
	host       string
	username   string
	password   string
	useTLS     bool
}

// NewFetcher constructs a Fetcher. A nil HttpClient gets http.DefaultClient.
func NewFetcher(opts FetcherOptions) *Fetcher {
	httpClient := opts.HttpClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	return &Fetcher{
		httpClient: httpClient,
		host:       opts.Host,
		username:   opts.Username,
		password:   opts.Password,
		useTLS:     opts.UseTLS,
	}
}

// FetchGlobalConfig implements configpump.Fetcher by reading the
// bucket-less node-services listing.
func (f *Fetcher) FetchGlobalConfig(ctx context.Context) (*topology.BucketConfig, error) {
	raw, err := f.getTerseConfig(ctx, "/pools/default/nodeServices")
	if err != nil {
		return nil, errors.Wrap(err, "failed to fetch global config")
	}
	return topology.ParseTerseConfig(raw, "", true, f.useTLS), nil
}

// FetchBucketConfig implements configpump.Fetcher by reading the
// per-bucket terse config.
func (f *Fetcher) FetchBucketConfig(ctx context.Context, bucketName string) (*topology.BucketConfig, error) {
	raw, err := f.getTerseConfig(ctx, fmt.Sprintf("/pools/default/b/%s", bucketName))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to fetch config for bucket %q", bucketName)
	}
	return topology.ParseTerseConfig(raw, bucketName, false, f.useTLS), nil
}

func (f *Fetcher) getTerseConfig(ctx context.Context, path string) (*cbconfig.TerseConfigJson, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.host+path, nil)
	if err != nil {
		return nil, err
	}
	if f.username != "" || f.password != "" {
		req.SetBasicAuth(f.username, f.password)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("unexpected status %d fetching %s", resp.StatusCode, path)
	}

	var raw cbconfig.TerseConfigJson
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, errors.Wrap(err, "failed to decode terse config response")
	}

	return &raw, nil
}
