// Licensed under the Apache License, Version 2.0 (the "License"); you may not
// use this file except in compliance with the License. You may obtain a copy of
// the License at
//
//  http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS, WITHOUT
// WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. See the
// License for the specific language governing permissions and limitations under
// the License.

// Package couchdb is a small CouchDB HTTP client, covering just what is needed
// to deploy a design document to a single database.
package couchdb

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

const (
	// UserAgent is the name sent in the User-Agent header.
	UserAgent = "couchapp"
	// Version is the client version sent in the User-Agent header.
	Version = "1.0.0"

	typeJSON = "application/json"
)

// Client talks to a single CouchDB database.
type Client struct {
	*http.Client
	dsn       DSN
	userAgent string
}

// Option configures a Client.
type Option func(*options)

type options struct {
	omitEmptyAuth bool
	userAgent     string
}

// OmitEmptyAuth suppresses the Authorization header when neither user nor
// password is set. By default a Basic header is always sent.
func OmitEmptyAuth() Option {
	return func(o *options) {
		o.omitEmptyAuth = true
	}
}

// WithUserAgent overrides the User-Agent header value.
func WithUserAgent(ua string) Option {
	return func(o *options) {
		o.userAgent = ua
	}
}

// New returns a client for the database described by dsn. If client is nil,
// a new *http.Client is used. client itself is never modified.
func New(client *http.Client, dsn DSN, opts ...Option) (*Client, error) {
	if err := dsn.Validate(); err != nil {
		return nil, err
	}
	o := &options{userAgent: UserAgent + "/" + Version}
	for _, opt := range opts {
		opt(o)
	}
	hc := &http.Client{}
	if client != nil {
		*hc = *client
	}
	if dsn.HasCredentials() || !o.omitEmptyAuth {
		auth := &basicAuth{
			token:     basicToken(dsn.User, dsn.Password),
			transport: hc.Transport,
		}
		if auth.transport == nil {
			auth.transport = http.DefaultTransport
		}
		hc.Transport = auth
	}
	return &Client{
		Client:    hc,
		dsn:       dsn,
		userAgent: o.userAgent,
	}, nil
}

// DSN returns the database this client talks to.
func (c *Client) DSN() DSN {
	return c.dsn
}

// Close releases idle connections.
func (c *Client) Close() error {
	c.CloseIdleConnections()
	return nil
}

// basicToken encodes user:pass, or the empty string when both are empty.
func basicToken(user, password string) string {
	if user == "" && password == "" {
		return ""
	}
	return base64.StdEncoding.EncodeToString([]byte(user + ":" + password))
}

type basicAuth struct {
	token     string
	transport http.RoundTripper
}

// RoundTrip sets the Authorization header on outbound requests.
func (a *basicAuth) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.Header.Set("Authorization", "Basic "+a.token)
	return a.transport.RoundTrip(req)
}

// Probe reports whether the database exists.
func (c *Client) Probe(ctx context.Context) (bool, error) {
	res, err := c.do(ctx, ErrDatabaseCheck, http.MethodHead, "", nil)
	if err != nil {
		return false, err
	}
	switch res.StatusCode {
	case http.StatusOK:
		closeBody(res.Body)
		return true, nil
	case http.StatusNotFound:
		closeBody(res.Body)
		return false, nil
	}
	return false, responseError(ErrDatabaseCheck, res)
}

// Create creates the database.
func (c *Client) Create(ctx context.Context) error {
	res, err := c.do(ctx, ErrDatabaseCreate, http.MethodPut, "", nil)
	if err != nil {
		return err
	}
	if res.StatusCode != http.StatusCreated {
		return responseError(ErrDatabaseCreate, res)
	}
	closeBody(res.Body)
	return nil
}

// Fetch retrieves the document with the given ID. A nil document and nil
// error are returned if the document does not exist.
func (c *Client) Fetch(ctx context.Context, docID string) (map[string]interface{}, error) {
	res, err := c.do(ctx, ErrFetch, http.MethodGet, docPath(docID), nil)
	if err != nil {
		return nil, err
	}
	switch res.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		closeBody(res.Body)
		return nil, nil
	default:
		return nil, responseError(ErrFetch, res)
	}
	defer closeBody(res.Body)
	var doc map[string]interface{}
	if err := json.NewDecoder(res.Body).Decode(&doc); err != nil {
		return nil, &Error{
			Kind:   ErrFetch,
			Method: res.Request.Method,
			URL:    res.Request.URL.String(),
			Status: res.StatusCode,
			Err:    err,
		}
	}
	return doc, nil
}

// Upsert stores body, a serialized JSON document, under docID. It returns
// the new revision when the server reports one.
func (c *Client) Upsert(ctx context.Context, docID string, body []byte) (string, error) {
	res, err := c.do(ctx, ErrUpsert, http.MethodPut, docPath(docID), body)
	if err != nil {
		return "", err
	}
	if res.StatusCode != http.StatusCreated {
		return "", responseError(ErrUpsert, res)
	}
	defer closeBody(res.Body)
	if rev, ok := etag(res); ok {
		return rev, nil
	}
	var result struct {
		Rev string `json:"rev"`
	}
	_ = json.NewDecoder(res.Body).Decode(&result)
	return result.Rev, nil
}

// NewRequest returns a request for path, relative to the database URL, with
// the standard headers set.
func (c *Client) NewRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.dsn.databaseURL()+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", typeJSON)
	if body != nil {
		req.Header.Set("Content-Type", typeJSON)
	}
	return req, nil
}

func (c *Client) do(ctx context.Context, kind error, method, path string, body []byte) (*http.Response, error) {
	var r io.Reader
	if body != nil {
		r = bytes.NewReader(body)
	}
	req, err := c.NewRequest(ctx, method, path, r)
	if err != nil {
		return nil, &Error{Kind: kind, Method: method, Err: err}
	}
	trace := ContextClientTrace(ctx)
	if trace != nil {
		trace.httpRequest(req)
		trace.httpRequestBody(req)
	}
	res, err := c.Do(req)
	if trace != nil {
		trace.httpResponse(res)
		trace.httpResponseBody(res)
	}
	if err != nil {
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			err = urlErr.Err
		}
		return nil, &Error{
			Kind:   kind,
			Method: method,
			URL:    req.URL.String(),
			Err:    fmt.Errorf("%w: %w", ErrTransport, err),
		}
	}
	return res, nil
}

func docPath(docID string) string {
	return "/" + EncodeDocID(docID)
}

const (
	prefixDesign = "_design/"
	prefixLocal  = "_local/"
)

// EncodeDocID encodes a document ID for use in a URL path. The _design/ and
// _local/ prefixes are kept intact.
func EncodeDocID(docID string) string {
	for _, prefix := range []string{prefixDesign, prefixLocal} {
		if strings.HasPrefix(docID, prefix) {
			return prefix + encodeDocID(strings.TrimPrefix(docID, prefix))
		}
	}
	return encodeDocID(docID)
}

func encodeDocID(docID string) string {
	return strings.ReplaceAll(url.QueryEscape(docID), "+", "%20")
}

// etag returns the unquoted ETag value, and whether it was found.
func etag(res *http.Response) (string, bool) {
	v := res.Header.Get("ETag")
	if v == "" {
		return "", false
	}
	return strings.Trim(v, `"`), true
}
