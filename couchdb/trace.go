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

package couchdb

import (
	"bytes"
	"context"
	"io"
	"net/http"
)

// ClientTrace is a set of hooks run at various stages of an outgoing HTTP
// request. Any particular hook may be nil. Hooks receive copies of the
// request or response, so may consume the body freely.
type ClientTrace struct {
	// HTTPResponse is called after the headers of a response are read. The
	// body is nil.
	HTTPResponse func(*http.Response)
	// HTTPResponseBody is like HTTPResponse, but includes the body.
	HTTPResponseBody func(*http.Response)
	// HTTPRequest is called before the request is sent. The body is nil.
	HTTPRequest func(*http.Request)
	// HTTPRequestBody is like HTTPRequest, but includes the body.
	HTTPRequestBody func(*http.Request)
}

type traceKey struct{}

// WithClientTrace returns a child context which carries trace.
func WithClientTrace(ctx context.Context, trace *ClientTrace) context.Context {
	if trace == nil {
		return ctx
	}
	return context.WithValue(ctx, traceKey{}, trace)
}

// ContextClientTrace returns the ClientTrace carried by ctx, or nil.
func ContextClientTrace(ctx context.Context) *ClientTrace {
	trace, _ := ctx.Value(traceKey{}).(*ClientTrace)
	return trace
}

func (t *ClientTrace) httpRequest(r *http.Request) {
	if t.HTTPRequest == nil {
		return
	}
	req := new(http.Request)
	*req = *r
	req.Header = r.Header.Clone()
	req.Body = nil
	t.HTTPRequest(req)
}

func (t *ClientTrace) httpRequestBody(r *http.Request) {
	if t.HTTPRequestBody == nil {
		return
	}
	req := new(http.Request)
	*req = *r
	req.Header = r.Header.Clone()
	if r.Body != nil && r.Body != http.NoBody {
		body, _ := io.ReadAll(r.Body)
		_ = r.Body.Close()
		r.Body = io.NopCloser(bytes.NewReader(body))
		req.Body = io.NopCloser(bytes.NewReader(body))
	}
	t.HTTPRequestBody(req)
}

func (t *ClientTrace) httpResponse(r *http.Response) {
	if t.HTTPResponse == nil || r == nil {
		return
	}
	res := new(http.Response)
	*res = *r
	res.Header = r.Header.Clone()
	res.Body = nil
	t.HTTPResponse(res)
}

func (t *ClientTrace) httpResponseBody(r *http.Response) {
	if t.HTTPResponseBody == nil || r == nil {
		return
	}
	res := new(http.Response)
	*res = *r
	res.Header = r.Header.Clone()
	if r.Body != nil {
		body, _ := io.ReadAll(r.Body)
		_ = r.Body.Close()
		r.Body = io.NopCloser(bytes.NewReader(body))
		res.Body = io.NopCloser(bytes.NewReader(body))
	}
	t.HTTPResponseBody(res)
}
