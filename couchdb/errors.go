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
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
)

// Error kinds. Use errors.Is to test an *Error against them.
var (
	ErrInvalidURI     = errors.New("invalid resource URI")
	ErrDatabaseCheck  = errors.New("database check failed")
	ErrDatabaseCreate = errors.New("database creation failed")
	ErrFetch          = errors.New("document fetch failed")
	ErrUpsert         = errors.New("document update failed")
	ErrTransport      = errors.New("transport failure")
)

// Error is returned by Client methods when CouchDB answers with an unexpected
// status, or could not be reached.
type Error struct {
	// Kind is one of the Err* values above.
	Kind error
	// Method and URL identify the failed request. URL never carries
	// credentials.
	Method string
	URL    string
	// Status is the HTTP status received, or 0 for transport failures.
	Status int
	// Reason is the server-supplied error reason, if any.
	Reason string
	// Err is the underlying cause, if any.
	Err error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.Error())
	if e.Method != "" {
		fmt.Fprintf(&b, ": %s %s", e.Method, e.URL)
	}
	if e.Status != 0 {
		fmt.Fprintf(&b, ": %d %s", e.Status, http.StatusText(e.Status))
	}
	if e.Reason != "" {
		b.WriteString(": " + e.Reason)
	}
	if e.Err != nil {
		b.WriteString(": " + e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// HTTPStatus returns the HTTP status received, or 0.
func (e *Error) HTTPStatus() int {
	return e.Status
}

// responseError builds an *Error from an unexpected response. The body is
// consumed and closed.
func responseError(kind error, res *http.Response) *Error {
	defer closeBody(res.Body)
	e := &Error{
		Kind:   kind,
		Status: res.StatusCode,
	}
	if req := res.Request; req != nil {
		e.Method = req.Method
		e.URL = req.URL.String()
	}
	if e.Method != http.MethodHead && res.ContentLength != 0 {
		if ct, _, _ := mime.ParseMediaType(res.Header.Get("Content-Type")); ct == typeJSON {
			var body struct {
				Error  string `json:"error"`
				Reason string `json:"reason"`
			}
			if json.NewDecoder(res.Body).Decode(&body) == nil {
				e.Reason = body.Reason
				if e.Reason == "" {
					e.Reason = body.Error
				}
			}
		}
	}
	return e
}

func closeBody(body io.ReadCloser) {
	if body == nil {
		return
	}
	_, _ = io.Copy(io.Discard, body)
	_ = body.Close()
}
