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

package errors

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"net/http"
	"testing"

	"gitlab.com/flimzy/testy"

	"github.com/go-kivik/couchapp/couchapp"
	"github.com/go-kivik/couchapp/couchdb"
	"github.com/go-kivik/couchapp/designdoc"
)

func TestInspectErrorCode(t *testing.T) {
	type tt struct {
		err  error
		want int
	}

	tests := testy.NewTable()
	tests.Add("nil", tt{})
	tests.Add("standard", tt{
		err:  errors.New("foo"),
		want: 0,
	})
	tests.Add("codeErr", tt{
		err:  WithCode(errors.New("foo"), 123),
		want: 123,
	})
	tests.Add("wrapped", tt{
		err:  fmt.Errorf("%w", WithCode(errors.New("foo"), 123)),
		want: 123,
	})
	tests.Add("Codef", tt{
		err:  Codef(ErrUsage, "bad flag %s", "x"),
		want: ErrUsage,
	})
	tests.Add("http 404", tt{
		err:  httpErr(404),
		want: ErrNotFound,
	})
	tests.Add("http internal server error", tt{
		err:  httpErr(500),
		want: ErrInternalServerError,
	})
	tests.Add("http 501", tt{
		err:  httpErr(501),
		want: ErrUnknown,
	})
	tests.Add("network error", tt{
		err:  &net.OpError{Op: "dial", Err: errors.New("connection refused")},
		want: ErrUnavailable,
	})
	tests.Add("json syntax", tt{
		err:  &json.SyntaxError{},
		want: ErrProtocol,
	})
	tests.Add("missing source file", tt{
		err: &couchapp.Error{Op: "package", Err: &designdoc.FileError{
			Kind: designdoc.ErrMissingFile,
			Path: "_id",
			Err:  fs.ErrNotExist,
		}},
		want: ErrNoInput,
	})
	tests.Add("malformed source file", tt{
		err: &couchapp.Error{Op: "package", Err: &designdoc.FileError{
			Kind: designdoc.ErrMalformedJSON,
			Path: "couchapp.json",
			Err:  &json.SyntaxError{},
		}},
		want: ErrData,
	})
	tests.Add("duplicate attachment", tt{
		err: &couchapp.Error{Op: "package", Err: &designdoc.FileError{
			Kind: designdoc.ErrDuplicateAttachment,
			Path: "_attachments/caf\u00e9.txt",
		}},
		want: ErrData,
	})
	tests.Add("resource without db", tt{
		err:  &designdoc.FileError{Kind: couchapp.ErrNoResource, Path: ".couchapprc"},
		want: ErrData,
	})
	tests.Add("unreadable file", tt{
		err:  &designdoc.FileError{Path: "views", Err: errors.New("permission denied")},
		want: ErrIO,
	})
	tests.Add("invalid uri", tt{
		err:  fmt.Errorf("%w: database is required", couchdb.ErrInvalidURI),
		want: ErrUsage,
	})
	tests.Add("transport failure", tt{
		err: &couchapp.Error{Op: "deploy", Err: &couchdb.Error{
			Kind: couchdb.ErrDatabaseCheck,
			Err:  fmt.Errorf("%w: %w", couchdb.ErrTransport, errors.New("no route to host")),
		}},
		want: ErrUnavailable,
	})
	tests.Add("conflict", tt{
		err:  &couchapp.Error{Op: "deploy", Err: &couchdb.Error{Kind: couchdb.ErrUpsert, Status: http.StatusConflict}},
		want: ErrConflict,
	})
	tests.Add("unexpected success", tt{
		err:  &couchdb.Error{Kind: couchdb.ErrDatabaseCreate, Status: http.StatusAccepted},
		want: ErrUnknown,
	})
	tests.Add("canceled", tt{
		err:  &couchapp.Error{Op: "package", Err: context.Canceled},
		want: ErrInterrupted,
	})
	tests.Add("cannot create", tt{
		err:  &fs.PathError{Op: "mkdir", Path: "/target", Err: fs.ErrPermission},
		want: ErrCantCreate,
	})
	tests.Add("other path error", tt{
		err:  &fs.PathError{Op: "close", Path: "/target/couchapp.json", Err: fs.ErrClosed},
		want: ErrIO,
	})

	tests.Run(t, func(t *testing.T, tt tt) {
		got := InspectErrorCode(tt.err)
		if got != tt.want {
			t.Errorf("want %d, got %d", tt.want, got)
		}
	})
}

func TestCode(t *testing.T) {
	if err := Code(ErrUsage, nil); err != nil {
		t.Errorf("Expected nil, got %v", err)
	}
	err := Code(ErrData, "bad ", "input")
	testy.Error(t, "bad input", err)
}

type httpErr int

func (e httpErr) Error() string {
	return http.StatusText(int(e))
}

func (e httpErr) HTTPStatus() int {
	return int(e)
}
