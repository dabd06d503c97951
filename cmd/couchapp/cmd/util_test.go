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

package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/spf13/afero"

	"github.com/go-kivik/couchapp/cmd/couchapp/log"
)

const (
	srcDir    = "/app/src"
	targetDir = "/app/target"
)

// cmdTest runs the command line against an in-memory filesystem, and checks
// the exit status and fragments of the output.
type cmdTest struct {
	args   []string
	fs     afero.Fs
	status int
	stdout []string
	stderr []string
	// absent lists fragments which must not appear on either stream.
	absent []string
	check  func(*testing.T, afero.Fs)
}

func (tt *cmdTest) Test(t *testing.T) {
	t.Helper()
	fs := tt.fs
	if fs == nil {
		fs = afero.NewMemMapFs()
	}
	root := rootCmd(log.New(), fs)
	stdout, stderr := &bytes.Buffer{}, &bytes.Buffer{}
	root.cmd.SetOut(stdout)
	root.cmd.SetErr(stderr)
	root.cmd.SetArgs(tt.args)
	status := root.execute(context.Background())
	if tt.status != status {
		t.Errorf("Unexpected exit status. Want %d, got %d\nSTDERR: %s", tt.status, status, stderr)
	}
	for _, want := range tt.stdout {
		if !strings.Contains(stdout.String(), want) {
			t.Errorf("STDOUT does not contain %q:\n%s", want, stdout)
		}
	}
	for _, want := range tt.stderr {
		if !strings.Contains(stderr.String(), want) {
			t.Errorf("STDERR does not contain %q:\n%s", want, stderr)
		}
	}
	for _, unwanted := range tt.absent {
		if strings.Contains(stdout.String()+stderr.String(), unwanted) {
			t.Errorf("Output contains %q:\nSTDOUT: %s\nSTDERR: %s", unwanted, stdout, stderr)
		}
	}
	if tt.check != nil {
		tt.check(t, fs)
	}
}

// sourceTree returns a filesystem holding a small CouchApp under srcDir.
// Extra files may be given as name/content pairs.
func sourceTree(t *testing.T, extra ...string) afero.Fs {
	t.Helper()
	fs := afero.NewMemMapFs()
	files := append([]string{
		"_id", "_design/app\n",
		"language", "javascript\n",
		"couchapp.json", `{"name":"App"}`,
		"rewrites.json", `[]`,
		"README.txt", "Hello\n",
		"views/byType/map.js", "function(doc) { emit(doc.type, null); }",
		"_attachments/index.html", "<html></html>",
	}, extra...)
	for i := 0; i+1 < len(files); i += 2 {
		if err := afero.WriteFile(fs, srcDir+"/"+files[i], []byte(files[i+1]), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return fs
}

// noAuth makes the fake server reject any request carrying an Authorization
// header.
const noAuth = "none"

// couch is a minimal CouchDB, which accepts design documents.
type couch struct {
	mu   sync.Mutex
	auth string
	dbs  map[string]bool
	revs map[string]int
}

func newCouch(t *testing.T, auth string) *httptest.Server {
	t.Helper()
	c := &couch{
		auth: auth,
		dbs:  map[string]bool{},
		revs: map[string]int{},
	}
	r := chi.NewRouter()
	r.Use(c.authenticate)
	r.Head("/{db}", c.headDB)
	r.Put("/{db}", c.putDB)
	r.Get("/{db}/_design/{ddoc}", c.getDoc)
	r.Put("/{db}/_design/{ddoc}", c.putDoc)
	s := httptest.NewServer(r)
	t.Cleanup(s.Close)
	return s
}

func reply(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (c *couch) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, sent := r.Header["Authorization"]
		if (c.auth == noAuth && sent) || (c.auth != "" && c.auth != noAuth && r.Header.Get("Authorization") != c.auth) {
			reply(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized", "reason": "Name or password is incorrect."})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (c *couch) headDB(w http.ResponseWriter, r *http.Request) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.dbs[chi.URLParam(r, "db")] {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (c *couch) putDB(w http.ResponseWriter, r *http.Request) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dbs[chi.URLParam(r, "db")] = true
	reply(w, http.StatusCreated, map[string]bool{"ok": true})
}

func (c *couch) getDoc(w http.ResponseWriter, r *http.Request) {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := "_design/" + chi.URLParam(r, "ddoc")
	rev, ok := c.revs[chi.URLParam(r, "db")+"/"+id]
	if !ok {
		reply(w, http.StatusNotFound, map[string]string{"error": "not_found", "reason": "missing"})
		return
	}
	reply(w, http.StatusOK, map[string]string{"_id": id, "_rev": fmt.Sprintf("%d-fake", rev)})
}

func (c *couch) putDoc(w http.ResponseWriter, r *http.Request) {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := "_design/" + chi.URLParam(r, "ddoc")
	key := chi.URLParam(r, "db") + "/" + id
	c.revs[key]++
	rev := fmt.Sprintf("%d-fake", c.revs[key])
	reply(w, http.StatusCreated, map[string]interface{}{"ok": true, "id": id, "rev": rev})
}
