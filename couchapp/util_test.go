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

package couchapp

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/spf13/afero"
)

const (
	srcDir    = "/app/src"
	targetDir = "/app/target"
)

// sourceTree returns a filesystem holding a small, complete CouchApp under
// srcDir. Extra files may be given as name/content pairs.
func sourceTree(t *testing.T, extra ...string) afero.Fs {
	t.Helper()
	fsys := afero.NewMemMapFs()
	files := append([]string{
		"_id", " _design/app\n",
		"language", "javascript\n",
		"couchapp.json", `{"name":"App","description":"test"}`,
		"rewrites.json", `[{"from":"/","to":"index.html"}]`,
		"README.txt", "Hello\n",
		"views/byType/map.js", "function(doc) { emit(doc.type, null); }",
		"lists/all.js", "function(head, req) {}",
		"shows/item.js", "function(doc, req) {}",
		"_attachments/index.html", "<html></html>",
		"_attachments/js/app.js", "console.log('hi');",
	}, extra...)
	for i := 0; i+1 < len(files); i += 2 {
		if err := afero.WriteFile(fsys, srcDir+"/"+files[i], []byte(files[i+1]), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return fsys
}

type logRecorder struct {
	debug []string
	info  []string
}

func (l *logRecorder) Debugf(format string, args ...interface{}) {
	l.debug = append(l.debug, fmt.Sprintf(format, args...))
}

func (l *logRecorder) Infof(format string, args ...interface{}) {
	l.info = append(l.info, fmt.Sprintf(format, args...))
}

// fakeCouch is a minimal in-memory CouchDB, enough to deploy design
// documents to.
type fakeCouch struct {
	mu         sync.Mutex
	dbs        map[string]bool
	docs       map[string]map[string]interface{}
	calls      []string
	bodies     []string
	failCreate bool
}

func newFakeCouch(t *testing.T, dbs ...string) (*fakeCouch, *httptest.Server) {
	t.Helper()
	f := &fakeCouch{
		dbs:  map[string]bool{},
		docs: map[string]map[string]interface{}{},
	}
	for _, db := range dbs {
		f.dbs[db] = true
	}
	r := chi.NewRouter()
	r.Use(f.record)
	r.Head("/{db}", f.headDB)
	r.Put("/{db}", f.putDB)
	r.Get("/{db}/_design/{ddoc}", f.getDoc)
	r.Put("/{db}/_design/{ddoc}", f.putDoc)
	s := httptest.NewServer(r)
	t.Cleanup(s.Close)
	return f, s
}

func (f *fakeCouch) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.calls = append(f.calls, r.Method+" "+r.URL.Path)
		f.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func notFound(w http.ResponseWriter) {
	writeJSON(w, http.StatusNotFound, map[string]string{"error": "not_found", "reason": "missing"})
}

func (f *fakeCouch) headDB(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.dbs[chi.URLParam(r, "db")] {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (f *fakeCouch) putDB(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failCreate {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized", "reason": "You are not a server admin."})
		return
	}
	db := chi.URLParam(r, "db")
	if f.dbs[db] {
		writeJSON(w, http.StatusPreconditionFailed, map[string]string{"error": "file_exists", "reason": "The database could not be created, the file already exists."})
		return
	}
	f.dbs[db] = true
	writeJSON(w, http.StatusCreated, map[string]bool{"ok": true})
}

func docKey(r *http.Request) string {
	return chi.URLParam(r, "db") + "/_design/" + chi.URLParam(r, "ddoc")
}

func (f *fakeCouch) getDoc(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, ok := f.docs[docKey(r)]
	if !ok {
		notFound(w)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (f *fakeCouch) putDoc(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.dbs[chi.URLParam(r, "db")] {
		notFound(w)
		return
	}
	body, err := io.ReadAll(r.Body)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	var doc map[string]interface{}
	if err := json.Unmarshal(body, &doc); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad_request", "reason": err.Error()})
		return
	}
	f.bodies = append(f.bodies, string(body))
	key := docKey(r)
	gen := 1
	if current, ok := f.docs[key]; ok {
		if doc["_rev"] != current["_rev"] {
			writeJSON(w, http.StatusConflict, map[string]string{"error": "conflict", "reason": "Document update conflict."})
			return
		}
		_, _ = fmt.Sscanf(current["_rev"].(string), "%d-", &gen)
		gen++
	} else if _, ok := doc["_rev"]; ok {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "conflict", "reason": "Document update conflict."})
		return
	}
	rev := fmt.Sprintf("%d-fake", gen)
	doc["_rev"] = rev
	f.docs[key] = doc
	w.Header().Set("ETag", `"`+rev+`"`)
	writeJSON(w, http.StatusCreated, map[string]interface{}{"ok": true, "id": doc["_id"], "rev": rev})
}
