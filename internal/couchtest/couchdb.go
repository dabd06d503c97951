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

// Package couchtest starts disposable CouchDB servers for tests.
package couchtest

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// Image is the CouchDB image started by StartCouchDB.
const Image = "couchdb:3.3.3"

// Admin credentials of the started server.
const (
	AdminUser     = "admin"
	AdminPassword = "abc123"
)

// StartCouchDB starts a CouchDB container, and returns its root URL,
// including admin credentials. The container is terminated when the test
// finishes. The test is skipped unless USETC is set.
func StartCouchDB(t *testing.T) string { //nolint:thelper // Not a helper
	if os.Getenv("USETC") == "" {
		t.Skip("USETC not set, skipping testcontainers")
	}
	ctx := context.Background()
	req := testcontainers.ContainerRequest{
		Image:        Image,
		ExposedPorts: []string{"5984/tcp"},
		WaitingFor:   wait.ForHTTP("/").WithPort("5984/tcp").WithStartupTimeout(120 * time.Second),
		Env: map[string]string{
			"COUCHDB_USER":     AdminUser,
			"COUCHDB_PASSWORD": AdminPassword,
		},
	}
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		_ = container.Terminate(ctx)
	})
	ip, err := container.Host(ctx)
	if err != nil {
		t.Fatal(err)
	}
	mappedPort, err := container.MappedPort(ctx, "5984/tcp")
	if err != nil {
		t.Fatal(err)
	}
	dsn := fmt.Sprintf("http://%s:%s@%s:%s", AdminUser, AdminPassword, ip, mappedPort.Port())
	// Single node setup, to keep the server from logging missing databases.
	put(t, dsn+"/_users")
	return dsn
}

func put(t *testing.T, url string) {
	t.Helper()
	rq, err := http.NewRequest(http.MethodPut, url, nil)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.DefaultClient.Do(rq)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close() // nolint:errcheck
	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated, http.StatusPreconditionFailed:
		return
	}
	t.Fatalf("Failed to create %s: %s", url, resp.Status)
}
