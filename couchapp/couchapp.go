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

// Package couchapp packages CouchApp source trees into design documents, and
// deploys them to CouchDB.
package couchapp

import (
	"errors"
	"io/fs"
	"path/filepath"

	"github.com/spf13/afero"
)

// ArtifactName is the name of the packaged design document, relative to the
// target directory.
const ArtifactName = "couchapp.json"

const dirPerm = 0o755

// Logger is the logging interface used by operations.
type Logger interface {
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
}

type nopLogger struct{}

func (nopLogger) Debugf(string, ...interface{}) {}
func (nopLogger) Infof(string, ...interface{})  {}

// Error wraps any failure of an operation.
type Error struct {
	// Op is the operation that failed, "package" or "deploy".
	Op  string
	Err error
}

func (e *Error) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

func isDir(fsys afero.Fs, path string) (bool, error) {
	fi, err := fsys.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return fi.IsDir(), nil
}

// ArtifactPath returns the location of the packaged design document.
func ArtifactPath(target string) string {
	return filepath.Join(target, ArtifactName)
}
