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
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"

	"github.com/icza/dyno"
	"github.com/spf13/afero"

	"github.com/go-kivik/couchapp/designdoc"
)

// ResourceFile is the name of the optional resource descriptor, relative to
// the source directory.
const ResourceFile = ".couchapprc"

// ErrNoResource is returned when the resource descriptor lacks env.default.db.
var ErrNoResource = errors.New("env.default.db not set")

// ReadResource returns the resource URI found at env.default.db in the
// source's .couchapprc file. found is false if the file does not exist.
func ReadResource(fsys afero.Fs, source string) (uri string, found bool, err error) {
	data, err := afero.ReadFile(fsys, filepath.Join(source, ResourceFile))
	if errors.Is(err, fs.ErrNotExist) {
		return "", false, nil
	}
	if err != nil {
		return "", false, &designdoc.FileError{Path: ResourceFile, Err: err}
	}
	var rc interface{}
	if err := json.Unmarshal(data, &rc); err != nil {
		return "", false, &designdoc.FileError{Kind: designdoc.ErrMalformedJSON, Path: ResourceFile, Err: err}
	}
	uri, err = dyno.GetString(rc, "env", "default", "db")
	if err != nil {
		return "", false, &designdoc.FileError{Kind: ErrNoResource, Path: ResourceFile, Err: err}
	}
	if uri == "" {
		return "", false, &designdoc.FileError{Kind: ErrNoResource, Path: ResourceFile}
	}
	return uri, true, nil
}

func revision(doc map[string]interface{}) (string, error) {
	rev, err := dyno.GetString(doc, "_rev")
	if err != nil {
		return "", fmt.Errorf("existing document: %w", err)
	}
	return rev, nil
}
