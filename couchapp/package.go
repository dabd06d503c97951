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
	"context"

	"github.com/spf13/afero"

	"github.com/go-kivik/couchapp/designdoc"
)

const filePerm = 0o644

// Packager builds a design document from a source tree and writes it to the
// target directory.
type Packager struct {
	// FS defaults to the OS filesystem.
	FS  afero.Fs
	Log Logger
	// Signature defaults to designdoc.MD5.
	Signature designdoc.SignatureFunc
}

func (p *Packager) init() {
	if p.FS == nil {
		p.FS = afero.NewOsFs()
	}
	if p.Log == nil {
		p.Log = nopLogger{}
	}
}

// Package builds the design document found under source, and writes it to
// target/couchapp.json. If source does not exist, nothing is done, and a nil
// document is returned.
func (p *Packager) Package(ctx context.Context, source, target string) (*designdoc.Document, error) {
	p.init()
	if err := ctx.Err(); err != nil {
		return nil, &Error{Op: "package", Err: err}
	}
	ok, err := isDir(p.FS, source)
	if err != nil {
		return nil, &Error{Op: "package", Err: err}
	}
	if !ok {
		p.Log.Infof("Source directory %s not found, nothing to package", source)
		return nil, nil
	}
	if err := p.FS.MkdirAll(target, dirPerm); err != nil {
		return nil, &Error{Op: "package", Err: err}
	}
	doc, err := p.Build(source)
	if err != nil {
		return nil, err
	}
	data, err := designdoc.Marshal(doc)
	if err != nil {
		return nil, &Error{Op: "package", Err: err}
	}
	p.Log.Debugf("Design document:\n%s", data)
	path := ArtifactPath(target)
	if err := afero.WriteFile(p.FS, path, data, filePerm); err != nil {
		return nil, &Error{Op: "package", Err: err}
	}
	p.Log.Infof("Packaged %s to %s", doc.ID, path)
	return doc, nil
}

// Build builds the design document found under source, without writing
// anything.
func (p *Packager) Build(source string) (*designdoc.Document, error) {
	p.init()
	b := &designdoc.Builder{
		FS:   p.FS,
		Root: source,
		Log:  p.Log,
		Sign: p.Signature,
	}
	doc, err := b.Build()
	if err != nil {
		return nil, &Error{Op: "package", Err: err}
	}
	return doc, nil
}
