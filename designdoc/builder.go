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

package designdoc

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"golang.org/x/text/unicode/norm"
)

// Required source files, relative to the source root.
const (
	FileID       = "_id"
	FileLanguage = "language"
	FileCouchApp = "couchapp.json"
	FileRewrites = "rewrites.json"
	FileReadme   = "README.txt"
)

// Optional source folders, relative to the source root.
const (
	DirViews       = "views"
	DirLists       = "lists"
	DirShows       = "shows"
	DirAttachments = "_attachments"
)

// Logger receives warnings about optional folders that are absent.
type Logger interface {
	Infof(format string, args ...interface{})
}

type nopLogger struct{}

func (nopLogger) Infof(string, ...interface{}) {}

// Builder folds a CouchApp source tree into a Document.
type Builder struct {
	// FS is the filesystem to read from. Defaults to the OS filesystem.
	FS afero.Fs
	// Root is the source directory.
	Root string
	// Log receives warnings. May be nil.
	Log Logger
	// Sign computes attachment signatures. Defaults to MD5.
	Sign SignatureFunc
}

// Build reads the source tree and returns the design document. Any missing
// required file aborts the build.
func (b *Builder) Build() (*Document, error) {
	b.init()
	id, err := b.readString(FileID)
	if err != nil {
		return nil, err
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, &FileError{Kind: ErrEmptyID, Path: FileID}
	}
	language, err := b.readString(FileLanguage)
	if err != nil {
		return nil, err
	}
	meta, err := b.readMetadata()
	if err != nil {
		return nil, err
	}
	rewrites, err := b.readRewrites()
	if err != nil {
		return nil, err
	}
	readme, err := b.readString(FileReadme)
	if err != nil {
		return nil, err
	}

	meta.Manifest = []string{FileCouchApp, FileLanguage, FileReadme, FileRewrites}
	meta.Signatures = map[string]string{}
	meta.Objects = map[string]json.RawMessage{}
	doc := &Document{
		ID:       id,
		Language: strings.TrimSpace(language),
		Rewrites: rewrites,
		README:   readme,
		CouchApp: meta,
	}
	if err := b.buildViews(doc); err != nil {
		return nil, err
	}
	if doc.Lists, err = b.buildFunctions(DirLists, meta); err != nil {
		return nil, err
	}
	if doc.Shows, err = b.buildFunctions(DirShows, meta); err != nil {
		return nil, err
	}
	if err := b.buildAttachments(doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func (b *Builder) init() {
	if b.FS == nil {
		b.FS = afero.NewOsFs()
	}
	if b.Log == nil {
		b.Log = nopLogger{}
	}
	if b.Sign == nil {
		b.Sign = MD5
	}
}

func (b *Builder) path(rel ...string) string {
	return filepath.Join(append([]string{b.Root}, rel...)...)
}

func (b *Builder) isDir(rel string) bool {
	fi, err := b.FS.Stat(b.path(rel))
	return err == nil && fi.IsDir()
}

func (b *Builder) readFile(rel string) ([]byte, error) {
	data, err := afero.ReadFile(b.FS, b.path(rel))
	if err == nil {
		return data, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return nil, &FileError{Kind: ErrMissingFile, Path: rel, Err: err}
	}
	return nil, &FileError{Path: rel, Err: err}
}

func (b *Builder) readString(rel string) (string, error) {
	data, err := b.readFile(rel)
	return string(data), err
}

func (b *Builder) readMetadata() (*Metadata, error) {
	data, err := b.readFile(FileCouchApp)
	if err != nil {
		return nil, err
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, &FileError{Kind: ErrMalformedJSON, Path: FileCouchApp, Err: err}
	}
	if fields == nil {
		return nil, &FileError{Kind: ErrMalformedJSON, Path: FileCouchApp, Err: errors.New("expected a JSON object")}
	}
	for _, k := range metadataKeys {
		delete(fields, k)
	}
	if len(fields) == 0 {
		fields = nil
	}
	return &Metadata{Extra: fields}, nil
}

func (b *Builder) readRewrites() (json.RawMessage, error) {
	data, err := b.readFile(FileRewrites)
	if err != nil {
		return nil, err
	}
	var rules []json.RawMessage
	if err := json.Unmarshal(data, &rules); err != nil {
		return nil, &FileError{Kind: ErrMalformedJSON, Path: FileRewrites, Err: err}
	}
	if rules == nil {
		return nil, &FileError{Kind: ErrMalformedJSON, Path: FileRewrites, Err: errors.New("expected a JSON array")}
	}
	return json.RawMessage(data), nil
}

func (b *Builder) buildViews(doc *Document) error {
	if !b.isDir(DirViews) {
		b.Log.Infof("Warning: No %s folder found", DirViews)
		return nil
	}
	meta := doc.CouchApp
	meta.Manifest = append(meta.Manifest, DirViews+"/")
	entries, err := afero.ReadDir(b.FS, b.path(DirViews))
	if err != nil {
		return &FileError{Path: DirViews, Err: err}
	}
	doc.Views = make(map[string]map[string]string, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		name := entry.Name()
		rel := path.Join(DirViews, name)
		meta.Manifest = append(meta.Manifest, rel+"/")
		view, err := b.readFunctions(rel, meta)
		if err != nil {
			return err
		}
		doc.Views[name] = view
	}
	return nil
}

// buildFunctions reads a flat folder of .js files. It returns nil if the
// folder does not exist.
func (b *Builder) buildFunctions(dir string, meta *Metadata) (map[string]string, error) {
	if !b.isDir(dir) {
		b.Log.Infof("Warning: No %s folder found", dir)
		return nil, nil
	}
	meta.Manifest = append(meta.Manifest, dir+"/")
	return b.readFunctions(dir, meta)
}

func (b *Builder) readFunctions(dir string, meta *Metadata) (map[string]string, error) {
	entries, err := afero.ReadDir(b.FS, b.path(filepath.FromSlash(dir)))
	if err != nil {
		return nil, &FileError{Path: dir, Err: err}
	}
	funcs := make(map[string]string, len(entries))
	for _, entry := range entries {
		if !isJavaScript(entry) {
			continue
		}
		rel := path.Join(dir, entry.Name())
		src, err := b.readString(filepath.FromSlash(rel))
		if err != nil {
			return nil, err
		}
		funcs[strings.TrimSuffix(entry.Name(), ".js")] = src
		meta.Manifest = append(meta.Manifest, rel)
	}
	return funcs, nil
}

func isJavaScript(fi os.FileInfo) bool {
	return !fi.IsDir() && strings.HasSuffix(fi.Name(), ".js")
}

func (b *Builder) buildAttachments(doc *Document) error {
	if !b.isDir(DirAttachments) {
		b.Log.Infof("Warning: No %s folder found", DirAttachments)
		return nil
	}
	root := b.path(DirAttachments)
	doc.Attachments = map[string]*Attachment{}
	sources := map[string]string{}
	return afero.Walk(b.FS, root, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		name := AttachmentName(rel)
		if first, ok := sources[name]; ok {
			return &FileError{
				Kind: ErrDuplicateAttachment,
				Path: path.Join(DirAttachments, name),
				Err:  fmt.Errorf("%q and %q have the same name in Unicode normal form C", first, filepath.ToSlash(rel)),
			}
		}
		sources[name] = filepath.ToSlash(rel)
		data, err := afero.ReadFile(b.FS, p)
		if err != nil {
			return &FileError{Path: path.Join(DirAttachments, name), Err: err}
		}
		doc.Attachments[name] = &Attachment{
			ContentType: ContentType(name, data),
			Data:        data,
		}
		doc.CouchApp.Signatures[name] = b.Sign(data)
		return nil
	})
}

// AttachmentName converts a path relative to the _attachments folder into
// the attachment name: slash separated, in Unicode normal form C.
func AttachmentName(rel string) string {
	return norm.NFC.String(filepath.ToSlash(rel))
}
