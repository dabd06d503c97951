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

// Package designdoc builds CouchDB design documents from a CouchApp source
// tree, and reads and writes the resulting JSON artifact.
package designdoc

import (
	"bytes"
	"encoding/json"
	"sort"
)

// Document is a CouchApp design document.
type Document struct {
	ID          string                       `json:"_id"`
	Rev         string                       `json:"_rev,omitempty"`
	Language    string                       `json:"language"`
	Rewrites    json.RawMessage              `json:"rewrites"`
	Views       map[string]map[string]string `json:"views,omitempty"`
	Lists       map[string]string            `json:"lists,omitempty"`
	README      string                       `json:"README"`
	Shows       map[string]string            `json:"shows,omitempty"`
	CouchApp    *Metadata                    `json:"couchapp,omitempty"`
	Attachments map[string]*Attachment       `json:"_attachments,omitempty"`

	// Extra holds any top-level fields not listed above. They are written
	// back unaltered, after the known fields.
	Extra map[string]json.RawMessage `json:"-"`
}

var documentKeys = []string{
	"_id", "_rev", "language", "rewrites", "views", "lists",
	"README", "shows", "couchapp", "_attachments",
}

// Metadata is the embedded couchapp object. The contents of the source
// couchapp.json file are kept in Extra.
type Metadata struct {
	Manifest   []string                   `json:"manifest"`
	Signatures map[string]string          `json:"signatures"`
	Objects    map[string]json.RawMessage `json:"objects"`

	Extra map[string]json.RawMessage `json:"-"`
}

var metadataKeys = []string{"manifest", "signatures", "objects"}

// Attachment is an inline attachment. Data is base64-encoded on the wire.
type Attachment struct {
	ContentType string `json:"content_type"`
	Data        []byte `json:"data"`
}

type document Document

// documentOut mirrors Document for encoding. The function maps are pointers
// so that a nil map is omitted while an empty one is written as {}.
type documentOut struct {
	ID          string                        `json:"_id"`
	Rev         string                        `json:"_rev,omitempty"`
	Language    string                        `json:"language"`
	Rewrites    json.RawMessage               `json:"rewrites"`
	Views       *map[string]map[string]string `json:"views,omitempty"`
	Lists       *map[string]string            `json:"lists,omitempty"`
	README      string                        `json:"README"`
	Shows       *map[string]string            `json:"shows,omitempty"`
	CouchApp    *Metadata                     `json:"couchapp,omitempty"`
	Attachments map[string]*Attachment        `json:"_attachments,omitempty"`
}

func present[M ~map[K]V, K comparable, V any](m M) *M {
	if m == nil {
		return nil
	}
	return &m
}

// MarshalJSON satisfies the json.Marshaler interface. A views, lists or
// shows member is written whenever it is non-nil, even when empty.
func (d Document) MarshalJSON() ([]byte, error) {
	body, err := encode(documentOut{
		ID:          d.ID,
		Rev:         d.Rev,
		Language:    d.Language,
		Rewrites:    d.Rewrites,
		Views:       present(d.Views),
		Lists:       present(d.Lists),
		README:      d.README,
		Shows:       present(d.Shows),
		CouchApp:    d.CouchApp,
		Attachments: d.Attachments,
	})
	if err != nil {
		return nil, err
	}
	return appendExtra(body, d.Extra)
}

// UnmarshalJSON satisfies the json.Unmarshaler interface.
func (d *Document) UnmarshalJSON(data []byte) error {
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}
	extra, err := extraFields(data, documentKeys)
	if err != nil {
		return err
	}
	doc.Extra = extra
	*d = Document(doc)
	return nil
}

type metadata Metadata

// MarshalJSON satisfies the json.Marshaler interface.
func (m Metadata) MarshalJSON() ([]byte, error) {
	if m.Manifest == nil {
		m.Manifest = []string{}
	}
	if m.Signatures == nil {
		m.Signatures = map[string]string{}
	}
	if m.Objects == nil {
		m.Objects = map[string]json.RawMessage{}
	}
	body, err := encode(metadata(m))
	if err != nil {
		return nil, err
	}
	return appendExtra(body, m.Extra)
}

// UnmarshalJSON satisfies the json.Unmarshaler interface.
func (m *Metadata) UnmarshalJSON(data []byte) error {
	var meta metadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return err
	}
	extra, err := extraFields(data, metadataKeys)
	if err != nil {
		return err
	}
	meta.Extra = extra
	*m = Metadata(meta)
	return nil
}

// Marshal returns the pretty-printed JSON encoding of doc. HTML characters
// are not escaped, so function sources stay readable.
func Marshal(doc *Document) ([]byte, error) {
	buf := &bytes.Buffer{}
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Encode returns the compact JSON encoding of doc, suitable for upload.
func Encode(doc *Document) ([]byte, error) {
	return encode(doc)
}

// Unmarshal parses a design document previously produced by Marshal.
func Unmarshal(data []byte) (*Document, error) {
	doc := new(Document)
	if err := json.Unmarshal(data, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func encode(v interface{}) ([]byte, error) {
	buf := &bytes.Buffer{}
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// appendExtra splices the extra fields, sorted by key, into the encoded
// object body.
func appendExtra(body []byte, extra map[string]json.RawMessage) ([]byte, error) {
	if len(extra) == 0 {
		return body, nil
	}
	keys := make([]string, 0, len(extra))
	for k := range extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	buf := bytes.NewBuffer(body[:len(body)-1])
	for _, k := range keys {
		key, err := encode(k)
		if err != nil {
			return nil, err
		}
		if buf.Len() > 1 {
			buf.WriteByte(',')
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(extra[k])
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func extraFields(data []byte, known []string) (map[string]json.RawMessage, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, err
	}
	for _, k := range known {
		delete(fields, k)
	}
	if len(fields) == 0 {
		return nil, nil
	}
	return fields, nil
}
