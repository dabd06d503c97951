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


package output

import (
	"bytes"
	"encoding/json"
	"io"
	"text/template"
)

// Describer is implemented by results that can render themselves for the
// friendly format.
type Describer interface {
	Describe(io.Writer) error
}

// Result is the outcome of a command. Read yields its JSON encoding for the
// machine formats, while Describe renders it through a text template.
type Result struct {
	data interface{}
	text string
	body *bytes.Reader
}

var (
	_ io.Reader = (*Result)(nil)
	_ Describer = (*Result)(nil)
)

// NewResult returns a result for data. text is the template used by the
// friendly format; it is parsed on first use.
func NewResult(data interface{}, text string) *Result {
	return &Result{data: data, text: text}
}

func (r *Result) Read(p []byte) (int, error) {
	if r.body == nil {
		raw, err := json.Marshal(r.data)
		if err != nil {
			return 0, err
		}
		r.body = bytes.NewReader(raw)
	}
	return r.body.Read(p)
}

// Describe executes the friendly template against the result data.
func (r *Result) Describe(w io.Writer) error {
	tmpl, err := template.New("result").Parse(r.text)
	if err != nil {
		return err
	}
	return tmpl.Execute(w, r.data)
}
