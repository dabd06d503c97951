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


// Package gotmpl renders results through a user-supplied Go template.
package gotmpl

import (
	"encoding/json"
	"errors"
	"io"
	"text/template"

	"github.com/go-kivik/couchapp/cmd/couchapp/output"
)

// format holds the template given as the argument to -f go-template=...
type format template.Template

var (
	_ output.Format    = (*format)(nil)
	_ output.FormatArg = (*format)(nil)
)

// New returns a go-template formatter. Keys missing from the result render
// as their zero value.
func New() output.Format {
	return (*format)(template.New("go-template").Option("missingkey=zero"))
}

func (*format) Required() bool { return true }

func (f *format) Arg(text string) error {
	_, err := (*template.Template)(f).Parse(text)
	return err
}

// Output decodes the JSON encoding of the result, so templates address
// fields by their JSON names.
func (f *format) Output(w io.Writer, r io.Reader) error {
	raw, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	if len(raw) == 0 {
		return errors.New("no result to format")
	}
	var result interface{}
	if err := json.Unmarshal(raw, &result); err != nil {
		return err
	}
	return (*template.Template)(f).Execute(w, result)
}
