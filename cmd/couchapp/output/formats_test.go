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

package output_test

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"gitlab.com/flimzy/testy"

	"github.com/go-kivik/couchapp/cmd/couchapp/output"
	"github.com/go-kivik/couchapp/cmd/couchapp/output/friendly"
	"github.com/go-kivik/couchapp/cmd/couchapp/output/gotmpl"
	"github.com/go-kivik/couchapp/cmd/couchapp/output/json"
	"github.com/go-kivik/couchapp/cmd/couchapp/output/yaml"
)

type result struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func TestFormats(t *testing.T) {
	type tt struct {
		format output.Format
		arg    string
		r      func() io.Reader
		want   string
		err    string
	}

	data := result{Name: "app", Count: 2}
	plain := func() io.Reader { return output.NewResult(data, "") }
	friendlyReader := func() io.Reader {
		return output.NewResult(data, "{{ .Name }} has {{ .Count }} items")
	}

	tests := testy.NewTable()
	tests.Add("friendly template", tt{
		format: friendly.New(),
		r:      friendlyReader,
		want:   "app has 2 items",
	})
	tests.Add("friendly raw", tt{
		format: friendly.New(),
		r:      func() io.Reader { return strings.NewReader("raw text") },
		want:   "raw text",
	})
	tests.Add("json", tt{
		format: json.New(),
		r:      friendlyReader,
		want:   "{\n  \"count\": 2,\n  \"name\": \"app\"\n}\n",
	})
	tests.Add("json invalid input", tt{
		format: json.New(),
		r:      func() io.Reader { return strings.NewReader("not json") },
		err:    "invalid character 'o' in literal null (expecting 'u')",
	})
	tests.Add("yaml", tt{
		format: yaml.New(),
		r:      plain,
		want:   "count: 2\nname: app\n",
	})
	tests.Add("go template, missing key", tt{
		format: gotmpl.New(),
		arg:    "{{ .name }}:{{ .missing }}",
		r:      plain,
		want:   "app:<no value>",
	})
	tests.Add("go template, empty input", tt{
		format: gotmpl.New(),
		arg:    "{{ .name }}",
		r:      func() io.Reader { return strings.NewReader("") },
		err:    "no result to format",
	})
	tests.Add("go template", tt{
		format: gotmpl.New(),
		arg:    "{{ .name }}={{ .count }}",
		r:      plain,
		want:   "app=2",
	})

	tests.Run(t, func(t *testing.T, tt tt) {
		if tt.arg != "" {
			if err := tt.format.(output.FormatArg).Arg(tt.arg); err != nil {
				t.Fatal(err)
			}
		}
		buf := &bytes.Buffer{}
		err := tt.format.Output(buf, tt.r())
		if d := testy.DiffText(tt.want, buf.String()); d != nil {
			t.Error(d)
		}
		testy.Error(t, tt.err, err)
	})
}
