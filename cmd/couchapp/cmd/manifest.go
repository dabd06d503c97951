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

package cmd

import (
	"github.com/spf13/cobra"

	"github.com/go-kivik/couchapp/cmd/couchapp/output"
)

type manifest struct {
	*root
}

func manifestCmd(r *root) *cobra.Command {
	c := &manifest{
		root: r,
	}
	return &cobra.Command{
		Use:   "manifest",
		Short: "Print the manifest and signatures of the design document",
		Long:  "Build the design document in memory, and print its id, manifest, and attachment signatures. Nothing is written.",
		Args:  cobra.NoArgs,
		RunE:  c.RunE,
	}
}

func (c *manifest) RunE(*cobra.Command, []string) error {
	p, err := c.packager()
	if err != nil {
		return err
	}
	doc, err := p.Build(c.opts.Source)
	if err != nil {
		return err
	}
	data := struct {
		ID         string            `json:"_id"`
		Manifest   []string          `json:"manifest"`
		Signatures map[string]string `json:"signatures"`
	}{
		ID:         doc.ID,
		Manifest:   doc.CouchApp.Manifest,
		Signatures: doc.CouchApp.Signatures,
	}
	if data.Manifest == nil {
		data.Manifest = []string{}
	}
	if data.Signatures == nil {
		data.Signatures = map[string]string{}
	}
	format := `{{ .ID }}
{{ range .Manifest }}  {{ . }}
{{ end }}`
	return c.fmt.Output(output.NewResult(data, format))
}
