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

	"github.com/go-kivik/couchapp/couchapp"
)

type push struct {
	*root
}

func pushCmd(r *root) *cobra.Command {
	c := &push{
		root: r,
	}
	return &cobra.Command{
		Use:   "push [url]",
		Short: "Package and deploy",
		Long:  "Build the design document, then upload it. See deploy for how the database is selected.",
		Args:  cobra.MaximumNArgs(1),
		RunE:  c.RunE,
	}
}

func (c *push) RunE(cmd *cobra.Command, _ []string) error {
	if c.skip("push") {
		return nil
	}
	p, err := c.packager()
	if err != nil {
		return err
	}
	doc, err := p.Package(cmd.Context(), c.opts.Source, c.opts.Target)
	if err != nil {
		return err
	}
	if doc == nil {
		return nil
	}
	result, err := c.deployer().Deploy(cmd.Context(), couchapp.DeployOptions{
		Source: c.opts.Source,
		Target: c.opts.Target,
		DSN:    c.opts.DSN,
	})
	if err != nil {
		return err
	}
	return c.outputResult(result)
}
