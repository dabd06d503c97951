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
)

type pkg struct {
	*root
}

func packageCmd(r *root) *cobra.Command {
	c := &pkg{
		root: r,
	}
	return &cobra.Command{
		Use:     "package",
		Aliases: []string{"pack"},
		Short:   "Build the design document",
		Long:    "Fold the source directory into a design document, written to <target>/couchapp.json",
		Args:    cobra.NoArgs,
		RunE:    c.RunE,
	}
}

func (c *pkg) RunE(cmd *cobra.Command, _ []string) error {
	if c.skip("package") {
		return nil
	}
	p, err := c.packager()
	if err != nil {
		return err
	}
	_, err = p.Package(cmd.Context(), c.opts.Source, c.opts.Target)
	return err
}
