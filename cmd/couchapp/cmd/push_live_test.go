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
	"testing"

	"github.com/go-kivik/couchapp/internal/couchtest"
)

func TestPushLive(t *testing.T) {
	dsn := couchtest.StartCouchDB(t) + "/cli_live"
	fs := sourceTree(t)
	first := cmdTest{
		fs:     fs,
		args:   dirs("push", dsn),
		stdout: []string{"Creating database cli_live", "Rev: 1-"},
		absent: []string{couchtest.AdminPassword},
	}
	first.Test(t)
	second := cmdTest{
		fs:     fs,
		args:   dirs("push", dsn),
		stdout: []string{"Rev: 2-"},
	}
	second.Test(t)
}
