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

package log

import (
	"bytes"
	"testing"

	"gitlab.com/flimzy/testy"
)

func TestStandardLogger(t *testing.T) {
	type tt struct {
		debug  bool
		log    func(Logger)
		stdout string
		stderr string
	}

	tests := testy.NewTable()
	tests.Add("info", tt{
		log:    func(l Logger) { l.Infof("Packaged %s to %s", "src", "target") },
		stdout: "Packaged src to target\n",
	})
	tests.Add("error", tt{
		log:    func(l Logger) { l.Error("deploy: ", "failed") },
		stderr: "deploy: failed\n",
	})
	tests.Add("debug disabled", tt{
		log: func(l Logger) { l.Debug("hidden") },
	})
	tests.Add("debug enabled", tt{
		debug:  true,
		log:    func(l Logger) { l.Debugf("deploy: %s -> %s", "start", "source checked") },
		stderr: "deploy: start -> source checked\n",
	})
	tests.Add("multi-line", tt{
		log:    func(l Logger) { l.Info("{\n  \"_id\": \"_design/app\"  \n}\n") },
		stdout: "{\n  \"_id\": \"_design/app\"\n}\n",
	})

	tests.Run(t, func(t *testing.T, tt tt) {
		stdout, stderr := &bytes.Buffer{}, &bytes.Buffer{}
		l := New()
		l.SetOut(stdout)
		l.SetErr(stderr)
		l.SetDebug(tt.debug)
		tt.log(l)
		if d := testy.DiffText(tt.stdout, stdout.String()); d != nil {
			t.Errorf("stdout:\n%s", d)
		}
		if d := testy.DiffText(tt.stderr, stderr.String()); d != nil {
			t.Errorf("stderr:\n%s", d)
		}
	})
}

func TestTestLogger(t *testing.T) {
	l := NewTest()
	l.Infof("Using resource %s", "http://localhost:5984/app")
	l.Debug("  padded  ")
	l.Errorf("oops")
	l.Check(t,
		"[INFO] Using resource http://localhost:5984/app",
		"[DEBUG] padded",
		"[ERROR] oops",
	)
}

func TestDiscardLogger(t *testing.T) {
	buf := &bytes.Buffer{}
	l := NewDiscard()
	l.SetOut(buf)
	l.SetErr(buf)
	l.SetDebug(true)
	l.Info("discarded")
	l.Debugf("%s", "discarded")
	l.Errorf("discarded")
	if buf.Len() != 0 {
		t.Errorf("Expected no output, got %q", buf.String())
	}
}
