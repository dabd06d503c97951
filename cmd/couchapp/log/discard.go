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

import "io"

// discardLogger formats like the standard logger but never writes. SetOut
// and SetErr are ignored, so it stays silent wherever it is passed.
type discardLogger struct {
	*logger
}

var _ Logger = discardLogger{}

// NewDiscard returns a logger that drops everything.
func NewDiscard() Logger {
	return discardLogger{logger: &logger{stdout: io.Discard, stderr: io.Discard}}
}

func (discardLogger) SetOut(io.Writer) {}
func (discardLogger) SetErr(io.Writer) {}
