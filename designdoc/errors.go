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

package designdoc

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingFile is returned when a required source file does not exist.
	ErrMissingFile = errors.New("missing required file")
	// ErrMalformedJSON is returned when a JSON source file cannot be parsed,
	// or does not hold the expected JSON type.
	ErrMalformedJSON = errors.New("malformed JSON")
	// ErrEmptyID is returned when the _id file holds only whitespace.
	ErrEmptyID = errors.New("empty document ID")
	// ErrDuplicateAttachment is returned when two files under _attachments
	// map to the same attachment name.
	ErrDuplicateAttachment = errors.New("duplicate attachment name")
)

// FileError records a failure to read or parse a single source file.
type FileError struct {
	// Kind is one of the Err* values of this package, or nil for plain I/O
	// failures.
	Kind error
	// Path is relative to the source root.
	Path string
	Err  error
}

func (e *FileError) Error() string {
	switch {
	case e.Kind == nil:
		return fmt.Sprintf("%s: %s", e.Path, e.Err)
	case e.Err == nil:
		return fmt.Sprintf("%s: %s", e.Path, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %s", e.Path, e.Kind, e.Err)
}

// Unwrap allows errors.Is and errors.As to match both the kind and the
// underlying cause.
func (e *FileError) Unwrap() []error {
	errs := make([]error, 0, 2) // nolint:gomnd
	if e.Kind != nil {
		errs = append(errs, e.Kind)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}
