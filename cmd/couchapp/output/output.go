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

// Package output renders command results in the format selected on the
// command line.
package output

import (
	"io"
	"os"
	"strings"
	"sync"

	"github.com/spf13/afero"
	"github.com/spf13/pflag"

	"github.com/go-kivik/couchapp/cmd/couchapp/errors"
)

// Formatter manages output formatting.
type Formatter struct {
	mu         sync.Mutex
	formats    map[string]Format
	formatOpts []string
	fs         afero.Fs
	stdout     io.Writer

	format    string
	output    string
	overwrite bool
}

// New returns an output formatter instance.
func New() *Formatter {
	return &Formatter{
		formats: map[string]Format{},
		fs:      afero.NewOsFs(),
		stdout:  os.Stdout,
	}
}

// Format is the output format interface.
type Format interface {
	Output(io.Writer, io.Reader) error
}

// FormatArg is an optional interface. If implemented by a formatter, it
// may receive an argument.
type FormatArg interface {
	Arg(string) error
	Required() bool
}

// SetOut sets the destination used when no output file is selected.
func (f *Formatter) SetOut(w io.Writer) {
	f.mu.Lock()
	f.stdout = w
	f.mu.Unlock()
}

// SetFs sets the filesystem output files are created on.
func (f *Formatter) SetFs(fs afero.Fs) {
	f.mu.Lock()
	f.fs = fs
	f.mu.Unlock()
}

// Register registers an output formatter.
func (f *Formatter) Register(name string, fmt Format) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.formats[name]; ok {
		panic(name + " already registered")
	}
	f.formats[name] = fmt
	if name != "" {
		f.formatOpts = append(f.formatOpts, formatOptions(name, fmt))
	}
}

func (f *Formatter) options() []string {
	if len(f.formats) == 0 {
		panic("no formatters registered")
	}
	return f.formatOpts
}

func formatOptions(name string, f Format) string {
	if argFmt, ok := f.(FormatArg); ok {
		if argFmt.Required() {
			return name + "=..."
		}
		return name + "[=...]"
	}
	return name
}

// ConfigFlags sets up the CLI flags based on the configured formatters.
func (f *Formatter) ConfigFlags(fs *pflag.FlagSet) {
	fs.StringVarP(&f.format, "format", "f", "", "Output format. One of: "+strings.Join(f.options(), "|"))
	fs.StringVarP(&f.output, "output", "o", "", "Output file.")
	fs.BoolVarP(&f.overwrite, "overwrite", "F", false, "Overwrite output file")
}

// Output renders r with the selected format.
func (f *Formatter) Output(r io.Reader) error {
	fmt, err := f.formatter()
	if err != nil {
		return err
	}
	out, err := f.writer()
	if err != nil {
		return err
	}
	if err := fmt.Output(out, r); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}

func (f *Formatter) formatter() (Format, error) {
	args := strings.SplitN(f.format, "=", 2) //nolint:gomnd
	name := args[0]
	format, ok := f.formats[name]
	if !ok {
		return nil, errors.Codef(errors.ErrUsage, "unrecognized output format option: %s", name)
	}
	if fmtArg, ok := format.(FormatArg); ok {
		if fmtArg.Required() && len(args) == 1 {
			return nil, errors.Codef(errors.ErrUsage, "format %s requires an argument", name)
		}
		if len(args) > 1 {
			if err := fmtArg.Arg(args[1]); err != nil {
				return nil, errors.Code(errors.ErrUsage, err)
			}
		}
	} else if len(args) > 1 {
		return nil, errors.Codef(errors.ErrUsage, "format %s takes no arguments", name)
	}
	return format, nil
}

func (f *Formatter) writer() (io.WriteCloser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch f.output {
	case "", "-":
		return ensureNewlineEnding(nopCloser{f.stdout}), nil
	}
	file, err := f.createFile(f.output)
	if err != nil {
		return nil, errors.Code(errors.ErrCantCreate, err)
	}
	return ensureNewlineEnding(file), nil
}

func (f *Formatter) createFile(path string) (afero.File, error) {
	if f.overwrite {
		return f.fs.Create(path)
	}
	return f.fs.OpenFile(path, os.O_EXCL|os.O_CREATE|os.O_WRONLY, 0o666) //nolint:gomnd
}

type nopCloser struct {
	io.Writer
}

func (nopCloser) Close() error { return nil }

func ensureNewlineEnding(w io.WriteCloser) io.WriteCloser {
	return &addNewlineEnding{WriteCloser: w}
}

type addNewlineEnding struct {
	io.WriteCloser
	last byte
}

func (w *addNewlineEnding) Write(p []byte) (int, error) {
	if len(p) > 0 {
		w.last = p[len(p)-1]
	}
	return w.WriteCloser.Write(p)
}

func (w *addNewlineEnding) Close() error {
	if w.last != '\n' && w.last != 0 {
		if _, err := w.WriteCloser.Write([]byte{'\n'}); err != nil {
			_ = w.WriteCloser.Close()
			return err
		}
	}
	return w.WriteCloser.Close()
}
