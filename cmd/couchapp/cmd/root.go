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

// Package cmd implements the couchapp command line.
package cmd

import (
	"context"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/go-kivik/couchapp/cmd/couchapp/config"
	"github.com/go-kivik/couchapp/cmd/couchapp/errors"
	"github.com/go-kivik/couchapp/cmd/couchapp/log"
	"github.com/go-kivik/couchapp/cmd/couchapp/output"
	"github.com/go-kivik/couchapp/cmd/couchapp/output/friendly"
	"github.com/go-kivik/couchapp/cmd/couchapp/output/gotmpl"
	"github.com/go-kivik/couchapp/cmd/couchapp/output/json"
	"github.com/go-kivik/couchapp/cmd/couchapp/output/yaml"
	"github.com/go-kivik/couchapp/couchapp"
	"github.com/go-kivik/couchapp/couchdb"
)

type root struct {
	log    log.Logger
	cmd    *cobra.Command
	fmt    *output.Formatter
	loader *config.Loader
	fs     afero.Fs
	opts   config.Options

	trace *couchdb.ClientTrace
}

// Execute runs the command line, and returns the process exit status. It is
// called by main.main().
func Execute(ctx context.Context) int {
	return rootCmd(log.New(), afero.NewOsFs()).execute(ctx)
}

func (r *root) execute(ctx context.Context) int {
	ctx = couchdb.WithClientTrace(ctx, r.clientTrace())
	err := r.cmd.ExecuteContext(ctx)
	if err == nil {
		return 0
	}
	return extractExitCode(err)
}

func extractExitCode(err error) int {
	if code := errors.InspectErrorCode(err); code != 0 {
		return code
	}

	// Any unhandled errors are assumed to be from Cobra, so return a "failed
	// to initialize" error
	return errors.ErrUsage
}

func formatter() *output.Formatter {
	f := output.New()
	f.Register("", friendly.New())
	f.Register("json", json.New())
	f.Register("yaml", yaml.New())
	f.Register("go-template", gotmpl.New())
	return f
}

func rootCmd(lg log.Logger, fs afero.Fs) *root {
	r := &root{
		log:    lg,
		fmt:    formatter(),
		loader: config.New(),
		fs:     fs,
	}
	r.loader.SetFs(fs)
	r.fmt.SetFs(fs)
	r.cmd = &cobra.Command{
		Use:               "couchapp",
		Short:             "couchapp packages and deploys CouchApps",
		Long:              `This tool folds a CouchApp source tree into a design document, and uploads it to a CouchDB database`,
		PersistentPreRunE: r.init,
		SilenceUsage:      true,
	}

	pf := r.cmd.PersistentFlags()
	r.fmt.ConfigFlags(pf)
	config.AddFlags(pf)

	r.cmd.AddCommand(packageCmd(r))
	r.cmd.AddCommand(deployCmd(r))
	r.cmd.AddCommand(pushCmd(r))
	r.cmd.AddCommand(manifestCmd(r))
	r.cmd.AddCommand(versionCmd(r))

	return r
}

func (r *root) init(cmd *cobra.Command, args []string) error {
	r.log.SetOut(cmd.OutOrStdout())
	r.log.SetErr(cmd.ErrOrStderr())
	r.fmt.SetOut(cmd.OutOrStdout())
	if debug, err := cmd.Flags().GetBool(config.KeyDebug); err == nil {
		r.log.SetDebug(debug)
	}

	var uri string
	if len(args) > 0 {
		uri = args[0]
	}
	opts, err := r.loader.Load(cmd.Flags(), uri, r.log)
	if err != nil {
		return err
	}
	r.opts = opts
	r.log.SetDebug(opts.Debug)
	r.log.Debug("Debug mode enabled")
	opts.Dump(r.log)

	r.setTrace()
	return nil
}

// skip reports whether --skip was given, and logs it.
func (r *root) skip(what string) bool {
	if r.opts.Skip {
		r.log.Infof("Skipping %s", what)
	}
	return r.opts.Skip
}

func (r *root) packager() (*couchapp.Packager, error) {
	sig, err := r.opts.SignatureFunc()
	if err != nil {
		return nil, err
	}
	return &couchapp.Packager{
		FS:        r.fs,
		Log:       r.log,
		Signature: sig,
	}, nil
}

func (r *root) deployer() *couchapp.Deployer {
	var opts []couchdb.Option
	if r.opts.OmitEmptyAuth {
		opts = append(opts, couchdb.OmitEmptyAuth())
	}
	return &couchapp.Deployer{
		FS:  r.fs,
		Log: r.log,
		NewClient: func(dsn couchdb.DSN) (couchapp.Client, error) {
			c, err := couchdb.New(nil, dsn, opts...)
			if err != nil {
				return nil, err
			}
			return c, nil
		},
	}
}
