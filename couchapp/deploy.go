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

package couchapp

import (
	"context"
	"errors"
	"io/fs"

	"github.com/spf13/afero"

	"github.com/go-kivik/couchapp/couchdb"
	"github.com/go-kivik/couchapp/designdoc"
)

// Client is the subset of *couchdb.Client used to deploy.
type Client interface {
	Probe(ctx context.Context) (bool, error)
	Create(ctx context.Context) error
	Fetch(ctx context.Context, docID string) (map[string]interface{}, error)
	Upsert(ctx context.Context, docID string, body []byte) (string, error)
	Close() error
}

var _ Client = (*couchdb.Client)(nil)

// Deployer uploads a packaged design document.
type Deployer struct {
	// FS defaults to the OS filesystem.
	FS  afero.Fs
	Log Logger
	// NewClient returns a client for the resolved database. Defaults to
	// couchdb.New with a default HTTP client.
	NewClient func(couchdb.DSN) (Client, error)
}

// DeployOptions selects what to deploy, and where.
type DeployOptions struct {
	Source string
	Target string
	// DSN is used unless the source carries a .couchapprc file.
	DSN couchdb.DSN
}

// Result describes a finished deployment.
type Result struct {
	// Skipped is true when the source directory does not exist.
	Skipped bool
	// DSN is the database deployed to.
	DSN couchdb.DSN
	ID  string
	// Rev is the new revision, if the server reported one.
	Rev string
	// Created is true if the database did not exist before.
	Created bool
}

type deployState int

const (
	stateStart deployState = iota
	stateSourceChecked
	stateResourceResolved
	stateTargetChecked
	stateDocLoaded
	stateDBEnsured
	stateRevResolved
	stateDeployed
	stateSkipped
	stateFailed
)

var stateNames = map[deployState]string{
	stateStart:            "start",
	stateSourceChecked:    "source checked",
	stateResourceResolved: "resource resolved",
	stateTargetChecked:    "target checked",
	stateDocLoaded:        "document loaded",
	stateDBEnsured:        "database ensured",
	stateRevResolved:      "revision resolved",
	stateDeployed:         "deployed",
	stateSkipped:          "skipped",
	stateFailed:           "failed",
}

func (s deployState) String() string {
	return stateNames[s]
}

type deployment struct {
	*Deployer
	opts   DeployOptions
	state  deployState
	result Result
}

func (d *deployment) enter(s deployState) {
	d.Log.Debugf("deploy: %s -> %s", d.state, s)
	d.state = s
}

func (d *deployment) fail(err error) error {
	d.enter(stateFailed)
	return &Error{Op: "deploy", Err: err}
}

func (d *Deployer) init() {
	if d.FS == nil {
		d.FS = afero.NewOsFs()
	}
	if d.Log == nil {
		d.Log = nopLogger{}
	}
	if d.NewClient == nil {
		d.NewClient = func(dsn couchdb.DSN) (Client, error) {
			c, err := couchdb.New(nil, dsn)
			if err != nil {
				return nil, err
			}
			return c, nil
		}
	}
}

// Deploy uploads target/couchapp.json to the database. The database is
// created if it does not exist, and an existing document is overwritten
// with its current revision. If the source directory does not exist, Deploy
// does nothing.
func (d *Deployer) Deploy(ctx context.Context, opts DeployOptions) (*Result, error) {
	d.init()
	dep := &deployment{Deployer: d, opts: opts}
	if err := dep.run(ctx); err != nil {
		return nil, dep.fail(err)
	}
	return &dep.result, nil
}

func (d *deployment) run(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	ok, err := isDir(d.FS, d.opts.Source)
	if err != nil {
		return err
	}
	if !ok {
		d.Log.Infof("Source directory %s not found, nothing to deploy", d.opts.Source)
		d.enter(stateSkipped)
		d.result.Skipped = true
		return nil
	}
	d.enter(stateSourceChecked)

	dsn, err := d.resolveDSN()
	if err != nil {
		return err
	}
	d.result.DSN = dsn
	d.enter(stateResourceResolved)

	if err := d.FS.MkdirAll(d.opts.Target, dirPerm); err != nil {
		return err
	}
	d.enter(stateTargetChecked)

	doc, err := d.loadDocument()
	if err != nil {
		return err
	}
	d.result.ID = doc.ID
	d.enter(stateDocLoaded)

	client, err := d.NewClient(dsn)
	if err != nil {
		return err
	}
	defer client.Close() // nolint:errcheck

	exists, err := client.Probe(ctx)
	if err != nil {
		return err
	}
	if !exists {
		d.Log.Infof("Creating database %s", dsn.Database)
		if err := client.Create(ctx); err != nil {
			return err
		}
		d.result.Created = true
	}
	d.enter(stateDBEnsured)

	current, err := client.Fetch(ctx, doc.ID)
	if err != nil {
		return err
	}
	doc.Rev = ""
	if current != nil {
		if doc.Rev, err = revision(current); err != nil {
			return err
		}
		d.Log.Debugf("Updating %s at revision %s", doc.ID, doc.Rev)
	}
	d.enter(stateRevResolved)

	body, err := designdoc.Encode(doc)
	if err != nil {
		return err
	}
	rev, err := client.Upsert(ctx, doc.ID, body)
	if err != nil {
		return err
	}
	d.result.Rev = rev
	d.enter(stateDeployed)
	d.Log.Infof("Deployed %s to %s", doc.ID, dsn.Redacted())
	return nil
}

// resolveDSN prefers the source's .couchapprc. Credentials configured
// elsewhere are kept when the resource URI carries none.
func (d *deployment) resolveDSN() (couchdb.DSN, error) {
	uri, found, err := ReadResource(d.FS, d.opts.Source)
	if err != nil {
		return couchdb.DSN{}, err
	}
	if !found {
		if err := d.opts.DSN.Validate(); err != nil {
			return couchdb.DSN{}, err
		}
		d.Log.Infof("Using resource %s", d.opts.DSN.Redacted())
		return d.opts.DSN, nil
	}
	dsn, err := couchdb.ParseDSN(uri)
	if err != nil {
		return couchdb.DSN{}, err
	}
	if !dsn.HasCredentials() {
		dsn.User, dsn.Password = d.opts.DSN.User, d.opts.DSN.Password
	}
	d.Log.Infof("Using resource %s from %s", dsn.Redacted(), ResourceFile)
	return dsn, nil
}

func (d *deployment) loadDocument() (*designdoc.Document, error) {
	path := ArtifactPath(d.opts.Target)
	data, err := afero.ReadFile(d.FS, path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, &designdoc.FileError{Kind: designdoc.ErrMissingFile, Path: path, Err: err}
	}
	if err != nil {
		return nil, &designdoc.FileError{Path: path, Err: err}
	}
	doc, err := designdoc.Unmarshal(data)
	if err != nil {
		return nil, &designdoc.FileError{Kind: designdoc.ErrMalformedJSON, Path: path, Err: err}
	}
	if doc.ID == "" {
		return nil, &designdoc.FileError{Kind: designdoc.ErrEmptyID, Path: path}
	}
	return doc, nil
}
