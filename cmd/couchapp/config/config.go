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

// Package config resolves the command line, environment, and config file
// into an immutable set of options.
package config

import (
	"io/fs"
	"os/user"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/go-kivik/couchapp/cmd/couchapp/errors"
	"github.com/go-kivik/couchapp/cmd/couchapp/log"
	"github.com/go-kivik/couchapp/couchdb"
	"github.com/go-kivik/couchapp/designdoc"
)

// EnvPrefix is prepended to every environment variable read, so --db is
// read from COUCHAPP_DB and --debug-wire from COUCHAPP_DEBUG_WIRE.
const EnvPrefix = "COUCHAPP"

// DefaultFile is the config file read when --config is not given.
const DefaultFile = "~/.couchapp/config.yaml"

// Configuration keys, identical to the flag names.
const (
	KeyConfig        = "config"
	KeyDebug         = "debug"
	KeyDebugWire     = "debug-wire"
	KeySkip          = "skip"
	KeySource        = "source"
	KeyTarget        = "target"
	KeyScheme        = "scheme"
	KeyHost          = "host"
	KeyPort          = "port"
	KeyDB            = "db"
	KeyUser          = "user"
	KeyPassword      = "password"
	KeyOmitEmptyAuth = "omit-empty-auth"
	KeySignature     = "signature"
)

// Options is the fully resolved configuration of one invocation.
type Options struct {
	Source        string
	Target        string
	DSN           couchdb.DSN
	Debug         bool
	DebugWire     bool
	Skip          bool
	OmitEmptyAuth bool
	Signature     string
}

// SignatureFunc returns the signature algorithm selected by o.
func (o Options) SignatureFunc() (designdoc.SignatureFunc, error) {
	fn, err := designdoc.LookupSignature(o.Signature)
	if err != nil {
		return nil, errors.Code(errors.ErrUsage, err)
	}
	return fn, nil
}

// Dump writes the options to the debug log, with the password masked.
func (o Options) Dump(lg log.Logger) {
	password := strings.Repeat("*", len(o.DSN.Password))
	lg.Debug("Configuration:")
	lg.Debugf("  %s = %s", KeySource, o.Source)
	lg.Debugf("  %s = %s", KeyTarget, o.Target)
	lg.Debugf("  %s = %s", KeyScheme, o.DSN.Scheme)
	lg.Debugf("  %s = %s", KeyHost, o.DSN.Host)
	lg.Debugf("  %s = %d", KeyPort, o.DSN.Port)
	lg.Debugf("  %s = %s", KeyDB, o.DSN.Database)
	lg.Debugf("  %s = %s", KeyUser, o.DSN.User)
	lg.Debugf("  %s = %s", KeyPassword, password)
	lg.Debugf("  %s = %t", KeyOmitEmptyAuth, o.OmitEmptyAuth)
	lg.Debugf("  %s = %s", KeySignature, o.Signature)
	lg.Debugf("  %s = %t", KeySkip, o.Skip)
	lg.Debugf("  %s = %t", KeyDebugWire, o.DebugWire)
}

// AddFlags registers the configuration flags on fs.
func AddFlags(fs *pflag.FlagSet) {
	fs.String(KeyConfig, DefaultFile, "Path to config file")
	fs.Bool(KeyDebug, false, "Enable debug output")
	fs.Bool(KeyDebugWire, false, "Dump HTTP requests and responses")
	fs.Bool(KeySkip, false, "Skip the command without doing anything")
	fs.String(KeySource, "src", "CouchApp source directory")
	fs.String(KeyTarget, "target", "Directory the packaged design document is written to")
	fs.String(KeyScheme, "http", "CouchDB URL scheme")
	fs.String(KeyHost, "localhost", "CouchDB host")
	fs.Int(KeyPort, couchdb.DefaultPort, "CouchDB port")
	fs.String(KeyDB, "", "CouchDB database name")
	fs.String(KeyUser, "", "CouchDB user name")
	fs.String(KeyPassword, "", "CouchDB password")
	fs.Bool(KeyOmitEmptyAuth, false, "Do not send an Authorization header when no credentials are configured")
	fs.String(KeySignature, "md5", "Attachment signature algorithm. One of: "+strings.Join(designdoc.SignatureNames(), "|"))
}

// Loader reads options through viper. A Loader is good for a single Load.
type Loader struct {
	v           *viper.Viper
	resolveHome func(string) string
}

// New returns a Loader which reads config files from the OS filesystem.
func New() *Loader {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	return &Loader{
		v:           v,
		resolveHome: ResolveHome,
	}
}

// SetFs sets the filesystem config files are read from.
func (l *Loader) SetFs(fs afero.Fs) {
	l.v.SetFs(fs)
}

// ResolveHome expands a leading ~/ to the current user's home directory.
func ResolveHome(path string) string {
	if !strings.HasPrefix(path, "~/") {
		return path
	}
	usr, err := user.Current()
	if err != nil {
		return path
	}
	return filepath.Join(usr.HomeDir, path[2:])
}

// Load resolves the options. Flags which were set on the command line win
// over the environment, which wins over the config file. A non-empty uri
// overrides the connection flags. Credentials from the other sources are
// kept when uri carries none.
func (l *Loader) Load(flags *pflag.FlagSet, uri string, lg log.Logger) (Options, error) {
	if err := l.v.BindPFlags(flags); err != nil {
		return Options{}, errors.Code(errors.ErrUsage, err)
	}
	if err := l.readFile(lg); err != nil {
		return Options{}, err
	}
	v := l.v
	opts := Options{
		Source: v.GetString(KeySource),
		Target: v.GetString(KeyTarget),
		DSN: couchdb.DSN{
			Scheme:   v.GetString(KeyScheme),
			Host:     v.GetString(KeyHost),
			Port:     v.GetInt(KeyPort),
			User:     v.GetString(KeyUser),
			Password: v.GetString(KeyPassword),
			Database: v.GetString(KeyDB),
		},
		Debug:         v.GetBool(KeyDebug),
		DebugWire:     v.GetBool(KeyDebugWire),
		Skip:          v.GetBool(KeySkip),
		OmitEmptyAuth: v.GetBool(KeyOmitEmptyAuth),
		Signature:     v.GetString(KeySignature),
	}
	if uri != "" {
		dsn, err := couchdb.ParseDSN(uri)
		if err != nil {
			return Options{}, errors.WithCode(err, errors.ErrUsage)
		}
		if !dsn.HasCredentials() {
			dsn.User, dsn.Password = opts.DSN.User, opts.DSN.Password
		}
		opts.DSN = dsn
		lg.Debug("Resource set from command line arguments")
	}
	if _, err := opts.SignatureFunc(); err != nil {
		return Options{}, err
	}
	return opts, nil
}

func (l *Loader) readFile(lg log.Logger) error {
	file := l.resolveHome(l.v.GetString(KeyConfig))
	if file == "" {
		lg.Debug("No config file specified")
		return nil
	}
	l.v.SetConfigFile(file)
	if err := l.v.ReadInConfig(); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			lg.Debugf("Config file %s not found", file)
			return nil
		}
		lg.Debugf("Failed to read config: %s", err)
		return errors.WithCode(err, errors.ErrUsage)
	}
	lg.Debugf("Read config file %s", file)
	return nil
}
