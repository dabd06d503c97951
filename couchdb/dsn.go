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

package couchdb

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

// DefaultPort is the port CouchDB listens on by default.
const DefaultPort = 5984

// DSN describes a single CouchDB database.
type DSN struct {
	Scheme   string `validate:"required,oneof=http https"`
	Host     string `validate:"required"`
	Port     int    `validate:"min=1,max=65535"`
	User     string
	Password string
	Database string `validate:"required"`
}

var validate = validator.New()

// ParseDSN parses a resource URI of the form
// scheme://[user:pass@]host[:port]/db. The port defaults to DefaultPort.
func ParseDSN(uri string) (DSN, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return DSN{}, fmt.Errorf("%w: %w", ErrInvalidURI, err)
	}
	dsn := DSN{
		Scheme:   u.Scheme,
		Host:     u.Hostname(),
		Port:     DefaultPort,
		Database: strings.Trim(u.Path, "/"),
	}
	if p := u.Port(); p != "" {
		port, err := strconv.Atoi(p)
		if err != nil {
			return DSN{}, fmt.Errorf("%w: invalid port %q", ErrInvalidURI, p)
		}
		dsn.Port = port
	}
	if u.User != nil {
		dsn.User = u.User.Username()
		dsn.Password, _ = u.User.Password()
	}
	if err := dsn.Validate(); err != nil {
		return DSN{}, err
	}
	return dsn, nil
}

// Validate checks that d is complete enough to address a database.
func (d DSN) Validate() error {
	err := validate.Struct(d)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("%w: %w", ErrInvalidURI, err)
	}
	problems := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		field := strings.ToLower(fe.Field())
		switch fe.Tag() {
		case "required":
			problems = append(problems, field+" is required")
		case "oneof":
			problems = append(problems, fmt.Sprintf("%s must be one of: %s", field, fe.Param()))
		default:
			problems = append(problems, fmt.Sprintf("%s %v out of range", field, fe.Value()))
		}
	}
	return fmt.Errorf("%w: %s", ErrInvalidURI, strings.Join(problems, "; "))
}

// HasDefaultPort reports whether Port is the default for Scheme.
func (d DSN) HasDefaultPort() bool {
	return (d.Scheme == "http" && d.Port == 80) || (d.Scheme == "https" && d.Port == 443) // nolint:gomnd
}

func (d DSN) url() *url.URL {
	host := d.Host
	if !d.HasDefaultPort() {
		host = net.JoinHostPort(d.Host, strconv.Itoa(d.Port))
	}
	u := &url.URL{
		Scheme: d.Scheme,
		Host:   host,
		Path:   "/" + d.Database,
	}
	if d.User != "" && d.Password != "" {
		u.User = url.UserPassword(d.User, d.Password)
	}
	return u
}

// String returns the resource URI, including credentials when both user and
// password are set. The port is omitted when it is the scheme default.
func (d DSN) String() string {
	return d.url().String()
}

// Redacted is like String, but masks the password.
func (d DSN) Redacted() string {
	return d.url().Redacted()
}

// databaseURL always includes the port, and never credentials.
func (d DSN) databaseURL() string {
	u := &url.URL{
		Scheme:  d.Scheme,
		Host:    net.JoinHostPort(d.Host, strconv.Itoa(d.Port)),
		Path:    "/" + d.Database,
		RawPath: "/" + url.PathEscape(d.Database),
	}
	return u.String()
}

// HasCredentials reports whether a user or password is set.
func (d DSN) HasCredentials() bool {
	return d.User != "" || d.Password != ""
}
