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
	"crypto/md5" // nolint:gosec
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// SignatureFunc returns the lowercase hex digest of data, as stored in the
// couchapp signatures map.
type SignatureFunc func(data []byte) string

// MD5 is the signature used by the CouchApp tool chain.
func MD5(data []byte) string {
	sum := md5.Sum(data) // nolint:gosec
	return hex.EncodeToString(sum[:])
}

// XXHash is a faster signature, for deployments where nothing else compares
// the digests.
func XXHash(data []byte) string {
	return fmt.Sprintf("%016x", xxhash.Sum64(data))
}

var signatures = map[string]SignatureFunc{
	"md5":    MD5,
	"xxhash": XXHash,
}

// SignatureNames returns the names accepted by LookupSignature.
func SignatureNames() []string {
	names := make([]string, 0, len(signatures))
	for name := range signatures {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// LookupSignature returns the named signature function. An empty name
// selects MD5.
func LookupSignature(name string) (SignatureFunc, error) {
	if name == "" {
		return MD5, nil
	}
	if fn, ok := signatures[strings.ToLower(name)]; ok {
		return fn, nil
	}
	return nil, fmt.Errorf("unknown signature algorithm %q, expected one of: %s", name, strings.Join(SignatureNames(), ", "))
}
