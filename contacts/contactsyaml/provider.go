// Copyright (c) 2020 - for information on the respective copyright owner
// see the NOTICE file and/or the repository at
// https://github.com/hyperledger-labs/ledger-node
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package contactsyaml implements an address book of known identities,
// stored in a yaml file as a map of alias to contact.
package contactsyaml

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/hyperledger-labs/ledger-node"
)

// Provider represents a contacts provider that provides access to contacts stored locally in a yaml file.
//
// It generates a cache of all contacts in the file during initialization. Read, Write and Delete
// operations act only on the cached list of contacts and do not update the file.
// The changes in cache can be updated to the file by explicitly calling UpdateStorage method.
type Provider struct {
	*contactsCache

	filePath string
}

// New returns an instance of contacts provider to access the contacts in the given yaml file.
//
// All the contacts are cached in memory during initialization. There is no mechanism to reload
// the cache if the file is updated.
func New(filePath string) (*Provider, error) {
	f, err := os.Open(filepath.Clean(filePath))
	if err != nil {
		return nil, errors.Wrap(err, "opening contacts file")
	}
	defer f.Close() // nolint: errcheck, gosec  // safe to defer f.Close() for files opened in read mode.

	cache := make(map[string]ledger.Contact)
	decoder := yaml.NewDecoder(f)
	if err = decoder.Decode(&cache); err != nil && err != io.EOF {
		return nil, errors.Wrap(err, "decoding contacts file")
	}

	contactsCache, err := newContactsCache(cache)
	if err != nil {
		return nil, err
	}
	return &Provider{
		contactsCache: contactsCache,
		filePath:      filePath,
	}, nil
}

// UpdateStorage writes the latest state of contacts cache to the yaml file.
func (p *Provider) UpdateStorage() (err error) {
	p.mutex.RLock()
	defer p.mutex.RUnlock()

	f, err := os.Create(p.filePath)
	if err != nil {
		return errors.Wrap(err, "opening contacts file for writing")
	}
	defer func() {
		if fCloseErr := f.Close(); fCloseErr != nil {
			err = fmt.Errorf("%v; and error closing file - %s", err, fCloseErr.Error())
		}
	}()

	encoder := yaml.NewEncoder(f)
	if err = encoder.Encode(p.contactsByAlias); err != nil {
		return errors.Wrap(err, "encoding data as yaml")
	}
	// receive the error in "err" before returning to ensure file close error is captured.
	err = errors.Wrap(encoder.Close(), "closing encoder")
	return err
}
