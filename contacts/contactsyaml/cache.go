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

package contactsyaml

import (
	"sort"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"

	"github.com/hyperledger-labs/ledger-node"
	"github.com/hyperledger-labs/ledger-node/identity"
)

// contactsCache represents a cached list of contacts indexed by both alias and address.
// The methods defined over it are safe for concurrent access.
type contactsCache struct {
	mutex           sync.RWMutex
	contactsByAlias map[string]ledger.Contact // Stores a list of contacts indexed by Alias.
	aliasByAddr     map[common.Address]string // Stores a list of alias, indexed by address.
}

// newContactsCache returns a contacts cache created from the given map. It indexes the contacts by both alias and
// address. The address strings are parsed as hex encoded addresses.
func newContactsCache(contactsByAlias map[string]ledger.Contact) (*contactsCache, error) {
	aliasByAddr := make(map[common.Address]string)
	for alias, contact := range contactsByAlias {
		addr, err := identity.ParseAddr(contact.AddrString)
		if err != nil {
			return nil, errors.WithMessagef(err, "contact %s", alias)
		}
		if other, ok := aliasByAddr[addr]; ok {
			return nil, errors.Errorf("contacts %s and %s have the same address", other, alias)
		}
		contact.Alias = alias
		contact.Addr = addr
		contactsByAlias[alias] = contact
		aliasByAddr[addr] = alias
	}
	return &contactsCache{
		contactsByAlias: contactsByAlias,
		aliasByAddr:     aliasByAddr,
	}, nil
}

// ReadByAlias returns the contact corresponding to given alias from the cache.
func (c *contactsCache) ReadByAlias(alias string) (_ ledger.Contact, isPresent bool) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return c.readByAlias(alias)
}

func (c *contactsCache) readByAlias(alias string) (_ ledger.Contact, isPresent bool) {
	var contact ledger.Contact
	contact, isPresent = c.contactsByAlias[alias]
	return contact, isPresent
}

// ReadByAddr returns the contact corresponding to given address from the cache.
func (c *contactsCache) ReadByAddr(addr common.Address) (_ ledger.Contact, isPresent bool) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	var alias string
	alias, isPresent = c.aliasByAddr[addr]
	if !isPresent {
		return ledger.Contact{}, false
	}
	return c.readByAlias(alias)
}

// Write adds the contact to contacts cache. Returns an error if the alias is already used by same or different
// contact, if the alias is reserved for the user's own identity or if the address string cannot be parsed.
func (c *contactsCache) Write(alias string, contact ledger.Contact) error {
	if strings.TrimSpace(alias) == "" {
		return errors.New("alias should not be empty")
	}
	if alias == ledger.OwnAlias {
		return errors.Errorf("alias %s is reserved for own identity", ledger.OwnAlias)
	}
	addr, err := identity.ParseAddr(contact.AddrString)
	if err != nil {
		return err
	}
	contact.Alias = alias
	contact.Addr = addr

	c.mutex.Lock()
	defer c.mutex.Unlock()

	if oldContact, ok := c.contactsByAlias[alias]; ok {
		if oldContact.Addr == contact.Addr {
			return errors.New("contact already present in contacts")
		}
		return errors.New("alias already used by another contact in contacts")
	}
	if other, ok := c.aliasByAddr[addr]; ok {
		return errors.Errorf("address already present in contacts with alias %s", other)
	}
	c.contactsByAlias[alias] = contact
	c.aliasByAddr[addr] = alias
	return nil
}

// Delete deletes the contact from contacts cache.
// Returns an error if contact corresponding to given alias is not found.
func (c *contactsCache) Delete(alias string) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	contact, ok := c.contactsByAlias[alias]
	if !ok {
		return errors.New("contact not found in contacts")
	}
	delete(c.contactsByAlias, alias)
	delete(c.aliasByAddr, contact.Addr)
	return nil
}

// Aliases returns the aliases of all contacts in the cache in sorted order.
func (c *contactsCache) Aliases() []string {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	aliases := make([]string, 0, len(c.contactsByAlias))
	for alias := range c.contactsByAlias {
		aliases = append(aliases, alias)
	}
	sort.Strings(aliases)
	return aliases
}
