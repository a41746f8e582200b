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

package main

import (
	"sort"

	"github.com/abiosoft/ishell"
	"github.com/ethereum/go-ethereum/common"

	"github.com/hyperledger-labs/ledger-node"
	"github.com/hyperledger-labs/ledger-node/contacts/contactsyaml"
	"github.com/hyperledger-labs/ledger-node/identity"
)

var (
	contactCmdUsage = "Usage: contact [sub-command]"
	contactCmd      = &ishell.Cmd{
		Name: "contact",
		Help: "Use this command to load and edit the contacts used for resolving aliases." + contactCmdUsage,
		Func: contactFn,
	}

	contactLoadCmdUsage = "Usage: contact load [contacts file]"
	contactLoadCmd      = &ishell.Cmd{
		Name: "load",
		Help: "Load contacts from a yaml file." + contactLoadCmdUsage,
		Completer: func([]string) []string {
			return []string{"contacts.yaml"}
		},
		Func: contactLoadFn,
	}

	contactAddCmdUsage = "Usage: contact add [alias] [address]"
	contactAddCmd      = &ishell.Cmd{
		Name: "add",
		Help: "Add a contact. Use 'contact save' to persist the changes." + contactAddCmdUsage,
		Func: contactAddFn,
	}

	contactRemoveCmdUsage = "Usage: contact remove [alias]"
	contactRemoveCmd      = &ishell.Cmd{
		Name:      "remove",
		Help:      "Remove a contact. Use 'contact save' to persist the changes." + contactRemoveCmdUsage,
		Completer: func([]string) []string { return knownAliases() },
		Func:      contactRemoveFn,
	}

	contactGetCmdUsage = "Usage: contact get [alias]"
	contactGetCmd      = &ishell.Cmd{
		Name:      "get",
		Help:      "Get the address of a contact." + contactGetCmdUsage,
		Completer: func([]string) []string { return knownAliases() },
		Func:      contactGetFn,
	}

	contactSaveCmdUsage = "Usage: contact save"
	contactSaveCmd      = &ishell.Cmd{
		Name: "save",
		Help: "Write the contacts to the file from which they were loaded." + contactSaveCmdUsage,
		Func: contactSaveFn,
	}

	// List of known aliases that will be used for autocompletion. Entries are
	// added when contacts are loaded or added.
	knownAliasesList = []string{}
)

func init() {
	contactCmd.AddCmd(contactLoadCmd)
	contactCmd.AddCmd(contactAddCmd)
	contactCmd.AddCmd(contactRemoveCmd)
	contactCmd.AddCmd(contactGetCmd)
	contactCmd.AddCmd(contactSaveCmd)
}

func knownAliases() []string {
	return knownAliasesList
}

// Add alias to known aliases list for autocompletion.
func addAlias(alias string) {
	for idx := range knownAliasesList {
		if knownAliasesList[idx] == alias {
			return
		}
	}
	knownAliasesList = append(knownAliasesList, alias)
	sort.Strings(knownAliasesList)
}

func removeAlias(alias string) {
	for idx := range knownAliasesList {
		if knownAliasesList[idx] == alias {
			knownAliasesList = append(knownAliasesList[:idx], knownAliasesList[idx+1:]...)
			return
		}
	}
}

// resolveAddr returns the address of the contact with the given alias, if
// one is present. Else it parses the string as an address.
func resolveAddr(aliasOrAddr string) (common.Address, error) {
	if contacts != nil {
		if contact, ok := contacts.ReadByAlias(aliasOrAddr); ok {
			return contact.Addr, nil
		}
	}
	return identity.ParseAddr(aliasOrAddr)
}

// displayAddr returns the address along with the alias of the contact, if
// one is present.
func displayAddr(addr common.Address) string {
	if contacts != nil {
		if contact, ok := contacts.ReadByAddr(addr); ok {
			return contact.Alias + " (" + addr.Hex() + ")"
		}
	}
	return addr.Hex()
}

func contactFn(c *ishell.Context) {
	c.Println(c.Cmd.HelpText())
}

func contactLoadFn(c *ishell.Context) {
	countReqArgs := 1
	if len(c.Args) != countReqArgs {
		printArgCountError(c, countReqArgs)
		return
	}
	loaded, err := contactsyaml.New(c.Args[0])
	if err != nil {
		c.Printf("%s\n\n", redf("Error loading contacts: %v", err))
		return
	}
	contacts = loaded
	knownAliasesList = contacts.Aliases()
	c.Printf("%s\n\n", greenf("Loaded contacts from %s.", c.Args[0]))
}

func contactAddFn(c *ishell.Context) {
	if contacts == nil {
		c.Printf("%s\n\n", redf("No contacts loaded, load using 'contact load' command."))
		return
	}
	countReqArgs := 2
	if len(c.Args) != countReqArgs {
		printArgCountError(c, countReqArgs)
		return
	}
	if err := contacts.Write(c.Args[0], ledger.Contact{AddrString: c.Args[1]}); err != nil {
		c.Printf("%s\n\n", redf("Error adding contact: %v", err))
		return
	}
	addAlias(c.Args[0])
	c.Printf("%s\n\n", greenf("Contact added successfully."))
}

func contactRemoveFn(c *ishell.Context) {
	if contacts == nil {
		c.Printf("%s\n\n", redf("No contacts loaded, load using 'contact load' command."))
		return
	}
	countReqArgs := 1
	if len(c.Args) != countReqArgs {
		printArgCountError(c, countReqArgs)
		return
	}
	if err := contacts.Delete(c.Args[0]); err != nil {
		c.Printf("%s\n\n", redf("Error removing contact: %v", err))
		return
	}
	removeAlias(c.Args[0])
	c.Printf("%s\n\n", greenf("Contact removed successfully."))
}

func contactGetFn(c *ishell.Context) {
	if contacts == nil {
		c.Printf("%s\n\n", redf("No contacts loaded, load using 'contact load' command."))
		return
	}
	countReqArgs := 1
	if len(c.Args) != countReqArgs {
		printArgCountError(c, countReqArgs)
		return
	}
	contact, ok := contacts.ReadByAlias(c.Args[0])
	if !ok {
		c.Printf("%s\n\n", redf("Unknown alias %s", c.Args[0]))
		return
	}
	c.Printf("%s\n\n", greenf("Alias: %s, Address: %s", contact.Alias, contact.Addr.Hex()))
}

func contactSaveFn(c *ishell.Context) {
	if contacts == nil {
		c.Printf("%s\n\n", redf("No contacts loaded, load using 'contact load' command."))
		return
	}
	if err := contacts.UpdateStorage(); err != nil {
		c.Printf("%s\n\n", redf("Error saving contacts: %v", err))
		return
	}
	c.Printf("%s\n\n", greenf("Contacts saved."))
}
