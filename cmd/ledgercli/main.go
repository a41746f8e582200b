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
	"fmt"

	"github.com/abiosoft/ishell"
	"github.com/fatih/color"

	"github.com/hyperledger-labs/ledger-node"
	ledgerclient "github.com/hyperledger-labs/ledger-node/client"
	"github.com/hyperledger-labs/ledger-node/contacts/contactsyaml"
	"github.com/hyperledger-labs/ledger-node/currency"
)

var (
	// File that stores history of commands used in the interactive shell.
	// This will be preserved across the multiple runs of ledger cli.
	// It will be located in the home directory.
	historyFile = ".ledgercli_history"

	// Singleton instance of ishell that is used throughout this program.
	sh *ishell.Shell

	// Singleton instance of the node client that will be used by all
	// functions in this program. It is set by "node connect".
	client *ledgerclient.Client

	// Contacts used for resolving aliases to addresses. It is set by
	// "contact load".
	contacts *contactsyaml.Provider

	// Currency used for parsing and printing amounts.
	eth = currency.NewRegistryWithETH().Currency(currency.ETHSymbol)

	// SPrintf style functions that produce colored text.
	redf   = color.New(color.FgRed).SprintfFunc()
	greenf = color.New(color.FgGreen).SprintfFunc()
)

func main() {
	// New shell includes help, clear, exit commands by default.
	sh = ishell.New()

	// Read and write history to $HOME/historyFile
	sh.SetHomeHistoryPath(historyFile)

	sh.AddCmd(nodeCmd)
	sh.AddCmd(contactCmd)
	sh.AddCmd(accountCmd)
	sh.AddCmd(escrowCmd)
	sh.AddCmd(greetingsCmd)
	sh.AddCmd(todoCmd)

	sh.Printf("Ledger node cli application.\n\n")
	sh.Printf("%s\n\n", greenf("Connect to a ledger node instance using 'node connect' for making any transactions."))

	sh.Run()
	if client != nil {
		client.Close() // nolint: errcheck
	}
}

// printNodeNotConnectedError is a helper function to print error message that is used across mutiple commands.
func printNodeNotConnectedError(c ishell.Actions) {
	c.Printf("%s\n\n", redf("Not connected to ledger node, connect using 'node connect' command."))
}

// printArgCountError is a helper function to print error message that is used across mutiple commands.
func printArgCountError(c *ishell.Context, reqArgCount int) {
	c.Printf("%s\n\n", redf("Got %d arg(s). Want %d.", len(c.Args), reqArgCount))
	c.Printf("Command help:\t%s\n\n", c.Cmd.Help)
}

// printAPIError is a helper function to print the error returned by the node.
func printAPIError(c ishell.Actions, apiErr ledger.APIError) {
	c.Printf("%s\n\n", redf("Error: %s", apiErrorString(apiErr)))
}

// apiErrorString formats the error message returned by the API into pretty strings.
func apiErrorString(e ledger.APIError) string {
	return fmt.Sprintf("category: %s, code: %d, message: %s, additional info: %+v",
		e.Category(), e.Code(), e.Message(), e.AddInfo())
}

// checkConn prints an error and returns false if the client is not
// connected or the number of args is not as expected.
func checkConn(c *ishell.Context, countReqArgs int) bool {
	if client == nil {
		printNodeNotConnectedError(c)
		return false
	}
	if len(c.Args) != countReqArgs {
		printArgCountError(c, countReqArgs)
		return false
	}
	return true
}
