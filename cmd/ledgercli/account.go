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
	"context"

	"github.com/abiosoft/ishell"
)

var (
	accountCmdUsage = "Usage: account [sub-command]"
	accountCmd      = &ishell.Cmd{
		Name: "account",
		Help: "Use this command to read the state of accounts." + accountCmdUsage,
		Func: accountFn,
	}

	accountBalanceCmdUsage = "Usage: account balance [alias or address]"
	accountBalanceCmd      = &ishell.Cmd{
		Name:      "balance",
		Help:      "Print the balance of an account." + accountBalanceCmdUsage,
		Completer: func([]string) []string { return knownAliases() },
		Func:      accountBalanceFn,
	}

	accountNonceCmdUsage = "Usage: account nonce [alias or address]"
	accountNonceCmd      = &ishell.Cmd{
		Name:      "nonce",
		Help:      "Print the nonce for the next state changing call by an account." + accountNonceCmdUsage,
		Completer: func([]string) []string { return knownAliases() },
		Func:      accountNonceFn,
	}
)

func init() {
	accountCmd.AddCmd(accountBalanceCmd)
	accountCmd.AddCmd(accountNonceCmd)
}

func accountFn(c *ishell.Context) {
	c.Println(c.Cmd.HelpText())
}

func accountBalanceFn(c *ishell.Context) {
	if !checkConn(c, 1) {
		return
	}
	addr, err := resolveAddr(c.Args[0])
	if err != nil {
		c.Printf("%s\n\n", redf("Error parsing account: %v", err))
		return
	}
	bal, apiErr := client.Balance(context.Background(), addr)
	if apiErr != nil {
		printAPIError(c, apiErr)
		return
	}
	c.Printf("%s\n\n", greenf("Balance of %s: %s %s", displayAddr(addr), eth.Print(bal), eth.Symbol()))
}

func accountNonceFn(c *ishell.Context) {
	if !checkConn(c, 1) {
		return
	}
	addr, err := resolveAddr(c.Args[0])
	if err != nil {
		c.Printf("%s\n\n", redf("Error parsing account: %v", err))
		return
	}
	nonce, apiErr := client.Nonce(context.Background(), addr)
	if apiErr != nil {
		printAPIError(c, apiErr)
		return
	}
	c.Printf("%s\n\n", greenf("Nonce of %s: %d", displayAddr(addr), nonce))
}
