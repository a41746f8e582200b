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

	"github.com/hyperledger-labs/ledger-node"
)

var (
	escrowCmdUsage = "Usage: escrow [sub-command]"
	escrowCmd      = &ishell.Cmd{
		Name: "escrow",
		Help: "Use this command to deploy escrows and release the funds in them." + escrowCmdUsage,
		Func: escrowFn,
	}

	escrowDeployCmdUsage = "Usage: escrow deploy [beneficiary] [arbiter] [amount in ETH]"
	escrowDeployCmd      = &ishell.Cmd{
		Name: "deploy",
		Help: "Deploy an escrow that locks the amount from your account for the beneficiary." + escrowDeployCmdUsage,
		Completer: func(args []string) []string {
			if len(args) < 2 {
				return knownAliases()
			}
			return []string{"1", "0.5"}
		},
		Func: escrowDeployFn,
	}

	escrowGetCmdUsage = "Usage: escrow get [escrow address]"
	escrowGetCmd      = &ishell.Cmd{
		Name: "get",
		Help: "Print the state of an escrow." + escrowGetCmdUsage,
		Func: escrowGetFn,
	}

	escrowReleaseCmdUsage = "Usage: escrow release [escrow address]"
	escrowReleaseCmd      = &ishell.Cmd{
		Name: "release",
		Help: "Release the funds in the escrow to the beneficiary. Only the arbiter can do this." +
			escrowReleaseCmdUsage,
		Func: escrowReleaseFn,
	}
)

func init() {
	escrowCmd.AddCmd(escrowDeployCmd)
	escrowCmd.AddCmd(escrowGetCmd)
	escrowCmd.AddCmd(escrowReleaseCmd)
}

func escrowFn(c *ishell.Context) {
	c.Println(c.Cmd.HelpText())
}

func escrowDeployFn(c *ishell.Context) {
	if !checkConn(c, 3) {
		return
	}
	beneficiary, err := resolveAddr(c.Args[0])
	if err != nil {
		c.Printf("%s\n\n", redf("Error parsing beneficiary: %v", err))
		return
	}
	arbiter, err := resolveAddr(c.Args[1])
	if err != nil {
		c.Printf("%s\n\n", redf("Error parsing arbiter: %v", err))
		return
	}
	amount, err := eth.Parse(c.Args[2])
	if err != nil {
		c.Printf("%s\n\n", redf("Error parsing amount: %v", err))
		return
	}

	info, apiErr := client.DeployEscrow(context.Background(), beneficiary, arbiter, amount)
	if apiErr != nil {
		printAPIError(c, apiErr)
		return
	}
	c.Printf("%s\n\n", greenf("Escrow deployed.\n%s", escrowString(info)))
}

func escrowGetFn(c *ishell.Context) {
	if !checkConn(c, 1) {
		return
	}
	addr, err := resolveAddr(c.Args[0])
	if err != nil {
		c.Printf("%s\n\n", redf("Error parsing escrow address: %v", err))
		return
	}
	info, apiErr := client.GetEscrow(context.Background(), addr)
	if apiErr != nil {
		printAPIError(c, apiErr)
		return
	}
	c.Printf("%s\n\n", greenf("%s", escrowString(info)))
}

func escrowReleaseFn(c *ishell.Context) {
	if !checkConn(c, 1) {
		return
	}
	addr, err := resolveAddr(c.Args[0])
	if err != nil {
		c.Printf("%s\n\n", redf("Error parsing escrow address: %v", err))
		return
	}
	info, apiErr := client.ReleaseFunds(context.Background(), addr)
	if apiErr != nil {
		printAPIError(c, apiErr)
		return
	}
	c.Printf("%s\n\n", greenf("Funds released.\n%s", escrowString(info)))
}

func escrowString(info ledger.EscrowInfo) string {
	return prettify(info)
}
