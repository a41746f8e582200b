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
	"time"

	"github.com/abiosoft/ishell"

	ledgerclient "github.com/hyperledger-labs/ledger-node/client"
	"github.com/hyperledger-labs/ledger-node/identity"
)

var (
	nodeCmdUsage = "Usage: node [sub-command]"
	nodeCmd      = &ishell.Cmd{
		Name: "node",
		Help: "Use the command to access the node related functionalities." + nodeCmdUsage,
		Func: nodeFn,
	}

	nodeConnectCmdUsage = "Usage: node connect [tcp|ws] [node address] [keystore dir] [account alias or address]"
	nodeConnectCmd      = &ishell.Cmd{
		Name: "connect",
		Help: "Connect to a running ledger node instance. Keystore and account can be omitted for read only " +
			"access. Use tab completion to cycle through default values." + nodeConnectCmdUsage,
		Completer: func(args []string) []string {
			switch len(args) {
			case 0:
				return []string{ledgerclient.TransportTCP, ledgerclient.TransportWebSocket}
			case 1:
				return []string{"127.0.0.1:50001", "127.0.0.1:50002"}
			case 2:
				return []string{"keystore"}
			}
			return knownAliases()
		},
		Func: nodeConnectFn,
	}

	nodeTimeCmdUsage = "Usage: node time"
	nodeTimeCmd      = &ishell.Cmd{
		Name: "time",
		Help: "Print node time." + nodeTimeCmdUsage,
		Func: nodeTimeFn,
	}

	nodeConfigCmdUsage = "Usage: node config"
	nodeConfigCmd      = &ishell.Cmd{
		Name: "config",
		Help: "Print node config." + nodeConfigCmdUsage,
		Func: nodeConfigFn,
	}

	nodeContractsCmdUsage = "Usage: node contracts"
	nodeContractsCmd      = &ishell.Cmd{
		Name: "contracts",
		Help: "Print the contracts deployed on the node." + nodeContractsCmdUsage,
		Func: nodeContractsFn,
	}
)

func init() {
	nodeCmd.AddCmd(nodeConnectCmd)
	nodeCmd.AddCmd(nodeTimeCmd)
	nodeCmd.AddCmd(nodeConfigCmd)
	nodeCmd.AddCmd(nodeContractsCmd)
}

func nodeFn(c *ishell.Context) {
	c.Println(c.Cmd.HelpText())
}

func nodeConnectFn(c *ishell.Context) {
	if len(c.Args) != 2 && len(c.Args) != 4 {
		printArgCountError(c, 4)
		return
	}

	var signer identity.Signer
	if len(c.Args) == 4 {
		addr, err := resolveAddr(c.Args[3])
		if err != nil {
			c.Printf("%s\n\n", redf("Error parsing account: %v", err))
			return
		}
		ks, err := identity.NewKeystore(c.Args[2], false)
		if err != nil {
			c.Printf("%s\n\n", redf("Error opening keystore: %v", err))
			return
		}
		c.ShowPrompt(false)
		c.Print("Password: ")
		password := c.ReadPassword()
		c.ShowPrompt(true)
		if signer, err = identity.NewKeystoreSigner(ks, addr, password); err != nil {
			c.Printf("%s\n\n", redf("Error unlocking account: %v", err))
			return
		}
	}

	newClient, err := ledgerclient.New(ledgerclient.Config{
		Transport:   c.Args[0],
		Addr:        c.Args[1],
		DialTimeout: 5 * time.Second,
	}, signer)
	if err != nil {
		c.Printf("%s\n\n", redf("Error connecting to ledger node: %v", err))
		return
	}
	t, apiErr := newClient.Time(context.Background())
	if apiErr != nil {
		newClient.Close() // nolint: errcheck
		printAPIError(c, apiErr)
		return
	}
	if client != nil {
		client.Close() // nolint: errcheck
	}
	client = newClient
	c.Printf("%s\n\n", greenf("Connected to ledger node at %s. Node time is %v", c.Args[1], time.Unix(t, 0)))
	if signer != nil {
		c.Printf("%s\n\n", greenf("Signing requests as %s", signer.Addr().Hex()))
	}
}

func nodeTimeFn(c *ishell.Context) {
	if !checkConn(c, 0) {
		return
	}
	t, apiErr := client.Time(context.Background())
	if apiErr != nil {
		printAPIError(c, apiErr)
		return
	}
	c.Printf("%s\n\n", greenf("Ledger node time: %s", time.Unix(t, 0)))
}

func nodeConfigFn(c *ishell.Context) {
	if !checkConn(c, 0) {
		return
	}
	cfg, apiErr := client.GetConfig(context.Background())
	if apiErr != nil {
		printAPIError(c, apiErr)
		return
	}
	c.Printf("%s\n\n", greenf("Ledger node config:\n%v", prettify(cfg)))
}

func nodeContractsFn(c *ishell.Context) {
	if !checkConn(c, 0) {
		return
	}
	contracts, apiErr := client.Contracts(context.Background())
	if apiErr != nil {
		printAPIError(c, apiErr)
		return
	}
	if len(contracts) == 0 {
		c.Printf("%s\n\n", greenf("No contracts deployed."))
		return
	}
	for _, contract := range contracts {
		c.Printf("%s\n", greenf("%-10s %s deployed by %s", contract.Type, contract.Addr.Hex(),
			displayAddr(contract.Deployer)))
	}
	c.Println()
}
