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
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.SetHelpCommand(&cobra.Command{
		Use:    "no-help",
		Hidden: true,
	})
}

var rootCmd = &cobra.Command{
	Use:   "ledgernode",
	Short: "A node that hosts escrow contracts on an account ledger.",
	Long: `
A node that hosts escrow contracts on an account ledger. A depositor locks
funds in an escrow for a beneficiary and only the arbiter of the escrow can
release them. The node also hosts greetings and todo list contracts.

The node serves its API over TCP and websocket. State changing requests must
be signed by the caller.`,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		panic(err)
	}
}
