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
	"io"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/hyperledger-labs/ledger-node"
)

var (
	// version is the tag from which the binary was built. It is set with
	// linker flags and left empty for untagged builds.
	version string

	// gitCommitID is the commit from which the binary was built. It is set
	// with linker flags.
	gitCommitID string
)

// versionInfo describes the build of the binary and the contracts it can host.
type versionInfo struct {
	Version   string
	GitCommit string
	GoVersion string
	Contracts []ledger.ContractType
}

func newVersionInfo() versionInfo {
	v := versionInfo{
		Version:   version,
		GitCommit: gitCommitID,
		GoVersion: runtime.Version(),
		Contracts: []ledger.ContractType{ledger.ContractEscrow, ledger.ContractGreetings, ledger.ContractTodoList},
	}
	if v.Version == "" {
		v.Version = "development build"
	}
	if v.GitCommit == "" {
		v.GitCommit = "unknown"
	}
	return v
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version information for ledgernode",
	Long:  `Print the version, the git revision and the contracts supported by this ledgernode binary.`,
	Run:   versionFn,
}

func versionFn(cmd *cobra.Command, _ []string) {
	printVersion(cmd.OutOrStdout(), newVersionInfo())
}

func printVersion(w io.Writer, v versionInfo) {
	fmt.Fprintf(w, "%s Git revision: %s\n", v.Version, v.GitCommit)
	fmt.Fprintf(w, "Built with %s, supports contracts: %v\n", v.GoVersion, v.Contracts)
}
