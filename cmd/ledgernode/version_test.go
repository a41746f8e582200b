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
	"bytes"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hyperledger-labs/ledger-node"
)

func Test_newVersionInfo(t *testing.T) {
	t.Run("untagged_build", func(t *testing.T) {
		v := newVersionInfo()
		assert.Equal(t, "development build", v.Version)
		assert.Equal(t, "unknown", v.GitCommit)
		assert.Equal(t, runtime.Version(), v.GoVersion)
		assert.Equal(t, []ledger.ContractType{ledger.ContractEscrow, ledger.ContractGreetings, ledger.ContractTodoList},
			v.Contracts)
	})

	t.Run("tagged_build", func(t *testing.T) {
		version, gitCommitID = "v0.2.0", "a1b2c3d"
		defer func() { version, gitCommitID = "", "" }()

		var buf bytes.Buffer
		printVersion(&buf, newVersionInfo())
		assert.Contains(t, buf.String(), "v0.2.0 Git revision: a1b2c3d\n")
		assert.Contains(t, buf.String(), "supports contracts: [escrow greetings todolist]")
	})
}
