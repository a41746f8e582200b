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

package nodetest

import (
	"io/ioutil"
	"os"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/hyperledger-labs/ledger-node"
	"github.com/hyperledger-labs/ledger-node/currency"
	"github.com/hyperledger-labs/ledger-node/node"
	"github.com/hyperledger-labs/ledger-node/store"
)

// InitialBalance is the balance (in ETH) with which each account passed to
// NewConfig is funded.
const InitialBalance = "100"

// ResponseTimeout is the response timeout used in test configurations.
const ResponseTimeout = 10 * time.Second

// NewConfig generates configuration for a node that holds its state in
// memory and funds each of the given accounts with InitialBalance.
func NewConfig(accs ...common.Address) ledger.NodeConfig {
	accounts := make(map[string]string, len(accs))
	for _, acc := range accs {
		accounts[acc.Hex()] = InitialBalance
	}
	return ledger.NodeConfig{
		LogFile:         "",
		LogLevel:        "debug",
		DatabaseDir:     "",
		TCPAddr:         "",
		WebSocketAddr:   "",
		MaxConns:        10,
		ResponseTimeout: ResponseTimeout,
		Currency:        currency.ETHSymbol,
		Accounts:        accounts,
	}
}

// NewNodeT returns a node with in-memory state, that funds each of the
// given accounts with InitialBalance. The node is closed when the test
// completes.
func NewNodeT(t *testing.T, accs ...common.Address) ledger.NodeAPI {
	n, err := node.NewWithStore(NewConfig(accs...), store.NewMemory())
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := n.Close(); err != nil {
			t.Log("Error in test cleanup: closing node -", err)
		}
	})
	return n
}

// NewConfigFileT is the test friendly version of NewConfigFile.
// It uses the passed testing.T to handle the errors and registers the cleanup functions on it.
func NewConfigFileT(t *testing.T, config interface{}) string {
	configFile, err := NewConfigFile(config)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err = os.Remove(configFile); err != nil {
			t.Log("Error in test cleanup: removing file - " + configFile)
		}
	})
	return configFile
}

// NewConfigFile creates a temporary file containing the given configuration and
// returns the path to it.
func NewConfigFile(config interface{}) (string, error) {
	tempFile, err := ioutil.TempFile("", "*.yaml")
	if err != nil {
		return "", errors.Wrap(err, "creating temp file for config")
	}
	encoder := yaml.NewEncoder(tempFile)
	if err := encoder.Encode(config); err != nil {
		tempFile.Close()           // nolint: errcheck
		os.Remove(tempFile.Name()) // nolint: errcheck
		return "", errors.Wrap(err, "encoding config")
	}
	if err := encoder.Close(); err != nil {
		tempFile.Close()           // nolint: errcheck
		os.Remove(tempFile.Name()) // nolint: errcheck
		return "", errors.Wrap(err, "closing encoder")
	}
	return tempFile.Name(), tempFile.Close()
}
