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
	"io/ioutil"
	"os"
	"path/filepath"
	"time"

	cp "github.com/otiai10/copy"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/hyperledger-labs/ledger-node"
	"github.com/hyperledger-labs/ledger-node/currency"
	"github.com/hyperledger-labs/ledger-node/identity"
)

const (
	depositorAlias, beneficiaryAlias, arbiterAlias = "depositor", "beneficiary", "arbiter"

	nodeConfigFile = "node.yaml"
	keystoreDir    = "keystore"
	contactsFile   = "contacts.yaml"
	databaseDir    = "database"

	// demoSeed is used for deriving the keys of the demo accounts. Anyone
	// can derive these keys, so they must never hold real funds.
	demoSeed = "ledger-node demo accounts"
	// demoPassword is the password for the keys in the demo keystore.
	demoPassword = ""
	// demoBalance is the initial balance of each demo account in ETH.
	demoBalance = "100"

	demoTCPAddr       = "127.0.0.1:50001"
	demoWebSocketAddr = "127.0.0.1:50002"

	outDirF = "outdir"

	dirFileMode = os.FileMode(0o750)
)

var demoAliases = []string{depositorAlias, beneficiaryAlias, arbiterAlias}

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate demo artifacts",
	Long: `
Generate demo artifacts for running the node and its clients.

- node.yaml: node configuration that funds each of the demo accounts with
  100 ETH when the node starts with an empty database.
- keystore: directory containing the keys of the demo accounts (depositor,
  beneficiary and arbiter) with empty password.
- contacts.yaml: contacts file with the aliases of the demo accounts.

The keys are derived from a fixed seed and are the same on every run. Hence
they must never be used for real funds.`,

	Run: generate,
}

func init() {
	rootCmd.AddCommand(generateCmd)
	generateCmd.Flags().String(outDirF, ".", "directory in which the artifacts are generated")
}

func generate(cmd *cobra.Command, _ []string) {
	outDir, err := cmd.Flags().GetString(outDirF)
	if err != nil {
		panic("unknown flag " + outDirF + "\n")
	}
	if err = generateArtifacts(outDir); err != nil {
		fmt.Printf("Error generating demo artifacts: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Generated demo artifacts in %s: %s, %s, %s\n", outDir, nodeConfigFile, keystoreDir, contactsFile)
}

// generateArtifacts generates the artifacts in a temp dir and then copies
// them to the out dir, so that no partial artifacts are left on error.
func generateArtifacts(outDir string) error {
	if isPresent, name := isAnyPresent(outDir, nodeConfigFile, keystoreDir, contactsFile); isPresent {
		return errors.New("file exists - " + name)
	}
	tempDir, err := ioutil.TempDir("", "ledgernode-demo")
	if err != nil {
		return errors.Wrap(err, "creating temp dir")
	}
	defer os.RemoveAll(tempDir) // nolint: errcheck

	ksDir := filepath.Join(tempDir, keystoreDir)
	if err = os.Mkdir(ksDir, dirFileMode); err != nil {
		return errors.Wrap(err, "creating keystore dir")
	}
	ks, err := identity.NewKeystore(ksDir, true)
	if err != nil {
		return err
	}

	nodeCfg := demoNodeConfig()
	contacts := make(map[string]ledger.Contact, len(demoAliases))
	for i, alias := range demoAliases {
		key, err := identity.DeriveKey(demoSeed, i)
		if err != nil {
			return err
		}
		acc, err := ks.ImportECDSA(key, demoPassword)
		if err != nil {
			return errors.Wrap(err, "importing key to keystore")
		}
		nodeCfg.Accounts[acc.Address.Hex()] = demoBalance
		contacts[alias] = ledger.Contact{Alias: alias, AddrString: acc.Address.Hex()}
	}

	if err = writeYAML(filepath.Join(tempDir, nodeConfigFile), nodeCfg); err != nil {
		return err
	}
	if err = writeYAML(filepath.Join(tempDir, contactsFile), contacts); err != nil {
		return err
	}
	return errors.Wrap(cp.Copy(tempDir, outDir), "copying artifacts")
}

func demoNodeConfig() ledger.NodeConfig {
	return ledger.NodeConfig{
		LogLevel:        "info",
		LogFile:         "",
		DatabaseDir:     databaseDir,
		TCPAddr:         demoTCPAddr,
		WebSocketAddr:   demoWebSocketAddr,
		MaxConns:        100,
		ResponseTimeout: 10 * time.Second,
		Currency:        currency.ETHSymbol,
		Accounts:        make(map[string]string),
	}
}

func isAnyPresent(dir string, names ...string) (bool, string) {
	for i := range names {
		path := filepath.Join(dir, names[i])
		if _, err := os.Stat(path); !os.IsNotExist(err) {
			return true, path
		}
	}
	return false, ""
}

func writeYAML(path string, v interface{}) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "creating file")
	}
	defer func() {
		if fCloseErr := f.Close(); fCloseErr != nil && err == nil {
			err = errors.Wrap(fCloseErr, "closing file")
		}
	}()

	encoder := yaml.NewEncoder(f)
	if err = encoder.Encode(v); err != nil {
		return errors.Wrap(err, "encoding data as yaml")
	}
	return errors.Wrap(encoder.Close(), "closing encoder")
}
