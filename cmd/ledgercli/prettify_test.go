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
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperledger-labs/ledger-node"
	"github.com/hyperledger-labs/ledger-node/contacts/contactstest"
	"github.com/hyperledger-labs/ledger-node/contacts/contactsyaml"
)

func Test_prettify_EscrowInfo(t *testing.T) {
	escrowAddr := common.HexToAddress("0x1230000000000000000000000000000000000456")
	depositorAddr := common.HexToAddress("0x3369783337071807248093730889602727505701")
	arbiterAddr := common.HexToAddress("0x7187308896023072480933697833370727318468")

	var err error
	contacts, err = contactsyaml.New(contactstest.NewYAMLFile(t, contactstest.NewContact("arbiter", arbiterAddr)))
	require.NoError(t, err)
	defer func() { contacts = nil }()

	got := prettify(ledger.EscrowInfo{
		Addr:          escrowAddr,
		Depositor:     depositorAddr,
		Beneficiary:   common.HexToAddress("0x4560000000000000000000000000000000000123"),
		Arbiter:       arbiterAddr,
		Amount:        big.NewInt(15e17),
		FundsReleased: true,
	})
	assert.Contains(t, got, escrowAddr.Hex())
	assert.Contains(t, got, depositorAddr.Hex())
	assert.Contains(t, got, "arbiter ("+arbiterAddr.Hex()+")")
	assert.Contains(t, got, "1.500000 ETH")
	assert.Contains(t, got, "true")
}

func Test_displayAmount(t *testing.T) {
	assert.Equal(t, "0.000000 ETH", displayAmount(nil))
	assert.Equal(t, "2.000000 ETH", displayAmount(big.NewInt(2e18)))
}
