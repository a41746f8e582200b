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

// Package currencytest provides the ETH currency and amount helpers for
// tests.
package currencytest

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hyperledger-labs/ledger-node"
	"github.com/hyperledger-labs/ledger-node/currency"
)

// ETH returns the currency in which the node holds balances, as registered
// by the node.
func ETH() ledger.Currency {
	return currency.NewRegistryWithETH().Currency(currency.ETHSymbol)
}

// WeiT parses an amount in ETH (such as "1.5") to base units and fails the
// test if it is invalid.
func WeiT(t *testing.T, amount string) *big.Int {
	wei, err := ETH().Parse(amount)
	require.NoError(t, err, "parsing amount "+amount)
	return wei
}
