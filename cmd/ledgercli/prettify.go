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
	"math/big"
	"reflect"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/kylelemons/godebug/pretty"

	"github.com/hyperledger-labs/ledger-node"
)

var prettyFormatterOverrides = map[reflect.Type]interface{}{
	reflect.TypeOf(time.Duration(0)):        fmt.Sprint,
	reflect.TypeOf(common.Address{}):        displayAddr,
	reflect.TypeOf((*big.Int)(nil)):         displayAmount,
	reflect.TypeOf(ledger.ContractType("")): fmt.Sprint,
}

var prettyFormatterConfig = &pretty.Config{
	Formatter: prettyFormatterOverrides,
}

// prettify returns a prettified string version of the input data. Durations
// are printed as such, addresses with their alias if known and amounts in ETH.
func prettify(vals ...interface{}) string {
	return prettyFormatterConfig.Sprint(vals...)
}

// displayAmount prints an amount in base units as ETH, with the symbol.
func displayAmount(amount *big.Int) string {
	return eth.Print(amount) + " " + eth.Symbol()
}
