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

// Package currency provides parsers for converting amounts between their
// decimal string representation and the base unit used by the ledger.
package currency

import (
	"math/big"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// placesToRound is the number of decimal places used when printing amounts.
const placesToRound = 6

// currency parses and prints amounts of a currency that has a fixed number of
// decimal places.
type currency struct {
	symbol      string
	maxDecimals int32
	decimals    decimal.Decimal // 10^maxDecimals, the number of base units in one unit.
}

// Parse parses the given amount string, converts it to the base unit and
// returns a big.Int representation of the value.
//
// It can parse decimal values upto the smallest fraction supported by the
// currency and convert it to corresponding amount in base unit without loss
// of accuracy. Negative amounts and amounts smaller than one base unit are
// rejected.
func (c currency) Parse(input string) (*big.Int, error) {
	amount, err := decimal.NewFromString(input)
	if err != nil {
		return nil, errors.Wrap(err, "invalid decimal string")
	}

	amountBaseUnit := amount.Mul(c.decimals)
	if amountBaseUnit.LessThan(decimal.NewFromInt(1)) {
		return nil, errors.Errorf("amount is too small, should be larger than %s", c.smallest())
	}
	if !amountBaseUnit.Equal(amountBaseUnit.Truncate(0)) {
		return nil, errors.Errorf("amount has more decimal places than supported by %s", c.symbol)
	}
	return amountBaseUnit.BigInt(), nil
}

// Print converts the input in base unit to the currency unit and returns a
// string representation of it.
// The returned string is rounded off to 6 decimal places for visual representation.
func (c currency) Print(input *big.Int) string {
	if input == nil {
		input = big.NewInt(0)
	}
	amount := decimal.NewFromBigInt(input, 0)
	return amount.Div(c.decimals).StringFixedBank(placesToRound)
}

// Symbol returns the symbol of the currency.
func (c currency) Symbol() string {
	return c.symbol
}

func (c currency) smallest() string {
	return decimal.New(1, -c.maxDecimals).String()
}
