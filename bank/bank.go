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

// Package bank implements the value transfer substrate of the ledger node.
// It holds the balance of every identity and contract in base units and
// moves value between them atomically.
package bank

import (
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"

	"github.com/hyperledger-labs/ledger-node"
)

var (
	// ErrInsufficientFunds is returned when the sender of a transfer does not hold enough funds.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrInvalidAmount is returned when the amount to transfer or mint is not positive.
	ErrInvalidAmount = errors.New("amount should be positive")
)

// Bank holds the balances and optionally persists them to a store after
// every change.
type Bank struct {
	mtx      sync.Mutex
	balances map[common.Address]*big.Int
	store    ledger.BalanceStore
}

// New returns a bank with the balances restored from the store. Store can
// be nil, in which case the balances are held only in memory.
func New(store ledger.BalanceStore) (*Bank, error) {
	b := &Bank{
		balances: make(map[common.Address]*big.Int),
		store:    store,
	}
	if store == nil {
		return b, nil
	}
	bals, err := store.Balances()
	if err != nil {
		return nil, errors.WithMessage(err, "restoring balances")
	}
	for addr, bal := range bals {
		b.balances[addr] = new(big.Int).Set(bal)
	}
	return b, nil
}

// Balance returns a copy of the balance held by addr. It is zero for
// unknown addresses.
func (b *Bank) Balance(addr common.Address) *big.Int {
	b.mtx.Lock()
	defer b.mtx.Unlock()
	return new(big.Int).Set(b.balance(addr))
}

func (b *Bank) balance(addr common.Address) *big.Int {
	if bal, ok := b.balances[addr]; ok {
		return bal
	}
	return new(big.Int)
}

// Mint credits amount to addr, creating value out of nothing. It is used
// for funding the genesis accounts.
func (b *Bank) Mint(addr common.Address, amount *big.Int) error {
	return b.MintAll(map[common.Address]*big.Int{addr: amount})
}

// MintAll credits the amounts to their addresses in one write. If any amount
// is not positive, no account is credited.
func (b *Bank) MintAll(amounts map[common.Address]*big.Int) error {
	for _, amount := range amounts {
		if amount == nil || amount.Sign() <= 0 {
			return errors.WithStack(ErrInvalidAmount)
		}
	}
	b.mtx.Lock()
	defer b.mtx.Unlock()

	updated := make(map[common.Address]*big.Int, len(amounts))
	for addr, amount := range amounts {
		updated[addr] = new(big.Int).Add(b.balance(addr), amount)
	}
	return b.commit(updated)
}

// Transfer moves amount from one address to another. Either both balances
// are updated (and persisted, if a store is attached) or neither is.
//
// Records of the contract state that changes along with the transfer are
// persisted in the same write as the balances. They are dropped if there is
// no store.
func (b *Bank) Transfer(from, to common.Address, amount *big.Int, records ...interface{}) error {
	if amount == nil || amount.Sign() <= 0 {
		return errors.WithStack(ErrInvalidAmount)
	}
	b.mtx.Lock()
	defer b.mtx.Unlock()

	fromBal := b.balance(from)
	if fromBal.Cmp(amount) < 0 {
		return errors.Wrapf(ErrInsufficientFunds, "%s has %s, required %s", from.Hex(), fromBal, amount)
	}
	if from == to {
		return b.commit(map[common.Address]*big.Int{from: new(big.Int).Set(fromBal)}, records...)
	}
	return b.commit(map[common.Address]*big.Int{
		from: new(big.Int).Sub(fromBal, amount),
		to:   new(big.Int).Add(b.balance(to), amount),
	}, records...)
}

// commit persists the updated balances with the records and then applies
// the balances in memory. Nothing is changed if persisting fails.
func (b *Bank) commit(updated map[common.Address]*big.Int, records ...interface{}) error {
	if b.store != nil {
		if err := b.store.PutBalances(updated, records...); err != nil {
			return errors.WithMessage(err, "persisting balances")
		}
	}
	for addr, bal := range updated {
		b.balances[addr] = bal
	}
	return nil
}
