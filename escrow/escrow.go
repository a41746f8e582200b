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

package escrow

import (
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"

	"github.com/hyperledger-labs/ledger-node"
	"github.com/hyperledger-labs/ledger-node/log"
)

var (
	// ErrUnauthorized is returned when an identity other than the arbiter
	// tries to release the funds. Its message is relied upon by existing
	// callers and must not change.
	ErrUnauthorized = errors.New("Only arbiter can release funds") // nolint: stylecheck

	// ErrAlreadyReleased is returned when releasing the funds of an escrow
	// that was already released.
	ErrAlreadyReleased = errors.New("funds already released")

	// ErrInvalidAmount is returned when creating an escrow without funds.
	ErrInvalidAmount = errors.New("funded amount should be positive")

	// ErrZeroAddress is returned when any of the parties is the zero address.
	ErrZeroAddress = errors.New("party address should not be zero")

	// ErrBeneficiaryIsArbiter is returned when the beneficiary and the
	// arbiter are the same identity.
	ErrBeneficiaryIsArbiter = errors.New("beneficiary and arbiter should be distinct")
)

// Record is a snapshot of the state of an escrow ledger, used for persisting it.
type Record struct {
	Addr          common.Address
	Depositor     common.Address
	Beneficiary   common.Address
	Arbiter       common.Address
	Amount        *big.Int
	FundsReleased bool
}

// Ledger holds the funds deposited by the depositor in custody of the bank
// account at its address.
type Ledger struct {
	log.Logger

	mtx sync.Mutex

	addr        common.Address
	depositor   common.Address
	beneficiary common.Address
	arbiter     common.Address
	amount      *big.Int

	fundsReleased bool

	bank ledger.Bank
}

// New creates an escrow ledger at addr and transfers the funded amount from
// the depositor to it. The record of the new escrow is persisted by the bank
// along with the transfer, so either both are committed or neither is.
//
// Errors from the transfer, such as insufficient funds of the depositor, are
// returned as such.
func New(b ledger.Bank, addr, depositor, beneficiary, arbiter common.Address, amount *big.Int) (
	*Ledger, error) {
	if err := validate(depositor, beneficiary, arbiter, amount); err != nil {
		return nil, err
	}

	l := newLedger(b, Record{
		Addr:        addr,
		Depositor:   depositor,
		Beneficiary: beneficiary,
		Arbiter:     arbiter,
		Amount:      new(big.Int).Set(amount),
	})
	if err := b.Transfer(depositor, addr, l.amount, l.record()); err != nil {
		return nil, err
	}
	l.WithField("amount", l.amount).Info("Funds deposited")
	return l, nil
}

// FromRecord restores an escrow ledger from its persisted state. No funds are
// transferred.
func FromRecord(b ledger.Bank, r Record) *Ledger {
	return newLedger(b, r)
}

func newLedger(b ledger.Bank, r Record) *Ledger {
	return &Ledger{
		Logger:        log.NewContractLogger(string(ledger.ContractEscrow), r.Addr),
		addr:          r.Addr,
		depositor:     r.Depositor,
		beneficiary:   r.Beneficiary,
		arbiter:       r.Arbiter,
		amount:        r.Amount,
		fundsReleased: r.FundsReleased,
		bank:          b,
	}
}

func validate(depositor, beneficiary, arbiter common.Address, amount *big.Int) error {
	zero := common.Address{}
	switch {
	case amount == nil || amount.Sign() <= 0:
		return errors.WithStack(ErrInvalidAmount)
	case depositor == zero || beneficiary == zero || arbiter == zero:
		return errors.WithStack(ErrZeroAddress)
	case beneficiary == arbiter:
		return errors.WithStack(ErrBeneficiaryIsArbiter)
	}
	return nil
}

// Address returns the address of the escrow ledger, which also holds the funds.
func (l *Ledger) Address() common.Address { return l.addr }

// Depositor returns the identity that funded the escrow.
func (l *Ledger) Depositor() common.Address { return l.depositor }

// Beneficiary returns the identity that receives the funds on release.
func (l *Ledger) Beneficiary() common.Address { return l.beneficiary }

// Arbiter returns the identity that is authorized to release the funds.
func (l *Ledger) Arbiter() common.Address { return l.arbiter }

// Amount returns a copy of the amount held by the escrow. It never changes
// after creation.
func (l *Ledger) Amount() *big.Int { return new(big.Int).Set(l.amount) }

// FundsReleased returns true if the funds were released to the beneficiary.
func (l *Ledger) FundsReleased() bool {
	l.mtx.Lock()
	defer l.mtx.Unlock()
	return l.fundsReleased
}

// ReleaseFunds transfers the held amount to the beneficiary. Only the arbiter
// can release the funds and they can be released only once.
//
// The released state is persisted in the same write as the transfer. If that
// fails, the escrow still holds the funds and can be released again.
func (l *Ledger) ReleaseFunds(caller common.Address) error {
	l.mtx.Lock()
	defer l.mtx.Unlock()

	if caller != l.arbiter {
		return errors.WithStack(ErrUnauthorized)
	}
	if l.fundsReleased {
		return errors.WithStack(ErrAlreadyReleased)
	}

	released := l.record()
	released.FundsReleased = true
	if err := l.bank.Transfer(l.addr, l.beneficiary, l.amount, released); err != nil {
		return err
	}
	l.fundsReleased = true
	l.WithField("beneficiary", l.beneficiary.Hex()).Info("Funds released")
	return nil
}

// Info returns the current state of the escrow ledger.
func (l *Ledger) Info() ledger.EscrowInfo {
	l.mtx.Lock()
	defer l.mtx.Unlock()
	r := l.record()
	return ledger.EscrowInfo{
		Addr:          r.Addr,
		Depositor:     r.Depositor,
		Beneficiary:   r.Beneficiary,
		Arbiter:       r.Arbiter,
		Amount:        r.Amount,
		FundsReleased: r.FundsReleased,
	}
}

// Record returns a snapshot of the current state for persisting it.
func (l *Ledger) Record() Record {
	l.mtx.Lock()
	defer l.mtx.Unlock()
	return l.record()
}

func (l *Ledger) record() Record {
	return Record{
		Addr:          l.addr,
		Depositor:     l.depositor,
		Beneficiary:   l.beneficiary,
		Arbiter:       l.arbiter,
		Amount:        new(big.Int).Set(l.amount),
		FundsReleased: l.fundsReleased,
	}
}

