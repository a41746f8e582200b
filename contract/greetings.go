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

// Package contract implements the simple contracts hosted on the ledger node
// along with the escrow: a greetings contract that stores a message and a
// todo list contract that stores tasks.
//
// Both of them hold no funds. Any identity can modify their state.
package contract

import (
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"

	"github.com/hyperledger-labs/ledger-node"
	"github.com/hyperledger-labs/ledger-node/log"
)

// DefaultGreeting is the greeting set on deploying a greetings contract.
const DefaultGreeting = "Hello, World!"

// ErrEmptyGreeting is returned when setting an empty greeting.
var ErrEmptyGreeting = errors.New("greeting should not be empty")

// GreetingsStore persists the state of greetings contracts.
type GreetingsStore interface {
	PutGreetings(GreetingsRecord) error
}

// GreetingsRecord is a snapshot of the state of a greetings contract.
type GreetingsRecord struct {
	Addr     common.Address
	Owner    common.Address
	Greeting string
}

// Greetings stores a greeting message that can be read and changed by anyone.
type Greetings struct {
	log.Logger

	mtx      sync.Mutex
	addr     common.Address
	owner    common.Address
	greeting string

	store GreetingsStore
}

// NewGreetings deploys a greetings contract at addr with the default greeting.
func NewGreetings(s GreetingsStore, addr, owner common.Address) (*Greetings, error) {
	g := FromGreetingsRecord(s, GreetingsRecord{Addr: addr, Owner: owner, Greeting: DefaultGreeting})
	if err := g.persist(g.record()); err != nil {
		return nil, err
	}
	return g, nil
}

// FromGreetingsRecord restores a greetings contract from its persisted state.
func FromGreetingsRecord(s GreetingsStore, r GreetingsRecord) *Greetings {
	return &Greetings{
		Logger:   log.NewContractLogger(string(ledger.ContractGreetings), r.Addr),
		addr:     r.Addr,
		owner:    r.Owner,
		greeting: r.Greeting,
		store:    s,
	}
}

// Greet returns the current greeting.
func (g *Greetings) Greet() string {
	g.mtx.Lock()
	defer g.mtx.Unlock()
	return g.greeting
}

// SetGreeting changes the greeting.
func (g *Greetings) SetGreeting(caller common.Address, greeting string) error {
	if greeting == "" {
		return errors.WithStack(ErrEmptyGreeting)
	}
	g.mtx.Lock()
	defer g.mtx.Unlock()

	updated := g.record()
	updated.Greeting = greeting
	if err := g.persist(updated); err != nil {
		return err
	}
	g.greeting = greeting
	g.WithField("caller", caller.Hex()).Debug("Greeting updated")
	return nil
}

// Info returns the current state of the contract.
func (g *Greetings) Info() ledger.GreetingsInfo {
	g.mtx.Lock()
	defer g.mtx.Unlock()
	return ledger.GreetingsInfo{Addr: g.addr, Owner: g.owner, Greeting: g.greeting}
}

// Record returns a snapshot of the current state for persisting it.
func (g *Greetings) Record() GreetingsRecord {
	g.mtx.Lock()
	defer g.mtx.Unlock()
	return g.record()
}

func (g *Greetings) record() GreetingsRecord {
	return GreetingsRecord{Addr: g.addr, Owner: g.owner, Greeting: g.greeting}
}

func (g *Greetings) persist(r GreetingsRecord) error {
	if g.store == nil {
		return nil
	}
	return errors.WithMessage(g.store.PutGreetings(r), "persisting greetings")
}
