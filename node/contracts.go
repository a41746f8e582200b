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

package node

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"

	"github.com/hyperledger-labs/ledger-node"
	"github.com/hyperledger-labs/ledger-node/bank"
	"github.com/hyperledger-labs/ledger-node/contract"
	"github.com/hyperledger-labs/ledger-node/escrow"
	"github.com/hyperledger-labs/ledger-node/log"
)

// DeployEscrow creates an escrow with the caller as depositor and transfers
// the amount from the caller to it. The address of the escrow is derived
// from the caller's address and nonce.
//
// If there is an error, it will be one of the following codes:
// - ErrInvalidNonce if the nonce is not the expected one.
// - ErrInvalidArgument with Name:"amount" if the amount is not positive.
// - ErrInvalidArgument with Name:"beneficiary" or Name:"arbiter" if any of
// them is the zero address or if both are the same.
// - ErrInsufficientFunds if the caller cannot fund the escrow.
// - ErrResourceExists if a contract already exists at the derived address.
// - ErrStorageFailure.
// - ErrUnknownInternal.
func (n *node) DeployEscrow(c ledger.Caller, beneficiary, arbiter common.Address, amount *big.Int) (
	_ ledger.EscrowInfo, apiErr ledger.APIError) {
	n.logRequest("DeployEscrow", c, beneficiary.Hex(), arbiter.Hex(), amount)
	defer func() { n.logAPIErr("DeployEscrow", apiErr) }()

	if apiErr = n.useNonce(c); apiErr != nil {
		return ledger.EscrowInfo{}, apiErr
	}
	addr := crypto.CreateAddress(c.Addr, c.Nonce)

	n.mtx.Lock()
	defer n.mtx.Unlock()
	if _, ok := n.contracts[addr]; ok {
		return ledger.EscrowInfo{}, ledger.NewAPIErrResourceExists(ResTypeContract, addr.Hex())
	}

	e, err := escrow.New(n.bank, addr, c.Addr, beneficiary, arbiter, amount)
	if err != nil {
		return ledger.EscrowInfo{}, n.escrowNewErr(err, c.Addr, beneficiary, arbiter, amount)
	}
	n.escrows[addr] = e
	n.contracts[addr] = ledger.ContractInfo{Addr: addr, Type: ledger.ContractEscrow, Deployer: c.Addr}

	n.WithFields(log.Fields{"method": "DeployEscrow", "escrow": addr.Hex()}).Info("Escrow deployed")
	return e.Info(), nil
}

func (n *node) escrowNewErr(err error, depositor, beneficiary, arbiter common.Address, amount *big.Int) ledger.APIError {
	switch {
	case errors.Is(err, escrow.ErrInvalidAmount):
		return ledger.NewAPIErrInvalidArgument(err, ArgNameAmount, fmt.Sprint(amount))
	case errors.Is(err, escrow.ErrZeroAddress):
		if beneficiary == (common.Address{}) {
			return ledger.NewAPIErrInvalidArgument(err, ArgNameBeneficiary, beneficiary.Hex())
		}
		return ledger.NewAPIErrInvalidArgument(err, ArgNameArbiter, arbiter.Hex())
	case errors.Is(err, escrow.ErrBeneficiaryIsArbiter):
		return ledger.NewAPIErrInvalidArgument(err, ArgNameArbiter, arbiter.Hex())
	case errors.Is(err, bank.ErrInsufficientFunds):
		return ledger.NewAPIErrInsufficientFunds(err, depositor.Hex(),
			n.currency.Print(n.bank.Balance(depositor)), n.currency.Print(amount))
	}
	return toAPIErr(err, "escrow")
}

// GetEscrow returns the current state of the escrow at the address.
//
// If there is an error, it will be one of the following codes:
// - ErrResourceNotFound if there is no escrow at the address.
func (n *node) GetEscrow(addr common.Address) (_ ledger.EscrowInfo, apiErr ledger.APIError) {
	n.WithField("method", "GetEscrow").Debug("Received request with params:", addr.Hex())
	defer func() { n.logAPIErr("GetEscrow", apiErr) }()

	e, apiErr := n.getEscrow(addr)
	if apiErr != nil {
		return ledger.EscrowInfo{}, apiErr
	}
	return e.Info(), nil
}

// ReleaseFunds releases the funds held by the escrow at the address to its
// beneficiary. Only the arbiter of the escrow can release the funds, and
// only once.
//
// If there is an error, it will be one of the following codes:
// - ErrInvalidNonce if the nonce is not the expected one.
// - ErrResourceNotFound if there is no escrow at the address.
// - ErrUnauthorized if the caller is not the arbiter. Message will be
// "Only arbiter can release funds".
// - ErrFailedPreCondition if the funds were already released.
// - ErrStorageFailure.
// - ErrUnknownInternal.
func (n *node) ReleaseFunds(c ledger.Caller, addr common.Address) (_ ledger.EscrowInfo, apiErr ledger.APIError) {
	n.logRequest("ReleaseFunds", c, addr.Hex())
	defer func() { n.logAPIErr("ReleaseFunds", apiErr) }()

	if apiErr = n.useNonce(c); apiErr != nil {
		return ledger.EscrowInfo{}, apiErr
	}
	e, apiErr := n.getEscrow(addr)
	if apiErr != nil {
		return ledger.EscrowInfo{}, apiErr
	}

	if err := e.ReleaseFunds(c.Addr); err != nil {
		switch {
		case errors.Is(err, escrow.ErrUnauthorized):
			return e.Info(), ledger.NewAPIErrUnauthorized(err, c.Addr.Hex(), e.Arbiter().Hex())
		case errors.Is(err, escrow.ErrAlreadyReleased):
			return e.Info(), ledger.NewAPIErrFailedPreCondition(err)
		}
		return e.Info(), toAPIErr(err, "escrow")
	}
	return e.Info(), nil
}

func (n *node) getEscrow(addr common.Address) (*escrow.Ledger, ledger.APIError) {
	n.mtx.RLock()
	e, ok := n.escrows[addr]
	n.mtx.RUnlock()
	if !ok {
		return nil, ledger.NewAPIErrResourceNotFound(ResTypeEscrow, addr.Hex())
	}
	return e, nil
}

// DeployGreetings creates a greetings contract with the default greeting.
//
// If there is an error, it will be one of the following codes:
// - ErrInvalidNonce if the nonce is not the expected one.
// - ErrResourceExists if a contract already exists at the derived address.
// - ErrStorageFailure.
// - ErrUnknownInternal.
func (n *node) DeployGreetings(c ledger.Caller) (_ ledger.GreetingsInfo, apiErr ledger.APIError) {
	n.logRequest("DeployGreetings", c)
	defer func() { n.logAPIErr("DeployGreetings", apiErr) }()

	if apiErr = n.useNonce(c); apiErr != nil {
		return ledger.GreetingsInfo{}, apiErr
	}
	addr := crypto.CreateAddress(c.Addr, c.Nonce)

	n.mtx.Lock()
	defer n.mtx.Unlock()
	if _, ok := n.contracts[addr]; ok {
		return ledger.GreetingsInfo{}, ledger.NewAPIErrResourceExists(ResTypeContract, addr.Hex())
	}
	g, err := contract.NewGreetings(n.store, addr, c.Addr)
	if err != nil {
		return ledger.GreetingsInfo{}, toAPIErr(err, "greetings")
	}
	n.greetings[addr] = g
	n.contracts[addr] = ledger.ContractInfo{Addr: addr, Type: ledger.ContractGreetings, Deployer: c.Addr}
	return g.Info(), nil
}

// Greet returns the state of the greetings contract at the address.
//
// If there is an error, it will be one of the following codes:
// - ErrResourceNotFound if there is no greetings contract at the address.
func (n *node) Greet(addr common.Address) (_ ledger.GreetingsInfo, apiErr ledger.APIError) {
	n.WithField("method", "Greet").Debug("Received request with params:", addr.Hex())
	defer func() { n.logAPIErr("Greet", apiErr) }()

	g, apiErr := n.getGreetings(addr)
	if apiErr != nil {
		return ledger.GreetingsInfo{}, apiErr
	}
	return g.Info(), nil
}

// SetGreeting changes the greeting of the greetings contract at the address.
//
// If there is an error, it will be one of the following codes:
// - ErrInvalidNonce if the nonce is not the expected one.
// - ErrResourceNotFound if there is no greetings contract at the address.
// - ErrInvalidArgument with Name:"greeting" if the greeting is empty.
// - ErrStorageFailure.
// - ErrUnknownInternal.
func (n *node) SetGreeting(c ledger.Caller, addr common.Address, greeting string) (
	_ ledger.GreetingsInfo, apiErr ledger.APIError) {
	n.logRequest("SetGreeting", c, addr.Hex(), greeting)
	defer func() { n.logAPIErr("SetGreeting", apiErr) }()

	if apiErr = n.useNonce(c); apiErr != nil {
		return ledger.GreetingsInfo{}, apiErr
	}
	g, apiErr := n.getGreetings(addr)
	if apiErr != nil {
		return ledger.GreetingsInfo{}, apiErr
	}
	if err := g.SetGreeting(c.Addr, greeting); err != nil {
		if errors.Is(err, contract.ErrEmptyGreeting) {
			return ledger.GreetingsInfo{}, ledger.NewAPIErrInvalidArgument(err, ArgNameGreeting, greeting)
		}
		return ledger.GreetingsInfo{}, toAPIErr(err, "greetings")
	}
	return g.Info(), nil
}

func (n *node) getGreetings(addr common.Address) (*contract.Greetings, ledger.APIError) {
	n.mtx.RLock()
	g, ok := n.greetings[addr]
	n.mtx.RUnlock()
	if !ok {
		return nil, ledger.NewAPIErrResourceNotFound(ResTypeGreetings, addr.Hex())
	}
	return g, nil
}

// DeployTodoList creates an empty todo list contract.
//
// If there is an error, it will be one of the following codes:
// - ErrInvalidNonce if the nonce is not the expected one.
// - ErrResourceExists if a contract already exists at the derived address.
// - ErrStorageFailure.
// - ErrUnknownInternal.
func (n *node) DeployTodoList(c ledger.Caller) (_ ledger.TodoListInfo, apiErr ledger.APIError) {
	n.logRequest("DeployTodoList", c)
	defer func() { n.logAPIErr("DeployTodoList", apiErr) }()

	if apiErr = n.useNonce(c); apiErr != nil {
		return ledger.TodoListInfo{}, apiErr
	}
	addr := crypto.CreateAddress(c.Addr, c.Nonce)

	n.mtx.Lock()
	defer n.mtx.Unlock()
	if _, ok := n.contracts[addr]; ok {
		return ledger.TodoListInfo{}, ledger.NewAPIErrResourceExists(ResTypeContract, addr.Hex())
	}
	l, err := contract.NewTodoList(n.store, addr, c.Addr)
	if err != nil {
		return ledger.TodoListInfo{}, toAPIErr(err, "todolist")
	}
	n.todoLists[addr] = l
	n.contracts[addr] = ledger.ContractInfo{Addr: addr, Type: ledger.ContractTodoList, Deployer: c.Addr}
	return l.Info(), nil
}

// CreateTask adds a task to the todo list contract at the address.
//
// If there is an error, it will be one of the following codes:
// - ErrInvalidNonce if the nonce is not the expected one.
// - ErrResourceNotFound if there is no todo list contract at the address.
// - ErrInvalidArgument with Name:"content" if the content is empty.
// - ErrStorageFailure.
// - ErrUnknownInternal.
func (n *node) CreateTask(c ledger.Caller, addr common.Address, content string) (_ ledger.Task, apiErr ledger.APIError) {
	n.logRequest("CreateTask", c, addr.Hex(), content)
	defer func() { n.logAPIErr("CreateTask", apiErr) }()

	if apiErr = n.useNonce(c); apiErr != nil {
		return ledger.Task{}, apiErr
	}
	l, apiErr := n.getTodoList(addr)
	if apiErr != nil {
		return ledger.Task{}, apiErr
	}
	task, err := l.CreateTask(c.Addr, content)
	if err != nil {
		if errors.Is(err, contract.ErrEmptyContent) {
			return ledger.Task{}, ledger.NewAPIErrInvalidArgument(err, ArgNameContent, content)
		}
		return ledger.Task{}, toAPIErr(err, "todolist")
	}
	return task, nil
}

// ToggleCompleted flips the completed status of a task in the todo list
// contract at the address.
//
// If there is an error, it will be one of the following codes:
// - ErrInvalidNonce if the nonce is not the expected one.
// - ErrResourceNotFound if there is no todo list contract at the address
// or no task with the given ID in it.
// - ErrStorageFailure.
// - ErrUnknownInternal.
func (n *node) ToggleCompleted(c ledger.Caller, addr common.Address, id uint64) (_ ledger.Task, apiErr ledger.APIError) {
	n.logRequest("ToggleCompleted", c, addr.Hex(), id)
	defer func() { n.logAPIErr("ToggleCompleted", apiErr) }()

	if apiErr = n.useNonce(c); apiErr != nil {
		return ledger.Task{}, apiErr
	}
	l, apiErr := n.getTodoList(addr)
	if apiErr != nil {
		return ledger.Task{}, apiErr
	}
	task, err := l.ToggleCompleted(c.Addr, id)
	if err != nil {
		if errors.Is(err, contract.ErrTaskNotFound) {
			return ledger.Task{}, ledger.NewAPIErrResourceNotFound(ResTypeTask, fmt.Sprint(id))
		}
		return ledger.Task{}, toAPIErr(err, "todolist")
	}
	return task, nil
}

// GetTask returns a task in the todo list contract at the address.
//
// If there is an error, it will be one of the following codes:
// - ErrResourceNotFound if there is no todo list contract at the address
// or no task with the given ID in it.
func (n *node) GetTask(addr common.Address, id uint64) (_ ledger.Task, apiErr ledger.APIError) {
	n.WithField("method", "GetTask").Debug("Received request with params:", addr.Hex(), id)
	defer func() { n.logAPIErr("GetTask", apiErr) }()

	l, apiErr := n.getTodoList(addr)
	if apiErr != nil {
		return ledger.Task{}, apiErr
	}
	task, err := l.Task(id)
	if err != nil {
		return ledger.Task{}, ledger.NewAPIErrResourceNotFound(ResTypeTask, fmt.Sprint(id))
	}
	return task, nil
}

func (n *node) getTodoList(addr common.Address) (*contract.TodoList, ledger.APIError) {
	n.mtx.RLock()
	l, ok := n.todoLists[addr]
	n.mtx.RUnlock()
	if !ok {
		return nil, ledger.NewAPIErrResourceNotFound(ResTypeTodoList, addr.Hex())
	}
	return l, nil
}
