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
	"math/big"
	"sort"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"

	"github.com/hyperledger-labs/ledger-node"
	"github.com/hyperledger-labs/ledger-node/bank"
	"github.com/hyperledger-labs/ledger-node/contract"
	"github.com/hyperledger-labs/ledger-node/currency"
	"github.com/hyperledger-labs/ledger-node/escrow"
	"github.com/hyperledger-labs/ledger-node/identity"
	"github.com/hyperledger-labs/ledger-node/log"
	"github.com/hyperledger-labs/ledger-node/store"
)

// Enumeration of valid resource types used in ResourceNotFound and
// ResourceExists errors.
const (
	ResTypeEscrow    ledger.ResourceType = "escrow"
	ResTypeGreetings ledger.ResourceType = "greetings"
	ResTypeTodoList  ledger.ResourceType = "todolist"
	ResTypeTask      ledger.ResourceType = "task"
	ResTypeContract  ledger.ResourceType = "contract"
)

// Enumeration of valid argument names used in InvalidArgument errors.
const (
	ArgNameAmount      ledger.ArgumentName = "amount"
	ArgNameBeneficiary ledger.ArgumentName = "beneficiary"
	ArgNameArbiter     ledger.ArgumentName = "arbiter"
	ArgNameGreeting    ledger.ArgumentName = "greeting"
	ArgNameContent     ledger.ArgumentName = "content"
	ArgNameConfigFile  ledger.ArgumentName = "configFile"
)

type node struct {
	log.Logger
	cfg      ledger.NodeConfig
	currency ledger.Currency
	store    *store.Store
	bank     *bank.Bank

	// Nonces are checked and consumed under a separate lock, so that calls
	// on different contracts can proceed concurrently.
	nonceMtx sync.Mutex
	nonces   map[common.Address]uint64

	// The mutex should be used when accessing the registry of contracts.
	mtx       sync.RWMutex
	contracts map[common.Address]ledger.ContractInfo
	escrows   map[common.Address]*escrow.Ledger
	greetings map[common.Address]*contract.Greetings
	todoLists map[common.Address]*contract.TodoList
}

// New returns a ledger NodeAPI instance initialized using the given config.
// This should be called only once, subsequent calls after the first non error
// response will return an error.
//
// State is persisted in a bolt database in the database directory. If it is
// empty, the state is held only in memory.
func New(cfg ledger.NodeConfig) (ledger.NodeAPI, error) {
	err := log.InitLogger(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		return nil, errors.WithMessage(err, "initializing logger for node")
	}

	var s *store.Store
	if cfg.DatabaseDir == "" {
		s = store.NewMemory()
	} else if s, err = store.OpenBolt(cfg.DatabaseDir); err != nil {
		return nil, errors.WithMessage(err, "opening database")
	}
	n, err := NewWithStore(cfg, s)
	if err != nil {
		s.Close() // nolint: errcheck, gosec
		return nil, err
	}
	return n, nil
}

// NewWithStore returns a ledger NodeAPI instance that persists its state in
// the given store. Balances, nonces and contracts found in the store are
// restored. If the store has no balances, accounts in the config are funded.
//
// Unlike New, it does not initialize the logger. It is intended for running
// the node in the same process as its user.
func NewWithStore(cfg ledger.NodeConfig, s *store.Store) (ledger.NodeAPI, error) {
	if cfg.Currency == "" {
		cfg.Currency = currency.ETHSymbol
	}
	currencies := currency.NewRegistryWithETH()
	if !currencies.IsRegistered(cfg.Currency) {
		err := errors.New("currency not supported")
		return nil, ledger.NewAPIErrInvalidConfig(err, "currency", cfg.Currency)
	}

	storedBals, err := s.Balances()
	if err != nil {
		return nil, err
	}
	b, err := bank.New(s)
	if err != nil {
		return nil, err
	}

	n := &node{
		Logger:    log.NewLoggerWithField("node", 1), // ID of the node is always 1.
		cfg:       cfg,
		currency:  currencies.Currency(cfg.Currency),
		store:     s,
		bank:      b,
		contracts: make(map[common.Address]ledger.ContractInfo),
		escrows:   make(map[common.Address]*escrow.Ledger),
		greetings: make(map[common.Address]*contract.Greetings),
		todoLists: make(map[common.Address]*contract.TodoList),
	}
	if len(storedBals) == 0 {
		if err = n.fundAccounts(cfg.Accounts); err != nil {
			return nil, err
		}
	}
	if err = n.restore(); err != nil {
		return nil, err
	}
	return n, nil
}

// fundAccounts mints the initial balances for the accounts in the config.
// All entries are validated before any account is funded and the balances
// are persisted in one write, so an invalid config funds no account.
func (n *node) fundAccounts(accounts map[string]string) error {
	addrStrs := make([]string, 0, len(accounts))
	for addrStr := range accounts {
		addrStrs = append(addrStrs, addrStr)
	}
	sort.Strings(addrStrs)

	amounts := make(map[common.Address]*big.Int, len(accounts))
	for _, addrStr := range addrStrs {
		addr, err := identity.ParseAddr(addrStr)
		if err != nil {
			return ledger.NewAPIErrInvalidConfig(err, "accounts", addrStr)
		}
		amountStr := accounts[addrStr]
		amount, err := n.currency.Parse(amountStr)
		if err != nil {
			return ledger.NewAPIErrInvalidConfig(err, "accounts."+addrStr, amountStr)
		}
		if amount.Sign() <= 0 {
			err = errors.New("initial balance should be positive")
			return ledger.NewAPIErrInvalidConfig(err, "accounts."+addrStr, amountStr)
		}
		if _, ok := amounts[addr]; ok {
			err = errors.New("account listed more than once")
			return ledger.NewAPIErrInvalidConfig(err, "accounts", addrStr)
		}
		amounts[addr] = amount
	}
	if len(amounts) == 0 {
		return nil
	}

	if err := n.bank.MintAll(amounts); err != nil {
		return errors.WithMessage(err, "funding accounts")
	}
	for _, addrStr := range addrStrs {
		n.WithFields(log.Fields{"account": addrStr, "amount": accounts[addrStr]}).Info("Funded account")
	}
	return nil
}

// restore loads the nonces and contracts persisted by a previous instance
// of the node.
func (n *node) restore() error {
	nonces, err := n.store.Nonces()
	if err != nil {
		return err
	}
	n.nonces = nonces

	escrows, err := n.store.Escrows()
	if err != nil {
		return err
	}
	for _, r := range escrows {
		n.escrows[r.Addr] = escrow.FromRecord(n.bank, r)
		n.contracts[r.Addr] = ledger.ContractInfo{Addr: r.Addr, Type: ledger.ContractEscrow, Deployer: r.Depositor}
	}

	greetings, err := n.store.Greetings()
	if err != nil {
		return err
	}
	for _, r := range greetings {
		n.greetings[r.Addr] = contract.FromGreetingsRecord(n.store, r)
		n.contracts[r.Addr] = ledger.ContractInfo{Addr: r.Addr, Type: ledger.ContractGreetings, Deployer: r.Owner}
	}

	todoLists, err := n.store.TodoLists()
	if err != nil {
		return err
	}
	for _, r := range todoLists {
		n.todoLists[r.Addr] = contract.FromTodoListRecord(n.store, r)
		n.contracts[r.Addr] = ledger.ContractInfo{Addr: r.Addr, Type: ledger.ContractTodoList, Deployer: r.Owner}
	}

	n.WithFields(log.Fields{"nonces": len(nonces), "contracts": len(n.contracts)}).Info("Restored state")
	return nil
}

// Time returns the time as per ledger node's clock.
func (n *node) Time() int64 {
	n.Debug("Received request: node.Time")
	return time.Now().UTC().Unix()
}

// GetConfig returns the configuration parameters of the node.
func (n *node) GetConfig() ledger.NodeConfig {
	n.Debug("Received request: node.GetConfig")
	return n.cfg
}

// Help returns the list of contract types that can be deployed on the node.
func (n *node) Help() []string {
	n.Debug("Received request: node.Help")
	return []string{string(ledger.ContractEscrow), string(ledger.ContractGreetings), string(ledger.ContractTodoList)}
}

// Balance returns the balance of the address in base units.
func (n *node) Balance(addr common.Address) *big.Int {
	n.WithField("method", "Balance").Debug("Received request with params:", addr.Hex())
	return n.bank.Balance(addr)
}

// Nonce returns the nonce that should be used by the address in its next
// state changing call.
func (n *node) Nonce(addr common.Address) uint64 {
	n.WithField("method", "Nonce").Debug("Received request with params:", addr.Hex())
	n.nonceMtx.Lock()
	defer n.nonceMtx.Unlock()
	return n.nonces[addr]
}

// Contracts returns the list of contracts deployed on the node, ordered by
// address.
func (n *node) Contracts() []ledger.ContractInfo {
	n.Debug("Received request: node.Contracts")
	n.mtx.RLock()
	defer n.mtx.RUnlock()

	contracts := make([]ledger.ContractInfo, 0, len(n.contracts))
	for _, c := range n.contracts {
		contracts = append(contracts, c)
	}
	sort.Slice(contracts, func(i, j int) bool {
		return contracts[i].Addr.Hex() < contracts[j].Addr.Hex()
	})
	return contracts
}

// Close closes the database of the node.
func (n *node) Close() error {
	n.Info("Closing node")
	return n.store.Close()
}

// useNonce checks if the nonce in the call is the next nonce of the caller
// and consumes it. A nonce once consumed is not restored, even if the call
// fails later.
//
// If there is an error, it will be one of the following codes:
// - ErrInvalidNonce if the nonce is not the expected one.
// - ErrStorageFailure if the updated nonce could not be persisted.
func (n *node) useNonce(c ledger.Caller) ledger.APIError {
	n.nonceMtx.Lock()
	defer n.nonceMtx.Unlock()

	expected := n.nonces[c.Addr]
	if c.Nonce != expected {
		return ledger.NewAPIErrInvalidNonce(c.Addr.Hex(), expected, c.Nonce)
	}
	if err := n.store.PutNonce(c.Addr, expected+1); err != nil {
		return ledger.NewAPIErrStorageFailure(err, "nonce")
	}
	n.nonces[c.Addr] = expected + 1
	return nil
}

func (n *node) logRequest(method string, params ...interface{}) {
	n.WithField("method", method).Infof("\nReceived request with params %+v", params)
}

func (n *node) logAPIErr(method string, apiErr ledger.APIError) {
	if apiErr != nil {
		n.WithFields(ledger.APIErrAsMap(method, apiErr)).Error(apiErr.Message())
	}
}

// toAPIErr converts errors that are not specific to an operation. Errors
// from the store are reported as storage failures and any other error as
// unknown internal error.
func toAPIErr(err error, operation string) ledger.APIError {
	var storeErr store.Error
	if errors.As(err, &storeErr) {
		return ledger.NewAPIErrStorageFailure(err, operation)
	}
	return ledger.NewAPIErrUnknownInternal(err)
}
