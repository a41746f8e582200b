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

package node_test

import (
	"io/ioutil"
	"math/big"
	"math/rand"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperledger-labs/ledger-node"
	"github.com/hyperledger-labs/ledger-node/contract"
	"github.com/hyperledger-labs/ledger-node/identity/identitytest"
	"github.com/hyperledger-labs/ledger-node/ledgertest"
	"github.com/hyperledger-labs/ledger-node/node"
	"github.com/hyperledger-labs/ledger-node/node/nodetest"
	"github.com/hyperledger-labs/ledger-node/store"
)

var (
	oneETH     = big.NewInt(1e18)
	hundredETH = new(big.Int).Mul(oneETH, big.NewInt(100))
)

type actors struct {
	depositor, beneficiary, arbiter, outsider common.Address
}

func newActors() actors {
	rng := rand.New(rand.NewSource(identitytest.RandSeedForTestAccs))
	return actors{
		depositor:   identitytest.NewRandomAddress(rng),
		beneficiary: identitytest.NewRandomAddress(rng),
		arbiter:     identitytest.NewRandomAddress(rng),
		outsider:    identitytest.NewRandomAddress(rng),
	}
}

// caller returns the caller for the next state changing call by addr.
func caller(n ledger.NodeAPI, addr common.Address) ledger.Caller {
	return ledger.Caller{Addr: addr, Nonce: n.Nonce(addr)}
}

func Test_New(t *testing.T) {
	t.Run("err_invalid_log_level", func(t *testing.T) {
		cfg := nodetest.NewConfig()
		cfg.LogLevel = ""
		_, err := node.New(cfg)
		require.Error(t, err)
	})
}

func Test_NewWithStore(t *testing.T) {
	a := newActors()

	t.Run("happy", func(t *testing.T) {
		n := nodetest.NewNodeT(t, a.depositor, a.arbiter)
		assert.Equal(t, hundredETH, n.Balance(a.depositor))
		assert.Equal(t, hundredETH, n.Balance(a.arbiter))
		assert.Equal(t, big.NewInt(0), n.Balance(a.beneficiary))
		assert.Zero(t, n.Nonce(a.depositor))
		assert.Empty(t, n.Contracts())
	})

	t.Run("happy_Time", func(t *testing.T) {
		n := nodetest.NewNodeT(t)
		assert.GreaterOrEqual(t, time.Now().UTC().Unix()+5, n.Time())
	})

	t.Run("happy_GetConfig_Help", func(t *testing.T) {
		cfg := nodetest.NewConfig(a.depositor)
		n, err := node.NewWithStore(cfg, store.NewMemory())
		require.NoError(t, err)
		assert.Equal(t, cfg, n.GetConfig())
		assert.Equal(t, []string{"escrow", "greetings", "todolist"}, n.Help())
	})

	t.Run("err_invalid_currency", func(t *testing.T) {
		cfg := nodetest.NewConfig()
		cfg.Currency = "BTC"
		_, err := node.NewWithStore(cfg, store.NewMemory())
		require.Error(t, err)
		apiErr, ok := err.(ledger.APIError)
		require.True(t, ok)
		ledgertest.AssertAPIError(t, apiErr, ledger.ClientError, ledger.ErrInvalidConfig)
		ledgertest.AssertErrInfoInvalidConfig(t, apiErr.AddInfo(), "currency", "BTC")
	})

	t.Run("err_invalid_account_addr", func(t *testing.T) {
		cfg := nodetest.NewConfig()
		cfg.Accounts = map[string]string{"invalid-addr": "1"}
		_, err := node.NewWithStore(cfg, store.NewMemory())
		require.Error(t, err)
	})

	t.Run("err_invalid_account_amount", func(t *testing.T) {
		cfg := nodetest.NewConfig()
		cfg.Accounts = map[string]string{a.depositor.Hex(): "-1"}
		_, err := node.NewWithStore(cfg, store.NewMemory())
		require.Error(t, err)
	})
}

func Test_Escrow_Scenario(t *testing.T) {
	a := newActors()
	n := nodetest.NewNodeT(t, a.depositor)

	deployer := caller(n, a.depositor)
	info, apiErr := n.DeployEscrow(deployer, a.beneficiary, a.arbiter, oneETH)
	require.NoError(t, apiErr)
	assert.Equal(t, crypto.CreateAddress(a.depositor, deployer.Nonce), info.Addr)
	assert.Equal(t, oneETH, info.Amount)
	assert.Equal(t, a.depositor, info.Depositor)
	assert.False(t, info.FundsReleased)
	assert.Equal(t, oneETH, n.Balance(info.Addr))
	assert.Equal(t, []ledger.ContractInfo{{Addr: info.Addr, Type: ledger.ContractEscrow, Deployer: a.depositor}},
		n.Contracts())

	_, apiErr = n.ReleaseFunds(caller(n, a.beneficiary), info.Addr)
	require.Error(t, apiErr)
	ledgertest.AssertAPIError(t, apiErr, ledger.ParticipantError, ledger.ErrUnauthorized)
	assert.Equal(t, "Only arbiter can release funds", apiErr.Message())
	ledgertest.AssertErrInfoUnauthorized(t, apiErr.AddInfo(), a.beneficiary.Hex(), a.arbiter.Hex())
	got, apiErr := n.GetEscrow(info.Addr)
	require.NoError(t, apiErr)
	assert.False(t, got.FundsReleased)

	got, apiErr = n.ReleaseFunds(caller(n, a.arbiter), info.Addr)
	require.NoError(t, apiErr)
	assert.True(t, got.FundsReleased)
	assert.Equal(t, oneETH, n.Balance(a.beneficiary))
	assert.Equal(t, big.NewInt(0), n.Balance(info.Addr))

	_, apiErr = n.ReleaseFunds(caller(n, a.arbiter), info.Addr)
	ledgertest.AssertAPIError(t, apiErr, ledger.ClientError, ledger.ErrFailedPreCondition)
	assert.Equal(t, oneETH, n.Balance(a.beneficiary), "funds should be released only once")
}

func Test_DeployEscrow_Errors(t *testing.T) {
	a := newActors()
	n := nodetest.NewNodeT(t, a.depositor)

	t.Run("err_invalid_nonce", func(t *testing.T) {
		c := caller(n, a.depositor)
		c.Nonce++
		_, apiErr := n.DeployEscrow(c, a.beneficiary, a.arbiter, oneETH)
		ledgertest.AssertAPIError(t, apiErr, ledger.ClientError, ledger.ErrInvalidNonce)
		ledgertest.AssertErrInfoInvalidNonce(t, apiErr.AddInfo(), a.depositor.Hex(), c.Nonce-1, c.Nonce)
	})

	t.Run("err_insufficient_funds", func(t *testing.T) {
		_, apiErr := n.DeployEscrow(caller(n, a.depositor), a.beneficiary, a.arbiter, new(big.Int).Add(hundredETH, oneETH))
		ledgertest.AssertAPIError(t, apiErr, ledger.ClientError, ledger.ErrInsufficientFunds)
		ledgertest.AssertErrInfoInsufficientFunds(t, apiErr.AddInfo(), a.depositor.Hex(), "100.000000", "101.000000")
		assert.Equal(t, hundredETH, n.Balance(a.depositor))
	})

	t.Run("err_invalid_amount", func(t *testing.T) {
		_, apiErr := n.DeployEscrow(caller(n, a.depositor), a.beneficiary, a.arbiter, big.NewInt(0))
		ledgertest.AssertAPIError(t, apiErr, ledger.ClientError, ledger.ErrInvalidArgument)
		ledgertest.AssertErrInfoInvalidArgument(t, apiErr.AddInfo(), node.ArgNameAmount, "0")
	})

	t.Run("err_beneficiary_is_arbiter", func(t *testing.T) {
		_, apiErr := n.DeployEscrow(caller(n, a.depositor), a.arbiter, a.arbiter, oneETH)
		ledgertest.AssertAPIError(t, apiErr, ledger.ClientError, ledger.ErrInvalidArgument)
		ledgertest.AssertErrInfoInvalidArgument(t, apiErr.AddInfo(), node.ArgNameArbiter, a.arbiter.Hex())
	})

	t.Run("err_zero_beneficiary", func(t *testing.T) {
		_, apiErr := n.DeployEscrow(caller(n, a.depositor), common.Address{}, a.arbiter, oneETH)
		ledgertest.AssertAPIError(t, apiErr, ledger.ClientError, ledger.ErrInvalidArgument)
		ledgertest.AssertErrInfoInvalidArgument(t, apiErr.AddInfo(), node.ArgNameBeneficiary, common.Address{}.Hex())
	})

	t.Run("nonce_consumed_by_failed_calls", func(t *testing.T) {
		// One failed call with invalid nonce (not consumed) and four failed
		// calls with valid nonces in the previous subtests.
		assert.Equal(t, uint64(4), n.Nonce(a.depositor))
		assert.Empty(t, n.Contracts())
	})
}

func Test_ReleaseFunds_Errors(t *testing.T) {
	a := newActors()
	n := nodetest.NewNodeT(t, a.depositor)

	t.Run("err_not_found", func(t *testing.T) {
		_, apiErr := n.ReleaseFunds(caller(n, a.arbiter), a.outsider)
		ledgertest.AssertAPIError(t, apiErr, ledger.ClientError, ledger.ErrResourceNotFound)
		ledgertest.AssertErrInfoResourceNotFound(t, apiErr.AddInfo(), node.ResTypeEscrow, a.outsider.Hex())
	})

	t.Run("err_not_an_escrow", func(t *testing.T) {
		g, apiErr := n.DeployGreetings(caller(n, a.outsider))
		require.NoError(t, apiErr)
		_, apiErr = n.GetEscrow(g.Addr)
		ledgertest.AssertAPIError(t, apiErr, ledger.ClientError, ledger.ErrResourceNotFound)
	})

	t.Run("err_unauthorized_any_non_arbiter", func(t *testing.T) {
		info, apiErr := n.DeployEscrow(caller(n, a.depositor), a.beneficiary, a.arbiter, oneETH)
		require.NoError(t, apiErr)
		for _, addr := range []common.Address{a.depositor, a.beneficiary, a.outsider, info.Addr} {
			_, apiErr = n.ReleaseFunds(caller(n, addr), info.Addr)
			ledgertest.AssertAPIError(t, apiErr, ledger.ParticipantError, ledger.ErrUnauthorized,
				"Only arbiter can release funds")
		}
		got, apiErr := n.GetEscrow(info.Addr)
		require.NoError(t, apiErr)
		assert.False(t, got.FundsReleased)
	})

	t.Run("concurrent_release", func(t *testing.T) {
		info, apiErr := n.DeployEscrow(caller(n, a.depositor), a.beneficiary, a.arbiter, oneETH)
		require.NoError(t, apiErr)
		before := n.Balance(a.beneficiary)
		nonce := n.Nonce(a.arbiter)

		var wg sync.WaitGroup
		errs := make([]ledger.APIError, 5)
		for i := range errs {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, errs[i] = n.ReleaseFunds(ledger.Caller{Addr: a.arbiter, Nonce: nonce + uint64(i)}, info.Addr)
			}(i)
		}
		wg.Wait()

		succeeded := 0
		for _, err := range errs {
			if err == nil {
				succeeded++
			}
		}
		assert.Equal(t, 1, succeeded)
		assert.Equal(t, new(big.Int).Add(before, oneETH), n.Balance(a.beneficiary))
	})
}

func Test_Greetings(t *testing.T) {
	a := newActors()
	n := nodetest.NewNodeT(t)

	info, apiErr := n.DeployGreetings(caller(n, a.depositor))
	require.NoError(t, apiErr)
	assert.Equal(t, contract.DefaultGreeting, info.Greeting)
	assert.Equal(t, a.depositor, info.Owner)

	info, apiErr = n.SetGreeting(caller(n, a.outsider), info.Addr, "Hi")
	require.NoError(t, apiErr)
	assert.Equal(t, "Hi", info.Greeting)
	got, apiErr := n.Greet(info.Addr)
	require.NoError(t, apiErr)
	assert.Equal(t, "Hi", got.Greeting)

	_, apiErr = n.SetGreeting(caller(n, a.outsider), info.Addr, "")
	ledgertest.AssertAPIError(t, apiErr, ledger.ClientError, ledger.ErrInvalidArgument)

	_, apiErr = n.Greet(a.outsider)
	ledgertest.AssertAPIError(t, apiErr, ledger.ClientError, ledger.ErrResourceNotFound)
	ledgertest.AssertErrInfoResourceNotFound(t, apiErr.AddInfo(), node.ResTypeGreetings, a.outsider.Hex())
}

func Test_TodoList(t *testing.T) {
	a := newActors()
	n := nodetest.NewNodeT(t)

	info, apiErr := n.DeployTodoList(caller(n, a.depositor))
	require.NoError(t, apiErr)
	assert.Zero(t, info.TaskCount)

	task, apiErr := n.CreateTask(caller(n, a.depositor), info.Addr, "fund escrow")
	require.NoError(t, apiErr)
	assert.Equal(t, ledger.Task{ID: 1, Content: "fund escrow"}, task)

	task, apiErr = n.ToggleCompleted(caller(n, a.outsider), info.Addr, 1)
	require.NoError(t, apiErr)
	assert.True(t, task.Completed)

	task, apiErr = n.GetTask(info.Addr, 1)
	require.NoError(t, apiErr)
	assert.True(t, task.Completed)

	_, apiErr = n.CreateTask(caller(n, a.depositor), info.Addr, "")
	ledgertest.AssertAPIError(t, apiErr, ledger.ClientError, ledger.ErrInvalidArgument)

	_, apiErr = n.ToggleCompleted(caller(n, a.depositor), info.Addr, 2)
	ledgertest.AssertAPIError(t, apiErr, ledger.ClientError, ledger.ErrResourceNotFound)
	ledgertest.AssertErrInfoResourceNotFound(t, apiErr.AddInfo(), node.ResTypeTask, "2")

	_, apiErr = n.GetTask(a.outsider, 1)
	ledgertest.AssertAPIError(t, apiErr, ledger.ClientError, ledger.ErrResourceNotFound)
	ledgertest.AssertErrInfoResourceNotFound(t, apiErr.AddInfo(), node.ResTypeTodoList, a.outsider.Hex())
}

func Test_Restore(t *testing.T) {
	a := newActors()
	dir, err := ioutil.TempDir("", "ledger-node-test-db-*")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(dir) }) // nolint: errcheck

	s, err := store.OpenBolt(dir)
	require.NoError(t, err)
	n, err := node.NewWithStore(nodetest.NewConfig(a.depositor), s)
	require.NoError(t, err)

	escrowInfo, apiErr := n.DeployEscrow(caller(n, a.depositor), a.beneficiary, a.arbiter, oneETH)
	require.NoError(t, apiErr)
	todoInfo, apiErr := n.DeployTodoList(caller(n, a.depositor))
	require.NoError(t, apiErr)
	_, apiErr = n.CreateTask(caller(n, a.depositor), todoInfo.Addr, "release")
	require.NoError(t, apiErr)
	_, apiErr = n.ReleaseFunds(caller(n, a.arbiter), escrowInfo.Addr)
	require.NoError(t, apiErr)
	contracts := n.Contracts()
	require.NoError(t, n.Close())

	// Accounts in config are funded only on first start.
	s, err = store.OpenBolt(dir)
	require.NoError(t, err)
	n, err = node.NewWithStore(nodetest.NewConfig(a.depositor, a.outsider), s)
	require.NoError(t, err)
	t.Cleanup(func() { n.Close() }) // nolint: errcheck

	assert.Equal(t, contracts, n.Contracts())
	assert.Equal(t, uint64(3), n.Nonce(a.depositor))
	assert.Equal(t, uint64(1), n.Nonce(a.arbiter))
	assert.Equal(t, new(big.Int).Sub(hundredETH, oneETH), n.Balance(a.depositor))
	assert.Equal(t, oneETH, n.Balance(a.beneficiary))
	assert.Equal(t, big.NewInt(0), n.Balance(a.outsider))

	got, apiErr := n.GetEscrow(escrowInfo.Addr)
	require.NoError(t, apiErr)
	assert.True(t, got.FundsReleased)
	_, apiErr = n.ReleaseFunds(caller(n, a.arbiter), escrowInfo.Addr)
	ledgertest.AssertAPIError(t, apiErr, ledger.ClientError, ledger.ErrFailedPreCondition)

	task, apiErr := n.GetTask(todoInfo.Addr, 1)
	require.NoError(t, apiErr)
	assert.Equal(t, "release", task.Content)
}

func Test_FundAccounts_AfterInvalidConfig(t *testing.T) {
	a := newActors()
	dir, err := ioutil.TempDir("", "ledger-node-test-db-*")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(dir) }) // nolint: errcheck

	cfg := nodetest.NewConfig()
	cfg.Accounts = map[string]string{
		a.depositor.Hex(): "10",
		a.arbiter.Hex():   "not-a-number",
	}
	s, err := store.OpenBolt(dir)
	require.NoError(t, err)
	_, err = node.NewWithStore(cfg, s)
	require.Error(t, err)
	apiErr, ok := err.(ledger.APIError)
	require.True(t, ok)
	ledgertest.AssertAPIError(t, apiErr, ledger.ClientError, ledger.ErrInvalidConfig)
	ledgertest.AssertErrInfoInvalidConfig(t, apiErr.AddInfo(), "accounts."+a.arbiter.Hex(), "not-a-number")

	bals, err := s.Balances()
	require.NoError(t, err)
	assert.Empty(t, bals, "no account should be funded from an invalid config")
	require.NoError(t, s.Close())

	cfg.Accounts[a.arbiter.Hex()] = "20"
	s, err = store.OpenBolt(dir)
	require.NoError(t, err)
	n, err := node.NewWithStore(cfg, s)
	require.NoError(t, err)
	t.Cleanup(func() { n.Close() }) // nolint: errcheck

	assert.Equal(t, new(big.Int).Mul(oneETH, big.NewInt(10)), n.Balance(a.depositor))
	assert.Equal(t, new(big.Int).Mul(oneETH, big.NewInt(20)), n.Balance(a.arbiter))
}

func Test_ParseConfig(t *testing.T) {
	a := newActors()
	cfg := nodetest.NewConfig(a.depositor)
	cfg.DatabaseDir = "./db"
	cfg.TCPAddr = "127.0.0.1:5050"
	cfg.WebSocketAddr = "127.0.0.1:5051"
	// Keys of maps are read in lower case.
	cfg.Accounts = map[string]string{"0x" + common.Bytes2Hex(a.depositor.Bytes()): nodetest.InitialBalance}
	configFile := nodetest.NewConfigFileT(t, cfg)

	t.Run("happy", func(t *testing.T) {
		got, err := node.ParseConfig(configFile)
		require.NoError(t, err)
		assert.Equal(t, cfg, got)
	})

	t.Run("err_missing_file", func(t *testing.T) {
		_, err := node.ParseConfig("./missing-file.yaml")
		require.Error(t, err)
	})
}
