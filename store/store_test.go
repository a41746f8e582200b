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

package store_test

import (
	"io/ioutil"
	"math/big"
	"math/rand"
	"os"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperledger-labs/ledger-node"
	"github.com/hyperledger-labs/ledger-node/contract"
	"github.com/hyperledger-labs/ledger-node/escrow"
	"github.com/hyperledger-labs/ledger-node/identity/identitytest"
	"github.com/hyperledger-labs/ledger-node/store"
)

func tempDir(t *testing.T) string {
	dir, err := ioutil.TempDir("", "ledger-node-test-db-*")
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := os.RemoveAll(dir); err != nil {
			t.Log("error in cleanup - ", err)
		}
	})
	return dir
}

func newStores(t *testing.T) map[string]*store.Store {
	boltStore, err := store.OpenBolt(tempDir(t))
	require.NoError(t, err)
	t.Cleanup(func() { boltStore.Close() }) // nolint: errcheck
	return map[string]*store.Store{
		"memory": store.NewMemory(),
		"bolt":   boltStore,
	}
}

func Test_Store_Implements(t *testing.T) {
	assert.Implements(t, (*ledger.BalanceStore)(nil), new(store.Store))
	assert.Implements(t, (*contract.GreetingsStore)(nil), new(store.Store))
	assert.Implements(t, (*contract.TodoListStore)(nil), new(store.Store))
}

func Test_Store_Records(t *testing.T) {
	rng := rand.New(rand.NewSource(identitytest.RandSeedForTestAccs))
	addr1, addr2 := identitytest.NewRandomAddress(rng), identitytest.NewRandomAddress(rng)

	for name, s := range newStores(t) {
		s := s
		t.Run(name, func(t *testing.T) {
			t.Run("empty", func(t *testing.T) {
				bals, err := s.Balances()
				require.NoError(t, err)
				assert.Empty(t, bals)
				records, err := s.Escrows()
				require.NoError(t, err)
				assert.Empty(t, records)
			})

			t.Run("balances", func(t *testing.T) {
				require.NoError(t, s.PutBalances(map[common.Address]*big.Int{
					addr1: big.NewInt(10),
					addr2: big.NewInt(1e18),
				}))
				require.NoError(t, s.PutBalances(map[common.Address]*big.Int{addr1: big.NewInt(3)}))

				bals, err := s.Balances()
				require.NoError(t, err)
				require.Len(t, bals, 2)
				assert.Zero(t, bals[addr1].Cmp(big.NewInt(3)))
				assert.Zero(t, bals[addr2].Cmp(big.NewInt(1e18)))
			})

			t.Run("balances_with_records", func(t *testing.T) {
				r := escrow.Record{
					Addr:        addr2,
					Depositor:   addr1,
					Beneficiary: identitytest.NewRandomAddress(rng),
					Arbiter:     identitytest.NewRandomAddress(rng),
					Amount:      big.NewInt(5),
				}
				require.NoError(t, s.PutBalances(map[common.Address]*big.Int{
					addr1: big.NewInt(20),
					addr2: big.NewInt(5),
				}, r))

				bals, err := s.Balances()
				require.NoError(t, err)
				assert.Zero(t, bals[addr1].Cmp(big.NewInt(20)))
				assert.Zero(t, bals[addr2].Cmp(big.NewInt(5)))
				records, err := s.Escrows()
				require.NoError(t, err)
				require.Len(t, records, 1)
				assert.Equal(t, r.Depositor, records[0].Depositor)
			})

			t.Run("err_unsupported_record_writes_nothing", func(t *testing.T) {
				err := s.PutBalances(map[common.Address]*big.Int{addr1: big.NewInt(99)}, "not a record")
				require.Error(t, err)
				var storeErr store.Error
				require.True(t, errors.As(err, &storeErr))
				assert.Equal(t, "encoding record", storeErr.Op)

				bals, err := s.Balances()
				require.NoError(t, err)
				assert.Zero(t, bals[addr1].Cmp(big.NewInt(20)))
			})

			t.Run("nonces", func(t *testing.T) {
				require.NoError(t, s.PutNonce(addr1, 1))
				require.NoError(t, s.PutNonce(addr1, 2))

				nonces, err := s.Nonces()
				require.NoError(t, err)
				assert.Equal(t, map[common.Address]uint64{addr1: 2}, nonces)
			})

			t.Run("escrows", func(t *testing.T) {
				r := escrow.Record{
					Addr:          addr2,
					Depositor:     addr1,
					Beneficiary:   identitytest.NewRandomAddress(rng),
					Arbiter:       identitytest.NewRandomAddress(rng),
					Amount:        big.NewInt(1e18),
					FundsReleased: false,
				}
				require.NoError(t, s.PutEscrow(r))
				r.FundsReleased = true
				require.NoError(t, s.PutEscrow(r))

				records, err := s.Escrows()
				require.NoError(t, err)
				require.Len(t, records, 1)
				assert.True(t, records[0].FundsReleased)
				assert.Equal(t, r.Arbiter, records[0].Arbiter)
				assert.Zero(t, r.Amount.Cmp(records[0].Amount))
			})

			t.Run("greetings", func(t *testing.T) {
				r := contract.GreetingsRecord{Addr: addr1, Owner: addr2, Greeting: contract.DefaultGreeting}
				require.NoError(t, s.PutGreetings(r))

				records, err := s.Greetings()
				require.NoError(t, err)
				assert.Equal(t, []contract.GreetingsRecord{r}, records)
			})

			t.Run("todolists", func(t *testing.T) {
				r := contract.TodoListRecord{Addr: addr1, Owner: addr2, Tasks: []ledger.Task{
					{ID: 1, Content: "a", Completed: true},
					{ID: 2, Content: "b"},
				}}
				require.NoError(t, s.PutTodoList(r))

				records, err := s.TodoLists()
				require.NoError(t, err)
				assert.Equal(t, []contract.TodoListRecord{r}, records)
			})
		})
	}
}

func Test_Bolt_Reopen(t *testing.T) {
	rng := rand.New(rand.NewSource(identitytest.RandSeedForTestAccs))
	addr := identitytest.NewRandomAddress(rng)
	dir := tempDir(t)

	s, err := store.OpenBolt(dir)
	require.NoError(t, err)
	require.NoError(t, s.PutNonce(addr, 7))
	require.NoError(t, s.Close())

	s, err = store.OpenBolt(dir)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() }) // nolint: errcheck
	nonces, err := s.Nonces()
	require.NoError(t, err)
	assert.Equal(t, uint64(7), nonces[addr])
}

func Test_Store_Closed(t *testing.T) {
	s := store.NewMemory()
	require.NoError(t, s.Close())

	err := s.PutNonce(common.Address{}, 1)
	require.Error(t, err)
	var storeErr store.Error
	require.True(t, errors.As(err, &storeErr))
	assert.Equal(t, "writing nonce", storeErr.Op)
}
