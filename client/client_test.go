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

package client_test

import (
	"context"
	"fmt"
	"math/big"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/phayes/freeport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperledger-labs/ledger-node"
	ledgertcp "github.com/hyperledger-labs/ledger-node/api/tcp"
	ledgerws "github.com/hyperledger-labs/ledger-node/api/websocket"
	"github.com/hyperledger-labs/ledger-node/client"
	"github.com/hyperledger-labs/ledger-node/identity"
	"github.com/hyperledger-labs/ledger-node/identity/identitytest"
	"github.com/hyperledger-labs/ledger-node/ledgertest"
	"github.com/hyperledger-labs/ledger-node/node/nodetest"
)

var oneETH = big.NewInt(1e18)

type server interface {
	Serve() error
	Addr() string
	Close() error
}

type users struct {
	depositor, beneficiary, arbiter *identity.KeySigner
}

func newUsers(t *testing.T) users {
	rng := rand.New(rand.NewSource(identitytest.RandSeedForTestAccs))
	signers := identitytest.NewKeySigners(t, rng, 3)
	return users{depositor: signers[0], beneficiary: signers[1], arbiter: signers[2]}
}

// startServer starts a node that funds the users and serves its API using
// the transport. The server and node are closed when the test completes.
func startServer(t *testing.T, transport string, u users) string {
	n := nodetest.NewNodeT(t, u.depositor.Addr(), u.beneficiary.Addr(), u.arbiter.Addr())
	port, err := freeport.GetFreePort()
	require.NoError(t, err)
	addr := fmt.Sprintf("127.0.0.1:%d", port)

	var s server
	switch transport {
	case client.TransportTCP:
		s, err = ledgertcp.Listen(n, addr, 10, nodetest.ResponseTimeout)
	case client.TransportWebSocket:
		s, err = ledgerws.Listen(n, addr, 10, nodetest.ResponseTimeout)
	}
	require.NoError(t, err)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		assert.NoError(t, s.Serve())
	}()
	t.Cleanup(func() {
		assert.NoError(t, s.Close())
		wg.Wait()
	})
	return s.Addr()
}

func newClient(t *testing.T, transport, addr string, signer identity.Signer) *client.Client {
	c, err := client.New(client.Config{
		Transport:       transport,
		Addr:            addr,
		DialTimeout:     time.Second,
		ResponseTimeout: nodetest.ResponseTimeout,
	}, signer)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() }) // nolint: errcheck
	return c
}

func Test_Client_Escrow(t *testing.T) {
	for _, transport := range []string{client.TransportTCP, client.TransportWebSocket} {
		transport := transport
		t.Run(transport, func(t *testing.T) {
			u := newUsers(t)
			addr := startServer(t, transport, u)
			depositor := newClient(t, transport, addr, u.depositor)
			beneficiary := newClient(t, transport, addr, u.beneficiary)
			arbiter := newClient(t, transport, addr, u.arbiter)
			ctx := context.Background()

			escrow, apiErr := depositor.DeployEscrow(ctx, u.beneficiary.Addr(), u.arbiter.Addr(), oneETH)
			require.NoError(t, apiErr)
			assert.Equal(t, u.depositor.Addr(), escrow.Depositor)
			assert.Equal(t, oneETH, escrow.Amount)
			assert.False(t, escrow.FundsReleased)

			_, apiErr = beneficiary.ReleaseFunds(ctx, escrow.Addr)
			ledgertest.AssertAPIError(t, apiErr, ledger.ParticipantError, ledger.ErrUnauthorized)
			assert.Equal(t, "Only arbiter can release funds", apiErr.Message())
			ledgertest.AssertErrInfoUnauthorized(t, apiErr.AddInfo(), u.beneficiary.Addr().Hex(), u.arbiter.Addr().Hex())

			released, apiErr := arbiter.ReleaseFunds(ctx, escrow.Addr)
			require.NoError(t, apiErr)
			assert.True(t, released.FundsReleased)

			_, apiErr = arbiter.ReleaseFunds(ctx, escrow.Addr)
			ledgertest.AssertAPIError(t, apiErr, ledger.ClientError, ledger.ErrFailedPreCondition)

			bal, apiErr := depositor.Balance(ctx, u.beneficiary.Addr())
			require.NoError(t, apiErr)
			assert.Equal(t, new(big.Int).Mul(oneETH, big.NewInt(101)), bal)

			got, apiErr := depositor.GetEscrow(ctx, escrow.Addr)
			require.NoError(t, apiErr)
			assert.Equal(t, released, got)
		})
	}
}

func Test_Client_Greetings_TodoList(t *testing.T) {
	u := newUsers(t)
	addr := startServer(t, client.TransportTCP, u)
	c := newClient(t, client.TransportTCP, addr, u.depositor)
	ctx := context.Background()

	greetings, apiErr := c.DeployGreetings(ctx)
	require.NoError(t, apiErr)
	_, apiErr = c.SetGreeting(ctx, greetings.Addr, "Hello, Escrow!")
	require.NoError(t, apiErr)
	greetings, apiErr = c.Greet(ctx, greetings.Addr)
	require.NoError(t, apiErr)
	assert.Equal(t, "Hello, Escrow!", greetings.Greeting)

	todoList, apiErr := c.DeployTodoList(ctx)
	require.NoError(t, apiErr)
	task, apiErr := c.CreateTask(ctx, todoList.Addr, "deploy escrow")
	require.NoError(t, apiErr)
	_, apiErr = c.ToggleCompleted(ctx, todoList.Addr, task.ID)
	require.NoError(t, apiErr)
	task, apiErr = c.GetTask(ctx, todoList.Addr, task.ID)
	require.NoError(t, apiErr)
	assert.True(t, task.Completed)

	contracts, apiErr := c.Contracts(ctx)
	require.NoError(t, apiErr)
	assert.Len(t, contracts, 2)

	help, apiErr := c.Help(ctx)
	require.NoError(t, apiErr)
	assert.Contains(t, help, string(ledger.ContractEscrow))

	_, apiErr = c.Time(ctx)
	require.NoError(t, apiErr)
	cfg, apiErr := c.GetConfig(ctx)
	require.NoError(t, apiErr)
	assert.Equal(t, "ETH", cfg.Currency)
}

func Test_Client_Concurrent(t *testing.T) {
	u := newUsers(t)
	addr := startServer(t, client.TransportTCP, u)
	c := newClient(t, client.TransportTCP, addr, u.depositor)
	ctx := context.Background()

	todoList, apiErr := c.DeployTodoList(ctx)
	require.NoError(t, apiErr)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, apiErr := c.CreateTask(ctx, todoList.Addr, fmt.Sprintf("task %d", i))
			assert.NoError(t, apiErr)
		}(i)
	}
	wg.Wait()

	nonce, apiErr := c.Nonce(ctx, u.depositor.Addr())
	require.NoError(t, apiErr)
	assert.Equal(t, uint64(11), nonce)
}

func Test_Client_Errors(t *testing.T) {
	u := newUsers(t)
	addr := startServer(t, client.TransportTCP, u)
	ctx := context.Background()

	t.Run("no_signer", func(t *testing.T) {
		c := newClient(t, client.TransportTCP, addr, nil)
		_, apiErr := c.DeployGreetings(ctx)
		ledgertest.AssertAPIError(t, apiErr, ledger.InternalError, ledger.ErrUnknownInternal, "no signer")
	})

	t.Run("closed", func(t *testing.T) {
		c, err := client.New(client.Config{Transport: client.TransportTCP, Addr: addr}, u.depositor)
		require.NoError(t, err)
		require.NoError(t, c.Close())
		_, apiErr := c.Time(ctx)
		ledgertest.AssertAPIError(t, apiErr, ledger.InternalError, ledger.ErrUnknownInternal, "client closed")
		assert.Error(t, c.Close())
	})

	t.Run("unsupported_transport", func(t *testing.T) {
		_, err := client.New(client.Config{Transport: "udp", Addr: addr}, nil)
		assert.Error(t, err)
	})

	t.Run("dial_error", func(t *testing.T) {
		port, err := freeport.GetFreePort()
		require.NoError(t, err)
		_, err = client.New(client.Config{
			Transport:   client.TransportTCP,
			Addr:        fmt.Sprintf("127.0.0.1:%d", port),
			DialTimeout: time.Second,
		}, nil)
		assert.Error(t, err)
	})
}
