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

package ledgerws_test

import (
	"net/url"
	"sync"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperledger-labs/ledger-node"
	"github.com/hyperledger-labs/ledger-node/api"
	ledgerws "github.com/hyperledger-labs/ledger-node/api/websocket"
	"github.com/hyperledger-labs/ledger-node/ledgertest"
	"github.com/hyperledger-labs/ledger-node/node/nodetest"
)

func Test_Server(t *testing.T) {
	n := nodetest.NewNodeT(t)
	s, err := ledgerws.Listen(n, "127.0.0.1:0", 2, 0)
	require.NoError(t, err)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		assert.NoError(t, s.Serve())
	}()

	peerURL := url.URL{Scheme: "ws", Host: s.Addr(), Path: ledgerws.Endpoint}
	conn, _, err := websocket.DefaultDialer.Dial(peerURL.String(), nil)
	require.NoError(t, err)
	defer conn.Close() // nolint: errcheck

	t.Run("happy", func(t *testing.T) {
		req, err := api.NewRequest(7, api.MethodHelp, nil)
		require.NoError(t, err)
		require.NoError(t, conn.WriteJSON(req))

		var resp api.Response
		require.NoError(t, conn.ReadJSON(&resp))
		assert.Equal(t, uint64(7), resp.ID)
		assert.JSONEq(t, `["escrow","greetings","todolist"]`, string(resp.Result))
	})

	t.Run("unknown_method", func(t *testing.T) {
		req, err := api.NewRequest(8, "withdraw", nil)
		require.NoError(t, err)
		require.NoError(t, conn.WriteJSON(req))

		var resp api.Response
		require.NoError(t, conn.ReadJSON(&resp))
		require.NotNil(t, resp.Error)
		ledgertest.AssertAPIError(t, api.ToError(resp.Error), ledger.ClientError, ledger.ErrInvalidArgument)
	})

	t.Run("close", func(t *testing.T) {
		require.NoError(t, s.Close())
		wg.Wait()
		var resp api.Response
		assert.Error(t, conn.ReadJSON(&resp))
		assert.Error(t, s.Close())
	})
}

func Test_Listen_Error(t *testing.T) {
	n := nodetest.NewNodeT(t)
	_, err := ledgerws.Listen(n, "invalid-addr", 0, 0)
	assert.Error(t, err)
}
