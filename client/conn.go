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

package client

import (
	"net"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"

	"github.com/hyperledger-labs/ledger-node/api"
	ledgertcp "github.com/hyperledger-labs/ledger-node/api/tcp"
	ledgerws "github.com/hyperledger-labs/ledger-node/api/websocket"
)

// conn is a connection to the API server of the node, over which requests
// and responses are exchanged.
type conn interface {
	send(req *api.Request) error
	recv(resp *api.Response) error
	Close() error
}

func dial(cfg Config) (conn, error) {
	switch cfg.Transport {
	case TransportTCP:
		c, err := net.DialTimeout("tcp", cfg.Addr, cfg.DialTimeout)
		if err != nil {
			return nil, errors.Wrap(err, "dialing tcp")
		}
		return &tcpConn{conn: c}, nil
	case TransportWebSocket:
		peerURL := url.URL{Scheme: "ws", Host: cfg.Addr, Path: ledgerws.Endpoint}
		dialer := *websocket.DefaultDialer
		dialer.HandshakeTimeout = cfg.DialTimeout
		c, resp, err := dialer.Dial(peerURL.String(), nil)
		if err != nil {
			return nil, errors.Wrap(err, "dialing websocket")
		}
		resp.Body.Close() // nolint: errcheck
		return &wsConn{conn: c}, nil
	default:
		return nil, errors.Errorf("unsupported transport %q", cfg.Transport)
	}
}

type tcpConn struct {
	writeMtx sync.Mutex
	conn     net.Conn
}

func (c *tcpConn) send(req *api.Request) error {
	c.writeMtx.Lock()
	defer c.writeMtx.Unlock()
	return ledgertcp.WriteMsg(c.conn, req)
}

func (c *tcpConn) recv(resp *api.Response) error {
	return ledgertcp.ReadMsg(c.conn, resp)
}

func (c *tcpConn) Close() error {
	return errors.WithStack(c.conn.Close())
}

type wsConn struct {
	writeMtx sync.Mutex
	conn     *websocket.Conn
}

const wsWriteWait = 10 * time.Second

func (c *wsConn) send(req *api.Request) error {
	c.writeMtx.Lock()
	defer c.writeMtx.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait)) // nolint: errcheck
	return errors.Wrap(c.conn.WriteJSON(req), "writing request")
}

// recv reads the next response. Pings from the server are answered by the
// default ping handler while reading.
func (c *wsConn) recv(resp *api.Response) error {
	return errors.Wrap(c.conn.ReadJSON(resp), "reading response")
}

func (c *wsConn) Close() error {
	c.writeMtx.Lock()
	c.conn.WriteControl(websocket.CloseMessage, // nolint: errcheck
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
	c.writeMtx.Unlock()
	return errors.WithStack(c.conn.Close())
}
