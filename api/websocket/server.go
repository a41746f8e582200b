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

// Package ledgerws implements an API server that serves the node API over
// websocket connections. Each request and response is sent as a JSON text
// message.
package ledgerws

import (
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"golang.org/x/net/netutil"

	"github.com/hyperledger-labs/ledger-node"
	"github.com/hyperledger-labs/ledger-node/api"
	"github.com/hyperledger-labs/ledger-node/api/handlers"
	"github.com/hyperledger-labs/ledger-node/log"
)

// Endpoint is the path at which the websocket connections are accepted.
const Endpoint = "/ledger"

type wsConfigType struct {
	writeWait      time.Duration
	pongWait       time.Duration
	pingPeriod     time.Duration
	maxMessageSize int64
}

var wsConfig = wsConfigType{
	writeWait:      10 * time.Second,
	pongWait:       60 * time.Second,
	pingPeriod:     ((60 * time.Second) * 9) / 10, // ping period = (pongWait * 9)/10
	maxMessageSize: 1 << 20,
}

// Server serves the node API over websocket connections.
type Server struct {
	log.Logger

	listener net.Listener
	srv      *http.Server
	handler  *handlers.Handler
	upgrader websocket.Upgrader
	timeout  time.Duration

	mtx    sync.Mutex
	conns  map[*websocket.Conn]struct{}
	closed bool
	wg     sync.WaitGroup
}

// Listen starts listening for connections at the given address. Use Serve
// to accept and serve them. Zero maxConns means no limit on the number of
// connections. Zero timeout uses the default write wait of 10s.
func Listen(n ledger.NodeAPI, addr string, maxConns int, timeout time.Duration) (*Server, error) {
	// Starting listener and server separately enables the caller to catch
	// errors when listening has failed to start.
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, errors.Wrap(err, "starting listener")
	}
	if maxConns > 0 {
		listener = netutil.LimitListener(listener, maxConns)
	}
	if timeout == 0 {
		timeout = wsConfig.writeWait
	}

	logger := log.NewLoggerWithField("api", "websocket")
	s := &Server{
		Logger:   logger,
		listener: listener,
		handler:  handlers.New(n, logger),
		timeout:  timeout,
		conns:    make(map[*websocket.Conn]struct{}),
	}
	mux := http.NewServeMux()
	mux.HandleFunc(Endpoint, s.serveWS)
	s.srv = &http.Server{Handler: mux}
	return s, nil
}

// Addr returns the address the server is listening on.
func (s *Server) Addr() string {
	return s.listener.Addr().String()
}

// Serve accepts the connections and serves the requests on them. It blocks
// until the server is closed, when it returns nil.
func (s *Server) Serve() error {
	s.Infof("Serving API at ws://%s%s", s.Addr(), Endpoint)
	err := s.srv.Serve(s.listener)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return errors.Wrap(err, "serving http")
}

// Close stops the listener, closes all the open connections and waits for
// pending requests to complete.
func (s *Server) Close() error {
	s.mtx.Lock()
	if s.closed {
		s.mtx.Unlock()
		return errors.New("server already closed")
	}
	s.closed = true
	// Hijacked connections are not closed by the http server.
	err := s.srv.Close()
	for conn := range s.conns {
		conn.Close() // nolint: errcheck
	}
	s.mtx.Unlock()

	s.wg.Wait()
	return errors.Wrap(err, "closing http server")
}

func (s *Server) track(conn *websocket.Conn) bool {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	if s.closed {
		return false
	}
	s.conns[conn] = struct{}{}
	s.wg.Add(1)
	return true
}

func (s *Server) untrack(conn *websocket.Conn) {
	s.mtx.Lock()
	delete(s.conns, conn)
	s.mtx.Unlock()
	s.wg.Done()
}

func (s *Server) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Errors returned by Upgrade are due to issues in the incoming
		// request and a response has already been sent.
		s.Error("Error in incoming request format: ", err)
		return
	}
	if !s.track(conn) {
		conn.Close() // nolint: errcheck
		return
	}
	s.handle(conn)
}

func (s *Server) handle(conn *websocket.Conn) {
	defer s.untrack(conn)
	defer conn.Close() // nolint: errcheck

	logger := s.WithField("remote", conn.RemoteAddr().String())
	logger.Debug("Accepted connection")

	conn.SetReadLimit(wsConfig.maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(wsConfig.pongWait)) // nolint: errcheck
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsConfig.pongWait))
	})

	var writeMtx sync.Mutex
	write := func(fn func() error) error {
		writeMtx.Lock()
		defer writeMtx.Unlock()
		conn.SetWriteDeadline(time.Now().Add(s.timeout)) // nolint: errcheck
		return fn()
	}

	done := make(chan struct{})
	defer close(done)
	go func() {
		ticker := time.NewTicker(wsConfig.pingPeriod)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := write(func() error { return conn.WriteMessage(websocket.PingMessage, nil) }); err != nil {
					return
				}
			case <-done:
				return
			}
		}
	}()

	var reqs sync.WaitGroup
	defer reqs.Wait()
	for {
		var req api.Request
		if err := conn.ReadJSON(&req); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Errorf("Reading request: %v", err)
			}
			return
		}

		reqs.Add(1)
		go func() {
			defer reqs.Done()
			resp := s.handler.Handle(&req)
			if err := write(func() error { return conn.WriteJSON(resp) }); err != nil {
				logger.Errorf("Sending response for %s: %v", req.Method, err)
			}
		}()
	}
}
