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

package ledgertcp

import (
	"encoding/binary"
	"encoding/json"
	"io"
	"net"
	"sync"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/net/netutil"

	"github.com/hyperledger-labs/ledger-node"
	"github.com/hyperledger-labs/ledger-node/api"
	"github.com/hyperledger-labs/ledger-node/api/handlers"
	"github.com/hyperledger-labs/ledger-node/log"
)

// MaxMsgSize is the maximum size of the JSON encoded message in a frame.
const MaxMsgSize = 1 << 20

// Server serves the node API over TCP. Each message is sent as a frame
// containing its length as uint32 in big endian, followed by the JSON
// encoded message.
//
// Requests on a connection are handled concurrently, so the responses may
// be sent in a different order than the requests.
type Server struct {
	log.Logger

	listener net.Listener
	handler  *handlers.Handler
	timeout  time.Duration

	mtx    sync.Mutex
	conns  map[net.Conn]struct{}
	closed bool
	wg     sync.WaitGroup
}

// Listen starts listening for connections at the given address. Use Serve
// to accept and serve them. Connections beyond maxConns wait until one of
// the existing connections is closed. Zero maxConns means no limit.
func Listen(n ledger.NodeAPI, addr string, maxConns int, timeout time.Duration) (*Server, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, errors.Wrap(err, "starting listener")
	}
	if maxConns > 0 {
		listener = netutil.LimitListener(listener, maxConns)
	}
	logger := log.NewLoggerWithField("api", "tcp")
	return &Server{
		Logger:   logger,
		listener: listener,
		handler:  handlers.New(n, logger),
		timeout:  timeout,
		conns:    make(map[net.Conn]struct{}),
	}, nil
}

// Addr returns the address the server is listening on.
func (s *Server) Addr() string {
	return s.listener.Addr().String()
}

// Serve accepts the connections and serves the requests on them. It blocks
// until the server is closed, when it returns nil.
func (s *Server) Serve() error {
	s.Infof("Serving API at %s", s.Addr())
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if s.isClosed() {
				return nil
			}
			return errors.Wrap(err, "accepting connection")
		}
		if !s.track(conn) {
			conn.Close() // nolint: errcheck
			return nil
		}
		go s.handle(conn)
	}
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
	err := s.listener.Close()
	for conn := range s.conns {
		conn.Close() // nolint: errcheck
	}
	s.mtx.Unlock()

	s.wg.Wait()
	return errors.Wrap(err, "closing listener")
}

func (s *Server) isClosed() bool {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	return s.closed
}

func (s *Server) track(conn net.Conn) bool {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	if s.closed {
		return false
	}
	s.conns[conn] = struct{}{}
	s.wg.Add(1)
	return true
}

func (s *Server) untrack(conn net.Conn) {
	s.mtx.Lock()
	delete(s.conns, conn)
	s.mtx.Unlock()
	s.wg.Done()
}

func (s *Server) handle(conn net.Conn) {
	defer s.untrack(conn)
	defer conn.Close() // nolint: errcheck

	logger := s.WithField("remote", conn.RemoteAddr().String())
	logger.Debug("Accepted connection")

	var writeMtx sync.Mutex
	var reqs sync.WaitGroup
	defer reqs.Wait()
	for {
		var req api.Request
		if err := ReadMsg(conn, &req); err != nil {
			if !errors.Is(err, io.EOF) && !s.isClosed() {
				logger.Errorf("Reading request: %v", err)
			}
			return
		}

		reqs.Add(1)
		go func() {
			defer reqs.Done()
			resp := s.handler.Handle(&req)

			writeMtx.Lock()
			defer writeMtx.Unlock()
			if s.timeout > 0 {
				conn.SetWriteDeadline(time.Now().Add(s.timeout)) // nolint: errcheck
			}
			if err := WriteMsg(conn, resp); err != nil {
				logger.Errorf("Sending response for %s: %v", req.Method, err)
			}
		}()
	}
}

// ReadMsg reads a frame from r and decodes the message in it into v.
func ReadMsg(r io.Reader, v interface{}) error {
	var size uint32
	if err := binary.Read(r, binary.BigEndian, &size); err != nil {
		return errors.Wrap(err, "reading size of data from wire")
	}
	if size > MaxMsgSize {
		return errors.Errorf("message size %d exceeds max size %d", size, MaxMsgSize)
	}
	data := make([]byte, size)
	if _, err := io.ReadFull(r, data); err != nil {
		return errors.Wrap(err, "reading data from wire")
	}
	return errors.Wrap(json.Unmarshal(data, v), "decoding message")
}

// WriteMsg encodes v and writes it as a frame to w.
func WriteMsg(w io.Writer, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return errors.Wrap(err, "encoding message")
	}
	if len(data) > MaxMsgSize {
		return errors.Errorf("message size %d exceeds max size %d", len(data), MaxMsgSize)
	}
	frame := make([]byte, 4+len(data))
	binary.BigEndian.PutUint32(frame, uint32(len(data)))
	copy(frame[4:], data)
	_, err = w.Write(frame)
	return errors.Wrap(err, "writing data to wire")
}
