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

import "time"

// Transports supported by the client.
const (
	TransportTCP       = "tcp"
	TransportWebSocket = "ws"
)

// Config represents the configuration parameters for connecting to a node.
type Config struct {
	// Transport is one of TransportTCP or TransportWebSocket.
	Transport string
	// Addr of the API server of the node.
	Addr string
	// DialTimeout is the timeout for establishing the connection.
	DialTimeout time.Duration
	// ResponseTimeout is the default timeout for receiving a response, used
	// when the context passed to a call has no deadline.
	ResponseTimeout time.Duration
}
