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

// Package client implements a client for the API of the ledger node.
//
// The client signs the state changing requests with its signer, using the
// nonce fetched from the node for each request.
package client

import (
	"context"
	"encoding/json"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/pkg/errors"

	"github.com/hyperledger-labs/ledger-node"
	"github.com/hyperledger-labs/ledger-node/api"
	"github.com/hyperledger-labs/ledger-node/identity"
	"github.com/hyperledger-labs/ledger-node/log"
)

// DefaultResponseTimeout is used when the config specifies no response timeout.
const DefaultResponseTimeout = 10 * time.Second

// Client is a connection to the API server of a ledger node.
//
// It is safe for concurrent use. State changing calls are serialized, as
// each of them uses the next nonce of the signer.
type Client struct {
	log.Logger

	conn            conn
	signer          identity.Signer
	responseTimeout time.Duration

	signMtx sync.Mutex

	mtx     sync.Mutex
	nextID  uint64
	pending map[uint64]chan *api.Response
	closed  bool
	readErr error

	wg *sync.WaitGroup
}

// New connects to the node at the address in the config. Signer is used
// for signing the state changing requests; it can be nil if the client will
// be used only for reading the state.
func New(cfg Config, signer identity.Signer) (*Client, error) {
	conn, err := dial(cfg)
	if err != nil {
		return nil, err
	}
	responseTimeout := cfg.ResponseTimeout
	if responseTimeout == 0 {
		responseTimeout = DefaultResponseTimeout
	}

	c := &Client{
		Logger:          log.NewLoggerWithFields(log.Fields{"client": cfg.Transport, "node": cfg.Addr}),
		conn:            conn,
		signer:          signer,
		responseTimeout: responseTimeout,
		pending:         make(map[uint64]chan *api.Response),
		wg:              &sync.WaitGroup{},
	}
	c.runAsGoRoutine(c.readLoop)
	return c, nil
}

// Addr returns the address of the signer, or zero address if the client
// has no signer.
func (c *Client) Addr() common.Address {
	if c.signer == nil {
		return common.Address{}
	}
	return c.signer.Addr()
}

// Close closes the connection to the node. Calls waiting for a response
// return an error.
func (c *Client) Close() error {
	c.mtx.Lock()
	if c.closed {
		c.mtx.Unlock()
		return errors.New("client already closed")
	}
	c.closed = true
	c.mtx.Unlock()

	err := c.conn.Close()
	c.wg.Wait()
	return err
}

func (c *Client) runAsGoRoutine(f func()) {
	c.wg.Add(1)
	go func(wg *sync.WaitGroup) {
		defer wg.Done()
		f()
	}(c.wg)
}

// readLoop dispatches the responses to the calls waiting for them, until
// the connection fails.
func (c *Client) readLoop() {
	for {
		resp := &api.Response{}
		err := c.conn.recv(resp)

		c.mtx.Lock()
		if err != nil {
			if !c.closed {
				c.Errorf("Reading response: %v", err)
			}
			c.readErr = err
			for id, respCh := range c.pending {
				close(respCh)
				delete(c.pending, id)
			}
			c.mtx.Unlock()
			return
		}
		respCh, ok := c.pending[resp.ID]
		delete(c.pending, resp.ID)
		c.mtx.Unlock()

		if !ok {
			c.Errorf("Received response for unknown request ID %d", resp.ID)
			continue
		}
		respCh <- resp
	}
}

// register assigns an ID to the request and returns the channel on which
// the response for it will be delivered.
func (c *Client) register(req *api.Request) (chan *api.Response, error) {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	if c.closed {
		return nil, errors.New("client closed")
	}
	if c.readErr != nil {
		return nil, errors.WithMessage(c.readErr, "connection failed")
	}
	c.nextID++
	req.ID = c.nextID
	respCh := make(chan *api.Response, 1)
	c.pending[req.ID] = respCh
	return respCh, nil
}

func (c *Client) unregister(id uint64) {
	c.mtx.Lock()
	delete(c.pending, id)
	c.mtx.Unlock()
}

// call sends the request and decodes the result into result. Errors in
// the transport are returned as unknown internal errors.
func (c *Client) call(ctx context.Context, method string, params, result interface{}) ledger.APIError {
	req, err := api.NewRequest(0, method, params)
	if err != nil {
		return ledger.NewAPIErrUnknownInternal(err)
	}
	return c.do(ctx, req, result)
}

// signedCall fetches the nonce of the signer, then signs and sends the
// request.
func (c *Client) signedCall(ctx context.Context, method string, params, result interface{}) ledger.APIError {
	if c.signer == nil {
		return ledger.NewAPIErrUnknownInternal(errors.New("client has no signer for state changing calls"))
	}
	c.signMtx.Lock()
	defer c.signMtx.Unlock()

	nonce, apiErr := c.Nonce(ctx, c.signer.Addr())
	if apiErr != nil {
		return apiErr
	}
	req, err := api.NewRequest(0, method, params)
	if err != nil {
		return ledger.NewAPIErrUnknownInternal(err)
	}
	if err = req.Sign(c.signer, nonce); err != nil {
		return ledger.NewAPIErrUnknownInternal(err)
	}
	return c.do(ctx, req, result)
}

func (c *Client) do(ctx context.Context, req *api.Request, result interface{}) ledger.APIError {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.responseTimeout)
		defer cancel()
	}

	respCh, err := c.register(req)
	if err != nil {
		return ledger.NewAPIErrUnknownInternal(err)
	}
	if err = c.conn.send(req); err != nil {
		c.unregister(req.ID)
		return ledger.NewAPIErrUnknownInternal(errors.WithMessage(err, "sending request"))
	}

	var resp *api.Response
	select {
	case resp = <-respCh:
	case <-ctx.Done():
		c.unregister(req.ID)
		return ledger.NewAPIErrUnknownInternal(errors.Wrapf(ctx.Err(), "waiting for response to %s", req.Method))
	}
	if resp == nil {
		return ledger.NewAPIErrUnknownInternal(errors.New("connection closed before receiving response"))
	}
	if resp.Error != nil {
		return api.ToError(resp.Error)
	}
	if result == nil {
		return nil
	}
	if err = json.Unmarshal(resp.Result, result); err != nil {
		return ledger.NewAPIErrUnknownInternal(errors.Wrap(err, "decoding result"))
	}
	return nil
}

// Time returns the time on the node as unix timestamp.
func (c *Client) Time(ctx context.Context) (int64, ledger.APIError) {
	var result api.TimeResult
	apiErr := c.call(ctx, api.MethodTime, nil, &result)
	return result.Time, apiErr
}

// GetConfig returns the configuration of the node.
func (c *Client) GetConfig(ctx context.Context) (ledger.NodeConfig, ledger.APIError) {
	var result ledger.NodeConfig
	apiErr := c.call(ctx, api.MethodConfig, nil, &result)
	return result, apiErr
}

// Help returns the contract types that can be deployed on the node.
func (c *Client) Help(ctx context.Context) ([]string, ledger.APIError) {
	var result []string
	apiErr := c.call(ctx, api.MethodHelp, nil, &result)
	return result, apiErr
}

// Balance returns the balance of the address in base units.
func (c *Client) Balance(ctx context.Context, addr common.Address) (*big.Int, ledger.APIError) {
	var result api.BalanceResult
	if apiErr := c.call(ctx, api.MethodBalance, api.AddrParams{Addr: addr}, &result); apiErr != nil {
		return nil, apiErr
	}
	return api.BigOrZero(result.Balance), nil
}

// Nonce returns the nonce to be used in the next state changing call by
// the address.
func (c *Client) Nonce(ctx context.Context, addr common.Address) (uint64, ledger.APIError) {
	var result api.NonceResult
	apiErr := c.call(ctx, api.MethodNonce, api.AddrParams{Addr: addr}, &result)
	return result.Nonce, apiErr
}

// Contracts returns the contracts deployed on the node.
func (c *Client) Contracts(ctx context.Context) ([]ledger.ContractInfo, ledger.APIError) {
	var result []ledger.ContractInfo
	apiErr := c.call(ctx, api.MethodContracts, nil, &result)
	return result, apiErr
}

// DeployEscrow deploys an escrow with the signer as the depositor.
func (c *Client) DeployEscrow(ctx context.Context, beneficiary, arbiter common.Address, amount *big.Int) (
	ledger.EscrowInfo, ledger.APIError) {
	params := api.DeployEscrowParams{
		Beneficiary: beneficiary,
		Arbiter:     arbiter,
		Amount:      (*hexutil.Big)(amount),
	}
	var result api.EscrowResult
	if apiErr := c.signedCall(ctx, api.MethodDeployEscrow, params, &result); apiErr != nil {
		return ledger.EscrowInfo{}, apiErr
	}
	return api.ToEscrowInfo(result), nil
}

// GetEscrow returns the state of the escrow.
func (c *Client) GetEscrow(ctx context.Context, addr common.Address) (ledger.EscrowInfo, ledger.APIError) {
	var result api.EscrowResult
	if apiErr := c.call(ctx, api.MethodGetEscrow, api.AddrParams{Addr: addr}, &result); apiErr != nil {
		return ledger.EscrowInfo{}, apiErr
	}
	return api.ToEscrowInfo(result), nil
}

// ReleaseFunds releases the funds in the escrow to the beneficiary. The
// signer must be the arbiter of the escrow.
func (c *Client) ReleaseFunds(ctx context.Context, addr common.Address) (ledger.EscrowInfo, ledger.APIError) {
	var result api.EscrowResult
	if apiErr := c.signedCall(ctx, api.MethodReleaseFunds, api.AddrParams{Addr: addr}, &result); apiErr != nil {
		return ledger.EscrowInfo{}, apiErr
	}
	return api.ToEscrowInfo(result), nil
}

// DeployGreetings deploys a greetings contract owned by the signer.
func (c *Client) DeployGreetings(ctx context.Context) (ledger.GreetingsInfo, ledger.APIError) {
	var result ledger.GreetingsInfo
	apiErr := c.signedCall(ctx, api.MethodDeployGreetings, nil, &result)
	return result, apiErr
}

// Greet returns the current greeting.
func (c *Client) Greet(ctx context.Context, addr common.Address) (ledger.GreetingsInfo, ledger.APIError) {
	var result ledger.GreetingsInfo
	apiErr := c.call(ctx, api.MethodGreet, api.AddrParams{Addr: addr}, &result)
	return result, apiErr
}

// SetGreeting updates the greeting.
func (c *Client) SetGreeting(ctx context.Context, addr common.Address, greeting string) (
	ledger.GreetingsInfo, ledger.APIError) {
	var result ledger.GreetingsInfo
	params := api.SetGreetingParams{Addr: addr, Greeting: greeting}
	apiErr := c.signedCall(ctx, api.MethodSetGreeting, params, &result)
	return result, apiErr
}

// DeployTodoList deploys a todo list owned by the signer.
func (c *Client) DeployTodoList(ctx context.Context) (ledger.TodoListInfo, ledger.APIError) {
	var result ledger.TodoListInfo
	apiErr := c.signedCall(ctx, api.MethodDeployTodoList, nil, &result)
	return result, apiErr
}

// CreateTask adds a task to the todo list.
func (c *Client) CreateTask(ctx context.Context, addr common.Address, content string) (ledger.Task, ledger.APIError) {
	var result ledger.Task
	params := api.CreateTaskParams{Addr: addr, Content: content}
	apiErr := c.signedCall(ctx, api.MethodCreateTask, params, &result)
	return result, apiErr
}

// ToggleCompleted flips the completed flag of the task.
func (c *Client) ToggleCompleted(ctx context.Context, addr common.Address, id uint64) (ledger.Task, ledger.APIError) {
	var result ledger.Task
	apiErr := c.signedCall(ctx, api.MethodToggleCompleted, api.TaskParams{Addr: addr, ID: id}, &result)
	return result, apiErr
}

// GetTask returns the task.
func (c *Client) GetTask(ctx context.Context, addr common.Address, id uint64) (ledger.Task, ledger.APIError) {
	var result ledger.Task
	apiErr := c.call(ctx, api.MethodGetTask, api.TaskParams{Addr: addr, ID: id}, &result)
	return result, apiErr
}
