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

// Package handlers decodes the API requests, verifies the signatures on them
// and invokes the corresponding method on the node.
package handlers

import (
	"encoding/json"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/pkg/errors"

	"github.com/hyperledger-labs/ledger-node"
	"github.com/hyperledger-labs/ledger-node/api"
	"github.com/hyperledger-labs/ledger-node/identity"
	"github.com/hyperledger-labs/ledger-node/log"
)

// Argument names used in the errors returned by the handler.
const (
	ArgNameMethod    ledger.ArgumentName = "method"
	ArgNameParams    ledger.ArgumentName = "params"
	ArgNameSignature ledger.ArgumentName = "signature"
)

type handlerFunc func(h *Handler, req *api.Request) (interface{}, ledger.APIError)

var methods = map[string]handlerFunc{
	api.MethodTime:      (*Handler).time,
	api.MethodConfig:    (*Handler).config,
	api.MethodHelp:      (*Handler).help,
	api.MethodBalance:   (*Handler).balance,
	api.MethodNonce:     (*Handler).nonce,
	api.MethodContracts: (*Handler).contracts,

	api.MethodDeployEscrow: (*Handler).deployEscrow,
	api.MethodGetEscrow:    (*Handler).getEscrow,
	api.MethodReleaseFunds: (*Handler).releaseFunds,

	api.MethodDeployGreetings: (*Handler).deployGreetings,
	api.MethodGreet:           (*Handler).greet,
	api.MethodSetGreeting:     (*Handler).setGreeting,

	api.MethodDeployTodoList:  (*Handler).deployTodoList,
	api.MethodCreateTask:      (*Handler).createTask,
	api.MethodToggleCompleted: (*Handler).toggleCompleted,
	api.MethodGetTask:         (*Handler).getTask,
}

// Handler serves the API requests using the node.
//
// It is safe for concurrent use, if the node is.
type Handler struct {
	N ledger.NodeAPI
	log.Logger
}

// New returns a handler for the node. Logger is used for logging
// the requests that could not be decoded.
func New(n ledger.NodeAPI, logger log.Logger) *Handler {
	return &Handler{
		N:      n,
		Logger: logger,
	}
}

// Handle serves the request and returns the response for it. The response
// always has the same ID as the request.
func (h *Handler) Handle(req *api.Request) *api.Response {
	errResponse := func(err ledger.APIError) *api.Response {
		return &api.Response{
			ID:    req.ID,
			Error: api.FromError(err),
		}
	}

	fn, ok := methods[req.Method]
	if !ok {
		h.WithField("method", req.Method).Error("Unknown method")
		return errResponse(ledger.NewAPIErrInvalidArgument(errors.New("unknown method"), ArgNameMethod, req.Method))
	}
	if api.IsSigned(req.Method) {
		if apiErr := verify(req); apiErr != nil {
			h.WithFields(ledger.APIErrAsMap(req.Method, apiErr)).Error(apiErr.Message())
			return errResponse(apiErr)
		}
	}

	result, apiErr := fn(h, req)
	if apiErr != nil {
		return errResponse(apiErr)
	}
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return errResponse(ledger.NewAPIErrUnknownInternal(errors.WithStack(err)))
	}
	return &api.Response{
		ID:     req.ID,
		Result: resultJSON,
	}
}

func verify(req *api.Request) ledger.APIError {
	payload := api.SigningPayload(req.Method, req.Params, req.Nonce)
	recovered, err := identity.Verify(payload, req.Signature, req.From)
	if err == nil {
		return nil
	}
	recoveredStr := ""
	if recovered != (common.Address{}) {
		recoveredStr = recovered.Hex()
	}
	return ledger.NewAPIErrInvalidSignature(err, req.From.Hex(), recoveredStr)
}

func caller(req *api.Request) ledger.Caller {
	return ledger.Caller{Addr: req.From, Nonce: req.Nonce}
}

func decodeParams(req *api.Request, v interface{}) ledger.APIError {
	if err := json.Unmarshal(req.Params, v); err != nil {
		return ledger.NewAPIErrInvalidArgument(errors.WithStack(err), ArgNameParams, string(req.Params))
	}
	return nil
}

func (h *Handler) time(_ *api.Request) (interface{}, ledger.APIError) {
	return api.TimeResult{Time: h.N.Time()}, nil
}

func (h *Handler) config(_ *api.Request) (interface{}, ledger.APIError) {
	return h.N.GetConfig(), nil
}

func (h *Handler) help(_ *api.Request) (interface{}, ledger.APIError) {
	return h.N.Help(), nil
}

func (h *Handler) balance(req *api.Request) (interface{}, ledger.APIError) {
	var params api.AddrParams
	if apiErr := decodeParams(req, &params); apiErr != nil {
		return nil, apiErr
	}
	return api.BalanceResult{Balance: (*hexutil.Big)(h.N.Balance(params.Addr))}, nil
}

func (h *Handler) nonce(req *api.Request) (interface{}, ledger.APIError) {
	var params api.AddrParams
	if apiErr := decodeParams(req, &params); apiErr != nil {
		return nil, apiErr
	}
	return api.NonceResult{Nonce: h.N.Nonce(params.Addr)}, nil
}

func (h *Handler) contracts(_ *api.Request) (interface{}, ledger.APIError) {
	return h.N.Contracts(), nil
}

func (h *Handler) deployEscrow(req *api.Request) (interface{}, ledger.APIError) {
	var params api.DeployEscrowParams
	if apiErr := decodeParams(req, &params); apiErr != nil {
		return nil, apiErr
	}
	info, apiErr := h.N.DeployEscrow(caller(req), params.Beneficiary, params.Arbiter, api.BigOrZero(params.Amount))
	if apiErr != nil {
		return nil, apiErr
	}
	return api.FromEscrowInfo(info), nil
}

func (h *Handler) getEscrow(req *api.Request) (interface{}, ledger.APIError) {
	var params api.AddrParams
	if apiErr := decodeParams(req, &params); apiErr != nil {
		return nil, apiErr
	}
	info, apiErr := h.N.GetEscrow(params.Addr)
	if apiErr != nil {
		return nil, apiErr
	}
	return api.FromEscrowInfo(info), nil
}

func (h *Handler) releaseFunds(req *api.Request) (interface{}, ledger.APIError) {
	var params api.AddrParams
	if apiErr := decodeParams(req, &params); apiErr != nil {
		return nil, apiErr
	}
	info, apiErr := h.N.ReleaseFunds(caller(req), params.Addr)
	if apiErr != nil {
		return nil, apiErr
	}
	return api.FromEscrowInfo(info), nil
}

func (h *Handler) deployGreetings(req *api.Request) (interface{}, ledger.APIError) {
	info, apiErr := h.N.DeployGreetings(caller(req))
	if apiErr != nil {
		return nil, apiErr
	}
	return info, nil
}

func (h *Handler) greet(req *api.Request) (interface{}, ledger.APIError) {
	var params api.AddrParams
	if apiErr := decodeParams(req, &params); apiErr != nil {
		return nil, apiErr
	}
	info, apiErr := h.N.Greet(params.Addr)
	if apiErr != nil {
		return nil, apiErr
	}
	return info, nil
}

func (h *Handler) setGreeting(req *api.Request) (interface{}, ledger.APIError) {
	var params api.SetGreetingParams
	if apiErr := decodeParams(req, &params); apiErr != nil {
		return nil, apiErr
	}
	info, apiErr := h.N.SetGreeting(caller(req), params.Addr, params.Greeting)
	if apiErr != nil {
		return nil, apiErr
	}
	return info, nil
}

func (h *Handler) deployTodoList(req *api.Request) (interface{}, ledger.APIError) {
	info, apiErr := h.N.DeployTodoList(caller(req))
	if apiErr != nil {
		return nil, apiErr
	}
	return info, nil
}

func (h *Handler) createTask(req *api.Request) (interface{}, ledger.APIError) {
	var params api.CreateTaskParams
	if apiErr := decodeParams(req, &params); apiErr != nil {
		return nil, apiErr
	}
	task, apiErr := h.N.CreateTask(caller(req), params.Addr, params.Content)
	if apiErr != nil {
		return nil, apiErr
	}
	return task, nil
}

func (h *Handler) toggleCompleted(req *api.Request) (interface{}, ledger.APIError) {
	var params api.TaskParams
	if apiErr := decodeParams(req, &params); apiErr != nil {
		return nil, apiErr
	}
	task, apiErr := h.N.ToggleCompleted(caller(req), params.Addr, params.ID)
	if apiErr != nil {
		return nil, apiErr
	}
	return task, nil
}

func (h *Handler) getTask(req *api.Request) (interface{}, ledger.APIError) {
	var params api.TaskParams
	if apiErr := decodeParams(req, &params); apiErr != nil {
		return nil, apiErr
	}
	task, apiErr := h.N.GetTask(params.Addr, params.ID)
	if apiErr != nil {
		return nil, apiErr
	}
	return task, nil
}
