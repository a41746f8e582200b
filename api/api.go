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

// Package api defines the messages exchanged between the clients and the API
// servers of the ledger node. Messages are encoded in JSON.
//
// State changing methods must be signed by the caller. The signature is made
// over SigningPayload of the method, params and nonce in the request, in the
// format used by identity.Signer.
package api

import (
	"encoding/binary"
	"encoding/json"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"

	"github.com/hyperledger-labs/ledger-node"
	"github.com/hyperledger-labs/ledger-node/identity"
)

// Names of the methods served by the API.
const (
	MethodTime      = "time"
	MethodConfig    = "config"
	MethodHelp      = "help"
	MethodBalance   = "balance"
	MethodNonce     = "nonce"
	MethodContracts = "contracts"

	MethodDeployEscrow = "deployEscrow"
	MethodGetEscrow    = "getEscrow"
	MethodReleaseFunds = "releaseFunds"

	MethodDeployGreetings = "deployGreetings"
	MethodGreet           = "greet"
	MethodSetGreeting     = "setGreeting"

	MethodDeployTodoList  = "deployTodoList"
	MethodCreateTask      = "createTask"
	MethodToggleCompleted = "toggleCompleted"
	MethodGetTask         = "getTask"
)

var signedMethods = map[string]bool{
	MethodDeployEscrow:    true,
	MethodReleaseFunds:    true,
	MethodDeployGreetings: true,
	MethodSetGreeting:     true,
	MethodDeployTodoList:  true,
	MethodCreateTask:      true,
	MethodToggleCompleted: true,
}

// IsSigned returns true if requests for the method change the state of the
// node and hence must be signed by the caller.
func IsSigned(method string) bool {
	return signedMethods[method]
}

type (
	// Request is a call to a method on the node.
	//
	// From, Nonce and Signature are required only for signed methods.
	Request struct {
		ID        uint64          `json:"id"`
		Method    string          `json:"method"`
		Params    json.RawMessage `json:"params,omitempty"`
		From      common.Address  `json:"from"`
		Nonce     uint64          `json:"nonce"`
		Signature hexutil.Bytes   `json:"signature,omitempty"`
	}

	// Response carries the result of the request with the same ID. Only one
	// of result and error is set.
	Response struct {
		ID     uint64          `json:"id"`
		Result json.RawMessage `json:"result,omitempty"`
		Error  *Error          `json:"error,omitempty"`
	}

	// Error is the wire representation of ledger.APIError.
	Error struct {
		Category ledger.ErrorCategory `json:"category"`
		Code     ledger.ErrorCode     `json:"code"`
		Message  string               `json:"message"`
		AddInfo  json.RawMessage      `json:"addInfo,omitempty"`
	}
)

type (
	// AddrParams are the params for methods that take only an address.
	AddrParams struct {
		Addr common.Address `json:"addr"`
	}

	// DeployEscrowParams are the params for deployEscrow. Amount is in base units.
	DeployEscrowParams struct {
		Beneficiary common.Address `json:"beneficiary"`
		Arbiter     common.Address `json:"arbiter"`
		Amount      *hexutil.Big   `json:"amount"`
	}

	// SetGreetingParams are the params for setGreeting.
	SetGreetingParams struct {
		Addr     common.Address `json:"addr"`
		Greeting string         `json:"greeting"`
	}

	// CreateTaskParams are the params for createTask.
	CreateTaskParams struct {
		Addr    common.Address `json:"addr"`
		Content string         `json:"content"`
	}

	// TaskParams are the params for toggleCompleted and getTask.
	TaskParams struct {
		Addr common.Address `json:"addr"`
		ID   uint64         `json:"id"`
	}

	// BalanceResult is the result of balance. Balance is in base units.
	BalanceResult struct {
		Balance *hexutil.Big `json:"balance"`
	}

	// NonceResult is the result of nonce.
	NonceResult struct {
		Nonce uint64 `json:"nonce"`
	}

	// TimeResult is the result of time.
	TimeResult struct {
		Time int64 `json:"time"`
	}

	// EscrowResult is the wire representation of ledger.EscrowInfo.
	EscrowResult struct {
		Addr          common.Address `json:"addr"`
		Depositor     common.Address `json:"depositor"`
		Beneficiary   common.Address `json:"beneficiary"`
		Arbiter       common.Address `json:"arbiter"`
		Amount        *hexutil.Big   `json:"amount"`
		FundsReleased bool           `json:"fundsReleased"`
	}
)

// SigningPayload returns the data that should be signed for a request.
func SigningPayload(method string, params []byte, nonce uint64) []byte {
	nonceBytes := make([]byte, 8)
	binary.BigEndian.PutUint64(nonceBytes, nonce)
	return crypto.Keccak256([]byte(method), params, nonceBytes)
}

// NewRequest returns a request for the method with the params encoded in
// JSON. Params are omitted if nil.
func NewRequest(id uint64, method string, params interface{}) (*Request, error) {
	req := &Request{ID: id, Method: method}
	if params == nil {
		return req, nil
	}
	var err error
	req.Params, err = json.Marshal(params)
	return req, errors.Wrap(err, "encoding params")
}

// Sign sets the caller fields in the request to the address of the signer
// and the nonce, and signs the request.
func (r *Request) Sign(s identity.Signer, nonce uint64) error {
	r.From = s.Addr()
	r.Nonce = nonce
	sig, err := s.Sign(SigningPayload(r.Method, r.Params, nonce))
	if err != nil {
		return errors.WithMessage(err, "signing request")
	}
	r.Signature = sig
	return nil
}

// FromEscrowInfo converts escrow info to its wire representation.
func FromEscrowInfo(info ledger.EscrowInfo) EscrowResult {
	return EscrowResult{
		Addr:          info.Addr,
		Depositor:     info.Depositor,
		Beneficiary:   info.Beneficiary,
		Arbiter:       info.Arbiter,
		Amount:        (*hexutil.Big)(info.Amount),
		FundsReleased: info.FundsReleased,
	}
}

// ToEscrowInfo converts the wire representation to escrow info.
func ToEscrowInfo(r EscrowResult) ledger.EscrowInfo {
	return ledger.EscrowInfo{
		Addr:          r.Addr,
		Depositor:     r.Depositor,
		Beneficiary:   r.Beneficiary,
		Arbiter:       r.Arbiter,
		Amount:        r.Amount.ToInt(),
		FundsReleased: r.FundsReleased,
	}
}

// BigOrZero returns the value of b, or zero if b is nil.
func BigOrZero(b *hexutil.Big) *big.Int {
	if b == nil {
		return new(big.Int)
	}
	return b.ToInt()
}

// FromError is a helper function to convert APIError defined in the ledger
// package to its wire representation.
func FromError(err ledger.APIError) *Error {
	apiErr := &Error{
		Category: err.Category(),
		Code:     err.Code(),
		Message:  err.Message(),
	}
	if err.AddInfo() != nil {
		// Additional info types have only string and integer fields, which
		// always marshal successfully.
		apiErr.AddInfo, _ = json.Marshal(err.AddInfo()) // nolint: errcheck
	}
	return apiErr
}

// ToError rebuilds the APIError from its wire representation. The
// additional info is decoded into the type defined for the error code.
func ToError(e *Error) ledger.APIError {
	var addInfo interface{}
	var err error
	switch e.Code {
	case ledger.ErrUnauthorized:
		var info ledger.ErrInfoUnauthorized
		err = decodeAddInfo(e.AddInfo, &info)
		addInfo = info
	case ledger.ErrInsufficientFunds:
		var info ledger.ErrInfoInsufficientFunds
		err = decodeAddInfo(e.AddInfo, &info)
		addInfo = info
	case ledger.ErrInvalidSignature:
		var info ledger.ErrInfoInvalidSignature
		err = decodeAddInfo(e.AddInfo, &info)
		addInfo = info
	case ledger.ErrResourceNotFound:
		var info ledger.ErrInfoResourceNotFound
		err = decodeAddInfo(e.AddInfo, &info)
		addInfo = info
	case ledger.ErrResourceExists:
		var info ledger.ErrInfoResourceExists
		err = decodeAddInfo(e.AddInfo, &info)
		addInfo = info
	case ledger.ErrInvalidArgument:
		var info ledger.ErrInfoInvalidArgument
		err = decodeAddInfo(e.AddInfo, &info)
		addInfo = info
	case ledger.ErrInvalidConfig:
		var info ledger.ErrInfoInvalidConfig
		err = decodeAddInfo(e.AddInfo, &info)
		addInfo = info
	case ledger.ErrInvalidNonce:
		var info ledger.ErrInfoInvalidNonce
		err = decodeAddInfo(e.AddInfo, &info)
		addInfo = info
	case ledger.ErrStorageFailure:
		var info ledger.ErrInfoStorageFailure
		err = decodeAddInfo(e.AddInfo, &info)
		addInfo = info
	default:
		// Errors with other codes have no additional info.
	}
	if err != nil {
		return ledger.NewAPIErrUnknownInternal(errors.WithMessage(err, "decoding additional info of error"))
	}
	return ledger.NewAPIErr(e.Category, e.Code, errors.New(e.Message), addInfo)
}

func decodeAddInfo(data json.RawMessage, v interface{}) error {
	if len(data) == 0 {
		return errors.New("missing additional info")
	}
	return errors.WithStack(json.Unmarshal(data, v))
}
