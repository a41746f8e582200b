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

package api_test

import (
	"encoding/json"
	"math/big"
	"math/rand"
	"testing"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperledger-labs/ledger-node"
	"github.com/hyperledger-labs/ledger-node/api"
	"github.com/hyperledger-labs/ledger-node/identity"
	"github.com/hyperledger-labs/ledger-node/identity/identitytest"
	"github.com/hyperledger-labs/ledger-node/ledgertest"
)

func Test_FromError_ToError(t *testing.T) {
	// transmit sends the error over the wire and decodes it.
	transmit := func(t *testing.T, err ledger.APIError) ledger.APIError {
		t.Helper()
		data, jsonErr := json.Marshal(api.FromError(err))
		require.NoError(t, jsonErr)
		var wireErr api.Error
		require.NoError(t, json.Unmarshal(data, &wireErr))
		return api.ToError(&wireErr)
	}

	t.Run("unauthorized", func(t *testing.T) {
		err := ledger.NewAPIErrUnauthorized(errors.New("Only arbiter can release funds"), "0x01", "0x02")
		got := transmit(t, err)
		ledgertest.AssertAPIError(t, got, ledger.ParticipantError, ledger.ErrUnauthorized)
		assert.Equal(t, "Only arbiter can release funds", got.Message())
		ledgertest.AssertErrInfoUnauthorized(t, got.AddInfo(), "0x01", "0x02")
	})

	t.Run("insufficient_funds", func(t *testing.T) {
		err := ledger.NewAPIErrInsufficientFunds(errors.New("low"), "0x01", "1 ETH", "2 ETH")
		got := transmit(t, err)
		ledgertest.AssertAPIError(t, got, ledger.ClientError, ledger.ErrInsufficientFunds, "low")
		assert.Equal(t, err.Message(), got.Message())
		ledgertest.AssertErrInfoInsufficientFunds(t, got.AddInfo(), "0x01", "1 ETH", "2 ETH")
	})

	t.Run("invalid_nonce", func(t *testing.T) {
		got := transmit(t, ledger.NewAPIErrInvalidNonce("0x01", 3, 1))
		ledgertest.AssertAPIError(t, got, ledger.ClientError, ledger.ErrInvalidNonce)
		ledgertest.AssertErrInfoInvalidNonce(t, got.AddInfo(), "0x01", 3, 1)
	})

	t.Run("resource_not_found", func(t *testing.T) {
		got := transmit(t, ledger.NewAPIErrResourceNotFound("escrow", "0x01"))
		ledgertest.AssertAPIError(t, got, ledger.ClientError, ledger.ErrResourceNotFound, "cannot find escrow")
		ledgertest.AssertErrInfoResourceNotFound(t, got.AddInfo(), "escrow", "0x01")
	})

	t.Run("storage_failure", func(t *testing.T) {
		got := transmit(t, ledger.NewAPIErrStorageFailure(errors.New("disk full"), "ReleaseFunds"))
		ledgertest.AssertAPIError(t, got, ledger.ProtocolFatalError, ledger.ErrStorageFailure, "disk full")
		ledgertest.AssertErrInfoStorageFailure(t, got.AddInfo(), "ReleaseFunds")
	})

	t.Run("failed_pre_condition", func(t *testing.T) {
		got := transmit(t, ledger.NewAPIErrFailedPreCondition(errors.New("already released")))
		ledgertest.AssertAPIError(t, got, ledger.ClientError, ledger.ErrFailedPreCondition, "already released")
		assert.Nil(t, got.AddInfo())
	})

	t.Run("missing_add_info", func(t *testing.T) {
		got := api.ToError(&api.Error{
			Category: ledger.ParticipantError,
			Code:     ledger.ErrUnauthorized,
			Message:  "Only arbiter can release funds",
		})
		ledgertest.AssertAPIError(t, got, ledger.InternalError, ledger.ErrUnknownInternal, "missing additional info")
	})

	t.Run("malformed_add_info", func(t *testing.T) {
		got := api.ToError(&api.Error{
			Category: ledger.ClientError,
			Code:     ledger.ErrInvalidNonce,
			AddInfo:  json.RawMessage(`{"Expected":"three"}`),
		})
		ledgertest.AssertAPIError(t, got, ledger.InternalError, ledger.ErrUnknownInternal)
	})
}

func Test_SigningPayload(t *testing.T) {
	params := []byte(`{"addr":"0x01"}`)
	payload := api.SigningPayload(api.MethodReleaseFunds, params, 1)

	assert.Len(t, payload, 32)
	assert.Equal(t, payload, api.SigningPayload(api.MethodReleaseFunds, params, 1))
	assert.NotEqual(t, payload, api.SigningPayload(api.MethodReleaseFunds, params, 2))
	assert.NotEqual(t, payload, api.SigningPayload(api.MethodGetEscrow, params, 1))
	assert.NotEqual(t, payload, api.SigningPayload(api.MethodReleaseFunds, []byte(`{"addr":"0x02"}`), 1))
}

func Test_Request_Sign(t *testing.T) {
	rng := rand.New(rand.NewSource(identitytest.RandSeedForTestAccs))
	signer := identitytest.NewKeySigners(t, rng, 1)[0]
	params := api.AddrParams{Addr: identitytest.NewRandomAddress(rng)}

	req, err := api.NewRequest(7, api.MethodReleaseFunds, params)
	require.NoError(t, err)
	require.NoError(t, req.Sign(signer, 5))

	assert.Equal(t, uint64(7), req.ID)
	assert.Equal(t, signer.Addr(), req.From)
	assert.Equal(t, uint64(5), req.Nonce)
	_, err = identity.Verify(api.SigningPayload(req.Method, req.Params, req.Nonce), req.Signature, signer.Addr())
	assert.NoError(t, err)

	t.Run("nil_params", func(t *testing.T) {
		req, err := api.NewRequest(1, api.MethodDeployGreetings, nil)
		require.NoError(t, err)
		assert.Nil(t, req.Params)
	})
}

func Test_EscrowInfo_Conversion(t *testing.T) {
	rng := rand.New(rand.NewSource(identitytest.RandSeedForTestAccs))
	info := ledger.EscrowInfo{
		Addr:          identitytest.NewRandomAddress(rng),
		Depositor:     identitytest.NewRandomAddress(rng),
		Beneficiary:   identitytest.NewRandomAddress(rng),
		Arbiter:       identitytest.NewRandomAddress(rng),
		Amount:        big.NewInt(1e18),
		FundsReleased: true,
	}
	data, err := json.Marshal(api.FromEscrowInfo(info))
	require.NoError(t, err)
	var got api.EscrowResult
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, info, api.ToEscrowInfo(got))
}

func Test_BigOrZero(t *testing.T) {
	assert.Equal(t, 0, api.BigOrZero(nil).Sign())
	assert.Equal(t, big.NewInt(10), api.BigOrZero((*hexutil.Big)(big.NewInt(10))))
}
