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

package ledgertest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperledger-labs/ledger-node"
)

// AssertAPIError tests if the passed error contains expected category, code
// and phrases in the message.
func AssertAPIError(t *testing.T, e ledger.APIError, categ ledger.ErrorCategory, code ledger.ErrorCode, msgs ...string) {
	t.Helper()

	require.Error(t, e)
	assert.Equal(t, categ, e.Category())
	assert.Equal(t, code, e.Code())
	for _, msg := range msgs {
		assert.Contains(t, e.Message(), msg)
	}
}

// AssertErrInfoUnauthorized tests if additional info field is of
// correct type and has expected values.
func AssertErrInfoUnauthorized(t *testing.T, info interface{}, caller, required string) {
	t.Helper()

	addInfo, ok := info.(ledger.ErrInfoUnauthorized)
	require.True(t, ok)
	assert.Equal(t, caller, addInfo.Caller)
	assert.Equal(t, required, addInfo.Required)
}

// AssertErrInfoInsufficientFunds tests if additional info field is of
// correct type and has expected values.
func AssertErrInfoInsufficientFunds(t *testing.T, info interface{}, account, balance, required string) {
	t.Helper()

	addInfo, ok := info.(ledger.ErrInfoInsufficientFunds)
	require.True(t, ok)
	assert.Equal(t, account, addInfo.Account)
	assert.Equal(t, balance, addInfo.Balance)
	assert.Equal(t, required, addInfo.Required)
}

// AssertErrInfoInvalidSignature tests if additional info field is of
// correct type and has expected values.
func AssertErrInfoInvalidSignature(t *testing.T, info interface{}, claimed string) {
	t.Helper()

	addInfo, ok := info.(ledger.ErrInfoInvalidSignature)
	require.True(t, ok)
	assert.Equal(t, claimed, addInfo.Claimed)
	assert.NotEqual(t, claimed, addInfo.Recovered)
}

// AssertErrInfoResourceNotFound tests if additional info field is of
// correct type and has expected values.
func AssertErrInfoResourceNotFound(t *testing.T, info interface{}, resourceType ledger.ResourceType, id string) {
	t.Helper()

	addInfo, ok := info.(ledger.ErrInfoResourceNotFound)
	require.True(t, ok)
	assert.Equal(t, string(resourceType), addInfo.Type)
	assert.Equal(t, id, addInfo.ID)
}

// AssertErrInfoResourceExists tests if additional info field is of
// correct type and has expected values.
func AssertErrInfoResourceExists(t *testing.T, info interface{}, resourceType ledger.ResourceType, id string) {
	t.Helper()

	addInfo, ok := info.(ledger.ErrInfoResourceExists)
	require.True(t, ok)
	assert.Equal(t, string(resourceType), addInfo.Type)
	assert.Equal(t, id, addInfo.ID)
}

// AssertErrInfoInvalidArgument tests if additional info field is of
// correct type and has expected values.
func AssertErrInfoInvalidArgument(t *testing.T, info interface{}, name ledger.ArgumentName, value string) {
	t.Helper()

	addInfo, ok := info.(ledger.ErrInfoInvalidArgument)
	require.True(t, ok)
	assert.Equal(t, string(name), addInfo.Name)
	assert.Equal(t, value, addInfo.Value)
	t.Log("requirement:", addInfo.Requirement)
}

// AssertErrInfoInvalidConfig tests if additional info field is of
// correct type and has expected values.
func AssertErrInfoInvalidConfig(t *testing.T, info interface{}, name, value string) {
	t.Helper()

	addInfo, ok := info.(ledger.ErrInfoInvalidConfig)
	require.True(t, ok)
	assert.Equal(t, name, addInfo.Name)
	assert.Equal(t, value, addInfo.Value)
}

// AssertErrInfoInvalidNonce tests if additional info field is of
// correct type and has expected values.
func AssertErrInfoInvalidNonce(t *testing.T, info interface{}, addr string, expected, received uint64) {
	t.Helper()

	addInfo, ok := info.(ledger.ErrInfoInvalidNonce)
	require.True(t, ok)
	assert.Equal(t, addr, addInfo.Addr)
	assert.Equal(t, expected, addInfo.Expected)
	assert.Equal(t, received, addInfo.Received)
}

// AssertErrInfoStorageFailure tests if additional info field is of
// correct type and has expected values.
func AssertErrInfoStorageFailure(t *testing.T, info interface{}, operation string) {
	t.Helper()

	addInfo, ok := info.(ledger.ErrInfoStorageFailure)
	require.True(t, ok)
	assert.Equal(t, operation, addInfo.Operation)
}
