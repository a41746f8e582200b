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

package identitytest

import (
	"crypto/ecdsa"
	"io/ioutil"
	"math/rand"
	"os"
	"testing"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"

	"github.com/hyperledger-labs/ledger-node/identity"
)

// RandSeedForTestAccs is used as seed for random number generator that is used
// to create the test accounts, so that the same accounts are generated in
// every run.
const RandSeedForTestAccs = 1729

// KeystoreSetup holds a temporary keystore with accounts for testing. To enable
// faster unlocking of the keys, it uses weak encryption parameters for the
// storage encryption of the keys.
type KeystoreSetup struct {
	KeystorePath string
	Keystore     *keystore.KeyStore
	Accs         []accounts.Account
	Password     string
}

// NewKeystoreSetup initializes a keystore with n accounts in a temporary
// directory, that is removed when the test completes. Empty password string
// is used for all the accounts.
func NewKeystoreSetup(t *testing.T, rng *rand.Rand, n uint) *KeystoreSetup {
	ksPath, err := ioutil.TempDir("", "ledger-node-test-keystore-*")
	require.NoErrorf(t, err, "Error creating temp directory for keystore: %v", err)
	t.Cleanup(func() {
		if err := os.RemoveAll(ksPath); err != nil {
			t.Log("error in cleanup - ", err)
		}
	})
	ks, err := identity.NewKeystore(ksPath, true)
	require.NoError(t, err)

	accs := make([]accounts.Account, n)
	for i := range accs {
		accs[i], err = ks.ImportECDSA(NewRandomKey(t, rng), "")
		require.NoError(t, err)
	}
	return &KeystoreSetup{
		KeystorePath: ksPath,
		Keystore:     ks,
		Accs:         accs,
		Password:     "",
	}
}

// NewKeySigners initializes n signers with keys generated from the rng.
func NewKeySigners(t *testing.T, rng *rand.Rand, n uint) []*identity.KeySigner {
	signers := make([]*identity.KeySigner, n)
	for i := range signers {
		signers[i] = identity.NewKeySigner(NewRandomKey(t, rng))
	}
	return signers
}

// NewRandomKey generates a private key from the random source.
func NewRandomKey(t *testing.T, rng *rand.Rand) *ecdsa.PrivateKey {
	for {
		seed := make([]byte, 32)
		_, err := rng.Read(seed)
		require.NoError(t, err)
		key, err := crypto.ToECDSA(seed)
		if err == nil {
			return key
		}
	}
}

// NewRandomAddress generates a random address. It generates the address only as a byte array.
// Hence it does not generate any public or private keys corresponding to the address.
func NewRandomAddress(rng *rand.Rand) common.Address {
	var a common.Address
	rng.Read(a[:])
	return a
}
