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

// Package identity implements the signing and verification of requests sent
// to the ledger node, using ethereum accounts as identities.
//
// Signatures are made over the ethereum text hash of the data (personal sign
// format) and are in [R | S | V] format with V = 27/28, so that signatures
// produced by ethereum wallets can be verified by the node.
package identity

import (
	"crypto/ecdsa"
	"math/big"
	"os"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"
)

// Standard encryption parameters should be uses for real keystores. Using these parameters will
// cause the decryption to use 256MB of RAM and takes approx 1s on a modern processor.
//
// Weak encryption parameters should be used for test keystores. Using these parameters will
// cause the keys to be decrypted and unlocked faster.
const (
	StandardScryptN = keystore.StandardScryptN
	StandardScryptP = keystore.StandardScryptP
	WeakScryptN     = 2
	WeakScryptP     = 1
)

// sigLen is the length of a signature in [R | S | V] format.
const sigLen = 65

// Signer signs data on behalf of an identity.
type Signer interface {
	Addr() common.Address
	Sign(data []byte) ([]byte, error)
}

// ParseAddr parses the ethereum address from the given string. It should be the hexadecimal
// representation of the address, optionally prefixed by "0x".
// It can be all upper or all lower or mixed case. All of them will produce identical
// result.
//
// Zero address is not a valid identity and is rejected.
func ParseAddr(str string) (common.Address, error) {
	if !common.IsHexAddress(str) {
		return common.Address{}, errors.Errorf("parsing address: %q is not a hex address", str)
	}
	addr := common.HexToAddress(str)
	if addr == (common.Address{}) {
		return common.Address{}, errors.New("parsing address: zero address is not allowed")
	}
	return addr, nil
}

// Recover returns the address of the identity that made the signature over
// the given data.
func Recover(data, sig []byte) (common.Address, error) {
	if len(sig) != sigLen {
		return common.Address{}, errors.Errorf("invalid signature length %d, want %d", len(sig), sigLen)
	}
	if sig[64] != 27 && sig[64] != 28 {
		return common.Address{}, errors.New("invalid signature, V is not 27 or 28")
	}
	sigCopy := make([]byte, sigLen)
	copy(sigCopy, sig)
	sigCopy[64] -= 27 // Transform V from 27/28 to 0/1 as required by SigToPub.

	pubKey, err := crypto.SigToPub(accounts.TextHash(data), sigCopy)
	if err != nil {
		return common.Address{}, errors.Wrap(err, "recovering public key")
	}
	return crypto.PubkeyToAddress(*pubKey), nil
}

// Verify checks if the signature over the given data was made by addr. It
// returns the recovered address along with the error, if one could be
// recovered.
func Verify(data, sig []byte, addr common.Address) (common.Address, error) {
	recovered, err := Recover(data, sig)
	if err != nil {
		return common.Address{}, err
	}
	if recovered != addr {
		return recovered, errors.Errorf("signature made by %s", recovered.Hex())
	}
	return recovered, nil
}

// KeySigner signs using a private key held in memory.
type KeySigner struct {
	key *ecdsa.PrivateKey
}

// NewKeySigner returns a signer for the given private key.
func NewKeySigner(key *ecdsa.PrivateKey) *KeySigner {
	return &KeySigner{key: key}
}

// Addr returns the address corresponding to the private key.
func (s *KeySigner) Addr() common.Address {
	return crypto.PubkeyToAddress(s.key.PublicKey)
}

// Sign signs the text hash of data.
func (s *KeySigner) Sign(data []byte) ([]byte, error) {
	sig, err := crypto.Sign(accounts.TextHash(data), s.key)
	if err != nil {
		return nil, errors.Wrap(err, "signing data")
	}
	sig[64] += 27 // Transform V from 0/1 to 27/28 according to the yellow paper
	return sig, nil
}

// KeystoreSigner signs using an account stored in an ethereum keystore. The
// account is unlocked when the signer is initialized.
type KeystoreSigner struct {
	ks  *keystore.KeyStore
	acc accounts.Account
}

// NewKeystoreSigner finds the account for addr in the keystore, unlocks it
// with the password and returns a signer for it.
func NewKeystoreSigner(ks *keystore.KeyStore, addr common.Address, password string) (*KeystoreSigner, error) {
	acc, err := ks.Find(accounts.Account{Address: addr})
	if err != nil {
		return nil, errors.Wrap(err, "finding account in keystore")
	}
	if err = ks.Unlock(acc, password); err != nil {
		return nil, errors.Wrap(err, "unlocking account")
	}
	return &KeystoreSigner{ks: ks, acc: acc}, nil
}

// Addr returns the address of the account.
func (s *KeystoreSigner) Addr() common.Address {
	return s.acc.Address
}

// Sign signs the text hash of data.
func (s *KeystoreSigner) Sign(data []byte) ([]byte, error) {
	sig, err := s.ks.SignHash(s.acc, accounts.TextHash(data))
	if err != nil {
		return nil, errors.Wrap(err, "signing data")
	}
	sig[64] += 27 // Transform V from 0/1 to 27/28 according to the yellow paper
	return sig, nil
}

// NewKeystore initializes an ethereum keystore at the given directory.
// Weak encryption parameters are used for new keys when weak is true, this
// should be done only for testing.
func NewKeystore(dir string, weak bool) (*keystore.KeyStore, error) {
	if _, err := os.Stat(dir); err != nil {
		return nil, errors.Wrap(err, "initializing keystore, cannot find keystore directory")
	}
	if weak {
		return keystore.NewKeyStore(dir, WeakScryptN, WeakScryptP), nil
	}
	return keystore.NewKeyStore(dir, StandardScryptN, StandardScryptP), nil
}

// DeriveKey deterministically derives a private key from the seed and index.
// It is intended for generating demo and test accounts and must not be used
// for real funds.
func DeriveKey(seed string, index int) (*ecdsa.PrivateKey, error) {
	material := crypto.Keccak256([]byte(seed), big32(index))
	key, err := crypto.ToECDSA(material)
	return key, errors.Wrap(err, "deriving key")
}

func big32(i int) []byte {
	return common.LeftPadBytes(big.NewInt(int64(i)).Bytes(), 32)
}
