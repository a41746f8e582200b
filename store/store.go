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

// Package store persists the state of the ledger node: balances, nonces and
// the contracts deployed on it. Records are encoded in RLP and written either
// to a bolt database on disk or to an in-memory map.
package store

import (
	"math/big"
	"sort"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/pkg/errors"

	"github.com/hyperledger-labs/ledger-node/contract"
	"github.com/hyperledger-labs/ledger-node/escrow"
)

// Names of the buckets used for each type of record.
const (
	balancesBucket  = "balances"
	noncesBucket    = "nonces"
	escrowsBucket   = "escrows"
	greetingsBucket = "greetings"
	todoListsBucket = "todolists"
)

// Error is returned when reading from or writing to the underlying database
// fails.
type Error struct {
	Op  string
	Err error
}

func (e Error) Error() string { return e.Op + ": " + e.Err.Error() }

// Unwrap returns the error from the database.
func (e Error) Unwrap() error { return e.Err }

// batch holds the entries to be written, grouped by bucket.
type batch map[string]map[string][]byte

func (b batch) add(bucket string, addr common.Address, v []byte) {
	if b[bucket] == nil {
		b[bucket] = make(map[string][]byte)
	}
	b[bucket][string(addr.Bytes())] = v
}

// backend is a key value database with named buckets.
type backend interface {
	// put writes all the entries of the batch in one transaction.
	put(b batch) error
	// forEach calls fn for each entry in the bucket, ordered by key.
	forEach(bucket string, fn func(k, v []byte) error) error
	close() error
}

// Store reads and writes the records of the ledger node.
type Store struct {
	db backend
}

// NewMemory returns a store that holds the records in memory. It is used
// when the node is not configured with a database directory.
func NewMemory() *Store {
	return &Store{db: newMemory()}
}

// PutBalances writes the balances of all the given addresses and the
// contract records in one transaction. Either all of them are written or none.
//
// Supported records are escrow.Record, contract.GreetingsRecord and
// contract.TodoListRecord.
func (s *Store) PutBalances(bals map[common.Address]*big.Int, records ...interface{}) error {
	b := make(batch)
	for addr, bal := range bals {
		v, err := rlp.EncodeToBytes(bal)
		if err != nil {
			return errors.WithStack(Error{"encoding balance", err})
		}
		b.add(balancesBucket, addr, v)
	}
	for _, r := range records {
		if err := b.addRecord(r); err != nil {
			return err
		}
	}
	return wrap("writing balances", s.db.put(b))
}

// Balances returns all the persisted balances.
func (s *Store) Balances() (map[common.Address]*big.Int, error) {
	bals := make(map[common.Address]*big.Int)
	err := s.db.forEach(balancesBucket, func(k, v []byte) error {
		bal := new(big.Int)
		if err := rlp.DecodeBytes(v, bal); err != nil {
			return err
		}
		bals[common.BytesToAddress(k)] = bal
		return nil
	})
	return bals, wrap("reading balances", err)
}

// PutNonce writes the nonce of the address.
func (s *Store) PutNonce(addr common.Address, nonce uint64) error {
	v, err := rlp.EncodeToBytes(nonce)
	if err != nil {
		return Error{"encoding nonce", err}
	}
	b := make(batch)
	b.add(noncesBucket, addr, v)
	return wrap("writing nonce", s.db.put(b))
}

// Nonces returns the persisted nonces of all the addresses.
func (s *Store) Nonces() (map[common.Address]uint64, error) {
	nonces := make(map[common.Address]uint64)
	err := s.db.forEach(noncesBucket, func(k, v []byte) error {
		var nonce uint64
		if err := rlp.DecodeBytes(v, &nonce); err != nil {
			return err
		}
		nonces[common.BytesToAddress(k)] = nonce
		return nil
	})
	return nonces, wrap("reading nonces", err)
}

// PutEscrow writes the state of an escrow ledger.
func (s *Store) PutEscrow(r escrow.Record) error {
	return s.putRecord(r)
}

// Escrows returns the persisted state of all escrow ledgers.
func (s *Store) Escrows() ([]escrow.Record, error) {
	var records []escrow.Record
	err := s.db.forEach(escrowsBucket, func(_, v []byte) error {
		var r escrow.Record
		if err := rlp.DecodeBytes(v, &r); err != nil {
			return err
		}
		records = append(records, r)
		return nil
	})
	return records, wrap("reading escrows", err)
}

// PutGreetings writes the state of a greetings contract.
func (s *Store) PutGreetings(r contract.GreetingsRecord) error {
	return s.putRecord(r)
}

// Greetings returns the persisted state of all greetings contracts.
func (s *Store) Greetings() ([]contract.GreetingsRecord, error) {
	var records []contract.GreetingsRecord
	err := s.db.forEach(greetingsBucket, func(_, v []byte) error {
		var r contract.GreetingsRecord
		if err := rlp.DecodeBytes(v, &r); err != nil {
			return err
		}
		records = append(records, r)
		return nil
	})
	return records, wrap("reading greetings", err)
}

// PutTodoList writes the state of a todo list contract.
func (s *Store) PutTodoList(r contract.TodoListRecord) error {
	return s.putRecord(r)
}

// TodoLists returns the persisted state of all todo list contracts.
func (s *Store) TodoLists() ([]contract.TodoListRecord, error) {
	var records []contract.TodoListRecord
	err := s.db.forEach(todoListsBucket, func(_, v []byte) error {
		var r contract.TodoListRecord
		if err := rlp.DecodeBytes(v, &r); err != nil {
			return err
		}
		records = append(records, r)
		return nil
	})
	return records, wrap("reading todo lists", err)
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return wrap("closing database", s.db.close())
}

func (s *Store) putRecord(record interface{}) error {
	b := make(batch)
	if err := b.addRecord(record); err != nil {
		return err
	}
	return wrap("writing records", s.db.put(b))
}

// addRecord encodes the contract record into the bucket for its type.
func (b batch) addRecord(record interface{}) error {
	var bucket string
	var addr common.Address
	switch r := record.(type) {
	case escrow.Record:
		bucket, addr = escrowsBucket, r.Addr
	case contract.GreetingsRecord:
		bucket, addr = greetingsBucket, r.Addr
	case contract.TodoListRecord:
		bucket, addr = todoListsBucket, r.Addr
	default:
		return errors.WithStack(Error{"encoding record", errors.Errorf("unsupported record type %T", record)})
	}
	v, err := rlp.EncodeToBytes(record)
	if err != nil {
		return errors.WithStack(Error{"encoding " + bucket, err})
	}
	b.add(bucket, addr, v)
	return nil
}

func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return errors.WithStack(Error{op, err})
}

func sortedKeys(m map[string][]byte) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedBuckets(b batch) []string {
	buckets := make([]string, 0, len(b))
	for bucket := range b {
		buckets = append(buckets, bucket)
	}
	sort.Strings(buckets)
	return buckets
}
