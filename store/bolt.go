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

package store

import (
	"os"
	"path/filepath"
	"time"

	"github.com/boltdb/bolt"
	"github.com/pkg/errors"
)

// DBFile is the name of the database file created in the database directory.
const DBFile = "ledger.db"

// openTimeout is the time to wait for acquiring the lock on the database
// file, that is held by another process using it.
const openTimeout = time.Second

type boltDB struct {
	db *bolt.DB
}

// OpenBolt opens (and creates, if it does not exist) the bolt database in the
// given directory and returns a store that persists the records in it.
func OpenBolt(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, errors.WithStack(Error{"creating database directory", err})
	}
	db, err := bolt.Open(filepath.Join(filepath.Clean(dir), DBFile), 0o600, &bolt.Options{Timeout: openTimeout})
	if err != nil {
		return nil, errors.WithStack(Error{"opening database", err})
	}
	return &Store{db: &boltDB{db: db}}, nil
}

// put writes the batch in a single read-write transaction. If any write
// fails the transaction is rolled back.
func (b *boltDB) put(entries batch) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range sortedBuckets(entries) {
			bkt, err := tx.CreateBucketIfNotExists([]byte(bucket))
			if err != nil {
				return err
			}
			for _, k := range sortedKeys(entries[bucket]) {
				if err := bkt.Put([]byte(k), entries[bucket][k]); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

func (b *boltDB) forEach(bucket string, fn func(k, v []byte) error) error {
	return b.db.View(func(tx *bolt.Tx) error {
		bkt := tx.Bucket([]byte(bucket))
		if bkt == nil {
			return nil
		}
		return bkt.ForEach(fn)
	})
}

func (b *boltDB) close() error {
	return b.db.Close()
}
