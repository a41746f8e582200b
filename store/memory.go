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
	"sync"

	"github.com/pkg/errors"
)

type memory struct {
	mtx     sync.RWMutex
	buckets map[string]map[string][]byte
	closed  bool
}

func newMemory() *memory {
	return &memory{buckets: make(map[string]map[string][]byte)}
}

func (m *memory) put(entries batch) error {
	m.mtx.Lock()
	defer m.mtx.Unlock()
	if m.closed {
		return errors.New("store closed")
	}

	for bucket, kvs := range entries {
		b, ok := m.buckets[bucket]
		if !ok {
			b = make(map[string][]byte)
			m.buckets[bucket] = b
		}
		for k, v := range kvs {
			b[k] = append([]byte{}, v...)
		}
	}
	return nil
}

func (m *memory) forEach(bucket string, fn func(k, v []byte) error) error {
	m.mtx.RLock()
	defer m.mtx.RUnlock()
	if m.closed {
		return errors.New("store closed")
	}

	b := m.buckets[bucket]
	for _, k := range sortedKeys(b) {
		if err := fn([]byte(k), b[k]); err != nil {
			return err
		}
	}
	return nil
}

func (m *memory) close() error {
	m.mtx.Lock()
	m.closed = true
	m.mtx.Unlock()
	return nil
}
