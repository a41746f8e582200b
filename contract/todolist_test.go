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

package contract_test

import (
	"math/rand"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperledger-labs/ledger-node"
	"github.com/hyperledger-labs/ledger-node/contract"
	"github.com/hyperledger-labs/ledger-node/identity/identitytest"
)

type todoListStore struct {
	records []contract.TodoListRecord
	err     error
}

func (s *todoListStore) PutTodoList(r contract.TodoListRecord) error {
	if s.err != nil {
		return s.err
	}
	s.records = append(s.records, r)
	return nil
}

func Test_TodoList(t *testing.T) {
	rng := rand.New(rand.NewSource(identitytest.RandSeedForTestAccs))
	addr, owner := identitytest.NewRandomAddress(rng), identitytest.NewRandomAddress(rng)

	t.Run("happy", func(t *testing.T) {
		s := &todoListStore{}
		l, err := contract.NewTodoList(s, addr, owner)
		require.NoError(t, err)
		assert.Zero(t, l.TaskCount())

		task1, err := l.CreateTask(owner, "deploy escrow")
		require.NoError(t, err)
		assert.Equal(t, ledger.Task{ID: 1, Content: "deploy escrow"}, task1)
		task2, err := l.CreateTask(owner, "release funds")
		require.NoError(t, err)
		assert.Equal(t, uint64(2), task2.ID)
		assert.Equal(t, uint64(2), l.TaskCount())

		toggled, err := l.ToggleCompleted(owner, 1)
		require.NoError(t, err)
		assert.True(t, toggled.Completed)
		got, err := l.Task(1)
		require.NoError(t, err)
		assert.True(t, got.Completed)

		toggled, err = l.ToggleCompleted(owner, 1)
		require.NoError(t, err)
		assert.False(t, toggled.Completed)

		assert.Equal(t, []ledger.Task{task1, task2}, l.Tasks())
		assert.Equal(t, ledger.TodoListInfo{Addr: addr, Owner: owner, TaskCount: 2}, l.Info())
		assert.Equal(t, l.Record(), s.records[len(s.records)-1])
	})

	t.Run("restore", func(t *testing.T) {
		tasks := []ledger.Task{{ID: 1, Content: "a", Completed: true}}
		l := contract.FromTodoListRecord(nil, contract.TodoListRecord{Addr: addr, Owner: owner, Tasks: tasks})
		tasks[0].Content = "modified"

		got, err := l.Task(1)
		require.NoError(t, err)
		assert.Equal(t, "a", got.Content)
		next, err := l.CreateTask(owner, "b")
		require.NoError(t, err)
		assert.Equal(t, uint64(2), next.ID)
	})

	t.Run("tasks_returns_copy", func(t *testing.T) {
		l, err := contract.NewTodoList(nil, addr, owner)
		require.NoError(t, err)
		_, err = l.CreateTask(owner, "a")
		require.NoError(t, err)
		l.Tasks()[0].Content = "modified"
		got, err := l.Task(1)
		require.NoError(t, err)
		assert.Equal(t, "a", got.Content)
	})

	t.Run("err_empty_content", func(t *testing.T) {
		l, err := contract.NewTodoList(nil, addr, owner)
		require.NoError(t, err)
		_, err = l.CreateTask(owner, "")
		assert.True(t, errors.Is(err, contract.ErrEmptyContent))
	})

	t.Run("err_task_not_found", func(t *testing.T) {
		l, err := contract.NewTodoList(nil, addr, owner)
		require.NoError(t, err)
		_, err = l.CreateTask(owner, "a")
		require.NoError(t, err)

		for _, id := range []uint64{0, 2, 100} {
			_, err = l.ToggleCompleted(owner, id)
			assert.True(t, errors.Is(err, contract.ErrTaskNotFound))
			_, err = l.Task(id)
			assert.True(t, errors.Is(err, contract.ErrTaskNotFound))
		}
	})

	t.Run("err_persist", func(t *testing.T) {
		s := &todoListStore{}
		l, err := contract.NewTodoList(s, addr, owner)
		require.NoError(t, err)
		_, err = l.CreateTask(owner, "a")
		require.NoError(t, err)

		s.err = errors.New("disk full")
		_, err = l.CreateTask(owner, "b")
		require.Error(t, err)
		_, err = l.ToggleCompleted(owner, 1)
		require.Error(t, err)

		assert.Equal(t, uint64(1), l.TaskCount())
		got, err := l.Task(1)
		require.NoError(t, err)
		assert.False(t, got.Completed)
	})
}
