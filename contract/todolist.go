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

package contract

import (
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"

	"github.com/hyperledger-labs/ledger-node"
	"github.com/hyperledger-labs/ledger-node/log"
)

var (
	// ErrEmptyContent is returned when creating a task without content.
	ErrEmptyContent = errors.New("task content should not be empty")

	// ErrTaskNotFound is returned when there is no task with the given ID.
	ErrTaskNotFound = errors.New("task not found")
)

// TodoListStore persists the state of todo list contracts.
type TodoListStore interface {
	PutTodoList(TodoListRecord) error
}

// TodoListRecord is a snapshot of the state of a todo list contract. Tasks
// are ordered by their ID.
type TodoListRecord struct {
	Addr  common.Address
	Owner common.Address
	Tasks []ledger.Task
}

// TodoList stores tasks that can be created and toggled by anyone. Task IDs
// are assigned sequentially starting from 1.
type TodoList struct {
	log.Logger

	mtx   sync.Mutex
	addr  common.Address
	owner common.Address
	tasks []ledger.Task

	store TodoListStore
}

// NewTodoList deploys an empty todo list contract at addr.
func NewTodoList(s TodoListStore, addr, owner common.Address) (*TodoList, error) {
	l := FromTodoListRecord(s, TodoListRecord{Addr: addr, Owner: owner})
	if err := l.persist(l.record()); err != nil {
		return nil, err
	}
	return l, nil
}

// FromTodoListRecord restores a todo list contract from its persisted state.
func FromTodoListRecord(s TodoListStore, r TodoListRecord) *TodoList {
	tasks := make([]ledger.Task, len(r.Tasks))
	copy(tasks, r.Tasks)
	return &TodoList{
		Logger: log.NewContractLogger(string(ledger.ContractTodoList), r.Addr),
		addr:   r.Addr,
		owner:  r.Owner,
		tasks:  tasks,
		store:  s,
	}
}

// CreateTask adds a new task with the given content and returns it.
func (l *TodoList) CreateTask(caller common.Address, content string) (ledger.Task, error) {
	if content == "" {
		return ledger.Task{}, errors.WithStack(ErrEmptyContent)
	}
	l.mtx.Lock()
	defer l.mtx.Unlock()

	task := ledger.Task{ID: uint64(len(l.tasks)) + 1, Content: content}
	updated := l.record()
	updated.Tasks = append(updated.Tasks, task)
	if err := l.persist(updated); err != nil {
		return ledger.Task{}, err
	}
	l.tasks = append(l.tasks, task)
	l.WithFields(log.Fields{"caller": caller.Hex(), "task": task.ID}).Debug("Task created")
	return task, nil
}

// ToggleCompleted flips the completed status of the task and returns the
// updated task.
func (l *TodoList) ToggleCompleted(caller common.Address, id uint64) (ledger.Task, error) {
	l.mtx.Lock()
	defer l.mtx.Unlock()

	if !l.has(id) {
		return ledger.Task{}, errors.Wrapf(ErrTaskNotFound, "id %d", id)
	}
	updated := l.record()
	updated.Tasks[id-1].Completed = !updated.Tasks[id-1].Completed
	if err := l.persist(updated); err != nil {
		return ledger.Task{}, err
	}
	l.tasks[id-1].Completed = updated.Tasks[id-1].Completed
	l.WithFields(log.Fields{"caller": caller.Hex(), "task": id}).Debug("Task toggled")
	return l.tasks[id-1], nil
}

// Task returns the task with the given ID.
func (l *TodoList) Task(id uint64) (ledger.Task, error) {
	l.mtx.Lock()
	defer l.mtx.Unlock()

	if !l.has(id) {
		return ledger.Task{}, errors.Wrapf(ErrTaskNotFound, "id %d", id)
	}
	return l.tasks[id-1], nil
}

// TaskCount returns the number of tasks created so far.
func (l *TodoList) TaskCount() uint64 {
	l.mtx.Lock()
	defer l.mtx.Unlock()
	return uint64(len(l.tasks))
}

// Tasks returns a copy of all the tasks ordered by ID.
func (l *TodoList) Tasks() []ledger.Task {
	l.mtx.Lock()
	defer l.mtx.Unlock()
	return l.record().Tasks
}

// Info returns the current state of the contract.
func (l *TodoList) Info() ledger.TodoListInfo {
	l.mtx.Lock()
	defer l.mtx.Unlock()
	return ledger.TodoListInfo{Addr: l.addr, Owner: l.owner, TaskCount: uint64(len(l.tasks))}
}

// Record returns a snapshot of the current state for persisting it.
func (l *TodoList) Record() TodoListRecord {
	l.mtx.Lock()
	defer l.mtx.Unlock()
	return l.record()
}

func (l *TodoList) has(id uint64) bool {
	return id >= 1 && id <= uint64(len(l.tasks))
}

func (l *TodoList) record() TodoListRecord {
	tasks := make([]ledger.Task, len(l.tasks))
	copy(tasks, l.tasks)
	return TodoListRecord{Addr: l.addr, Owner: l.owner, Tasks: tasks}
}

func (l *TodoList) persist(r TodoListRecord) error {
	if l.store == nil {
		return nil
	}
	return errors.WithMessage(l.store.PutTodoList(r), "persisting todo list")
}
