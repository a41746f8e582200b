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

package ledger

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// ContractType identifies the kind of contract hosted at an address on the node.
type ContractType string

// Enumeration of contract types that can be deployed on the node.
const (
	ContractEscrow    ContractType = "escrow"
	ContractGreetings ContractType = "greetings"
	ContractTodoList  ContractType = "todolist"
)

// Caller represents the authenticated identity invoking a state changing
// operation, along with the nonce of this invocation.
//
// The nonce should be equal to the number of state changing operations
// already invoked by this identity. It protects the signed requests against
// replays and is used for deriving the address of deployed contracts.
type Caller struct {
	Addr  common.Address
	Nonce uint64
}

// Bank represents the value transfer substrate of the node. It holds the
// balances of every identity (including the contracts) in base units.
type Bank interface {
	Balance(addr common.Address) *big.Int
	// Transfer moves amount between the addresses. The contract records, if
	// any, are persisted in the same write as the updated balances.
	Transfer(from, to common.Address, amount *big.Int, records ...interface{}) error
}

// BalanceStore persists the account balances held by a bank.
type BalanceStore interface {
	// PutBalances writes the balances and the contract records in a single
	// transaction.
	PutBalances(bals map[common.Address]*big.Int, records ...interface{}) error
	Balances() (map[common.Address]*big.Int, error)
}

// Currency represents a parser that can convert between string representation of a currency and
// its equivalent value in base unit represented as a big integer.
type Currency interface {
	Parse(string) (*big.Int, error)
	Print(*big.Int) string
	Symbol() string
}

// CurrencyRegistry provides an interface to register and retrieve currency
// parsers.
type CurrencyRegistry interface {
	ROCurrencyRegistry
	Register(symbol string, maxDecimals uint8) (Currency, error)
}

// ROCurrencyRegistry provides an interface to retrieve currency parsers.
type ROCurrencyRegistry interface {
	IsRegistered(symbol string) bool
	Currency(symbol string) Currency
	Symbols() []string
}

// Contact represents any identity known to the user by an alias.
type Contact struct {
	// Name assigned by user for referring to this identity.
	Alias string `yaml:"alias"`

	// Address of the identity.
	Addr common.Address `yaml:"-"`
	// This field holds the string value of address for easy marshaling / unmarshaling.
	AddrString string `yaml:"address"`
}

// OwnAlias is the alias for the entry of the user's own identity in the contacts.
const OwnAlias = "self"

// ContactsReader represents the functions to read contacts from a cache
// connected to a contacts provider.
type ContactsReader interface {
	ReadByAlias(alias string) (c Contact, contains bool)
	ReadByAddr(addr common.Address) (c Contact, contains bool)
}

// Contacts represents the functions to read and modify the contacts. The
// changes are written to the storage only when UpdateStorage is called.
type Contacts interface {
	ContactsReader
	Write(alias string, c Contact) error
	Delete(alias string) error
	UpdateStorage() error
}

// NodeConfig represents the configurable parameters of a ledger node.
type NodeConfig struct {
	LogLevel    string // LogLevel represents the log level for the node and all derived loggers.
	LogFile     string // LogFile represents the file to write logs. Empty string represents stdout.
	DatabaseDir string // Directory for the persistence database. Empty string keeps state in memory.

	TCPAddr         string        // Address for the framed TCP API. Empty string disables it.
	WebSocketAddr   string        // Address for the websocket API. Empty string disables it.
	MaxConns        int           // Max number of simultaneous connections per API server.
	ResponseTimeout time.Duration // Timeout for writing a response.

	Currency string // Currency symbol used for interpreting amounts in Accounts.

	// Initial balances (as decimal strings in units of Currency) indexed by
	// address. These are applied only when the node starts with an empty database.
	Accounts map[string]string
}

// EscrowInfo represents the state of an escrow contract that will be sent to the user.
type EscrowInfo struct {
	Addr          common.Address
	Depositor     common.Address
	Beneficiary   common.Address
	Arbiter       common.Address
	Amount        *big.Int
	FundsReleased bool
}

// GreetingsInfo represents the state of a greetings contract.
type GreetingsInfo struct {
	Addr     common.Address
	Owner    common.Address
	Greeting string
}

// TodoListInfo represents the state of a todo list contract.
type TodoListInfo struct {
	Addr      common.Address
	Owner     common.Address
	TaskCount uint64
}

// Task represents an entry in a todo list contract.
type Task struct {
	ID        uint64
	Content   string
	Completed bool
}

// ContractInfo represents the address and type of a contract deployed on the node.
type ContractInfo struct {
	Addr     common.Address
	Type     ContractType
	Deployer common.Address
}

// NodeAPI represents the APIs that can be accessed in the context of a ledger node.
//
// Each state changing operation takes the authenticated Caller. The identity
// in it is expected to have been verified by the API layer.
type NodeAPI interface {
	Time() int64
	GetConfig() NodeConfig
	Help() []string

	Balance(addr common.Address) *big.Int
	Nonce(addr common.Address) uint64
	Contracts() []ContractInfo

	DeployEscrow(c Caller, beneficiary, arbiter common.Address, amount *big.Int) (EscrowInfo, APIError)
	GetEscrow(addr common.Address) (EscrowInfo, APIError)
	ReleaseFunds(c Caller, addr common.Address) (EscrowInfo, APIError)

	DeployGreetings(c Caller) (GreetingsInfo, APIError)
	Greet(addr common.Address) (GreetingsInfo, APIError)
	SetGreeting(c Caller, addr common.Address, greeting string) (GreetingsInfo, APIError)

	DeployTodoList(c Caller) (TodoListInfo, APIError)
	CreateTask(c Caller, addr common.Address, content string) (Task, APIError)
	ToggleCompleted(c Caller, addr common.Address, id uint64) (Task, APIError)
	GetTask(addr common.Address, id uint64) (Task, APIError)

	Close() error
}

// APIError represents the error returned by the node APIs.
//
// Along with the error message, this error type assigns to each error
// an error category that describes how the error should be handled,
// an error code that identifies specific types of error and
// additional info that contains data related to the error as key value pairs.
type APIError interface {
	Category() ErrorCategory
	Code() ErrorCode
	Message() string
	AddInfo() interface{}
	Error() string
}

// ErrorCategory represents the category of the error, which describes how the
// error should be handled by the client.
type ErrorCategory int

const (
	// ParticipantError is caused by one of the parties to a contract
	// invoking an operation it is not entitled to.
	//
	// To resolve this, the request should be sent by the identity that is
	// allowed to invoke it. Retrying with the same identity will not help.
	ParticipantError ErrorCategory = iota

	// ClientError is caused by the errors in the request from the client. It
	// could be errors in arguments, in the state of the contract or the
	// account or errors in configuration provided by the client.
	//
	// To resolve this, the client should provide valid arguments, provide
	// correct configuration or wait for the state to change; and then retry.
	ClientError

	// ProtocolFatalError is caused when an operation aborts due to unexpected
	// failure in an external system during execution, such as the persistence
	// database.
	//
	// To resolve this, user should manually inspect the error message and
	// handle it.
	ProtocolFatalError
	// InternalError is caused due to unintended behavior in the node software.
	//
	// To resolve this, user should manually inspect the error message and
	// handle it.
	InternalError
)

// String implements the stringer interface for ErrorCategory.
func (c ErrorCategory) String() string {
	return [...]string{
		"Participant",
		"Client",
		"Protocol Fatal",
		"Internal",
	}[c]
}

// ErrorCode is a numeric code assigned to identify the specific type of error.
// The keys in the additional field is fixed for each error code.
type ErrorCode int

// Error code definitions.
const (
	ErrUnauthorized       ErrorCode = 101
	ErrInsufficientFunds  ErrorCode = 102
	ErrInvalidSignature   ErrorCode = 103
	ErrResourceNotFound   ErrorCode = 201
	ErrResourceExists     ErrorCode = 202
	ErrInvalidArgument    ErrorCode = 203
	ErrFailedPreCondition ErrorCode = 204
	ErrInvalidConfig      ErrorCode = 205
	ErrInvalidNonce       ErrorCode = 206
	ErrStorageFailure     ErrorCode = 301
	ErrUnknownInternal    ErrorCode = 401
)

type (
	// ErrInfoUnauthorized represents the fields in the additional info for
	// ErrUnauthorized.
	ErrInfoUnauthorized struct {
		Caller   string
		Required string
	}

	// ErrInfoInsufficientFunds represents the fields in the additional info
	// for ErrInsufficientFunds.
	ErrInfoInsufficientFunds struct {
		Account  string
		Balance  string
		Required string
	}

	// ErrInfoInvalidSignature represents the fields in the additional info
	// for ErrInvalidSignature.
	ErrInfoInvalidSignature struct {
		Claimed   string
		Recovered string
	}

	// ErrInfoResourceNotFound represents the fields in the additional info for
	// ErrResourceNotFound.
	ErrInfoResourceNotFound struct {
		Type string
		ID   string
	}

	// ErrInfoResourceExists represents the fields in the additional info for
	// ErrResourceExists.
	ErrInfoResourceExists struct {
		Type string
		ID   string
	}

	// ErrInfoInvalidArgument represents the fields in the additional info for
	// ErrInvalidArgument.
	ErrInfoInvalidArgument struct {
		Name        string
		Value       string
		Requirement string
	}

	// ErrInfoInvalidConfig represents the fields in the additional info for
	// ErrInfoInvalidConfig.
	ErrInfoInvalidConfig struct {
		Name  string
		Value string
	}

	// ErrInfoInvalidNonce represents the fields in the additional info for
	// ErrInvalidNonce.
	ErrInfoInvalidNonce struct {
		Addr     string
		Expected uint64
		Received uint64
	}

	// ErrInfoStorageFailure represents the fields in the additional info
	// for ErrStorageFailure.
	ErrInfoStorageFailure struct {
		Operation string
	}
)
