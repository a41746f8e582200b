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

// Package log provides the structured logger used across the ledger node.
// All loggers are derived from a single package level instance, so that
// the level and the output configured at startup apply everywhere.
package log

import (
	"os"
	"path/filepath"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// logger is the instance from which every logger of the node is derived.
var logger *logrus.Logger

// Logger is the logging interface used by the node, its contracts and its
// API servers.
type Logger = logrus.FieldLogger

// Fields holds the fields attached to each entry of a Logger.
type Fields = logrus.Fields

// InitLogger configures the package level instance with the level and the
// log file. Entries go to stdout if logFile is empty.
//
// It can be called only once per process, later calls return an error.
func InitLogger(levelStr, logFile string) error {
	if logger != nil {
		return errors.New("logger already initialized")
	}

	level, err := logrus.ParseLevel(levelStr)
	if err != nil {
		return errors.WithStack(err)
	}
	newLogger := logrus.New()
	newLogger.SetLevel(level)
	if logFile == "" {
		newLogger.SetOutput(os.Stdout)
	} else {
		f, err := os.OpenFile(filepath.Clean(logFile), os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0o600)
		if err != nil {
			return errors.WithStack(err)
		}
		newLogger.SetOutput(f)
	}

	newLogger.SetFormatter(&customTextFormatter{logrus.TextFormatter{
		FullTimestamp:          true,
		TimestampFormat:        "2006-01-02 15:04:05 Z0700",
		DisableLevelTruncation: true,
	}})
	logger = newLogger
	return nil
}

// NewLoggerWithField returns a logger that adds the field to every entry.
//
// If InitLogger was not called before, the package level instance is
// initialized to log at debug level to stdout.
func NewLoggerWithField(key string, value interface{}) Logger {
	return NewLoggerWithFields(Fields{key: value})
}

// NewLoggerWithFields is same as NewLoggerWithField, but adds more than one
// field to each log entry.
func NewLoggerWithFields(fields Fields) Logger {
	if logger == nil {
		InitLogger("debug", "") // nolint: errcheck, gosec	// err will always be nil in this case.
	}
	return logger.WithFields(fields)
}

// NewContractLogger returns the logger for a contract instance. Entries
// carry the contract kind as key and its address in hex as value, for
// example escrow=0x5a3c...
func NewContractLogger(kind string, addr common.Address) Logger {
	return NewLoggerWithField(kind, addr.Hex())
}

// NewDerivedLoggerWithField returns a child of parentLogger that adds the
// field to every entry.
//
// Panics if parent logger is nil.
func NewDerivedLoggerWithField(parentLogger Logger, key string, value interface{}) Logger {
	if parentLogger == nil {
		panic("parent logger should not be nil")
	}
	return parentLogger.WithField(key, value)
}

// customTextFormatter prefixes each entry of the text formatter with a marker.
type customTextFormatter struct {
	logrus.TextFormatter
}

// Format prefixes the entry formatted by the text formatter with "▶ ".
func (f *customTextFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	originalText, err := f.TextFormatter.Format(entry)
	return append([]byte("▶ "), originalText...), err
}
