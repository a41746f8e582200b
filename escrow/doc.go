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

// Package escrow implements an escrow ledger that holds one deposit on behalf
// of a depositor. The deposit can be released only by a designated arbiter,
// only to a designated beneficiary and only once.
//
// An escrow ledger is in one of the two states: Held (initial) and Released
// (terminal). All operations on one ledger are serialized; independent
// ledgers need no coordination between them.
package escrow
