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

package contactstest

import (
	"io/ioutil"
	"os"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/hyperledger-labs/ledger-node"
)

// NewContact returns a contact with the given alias and address.
func NewContact(alias string, addr common.Address) ledger.Contact {
	return ledger.Contact{
		Alias:      alias,
		Addr:       addr,
		AddrString: addr.Hex(),
	}
}

// NewYAMLFile creates a temporary file containing the details of given contacts and
// returns the path to it. It also registers a cleanup function on the passed test handler.
func NewYAMLFile(t *testing.T, contacts ...ledger.Contact) string {
	tempFile, err := ioutil.TempFile("", "*.yaml")
	require.NoError(t, err)
	defer func() {
		require.NoErrorf(t, tempFile.Close(), "closing temporary file")
	}()
	t.Cleanup(func() {
		if err = os.Remove(tempFile.Name()); err != nil {
			t.Log("Error in test cleanup: removing file - " + tempFile.Name())
		}
	})
	contactsByAlias := make(map[string]ledger.Contact, len(contacts))
	for _, contact := range contacts {
		contactsByAlias[contact.Alias] = contact
	}

	encoder := yaml.NewEncoder(tempFile)
	require.NoErrorf(t, encoder.Encode(contactsByAlias), "encoding contacts")
	require.NoErrorf(t, encoder.Close(), "closing encoder")
	return tempFile.Name()
}
