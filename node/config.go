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

package node

import (
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/spf13/viper"

	"github.com/hyperledger-labs/ledger-node"
)

// ParseConfig parses the node configuration from a file.
func ParseConfig(configFile string) (ledger.NodeConfig, error) {
	v := viper.New()
	v.SetConfigFile(filepath.Clean(configFile))

	var cfg ledger.NodeConfig
	err := v.ReadInConfig()
	if err != nil {
		return ledger.NodeConfig{}, errors.Wrap(err, "reading from source")
	}
	return cfg, errors.Wrap(v.Unmarshal(&cfg), "unmarshalling")
}
