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

package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/hyperledger-labs/ledger-node"
	ledgertcp "github.com/hyperledger-labs/ledger-node/api/tcp"
	ledgerws "github.com/hyperledger-labs/ledger-node/api/websocket"
	"github.com/hyperledger-labs/ledger-node/node"
)

const (
	// flag names for run command.
	loglevelF        = "loglevel"
	logfileF         = "logfile"
	databasedirF     = "databasedir"
	tcpaddrF         = "tcpaddr"
	websocketaddrF   = "websocketaddr"
	maxconnsF        = "maxconns"
	responsetimeoutF = "responsetimeout"
	currencyF        = "currency"
	configfileF      = "configfile" // can only be specified in flag, not via config file.

	// default values for flags in run command.
	defaultConfigFile = "node.yaml"
)

var (
	// Viper instance for parsing node configuration file. Each flag in the nodeCfgFlags list (that are defined
	// on the run command) will also be attached to the viper instance, so that the values from flags (when
	// specified), override the values defined in the configuration files.
	nodeCfgViper *viper.Viper

	// Flags corresponding to node configuration parameters. Each of this flag can individually override the
	// default values in config file. Also, the node configuration can be fully specified by using all of these
	// flags, in which case no config file is needed and configFile flag can be unspecified. Initial balances
	// of accounts can be specified only in the config file.
	nodeCfgFlags = []string{
		loglevelF,
		logfileF,
		databasedirF,
		tcpaddrF,
		websocketaddrF,
		maxconnsF,
		responsetimeoutF,
		currencyF,
	}
)

func init() {
	rootCmd.AddCommand(runCmd)
	defineFlags(runCmd.Flags())

	nodeCfgViper = viper.New()

	// Bind the configuration flags to viper instance,
	// values in flags (when specified), takes precedence over those in config file.
	var err error
	for i := range nodeCfgFlags {
		if err = nodeCfgViper.BindPFlag(nodeCfgFlags[i], runCmd.Flags().Lookup(nodeCfgFlags[i])); err != nil {
			panic(err)
		}
	}
}

func defineFlags(fs *pflag.FlagSet) {
	fs.String(configfileF, defaultConfigFile, "node config file")

	// All these flags should have zero values for defaults, as their only purpose is allow the user to
	// explicitly specify the configuration.
	fs.String(loglevelF, "", "Log level. Supported levels: debug, info, error")
	fs.String(logfileF, "", "Log file path. Use empty string for stdout")
	fs.String(databasedirF, "", "Directory for the database. Use empty string to hold state in memory")
	fs.String(tcpaddrF, "", "Address for the TCP API server. Use empty string to disable it")
	fs.String(websocketaddrF, "", "Address for the websocket API server. Use empty string to disable it")
	fs.Int(maxconnsF, 0, "Max number of simultaneous connections per API server")
	fs.Duration(responsetimeoutF, time.Duration(0), "Max duration for writing a response")
	fs.String(currencyF, "", "Currency in which initial balances are specified")
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the ledgernode",
	Long: `Start the ledger node. The node serves its API over TCP and websocket
at the configured addresses.

Configuration can be specified in the config file or via flags. Values in the
flags override that in the config file.

If no flags are specified, default path for config file is used. However, if
all the config flags are specified, config file is ignored.`,
	Run: run,
}

func run(cmd *cobra.Command, _ []string) {
	nodeCfg, err := parseNodeConfig(cmd.Flags(), nodeCfgViper)
	if err != nil {
		fmt.Printf("Error parsing node config: %v\n", err)
		os.Exit(1)
	}

	nodeAPI, err := node.New(nodeCfg)
	if err != nil {
		fmt.Printf("Error initializing nodeAPI: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Running ledger node with the below config:\n%s.\n\n", prettify(nodeCfg))

	if err = serve(nodeAPI, nodeCfg); err != nil {
		fmt.Printf("Server returned with error: %v\n", err)
	}
	if err = nodeAPI.Close(); err != nil {
		fmt.Printf("Error closing node: %v\n", err)
	}
}

type server interface {
	Serve() error
	Addr() string
	Close() error
}

// serve starts the API servers enabled in the config and blocks until an
// interrupt is received or one of the servers fails.
func serve(n ledger.NodeAPI, cfg ledger.NodeConfig) error {
	var servers []server
	closeAll := func() {
		for _, s := range servers {
			s.Close() // nolint: errcheck
		}
	}

	if cfg.TCPAddr != "" {
		s, err := ledgertcp.Listen(n, cfg.TCPAddr, cfg.MaxConns, cfg.ResponseTimeout)
		if err != nil {
			return errors.WithMessage(err, "tcp api")
		}
		servers = append(servers, s)
		fmt.Printf("Serving API via tcp at %s\n", s.Addr())
	}
	if cfg.WebSocketAddr != "" {
		s, err := ledgerws.Listen(n, cfg.WebSocketAddr, cfg.MaxConns, cfg.ResponseTimeout)
		if err != nil {
			closeAll()
			return errors.WithMessage(err, "websocket api")
		}
		servers = append(servers, s)
		fmt.Printf("Serving API via websocket at ws://%s%s\n", s.Addr(), ledgerws.Endpoint)
	}
	if len(servers) == 0 {
		return errors.New("no api server enabled, specify at least one of tcpaddr or websocketaddr")
	}

	errs := make(chan error, len(servers))
	for _, s := range servers {
		go func(s server) { errs <- s.Serve() }(s)
	}
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigs)

	var err error
	select {
	case sig := <-sigs:
		fmt.Printf("\nReceived %v, shutting down\n", sig)
	case err = <-errs:
	}
	closeAll()
	return err
}

func parseNodeConfig(fs *pflag.FlagSet, v *viper.Viper) (ledger.NodeConfig, error) {
	// Ignore config file, if all config flags are specified.
	if !areAllFlagsSpecified(fs, nodeCfgFlags...) {
		nodeCfgFile, err := fs.GetString(configfileF)
		if err != nil {
			return ledger.NodeConfig{}, errors.Wrap(err, "unknown flag configfile")
		}

		// Read config from file.
		v.SetConfigFile(filepath.Clean(nodeCfgFile))
		v.SetConfigType("yaml")
		if err = v.ReadInConfig(); err != nil {
			return ledger.NodeConfig{}, errors.Wrap(err, "reading node config file")
		}
		fmt.Printf("Using node config file - %s\n", nodeCfgFile)
	}

	// Copy the configuration from viper to struct.
	var nodeCfg ledger.NodeConfig
	err := v.Unmarshal(&nodeCfg)
	return nodeCfg, errors.Wrap(err, "unmarshalling node config from viper instance")
}
