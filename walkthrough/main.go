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

// Command walkthrough runs an escrow between a depositor, a beneficiary and
// an arbiter on an in-process ledger node, printing each step.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/hyperledger-labs/ledger-node"
	ledgertcp "github.com/hyperledger-labs/ledger-node/api/tcp"
	ledgerws "github.com/hyperledger-labs/ledger-node/api/websocket"
	ledgerclient "github.com/hyperledger-labs/ledger-node/client"
	"github.com/hyperledger-labs/ledger-node/currency"
	"github.com/hyperledger-labs/ledger-node/identity"
	"github.com/hyperledger-labs/ledger-node/node"
)

const (
	seed           = "ledger-node walkthrough"
	initialBalance = "100"
	escrowAmount   = "1.5"
)

var (
	depositorColor   = color.New(color.FgGreen)
	beneficiaryColor = color.New(color.FgYellow)
	arbiterColor     = color.New(color.FgCyan)
	errColor         = color.New(color.FgRed)

	eth = currency.NewRegistryWithETH().Currency(currency.ETHSymbol)
)

type party struct {
	name   string
	color  *color.Color
	signer *identity.KeySigner
	client *ledgerclient.Client
}

func (p *party) say(format string, args ...interface{}) {
	p.color.Printf("%-12s| %s\n", p.name, fmt.Sprintf(format, args...))
}

type server interface {
	Serve() error
	Addr() string
	Close() error
}

// nodeFactory creates the node on which the walkthrough runs.
type nodeFactory func(ledger.NodeConfig) (ledger.NodeAPI, error)

func main() {
	walkthroughApp := &cobra.Command{
		Use:           "walkthrough",
		Short:         "Walk through the life cycle of an escrow on a ledger node",
		RunE:          walkthrough,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	addFlagSet(walkthroughApp)
	if err := walkthroughApp.Execute(); err != nil {
		errColor.Println("Walkthrough failed -", err)
		os.Exit(1)
	}
}

func addFlagSet(app *cobra.Command) {
	app.PersistentFlags().String("transport", ledgerclient.TransportTCP, "Transport for the API: tcp or ws")
	app.PersistentFlags().String("loglevel", "error", "Log level of the node. Supported levels: debug, info, error")
	app.PersistentFlags().Bool("skip_unauthorized", false, "Skip the step where the beneficiary tries to release")
}

func walkthrough(app *cobra.Command, _ []string) error {
	transport, _ := app.Flags().GetString("transport")
	logLevel, _ := app.Flags().GetString("loglevel")
	skipUnauthorized, _ := app.Flags().GetBool("skip_unauthorized")
	return run(transport, logLevel, skipUnauthorized, node.New)
}

// run starts a node and the API server for the transport, connects a client
// for each party and runs the escrow. Everything started is closed before
// it returns.
func run(transport, logLevel string, skipUnauthorized bool, newNode nodeFactory) error {
	parties, err := newParties()
	if err != nil {
		return errors.WithMessage(err, "generating keys")
	}
	depositor, beneficiary, arbiter := parties[0], parties[1], parties[2]

	n, s, err := startNode(transport, logLevel, newNode, parties...)
	if err != nil {
		return errors.WithMessage(err, "starting node")
	}
	defer n.Close()           // nolint: errcheck
	defer s.Close()           // nolint: errcheck
	go func() { s.Serve() }() // nolint: errcheck
	fmt.Printf("Node serving API via %s at %s\n\n", transport, s.Addr())

	for _, p := range parties {
		p.client, err = ledgerclient.New(ledgerclient.Config{
			Transport:   transport,
			Addr:        s.Addr(),
			DialTimeout: 5 * time.Second,
		}, p.signer)
		if err != nil {
			return errors.WithMessage(err, "connecting client for "+p.name)
		}
		defer p.client.Close() // nolint: errcheck
	}

	if err = runEscrow(depositor, beneficiary, arbiter, skipUnauthorized); err != nil {
		return err
	}
	fmt.Println("\nWalkthrough execution complete")
	return nil
}

func newParties() ([]*party, error) {
	names := []string{"depositor", "beneficiary", "arbiter"}
	colors := []*color.Color{depositorColor, beneficiaryColor, arbiterColor}
	parties := make([]*party, len(names))
	for i := range names {
		key, err := identity.DeriveKey(seed, i)
		if err != nil {
			return nil, err
		}
		parties[i] = &party{name: names[i], color: colors[i], signer: identity.NewKeySigner(key)}
	}
	return parties, nil
}

func startNode(transport, logLevel string, newNode nodeFactory, parties ...*party) (ledger.NodeAPI, server, error) {
	accounts := make(map[string]string, len(parties))
	for _, p := range parties {
		accounts[p.signer.Addr().Hex()] = initialBalance
	}
	cfg := ledger.NodeConfig{
		LogLevel:        logLevel,
		ResponseTimeout: 10 * time.Second,
		Currency:        currency.ETHSymbol,
		Accounts:        accounts,
	}
	n, err := newNode(cfg)
	if err != nil {
		return nil, nil, err
	}

	var s server
	switch transport {
	case ledgerclient.TransportTCP:
		s, err = ledgertcp.Listen(n, "127.0.0.1:0", 0, cfg.ResponseTimeout)
	case ledgerclient.TransportWebSocket:
		s, err = ledgerws.Listen(n, "127.0.0.1:0", 0, cfg.ResponseTimeout)
	default:
		err = errors.Errorf("unsupported transport %q", transport)
	}
	if err != nil {
		n.Close() // nolint: errcheck
		return nil, nil, err
	}
	return n, s, nil
}

func runEscrow(depositor, beneficiary, arbiter *party, skipUnauthorized bool) error {
	ctx := context.Background()
	amount, err := eth.Parse(escrowAmount)
	if err != nil {
		return err
	}

	printBalances(ctx, depositor.client, depositor, beneficiary, arbiter)

	depositor.say("Deploying escrow of %s %s for beneficiary, with arbiter %s",
		escrowAmount, eth.Symbol(), arbiter.signer.Addr().Hex())
	escrow, apiErr := depositor.client.DeployEscrow(ctx, beneficiary.signer.Addr(), arbiter.signer.Addr(), amount)
	if apiErr != nil {
		return apiErr
	}
	depositor.say("Escrow deployed at %s", escrow.Addr.Hex())
	printBalances(ctx, depositor.client, depositor, beneficiary, arbiter)

	if !skipUnauthorized {
		beneficiary.say("Trying to release the funds")
		_, apiErr = beneficiary.client.ReleaseFunds(ctx, escrow.Addr)
		if apiErr == nil {
			return errors.New("release by beneficiary succeeded")
		}
		beneficiary.say("Release failed: %s", apiErr.Message())
	}

	arbiter.say("Releasing the funds")
	escrow, apiErr = arbiter.client.ReleaseFunds(ctx, escrow.Addr)
	if apiErr != nil {
		return apiErr
	}
	arbiter.say("Funds released: %t", escrow.FundsReleased)

	arbiter.say("Trying to release the funds again")
	if _, apiErr = arbiter.client.ReleaseFunds(ctx, escrow.Addr); apiErr != nil {
		arbiter.say("Release failed: %s", apiErr.Message())
	}

	printBalances(ctx, depositor.client, depositor, beneficiary, arbiter)
	return nil
}

func printBalances(ctx context.Context, c *ledgerclient.Client, parties ...*party) {
	fmt.Println()
	for _, p := range parties {
		bal, apiErr := c.Balance(ctx, p.signer.Addr())
		if apiErr != nil {
			errColor.Println("Error reading balance -", apiErr)
			continue
		}
		p.say("Balance: %s %s", eth.Print(bal), eth.Symbol())
	}
	fmt.Println()
}
