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
	"context"
	"strconv"
	"strings"

	"github.com/abiosoft/ishell"
	"github.com/ethereum/go-ethereum/common"
)

var (
	greetingsCmdUsage = "Usage: greetings [sub-command]"
	greetingsCmd      = &ishell.Cmd{
		Name: "greetings",
		Help: "Use this command to deploy and use greetings contracts." + greetingsCmdUsage,
		Func: greetingsFn,
	}

	greetingsDeployCmdUsage = "Usage: greetings deploy"
	greetingsDeployCmd      = &ishell.Cmd{
		Name: "deploy",
		Help: "Deploy a greetings contract owned by you." + greetingsDeployCmdUsage,
		Func: greetingsDeployFn,
	}

	greetingsGreetCmdUsage = "Usage: greetings greet [contract address]"
	greetingsGreetCmd      = &ishell.Cmd{
		Name: "greet",
		Help: "Print the greeting." + greetingsGreetCmdUsage,
		Func: greetingsGreetFn,
	}

	greetingsSetCmdUsage = "Usage: greetings set [contract address] [greeting]"
	greetingsSetCmd      = &ishell.Cmd{
		Name: "set",
		Help: "Update the greeting. Only the owner can do this." + greetingsSetCmdUsage,
		Func: greetingsSetFn,
	}

	todoCmdUsage = "Usage: todo [sub-command]"
	todoCmd      = &ishell.Cmd{
		Name: "todo",
		Help: "Use this command to deploy and use todo list contracts." + todoCmdUsage,
		Func: todoFn,
	}

	todoDeployCmdUsage = "Usage: todo deploy"
	todoDeployCmd      = &ishell.Cmd{
		Name: "deploy",
		Help: "Deploy a todo list owned by you." + todoDeployCmdUsage,
		Func: todoDeployFn,
	}

	todoAddCmdUsage = "Usage: todo add [contract address] [content]"
	todoAddCmd      = &ishell.Cmd{
		Name: "add",
		Help: "Add a task to the todo list. Only the owner can do this." + todoAddCmdUsage,
		Func: todoAddFn,
	}

	todoToggleCmdUsage = "Usage: todo toggle [contract address] [task id]"
	todoToggleCmd      = &ishell.Cmd{
		Name: "toggle",
		Help: "Flip the completed status of a task. Only the owner can do this." + todoToggleCmdUsage,
		Func: todoToggleFn,
	}

	todoGetCmdUsage = "Usage: todo get [contract address] [task id]"
	todoGetCmd      = &ishell.Cmd{
		Name: "get",
		Help: "Print a task." + todoGetCmdUsage,
		Func: todoGetFn,
	}
)

func init() {
	greetingsCmd.AddCmd(greetingsDeployCmd)
	greetingsCmd.AddCmd(greetingsGreetCmd)
	greetingsCmd.AddCmd(greetingsSetCmd)

	todoCmd.AddCmd(todoDeployCmd)
	todoCmd.AddCmd(todoAddCmd)
	todoCmd.AddCmd(todoToggleCmd)
	todoCmd.AddCmd(todoGetCmd)
}

func greetingsFn(c *ishell.Context) {
	c.Println(c.Cmd.HelpText())
}

func greetingsDeployFn(c *ishell.Context) {
	if !checkConn(c, 0) {
		return
	}
	info, apiErr := client.DeployGreetings(context.Background())
	if apiErr != nil {
		printAPIError(c, apiErr)
		return
	}
	c.Printf("%s\n\n", greenf("Greetings deployed at %s. Greeting: %s", info.Addr.Hex(), info.Greeting))
}

func greetingsGreetFn(c *ishell.Context) {
	if !checkConn(c, 1) {
		return
	}
	addr, err := resolveAddr(c.Args[0])
	if err != nil {
		c.Printf("%s\n\n", redf("Error parsing contract address: %v", err))
		return
	}
	info, apiErr := client.Greet(context.Background(), addr)
	if apiErr != nil {
		printAPIError(c, apiErr)
		return
	}
	c.Printf("%s\n\n", greenf("%s", info.Greeting))
}

func greetingsSetFn(c *ishell.Context) {
	if client == nil {
		printNodeNotConnectedError(c)
		return
	}
	if len(c.Args) < 2 {
		printArgCountError(c, 2)
		return
	}
	addr, err := resolveAddr(c.Args[0])
	if err != nil {
		c.Printf("%s\n\n", redf("Error parsing contract address: %v", err))
		return
	}
	info, apiErr := client.SetGreeting(context.Background(), addr, strings.Join(c.Args[1:], " "))
	if apiErr != nil {
		printAPIError(c, apiErr)
		return
	}
	c.Printf("%s\n\n", greenf("Greeting updated to: %s", info.Greeting))
}

func todoFn(c *ishell.Context) {
	c.Println(c.Cmd.HelpText())
}

func todoDeployFn(c *ishell.Context) {
	if !checkConn(c, 0) {
		return
	}
	info, apiErr := client.DeployTodoList(context.Background())
	if apiErr != nil {
		printAPIError(c, apiErr)
		return
	}
	c.Printf("%s\n\n", greenf("Todo list deployed at %s.", info.Addr.Hex()))
}

func todoAddFn(c *ishell.Context) {
	if client == nil {
		printNodeNotConnectedError(c)
		return
	}
	if len(c.Args) < 2 {
		printArgCountError(c, 2)
		return
	}
	addr, err := resolveAddr(c.Args[0])
	if err != nil {
		c.Printf("%s\n\n", redf("Error parsing contract address: %v", err))
		return
	}
	task, apiErr := client.CreateTask(context.Background(), addr, strings.Join(c.Args[1:], " "))
	if apiErr != nil {
		printAPIError(c, apiErr)
		return
	}
	c.Printf("%s\n\n", greenf("Task %d added.", task.ID))
}

func todoToggleFn(c *ishell.Context) {
	if !checkConn(c, 2) {
		return
	}
	addr, id, ok := parseTaskArgs(c)
	if !ok {
		return
	}
	task, apiErr := client.ToggleCompleted(context.Background(), addr, id)
	if apiErr != nil {
		printAPIError(c, apiErr)
		return
	}
	c.Printf("%s\n\n", greenf("Task %d completed: %t", task.ID, task.Completed))
}

func todoGetFn(c *ishell.Context) {
	if !checkConn(c, 2) {
		return
	}
	addr, id, ok := parseTaskArgs(c)
	if !ok {
		return
	}
	task, apiErr := client.GetTask(context.Background(), addr, id)
	if apiErr != nil {
		printAPIError(c, apiErr)
		return
	}
	c.Printf("%s\n\n", greenf("Task %d: %s (completed: %t)", task.ID, task.Content, task.Completed))
}

func parseTaskArgs(c *ishell.Context) (_ common.Address, id uint64, ok bool) {
	addr, err := resolveAddr(c.Args[0])
	if err != nil {
		c.Printf("%s\n\n", redf("Error parsing contract address: %v", err))
		return common.Address{}, 0, false
	}
	if id, err = strconv.ParseUint(c.Args[1], 10, 64); err != nil {
		c.Printf("%s\n\n", redf("Error parsing task id: %v", err))
		return common.Address{}, 0, false
	}
	return addr, id, true
}
