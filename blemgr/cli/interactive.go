/**
 * Licensed to the Apache Software Foundation (ASF) under one
 * or more contributor license agreements.  See the NOTICE file
 * distributed with this work for additional information
 * regarding copyright ownership.  The ASF licenses this file
 * to you under the Apache License, Version 2.0 (the
 * "License"); you may not use this file except in compliance
 * with the License.  You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing,
 * software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY
 * KIND, either express or implied.  See the License for the
 * specific language governing permissions and limitations
 * under the License.
 */

package cli

import (
	"bytes"
	"strconv"

	"github.com/spf13/cobra"
	"gopkg.in/abiosoft/ishell.v2"

	"mynewt.apache.org/blemgr/blemgr/bmutil"
	"mynewt.apache.org/blemgr/bmxact/bledefs"
	"mynewt.apache.org/blemgr/bmxact/central"
)

// Resolves a "connect" argument: an index into the device list, an
// identifier, or an advertised name.
func resolvePeer(s central.Snapshot, arg string) (central.DiscoveredDevice,
	bool) {

	if idx, err := strconv.Atoi(arg); err == nil {
		if idx >= 0 && idx < len(s.Devices) {
			return s.Devices[idx], true
		}
		return central.DiscoveredDevice{}, false
	}

	return findDevice(s, arg)
}

func startInteractive(cmd *cobra.Command, args []string) {
	c, err := GetConnector(central.NewCfg())
	if err != nil {
		nmUsage(nil, err)
	}

	// create new shell.
	// by default, new shell includes 'exit', 'help' and 'clear' commands.
	shell := ishell.New()
	shell.SetPrompt("> ")

	shell.Println()
	shell.Println(" " + bmutil.ToolInfo.LongName + " interactive mode")
	shell.Println("	Connection profile: ", bmutil.ConnProfile)
	shell.Println()

	// Print status changes as they occur.
	ch := c.Listen()
	go func() {
		last := c.Snapshot().Status
		for v := range ch {
			s := v.(central.Snapshot)
			if s.Status != last {
				shell.Println("[" + s.Status + "]")
				last = s.Status
			}
		}
	}()

	shell.AddCmd(&ishell.Cmd{
		Name: "scan",
		Help: "Start a new scan session, discarding previous results",
		Func: func(ic *ishell.Context) {
			if err := c.Scan(); err != nil {
				ic.Println("Error:", err)
			}
		},
	})

	shell.AddCmd(&ishell.Cmd{
		Name: "list",
		Help: "List devices discovered in the current scan session",
		Func: func(ic *ishell.Context) {
			var buf bytes.Buffer
			renderDevicesText(&buf, c.Snapshot())
			ic.Print(buf.String())
		},
	})

	shell.AddCmd(&ishell.Cmd{
		Name: "connect",
		Help: "Connect to a discovered device: connect <index|id|name>",
		Func: func(ic *ishell.Context) {
			if len(ic.Args) != 1 {
				ic.Println(ic.HelpText())
				return
			}

			dev, ok := resolvePeer(c.Snapshot(), ic.Args[0])
			if !ok {
				ic.Println("No such device:", ic.Args[0])
				return
			}

			if err := c.Connect(dev.Id); err != nil {
				ic.Println("Error:", err)
			}
		},
	})

	shell.AddCmd(&ishell.Cmd{
		Name: "status",
		Help: "Show the current state",
		Func: func(ic *ishell.Context) {
			s := c.Snapshot()
			ic.Println("state: ", s.State.String())
			ic.Println("power: ", bledefs.BlePowerStateToString(s.Power))
			ic.Println("status:", s.Status)
			ic.Println("devices:", len(s.Devices))
			if conn := s.Connected(); conn != nil {
				ic.Println("connected to:", conn.Name, "("+conn.Peer+")")
			}
		},
	})

	shell.Run()
	shell.Close()
	c.Unlisten(ch)
}

func interactiveCmd() *cobra.Command {
	shellCmd := &cobra.Command{
		Use:   "interactive",
		Short: "Run " + bmutil.ToolInfo.ShortName + " interactive mode",
		Run:   startInteractive,
	}

	return shellCmd
}
