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
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"mynewt.apache.org/blemgr/blemgr/bmutil"
	"mynewt.apache.org/blemgr/bmxact/central"
	"mynewt.apache.org/newt/util"
)

// Finds a discovered device by identifier or advertised name.
func findDevice(s central.Snapshot, target string) (central.DiscoveredDevice,
	bool) {

	for _, d := range s.Devices {
		if strings.EqualFold(string(d.Id), target) {
			return d, true
		}
	}

	for _, d := range s.Devices {
		if d.Name != nil && *d.Name == target {
			return d, true
		}
	}

	return central.DiscoveredDevice{}, false
}

// True once a connection attempt has produced an outcome.
func connectDone(s central.Snapshot) bool {
	return s.State != central.STATE_CONNECTING
}

func connectRunCmd(cmd *cobra.Command, args []string) {
	target := bmutil.DeviceName
	if len(args) > 0 {
		target = args[0]
	}
	if target == "" {
		nmUsage(cmd, util.NewNewtError("Need a device name or identifier"))
	}

	cfg := central.NewCfg()
	cfg.AutoScan = true

	c, err := GetConnector(cfg)
	if err != nil {
		nmUsage(nil, err)
	}

	if _, err := waitPowered(c); err != nil {
		nmUsage(nil, err)
	}

	var dev central.DiscoveredDevice
	_, ok := waitSnapshot(c, bmutil.TimeoutDuration(),
		func(s central.Snapshot) bool {
			var found bool
			dev, found = findDevice(s, target)
			return found
		})
	if !ok {
		nmUsage(nil, util.FmtNewtError("device \"%s\" not found", target))
	}

	fmt.Printf("Found %s\n", peerDesc(dev))

	if err := c.Connect(dev.Id); err != nil {
		nmUsage(nil, util.ChildNewtError(err))
	}

	s, ok := waitSnapshot(c, bmutil.TimeoutDuration()*2, connectDone)
	if !ok {
		nmUsage(nil, util.FmtNewtError("no response from %s", peerDesc(dev)))
	}

	fmt.Printf("%s\n", s.Status)
	if s.Connected() == nil {
		nmExit(1)
	}
}

func connectCmd() *cobra.Command {
	connectCmd := &cobra.Command{
		Use:   "connect <name|id>",
		Short: "Scan for a BLE device and connect to it",
		Example: "  " + bmutil.ToolInfo.ExeName + " connect Watch\n" +
			"  " + bmutil.ToolInfo.ExeName + " --conntype sim connect Watch",
		Run: connectRunCmd,
	}

	return connectCmd
}
