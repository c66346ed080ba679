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
	"os"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/cheggaaa/pb.v1"

	"mynewt.apache.org/blemgr/blemgr/bmutil"
	"mynewt.apache.org/blemgr/bmxact/central"
	"mynewt.apache.org/newt/util"
)

var scanDuration float64
var scanFormat string

const scanTick = 100 * time.Millisecond

// Runs a scan session for the specified duration, showing progress on
// stderr.
func runScan(c *central.Connector, dur time.Duration) central.Snapshot {
	ticks := int(dur / scanTick)
	if ticks < 1 {
		ticks = 1
	}

	bar := pb.New(ticks)
	bar.Output = os.Stderr
	bar.ShowCounters = false
	bar.ShowTimeLeft = true
	bar.Start()

	ticker := time.NewTicker(scanTick)
	defer ticker.Stop()

	for i := 0; i < ticks; i++ {
		<-ticker.C
		s := c.Snapshot()
		bar.Prefix(fmt.Sprintf("%d found ", len(s.Devices)))
		bar.Increment()
	}
	bar.Finish()

	return c.Snapshot()
}

func scanRunCmd(cmd *cobra.Command, args []string) {
	if scanFormat != "text" && scanFormat != "json" {
		nmUsage(cmd, util.FmtNewtError("Invalid format: %s", scanFormat))
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

	s := runScan(c, durationFromSecs(scanDuration))

	if scanFormat == "json" {
		b, err := renderSnapshotJson(s)
		if err != nil {
			nmUsage(nil, util.ChildNewtError(err))
		}
		fmt.Printf("%s\n", b)
	} else {
		renderDevicesText(os.Stdout, s)
	}
}

func scanCmd() *cobra.Command {
	scanCmd := &cobra.Command{
		Use:   "scan",
		Short: "Discover nearby BLE devices",
		Example: "  " + bmutil.ToolInfo.ExeName + " scan -d 10\n" +
			"  " + bmutil.ToolInfo.ExeName + " scan --format json",
		Run: scanRunCmd,
	}

	scanCmd.Flags().Float64VarP(&scanDuration, "duration", "d", 5.0,
		"scan duration in seconds")
	scanCmd.Flags().StringVar(&scanFormat, "format", "text",
		"output format (text or json)")

	return scanCmd
}
