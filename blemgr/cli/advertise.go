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

	"github.com/spf13/cobra"

	"mynewt.apache.org/blemgr/blemgr/bmutil"
	"mynewt.apache.org/blemgr/bmxact/bledefs"
	"mynewt.apache.org/blemgr/bmxact/peripheral"
	"mynewt.apache.org/newt/util"
)

var advSvcUuid string
var advChrUuid string

func advertiseRunCmd(cmd *cobra.Command, args []string) {
	cfg := peripheral.NewCfg()
	if bmutil.DeviceName != "" {
		cfg.LocalName = bmutil.DeviceName
	}

	var err error
	if advSvcUuid != "" {
		cfg.SvcUuid, err = bledefs.ParseUuid(advSvcUuid)
		if err != nil {
			nmUsage(cmd, util.ChildNewtError(err))
		}
	}
	if advChrUuid != "" {
		cfg.ChrUuid, err = bledefs.ParseUuid(advChrUuid)
		if err != nil {
			nmUsage(cmd, util.ChildNewtError(err))
		}
	}

	a, err := GetAdvertiser(cfg)
	if err != nil {
		nmUsage(nil, err)
	}

	ch := a.Listen()

	// Runs until interrupted.
	last := ""
	for v := range ch {
		st := v.(peripheral.Status)

		line := st.String()
		if st.SvcErr != nil {
			line += "; service error: " + st.SvcErr.Error()
		}
		if st.AdvErr != nil {
			line += "; advertising error: " + st.AdvErr.Error()
		}

		if line != last {
			fmt.Printf("%s\n", line)
			last = line
		}
	}
}

func advertiseCmd() *cobra.Command {
	advCmd := &cobra.Command{
		Use:   "advertise",
		Short: "Publish a demo service and advertise it",
		Long: "Registers one primary service containing a single readable, " +
			"notifiable\ncharacteristic and advertises it under a fixed " +
			"local name until interrupted.",
		Example: "  " + bmutil.ToolInfo.ExeName + " advertise\n" +
			"  " + bmutil.ToolInfo.ExeName +
			" --name Sensor advertise --svc 0x180f --chr 0x2a19",
		Run: advertiseRunCmd,
	}

	advCmd.Flags().StringVar(&advSvcUuid, "svc", "",
		fmt.Sprintf("service UUID (default 0x%04x)", bledefs.DemoSvcUuid))
	advCmd.Flags().StringVar(&advChrUuid, "chr", "",
		fmt.Sprintf("characteristic UUID (default 0x%04x)",
			bledefs.DemoChrUuid))

	return advCmd
}
