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

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"mynewt.apache.org/blemgr/blemgr/bmutil"
	"mynewt.apache.org/blemgr/bmxact/bmxutil"
	"mynewt.apache.org/newt/util"
)

var BlemgrLogLevel log.Level

func Commands() *cobra.Command {
	logLevelStr := ""
	bmCmd := &cobra.Command{
		Use:   bmutil.ToolInfo.ExeName,
		Short: bmutil.ToolInfo.ShortName + " discovers, connects to, and emulates BLE devices",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			var err error
			BlemgrLogLevel, err = log.ParseLevel(logLevelStr)
			if err != nil {
				nmUsage(nil, util.ChildNewtError(err))
			}

			err = util.Init(BlemgrLogLevel, "", util.VERBOSITY_DEFAULT)
			if err != nil {
				nmUsage(nil, err)
			}
			bmxutil.SetLogLevel(BlemgrLogLevel)

			// Set cbgo log level if we're using macOS.
			OSSpecificInit()
		},
		Run: func(cmd *cobra.Command, args []string) {
			cmd.HelpFunc()(cmd, args)
		},
	}

	bmCmd.PersistentFlags().StringVarP(&bmutil.ConnProfile, "conn", "c", "",
		"connection profile to use")

	bmCmd.PersistentFlags().Float64VarP(&bmutil.Timeout, "timeout", "t", 10.0,
		"timeout in seconds (partial seconds allowed)")

	bmCmd.PersistentFlags().StringVarP(&logLevelStr, "loglevel", "l", "info",
		"log level to use")

	bmCmd.PersistentFlags().StringVar(&bmutil.DeviceName, "name",
		"", "name of target BLE device; overrides command defaults")

	bmCmd.PersistentFlags().StringVar(&bmutil.ConnType, "conntype", "",
		"Connection type to use instead of using the profile's type")

	bmCmd.PersistentFlags().StringVar(&bmutil.ConnString, "connstring", "",
		"Connection key-value pairs to use instead of using the profile's "+
			"connstring")

	bmCmd.PersistentFlags().IntVarP(&bmutil.HciIdx, "hci", "i",
		0, "HCI index for the controller on Linux machine")

	versCmd := &cobra.Command{
		Use:     "version",
		Short:   "Display the " + bmutil.ToolInfo.ShortName + " version number",
		Example: "  " + bmutil.ToolInfo.ExeName + " version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("%s %s\n",
				bmutil.ToolInfo.LongName,
				bmutil.ToolInfo.VersionString)
		},
	}
	bmCmd.AddCommand(versCmd)

	bmCmd.AddCommand(scanCmd())
	bmCmd.AddCommand(connectCmd())
	bmCmd.AddCommand(advertiseCmd())
	bmCmd.AddCommand(interactiveCmd())
	bmCmd.AddCommand(connProfileCmd())

	return bmCmd
}
