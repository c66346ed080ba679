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

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"mynewt.apache.org/newt/util"
)

var onExit func()

func NmSetOnExit(fn func()) {
	onExit = fn
}

func nmExit(code int) {
	if onExit != nil {
		onExit()
	}
	os.Exit(code)
}

// Reports the error, prints the command's usage text if a command is
// specified, and exits with a failure status.
func nmUsage(cmd *cobra.Command, err error) {
	if err != nil {
		if sErr, ok := err.(*util.NewtError); ok {
			log.Debugf("%s", sErr.StackTrace)
			fmt.Fprintf(os.Stderr, "Error: %s\n", sErr.Text)
		} else {
			fmt.Fprintf(os.Stderr, "Error: %s\n", err.Error())
		}
	}

	if cmd != nil {
		fmt.Printf("\n")
		fmt.Printf("%s - ", cmd.Name())
		cmd.Help()
	}

	nmExit(1)
}
