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

package bll

import (
	"time"

	"mynewt.apache.org/blemgr/bmxact/bledefs"
)

// Source of adapter power-state changes.  Without one, an opened controller
// is assumed to be powered on.
type PowerSource interface {
	Start(fn func(state bledefs.BlePowerState)) error
	Stop() error
}

type XportCfg struct {
	CtlrName    string
	HciIdx      int
	ConnTimeout time.Duration

	// How long advertising must run without error before it is reported as
	// started.
	AdvSettle time.Duration

	Power PowerSource
}

func NewXportCfg() XportCfg {
	return XportCfg{
		CtlrName:    "default",
		ConnTimeout: 10 * time.Second,
		AdvSettle:   500 * time.Millisecond,
	}
}
