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

//go:build !linux

package bluez

import (
	"fmt"

	"mynewt.apache.org/blemgr/bmxact/bledefs"
)

type PowerMonitor struct{}

func NewPowerMonitor(hciIdx int) *PowerMonitor {
	return &PowerMonitor{}
}

func (pm *PowerMonitor) Start(fn func(state bledefs.BlePowerState)) error {
	return fmt.Errorf("BlueZ power monitoring is unsupported on this platform")
}

func (pm *PowerMonitor) Stop() error {
	return nil
}
