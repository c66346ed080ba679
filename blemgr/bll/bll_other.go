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

//go:build !linux && !darwin

package bll

import (
	"fmt"

	. "mynewt.apache.org/blemgr/bmxact/bledefs"
	"mynewt.apache.org/blemgr/bmxact/bmxutil"
	"mynewt.apache.org/blemgr/bmxact/radio"
)

// Placeholder for platforms without native BLE support.  It reports the
// radio as unsupported and rejects every request.
type BllRadio struct {
	ch radio.CentralHandlers
	ph radio.PeripheralHandlers
}

func NewBllRadio(cfg XportCfg) *BllRadio {
	return &BllRadio{}
}

func (r *BllRadio) SetCentralHandlers(h radio.CentralHandlers) {
	r.ch = h
}

func (r *BllRadio) SetPeripheralHandlers(h radio.PeripheralHandlers) {
	r.ph = h
}

func (r *BllRadio) Start() error {
	ev := radio.PowerEvent{State: BLE_POWER_STATE_UNSUPPORTED}
	go func() {
		if r.ch.OnPower != nil {
			r.ch.OnPower(ev)
		}
		if r.ph.OnPower != nil {
			r.ph.OnPower(ev)
		}
	}()

	return nil
}

func (r *BllRadio) Stop() error {
	return nil
}

func unsupported() error {
	return bmxutil.NewRadioUnavailableError(BLE_POWER_STATE_UNSUPPORTED)
}

func (r *BllRadio) StartScan(cfg radio.ScanCfg) error { return unsupported() }
func (r *BllRadio) StopScan() error { return nil }
func (r *BllRadio) Connect(peer BlePeerId) error { return unsupported() }
func (r *BllRadio) CancelConnect(peer BlePeerId) error { return nil }
func (r *BllRadio) AddService(svc BleSvc) error { return unsupported() }
func (r *BllRadio) StartAdvertising(cfg radio.AdvCfg) error {
	return fmt.Errorf("advertising unsupported on this platform")
}
