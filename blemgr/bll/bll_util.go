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
	"encoding/binary"
	"fmt"
	"time"

	"github.com/JuulLabs-OSS/ble"
	"github.com/pkg/errors"
	"golang.org/x/net/context"

	"mynewt.apache.org/blemgr/blemgr/bmutil"
	"mynewt.apache.org/blemgr/bmxact/bledefs"
)

func UuidFromBllUuid(bllUuid ble.UUID) (bledefs.BleUuid, error) {
	uuid := bledefs.BleUuid{}

	switch len(bllUuid) {
	case 2:
		uuid.U16 = bledefs.BleUuid16(binary.LittleEndian.Uint16(bllUuid))
		return uuid, nil

	case 16:
		for i, b := range bllUuid {
			uuid.U128[15-i] = b
		}
		return uuid, nil

	default:
		return uuid, fmt.Errorf("Invalid UUID: %#v", bllUuid)
	}
}

func BllUuidFromUuid(uuid bledefs.BleUuid) ble.UUID {
	if uuid.U16 != 0 {
		return ble.UUID16(uint16(uuid.U16))
	}

	bllUuid := make(ble.UUID, 16)
	for i, b := range uuid.U128 {
		bllUuid[15-i] = b
	}
	return bllUuid
}

// Converts an advertisement received from the native stack.
func AdvReportFromBll(a ble.Advertisement) bledefs.BleAdvReport {
	fields := bledefs.BleAdvFields{
		MfgData:     a.ManufacturerData(),
		Connectable: a.Connectable(),
	}

	if name := a.LocalName(); name != "" {
		fields.Name = &name
	}

	// The stack reports 0 when the field is absent.
	if lvl := a.TxPowerLevel(); lvl != 0 {
		tx := int8(lvl)
		fields.TxPwrLvl = &tx
	}

	for _, u := range a.Services() {
		uuid, err := UuidFromBllUuid(u)
		if err != nil {
			continue
		}

		if uuid.U16 != 0 {
			fields.Uuids16 = append(fields.Uuids16, uuid.U16)
		} else {
			fields.Uuids128 = append(fields.Uuids128, uuid.U128)
		}
	}

	for _, sd := range a.ServiceData() {
		uuid, err := UuidFromBllUuid(sd.UUID)
		if err != nil {
			continue
		}

		fields.SvcData = append(fields.SvcData, bledefs.BleSvcData{
			Uuid: uuid,
			Data: sd.Data,
		})
	}

	var sender bledefs.BlePeerId
	if a.Addr() != nil {
		sender = bledefs.BlePeerId(a.Addr().String())
	}

	return bledefs.BleAdvReport{
		Sender: sender,
		Rssi:   a.RSSI(),
		Fields: fields,
	}
}

// Decides the advertising-start outcome from the result channel of a
// blocking advertise call.  The native stack only returns if advertising
// fails or is stopped, so success is inferred from the call still running
// after the settle window.  Returns false if advertising was cancelled and
// nothing should be reported.
func advStartOutcome(errCh <-chan error, settle time.Duration) (bool, error) {
	select {
	case err := <-errCh:
		if err == nil {
			return true, fmt.Errorf("advertising stopped")
		}
		if bmutil.ErrorCausedBy(err, context.Canceled) {
			return false, nil
		}
		return true, errors.Wrap(err, "failed to start advertising")

	case <-time.After(settle):
		return true, nil
	}
}
