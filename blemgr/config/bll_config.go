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

package config

import (
	"time"

	"github.com/spf13/cast"

	"mynewt.apache.org/blemgr/blemgr/bmutil"
)

type PowerSource int

const (
	// Assume the controller is powered whenever it can be opened.
	POWER_SOURCE_NONE PowerSource = iota

	// Track the adapter's Powered property over BlueZ D-Bus.
	POWER_SOURCE_BLUEZ
)

var powerSourceNameMap = map[PowerSource]string{
	POWER_SOURCE_NONE:  "none",
	POWER_SOURCE_BLUEZ: "bluez",
}

func PowerSourceToString(ps PowerSource) string {
	return powerSourceNameMap[ps]
}

type BllConfig struct {
	CtlrName string
	HciIdx   int

	// Connection timeout, in seconds.
	ConnTimeout float64

	Power PowerSource
}

func NewBllConfig() *BllConfig {
	return &BllConfig{
		ConnTimeout: bmutil.Timeout,
		HciIdx:      bmutil.HciIdx,
	}
}

func (bc *BllConfig) ConnTimeoutDuration() time.Duration {
	return time.Duration(bc.ConnTimeout * float64(time.Second))
}

func einvalBllConnString(f string, args ...interface{}) error {
	return einvalConnString("BLE", f, args...)
}

func ParseBllConnString(cs string) (*BllConfig, error) {
	bc := NewBllConfig()

	kvs, err := splitConnString("BLE", cs)
	if err != nil {
		return nil, err
	}

	for _, kv := range kvs {
		k := kv[0]
		v := kv[1]

		switch k {
		case "ctlr_name":
			bc.CtlrName = v

		case "hci":
			bc.HciIdx, err = cast.ToIntE(v)
			if err != nil || bc.HciIdx < 0 {
				return nil, einvalBllConnString("Invalid hci: %s", v)
			}

		case "conn_timeout":
			bc.ConnTimeout, err = cast.ToFloat64E(v)
			if err != nil || bc.ConnTimeout <= 0 {
				return nil, einvalBllConnString("Invalid conn_timeout: %s", v)
			}

		case "power":
			switch v {
			case "none":
				bc.Power = POWER_SOURCE_NONE
			case "bluez":
				bc.Power = POWER_SOURCE_BLUEZ
			default:
				return nil, einvalBllConnString("Invalid power: %s", v)
			}

		default:
			return nil, einvalBllConnString("Unrecognized key: %s", k)
		}
	}

	return bc, nil
}
