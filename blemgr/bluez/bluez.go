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

// Package bluez reports the powered state of a BlueZ adapter.
package bluez

import (
	"fmt"

	"github.com/godbus/dbus/v5"

	"mynewt.apache.org/blemgr/bmxact/bledefs"
)

const (
	bluezService  = "org.bluez"
	adapterIface  = "org.bluez.Adapter1"
	propsIface    = "org.freedesktop.DBus.Properties"
	propsChanged  = "PropertiesChanged"
	poweredProp   = "Powered"
	adapterPrefix = "/org/bluez/hci"
)

func AdapterPath(hciIdx int) dbus.ObjectPath {
	return dbus.ObjectPath(fmt.Sprintf("%s%d", adapterPrefix, hciIdx))
}

func poweredToState(powered bool) bledefs.BlePowerState {
	if powered {
		return bledefs.BLE_POWER_STATE_POWERED_ON
	}
	return bledefs.BLE_POWER_STATE_POWERED_OFF
}

// Extracts the adapter's new power state from a PropertiesChanged signal.
// The second return value is false if the signal does not concern the
// adapter's Powered property.
func parsePropsChanged(sig *dbus.Signal, path dbus.ObjectPath) (
	bledefs.BlePowerState, bool) {

	if sig == nil || sig.Path != path ||
		sig.Name != propsIface+"."+propsChanged || len(sig.Body) < 2 {

		return bledefs.BLE_POWER_STATE_UNKNOWN, false
	}

	iface, ok := sig.Body[0].(string)
	if !ok || iface != adapterIface {
		return bledefs.BLE_POWER_STATE_UNKNOWN, false
	}

	changed, ok := sig.Body[1].(map[string]dbus.Variant)
	if !ok {
		return bledefs.BLE_POWER_STATE_UNKNOWN, false
	}

	v, ok := changed[poweredProp]
	if !ok {
		return bledefs.BLE_POWER_STATE_UNKNOWN, false
	}

	powered, ok := v.Value().(bool)
	if !ok {
		return bledefs.BLE_POWER_STATE_UNKNOWN, false
	}

	return poweredToState(powered), true
}
