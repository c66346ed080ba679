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

package bledefs

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseUuid(t *testing.T) {
	u, err := ParseUuid("0x1234")
	require.NoError(t, err)
	assert.Equal(t, BleUuid16(0x1234), u.U16)

	u, err = ParseUuid("ABCD")
	require.NoError(t, err)
	assert.Equal(t, BleUuid16(0xabcd), u.U16)
	assert.Equal(t, "0xabcd", u.String())

	u, err = ParseUuid("8D53DC1D-1DB7-4CD3-868B-8A527460AA84")
	require.NoError(t, err)
	assert.Equal(t, BleUuid16(0), u.U16)
	assert.Equal(t, "8d53dc1d-1db7-4cd3-868b-8a527460aa84", u.String())

	_, err = ParseUuid("not-a-uuid")
	assert.Error(t, err)
}

func TestCompareUuids(t *testing.T) {
	a := NewBleUuid16(DemoSvcUuid)
	b := NewBleUuid16(DemoChrUuid)

	assert.Equal(t, 0, CompareUuids(a, a))
	assert.True(t, CompareUuids(a, b) < 0)

	x, _ := ParseUuid("8d53dc1d-1db7-4cd3-868b-8a527460aa84")
	y, _ := ParseUuid("8d53dc1d-1db7-4cd3-868b-8a527460aa85")
	assert.True(t, CompareUuids(x, y) < 0)
}

func TestUuidJson(t *testing.T) {
	var u BleUuid
	require.NoError(t, json.Unmarshal([]byte(`"0x1234"`), &u))
	assert.Equal(t, BleUuid16(0x1234), u.U16)

	require.NoError(t, json.Unmarshal([]byte(`4660`), &u))
	assert.Equal(t, BleUuid16(0x1234), u.U16)

	b, err := json.Marshal(u)
	require.NoError(t, err)
	assert.Equal(t, `"0x1234"`, string(b))
}

func TestPowerStateStrings(t *testing.T) {
	for state, name := range BlePowerStateStringMap {
		parsed, err := BlePowerStateFromString(name)
		require.NoError(t, err)
		assert.Equal(t, state, parsed)
	}

	_, err := BlePowerStateFromString("on")
	assert.Error(t, err)
	assert.Equal(t, "???", BlePowerStateToString(BlePowerState(99)))
}

func TestChrFlagsString(t *testing.T) {
	var f BleChrFlags = BLE_GATT_F_READ | BLE_GATT_F_NOTIFY
	assert.Equal(t, "read|notify", f.String())
}

func TestDisplayName(t *testing.T) {
	name := "Watch"
	empty := ""

	assert.Equal(t, "Watch", DisplayName(&name))
	assert.Equal(t, PlaceholderName, DisplayName(&empty))
	assert.Equal(t, PlaceholderName, DisplayName(nil))
}

func TestAdvFieldsUuids(t *testing.T) {
	u128, _ := ParseUuid128("8d53dc1d-1db7-4cd3-868b-8a527460aa84")
	f := BleAdvFields{
		Uuids16:  []BleUuid16{0x180f},
		Uuids128: []BleUuid128{u128},
	}

	uuids := f.Uuids()
	require.Len(t, uuids, 2)
	assert.Equal(t, BleUuid16(0x180f), uuids[0].U16)
	assert.Equal(t, u128, uuids[1].U128)
}
