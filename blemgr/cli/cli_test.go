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
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mynewt.apache.org/blemgr/bmxact/bledefs"
	"mynewt.apache.org/blemgr/bmxact/central"
	"mynewt.apache.org/blemgr/bmxact/radio"
)

func strp(s string) *string {
	return &s
}

func testSnapshot(t *testing.T) central.Snapshot {
	s := central.NewSnapshot()

	evs := []interface{}{
		radio.PowerEvent{State: bledefs.BLE_POWER_STATE_POWERED_ON},
		central.ScanReq{},
		radio.DiscoverEvent{Report: bledefs.BleAdvReport{
			Sender: "AA:BB", Rssi: -40,
			Fields: bledefs.BleAdvFields{Name: strp("Watch")},
		}},
		radio.DiscoverEvent{Report: bledefs.BleAdvReport{
			Sender: "CC:DD", Rssi: -80,
		}},
		central.ConnectReq{Peer: "AA:BB"},
	}

	for _, ev := range evs {
		var err error
		s, _, err = central.Reduce(s, ev)
		require.NoError(t, err)
	}

	return s
}

func TestRenderDevicesText(t *testing.T) {
	var buf bytes.Buffer
	renderDevicesText(&buf, testSnapshot(t))

	out := buf.String()
	assert.Contains(t, out, "Watch")
	assert.Contains(t, out, "AA:BB")
	assert.Contains(t, out, "Device")
	assert.Contains(t, out, "-80")

	buf.Reset()
	renderDevicesText(&buf, central.NewSnapshot())
	assert.Equal(t, "No devices found\n", buf.String())
}

func TestRenderSnapshotJson(t *testing.T) {
	b, err := renderSnapshotJson(testSnapshot(t))
	require.NoError(t, err)

	var m map[string]interface{}
	require.NoError(t, json.Unmarshal(b, &m))

	assert.Equal(t, "connecting", m["state"])
	assert.Equal(t, "powered_on", m["power"])
	assert.Equal(t, "Connecting to Watch...", m["status"])

	devs := m["devices"].([]interface{})
	require.Len(t, devs, 2)
	assert.Equal(t, "AA:BB", devs[0].(map[string]interface{})["id"])
	assert.Equal(t, "Device", devs[1].(map[string]interface{})["name"])
	assert.EqualValues(t, -80, devs[1].(map[string]interface{})["rssi"])

	conn := m["conn"].(map[string]interface{})
	assert.Equal(t, "AA:BB", conn["peer"])
	assert.Equal(t, "pending", conn["status"])
}

func TestResolvePeer(t *testing.T) {
	s := testSnapshot(t)

	d, ok := resolvePeer(s, "1")
	require.True(t, ok)
	assert.Equal(t, bledefs.BlePeerId("CC:DD"), d.Id)

	d, ok = resolvePeer(s, "Watch")
	require.True(t, ok)
	assert.Equal(t, bledefs.BlePeerId("AA:BB"), d.Id)

	d, ok = resolvePeer(s, "cc:dd")
	require.True(t, ok)
	assert.Equal(t, bledefs.BlePeerId("CC:DD"), d.Id)

	_, ok = resolvePeer(s, "5")
	assert.False(t, ok)

	_, ok = resolvePeer(s, "Phone")
	assert.False(t, ok)
}
