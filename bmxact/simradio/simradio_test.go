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

package simradio

import (
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "mynewt.apache.org/blemgr/bmxact/bledefs"
	"mynewt.apache.org/blemgr/bmxact/central"
	"mynewt.apache.org/blemgr/bmxact/peripheral"
)

const testFixture = `
power: powered_on
adv_itvl: 5ms
conn_delay: 10ms
peers:
  - id: AA
    name: Watch
    rssi: -40
    adv_count: 4
  - id: BB
    rssi: -80
  - id: CC
    name: Lock
    fail_reason: Connection timed out
  - id: DD
    name: Beacon
    connectable: false
`

func loadTest(t *testing.T, yml string) Fixture {
	fx, err := ParseFixture([]byte(yml))
	require.NoError(t, err)
	return fx
}

func TestParseFixture(t *testing.T) {
	fx := loadTest(t, testFixture)

	assert.Equal(t, BLE_POWER_STATE_POWERED_ON, fx.Power)
	assert.Equal(t, 5*time.Millisecond, fx.AdvItvl)
	assert.Equal(t, 10*time.Millisecond, fx.ConnDelay)
	require.Len(t, fx.Peers, 4)

	assert.Equal(t, "Watch", *fx.Peers[0].Name)
	assert.Equal(t, 4, fx.Peers[0].advCount())
	assert.Nil(t, fx.Peers[1].Name)
	assert.Equal(t, 1, fx.Peers[1].advCount())
	assert.True(t, fx.Peers[2].connectable())
	assert.False(t, fx.Peers[3].connectable())
}

func TestParseFixtureGeneratesIds(t *testing.T) {
	fx := loadTest(t, "peers:\n  - name: a\n  - name: b\n")

	require.Len(t, fx.Peers, 2)
	assert.Len(t, fx.Peers[0].Id, 36)
	assert.NotEqual(t, fx.Peers[0].Id, fx.Peers[1].Id)

	// Power defaults to on.
	assert.Equal(t, BLE_POWER_STATE_POWERED_ON, fx.Power)
}

func TestParseFixtureErrors(t *testing.T) {
	_, err := ParseFixture([]byte("power: sideways\n"))
	assert.Error(t, err)

	_, err = ParseFixture([]byte("peers:\n  - id: x\n  - id: x\n"))
	assert.Error(t, err)
}

func TestParseFixtureSvcUuids(t *testing.T) {
	fx := loadTest(t, "peers:\n  - id: x\n    svc_uuids: [\"0x180d\"]\n")

	rpt := fx.Peers[0].report()
	assert.Equal(t, []BleUuid16{0x180d}, rpt.Fields.Uuids16)
	assert.True(t, rpt.Fields.Connectable)
}

func TestLoadFixture(t *testing.T) {
	dir, err := ioutil.TempDir("", "simradio")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "radio.yml")
	require.NoError(t, ioutil.WriteFile(path, []byte(testFixture), 0644))

	fx, err := LoadFixture(path)
	require.NoError(t, err)
	assert.Len(t, fx.Peers, 4)

	_, err = LoadFixture(filepath.Join(dir, "missing.yml"))
	assert.Error(t, err)
}

func TestDefaultFixture(t *testing.T) {
	fx := DefaultFixture()
	assert.NotEmpty(t, fx.Peers)
	assert.Equal(t, BLE_POWER_STATE_POWERED_ON, fx.Power)
}

func startConnector(t *testing.T, fx Fixture) (*central.Connector, *SimRadio) {
	r := NewSimRadio(fx)

	cfg := central.NewCfg()
	cfg.AutoScan = true

	c := central.NewConnector(r, cfg)
	require.NoError(t, c.Start())
	t.Cleanup(func() { c.Stop() })

	return c, r
}

func waitStatus(t *testing.T, c *central.Connector, status string) {
	assert.Eventually(t, func() bool {
		return c.Snapshot().Status == status
	}, 2*time.Second, 5*time.Millisecond, "status never became %q; last=%q",
		status, c.Snapshot().Status)
}

func waitDevices(t *testing.T, c *central.Connector, n int) {
	require.Eventually(t, func() bool {
		return len(c.Snapshot().Devices) == n
	}, 2*time.Second, 5*time.Millisecond)
}

func TestScanAndConnect(t *testing.T) {
	c, r := startConnector(t, loadTest(t, testFixture))
	waitDevices(t, c, 4)

	// Let the repeated advertisements from AA arrive.
	time.Sleep(50 * time.Millisecond)
	require.NoError(t, c.Sync())

	s := c.Snapshot()
	require.Len(t, s.Devices, 4)
	assert.Equal(t, "Watch", s.Devices[0].DisplayName())
	assert.Equal(t, "Device", s.Devices[1].DisplayName())

	require.NoError(t, c.Connect("AA"))
	assert.False(t, r.Scanning())
	waitStatus(t, c, "Connected to Watch")
	assert.True(t, r.Connected("AA"))

	r.Disconnect("AA", fmt.Errorf("link lost"))
	waitStatus(t, c, "Disconnected from Watch")
}

const slowConnFixture = `
adv_itvl: 5ms
conn_delay: 100ms
peers:
  - id: AA
    name: Watch
  - id: BB
    name: Lock
`

func TestReselectWhileConnecting(t *testing.T) {
	c, r := startConnector(t, loadTest(t, slowConnFixture))
	waitDevices(t, c, 2)

	require.NoError(t, c.Connect("AA"))
	require.NoError(t, c.Connect("BB"))
	require.NoError(t, c.Connect("AA"))

	waitStatus(t, c, "Connected to Watch")

	// Nothing late may undo the connection.
	time.Sleep(200 * time.Millisecond)
	require.NoError(t, r.Sync())
	require.NoError(t, c.Sync())

	s := c.Snapshot()
	assert.Equal(t, central.STATE_CONNECTED, s.State)
	assert.Equal(t, "Connected to Watch", s.Status)
	assert.True(t, r.Connected("AA"))
	assert.False(t, r.Connected("BB"))
}

func TestConnectFailReason(t *testing.T) {
	c, _ := startConnector(t, loadTest(t, testFixture))
	waitDevices(t, c, 4)

	require.NoError(t, c.Connect("CC"))
	waitStatus(t, c, "Failed to connect: Connection timed out")

	require.NoError(t, c.Connect("DD"))
	waitStatus(t, c, "Failed to connect: peer is not connectable")
}

func TestPowerCycle(t *testing.T) {
	c, r := startConnector(t, loadTest(t, testFixture))
	waitDevices(t, c, 4)

	r.SetPower(BLE_POWER_STATE_POWERED_OFF)
	waitStatus(t, c, "Bluetooth not available: powered_off")
	assert.Equal(t, central.STATE_UNINITIALIZED, c.Snapshot().State)
	assert.Error(t, c.Scan())

	r.SetPower(BLE_POWER_STATE_POWERED_ON)
	waitStatus(t, c, "Scanning...")
	waitDevices(t, c, 4)
}

func TestPoweredOffFixture(t *testing.T) {
	c, _ := startConnector(t, loadTest(t, "power: unsupported\n"))

	waitStatus(t, c, "Bluetooth not available: unsupported")
	assert.Error(t, c.Scan())
}

func TestAdvertise(t *testing.T) {
	r := NewSimRadio(loadTest(t, testFixture))
	a := peripheral.NewAdvertiser(r, peripheral.NewCfg())
	require.NoError(t, a.Start())
	defer a.Stop()

	require.Eventually(t, func() bool {
		return a.Status().Advertising
	}, 2*time.Second, 5*time.Millisecond)

	adv, name := r.Advertising()
	assert.True(t, adv)
	assert.Equal(t, "MyPeripheral", name)

	svcs := r.Services()
	require.Len(t, svcs, 1)
	assert.Equal(t, NewBleUuid16(0x1234), svcs[0].Uuid)
	assert.True(t, a.Status().SvcAdded)
}

func TestAdvertiseErrors(t *testing.T) {
	r := NewSimRadio(loadTest(t, "svc_add_err: no room\nadv_err: busy\n"))
	a := peripheral.NewAdvertiser(r, peripheral.NewCfg())
	require.NoError(t, a.Start())
	defer a.Stop()

	require.Eventually(t, func() bool {
		st := a.Status()
		return st.SvcErr != nil && st.AdvErr != nil
	}, 2*time.Second, 5*time.Millisecond)

	st := a.Status()
	assert.False(t, st.Advertising)
	assert.EqualError(t, st.SvcErr, "no room")
	assert.EqualError(t, st.AdvErr, "busy")
	assert.Empty(t, r.Services())
}
