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

package peripheral

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mynewt.apache.org/blemgr/bmxact/bledefs"
	"mynewt.apache.org/blemgr/bmxact/radio"
)

type fakePeripheral struct {
	mtx  sync.Mutex
	h    radio.PeripheralHandlers
	svcs []bledefs.BleSvc
	advs []radio.AdvCfg
}

func (f *fakePeripheral) Start() error { return nil }
func (f *fakePeripheral) Stop() error  { return nil }

func (f *fakePeripheral) SetPeripheralHandlers(h radio.PeripheralHandlers) {
	f.h = h
}

func (f *fakePeripheral) AddService(svc bledefs.BleSvc) error {
	f.mtx.Lock()
	defer f.mtx.Unlock()

	f.svcs = append(f.svcs, svc)
	return nil
}

func (f *fakePeripheral) StartAdvertising(cfg radio.AdvCfg) error {
	f.mtx.Lock()
	defer f.mtx.Unlock()

	f.advs = append(f.advs, cfg)
	return nil
}

func startAdvertiser(t *testing.T) (*Advertiser, *fakePeripheral) {
	fp := &fakePeripheral{}
	a := NewAdvertiser(fp, NewCfg())
	require.NoError(t, a.Start())

	return a, fp
}

func TestNothingBeforePowerOn(t *testing.T) {
	a, fp := startAdvertiser(t)

	fp.h.OnPower(radio.PowerEvent{State: bledefs.BLE_POWER_STATE_UNAUTHORIZED})

	assert.Empty(t, fp.svcs)
	assert.Empty(t, fp.advs)

	st := a.Status()
	assert.False(t, st.Advertising)
	assert.Nil(t, st.Svc)
	assert.Equal(t, bledefs.BLE_POWER_STATE_UNAUTHORIZED, st.Power)
}

func TestPowerOnPublishes(t *testing.T) {
	a, fp := startAdvertiser(t)

	fp.h.OnPower(radio.PowerEvent{State: bledefs.BLE_POWER_STATE_POWERED_ON})

	require.Len(t, fp.svcs, 1)
	svc := fp.svcs[0]
	assert.Equal(t, bledefs.NewBleUuid16(0x1234), svc.Uuid)
	assert.Equal(t, bledefs.BLE_SVC_TYPE_PRIMARY, svc.SvcType)

	require.Len(t, svc.Chrs, 1)
	chr := svc.Chrs[0]
	assert.Equal(t, bledefs.NewBleUuid16(0xabcd), chr.Uuid)
	assert.Equal(t, "read|notify", chr.Flags.String())
	assert.Equal(t, bledefs.BLE_ATT_F_READ, chr.AttFlags)
	assert.Nil(t, chr.Value)

	require.Len(t, fp.advs, 1)
	assert.Equal(t, "MyPeripheral", fp.advs[0].LocalName)
	assert.Equal(t, []bledefs.BleUuid{bledefs.NewBleUuid16(0x1234)},
		fp.advs[0].SvcUuids)

	// Nothing is advertising until the stack says so.
	assert.False(t, a.Status().Advertising)
}

func TestOutcomesIndependent(t *testing.T) {
	a, fp := startAdvertiser(t)
	fp.h.OnPower(radio.PowerEvent{State: bledefs.BLE_POWER_STATE_POWERED_ON})

	fp.h.OnSvcAdd(radio.SvcAddEvent{
		Svc: bledefs.NewBleUuid16(0x1234),
		Err: fmt.Errorf("database full"),
	})
	fp.h.OnAdvStart(radio.AdvStartEvent{})

	st := a.Status()
	assert.False(t, st.SvcAdded)
	assert.EqualError(t, st.SvcErr, "database full")
	assert.True(t, st.Advertising)
	assert.True(t, st.AdvStarted)
	assert.NoError(t, st.AdvErr)
}

func TestAdvertiseFailure(t *testing.T) {
	a, fp := startAdvertiser(t)
	fp.h.OnPower(radio.PowerEvent{State: bledefs.BLE_POWER_STATE_POWERED_ON})

	fp.h.OnSvcAdd(radio.SvcAddEvent{Svc: bledefs.NewBleUuid16(0x1234)})
	fp.h.OnAdvStart(radio.AdvStartEvent{Err: fmt.Errorf("busy")})

	st := a.Status()
	assert.True(t, st.SvcAdded)
	assert.False(t, st.Advertising)
	assert.EqualError(t, st.AdvErr, "busy")
}

func TestNoPathBack(t *testing.T) {
	a, fp := startAdvertiser(t)
	fp.h.OnPower(radio.PowerEvent{State: bledefs.BLE_POWER_STATE_POWERED_ON})
	fp.h.OnAdvStart(radio.AdvStartEvent{})

	fp.h.OnPower(radio.PowerEvent{State: bledefs.BLE_POWER_STATE_POWERED_OFF})
	fp.h.OnAdvStart(radio.AdvStartEvent{Err: fmt.Errorf("late")})
	assert.True(t, a.Status().Advertising)

	// The service definition is built once.
	fp.h.OnPower(radio.PowerEvent{State: bledefs.BLE_POWER_STATE_POWERED_ON})
	assert.Len(t, fp.svcs, 1)
	assert.Len(t, fp.advs, 1)
}

func TestListen(t *testing.T) {
	a, fp := startAdvertiser(t)
	ch := a.Listen()

	fp.h.OnPower(radio.PowerEvent{State: bledefs.BLE_POWER_STATE_POWERED_ON})
	fp.h.OnAdvStart(radio.AdvStartEvent{})

	st := (<-ch).(Status)
	assert.True(t, st.Advertising)
	assert.Equal(t, "advertising (power=powered_on svc=0x1234)", st.String())

	require.NoError(t, a.Stop())
	_, ok := <-ch
	assert.False(t, ok)
}
