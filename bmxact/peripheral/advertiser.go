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

	log "github.com/sirupsen/logrus"

	. "mynewt.apache.org/blemgr/bmxact/bledefs"
	"mynewt.apache.org/blemgr/bmxact/bmxutil"
	"mynewt.apache.org/blemgr/bmxact/radio"
)

type Cfg struct {
	SvcUuid   BleUuid
	ChrUuid   BleUuid
	LocalName string
}

func NewCfg() Cfg {
	return Cfg{
		SvcUuid:   NewBleUuid16(DemoSvcUuid),
		ChrUuid:   NewBleUuid16(DemoChrUuid),
		LocalName: DemoLocalName,
	}
}

type Status struct {
	Advertising bool
	Power       BlePowerState

	// Nil until the service has been submitted.
	Svc *BleSvc

	// Outcomes reported by the radio stack.
	SvcAdded   bool
	SvcErr     error
	AdvStarted bool
	AdvErr     error
}

// Publishes one service and advertises it under a fixed local name once the
// radio powers on.
type Advertiser struct {
	cfg Cfg
	rp  radio.Peripheral

	bcast bmxutil.Bcaster

	mtx    sync.Mutex
	status Status
}

func NewAdvertiser(rp radio.Peripheral, cfg Cfg) *Advertiser {
	return &Advertiser{
		cfg: cfg,
		rp:  rp,
		status: Status{
			Power: BLE_POWER_STATE_UNKNOWN,
		},
	}
}

// Builds the single service definition: one primary service holding one
// readable characteristic with read and notify capability and no fixed
// value.
func BuildSvc(cfg Cfg) BleSvc {
	return BleSvc{
		Uuid:    cfg.SvcUuid,
		SvcType: BLE_SVC_TYPE_PRIMARY,
		Chrs: []BleChr{
			{
				Uuid:     cfg.ChrUuid,
				Flags:    BLE_GATT_F_READ | BLE_GATT_F_NOTIFY,
				AttFlags: BLE_ATT_F_READ,
			},
		},
	}
}

func (a *Advertiser) Start() error {
	a.rp.SetPeripheralHandlers(radio.PeripheralHandlers{
		OnPower:    a.onPower,
		OnSvcAdd:   a.onSvcAdd,
		OnAdvStart: a.onAdvStart,
	})

	return a.rp.Start()
}

func (a *Advertiser) Stop() error {
	err := a.rp.Stop()
	a.bcast.Clear()
	return err
}

func (a *Advertiser) Status() Status {
	a.mtx.Lock()
	defer a.mtx.Unlock()

	return a.status
}

// Returns a channel that receives a Status after every change.
func (a *Advertiser) Listen() chan interface{} {
	return a.bcast.Listen()
}

func (a *Advertiser) Unlisten(ch chan interface{}) {
	a.bcast.Unlisten(ch)
}

// Must be called with the mutex held.
func (a *Advertiser) publish() {
	a.bcast.Send(a.status)
}

func (a *Advertiser) onPower(ev radio.PowerEvent) {
	a.mtx.Lock()
	defer a.mtx.Unlock()

	a.status.Power = ev.State
	a.publish()

	if ev.State != BLE_POWER_STATE_POWERED_ON {
		log.Infof("peripheral: Bluetooth not available: %s", ev.State.String())
		return
	}

	if a.status.Svc != nil {
		// Already set up during an earlier power-on.
		return
	}

	svc := BuildSvc(a.cfg)
	a.status.Svc = &svc

	if err := a.rp.AddService(svc); err != nil {
		log.Errorf("peripheral: failed to submit service %s: %s",
			svc.Uuid.String(), err.Error())
	}

	advCfg := radio.AdvCfg{
		SvcUuids:  []BleUuid{svc.Uuid},
		LocalName: a.cfg.LocalName,
	}
	if err := a.rp.StartAdvertising(advCfg); err != nil {
		log.Errorf("peripheral: failed to submit advertise request: %s",
			err.Error())
	}
}

func (a *Advertiser) onSvcAdd(ev radio.SvcAddEvent) {
	a.mtx.Lock()
	defer a.mtx.Unlock()

	a.status.SvcAdded = ev.Err == nil
	a.status.SvcErr = ev.Err
	a.publish()

	if ev.Err != nil {
		log.Errorf("peripheral: error adding service %s: %s",
			ev.Svc.String(), ev.Err.Error())
	} else {
		log.Infof("peripheral: service added: %s", ev.Svc.String())
	}
}

func (a *Advertiser) onAdvStart(ev radio.AdvStartEvent) {
	a.mtx.Lock()
	defer a.mtx.Unlock()

	a.status.AdvErr = ev.Err
	if ev.Err != nil {
		log.Errorf("peripheral: error starting advertising: %s",
			ev.Err.Error())
	} else {
		// There is no transition back to not-advertising.
		a.status.Advertising = true
		a.status.AdvStarted = true
		log.Infof("peripheral: advertising as \"%s\"", a.cfg.LocalName)
	}

	a.publish()
}

func (s Status) String() string {
	adv := "not advertising"
	if s.Advertising {
		adv = "advertising"
	}

	svc := "none"
	if s.Svc != nil {
		svc = s.Svc.Uuid.String()
	}

	return fmt.Sprintf("%s (power=%s svc=%s)", adv, s.Power.String(), svc)
}
