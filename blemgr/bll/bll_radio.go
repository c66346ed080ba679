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

//go:build linux || darwin

package bll

import (
	"fmt"
	"sync"

	"github.com/JuulLabs-OSS/ble"
	"github.com/JuulLabs-OSS/ble/examples/lib/dev"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"golang.org/x/net/context"

	"mynewt.apache.org/blemgr/blemgr/bmutil"
	. "mynewt.apache.org/blemgr/bmxact/bledefs"
	"mynewt.apache.org/blemgr/bmxact/bmxutil"
	"mynewt.apache.org/blemgr/bmxact/radio"
	"mynewt.apache.org/blemgr/bmxact/task"
)

type bllConn struct {
	cancel context.CancelFunc
	cln    ble.Client

	// Set when the radio lost power; no outcome is reported.
	abandoned bool
}

// Radio stack backed by the host's native BLE support.
type BllRadio struct {
	cfg XportCfg
	q   *task.TaskQueue

	ch radio.CentralHandlers
	ph radio.PeripheralHandlers

	mtx        sync.Mutex
	dev        ble.Device
	power      BlePowerState
	scanCancel context.CancelFunc
	advCancel  context.CancelFunc
	conns      map[BlePeerId]*bllConn
	wg         sync.WaitGroup
}

func NewBllRadio(cfg XportCfg) *BllRadio {
	return &BllRadio{
		cfg:   cfg,
		q:     task.NewTaskQueue("bll"),
		power: BLE_POWER_STATE_UNKNOWN,
		conns: map[BlePeerId]*bllConn{},
	}
}

func (r *BllRadio) SetCentralHandlers(h radio.CentralHandlers) {
	r.ch = h
}

func (r *BllRadio) SetPeripheralHandlers(h radio.PeripheralHandlers) {
	r.ph = h
}

func (r *BllRadio) deliver(fn func()) {
	r.q.Enqueue(func() error {
		fn()
		return nil
	})
}

func (r *BllRadio) setPower(state BlePowerState) {
	r.mtx.Lock()
	r.power = state
	if state != BLE_POWER_STATE_POWERED_ON {
		r.abandonAll()
	}
	r.mtx.Unlock()

	ev := radio.PowerEvent{State: state}
	r.deliver(func() {
		if r.ch.OnPower != nil {
			r.ch.OnPower(ev)
		}
		if r.ph.OnPower != nil {
			r.ph.OnPower(ev)
		}
	})
}

func (r *BllRadio) Start() error {
	if err := r.q.Start(); err != nil {
		return err
	}

	d, err := dev.NewDevice(r.cfg.CtlrName, deviceOpts(r.cfg)...)
	if err != nil {
		// Report the radio as unusable rather than failing outright; the
		// state machines surface this as "Bluetooth not available".
		log.Errorf("bll: %s",
			errors.Wrap(err, "failed to open BLE controller").Error())
		r.setPower(BLE_POWER_STATE_UNSUPPORTED)
		return nil
	}

	r.mtx.Lock()
	r.dev = d
	r.mtx.Unlock()

	if r.cfg.Power == nil {
		r.setPower(BLE_POWER_STATE_POWERED_ON)
		return nil
	}

	if err := r.cfg.Power.Start(r.setPower); err != nil {
		log.Warnf("bll: power state unavailable (%s); assuming powered on",
			err.Error())
		r.cfg.Power = nil
		r.setPower(BLE_POWER_STATE_POWERED_ON)
	}

	return nil
}

func (r *BllRadio) Stop() error {
	r.mtx.Lock()
	if r.scanCancel != nil {
		r.scanCancel()
		r.scanCancel = nil
	}
	if r.advCancel != nil {
		r.advCancel()
		r.advCancel = nil
	}
	for peer, c := range r.conns {
		c.cancel()
		if c.cln != nil {
			c.cln.CancelConnection()
		}
		delete(r.conns, peer)
	}
	d := r.dev
	r.dev = nil
	r.mtx.Unlock()

	r.wg.Wait()

	if r.cfg.Power != nil {
		r.cfg.Power.Stop()
	}

	var err error
	if d != nil {
		err = d.Stop()
	}

	r.q.Stop(fmt.Errorf("BLE radio stopped"))
	return err
}

// Drops every attempt and link without reporting outcomes.  Must be called
// with the mutex held.
func (r *BllRadio) abandonAll() {
	if r.scanCancel != nil {
		r.scanCancel()
		r.scanCancel = nil
	}

	for peer, c := range r.conns {
		c.abandoned = true
		c.cancel()
		if c.cln != nil {
			c.cln.CancelConnection()
		}
		delete(r.conns, peer)
	}
}

// Must be called with the mutex held.
func (r *BllRadio) device() (ble.Device, error) {
	if r.dev == nil || r.power != BLE_POWER_STATE_POWERED_ON {
		return nil, bmxutil.NewRadioUnavailableError(r.power)
	}

	return r.dev, nil
}

func (r *BllRadio) StartScan(cfg radio.ScanCfg) error {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	d, err := r.device()
	if err != nil {
		return err
	}

	// Starting while a scan is active restarts it.
	if r.scanCancel != nil {
		r.scanCancel()
	}

	ctx, cancel := context.WithCancel(context.Background())
	r.scanCancel = cancel

	h := func(a ble.Advertisement) {
		rpt := AdvReportFromBll(a)
		if !radio.ScanCfgMatches(cfg, rpt) {
			return
		}

		r.deliver(func() {
			if r.ch.OnDiscover != nil {
				r.ch.OnDiscover(radio.DiscoverEvent{Report: rpt})
			}
		})
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()

		err := d.Scan(ctx, cfg.AllowDuplicates, h)
		if err != nil && !bmutil.ErrorCausedBy(err, context.Canceled) {
			log.Errorf("bll: scan terminated: %s", err.Error())
		}
	}()

	return nil
}

func (r *BllRadio) StopScan() error {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	if r.scanCancel != nil {
		r.scanCancel()
		r.scanCancel = nil
	}

	return nil
}

func (r *BllRadio) Connect(peer BlePeerId) error {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	d, err := r.device()
	if err != nil {
		return err
	}

	if _, ok := r.conns[peer]; ok {
		return bmxutil.NewAlreadyError(
			fmt.Sprintf("connection to %s already in progress", peer))
	}

	ctx, cancel := context.WithTimeout(context.Background(),
		r.cfg.ConnTimeout)
	c := &bllConn{cancel: cancel}
	r.conns[peer] = c

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.dial(d, ctx, peer, c)
	}()

	return nil
}

func (r *BllRadio) dial(d ble.Device, ctx context.Context, peer BlePeerId,
	c *bllConn) {

	log.Debugf("bll: connecting to %s", peer)
	cln, err := d.Dial(ctx, ble.NewAddr(string(peer)))

	r.mtx.Lock()
	defer r.mtx.Unlock()

	if r.conns[peer] != c {
		// Cancelled while dialing.
		if cln != nil {
			cln.CancelConnection()
		}
		if !c.abandoned {
			r.connectFail(peer, fmt.Errorf("connection cancelled"))
		}
		return
	}

	if err != nil {
		delete(r.conns, peer)
		c.cancel()

		if bmutil.ErrorCausedBy(err, context.DeadlineExceeded) {
			err = fmt.Errorf("connection timed out")
		}
		r.connectFail(peer, err)
		return
	}

	c.cln = cln
	r.deliver(func() {
		if r.ch.OnConnect != nil {
			r.ch.OnConnect(radio.ConnectEvent{Peer: peer})
		}
	})

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		<-cln.Disconnected()

		r.mtx.Lock()
		defer r.mtx.Unlock()

		if r.conns[peer] != c {
			return
		}
		delete(r.conns, peer)
		c.cancel()

		log.Debugf("bll: %s disconnected", peer)
		r.deliver(func() {
			if r.ch.OnDisconnect != nil {
				r.ch.OnDisconnect(radio.DisconnectEvent{Peer: peer})
			}
		})
	}()
}

func (r *BllRadio) connectFail(peer BlePeerId, err error) {
	r.deliver(func() {
		if r.ch.OnConnectFail != nil {
			r.ch.OnConnectFail(radio.ConnectFailEvent{Peer: peer, Err: err})
		}
	})
}

func (r *BllRadio) CancelConnect(peer BlePeerId) error {
	r.mtx.Lock()
	c := r.conns[peer]
	delete(r.conns, peer)
	r.mtx.Unlock()

	if c == nil {
		return nil
	}

	c.cancel()
	if c.cln != nil {
		if err := c.cln.CancelConnection(); err != nil {
			return errors.Wrapf(err, "failed to disconnect from %s", peer)
		}
	}

	return nil
}

func (r *BllRadio) AddService(svc BleSvc) error {
	r.mtx.Lock()
	d, err := r.device()
	r.mtx.Unlock()

	if err != nil {
		return err
	}

	err = d.AddService(BllSvcFromSvc(svc))
	if err != nil {
		err = errors.Wrapf(err, "failed to add service %s", svc.Uuid.String())
	}

	ev := radio.SvcAddEvent{Svc: svc.Uuid, Err: err}
	r.deliver(func() {
		if r.ph.OnSvcAdd != nil {
			r.ph.OnSvcAdd(ev)
		}
	})

	return nil
}

func (r *BllRadio) StartAdvertising(cfg radio.AdvCfg) error {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	d, err := r.device()
	if err != nil {
		return err
	}

	if r.advCancel != nil {
		return bmxutil.NewAlreadyError("already advertising")
	}

	uuids := make([]ble.UUID, len(cfg.SvcUuids))
	for i, u := range cfg.SvcUuids {
		uuids[i] = BllUuidFromUuid(u)
	}

	ctx, cancel := context.WithCancel(context.Background())
	r.advCancel = cancel

	errCh := make(chan error, 1)
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		errCh <- d.AdvertiseNameAndServices(ctx, cfg.LocalName, uuids...)
	}()

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()

		report, err := advStartOutcome(errCh, r.cfg.AdvSettle)
		if !report {
			return
		}

		r.deliver(func() {
			if r.ph.OnAdvStart != nil {
				r.ph.OnAdvStart(radio.AdvStartEvent{Err: err})
			}
		})

		if err == nil {
			if err := <-errCh; err != nil &&
				!bmutil.ErrorCausedBy(err, context.Canceled) {

				log.Errorf("bll: advertising stopped: %s", err.Error())
			}
		}
	}()

	return nil
}

// Builds a native service definition.  Readable characteristics serve their
// fixed value; notify subscriptions are accepted and held open until the
// subscriber leaves.
func BllSvcFromSvc(svc BleSvc) *ble.Service {
	bs := ble.NewService(BllUuidFromUuid(svc.Uuid))

	for _, chr := range svc.Chrs {
		c := bs.NewCharacteristic(BllUuidFromUuid(chr.Uuid))

		if chr.Flags&BLE_GATT_F_READ != 0 {
			value := chr.Value
			c.HandleRead(ble.ReadHandlerFunc(
				func(req ble.Request, rsp ble.ResponseWriter) {
					rsp.Write(value)
				}))
		}

		if chr.Flags&BLE_GATT_F_NOTIFY != 0 {
			uuid := chr.Uuid
			c.HandleNotify(ble.NotifyHandlerFunc(
				func(req ble.Request, n ble.Notifier) {
					log.Debugf("bll: subscription on %s", uuid.String())
					<-n.Context().Done()
				}))
		}
	}

	return bs
}
