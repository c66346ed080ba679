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

// Package simradio implements an in-memory radio stack.  Peers are described
// by a fixture; all notifications are delivered asynchronously on a single
// goroutine, in the order the simulated events occur.
package simradio

import (
	"fmt"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	. "mynewt.apache.org/blemgr/bmxact/bledefs"
	"mynewt.apache.org/blemgr/bmxact/bmxutil"
	"mynewt.apache.org/blemgr/bmxact/radio"
	"mynewt.apache.org/blemgr/bmxact/task"
)

type SimRadio struct {
	fx Fixture
	q  *task.TaskQueue

	ch radio.CentralHandlers
	ph radio.PeripheralHandlers

	mtx         sync.Mutex
	power       BlePowerState
	scanStop    chan struct{}
	scanWg      sync.WaitGroup
	pending     map[BlePeerId]*time.Timer
	connected   map[BlePeerId]struct{}
	svcs        []BleSvc
	advertising bool
	localName   string
}

func NewSimRadio(fx Fixture) *SimRadio {
	return &SimRadio{
		fx:        fx,
		q:         task.NewTaskQueue("simradio"),
		power:     BLE_POWER_STATE_UNKNOWN,
		pending:   map[BlePeerId]*time.Timer{},
		connected: map[BlePeerId]struct{}{},
	}
}

func (r *SimRadio) SetCentralHandlers(h radio.CentralHandlers) {
	r.ch = h
}

func (r *SimRadio) SetPeripheralHandlers(h radio.PeripheralHandlers) {
	r.ph = h
}

// Queues a notification for delivery.
func (r *SimRadio) deliver(fn func()) {
	r.q.Enqueue(func() error {
		fn()
		return nil
	})
}

func (r *SimRadio) deliverPower(state BlePowerState) {
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

func (r *SimRadio) Start() error {
	if err := r.q.Start(); err != nil {
		return err
	}

	r.SetPower(r.fx.Power)
	return nil
}

func (r *SimRadio) Stop() error {
	r.StopScan()
	r.scanWg.Wait()

	r.mtx.Lock()
	for peer, t := range r.pending {
		t.Stop()
		delete(r.pending, peer)
	}
	r.mtx.Unlock()

	return r.q.Stop(fmt.Errorf("radio stopped"))
}

// Changes the simulated power state.  Leaving the powered-on state drops
// every scan, connection, and advertisement.
func (r *SimRadio) SetPower(state BlePowerState) {
	r.mtx.Lock()
	r.power = state
	if state != BLE_POWER_STATE_POWERED_ON {
		if r.scanStop != nil {
			close(r.scanStop)
			r.scanStop = nil
		}
		for peer, t := range r.pending {
			t.Stop()
			delete(r.pending, peer)
		}
		r.connected = map[BlePeerId]struct{}{}
		r.advertising = false
	}
	r.mtx.Unlock()

	log.Debugf("simradio: power %s", state.String())
	r.deliverPower(state)
}

// Must be called with the mutex held.
func (r *SimRadio) checkPower() error {
	if r.power != BLE_POWER_STATE_POWERED_ON {
		return bmxutil.NewRadioUnavailableError(r.power)
	}
	return nil
}

func (r *SimRadio) findPeer(peer BlePeerId) *FixturePeer {
	for i := range r.fx.Peers {
		if BlePeerId(r.fx.Peers[i].Id) == peer {
			return &r.fx.Peers[i]
		}
	}

	return nil
}

func (r *SimRadio) StartScan(cfg radio.ScanCfg) error {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	if err := r.checkPower(); err != nil {
		return err
	}

	// Starting while a scan is active restarts it.
	if r.scanStop != nil {
		close(r.scanStop)
	}
	stop := make(chan struct{})
	r.scanStop = stop

	r.scanWg.Add(1)
	go func() {
		defer r.scanWg.Done()
		r.scan(cfg, stop)
	}()

	return nil
}

func (r *SimRadio) scan(cfg radio.ScanCfg, stop chan struct{}) {
	rounds := 0
	for i := range r.fx.Peers {
		if n := r.fx.Peers[i].advCount(); n > rounds {
			rounds = n
		}
	}

	for round := 0; round < rounds; round++ {
		for i := range r.fx.Peers {
			p := &r.fx.Peers[i]
			// Repeats are reported regardless of AllowDuplicates; a real
			// stack's duplicate filter is not reliable either.
			if round >= p.advCount() {
				continue
			}

			rpt := p.report()
			if !radio.ScanCfgMatches(cfg, rpt) {
				continue
			}

			select {
			case <-stop:
				return
			default:
			}

			r.deliver(func() {
				if r.ch.OnDiscover != nil {
					r.ch.OnDiscover(radio.DiscoverEvent{Report: rpt})
				}
			})
		}

		select {
		case <-stop:
			return
		case <-time.After(r.fx.AdvItvl):
		}
	}
}

func (r *SimRadio) StopScan() error {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	if r.scanStop != nil {
		close(r.scanStop)
		r.scanStop = nil
	}

	return nil
}

func (r *SimRadio) Scanning() bool {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	return r.scanStop != nil
}

func (r *SimRadio) connectFail(peer BlePeerId, err error) {
	r.deliver(func() {
		if r.ch.OnConnectFail != nil {
			r.ch.OnConnectFail(radio.ConnectFailEvent{Peer: peer, Err: err})
		}
	})
}

func (r *SimRadio) Connect(peer BlePeerId) error {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	if err := r.checkPower(); err != nil {
		return err
	}

	if _, ok := r.pending[peer]; ok {
		return bmxutil.NewAlreadyError(
			fmt.Sprintf("connection to %s already pending", peer))
	}

	p := r.findPeer(peer)

	var t *time.Timer
	t = time.AfterFunc(r.fx.ConnDelay, func() {
		r.mtx.Lock()
		defer r.mtx.Unlock()

		if r.pending[peer] != t {
			// Cancelled.
			return
		}
		delete(r.pending, peer)

		switch {
		case p == nil:
			r.connectFail(peer, fmt.Errorf("peer not found"))

		case p.FailReason != "":
			r.connectFail(peer, fmt.Errorf("%s", p.FailReason))

		case !p.connectable():
			r.connectFail(peer, fmt.Errorf("peer is not connectable"))

		default:
			r.connected[peer] = struct{}{}
			r.deliver(func() {
				if r.ch.OnConnect != nil {
					r.ch.OnConnect(radio.ConnectEvent{Peer: peer})
				}
			})
		}
	})
	r.pending[peer] = t

	return nil
}

func (r *SimRadio) CancelConnect(peer BlePeerId) error {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	if t, ok := r.pending[peer]; ok {
		t.Stop()
		delete(r.pending, peer)
		r.connectFail(peer, fmt.Errorf("connection cancelled"))
		return nil
	}

	if _, ok := r.connected[peer]; ok {
		delete(r.connected, peer)
		r.deliver(func() {
			if r.ch.OnDisconnect != nil {
				r.ch.OnDisconnect(radio.DisconnectEvent{Peer: peer})
			}
		})
	}

	return nil
}

// Simulates a link loss initiated by the peer.
func (r *SimRadio) Disconnect(peer BlePeerId, reason error) {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	if _, ok := r.connected[peer]; !ok {
		return
	}
	delete(r.connected, peer)

	r.deliver(func() {
		if r.ch.OnDisconnect != nil {
			r.ch.OnDisconnect(radio.DisconnectEvent{Peer: peer, Err: reason})
		}
	})
}

func (r *SimRadio) Connected(peer BlePeerId) bool {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	_, ok := r.connected[peer]
	return ok
}

func (r *SimRadio) AddService(svc BleSvc) error {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	if err := r.checkPower(); err != nil {
		return err
	}

	var err error
	if r.fx.SvcAddErr != "" {
		err = fmt.Errorf("%s", r.fx.SvcAddErr)
	} else {
		r.svcs = append(r.svcs, svc)
	}

	ev := radio.SvcAddEvent{Svc: svc.Uuid, Err: err}
	r.deliver(func() {
		if r.ph.OnSvcAdd != nil {
			r.ph.OnSvcAdd(ev)
		}
	})

	return nil
}

func (r *SimRadio) StartAdvertising(cfg radio.AdvCfg) error {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	if err := r.checkPower(); err != nil {
		return err
	}

	var err error
	if r.fx.AdvErr != "" {
		err = fmt.Errorf("%s", r.fx.AdvErr)
	} else {
		r.advertising = true
		r.localName = cfg.LocalName
	}

	ev := radio.AdvStartEvent{Err: err}
	r.deliver(func() {
		if r.ph.OnAdvStart != nil {
			r.ph.OnAdvStart(ev)
		}
	})

	return nil
}

func (r *SimRadio) Services() []BleSvc {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	return append([]BleSvc(nil), r.svcs...)
}

// Returns whether the radio is advertising, and under which name.
func (r *SimRadio) Advertising() (bool, string) {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	return r.advertising, r.localName
}

// Blocks until every notification queued so far has been delivered.
func (r *SimRadio) Sync() error {
	return r.q.Sync()
}
