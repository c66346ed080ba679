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

package central

import (
	"fmt"
	"sync"

	log "github.com/sirupsen/logrus"

	. "mynewt.apache.org/blemgr/bmxact/bledefs"
	"mynewt.apache.org/blemgr/bmxact/bmxutil"
	"mynewt.apache.org/blemgr/bmxact/radio"
	"mynewt.apache.org/blemgr/bmxact/task"
)

type Cfg struct {
	Scan radio.ScanCfg

	// Start scanning as soon as the radio powers on.
	AutoScan bool

	// Called after a connection attempt fails.  No retry is performed by
	// the connector; a caller wanting one can issue Connect from a separate
	// goroutine.
	OnConnectFail func(dev DiscoveredDevice, err error)
}

func NewCfg() Cfg {
	return Cfg{
		Scan: radio.NewScanCfg(),
	}
}

// Scanner/Connector.  Discovers peers, keeps a deduplicated device list, and
// manages a single connection attempt.  All state transitions run on one
// task queue, so radio notifications and operator requests are never
// processed concurrently.
type Connector struct {
	cfg   Cfg
	rc    radio.Central
	q     *task.TaskQueue
	bcast bmxutil.Bcaster

	// Only accessed from the task queue.
	snap Snapshot

	// Published copy of snap.
	pub    Snapshot
	pubMtx sync.Mutex
}

func NewConnector(rc radio.Central, cfg Cfg) *Connector {
	c := &Connector{
		cfg:  cfg,
		rc:   rc,
		q:    task.NewTaskQueue("central"),
		snap: NewSnapshot(),
	}
	c.pub = c.snap.Copy()

	return c
}

func (c *Connector) post(ev interface{}) {
	c.q.Enqueue(func() error {
		c.apply(ev)
		return nil
	})
}

func (c *Connector) Start() error {
	if err := c.q.Start(); err != nil {
		return err
	}

	c.rc.SetCentralHandlers(radio.CentralHandlers{
		OnPower:       func(ev radio.PowerEvent) { c.post(ev) },
		OnDiscover:    func(ev radio.DiscoverEvent) { c.post(ev) },
		OnConnect:     func(ev radio.ConnectEvent) { c.post(ev) },
		OnConnectFail: func(ev radio.ConnectFailEvent) { c.post(ev) },
		OnDisconnect:  func(ev radio.DisconnectEvent) { c.post(ev) },
	})

	if err := c.rc.Start(); err != nil {
		c.q.Stop(err)
		return err
	}

	return nil
}

func (c *Connector) Stop() error {
	err := c.rc.Stop()
	c.q.Stop(fmt.Errorf("central stopped"))
	c.bcast.Clear()

	return err
}

// Starts a new scan session, discarding prior discovery results.  Returns
// once the request has been handed to the radio stack.
func (c *Connector) Scan() error {
	return c.q.Run(func() error {
		return c.apply(ScanReq{})
	})
}

// Stops any scan in progress and attempts to connect to the specified peer,
// which must be in the current device list.  Returns once the request has
// been handed to the radio stack; the outcome is reported through the
// snapshot status.
func (c *Connector) Connect(peer BlePeerId) error {
	return c.q.Run(func() error {
		return c.apply(ConnectReq{Peer: peer})
	})
}

// Waits until all notifications received so far have been processed.
func (c *Connector) Sync() error {
	return c.q.Sync()
}

// Returns a copy of the current state.
func (c *Connector) Snapshot() Snapshot {
	c.pubMtx.Lock()
	defer c.pubMtx.Unlock()

	return c.pub.Copy()
}

// Returns a channel that receives a Snapshot after every state change.  A
// slow reader only sees the most recent snapshot.
func (c *Connector) Listen() chan interface{} {
	return c.bcast.Listen()
}

func (c *Connector) Unlisten(ch chan interface{}) {
	c.bcast.Unlisten(ch)
}

func (c *Connector) setSnap(s Snapshot) {
	prev := c.snap
	c.snap = s

	if !changed(&prev, &s) {
		return
	}

	if prev.Status != s.Status {
		log.Debugf("central: %s (%s)", s.Status, s.State.String())
	}

	pub := s.Copy()

	c.pubMtx.Lock()
	c.pub = pub
	c.pubMtx.Unlock()

	c.bcast.Send(pub.Copy())
}

// Must be called from the task queue.
func (c *Connector) apply(ev interface{}) error {
	prev := c.snap

	next, effs, err := Reduce(prev, ev)
	c.setSnap(next)
	if err != nil {
		log.Debugf("central: request rejected: %s", err.Error())
		return err
	}

	switch e := ev.(type) {
	case radio.ConnectFailEvent:
		if prev.Owed(e.Peer) == 0 {
			c.connectFailed(&prev, e.Peer, e.Err)
		}

	case connectRejected:
		c.connectFailed(&prev, e.Peer, e.Err)
	}

	for _, eff := range effs {
		c.execute(eff)
	}

	if pe, ok := ev.(radio.PowerEvent); ok {
		if pe.State != BLE_POWER_STATE_POWERED_ON {
			log.Infof("central: Bluetooth not available: %s", pe.State.String())
		} else if c.cfg.AutoScan && prev.State == STATE_UNINITIALIZED {
			return c.apply(ScanReq{})
		}
	}

	return nil
}

// Reports the failure of the attempt pending in prev, if it is for peer.
func (c *Connector) connectFailed(prev *Snapshot, peer BlePeerId, err error) {
	if !pendingFor(prev, peer) {
		return
	}

	reason := "Unknown error"
	if err != nil {
		reason = err.Error()
	}
	log.Infof("central: failed to connect to %s: %s", peer, reason)

	if c.cfg.OnConnectFail != nil {
		dev, _ := prev.Device(peer)
		c.cfg.OnConnectFail(dev, err)
	}
}

func (c *Connector) execute(eff Effect) {
	log.Debugf("central: issuing %s", eff.String())

	var err error
	switch eff.Type {
	case EFFECT_START_SCAN:
		err = c.rc.StartScan(c.cfg.Scan)
		if err != nil {
			s := c.snap.Copy()
			s.State = STATE_IDLE
			s.Status = fmt.Sprintf("Failed to start scan: %s", err.Error())
			c.setSnap(s)
		}

	case EFFECT_STOP_SCAN:
		err = c.rc.StopScan()

	case EFFECT_CONNECT:
		err = c.rc.Connect(eff.Peer)
		if err != nil {
			// The request never reached the stack, so no outcome will
			// follow.
			c.apply(connectRejected{Peer: eff.Peer, Err: err})
		}

	case EFFECT_CANCEL_CONNECT:
		err = c.rc.CancelConnect(eff.Peer)
	}

	if err != nil {
		log.Errorf("central: %s failed: %s", eff.String(), err.Error())
	}
}
