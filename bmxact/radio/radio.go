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

// Package radio defines the boundary between the BLE state machines and the
// platform radio stack.  Every request is fire-and-forget: a returned error
// only means the request could not be submitted.  The outcome arrives later
// as a notification delivered to the registered handlers.
package radio

import (
	. "mynewt.apache.org/blemgr/bmxact/bledefs"
)

type PowerEvent struct {
	State BlePowerState
}

type DiscoverEvent struct {
	Report BleAdvReport
}

type ConnectEvent struct {
	Peer BlePeerId
}

type ConnectFailEvent struct {
	Peer BlePeerId

	// Nil if the stack did not supply a reason.
	Err error
}

type DisconnectEvent struct {
	Peer BlePeerId
	Err  error
}

type SvcAddEvent struct {
	Svc BleUuid
	Err error
}

type AdvStartEvent struct {
	Err error
}

// One handler per notification kind.  Nil handlers are skipped.  Handlers
// must not block; implementations may call them from any goroutine.
type CentralHandlers struct {
	OnPower       func(ev PowerEvent)
	OnDiscover    func(ev DiscoverEvent)
	OnConnect     func(ev ConnectEvent)
	OnConnectFail func(ev ConnectFailEvent)
	OnDisconnect  func(ev DisconnectEvent)
}

type PeripheralHandlers struct {
	OnPower    func(ev PowerEvent)
	OnSvcAdd   func(ev SvcAddEvent)
	OnAdvStart func(ev AdvStartEvent)
}

type ScanCfg struct {
	// Services to filter on; empty means discover everything.
	SvcUuids []BleUuid

	// Whether the stack should report every advertisement from a peer
	// rather than only the first.
	AllowDuplicates bool
}

func NewScanCfg() ScanCfg {
	return ScanCfg{
		AllowDuplicates: false,
	}
}

type AdvCfg struct {
	SvcUuids  []BleUuid
	LocalName string
}

type Radio interface {
	// Brings up the radio stack.  Power notifications are delivered after
	// this returns.
	Start() error

	// Shuts the radio stack down.
	Stop() error
}

type Central interface {
	Radio

	// Must be called before Start.
	SetCentralHandlers(h CentralHandlers)

	StartScan(cfg ScanCfg) error
	StopScan() error

	// Yields exactly one ConnectEvent or ConnectFailEvent for the peer,
	// including when the attempt is cancelled.  Outcomes for one peer are
	// delivered in request order.  Leaving the powered-on state abandons
	// every attempt and link without further notifications.
	Connect(peer BlePeerId) error

	// Abandons a pending attempt or tears down an established link.  A
	// link that comes up after the request has been issued is torn down
	// too, so the caller never has to cancel an attempt twice.
	CancelConnect(peer BlePeerId) error
}

type Peripheral interface {
	Radio

	// Must be called before Start.
	SetPeripheralHandlers(h PeripheralHandlers)

	// Yields one SvcAddEvent.
	AddService(svc BleSvc) error

	// Yields one AdvStartEvent.
	StartAdvertising(cfg AdvCfg) error
}

// Applies a scan configuration's service filter to an advertisement.
func ScanCfgMatches(cfg ScanCfg, r BleAdvReport) bool {
	if len(cfg.SvcUuids) == 0 {
		return true
	}

	for _, want := range cfg.SvcUuids {
		for _, have := range r.Fields.Uuids() {
			if CompareUuids(want, have) == 0 {
				return true
			}
		}
	}

	return false
}
