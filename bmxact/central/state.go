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

	log "github.com/sirupsen/logrus"

	. "mynewt.apache.org/blemgr/bmxact/bledefs"
	"mynewt.apache.org/blemgr/bmxact/bmxutil"
	"mynewt.apache.org/blemgr/bmxact/radio"
)

type State int

const (
	STATE_UNINITIALIZED State = iota
	STATE_IDLE
	STATE_SCANNING
	STATE_CONNECTING
	STATE_CONNECTED
)

var stateNameMap = map[State]string{
	STATE_UNINITIALIZED: "uninitialized",
	STATE_IDLE:          "idle",
	STATE_SCANNING:      "scanning",
	STATE_CONNECTING:    "connecting",
	STATE_CONNECTED:     "connected",
}

func (s State) String() string {
	name := stateNameMap[s]
	if name == "" {
		return "???"
	}

	return name
}

const StatusNotConnected = "Not Connected"
const StatusScanning = "Scanning..."

// A peer observed during the current scan session.  Never modified after it
// is added to the device list.
type DiscoveredDevice struct {
	Id   BlePeerId `codec:"id"`
	Name *string   `codec:"name"`
	Rssi int       `codec:"rssi"`

	// Fields of the first advertisement received from the peer.
	AdvData BleAdvFields `codec:"-"`
}

func (d *DiscoveredDevice) DisplayName() string {
	return DisplayName(d.Name)
}

type ConnStatus int

const (
	CONN_STATUS_PENDING ConnStatus = iota
	CONN_STATUS_CONNECTED
)

func (cs ConnStatus) String() string {
	if cs == CONN_STATUS_CONNECTED {
		return "connected"
	}
	return "pending"
}

// The single active or pending connection.
type ConnSession struct {
	Peer   BlePeerId  `codec:"peer"`
	Name   string     `codec:"name"`
	Status ConnStatus `codec:"status"`
}

type Snapshot struct {
	State   State              `codec:"state"`
	Power   BlePowerState      `codec:"power"`
	Devices []DiscoveredDevice `codec:"devices"`
	Conn    *ConnSession       `codec:"conn"`
	Status  string             `codec:"status"`

	// Identifiers seen during the current scan session.
	seen map[BlePeerId]struct{}

	// Outcomes still owed by cancelled attempts, per peer.  The radio
	// reports exactly one outcome per attempt, so these are swallowed
	// instead of being credited to a newer attempt for the same peer.
	owed map[BlePeerId]int
}

func NewSnapshot() Snapshot {
	return Snapshot{
		State:  STATE_UNINITIALIZED,
		Power:  BLE_POWER_STATE_UNKNOWN,
		Status: StatusNotConnected,
		seen:   map[BlePeerId]struct{}{},
		owed:   map[BlePeerId]int{},
	}
}

func (s *Snapshot) Seen(id BlePeerId) bool {
	_, ok := s.seen[id]
	return ok
}

func (s *Snapshot) NumSeen() int {
	return len(s.seen)
}

// Number of outcomes the radio still owes for cancelled attempts to a peer.
func (s *Snapshot) Owed(id BlePeerId) int {
	return s.owed[id]
}

func (s *Snapshot) Device(id BlePeerId) (DiscoveredDevice, bool) {
	for _, d := range s.Devices {
		if d.Id == id {
			return d, true
		}
	}

	return DiscoveredDevice{}, false
}

// Returns the peer recorded as the active (established) connection.
func (s *Snapshot) Connected() *ConnSession {
	if s.Conn == nil || s.Conn.Status != CONN_STATUS_CONNECTED {
		return nil
	}

	c := *s.Conn
	return &c
}

func (s *Snapshot) Copy() Snapshot {
	c := *s

	if s.Devices != nil {
		c.Devices = make([]DiscoveredDevice, len(s.Devices))
		copy(c.Devices, s.Devices)
	}

	c.seen = make(map[BlePeerId]struct{}, len(s.seen))
	for id := range s.seen {
		c.seen[id] = struct{}{}
	}

	c.owed = make(map[BlePeerId]int, len(s.owed))
	for id, n := range s.owed {
		c.owed[id] = n
	}

	if s.Conn != nil {
		conn := *s.Conn
		c.Conn = &conn
	}

	return c
}

func changed(prev *Snapshot, next *Snapshot) bool {
	if prev.State != next.State || prev.Power != next.Power ||
		prev.Status != next.Status || len(prev.Devices) != len(next.Devices) {

		return true
	}

	if (prev.Conn == nil) != (next.Conn == nil) {
		return true
	}

	return prev.Conn != nil && *prev.Conn != *next.Conn
}

// Operator requests.
type ScanReq struct{}

type ConnectReq struct {
	Peer BlePeerId
}

// A connect request the radio refused to accept.  Unlike a
// radio.ConnectFailEvent, the radio owes nothing for it.
type connectRejected struct {
	Peer BlePeerId
	Err  error
}

type EffectType int

const (
	EFFECT_START_SCAN EffectType = iota
	EFFECT_STOP_SCAN
	EFFECT_CONNECT
	EFFECT_CANCEL_CONNECT
)

var effectTypeNameMap = map[EffectType]string{
	EFFECT_START_SCAN:     "start_scan",
	EFFECT_STOP_SCAN:      "stop_scan",
	EFFECT_CONNECT:        "connect",
	EFFECT_CANCEL_CONNECT: "cancel_connect",
}

func (t EffectType) String() string {
	return effectTypeNameMap[t]
}

// A radio request to issue after a state transition.
type Effect struct {
	Type EffectType
	Peer BlePeerId
}

func (e Effect) String() string {
	if e.Peer == "" {
		return e.Type.String()
	}
	return fmt.Sprintf("%s(%s)", e.Type.String(), e.Peer)
}

func connectingStatus(name string) string {
	return fmt.Sprintf("Connecting to %s...", name)
}

func connectedStatus(name string) string {
	return fmt.Sprintf("Connected to %s", name)
}

func failedStatus(err error) string {
	reason := "Unknown error"
	if err != nil && err.Error() != "" {
		reason = err.Error()
	}

	return fmt.Sprintf("Failed to connect: %s", reason)
}

func disconnectedStatus(name string) string {
	return fmt.Sprintf("Disconnected from %s", name)
}

func unavailableStatus(state BlePowerState) string {
	return bmxutil.NewRadioUnavailableError(state).Error()
}

// Applies one event to a snapshot.  The input snapshot is not modified.
// Events are operator requests (ScanReq, ConnectReq) or radio notifications
// (radio.PowerEvent, radio.DiscoverEvent, radio.ConnectEvent,
// radio.ConnectFailEvent, radio.DisconnectEvent).  The returned effects are
// the radio requests to issue, in order.  A non-nil error means an operator
// request was rejected; radio notifications never produce an error.
func Reduce(s Snapshot, ev interface{}) (Snapshot, []Effect, error) {
	next := s.Copy()

	switch e := ev.(type) {
	case ScanReq:
		return reduceScanReq(next)

	case ConnectReq:
		return reduceConnectReq(next, e.Peer)

	case radio.PowerEvent:
		return reducePower(next, e.State), nil, nil

	case radio.DiscoverEvent:
		return reduceDiscover(next, e.Report), nil, nil

	case radio.ConnectEvent:
		next, effs := reduceConnect(next, e.Peer)
		return next, effs, nil

	case radio.ConnectFailEvent:
		return reduceConnectFail(next, e.Peer, e.Err), nil, nil

	case connectRejected:
		return failPending(next, e.Peer, e.Err), nil, nil

	case radio.DisconnectEvent:
		return reduceDisconnect(next, e.Peer), nil, nil

	default:
		log.Debugf("central: ignoring unknown event %T", ev)
		return next, nil, nil
	}
}

func reducePower(s Snapshot, state BlePowerState) Snapshot {
	s.Power = state

	if state == BLE_POWER_STATE_POWERED_ON {
		if s.State == STATE_UNINITIALIZED {
			s.State = STATE_IDLE
		}
		return s
	}

	// The radio is gone; any link, scan, or attempt went with it.  The
	// radio owes nothing for attempts it abandoned.
	s.State = STATE_UNINITIALIZED
	s.Conn = nil
	s.owed = map[BlePeerId]int{}
	s.Status = unavailableStatus(state)
	return s
}

func reduceScanReq(s Snapshot) (Snapshot, []Effect, error) {
	if s.State == STATE_UNINITIALIZED {
		s.Status = unavailableStatus(s.Power)
		return s, nil, bmxutil.NewRadioUnavailableError(s.Power)
	}

	var effs []Effect

	// A scan supersedes a pending attempt; an established link is kept.
	if s.Conn != nil && s.Conn.Status == CONN_STATUS_PENDING {
		effs = append(effs, cancelConn(&s))
	}

	s.Devices = nil
	s.seen = map[BlePeerId]struct{}{}
	s.State = STATE_SCANNING
	s.Status = StatusScanning

	effs = append(effs, Effect{Type: EFFECT_START_SCAN})
	return s, effs, nil
}

func reduceDiscover(s Snapshot, r BleAdvReport) Snapshot {
	if s.State != STATE_SCANNING {
		// Late report from a scan that has already been stopped.
		return s
	}

	if s.Seen(r.Sender) {
		return s
	}

	s.seen[r.Sender] = struct{}{}
	s.Devices = append(s.Devices, DiscoveredDevice{
		Id:      r.Sender,
		Name:    r.Fields.Name,
		Rssi:    r.Rssi,
		AdvData: r.Fields,
	})

	return s
}

func reduceConnectReq(s Snapshot, peer BlePeerId) (Snapshot, []Effect, error) {
	if s.State == STATE_UNINITIALIZED {
		s.Status = unavailableStatus(s.Power)
		return s, nil, bmxutil.NewRadioUnavailableError(s.Power)
	}

	dev, ok := s.Device(peer)
	if !ok {
		return s, nil, bmxutil.NewUnknownPeerError(peer)
	}

	if s.Conn != nil && s.Conn.Peer == peer {
		log.Debugf("central: connection to %s already %s",
			peer, s.Conn.Status.String())
		return s, nil, nil
	}

	var effs []Effect

	if s.State == STATE_SCANNING {
		effs = append(effs, Effect{Type: EFFECT_STOP_SCAN})
	}

	// Cancel-then-connect: at most one session exists at a time.
	if s.Conn != nil {
		effs = append(effs, cancelConn(&s))
	}

	s.Conn = &ConnSession{
		Peer:   peer,
		Name:   dev.DisplayName(),
		Status: CONN_STATUS_PENDING,
	}
	s.State = STATE_CONNECTING
	s.Status = connectingStatus(s.Conn.Name)

	effs = append(effs, Effect{Type: EFFECT_CONNECT, Peer: peer})
	return s, effs, nil
}

// Drops the current session and returns the request that cancels it.  A
// pending attempt still owes its outcome.
func cancelConn(s *Snapshot) Effect {
	peer := s.Conn.Peer
	if s.Conn.Status == CONN_STATUS_PENDING {
		s.owed[peer]++
	}
	s.Conn = nil

	return Effect{Type: EFFECT_CANCEL_CONNECT, Peer: peer}
}

// Consumes an outcome owed by a cancelled attempt, if any.
func consumeOwed(s *Snapshot, peer BlePeerId) bool {
	n := s.owed[peer]
	if n == 0 {
		return false
	}

	if n == 1 {
		delete(s.owed, peer)
	} else {
		s.owed[peer] = n - 1
	}

	return true
}

func pendingFor(s *Snapshot, peer BlePeerId) bool {
	return s.Conn != nil && s.Conn.Peer == peer &&
		s.Conn.Status == CONN_STATUS_PENDING
}

func reduceConnect(s Snapshot, peer BlePeerId) (Snapshot, []Effect) {
	if consumeOwed(&s, peer) {
		// The cancel request issued with the attempt already dropped the
		// link.
		log.Debugf("central: ignoring connection from cancelled attempt "+
			"to %s", peer)
		return s, nil
	}

	if !pendingFor(&s, peer) {
		if s.Conn != nil && s.Conn.Peer == peer {
			// Duplicate notification for the active connection.
			return s, nil
		}

		// No attempt accounts for this link; drop it.
		log.Debugf("central: tearing down stale connection to %s", peer)
		return s, []Effect{{Type: EFFECT_CANCEL_CONNECT, Peer: peer}}
	}

	s.Conn.Status = CONN_STATUS_CONNECTED
	s.State = STATE_CONNECTED
	s.Status = connectedStatus(s.Conn.Name)

	return s, nil
}

func reduceConnectFail(s Snapshot, peer BlePeerId, err error) Snapshot {
	if consumeOwed(&s, peer) {
		log.Debugf("central: ignoring failure of cancelled attempt to %s",
			peer)
		return s
	}

	return failPending(s, peer, err)
}

func failPending(s Snapshot, peer BlePeerId, err error) Snapshot {
	if !pendingFor(&s, peer) {
		log.Debugf("central: ignoring stale connect failure for %s", peer)
		return s
	}

	s.Conn = nil
	s.State = STATE_IDLE
	s.Status = failedStatus(err)

	return s
}

func reduceDisconnect(s Snapshot, peer BlePeerId) Snapshot {
	if s.Conn == nil || s.Conn.Peer != peer ||
		s.Conn.Status != CONN_STATUS_CONNECTED {

		return s
	}

	name := s.Conn.Name
	s.Conn = nil

	// A rescan keeps the link; its status stays "Scanning...".
	if s.State == STATE_CONNECTED {
		s.State = STATE_IDLE
		s.Status = disconnectedStatus(name)
	}

	return s
}
