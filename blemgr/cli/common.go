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
	"fmt"
	"time"

	"mynewt.apache.org/blemgr/blemgr/bll"
	"mynewt.apache.org/blemgr/blemgr/bluez"
	"mynewt.apache.org/blemgr/blemgr/bmutil"
	"mynewt.apache.org/blemgr/blemgr/config"
	"mynewt.apache.org/blemgr/bmxact/bledefs"
	"mynewt.apache.org/blemgr/bmxact/central"
	"mynewt.apache.org/blemgr/bmxact/peripheral"
	"mynewt.apache.org/blemgr/bmxact/radio"
	"mynewt.apache.org/newt/util"
)

// A radio stack capable of both roles.
type Radio interface {
	radio.Central
	radio.Peripheral
}

var globalConnector *central.Connector
var globalAdvertiser *peripheral.Advertiser

func getConnProfile() (*config.ConnProfile, error) {
	return config.GlobalConnProfileMgr().ResolveConnProfile(
		bmutil.ConnProfile, bmutil.ConnType, bmutil.ConnString)
}

func buildBllRadio(cp *config.ConnProfile) (Radio, error) {
	bc, err := config.ParseBllConnString(cp.ConnString)
	if err != nil {
		return nil, err
	}

	cfg := bll.NewXportCfg()
	if bc.CtlrName != "" {
		cfg.CtlrName = bc.CtlrName
	}
	cfg.HciIdx = bc.HciIdx
	if bc.ConnTimeout > 0 {
		cfg.ConnTimeout = bc.ConnTimeoutDuration()
	}
	if bc.Power == config.POWER_SOURCE_BLUEZ {
		cfg.Power = bluez.NewPowerMonitor(bc.HciIdx)
	}

	return bll.NewBllRadio(cfg), nil
}

func BuildRadio() (Radio, error) {
	cp, err := getConnProfile()
	if err != nil {
		return nil, err
	}

	switch cp.Type {
	case config.CONN_TYPE_BLE:
		return buildBllRadio(cp)

	case config.CONN_TYPE_SIM:
		sc, err := config.ParseSimConnString(cp.ConnString)
		if err != nil {
			return nil, err
		}
		return config.BuildSimRadio(sc)

	default:
		return nil, util.FmtNewtError("Unknown connection type: %s (%d)",
			config.ConnTypeToString(cp.Type), int(cp.Type))
	}
}

func GetConnector(cfg central.Cfg) (*central.Connector, error) {
	if globalConnector != nil {
		return globalConnector, nil
	}

	r, err := BuildRadio()
	if err != nil {
		return nil, err
	}

	c := central.NewConnector(r, cfg)
	if err := c.Start(); err != nil {
		return nil, util.ChildNewtError(err)
	}

	globalConnector = c
	return c, nil
}

func GetAdvertiser(cfg peripheral.Cfg) (*peripheral.Advertiser, error) {
	if globalAdvertiser != nil {
		return globalAdvertiser, nil
	}

	r, err := BuildRadio()
	if err != nil {
		return nil, err
	}

	a := peripheral.NewAdvertiser(r, cfg)
	if err := a.Start(); err != nil {
		return nil, util.ChildNewtError(err)
	}

	globalAdvertiser = a
	return a, nil
}

// Stops whichever roles have been started.
func CloseIfOpen() {
	if globalConnector != nil {
		globalConnector.Stop()
		globalConnector = nil
	}

	if globalAdvertiser != nil {
		globalAdvertiser.Stop()
		globalAdvertiser = nil
	}
}

// Blocks until the connector's state satisfies the predicate or the timeout
// expires.  The final snapshot is returned in either case.
func waitSnapshot(c *central.Connector, timeout time.Duration,
	pred func(s central.Snapshot) bool) (central.Snapshot, bool) {

	ch := c.Listen()
	defer c.Unlisten(ch)

	s := c.Snapshot()
	if pred(s) {
		return s, true
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		select {
		case v, ok := <-ch:
			if !ok {
				return c.Snapshot(), false
			}
			s = v.(central.Snapshot)
			if pred(s) {
				return s, true
			}

		case <-timer.C:
			return c.Snapshot(), false
		}
	}
}

// Waits for the radio to report a power state.  An error is returned if the
// radio is unusable.
func waitPowered(c *central.Connector) (central.Snapshot, error) {
	s, ok := waitSnapshot(c, bmutil.TimeoutDuration(),
		func(s central.Snapshot) bool {
			// Transient states precede a definite answer.
			return s.State != central.STATE_UNINITIALIZED ||
				(s.Power != bledefs.BLE_POWER_STATE_UNKNOWN &&
					s.Power != bledefs.BLE_POWER_STATE_RESETTING)
		})
	if !ok {
		return s, util.NewNewtError(
			"timeout waiting for Bluetooth radio to become ready")
	}

	if s.State == central.STATE_UNINITIALIZED {
		return s, util.NewNewtError(s.Status)
	}

	return s, nil
}

func durationFromSecs(secs float64) time.Duration {
	return time.Duration(secs * float64(time.Second))
}

func peerDesc(d central.DiscoveredDevice) string {
	return fmt.Sprintf("%s (%s)", d.DisplayName(), d.Id)
}
