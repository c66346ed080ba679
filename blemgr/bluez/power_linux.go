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

//go:build linux

package bluez

import (
	"fmt"
	"sync"

	"github.com/godbus/dbus/v5"
	log "github.com/sirupsen/logrus"

	"mynewt.apache.org/blemgr/bmxact/bledefs"
)

type PowerMonitor struct {
	path dbus.ObjectPath

	conn   *dbus.Conn
	sigCh  chan *dbus.Signal
	stopCh chan struct{}
	wg     sync.WaitGroup
	mtx    sync.Mutex
}

func NewPowerMonitor(hciIdx int) *PowerMonitor {
	return &PowerMonitor{
		path: AdapterPath(hciIdx),
	}
}

// Reports the adapter's current power state, then every change, to the
// specified function.
func (pm *PowerMonitor) Start(fn func(state bledefs.BlePowerState)) error {
	pm.mtx.Lock()
	defer pm.mtx.Unlock()

	if pm.conn != nil {
		return fmt.Errorf("power monitor started twice")
	}

	conn, err := dbus.ConnectSystemBus()
	if err != nil {
		return fmt.Errorf("failed to connect to system bus: %s", err.Error())
	}

	opts := []dbus.MatchOption{
		dbus.WithMatchObjectPath(pm.path),
		dbus.WithMatchInterface(propsIface),
		dbus.WithMatchMember(propsChanged),
	}
	if err := conn.AddMatchSignal(opts...); err != nil {
		conn.Close()
		return fmt.Errorf("failed to watch %s: %s", pm.path, err.Error())
	}

	sigCh := make(chan *dbus.Signal, 8)
	conn.Signal(sigCh)

	v, err := conn.Object(bluezService, pm.path).GetProperty(
		adapterIface + "." + poweredProp)
	if err != nil {
		conn.RemoveSignal(sigCh)
		conn.Close()
		return fmt.Errorf("failed to read %s power state: %s",
			pm.path, err.Error())
	}

	powered, _ := v.Value().(bool)
	log.Debugf("bluez: %s powered=%t", pm.path, powered)
	fn(poweredToState(powered))

	pm.conn = conn
	pm.sigCh = sigCh
	pm.stopCh = make(chan struct{})

	stopCh := pm.stopCh
	pm.wg.Add(1)
	go func() {
		defer pm.wg.Done()

		for {
			select {
			case sig, ok := <-sigCh:
				if !ok {
					return
				}
				if state, ok := parsePropsChanged(sig, pm.path); ok {
					log.Debugf("bluez: %s power state now %s",
						pm.path, state.String())
					fn(state)
				}

			case <-stopCh:
				return
			}
		}
	}()

	return nil
}

func (pm *PowerMonitor) Stop() error {
	pm.mtx.Lock()
	defer pm.mtx.Unlock()

	if pm.conn == nil {
		return fmt.Errorf("power monitor not started")
	}

	close(pm.stopCh)
	pm.wg.Wait()

	pm.conn.RemoveSignal(pm.sigCh)
	err := pm.conn.Close()
	pm.conn = nil

	return err
}
